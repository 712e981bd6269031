package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/queue"
	"github.com/districtcms/backend/pkg/models"
)

// QueueHandler implements queue item creation, listing, claim/release,
// step advancement, rejection, and the dashboard stats endpoint.
type QueueHandler struct {
	queue *queue.Service
}

// NewQueueHandler builds a QueueHandler.
func NewQueueHandler(queueSvc *queue.Service) *QueueHandler {
	return &QueueHandler{queue: queueSvc}
}

type createQueueItemRequest struct {
	QueueType  models.QueueType `json:"queue_type"`
	Priority   int              `json:"priority"`
	Title      string           `json:"title"`
	SourceType string           `json:"source_type"`
	SourceID   int64            `json:"source_id"`
	CaseID     *int64           `json:"case_id"`
}

// Create enqueues a new item at its queue type's first step. Clerk role or
// higher is required.
func (h *QueueHandler) Create(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	if !role.AtLeast(models.RoleClerk) {
		return apperr.New(apperr.KindForbidden, "clerk role or higher required")
	}

	var req createQueueItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	if req.Title == "" || req.SourceType == "" {
		return apperr.Validation(map[string]string{"title/source_type": "required"})
	}

	claims, err := requireAuth(c)
	if err != nil {
		return err
	}

	item, err := h.queue.Create(c.Context(), models.QueueItem{
		CourtID:     courtID,
		QueueType:   req.QueueType,
		Priority:    req.Priority,
		Title:       req.Title,
		SourceType:  req.SourceType,
		SourceID:    req.SourceID,
		CaseID:      req.CaseID,
		SubmittedBy: &claims.Subject,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// List returns a court's queue items, filterable by status and queue type.
func (h *QueueHandler) List(c *fiber.Ctx) error {
	courtID, _, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	status := models.QueueStatus(c.Query("status"))
	queueType := models.QueueType(c.Query("queue_type"))
	result, err := h.queue.List(c.Context(), courtID, status, queueType, page(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Stats returns the dashboard numbers for the signed-in clerk's queue.
func (h *QueueHandler) Stats(c *fiber.Ctx) error {
	courtID, _, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	claims, err := requireAuth(c)
	if err != nil {
		return err
	}
	stats, err := h.queue.Stats(c.Context(), courtID, claims.Subject)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// Claim assigns an unassigned, pending item to the caller.
func (h *QueueHandler) Claim(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	if !role.AtLeast(models.RoleClerk) {
		return apperr.New(apperr.KindForbidden, "clerk role or higher required")
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid queue item id")
	}
	claims, err := requireAuth(c)
	if err != nil {
		return err
	}
	item, err := h.queue.Claim(c.Context(), courtID, int64(id), claims.Subject)
	if err != nil {
		return err
	}
	return c.JSON(item)
}

// Release unassigns an item the caller currently holds.
func (h *QueueHandler) Release(c *fiber.Ctx) error {
	courtID, _, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid queue item id")
	}
	claims, err := requireAuth(c)
	if err != nil {
		return err
	}
	item, err := h.queue.Release(c.Context(), courtID, int64(id), claims.Subject)
	if err != nil {
		return err
	}
	return c.JSON(item)
}

// Advance moves an item to the next step in its pipeline.
func (h *QueueHandler) Advance(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	if !role.AtLeast(models.RoleClerk) {
		return apperr.New(apperr.KindForbidden, "clerk role or higher required")
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid queue item id")
	}
	item, err := h.queue.Advance(c.Context(), courtID, int64(id))
	if err != nil {
		return err
	}
	return c.JSON(item)
}

type rejectQueueItemRequest struct {
	Reason string `json:"reason"`
}

// Reject marks an item rejected with a reason.
func (h *QueueHandler) Reject(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	if !role.AtLeast(models.RoleClerk) {
		return apperr.New(apperr.KindForbidden, "clerk role or higher required")
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid queue item id")
	}
	var req rejectQueueItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	item, err := h.queue.Reject(c.Context(), courtID, int64(id), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(item)
}
