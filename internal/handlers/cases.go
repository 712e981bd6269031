package handlers

import (
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/internal/speedytrial"
	"github.com/districtcms/backend/internal/validate"
	"github.com/districtcms/backend/pkg/models"
)

// CaseHandler implements case creation, lookup, listing, and the merged
// docket/document/NEF timeline a case's detail view renders from.
type CaseHandler struct {
	db          *sqlx.DB
	speedyTrial *speedytrial.Service
}

// NewCaseHandler builds a CaseHandler.
func NewCaseHandler(db *sqlx.DB, speedyTrial *speedytrial.Service) *CaseHandler {
	return &CaseHandler{db: db, speedyTrial: speedyTrial}
}

type createCaseRequest struct {
	Kind            models.CaseKind `json:"kind" validate:"required,oneof=cr cv"`
	Division        string          `json:"division" validate:"required"`
	Title           string          `json:"title" validate:"required"`
	Priority        int             `json:"priority"`
	ArrestDate      *time.Time      `json:"arrest_date"`
	IndictmentDate  *time.Time      `json:"indictment_date"`
	ArraignmentDate *time.Time      `json:"arraignment_date"`
}

// Create opens a new case. Clerk role or higher is required.
func (h *CaseHandler) Create(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	if !role.AtLeast(models.RoleClerk) {
		return apperr.New(apperr.KindForbidden, "clerk role or higher required")
	}

	var req createCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return err
	}

	created, err := repository.CreateCase(c.Context(), h.db, models.Case{
		CourtID:         courtID,
		Kind:            req.Kind,
		Division:        req.Division,
		Title:           req.Title,
		Priority:        req.Priority,
		ArrestDate:      req.ArrestDate,
		IndictmentDate:  req.IndictmentDate,
		ArraignmentDate: req.ArraignmentDate,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// Get fetches a single case.
func (h *CaseHandler) Get(c *fiber.Ctx) error {
	courtID, _, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid case id")
	}
	cs, err := repository.GetCase(c.Context(), h.db, courtID, int64(id))
	if err != nil {
		return err
	}
	return c.JSON(cs)
}

// List returns a court's cases, optionally filtered by status, paginated.
func (h *CaseHandler) List(c *fiber.Ctx) error {
	courtID, _, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	status := models.CaseStatus(c.Query("status"))
	result, err := repository.ListCases(c.Context(), h.db, courtID, status, page(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// timelineEntry is one merged row in a case's chronological view.
type timelineEntry struct {
	Kind string      `json:"kind"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data"`
}

// Timeline merges a case's docket entries, documents, and NEFs into a
// single chronologically-sorted feed.
func (h *CaseHandler) Timeline(c *fiber.Ctx) error {
	courtID, _, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid case id")
	}
	caseID := int64(id)

	entries, err := repository.ListDocketEntries(c.Context(), h.db, courtID, caseID, repository.NewPage(1, 100))
	if err != nil {
		return err
	}
	docs, err := repository.ListDocumentsForCase(c.Context(), h.db, courtID, caseID)
	if err != nil {
		return err
	}
	nefs, err := repository.ListNEFsForCase(c.Context(), h.db, courtID, caseID)
	if err != nil {
		return err
	}

	timeline := make([]timelineEntry, 0, len(entries.Items)+len(docs)+len(nefs))
	for _, e := range entries.Items {
		timeline = append(timeline, timelineEntry{Kind: "docket_entry", At: e.DateFiled, Data: e})
	}
	for _, d := range docs {
		timeline = append(timeline, timelineEntry{Kind: "document", At: d.CreatedAt, Data: d})
	}
	for _, n := range nefs {
		timeline = append(timeline, timelineEntry{Kind: "nef", At: n.CreatedAt, Data: n})
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].At.Before(timeline[j].At) })

	return c.JSON(fiber.Map{"case_id": caseID, "timeline": timeline})
}

type tollRequest struct {
	Reason string     `json:"reason"`
	From   time.Time  `json:"from"`
	To     *time.Time `json:"to"`
}

// TollSpeedyTrial records an excludable delay against a case's §3161 clock.
// Clerk role or higher is required.
func (h *CaseHandler) TollSpeedyTrial(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	if !role.AtLeast(models.RoleClerk) {
		return apperr.New(apperr.KindForbidden, "clerk role or higher required")
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid case id")
	}

	var req tollRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	clock, err := h.speedyTrial.Toll(c.Context(), courtID, int64(id), req.Reason, req.From, req.To)
	if err != nil {
		return err
	}
	return c.JSON(clock)
}

// WaiveSpeedyTrial marks a case's clock waived by the defendant. Attorney
// role or higher is required, since only the defense can waive the right.
func (h *CaseHandler) WaiveSpeedyTrial(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}
	if !role.AtLeast(models.RoleAttorney) {
		return apperr.New(apperr.KindForbidden, "attorney role or higher required")
	}
	id, err := c.ParamsInt("id")
	if err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid case id")
	}

	clock, err := h.speedyTrial.Waive(c.Context(), courtID, int64(id))
	if err != nil {
		return err
	}
	return c.JSON(clock)
}
