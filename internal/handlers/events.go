package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/events"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/internal/rules"
	"github.com/districtcms/backend/pkg/models"
)

// eventKindTrigger maps an events.Kind to the rules.TriggerEvent it fires,
// so the compliance pass can be run before the kind's workflow commits.
var eventKindTrigger = map[events.Kind]rules.TriggerEvent{
	events.KindFiling:            rules.EventDocumentFiled,
	events.KindPromoteAttachment: rules.EventAttachmentPromoted,
}

// EventHandler implements the unified submission endpoint: it runs the
// compliance rule engine ahead of a filing-type event and refuses to
// dispatch the event's workflow when a matched rule blocks it.
type EventHandler struct {
	db     *sqlx.DB
	events *events.Service
}

// NewEventHandler builds an EventHandler.
func NewEventHandler(db *sqlx.DB, eventsSvc *events.Service) *EventHandler {
	return &EventHandler{db: db, events: eventsSvc}
}

type submitEventRequest struct {
	Kind   events.Kind `json:"event_kind"`
	CaseID int64       `json:"case_id"`

	EntryType      string                `json:"entry_type"`
	Description    string                `json:"description"`
	FiledBy        *int64                `json:"filed_by"`
	IsSealed       bool                  `json:"is_sealed"`
	IsExParte      bool                  `json:"is_ex_parte"`
	PageCount      *int                  `json:"page_count"`
	RelatedEntries []int64               `json:"related_entries"`
	ServiceList    []int64               `json:"service_list"`

	DocumentType  string               `json:"document_type"`
	Title         string               `json:"title"`
	FiledByUserID int64                `json:"filed_by_user_id"`
	UploadID      *int64               `json:"upload_id"`
	Recipients    []int64              `json:"recipients"`
	ServiceMethod models.ServiceMethod `json:"service_method"`

	AttachmentID        int64  `json:"attachment_id"`
	PromoteTitle        string `json:"promote_title"`
	PromoteDocumentType string `json:"promote_document_type"`
}

type submitEventResponse struct {
	Result     events.Result           `json:"result"`
	Compliance *rules.ComplianceReport `json:"compliance,omitempty"`
}

// Submit dispatches a SubmitEventRequest. For filing and promote_attachment
// kinds it first evaluates the court's active rules against the case's
// context; a matched BlockFiling action returns Conflict without touching
// the docket.
func (h *EventHandler) Submit(c *fiber.Ctx) error {
	courtID, role, err := requireCourtRole(c)
	if err != nil {
		return err
	}

	var req submitEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.New(apperr.KindBadRequest, "invalid request body")
	}
	if req.CaseID == 0 {
		return apperr.Validation(map[string]string{"case_id": "required"})
	}

	svcReq := events.Request{
		Kind:                req.Kind,
		CaseID:              req.CaseID,
		EntryType:           req.EntryType,
		Description:         req.Description,
		FiledBy:             req.FiledBy,
		IsSealed:            req.IsSealed,
		IsExParte:           req.IsExParte,
		PageCount:           req.PageCount,
		RelatedEntries:      req.RelatedEntries,
		ServiceList:         req.ServiceList,
		DocumentType:        req.DocumentType,
		Title:               req.Title,
		FiledByUserID:       req.FiledByUserID,
		UploadID:            req.UploadID,
		Recipients:          req.Recipients,
		ServiceMethod:       req.ServiceMethod,
		AttachmentID:        req.AttachmentID,
		PromoteTitle:        req.PromoteTitle,
		PromoteDocumentType: req.PromoteDocumentType,
	}

	var report *rules.ComplianceReport
	if trigger, ok := eventKindTrigger[req.Kind]; ok {
		report, err = h.runRules(c, courtID, req, trigger)
		if err != nil {
			return err
		}
		if report.Blocked {
			return apperr.Newf(apperr.KindConflict, "filing blocked by compliance rules: %v", report.BlockedReasons)
		}
	}

	result, err := h.events.Submit(c.Context(), courtID, role, svcReq)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(submitEventResponse{Result: result, Compliance: report})
}

// runRules builds a FilingContext from the case being filed against and
// evaluates the court's active rules for trigger.
func (h *EventHandler) runRules(c *fiber.Ctx, courtID models.CourtID, req submitEventRequest, trigger rules.TriggerEvent) (*rules.ComplianceReport, error) {
	cs, err := repository.GetCase(c.Context(), h.db, courtID, req.CaseID)
	if err != nil {
		return nil, err
	}

	docType := req.DocumentType
	if req.Kind == events.KindPromoteAttachment {
		docType = req.PromoteDocumentType
	}

	claims, err := requireAuth(c)
	if err != nil {
		return nil, err
	}
	filerRole := claims.CourtRoles[courtID]
	if claims.Role == models.RoleAdmin {
		filerRole = models.RoleAdmin
	}

	var serviceMethod *models.ServiceMethod
	if req.ServiceMethod != "" {
		serviceMethod = &req.ServiceMethod
	}

	ctx := rules.FilingContext{
		CaseType:       string(cs.Kind),
		DocumentType:   docType,
		FilerRole:      filerRole,
		JurisdictionID: string(courtID),
		Division:       &cs.Division,
		ServiceMethod:  serviceMethod,
		TriggerDate:    time.Now(),
		Metadata:       map[string]interface{}{},
	}

	activeRules, err := repository.ListActiveRules(c.Context(), h.db, courtID)
	if err != nil {
		return nil, err
	}
	return rules.Evaluate(activeRules, ctx, trigger)
}
