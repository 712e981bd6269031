// Package events implements the unified event submission pipeline: a
// single endpoint dispatches on event_kind to one of three workflows
// (text_entry, filing, promote_attachment), each gated by a minimum role
// and a fixed set of required fields.
package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/internal/documents"
	"github.com/districtcms/backend/internal/repository"
	"github.com/districtcms/backend/pkg/models"
)

// Kind is the SubmitEventRequest discriminator.
type Kind string

const (
	KindTextEntry         Kind = "text_entry"
	KindFiling            Kind = "filing"
	KindPromoteAttachment Kind = "promote_attachment"
)

// minRole is the least-privileged role that may submit each kind.
var minRole = map[Kind]models.Role{
	KindTextEntry:         models.RoleClerk,
	KindFiling:            models.RoleAttorney,
	KindPromoteAttachment: models.RoleClerk,
}

// validPromoteDocumentTypes is the closed whitelist promote_attachment
// checks its document_type against.
var validPromoteDocumentTypes = map[string]bool{
	"Motion": true, "Order": true, "Notice": true, "Brief": true,
	"Exhibit": true, "Transcript": true, "Judgment": true,
	"Complaint": true, "Answer": true, "Other": true,
}

// Request is the unified submission payload; only the fields relevant to
// Kind need be set, and Submit validates exactly those.
type Request struct {
	Kind   Kind
	CaseID int64

	// text_entry
	EntryType      string
	Description    string
	FiledBy        *int64
	IsSealed       bool
	IsExParte      bool
	PageCount      *int
	RelatedEntries []int64
	ServiceList    []int64

	// filing
	DocumentType  string
	Title         string
	FiledByUserID int64
	UploadID      *int64 // optional pre-staged attachment to source the document from
	Recipients    []int64
	ServiceMethod models.ServiceMethod

	// promote_attachment
	AttachmentID        int64
	PromoteTitle        string
	PromoteDocumentType string
}

// Result reports what the dispatched workflow created.
type Result struct {
	Kind          Kind
	DocketEntryID int64
	EntryNumber   int
	DocumentID    *int64
	FilingID      *int64
	NEFID         *int64
}

// Service dispatches SubmitEventRequests to their workflow.
type Service struct {
	db   *sqlx.DB
	docs *documents.Service
}

// NewService builds a Service.
func NewService(db *sqlx.DB, docs *documents.Service) *Service {
	return &Service{db: db, docs: docs}
}

// Submit validates role and required fields for req.Kind and runs its
// workflow.
func (s *Service) Submit(ctx context.Context, courtID models.CourtID, role models.Role, req Request) (Result, error) {
	min, ok := minRole[req.Kind]
	if !ok {
		return Result{}, apperr.New(apperr.KindBadRequest, "unknown event_kind '"+string(req.Kind)+"'")
	}
	if !role.AtLeast(min) {
		return Result{}, apperr.New(apperr.KindForbidden, string(min)+" role or higher required for "+string(req.Kind))
	}

	switch req.Kind {
	case KindTextEntry:
		return s.submitTextEntry(ctx, courtID, req)
	case KindFiling:
		return s.submitFiling(ctx, courtID, req)
	case KindPromoteAttachment:
		return s.submitPromoteAttachment(ctx, courtID, req)
	default:
		return Result{}, apperr.New(apperr.KindBadRequest, "unknown event_kind '"+string(req.Kind)+"'")
	}
}

// submitTextEntry creates a docket entry only — no document, filing, or NEF.
func (s *Service) submitTextEntry(ctx context.Context, courtID models.CourtID, req Request) (Result, error) {
	if req.EntryType == "" {
		return Result{}, apperr.Validation(map[string]string{"entry_type": "required for text_entry"})
	}
	if strings.TrimSpace(req.Description) == "" {
		return Result{}, apperr.Validation(map[string]string{"description": "must not be empty"})
	}

	var entry models.DocketEntry
	err := repository.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		lockKey := fmt.Sprintf("%s:case:%d", courtID, req.CaseID)
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return err
		}

		entryNumber, err := repository.NextEntryNumber(ctx, tx, courtID, req.CaseID)
		if err != nil {
			return err
		}
		entry, err = repository.CreateDocketEntry(ctx, tx, models.DocketEntry{
			CourtID:        courtID,
			CaseID:         req.CaseID,
			EntryNumber:    entryNumber,
			EntryType:      req.EntryType,
			Description:    req.Description,
			FiledBy:        req.FiledBy,
			IsSealed:       req.IsSealed,
			IsExParte:      req.IsExParte,
			PageCount:      req.PageCount,
			RelatedEntries: req.RelatedEntries,
			ServiceList:    req.ServiceList,
		})
		return err
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Kind: KindTextEntry, DocketEntryID: entry.ID, EntryNumber: entry.EntryNumber}, nil
}

// submitFiling delegates to repository.CreateFiling, the atomic five-table
// write. When UploadID references a pre-staged attachment, the document is
// sourced from it instead of from caller-supplied storage fields.
func (s *Service) submitFiling(ctx context.Context, courtID models.CourtID, req Request) (Result, error) {
	if req.DocumentType == "" {
		return Result{}, apperr.Validation(map[string]string{"document_type": "required for filing"})
	}
	if req.Title == "" {
		return Result{}, apperr.Validation(map[string]string{"title": "required for filing"})
	}
	if req.FiledByUserID == 0 {
		return Result{}, apperr.Validation(map[string]string{"filed_by": "required for filing"})
	}

	doc := models.Document{
		Title:        req.Title,
		DocumentType: req.DocumentType,
	}
	if req.UploadID != nil {
		attachment, err := repository.GetAttachment(ctx, s.db, courtID, *req.UploadID)
		if err != nil {
			return Result{}, err
		}
		if attachment.UploadedAt == nil {
			return Result{}, apperr.New(apperr.KindBadRequest, "upload has not finished uploading")
		}
		doc.StorageKey = attachment.StorageKey
		doc.FileSize = attachment.FileSize
		doc.ContentType = attachment.ContentType
		doc.Checksum = attachment.SHA256
		doc.SourceAttachmentID = &attachment.ID
	}

	filingResult, err := repository.CreateFiling(ctx, s.db, courtID, req.CaseID, repository.CreateFilingParams{
		Document:      doc,
		EntryType:     "filing",
		Description:   req.Title,
		FiledByUserID: req.FiledByUserID,
		Recipients:    req.Recipients,
		ServiceMethod: req.ServiceMethod,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Kind:          KindFiling,
		DocketEntryID: filingResult.DocketEntry.ID,
		EntryNumber:   filingResult.DocketEntry.EntryNumber,
		DocumentID:    &filingResult.Document.ID,
		FilingID:      &filingResult.Filing.ID,
		NEFID:         &filingResult.NEF.ID,
	}, nil
}

// submitPromoteAttachment looks up the attachment, validates document_type
// against the closed whitelist, and promotes it — idempotently — via
// internal/documents.
func (s *Service) submitPromoteAttachment(ctx context.Context, courtID models.CourtID, req Request) (Result, error) {
	if req.AttachmentID == 0 {
		return Result{}, apperr.Validation(map[string]string{"attachment_id": "required for promote_attachment"})
	}
	docType := req.PromoteDocumentType
	if docType == "" {
		docType = "Other"
	}
	if !validPromoteDocumentTypes[docType] {
		return Result{}, apperr.New(apperr.KindBadRequest, "invalid document_type '"+docType+"'")
	}

	attachment, err := repository.GetAttachment(ctx, s.db, courtID, req.AttachmentID)
	if err != nil {
		return Result{}, err
	}

	title := req.PromoteTitle
	if title == "" {
		title = attachment.Filename
	}

	doc, err := s.docs.PromoteAttachment(ctx, courtID, attachment.DocketEntryID, attachment.ID, title, docType)
	if err != nil {
		return Result{}, err
	}

	entry, err := repository.GetDocketEntry(ctx, s.db, courtID, attachment.DocketEntryID)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Kind:          KindPromoteAttachment,
		DocketEntryID: attachment.DocketEntryID,
		EntryNumber:   entry.EntryNumber,
		DocumentID:    &doc.ID,
	}, nil
}
