// Package rules implements the select -> prioritize -> evaluate compliance
// rule engine: a recursive condition/action DSL evaluated against a filing
// context to produce a ComplianceReport.
package rules

import (
	"time"

	"github.com/districtcms/backend/pkg/models"
)

// TriggerEvent is a lifecycle event a rule's triggers array may list.
// The judiciary's rulebook enumerates roughly four dozen of these; the
// constants below are the ones the rest of the backend emits directly.
type TriggerEvent string

const (
	EventCaseFiled        TriggerEvent = "case_filed"
	EventDocumentFiled    TriggerEvent = "document_filed"
	EventMotionFiled      TriggerEvent = "motion_filed"
	EventAnswerFiled      TriggerEvent = "answer_filed"
	EventDiscoveryClosed  TriggerEvent = "discovery_closed"
	EventServiceCompleted TriggerEvent = "service_completed"
	EventJudgmentEntered  TriggerEvent = "judgment_entered"
	EventAttachmentPromoted TriggerEvent = "attachment_promoted"
)

// FilingContext is the evaluation context a rule's condition is matched
// against. TriggerDate anchors GenerateDeadline actions; it is not part of
// the wire shape rules are authored against but is supplied by the caller
// (normally the event that fired the pipeline) at evaluation time.
type FilingContext struct {
	CaseType       string
	DocumentType   string
	FilerRole      models.Role
	JurisdictionID string
	Division       *string
	AssignedJudge  *string
	ServiceMethod  *models.ServiceMethod
	TriggerDate    time.Time
	Metadata       map[string]interface{}
}

// field resolves a condition's field path against the named fields first,
// falling back to the metadata map.
func (c FilingContext) field(name string) (interface{}, bool) {
	switch name {
	case "case_type":
		return c.CaseType, true
	case "document_type":
		return c.DocumentType, true
	case "filer_role":
		return string(c.FilerRole), true
	case "jurisdiction_id":
		return c.JurisdictionID, true
	case "division":
		if c.Division == nil {
			return nil, false
		}
		return *c.Division, true
	case "assigned_judge":
		if c.AssignedJudge == nil {
			return nil, false
		}
		return *c.AssignedJudge, true
	case "service_method":
		if c.ServiceMethod == nil {
			return nil, false
		}
		return string(*c.ServiceMethod), true
	default:
		v, ok := c.Metadata[name]
		return v, ok
	}
}
