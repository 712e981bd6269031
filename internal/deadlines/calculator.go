// Package deadlines implements the FRCP Rule 6(a) deadline calculator:
// calendar-aware arithmetic over a trigger date, a period in days, and a
// service method, with federal-holiday and weekend rollforward.
package deadlines

import (
	"fmt"
	"time"

	"github.com/districtcms/backend/internal/apperr"
	"github.com/districtcms/backend/pkg/models"
)

// Request is the input to Compute.
type Request struct {
	TriggerDate   time.Time
	PeriodDays    int
	ServiceMethod models.ServiceMethod
	Jurisdiction  string
	Description   string
	Citation      string
}

// Result is the computed deadline.
type Result struct {
	DueDate          time.Time
	Description      string
	RuleCitation     string
	ComputationNotes string
	IsShortPeriod    bool
}

// maxRollforwardDays bounds the forward search so a pathological period
// can't spin the rollforward loop forever; a due date this far out always
// indicates bad input, never a real deadline.
const maxRollforwardDays = 3650

// Compute applies FRCP 6(a): exclude the trigger date, count period+service
// days forward, then roll forward over weekends and federal holidays.
func Compute(req Request) (*Result, error) {
	if req.PeriodDays < 0 {
		return nil, apperr.New(apperr.KindBadRequest, "period days must not be negative")
	}

	additional := req.ServiceMethod.AdditionalDays()
	total := req.PeriodDays + additional
	isShort := total <= 14

	// The trigger day itself is excluded, so even a zero-day period lands on
	// the following day at the earliest.
	days := total
	if days < 1 {
		days = 1
	}
	candidate := req.TriggerDate.AddDate(0, 0, days)
	if candidate.Year() > req.TriggerDate.Year()+20 {
		return nil, apperr.New(apperr.KindInternalError, "deadline computation overflowed a reasonable date range")
	}

	rolled := 0
	due := candidate
	for !IsBusinessDay(due) {
		due = due.AddDate(0, 0, 1)
		rolled++
		if rolled > maxRollforwardDays {
			return nil, apperr.New(apperr.KindInternalError, "deadline rollforward did not converge")
		}
	}

	notes := fmt.Sprintf(
		"period=%d days, service=%s (+%d days), total=%d calendar days from %s; landed on %s",
		req.PeriodDays, req.ServiceMethod, additional, total,
		req.TriggerDate.Format("2006-01-02"), candidate.Format("2006-01-02 (Mon)"),
	)
	if rolled > 0 {
		notes += fmt.Sprintf("; rolled forward %d day(s) past weekend/holiday to %s", rolled, due.Format("2006-01-02 (Mon)"))
	}

	return &Result{
		DueDate:          due,
		Description:      req.Description,
		RuleCitation:     req.Citation,
		ComputationNotes: notes,
		IsShortPeriod:    isShort,
	}, nil
}
