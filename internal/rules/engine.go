package rules

import (
	"sort"

	"github.com/districtcms/backend/internal/deadlines"
	"github.com/districtcms/backend/pkg/models"
)

// RuleResult is the outcome of evaluating a single selected rule.
type RuleResult struct {
	RuleID       int64
	RuleName     string
	Matched      bool
	ActionsTaken []ActionType
	Message      string
}

// FeeRequirement is a RequireFee action's contribution to a report.
type FeeRequirement struct {
	RuleID      int64
	AmountCents int64
	Description string
}

// ComplianceReport is the accumulated outcome of running every selected
// rule's condition and, for matches, its actions against a FilingContext.
type ComplianceReport struct {
	Results         []RuleResult
	Blocked         bool
	BlockedReasons  []string
	Warnings        []string
	DeadlineResults []deadlines.Result
	Fees            []FeeRequirement
}

// Select filters rules to those active, matching jurisdictionID (rules with
// no jurisdiction set apply everywhere), whose triggers include event.
func Select(rules []models.Rule, jurisdictionID string, event TriggerEvent) []models.Rule {
	selected := make([]models.Rule, 0, len(rules))
	for _, r := range rules {
		if r.Status != models.RuleStatusActive {
			continue
		}
		if r.JurisdictionID != "" && r.JurisdictionID != jurisdictionID {
			continue
		}
		if !containsEvent(r.Triggers, event) {
			continue
		}
		selected = append(selected, r)
	}
	return selected
}

func containsEvent(triggers []string, event TriggerEvent) bool {
	for _, t := range triggers {
		if TriggerEvent(t) == event {
			return true
		}
	}
	return false
}

// Prioritize sorts rules descending by source priority weight
// (StandingOrder > Local > Administrative > FederalRule > Statutory), ties
// broken by name. It mutates rules in place.
func Prioritize(rules []models.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		wi, wj := rules[i].Source.PriorityWeight(), rules[j].Source.PriorityWeight()
		if wi != wj {
			return wi > wj
		}
		return rules[i].Name < rules[j].Name
	})
}

// Evaluate runs the select -> prioritize -> evaluate pipeline over rules for
// event and produces a ComplianceReport.
func Evaluate(rules []models.Rule, ctx FilingContext, event TriggerEvent) (*ComplianceReport, error) {
	selected := Select(rules, ctx.JurisdictionID, event)
	Prioritize(selected)

	report := &ComplianceReport{}
	for _, rule := range selected {
		cond, err := ParseCondition(rule.Conditions)
		if err != nil {
			return nil, err
		}

		result := RuleResult{RuleID: rule.ID, RuleName: rule.Name, Matched: cond.Evaluate(ctx)}
		if !result.Matched {
			report.Results = append(report.Results, result)
			continue
		}

		actions, err := ParseActions(rule.Actions)
		if err != nil {
			return nil, err
		}
		for _, action := range actions {
			result.ActionsTaken = append(result.ActionsTaken, action.Type)
			msg, err := applyAction(action, rule, ctx, report)
			if err != nil {
				return nil, err
			}
			if msg != "" {
				result.Message = msg
			}
		}
		report.Results = append(report.Results, result)
	}
	return report, nil
}

func applyAction(action Action, rule models.Rule, ctx FilingContext, report *ComplianceReport) (string, error) {
	switch action.Type {
	case ActionBlockFiling:
		report.Blocked = true
		report.BlockedReasons = append(report.BlockedReasons, action.Reason)
		return action.Reason, nil
	case ActionFlagForReview:
		report.Warnings = append(report.Warnings, action.Reason)
		return action.Reason, nil
	case ActionRequireFee:
		report.Fees = append(report.Fees, FeeRequirement{
			RuleID:      rule.ID,
			AmountCents: action.AmountCents,
			Description: action.Description,
		})
		return action.Description, nil
	case ActionGenerateDeadline:
		method := models.ServiceElectronic
		if ctx.ServiceMethod != nil {
			method = *ctx.ServiceMethod
		}
		res, err := deadlines.Compute(deadlines.Request{
			TriggerDate:   ctx.TriggerDate,
			PeriodDays:    action.DaysFromTrigger,
			ServiceMethod: method,
			Jurisdiction:  ctx.JurisdictionID,
			Description:   action.Description,
			Citation:      rule.Citation,
		})
		if err != nil {
			return "", err
		}
		report.DeadlineResults = append(report.DeadlineResults, *res)
		return action.Description, nil
	case ActionRequireRedaction, ActionSendNotification, ActionLogCompliance:
		return action.Message, nil
	default:
		return "", nil
	}
}
