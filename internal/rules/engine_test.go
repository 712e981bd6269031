package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/districtcms/backend/pkg/models"
)

func ruleWithCondition(id int64, name string, source models.RuleSource, triggers []string, conditionJSON, actionsJSON string) models.Rule {
	return models.Rule{
		ID:         id,
		Name:       name,
		Source:     source,
		Status:     models.RuleStatusActive,
		Triggers:   triggers,
		Conditions: []byte(conditionJSON),
		Actions:    []byte(actionsJSON),
	}
}

func TestSelectFiltersByStatusAndTrigger(t *testing.T) {
	rules := []models.Rule{
		ruleWithCondition(1, "active-matching", models.RuleSourceLocal, []string{"document_filed"}, `{"type":"always"}`, `[]`),
		{ID: 2, Name: "inactive", Status: models.RuleStatusInactive, Triggers: []string{"document_filed"}},
		ruleWithCondition(3, "wrong-trigger", models.RuleSourceLocal, []string{"case_filed"}, `{"type":"always"}`, `[]`),
	}
	selected := Select(rules, "", EventDocumentFiled)
	require.Len(t, selected, 1)
	assert.Equal(t, int64(1), selected[0].ID)
}

func TestPrioritizeOrdersStandingOrderFirst(t *testing.T) {
	rules := []models.Rule{
		ruleWithCondition(1, "b-statutory", models.RuleSourceStatutory, nil, "", ""),
		ruleWithCondition(2, "a-standing", models.RuleSourceStandingOrder, nil, "", ""),
		ruleWithCondition(3, "c-local", models.RuleSourceLocal, nil, "", ""),
	}
	Prioritize(rules)
	require.Len(t, rules, 3)
	assert.Equal(t, int64(2), rules[0].ID) // StandingOrder, weight 50
	assert.Equal(t, int64(3), rules[1].ID) // Local, weight 40
	assert.Equal(t, int64(1), rules[2].ID) // Statutory, weight 10
}

func TestPrioritizeBreaksTiesByName(t *testing.T) {
	rules := []models.Rule{
		ruleWithCondition(1, "zebra", models.RuleSourceLocal, nil, "", ""),
		ruleWithCondition(2, "apple", models.RuleSourceLocal, nil, "", ""),
	}
	Prioritize(rules)
	assert.Equal(t, "apple", rules[0].Name)
	assert.Equal(t, "zebra", rules[1].Name)
}

func TestEvaluateBlockFilingAlwaysCondition(t *testing.T) {
	rules := []models.Rule{
		ruleWithCondition(1, "missing-cover-sheet", models.RuleSourceLocal,
			[]string{"document_filed"},
			`{"type":"always"}`,
			`[{"type":"block_filing","reason":"missing cover sheet"}]`),
	}
	report, err := Evaluate(rules, FilingContext{JurisdictionID: "sdny"}, EventDocumentFiled)
	require.NoError(t, err)
	assert.True(t, report.Blocked)
	require.Len(t, report.BlockedReasons, 1)
	assert.Contains(t, report.BlockedReasons[0], "missing cover sheet")
}

func TestEvaluateLegacyFlatConditionShape(t *testing.T) {
	rules := []models.Rule{
		ruleWithCondition(1, "legacy-motion-rule", models.RuleSourceLocal,
			[]string{"motion_filed"},
			`{"document_type":"motion","filer_role":"attorney"}`,
			`[{"type":"flag_for_review","reason":"needs clerk review"}]`),
	}
	matchingCtx := FilingContext{JurisdictionID: "sdny", DocumentType: "motion", FilerRole: models.RoleAttorney}
	report, err := Evaluate(rules, matchingCtx, EventMotionFiled)
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "needs clerk review", report.Warnings[0])

	nonMatchingCtx := FilingContext{JurisdictionID: "sdny", DocumentType: "answer", FilerRole: models.RoleAttorney}
	report, err = Evaluate(rules, nonMatchingCtx, EventMotionFiled)
	require.NoError(t, err)
	assert.Empty(t, report.Warnings)
	assert.False(t, report.Results[0].Matched)
}

func TestEvaluateGenerateDeadlineAction(t *testing.T) {
	electronic := models.ServiceElectronic
	rules := []models.Rule{
		ruleWithCondition(1, "answer-deadline", models.RuleSourceFederalRule,
			[]string{"case_filed"},
			`{"type":"always"}`,
			`[{"type":"generate_deadline","description":"answer due","days_from_trigger":21}]`),
	}
	ctx := FilingContext{
		JurisdictionID: "sdny",
		ServiceMethod:  &electronic,
		TriggerDate:    time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), // Tuesday
	}
	report, err := Evaluate(rules, ctx, EventCaseFiled)
	require.NoError(t, err)
	require.Len(t, report.DeadlineResults, 1)
	assert.Equal(t, time.Date(2024, time.January, 23, 0, 0, 0, 0, time.UTC), report.DeadlineResults[0].DueDate)
}

func TestEvaluateRequireFeeAction(t *testing.T) {
	rules := []models.Rule{
		ruleWithCondition(1, "filing-fee", models.RuleSourceAdministrative,
			[]string{"case_filed"},
			`{"type":"field_equals","field":"case_type","value":"civil"}`,
			`[{"type":"require_fee","amount_cents":40500,"description":"civil filing fee"}]`),
	}
	report, err := Evaluate(rules, FilingContext{JurisdictionID: "sdny", CaseType: "civil"}, EventCaseFiled)
	require.NoError(t, err)
	require.Len(t, report.Fees, 1)
	assert.Equal(t, int64(40500), report.Fees[0].AmountCents)
}

func TestConditionAndOrNotNesting(t *testing.T) {
	ctx := FilingContext{CaseType: "civil", DocumentType: "motion", Metadata: map[string]interface{}{"sealed": false}}

	and := Condition{Type: CondAnd, Conditions: []Condition{
		{Type: CondFieldEquals, Field: "case_type", Value: "civil"},
		{Type: CondFieldEquals, Field: "document_type", Value: "motion"},
	}}
	assert.True(t, and.Evaluate(ctx))

	or := Condition{Type: CondOr, Conditions: []Condition{
		{Type: CondFieldEquals, Field: "case_type", Value: "criminal"},
		{Type: CondFieldEquals, Field: "document_type", Value: "motion"},
	}}
	assert.True(t, or.Evaluate(ctx))

	not := Condition{Type: CondNot, Condition: &Condition{Type: CondFieldEquals, Field: "case_type", Value: "criminal"}}
	assert.True(t, not.Evaluate(ctx))

	exists := Condition{Type: CondFieldExists, Field: "sealed"}
	assert.True(t, exists.Evaluate(ctx))
	missing := Condition{Type: CondFieldExists, Field: "nonexistent"}
	assert.False(t, missing.Evaluate(ctx))
}

func TestConditionGreaterAndLessThan(t *testing.T) {
	ctx := FilingContext{Metadata: map[string]interface{}{"page_count": float64(30)}}
	gt := Condition{Type: CondFieldGreaterThan, Field: "page_count", Value: float64(25)}
	assert.True(t, gt.Evaluate(ctx))
	lt := Condition{Type: CondFieldLessThan, Field: "page_count", Value: float64(25)}
	assert.False(t, lt.Evaluate(ctx))
}

func TestConditionFieldContains(t *testing.T) {
	ctx := FilingContext{Metadata: map[string]interface{}{"tags": []interface{}{"urgent", "sealed"}}}
	c := Condition{Type: CondFieldContains, Field: "tags", Value: "sealed"}
	assert.True(t, c.Evaluate(ctx))
	c2 := Condition{Type: CondFieldContains, Field: "tags", Value: "routine"}
	assert.False(t, c2.Evaluate(ctx))
}

func TestParseConditionEmptyIsAlways(t *testing.T) {
	c, err := ParseCondition(nil)
	require.NoError(t, err)
	assert.Equal(t, CondAlways, c.Type)
}

func TestParseActionsEmptyIsNil(t *testing.T) {
	actions, err := ParseActions(nil)
	require.NoError(t, err)
	assert.Nil(t, actions)
}
