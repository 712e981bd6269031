package rules

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/districtcms/backend/internal/apperr"
)

// ConditionType selects which variant of the recursive condition ADT a
// Condition value holds.
type ConditionType string

const (
	CondAnd              ConditionType = "and"
	CondOr                ConditionType = "or"
	CondNot               ConditionType = "not"
	CondFieldEquals       ConditionType = "field_equals"
	CondFieldContains     ConditionType = "field_contains"
	CondFieldExists       ConditionType = "field_exists"
	CondFieldGreaterThan  ConditionType = "field_greater_than"
	CondFieldLessThan     ConditionType = "field_less_than"
	CondAlways            ConditionType = "always"
)

// Condition is the recursive condition term rules are authored against.
// Only the fields relevant to Type are populated.
type Condition struct {
	Type       ConditionType `json:"type"`
	Conditions []Condition   `json:"conditions,omitempty"` // And, Or
	Condition  *Condition    `json:"condition,omitempty"`  // Not
	Field      string        `json:"field,omitempty"`
	Value      interface{}   `json:"value,omitempty"`
}

// Evaluate recursively evaluates c against ctx.
func (c Condition) Evaluate(ctx FilingContext) bool {
	switch c.Type {
	case CondAlways:
		return true
	case CondAnd:
		for _, sub := range c.Conditions {
			if !sub.Evaluate(ctx) {
				return false
			}
		}
		return true
	case CondOr:
		for _, sub := range c.Conditions {
			if sub.Evaluate(ctx) {
				return true
			}
		}
		return false
	case CondNot:
		if c.Condition == nil {
			return false
		}
		return !c.Condition.Evaluate(ctx)
	case CondFieldExists:
		_, ok := ctx.field(c.Field)
		return ok
	case CondFieldEquals:
		v, ok := ctx.field(c.Field)
		if !ok {
			return false
		}
		return fmt.Sprintf("%v", v) == fmt.Sprintf("%v", c.Value)
	case CondFieldContains:
		v, ok := ctx.field(c.Field)
		if !ok {
			return false
		}
		return containsValue(v, c.Value)
	case CondFieldGreaterThan:
		v, ok := ctx.field(c.Field)
		if !ok {
			return false
		}
		return compareNumeric(v, c.Value) > 0
	case CondFieldLessThan:
		v, ok := ctx.field(c.Field)
		if !ok {
			return false
		}
		return compareNumeric(v, c.Value) < 0
	default:
		return false
	}
}

func containsValue(haystack, needle interface{}) bool {
	needleStr := fmt.Sprintf("%v", needle)
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, needleStr)
	case []interface{}:
		for _, item := range h {
			if fmt.Sprintf("%v", item) == needleStr {
				return true
			}
		}
		return false
	case []string:
		for _, item := range h {
			if item == needleStr {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func compareNumeric(a, b interface{}) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return 0
	}
	switch {
	case af > bf:
		return 1
	case af < bf:
		return -1
	default:
		return 0
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ParseCondition parses raw JSON into a Condition tree. Two shapes are
// accepted: the tagged-union form (a "type" key selects the variant) and a
// legacy flat object {field: value, ...}, interpreted as a conjunction of
// FieldEquals terms — a compatibility shim for rules authored before the
// tagged-union form existed. An empty payload evaluates as Always.
func ParseCondition(raw []byte) (*Condition, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return &Condition{Type: CondAlways}, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, apperr.Wrap(apperr.KindValidationError, "rule condition is not a JSON object", err)
	}

	if _, hasType := probe["type"]; hasType {
		var c Condition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, apperr.Wrap(apperr.KindValidationError, "failed to parse rule condition", err)
		}
		return &c, nil
	}

	var flat map[string]interface{}
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, apperr.Wrap(apperr.KindValidationError, "failed to parse legacy rule condition", err)
	}
	conds := make([]Condition, 0, len(flat))
	for field, value := range flat {
		conds = append(conds, Condition{Type: CondFieldEquals, Field: field, Value: value})
	}
	return &Condition{Type: CondAnd, Conditions: conds}, nil
}
