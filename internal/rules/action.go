package rules

import (
	"encoding/json"
	"strings"

	"github.com/districtcms/backend/internal/apperr"
)

// ActionType selects which variant of the closed action set an Action holds.
type ActionType string

const (
	ActionGenerateDeadline ActionType = "generate_deadline"
	ActionRequireRedaction ActionType = "require_redaction"
	ActionSendNotification ActionType = "send_notification"
	ActionBlockFiling      ActionType = "block_filing"
	ActionRequireFee       ActionType = "require_fee"
	ActionFlagForReview    ActionType = "flag_for_review"
	ActionLogCompliance    ActionType = "log_compliance"
)

// Action is the closed variant of effects a matched rule can produce. Only
// the fields relevant to Type are populated.
type Action struct {
	Type            ActionType `json:"type"`
	Description     string     `json:"description,omitempty"`
	DaysFromTrigger int        `json:"days_from_trigger,omitempty"`
	Fields          []string   `json:"fields,omitempty"`
	Recipient       string     `json:"recipient,omitempty"`
	Message         string     `json:"message,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	AmountCents     int64      `json:"amount_cents,omitempty"`
}

// ParseActions parses raw JSON — an array of tagged action objects — into a
// slice of Actions. An empty payload yields no actions.
func ParseActions(raw []byte) ([]Action, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	var actions []Action
	if err := json.Unmarshal(raw, &actions); err != nil {
		return nil, apperr.Wrap(apperr.KindValidationError, "failed to parse rule actions", err)
	}
	return actions, nil
}
