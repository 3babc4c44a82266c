package settings

import (
	"errors"
	"fmt"
	"strings"
)

// HighEffortTokens is the thinking budget written when effort is set to high.
const HighEffortTokens = 10000

// IsReasoningCapable reports whether the effort control applies to model.
// The check runs on the raw id, so custom ids are evaluated too.
func IsReasoningCapable(model string) bool {
	return strings.Contains(strings.ToLower(model), "claude")
}

// ErrReasoningUnsupported is returned when high effort is requested for a
// model without a reasoning budget.
var ErrReasoningUnsupported = errors.New("model does not support reasoning effort")

// CheckEffort reports whether effort may be applied while model is selected.
// Standard effort is always allowed since it only clears the budget.
func CheckEffort(model string, effort Effort) error {
	if effort == EffortHigh && !IsReasoningCapable(model) {
		return fmt.Errorf("%w: %s", ErrReasoningUnsupported, model)
	}
	return nil
}

// Effort is the two-level projection of ThinkingTokens.
type Effort string

const (
	EffortStandard Effort = "standard"
	EffortHigh     Effort = "high"
)

// EffortOf projects a thinking budget onto an effort level.
func EffortOf(tokens int) Effort {
	if tokens == 0 {
		return EffortStandard
	}
	return EffortHigh
}

// TokensFor returns the thinking budget written for effort.
func TokensFor(effort Effort) int {
	if effort == EffortHigh {
		return HighEffortTokens
	}
	return 0
}

// ParseEffort accepts "standard" or "high" (case-insensitive).
func ParseEffort(value string) (Effort, error) {
	switch Effort(strings.ToLower(strings.TrimSpace(value))) {
	case EffortStandard:
		return EffortStandard, nil
	case EffortHigh:
		return EffortHigh, nil
	default:
		return "", fmt.Errorf("unknown reasoning effort %q", value)
	}
}

// EffortPatch builds the patch that selects effort.
func EffortPatch(effort Effort) ToolSettingsPatch {
	return ToolSettingsPatch{ThinkingTokens: Int(TokensFor(effort))}
}
