package automod

// DecisionAction is the engine's verdict on a candidate.
type DecisionAction string

const (
	DecisionAllow  DecisionAction = "allow"
	DecisionReject DecisionAction = "reject"
)

// Decision is the output of one evaluation. At most one rule owns the
// decision (first enabled match wins); simultaneous violations are not
// aggregated.
type Decision struct {
	Action   DecisionAction `json:"action"`
	RuleID   string         `json:"ruleId,omitempty"`
	RuleName string         `json:"ruleName,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	// IncompleteData marks decisions evaluated from a partially-enriched
	// candidate after an upstream fetch failure.
	IncompleteData bool `json:"incompleteData,omitempty"`
}
