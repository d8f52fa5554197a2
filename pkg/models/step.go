package models

// StepType identifies the execution semantics of a step.
type StepType string

const (
	StepTypeTrigger   StepType = "trigger"
	StepTypeStart     StepType = "start"
	StepTypeAction    StepType = "action"
	StepTypeCondition StepType = "condition"
	StepTypeLoop      StepType = "loop"
	StepTypeLLM       StepType = "llm"
)

// Outcome labels used as keys in a step's next-step edge map.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTrue    = "true"
	OutcomeFalse   = "false"
	OutcomeLoop    = "loop"
	OutcomeDone    = "done"
)

// Sentinel edge targets meaning "terminate this execution" rather than
// naming a real step slug.
var sentinelTargets = map[string]bool{
	"noop":      true,
	"end":       true,
	"terminate": true,
	"complete":  true,
}

// IsSentinelTarget reports whether a next-step target terminates the run.
// An empty target is treated as a sentinel as well.
func IsSentinelTarget(target string) bool {
	return target == "" || sentinelTargets[target]
}

// StepDefinition is one node in a workflow's directed graph. StepSlug is the
// stable identifier used for cross-step variable references; Order records
// the authoring sequence and is used for tie-breaking and static reference
// validation, while NextSteps edges are authoritative for execution order.
type StepDefinition struct {
	StepSlug  string            `json:"step_slug"  validate:"required,lowercase"`
	Name      string            `json:"name"       validate:"required"`
	StepType  StepType          `json:"step_type"  validate:"required,oneof=trigger start action condition loop llm"`
	Order     int               `json:"order"`
	Config    map[string]any    `json:"config"`
	NextSteps map[string]string `json:"next_steps"`
}

// ActionType returns config["type"] for action steps, empty otherwise.
func (s *StepDefinition) ActionType() string {
	if s.StepType != StepTypeAction || s.Config == nil {
		return ""
	}

	actionType, _ := s.Config["type"].(string)

	return actionType
}

// Operation returns the action operation from the step's parameters, used
// to select the matching output schema.
func (s *StepDefinition) Operation() string {
	if s.Config == nil {
		return ""
	}

	params, ok := s.Config["parameters"].(map[string]any)
	if !ok {
		return ""
	}

	operation, _ := params["operation"].(string)

	return operation
}

// Next resolves the edge for an outcome label. The second return is false
// when no edge is declared for the outcome.
func (s *StepDefinition) Next(outcome string) (string, bool) {
	if s.NextSteps == nil {
		return "", false
	}

	target, ok := s.NextSteps[outcome]

	return target, ok
}
