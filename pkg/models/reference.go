package models

// ReferenceType classifies a parsed {{...}} template expression.
type ReferenceType string

const (
	ReferenceTypeStep     ReferenceType = "step"
	ReferenceTypeLoop     ReferenceType = "loop"
	ReferenceTypeSecret   ReferenceType = "secret"
	ReferenceTypeInput    ReferenceType = "input"
	ReferenceTypeSystem   ReferenceType = "system"
	ReferenceTypeVariable ReferenceType = "variable"
	ReferenceTypeComplex  ReferenceType = "complex"
)

// ComplexExpressionPath is the sentinel path marking an expression that
// contains operators: structural validation is skipped for it, only the
// step-existence check applies.
const ComplexExpressionPath = "__complex_expression__"

// SystemVariables is the fixed allowlist of system variable names exposed
// to template expressions.
var SystemVariables = map[string]bool{
	"organizationId":      true,
	"wfDefinitionId":      true,
	"rootWfDefinitionId":  true,
	"executionId":         true,
	"now":                 true,
	"nowMs":               true,
}

// ParsedReference is one typed reference extracted from a {{...}} template
// expression inside step configuration.
type ParsedReference struct {
	FullExpression   string        `json:"full_expression"`
	Type             ReferenceType `json:"type"`
	StepSlug         string        `json:"step_slug,omitempty"`
	Path             []string      `json:"path"`
	OriginalTemplate string        `json:"original_template"`
}

// IsComplex reports whether the reference carries the complex-expression
// sentinel path.
func (r *ParsedReference) IsComplex() bool {
	return len(r.Path) > 0 && r.Path[0] == ComplexExpressionPath
}
