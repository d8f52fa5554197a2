// Package template parses and renders {{...}} variable references inside
// step configuration. Parsing is pure and idempotent: the same function is
// used at validation time and at render time.
package template

import (
	"regexp"
	"strings"

	"github.com/cadenzahq/cadenza/pkg/models"
)

// expressionPattern matches a single non-greedy {{ ... }} occurrence.
// Nested braces are not supported.
var expressionPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// stepPrefixPattern extracts a leading steps.<slug> prefix from a complex
// expression so the validator can still check step existence.
var stepPrefixPattern = regexp.MustCompile(`^steps\.([a-zA-Z0-9_-]+)`)

// complexChars are the operator characters that switch an expression into
// complex classification.
const complexChars = "?:!<>=&|+-*/[]()"

// ParseReferences recursively walks strings, maps and slices and returns
// every typed reference found in {{...}} template expressions.
func ParseReferences(value any) []*models.ParsedReference {
	var refs []*models.ParsedReference

	collectReferences(value, &refs)

	return refs
}

func collectReferences(value any, refs *[]*models.ParsedReference) {
	switch v := value.(type) {
	case string:
		for _, match := range expressionPattern.FindAllStringSubmatch(v, -1) {
			*refs = append(*refs, classify(match[1], match[0]))
		}
	case map[string]any:
		for _, item := range v {
			collectReferences(item, refs)
		}
	case []any:
		for _, item := range v {
			collectReferences(item, refs)
		}
	}
}

// classify turns one inner expression into a typed reference.
func classify(expression, original string) *models.ParsedReference {
	trimmed := strings.TrimSpace(expression)

	ref := &models.ParsedReference{
		FullExpression:   trimmed,
		OriginalTemplate: original,
	}

	if strings.ContainsAny(trimmed, complexChars) {
		ref.Path = []string{models.ComplexExpressionPath}

		if match := stepPrefixPattern.FindStringSubmatch(trimmed); match != nil {
			ref.Type = models.ReferenceTypeStep
			ref.StepSlug = match[1]
		} else {
			ref.Type = models.ReferenceTypeComplex
		}

		return ref
	}

	segments := strings.Split(trimmed, ".")

	switch segments[0] {
	case "steps":
		if len(segments) < 2 {
			ref.Type = models.ReferenceTypeVariable
			ref.Path = []string{}

			return ref
		}

		ref.Type = models.ReferenceTypeStep
		ref.StepSlug = segments[1]
		ref.Path = segments[2:]
	case "loop":
		ref.Type = models.ReferenceTypeLoop
		ref.Path = segments[1:]
	case "secrets":
		ref.Type = models.ReferenceTypeSecret
		ref.Path = segments[1:]
	case "input":
		ref.Type = models.ReferenceTypeInput
		ref.Path = segments[1:]
	default:
		if models.SystemVariables[segments[0]] {
			ref.Type = models.ReferenceTypeSystem
			ref.Path = segments[1:]
		} else {
			ref.Type = models.ReferenceTypeVariable
			ref.Path = segments[1:]
		}
	}

	return ref
}
