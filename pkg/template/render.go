package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cadenzahq/cadenza/pkg/models"
)

// Render substitutes every {{...}} reference in value against the resolved
// variable bag. A string that is exactly one reference keeps the referenced
// value's native type; references embedded in longer strings are
// stringified. Maps and slices are rendered recursively into fresh values.
func Render(value any, vars map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return renderString(v, vars)
	case map[string]any:
		rendered := make(map[string]any, len(v))

		for key, item := range v {
			result, err := Render(item, vars)
			if err != nil {
				return nil, err
			}

			rendered[key] = result
		}

		return rendered, nil
	case []any:
		rendered := make([]any, 0, len(v))

		for _, item := range v {
			result, err := Render(item, vars)
			if err != nil {
				return nil, err
			}

			rendered = append(rendered, result)
		}

		return rendered, nil
	default:
		return value, nil
	}
}

func renderString(input string, vars map[string]any) (any, error) {
	matches := expressionPattern.FindAllStringSubmatchIndex(input, -1)
	if len(matches) == 0 {
		return input, nil
	}

	// Whole-string reference keeps the native type.
	if len(matches) == 1 && strings.TrimSpace(input) == input[matches[0][0]:matches[0][1]] {
		return resolveExpression(input[matches[0][2]:matches[0][3]], vars)
	}

	var builder strings.Builder

	last := 0

	for _, match := range matches {
		builder.WriteString(input[last:match[0]])

		resolved, err := resolveExpression(input[match[2]:match[3]], vars)
		if err != nil {
			return nil, err
		}

		builder.WriteString(stringify(resolved))

		last = match[1]
	}

	builder.WriteString(input[last:])

	return builder.String(), nil
}

func resolveExpression(expression string, vars map[string]any) (any, error) {
	ref := classify(expression, "{{"+expression+"}}")

	if ref.IsComplex() {
		return evalComplex(ref.FullExpression, vars)
	}

	var root any

	var path []string

	switch ref.Type {
	case models.ReferenceTypeStep:
		steps, _ := vars["steps"].(map[string]any)
		root = steps[ref.StepSlug]
		path = ref.Path
	case models.ReferenceTypeLoop:
		root = vars["loop"]
		path = ref.Path
	case models.ReferenceTypeSecret:
		root = vars["secrets"]
		path = ref.Path
	case models.ReferenceTypeInput:
		root = vars["input"]
		path = ref.Path
	default:
		segments := strings.Split(ref.FullExpression, ".")
		root = vars[segments[0]]
		path = ref.Path
	}

	value, ok := lookupPath(root, path)
	if !ok {
		return nil, fmt.Errorf("unresolved variable reference %q", ref.FullExpression)
	}

	return value, nil
}

// lookupPath walks a dotted path through nested maps and slices. Numeric
// segments index into slices.
func lookupPath(root any, path []string) (any, bool) {
	current := root

	for _, segment := range path {
		switch v := current.(type) {
		case map[string]any:
			value, ok := v[segment]
			if !ok {
				return nil, false
			}

			current = value
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(v) {
				return nil, false
			}

			current = v[index]
		default:
			return nil, false
		}
	}

	if current == nil && root == nil {
		return nil, false
	}

	return current, true
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	}
}
