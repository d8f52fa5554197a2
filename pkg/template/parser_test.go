package template

import (
	"testing"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReferences_Classification(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		refType  models.ReferenceType
		stepSlug string
		path     []string
	}{
		{
			name:     "step reference with path",
			input:    "{{steps.fetch_user.output.body.name}}",
			refType:  models.ReferenceTypeStep,
			stepSlug: "fetch_user",
			path:     []string{"output", "body", "name"},
		},
		{
			name:    "loop reference",
			input:   "{{loop.item.id}}",
			refType: models.ReferenceTypeLoop,
			path:    []string{"item", "id"},
		},
		{
			name:    "secret reference",
			input:   "{{secrets.api_key}}",
			refType: models.ReferenceTypeSecret,
			path:    []string{"api_key"},
		},
		{
			name:    "input reference",
			input:   "{{input.customer.email}}",
			refType: models.ReferenceTypeInput,
			path:    []string{"customer", "email"},
		},
		{
			name:    "system variable",
			input:   "{{executionId}}",
			refType: models.ReferenceTypeSystem,
			path:    []string{},
		},
		{
			name:    "workflow variable",
			input:   "{{region}}",
			refType: models.ReferenceTypeVariable,
			path:    []string{},
		},
		{
			name:     "complex expression with step prefix",
			input:    "{{steps.count.output.total > 10 ? 'big' : 'small'}}",
			refType:  models.ReferenceTypeStep,
			stepSlug: "count",
			path:     []string{models.ComplexExpressionPath},
		},
		{
			name:    "complex expression without step prefix",
			input:   "{{input.a + input.b}}",
			refType: models.ReferenceTypeComplex,
			path:    []string{models.ComplexExpressionPath},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := ParseReferences(tt.input)
			require.Len(t, refs, 1)

			ref := refs[0]
			assert.Equal(t, tt.refType, ref.Type)
			assert.Equal(t, tt.stepSlug, ref.StepSlug)
			assert.Equal(t, tt.path, ref.Path)
			assert.Equal(t, tt.input, ref.OriginalTemplate)
		})
	}
}

func TestParseReferences_WalksNestedStructures(t *testing.T) {
	config := map[string]any{
		"url": "https://api.example.com/{{steps.auth.output.tenant}}",
		"headers": map[string]any{
			"Authorization": "Bearer {{secrets.token}}",
		},
		"tags":  []any{"{{input.tag}}", "static"},
		"count": 3,
	}

	refs := ParseReferences(config)
	require.Len(t, refs, 3)

	types := map[models.ReferenceType]int{}
	for _, ref := range refs {
		types[ref.Type]++
	}

	assert.Equal(t, 1, types[models.ReferenceTypeStep])
	assert.Equal(t, 1, types[models.ReferenceTypeSecret])
	assert.Equal(t, 1, types[models.ReferenceTypeInput])
}

func TestParseReferences_IgnoresPlainStrings(t *testing.T) {
	assert.Empty(t, ParseReferences("no templates here"))
	assert.Empty(t, ParseReferences(map[string]any{"a": 1, "b": true}))
}

func TestParseReferences_MultipleInOneString(t *testing.T) {
	refs := ParseReferences("{{steps.a.output.x}} and {{steps.b.output.y}}")
	require.Len(t, refs, 2)
	assert.Equal(t, "a", refs[0].StepSlug)
	assert.Equal(t, "b", refs[1].StepSlug)
}

func TestParseReferences_IsIdempotent(t *testing.T) {
	input := "{{steps.fetch.output.body}} / {{input.x + 1}}"

	first := ParseReferences(input)
	second := ParseReferences(input)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, *first[i], *second[i])
	}
}
