package models

// OutputSchema declares the runtime shape of a step's or action's output.
// It exists purely for advisory reference validation: the schema tables
// are hand-curated and partial, and they are never used for runtime
// coercion.
type OutputSchema struct {
	IsArray     bool                    `json:"is_array,omitempty"`
	Nullable    bool                    `json:"nullable,omitempty"`
	Fields      map[string]*FieldSchema `json:"fields,omitempty"`
	Items       *OutputSchema           `json:"items,omitempty"`
	Description string                  `json:"description,omitempty"`
}

// FieldSchema describes one named field inside an output schema.
type FieldSchema struct {
	Type        string                  `json:"type"`
	IsArray     bool                    `json:"is_array,omitempty"`
	Nullable    bool                    `json:"nullable,omitempty"`
	Fields      map[string]*FieldSchema `json:"fields,omitempty"`
	Description string                  `json:"description,omitempty"`
}

// Field resolves a named field, or nil when the schema does not declare it.
func (s *OutputSchema) Field(name string) *FieldSchema {
	if s == nil || s.Fields == nil {
		return nil
	}

	return s.Fields[name]
}
