package conversation

import (
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

type ActionFactory struct {
	approvals persistence.ApprovalRepository
}

func NewActionFactory(approvals persistence.ApprovalRepository) *ActionFactory {
	return &ActionFactory{approvals: approvals}
}

func (f *ActionFactory) ID() string {
	return "conversation"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.approvals)
}

func (f *ActionFactory) Component() *models.RegisteredComponent {
	return &models.RegisteredComponent{
		Type:        "conversation",
		Name:        "Conversation",
		Description: "Creates or lists conversations. Drafts open a human approval gate.",
		Schema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"operation": {
					Type:        "string",
					Description: "Conversation operation to perform.",
					Default:     OperationCreate,
					Enum:        []any{OperationCreate, OperationList},
				},
				"subject": {
					Type:        "string",
					Description: "Conversation subject line.",
				},
				"participants": {
					Type:        "array",
					Description: "Participant identifiers.",
					Items:       &models.Property{Type: "string"},
				},
				"draftMessage": {
					Type:        "string",
					Description: "Initial message content. When set, the message is held as a draft pending human approval and the execution suspends.",
				},
			},
		},
	}
}
