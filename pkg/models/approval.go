package models

import "time"

// ApprovalStatus represents the review state of a human approval request.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// ApprovalRequest is a human approval gate created by an action (for
// example a conversation created with a draft message). An execution that
// produced one suspends until the request is resolved.
type ApprovalRequest struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	ExecutionID    string         `json:"execution_id"`
	StepSlug       string         `json:"step_slug"`
	EntityType     string         `json:"entity_type"`
	EntityID       string         `json:"entity_id"`
	DraftContent   string         `json:"draft_content,omitempty"`
	Status         ApprovalStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
}
