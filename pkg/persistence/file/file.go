// Package file provides file-based persistence for workflows, executions
// and approval requests. Each document is one JSON file under the root
// directory.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/cadenzahq/cadenza/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root          string
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	approvalRepo  *ApprovalRepository
}

// NewPersistence creates a new instance rooted at the given directory. A
// file:// prefix is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:          cleanRoot,
		workflowRepo:  &WorkflowRepository{root: cleanRoot},
		executionRepo: &ExecutionRepository{root: cleanRoot},
		approvalRepo:  &ApprovalRepository{root: cleanRoot},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) ApprovalRepository() persistence.ApprovalRepository {
	return fp.approvalRepo
}
