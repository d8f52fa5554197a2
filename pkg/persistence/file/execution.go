package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/persistence"
)

// ExecutionRepository handles execution record file operations.
type ExecutionRepository struct {
	root string
}

func (er *ExecutionRepository) dir() string {
	return filepath.Join(er.root, "executions")
}

func (er *ExecutionRepository) path(id string) string {
	return filepath.Join(er.dir(), filepath.Base(id)+".json")
}

func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	data, err := os.ReadFile(er.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to read execution %s: %w", id, err)
	}

	var execution models.Execution
	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, fmt.Errorf("failed to decode execution %s: %w", id, err)
	}

	return &execution, nil
}

func (er *ExecutionRepository) Save(_ context.Context, execution *models.Execution) error {
	if err := os.MkdirAll(er.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	execution.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode execution %s: %w", execution.ID, err)
	}

	if err := os.WriteFile(er.path(execution.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write execution %s: %w", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) UpdateVariables(ctx context.Context, executionID, serialized string) error {
	execution, err := er.GetByID(ctx, executionID)
	if err != nil {
		return err
	}

	execution.Variables = serialized

	return er.Save(ctx, execution)
}
