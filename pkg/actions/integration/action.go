// Package integration implements the integration action: it runs
// organization-authored connector code inside the JavaScript sandbox and
// maps the sandbox outcome onto a step result.
package integration

import (
	"context"
	"log/slog"
	"time"

	"github.com/cadenzahq/cadenza/pkg/blob"
	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/sandbox"
)

type Action struct {
	Code         string
	Operation    string
	Params       map[string]any
	AllowedHosts []string
	Timeout      time.Duration

	runner *sandbox.Sandbox
	blobs  blob.Store
}

func NewAction(config map[string]any, runner *sandbox.Sandbox, blobs blob.Store) (*Action, error) {
	code, _ := config["code"].(string)
	operation, _ := config["operation"].(string)
	params, _ := config["params"].(map[string]any)

	var hosts []string

	if raw, ok := config["allowedHosts"].([]any); ok {
		for _, host := range raw {
			if str, ok := host.(string); ok {
				hosts = append(hosts, str)
			}
		}
	}

	var timeout time.Duration
	if ms, ok := config["timeout"].(float64); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	return &Action{
		Code:         code,
		Operation:    operation,
		Params:       params,
		AllowedHosts: hosts,
		Timeout:      timeout,
		runner:       runner,
		blobs:        blobs,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger = logger.With("module", "integration_action", "operation", a.Operation)
	logger.InfoContext(ctx, "Executing integration connector")

	secrets := map[string]string{}
	if bag, ok := executionCtx.Variables["secrets"].(map[string]any); ok {
		for key, value := range bag {
			if str, ok := value.(string); ok {
				secrets[key] = str
			}
		}
	}

	outcome := a.runner.Execute(ctx, sandbox.Input{
		Code:         a.Code,
		Operation:    a.Operation,
		Params:       a.Params,
		Variables:    executionCtx.Variables,
		Secrets:      secrets,
		AllowedHosts: a.AllowedHosts,
		Timeout:      a.Timeout,
		Blobs:        a.blobs,
	})

	output := map[string]any{
		"result":   outcome.Result,
		"logs":     outcome.Logs,
		"duration": outcome.Duration.Milliseconds(),
	}

	if len(outcome.FileRefs) > 0 {
		files := make([]any, 0, len(outcome.FileRefs))
		for _, ref := range outcome.FileRefs {
			files = append(files, map[string]any{
				"id":          ref.ID,
				"name":        ref.Name,
				"contentType": ref.ContentType,
				"size":        ref.Size,
			})
		}

		output["files"] = files
	}

	if !outcome.Success {
		logger.WarnContext(ctx, "Integration connector failed", "error", outcome.Error)

		return &models.StepResult{
			Output:  output,
			Outcome: models.OutcomeFailure,
			Error:   outcome.Error,
		}, nil
	}

	return &models.StepResult{Output: output, Outcome: models.OutcomeSuccess}, nil
}
