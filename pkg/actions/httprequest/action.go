// Package httprequest implements the HTTP request action. Parameters
// arrive fully rendered; the action performs the call with optional
// retry on transport errors and 5xx responses.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cadenzahq/cadenza/pkg/models"
)

const defaultTimeout = 30 * time.Second

var (
	ErrURLMissing    = errors.New("missing or invalid 'url' in configuration")
	ErrServerError   = errors.New("server error during HTTP request")
	ErrMethodInvalid = errors.New("invalid HTTP method")
)

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

type Action struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
	Timeout time.Duration
	Retry   RetryConfig

	client *http.Client
}

func NewAction(config map[string]any) (*Action, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, ErrURLMissing
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	headers := make(map[string]string)

	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for key, value := range headersConfig {
			if str, ok := value.(string); ok {
				headers[key] = str
			}
		}
	}

	body, err := bodyString(config["body"])
	if err != nil {
		return nil, err
	}

	timeout := defaultTimeout
	if ms, ok := config["timeout"].(float64); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	retry := RetryConfig{Attempts: 1}
	if retryConfig, ok := config["retry"].(map[string]any); ok {
		if attempts, ok := retryConfig["attempts"].(float64); ok && attempts >= 1 {
			retry.Attempts = int(attempts)
		}

		if delay, ok := retryConfig["delay"].(float64); ok && delay > 0 {
			retry.Delay = time.Duration(delay) * time.Millisecond
		}
	}

	return &Action{
		Method:  strings.ToUpper(method),
		URL:     url,
		Headers: headers,
		Body:    body,
		Timeout: timeout,
		Retry:   retry,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func bodyString(raw any) (string, error) {
	switch body := raw.(type) {
	case nil:
		return "", nil
	case string:
		return body, nil
	default:
		serialized, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("failed to serialize request body: %w", err)
		}

		return string(serialized), nil
	}
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepResult, error) {
	logger = logger.With("module", "httprequest_action")
	logger.InfoContext(ctx, "Executing HTTP request", "method", a.Method, "url", a.URL)

	var (
		resp    *http.Response
		lastErr error
	)

	for attempt := 1; attempt <= a.Retry.Attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, "Retrying HTTP request", "attempt", attempt, "max_attempts", a.Retry.Attempts)
			time.Sleep(a.Retry.Delay)
		}

		req, err := http.NewRequestWithContext(ctx, a.Method, a.URL, strings.NewReader(a.Body))
		if err != nil {
			return nil, fmt.Errorf("failed to create http request: %w", err)
		}

		for key, value := range a.Headers {
			req.Header.Set(key, value)
		}

		resp, err = a.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request failed: %w", err)
			resp = nil

			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError && attempt < a.Retry.Attempts {
			if err := resp.Body.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close response body", "error", err)
			}

			lastErr = fmt.Errorf("server error (status %d): %w", resp.StatusCode, ErrServerError)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return nil, fmt.Errorf("all retry attempts failed, last error: %w", lastErr)
	}

	return a.processResponse(ctx, resp, logger)
}

func (a *Action) processResponse(ctx context.Context, resp *http.Response, logger *slog.Logger) (*models.StepResult, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		body = string(raw)
	}

	headers := make(map[string]any, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	logger.InfoContext(ctx, "HTTP request completed", "status_code", resp.StatusCode, "body_length", len(raw))

	outcome := models.OutcomeSuccess
	errMessage := ""

	if resp.StatusCode >= http.StatusBadRequest {
		outcome = models.OutcomeFailure
		errMessage = fmt.Sprintf("http request returned status %d", resp.StatusCode)
	}

	return &models.StepResult{
		Output: map[string]any{
			"status_code": resp.StatusCode,
			"body":        body,
			"headers":     headers,
		},
		Outcome: outcome,
		Error:   errMessage,
	}, nil
}
