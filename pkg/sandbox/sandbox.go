// Package sandbox executes untrusted third-party connector code inside an
// isolated interpreter. Connectors see a synchronous http/files/secrets
// API; the host reconciles that with real asynchronous I/O through a
// multi-pass cooperative-resumption protocol: a pass aborts at the first
// call that would block, the host performs the queued operations, and the
// connector is replayed with cached results until it completes or the pass
// budget runs out.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/cadenzahq/cadenza/pkg/blob"
	"github.com/dop251/goja"
)

const (
	// MaxPasses bounds replay for runaway connectors with unbounded
	// dependent call chains. Exhaustion returns the last computed result
	// with a warning instead of failing.
	MaxPasses = 10

	// DefaultTimeout is the wall-clock budget for one invocation.
	DefaultTimeout = 30 * time.Second

	// TestConnectionOperation is the reserved operation sentinel that
	// invokes the connector's testConnection method instead of execute.
	TestConnectionOperation = "__test_connection__"
)

// FileReference points at a blob produced by a connector file operation.
type FileReference struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size"`
}

// Input describes one connector invocation.
type Input struct {
	Code         string
	Operation    string
	Params       map[string]any
	Variables    map[string]any
	Secrets      map[string]string
	AllowedHosts []string
	Timeout      time.Duration
	Blobs        blob.Store
	HTTPClient   *http.Client // Optional; defaults to a fresh client
}

// Outcome is the result of one connector invocation. Connector errors are
// always surfaced here, never thrown across this boundary: callers must
// check Success.
type Outcome struct {
	Success  bool            `json:"success"`
	Result   any             `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Logs     []string        `json:"logs"`
	Duration time.Duration   `json:"duration"`
	FileRefs []FileReference `json:"file_references,omitempty"`
}

// errPendingOperation aborts the current pass at the point where real I/O
// is needed. It is swallowed exactly once per pass by the run loop and
// never propagates to the caller.
var errPendingOperation = errors.New("pending operation")

// pendingSignal is the panic payload carrying the abort. It is not a goja
// value on purpose: connector try/catch cannot intercept it.
type pendingSignal struct{}

type Sandbox struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Sandbox {
	return &Sandbox{logger: logger.With("module", "sandbox")}
}

// Execute runs the connector operation to completion under the multi-pass
// protocol.
func (s *Sandbox) Execute(ctx context.Context, input Input) *Outcome {
	start := time.Now()

	timeout := input.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	sess := newSession(input, start.Add(timeout))

	program, err := compileConnector(input.Code, input.Operation)
	if err != nil {
		return &Outcome{
			Success:  false,
			Error:    fmt.Sprintf("connector code failed to compile: %v", err),
			Logs:     []string{},
			Duration: time.Since(start),
		}
	}

	for pass := 0; pass < MaxPasses; pass++ {
		if time.Now().After(sess.deadline) {
			return s.timeoutOutcome(sess, timeout, start)
		}

		sess.beginPass()

		result, err := s.runPass(input, sess, program)
		if err == nil {
			return &Outcome{
				Success:  true,
				Result:   result,
				Logs:     sess.passLogs,
				Duration: time.Since(start),
				FileRefs: sess.fileRefs,
			}
		}

		if errors.Is(err, errPendingOperation) {
			if flushErr := sess.flush(ctx); flushErr != nil {
				return s.timeoutOutcome(sess, timeout, start)
			}

			continue
		}

		return &Outcome{
			Success:  false,
			Error:    err.Error(),
			Logs:     sess.passLogs,
			Duration: time.Since(start),
			FileRefs: sess.fileRefs,
		}
	}

	// Best-effort cutoff: return what we have rather than failing the
	// whole invocation.
	s.logger.Warn("connector exhausted pass budget with operations still pending",
		"operation", input.Operation,
		"max_passes", MaxPasses)

	return &Outcome{
		Success:  true,
		Result:   nil,
		Logs:     append(sess.passLogs, fmt.Sprintf("warning: pass budget of %d exhausted with operations still pending", MaxPasses)),
		Duration: time.Since(start),
		FileRefs: sess.fileRefs,
	}
}

// runPass performs one full synchronous invocation of the connector
// function. The pending signal unwinds as a Go panic and is converted to
// errPendingOperation; every other connector error is returned as-is.
func (s *Sandbox) runPass(input Input, sess *session, program *goja.Program) (result any, err error) {
	vm := goja.New()

	// VM-level runtime budget, independent of the I/O deadline checks.
	watchdog := time.AfterFunc(time.Until(sess.deadline), func() {
		vm.Interrupt("connector execution budget exceeded")
	})
	defer watchdog.Stop()

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*pendingSignal); ok {
				err = errPendingOperation

				return
			}

			panic(r)
		}
	}()

	ctxObj, err := buildContext(vm, input, sess)
	if err != nil {
		return nil, fmt.Errorf("failed to build connector context: %w", err)
	}

	connectorValue, err := vm.RunProgram(program)
	if err != nil {
		return nil, connectorError(err)
	}

	fn, err := resolveEntrypoint(vm, connectorValue, input.Operation)
	if err != nil {
		return nil, err
	}

	value, err := fn(goja.Undefined(), ctxObj)
	if err != nil {
		return nil, connectorError(err)
	}

	return value.Export(), nil
}

func (s *Sandbox) timeoutOutcome(sess *session, timeout time.Duration, start time.Time) *Outcome {
	return &Outcome{
		Success:  false,
		Error:    fmt.Sprintf("integration execution timed out after %dms", timeout.Milliseconds()),
		Logs:     sess.passLogs,
		Duration: time.Since(start),
		FileRefs: sess.fileRefs,
	}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// compileConnector wraps the connector source so the program evaluates to
// the connector object regardless of how it was declared (const/let/var),
// with a legacy fallback to a bare function named exactly the operation.
func compileConnector(code, operation string) (*goja.Program, error) {
	fallback := ""
	if operation != TestConnectionOperation && identifierPattern.MatchString(operation) {
		fallback = fmt.Sprintf("if (typeof %s === 'function') return %s;", operation, operation)
	}

	source := code + "\n;(function() {" +
		" if (typeof connector !== 'undefined') return connector;" +
		" " + fallback +
		" return undefined; })()"

	return goja.Compile("connector.js", source, false)
}

// resolveEntrypoint picks the connector function for the operation:
// connector.execute, connector.testConnection for the reserved sentinel,
// or the legacy bare function.
func resolveEntrypoint(vm *goja.Runtime, value goja.Value, operation string) (goja.Callable, error) {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, errors.New("connector code does not define a 'connector' object")
	}

	// Legacy: the wrapped program returned the bare operation function.
	if fn, ok := goja.AssertFunction(value); ok {
		return fn, nil
	}

	method := "execute"
	if operation == TestConnectionOperation {
		method = "testConnection"
	}

	obj := value.ToObject(vm)

	fn, ok := goja.AssertFunction(obj.Get(method))
	if !ok {
		return nil, fmt.Errorf("connector does not define a %s function", method)
	}

	return fn, nil
}

// connectorError normalizes goja errors into messages that keep the
// connector's own thrown value visible.
func connectorError(err error) error {
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return fmt.Errorf("connector error: %s", exception.Value().String())
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return errors.New("connector execution budget exceeded")
	}

	return fmt.Errorf("connector error: %w", err)
}
