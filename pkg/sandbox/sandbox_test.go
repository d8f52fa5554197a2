package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cadenzahq/cadenza/pkg/blob/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport serves canned responses and counts real executions.
type fakeTransport struct {
	calls   atomic.Int32
	handler func(req *http.Request) (*http.Response, error)
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls.Add(1)

	return f.handler(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestSandbox() *Sandbox {
	return New(slog.Default())
}

func TestIsHostAllowed(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		allowed  []string
		want     bool
	}{
		{"empty list disables enforcement", "anything.example.com", nil, true},
		{"exact match", "api.example.com", []string{"api.example.com"}, true},
		{"subdomain of allowed host", "v2.api.example.com", []string{"api.example.com"}, true},
		{"suffix without dot boundary", "evilexample.io", []string{"example.io"}, false},
		{"unrelated host", "other.com", []string{"example.io"}, false},
		{"case insensitive", "API.Example.COM", []string{"api.example.com"}, true},
		{"whitespace in allowlist entry", "api.example.com", []string{"  api.example.com  "}, true},
		{"empty allowlist entry ignored", "api.example.com", []string{""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHostAllowed(tt.hostname, tt.allowed))
		})
	}
}

func TestExecute_SimpleConnector(t *testing.T) {
	code := `
		const connector = {
			execute: function(ctx) {
				ctx.log("starting", ctx.operation);
				return { greeting: "hello " + ctx.params.name };
			}
		};`

	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:      code,
		Operation: "greet",
		Params:    map[string]any{"name": "world"},
	})

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, map[string]any{"greeting": "hello world"}, outcome.Result)
	assert.Equal(t, []string{`starting greet`}, outcome.Logs)
}

func TestExecute_DependentCallChainRunsEachRequestOnce(t *testing.T) {
	transport := &fakeTransport{handler: func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/user":
			return jsonResponse(200, `{"id": "u-1"}`), nil
		case "/orders":
			require.Equal(t, "u-1", req.URL.Query().Get("user"))

			return jsonResponse(200, `{"total": 3}`), nil
		default:
			return jsonResponse(404, `{}`), nil
		}
	}}

	code := `
		const connector = {
			execute: function(ctx) {
				const user = ctx.http.get("https://api.example.com/user").json();
				const orders = ctx.http.get("https://api.example.com/orders?user=" + user.id).json();
				return { user: user.id, total: orders.total };
			}
		};`

	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:       code,
		Operation:  "sync",
		HTTPClient: &http.Client{Transport: transport},
	})

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, map[string]any{"user": "u-1", "total": int64(3)}, outcome.Result)
	// Two dependent calls resolve in three passes but each request runs
	// exactly once.
	assert.Equal(t, int32(2), transport.calls.Load())
}

func TestExecute_PendingAbortSurvivesTryCatch(t *testing.T) {
	transport := &fakeTransport{handler: func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"ok": true}`), nil
	}}

	code := `
		const connector = {
			execute: function(ctx) {
				try {
					return ctx.http.get("https://api.example.com/data").json();
				} catch (e) {
					return { caught: String(e) };
				}
			}
		};`

	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:       code,
		Operation:  "fetch",
		HTTPClient: &http.Client{Transport: transport},
	})

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, map[string]any{"ok": true}, outcome.Result)
}

func TestExecute_IOErrorsAreCatchable(t *testing.T) {
	code := `
		const connector = {
			execute: function(ctx) {
				try {
					ctx.http.get("https://forbidden.example.net/x");
					return { reached: true };
				} catch (e) {
					return { caught: true, message: String(e) };
				}
			}
		};`

	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:         code,
		Operation:    "fetch",
		AllowedHosts: []string{"example.com"},
	})

	require.True(t, outcome.Success, outcome.Error)

	result, ok := outcome.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, result["caught"])
	assert.Contains(t, result["message"], "not in the allowed hosts list")
}

func TestExecute_RedirectIsBlocked(t *testing.T) {
	transport := &fakeTransport{handler: func(*http.Request) (*http.Response, error) {
		resp := jsonResponse(302, ``)
		resp.Header.Set("Location", "https://elsewhere.example.net/")

		return resp, nil
	}}

	code := `
		const connector = {
			execute: function(ctx) {
				return ctx.http.get("https://api.example.com/moved").json();
			}
		};`

	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:       code,
		Operation:  "fetch",
		HTTPClient: &http.Client{Transport: transport},
	})

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "redirects are blocked")
	assert.Contains(t, outcome.Error, "elsewhere.example.net")
}

func TestExecute_TestConnectionSentinel(t *testing.T) {
	code := `
		const connector = {
			execute: function(ctx) { return "execute"; },
			testConnection: function(ctx) { return { connected: true }; }
		};`

	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:      code,
		Operation: TestConnectionOperation,
	})

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, map[string]any{"connected": true}, outcome.Result)
}

func TestExecute_LegacyBareFunction(t *testing.T) {
	code := `function syncContacts(ctx) { return { mode: "legacy", op: ctx.operation }; }`

	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:      code,
		Operation: "syncContacts",
	})

	require.True(t, outcome.Success, outcome.Error)
	assert.Equal(t, map[string]any{"mode": "legacy", "op": "syncContacts"}, outcome.Result)
}

func TestExecute_ConnectorThrownErrorSurfaces(t *testing.T) {
	code := `
		const connector = {
			execute: function(ctx) { throw new Error("bad credentials"); }
		};`

	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:      code,
		Operation: "op",
	})

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "connector error")
	assert.Contains(t, outcome.Error, "bad credentials")
}

func TestExecute_CompileErrorSurfaces(t *testing.T) {
	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:      `const connector = {`,
		Operation: "op",
	})

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "failed to compile")
}

func TestExecute_MissingConnectorObject(t *testing.T) {
	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:      `const somethingElse = 1;`,
		Operation: "op",
	})

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "does not define a 'connector' object")
}

func TestExecute_SecretsAndHelpers(t *testing.T) {
	code := `
		const connector = {
			execute: function(ctx) {
				return {
					token: ctx.secrets.get("token"),
					missing: ctx.secrets.get("absent"),
					encoded: ctx.base64Encode("hi"),
					decoded: ctx.base64Decode("aGk="),
					region: ctx.variables.region
				};
			}
		};`

	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:      code,
		Operation: "op",
		Secrets:   map[string]string{"token": "tk-1"},
		Variables: map[string]any{"region": "eu"},
	})

	require.True(t, outcome.Success, outcome.Error)

	result, ok := outcome.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "tk-1", result["token"])
	assert.Nil(t, result["missing"])
	assert.Equal(t, "aGk=", result["encoded"])
	assert.Equal(t, "hi", result["decoded"])
	assert.Equal(t, "eu", result["region"])
}

func TestExecute_FileStoreProducesReference(t *testing.T) {
	store := memory.NewStore()

	code := `
		const connector = {
			execute: function(ctx) {
				const ref = ctx.files.store(ctx.base64Encode("report data"), "text/plain", "report.txt");
				return { id: ref.id, name: ref.name, size: ref.size };
			}
		};`

	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:      code,
		Operation: "op",
		Blobs:     store,
	})

	require.True(t, outcome.Success, outcome.Error)
	require.Len(t, outcome.FileRefs, 1)

	ref := outcome.FileRefs[0]
	assert.Equal(t, "report.txt", ref.Name)
	assert.Equal(t, "text/plain", ref.ContentType)
	assert.Equal(t, len("report data"), ref.Size)

	stored, err := store.Get(context.Background(), ref.ID)
	require.NoError(t, err)
	assert.Equal(t, "report data", string(stored))
}

func TestExecute_PassBudgetExhaustion(t *testing.T) {
	transport := &fakeTransport{handler: func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"n": 1}`), nil
	}}

	// Every pass discovers one more dependent request; the chain is longer
	// than the pass budget.
	var calls strings.Builder
	for i := 0; i < MaxPasses+2; i++ {
		calls.WriteString(fmt.Sprintf(`ctx.http.get("https://api.example.com/%d").json();`, i))
	}

	code := `
		const connector = {
			execute: function(ctx) { ` + calls.String() + ` return { done: true }; }
		};`

	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:       code,
		Operation:  "op",
		HTTPClient: &http.Client{Transport: transport},
	})

	require.True(t, outcome.Success)
	assert.Nil(t, outcome.Result)
	require.NotEmpty(t, outcome.Logs)
	assert.Contains(t, outcome.Logs[len(outcome.Logs)-1], "pass budget")
}

func TestExecute_TimeoutProducesTimeoutError(t *testing.T) {
	transport := &fakeTransport{handler: func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()

		return nil, req.Context().Err()
	}}

	code := `
		const connector = {
			execute: function(ctx) {
				return ctx.http.get("https://api.example.com/slow").json();
			}
		};`

	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:       code,
		Operation:  "op",
		Timeout:    20 * time.Millisecond,
		HTTPClient: &http.Client{Transport: transport},
	})

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "timed out after")
}

func TestExecute_DeterministicReplayKeepsRequestIdentity(t *testing.T) {
	var bodies []string

	transport := &fakeTransport{handler: func(req *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(req.Body)
		bodies = append(bodies, string(raw))

		return jsonResponse(200, `{"ok": true}`), nil
	}}

	code := `
		const connector = {
			execute: function(ctx) {
				const a = ctx.http.post("https://api.example.com/a", { body: { seq: 1 } }).json();
				const b = ctx.http.post("https://api.example.com/b", { body: { seq: 2 } }).json();
				return [a.ok, b.ok];
			}
		};`

	outcome := newTestSandbox().Execute(context.Background(), Input{
		Code:       code,
		Operation:  "op",
		HTTPClient: &http.Client{Transport: transport},
	})

	require.True(t, outcome.Success, outcome.Error)
	require.Len(t, bodies, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(bodies[1]), &second))
	assert.Equal(t, float64(1), first["seq"])
	assert.Equal(t, float64(2), second["seq"])
}
