package sandbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cadenzahq/cadenza/pkg/blob"
)

// opResult is the cached outcome of one pending operation, keyed by its
// request index. Either err or the payload fields are set; on replay a
// cached error re-throws at the same call site, preserving the
// connector-visible error semantics.
type opResult struct {
	err error

	// http
	status  int
	headers map[string]string
	body    string // text, or base64 when the request asked for it

	// files
	ref *FileReference
}

type httpRequestSpec struct {
	method       string
	url          string
	headers      map[string]string
	body         string
	binaryBody   string // base64; suppresses the default JSON content type
	responseType string // "" or "base64"
}

// pendingOp is created when sandboxed code calls an I/O primitive without
// a cached result. It is consumed exactly once per pass by the host loop.
type pendingOp struct {
	kind string // "http" | "download" | "store"
	seq  int

	httpSpec *httpRequestSpec

	downloadURL string

	storeData        string // base64
	storeContentType string
	storeName        string
}

// session holds per-invocation state. Request counters reset at the start
// of every pass; result caches persist across passes, which is what makes
// replays look synchronous: deterministic call order means deterministic
// request indices, so a previously pending call hits its cache.
type session struct {
	client       *http.Client
	blobs        blob.Store
	allowedHosts []string
	secrets      map[string]string
	deadline     time.Time

	httpSeq     int
	fileSeq     int
	httpResults map[int]*opResult
	fileResults map[int]*opResult
	pending     []*pendingOp

	passLogs []string
	fileRefs []FileReference

	httpExecutions int // Total real HTTP calls performed, for observability
}

func newSession(input Input, deadline time.Time) *session {
	client := input.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	// Never auto-follow redirects: a 3xx must become a hard error naming
	// the target instead of silently escaping the host allowlist.
	manual := *client
	manual.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &session{
		client:       &manual,
		blobs:        input.Blobs,
		allowedHosts: input.AllowedHosts,
		secrets:      input.Secrets,
		deadline:     deadline,
		httpResults:  make(map[int]*opResult),
		fileResults:  make(map[int]*opResult),
	}
}

func (sess *session) beginPass() {
	sess.httpSeq = 0
	sess.fileSeq = 0
	sess.pending = nil
	sess.passLogs = nil
}

// flush sequentially executes every operation discovered during the pass.
// Operations queued in the same pass are independent of each other, so one
// failure is cached for its own call site and does not abort siblings. The
// wall-clock deadline is checked before each operation.
func (sess *session) flush(ctx context.Context) error {
	ops := sess.pending
	sess.pending = nil

	for _, op := range ops {
		if time.Now().After(sess.deadline) {
			return fmt.Errorf("deadline exceeded before executing pending %s operation", op.kind)
		}

		switch op.kind {
		case "http":
			sess.httpResults[op.seq] = sess.doHTTP(ctx, op.httpSpec)
			sess.httpExecutions++
		case "download":
			sess.fileResults[op.seq] = sess.doDownload(ctx, op.downloadURL)
		case "store":
			sess.fileResults[op.seq] = sess.doStore(ctx, op)
		}
	}

	return nil
}

// doHTTP performs one real HTTP request under the sandbox security policy:
// allowlisted hosts only and no redirect following.
func (sess *session) doHTTP(ctx context.Context, spec *httpRequestSpec) *opResult {
	parsed, err := url.Parse(spec.url)
	if err != nil {
		return &opResult{err: fmt.Errorf("invalid URL %q: %w", spec.url, err)}
	}

	if !IsHostAllowed(parsed.Hostname(), sess.allowedHosts) {
		return &opResult{err: fmt.Errorf("host %q is not in the allowed hosts list", parsed.Hostname())}
	}

	var bodyReader io.Reader

	defaultContentType := ""

	switch {
	case spec.binaryBody != "":
		raw, err := base64.StdEncoding.DecodeString(spec.binaryBody)
		if err != nil {
			return &opResult{err: fmt.Errorf("invalid base64 binaryBody: %w", err)}
		}

		bodyReader = strings.NewReader(string(raw))
	case spec.body != "":
		bodyReader = strings.NewReader(spec.body)
		defaultContentType = "application/json"
	}

	reqCtx, cancel := context.WithDeadline(ctx, sess.deadline)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, spec.method, spec.url, bodyReader)
	if err != nil {
		return &opResult{err: fmt.Errorf("failed to create request: %w", err)}
	}

	if defaultContentType != "" {
		req.Header.Set("Content-Type", defaultContentType)
	}

	for key, value := range spec.headers {
		req.Header.Set(key, value)
	}

	resp, err := sess.client.Do(req)
	if err != nil {
		return &opResult{err: fmt.Errorf("request to %s failed: %w", spec.url, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &opResult{err: fmt.Errorf("failed to read response from %s: %w", spec.url, err)}
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return &opResult{err: fmt.Errorf("request to %s was redirected to %q; redirects are blocked, allowlist the target host explicitly",
			spec.url, resp.Header.Get("Location"))}
	}

	body := string(raw)
	if spec.responseType == "base64" {
		body = base64.StdEncoding.EncodeToString(raw)
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return &opResult{status: resp.StatusCode, headers: headers, body: body}
}

func (sess *session) doDownload(ctx context.Context, downloadURL string) *opResult {
	if sess.blobs == nil {
		return &opResult{err: fmt.Errorf("no storage provider configured for file download")}
	}

	res := sess.doHTTP(ctx, &httpRequestSpec{method: http.MethodGet, url: downloadURL, responseType: "base64"})
	if res.err != nil {
		return res
	}

	raw, err := base64.StdEncoding.DecodeString(res.body)
	if err != nil {
		return &opResult{err: fmt.Errorf("failed to decode downloaded payload: %w", err)}
	}

	id, err := sess.blobs.Put(ctx, raw)
	if err != nil {
		return &opResult{err: fmt.Errorf("failed to store downloaded file: %w", err)}
	}

	ref := &FileReference{
		ID:          id,
		Name:        downloadedName(downloadURL),
		ContentType: res.headers["Content-Type"],
		Size:        len(raw),
	}
	sess.fileRefs = append(sess.fileRefs, *ref)

	return &opResult{ref: ref}
}

func (sess *session) doStore(ctx context.Context, op *pendingOp) *opResult {
	if sess.blobs == nil {
		return &opResult{err: fmt.Errorf("no storage provider configured for file store")}
	}

	raw, err := base64.StdEncoding.DecodeString(op.storeData)
	if err != nil {
		return &opResult{err: fmt.Errorf("invalid base64 file data: %w", err)}
	}

	id, err := sess.blobs.Put(ctx, raw)
	if err != nil {
		return &opResult{err: fmt.Errorf("failed to store file: %w", err)}
	}

	ref := &FileReference{
		ID:          id,
		Name:        op.storeName,
		ContentType: op.storeContentType,
		Size:        len(raw),
	}
	sess.fileRefs = append(sess.fileRefs, *ref)

	return &opResult{ref: ref}
}

func downloadedName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")

	return segments[len(segments)-1]
}

// IsHostAllowed reports whether a hostname matches the allowlist: exact
// match or dot-anchored suffix match, so subdomains of an allowed host
// pass but sibling domains with a shared suffix do not. An empty list
// disables enforcement entirely (trusted-integration mode).
func IsHostAllowed(hostname string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	hostname = strings.ToLower(hostname)

	for _, host := range allowed {
		host = strings.ToLower(strings.TrimSpace(host))
		if host == "" {
			continue
		}

		if hostname == host || strings.HasSuffix(hostname, "."+host) {
			return true
		}
	}

	return false
}

// marshalBody serializes a structured request body supplied by connector
// code.
func marshalBody(value any) (string, error) {
	if value == nil {
		return "", nil
	}

	if s, ok := value.(string); ok {
		return s, nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to serialize request body: %w", err)
	}

	return string(encoded), nil
}
