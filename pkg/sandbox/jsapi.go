package sandbox

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dop251/goja"
)

// buildContext constructs the minimal capability object handed to
// connector code. Nothing else is exposed: a fresh interpreter has no
// timers, no ambient I/O and no host globals.
func buildContext(vm *goja.Runtime, input Input, sess *session) (goja.Value, error) {
	ctxObj := vm.NewObject()

	httpObj := vm.NewObject()
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		if err := httpObj.Set(strings.ToLower(method), sess.httpMethod(vm, method)); err != nil {
			return nil, err
		}
	}

	filesObj := vm.NewObject()
	if err := filesObj.Set("download", sess.fileDownload(vm)); err != nil {
		return nil, err
	}

	if err := filesObj.Set("store", sess.fileStore(vm)); err != nil {
		return nil, err
	}

	secretsObj := vm.NewObject()
	if err := secretsObj.Set("get", func(call goja.FunctionCall) goja.Value {
		value, ok := sess.secrets[call.Argument(0).String()]
		if !ok {
			return goja.Null()
		}

		return vm.ToValue(value)
	}); err != nil {
		return nil, err
	}

	for name, value := range map[string]any{
		"http":      httpObj,
		"files":     filesObj,
		"secrets":   secretsObj,
		"operation": input.Operation,
		"params":    input.Params,
		"variables": input.Variables,
		"log": func(call goja.FunctionCall) goja.Value {
			parts := make([]string, 0, len(call.Arguments))
			for _, arg := range call.Arguments {
				parts = append(parts, jsString(arg))
			}

			sess.passLogs = append(sess.passLogs, strings.Join(parts, " "))

			return goja.Undefined()
		},
		"base64Encode": func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(base64.StdEncoding.EncodeToString([]byte(call.Argument(0).String())))
		},
		"base64Decode": func(call goja.FunctionCall) goja.Value {
			decoded, err := base64.StdEncoding.DecodeString(call.Argument(0).String())
			if err != nil {
				panic(vm.NewGoError(fmt.Errorf("invalid base64 input: %w", err)))
			}

			return vm.ToValue(string(decoded))
		},
	} {
		if err := ctxObj.Set(name, value); err != nil {
			return nil, err
		}
	}

	return ctxObj, nil
}

// httpMethod returns the native implementation behind one synchronous
// ctx.http.<verb> call site. The per-pass sequence number is the request
// identity: cache hit returns immediately, cache miss queues a pending
// operation and aborts the pass.
func (sess *session) httpMethod(vm *goja.Runtime, method string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		seq := sess.httpSeq
		sess.httpSeq++

		if res, ok := sess.httpResults[seq]; ok {
			if res.err != nil {
				panic(vm.NewGoError(res.err))
			}

			return httpResponseObject(vm, res)
		}

		spec := parseHTTPArgs(vm, method, call)

		sess.pending = append(sess.pending, &pendingOp{kind: "http", seq: seq, httpSpec: spec})

		panic(&pendingSignal{})
	}
}

func (sess *session) fileDownload(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		seq := sess.fileSeq
		sess.fileSeq++

		if res, ok := sess.fileResults[seq]; ok {
			if res.err != nil {
				panic(vm.NewGoError(res.err))
			}

			return fileReferenceObject(vm, res.ref)
		}

		sess.pending = append(sess.pending, &pendingOp{
			kind:        "download",
			seq:         seq,
			downloadURL: call.Argument(0).String(),
		})

		panic(&pendingSignal{})
	}
}

func (sess *session) fileStore(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		seq := sess.fileSeq
		sess.fileSeq++

		if res, ok := sess.fileResults[seq]; ok {
			if res.err != nil {
				panic(vm.NewGoError(res.err))
			}

			return fileReferenceObject(vm, res.ref)
		}

		op := &pendingOp{
			kind:             "store",
			seq:              seq,
			storeData:        call.Argument(0).String(),
			storeContentType: call.Argument(1).String(),
		}
		if name := call.Argument(2); !goja.IsUndefined(name) {
			op.storeName = name.String()
		}

		sess.pending = append(sess.pending, op)

		panic(&pendingSignal{})
	}
}

// parseHTTPArgs reads (url, options) from a connector http call. Options
// may carry headers, body (string or JSON-serializable object),
// binaryBody (base64) and responseType ("base64").
func parseHTTPArgs(vm *goja.Runtime, method string, call goja.FunctionCall) *httpRequestSpec {
	spec := &httpRequestSpec{
		method:  method,
		url:     call.Argument(0).String(),
		headers: map[string]string{},
	}

	opts := call.Argument(1)
	if goja.IsUndefined(opts) || goja.IsNull(opts) {
		return spec
	}

	optsObj := opts.ToObject(vm)

	if headers := optsObj.Get("headers"); headers != nil && !goja.IsUndefined(headers) && !goja.IsNull(headers) {
		if exported, ok := headers.Export().(map[string]any); ok {
			for key, value := range exported {
				spec.headers[key] = fmt.Sprintf("%v", value)
			}
		}
	}

	if body := optsObj.Get("body"); body != nil && !goja.IsUndefined(body) && !goja.IsNull(body) {
		serialized, err := marshalBody(body.Export())
		if err != nil {
			panic(vm.NewGoError(err))
		}

		spec.body = serialized
	}

	if binary := optsObj.Get("binaryBody"); binary != nil && !goja.IsUndefined(binary) && !goja.IsNull(binary) {
		spec.binaryBody = binary.String()
	}

	if responseType := optsObj.Get("responseType"); responseType != nil && !goja.IsUndefined(responseType) && !goja.IsNull(responseType) {
		spec.responseType = responseType.String()
	}

	return spec
}

// httpResponseObject builds the synchronous-looking response value:
// status, ok, headers, body plus json() and text() accessors.
func httpResponseObject(vm *goja.Runtime, res *opResult) goja.Value {
	obj := vm.NewObject()

	_ = obj.Set("status", res.status)
	_ = obj.Set("ok", res.status >= 200 && res.status < 300)
	_ = obj.Set("headers", res.headers)
	_ = obj.Set("body", res.body)
	_ = obj.Set("text", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(res.body)
	})
	_ = obj.Set("json", func(goja.FunctionCall) goja.Value {
		var parsed any
		if err := json.Unmarshal([]byte(res.body), &parsed); err != nil {
			panic(vm.NewGoError(fmt.Errorf("response body is not valid JSON: %w", err)))
		}

		return vm.ToValue(parsed)
	})

	return obj
}

func fileReferenceObject(vm *goja.Runtime, ref *FileReference) goja.Value {
	return vm.ToValue(map[string]any{
		"id":          ref.ID,
		"name":        ref.Name,
		"contentType": ref.ContentType,
		"size":        ref.Size,
	})
}

func jsString(value goja.Value) string {
	exported := value.Export()

	switch v := exported.(type) {
	case string:
		return v
	case nil:
		return "null"
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return value.String()
		}

		return string(encoded)
	}
}
