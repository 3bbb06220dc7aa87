package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gorilla/mux"

	"github.com/runpod/flash/internal/credctx"
)

// Route is one bound HTTP route for the LB Handler (C11). Handler must be
// a func whose first parameter is context.Context — the credential
// context's carrier — followed by one parameter per entry in ParamNames,
// in that declared order (spec §4.7's discovered parameter list).
// Defaults supplies zero-value substitutes for parameters the request
// body may omit, since Go signatures carry no default-argument metadata.
type Route struct {
	Method     string
	Path       string
	ParamNames []string
	Defaults   map[string]any
	Handler    any

	// SchemaType, when non-nil, is the single struct type the handler
	// accepts instead of discrete named parameters ("handlers whose sole
	// parameter is already a schema type are left alone", spec §4.11).
	// The request body decodes directly into a new value of this type.
	SchemaType reflect.Type
}

func (r Route) bodyBearing() bool {
	switch strings.ToUpper(r.Method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// LBHandler is the LB Handler runtime (C11): an HTTP application binding
// user routes, auto-deriving request body schemas, and propagating
// inbound credentials into the Credential Context for the duration of
// each request.
type LBHandler struct {
	Routes []Route

	// IncludeEval mounts the /execute endpoint (live-resource variants,
	// spec §4.11). EvalFunctions is consulted by name only: unlike the
	// reference system, this runtime cannot compile arbitrary source at
	// request time, so function_code in the eval request is accepted for
	// API compatibility but ignored — only a function_name already
	// present in EvalFunctions can be dispatched (see DESIGN.md's
	// "Dropped depresolver stub synthesis" section).
	IncludeEval   bool
	EvalFunctions FunctionRegistry
}

// Router builds the gorilla/mux router for this LBHandler.
func (h *LBHandler) Router() *mux.Router {
	r := mux.NewRouter()
	for _, route := range h.Routes {
		route := route
		r.HandleFunc(route.Path, h.wrap(route)).Methods(route.Method)
	}
	if h.IncludeEval {
		r.HandleFunc("/execute", h.handleEval).Methods(http.MethodPost)
	}
	return r
}

// wrap builds the per-route handler: credential middleware around schema
// decoding and dispatch.
func (h *LBHandler) wrap(route Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, token := authenticate(r.Context(), r)
		defer func() { credctx.Clear(token) }()

		args, err := bindArgs(route, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := invokeRoute(route.Handler, ctx, args)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func authenticate(ctx context.Context, r *http.Request) (context.Context, credctx.Token) {
	auth := r.Header.Get("Authorization")
	key := strings.TrimPrefix(auth, "Bearer ")
	if key == auth {
		key = ""
	}
	return credctx.Set(ctx, key)
}

// bindArgs decodes the request body (if any) into the ordered argument
// list the route's handler expects, or into a single schema-typed value
// when the route declares one (spec §4.11 point 1).
func bindArgs(route Route, r *http.Request) ([]any, error) {
	if route.SchemaType != nil {
		body := reflect.New(route.SchemaType)
		if route.bodyBearing() {
			if err := json.NewDecoder(r.Body).Decode(body.Interface()); err != nil {
				return nil, fmt.Errorf("invalid request body: %w", err)
			}
		}
		return []any{body.Elem().Interface()}, nil
	}

	if len(route.ParamNames) == 0 {
		return nil, nil
	}

	raw := map[string]json.RawMessage{}
	if route.bodyBearing() {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
	}

	args := make([]any, len(route.ParamNames))
	for i, name := range route.ParamNames {
		field, present := raw[name]
		if !present {
			def, hasDefault := route.Defaults[name]
			if !hasDefault {
				return nil, fmt.Errorf("missing required field %q", name)
			}
			args[i] = def
			continue
		}
		var v any
		if err := json.Unmarshal(field, &v); err != nil {
			return nil, fmt.Errorf("invalid value for field %q: %w", name, err)
		}
		args[i] = v
	}
	return args, nil
}

// invokeRoute calls handler(ctx, args...) via reflection, matching each
// argument to its declared parameter type.
func invokeRoute(handler any, ctx context.Context, args []any) (any, error) {
	fn := reflect.ValueOf(handler)
	in := make([]reflect.Value, 0, len(args)+1)
	in = append(in, reflect.ValueOf(ctx))
	for i, a := range args {
		in = append(in, argValue(a, fn, i+1))
	}
	out := fn.Call(in)
	return splitResultsAndError(out)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// evalRequest is the /execute endpoint's body (spec §4.11).
type evalRequest struct {
	FunctionName string            `json:"function_name"`
	FunctionCode string            `json:"function_code,omitempty"`
	Args         []string          `json:"args,omitempty"`
	Kwargs       map[string]string `json:"kwargs,omitempty"`
}

func (h *LBHandler) handleEval(w http.ResponseWriter, r *http.Request) {
	var req evalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid eval request body: "+err.Error()))
		return
	}

	fn, ok := h.EvalFunctions[req.FunctionName]
	if !ok {
		writeJSON(w, http.StatusOK, errorResponse(fmt.Sprintf("function %q not found for eval", req.FunctionName)))
		return
	}

	args, kwargs, err := decodeArgs(FormatCodec, req.Args, req.Kwargs)
	if err != nil {
		writeJSON(w, http.StatusOK, errorResponse(err.Error()))
		return
	}
	result, err := invoke(fn, args, kwargs)
	if err != nil {
		writeJSON(w, http.StatusOK, JobResponse{Success: false, Error: err.Error(), Traceback: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, encodeResult(FormatCodec, result))
}
