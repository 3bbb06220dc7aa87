package dispatch

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/runpod/flash/internal/codec"
	flasherrors "github.com/runpod/flash/internal/errors"
)

// FunctionRegistry maps a function_name to the callable it dispatches to.
// Generated handler files populate this at init time (C9).
type FunctionRegistry map[string]any

// ClassRegistry maps a class_name to its constructor callable.
type ClassRegistry map[string]any

// cachedInstance is one entry in the Queue Handler's instance cache,
// keyed by instance_id (spec §4.10).
type cachedInstance struct {
	value     reflect.Value
	createdAt string
	callCount int
}

// QueueHandler is the Generic (Queue) Handler runtime (C10).
type QueueHandler struct {
	Functions FunctionRegistry
	Classes   ClassRegistry

	// Now returns the current time as an RFC3339 string, used only for
	// InstanceInfo.CreatedAt; injectable so tests stay deterministic.
	Now func() string

	mu        sync.Mutex
	instances map[string]*cachedInstance
}

// NewQueueHandler constructs a QueueHandler over the given registries.
func NewQueueHandler(functions FunctionRegistry, classes ClassRegistry) *QueueHandler {
	return &QueueHandler{
		Functions: functions,
		Classes:   classes,
		Now:       func() string { return "" },
		instances: make(map[string]*cachedInstance),
	}
}

// HandleJob dispatches one JobRequest and always returns a JobResponse —
// errors are reported in the response body, never as a Go error, matching
// the reference handler's "wrap any exception" contract (spec §4.10, §7).
func (h *QueueHandler) HandleJob(req JobRequest) (resp JobResponse) {
	defer func() {
		if r := recover(); r != nil {
			resp = JobResponse{Success: false, Error: fmt.Sprintf("%v", r)}
		}
	}()

	switch req.ExecutionType {
	case ExecutionClass:
		return h.handleClass(req)
	default:
		return h.handleFunction(req)
	}
}

func (h *QueueHandler) handleFunction(req JobRequest) JobResponse {
	fn, ok := h.Functions[req.FunctionName]
	if !ok {
		return errorResponse(fmt.Sprintf("function %q not found; available: %s",
			req.FunctionName, strings.Join(h.availableFunctions(), ", ")))
	}

	args, kwargs, err := decodeArgs(req.SerializationFormat, req.Args, req.Kwargs)
	if err != nil {
		return errorResponse(err.Error())
	}

	result, err := invoke(fn, args, kwargs)
	if err != nil {
		return JobResponse{Success: false, Error: err.Error(), Traceback: err.Error()}
	}
	return encodeResult(req.SerializationFormat, result)
}

func (h *QueueHandler) handleClass(req JobRequest) JobResponse {
	ctor, ok := h.Classes[req.ClassName]
	if !ok {
		return errorResponse(fmt.Sprintf("class %q not found; available: %s",
			req.ClassName, strings.Join(h.availableClasses(), ", ")))
	}

	instance, info, err := h.resolveInstance(req, ctor)
	if err != nil {
		return errorResponse(err.Error())
	}

	methodName := req.MethodName
	if methodName == "" {
		methodName = "__call__"
	}
	method := instance.MethodByName(exportedMethodName(methodName))
	if !method.IsValid() {
		return errorResponse(fmt.Sprintf("method %q not found on class %q", methodName, req.ClassName))
	}

	args, kwargs, err := decodeArgs(req.SerializationFormat, req.MethodArgs, req.MethodKwargs)
	if err != nil {
		return errorResponse(err.Error())
	}

	result, err := invokeValue(method, args, kwargs)
	if err != nil {
		return JobResponse{Success: false, Error: err.Error(), Traceback: err.Error()}
	}

	resp := encodeResult(req.SerializationFormat, result)
	resp.InstanceID = info.id
	resp.InstanceInfo = &InstanceInfo{CreatedAt: info.createdAt, CallCount: info.callCount}
	return resp
}

type instanceRef struct {
	id        string
	createdAt string
	callCount int
}

func (h *QueueHandler) resolveInstance(req JobRequest, ctor any) (reflect.Value, instanceRef, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !req.CreateNewInstance && req.InstanceID != "" {
		if cached, ok := h.instances[req.InstanceID]; ok {
			cached.callCount++
			return cached.value, instanceRef{req.InstanceID, cached.createdAt, cached.callCount}, nil
		}
	}

	args, kwargs, err := decodeArgs(req.SerializationFormat, req.ConstructorArgs, req.ConstructorKwargs)
	if err != nil {
		return reflect.Value{}, instanceRef{}, err
	}
	result, err := invoke(ctor, args, kwargs)
	if err != nil {
		return reflect.Value{}, instanceRef{}, err
	}

	id := req.InstanceID
	if id == "" {
		id = fmt.Sprintf("inst-%d", len(h.instances)+1)
	}
	entry := &cachedInstance{value: reflect.ValueOf(result), createdAt: h.Now(), callCount: 1}
	h.instances[id] = entry
	return entry.value, instanceRef{id, entry.createdAt, entry.callCount}, nil
}

func (h *QueueHandler) availableFunctions() []string {
	names := make([]string, 0, len(h.Functions))
	for name := range h.Functions {
		names = append(names, name)
	}
	return names
}

func (h *QueueHandler) availableClasses() []string {
	names := make([]string, 0, len(h.Classes))
	for name := range h.Classes {
		names = append(names, name)
	}
	return names
}

// exportedMethodName maps the reference system's default dunder method
// name to a Go-exported equivalent, since reflect.Value.MethodByName only
// finds exported methods and Go has no "__call__" convention.
func exportedMethodName(name string) string {
	if name == "__call__" {
		return "Call"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func decodeArgs(format SerializationFormat, args []string, kwargs map[string]string) ([]any, map[string]any, error) {
	if format == FormatJSON {
		decodedArgs := make([]any, len(args))
		for i, a := range args {
			var v any
			if err := json.Unmarshal([]byte(a), &v); err != nil {
				return nil, nil, flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationDecode,
					"failed to decode json positional argument")
			}
			decodedArgs[i] = v
		}
		decodedKwargs := make(map[string]any, len(kwargs))
		for k, raw := range kwargs {
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return nil, nil, flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationDecode,
					"failed to decode json keyword argument "+k)
			}
			decodedKwargs[k] = v
		}
		return decodedArgs, decodedKwargs, nil
	}

	decodedArgs, err := codec.DecodePositional(args)
	if err != nil {
		return nil, nil, err
	}
	decodedKwargs, err := codec.DecodeNamed(kwargs)
	if err != nil {
		return nil, nil, err
	}
	return decodedArgs, decodedKwargs, nil
}

func encodeResult(format SerializationFormat, result any) JobResponse {
	if format == FormatJSON {
		return JobResponse{Success: true, JSONResult: result}
	}
	encoded, err := codec.EncodeOne(result)
	if err != nil {
		return errorResponse(err.Error())
	}
	return JobResponse{Success: true, Result: encoded}
}

// invoke calls fn (a Go func value) with positional args followed by any
// kwargs, matched to the function's remaining parameters by position —
// Go has no named-parameter binding, so kwargs are appended in
// alphabetical order of their names, not by parameter name.
func invoke(fn any, args []any, kwargs map[string]any) (any, error) {
	return invokeValue(reflect.ValueOf(fn), args, kwargs)
}

func invokeValue(fn reflect.Value, args []any, kwargs map[string]any) (any, error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, flasherrors.Internal("dispatch target is not callable", nil)
	}

	in := make([]reflect.Value, 0, len(args)+len(kwargs))
	for _, a := range args {
		in = append(in, argValue(a, fn, len(in)))
	}
	for _, name := range sortedKeys(kwargs) {
		in = append(in, argValue(kwargs[name], fn, len(in)))
	}

	out := fn.Call(in)
	return splitResultsAndError(out)
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

func argValue(a any, fn reflect.Value, pos int) reflect.Value {
	paramType := anyType
	if pos < fn.Type().NumIn() {
		paramType = fn.Type().In(pos)
	}
	if a == nil {
		return reflect.Zero(paramType)
	}
	rv := reflect.ValueOf(a)
	if rv.Type().ConvertibleTo(paramType) {
		return rv.Convert(paramType)
	}
	return rv
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// splitResultsAndError handles the two conventional Go return shapes for a
// dispatched callable: (value, error) or a single value.
func splitResultsAndError(out []reflect.Value) (any, error) {
	if len(out) == 0 {
		return nil, nil
	}
	last := out[len(out)-1]
	if last.Type().Implements(reflect.TypeOf((*error)(nil)).Elem()) {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		if len(out) == 1 {
			return nil, nil
		}
		if len(out) == 2 {
			return out[0].Interface(), nil
		}
		vals := make([]any, len(out)-1)
		for i := 0; i < len(out)-1; i++ {
			vals[i] = out[i].Interface()
		}
		return vals, nil
	}
	if len(out) == 1 {
		return out[0].Interface(), nil
	}
	vals := make([]any, len(out))
	for i := range out {
		vals[i] = out[i].Interface()
	}
	return vals, nil
}
