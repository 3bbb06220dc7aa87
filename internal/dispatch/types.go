// Package dispatch implements the runtime half of the system: the
// Generic (Queue) Handler (C10) and the LB Handler (C11), loaded inside a
// deployed container to route inbound jobs to user callables (spec §3,
// §4.10, §4.11).
package dispatch

// ExecutionType distinguishes a bare-function job from a
// class-instance-and-method job (spec §3).
type ExecutionType string

const (
	ExecutionFunction ExecutionType = "function"
	ExecutionClass    ExecutionType = "class"
)

// SerializationFormat selects how JobRequest/JobResponse payload fields
// are encoded (spec §3). JSON is the plain-kwargs fast path used by
// "deployed" variants; Codec routes through internal/codec so closures and
// non-JSON values survive the trip.
type SerializationFormat string

const (
	FormatCodec SerializationFormat = "cloudpickle"
	FormatJSON  SerializationFormat = "json"
)

// JobRequest is the inbound payload for both handler kinds (spec §3).
type JobRequest struct {
	FunctionName string `json:"function_name,omitempty"`
	FunctionCode string `json:"function_code,omitempty"`

	Args   []string          `json:"args,omitempty"`
	Kwargs map[string]string `json:"kwargs,omitempty"`

	ExecutionType ExecutionType `json:"execution_type"`

	ClassName string `json:"class_name,omitempty"`
	ClassCode string `json:"class_code,omitempty"`

	ConstructorArgs   []string          `json:"constructor_args,omitempty"`
	ConstructorKwargs map[string]string `json:"constructor_kwargs,omitempty"`

	MethodName       string            `json:"method_name,omitempty"`
	MethodArgs       []string          `json:"method_args,omitempty"`
	MethodKwargs     map[string]string `json:"method_kwargs,omitempty"`
	InstanceID       string            `json:"instance_id,omitempty"`
	CreateNewInstance bool             `json:"create_new_instance,omitempty"`

	Dependencies       []string `json:"dependencies,omitempty"`
	SystemDependencies []string `json:"system_dependencies,omitempty"`
	AccelerateDownloads bool    `json:"accelerate_downloads,omitempty"`

	SerializationFormat SerializationFormat `json:"serialization_format"`
}

// InstanceInfo describes a cached class instance (spec §4.10).
type InstanceInfo struct {
	CreatedAt string `json:"created_at"`
	CallCount int    `json:"call_count"`
}

// JobResponse is the outbound payload for both handler kinds (spec §3).
// Exactly one of Result/JSONResult is populated on success.
type JobResponse struct {
	Success      bool          `json:"success"`
	Result       string        `json:"result,omitempty"`
	JSONResult   any           `json:"json_result,omitempty"`
	Error        string        `json:"error,omitempty"`
	Traceback    string        `json:"traceback,omitempty"`
	Stdout       string        `json:"stdout,omitempty"`
	InstanceID   string        `json:"instance_id,omitempty"`
	InstanceInfo *InstanceInfo `json:"instance_info,omitempty"`
}

func errorResponse(msg string) JobResponse {
	return JobResponse{Success: false, Error: msg}
}
