// Package resource implements the Resource Descriptor (C2): a tagged
// variant over the fixed set of deployable resource classes, with a
// deterministic config hash and stable resource identity.
package resource

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/runpod/flash/internal/config"
	flasherrors "github.com/runpod/flash/internal/errors"
)

// Class is the authoritative tag on a descriptor. Per the Open Question in
// spec §9, this is the single source of truth; ServerlessType, LB-ness,
// etc. are all derived from it rather than tracked as separate flags.
type Class string

const (
	ClassQueueServerless    Class = "QueueServerless"
	ClassLBServerless       Class = "LBServerless"
	ClassCpuQueueServerless Class = "CpuQueueServerless"
	ClassCpuLBServerless    Class = "CpuLBServerless"
	ClassDeployedQueue      Class = "DeployedQueue"
	ClassCpuDeployedQueue   Class = "CpuDeployedQueue"
)

// Scaler is the autoscaling trigger a deployed endpoint reacts to.
type Scaler string

const (
	ScalerQueueDelay   Scaler = "QUEUE_DELAY"
	ScalerRequestCount Scaler = "REQUEST_COUNT"
)

// IsLoadBalanced reports whether instances of this class bind HTTP routes
// directly instead of being invoked through the job queue.
func (c Class) IsLoadBalanced() bool {
	switch c {
	case ClassLBServerless, ClassCpuLBServerless:
		return true
	default:
		return false
	}
}

// IsGPU reports whether this class is provisioned against a GPU profile
// rather than a CPU profile.
func (c Class) IsGPU() bool {
	switch c {
	case ClassQueueServerless, ClassLBServerless:
		return true
	default:
		return false
	}
}

// IsLiveResource reports whether this class is a "live" (already-deployed,
// externally-managed) endpoint rather than one this process provisions.
func (c Class) IsLiveResource() bool {
	switch c {
	case ClassDeployedQueue, ClassCpuDeployedQueue:
		return true
	default:
		return false
	}
}

// Descriptor is the common, validated configuration for one declared
// resource. Construction is validated; the struct is treated as immutable
// afterward (Id is the sole field mutated post-deploy, by the control
// plane client via SetID).
type Descriptor struct {
	Class Class `json:"class"`

	Name string `json:"name"`

	ImageRef    string `json:"image_ref,omitempty"`
	TemplateRef string `json:"template_ref,omitempty"`

	Env map[string]string `json:"env,omitempty"`

	GPUProfile string `json:"gpu_profile,omitempty"`
	CPUProfile string `json:"cpu_profile,omitempty"`

	WorkersMin int `json:"workers_min"`
	WorkersMax int `json:"workers_max"`

	Scaler    Scaler `json:"scaler,omitempty"`
	Flashboot bool   `json:"flashboot,omitempty"`

	// Id is set post-deploy by the control plane. It must never
	// participate in config_hash (spec §3 invariants).
	Id string `json:"-"`

	// boundFunctions tracks how many callables are bound to this
	// descriptor instance. Queue-style descriptors reject a second
	// binding (spec §4.2); LB-style descriptors allow many routes.
	boundFunctions int
}

// New validates and constructs a Descriptor.
func New(class Class, name string, opts ...Option) (*Descriptor, error) {
	d := &Descriptor{
		Class:  class,
		Name:   name,
		Env:    map[string]string{},
		Scaler: ScalerQueueDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Option configures a Descriptor at construction time.
type Option func(*Descriptor)

func WithImageRef(ref string) Option    { return func(d *Descriptor) { d.ImageRef = ref } }
func WithTemplateRef(ref string) Option { return func(d *Descriptor) { d.TemplateRef = ref } }
func WithEnv(env map[string]string) Option {
	return func(d *Descriptor) {
		merged := make(map[string]string, len(env))
		for k, v := range env {
			merged[k] = v
		}
		d.Env = merged
	}
}
func WithGPUProfile(p string) Option { return func(d *Descriptor) { d.GPUProfile = p } }
func WithCPUProfile(p string) Option { return func(d *Descriptor) { d.CPUProfile = p } }
func WithWorkers(min, max int) Option {
	return func(d *Descriptor) { d.WorkersMin = min; d.WorkersMax = max }
}
func WithScaler(s Scaler) Option       { return func(d *Descriptor) { d.Scaler = s } }
func WithFlashboot(b bool) Option      { return func(d *Descriptor) { d.Flashboot = b } }

func (d *Descriptor) validate() error {
	if d.Name == "" {
		return flasherrors.Configuration(flasherrors.CodeConfigMissingField, "resource name must not be empty")
	}
	if !d.Class.IsLiveResource() {
		if d.ImageRef == "" && d.TemplateRef == "" {
			return flasherrors.Configuration(flasherrors.CodeConfigMissingField,
				"one of image_ref or template_ref is required for "+string(d.Class))
		}
		if d.ImageRef != "" && d.TemplateRef != "" {
			return flasherrors.Configuration(flasherrors.CodeConfigInvalid,
				"only one of image_ref or template_ref may be set")
		}
	}
	if d.WorkersMin < 0 || d.WorkersMax < 0 {
		return flasherrors.Configuration(flasherrors.CodeConfigInvalid, "workers_min and workers_max must be non-negative")
	}
	if d.WorkersMin > d.WorkersMax {
		return flasherrors.Configuration(flasherrors.CodeConfigInvalid, "workers_min must be <= workers_max")
	}
	switch d.Class {
	case ClassQueueServerless, ClassLBServerless, ClassCpuQueueServerless, ClassCpuLBServerless,
		ClassDeployedQueue, ClassCpuDeployedQueue:
	default:
		return flasherrors.Configuration(flasherrors.CodeConfigUnsupported, "unsupported resource class: "+string(d.Class))
	}
	return nil
}

// BindFunction registers a callable against this descriptor instance.
// Queue-style descriptors accept exactly one binding; LB-style descriptors
// accept any number (one per route).
func (d *Descriptor) BindFunction() error {
	if !d.Class.IsLoadBalanced() && d.boundFunctions >= 1 {
		return flasherrors.Configuration(flasherrors.CodeConfigInvalid,
			fmt.Sprintf("queue resource %q already has a function bound; queue descriptors accept exactly one", d.Name))
	}
	d.boundFunctions++
	return nil
}

// hashableFields is the subset of Descriptor that participates in
// config_hash: every configured field except Id and any cached internal
// state (spec §3 invariant).
type hashableFields struct {
	Class       Class             `json:"class"`
	Name        string            `json:"name"`
	ImageRef    string            `json:"image_ref,omitempty"`
	TemplateRef string            `json:"template_ref,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	GPUProfile  string            `json:"gpu_profile,omitempty"`
	CPUProfile  string            `json:"cpu_profile,omitempty"`
	WorkersMin  int               `json:"workers_min"`
	WorkersMax  int               `json:"workers_max"`
	Scaler      Scaler            `json:"scaler,omitempty"`
	Flashboot   bool              `json:"flashboot,omitempty"`
}

func (d *Descriptor) hashable() hashableFields {
	return hashableFields{
		Class:       d.Class,
		Name:        d.Name,
		ImageRef:    d.ImageRef,
		TemplateRef: d.TemplateRef,
		Env:         d.Env,
		GPUProfile:  d.GPUProfile,
		CPUProfile:  d.CPUProfile,
		WorkersMin:  d.WorkersMin,
		WorkersMax:  d.WorkersMax,
		Scaler:      d.Scaler,
		Flashboot:   d.Flashboot,
	}
}

// ConfigHash computes the deterministic digest over every configured
// field except Id. Two descriptors with equal ConfigHash are
// interchangeable (spec §3).
func (d *Descriptor) ConfigHash() (string, error) {
	raw, err := json.Marshal(d.hashable())
	if err != nil {
		return "", flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationEncode,
			"failed to marshal descriptor for hashing")
	}
	hash, err := config.ComputeHash(raw)
	if err != nil {
		return "", flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationEncode,
			"failed to compute config hash")
	}
	return hash, nil
}

// ResourceID derives the stable identifier `"<Class>_"+md5(hashed_fields)`,
// stable across the descriptor's lifecycle (spec §3). Unlike ConfigHash,
// which is allowed to use a cryptographically stronger digest, the ID's
// md5 component is a spec-mandated constant, not a choice of ours.
func (d *Descriptor) ResourceID() (string, error) {
	raw, err := json.Marshal(d.hashable())
	if err != nil {
		return "", flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationEncode,
			"failed to marshal descriptor for resource id")
	}
	sum := md5.Sum(raw)
	return string(d.Class) + "_" + hex.EncodeToString(sum[:]), nil
}

// ResourceKey returns `"<Class>:<name>"` when Name is set, else falls
// back to ResourceID (spec §3). Name is required by validation, so the
// fallback path only matters for descriptors rehydrated from storage
// that predate a naming requirement.
func (d *Descriptor) ResourceKey() (string, error) {
	if d.Name != "" {
		return string(d.Class) + ":" + d.Name, nil
	}
	return d.ResourceID()
}

// SetID records the post-deploy identifier assigned by the control plane.
// Never participates in ConfigHash or ResourceID.
func (d *Descriptor) SetID(id string) { d.Id = id }

// IsDeployed reports whether the descriptor has been assigned a
// control-plane ID.
func (d *Descriptor) IsDeployed() bool { return d.Id != "" }

// CanUndeploy reports whether this class supports the undeploy operation.
// Live (externally-managed) deployed-queue variants cannot be torn down
// by this system.
func (d *Descriptor) CanUndeploy() bool { return !d.Class.IsLiveResource() }

// sortedEnvKeys returns Env's keys in sorted order for deterministic
// iteration. It is unexported and nothing calls it at present.
func (d *Descriptor) sortedEnvKeys() []string {
	keys := make([]string, 0, len(d.Env))
	for k := range d.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
