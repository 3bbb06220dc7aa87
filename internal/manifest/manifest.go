// Package manifest implements the Manifest Builder (C8): it reduces
// Discovery output plus resolved descriptors into the deployment manifest
// consumed by the Handler Generator and loaded once at runtime start
// (spec §3, §4.8).
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/discovery"
	"github.com/runpod/flash/internal/resource"
)

// CurrentVersion is the manifest schema version writers stamp.
const CurrentVersion = 1

// FunctionConfig is one function entry inside a ResourceConfig.
type FunctionConfig struct {
	Name       string   `json:"name"`
	Module     string   `json:"module"`
	IsAsync    bool     `json:"is_async"`
	IsClass    bool     `json:"is_class"`
	HTTPMethod string   `json:"http_method,omitempty"`
	HTTPPath   string   `json:"http_path,omitempty"`
	ParamNames []string `json:"param_names,omitempty"`

	// CallTargets carries the statically discovered bare-name call
	// targets forward from discovery, so later pipeline stages (the
	// Dependency Resolver) don't need to re-scan source.
	CallTargets []string `json:"call_targets,omitempty"`
}

// ResourceConfig is the per-resource section of the manifest (spec §3).
type ResourceConfig struct {
	ResourceType     string           `json:"resource_type"`
	Functions        []FunctionConfig `json:"functions"`
	IsLoadBalanced   bool             `json:"is_load_balanced"`
	IsLiveResource   bool             `json:"is_live_resource"`
	MakesRemoteCalls bool             `json:"makes_remote_calls"`
	HandlerFile      string           `json:"handler_file,omitempty"`

	ImageName   string `json:"imageName,omitempty"`
	TemplateID  string `json:"templateId,omitempty"`
	GPUIds      string `json:"gpuIds,omitempty"`
	WorkersMin  int    `json:"workersMin"`
	WorkersMax  int    `json:"workersMax"`
}

// Manifest is the JSON document describing the build output (spec §3, §6).
type Manifest struct {
	Version           int                        `json:"version"`
	GeneratedAt       string                      `json:"generated_at"`
	ProjectName       string                      `json:"project_name"`
	FunctionRegistry  map[string]string           `json:"function_registry"`
	Resources         map[string]ResourceConfig   `json:"resources"`
	Routes            map[string][]string         `json:"routes,omitempty"`
	ResourcesEndpoints map[string]string          `json:"resources_endpoints,omitempty"`
}

// Build groups discovered functions by resource config name, resolving
// deployment parameters from the matching descriptor when one is provided
// (spec §4.8). generatedAt is passed in rather than computed (no wall-clock
// access here) so builds stay deterministic and testable.
func Build(projectName, generatedAt string, functions []discovery.FunctionMetadata, descriptors map[string]*resource.Descriptor) (*Manifest, error) {
	m := &Manifest{
		Version:          CurrentVersion,
		GeneratedAt:      generatedAt,
		ProjectName:      projectName,
		FunctionRegistry: make(map[string]string),
		Resources:        make(map[string]ResourceConfig),
	}

	grouped := make(map[string][]discovery.FunctionMetadata)
	order := []string{}
	for _, fn := range functions {
		if fn.ResourceConfigName == "" {
			return nil, flasherrors.Configuration(flasherrors.CodeManifestInvalid,
				fmt.Sprintf("function %s has no resource_config_name", fn.FunctionName))
		}
		if _, ok := grouped[fn.ResourceConfigName]; !ok {
			order = append(order, fn.ResourceConfigName)
		}
		grouped[fn.ResourceConfigName] = append(grouped[fn.ResourceConfigName], fn)
		m.FunctionRegistry[fn.FunctionName] = fn.ResourceConfigName
	}
	sort.Strings(order)

	for _, name := range order {
		fns := grouped[name]
		rc := ResourceConfig{
			ResourceType:   fns[0].ResourceType,
			IsLoadBalanced: fns[0].IsLoadBalanced,
			IsLiveResource: fns[0].IsLiveResource,
		}
		for _, fn := range fns {
			rc.Functions = append(rc.Functions, FunctionConfig{
				Name:       fn.FunctionName,
				Module:     fn.ModulePath,
				IsAsync:    fn.IsAsync,
				IsClass:    fn.IsClass,
				HTTPMethod:  fn.HTTPMethod,
				HTTPPath:    fn.HTTPPath,
				ParamNames:  fn.Params,
				CallTargets: fn.CallTargets,
			})
			if fn.IsLBRouteHandler {
				route := fn.HTTPMethod + " " + fn.HTTPPath
				if m.Routes == nil {
					m.Routes = make(map[string][]string)
				}
				m.Routes[name] = append(m.Routes[name], route)
			}
		}

		if d, ok := descriptors[name]; ok {
			rc.ImageName = d.ImageRef
			rc.TemplateID = d.TemplateRef
			rc.GPUIds = d.GPUProfile
			rc.WorkersMin = d.WorkersMin
			rc.WorkersMax = d.WorkersMax
		}

		m.Resources[name] = rc
	}

	// makesRemoteCalls depends on m.FunctionRegistry being fully populated
	// across every resource, so it runs as its own pass once the loop
	// above has built every entry.
	for _, name := range order {
		rc := m.Resources[name]
		rc.MakesRemoteCalls = makesRemoteCalls(grouped[name], m.FunctionRegistry, name)
		m.Resources[name] = rc
	}

	if err := validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// makesRemoteCalls reports whether any function grouped under resourceName
// calls, by bare name, a function the registry attributes to a *different*
// resource (spec §4.8, §4.15): that's the static signal the Service
// Registry's skipRemoteLookup fast path needs to know it cannot skip
// loading the peer endpoint map for this resource. A resource calling its
// own sibling functions locally doesn't count as a remote call.
func makesRemoteCalls(fns []discovery.FunctionMetadata, registry map[string]string, resourceName string) bool {
	for _, fn := range fns {
		for _, target := range fn.CallTargets {
			if owner, ok := registry[target]; ok && owner != resourceName {
				return true
			}
		}
	}
	return false
}

// SetHandlerFile records the generated handler path for resourceName.
func (m *Manifest) SetHandlerFile(resourceName, path string) {
	rc, ok := m.Resources[resourceName]
	if !ok {
		return
	}
	rc.HandlerFile = path
	m.Resources[resourceName] = rc
}

// SetEndpoint records the deployed endpoint URL for resourceName.
func (m *Manifest) SetEndpoint(resourceName, url string) {
	if m.ResourcesEndpoints == nil {
		m.ResourcesEndpoints = make(map[string]string)
	}
	m.ResourcesEndpoints[resourceName] = url
}

// validate checks the two manifest invariants from spec §3: every
// function_registry value is a resources key, and is_lb_route_handler
// membership matches routes exactly.
func validate(m *Manifest) error {
	for fn, resourceName := range m.FunctionRegistry {
		if _, ok := m.Resources[resourceName]; !ok {
			return flasherrors.Configuration(flasherrors.CodeManifestInvalid,
				fmt.Sprintf("function_registry[%s] references unknown resource %s", fn, resourceName))
		}
	}
	for resourceName, routes := range m.Routes {
		rc, ok := m.Resources[resourceName]
		if !ok {
			return flasherrors.Configuration(flasherrors.CodeManifestInvalid,
				fmt.Sprintf("routes references unknown resource %s", resourceName))
		}
		expected := map[string]bool{}
		for _, fn := range rc.Functions {
			if fn.HTTPMethod != "" && fn.HTTPPath != "" {
				expected[fn.HTTPMethod+" "+fn.HTTPPath] = true
			}
		}
		for _, route := range routes {
			if !expected[route] {
				return flasherrors.Configuration(flasherrors.CodeManifestInvalid,
					fmt.Sprintf("route %q for resource %s has no matching function", route, resourceName))
			}
		}
	}
	return nil
}

// Write serializes the manifest to path as UTF-8 JSON (spec §6). Required
// fields are always emitted; readers tolerate additional/unknown fields.
func Write(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationEncode,
			"failed to marshal manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
			"failed to write manifest file")
	}
	return nil
}

// Load reads and parses the manifest at path. Unknown fields are silently
// tolerated (the default behavior of encoding/json).
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
			"failed to read manifest file")
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationDecode,
			"failed to parse manifest file")
	}
	return &m, nil
}
