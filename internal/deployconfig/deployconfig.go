// Package deployconfig loads the human-authored per-resource deployment
// parameters (image, GPU/CPU profile, worker bounds) that Go's lack of
// decorator keyword arguments means cannot be recovered from the
// registration call site alone. Resources are keyed by the same name Discovery assigns
// them (the registration call's config-variable name).
package deployconfig

import (
	"os"

	"gopkg.in/yaml.v3"

	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/resource"
)

// ResourceParams is one resource's deployment declaration.
type ResourceParams struct {
	Class       string `yaml:"class"`
	ImageRef    string `yaml:"image,omitempty"`
	TemplateRef string `yaml:"template,omitempty"`
	GPUProfile  string `yaml:"gpu,omitempty"`
	CPUProfile  string `yaml:"cpu,omitempty"`
	WorkersMin  int    `yaml:"workersMin"`
	WorkersMax  int    `yaml:"workersMax"`
	Scaler      string `yaml:"scaler,omitempty"`
	Flashboot   bool   `yaml:"flashboot,omitempty"`
}

// Document is the top-level shape of resources.yaml.
type Document struct {
	Resources map[string]ResourceParams `yaml:"resources"`
}

// Load reads and parses path. A missing file yields an empty Document,
// not an error, so projects with no deployable (queue/LB) resources
// never need one.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Document{Resources: map[string]ResourceParams{}}, nil
	}
	if err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
			"failed to read deployment config")
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
			"failed to parse deployment config")
	}
	if doc.Resources == nil {
		doc.Resources = map[string]ResourceParams{}
	}
	return &doc, nil
}

// Descriptor builds a resource.Descriptor for name from its declared
// params, the input resource.New validates and hashes.
func (p ResourceParams) Descriptor(name string) (*resource.Descriptor, error) {
	class := resource.Class(p.Class)
	opts := []resource.Option{
		resource.WithWorkers(p.WorkersMin, p.WorkersMax),
		resource.WithFlashboot(p.Flashboot),
	}
	if p.ImageRef != "" {
		opts = append(opts, resource.WithImageRef(p.ImageRef))
	}
	if p.TemplateRef != "" {
		opts = append(opts, resource.WithTemplateRef(p.TemplateRef))
	}
	if p.GPUProfile != "" {
		opts = append(opts, resource.WithGPUProfile(p.GPUProfile))
	}
	if p.CPUProfile != "" {
		opts = append(opts, resource.WithCPUProfile(p.CPUProfile))
	}
	if p.Scaler != "" {
		opts = append(opts, resource.WithScaler(resource.Scaler(p.Scaler)))
	}
	return resource.New(class, name, opts...)
}

// Descriptors builds a descriptor for every declared resource, keyed by
// name, ready to hand to manifest.Build.
func (d *Document) Descriptors() (map[string]*resource.Descriptor, error) {
	out := make(map[string]*resource.Descriptor, len(d.Resources))
	for name, params := range d.Resources {
		desc, err := params.Descriptor(name)
		if err != nil {
			return nil, flasherrors.Wrapf(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
				"invalid deployment config for resource %s", name)
		}
		out[name] = desc
	}
	return out, nil
}
