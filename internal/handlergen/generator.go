// Package handlergen implements the Handler Generator (C9): from a
// Manifest, it emits one per-resource dispatch handler file (queue-style
// or LB-style) into a build directory, overwriting idempotently (spec
// §4.9, §8 "handler generator writing twice... yields byte-identical
// output").
package handlergen

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"text/template"

	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/manifest"
)

// Options configures generation.
type Options struct {
	// BuildDir is the directory handler files are written into.
	BuildDir string
	// PackageName is the Go package declared at the top of each
	// generated file. Defaults to "handlers".
	PackageName string
	// SourcePackage is the import path of the package that defines the
	// user's discovered functions/classes, imported under the alias
	// "user" by the generated file.
	SourcePackage string
}

// queueTemplateData / lbTemplateData feed the two handler templates.
type queueTemplateData struct {
	Package       string
	SourcePackage string
	ResourceName  string
	Functions     []manifest.FunctionConfig
}

type lbTemplateData struct {
	Package       string
	SourcePackage string
	ResourceName  string
	Functions     []manifest.FunctionConfig
	IncludeEval   bool
}

var queueHandlerTmpl = template.Must(template.New("queue").Parse(`// Code generated by flash build for resource {{.ResourceName}}. DO NOT EDIT.
package {{.Package}}

import (
	user "{{.SourcePackage}}"

	"github.com/runpod/flash/internal/dispatch"
)

// {{.ResourceName}}Handler dispatches jobs for the {{.ResourceName}} resource.
var {{.ResourceName}}Handler = dispatch.NewQueueHandler(
	dispatch.FunctionRegistry{
{{- range .Functions}}
		"{{.Name}}": user.{{.Name}},
{{- end}}
	},
	nil,
)
`))

var lbHandlerTmpl = template.Must(template.New("lb").Funcs(template.FuncMap{
	"quoteList": quoteList,
}).Parse(`// Code generated by flash build for resource {{.ResourceName}}. DO NOT EDIT.
package {{.Package}}

import (
	user "{{.SourcePackage}}"

	"github.com/runpod/flash/internal/dispatch"
)

// {{.ResourceName}}Handler routes HTTP requests for the {{.ResourceName}} resource.
var {{.ResourceName}}Handler = &dispatch.LBHandler{
	IncludeEval: {{.IncludeEval}},
	Routes: []dispatch.Route{
{{- range .Functions}}
{{- if and .HTTPMethod .HTTPPath}}
		{Method: "{{.HTTPMethod}}", Path: "{{.HTTPPath}}", Handler: user.{{.Name}}, ParamNames: {{quoteList .ParamNames}}},
{{- end}}
{{- end}}
	},
}
`))

// Generate emits one handler file per resource in m, named
// "<resource>_handler.go" inside opts.BuildDir, and records each path on
// the manifest via SetHandlerFile. Returns the written file paths keyed
// by resource name, sorted iteration guarantees stable output across
// repeated runs given an unchanged manifest.
func Generate(m *manifest.Manifest, opts Options) (map[string]string, error) {
	pkg := opts.PackageName
	if pkg == "" {
		pkg = "handlers"
	}
	if err := os.MkdirAll(opts.BuildDir, 0o755); err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
			"failed to create build directory")
	}

	names := make([]string, 0, len(m.Resources))
	for name := range m.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	written := make(map[string]string, len(names))
	for _, name := range names {
		rc := m.Resources[name]
		var buf bytes.Buffer
		var err error
		if rc.IsLoadBalanced {
			err = lbHandlerTmpl.Execute(&buf, lbTemplateData{
				Package:       pkg,
				SourcePackage: opts.SourcePackage,
				ResourceName:  sanitizeIdent(name),
				Functions:     rc.Functions,
				IncludeEval:   rc.IsLiveResource,
			})
		} else {
			err = queueHandlerTmpl.Execute(&buf, queueTemplateData{
				Package:       pkg,
				SourcePackage: opts.SourcePackage,
				ResourceName:  sanitizeIdent(name),
				Functions:     rc.Functions,
			})
		}
		if err != nil {
			return nil, flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
				"failed to render handler template for "+name)
		}

		path := filepath.Join(opts.BuildDir, sanitizeFileName(name)+"_handler.go")
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
				"failed to write handler file for "+name)
		}
		m.SetHandlerFile(name, path)
		written[name] = path
	}
	return written, nil
}

// sanitizeIdent turns a resource name into a Go-exported-safe identifier
// fragment (letters/digits only, other characters dropped, the first
// letter and each letter after a dropped character capitalized), the
// identifier-branch of the textual rule in
// spec §4.7.
func sanitizeIdent(name string) string {
	var b []byte
	capNext := true
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9':
			if capNext && c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			b = append(b, c)
			capNext = false
		default:
			capNext = true
		}
	}
	if len(b) == 0 {
		return "Resource"
	}
	return string(b)
}

// quoteList renders names as a Go []string literal of double-quoted
// identifiers, used to emit dispatch.Route.ParamNames from discovered
// parameter names.
func quoteList(names []string) string {
	if len(names) == 0 {
		return "nil"
	}
	var buf bytes.Buffer
	buf.WriteString("[]string{")
	for i, n := range names {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(strconv.Quote(n))
	}
	buf.WriteString("}")
	return buf.String()
}

// sanitizeFileName keeps a resource name filesystem-safe while remaining
// stable and idempotent across runs.
func sanitizeFileName(name string) string {
	var b []byte
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-':
			b = append(b, c)
		default:
			b = append(b, '_')
		}
	}
	return string(b)
}
