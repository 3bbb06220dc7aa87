// Package discovery implements the Discovery & Scanner (C7): a static
// go/ast walk over a project tree that finds callables registered against
// a resource descriptor, the Go analogue of scanning source for a
// decorator in the reference system (spec §4.7, SPEC_FULL.md DISCOVERY &
// SCANNER section). It never executes user code.
package discovery

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/runpod/flash/internal/config"
	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/util"
)

// FunctionMetadata describes one discovered annotated callable (spec §3).
type FunctionMetadata struct {
	FunctionName       string
	ModulePath         string
	FilePath           string
	ResourceConfigName string
	ResourceType       string
	IsAsync            bool
	IsClass            bool
	HTTPMethod         string
	HTTPPath           string
	IsLoadBalanced     bool
	IsLiveResource     bool
	IsLBRouteHandler   bool
	ConfigVariable     string
	Params             []string

	// CallTargets holds every bare-identifier call target found in the
	// callable's body (e.g. `Summarize(x)`, not `a.Summarize(x)`) — the
	// static analogue of the reference system's dynamic reference scan
	// (spec §4.15 caveats). The Manifest Builder cross-references these
	// against the function registry to determine which resources make
	// remote calls to other resources.
	CallTargets []string
}

// recognized constructor calls that bind a callable to a resource, mirroring
// the decorator keyword arguments (`method`, `path`, `dependencies`,
// `system_dependencies`) named in spec §4.7.
var registerFuncs = map[string]string{
	"RegisterQueue":  "QueueServerless",
	"RegisterLB":     "LBServerless",
	"RegisterCPU":    "CpuQueueServerless",
	"RegisterCPULB":  "CpuLBServerless",
	"RegisterLive":   "DeployedQueue",
	"RegisterCPULive": "CpuDeployedQueue",
}

var loadBalancedTypes = map[string]bool{
	"LBServerless": true, "CpuLBServerless": true,
}

var liveResourceTypes = map[string]bool{
	"DeployedQueue": true, "CpuDeployedQueue": true,
}

// Scan walks root, honoring an optional project-local ignore file
// (.flashignore.jsonc), and returns the discovered FunctionMetadata in a
// stable, file-then-name sorted order.
func Scan(root string) ([]FunctionMetadata, error) {
	ignore, err := loadIgnore(root)
	if err != nil {
		return nil, err
	}

	var out []FunctionMetadata
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if skipDir(rel) || matchesIgnore(ignore, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		if skipFile(filepath.Base(path)) || matchesIgnore(ignore, rel) {
			return nil
		}

		found, scanErr := scanFile(root, path)
		if scanErr != nil {
			util.Warn("discovery: skipping %s: %v", path, scanErr)
			return nil
		}
		out = append(out, found...)
		return nil
	})
	if err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
			"failed to walk project tree for discovery")
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FilePath != out[j].FilePath {
			return out[i].FilePath < out[j].FilePath
		}
		return out[i].FunctionName < out[j].FunctionName
	})
	return out, nil
}

func loadIgnore(root string) (*config.IgnoreFile, error) {
	f, err := config.LoadIgnoreFile(filepath.Join(root, ".flashignore.jsonc"))
	if err != nil {
		return nil, flasherrors.Wrap(err, flasherrors.CategoryConfiguration, flasherrors.CodeConfigInvalid,
			"failed to load .flashignore.jsonc")
	}
	return f, nil
}

func matchesIgnore(f *config.IgnoreFile, rel string) bool {
	if f == nil {
		return false
	}
	slashed := filepath.ToSlash(rel)
	for _, pattern := range f.Paths {
		if ok, err := filepath.Match(pattern, slashed); err == nil && ok {
			return true
		}
		// Also match against the base name, so a bare pattern like
		// "*_internal.go" matches regardless of directory depth.
		if ok, err := filepath.Match(pattern, filepath.Base(slashed)); err == nil && ok {
			return true
		}
	}
	return false
}

// skipDir excludes well-known non-source directories the same way the
// reference system's default ignore list skips virtualenvs and caches.
func skipDir(rel string) bool {
	base := filepath.Base(rel)
	switch base {
	case ".git", "vendor", "node_modules", "dist", "build", ".flash", ".runpod":
		return true
	}
	return false
}

// skipFile mirrors "`__init__.py`-exclusion": skip doc-only and generated
// files (spec §4.7, SPEC_FULL.md supplement).
func skipFile(base string) bool {
	if base == "doc.go" {
		return true
	}
	if strings.HasSuffix(base, "_generated.go") {
		return true
	}
	if strings.HasSuffix(base, "_test.go") {
		return true
	}
	return false
}

func scanFile(root, path string) ([]FunctionMetadata, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	modulePath := toModulePath(root, path)

	var out []FunctionMetadata
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		resourceType, recognized := registerFuncs[sel.Sel.Name]
		if !recognized {
			return true
		}

		meta, ok := metadataFromCall(file, call, resourceType, modulePath, path)
		if ok {
			out = append(out, meta)
		}
		return true
	})
	return out, nil
}

// metadataFromCall interprets one recognized registration call's argument
// list: name, the bound callable, and optional keyword-style trailing
// struct literal carrying method/path (spec §4.7's decorator kwargs).
func metadataFromCall(file *ast.File, call *ast.CallExpr, resourceType, modulePath, path string) (FunctionMetadata, bool) {
	if len(call.Args) < 2 {
		return FunctionMetadata{}, false
	}

	configVar := identName(call.Args[0])
	funcIdent, funcName, isClass := resolveCallable(call.Args[1])
	if funcName == "" {
		return FunctionMetadata{}, false
	}

	meta := FunctionMetadata{
		FunctionName:       funcName,
		ModulePath:         modulePath,
		FilePath:           path,
		ResourceConfigName: configVar,
		ResourceType:       resourceType,
		IsClass:            isClass,
		IsLoadBalanced:     loadBalancedTypes[resourceType],
		IsLiveResource:     liveResourceTypes[resourceType],
		ConfigVariable:     configVar,
	}

	if len(call.Args) >= 3 {
		if method, path, ok := httpOptions(call.Args[2]); ok {
			meta.HTTPMethod = method
			meta.HTTPPath = path
		}
	}
	meta.IsLBRouteHandler = meta.HTTPMethod != "" && meta.HTTPPath != ""

	if decl := findFuncDecl(file, funcIdent); decl != nil {
		meta.IsAsync = usesGoroutineOrChannel(decl)
		meta.Params = paramNames(decl)
		meta.CallTargets = callTargets(decl)
	}

	return meta, true
}

func identName(e ast.Expr) string {
	if id, ok := e.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

// resolveCallable accepts either a bare function identifier or a
// method-value expression (`(*Worker).Handle`-equivalent selector),
// returning the bound name and whether it is a class (struct-method) bind.
func resolveCallable(e ast.Expr) (ident, name string, isClass bool) {
	switch v := e.(type) {
	case *ast.Ident:
		return v.Name, v.Name, false
	case *ast.SelectorExpr:
		base := identName(v.X)
		return v.Sel.Name, base + "." + v.Sel.Name, true
	}
	return "", "", false
}

// httpOptions reads a `discovery.Route{Method: "...", Path: "..."}`-style
// composite literal, the struct-literal stand-in for keyword decorator
// arguments (method, path) in the reference system.
func httpOptions(e ast.Expr) (method, path string, ok bool) {
	lit, isLit := e.(*ast.CompositeLit)
	if !isLit {
		return "", "", false
	}
	for _, elt := range lit.Elts {
		kv, isKV := elt.(*ast.KeyValueExpr)
		if !isKV {
			continue
		}
		key := identName(kv.Key)
		val := stringLit(kv.Value)
		switch key {
		case "Method":
			method = val
		case "Path":
			path = val
		}
	}
	if method == "" && path == "" {
		return "", "", false
	}
	return method, path, true
}

func stringLit(e ast.Expr) string {
	if bl, ok := e.(*ast.BasicLit); ok && bl.Kind == token.STRING {
		s := bl.Value
		return strings.Trim(s, `"`+"`")
	}
	return ""
}

func findFuncDecl(file *ast.File, name string) *ast.FuncDecl {
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if fd.Name.Name == name {
			return fd
		}
	}
	return nil
}

func paramNames(fd *ast.FuncDecl) []string {
	var names []string
	if fd.Type.Params == nil {
		return names
	}
	for _, field := range fd.Type.Params.List {
		if len(field.Names) == 0 {
			names = append(names, "_")
			continue
		}
		for _, n := range field.Names {
			names = append(names, n.Name)
		}
	}
	return names
}

// callTargets returns every bare identifier used as a Call expression's
// function target inside fd's body, deduplicated but unsorted. Selector
// calls (`a.b()`) are intentionally excluded: only a direct-name call can
// plausibly be a reference to another registered callable (spec §4.15
// step 1's caveat carried into the static scan).
func callTargets(fd *ast.FuncDecl) []string {
	if fd.Body == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		if id, ok := call.Fun.(*ast.Ident); ok && !seen[id.Name] {
			seen[id.Name] = true
			out = append(out, id.Name)
		}
		return true
	})
	return out
}

// usesGoroutineOrChannel is a syntactic proxy for "is this meant to be
// awaited", since Go has no async/await keyword: a body that launches
// goroutines or does channel I/O is treated the way the reference system
// treats an `async def`.
func usesGoroutineOrChannel(fd *ast.FuncDecl) bool {
	async := false
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.GoStmt, *ast.SendStmt:
			async = true
		}
		return true
	})
	return async
}

// toModulePath applies the pure textual rule from spec §4.7: slashes
// become dots for the module path (the Go-import-path analogue of a
// dotted Python module name), relative to root.
func toModulePath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".go")
	return strings.ReplaceAll(rel, "/", ".")
}

// URLPrefix applies the same rule's URL-branch: slashes stay slashes,
// hyphens are preserved (unlike the identifier branch, which would
// replace them with underscores).
func URLPrefix(modulePath string) string {
	return "/" + strings.ReplaceAll(modulePath, ".", "/")
}
