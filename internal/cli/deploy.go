package cli

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/runpod/flash/internal/controlplane"
	"github.com/runpod/flash/internal/credentials"
	"github.com/runpod/flash/internal/depresolver"
	"github.com/runpod/flash/internal/deployconfig"
	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/manifest"
	"github.com/runpod/flash/internal/output"
	"github.com/runpod/flash/internal/resource"
	"github.com/runpod/flash/internal/resourcemanager"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Build the project and deploy its resources to the control plane",
	Long: `Run the same build "flash build" performs, then reconcile every
declared resource against the control plane: resources not yet deployed
are created, resources whose configuration changed are updated, and
unchanged resources are left alone.`,
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	m, paths, err := build()
	if err != nil {
		return err
	}

	key, err := credentials.GetAPIKey(projectPath)
	if err != nil {
		return err
	}
	if key == "" {
		return flasherrors.Auth(flasherrors.CodeAuthMissingKey, "no API key available", paths.CredentialsFile)
	}

	doc, err := deployconfig.Load(filepath.Join(projectPath, buildResourcesFile))
	if err != nil {
		return err
	}
	descriptors, err := doc.Descriptors()
	if err != nil {
		return err
	}

	client := controlplane.New(controlplane.ResolveBaseURL(), controlplane.ModeLong, true, controlplane.WithAPIKey(key))
	manager, err := resourcemanager.New(paths.RegistryFile, resourcemanager.NewControlPlaneDeployer(client))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(m.Resources))
	for name := range m.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	registry := buildDependencyRegistry(m, descriptors)

	pipeline := output.NewPipeline(names)
	pipeline.Start()

	for _, name := range names {
		pipeline.Stage(name)

		desc, ok := descriptors[name]
		if !ok {
			output.Warning("resource %s has no deployment declaration in resources.yaml, skipping", name)
			continue
		}

		if err := provisionDependencies(ctx, m, registry, manager, name); err != nil {
			pipeline.Fail(err.Error())
			return err
		}

		deployed, err := manager.GetOrDeploy(ctx, desc)
		if err != nil {
			pipeline.Fail(err.Error())
			return err
		}
		m.SetEndpoint(name, deployed.Id)
		output.Success("%s -> %s", name, deployed.Id)
	}

	pipeline.Complete()
	return nil
}

// buildDependencyRegistry maps every registered function name to the
// dependency-resolver Candidate for the resource that owns it, so
// provisionDependencies can look a caller's call targets up directly.
func buildDependencyRegistry(m *manifest.Manifest, descriptors map[string]*resource.Descriptor) map[string]depresolver.Candidate {
	registry := make(map[string]depresolver.Candidate, len(m.FunctionRegistry))
	for fnName, resourceName := range m.FunctionRegistry {
		desc, ok := descriptors[resourceName]
		if !ok {
			continue
		}
		registry[fnName] = depresolver.Candidate{Name: fnName, Descriptor: desc}
	}
	return registry
}

// provisionDependencies ensures every resource that resourceName's
// functions statically call, by name, is deployed before resourceName
// itself is — so the Service Registry has a live endpoint to resolve to
// the first time resourceName actually makes the call (spec §4.14-§4.16).
func provisionDependencies(ctx context.Context, m *manifest.Manifest, registry map[string]depresolver.Candidate, manager *resourcemanager.Manager, resourceName string) error {
	rc, ok := m.Resources[resourceName]
	if !ok {
		return nil
	}

	var callTargets []string
	for _, fn := range rc.Functions {
		callTargets = append(callTargets, fn.CallTargets...)
	}
	if len(callTargets) == 0 {
		return nil
	}

	deps, err := depresolver.Resolve(ctx, callTargets, registry, manager)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		output.Info("%s depends on %s -> %s", resourceName, dep.Name, dep.EndpointID)
	}
	return nil
}
