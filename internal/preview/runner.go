// Package preview drives local container execution for `flash run` and
// `flash preview`: simulating one or several deployed resources on the
// developer's own machine so generated handlers can be smoke-tested
// without touching the control plane.
package preview

import (
	"context"
	"fmt"

	"github.com/runpod/flash/internal/docker"
	"github.com/runpod/flash/internal/resource"
	"github.com/runpod/flash/internal/state"
)

// Runner drives a single resource's container through the lifecycle
// state machine (internal/state), the way `flash run` previews exactly
// one resource at a time during iterative development.
type Runner struct {
	Docker  *docker.Client
	Manager *state.Manager
}

// NewRunner opens a Docker client and wraps it in a state Manager.
func NewRunner() (*Runner, error) {
	client, err := docker.NewClient()
	if err != nil {
		return nil, err
	}
	return &Runner{Docker: client, Manager: state.NewManager(client)}, nil
}

// ResourceEnvKey derives the stable state-manager key for one resource
// within a project, scoping ComputeEnvKey to project+resource instead of
// just the project root so sibling resources don't collide.
func ResourceEnvKey(projectPath, resourceName string) string {
	return state.ComputeEnvKey(projectPath + "::" + resourceName)
}

// RunOptions configures a single-resource run.
type RunOptions struct {
	ProjectName string
	ProjectPath string
	HostPort    int // 0 leaves the container port unpublished
	Env         []string
}

// Up ensures desc's container is running locally, rebuilding it if its
// descriptor's config hash has drifted since the last run.
func (r *Runner) Up(ctx context.Context, desc *resource.Descriptor, opts RunOptions) (*state.ContainerInfo, error) {
	if desc.ImageRef == "" {
		return nil, fmt.Errorf("resource %q has no image_ref; local preview requires a built image", desc.Name)
	}

	envKey := ResourceEnvKey(opts.ProjectPath, desc.Name)
	configHash, err := desc.ConfigHash()
	if err != nil {
		return nil, err
	}

	current, info, err := r.Manager.GetStateWithHashCheck(ctx, envKey, configHash)
	if err != nil {
		return nil, err
	}

	if current.NeedsRecreate() {
		if err := r.Manager.Cleanup(ctx, envKey); err != nil {
			return nil, err
		}
		current = state.StateAbsent
		info = nil
	}

	if current == state.StateAbsent {
		if err := r.Docker.PullImage(ctx, desc.ImageRef); err != nil {
			return nil, err
		}

		labels := docker.Labels{
			Managed:     true,
			EnvKey:      envKey,
			ConfigHash:  configHash,
			Plan:        docker.PlanSingle,
			Version:     docker.LabelSchemaVersion,
			Primary:     true,
			ProjectName: opts.ProjectName,
		}

		var ports []string
		if opts.HostPort > 0 {
			ports = []string{fmt.Sprintf("%d:8000", opts.HostPort)}
		}

		id, err := r.Docker.CreateContainer(ctx, docker.CreateContainerOptions{
			Name:   containerName(opts.ProjectName, desc.Name),
			Image:  desc.ImageRef,
			Labels: labels.ToMap(),
			Env:    opts.Env,
			Ports:  ports,
		})
		if err != nil {
			return nil, err
		}
		if err := r.Docker.StartContainer(ctx, id); err != nil {
			return nil, err
		}
		current, info, err = r.Manager.GetState(ctx, envKey)
		if err != nil {
			return nil, err
		}
	} else if current == state.StateCreated {
		if info == nil {
			return nil, fmt.Errorf("resource %q is in state CREATED but no container info was found", desc.Name)
		}
		if err := r.Docker.StartContainer(ctx, info.ID); err != nil {
			return nil, err
		}
	}

	return info, nil
}

// Down stops and removes desc's locally running container, if any.
func (r *Runner) Down(ctx context.Context, desc *resource.Descriptor, projectPath string) error {
	return r.Manager.Cleanup(ctx, ResourceEnvKey(projectPath, desc.Name))
}

// Status reports the current lifecycle state of desc's local container.
func (r *Runner) Status(ctx context.Context, desc *resource.Descriptor, projectPath string) (*state.Diagnostics, error) {
	return r.Manager.GetDiagnostics(ctx, ResourceEnvKey(projectPath, desc.Name))
}

func containerName(projectName, resourceName string) string {
	return fmt.Sprintf("flash-preview-%s-%s", projectName, resourceName)
}
