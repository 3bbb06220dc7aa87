package preview

import (
	"fmt"
	"sort"

	"github.com/compose-spec/compose-go/v2/types"

	"github.com/runpod/flash/internal/docker"
	"github.com/runpod/flash/internal/resource"
)

// basePort is the first host port assigned to a previewed resource;
// later resources claim consecutive ports so a project with several
// endpoints previews as a coherent local stack without collisions.
const basePort = 8100

// BuildProject assembles an in-memory compose project with one service
// per manifest resource, the way `flash preview` turns a whole project
// into a local stack instead of simulating resources one at a time.
// Resources without an image_ref (template-only or live/deployed
// descriptors) are skipped; they have nothing local to run.
func BuildProject(projectName string, resources map[string]*resource.Descriptor) (*types.Project, error) {
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)

	services := types.Services{}
	port := basePort
	for _, name := range names {
		desc := resources[name]
		if desc.ImageRef == "" || desc.Class.IsLiveResource() {
			continue
		}

		configHash, err := desc.ConfigHash()
		if err != nil {
			return nil, err
		}

		labels := docker.Labels{
			Managed:     true,
			EnvKey:      ResourceEnvKey(projectName, name),
			ConfigHash:  configHash,
			Plan:        docker.PlanCompose,
			Version:     docker.LabelSchemaVersion,
			ProjectName: projectName,
		}

		env := types.MappingWithEquals{}
		for k, v := range desc.Env {
			val := v
			env[k] = &val
		}

		services[name] = types.ServiceConfig{
			Name:        name,
			Image:       desc.ImageRef,
			Environment: env,
			Labels:      types.Labels(labels.ToMap()),
			Ports: []types.ServicePortConfig{
				{Target: 8000, Published: fmt.Sprintf("%d", port), Protocol: "tcp"},
			},
		}
		port++
	}

	return &types.Project{
		Name:     composeProjectName(projectName),
		Services: services,
	}, nil
}

// ServiceNames returns the previewed service names in deterministic order.
func ServiceNames(project *types.Project) []string {
	names := make([]string, 0, len(project.Services))
	for name := range project.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func composeProjectName(projectName string) string {
	return "flash_" + projectName
}
