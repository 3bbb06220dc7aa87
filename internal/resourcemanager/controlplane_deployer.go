package resourcemanager

import (
	"context"

	"github.com/runpod/flash/internal/controlplane"
	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/resource"
)

// ControlPlaneDeployer implements Deployer against the real control
// plane (spec §2 data flow: "Resource Manager (C6) via Control Plane
// (C4)"), translating a Descriptor's fields into the GraphQL
// saveEndpoint mutation shape.
type ControlPlaneDeployer struct {
	Client *controlplane.Client
}

// NewControlPlaneDeployer builds a ControlPlaneDeployer over client.
func NewControlPlaneDeployer(client *controlplane.Client) *ControlPlaneDeployer {
	return &ControlPlaneDeployer{Client: client}
}

func (d *ControlPlaneDeployer) input(desc *resource.Descriptor) map[string]any {
	in := map[string]any{
		"name":        desc.Name,
		"class":       string(desc.Class),
		"imageName":   desc.ImageRef,
		"templateId":  desc.TemplateRef,
		"gpuIds":      desc.GPUProfile,
		"cpuFlavor":   desc.CPUProfile,
		"workersMin":  desc.WorkersMin,
		"workersMax":  desc.WorkersMax,
		"scalerType":  string(desc.Scaler),
		"flashboot":   desc.Flashboot,
		"env":         desc.Env,
	}
	if desc.Id != "" {
		in["id"] = desc.Id
	}
	return in
}

// Deploy creates the remote resource via saveEndpoint and records the
// assigned id on success.
func (d *ControlPlaneDeployer) Deploy(ctx context.Context, desc *resource.Descriptor) error {
	result, err := d.Client.SaveEndpoint(ctx, d.input(desc))
	if err != nil {
		return err
	}
	desc.SetID(result.ID)
	return nil
}

// Update reconciles drift by re-issuing saveEndpoint with the existing id.
func (d *ControlPlaneDeployer) Update(ctx context.Context, desc *resource.Descriptor) error {
	result, err := d.Client.SaveEndpoint(ctx, d.input(desc))
	if err != nil {
		return err
	}
	desc.SetID(result.ID)
	return nil
}

// Undeploy tears down the remote resource. Live, externally-managed
// classes (e.g. ClassDeployedQueue) were never created by this system and
// cannot be torn down by it either.
func (d *ControlPlaneDeployer) Undeploy(ctx context.Context, desc *resource.Descriptor) error {
	if !desc.CanUndeploy() {
		return flasherrors.NotImplementedOperation("undeploy", string(desc.Class))
	}
	return d.Client.DeleteEndpoint(ctx, desc.Id)
}
