// Package stub implements the Stub Factory (C12), Queue Stub (C13), and
// LB Stub (C14): the client-side callables that stand in for a remote
// endpoint's original function, so that calling code invokes what looks
// like a plain local call but actually submits a job (queue variants) or
// issues an HTTP request (load-balanced variants) against the deployed
// resource (spec §4.12-§4.14).
package stub

import (
	"context"
	"encoding/json"

	"github.com/runpod/flash/internal/codec"
	"github.com/runpod/flash/internal/controlplane"
	"github.com/runpod/flash/internal/credctx"
	"github.com/runpod/flash/internal/depresolver"
	"github.com/runpod/flash/internal/dispatch"
	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/resource"
	"github.com/runpod/flash/internal/resourcemanager"
)

// QueueStub calls a queue-serverless resource's Generic Handler by
// submitting a job and waiting synchronously for its result (spec
// §4.13).
type QueueStub struct {
	Manager *resourcemanager.Manager
	Client  *controlplane.Client
}

// Call resolves the target descriptor's endpoint (deploying or updating
// it first if needed), submits a job for funcName with the given
// arguments, and decodes its result. deps are already-resolved remote
// dependencies (from depresolver.Resolve) to inline as the job's
// Dependencies list so the remote worker's own Dependency Resolver pass
// can skip re-discovering them (spec §4.15 step 5).
func (s *QueueStub) Call(ctx context.Context, d *resource.Descriptor, funcName string, args []any, kwargs map[string]any, deps []depresolver.RemoteDependency) (any, error) {
	deployed, err := s.Manager.GetOrDeploy(ctx, d)
	if err != nil {
		return nil, flasherrors.Wrapf(err, flasherrors.CategoryControlPlane, flasherrors.CodeControlPlaneHTTP,
			"failed to provision endpoint for %s", funcName)
	}

	ctx = propagateCredential(ctx)

	encodedArgs, err := codec.EncodePositional(args)
	if err != nil {
		return nil, err
	}
	encodedKwargs, err := codec.EncodeNamed(kwargs)
	if err != nil {
		return nil, err
	}

	req := dispatch.JobRequest{
		FunctionName:        funcName,
		Args:                encodedArgs,
		Kwargs:              encodedKwargs,
		ExecutionType:       dispatch.ExecutionFunction,
		SerializationFormat: dispatch.FormatCodec,
		Dependencies:        dependencyNames(deps),
	}

	submitResp, err := s.Client.RunSync(ctx, deployed.Id, req)
	if err != nil {
		return nil, flasherrors.Wrapf(err, flasherrors.CategoryControlPlane, flasherrors.CodeControlPlaneHTTP,
			"job submission failed for %s", funcName)
	}

	jobResp, err := decodeJobResponse(submitResp)
	if err != nil {
		return nil, err
	}
	if !jobResp.Success {
		return nil, flasherrors.RemoteExecution(jobResp.Error)
	}

	return codec.DecodeOne(jobResp.Result)
}

// decodeJobResponse re-marshals the envelope's untyped Output map into a
// dispatch.JobResponse; the control plane forwards the Generic Handler's
// response verbatim as JSON, so a marshal/unmarshal round trip is the
// simplest faithful reshape.
func decodeJobResponse(resp controlplane.JobSubmitResponse) (dispatch.JobResponse, error) {
	if resp.Error != "" {
		return dispatch.JobResponse{}, flasherrors.ControlPlane(flasherrors.CodeControlPlaneHTTP, resp.Error, "")
	}
	raw, err := json.Marshal(resp.Output)
	if err != nil {
		return dispatch.JobResponse{}, flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationDecode,
			"failed to re-marshal job output")
	}
	var jobResp dispatch.JobResponse
	if err := json.Unmarshal(raw, &jobResp); err != nil {
		return dispatch.JobResponse{}, flasherrors.Wrap(err, flasherrors.CategorySerialization, flasherrors.CodeSerializationDecode,
			"failed to decode job response")
	}
	return jobResp, nil
}

// propagateCredential forwards the caller's active credential (spec
// §4.17) onto the control-plane call, if one is set in ctx.
func propagateCredential(ctx context.Context) context.Context {
	if key := credctx.Get(ctx); key != "" {
		return controlplane.WithCallerKey(ctx, key)
	}
	return ctx
}

func dependencyNames(deps []depresolver.RemoteDependency) []string {
	if len(deps) == 0 {
		return nil
	}
	names := make([]string, len(deps))
	for i, d := range deps {
		names[i] = d.Name
	}
	return names
}
