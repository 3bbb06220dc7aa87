// Package depresolver implements the Dependency Resolver (C15): given a
// resource's statically discovered call targets and the set of annotated
// callables known in the project, it finds direct-name calls to other
// resources' callables and provisions their endpoints so the Service
// Registry has somewhere to route to at runtime (spec §4.15).
//
// The reference system additionally synthesizes, at resolve time, stub
// source to inline into the caller's outbound job payload — a
// Python-specific trick that replaces the callee's global name with a
// stub that forwards to the provisioned endpoint. Go has no dynamic
// compile-and-rebind step equivalent to that (user code is already
// statically compiled into the handler binary by the time depresolver
// runs), so this package's role is narrowed to the part that still
// applies in a compiled system: make sure the callee is deployed before
// the caller needs it.
package depresolver

import (
	"context"
	"sort"

	flasherrors "github.com/runpod/flash/internal/errors"
	"github.com/runpod/flash/internal/resource"
	"github.com/runpod/flash/internal/resourcemanager"
)

// Candidate is one annotated callable known at resolve time: the
// project-wide side-table the reference system would populate from
// decorator registration (spec §9 "Decorators as metadata").
type Candidate struct {
	Name               string
	Descriptor         *resource.Descriptor
	Dependencies       []string
	SystemDependencies []string
}

// RemoteDependency is the C15 output record (spec §3): a candidate that
// was resolved and provisioned so the caller can reach it by endpoint ID.
type RemoteDependency struct {
	Name               string
	EndpointID         string
	Dependencies       []string
	SystemDependencies []string
}

// Resolve matches callTargets (the caller's statically discovered
// bare-name call targets, from discovery.FunctionMetadata.CallTargets)
// against registry, and provisions each match's descriptor via
// manager.GetOrDeploy. Only direct-name calls are considered; selector
// calls (`a.b()`) never reach this package, since the discovery scan
// that produces callTargets already excludes them (spec §4.15 caveats).
func Resolve(ctx context.Context, callTargets []string, registry map[string]Candidate, manager *resourcemanager.Manager) ([]RemoteDependency, error) {
	var candidateNames []string
	for _, n := range callTargets {
		if _, ok := registry[n]; ok {
			candidateNames = append(candidateNames, n)
		}
	}
	sort.Strings(candidateNames)
	candidateNames = dedupe(candidateNames)

	deps := make([]RemoteDependency, 0, len(candidateNames))
	for _, name := range candidateNames {
		cand := registry[name]
		if cand.Descriptor == nil {
			continue
		}
		deployed, err := manager.GetOrDeploy(ctx, cand.Descriptor)
		if err != nil {
			// Failure to provision any dependency propagates as a hard
			// error (spec §4.15 caveats).
			return nil, flasherrors.Wrapf(err, flasherrors.CategoryControlPlane, flasherrors.CodeControlPlaneHTTP,
				"failed to provision dependency %s", name)
		}

		deps = append(deps, RemoteDependency{
			Name:               name,
			EndpointID:         deployed.Id,
			Dependencies:       cand.Dependencies,
			SystemDependencies: cand.SystemDependencies,
		})
	}
	return deps, nil
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := in[:0]
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
