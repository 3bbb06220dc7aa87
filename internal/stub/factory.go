package stub

import (
	"context"

	"github.com/runpod/flash/internal/depresolver"
	"github.com/runpod/flash/internal/resource"
)

// Func is the uniform shape every stub exposes, regardless of whether it
// forwards to a Queue Stub or an LB Stub underneath (spec §4.12).
type Func func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// Factory builds the right kind of stub for a resource descriptor,
// hiding the queue-vs-load-balanced branch from calling code (spec
// §4.12 Stub Factory).
type Factory struct {
	Queue *QueueStub
	LB    *LBStub
}

// New builds a Factory backed by the given queue and LB stubs.
func New(queue *QueueStub, lb *LBStub) *Factory {
	return &Factory{Queue: queue, LB: lb}
}

// ForFunction returns a Func that, when invoked, routes funcName's call
// against d's resource through whichever transport its class requires.
// deps are any already-resolved cross-endpoint dependencies (spec
// §4.15) to attach to a queue-variant call; LB calls have no equivalent
// slot since the remote side re-resolves its own dependencies per
// request.
func (f *Factory) ForFunction(d *resource.Descriptor, funcName, httpMethod, httpPath string, deps []depresolver.RemoteDependency) Func {
	if d.Class.IsLoadBalanced() {
		resourceName, _ := d.ResourceID()
		return func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return f.LB.Call(ctx, resourceName, httpMethod, httpPath, args, kwargs)
		}
	}
	return func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		return f.Queue.Call(ctx, d, funcName, args, kwargs, deps)
	}
}
