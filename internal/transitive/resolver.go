// Package transitive expands cross-service calls into their ultimate leaf
// dependencies (§4.3), walking the per-build transitive table T with
// cycle protection on the (serviceId, interfaceMethod) pair. Grounded on
// the same pure-function DFS-over-a-flat-index shape as internal/topo —
// no shared mutable ownership, per §9's design note on cyclic structures.
package transitive

import (
	"context"

	"github.com/oriys/snapshotbuilder/internal/domain"
	"github.com/oriys/snapshotbuilder/internal/observability"
	"github.com/oriys/snapshotbuilder/internal/queueresolver"
)

// Table is the fixed-for-one-build index T: serviceId -> interfaceMethod
// -> Dependencies, built once at build start from every loaded
// ProcessedScan's methodImplMap + publicMethodDependencies.
type Table map[string]map[string]*domain.Dependencies

// BuildTable constructs T from the selected ProcessedScans (§4.3
// Initialization).
func BuildTable(scans map[string]*domain.ProcessedScan) Table {
	t := make(Table, len(scans))
	for serviceID, scan := range scans {
		if scan == nil {
			continue
		}
		for interfaceMethod, implMethod := range scan.MethodImplMap {
			deps, ok := scan.PublicMethodDependencies[implMethod]
			if !ok || deps.IsEmpty() {
				continue
			}
			if t[serviceID] == nil {
				t[serviceID] = make(map[string]*domain.Dependencies)
			}
			t[serviceID][interfaceMethod] = deps
		}
	}
	return t
}

// Resolver expands ServiceCalls against a fixed Table, consulting a
// QueueResolver for async-function and topic queue names as it discovers
// leaves.
type Resolver struct {
	table Table
	queue queueresolver.Resolver
}

// New returns a Resolver bound to table and queue for the duration of one
// build.
func New(table Table, queue queueresolver.Resolver) *Resolver {
	return &Resolver{table: table, queue: queue}
}

// Expand performs the §4.3 depth-first expansion of a single top-level
// ServiceCall into sink, short-circuiting on any (serviceId, method) pair
// already present in visited (cycle protection; shared across all calls in
// one expansion so independent top-level calls don't re-walk the same
// sub-graph, though re-entry protection is keyed only by pair identity so
// this is safe to share across sibling calls too).
func (r *Resolver) Expand(ctx context.Context, call domain.ServiceCall, sink domain.ChildRefSink, visited map[string]bool) {
	ctx, span := observability.StartSpan(ctx, "snapshotbuilder.transitive.expand",
		observability.AttrServiceID.String(call.TargetServiceID),
		observability.AttrEntryPoint.String(call.TargetInterfaceMethod))
	defer span.End()

	r.expand(ctx, call.TargetServiceID, call.TargetInterfaceMethod, sink, visited)
	observability.SetSpanOK(span)
}

func (r *Resolver) expand(ctx context.Context, serviceID, interfaceMethod string, sink domain.ChildRefSink, visited map[string]bool) {
	key := serviceID + "::" + interfaceMethod
	if visited[key] {
		return
	}
	visited[key] = true

	methods, ok := r.table[serviceID]
	if !ok {
		return // dangling call: callee not in the build set, no error (§7)
	}
	deps, ok := methods[interfaceMethod]
	if !ok {
		return
	}

	for _, name := range deps.Functions.Items() {
		sink.AddChild(domain.NewFunctionChildRef(name))
	}
	for _, name := range deps.AsyncFunctions.Items() {
		queueName := r.queue.ResolveForFunction(ctx, name)
		sink.AddChild(domain.NewAsyncFunctionChildRef(name, queueName))
	}
	for _, topic := range deps.Topics.Items() {
		queueName := r.queue.ResolveForTopic(ctx, topic)
		sink.AddChild(domain.NewTopicChildRef(topic, queueName))
	}

	for _, sc := range deps.ServiceCalls {
		r.expand(ctx, sc.TargetServiceID, sc.TargetInterfaceMethod, sink, visited)
	}
}
