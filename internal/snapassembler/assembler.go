// Package snapassembler drives one build: load scans, filter failures,
// order services, walk entry points, and emit the composite Snapshot
// (§4.5). Grounded on oriys/nova's orchestration style in
// internal/workflow (a driver that sequences pure helpers and a
// persistence boundary) but built from scratch around this domain's
// seven-step algorithm.
package snapassembler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oriys/snapshotbuilder/internal/domain"
	"github.com/oriys/snapshotbuilder/internal/metrics"
	"github.com/oriys/snapshotbuilder/internal/observability"
	"github.com/oriys/snapshotbuilder/internal/queueresolver"
	"github.com/oriys/snapshotbuilder/internal/scanstore"
	"github.com/oriys/snapshotbuilder/internal/topo"
	"github.com/oriys/snapshotbuilder/internal/transitive"
)

// Assembler is the SnapshotAssembler (E). One Assembler may serve
// concurrent builds so long as its Store and Queue are themselves safe
// for concurrent use; each Build call constructs its own TransitiveResolver
// table and added-ref set, per §5's no-shared-mutable-state rule.
type Assembler struct {
	store scanstore.Store
	queue queueresolver.Resolver
}

// New returns an Assembler backed by store for scan/failure lookups and
// queue for async-function/topic resolution.
func New(store scanstore.Store, queue queueresolver.Resolver) *Assembler {
	return &Assembler{store: store, queue: queue}
}

// Build executes the §4.5 seven-step algorithm and returns the resulting
// Snapshot, or a fatal error (InvalidInput, MissingScan, CyclicDependency).
func (a *Assembler) Build(ctx context.Context, req *domain.BuildRequest) (*domain.Snapshot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "snapshotbuilder.build",
		observability.AttrAppName.String(req.AppName))
	defer span.End()

	snap, err := a.build(ctx, req)
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	}
	observability.SetSpanOK(span)
	return snap, nil
}

func (a *Assembler) build(ctx context.Context, req *domain.BuildRequest) (*domain.Snapshot, error) {
	start := time.Now()
	if err := a.queue.ClearCache(ctx); err != nil {
		return nil, fmt.Errorf("clear queue cache: %w", err)
	}

	snap := domain.NewSnapshot(req.AppName)

	remaining := make([]domain.ServiceRef, 0, len(req.Services))
	for _, svc := range req.Services {
		failure, err := a.store.Failure(ctx, svc.ServiceID, svc.GitCommitHash)
		if err == nil {
			snap.FailedServices = append(snap.FailedServices, *failure)
			snap.Warnings = append(snap.Warnings, fmt.Sprintf(
				"service %s excluded: %s", svc.ServiceID, failure.ErrorMessage))
			metrics.RecordFailedService(string(failure.ErrorType))
			continue
		}
		if !errors.Is(err, scanstore.ErrNotFound) {
			return nil, fmt.Errorf("look up failure record for %s@%s: %w", svc.ServiceID, svc.GitCommitHash, err)
		}
		remaining = append(remaining, svc)
	}

	scans := make(map[string]*domain.ProcessedScan, len(remaining))
	declaredDeps := make(map[string][]string, len(remaining))
	seedOrder := make([]string, 0, len(remaining))
	for _, svc := range remaining {
		scan, err := a.store.ProcessedScan(ctx, svc.ServiceID, svc.GitCommitHash)
		if errors.Is(err, scanstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s@%s", domain.ErrMissingScan, svc.ServiceID, svc.GitCommitHash)
		}
		if err != nil {
			return nil, fmt.Errorf("load processed scan for %s@%s: %w", svc.ServiceID, svc.GitCommitHash, err)
		}
		scans[svc.ServiceID] = scan
		declaredDeps[svc.ServiceID] = scan.Dependencies
		seedOrder = append(seedOrder, svc.ServiceID)
	}

	order, err := topo.Order(seedOrder, scans, declaredDeps)
	if err != nil {
		var cyc *domain.CyclicDependencyError
		if errors.As(err, &cyc) {
			metrics.RecordCycleDetection()
		}
		return nil, err
	}

	table := transitive.BuildTable(scans)
	resolver := transitive.New(table, a.queue)

	commitByService := make(map[string]string, len(remaining))
	for _, svc := range remaining {
		commitByService[svc.ServiceID] = svc.GitCommitHash
	}

	addedRefs := make(map[string]bool)

	for _, serviceID := range order {
		scan := scans[serviceID]
		svcStart := time.Now()
		svcCtx, svcSpan := observability.StartSpan(ctx, "snapshotbuilder.process_service",
			observability.AttrServiceID.String(serviceID),
			observability.AttrGitCommit.String(commitByService[serviceID]))
		if scan.IsUIService {
			a.processUIService(svcCtx, req.AppName, serviceID, scan, resolver, snap)
		} else {
			a.processRegularService(svcCtx, req.AppName, scan, resolver, snap, addedRefs)
		}
		svcSpan.SetAttributes(observability.AttrDurationMs.Int64(time.Since(svcStart).Milliseconds()))
		observability.SetSpanOK(svcSpan)
		svcSpan.End()
	}

	snap.IsComplete = len(snap.FailedServices) == 0

	outcome := "complete"
	switch {
	case len(scans) == 0:
		outcome = "failed"
	case !snap.IsComplete:
		outcome = "partial"
	}
	metrics.RecordBuild(outcome, time.Since(start).Milliseconds())

	return snap, nil
}

func (a *Assembler) processRegularService(
	ctx context.Context,
	appName string,
	scan *domain.ProcessedScan,
	resolver *transitive.Resolver,
	snap *domain.Snapshot,
	addedRefs map[string]bool,
) {
	for _, functionName := range sortedKeys(scan.FunctionMappings) {
		entry, ok := snap.FunctionPool[functionName]
		if !ok {
			entry = domain.NewFunctionPoolEntry(appName)
			snap.FunctionPool[functionName] = entry
		}
		entry.App = appName

		deps := scan.DependenciesFor(functionName)
		for _, name := range deps.Functions.Items() {
			entry.AddChild(domain.NewFunctionChildRef(name))
		}
		for _, name := range deps.AsyncFunctions.Items() {
			queueName := a.queue.ResolveForFunction(ctx, name)
			entry.AddChild(domain.NewAsyncFunctionChildRef(name, queueName))
		}
		for _, topicName := range deps.Topics.Items() {
			queueName := a.queue.ResolveForTopic(ctx, topicName)
			entry.AddChild(domain.NewTopicChildRef(topicName, queueName))
		}

		visited := make(map[string]bool)
		for _, sc := range deps.ServiceCalls {
			resolver.Expand(ctx, sc, entry, visited)
		}

		lowered := strings.ToLower(functionName)
		if !addedRefs[lowered] {
			snap.AppTemplate.Root.AddChild(domain.NewFunctionRefNode(functionName))
			addedRefs[lowered] = true
		}
	}
}

func (a *Assembler) processUIService(
	ctx context.Context,
	appName string,
	serviceID string,
	scan *domain.ProcessedScan,
	resolver *transitive.Resolver,
	snap *domain.Snapshot,
) {
	_ = appName
	container := domain.NewUIServiceContainerNode(serviceID)

	for _, methodName := range sortedKeys(scan.UIMethodMappings) {
		methodNode := domain.NewUIServiceMethodNode(methodName)
		deps := scan.DependenciesFor(methodName)

		for _, name := range deps.Functions.Items() {
			methodNode.AddChild(domain.NewFunctionRefNode(name))
		}
		for _, name := range deps.AsyncFunctions.Items() {
			queueName := a.queue.ResolveForFunction(ctx, name)
			methodNode.AddChild(domain.NewAsyncFunctionRefNode(name, queueName))
		}
		for _, topicName := range deps.Topics.Items() {
			queueName := a.queue.ResolveForTopic(ctx, topicName)
			methodNode.AddChild(domain.NewTopicPublishRefNode(topicName, queueName))
		}

		// §9 asymmetry: a UI method's service-calls expand into a
		// standalone sink and translate back into TemplateNodes, rather
		// than landing in the function pool the way a regular service's
		// transitive leaves do.
		sink := domain.NewChildRefList()
		visited := make(map[string]bool)
		for _, sc := range deps.ServiceCalls {
			resolver.Expand(ctx, sc, sink, visited)
		}
		for _, child := range sink.Children {
			methodNode.AddChild(child.AsTemplateNode())
		}

		container.AddChild(methodNode)
	}

	snap.AppTemplate.Root.AddChild(container)
}

// sortedKeys returns m's keys in a fixed deterministic order. §5 only
// requires entry points be processed in a stable order for a given input,
// not the mapping's original declaration order, so lexical order satisfies
// that without needing an insertion-ordered map type for FunctionMappings.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
