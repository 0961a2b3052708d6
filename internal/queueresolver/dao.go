package queueresolver

import (
	"context"
	"strings"

	"github.com/oriys/snapshotbuilder/internal/cache"
	"github.com/oriys/snapshotbuilder/internal/metrics"
)

// TargetType distinguishes the two queue-map row kinds (§4.6).
type TargetType string

const (
	TargetFunction TargetType = "FUNCTION"
	TargetTopic    TargetType = "TOPIC"
)

// QueueMapRow is one persisted queueName -> (targetType, targetName) entry.
type QueueMapRow struct {
	QueueName  string
	TargetType TargetType
	TargetName string
}

// QueueMapStore is the persistence boundary for the §4.6 DAO-backed
// resolver variant: a reverse lookup from (targetType, lowercased name) to
// queue name.
type QueueMapStore interface {
	Lookup(ctx context.Context, targetType TargetType, lowerName string) (string, bool, error)
}

// DAOResolver implements Resolver backed by a persistent key-value table
// instead of an HTTP endpoint. It satisfies the identical public contract
// and fallback rule as HTTPResolver; the retry/endpoint clauses of §4.2 do
// not apply since a store lookup has no transient network failure mode to
// retry against.
type DAOResolver struct {
	store QueueMapStore
	cache cache.Cache
}

// NewDAOResolver constructs a DAOResolver.
func NewDAOResolver(store QueueMapStore, c cache.Cache) *DAOResolver {
	return &DAOResolver{store: store, cache: c}
}

func (r *DAOResolver) ClearCache(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

func (r *DAOResolver) ResolveForFunction(ctx context.Context, name string) string {
	return r.resolve(ctx, "function", TargetFunction, name)
}

func (r *DAOResolver) ResolveForTopic(ctx context.Context, name string) string {
	return r.resolve(ctx, "topic", TargetTopic, name)
}

func (r *DAOResolver) resolve(ctx context.Context, kind string, targetType TargetType, name string) string {
	fallback := fallbackName(name)
	lower := strings.ToLower(name)

	if cached, err := r.cache.Get(ctx, lower); err == nil {
		metrics.RecordQueueLookup(kind, "cache_hit")
		return string(cached)
	}

	queueName, found, err := r.store.Lookup(ctx, targetType, lower)
	if err != nil || !found {
		metrics.RecordQueueLookup(kind, "error")
		return fallback
	}

	queueName = postProcess(queueName)
	if queueName == "" {
		metrics.RecordQueueLookup(kind, "empty")
		return fallback
	}

	_ = r.cache.Set(ctx, lower, []byte(queueName), 0)
	metrics.RecordQueueLookup(kind, "resolved")
	return queueName
}

var _ Resolver = (*DAOResolver)(nil)
var _ Resolver = (*HTTPResolver)(nil)
