// Package queueresolver resolves async-function and topic names to
// concrete queue identifiers (§4.2), backed by an HTTP lookup service with
// a cache and bounded, jittered retry policy. The HTTP client shape
// (context-scoped request, status-code branch, JSON body decode) is
// grounded on oriys/nova's internal/ai/ai.go Service.ListModels; the
// retry/cancellation semantics use cenkalti/backoff/v5's Permanent error
// wrapper the way the rest of the pack uses that module.
package queueresolver

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/oriys/snapshotbuilder/internal/cache"
	"github.com/oriys/snapshotbuilder/internal/config"
	"github.com/oriys/snapshotbuilder/internal/logging"
	"github.com/oriys/snapshotbuilder/internal/metrics"
	"github.com/oriys/snapshotbuilder/internal/observability"
)

const (
	ocpDevPrefix = "OCP.DEV."

	asyncURLKey = "async_url"
	mqQueueKey  = "MQ_QUEUE"
)

// Resolver implements the §4.2 public contract: resolveForFunction and
// resolveForTopic never fail at the callsite, always returning a
// non-empty queue name (falling back to name+"_queue").
type Resolver interface {
	ResolveForFunction(ctx context.Context, name string) string
	ResolveForTopic(ctx context.Context, name string) string
	// ClearCache resets the per-build cache; SnapshotAssembler calls this
	// at the start of every build (§4.5 step 1).
	ClearCache(ctx context.Context) error
}

// HTTPResolver is the §4.2 HTTP-backed QueueResolver variant.
type HTTPResolver struct {
	cfg    config.QueueResolverConfig
	cache  cache.Cache
	client *http.Client
}

// New constructs an HTTPResolver. cfg.FunctionEndpoint / cfg.TopicEndpoint
// may be empty, in which case the corresponding Resolve* call returns the
// fallback name directly without any network access.
func New(cfg config.QueueResolverConfig, c cache.Cache) *HTTPResolver {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 2 * time.Second
	}
	return &HTTPResolver{
		cfg:   cfg,
		cache: c,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}
}

func (r *HTTPResolver) ClearCache(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

func fallbackName(name string) string {
	return name + "_queue"
}

// retryableErr marks an error as retryable (HTTP 429/5xx, transport
// failure); errors not wrapped this way are treated as terminal for the
// attempt loop, same as backoff.Permanent but inverted for clarity at the
// callsite.
type retryableErr struct{ err error }

func (r *retryableErr) Error() string { return r.err.Error() }
func (r *retryableErr) Unwrap() error { return r.err }

// ResolveForFunction resolves an async-function name to a queue name via
// POST {function_endpoint}/{lowercased-url-encoded-name}.
func (r *HTTPResolver) ResolveForFunction(ctx context.Context, name string) string {
	return r.resolve(ctx, "function", r.cfg.FunctionEndpoint, http.MethodPost, asyncURLKey, name)
}

// ResolveForTopic resolves a topic name to a queue name via
// GET {topic_endpoint}/{lowercased-url-encoded-name}.
func (r *HTTPResolver) ResolveForTopic(ctx context.Context, name string) string {
	return r.resolve(ctx, "topic", r.cfg.TopicEndpoint, http.MethodGet, mqQueueKey, name)
}

func (r *HTTPResolver) resolve(ctx context.Context, kind, endpoint, method, bodyKey, name string) string {
	fallback := fallbackName(name)
	if endpoint == "" {
		metrics.RecordQueueLookup(kind, "no_endpoint")
		return fallback
	}

	cacheKey := strings.ToLower(name)
	if cached, err := r.cache.Get(ctx, cacheKey); err == nil {
		metrics.RecordQueueLookup(kind, "cache_hit")
		return string(cached)
	}

	spanCtx, span := observability.StartSpan(ctx, "snapshotbuilder.queueresolver.lookup",
		observability.AttrQueueKind.String(kind))
	queueName, err := r.attemptWithRetry(spanCtx, endpoint, method, bodyKey, name)
	if err != nil {
		observability.SetSpanError(span, err)
		span.End()
		logging.Op().Warn("queue lookup failed, using fallback",
			"kind", kind, "name", name, "error", err)
		metrics.RecordQueueLookup(kind, "error")
		return fallback
	}
	observability.SetSpanOK(span)
	span.End()

	queueName = postProcess(queueName)
	if queueName == "" {
		metrics.RecordQueueLookup(kind, "empty")
		return fallback
	}

	_ = r.cache.Set(ctx, cacheKey, []byte(queueName), 0)
	metrics.RecordQueueLookup(kind, "resolved")
	return queueName
}

// stepBackoff implements backoff.BackOff per §4.2's delay formula: the
// delay before attempt k (1-indexed) is initial_backoff * 2^(k-1) +
// jitter(uniform 0..50ms). tries starts at 1 (the first, un-delayed
// attempt already ran by the time NextBackOff is first consulted).
type stepBackoff struct {
	initial time.Duration
	tries   int
}

func newStepBackoff(initial time.Duration) *stepBackoff {
	return &stepBackoff{initial: initial, tries: 1}
}

func (b *stepBackoff) NextBackOff() time.Duration {
	b.tries++
	return b.initial*time.Duration(1<<uint(b.tries-1)) + jitter()
}

func (b *stepBackoff) Reset() {
	b.tries = 1
}

// attemptWithRetry runs the §4.2 retry loop via backoff.Retry: stop after
// max_attempts total attempts or the first non-retryable failure, which
// attemptWithRetry's operation marks with backoff.Permanent so the library
// stops without consuming the remaining attempt budget.
func (r *HTTPResolver) attemptWithRetry(ctx context.Context, endpoint, method, bodyKey, name string) (string, error) {
	b := newStepBackoff(r.cfg.InitialBackoff)

	operation := func() (string, error) {
		value, err := r.doAttempt(ctx, endpoint, method, bodyKey, name)
		if err == nil {
			return value, nil
		}

		var permErr *backoff.PermanentError
		if errors.As(err, &permErr) {
			return "", err
		}
		var retry *retryableErr
		if errors.As(err, &retry) {
			return "", err
		}
		// Any unclassified error (parse error, malformed URI, empty key)
		// is non-retryable per §4.2.
		return "", backoff.Permanent(err)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.cfg.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(error, time.Duration) {
			metrics.RecordQueueRetry()
		}),
	)
}

func (r *HTTPResolver) doAttempt(ctx context.Context, endpoint, method, bodyKey, name string) (string, error) {
	reqURL := endpoint + "/" + url.PathEscape(strings.ToLower(name))
	parsed, err := url.Parse(reqURL)
	if err != nil {
		return "", fmt.Errorf("malformed queue endpoint URI: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, parsed.String(), bytes.NewReader(nil))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if tc := observability.ExtractTraceContext(ctx); tc.TraceParent != "" {
		req.Header.Set("traceparent", tc.TraceParent)
		if tc.TraceState != "" {
			req.Header.Set("tracestate", tc.TraceState)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		return "", &retryableErr{err: fmt.Errorf("transport error: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		raw, _ := payload[bodyKey].(string)
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return "", fmt.Errorf("empty %s in response", bodyKey)
		}
		return raw, nil
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return "", &retryableErr{err: fmt.Errorf("retryable status %d", resp.StatusCode)}
	default:
		return "", fmt.Errorf("non-retryable status %d", resp.StatusCode)
	}
}

func postProcess(queueName string) string {
	if len(queueName) >= len(ocpDevPrefix) && strings.EqualFold(queueName[:len(ocpDevPrefix)], ocpDevPrefix) {
		queueName = queueName[len(ocpDevPrefix):]
	}
	return strings.TrimSpace(queueName)
}

func jitter() time.Duration {
	n, err := rand.Int(rand.Reader, big.NewInt(51))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64()) * time.Millisecond
}
