package queueresolver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oriys/snapshotbuilder/internal/cache"
	"github.com/oriys/snapshotbuilder/internal/config"
)

func newTestResolver(t *testing.T, functionEndpoint, topicEndpoint string) *HTTPResolver {
	t.Helper()
	cfg := config.QueueResolverConfig{
		FunctionEndpoint: functionEndpoint,
		TopicEndpoint:    topicEndpoint,
		HTTPTimeout:      time.Second,
		MaxAttempts:      3,
		InitialBackoff:   5 * time.Millisecond,
	}
	return New(cfg, cache.NewInMemoryCache())
}

func TestResolveForFunction_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(map[string]string{"async_url": "MyQueue"})
	}))
	defer srv.Close()

	r := newTestResolver(t, srv.URL, "")
	got := r.ResolveForFunction(context.Background(), "MyFunc")
	if got != "MyQueue" {
		t.Fatalf("expected MyQueue, got %q", got)
	}
}

func TestResolveForTopic_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("expected GET, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(map[string]string{"MQ_QUEUE": "TopicQ"})
	}))
	defer srv.Close()

	r := newTestResolver(t, "", srv.URL)
	got := r.ResolveForTopic(context.Background(), "MyTopic")
	if got != "TopicQ" {
		t.Fatalf("expected TopicQ, got %q", got)
	}
}

func TestResolveForFunction_StripsOCPDevPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"async_url": "ocp.dev.RealQueue"})
	}))
	defer srv.Close()

	r := newTestResolver(t, srv.URL, "")
	got := r.ResolveForFunction(context.Background(), "f")
	if got != "RealQueue" {
		t.Fatalf("expected RealQueue after prefix strip, got %q", got)
	}
}

func TestResolveForFunction_EndpointAbsent(t *testing.T) {
	r := newTestResolver(t, "", "")
	got := r.ResolveForFunction(context.Background(), "orphan")
	if got != "orphan_queue" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestResolveForFunction_EmptyKeyIsNonRetryable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]string{"async_url": ""})
	}))
	defer srv.Close()

	r := newTestResolver(t, srv.URL, "")
	got := r.ResolveForFunction(context.Background(), "f")
	if got != "f_queue" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly 1 call for non-retryable empty key, got %d", calls)
	}
}

func TestResolveForFunction_RetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"async_url": "Recovered"})
	}))
	defer srv.Close()

	r := newTestResolver(t, srv.URL, "")
	got := r.ResolveForFunction(context.Background(), "f")
	if got != "Recovered" {
		t.Fatalf("expected Recovered after retries, got %q", got)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestResolveForFunction_ExhaustsRetriesOn5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := newTestResolver(t, srv.URL, "")
	got := r.ResolveForFunction(context.Background(), "f")
	if got != "f_queue" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected max_attempts=3 calls, got %d", calls)
	}
}

func TestResolveForFunction_NonRetryableStatusStopsImmediately(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	r := newTestResolver(t, srv.URL, "")
	got := r.ResolveForFunction(context.Background(), "f")
	if got != "f_queue" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly 1 call for non-retryable status, got %d", calls)
	}
}

func TestResolveForFunction_CachesResolvedValue(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]string{"async_url": "Cached"})
	}))
	defer srv.Close()

	r := newTestResolver(t, srv.URL, "")
	first := r.ResolveForFunction(context.Background(), "f")
	second := r.ResolveForFunction(context.Background(), "F") // case-insensitive cache key
	if first != "Cached" || second != "Cached" {
		t.Fatalf("expected both calls to return Cached, got %q %q", first, second)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected 1 HTTP call due to cache hit, got %d", calls)
	}
}

func TestResolveForFunction_ClearCacheResetsBetweenBuilds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]string{"async_url": "Q"})
	}))
	defer srv.Close()

	r := newTestResolver(t, srv.URL, "")
	r.ResolveForFunction(context.Background(), "f")
	if err := r.ClearCache(context.Background()); err != nil {
		t.Fatalf("ClearCache failed: %v", err)
	}
	r.ResolveForFunction(context.Background(), "f")
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 HTTP calls across the cache reset, got %d", calls)
	}
}
