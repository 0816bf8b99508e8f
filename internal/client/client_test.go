package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/apierr"
	"github.com/taskdeck/taskdeck/internal/event"
	"github.com/taskdeck/taskdeck/internal/retry"
)

func testClient(t *testing.T, srv *httptest.Server, bus *event.Bus) *Client {
	t.Helper()
	return New(Options{
		BaseURL:   srv.URL,
		APIPrefix: "/api/v1",
		Timeout:   2 * time.Second,
		Retry: retry.Options{
			MaxRetries:    2,
			BaseDelay:     time.Millisecond,
			MaxDelay:      10 * time.Millisecond,
			BackoffFactor: 2.0,
		},
		Bus: bus,
	})
}


// ─── Caching ────────────────────────────────────────────────────────────────

func TestDo_CachedGETSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	cp := &CachePolicy{TTL: time.Minute}
	req := Request{Path: "/tasks"}

	first, err := c.Do(context.Background(), req, cp)
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if first.Cached {
		t.Error("first response should not be marked cached")
	}

	second, err := c.Do(context.Background(), req, cp)
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if !second.Cached {
		t.Error("second response should come from cache")
	}
	if string(second.Body) != `{"ok":true}` {
		t.Errorf("cached body = %q", second.Body)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestDo_CacheExpiryRefetches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	cp := &CachePolicy{TTL: 15 * time.Millisecond}

	c.Do(context.Background(), Request{Path: "/tasks"}, cp)
	time.Sleep(30 * time.Millisecond)
	c.Do(context.Background(), Request{Path: "/tasks"}, cp)

	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2 (expired entry must refetch)", hits.Load())
	}
}

func TestDo_POSTNeverCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	cp := &CachePolicy{TTL: time.Minute}
	req := Request{Method: http.MethodPost, Path: "/tasks", Body: map[string]string{"prompt": "x"}}

	c.Do(context.Background(), req, cp)
	c.Do(context.Background(), req, cp)

	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2 (POST must not be cached)", hits.Load())
	}
}

func TestInvalidateCache_Prefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	cp := &CachePolicy{TTL: time.Minute}
	c.Do(context.Background(), Request{Path: "/tasks"}, cp)
	c.Do(context.Background(), Request{Path: "/tasks/analytics"}, cp)
	c.Do(context.Background(), Request{Path: "/orchestrations"}, cp)

	if n := c.InvalidateCache("/tasks"); n != 2 {
		t.Errorf("invalidated %d entries, want 2", n)
	}
	if c.CacheLen() != 1 {
		t.Errorf("CacheLen() = %d, want 1 (orchestrations untouched)", c.CacheLen())
	}
}

// ─── Error mapping ──────────────────────────────────────────────────────────

func TestDo_APIErrorFromJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"invalid_model","message":"unknown model","details":{"field":"model"}}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	_, err := c.Do(context.Background(), Request{Path: "/tasks"}, nil)

	var ae *apierr.APIError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want *apierr.APIError", err)
	}
	if ae.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", ae.Status)
	}
	if ae.Code != "invalid_model" {
		t.Errorf("Code = %q, want invalid_model", ae.Code)
	}
	if ae.Message != "unknown model" {
		t.Errorf("Message = %q", ae.Message)
	}
	if len(ae.Details) == 0 {
		t.Error("Details should carry the structured body")
	}
}

func TestDo_APIErrorCodeFromHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Error-Code", "quota_exceeded")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	_, err := c.Do(context.Background(), Request{Path: "/tasks"}, nil)

	var ae *apierr.APIError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want *apierr.APIError", err)
	}
	if ae.Code != "quota_exceeded" {
		t.Errorf("Code = %q, want quota_exceeded", ae.Code)
	}
	if ae.Message != "slow down" {
		t.Errorf("Message = %q, want raw body fallback", ae.Message)
	}
}

func TestDo_TimeoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, DisableRetry: true})
	_, err := c.Do(context.Background(), Request{Path: "/slow", Timeout: 30 * time.Millisecond}, nil)

	var te *apierr.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *apierr.TimeoutError", err)
	}
	if te.Timeout != 30*time.Millisecond {
		t.Errorf("Timeout = %s, want the configured per-call value", te.Timeout)
	}
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := New(Options{BaseURL: srv.URL, DisableRetry: true})
	_, err := c.Do(context.Background(), Request{Path: "/tasks"}, nil)

	var ne *apierr.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("err = %v, want *apierr.NetworkError", err)
	}
	if ne.Cause == nil {
		t.Error("NetworkError should wrap the transport cause")
	}
}

// ─── Retry integration ──────────────────────────────────────────────────────

func TestDo_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"id":"t-1"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/tasks"}, nil)
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("server hits = %d, want 3 (two 500s then success)", hits.Load())
	}
	if string(resp.Body) != `{"id":"t-1"}` {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestDo_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/tasks"}, nil)
	if err == nil {
		t.Fatal("Do() should fail on 404")
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1 (404 must not be retried)", hits.Load())
	}
}

func TestDo_DisableRetrySingleAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, DisableRetry: true})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/tasks"}, nil)
	if err == nil {
		t.Fatal("Do() should fail on 500")
	}
	var apiErr *apierr.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Errorf("error = %v, want APIError with status 500", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1 (retries disabled)", hits.Load())
	}
}

// ─── Connectivity events ────────────────────────────────────────────────────

func TestDo_EmitsErrorThenConnected(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	bus := event.NewBus()
	var types []event.Type
	bus.SubscribeAll(func(ev event.Event) { types = append(types, ev.Type) })

	c := testClient(t, srv, bus)
	if _, err := c.Do(context.Background(), Request{Path: "/tasks"}, nil); err == nil {
		t.Fatal("Do() should fail while the backend errors")
	}

	fail.Store(false)
	if _, err := c.Do(context.Background(), Request{Path: "/tasks"}, nil); err != nil {
		t.Fatalf("Do() error after recovery: %v", err)
	}

	if len(types) != 2 || types[0] != event.Error || types[1] != event.Connected {
		t.Errorf("events = %v, want [error connected]", types)
	}
}

func TestDo_RecordsErrorLog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	c.Do(context.Background(), Request{Path: "/tasks"}, nil)

	entries := c.ErrorLog().Entries()
	if len(entries) != 1 {
		t.Fatalf("error log has %d entries, want 1", len(entries))
	}
	if entries[0].Context != "GET /api/v1/tasks" {
		t.Errorf("context = %q", entries[0].Context)
	}
}

// ─── Path handling ──────────────────────────────────────────────────────────

func TestPing_HitsRootHealthEndpoint(t *testing.T) {
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
	if got := path.Load(); got != "/health" {
		t.Errorf("Ping hit %v, want /health (no API prefix)", got)
	}
}

func TestDo_PrefixesAPIPaths(t *testing.T) {
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	c.Do(context.Background(), Request{Path: "/tasks"}, nil)
	if got := path.Load(); got != "/api/v1/tasks" {
		t.Errorf("request hit %v, want /api/v1/tasks", got)
	}
}

func TestDo_SetsRequestID(t *testing.T) {
	var header atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header.Store(r.Header.Get("X-Request-ID"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(t, srv, nil)
	c.Do(context.Background(), Request{Path: "/tasks"}, nil)
	if got, _ := header.Load().(string); got == "" {
		t.Error("request carried no X-Request-ID")
	}
}
