package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	base := []Option{WithBaseURL(srv.URL), WithRateLimit(rate.Inf), WithRetry(DefaultMaxAttempts, 0)}
	return New(Service{Name: "test", RateLimit: 1}, append(base, opts...)...)
}

func TestGetJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/items/1" {
			t.Errorf("path = %q, want /items/1", r.URL.Path)
		}
		if r.URL.Query().Get("fields") != "a,b" {
			t.Errorf("fields = %q", r.URL.Query().Get("fields"))
		}
		if r.Header.Get("User-Agent") != UserAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("x-api-key") != "k" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		w.Write([]byte(`{"name":"one"}`))
	})

	var out struct{ Name string }
	header := http.Header{"X-Api-Key": []string{"k"}}
	if err := c.GetJSON(context.Background(), "items/1", url.Values{"fields": {"a,b"}}, header, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if out.Name != "one" {
		t.Errorf("Name = %q, want one", out.Name)
	}
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	})

	if _, err := c.Do(context.Background(), Request{Path: "x"}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Do(context.Background(), Request{Path: "x"})
	if !IsRateLimited(err) {
		t.Errorf("Do() error = %v, want rate limited", err)
	}
	if calls.Load() != DefaultMaxAttempts {
		t.Errorf("calls = %d, want %d", calls.Load(), DefaultMaxAttempts)
	}
}

func TestDo_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Do(context.Background(), Request{Path: "x"})
	if !IsNotFound(err) {
		t.Errorf("Do() error = %v, want not found", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestGetJSON_InvalidResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	var out map[string]any
	err := c.GetJSON(context.Background(), "x", nil, nil, &out)
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("GetJSON() error = %v, want ErrInvalidResponse", err)
	}
}

func TestDo_AbsolutePathBypassesBase(t *testing.T) {
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`ok`))
	}))
	defer other.Close()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("base server should not be called")
	})
	resp, err := c.Do(context.Background(), Request{Path: other.URL + "/elsewhere"})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("Body = %q", resp.Body)
	}
}

func TestNew_KeyedRateLimit(t *testing.T) {
	svc := Service{Name: "s", RateLimit: 0.8, KeyedRateLimit: 10}
	if got := New(svc).limiter.Limit(); got != rate.Limit(0.8) {
		t.Errorf("limit without key = %v, want 0.8", got)
	}
	if got := New(svc, WithAPIKey("k")).limiter.Limit(); got != rate.Limit(10) {
		t.Errorf("limit with key = %v, want 10", got)
	}
}

func TestBackoffDuration(t *testing.T) {
	c := New(Service{Name: "s", RateLimit: 1})
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := c.backoffDuration(tt.attempt); got != tt.want {
			t.Errorf("backoffDuration(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
