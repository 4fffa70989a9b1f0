package resilience

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestExecutor_OpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer s.Close()

	exec := NewHTTPExecutor(BreakerConfig{Name: "test", FailureThreshold: 2, Delay: time.Minute}, zap.NewNop())
	client := &http.Client{Timeout: time.Second}

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, s.URL, nil)
		resp, err := Do(context.Background(), exec, client, req)
		if resp != nil {
			resp.Body.Close()
		}
		if errors.Is(err, ErrOpen) {
			t.Fatalf("breaker opened too early on attempt %d", i+1)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, s.URL, nil)
	resp, err := Do(context.Background(), exec, client, req)
	if resp != nil {
		resp.Body.Close()
	}
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("want ErrOpen, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("open breaker must not reach the server, hits=%d", n)
	}
}

func TestExecutor_PassesThroughSuccess(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	exec := NewHTTPExecutor(DefaultBreakerConfig("ok"), nil)
	req, _ := http.NewRequest(http.MethodGet, s.URL, nil)
	resp, err := Do(context.Background(), exec, &http.Client{Timeout: time.Second}, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
}

func TestIsFailure(t *testing.T) {
	if !IsFailure(nil, errors.New("boom")) {
		t.Fatal("transport error should count")
	}
	if !IsFailure(&http.Response{StatusCode: 503}, nil) {
		t.Fatal("5xx should count")
	}
	if IsFailure(&http.Response{StatusCode: 404}, nil) {
		t.Fatal("4xx should not trip the breaker")
	}
}
