// Package resilience wraps outbound HTTP calls in a failsafe-go circuit
// breaker. No retry policy is attached; the next check cycle retries.
package resilience

import (
	"context"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"go.uber.org/zap"
)

type BreakerConfig struct {
	// Name identifies the breaker in logs.
	Name string
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint
	// Delay is how long the breaker stays open before letting a trial request through.
	Delay time.Duration
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{Name: name, FailureThreshold: 5, Delay: 30 * time.Second}
}

// ErrOpen is returned without contacting the remote side while the breaker is open.
var ErrOpen = circuitbreaker.ErrOpen

// IsFailure counts transport errors and 5xx responses against the breaker.
func IsFailure(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp != nil && resp.StatusCode >= 500
}

//nolint:bodyclose // *http.Response is a type parameter here
func NewHTTPExecutor(cfg BreakerConfig, logger *zap.Logger) failsafe.Executor[*http.Response] {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cb := circuitbreaker.NewBuilder[*http.Response]().
		WithFailureThreshold(cfg.FailureThreshold).
		WithDelay(cfg.Delay).
		WithSuccessThreshold(1).
		HandleIf(IsFailure).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			logger.Warn("circuit_breaker_state",
				zap.String("breaker", cfg.Name),
				zap.String("from", stateName(e.OldState)),
				zap.String("to", stateName(e.NewState)),
			)
		}).
		Build()

	return failsafe.With[*http.Response](cb)
}

// Do sends req through the executor. The caller owns the response body.
func Do(ctx context.Context, exec failsafe.Executor[*http.Response], client *http.Client, req *http.Request) (*http.Response, error) {
	if exec == nil {
		return client.Do(req.WithContext(ctx))
	}
	return exec.WithContext(ctx).Get(func() (*http.Response, error) {
		return client.Do(req.WithContext(ctx))
	})
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.ClosedState:
		return "closed"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "unknown"
	}
}
