package ga4

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"minidash/internal/metrics"
	"minidash/internal/rows"
)

// ErrUpstreamUnavailable is returned while the breaker rejects calls
var ErrUpstreamUnavailable = errors.New("analytics service temporarily unavailable; try again later")

// Breaker wraps a Reporter so a failing upstream is not called on every request.
// Opens after 5 consecutive failures or a 60% failure rate over at least 10 requests.
type Breaker struct {
	next    Reporter
	demo    *gobreaker.CircuitBreaker[[]DemoRow]
	channel *gobreaker.CircuitBreaker[[]rows.Row]
	logger  *slog.Logger
}

// NewBreaker creates one circuit per report kind
func NewBreaker(next Reporter, logger *slog.Logger) *Breaker {
	return &Breaker{
		next:    next,
		demo:    gobreaker.NewCircuitBreaker[[]DemoRow](breakerSettings(ReportDemo, logger)),
		channel: gobreaker.NewCircuitBreaker[[]rows.Row](breakerSettings(ReportChannels, logger)),
		logger:  logger,
	}
}

func breakerSettings(name string, logger *slog.Logger) gobreaker.Settings {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 5 {
				return true
			}
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		// a cancelled request says nothing about upstream health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func execute[T any](cb *gobreaker.CircuitBreaker[T], fn func() (T, error)) (T, error) {
	result, err := cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(cb.Name(), "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(cb.Name(), "rejected").Inc()
		var zero T
		return zero, ErrUpstreamUnavailable
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(cb.Name(), "failure").Inc()
	}
	return result, err
}

func (b *Breaker) DemoReport(ctx context.Context) ([]DemoRow, error) {
	return execute(b.demo, func() ([]DemoRow, error) {
		return b.next.DemoReport(ctx)
	})
}

func (b *Breaker) ChannelReport(ctx context.Context, days int) ([]rows.Row, error) {
	return execute(b.channel, func() ([]rows.Row, error) {
		return b.next.ChannelReport(ctx, days)
	})
}
