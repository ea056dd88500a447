package patterns

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"dealership/internal/metrics"
)

// CircuitBreaker wraps gobreaker with metrics
type CircuitBreaker struct {
	*gobreaker.CircuitBreaker
	name         string
	isSuccessful func(err error) bool
}

// Option customizes a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithSuccessCheck decides which errors count against the circuit. Errors
// reported as successful are still returned to the caller.
func WithSuccessCheck(fn func(err error) bool) Option {
	return func(cb *CircuitBreaker) {
		cb.isSuccessful = fn
	}
}

func defaultIsSuccessful(err error) bool {
	return err == nil
}

// NewCircuitBreaker creates a new circuit breaker with Prometheus metrics.
// Transitions are logged through logger.
func NewCircuitBreaker(name string, logger log.FieldLogger, opts ...Option) *CircuitBreaker {
	wrapper := &CircuitBreaker{
		name:         name,
		isSuccessful: defaultIsSuccessful,
	}
	for _, opt := range opts {
		opt(wrapper)
	}

	wrapper.CircuitBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,                // Probe requests allowed in half-open state
		Interval:    60 * time.Second, // Window to track failures
		Timeout:     30 * time.Second, // Time to wait before half-open
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: wrapper.isSuccessful,
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(stateValue(to))

			logger.WithFields(log.Fields{
				"circuit": cbName,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return wrapper
}

// Execute runs fn through the circuit breaker. Open-circuit rejections are
// reported with the circuit name.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cb.CircuitBreaker.Execute(fn)
	if err != nil {
		if !cb.isSuccessful(err) {
			metrics.CircuitBreakerFailures.WithLabelValues(cb.name).Inc()
		}
		return result, FormatError(cb.name, err)
	}
	return result, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// FormatError formats an error message with circuit breaker info
func FormatError(circuitName string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) {
		return fmt.Errorf("%s unavailable (circuit open): %w", circuitName, err)
	}
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s unavailable (circuit half-open): %w", circuitName, err)
	}
	return err
}
