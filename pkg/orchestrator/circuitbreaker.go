package orchestrator

import (
	"errors"

	"github.com/manik3160/NeverDown/internal/apperrors"
	"github.com/sony/gobreaker"
)

// breakers guards the two external-call sites the pipeline cannot
// control the failure mode of: the Reasoner's language-model call and
// the Publisher's git-host RPCs. A tripped breaker turns further calls
// into an immediate ErrCircuitBreakerOpen rather than piling up timeouts
// against a downed provider.
type breakers struct {
	reasoner *gobreaker.CircuitBreaker
	gitHost  *gobreaker.CircuitBreaker
}

func newBreakers() *breakers {
	return &breakers{
		reasoner: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "reasoner-llm",
			MaxRequests: 1,
			Interval:    0,
		}),
		gitHost: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "publisher-githost",
			MaxRequests: 1,
			Interval:    0,
		}),
	}
}

// guard runs fn through cb, translating a tripped breaker into a typed
// AppError and passing through whatever AppError fn itself returned.
func guard[T any](cb *gobreaker.CircuitBreaker, fn func() (T, *apperrors.AppError)) (T, *apperrors.AppError) {
	var stageErr *apperrors.AppError
	result, err := cb.Execute(func() (any, error) {
		value, aerr := fn()
		if aerr != nil {
			stageErr = aerr
			return value, aerr
		}
		return value, nil
	})

	var zero T
	if err != nil {
		if stageErr != nil {
			return zero, stageErr
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, apperrors.Wrap(err, apperrors.ErrCircuitBreakerOpen, "circuit breaker open, call not attempted")
		}
		return zero, apperrors.Wrap(err, apperrors.ErrTimeout, "call failed")
	}
	return result.(T), nil
}
