package fetch

import (
	"context"
	"errors"
)

// permanentError marks a failure that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return &permanentError{err: err} }

// retryWithContext calls fn up to maxTries times until it returns nil error,
// a permanent error, or ctx is done. It returns the number of attempts made.
func retryWithContext[T any](ctx context.Context, maxTries int, fn func(context.Context) (T, error)) (T, int, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var (
		zero    T
		lastErr error
	)
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, i, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, i + 1, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, i + 1, perm.err
		}
		if errors.Is(err, context.Canceled) {
			return zero, i + 1, err
		}
		lastErr = err
	}
	return zero, maxTries, lastErr
}
