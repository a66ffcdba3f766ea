package ledger

import (
	"context"
	"math"
	"math/rand"
	"time"
)

const (
	maxRetries    = 3
	baseRetryWait = 200 * time.Millisecond
)

// withRetry ejecuta fn con backoff exponencial y jitter. Devuelve el último
// error si se agotan los intentos; respeta la cancelación del contexto.
func withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt < maxRetries {
			sleep(ctx, attempt)
		}
	}
	return lastErr
}

// sleep espera con backoff exponencial y jitter, respetando el contexto.
func sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	wait += time.Duration(rand.Int63n(int64(baseRetryWait)))
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
