// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RetryBaseDelay is the first backoff step. Each later attempt doubles it.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// RetryMaxDelay caps a single backoff wait, jitter included.
var RetryMaxDelay = 15 * time.Second

// RetryJitter is the upper bound of the random delay added to each wait.
var RetryJitter = 300 * time.Millisecond

const defaultMaxRetries = 5

// Backoff returns the wait before retry number attempt (zero-based):
// min(base * 2^attempt + U(0, jitter), max).
func Backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
	if RetryJitter > 0 {
		d += rand.N(RetryJitter)
	}
	if d > RetryMaxDelay || d < 0 {
		d = RetryMaxDelay
	}
	return d
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retryable reports whether a response status is worth retrying:
// 429 Too Many Requests and any 5xx.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// DoWithRetry executes an HTTP request and retries transport errors and
// retryable statuses with exponential backoff (see Backoff).
//
// When maxRetries is 0 the default (5) is used. On each retryable
// response the body is drained and closed before sleeping. If the context
// is cancelled during a backoff wait the function returns ctx.Err(). After
// exhausting retries the last response is returned so the caller can
// inspect it; a persistent transport error is returned wrapped. Request
// bodies are replayed through req.GetBody.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, log *zap.Logger) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if log == nil {
		log = zap.NewNop()
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			attemptReq.Body = body
		}
		resp, err := client.Do(attemptReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt >= maxRetries {
				return nil, fmt.Errorf("after %d retries: %w", maxRetries, err)
			}
			log.Debug("request failed, retrying",
				zap.String("url", req.URL.Redacted()), zap.Int("attempt", attempt+1), zap.Error(err))
		} else {
			if !Retryable(resp.StatusCode) || attempt >= maxRetries {
				return resp, nil
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			log.Debug("retryable status, backing off",
				zap.String("url", req.URL.Redacted()), zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt+1))
		}

		if err := Sleep(ctx, Backoff(attempt)); err != nil {
			return nil, err
		}
	}
}
