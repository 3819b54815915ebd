// Package httputil holds the HTTP helpers shared by the search and rerank clients.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"

	logx "github.com/blogflow/server/pkg/logger"
)

// RetryBaseDelay is the first backoff wait after a throttled response.
// Tests shrink it.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 4

// Retryable reports whether a status code is worth retrying: provider
// throttling and transient gateway failures.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// DoWithRetry sends req and retries Retryable responses with exponential
// backoff starting at RetryBaseDelay. maxRetries <= 0 uses the default.
// After the last attempt the final response is returned for the caller to
// inspect. Cancelling ctx during a wait returns ctx.Err().
//
// Requests with a body must set GetBody (http.NewRequest does for common
// readers) so the body can be replayed.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if client == nil {
		client = http.DefaultClient
	}

	for attempt := 0; ; attempt++ {
		r := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = body
		}

		resp, err := client.Do(r)
		if err != nil {
			return nil, err
		}
		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		logx.Warn().
			Str("host", req.URL.Host).
			Int("status", resp.StatusCode).
			Dur("backoff", backoff).
			Int("attempt", attempt+1).
			Msg("upstream throttled, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
