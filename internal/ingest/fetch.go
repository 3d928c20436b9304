package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/transit-ingest/internal/metrics"
	"github.com/JakeFAU/transit-ingest/internal/retry"
)

// errInvalidJSON marks a 2xx response whose body does not parse.
var errInvalidJSON = errors.New("response body is not valid JSON")

// FetchWithRetry GETs url until it returns a valid JSON body or the policy
// gives up. The body is returned compacted onto a single line so the published
// message and the archived snapshot are each one NDJSON record. The returned
// error is always a *FetchError carrying the last cause.
func FetchWithRetry(
	ctx context.Context,
	getter Getter,
	url string,
	policy RetryPolicy,
	opts FetchOptions,
	logger *zap.Logger,
) ([]byte, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for attempt := 1; ; attempt++ {
		body, err := getter.Get(ctx, url, opts.Timeout)
		if err == nil {
			body, err = compact(body)
		}
		if err == nil {
			metrics.ObserveFetchAttempt("success")
			return body, nil
		}
		metrics.ObserveFetchAttempt("error")

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &FetchError{URL: url, Attempts: attempt, Err: ctxErr}
		}
		if !policy.ShouldRetry(err, attempt) {
			return nil, &FetchError{URL: url, Attempts: attempt, Err: err}
		}

		wait := policy.Backoff(attempt)
		logger.Warn("fetch attempt failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if sleepErr := retry.Sleep(ctx, wait); sleepErr != nil {
			return nil, &FetchError{URL: url, Attempts: attempt, Err: sleepErr}
		}
	}
}

// compact strips insignificant whitespace, including newlines inside the
// document, without touching keys, values or their order.
func compact(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidJSON, err)
	}
	return buf.Bytes(), nil
}
