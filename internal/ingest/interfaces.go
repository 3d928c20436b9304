package ingest

import (
	"context"
	"io"
	"time"
)

// Getter performs one HTTP GET and returns the body of a successful response.
type Getter interface {
	Get(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// Publisher sends raw payload bytes to the route topic and returns the server
// message ID once the publish is acknowledged.
type Publisher interface {
	Publish(ctx context.Context, data []byte) (string, error)
}

// BlobStore persists archived snapshots.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// RetryPolicy decides retry behavior after failed attempts.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// IDGenerator yields run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
