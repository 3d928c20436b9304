package ingest

import "fmt"

// FetchError reports a route whose fetch failed on every allowed attempt.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PublishError reports a payload that was fetched but not acknowledged by the topic.
type PublishError struct {
	RouteID string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish route %s: %v", e.RouteID, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Archive stages reported by ArchiveError.
const (
	StageSnapshot = "snapshot"
	StageUpload   = "upload"
	StageCleanup  = "cleanup"
)

// ArchiveError reports a failure after a successful publish. The published
// message stands regardless.
type ArchiveError struct {
	RouteID string
	Stage   string
	Err     error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive route %s (%s): %v", e.RouteID, e.Stage, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }
