// Package ingest runs the fetch, publish and archive cycle for configured routes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/transit-ingest/internal/metrics"
)

const snapshotContentType = "application/json"

// FetchOptions tunes individual HTTP attempts.
type FetchOptions struct {
	Timeout time.Duration
}

// Config holds the per-cycle settings.
type Config struct {
	BaseURL  string
	RouteIDs []string
	Fetch    FetchOptions
	// ScratchDir holds local snapshots between write and upload. Empty means os.TempDir().
	ScratchDir string
	// Prefix is prepended to archived object names.
	Prefix string
}

// Dependencies are the collaborators a Runner drives.
type Dependencies struct {
	Getter    Getter
	Publisher Publisher
	Blobs     BlobStore
	Retry     RetryPolicy
	IDs       IDGenerator
	Logger    *zap.Logger
}

// RouteResult is the outcome of one route iteration.
type RouteResult struct {
	RouteID   string
	URL       string
	MessageID string
	ObjectURI string
	// Err is nil, *FetchError, *PublishError or *ArchiveError.
	Err error
}

// Published reports whether the payload reached the topic.
func (r RouteResult) Published() bool {
	return r.MessageID != ""
}

// Runner executes fetch cycles.
type Runner struct {
	cfg       Config
	getter    Getter
	publisher Publisher
	blobs     BlobStore
	retry     RetryPolicy
	ids       IDGenerator
	logger    *zap.Logger
}

// NewRunner validates dependencies and builds a Runner.
func NewRunner(cfg Config, deps Dependencies) (*Runner, error) {
	if deps.Getter == nil {
		return nil, errors.New("getter is required")
	}
	if deps.Publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if deps.Blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if deps.Retry == nil {
		return nil, errors.New("retry policy is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:       cfg,
		getter:    deps.Getter,
		publisher: deps.Publisher,
		blobs:     deps.Blobs,
		retry:     deps.Retry,
		ids:       deps.IDs,
		logger:    logger.Named("ingest"),
	}, nil
}

// RunCycle processes every configured route in order. A failed route never
// stops the cycle; only context cancellation does, in which case the results
// gathered so far are returned with the context error.
func (r *Runner) RunCycle(ctx context.Context) ([]RouteResult, error) {
	logger := r.logger
	if r.ids != nil {
		if runID, err := r.ids.NewID(); err == nil {
			logger = logger.With(zap.String("run_id", runID))
		}
	}
	logger.Info("fetch cycle started", zap.Int("routes", len(r.cfg.RouteIDs)))

	results := make([]RouteResult, 0, len(r.cfg.RouteIDs))
	for _, routeID := range r.cfg.RouteIDs {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("fetch cycle interrupted: %w", err)
		}
		results = append(results, r.processRoute(ctx, routeID, logger))
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	logger.Info("fetch cycle finished", zap.Int("routes", len(results)), zap.Int("failed", failed))
	return results, nil
}

// ProcessRoute runs fetch, publish and archive for a single route.
func (r *Runner) ProcessRoute(ctx context.Context, routeID string) RouteResult {
	return r.processRoute(ctx, routeID, r.logger)
}

func (r *Runner) processRoute(ctx context.Context, routeID string, logger *zap.Logger) RouteResult {
	logger = logger.With(zap.String("route_id", routeID))
	res := RouteResult{RouteID: routeID}

	target, err := RouteURL(r.cfg.BaseURL, routeID)
	if err != nil {
		res.Err = &FetchError{URL: r.cfg.BaseURL, Err: err}
		metrics.ObserveRoute(metrics.RouteFetchFailed)
		logger.Error("build route url", zap.Error(err))
		return res
	}
	res.URL = target

	body, err := FetchWithRetry(ctx, r.getter, target, r.retry, r.cfg.Fetch, logger)
	if err != nil {
		res.Err = err
		metrics.ObserveRoute(metrics.RouteFetchFailed)
		logger.Error("route fetch failed", zap.Error(err))
		return res
	}

	msgID, err := r.publisher.Publish(ctx, body)
	if err != nil {
		res.Err = &PublishError{RouteID: routeID, Err: err}
		metrics.ObserveRoute(metrics.RoutePublishFailed)
		logger.Error("route publish failed", zap.Error(err))
		return res
	}
	res.MessageID = msgID
	logger.Info("route published", zap.String("message_id", msgID), zap.Int("bytes", len(body)))

	uri, err := r.archive(ctx, routeID, body)
	res.ObjectURI = uri
	if err != nil {
		res.Err = err
		metrics.ObserveRoute(metrics.RouteArchiveFailed)
		logger.Error("route archive failed", zap.Error(err))
		return res
	}
	metrics.ObserveRoute(metrics.RoutePublished)
	logger.Info("route archived", zap.String("object", uri))
	return res
}

// archive writes the local snapshot, uploads it and removes the local copy.
// The upload URI is returned even when only the cleanup failed.
func (r *Runner) archive(ctx context.Context, routeID string, body []byte) (string, error) {
	name := SnapshotName(routeID)
	local := filepath.Join(r.cfg.ScratchDir, name)
	if err := os.WriteFile(local, body, 0o600); err != nil {
		return "", &ArchiveError{RouteID: routeID, Stage: StageSnapshot, Err: err}
	}

	uri, uploadErr := r.upload(ctx, local, r.objectPath(name))
	removeErr := os.Remove(local)

	if uploadErr != nil {
		if removeErr != nil {
			r.logger.Warn("remove local snapshot", zap.String("path", local), zap.Error(removeErr))
		}
		return "", &ArchiveError{RouteID: routeID, Stage: StageUpload, Err: uploadErr}
	}
	if removeErr != nil {
		return uri, &ArchiveError{RouteID: routeID, Stage: StageCleanup, Err: removeErr}
	}
	return uri, nil
}

func (r *Runner) upload(ctx context.Context, local, object string) (string, error) {
	f, err := os.Open(local)
	if err != nil {
		return "", fmt.Errorf("open snapshot: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			r.logger.Warn("close local snapshot", zap.String("path", local), zap.Error(closeErr))
		}
	}()
	uri, err := r.blobs.PutObject(ctx, object, snapshotContentType, f)
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", object, err)
	}
	return uri, nil
}

func (r *Runner) objectPath(name string) string {
	if r.cfg.Prefix == "" {
		return name
	}
	return path.Join(r.cfg.Prefix, name)
}

// SnapshotName is the archive object name for a route payload.
func SnapshotName(routeID string) string {
	return fmt.Sprintf("message_%s.json", routeID)
}

// RouteURL adds the codsint query parameter for routeID to base.
func RouteURL(base, routeID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("codsint", routeID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
