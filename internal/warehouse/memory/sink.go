// Package memory holds flattened rows in memory for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/transit-ingest/internal/transit"
)

// Sink appends rows to an in-memory table.
type Sink struct {
	mu   sync.RWMutex
	rows []transit.FlatRow
}

// New returns an empty Sink.
func New() *Sink {
	return &Sink{}
}

// Name labels the sink in metrics.
func (s *Sink) Name() string { return "memory" }

// Append copies rows onto the table.
func (s *Sink) Append(ctx context.Context, rows []transit.FlatRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

// Rows returns a snapshot of the stored rows.
func (s *Sink) Rows() []transit.FlatRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]transit.FlatRow(nil), s.rows...)
}
