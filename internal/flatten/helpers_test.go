package flatten

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/JakeFAU/transit-ingest/internal/source"
	"github.com/JakeFAU/transit-ingest/internal/transit"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 123000, time.UTC)

type fixedClock struct {
	mu    sync.Mutex
	now   time.Time
	calls int
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.now.Add(time.Duration(c.calls-1) * time.Second)
}

// twoRows is one window by two stops with one service each.
const twoRows = `{"ida":{"id":1,"horarios":[{"tipoDia":"LABORAL","inicio":"06:00","fin":"22:00"}],` +
	`"paraderos":[{"id":10,"cod":"PA1","servicios":[{"id":100,"cod":"S1"}]},` +
	`{"id":11,"cod":"PA2","servicios":[{"id":101,"cod":"S2"}]}]}}`

const singleRow = `{"ida":{"id":1,"horarios":[{"tipoDia":"LABORAL","inicio":"06:00","fin":"22:00"}],` +
	`"paraderos":[{"id":10,"cod":"PA1","servicios":[{"id":100,"cod":"S1"}]}]}}`

type recordingSink struct {
	batches [][]transit.FlatRow
	err     error
	failAt  int
}

func (s *recordingSink) Append(_ context.Context, rows []transit.FlatRow) error {
	if s.err != nil && len(s.batches) == s.failAt {
		return s.err
	}
	s.batches = append(s.batches, append([]transit.FlatRow(nil), rows...))
	return nil
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) rows() []transit.FlatRow {
	var out []transit.FlatRow
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

// sliceSource serves fixed lines, optionally as settled messages.
type sliceSource struct {
	lines   []string
	settled bool
	next    int
	acked   []int
	nacked  []int
	err     error
}

func (s *sliceSource) Next(ctx context.Context) (source.Line, error) {
	if err := ctx.Err(); err != nil {
		return source.Line{}, err
	}
	if s.next >= len(s.lines) {
		if s.err != nil {
			return source.Line{}, s.err
		}
		return source.Line{}, io.EOF
	}
	s.next++
	n := s.next
	line := source.Line{Number: n, Data: []byte(s.lines[n-1])}
	if s.settled {
		line.Ack = func() { s.acked = append(s.acked, n) }
		line.Nack = func() { s.nacked = append(s.nacked, n) }
	}
	return line, nil
}

func (s *sliceSource) Close() error { return nil }
