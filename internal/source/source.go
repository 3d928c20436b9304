// Package source yields newline-delimited JSON input lines for the flatten job.
package source

import (
	"context"
	"io"
)

// Line is one input record. Ack and Nack are set when the record came from a
// source that needs settling; Ack must only run once the line's rows are stored.
type Line struct {
	Number int
	Data   []byte
	Ack    func()
	Nack   func()
}

// Settled reports whether the line must be acknowledged.
func (l Line) Settled() bool {
	return l.Ack != nil
}

// Source yields lines in order. Next returns io.EOF once a bounded source is
// exhausted.
type Source interface {
	Next(ctx context.Context) (Line, error)
	io.Closer
}
