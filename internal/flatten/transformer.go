// Package flatten turns NDJSON route records into warehouse rows.
package flatten

import (
	"errors"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/transit-ingest/internal/metrics"
	"github.com/JakeFAU/transit-ingest/internal/transit"
)

// Clock supplies ingestion timestamps.
type Clock interface {
	Now() time.Time
}

// Transformer runs parse, expand and emit for one line at a time.
type Transformer struct {
	clock  Clock
	logger *zap.Logger
}

// NewTransformer builds a Transformer. A nil logger discards output.
func NewTransformer(clock Clock, logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{clock: clock, logger: logger.Named("flatten")}
}

// Process yields the rows of one NDJSON line. Malformed lines and records of
// an unexpected shape are logged; they never surface as errors.
func (t *Transformer) Process(line []byte) iter.Seq[transit.FlatRow] {
	return func(yield func(transit.FlatRow) bool) {
		t.process(0, line, yield)
	}
}

// process reports the line outcome as one of the metrics.Line* values.
func (t *Transformer) process(number int, line []byte, yield func(transit.FlatRow) bool) string {
	logger := t.logger
	if number > 0 {
		logger = logger.With(zap.Int("line", number))
	}

	record, err := transit.DecodeRecord(line)
	if err != nil {
		logger.Warn("skipping malformed line", zap.Error(err), zap.Int("bytes", len(line)))
		metrics.ObserveLine(metrics.LineParseError)
		return metrics.LineParseError
	}

	ingestedAt := t.clock.Now().UTC()
	emitted := 0
	outcome := metrics.LineOK
	for row, err := range transit.Expand(record, ingestedAt) {
		if err != nil {
			var shapeErr *transit.ExpansionError
			if errors.As(err, &shapeErr) {
				logger.Warn("record has unexpected shape",
					zap.String("path", shapeErr.Path),
					zap.Int("rows_emitted", emitted),
					zap.Error(err),
				)
			}
			outcome = metrics.LineExpansionError
			break
		}
		emitted++
		if !yield(row) {
			break
		}
	}

	metrics.ObserveLine(outcome)
	metrics.AddRowsEmitted(emitted)
	logger.Debug("processed line", zap.Int("rows", emitted), zap.String("outcome", outcome))
	return outcome
}
