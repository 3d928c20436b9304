package flatten

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/transit-ingest/internal/metrics"
	"github.com/JakeFAU/transit-ingest/internal/source"
	"github.com/JakeFAU/transit-ingest/internal/transit"
)

// DefaultBatchSize caps rows per Append when none is configured.
const DefaultBatchSize = 500

// Sink appends rows to a fixed-schema table. It never truncates or rewrites.
type Sink interface {
	Append(ctx context.Context, rows []transit.FlatRow) error
}

// namedSink lets a sink label its metrics.
type namedSink interface {
	Name() string
}

// Stats summarizes a pipeline run.
type Stats struct {
	Lines           int
	BlankLines      int
	ParseErrors     int
	ExpansionErrors int
	Rows            int
	Batches         int
}

// Pipeline reads lines from a source, flattens them and appends the rows to a sink.
type Pipeline struct {
	transformer *Transformer
	sink        Sink
	batchSize   int
	sinkName    string
	logger      *zap.Logger
}

// NewPipeline wires a transformer to a sink.
func NewPipeline(transformer *Transformer, sink Sink, batchSize int, logger *zap.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	name := "sink"
	if n, ok := sink.(namedSink); ok {
		name = n.Name()
	}
	return &Pipeline{
		transformer: transformer,
		sink:        sink,
		batchSize:   batchSize,
		sinkName:    name,
		logger:      logger.Named("pipeline"),
	}
}

type runState struct {
	batch   []transit.FlatRow
	pending []source.Line
	stats   Stats
}

// Run consumes src until it is exhausted or ctx is done. Rows are appended in
// batches of at most the configured size; a line that must be acknowledged is
// acked only after all of its rows were appended. Bad lines are skipped, but a
// sink failure ends the run and nacks any unsettled lines.
func (p *Pipeline) Run(ctx context.Context, src source.Source) (Stats, error) {
	st := &runState{batch: make([]transit.FlatRow, 0, p.batchSize)}

	for {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.nackPending(st)
			return st.stats, err
		}
		st.stats.Lines++

		if len(bytes.TrimSpace(line.Data)) == 0 {
			st.stats.BlankLines++
			if line.Settled() {
				line.Ack()
			}
			continue
		}

		var flushErr error
		outcome := p.transformer.process(line.Number, line.Data, func(row transit.FlatRow) bool {
			st.batch = append(st.batch, row)
			if len(st.batch) >= p.batchSize {
				flushErr = p.flush(ctx, st)
			}
			return flushErr == nil
		})
		if flushErr != nil {
			if line.Settled() {
				line.Nack()
			}
			p.nackPending(st)
			return st.stats, flushErr
		}
		switch outcome {
		case metrics.LineParseError:
			st.stats.ParseErrors++
		case metrics.LineExpansionError:
			st.stats.ExpansionErrors++
		}

		if line.Settled() {
			st.pending = append(st.pending, line)
			if err := p.flush(ctx, st); err != nil {
				p.nackPending(st)
				return st.stats, err
			}
		}
	}

	if err := p.flush(ctx, st); err != nil {
		p.nackPending(st)
		return st.stats, err
	}
	p.logger.Info("flatten run finished",
		zap.Int("lines", st.stats.Lines),
		zap.Int("rows", st.stats.Rows),
		zap.Int("parse_errors", st.stats.ParseErrors),
		zap.Int("expansion_errors", st.stats.ExpansionErrors),
	)
	return st.stats, nil
}

// flush appends the current batch and then acks every pending line.
func (p *Pipeline) flush(ctx context.Context, st *runState) error {
	if n := len(st.batch); n > 0 {
		start := time.Now()
		err := p.sink.Append(ctx, st.batch)
		metrics.ObserveAppend(p.sinkName, time.Since(start))
		if err != nil {
			return fmt.Errorf("append %d rows to %s: %w", n, p.sinkName, err)
		}
		st.stats.Rows += n
		st.stats.Batches++
		p.logger.Debug("appended batch", zap.Int("rows", n))
		st.batch = make([]transit.FlatRow, 0, p.batchSize)
	}
	for _, line := range st.pending {
		line.Ack()
	}
	st.pending = st.pending[:0]
	return nil
}

func (p *Pipeline) nackPending(st *runState) {
	for _, line := range st.pending {
		line.Nack()
	}
	st.pending = nil
}
