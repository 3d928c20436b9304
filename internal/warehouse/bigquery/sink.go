// Package bigquery appends flattened route rows to a BigQuery table with
// streaming inserts.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"github.com/JakeFAU/transit-ingest/internal/transit"
)

// inserter is the subset of *bigquery.Inserter the sink uses.
type inserter interface {
	Put(ctx context.Context, src any) error
}

// Sink streams rows into one table.
type Sink struct {
	ref      TableRef
	table    *bigquery.Table
	inserter inserter
	logger   *zap.Logger
}

// New builds a sink for ref on client.
func New(client *bigquery.Client, ref TableRef, logger *zap.Logger) (*Sink, error) {
	if client == nil {
		return nil, errors.New("bigquery client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	table := client.DatasetInProject(ref.Project, ref.Dataset).Table(ref.Table)
	return &Sink{
		ref:      ref,
		table:    table,
		inserter: table.Inserter(),
		logger:   logger.Named("bigquery"),
	}, nil
}

// Name labels the sink in metrics.
func (s *Sink) Name() string { return "bigquery" }

// Ref reports the destination table.

// EnsureTable creates the destination table with Schema if it does not exist.
// An existing table is left untouched.
func (s *Sink) EnsureTable(ctx context.Context) error {
	if s.table == nil {
		return errors.New("bigquery table handle is not configured")
	}
	_, err := s.table.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !hasStatus(err, http.StatusNotFound) {
		return fmt.Errorf("get table %s: %w", s.ref, err)
	}

	s.logger.Info("creating table", zap.Stringer("table", s.ref))
	err = s.table.Create(ctx, &bigquery.TableMetadata{Schema: Schema()})
	if err != nil && !hasStatus(err, http.StatusConflict) {
		return fmt.Errorf("create table %s: %w", s.ref, err)
	}
	return nil
}

// Append streams rows into the table.
func (s *Sink) Append(ctx context.Context, rows []transit.FlatRow) error {
	if len(rows) == 0 {
		return nil
	}
	savers := make([]*rowSaver, len(rows))
	for i := range rows {
		savers[i] = &rowSaver{row: rows[i]}
	}
	if err := s.inserter.Put(ctx, savers); err != nil {
		var multi bigquery.PutMultiError
		if errors.As(err, &multi) {
			return fmt.Errorf("insert into %s: %d of %d rows rejected: %w", s.ref, len(multi), len(rows), err)
		}
		return fmt.Errorf("insert into %s: %w", s.ref, err)
	}
	return nil
}

// rowSaver adapts a FlatRow to bigquery.ValueSaver.
type rowSaver struct {
	row transit.FlatRow
}

// Save returns the row keyed by column name; the empty insert ID lets the
// client generate one for best-effort dedup.
func (r *rowSaver) Save() (map[string]bigquery.Value, string, error) {
	row := r.row.Map()
	out := make(map[string]bigquery.Value, len(row))
	for name, v := range row {
		out[name] = v
	}
	return out, "", nil
}

func hasStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
