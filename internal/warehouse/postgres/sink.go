// Package postgres appends flattened route rows to a Postgres table.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/transit-ingest/internal/transit"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "flat_routes"

// Config controls the Postgres connection pool used for row appends.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type copyCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error)
	Close()
}

// Sink writes rows with COPY.
type Sink struct {
	pool  copyCloser
	table string
}

// New connects to Postgres using cfg.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("warehouse.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Sink{pool: pool, table: table}, nil
}

// NewWithPool constructs a sink from an existing pool (primarily for testing).
func NewWithPool(pool copyCloser, table string) (*Sink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Sink{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Name labels the sink in metrics.
func (s *Sink) Name() string { return "postgres" }

// Close releases the underlying pool resources.
func (s *Sink) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// EnsureTable creates the table from the flat route schema when it is missing.
func (s *Sink) EnsureTable(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTableSQL(s.table)); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Append copies rows into the table.
func (s *Sink) Append(ctx context.Context, rows []transit.FlatRow) error {
	if len(rows) == 0 {
		return nil
	}
	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		return rows[i].Values(), nil
	})
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.table}, transit.ColumnNames(), src)
	if err != nil {
		return fmt.Errorf("copy into %s: %w", s.table, err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", s.table, n, len(rows))
	}
	return nil
}

func createTableSQL(table string) string {
	cols := make([]string, len(transit.Columns))
	for i, col := range transit.Columns {
		cols[i] = fmt.Sprintf("\t%s %s", pgx.Identifier{col.Name}.Sanitize(), sqlType(col.Type))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)",
		pgx.Identifier{table}.Sanitize(), strings.Join(cols, ",\n"))
}

func sqlType(t transit.ColumnType) string {
	switch t {
	case transit.TypeInteger:
		return "BIGINT"
	case transit.TypeFloat:
		return "DOUBLE PRECISION"
	case transit.TypeBoolean:
		return "BOOLEAN"
	case transit.TypeTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}
