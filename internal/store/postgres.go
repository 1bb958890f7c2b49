package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store over a postgres dataset using pgx. The
// session is forced read-only via default_transaction_read_only.
type PostgresStore struct {
	pool         Pool
	queryTimeout time.Duration
}

// NewPostgres connects to the given database URL with a read-only session.
func NewPostgres(ctx context.Context, connString string, queryTimeout time.Duration) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	if pgxCfg.ConnConfig.RuntimeParams == nil {
		pgxCfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	pgxCfg.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, queryTimeout: queryTimeout}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Snapshot introspects user tables via information_schema.
func (s *PostgresStore) Snapshot(ctx context.Context) (Schema, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: introspect columns")
	}
	defer rows.Close()

	schema := make(Schema)
	for rows.Next() {
		var table, col, typ string
		if err := rows.Scan(&table, &col, &typ); err != nil {
			return nil, eris.Wrap(err, "postgres: scan column")
		}
		schema[table] = append(schema[table], Column{Name: col, Type: typ})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate columns")
	}
	if len(schema) == 0 {
		return nil, eris.New("postgres: no tables in public schema")
	}
	return schema, nil
}

// Query executes a read statement. Placeholders are written as ? by the
// templater and rebound to $n here.
func (s *PostgresStore) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	if err := rejectWriteIntent(query); err != nil {
		return nil, &ExecutionError{Query: query, Message: err.Error()}
	}

	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	rows, err := s.pool.Query(ctx, Rebind(query), args...)
	if err != nil {
		return nil, &ExecutionError{Query: query, Message: err.Error()}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &ExecutionError{Query: query, Message: err.Error()}
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecutionError{Query: query, Message: err.Error()}
	}
	return result, nil
}

// MinOrderYear reads the year of the earliest order date.
func (s *PostgresStore) MinOrderYear(ctx context.Context) (int, error) {
	rows, err := s.pool.Query(ctx, `SELECT MIN("OrderDate")::text FROM "Orders"`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: min order date")
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, eris.New("postgres: min order date returned no rows")
	}
	var min *string
	if err := rows.Scan(&min); err != nil {
		return 0, eris.Wrap(err, "postgres: scan min order date")
	}
	if min == nil {
		return 0, eris.New("postgres: orders table is empty")
	}
	return parseYear(*min)
}

// Rebind rewrites ? placeholders to postgres-style $1..$n, leaving quoted
// literals and identifiers untouched.
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	var inSingle, inDouble bool
	for _, r := range query {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case r == '?' && !inSingle && !inDouble:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
