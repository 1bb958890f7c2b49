package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/retail-analytics/internal/model"
)

// SQLiteStore implements Store over a local SQLite dataset using
// modernc.org/sqlite. The connection is opened in query-only mode.
type SQLiteStore struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewSQLite opens the SQLite database at path read-only.
func NewSQLite(path string, queryTimeout time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA query_only=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	return &SQLiteStore{db: db, queryTimeout: queryTimeout}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Snapshot introspects user tables via sqlite_master and PRAGMA table_info.
func (s *SQLiteStore) Snapshot(ctx context.Context) (Schema, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate tables")
	}

	schema := make(Schema, len(tables))
	for _, table := range tables {
		cols, err := s.tableColumns(ctx, table)
		if err != nil {
			return nil, err
		}
		schema[table] = cols
	}
	return schema, nil
}

func (s *SQLiteStore) tableColumns(ctx context.Context, table string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: table_info %s", table)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan column of %s", table)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Query executes a read statement with a statement-level timeout. Failures
// come back as *ExecutionError so the repair controller can act on them.
func (s *SQLiteStore) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	if err := rejectWriteIntent(query); err != nil {
		return nil, &ExecutionError{Query: query, Message: err.Error()}
	}

	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ExecutionError{Query: query, Message: err.Error()}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &ExecutionError{Query: query, Message: err.Error()}
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &ExecutionError{Query: query, Message: err.Error()}
		}
		row := make(model.Row, len(cols))
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
func (s *SQLiteStore) MinOrderYear(ctx context.Context) (int, error) {
	var min sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MIN(OrderDate) FROM Orders`).Scan(&min)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: min order date")
	}
	return parseYear(min.String)
}

func parseYear(date string) (int, error) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, eris.Errorf("store: unparseable order date %q", date)
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, eris.Wrapf(err, "store: unparseable order date %q", date)
	}
	return year, nil
}

// normalizeValue maps driver values onto the small set of types the
// synthesizer handles: int64, float64, string, nil.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format("2006-01-02")
	default:
		return v
	}
}
