// Package store provides read-only access to the transactional dataset:
// schema introspection, bounded query execution, and the earliest
// transaction year used to compute the corpus year offset.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/retail-analytics/internal/model"
)

// Column is one introspected column of a table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema maps table names to their columns in declaration order. Built once
// at startup and shared read-only across all questions.
type Schema map[string][]Column

// Tables returns table names in sorted order.
func (s Schema) Tables() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the schema contains the named table.
func (s Schema) Has(table string) bool {
	_, ok := s[table]
	return ok
}

// Result is the outcome of a successful query: column names in projection
// order plus the rows.
type Result struct {
	Columns []string
	Rows    []model.Row
}

// Store is the read-only relational collaborator.
type Store interface {
	// Snapshot introspects table and column metadata. Called once at startup.
	Snapshot(ctx context.Context) (Schema, error)
	// Query executes a read statement with bound parameters. An empty result
	// is not an error.
	Query(ctx context.Context, sql string, args ...any) (*Result, error)
	// MinOrderYear returns the year of the earliest order in the dataset.
	MinOrderYear(ctx context.Context) (int, error)
	Close() error
}

// ExecutionError reports a failed statement execution. It drives the repair
// controller and is only surfaced to the user once all attempts exhaust.
type ExecutionError struct {
	Query   string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %s", e.Message)
}

// ErrWriteStatement rejects write-intent statements before they reach the
// database. The templater only emits reads; this guard is independent of it.
type writeStatementError struct {
	verb string
}

func (e *writeStatementError) Error() string {
	return fmt.Sprintf("write statement rejected: %s", e.verb)
}

// rejectWriteIntent returns an error unless the statement is a single
// read-only SELECT (or WITH ... SELECT).
func rejectWriteIntent(query string) error {
	trimmed := strings.TrimSpace(query)
	trimmed = strings.TrimSuffix(trimmed, ";")
	if strings.Contains(trimmed, ";") {
		return &writeStatementError{verb: "multiple statements"}
	}
	fields := strings.Fields(strings.ToLower(trimmed))
	if len(fields) == 0 {
		return &writeStatementError{verb: "empty statement"}
	}
	switch fields[0] {
	case "select", "with":
		return nil
	}
	return &writeStatementError{verb: fields[0]}
}
