package model

// Row is a single result row keyed by column name, in no particular order.
// Column ordering, where it matters, is carried separately by the attempt.
type Row = map[string]any

// Attempt records one execution of a generated query at a given relaxation
// level. Level 0 applies the full constraints, level 1 drops the date range,
// level 2 drops the date range and the category filters.
type Attempt struct {
	Level   int      `json:"level"`
	Query   string   `json:"query"`
	Args    []any    `json:"args,omitempty"`
	Columns []string `json:"columns,omitempty"`
	Rows    []Row    `json:"rows,omitempty"`
	Err     string   `json:"error,omitempty"`
}

// Succeeded reports whether the attempt executed without error and returned
// at least one row.
func (a Attempt) Succeeded() bool {
	return a.Err == "" && len(a.Rows) > 0
}
