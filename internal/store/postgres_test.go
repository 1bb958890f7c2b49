package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock, queryTimeout: 5 * time.Second}, mock
}

func TestPostgresSnapshot(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT table_name, column_name, data_type`).
		WillReturnRows(pgxmock.NewRows([]string{"table_name", "column_name", "data_type"}).
			AddRow("Orders", "OrderID", "integer").
			AddRow("Orders", "OrderDate", "date").
			AddRow("Categories", "CategoryID", "integer"))

	schema, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Categories", "Orders"}, schema.Tables())
	assert.Equal(t, []Column{{Name: "OrderID", Type: "integer"}, {Name: "OrderDate", Type: "date"}}, schema["Orders"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshot_EmptyIsError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT table_name, column_name, data_type`).
		WillReturnRows(pgxmock.NewRows([]string{"table_name", "column_name", "data_type"}))

	_, err := s.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestPostgresQuery_RebindsPlaceholders(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM "Orders" WHERE "OrderDate" BETWEEN \$1 AND \$2`).
		WithArgs("2013-06-01", "2013-08-31").
		WillReturnRows(pgxmock.NewRows([]string{"revenue"}).AddRow(float64(1234.5)))

	res, err := s.Query(context.Background(),
		`SELECT SUM(x) AS revenue FROM "Orders" WHERE "OrderDate" BETWEEN ? AND ?`,
		"2013-06-01", "2013-08-31")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 1234.5, res.Rows[0]["revenue"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQuery_RejectsWrites(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	_, err := s.Query(context.Background(), `DROP TABLE "Orders"`)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
}

func TestPostgresMinOrderYear(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT MIN\("OrderDate"\)`).
		WillReturnRows(pgxmock.NewRows([]string{"min"}).AddRow(strPtr("2013-07-04")))

	year, err := s.MinOrderYear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2013, year)
}

func TestPostgresMinOrderYear_EmptyTable(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT MIN\("OrderDate"\)`).
		WillReturnRows(pgxmock.NewRows([]string{"min"}).AddRow((*string)(nil)))

	_, err := s.MinOrderYear(context.Background())
	assert.Error(t, err)
}

func strPtr(s string) *string { return &s }
