package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE Categories (
	CategoryID   INTEGER PRIMARY KEY,
	CategoryName TEXT NOT NULL
);
CREATE TABLE Products (
	ProductID   INTEGER PRIMARY KEY,
	ProductName TEXT NOT NULL,
	CategoryID  INTEGER REFERENCES Categories(CategoryID)
);
CREATE TABLE Orders (
	OrderID   INTEGER PRIMARY KEY,
	OrderDate TEXT NOT NULL
);
CREATE TABLE "Order Details" (
	OrderID   INTEGER,
	ProductID INTEGER,
	UnitPrice REAL,
	Quantity  INTEGER,
	Discount  REAL
);
INSERT INTO Categories VALUES (1, 'Beverages'), (2, 'Condiments');
INSERT INTO Products VALUES (1, 'Chai', 1), (2, 'Aniseed Syrup', 2);
INSERT INTO Orders VALUES (10, '2013-06-15'), (11, '2013-12-01');
INSERT INTO "Order Details" VALUES
	(10, 1, 18.0, 10, 0.0),
	(10, 2, 10.0, 5, 0.1),
	(11, 1, 18.0, 2, 0.0);
`

// newTestStore seeds a throwaway Northwind-shaped database and opens it
// through the read-only store.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")

	rw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = rw.Exec(testSchema)
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	s, err := NewSQLite(path, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteSnapshot(t *testing.T) {
	s := newTestStore(t)

	schema, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Categories", "Order Details", "Orders", "Products"}, schema.Tables())
	require.True(t, schema.Has("Order Details"))
	assert.Equal(t, Column{Name: "UnitPrice", Type: "REAL"}, schema["Order Details"][2])
}

func TestSQLiteQuery(t *testing.T) {
	s := newTestStore(t)

	res, err := s.Query(context.Background(),
		`SELECT p.ProductName AS product, SUM(od.Quantity) AS quantity
		 FROM "Order Details" od JOIN Products p ON p.ProductID = od.ProductID
		 WHERE p.CategoryID = ?
		 GROUP BY p.ProductID`, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"product", "quantity"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Chai", res.Rows[0]["product"])
	assert.EqualValues(t, 12, res.Rows[0]["quantity"])
}

func TestSQLiteQuery_EmptyResultIsNotError(t *testing.T) {
	s := newTestStore(t)

	res, err := s.Query(context.Background(), `SELECT * FROM Orders WHERE OrderID = ?`, 999)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestSQLiteQuery_ExecutionError(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Query(context.Background(), `SELECT * FROM NoSuchTable`)
	require.Error(t, err)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
}

func TestSQLiteQuery_RejectsWrites(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Query(context.Background(), `DELETE FROM Orders`)
	require.Error(t, err)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Message, "write statement rejected")

	// The data is still intact.
	res, err := s.Query(context.Background(), `SELECT COUNT(*) AS n FROM Orders`)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Rows[0]["n"])
}

func TestSQLiteMinOrderYear(t *testing.T) {
	s := newTestStore(t)

	year, err := s.MinOrderYear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2013, year)
}
