// Package sqlgen renders planner constraints into one of a fixed set of
// parameterized SQL templates grounded in the live schema snapshot. There is
// deliberately no free-form SQL generation: every filter is bound as a
// parameter and every template's table set is declared statically, which
// removes injection bugs and makes citations exact.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/sells-group/retail-analytics/internal/model"
	"github.com/sells-group/retail-analytics/internal/store"
)

// Query is a rendered, executable statement. Tables lists every referenced
// table in reference order; the synthesizer cites them verbatim.
type Query struct {
	SQL    string
	Args   []any
	Tables []string
}

// TemplateGapError reports that no template covers the requested KPI or that
// a required table is missing from the schema snapshot. Downstream it is a
// give-up-equivalent outcome, not a crash.
type TemplateGapError struct {
	KPI    model.KPI
	Reason string
}

func (e *TemplateGapError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no sql template for kpi %q: %s", e.KPI, e.Reason)
	}
	return fmt.Sprintf("no sql template for kpi %q", e.KPI)
}

// marginFactor approximates gross margin as a share of unit price: true cost
// is not modeled in the schema, so cost is taken as 0.7 x unit price. Domain
// assumption, not configurable per query.
const marginFactor = 0.3

const defaultTopN = 3

// Render maps constraints onto the template for their KPI family.
func Render(c model.Constraints, schema store.Schema) (Query, error) {
	var q Query
	switch c.KPI {
	case model.KPIRevenue:
		q = renderRevenue(c)
	case model.KPIMargin:
		q = renderMargin(c)
	case model.KPIUnits:
		q = renderUnits(c)
	case model.KPIAOV:
		q = renderAOV(c)
	case model.KPITopProducts:
		q = renderTopProducts(c)
	default:
		return Query{}, &TemplateGapError{KPI: c.KPI}
	}

	for _, table := range q.Tables {
		if !schema.Has(table) {
			return Query{}, &TemplateGapError{KPI: c.KPI, Reason: fmt.Sprintf("table %q not in schema", table)}
		}
	}
	return q, nil
}

// renderRevenue totals net revenue, optionally filtered by category and
// order-date range.
func renderRevenue(c model.Constraints) Query {
	b := newBuilder(
		`SELECT SUM(od.UnitPrice * od.Quantity * (1 - od.Discount)) AS revenue`,
		`FROM "Order Details" od`,
		`JOIN Orders o ON o.OrderID = od.OrderID`,
	)
	b.tables("Order Details", "Orders")
	if len(c.Categories) > 0 {
		b.joinCategories()
	}
	b.whereDate(c.DateRange)
	b.whereCategories(c.Categories)
	return b.build()
}

// renderMargin ranks customers by approximate gross margin and keeps the top
// one.
func renderMargin(c model.Constraints) Query {
	b := newBuilder(
		fmt.Sprintf(`SELECT c.CompanyName AS customer, SUM(od.UnitPrice * %v * od.Quantity * (1 - od.Discount)) AS margin`, marginFactor),
		`FROM "Order Details" od`,
		`JOIN Orders o ON o.OrderID = od.OrderID`,
		`JOIN Customers c ON c.CustomerID = o.CustomerID`,
	)
	b.tables("Order Details", "Orders", "Customers")
	b.whereDate(c.DateRange)
	b.group(`GROUP BY c.CustomerID`)
	b.order(`ORDER BY margin DESC LIMIT 1`)
	return b.build()
}

// renderUnits finds the category with the most units sold.
func renderUnits(c model.Constraints) Query {
	b := newBuilder(
		`SELECT cat.CategoryName AS category, SUM(od.Quantity) AS quantity`,
		`FROM "Order Details" od`,
		`JOIN Orders o ON o.OrderID = od.OrderID`,
	)
	b.tables("Order Details", "Orders")
	b.joinCategoriesAs("cat")
	b.whereDate(c.DateRange)
	if len(c.Categories) > 0 {
		b.where(`cat.CategoryName IN (`+placeholders(len(c.Categories))+`)`, toAnys(c.Categories)...)
	}
	b.group(`GROUP BY cat.CategoryID`)
	b.order(`ORDER BY quantity DESC LIMIT 1`)
	return b.build()
}

// renderAOV computes average order value over the constrained orders.
func renderAOV(c model.Constraints) Query {
	b := newBuilder(
		`SELECT SUM(od.UnitPrice * od.Quantity * (1 - od.Discount)) / COUNT(DISTINCT o.OrderID) AS aov`,
		`FROM "Order Details" od`,
		`JOIN Orders o ON o.OrderID = od.OrderID`,
	)
	b.tables("Order Details", "Orders")
	if len(c.Categories) > 0 {
		b.joinCategories()
	}
	b.whereDate(c.DateRange)
	b.whereCategories(c.Categories)
	return b.build()
}

// renderTopProducts ranks products by net revenue.
func renderTopProducts(c model.Constraints) Query {
	b := newBuilder(
		`SELECT p.ProductName AS product, SUM(od.UnitPrice * od.Quantity * (1 - od.Discount)) AS revenue`,
		`FROM "Order Details" od`,
		`JOIN Orders o ON o.OrderID = od.OrderID`,
		`JOIN Products p ON p.ProductID = od.ProductID`,
	)
	b.tables("Order Details", "Orders", "Products")
	if len(c.Categories) > 0 {
		b.join(`JOIN Categories cat ON cat.CategoryID = p.CategoryID`)
		b.tables("Categories")
		b.where(`cat.CategoryName IN (`+placeholders(len(c.Categories))+`)`, toAnys(c.Categories)...)
	}
	b.whereDate(c.DateRange)
	b.group(`GROUP BY p.ProductID`)
	n := c.TopN
	if n <= 0 {
		n = defaultTopN
	}
	b.order(`ORDER BY revenue DESC LIMIT ?`)
	b.args = append(b.args, n)
	return b.build()
}

// builder assembles a statement from clauses while keeping argument order
// aligned with placeholder order.
type builder struct {
	selectFrom []string
	joins      []string
	wheres     []string
	groupBy    string
	orderBy    string
	args       []any
	tableList  []string
	tableSeen  map[string]bool
}

func newBuilder(clauses ...string) *builder {
	return &builder{selectFrom: clauses, tableSeen: map[string]bool{}}
}

func (b *builder) tables(names ...string) {
	for _, n := range names {
		if !b.tableSeen[n] {
			b.tableSeen[n] = true
			b.tableList = append(b.tableList, n)
		}
	}
}

func (b *builder) join(clause string) {
	b.joins = append(b.joins, clause)
}

// joinCategories adds the Products/Categories joins used by category filters
// on order-detail aggregates.
func (b *builder) joinCategories() {
	b.join(`JOIN Products p ON p.ProductID = od.ProductID`)
	b.join(`JOIN Categories cat ON cat.CategoryID = p.CategoryID`)
	b.tables("Products", "Categories")
}

func (b *builder) joinCategoriesAs(alias string) {
	b.join(`JOIN Products p ON p.ProductID = od.ProductID`)
	b.join(fmt.Sprintf(`JOIN Categories %s ON %s.CategoryID = p.CategoryID`, alias, alias))
	b.tables("Products", "Categories")
}

func (b *builder) where(clause string, args ...any) {
	b.wheres = append(b.wheres, clause)
	b.args = append(b.args, args...)
}

func (b *builder) whereDate(r *model.DateRange) {
	if r == nil {
		return
	}
	b.where(`DATE(o.OrderDate) BETWEEN ? AND ?`,
		r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

func (b *builder) whereCategories(categories []string) {
	if len(categories) == 0 {
		return
	}
	b.where(`cat.CategoryName IN (`+placeholders(len(categories))+`)`, toAnys(categories)...)
}

func (b *builder) group(clause string) { b.groupBy = clause }
func (b *builder) order(clause string) { b.orderBy = clause }

func (b *builder) build() Query {
	parts := make([]string, 0, 8)
	parts = append(parts, b.selectFrom...)
	parts = append(parts, b.joins...)
	if len(b.wheres) > 0 {
		parts = append(parts, "WHERE "+strings.Join(b.wheres, " AND "))
	}
	if b.groupBy != "" {
		parts = append(parts, b.groupBy)
	}
	if b.orderBy != "" {
		parts = append(parts, b.orderBy)
	}
	return Query{SQL: strings.Join(parts, "\n"), Args: b.args, Tables: b.tableList}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toAnys(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
