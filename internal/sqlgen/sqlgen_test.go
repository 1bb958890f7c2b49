package sqlgen

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retail-analytics/internal/model"
	"github.com/sells-group/retail-analytics/internal/store"
)

func testSchema() store.Schema {
	return store.Schema{
		"Orders":        {{Name: "OrderID", Type: "INTEGER"}, {Name: "OrderDate", Type: "TEXT"}},
		"Order Details": {{Name: "OrderID", Type: "INTEGER"}, {Name: "UnitPrice", Type: "REAL"}},
		"Products":      {{Name: "ProductID", Type: "INTEGER"}},
		"Categories":    {{Name: "CategoryID", Type: "INTEGER"}},
		"Customers":     {{Name: "CustomerID", Type: "TEXT"}},
	}
}

func dateRange(s, e string) *model.DateRange {
	start, _ := time.Parse("2006-01-02", s)
	end, _ := time.Parse("2006-01-02", e)
	return &model.DateRange{Start: start, End: end}
}

func TestRender_RevenueWithFilters(t *testing.T) {
	c := model.Constraints{
		KPI:        model.KPIRevenue,
		DateRange:  dateRange("2013-06-01", "2013-08-31"),
		Categories: []string{"Beverages"},
	}

	q, err := Render(c, testSchema())
	require.NoError(t, err)

	assert.Contains(t, q.SQL, `SUM(od.UnitPrice * od.Quantity * (1 - od.Discount))`)
	assert.Contains(t, q.SQL, `DATE(o.OrderDate) BETWEEN ? AND ?`)
	assert.Contains(t, q.SQL, `cat.CategoryName IN (?)`)
	assert.Equal(t, []any{"2013-06-01", "2013-08-31", "Beverages"}, q.Args)
	assert.Equal(t, []string{"Order Details", "Orders", "Products", "Categories"}, q.Tables)
}

func TestRender_NoLiteralsInSQL(t *testing.T) {
	c := model.Constraints{
		KPI:        model.KPIRevenue,
		DateRange:  dateRange("2013-06-01", "2013-08-31"),
		Categories: []string{"Beverages"},
	}
	q, err := Render(c, testSchema())
	require.NoError(t, err)

	assert.NotContains(t, q.SQL, "2013")
	assert.NotContains(t, q.SQL, "Beverages")
}

func TestRender_RevenueBare(t *testing.T) {
	q, err := Render(model.Constraints{KPI: model.KPIRevenue}, testSchema())
	require.NoError(t, err)

	assert.NotContains(t, q.SQL, "WHERE")
	assert.Empty(t, q.Args)
	assert.Equal(t, []string{"Order Details", "Orders"}, q.Tables)
}

func TestRender_Margin(t *testing.T) {
	q, err := Render(model.Constraints{KPI: model.KPIMargin}, testSchema())
	require.NoError(t, err)

	assert.Contains(t, q.SQL, "0.3")
	assert.Contains(t, q.SQL, "CompanyName AS customer")
	assert.Contains(t, q.SQL, "ORDER BY margin DESC LIMIT 1")
	assert.Equal(t, []string{"Order Details", "Orders", "Customers"}, q.Tables)
}

func TestRender_Units(t *testing.T) {
	q, err := Render(model.Constraints{
		KPI:       model.KPIUnits,
		DateRange: dateRange("2013-06-01", "2013-06-30"),
	}, testSchema())
	require.NoError(t, err)

	assert.Contains(t, q.SQL, "SUM(od.Quantity) AS quantity")
	assert.Contains(t, q.SQL, "GROUP BY cat.CategoryID")
	assert.Equal(t, []any{"2013-06-01", "2013-06-30"}, q.Args)
}

func TestRender_AOV(t *testing.T) {
	q, err := Render(model.Constraints{KPI: model.KPIAOV}, testSchema())
	require.NoError(t, err)

	assert.Contains(t, q.SQL, "COUNT(DISTINCT o.OrderID)")
	assert.Contains(t, q.SQL, "AS aov")
}

func TestRender_TopProducts(t *testing.T) {
	q, err := Render(model.Constraints{KPI: model.KPITopProducts, TopN: 5}, testSchema())
	require.NoError(t, err)

	assert.Contains(t, q.SQL, "ORDER BY revenue DESC LIMIT ?")
	assert.Equal(t, []any{5}, q.Args)
	assert.Equal(t, []string{"Order Details", "Orders", "Products"}, q.Tables)
}

func TestRender_TopProductsDefaultN(t *testing.T) {
	q, err := Render(model.Constraints{KPI: model.KPITopProducts}, testSchema())
	require.NoError(t, err)
	assert.Equal(t, []any{defaultTopN}, q.Args)
}

func TestRender_TemplateGap(t *testing.T) {
	_, err := Render(model.Constraints{}, testSchema())
	var gap *TemplateGapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, model.KPINone, gap.KPI)
}

func TestRender_MissingTableIsGap(t *testing.T) {
	schema := store.Schema{"Orders": nil}
	_, err := Render(model.Constraints{KPI: model.KPIRevenue}, schema)
	var gap *TemplateGapError
	require.ErrorAs(t, err, &gap)
	assert.Contains(t, gap.Reason, "Order Details")
}

func TestRender_PlaceholderArgCountsAlign(t *testing.T) {
	kpis := []model.KPI{model.KPIRevenue, model.KPIMargin, model.KPIUnits, model.KPIAOV, model.KPITopProducts}
	c := model.Constraints{
		DateRange:  dateRange("2013-01-01", "2013-12-31"),
		Categories: []string{"Beverages", "Produce"},
		TopN:       4,
	}
	for _, kpi := range kpis {
		c.KPI = kpi
		q, err := Render(c, testSchema())
		require.NoError(t, err, "kpi=%s", kpi)
		assert.Equal(t, strings.Count(q.SQL, "?"), len(q.Args), "kpi=%s", kpi)
	}
}
