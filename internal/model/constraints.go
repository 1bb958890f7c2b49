package model

import "time"

// KPI identifies the metric family a question asks for.
type KPI string

const (
	KPINone        KPI = ""
	KPIRevenue     KPI = "revenue"
	KPIMargin      KPI = "margin"
	KPIUnits       KPI = "units"
	KPIAOV         KPI = "aov"
	KPITopProducts KPI = "top_products"
)

// DateRange is an inclusive civil-date interval. Start and End are UTC
// midnights; only the date components are meaningful.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Constraints is the structured plan extracted from a question and its
// retrieved chunks. Values are never mutated after construction; relaxation
// produces copies via the Without* methods.
type Constraints struct {
	DateRange  *DateRange `json:"date_range,omitempty"`
	Categories []string   `json:"categories,omitempty"`
	KPI        KPI        `json:"kpi,omitempty"`
	TopN       int        `json:"top_n,omitempty"`
}

// WithoutDateRange returns a copy with the date range cleared.
func (c Constraints) WithoutDateRange() Constraints {
	out := c
	out.DateRange = nil
	return out
}

// WithoutCategories returns a copy with the category filters cleared.
func (c Constraints) WithoutCategories() Constraints {
	out := c
	out.Categories = nil
	return out
}

// Empty reports whether no constraint of any kind was extracted.
func (c Constraints) Empty() bool {
	return c.DateRange == nil && len(c.Categories) == 0 && c.KPI == KPINone && c.TopN == 0
}
