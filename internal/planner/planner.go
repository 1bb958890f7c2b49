// Package planner extracts structured query constraints from a question and
// its top-ranked chunks. Extraction is deliberately lossy: unmatched terms
// are dropped rather than erroring, and an under-constrained plan is a valid,
// low-confidence outcome.
package planner

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/retail-analytics/internal/calendar"
	"github.com/sells-group/retail-analytics/internal/model"
)

var (
	dateRangeRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*(?:to|through|–|—|-)\s*(\d{4}-\d{2}-\d{2})`)
	seasonRe    = regexp.MustCompile(`(?i)\b(spring|summer|autumn|fall|winter|q[1-4])\b(?:[^.\n]*?\b(\d{4})\b)?`)
	topNRe      = regexp.MustCompile(`(?i)\btop\s+(\d+)\b`)
)

// Planner turns question text and retrieved chunks into Constraints, shifting
// every corpus-relative date by the process-wide year offset.
type Planner struct {
	vocab    Vocabulary
	offset   int
	baseYear int
}

// New creates a Planner. offset is the store-vs-corpus year offset; baseYear
// is the calendar year the corpus assumes when a phrase names no year.
func New(vocab Vocabulary, offset, baseYear int) *Planner {
	return &Planner{vocab: vocab, offset: offset, baseYear: baseYear}
}

// Result is a plan plus the chunk refs that contributed a constraint, kept
// for citation ordering.
type Result struct {
	Constraints model.Constraints
	Sources     []string
}

// Plan extracts constraints from the question and, where the question is
// silent, from the top-ranked chunks. It never fails.
func (p *Planner) Plan(question string, chunks []model.Chunk) Result {
	var res Result
	contributed := map[string]bool{}
	cite := func(ref string) {
		if ref != "" {
			contributed[ref] = true
		}
	}

	// Date range: question first, then chunks in rank order.
	if r, ok := p.extractDateRange(question); ok {
		res.Constraints.DateRange = &r
	} else {
		for _, c := range chunks {
			if r, ok := p.extractDateRange(c.Text); ok {
				res.Constraints.DateRange = &r
				cite(c.Ref())
				break
			}
		}
	}

	// Categories: closed-vocabulary match on the question, then chunks.
	res.Constraints.Categories = p.vocab.Match(question)
	if len(res.Constraints.Categories) == 0 {
		for _, c := range chunks {
			if cats := p.vocab.Match(c.Text); len(cats) > 0 {
				res.Constraints.Categories = cats
				cite(c.Ref())
				break
			}
		}
	}

	res.Constraints.KPI = detectKPI(question)
	if m := topNRe.FindStringSubmatch(question); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			res.Constraints.TopN = n
		}
	}

	// Sources follow retrieval rank order, not extraction order, so
	// citations stay aligned with the ranked chunk list.
	for _, c := range chunks {
		if contributed[c.Ref()] {
			res.Sources = append(res.Sources, c.Ref())
		}
	}
	return res
}

// extractDateRange finds an explicit ISO range or a named season/quarter in
// text and shifts the resolved boundaries into the dataset's timeline.
func (p *Planner) extractDateRange(text string) (model.DateRange, bool) {
	if m := dateRangeRe.FindStringSubmatch(text); m != nil {
		start, err1 := time.Parse("2006-01-02", m[1])
		end, err2 := time.Parse("2006-01-02", m[2])
		if err1 == nil && err2 == nil && !end.Before(start) {
			return calendar.ShiftRange(model.DateRange{Start: start, End: end}, p.offset), true
		}
	}
	if m := seasonRe.FindStringSubmatch(text); m != nil {
		year, err := strconv.Atoi(m[2])
		if err != nil {
			year = p.baseYear
		}
		if r, ok := calendar.ResolveSeason(m[1], year); ok {
			return calendar.ShiftRange(r, p.offset), true
		}
	}
	return model.DateRange{}, false
}

// detectKPI matches the question against the closed KPI vocabulary. Order
// matters: ranking asks are classified before the plain revenue family.
func detectKPI(question string) model.KPI {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "aov") || strings.Contains(q, "average order value"):
		return model.KPIAOV
	case strings.Contains(q, "margin"):
		return model.KPIMargin
	case strings.Contains(q, "top") && strings.Contains(q, "product"):
		return model.KPITopProducts
	case strings.Contains(q, "units") || strings.Contains(q, "quantity"):
		return model.KPIUnits
	case strings.Contains(q, "revenue"):
		return model.KPIRevenue
	}
	return model.KPINone
}
