package router

import (
	"context"
	"strings"

	"github.com/sells-group/retail-analytics/internal/model"
)

// sqlSignals mark questions that need the transactional store.
var sqlSignals = []string{
	"top", "revenue", "aov", "average order value", "margin",
	"quantity", "units", "customer",
}

// docSignals mark questions answered from the document corpus alone.
var docSignals = []string{
	"policy", "return window", "returns policy", "docs", "definition", "explain",
}

// Heuristic is the deterministic fallback router. It is pure and total: it
// never errors, never blocks, and always returns a valid route.
type Heuristic struct{}

// Route classifies by vocabulary presence alone.
func (Heuristic) Route(_ context.Context, question string) (model.Route, error) {
	q := strings.ToLower(question)

	hasSQL := containsAny(q, sqlSignals)
	hasDoc := containsAny(q, docSignals)

	switch {
	case hasDoc:
		// Definition and policy asks are documentary even when they
		// mention a metric by name.
		return model.RouteRetrieval, nil
	case hasSQL && isPureRanking(q):
		return model.RouteSQL, nil
	case hasSQL:
		return model.RouteHybrid, nil
	default:
		return model.RouteRetrieval, nil
	}
}

// isPureRanking detects ranking/aggregation asks with no calendar or
// document cues, which need no corpus support.
func isPureRanking(q string) bool {
	if containsAny(q, []string{"season", "promotion", "during", "per policy"}) {
		return false
	}
	return (strings.Contains(q, "top") || strings.Contains(q, "rank") || strings.Contains(q, "list")) &&
		strings.Contains(q, "revenue")
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
