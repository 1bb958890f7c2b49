// Package router classifies questions into retrieval-only, sql-only, or
// hybrid execution. The learned classifier is optional; a pure heuristic
// backs it so routing never blocks the pipeline.
package router

import (
	"context"
	"strings"

	"github.com/sells-group/retail-analytics/internal/model"
)

// Router classifies a question into a route.
type Router interface {
	Route(ctx context.Context, question string) (model.Route, error)
}

// ParseRoute maps a model-emitted label onto a route. "rag" is accepted as
// an alias for retrieval, matching the exemplar labels.
func ParseRoute(label string) (model.Route, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "retrieval", "rag":
		return model.RouteRetrieval, true
	case "sql":
		return model.RouteSQL, true
	case "hybrid":
		return model.RouteHybrid, true
	}
	return "", false
}
