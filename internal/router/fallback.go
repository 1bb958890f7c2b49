package router

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/retail-analytics/internal/model"
)

// Decision is the outcome of routing one question.
type Decision struct {
	Route    model.Route
	FellBack bool
}

// Fallback tries the learned router and degrades to the heuristic when it
// errors, times out, or is not configured. It never returns an error.
type Fallback struct {
	Primary   Router // may be nil when no inference backend is configured
	Heuristic Heuristic
}

// Route classifies the question, reporting whether the heuristic fired.
func (f Fallback) Route(ctx context.Context, question string) Decision {
	heuristicRoute, _ := f.Heuristic.Route(ctx, question)

	if f.Primary == nil {
		return Decision{Route: heuristicRoute, FellBack: true}
	}

	learned, err := f.Primary.Route(ctx, question)
	if err != nil {
		zap.L().Debug("router: learned routing unavailable, using heuristic",
			zap.Error(err))
		return Decision{Route: heuristicRoute, FellBack: true}
	}

	// Guard: a learned retrieval verdict does not override clear SQL
	// signals in the question.
	if learned == model.RouteRetrieval && heuristicRoute.NeedsSQL() {
		return Decision{Route: heuristicRoute, FellBack: false}
	}
	return Decision{Route: learned, FellBack: false}
}
