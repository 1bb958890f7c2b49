// Package pipeline runs one question end to end: route, retrieve, plan,
// render-and-repair, synthesize. Each stage emits a trace record; per-question
// failures degrade the answer instead of aborting the batch.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/retail-analytics/internal/model"
	"github.com/sells-group/retail-analytics/internal/planner"
	"github.com/sells-group/retail-analytics/internal/retrieval"
	"github.com/sells-group/retail-analytics/internal/router"
	"github.com/sells-group/retail-analytics/internal/store"
	"github.com/sells-group/retail-analytics/internal/trace"
)

const defaultTopK = 4

// Env is the immutable process-wide context the pipeline runs against. It is
// assembled once at startup; Run never mutates it, so one Env serves any
// number of concurrent questions.
type Env struct {
	Store   store.Store
	Schema  store.Schema
	Offset  int
	Index   *retrieval.Index
	Router  router.Fallback
	Planner *planner.Planner
	Tracer  trace.Writer
	TopK    int
}

// Pipeline answers questions against a fixed Env.
type Pipeline struct {
	env Env
}

// New builds a Pipeline, defaulting the tracer and retrieval depth.
func New(env Env) *Pipeline {
	if env.Tracer == nil {
		env.Tracer = trace.Nop{}
	}
	if env.TopK <= 0 {
		env.TopK = defaultTopK
	}
	return &Pipeline{env: env}
}

func (p *Pipeline) emit(qid, stage string, payload map[string]any) {
	p.env.Tracer.Emit(trace.Record{
		QuestionID: qid,
		Stage:      stage,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	})
}

// Run answers a single question. The only error it returns is a
// *FormatMismatchError; every other failure mode degrades into a
// low-confidence answer.
func (p *Pipeline) Run(ctx context.Context, q model.Question) (model.Answer, error) {
	log := zap.L().With(zap.String("question_id", q.ID))

	decision := p.env.Router.Route(ctx, q.Text)
	p.emit(q.ID, trace.StageRoute, map[string]any{
		"route":     string(decision.Route),
		"fell_back": decision.FellBack,
	})

	// All routes retrieve: even a pure SQL answer cites corpus context
	// when a chunk contributed a constraint.
	var chunks []model.Chunk
	if p.env.Index != nil {
		chunks = p.env.Index.Search(q.Text, p.env.TopK)
	}
	refs := make([]string, 0, len(chunks))
	for _, c := range chunks {
		refs = append(refs, c.Ref())
	}
	p.emit(q.ID, trace.StageRetrieve, map[string]any{"chunks": refs})

	// The sql route trusts the question text alone; hybrid and retrieval
	// let chunks fill constraints the question leaves implicit.
	planChunks := chunks
	if decision.Route == model.RouteSQL {
		planChunks = nil
	}
	plan := p.env.Planner.Plan(q.Text, planChunks)
	p.emit(q.ID, trace.StagePlan, map[string]any{
		"kpi":            string(plan.Constraints.KPI),
		"categories":     plan.Constraints.Categories,
		"has_date_range": plan.Constraints.DateRange != nil,
		"top_n":          plan.Constraints.TopN,
		"sources":        plan.Sources,
	})

	var out sqlOutcome
	if decision.Route.NeedsSQL() {
		out = p.repair(ctx, q.ID, plan.Constraints)
	}

	ans, err := synthesize(q, decision.Route, chunks, plan, out)
	if err != nil {
		p.emit(q.ID, trace.StageError, map[string]any{"error": err.Error()})
		log.Warn("pipeline: question dropped", zap.Error(err))
		return model.Answer{}, err
	}
	p.emit(q.ID, trace.StageSynthesize, map[string]any{
		"confidence": ans.Confidence,
		"has_sql":    ans.SQL != "",
	})
	log.Debug("pipeline: answered",
		zap.String("route", string(decision.Route)),
		zap.Float64("confidence", ans.Confidence))
	return ans, nil
}
