package pipeline

import (
	"context"

	"github.com/sells-group/retail-analytics/internal/model"
	"github.com/sells-group/retail-analytics/internal/sqlgen"
	"github.com/sells-group/retail-analytics/internal/trace"
)

const maxRelaxLevel = 2

// sqlOutcome is the result of the render-and-repair loop. winner is nil when
// every level came back empty or failed; gap is set when no template covers
// the plan at all.
type sqlOutcome struct {
	attempts []model.Attempt
	winner   *model.Attempt
	tables   []string // referenced tables of the winning query
	gap      error
}

// relax returns the constraints applied at the given relaxation level.
// Level 0 is the full plan, level 1 clears the date range, level 2 clears
// the date range and the category filters.
func relax(c model.Constraints, level int) model.Constraints {
	switch level {
	case 0:
		return c
	case 1:
		return c.WithoutDateRange()
	default:
		return c.WithoutDateRange().WithoutCategories()
	}
}

// sameQuery reports whether two rendered queries are identical. Templates
// may ignore a relaxed filter, so equality is judged on the rendered
// statement, not on the constraints that produced it.
func sameQuery(sql string, args []any, prevSQL string, prevArgs []any) bool {
	if sql != prevSQL || len(args) != len(prevArgs) {
		return false
	}
	for i := range args {
		if args[i] != prevArgs[i] {
			return false
		}
	}
	return true
}

// repair walks the relaxation ladder until an attempt returns rows. Each
// level renders and executes exactly once and appends one attempt record;
// levels are strictly increasing from 0. A level whose rendered statement
// matches the previous one is skipped: re-executing it cannot produce new
// rows.
func (p *Pipeline) repair(ctx context.Context, qid string, cons model.Constraints) sqlOutcome {
	var out sqlOutcome
	var prevSQL string
	var prevArgs []any
	for level := 0; level <= maxRelaxLevel; level++ {
		q, err := sqlgen.Render(relax(cons, level), p.env.Schema)
		if err != nil {
			// Template gaps do not repair away: relaxation changes
			// filters, never the KPI family.
			out.gap = err
			p.emit(qid, trace.StageError, map[string]any{
				"level": level,
				"error": err.Error(),
			})
			return out
		}

		if level > 0 && sameQuery(q.SQL, q.Args, prevSQL, prevArgs) {
			continue
		}
		prevSQL, prevArgs = q.SQL, q.Args

		att := model.Attempt{Level: level, Query: q.SQL, Args: q.Args}
		res, execErr := p.env.Store.Query(ctx, q.SQL, q.Args...)
		if execErr != nil {
			att.Err = execErr.Error()
		} else {
			att.Columns = res.Columns
			att.Rows = res.Rows
		}
		out.attempts = append(out.attempts, att)
		p.emit(qid, trace.StageSQLAttempt, map[string]any{
			"level": level,
			"sql":   q.SQL,
			"rows":  len(att.Rows),
			"error": att.Err,
		})

		if att.Succeeded() {
			out.winner = &out.attempts[len(out.attempts)-1]
			out.tables = q.Tables
			return out
		}
	}
	return out
}
