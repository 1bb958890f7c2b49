package pipeline

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/retail-analytics/internal/model"
	"github.com/sells-group/retail-analytics/internal/planner"
)

// Confidence is a fixed ordinal scale, not a probability. It is strictly
// non-increasing in relaxation level so a reader can rank answers by how much
// of the original plan survived.
const (
	confidenceLevel0     = 0.9
	confidenceLevel1     = 0.75
	confidenceLevel2     = 0.6
	confidenceRetrieval  = 0.85
	confidenceUnanswered = 0.3
	confidenceGiveUp     = 0.2
)

// FormatMismatchError reports a final answer that cannot honor its declared
// format hint. It is fatal for the question only; the batch continues.
type FormatMismatchError struct {
	Hint   string
	Reason string
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("answer does not fit format hint %q: %s", e.Hint, e.Reason)
}

var (
	daysRe       = regexp.MustCompile(`(?i)\b(\d+)\s*(?:calendar\s+|business\s+)?days?\b`)
	bareNumberRe = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\b`)
)

// synthesize shapes the terminal answer from whichever evidence the route
// produced. The only error it returns is *FormatMismatchError.
func synthesize(q model.Question, route model.Route, chunks []model.Chunk, plan planner.Result, out sqlOutcome) (model.Answer, error) {
	hint := model.ParseFormatHint(q.FormatHint)
	ans := model.Answer{ID: q.ID, Citations: []string{}}

	if route.NeedsSQL() {
		if out.winner == nil {
			return giveUp(q, plan, out), nil
		}
		val, err := shapeRows(q.FormatHint, hint, out.winner)
		if err != nil {
			return model.Answer{}, err
		}
		ans.FinalAnswer = val
		ans.SQL = out.winner.Query
		ans.Confidence = levelConfidence(out.winner.Level)
		ans.Citations = mergeCitations(out.tables, plan.Sources)
		ans.Explanation = sqlExplanation(plan.Constraints.KPI, out.winner.Level)
		return ans, nil
	}

	return synthesizeRetrieval(q, hint, chunks, plan)
}

// giveUp is the terminal degraded answer: no query applied, or every
// relaxation level came back empty.
func giveUp(q model.Question, plan planner.Result, out sqlOutcome) model.Answer {
	explanation := "No rows matched even after relaxing the date and category filters."
	if out.gap != nil {
		explanation = "No structured query template covers this question."
	}
	return model.Answer{
		ID:          q.ID,
		FinalAnswer: nil,
		SQL:         "",
		Confidence:  confidenceGiveUp,
		Explanation: explanation,
		Citations:   append([]string{}, plan.Sources...),
	}
}

// synthesizeRetrieval answers from passages alone. The answer's shape still
// follows the declared hint: prose cannot satisfy an object shape, and a
// list hint degrades to an empty list rather than a string.
func synthesizeRetrieval(q model.Question, hint model.FormatHint, chunks []model.Chunk, plan planner.Result) (model.Answer, error) {
	ans := model.Answer{ID: q.ID, Citations: []string{}}

	if hint.Kind == model.FormatObject {
		return model.Answer{}, &FormatMismatchError{Hint: q.FormatHint, Reason: "document passages cannot satisfy an object shape"}
	}
	if hint.Kind == model.FormatList {
		ans.FinalAnswer = []any{}
		ans.Confidence = confidenceUnanswered
		ans.Explanation = "The retrieved passages contain no list-shaped data."
		return ans, nil
	}

	if len(chunks) == 0 {
		ans.Confidence = confidenceUnanswered
		ans.Explanation = "No supporting passages were found in the document corpus."
		return ans, nil
	}

	switch hint.Kind {
	case model.FormatInt, model.FormatFloat:
		n, ref, ok := extractNumber(chunks)
		if !ok {
			ans.Confidence = confidenceUnanswered
			ans.Explanation = "The retrieved passages name no figure that answers the question."
			return ans, nil
		}
		if hint.Kind == model.FormatInt {
			if n != math.Trunc(n) {
				return model.Answer{}, &FormatMismatchError{Hint: q.FormatHint, Reason: fmt.Sprintf("extracted figure %v is not an integer", n)}
			}
			ans.FinalAnswer = int64(n)
		} else {
			ans.FinalAnswer = round2(n)
		}
		ans.Confidence = confidenceRetrieval
		ans.Citations = mergeCitations([]string{ref}, plan.Sources)
		ans.Explanation = "Extracted from the policy passage that states the figure."
	default:
		top := chunks[0]
		ans.FinalAnswer = firstSentence(top.Text)
		ans.Confidence = confidenceRetrieval
		ans.Citations = mergeCitations([]string{top.Ref()}, plan.Sources)
		ans.Explanation = "Answered from the highest-ranked corpus passage."
	}
	return ans, nil
}

// extractNumber scans chunks in rank order for a "N days" style figure,
// falling back to the first bare integer.
func extractNumber(chunks []model.Chunk) (float64, string, bool) {
	for _, c := range chunks {
		if m := daysRe.FindStringSubmatch(c.Text); m != nil {
			if n, err := strconv.ParseFloat(m[1], 64); err == nil {
				return n, c.Ref(), true
			}
		}
	}
	for _, c := range chunks {
		if m := bareNumberRe.FindStringSubmatch(c.Text); m != nil {
			if n, err := strconv.ParseFloat(m[1], 64); err == nil {
				return n, c.Ref(), true
			}
		}
	}
	return 0, "", false
}

// shapeRows maps the winning attempt's rows onto the declared answer shape.
func shapeRows(rawHint string, hint model.FormatHint, winner *model.Attempt) (any, error) {
	switch hint.Kind {
	case model.FormatInt:
		v, ok := firstValue(winner)
		if !ok {
			return nil, &FormatMismatchError{Hint: rawHint, Reason: "query returned no scalar value"}
		}
		f, ok := asFloat(v)
		if !ok {
			return nil, &FormatMismatchError{Hint: rawHint, Reason: fmt.Sprintf("value %v is not numeric", v)}
		}
		if f != math.Trunc(f) {
			return nil, &FormatMismatchError{Hint: rawHint, Reason: fmt.Sprintf("value %v is not an integer", v)}
		}
		return int64(f), nil
	case model.FormatFloat:
		v, ok := firstValue(winner)
		if !ok {
			return nil, &FormatMismatchError{Hint: rawHint, Reason: "query returned no scalar value"}
		}
		f, ok := asFloat(v)
		if !ok {
			return nil, &FormatMismatchError{Hint: rawHint, Reason: fmt.Sprintf("value %v is not numeric", v)}
		}
		return round2(f), nil
	case model.FormatObject:
		return shapeObject(rawHint, hint.Fields, winner.Columns, winner.Rows[0])
	case model.FormatList:
		list := make([]any, 0, len(winner.Rows))
		for _, row := range winner.Rows {
			obj, err := shapeObject(rawHint, hint.Fields, winner.Columns, row)
			if err != nil {
				return nil, err
			}
			list = append(list, obj)
		}
		return list, nil
	default:
		v, ok := firstValue(winner)
		if !ok {
			return "", nil
		}
		return stringify(v), nil
	}
}

// shapeObject projects one row onto the declared fields, lower-casing keys.
// With no declared fields the whole row passes through.
func shapeObject(rawHint string, fields []model.FormatField, columns []string, row model.Row) (map[string]any, error) {
	out := make(map[string]any, len(row))
	if len(fields) == 0 {
		for k, v := range row {
			out[strings.ToLower(k)] = v
		}
		return out, nil
	}

	for i, field := range fields {
		v, ok := lookupColumn(row, columns, field.Name, i)
		if !ok {
			return nil, &FormatMismatchError{Hint: rawHint, Reason: fmt.Sprintf("no column for field %q", field.Name)}
		}
		switch field.Kind {
		case model.FormatInt:
			f, numeric := asFloat(v)
			if !numeric || f != math.Trunc(f) {
				return nil, &FormatMismatchError{Hint: rawHint, Reason: fmt.Sprintf("field %q value %v is not an integer", field.Name, v)}
			}
			out[field.Name] = int64(f)
		case model.FormatFloat:
			f, numeric := asFloat(v)
			if !numeric {
				return nil, &FormatMismatchError{Hint: rawHint, Reason: fmt.Sprintf("field %q value %v is not numeric", field.Name, v)}
			}
			out[field.Name] = round2(f)
		default:
			out[field.Name] = stringify(v)
		}
	}
	return out, nil
}

// lookupColumn matches a declared field to a row value, by name first and by
// column position when names diverge from the template's aliases.
func lookupColumn(row model.Row, columns []string, name string, pos int) (any, bool) {
	for k, v := range row {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	if pos < len(columns) {
		if v, ok := row[columns[pos]]; ok {
			return v, true
		}
	}
	return nil, false
}

// firstValue returns the single interesting value of the winning attempt:
// the first column of the first row.
func firstValue(winner *model.Attempt) (any, bool) {
	if len(winner.Rows) == 0 {
		return nil, false
	}
	row := winner.Rows[0]
	if len(winner.Columns) > 0 {
		if v, ok := row[winner.Columns[0]]; ok {
			return v, true
		}
	}
	for _, v := range row {
		return v, true
	}
	return nil, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// firstSentence truncates text at the first sentence boundary. Extractive
// answers quote the source rather than paraphrase it.
func firstSentence(text string) string {
	t := strings.TrimSpace(text)
	if i := strings.Index(t, ". "); i >= 0 {
		return t[:i+1]
	}
	return t
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func levelConfidence(level int) float64 {
	switch level {
	case 0:
		return confidenceLevel0
	case 1:
		return confidenceLevel1
	default:
		return confidenceLevel2
	}
}

// mergeCitations joins table citations with contributing chunk refs,
// de-duplicated and in stable order: tables first, chunks in rank order.
func mergeCitations(tables []string, chunkRefs []string) []string {
	out := make([]string, 0, len(tables)+len(chunkRefs))
	seen := map[string]bool{}
	for _, c := range append(append([]string{}, tables...), chunkRefs...) {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func sqlExplanation(kpi model.KPI, level int) string {
	base := fmt.Sprintf("Computed %s with a fixed parameterized query.", kpiPhrase(kpi))
	switch level {
	case 1:
		return base + " The date filter was dropped after the full query returned no rows."
	case 2:
		return base + " Date and category filters were dropped after stricter queries returned no rows."
	}
	return base
}

func kpiPhrase(kpi model.KPI) string {
	switch kpi {
	case model.KPIRevenue:
		return "total revenue"
	case model.KPIMargin:
		return "gross margin by customer"
	case model.KPIUnits:
		return "units sold by category"
	case model.KPIAOV:
		return "the average order value"
	case model.KPITopProducts:
		return "the top products by revenue"
	default:
		return "the requested measure"
	}
}
