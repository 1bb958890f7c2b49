package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retail-analytics/internal/model"
	"github.com/sells-group/retail-analytics/internal/pipeline"
	"github.com/sells-group/retail-analytics/internal/planner"
	"github.com/sells-group/retail-analytics/internal/router"
)

// newDocOnlyPipeline builds a pipeline with no store or index: every
// question degrades to a retrieval answer, which is enough to exercise
// batch mechanics.
func newDocOnlyPipeline() *pipeline.Pipeline {
	vocab := planner.NewVocabulary([]string{"Beverages"})
	return pipeline.New(pipeline.Env{
		Router:  router.Fallback{},
		Planner: planner.New(vocab, 0, 1996),
	})
}

func TestParseQuestions(t *testing.T) {
	input := `{"id": "q1", "question": "Explain the returns policy", "format_hint": "str"}

{"id": "q2", "question": "Total revenue in 1997", "format_hint": "float"}
`
	questions, err := parseQuestions(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "q1", questions[0].ID)
	assert.Equal(t, "Total revenue in 1997", questions[1].Text)
	assert.Equal(t, "float", questions[1].FormatHint)
}

func TestParseQuestions_MalformedLineIsError(t *testing.T) {
	_, err := parseQuestions(strings.NewReader(`{"id": "q1"` + "\n"))
	assert.Error(t, err)
}

func TestParseQuestions_MissingTextIsError(t *testing.T) {
	_, err := parseQuestions(strings.NewReader(`{"id": "q1", "format_hint": "str"}` + "\n"))
	assert.Error(t, err)
}

func TestProcessBatch_PreservesInputOrder(t *testing.T) {
	p := newDocOnlyPipeline()

	var questions []model.Question
	for i := 0; i < 8; i++ {
		questions = append(questions, model.Question{
			ID:         fmt.Sprintf("q%d", i),
			Text:       "Explain the seasonal planning assumptions",
			FormatHint: "str",
		})
	}

	answers := processBatch(context.Background(), p, questions, 3, 0)
	require.Len(t, answers, 8)
	for i, a := range answers {
		assert.Equal(t, fmt.Sprintf("q%d", i), a.ID)
	}
}

func TestProcessBatch_DeadlineSkipsUnstarted(t *testing.T) {
	p := newDocOnlyPipeline()
	questions := []model.Question{
		{ID: "q0", Text: "Explain the policy", FormatHint: "str"},
		{ID: "q1", Text: "Explain the policy", FormatHint: "str"},
	}

	// An already-elapsed deadline schedules nothing.
	answers := processBatch(context.Background(), p, questions, 2, -time.Second)
	assert.Empty(t, answers)
}

func TestWriteAnswers_OneRecordPerLine(t *testing.T) {
	answers := []model.Answer{
		{ID: "q1", FinalAnswer: "yes", Confidence: 0.85, Citations: []string{"a.md::chunk_0"}},
		{ID: "q2", Confidence: 0.3, Citations: []string{}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeAnswers(&buf, answers))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "q1", rec["id"])
	assert.Equal(t, "yes", rec["final_answer"])
}
