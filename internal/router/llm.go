package router

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/retail-analytics/internal/model"
	"github.com/sells-group/retail-analytics/internal/resilience"
)

// Completer is the completion surface the learned router needs from an
// inference backend.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLM routes questions via a few-shot prompt to an inference backend. Calls
// are rate limited, bounded by a timeout, and retried once on transient
// failure; anything past that is an error for the fallback wrapper to absorb.
type LLM struct {
	completer Completer
	exemplars []Exemplar
	timeout   time.Duration
	limiter   *rate.Limiter
}

// NewLLM builds a learned router over a completion backend.
func NewLLM(completer Completer, exemplars []Exemplar, timeout time.Duration) *LLM {
	if len(exemplars) == 0 {
		exemplars = defaultExemplars
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LLM{
		completer: completer,
		exemplars: exemplars,
		timeout:   timeout,
		limiter:   rate.NewLimiter(rate.Limit(5), 5),
	}
}

var labelRe = regexp.MustCompile(`(?i)\b(retrieval|rag|sql|hybrid)\b`)

// Route asks the backend to classify the question.
func (r *LLM) Route(ctx context.Context, question string) (model.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "router: rate limit wait")
	}

	prompt := r.buildPrompt(question)
	var raw string
	err := resilience.Do(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) error {
		var callErr error
		raw, callErr = r.completer.Complete(ctx, prompt)
		return callErr
	})
	if err != nil {
		return "", eris.Wrap(err, "router: inference call")
	}

	m := labelRe.FindString(raw)
	route, ok := ParseRoute(m)
	if !ok {
		return "", eris.Errorf("router: unparseable route %q", truncate(raw, 80))
	}
	return route, nil
}

func (r *LLM) buildPrompt(question string) string {
	var b strings.Builder
	b.WriteString("Classify a retail analytics question as one of: rag, sql, hybrid.\n")
	b.WriteString("rag = answered from policy/definition documents alone.\n")
	b.WriteString("sql = answered from the orders database alone.\n")
	b.WriteString("hybrid = needs documents to constrain a database query.\n")
	b.WriteString("Answer with the single label only.\n\n")
	for _, ex := range r.exemplars {
		b.WriteString("Question: ")
		b.WriteString(ex.Question)
		b.WriteString("\nRoute: ")
		b.WriteString(ex.Route)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\nRoute:")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
