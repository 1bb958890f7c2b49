package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/retail-analytics/internal/model"
	"github.com/sells-group/retail-analytics/internal/pipeline"
)

var (
	batchInput  string
	batchOutput string
	batchLimit  int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Answer a JSONL file of questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		questions, err := readQuestions(batchInput)
		if err != nil {
			return err
		}
		if batchLimit > 0 && len(questions) > batchLimit {
			questions = questions[:batchLimit]
		}

		answers := processBatch(ctx, env.Pipeline, questions, cfg.Batch.Concurrency, time.Duration(cfg.Batch.DeadlineSecs)*time.Second)

		out, err := os.Create(batchOutput)
		if err != nil {
			return eris.Wrapf(err, "create output %s", batchOutput)
		}
		defer out.Close()
		return writeAnswers(out, answers)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "questions.jsonl", "input questions JSONL")
	batchCmd.Flags().StringVar(&batchOutput, "output", "answers.jsonl", "output answers JSONL")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of questions to process (0 = all)")
	rootCmd.AddCommand(batchCmd)
}

// readQuestions parses newline-delimited question records. Blank lines are
// skipped; a malformed line is an error, not a silent drop.
func readQuestions(path string) ([]model.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open input %s", path)
	}
	defer f.Close()
	return parseQuestions(f)
}

func parseQuestions(r io.Reader) ([]model.Question, error) {
	var questions []model.Question
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var q model.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, eris.Wrapf(err, "parse question at line %d", line)
		}
		if q.Text == "" {
			return nil, eris.Errorf("question at line %d has no text", line)
		}
		questions = append(questions, q)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "read questions")
	}
	return questions, nil
}

// processBatch answers questions concurrently and returns answers in input
// order. A deadline of 0 means none; once it elapses, unstarted questions
// are skipped while in-flight ones finish.
func processBatch(ctx context.Context, p *pipeline.Pipeline, questions []model.Question, concurrency int, deadline time.Duration) []model.Answer {
	runID := uuid.New().String()
	zap.L().Info("processing batch",
		zap.String("run_id", runID),
		zap.Int("questions", len(questions)),
		zap.Int("concurrency", concurrency),
	)

	// Zero means no deadline. A negative duration is an already-elapsed
	// cutoff and schedules nothing.
	var cutoff time.Time
	if deadline != 0 {
		cutoff = time.Now().Add(deadline)
	}

	if concurrency < 1 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	results := make([]*model.Answer, len(questions))
	var answered, dropped, skipped atomic.Int64

	for i, q := range questions {
		if !cutoff.IsZero() && time.Now().After(cutoff) {
			skipped.Add(1)
			continue
		}
		g.Go(func() error {
			ans, err := p.Run(gctx, q)
			if err != nil {
				// Format mismatches drop the single answer; the batch
				// carries on.
				dropped.Add(1)
				return nil
			}
			results[i] = &ans
			answered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("batch complete",
		zap.String("run_id", runID),
		zap.Int64("answered", answered.Load()),
		zap.Int64("dropped", dropped.Load()),
		zap.Int64("skipped", skipped.Load()),
	)

	answers := make([]model.Answer, 0, len(questions))
	for _, r := range results {
		if r != nil {
			answers = append(answers, *r)
		}
	}
	return answers
}

func writeAnswers(w io.Writer, answers []model.Answer) error {
	enc := json.NewEncoder(w)
	for _, a := range answers {
		if err := enc.Encode(a); err != nil {
			return eris.Wrap(err, "write answer")
		}
	}
	return nil
}
