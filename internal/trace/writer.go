// Package trace records per-question pipeline events as JSON lines so a
// run can be replayed and audited after the fact.
package trace

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Stage names emitted by the pipeline.
const (
	StageRoute      = "route"
	StageRetrieve   = "retrieve"
	StagePlan       = "plan"
	StageSQLAttempt = "sql_attempt"
	StageSynthesize = "synthesize"
	StageError      = "error"
)

// Record is a single trace event.
type Record struct {
	QuestionID string         `json:"question_id"`
	Stage      string         `json:"stage"`
	Timestamp  time.Time      `json:"timestamp"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Writer receives trace records. Implementations must be safe for
// concurrent use.
type Writer interface {
	Emit(rec Record)
	Close() error
}

// JSONL appends records to a file, one JSON object per line. Emit is
// serialized so concurrent questions never interleave within a record.
type JSONL struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewJSONL opens (or creates) the trace file at path for appending.
func NewJSONL(path string) (*JSONL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, eris.Wrap(err, "trace: open file")
	}
	return &JSONL{f: f, enc: json.NewEncoder(f)}, nil
}

func (w *JSONL) Emit(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	// Encode failures are swallowed; tracing must never fail a question.
	_ = w.enc.Encode(rec)
}

func (w *JSONL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.f.Close(); err != nil {
		return eris.Wrap(err, "trace: close file")
	}
	return nil
}

// Nop discards all records.
type Nop struct{}

func (Nop) Emit(Record) {}

func (Nop) Close() error { return nil }

// Capture retains records in memory for tests.
type Capture struct {
	mu      sync.Mutex
	Records []Record
}

func (c *Capture) Emit(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Records = append(c.Records, rec)
}

func (c *Capture) Close() error { return nil }

// Stages returns the stage names of all captured records in order.
func (c *Capture) Stages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.Records))
	for i, r := range c.Records {
		out[i] = r.Stage
	}
	return out
}
