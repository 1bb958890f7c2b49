package trace

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONL_AppendsOneObjectPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	w, err := NewJSONL(path)
	require.NoError(t, err)

	w.Emit(Record{QuestionID: "q1", Stage: StageRoute, Payload: map[string]any{"route": "sql"}})
	w.Emit(Record{QuestionID: "q1", Stage: StageSQLAttempt, Payload: map[string]any{"level": 0}})
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var recs []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		recs = append(recs, r)
	}
	require.NoError(t, sc.Err())

	require.Len(t, recs, 2)
	assert.Equal(t, StageRoute, recs[0].Stage)
	assert.Equal(t, StageSQLAttempt, recs[1].Stage)
	assert.False(t, recs[0].Timestamp.IsZero())
}

func TestJSONL_ConcurrentEmitsStayRecordAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	w, err := NewJSONL(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Emit(Record{QuestionID: "q", Stage: StagePlan, Payload: map[string]any{"k": "v"}})
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		n++
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, 20, n)
}

func TestCapture_RecordsInOrder(t *testing.T) {
	c := &Capture{}
	c.Emit(Record{Stage: StageRoute, Timestamp: time.Now()})
	c.Emit(Record{Stage: StageSynthesize})

	assert.Equal(t, []string{StageRoute, StageSynthesize}, c.Stages())
	require.NoError(t, c.Close())
}

func TestNop_IsSilent(t *testing.T) {
	var w Writer = Nop{}
	w.Emit(Record{Stage: StageError})
	assert.NoError(t, w.Close())
}
