package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retail-analytics/internal/calendar"
	"github.com/sells-group/retail-analytics/internal/pipeline"
	"github.com/sells-group/retail-analytics/internal/planner"
	"github.com/sells-group/retail-analytics/internal/retrieval"
	"github.com/sells-group/retail-analytics/internal/router"
	"github.com/sells-group/retail-analytics/internal/store"
	"github.com/sells-group/retail-analytics/internal/trace"
	anthropicpkg "github.com/sells-group/retail-analytics/pkg/anthropic"
	"github.com/sells-group/retail-analytics/pkg/ollama"
)

// pipelineEnv holds the initialized store, index, and pipeline shared by the
// batch/ask/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Schema   store.Schema
	Offset   int
	Pipeline *pipeline.Pipeline
	Tracer   trace.Writer
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Tracer != nil {
		_ = pe.Tracer.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline opens the store, snapshots the schema, computes the year
// offset, indexes the corpus, and wires the router and planner into a
// Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, withTrace bool) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	schema, err := st.Snapshot(ctx)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "snapshot schema")
	}

	minYear, err := st.MinOrderYear(ctx)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "read earliest order year")
	}
	offset := calendar.ComputeOffset(minYear, cfg.Calendar.BaseYear)
	zap.L().Info("calendar offset computed",
		zap.Int("store_min_year", minYear),
		zap.Int("base_year", cfg.Calendar.BaseYear),
		zap.Int("offset", offset),
	)

	docs, err := retrieval.LoadCorpus(cfg.Corpus.Dir, cfg.Corpus.MinChunkLen)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "load corpus")
	}
	idx := retrieval.NewIndex(docs, retrieval.Options{})
	zap.L().Info("corpus indexed",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", idx.Len()),
	)

	vocab := planner.LoadVocabulary(ctx, st, schema)

	primary, err := initRouter()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var tracer trace.Writer = trace.Nop{}
	if withTrace && cfg.Trace.Path != "" {
		tracer, err = trace.NewJSONL(cfg.Trace.Path)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	p := pipeline.New(pipeline.Env{
		Store:   st,
		Schema:  schema,
		Offset:  offset,
		Index:   idx,
		Router:  router.Fallback{Primary: primary},
		Planner: planner.New(vocab, offset, cfg.Calendar.BaseYear),
		Tracer:  tracer,
		TopK:    cfg.Retrieval.TopK,
	})

	return &pipelineEnv{
		Store:    st,
		Schema:   schema,
		Offset:   offset,
		Pipeline: p,
		Tracer:   tracer,
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	timeout := time.Duration(cfg.Store.QueryTimeoutSecs) * time.Second
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.Path, timeout)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, timeout)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initRouter builds the learned router for the configured backend. A nil
// router is valid: the heuristic carries routing alone.
func initRouter() (router.Router, error) {
	exemplars, err := router.LoadExemplars(cfg.Router.ExemplarsPath)
	if err != nil {
		return nil, eris.Wrap(err, "load router exemplars")
	}
	timeout := time.Duration(cfg.Router.TimeoutSecs) * time.Second

	switch cfg.Router.Backend {
	case "ollama":
		client := ollama.NewClient(
			ollama.WithBaseURL(cfg.Router.BaseURL),
			ollama.WithModel(cfg.Router.Model),
		)
		return router.NewLLM(router.OllamaCompleter{Client: client, Model: cfg.Router.Model}, exemplars, timeout), nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("router backend anthropic requires RETAIL_ANTHROPIC_KEY")
		}
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		return router.NewLLM(router.AnthropicCompleter{Client: client, Model: cfg.Anthropic.Model}, exemplars, timeout), nil
	case "none", "":
		zap.L().Info("learned router disabled, using heuristic only")
		return nil, nil
	default:
		return nil, eris.Errorf("unknown router backend %q", cfg.Router.Backend)
	}
}
