// Package session assembles the lexicon, table and trained models into a
// query engine and keeps the current engine swappable for reloads.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mimir-aip/finqa/pkg/config"
	"github.com/mimir-aip/finqa/pkg/lexicon"
	"github.com/mimir-aip/finqa/pkg/metadatastore"
	"github.com/mimir-aip/finqa/pkg/metrics"
	"github.com/mimir-aip/finqa/pkg/mlmodel"
	"github.com/mimir-aip/finqa/pkg/mlmodel/training"
	"github.com/mimir-aip/finqa/pkg/models"
	"github.com/mimir-aip/finqa/pkg/qa"
	"github.com/mimir-aip/finqa/pkg/query"
	"github.com/mimir-aip/finqa/pkg/table"
)

// LoadFunc builds a fresh engine
type LoadFunc func(ctx context.Context) (*query.Engine, error)

// Load reads the lexicon and table named by cfg, trains the trend models and
// returns an engine over them. fallback may be nil.
func Load(ctx context.Context, cfg *config.Config, logger *slog.Logger, fallback qa.Fallback) (*query.Engine, error) {
	lex := lexicon.Default()
	if cfg.LexiconPath != "" {
		var err error
		if lex, err = lexicon.Load(cfg.LexiconPath); err != nil {
			return nil, fmt.Errorf("failed to load lexicon: %w", err)
		}
	}

	tbl, err := table.LoadCSV(cfg.DataPath, cfg.EntityColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to load table: %w", err)
	}

	var unknown []string
	for _, entity := range lex.Entities() {
		if !tbl.Has(entity) {
			unknown = append(unknown, entity)
		}
	}
	if len(unknown) > 0 {
		logger.Debug("lexicon aliases name entities missing from the table", "entities", unknown)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	trained, err := mlmodel.Train(tbl, training.Options{Trees: cfg.ForestTrees, Seed: cfg.RandomSeed})
	if err != nil {
		return nil, fmt.Errorf("failed to train models: %w", err)
	}
	logger.Info("session loaded",
		"path", cfg.DataPath,
		"entities", tbl.Len(),
		"models", trained.Len(),
		"training_time", time.Since(start),
	)

	opts := []query.Option{
		query.WithLexicon(lex),
		query.WithMaxPeriod(cfg.MaxPeriod),
		query.WithThreshold(cfg.FuzzyThreshold),
		query.WithLogger(logger),
	}
	if fallback != nil {
		opts = append(opts, query.WithFallback(fallback))
	}
	return query.NewEngine(tbl, trained, opts...), nil
}

// Holder serves questions from the current engine. Reload swaps in a new
// engine atomically; a failed reload keeps the previous one.
type Holder struct {
	engine   atomic.Pointer[query.Engine]
	load     LoadFunc
	store    metadatastore.MetadataStore
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// HolderOption configures a Holder
type HolderOption func(*Holder)

// WithStore records answered questions and model summaries in store
func WithStore(store metadatastore.MetadataStore) HolderOption {
	return func(h *Holder) { h.store = store }
}

// WithRecorder reports answers and reloads to r
func WithRecorder(r *metrics.Recorder) HolderOption {
	return func(h *Holder) { h.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) HolderOption {
	return func(h *Holder) { h.logger = l }
}

// NewHolder loads the first engine with load
func NewHolder(ctx context.Context, load LoadFunc, opts ...HolderOption) (*Holder, error) {
	h := &Holder{load: load, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	if err := h.Reload(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// Engine returns the current engine
func (h *Holder) Engine() *query.Engine {
	return h.engine.Load()
}

// Reload builds a new engine and swaps it in
func (h *Holder) Reload(ctx context.Context) error {
	engine, err := h.load(ctx)
	h.recorder.Reload(err)
	if err != nil {
		return fmt.Errorf("failed to reload session: %w", err)
	}
	h.engine.Store(engine)

	if h.store != nil && engine.Models() != nil {
		if err := h.store.SaveModelSummaries(engine.Models().Summaries()); err != nil {
			h.logger.Warn("failed to save model summaries", "error", err)
		}
	}
	return nil
}

// Ask answers question with the current engine, recording metrics and history
func (h *Holder) Ask(ctx context.Context, question string) *models.Answer {
	start := time.Now()
	ans := h.Engine().Respond(ctx, question)
	h.recorder.Observe(ans, time.Since(start))

	if h.store != nil {
		record := &models.QueryRecord{
			Question:   ans.Question,
			Normalized: ans.Normalized,
			Answer:     ans.Text,
			Intent:     ans.Intent,
			Failure:    ans.Failure,
			Entity:     ans.Entity,
		}
		if err := h.store.SaveQuery(record); err != nil {
			h.logger.Warn("failed to save query", "error", err)
		}
	}
	return ans
}

// Store returns the history store, possibly nil
func (h *Holder) Store() metadatastore.MetadataStore {
	return h.store
}
