// Package query turns natural-language questions into answers over a
// table and its trend models.
package query

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mimir-aip/finqa/pkg/extraction"
	"github.com/mimir-aip/finqa/pkg/lexicon"
	"github.com/mimir-aip/finqa/pkg/mlmodel"
	"github.com/mimir-aip/finqa/pkg/models"
	"github.com/mimir-aip/finqa/pkg/normalize"
	"github.com/mimir-aip/finqa/pkg/qa"
	"github.com/mimir-aip/finqa/pkg/table"
)

const defaultChunkSize = 4000

// Engine answers questions. It is immutable after construction and safe
// for concurrent use.
type Engine struct {
	lexicon   *lexicon.Lexicon
	table     *table.Table
	models    *mlmodel.Models
	resolver  *extraction.Resolver
	maxPeriod int
	threshold int
	fallback  qa.Fallback
	chunkSize int
	logger    *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithLexicon replaces the built-in lexicon
func WithLexicon(lex *lexicon.Lexicon) Option {
	return func(e *Engine) { e.lexicon = lex }
}

// WithMaxPeriod sets the latest observed quarter index used by relative phrasing
func WithMaxPeriod(n int) Option {
	return func(e *Engine) { e.maxPeriod = n }
}

// WithThreshold sets the minimum fuzzy score (exclusive) for entity matches
func WithThreshold(n int) Option {
	return func(e *Engine) { e.threshold = n }
}

// WithFallback enables the language-model fallback for unresolved questions
func WithFallback(f qa.Fallback) Option {
	return func(e *Engine) { e.fallback = f }
}

// WithChunkSize sets the size of table text chunks sent to the fallback
func WithChunkSize(n int) Option {
	return func(e *Engine) { e.chunkSize = n }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over tbl and its trained models; m may be nil
// when no forecasts are wanted
func NewEngine(tbl *table.Table, m *mlmodel.Models, opts ...Option) *Engine {
	e := &Engine{
		table:     tbl,
		models:    m,
		maxPeriod: 4,
		threshold: extraction.DefaultThreshold,
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.lexicon == nil {
		e.lexicon = lexicon.Default()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.resolver = extraction.NewResolver(e.lexicon, tbl.Entities(), e.threshold)
	return e
}

// Table returns the table the engine reads
func (e *Engine) Table() *table.Table {
	return e.table
}

// Models returns the trained models, possibly nil
func (e *Engine) Models() *mlmodel.Models {
	return e.models
}

// Lexicon returns the alias and period vocabulary in use
func (e *Engine) Lexicon() *lexicon.Lexicon {
	return e.lexicon
}

// Resolver returns the entity and period resolver
func (e *Engine) Resolver() *extraction.Resolver {
	return e.resolver
}

// Answer returns the answer text for question
func (e *Engine) Answer(question string) string {
	return e.Respond(context.Background(), question).Text
}

// Respond normalizes and classifies question, runs the matching handler and
// falls back to a plain lookup. Failures are reported in the answer, never
// as errors.
func (e *Engine) Respond(ctx context.Context, question string) *models.Answer {
	normalized := normalize.Quarters(question, e.maxPeriod)
	lower := strings.ToLower(normalized)

	ans := &models.Answer{
		Question:   question,
		Normalized: normalized,
		Intent:     Classify(lower),
	}

	switch ans.Intent {
	case models.IntentForecast:
		e.forecast(ans, lower)
	case models.IntentYesNo:
		e.yesNo(ans, lower)
	case models.IntentGrowth:
		e.growth(ans, lower)
	case models.IntentComparison:
		e.comparison(ans, lower)
	default:
		e.lookup(ans, lower)
	}

	if ans.Failure == models.FailureTopic {
		candidate, score := e.resolver.Match(lower)
		e.logger.Debug("no entity above threshold",
			"candidate", candidate,
			"score", score,
			"threshold", e.threshold,
		)
	}

	if e.fallback != nil && (ans.Failure == models.FailureTopic || ans.Failure == models.FailurePeriod) {
		e.askFallback(ctx, ans)
	}

	e.logger.Debug("answered question",
		"intent", ans.Intent,
		"entity", ans.Entity,
		"outcome", ans.Outcome(),
		"normalized", normalized,
	)
	return ans
}

func (e *Engine) askFallback(ctx context.Context, ans *models.Answer) {
	text, err := e.fallback.Answer(ctx, e.table.Chunks(e.chunkSize), ans.Normalized)
	if err != nil {
		e.logger.Warn("fallback failed", "error", err, "question", ans.Question)
		return
	}
	ans.Text = text
	ans.Intent = models.IntentFallback
	ans.Failure = models.FailureNone
}
