package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/finqa/pkg/config"
	"github.com/mimir-aip/finqa/pkg/metadatastore"
	"github.com/mimir-aip/finqa/pkg/metrics"
	"github.com/mimir-aip/finqa/pkg/models"
	"github.com/mimir-aip/finqa/pkg/query"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeCSV(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "heads.csv")
	writeCSV(t, path, "Business Head,Q1,Q2,Q3,Q4\nAshish,500,550,600,650\nRobin Gupta,100,,,\n")

	return &config.Config{
		DataPath:       path,
		EntityColumn:   "Business Head",
		MaxPeriod:      4,
		FuzzyThreshold: 60,
		ForestTrees:    10,
		RandomSeed:     42,
		StorageDir:     dir,
	}
}

func TestLoad(t *testing.T) {
	cfg := testConfig(t)
	engine, err := Load(context.Background(), cfg, quietLogger, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, engine.Table().Len())
	assert.Equal(t, 1, engine.Models().Len())
	assert.Equal(t, "ashish in Q2 is 550.", engine.Answer("Ashish Q2"))
}

func TestLoadReportsAliasesWithoutRows(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Load(context.Background(), testConfig(t), logger, nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "lexicon aliases name entities missing from the table")
	assert.Contains(t, out, `entities="[faizan ali khan gaurav dharane`)
	assert.NotContains(t, out, "robin gupta")
}

func TestLoadErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.DataPath = filepath.Join(t.TempDir(), "missing.csv")
	_, err := Load(context.Background(), cfg, quietLogger, nil)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.LexiconPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = Load(context.Background(), cfg, quietLogger, nil)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.EntityColumn = "Owner"
	_, err = Load(context.Background(), cfg, quietLogger, nil)
	assert.Error(t, err)
}

func TestHolderAskRecordsHistory(t *testing.T) {
	cfg := testConfig(t)
	store, err := metadatastore.NewSQLiteStore(filepath.Join(cfg.StorageDir, "finqa.db"))
	require.NoError(t, err)
	defer store.Close()

	recorder, err := metrics.NewRecorder(prometheus.NewRegistry())
	require.NoError(t, err)

	load := func(ctx context.Context) (*query.Engine, error) {
		return Load(ctx, cfg, quietLogger, nil)
	}
	h, err := NewHolder(context.Background(), load, WithStore(store), WithRecorder(recorder), WithLogger(quietLogger))
	require.NoError(t, err)

	ans := h.Ask(context.Background(), "What is the value of Ashish in Q1?")
	assert.Equal(t, "ashish in Q1 is 500.", ans.Text)

	history, err := store.ListQueries(10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ashish", history[0].Entity)
	assert.Equal(t, models.IntentLookup, history[0].Intent)

	summaries, err := store.ListModelSummaries()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "ashish", summaries[0].Entity)
}

func TestHolderReload(t *testing.T) {
	cfg := testConfig(t)
	load := func(ctx context.Context) (*query.Engine, error) {
		return Load(ctx, cfg, quietLogger, nil)
	}
	h, err := NewHolder(context.Background(), load, WithLogger(quietLogger))
	require.NoError(t, err)
	first := h.Engine()

	writeCSV(t, cfg.DataPath, "Business Head,Q1,Q2,Q3,Q4\nAshish,900,550,600,650\n")
	require.NoError(t, h.Reload(context.Background()))
	assert.NotSame(t, first, h.Engine())
	assert.Equal(t, "ashish in Q1 is 900.", h.Ask(context.Background(), "Ashish Q1").Text)

	current := h.Engine()
	require.NoError(t, os.Remove(cfg.DataPath))
	assert.Error(t, h.Reload(context.Background()))
	assert.Same(t, current, h.Engine())
}

func TestNewHolderFails(t *testing.T) {
	_, err := NewHolder(context.Background(), func(context.Context) (*query.Engine, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, err)
}
