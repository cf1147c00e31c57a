// Command finqa answers natural-language questions about quarterly figures
// in a CSV table: one-shot, interactively, or over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	flag "github.com/spf13/pflag"

	"github.com/mimir-aip/finqa/pkg/api"
	"github.com/mimir-aip/finqa/pkg/config"
	"github.com/mimir-aip/finqa/pkg/lexicon"
	"github.com/mimir-aip/finqa/pkg/logging"
	"github.com/mimir-aip/finqa/pkg/metadatastore"
	"github.com/mimir-aip/finqa/pkg/metrics"
	"github.com/mimir-aip/finqa/pkg/models"
	"github.com/mimir-aip/finqa/pkg/qa"
	"github.com/mimir-aip/finqa/pkg/query"
	"github.com/mimir-aip/finqa/pkg/scheduler"
	"github.com/mimir-aip/finqa/pkg/session"
	"github.com/mimir-aip/finqa/pkg/tui"
)

const usage = `Usage: finqa <command> [flags]

Commands:
  ask "<question>"   answer one question and exit
  repl               interactive question prompt
  serve              run the HTTP API
  train              train the forecast models and print their summaries
  lexicon            print the active alias and period vocabulary as YAML

Flags:
`

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("missing command")
	}
	command, rest := args[0], args[1:]

	cfg := config.FromEnv()
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "CSV dataset path")
	fs.StringVar(&cfg.EntityColumn, "column", cfg.EntityColumn, "entity column name")
	fs.StringVar(&cfg.LexiconPath, "lexicon", cfg.LexiconPath, "YAML lexicon path")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port for serve")
	fs.BoolVar(&cfg.HistoryEnabled, "history", cfg.HistoryEnabled, "record answered questions (ask records only when set)")
	fs.BoolVar(&cfg.FallbackEnabled, "fallback", cfg.FallbackEnabled, "use the language-model fallback")
	fs.Usage = func() {
		fmt.Fprint(stdout, usage)
		fs.SetOutput(stdout)
		fs.PrintDefaults()
	}
	if err := fs.Parse(rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if command == "ask" && !fs.Changed("history") {
		cfg.HistoryEnabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "ask":
		question := strings.TrimSpace(strings.Join(fs.Args(), " "))
		if question == "" {
			return errors.New("ask needs a question")
		}
		app, err := newApp(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}
		defer app.Close()
		fmt.Fprintln(stdout, app.holder.Ask(ctx, question).Text)
		return nil

	case "repl":
		app, err := newApp(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}
		defer app.Close()
		model := tui.NewReplModel("Quarterly Q&A", func(q string) *models.Answer {
			return app.holder.Ask(ctx, q)
		})
		_, err = tea.NewProgram(model, tea.WithContext(ctx)).Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err

	case "serve":
		return serve(ctx, cfg, logger)

	case "train":
		app, err := newApp(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}
		defer app.Close()
		return printSummaries(stdout, app.holder.Engine())

	case "lexicon":
		lex := lexicon.Default()
		if cfg.LexiconPath != "" {
			if lex, err = lexicon.Load(cfg.LexiconPath); err != nil {
				return fmt.Errorf("failed to load lexicon: %w", err)
			}
		}
		data, err := lex.Marshal()
		if err != nil {
			return fmt.Errorf("failed to render lexicon: %w", err)
		}
		_, err = stdout.Write(data)
		return err

	case "help", "-h", "--help":
		fs.Usage()
		return nil
	}

	fs.Usage()
	return fmt.Errorf("unknown command: %s", command)
}

// app is the assembled session with its optional history store
type app struct {
	holder *session.Holder
	store  *metadatastore.SQLiteStore
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*app, error) {
	var fallback qa.Fallback
	if cfg.FallbackEnabled {
		g, err := qa.NewGeminiFallback(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("language-model fallback disabled", "error", err)
		} else {
			fallback = g
		}
	}

	a := &app{}
	opts := []session.HolderOption{session.WithLogger(logger), session.WithRecorder(recorder)}
	if cfg.HistoryEnabled {
		if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		dbPath := filepath.Join(cfg.StorageDir, "finqa.db")
		store, err := metadatastore.NewSQLiteStore(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite storage: %w", err)
		}
		logger.Debug("initialized SQLite storage", "path", dbPath)
		a.store = store
		opts = append(opts, session.WithStore(store))
	}

	load := func(ctx context.Context) (*query.Engine, error) {
		return session.Load(ctx, cfg, logger, fallback)
	}
	holder, err := session.NewHolder(ctx, load, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.holder = holder
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	a, err := newApp(ctx, cfg, logger, recorder)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []api.Option{api.WithMetrics(reg), api.WithLogger(logger)}
	if cfg.ReloadSchedule != "" {
		svc, err := scheduler.NewService(cfg.ReloadSchedule, a.holder.Reload, logger)
		if err != nil {
			return err
		}
		svc.Start()
		defer svc.Stop()
		opts = append(opts, api.WithScheduler(svc))
		logger.Info("started reload scheduler", "schedule", cfg.ReloadSchedule)
	}

	server := api.NewServer(a.holder, cfg.Port, opts...)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func printSummaries(w io.Writer, engine *query.Engine) error {
	trained := engine.Models()
	if trained == nil || trained.Len() == 0 {
		fmt.Fprintln(w, "No entity has enough data to train a model.")
		return nil
	}

	fmt.Fprintf(w, "Trained at %s\n\n", trained.TrainedAt().Format(time.RFC3339))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tSAMPLES\tLINEAR MSE\tFOREST MSE\tBEST")
	for _, s := range trained.Summaries() {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.4f\t%s\n",
			s.Entity, s.SampleCount, s.LinearMSE, s.RandomForestMSE, s.Best.DisplayName())
	}
	return tw.Flush()
}
