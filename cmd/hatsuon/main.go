// Command hatsuon is the Japanese pronunciation diagnosis web server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/hatsuonlab/hatsuon/internal/archive"
	"github.com/hatsuonlab/hatsuon/internal/config"
	"github.com/hatsuonlab/hatsuon/internal/diagnosis"
	"github.com/hatsuonlab/hatsuon/internal/health"
	"github.com/hatsuonlab/hatsuon/internal/logsink"
	"github.com/hatsuonlab/hatsuon/internal/observe"
	"github.com/hatsuonlab/hatsuon/internal/resilience"
	"github.com/hatsuonlab/hatsuon/internal/server"
	"github.com/hatsuonlab/hatsuon/internal/transcode"
	"github.com/hatsuonlab/hatsuon/pkg/genai"
	"github.com/hatsuonlab/hatsuon/pkg/genai/anyllm"
	openaigen "github.com/hatsuonlab/hatsuon/pkg/genai/openai"
	"github.com/hatsuonlab/hatsuon/pkg/speech"
	googlespeech "github.com/hatsuonlab/hatsuon/pkg/speech/google"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Signal context first so every blocking startup step is interruptible.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Configuration (watched for hot reload) ────────────────────────────────
	watcher, err := config.NewWatcher(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "hatsuon: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "hatsuon: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()
	cfg := watcher.Current()

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.Server.LogLevel))
	slog.Info("hatsuon starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "hatsuon"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Report generator ──────────────────────────────────────────────────────
	generator, err := buildGenerator(ctx, cfg)
	if err != nil {
		slog.Error("failed to build report generator", "err", err)
		return 1
	}

	// ── Recognizer ────────────────────────────────────────────────────────────
	recognizer := googlespeech.NewFromFile(cfg.Credentials.GoogleCredentialsJSON)

	// ── Log sink (optional) ───────────────────────────────────────────────────
	var sink logsink.Sink
	if cfg.LogSink.Spreadsheet != "" {
		sheets, err := logsink.NewSheets(ctx, cfg.LogSink.Spreadsheet, cfg.Credentials.GoogleCredentialsJSON)
		if err != nil {
			slog.Error("failed to create sheets sink", "err", err)
			return 1
		}
		sink = sheets
		slog.Info("spreadsheet logging enabled", "spreadsheet", logsink.SpreadsheetKey(cfg.LogSink.Spreadsheet))
	}

	// ── Session archive (optional) ────────────────────────────────────────────
	var store archive.Store
	checkers := []health.Checker{health.FFmpegChecker(transcode.DefaultBin)}
	if cfg.Archive.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Archive.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer pool.Close()

		pgStore := archive.NewPostgresStore(pool)
		if err := pgStore.Migrate(ctx); err != nil {
			slog.Error("failed to migrate session archive", "err", err)
			return 1
		}
		store = pgStore
		checkers = append(checkers, health.Checker{Name: "archive", Check: pgStore.Ping})
		slog.Info("session archive enabled")
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	hub := server.NewHub()
	pipeline, err := diagnosis.NewPipeline(diagnosis.PipelineConfig{
		Transcoder: transcode.New(transcode.DefaultBin, transcode.WithVideoDiscard()),
		Recognizer: recognizer,
		Generator:  generator,
		Sink:       sink,
		Store:      store,
		Recognition: speech.Config{
			Language:        cfg.Recognition.Language,
			SampleRateHertz: cfg.Recognition.SampleRateHertz,
			Encoding:        "mp3",
			MaxAlternatives: cfg.Recognition.MaxAlternatives,
			Punctuation:     cfg.Recognition.Punctuation,
			Timeout:         cfg.Recognition.Timeout(),
		},
		Progress: hub.Publish,
	})
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		return 1
	}

	// Registered only now that the pipeline exists, so the reload callback
	// never races its construction.
	watcher.OnChange(func(old, new *config.Config) {
		if modelListEqual(old.Generation, new.Generation) && old.Credentials == new.Credentials {
			return
		}
		gen, genErr := buildGenerator(context.Background(), new)
		if genErr != nil {
			slog.Warn("config reload: keeping previous generator", "err", genErr)
			return
		}
		pipeline.SetGenerator(gen)
		slog.Info("config reload: report generator replaced")
	})

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv, err := server.New(server.Config{
		ListenAddr:     cfg.Server.ListenAddr,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		AdminPassword:  cfg.Admin.Password,
		Analyzer:       pipeline,
		Hub:            hub,
		Store:          store,
		Health:         health.New(checkers...),
	})
	if err != nil {
		slog.Error("failed to build server", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildGenerator assembles the model fallback chain for the configured
// backend. Every model gets its own generator; the chain tries them in order.
func buildGenerator(ctx context.Context, cfg *config.Config) (genai.Generator, error) {
	models := cfg.Generation.Models

	switch cfg.Generation.Backend {
	case config.BackendOpenAI:
		if cfg.Generation.Discover {
			discovered, err := discoverModels(ctx, cfg)
			if err != nil {
				slog.Warn("model discovery failed; using configured list", "err", err)
			} else if len(discovered) > 0 {
				models = discovered
			}
		}
		if len(models) == 0 {
			return nil, fmt.Errorf("no openai models configured or discovered")
		}
		gens := make([]genai.Generator, 0, len(models))
		for _, model := range models {
			var opts []openaigen.Option
			if cfg.Generation.BaseURL != "" {
				opts = append(opts, openaigen.WithBaseURL(cfg.Generation.BaseURL))
			}
			g, err := openaigen.New(cfg.Credentials.OpenAIAPIKey, model, opts...)
			if err != nil {
				return nil, fmt.Errorf("create openai generator for %q: %w", model, err)
			}
			gens = append(gens, g)
		}
		return resilience.NewGeneratorChain(resilience.BreakerConfig{}, gens...)

	default: // gemini
		if len(models) == 0 {
			models = config.DefaultModels
		}
		gens := make([]genai.Generator, 0, len(models))
		for _, model := range models {
			opts := []anyllmlib.Option{anyllmlib.WithAPIKey(cfg.Credentials.GeminiAPIKey)}
			if cfg.Generation.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(cfg.Generation.BaseURL))
			}
			g, err := anyllm.NewGemini(model, opts...)
			if err != nil {
				return nil, fmt.Errorf("create gemini generator for %q: %w", model, err)
			}
			gens = append(gens, g)
		}
		return resilience.NewGeneratorChain(resilience.BreakerConfig{}, gens...)
	}
}

// orderModels sorts discovered model names into fallback order: names
// containing the preferred substring first, then "pro" variants, then
// everything else. The sort is stable, so within each tier the API's own
// order breaks ties.
func orderModels(models []string, prefer string) []string {
	rank := func(name string) int {
		switch {
		case prefer != "" && strings.Contains(name, prefer):
			return 0
		case strings.Contains(name, "pro"):
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(models, func(i, j int) bool {
		return rank(models[i]) < rank(models[j])
	})
	return models
}

// discoverModels lists the models the API advertises and orders them for
// fallback via [orderModels].
func discoverModels(ctx context.Context, cfg *config.Config) ([]string, error) {
	var opts []openaigen.Option
	if cfg.Generation.BaseURL != "" {
		opts = append(opts, openaigen.WithBaseURL(cfg.Generation.BaseURL))
	}
	// The lister needs a model name for construction; it is not used by the
	// listing call itself.
	probe, err := openaigen.New(cfg.Credentials.OpenAIAPIKey, "discovery", opts...)
	if err != nil {
		return nil, err
	}

	models, err := probe.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	return orderModels(models, cfg.Generation.Prefer), nil
}

// modelListEqual reports whether two generation configs select the same
// model chain.
func modelListEqual(a, b config.GenerationConfig) bool {
	if a.Backend != b.Backend || a.Discover != b.Discover || a.Prefer != b.Prefer || a.BaseURL != b.BaseURL {
		return false
	}
	if len(a.Models) != len(b.Models) {
		return false
	}
	for i := range a.Models {
		if a.Models[i] != b.Models[i] {
			return false
		}
	}
	return true
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
