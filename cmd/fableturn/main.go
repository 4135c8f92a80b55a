// Command fableturn runs the interactive narrative engine: a turn-based
// text adventure driven by free-form player input. It can serve the game
// over WebSocket, over Discord, or directly on the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/fableturn/internal/config"
	discordbot "github.com/MrWong99/fableturn/internal/discord"
	"github.com/MrWong99/fableturn/internal/health"
	"github.com/MrWong99/fableturn/internal/observe"
	"github.com/MrWong99/fableturn/internal/pipeline"
	"github.com/MrWong99/fableturn/internal/resilience"
	"github.com/MrWong99/fableturn/internal/scenario"
	"github.com/MrWong99/fableturn/internal/server"
	"github.com/MrWong99/fableturn/pkg/memory"
	"github.com/MrWong99/fableturn/pkg/memory/postgres"
	"github.com/MrWong99/fableturn/pkg/provider/nl"
	"github.com/MrWong99/fableturn/pkg/provider/nl/anyllm"
	"github.com/MrWong99/fableturn/pkg/provider/nl/mock"
	oainl "github.com/MrWong99/fableturn/pkg/provider/nl/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (empty uses built-in defaults)")
	interactive := flag.Bool("interactive", false, "play on the terminal even when a server or Discord bot is configured")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fableturn: %v\n", err)
			return 1
		}
		cfg = loaded
	} else if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "fableturn: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdownObs, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "fableturn"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObs(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Scenario ──────────────────────────────────────────────────────────────
	scen, err := loadScenario(cfg.Scenario.Path)
	if err != nil {
		slog.Error("failed to load scenario", "path", cfg.Scenario.Path, "err", err)
		return 1
	}

	// ── Collaborators + embedder ──────────────────────────────────────────────
	collab, embedder, err := buildCollaborators(cfg)
	if err != nil {
		slog.Error("failed to build language providers", "err", err)
		return 1
	}

	// ── Turn archive ──────────────────────────────────────────────────────────
	archive, closeArchive, err := buildArchive(ctx, cfg)
	if err != nil {
		slog.Error("failed to open turn archive", "err", err)
		return 1
	}
	defer closeArchive()

	printStartupSummary(cfg, scen)

	// factory builds one game session per frontend connection.
	factory := func(ctx context.Context, id string) (*pipeline.Session, error) {
		opts := []pipeline.SessionOption{
			pipeline.WithMetrics(metrics),
			pipeline.WithArchive(archive),
			pipeline.WithTimeout(cfg.Collaborators.EffectiveTimeout()),
		}
		if id != "" {
			opts = append(opts, pipeline.WithSessionID(id))
		}
		if cfg.Scenario.StatePath != "" {
			opts = append(opts, pipeline.WithStateFile(cfg.Scenario.StatePath))
		}
		if embedder != nil {
			opts = append(opts, pipeline.WithEmbedder(embedder))
		}
		return pipeline.NewSession(scen, collab, opts...)
	}

	// ── Frontends ─────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	frontends := 0

	if cfg.Server.ListenAddr != "" {
		srv := server.New(cfg.Server.ListenAddr,
			func(ctx context.Context) (*pipeline.Session, error) { return factory(ctx, "") },
			server.WithMetrics(metrics),
			server.WithHealth(health.New(archiveChecker(archive))),
			server.WithIdleNudges(cfg.Idle.EffectiveFirst(), cfg.Idle.EffectiveSecond()),
		)
		g.Go(func() error { return srv.Run(gctx) })
		frontends++
	}

	if cfg.Discord.Token != "" {
		bot, err := discordbot.New(discordbot.Config{
			Token:     cfg.Discord.Token,
			ChannelID: cfg.Discord.ChannelID,
		}, func(ctx context.Context, channelID string) (*pipeline.Session, error) {
			return factory(ctx, "discord-"+channelID)
		}, logger)
		if err != nil {
			slog.Error("failed to start Discord frontend", "err", err)
			return 1
		}
		defer bot.Close()
		g.Go(func() error { return bot.Run(gctx) })
		frontends++
	}

	if *interactive || frontends == 0 {
		g.Go(func() error { return runTerminal(gctx, cfg, factory) })
	}

	slog.Info("fableturn ready", "frontends", frontends)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// loadScenario reads the campaign at path, or the embedded default when
// path is empty.
func loadScenario(path string) (*scenario.File, error) {
	if path == "" {
		return scenario.Default()
	}
	return scenario.Load(path)
}

// buildCollaborators wires the configured language provider into the
// collaborator suite. Without a provider the engine runs with pass-through
// collaborators and produces unpolished output.
func buildCollaborators(cfg *config.Config) (nl.Collaborators, nl.Embedder, error) {
	entry := cfg.Providers.NL
	if entry.Name == "" {
		return mock.Passthrough(), nil, nil
	}

	var completer nl.Completer
	var embedder nl.Embedder

	if entry.Name == "openai" {
		opts := []oainl.Option{oainl.WithTimeout(cfg.Collaborators.EffectiveTimeout())}
		if entry.BaseURL != "" {
			opts = append(opts, oainl.WithBaseURL(entry.BaseURL))
		}
		if em := cfg.Providers.Embeddings; em.Name == "openai" && em.Model != "" {
			opts = append(opts, oainl.WithEmbeddingModel(em.Model))
		}
		p, err := oainl.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nl.Collaborators{}, nil, err
		}
		completer, embedder = p, p
	} else {
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		p, err := anyllm.New(entry.Name, entry.Model, opts...)
		if err != nil {
			return nl.Collaborators{}, nil, err
		}
		completer = p

		// Embeddings come from OpenAI even when chat runs elsewhere.
		if em := cfg.Providers.Embeddings; em.Name == "openai" && em.Model != "" {
			ep, err := oainl.New(em.APIKey, em.Model, oainl.WithEmbeddingModel(em.Model))
			if err != nil {
				return nl.Collaborators{}, nil, err
			}
			embedder = ep
		}
	}

	// A tripped breaker turns provider outages into fast failures, so the
	// fail-open rules apply without waiting out the timeout each turn.
	guarded := resilience.NewCompleter(completer, entry.Name, resilience.FallbackConfig{})

	var suiteOpts []nl.SuiteOption
	if cfg.Collaborators.Temperature > 0 {
		suiteOpts = append(suiteOpts, nl.WithTemperature(cfg.Collaborators.Temperature))
	}
	suite := nl.NewSuite(guarded, suiteOpts...)
	slog.Info("language provider ready", "name", entry.Name, "model", entry.Model)
	return suite.Collaborators(), embedder, nil
}

// buildArchive opens the PostgreSQL turn archive or falls back to process
// memory.
func buildArchive(ctx context.Context, cfg *config.Config) (memory.Archive, func(), error) {
	if cfg.Archive.PostgresDSN == "" {
		return memory.NewInMemory(), func() {}, nil
	}
	dims := cfg.Archive.EmbeddingDimensions
	if dims <= 0 {
		dims = 1536
	}
	store, err := postgres.NewStore(ctx, cfg.Archive.PostgresDSN, dims)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("turn archive connected", "dimensions", dims)
	return store, store.Close, nil
}

// archiveChecker probes the archive for the readiness endpoint.
func archiveChecker(archive memory.Archive) health.Checker {
	return health.Checker{
		Name: "archive",
		Check: func(ctx context.Context) error {
			_, err := archive.RecentTurns(ctx, "readyz", 1)
			return err
		},
	}
}

// runTerminal plays the game on stdin/stdout, with idle nudges between
// inputs.
func runTerminal(ctx context.Context, cfg *config.Config, factory func(context.Context, string) (*pipeline.Session, error)) error {
	sess, err := factory(ctx, "terminal")
	if err != nil {
		return fmt.Errorf("start terminal session: %w", err)
	}
	defer sess.Close()

	fmt.Println(sess.Greeting())
	fmt.Print("> ")

	inputs := make(chan string)
	go func() {
		defer close(inputs)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case inputs <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	first := cfg.Idle.EffectiveFirst()
	second := cfg.Idle.EffectiveSecond()
	stage := 0
	timer := time.NewTimer(first)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-inputs:
			if !ok {
				return nil
			}
			res := sess.HandleInput(ctx, line)
			fmt.Println(res.Text)
			if res.GameOver {
				return nil
			}
			fmt.Print("> ")
			stage = 0
			timer.Reset(first)
		case <-timer.C:
			if text := sess.Nudge(ctx, stage > 0); text != "" {
				fmt.Println("\n" + text)
				fmt.Print("> ")
			}
			if stage == 0 && second > first {
				stage = 1
				timer.Reset(second - first)
			}
		}
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, scen *scenario.File) {
	fmt.Println("╔═══════════════════════════════════════════╗")
	fmt.Println("║        Fableturn — startup summary        ║")
	fmt.Println("╠═══════════════════════════════════════════╣")
	printEntry("Scenario", scen.World.Title)
	printProvider("NL provider", cfg.Providers.NL.Name, cfg.Providers.NL.Model)
	printProvider("Embeddings", cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model)
	if cfg.Archive.PostgresDSN != "" {
		printEntry("Archive", "postgres")
	} else {
		printEntry("Archive", "in-memory")
	}
	if cfg.Server.ListenAddr != "" {
		printEntry("Listen addr", cfg.Server.ListenAddr)
	}
	if cfg.Discord.Token != "" {
		printEntry("Discord", "connected")
	}
	fmt.Println("╚═══════════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printEntry(kind, value)
}

func printEntry(kind, value string) {
	if len([]rune(value)) > 23 {
		value = string([]rune(value)[:20]) + "…"
	}
	fmt.Printf("║  %-14s : %-23s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

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
