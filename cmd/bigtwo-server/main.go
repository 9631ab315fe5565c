package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/lox/bigtwo/internal/auth"
	"github.com/lox/bigtwo/internal/deck"
	"github.com/lox/bigtwo/internal/game"
	"github.com/lox/bigtwo/internal/randutil"
	"github.com/lox/bigtwo/internal/server"
	"github.com/lox/bigtwo/internal/store"
)

// version is set by ldflags during build
var version = "dev"

var CLI struct {
	Version     kong.VersionFlag `short:"v" help:"Show version"`
	Config      string           `short:"c" long:"config" default:"bigtwo.hcl" help:"Path to HCL configuration file"`
	HTTPAddr    string           `long:"http-addr" help:"HTTP address for /ws, /health and /stats (overrides config)"`
	Mux         string           `short:"a" long:"addr" help:"Address of the mux listener (overrides config)"`
	LogLevel    string           `short:"l" long:"log-level" help:"Log level (overrides config)"`
	DB          string           `long:"db" help:"SQLite database path (overrides config)"`
	Memory      bool             `long:"memory" help:"Keep accounts in memory only"`
	MaxInflight int              `long:"max-inflight" help:"Maximum requests handled at once (overrides config)"`
	Seed        *int64           `long:"seed" help:"Deterministic shuffle seed (optional)"`
	StatsFile   string           `long:"stats-file" help:"Write request and game stats here on shutdown (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("bigtwo-server"),
		kong.Description("Coordinator for four-seat Big Two rooms"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		ctx.Exit(1)
	}
	applyOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	ctx.FatalIfErrorf(run(cfg))
}

// applyOverrides copies command line flags over the loaded config.
func applyOverrides(cfg *server.Config) {
	if CLI.HTTPAddr != "" {
		cfg.Server.HTTPAddress = CLI.HTTPAddr
	}
	if CLI.Mux != "" {
		replaced := false
		for i := range cfg.Listeners {
			if cfg.Listeners[i].Category == "" {
				cfg.Listeners[i].Address = CLI.Mux
				replaced = true
			}
		}
		if !replaced {
			cfg.Listeners = append(cfg.Listeners, server.ListenerConfig{Name: "mux", Address: CLI.Mux})
		}
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.DB != "" {
		cfg.Store.Driver = "sqlite"
		cfg.Store.Path = CLI.DB
	}
	if CLI.Memory {
		cfg.Store.Driver = "memory"
	}
	if CLI.StatsFile != "" {
		cfg.Server.StatsFile = CLI.StatsFile
	}
	if CLI.MaxInflight > 0 {
		cfg.Server.MaxInflight = CLI.MaxInflight
	}
}

// newLogger writes to stderr and, when configured, appends to the log file.
func newLogger(cfg *server.Config) (*log.Logger, func(), error) {
	var out io.Writer = os.Stderr
	cleanup := func() {}
	if cfg.Server.LogFile != "" {
		f, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		cleanup = func() { _ = f.Close() }
	}

	logger := log.NewWithOptions(out, log.Options{ReportTimestamp: true})
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	return logger, cleanup, nil
}

func run(cfg *server.Config) error {
	logger, cleanup, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	var rng deck.Shuffler = randutil.NewLocked(nil)
	if CLI.Seed != nil {
		logger.Info("Using deterministic seed", "seed", *CLI.Seed)
		rng = randutil.NewLocked(randutil.New(*CLI.Seed))
	}

	coord := game.New(auth.New(st), game.Options{
		Rand:   rng,
		Logger: logger,
	})
	srv := server.New(cfg, coord, logger)

	listeners := make([]string, 0, len(cfg.Listeners))
	for _, l := range cfg.Listeners {
		listeners = append(listeners, l.Name+"="+l.Address)
	}
	logger.Info("Starting Big Two server",
		"listeners", listeners,
		"http", cfg.Server.HTTPAddress,
		"store", cfg.Store.Driver,
		"max_inflight", cfg.Server.MaxInflight)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return err
	}
	if cfg.Server.StatsFile != "" {
		return srv.WriteStatsFile(cfg.Server.StatsFile)
	}
	return nil
}
