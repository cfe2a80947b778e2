package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/clock"
	"github.com/lazypower/cadence/internal/config"
	"github.com/lazypower/cadence/internal/engine"
	"github.com/lazypower/cadence/internal/logging"
	"github.com/lazypower/cadence/internal/metrics"
	"github.com/lazypower/cadence/internal/notify"
	"github.com/lazypower/cadence/internal/store"
	"github.com/lazypower/cadence/internal/tier"
)

// app is the wiring shared by every command that touches the database.
type app struct {
	cfg     config.Config
	db      *store.DB
	eng     *engine.Engine
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// appOptions tweaks openApp for a single command.
type appOptions struct {
	prompter engine.Prompter
	registry prometheus.Registerer
	// configLogLevel keeps the configured level instead of quieting the
	// engine to warnings for interactive commands.
	configLogLevel bool
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if p := os.Getenv("CADENCE_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cadence", "config.toml")
}

func loadConfig() (config.Config, error) {
	return config.Load(resolveConfigPath())
}

// openDB opens the database named by the config, or the default path.
func openDB(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	return store.Open(dbPath)
}

// openApp loads config, opens the database and builds an engine whose
// notifications go to the shared local queue. Anchors are initialized before
// returning so a legacy blob is migrated on first use.
func openApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Log
	switch {
	case verbose:
		logCfg.Level = "debug"
	case !opts.configLogLevel:
		logCfg.Level = "warn"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &app{cfg: cfg, db: db, logger: logger}
	if opts.registry != nil {
		a.metrics = metrics.New(opts.registry)
	}

	registry := tier.NewRegistry(nil)
	if rejected := registry.Merge(cfg.Tiers); len(rejected) > 0 {
		logger.Warn("ignoring tier overrides with unknown tier ids", zap.Strings("categories", rejected))
	}

	a.eng = engine.NewWithStore(db, notify.NewQueue(db), engine.Options{
		Clock:             clock.InLocation(clock.Real{}, loc),
		Tiers:             registry,
		Logger:            logger,
		Metrics:           a.metrics,
		Prompter:          opts.prompter,
		EscalationOffsets: cfg.EscalationOffsets(),
		SnoozeHistoryDays: cfg.Snooze.HistoryDays,
		SnoozePatternDays: cfg.Snooze.PatternDays,
	})

	diags, err := a.eng.Anchors.Initialize(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initialize anchors: %w", err)
	}
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "warning: %s\n", d)
	}
	return a, nil
}

func (a *app) Close() {
	a.logger.Sync()
	a.db.Close()
}

// withApp runs fn against a freshly opened app.
func withApp(ctx context.Context, opts appOptions, fn func(*app) error) error {
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// printDiagnostics reports best-effort failures without failing the command.
func printDiagnostics(diags []engine.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "warning: %s\n", d)
	}
}
