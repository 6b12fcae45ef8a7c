package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"pfwatch/internal/bot"
	"pfwatch/internal/command"
	"pfwatch/internal/config"
	"pfwatch/internal/filter"
	"pfwatch/internal/jobs"
	"pfwatch/internal/listing"
	"pfwatch/internal/model"
	"pfwatch/internal/monitor"
	"pfwatch/internal/notify"
	"pfwatch/internal/storage"
)

type flags struct {
	filters         []string
	watch           []int64
	interval        string
	expireThreshold string
	filtersFile     string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	fl, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		slog.Error("parse flags", "error", err)
		os.Exit(2)
	}
	if err := fl.apply(cfg); err != nil {
		slog.Error("parse flags", "error", err)
		os.Exit(2)
	}

	log := newLogger(cfg.LogLevel)

	if err := run(cfg, fl, log); err != nil {
		log.Error("pfwatch", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*flags, error) {
	fl := &flags{}
	flagSet := pflag.NewFlagSet("pfwatch", pflag.ContinueOnError)
	flagSet.StringArrayVar(&fl.filters, "filter", nil, "only search with the named filter (repeatable)")
	flagSet.Int64SliceVar(&fl.watch, "watch", nil, "watch a listing id (repeatable)")
	flagSet.StringVar(&fl.interval, "interval", "", "check interval, seconds or duration (overrides CHECK_INTERVAL)")
	flagSet.StringVar(&fl.expireThreshold, "expire-threshold", "", "target staleness limit (overrides EXPIRE_THRESHOLD)")
	flagSet.StringVar(&fl.filtersFile, "filters-file", "", "YAML filter preset file (overrides FILTERS_FILE)")
	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	return fl, nil
}

func (fl *flags) apply(cfg *config.Config) error {
	if fl.interval != "" {
		d, err := config.ParseDuration(fl.interval)
		if err != nil {
			return fmt.Errorf("--interval: %w", err)
		}
		cfg.CheckInterval = d
	}
	if fl.expireThreshold != "" {
		d, err := config.ParseDuration(fl.expireThreshold)
		if err != nil {
			return fmt.Errorf("--expire-threshold: %w", err)
		}
		cfg.ExpireThreshold = d
	}
	if fl.filtersFile != "" {
		cfg.FiltersFile = fl.filtersFile
	}
	return nil
}

func run(cfg *config.Config, fl *flags, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}
	defer func() { _ = store.Close() }()
	log.Debug("database ready", "path", cfg.DatabasePath, "schema_version", store.SchemaVersion())

	if err := seedFilters(ctx, store, cfg.FiltersFile, log); err != nil {
		return err
	}
	conds, err := selectConditions(ctx, store, fl.filters)
	if err != nil {
		return err
	}

	table := jobs.LoadOrFallback(cfg.JobTablePath, log)

	client := listing.New(cfg.APIBaseURL, &http.Client{Timeout: 30 * time.Second},
		listing.WithRateLimit(cfg.APIRateLimit, 1))
	defer client.Close()

	var (
		tg   *bot.Bot
		sink notify.Sender
	)
	if cfg.TelegramEnabled() {
		tg, err = bot.New(cfg, store, log)
		if err != nil {
			return fmt.Errorf("create bot: %w", err)
		}
		sink = tg
	}

	console := notify.NewConsole(os.Stdout, sink, cfg.SystemNotifications)
	mon := monitor.New(client, filter.New(client, table), console, monitor.Options{
		CheckInterval:   cfg.CheckInterval,
		ExpireThreshold: cfg.ExpireThreshold,
		MaxPages:        cfg.MaxPages,
	}, log)
	mon.SetTargetStore(store)

	stored, err := store.ListTargets(ctx)
	if err != nil {
		return fmt.Errorf("list stored targets: %w", err)
	}
	for _, id := range append(stored, fl.watch...) {
		// failures are reported by the monitor; the id is dropped if the listing is gone
		_ = mon.AddTarget(ctx, id)
	}

	commands := make(chan command.Command, 8)
	go func() {
		err := command.Listen(ctx, os.Stdin, commands, cancel, func(err error) {
			console.ShowStatus(notify.Warn, err.Error())
		})
		if err != nil {
			log.Warn("command input closed", "error", err)
		}
	}()
	if tg != nil {
		go tg.Run(ctx, commands, cancel)
	}

	log.Info("starting monitor", "conditions", len(conds), "interval", cfg.CheckInterval,
		"expire_threshold", cfg.ExpireThreshold, "telegram", tg != nil)

	mon.Run(ctx, conds, commands)

	log.Info("monitor stopped")
	return nil
}

// seedFilters imports the filter file into storage, or stores the built-in
// presets when storage holds no filters yet.
func seedFilters(ctx context.Context, store storage.Storage, path string, log *slog.Logger) error {
	var defs []model.FilterDef
	if path != "" {
		f, err := config.LoadFilterFile(path)
		if err != nil {
			return err
		}
		defs = f.Defs()
		for _, id := range f.Targets {
			if err := store.AddTarget(ctx, id); err != nil {
				return fmt.Errorf("import target: %w", err)
			}
		}
	} else {
		existing, err := store.ListFilters(ctx)
		if err != nil {
			return fmt.Errorf("list filters: %w", err)
		}
		if len(existing) > 0 {
			return nil
		}
		defs = config.DefaultPresets()
	}

	for i := range defs {
		if err := store.UpsertFilter(ctx, &defs[i]); err != nil {
			return fmt.Errorf("import filter: %w", err)
		}
	}
	log.Info("filters imported", "count", len(defs), "source", cmp.Or(path, "presets"))
	return nil
}

// selectConditions returns the named filters, or every enabled filter when
// no names are given.
func selectConditions(ctx context.Context, store storage.Storage, names []string) ([]monitor.Condition, error) {
	var defs []model.FilterDef
	if len(names) == 0 {
		enabled, err := store.ListEnabledFilters(ctx)
		if err != nil {
			return nil, fmt.Errorf("list enabled filters: %w", err)
		}
		defs = enabled
	} else {
		for _, name := range names {
			f, err := store.GetFilter(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("--filter %s: %w", name, err)
			}
			defs = append(defs, *f)
		}
	}
	if len(defs) == 0 {
		return nil, errors.New("no enabled filters, enable one or pass --filter")
	}

	conds := make([]monitor.Condition, 0, len(defs))
	for _, d := range defs {
		conds = append(conds, monitor.Condition{Label: d.Name, Filter: d.Condition})
	}
	return conds, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
