package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"policytask/internal/config"
	"policytask/internal/hooks"
	"policytask/internal/logger"
	"policytask/internal/prompt"
	"policytask/internal/schedule"
	"policytask/internal/server"
	"policytask/internal/task"
	"policytask/internal/watcher"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// Build-time variables (set by ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type contextKey string

const configContextKey contextKey = "config"

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "policytask",
		Usage:   "Task files for AI agents researching election candidates and policies",
		Version: fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit),
		Writer:  out,
		Before:  setup,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (YAML)",
				Value:   config.DefaultConfigFile,
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Optional .env file loaded before the configuration",
				Value: config.DefaultEnvFile,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Set log format (console, json)",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:  "tasks-dir",
				Usage: "Override the tasks directory",
			},
			&cli.StringFlag{
				Name:  "results-dir",
				Usage: "Override the results directory",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "create",
				Usage:  "Create a task file",
				Action: createCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Task identity (generated when empty)",
					},
					&cli.StringFlag{
						Name:     "category",
						Aliases:  []string{"t"},
						Usage:    "Task category (candidate_search, policy_search, policy_verify, progress_tracking)",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "param",
						Aliases: []string{"p"},
						Usage:   "Task parameter as key=value, repeatable",
					},
					&cli.StringFlag{
						Name:  "params",
						Usage: "Task parameters as a JSON object",
					},
				},
			},
			{
				Name:   "pending",
				Usage:  "List task files without a result",
				Action: pendingCommand,
			},
			{
				Name:   "next",
				Usage:  "Print the pending task to work on first",
				Action: nextCommand,
			},
			{
				Name:      "result-path",
				Usage:     "Print where the result of a task file is expected",
				ArgsUsage: "<task file>",
				Action:    resultPathCommand,
			},
			{
				Name:   "status",
				Usage:  "List task files and their state",
				Action: statusCommand,
			},
			{
				Name:   "cleanup",
				Usage:  "Delete task and result files older than the given age",
				Action: cleanupCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-age-days",
						Usage: "Maximum age in days (defaults to cleanup.max_age_days)",
					},
				},
			},
			{
				Name:   "schedule",
				Usage:  "Create candidate search tasks for a region rotation",
				Action: scheduleCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Region selection (weekly, all, manual)",
						Value: string(schedule.ModeWeekly),
					},
					&cli.StringSliceFlag{
						Name:  "region",
						Usage: "Region for manual mode, repeatable",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Task category",
						Value: string(prompt.CategoryCandidateSearch),
					},
					&cli.IntFlag{
						Name:  "election-year",
						Usage: "Election year",
						Value: schedule.DefaultElectionYear,
					},
					&cli.IntFlag{
						Name:  "search-days",
						Usage: "Only search news from the last N days",
						Value: schedule.DefaultSearchDays,
					},
				},
			},
			{
				Name:   "watch",
				Usage:  "Report tasks as their result files appear",
				Action: watchCommand,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "HTTP server port (defaults to server.port)",
						Sources: cli.EnvVars("PORT"),
					},
				},
			},
			{
				Name:   "init",
				Usage:  "Create a sample configuration file",
				Action: initCommand,
			},
		},
	}
}

// setup loads the environment, the configuration and the logger for every command
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := config.LoadEnv(cmd.String("env-file")); err != nil {
		return ctx, err
	}

	cfg, err := config.LoadOrDefault(cmd.String("config"))
	if err != nil {
		return ctx, fmt.Errorf("failed to load config: %w", err)
	}

	if dir := cmd.String("tasks-dir"); dir != "" {
		cfg.Paths.TasksDir = dir
	}
	if dir := cmd.String("results-dir"); dir != "" {
		cfg.Paths.ResultsDir = dir
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format := cmd.String("log-format"); format != "" {
		cfg.Log.Format = format
	}

	logLevel, err := logger.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return ctx, fmt.Errorf("invalid log level: %w", err)
	}
	logFormat, err := logger.ParseFormat(cfg.Log.Format)
	if err != nil {
		return ctx, fmt.Errorf("invalid log format: %w", err)
	}

	ctx, err = logger.SetupContext(ctx, logLevel, logFormat)
	if err != nil {
		return ctx, fmt.Errorf("failed to setup logger: %w", err)
	}

	logger.FromContext(ctx).Debug("Configuration loaded",
		zap.String("version", Version),
		zap.String("config_path", cmd.String("config")),
		zap.String("tasks_dir", cfg.Paths.TasksDir),
		zap.String("results_dir", cfg.Paths.ResultsDir))

	return context.WithValue(ctx, configContextKey, cfg), nil
}

func configFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configContextKey).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func openStore(ctx context.Context) (*task.Store, error) {
	cfg := configFromContext(ctx)

	builder, err := prompt.NewBuilder(prompt.NewAPI(cfg.API))
	if err != nil {
		return nil, err
	}

	store, err := task.NewStore(cfg.Paths, builder)
	if err != nil {
		return nil, fmt.Errorf("failed to open task store: %w", err)
	}
	return store, nil
}

func createCommand(ctx context.Context, cmd *cli.Command) error {
	category := prompt.Normalize(cmd.String("category"))
	if category == "" {
		return fmt.Errorf("category must not be empty")
	}

	params, err := parseParams(cmd.String("params"), cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	id := strings.TrimSpace(cmd.String("id"))
	if id == "" {
		id = uuid.NewString()
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	path, err := store.Create(ctx, id, category, params)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	fmt.Fprintln(cmd.Root().Writer, path)
	return runCreatedHooks(ctx, &configFromContext(ctx).Hooks, store, id, category, path)
}

func runCreatedHooks(ctx context.Context, hookConfig *config.Hooks, store *task.Store, id string, category prompt.Category, path string) error {
	return hooks.Execute(ctx, hookConfig, hooks.EventCreated, map[string]string{
		hooks.EnvTaskPath:     path,
		hooks.EnvTaskID:       id,
		hooks.EnvTaskCategory: category.String(),
		hooks.EnvResultPath:   store.ResultPathFor(path),
	})
}

// parseParams merges a JSON object with key=value pairs, pairs taking precedence
func parseParams(raw string, pairs []string) (map[string]any, error) {
	params := make(map[string]any)

	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return nil, fmt.Errorf("invalid --params JSON object: %w", err)
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params[key] = value
	}

	return params, nil
}

func pendingCommand(ctx context.Context, cmd *cli.Command) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	pending, err := store.ListPending(ctx)
	if err != nil {
		return err
	}

	for _, path := range pending {
		fmt.Fprintln(cmd.Root().Writer, path)
	}
	return nil
}

func nextCommand(ctx context.Context, cmd *cli.Command) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	next, err := store.Next(ctx)
	if err != nil {
		return err
	}
	if next == nil {
		logger.FromContext(ctx).Info("No pending tasks")
		return nil
	}

	fmt.Fprintln(cmd.Root().Writer, next.Path)
	return nil
}

func resultPathCommand(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one task file argument")
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, store.ResultPathFor(cmd.Args().First()))
	return nil
}

func statusCommand(ctx context.Context, cmd *cli.Command) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	entries, err := store.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.Root().Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tCREATED\tTASK")
	pending := 0
	for _, e := range entries {
		if e.State == task.StatePending {
			pending++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.State, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "\n%d tasks, %d pending\n", len(entries), pending)
	return nil
}

func cleanupCommand(ctx context.Context, cmd *cli.Command) error {
	days := configFromContext(ctx).Cleanup.MaxAgeDays
	if cmd.IsSet("max-age-days") {
		days = cmd.Int("max-age-days")
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	deleted, err := store.Cleanup(ctx, days)
	if errors.Is(err, task.ErrInvalidMaxAge) {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "Deleted %d files older than %d days\n", deleted, days)
	if err != nil {
		return fmt.Errorf("cleanup finished with errors: %w", err)
	}

	return hooks.Execute(ctx, &configFromContext(ctx).Hooks, hooks.EventCleanup, map[string]string{
		hooks.EnvDeleted: strconv.Itoa(deleted),
	})
}

func scheduleCommand(ctx context.Context, cmd *cli.Command) error {
	mode, err := schedule.ParseMode(cmd.String("mode"))
	if err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	category := prompt.Normalize(cmd.String("category"))
	report, err := schedule.NewPlanner(store).Run(ctx, schedule.Request{
		Mode:         mode,
		Regions:      cmd.StringSlice("region"),
		Category:     category,
		ElectionYear: cmd.Int("election-year"),
		SearchDays:   cmd.Int("search-days"),
	})
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	for _, s := range report.Skipped {
		fmt.Fprintf(out, "skipped\t%s\t%s\n", s.Region, s.Reason)
	}
	for _, p := range report.Created {
		fmt.Fprintf(out, "created\t%s\t%s\n", p.Region, p.Path)
		if err := runCreatedHooks(ctx, &configFromContext(ctx).Hooks, store, p.ID, category, p.Path); err != nil {
			return err
		}
	}
	return nil
}

func watchCommand(ctx context.Context, cmd *cli.Command) error {
	lgr := logger.FromContext(ctx)

	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lgr.Info("Watching for task results", zap.String("results_dir", store.ResultsDir()))

	hookConfig := &configFromContext(ctx).Hooks
	return watcher.New(store).Run(ctx, func(ctx context.Context, r watcher.Resolution) {
		lgr := logger.FromContext(ctx)
		lgr.Info("Task resolved",
			zap.String("task", r.TaskPath),
			zap.String("result", r.ResultPath))
		fmt.Fprintf(cmd.Root().Writer, "resolved\t%s\n", r.TaskPath)

		err := hooks.Execute(ctx, hookConfig, hooks.EventResolved, map[string]string{
			hooks.EnvTaskPath:   r.TaskPath,
			hooks.EnvResultPath: r.ResultPath,
		})
		if err != nil {
			lgr.Error("Resolved hooks failed", zap.String("task", r.TaskPath), zap.Error(err))
		}
	})
}

func serveCommand(ctx context.Context, cmd *cli.Command) error {
	lgr := logger.FromContext(ctx)
	cfg := configFromContext(ctx)

	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	serverConfig := server.Config{
		Port:              cfg.Server.Port,
		APIKey:            cfg.Server.APIKey(),
		DefaultMaxAgeDays: cfg.Cleanup.MaxAgeDays,
		AfterCreate: func(ctx context.Context, id string, category prompt.Category, path string) error {
			return runCreatedHooks(ctx, &cfg.Hooks, store, id, category, path)
		},
	}
	if cmd.Int("port") != 0 {
		serverConfig.Port = cmd.Int("port")
		lgr.Info("Overriding port from CLI flag", zap.Int("port", serverConfig.Port))
	}

	srv := server.NewServer(ctx, store, serverConfig)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	defer func() {
		if shutdownErr := srv.Stop(context.Background()); shutdownErr != nil {
			lgr.Error("Failed to stop HTTP server", zap.Error(shutdownErr))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		lgr.Info("Shutting down gracefully", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}
	return nil
}

func initCommand(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := config.CreateSampleConfig(path); err != nil {
		return fmt.Errorf("failed to create sample config: %w", err)
	}

	fmt.Fprintf(cmd.Root().Writer, "Created sample %s\n", path)
	return nil
}
