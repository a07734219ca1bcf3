package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/riskibarqy/cricket-ingest/internal/app"
	"github.com/riskibarqy/cricket-ingest/internal/config"
	"github.com/riskibarqy/cricket-ingest/internal/domain/tracker"
	"github.com/riskibarqy/cricket-ingest/internal/observability"
	"github.com/riskibarqy/cricket-ingest/internal/platform/logging"
	"github.com/riskibarqy/cricket-ingest/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

var errUsage = errors.New("usage")

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}).
		With("service", cfg.ServiceName, "env", cfg.AppEnv)
	logging.SetDefault(logger)
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := "run", os.Args[1:]
	if len(args) > 0 {
		cmd, args = strings.ToLower(strings.TrimSpace(args[0])), args[1:]
	}

	code := 0
	if err := dispatch(ctx, cfg, logger, cmd, args); err != nil {
		if errors.Is(err, errUsage) {
			printUsage()
			code = 2
		} else {
			logger.Error("command failed", "command", cmd, "error", err)
			code = 1
		}
	}
	stop()
	_ = logger.Sync()
	os.Exit(code)
}

func dispatch(ctx context.Context, cfg config.Config, logger *logging.Logger, cmd string, args []string) error {
	switch cmd {
	case "run", "stats", "failed", "completed", "reset", "players", "verify":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close app", "error", err)
		}
	}()

	switch cmd {
	case "stats":
		return printStats(ctx, a)
	case "failed":
		return printRecords(ctx, a, tracker.StatusFailed, args)
	case "completed":
		return printRecords(ctx, a, tracker.StatusCompleted, args)
	case "reset":
		return reset(ctx, a, logger, args)
	case "players":
		return printPlayers(ctx, a, args)
	case "verify":
		return verify(ctx, a, args)
	default:
		return run(ctx, cfg, a, logger)
	}
}

func run(ctx context.Context, cfg config.Config, a *app.App, logger *logging.Logger) error {
	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return fmt.Errorf("init uptrace: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("uptrace shutdown failed", "error", err)
		}
	}()

	stopProfiling, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		return fmt.Errorf("init pyroscope: %w", err)
	}
	defer func() {
		if err := stopProfiling(); err != nil {
			logger.Warn("pyroscope stop failed", "error", err)
		}
	}()

	metricsSrv := observability.StartMetricsServer(cfg, logger)
	defer func() {
		if err := observability.StopMetricsServer(metricsSrv, logger, shutdownTimeout); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}()

	refs, err := a.Lister.ListMatches(ctx)
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}

	report, runErr := a.Ingestion.Run(ctx, refs)
	if cfg.ReportPath != "" {
		if err := report.WriteFile(cfg.ReportPath); err != nil {
			logger.Error("write run report", "path", cfg.ReportPath, "error", err)
		} else {
			logger.Info("run report written", "path", cfg.ReportPath)
		}
	}
	return runErr
}

func printStats(ctx context.Context, a *app.App) error {
	stats, err := a.Tracker.Stats(ctx)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, newStatsView(stats))
}

func printRecords(ctx context.Context, a *app.App, status tracker.Status, args []string) error {
	limit, err := parseLimit(args)
	if err != nil {
		return err
	}
	records, err := a.Tracker.List(ctx, status, limit)
	if err != nil {
		return err
	}
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, newRecordView(rec))
	}
	return writeJSON(os.Stdout, views)
}

func printPlayers(ctx context.Context, a *app.App, args []string) error {
	filter, err := parsePlayerFilter(args)
	if err != nil {
		return err
	}
	players, err := a.Players.Players(ctx, filter)
	if err != nil {
		return err
	}
	views := make([]playerView, 0, len(players))
	for _, p := range players {
		views = append(views, newPlayerView(p))
	}
	return writeJSON(os.Stdout, views)
}

// verify prints one result per match and fails when any match has warnings or no rows.
func verify(ctx context.Context, a *app.App, args []string) error {
	ids, err := parseMatchIDs("verify", args)
	if err != nil {
		return err
	}
	views := make([]verificationView, 0, len(ids))
	flagged := 0
	for _, id := range ids {
		result, err := a.Players.Verify(ctx, id)
		if err != nil {
			return fmt.Errorf("verify match %d: %w", id, err)
		}
		if result.Status != usecase.VerificationSuccess {
			flagged++
		}
		views = append(views, newVerificationView(result))
	}
	if err := writeJSON(os.Stdout, views); err != nil {
		return err
	}
	if flagged > 0 {
		return fmt.Errorf("%d of %d match(es) failed player verification", flagged, len(ids))
	}
	return nil
}

func reset(ctx context.Context, a *app.App, logger *logging.Logger, args []string) error {
	ids, err := parseMatchIDs("reset", args)
	if err != nil {
		return err
	}
	for _, id := range ids {
		deleted, err := a.Ingestion.Reset(ctx, id)
		if err != nil {
			return fmt.Errorf("reset match %d: %w", id, err)
		}
		logger.Info("match reset", "match_id", id, "tracker_record_deleted", deleted)
	}
	return nil
}

func printUsage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "usage: %s [run|stats|failed [limit]|completed [limit]|reset <match_id>...|players <filter>|verify <match_id>...]\n", name)
	fmt.Fprintln(os.Stderr, "player filters: <match_id> [team] | team <team> [match_id] | name <player> | impact [match_id]")
	fmt.Fprintln(os.Stderr, "examples:")
	fmt.Fprintf(os.Stderr, "  %s\n", name)
	fmt.Fprintf(os.Stderr, "  %s stats\n", name)
	fmt.Fprintf(os.Stderr, "  %s failed 20\n", name)
	fmt.Fprintf(os.Stderr, "  %s reset 1422119 1426296\n", name)
	fmt.Fprintf(os.Stderr, "  %s players 1426310 \"Delhi Capitals\"\n", name)
	fmt.Fprintf(os.Stderr, "  %s verify 1426310\n", name)
}
