// Package main is the entry point for the simcore simulation engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketforge/simcore/internal/alerting"
	"github.com/marketforge/simcore/internal/config"
	"github.com/marketforge/simcore/internal/datafeed"
	"github.com/marketforge/simcore/internal/metrics"
	"github.com/marketforge/simcore/internal/persistence"
	"github.com/marketforge/simcore/internal/replay"
	"github.com/marketforge/simcore/internal/strategy"
	"github.com/marketforge/simcore/internal/types"
)

// Version information (set by build flags).
var (
	Version   = "0.3.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		cmdVersion()
	case "help", "-h", "--help":
		printUsage()
	case "backtest":
		cmdBacktest(os.Args[2:])
	case "paper":
		cmdPaper(os.Args[2:])
	case "validate":
		cmdValidate(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`simcore - Deterministic Trading Strategy Simulator

Usage:
  simcore <command> [options]

Commands:
  backtest   Replay a bar history against a strategy
  paper      Step through bars one at a time, paper-trading style
  validate   Validate configuration file
  version    Show version information
  help       Show this help message

Examples:
  simcore backtest --config config.yaml --data data/BTCUSDT_1d.csv
  simcore backtest --strategy rsireversion
  simcore paper --config config.yaml
  simcore validate --config config.yaml

Without --config, a built-in demo configuration and a deterministic
synthetic bar series are used.

Use "simcore <command> --help" for more information about a command.`)
}

func cmdVersion() {
	fmt.Printf("simcore version %s\n", Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Git commit: %s\n", GitCommit)
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration is valid!")
	fmt.Printf("  Symbol:          %s\n", cfg.Session.Symbol)
	fmt.Printf("  Initial cash:    $%.2f\n", cfg.Session.InitialCash)
	fmt.Printf("  Strategy:        %s\n", cfg.Strategy.Name)
	fmt.Printf("  Fee rate:        %.4f\n", cfg.Session.FeeRate)
	fmt.Printf("  Fault threshold: %d\n", cfg.Limits.FaultThreshold)
}

func cmdBacktest(args []string) {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file (optional)")
	dataPath := fs.String("data", "", "Path to CSV data file (overrides config)")
	strategyName := fs.String("strategy", "", "Strategy name (overrides config)")
	verbose := fs.Bool("verbose", false, "Verbose output")
	fs.Parse(args)

	logger := setupLogger(*verbose)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if *strategyName != "" {
		cfg.Strategy.Name = *strategyName
	}
	if *dataPath != "" {
		cfg.Data.CSVPath = *dataPath
	}

	strat, err := strategy.DefaultRegistry().New(cfg.Strategy.Name, cfg.ToStrategyParams())
	if err != nil {
		slog.Error("failed to build strategy", "name", cfg.Strategy.Name, "err", err)
		os.Exit(1)
	}

	bars, err := loadBars(cfg)
	if err != nil {
		slog.Error("failed to load bars", "err", err)
		os.Exit(1)
	}

	driver, err := replay.NewDriver(cfg.ToReplayConfig(), strat, logger)
	if err != nil {
		slog.Error("failed to create driver", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSrv := startMetrics(cfg, driver, strat.Name(), logger)
	if metricsSrv != nil {
		defer shutdownMetrics(metricsSrv)
	}
	alerter := buildAlerter(cfg, logger)

	slog.Info("starting backtest",
		"symbol", cfg.Session.Symbol,
		"strategy", strat.Name(),
		"bars", len(bars),
		"initial_cash", cfg.Session.InitialCash,
	)
	alerter.AlertEvent(ctx, alerting.EventSessionStarted, "backtest started",
		"symbol", cfg.Session.Symbol, "strategy", strat.Name(), "bars", len(bars))

	start := time.Now()
	result, err := driver.Backtest(ctx, bars)
	if err != nil {
		alertBacktestFailure(ctx, alerter, err)
		slog.Error("backtest failed", "err", err, "elapsed", time.Since(start))
		os.Exit(1)
	}

	alerter.AlertEvent(ctx, alerting.EventSessionCompleted, "backtest completed",
		"symbol", cfg.Session.Symbol,
		"trades", len(result.Trades),
		"elapsed", time.Since(start).Round(time.Millisecond).String())

	printBacktestResults(cfg, result)

	if cfg.Persistence.Enabled {
		if err := saveSession(ctx, cfg, driver, strat.Name(), "backtest", result.Trades, result.EquityCurve); err != nil {
			slog.Error("failed to persist session", "err", err)
			os.Exit(1)
		}
	}
}

func cmdPaper(args []string) {
	fs := flag.NewFlagSet("paper", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file (optional)")
	dataPath := fs.String("data", "", "Path to CSV data file (overrides config)")
	resumeID := fs.String("resume", "", "Session ID to resume (requires persistence)")
	verbose := fs.Bool("verbose", false, "Verbose output")
	fs.Parse(args)

	logger := setupLogger(*verbose)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.Data.CSVPath = *dataPath
	}

	strat, err := strategy.DefaultRegistry().New(cfg.Strategy.Name, cfg.ToStrategyParams())
	if err != nil {
		slog.Error("failed to build strategy", "name", cfg.Strategy.Name, "err", err)
		os.Exit(1)
	}

	bars, err := loadBars(cfg)
	if err != nil {
		slog.Error("failed to load bars", "err", err)
		os.Exit(1)
	}

	var repo persistence.Repository
	if cfg.Persistence.Enabled {
		repo, err = persistence.NewSQLiteRepository(cfg.Persistence.Path)
		if err != nil {
			slog.Error("failed to open session store", "path", cfg.Persistence.Path, "err", err)
			os.Exit(1)
		}
		defer repo.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessionID := *resumeID
	var driver *replay.Driver
	switch {
	case sessionID != "":
		if repo == nil {
			slog.Error("--resume requires persistence to be enabled")
			os.Exit(1)
		}
		record, err := repo.GetSession(ctx, sessionID)
		if err != nil {
			slog.Error("failed to load session", "session_id", sessionID, "err", err)
			os.Exit(1)
		}
		driver, err = replay.NewDriverFromSnapshot(cfg.ToReplayConfig(), strat, record.Snapshot, logger)
		if err != nil {
			slog.Error("failed to restore session", "session_id", sessionID, "err", err)
			os.Exit(1)
		}
		// Skip bars the restored session has already consumed.
		bars = barsAfter(bars, driver.Context())
		slog.Info("resumed paper session", "session_id", sessionID, "remaining_bars", len(bars))
	default:
		sessionID = uuid.NewString()
		driver, err = replay.NewDriver(cfg.ToReplayConfig(), strat, logger)
		if err != nil {
			slog.Error("failed to create driver", "err", err)
			os.Exit(1)
		}
	}

	metricsSrv := startMetrics(cfg, driver, strat.Name(), logger)
	if metricsSrv != nil {
		defer shutdownMetrics(metricsSrv)
	}
	alerter := buildAlerter(cfg, logger)

	slog.Info("starting paper session",
		"session_id", sessionID,
		"symbol", cfg.Session.Symbol,
		"strategy", strat.Name(),
		"bars", len(bars),
	)
	alerter.AlertEvent(ctx, alerting.EventSessionStarted, "paper session started",
		"session_id", sessionID, "symbol", cfg.Session.Symbol)

	var stepErr error
	for _, bar := range bars {
		if ctx.Err() != nil {
			slog.Info("shutdown signal received")
			break
		}

		step, err := driver.Step(ctx, bar)
		if err != nil {
			stepErr = err
			alertPaperFailure(ctx, alerter, err)
			slog.Error("step failed", "bar_time", bar.Time, "err", err)
			break
		}

		slog.Info("bar processed",
			"time", bar.Time.Format(time.RFC3339),
			"close", bar.Close.String(),
			"cash", step.Cash.StringFixed(2),
			"equity", step.Equity.StringFixed(2),
			"positions", len(step.Positions),
			"pending", len(step.PendingOrders),
			"fills", len(step.NewTrades),
		)
		for _, t := range step.NewTrades {
			slog.Info("fill",
				"side", t.Side.String(),
				"qty", t.Quantity.String(),
				"price", t.Price.StringFixed(2),
				"fee", t.Fee.StringFixed(4),
				"realized_pnl", t.RealizedPnL.StringFixed(2),
			)
		}
	}

	printPaperSummary(cfg, driver)

	if repo != nil {
		sim := driver.Context()
		if err := savePaperSession(context.Background(), repo, cfg, driver, sessionID, strat.Name()); err != nil {
			slog.Error("failed to persist session", "session_id", sessionID, "err", err)
			os.Exit(1)
		}
		slog.Info("session saved",
			"session_id", sessionID,
			"state", string(sim.State()),
			"resume_with", fmt.Sprintf("simcore paper --resume %s", sessionID),
		)
	}

	if stepErr != nil {
		os.Exit(1)
	}
}

// setupLogger installs a text slog handler as the process default.
func setupLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// loadBars reads bars from the configured CSV file, falling back to a
// deterministic synthetic series when no file is configured.
func loadBars(cfg *config.Config) ([]types.Bar, error) {
	if cfg.Data.CSVPath != "" {
		bars, err := datafeed.LoadCSV(cfg.Data.CSVPath)
		if err != nil {
			return nil, err
		}
		slog.Info("loaded bars from csv", "path", cfg.Data.CSVPath, "bars", len(bars))
		return bars, nil
	}

	synCfg := datafeed.DefaultSyntheticConfig()
	if cfg.Data.SyntheticBars > 0 {
		synCfg.Bars = cfg.Data.SyntheticBars
	}
	if cfg.Data.SyntheticSeed != 0 {
		synCfg.Seed = cfg.Data.SyntheticSeed
	}
	if cfg.Data.SyntheticStart > 0 {
		synCfg.StartPrice = decimal.NewFromFloat(cfg.Data.SyntheticStart)
	}
	bars := datafeed.Synthetic(synCfg)
	slog.Info("generated synthetic bars", "bars", len(bars), "seed", synCfg.Seed)
	return bars, nil
}

// startMetrics wires the Prometheus recorder into the driver and starts the
// scrape endpoint. Returns nil when metrics are disabled.
func startMetrics(cfg *config.Config, driver *replay.Driver, strategyName string, logger *slog.Logger) *metrics.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}

	driver.SetObserver(metrics.NewRecorder(cfg.Session.Symbol, strategyName))

	srv := metrics.NewServer(metrics.ServerConfig{
		Port:        cfg.Metrics.Port,
		MetricsPath: cfg.Metrics.Path,
	}, logger)
	if err := srv.Start(); err != nil {
		slog.Error("failed to start metrics server", "err", err)
		os.Exit(1)
	}
	return srv
}

func shutdownMetrics(srv *metrics.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("metrics server shutdown", "err", err)
	}
}

func buildAlerter(cfg *config.Config, logger *slog.Logger) *alerting.MultiAlerter {
	multi := alerting.NewMultiAlerter(logger)
	if cfg.Alerting.Enabled {
		multi.AddAlerter(alerting.NewConsoleAlerter(logger))
	}
	return multi
}

func alertBacktestFailure(ctx context.Context, alerter *alerting.MultiAlerter, err error) {
	event := alerting.EventSessionFaulted
	if errors.Is(err, types.ErrReplayTimeout) {
		event = alerting.EventReplayTimeout
	} else if errors.Is(err, types.ErrFaultThreshold) {
		event = alerting.EventFaultThreshold
	}
	alerter.AlertEvent(ctx, event, "backtest aborted", "err", err.Error())
}

func alertPaperFailure(ctx context.Context, alerter *alerting.MultiAlerter, err error) {
	event := alerting.EventSessionFaulted
	if errors.Is(err, types.ErrFaultThreshold) {
		event = alerting.EventFaultThreshold
	}
	alerter.AlertEvent(ctx, event, "paper session aborted", "err", err.Error())
}

// saveSession persists a finished backtest under a fresh session ID.
func saveSession(ctx context.Context, cfg *config.Config, driver *replay.Driver, strategyName, mode string, trades []types.Trade, curve []types.EquityPoint) error {
	repo, err := persistence.NewSQLiteRepository(cfg.Persistence.Path)
	if err != nil {
		return err
	}
	defer repo.Close()

	sim := driver.Context()
	snapshot, err := sim.Snapshot()
	if err != nil {
		return err
	}

	sessionID := uuid.NewString()
	record := persistence.SessionRecord{
		ID:       sessionID,
		Symbol:   cfg.Session.Symbol,
		Strategy: strategyName,
		Mode:     mode,
		State:    string(sim.State()),
		Snapshot: snapshot,
	}
	if err := repo.SaveSession(ctx, record); err != nil {
		return err
	}
	if err := repo.SaveTrades(ctx, sessionID, trades); err != nil {
		return err
	}
	if err := repo.SaveEquityPoints(ctx, sessionID, curve); err != nil {
		return err
	}

	slog.Info("session saved", "session_id", sessionID, "trades", len(trades))
	return nil
}

// savePaperSession upserts a paper session, preserving the caller's ID so
// the session can be resumed later.
func savePaperSession(ctx context.Context, repo persistence.Repository, cfg *config.Config, driver *replay.Driver, sessionID, strategyName string) error {
	sim := driver.Context()
	snapshot, err := sim.Snapshot()
	if err != nil {
		return err
	}

	record := persistence.SessionRecord{
		ID:       sessionID,
		Symbol:   cfg.Session.Symbol,
		Strategy: strategyName,
		Mode:     "paper",
		State:    string(sim.State()),
		Snapshot: snapshot,
	}
	return repo.SaveSession(ctx, record)
}

// barsAfter drops bars the restored context has already processed, keyed by
// the last recorded equity point.
func barsAfter(bars []types.Bar, sim *replay.SimulationContext) []types.Bar {
	last, ok := sim.LastBarTime()
	if !ok {
		return bars
	}
	for i, bar := range bars {
		if bar.Time.After(last) {
			return bars[i:]
		}
	}
	return nil
}

func printBacktestResults(cfg *config.Config, result *replay.BacktestResult) {
	m := result.Metrics

	fmt.Println("\n=== BACKTEST RESULTS ===")
	fmt.Printf("Symbol:           %s\n", cfg.Session.Symbol)
	fmt.Printf("Initial Cash:     $%.2f\n", cfg.Session.InitialCash)
	fmt.Printf("Total Return:     $%.2f (%.2f%%)\n",
		m.TotalReturn.InexactFloat64(), m.TotalReturnPercent.InexactFloat64())
	fmt.Printf("Max Drawdown:     %.2f%%\n", m.MaxDrawdown.InexactFloat64()*100)
	fmt.Printf("Sharpe Ratio:     %.2f\n", m.SharpeRatio.InexactFloat64())
	fmt.Println()
	fmt.Printf("Total Trades:     %d\n", m.TotalTrades)
	fmt.Printf("Closed Trades:    %d\n", m.ClosedTrades)
	fmt.Printf("Winning Trades:   %d\n", m.WinningTrades)
	fmt.Printf("Win Rate:         %.2f%%\n", m.WinRate.InexactFloat64()*100)
	fmt.Printf("Avg Trade Return: $%.2f\n", m.AvgTradeReturn.InexactFloat64())

	if len(result.FinalPositions) > 0 {
		fmt.Println("\n=== OPEN POSITIONS ===")
		for _, pos := range result.FinalPositions {
			fmt.Printf("%-10s qty %s @ avg %s\n",
				pos.Symbol, pos.Quantity.String(), pos.AvgEntryPrice.StringFixed(2))
		}
	}

	if len(result.Faults) > 0 {
		fmt.Printf("\nStrategy faults: %d (first: %s)\n",
			len(result.Faults), result.Faults[0].Reason)
	}
}

func printPaperSummary(cfg *config.Config, driver *replay.Driver) {
	m := driver.Metrics()

	fmt.Println("\n=== PAPER SESSION SUMMARY ===")
	fmt.Printf("Symbol:           %s\n", cfg.Session.Symbol)
	fmt.Printf("State:            %s\n", string(driver.Context().State()))
	fmt.Printf("Total Return:     $%.2f (%.2f%%)\n",
		m.TotalReturn.InexactFloat64(), m.TotalReturnPercent.InexactFloat64())
	fmt.Printf("Total Trades:     %d\n", m.TotalTrades)
	fmt.Printf("Win Rate:         %.2f%%\n", m.WinRate.InexactFloat64()*100)
	fmt.Printf("Max Drawdown:     %.2f%%\n", m.MaxDrawdown.InexactFloat64()*100)

	if faults := driver.Faults(); len(faults) > 0 {
		fmt.Printf("Strategy faults:  %d\n", len(faults))
	}
}
