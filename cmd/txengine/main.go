package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"qazna.org/txengine/internal/audit"
	"qazna.org/txengine/internal/config"
	"qazna.org/txengine/internal/ids"
	"qazna.org/txengine/internal/ingest"
	"qazna.org/txengine/internal/ledger"
	"qazna.org/txengine/internal/obs"
	"qazna.org/txengine/internal/pipeline"
	"qazna.org/txengine/internal/report"
	"qazna.org/txengine/internal/store/pg"
	"qazna.org/txengine/internal/ui"
)

var version = "0.1.0"

// errUsage marks command-line mistakes; the usage text is already printed.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			ui.Error(os.Stderr, err.Error())
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("txengine", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: txengine [flags] <transactions.csv>")
		fs.PrintDefaults()
	}
	var (
		configPath  = fs.String("config", "", "YAML config file")
		envFile     = fs.String("env-file", "", "dotenv file with TXENGINE_* variables")
		logLevel    = fs.String("log-level", "", "log level: debug, info, warn, error")
		logFormat   = fs.String("log-format", "", "log format: json or console")
		strict      = fs.Bool("strict", false, "enforce the strict transaction lifecycle")
		metricsFile = fs.String("metrics-file", "", "write Prometheus textfile metrics to this path")
		pgDSN       = fs.String("pg-dsn", "", "also store final balances in PostgreSQL")
		summary     = fs.Bool("summary", false, "print a run summary to stderr")
		showVersion = fs.Bool("version", false, "print version and exit")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if *showVersion {
		fmt.Fprintf(stdout, "txengine %s\n", version)
		return nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		case "strict":
			cfg.Engine.Strict = *strict
		case "metrics-file":
			cfg.Metrics.File = *metricsFile
		case "pg-dsn":
			cfg.Report.PostgresDSN = *pgDSN
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := obs.NewLogger(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	runID := ids.NewRunID(time.Now())
	ctx = audit.WithRunID(ctx, runID)
	logger = logger.With(zap.String("run_id", runID))

	in, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	metrics := obs.NewMetrics(version)
	eng := ledger.NewEngine(ledger.WithStrictLifecycle(cfg.Engine.Strict))
	logger.Info("run started",
		zap.String("input", fs.Arg(0)),
		zap.Bool("strict", eng.Strict()),
	)

	sum, err := pipeline.Run(ctx, ingest.NewReader(in), eng, pipeline.Options{
		Metrics: metrics,
		Trail:   audit.NewTrail(logger),
	})
	if err != nil {
		return err
	}
	logger.Info("run finished",
		zap.Int("rows", sum.Rows),
		zap.Int("applied", sum.Applied),
		zap.Int("rejected", sum.RejectedTotal()),
		zap.Int("malformed", sum.Malformed),
		zap.Int("accounts", sum.Accounts),
		zap.Duration("elapsed", sum.Elapsed),
	)

	balances := eng.Balances()
	if err := report.WriteCSV(stdout, balances); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if cfg.Metrics.File != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.File); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if cfg.Report.PostgresDSN != "" {
		if err := saveBalances(ctx, cfg.Report, runID, balances); err != nil {
			return err
		}
		logger.Info("balances stored", zap.String("table", cfg.Report.Table), zap.Int("rows", len(balances)))
	}

	if *summary {
		ui.PrintSummary(stderr, sum)
	}
	return nil
}

func saveBalances(ctx context.Context, cfg config.ReportConfig, runID string, balances []ledger.Balance) error {
	store, err := pg.Open(cfg.PostgresDSN, pg.WithTable(cfg.Table))
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if err := store.SaveBalances(ctx, runID, balances); err != nil {
		return fmt.Errorf("store balances: %w", err)
	}
	return nil
}
