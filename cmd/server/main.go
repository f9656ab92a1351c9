/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the billing engine. Handles configuration,
  dependency injection, and graceful shutdown.

SUBCOMMANDS:
  serve      Run the HTTP API server (with the monthly cron scheduler)
  generate   One-shot generation run for a given month, printed as JSON

CONFIGURATION:
  Flags override environment variables; a .env file is loaded when present.
    --port / PORT            HTTP server port (default: 8080)
    --db / DATABASE_PATH     SQLite database path (default: billing.db)
                             Use ":memory:" for an in-memory database
    --log-level / LOG_LEVEL  trace|debug|info|warn|error (default: info)
    --log-format             console|json (default: console)
    --cron                   generation schedule (default: "0 9 1 * *")
    --no-scheduler           disable the cron scheduler

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server serve --db=./data/billing.db

  # Generate October 2026 drafts without saving
  ./server generate --year=2026 --month=10

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Monthly cron generation
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/warp/billing-engine/api"
	"github.com/warp/billing-engine/logx"
	"github.com/warp/billing-engine/store/sqlite"
)

var (
	flagPort        int
	flagDB          string
	flagLogLevel    string
	flagLogFormat   string
	flagCron        string
	flagNoScheduler bool
	flagYear        int
	flagMonth       int
	flagSave        bool
)

func main() {
	// Missing .env is fine; environment and flags still apply.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "billing-engine",
		Short:        "Recurring maintenance-contract billing engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagDB, "db", envStr("DATABASE_PATH", "billing.db"), "SQLite database path")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", envStr("LOG_LEVEL", "info"), "log level")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", envStr("LOG_FORMAT", "console"), "log format (console|json)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&flagPort, "port", envInt("PORT", 8080), "HTTP server port")
	serveCmd.Flags().StringVar(&flagCron, "cron", envStr("GENERATION_CRON", "0 9 1 * *"), "generation schedule (cron spec)")
	serveCmd.Flags().BoolVar(&flagNoScheduler, "no-scheduler", false, "disable the monthly generation scheduler")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one month's draft billings",
		RunE:  runGenerate,
	}
	now := time.Now()
	generateCmd.Flags().IntVar(&flagYear, "year", now.Year(), "billing year")
	generateCmd.Flags().IntVar(&flagMonth, "month", int(now.Month()), "billing month (1-12)")
	generateCmd.Flags().BoolVar(&flagSave, "save", false, "persist the generated drafts")

	root.AddCommand(serveCmd, generateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	logger, err := logx.Setup(logx.Config{Level: flagLogLevel, Format: flagLogFormat})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	store, err := sqlite.New(flagDB)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)
	router := api.NewRouter(handler)

	var sched *api.Scheduler
	if !flagNoScheduler {
		sched, err = api.NewScheduler(handler, flagCron, logger)
		if err != nil {
			return fmt.Errorf("configure scheduler: %w", err)
		}
		sched.Start()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", flagPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", flagPort).Str("db", flagDB).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	logger, err := logx.Setup(logx.Config{Level: flagLogLevel, Format: flagLogFormat})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	store, err := sqlite.New(flagDB)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)
	ctx := cmd.Context()

	drafts, report, err := handler.Generator.GenerateMonth(ctx, flagYear, flagMonth)
	if err != nil {
		return err
	}
	if flagSave {
		saveReport, err := handler.Generator.SaveBillings(ctx, drafts)
		if err != nil {
			return err
		}
		report.SkippedDuplicate += saveReport.SkippedDuplicate
		report.Failed = append(report.Failed, saveReport.Failed...)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
