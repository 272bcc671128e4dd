package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sawpanic/tradegate/internal/config"
	"github.com/sawpanic/tradegate/internal/data"
	"github.com/sawpanic/tradegate/internal/domain"
	httpapi "github.com/sawpanic/tradegate/internal/interfaces/http"
	"github.com/sawpanic/tradegate/internal/metrics"
	"github.com/sawpanic/tradegate/internal/notify"
	"github.com/sawpanic/tradegate/internal/permission"
	"github.com/sawpanic/tradegate/internal/persistence"
	"github.com/sawpanic/tradegate/internal/scheduler"
)

const (
	appName = "TradeGate"
	version = "v1.0.0"
)

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     "tradegate",
		Short:   "Market permission engine for crypto assets",
		Version: version,
		Long: `TradeGate derives a single permission state per asset from four
independent market readings (regime, flow, risk, context). It answers
"is trading permitted right now", never "which direction to trade".`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the evaluation loop and API server",
		RunE:  runService,
	}

	evaluateCmd := &cobra.Command{
		Use:   "evaluate <snapshot.json>",
		Short: "Evaluate one snapshot file and print the assessment",
		Long:  "Reads a MarketSnapshot from a JSON file, runs the full pipeline once, and prints the assessment. Useful for replaying recorded cycles.",
		Args:  cobra.ExactArgs(1),
		RunE:  runEvaluate,
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Probe a running instance",
		RunE:  runHealth,
	}
	healthCmd.Flags().String("addr", "http://localhost:8080", "base URL of the running instance")

	rootCmd.AddCommand(runCmd, evaluateCmd, healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runService(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)
	log.Info().Str("version", version).Int("assets", len(cfg.Scheduler.Assets)).Msg(appName + " starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := permission.NewEngine(cfg.Engine, &cfg.Gates)
	if err != nil {
		return err
	}

	var store persistence.AssessmentStore
	var audit persistence.TransitionStore
	if cfg.Storage.PostgresDSN != "" {
		pg, err := persistence.OpenPostgres(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		store, audit = pg, pg
		log.Info().Msg("Postgres persistence enabled")
	} else {
		mem := persistence.NewMemoryStore()
		store, audit = mem, mem
		log.Warn().Msg("No postgres_dsn configured, assessments are held in memory only")
	}

	var cache *data.SnapshotCache
	if cfg.Storage.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr, DB: cfg.Storage.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		defer client.Close()
		cache = data.NewSnapshotCache(client, cfg.Facade.CacheTTL)
		log.Info().Str("addr", cfg.Storage.RedisAddr).Msg("Snapshot cache enabled")
	}

	whaleStream := data.NewWhaleStream(cfg.Providers.WhaleStream)
	facade := data.NewFacade(
		cfg.Facade,
		data.NewDerivsClient(cfg.Providers.DerivsExchange, cfg.Providers.Derivs),
		data.NewOptionsClient(cfg.Providers.Options),
		whaleStream,
		cache,
	)

	registry := metrics.NewRegistry()
	notifier := notify.NewRateLimited(notify.NewLogNotifier(), cfg.Notify.PerAssetPerHour, cfg.Notify.Burst)
	protect := func(_ context.Context, a *permission.Assessment) {
		log.Warn().Str("asset", a.Asset).Str("decided_by", a.DecidedBy).Msg("Auto-protect: access revoked, flatten exposure")
	}
	sched := scheduler.New(cfg.Scheduler, facade, engine, store, audit, notifier, registry, protect)
	server := httpapi.NewServer(cfg.HTTP, store, registry)

	errCh := make(chan error, 3)
	go func() { errCh <- whaleStream.Run(ctx, cfg.Scheduler.Assets) }()
	go func() { errCh <- sched.Run(ctx) }()
	go func() { errCh <- server.Start(ctx) }()

	err = <-errCh
	stop()
	if err != nil && ctx.Err() == nil {
		return err
	}
	log.Info().Msg(appName + " stopped")
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap domain.MarketSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	engine, err := permission.NewEngine(cfg.Engine, &cfg.Gates)
	if err != nil {
		return err
	}
	assessment, err := engine.Evaluate(&snap)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(assessment, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runHealth(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(addr + "/health")
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe: instance returned %d", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "status: %v, uptime: %v\n", body["status"], body["uptime"])
	return nil
}
