package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/services/adapters"
	"github.com/ternarybob/venari/internal/services/fetcher"
	"github.com/ternarybob/venari/internal/services/llm"
	"github.com/ternarybob/venari/internal/services/orchestrator"
	"github.com/ternarybob/venari/internal/services/ranker"
	"github.com/ternarybob/venari/internal/services/scheduler"
	"github.com/ternarybob/venari/internal/services/telemetry"
	"github.com/ternarybob/venari/internal/storage/badger"
)

var (
	configFile   = flag.String("config", "", "Configuration file path (TOML)")
	configFileC  = flag.String("c", "", "Configuration file path (shorthand)")
	runOnce      = flag.Bool("once", false, "Run one full crawl and exit instead of scheduling")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Venari version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	configPath := *configFile
	if configPath == "" {
		configPath = *configFileC
	}
	// Auto-discover config file if not specified
	if configPath == "" {
		if _, err := os.Stat("venari.toml"); err == nil {
			configPath = "venari.toml"
		}
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		arbor.NewLogger().Fatal().Str("path", configPath).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("version", common.GetFullVersion()).
		Str("config", configPath).
		Str("badger_path", config.Storage.Badger.Path).
		Int("interval_minutes", config.Crawler.IntervalMinutes).
		Msg("Starting venari")

	if err := run(config, logger); err != nil {
		logger.Fatal().Err(err).Msg("Fatal error")
		os.Exit(1)
	}
}

func run(config *common.Config, logger arbor.ILogger) error {
	ctx := context.Background()
	clock := common.RealClock{}

	// Storage
	storage, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer storage.Close()

	// Seed companies and profile from config files
	if err := badger.LoadCompaniesFromFiles(ctx, storage.CompanyStorage(), config.Companies.Dir, logger); err != nil {
		logger.Warn().Err(err).Str("dir", config.Companies.Dir).Msg("Company seed load failed")
	}
	if err := badger.LoadProfileFromFile(ctx, storage.ProfileStorage(), config.Profile.Path, logger); err != nil {
		logger.Warn().Err(err).Str("path", config.Profile.Path).Msg("Profile seed load failed")
	}

	// LLM client. The ai_parsed adapter and the ranker both need it;
	// without one the service still crawls structured endpoints.
	llmClient, err := llm.NewClient(config, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("LLM unavailable, ai_parsed crawling and ranking disabled")
		llmClient = nil
	}
	if llmClient != nil {
		defer llmClient.Close()
	}

	// Fetcher and adapters
	fetchSvc, err := fetcher.NewService(&config.HTTP, clock, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize fetcher: %w", err)
	}
	registry := adapters.NewRegistry(fetchSvc, llmClient, logger)
	normalizer := adapters.NewNormalizer(config.Crawler.MaxDescriptionChars)

	// Telemetry, ranker, orchestrator
	telemetrySvc := telemetry.NewService(storage.CrawlLogStorage(), logger)
	rankerSvc := ranker.NewService(llmClient, storage.JobStorage(), telemetrySvc, &config.Ranker, logger)
	orch := orchestrator.NewService(storage, registry, normalizer, rankerSvc, telemetrySvc, &config.Crawler, config.Ranker.QueueDepth, clock, logger)

	if *runOnce {
		return runOnceAndExit(orch, logger)
	}

	// Scheduler and maintenance
	sched, err := scheduler.NewService(orch, config.Crawler.Interval(), clock, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}
	telemetrySvc.BindSources(orch, sched)

	maintenance := scheduler.NewMaintenance(storage.CrawlLogStorage(), storage.RunValueLogGC, config.Maintenance.StaleLogSweepSchedule, config.Crawler.StaleLogAgeDuration(), logger)
	if err := maintenance.Start(); err != nil {
		return fmt.Errorf("failed to start maintenance: %w", err)
	}

	sched.Start()
	logger.Info().Msg("Venari running, waiting for scheduled crawls")

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Shutting down")

	// Ordered shutdown: stop triggering, drain the active run, stop
	// maintenance, then close storage (deferred)
	sched.Stop()
	orch.Shutdown()
	maintenance.Stop()

	logger.Info().Msg("Shutdown complete")
	return nil
}

// runOnceAndExit triggers a single full crawl and waits for it
func runOnceAndExit(orch *orchestrator.Service, logger arbor.ILogger) error {
	if err := orch.Trigger(models.RunTypeAllCompanies, nil); err != nil {
		return fmt.Errorf("trigger failed: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		orch.Wait()
		close(done)
	}()

	select {
	case <-done:
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Cancelling run")
		if err := orch.Cancel(); err != nil {
			logger.Warn().Err(err).Msg("Cancel failed")
		}
		<-done
	}

	logger.Info().Msg("Run complete")
	return nil
}
