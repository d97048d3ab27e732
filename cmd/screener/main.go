package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yuhaojin/astock-screener/internal/cache"
	"github.com/yuhaojin/astock-screener/internal/config"
	"github.com/yuhaojin/astock-screener/internal/fetch"
	httpapi "github.com/yuhaojin/astock-screener/internal/interfaces/http"
	"github.com/yuhaojin/astock-screener/internal/interfaces/http/handlers"
	"github.com/yuhaojin/astock-screener/internal/provider"
	"github.com/yuhaojin/astock-screener/internal/ratelimit"
	"github.com/yuhaojin/astock-screener/internal/screen"
	"github.com/yuhaojin/astock-screener/internal/session"
)

const (
	appName = "astock-screener"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     "screener",
		Short:   "A股8大条件筛选引擎",
		Version: version,
		Long: `Screens the A-share universe against eight fundamental and
corporate-action criteria (growth, dividends, ownership, buybacks,
leverage) through a cached, rate-limited data layer.`,
	}
	rootCmd.PersistentFlags().String("config", "config/screener.yaml", "Path to YAML config")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the screening API server",
		RunE:  runServe,
	}

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one screening pass and print the funnel report",
		RunE:  runScan,
	}
	scanCmd.Flags().IntSlice("criteria", nil, "Criterion ids to apply (1-8, default all)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("%s %s\n", appName, version)
		},
	}

	rootCmd.AddCommand(serveCmd, scanCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func loadConfig(cmd *cobra.Command) *config.Config {
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config not loaded, using defaults")
		return config.Default()
	}
	return cfg
}

// buildStack wires cache, limiter, provider and fetcher from config.
func buildStack(cfg *config.Config) (*fetch.Fetcher, error) {
	store, err := cache.New(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}
	limiter := ratelimit.NewWindow(cfg.RateLimit.MaxCalls, cfg.Window())
	upstream := provider.NewEastmoney(
		cfg.Provider.RPS,
		cfg.Provider.Burst,
		time.Duration(cfg.Provider.TimeoutMS)*time.Millisecond,
		cfg.Provider.UserAgent,
	)

	ttls := make(map[provider.Dataset]time.Duration, len(cfg.TTLHours))
	for name, hours := range cfg.TTLHours {
		ttls[provider.Dataset(name)] = time.Duration(hours) * time.Hour
	}

	return fetch.New(store, limiter, upstream, fetch.Options{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		Delay:        cfg.RetryDelay(),
		TTLs:         ttls,
		SnapshotPath: cfg.SnapshotPath,
	}), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig(cmd)
	fetcher, err := buildStack(cfg)
	if err != nil {
		return err
	}

	coord := session.New(func(ctx context.Context, criteria []screen.CriterionID, progress screen.ProgressFunc) (*screen.Report, error) {
		pipeline := screen.NewPipeline(fetcher, screen.Options{
			MaxWorkers:    cfg.Pipeline.MaxWorkers,
			ProgressEvery: cfg.Pipeline.ProgressInterval,
			Progress:      progress,
		})
		return pipeline.Run(ctx, criteria)
	})

	server := httpapi.NewServer(cfg.HTTP, handlers.New(coord, fetcher))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("shutdown error")
		}
	}()

	return server.Start()
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig(cmd)
	fetcher, err := buildStack(cfg)
	if err != nil {
		return err
	}

	ids, _ := cmd.Flags().GetIntSlice("criteria")
	criteria := make([]screen.CriterionID, 0, len(ids))
	for _, id := range ids {
		criteria = append(criteria, screen.CriterionID(id))
	}

	pipeline := screen.NewPipeline(fetcher, screen.Options{
		MaxWorkers:    cfg.Pipeline.MaxWorkers,
		ProgressEvery: cfg.Pipeline.ProgressInterval,
	})
	report, err := pipeline.Run(cmd.Context(), criteria)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
