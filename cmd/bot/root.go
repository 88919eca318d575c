package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vitos/momentum_pulse/internal/config"
	"github.com/vitos/momentum_pulse/internal/domain"
	"github.com/vitos/momentum_pulse/internal/infrastructure/broker"
	"github.com/vitos/momentum_pulse/internal/infrastructure/feed"
	"github.com/vitos/momentum_pulse/internal/infrastructure/logger"
	"github.com/vitos/momentum_pulse/internal/infrastructure/metrics"
	"github.com/vitos/momentum_pulse/internal/infrastructure/storage"
	"github.com/vitos/momentum_pulse/internal/usecase"
	"github.com/vitos/momentum_pulse/internal/web"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type rootOptions struct {
	configPath string
	envFile    string
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Momentum Pulse option trading bot with trailing stop losses",
		Long: `bot accepts TradingView webhook signals, places CE/PE option orders
through AliceBlue and closes them when a trailing stop loss is hit.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "config/config.yaml", "path to the YAML config file")
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "simulate orders without calling the broker (same as DRY_RUN=true)")
	return cmd
}

func run(ctx context.Context, opts *rootOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.dryRun {
		os.Setenv("DRY_RUN", "true")
	}

	// 1. Load Config
	cfg, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		return err
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		return err
	}
	defer log.Sync()

	calendar, err := cfg.Calendar()
	if err != nil {
		return err
	}

	// 3. Init Storage
	var (
		journal domain.TradeRepository
		store   *storage.SQLiteStore
	)
	if cfg.Storage.JournalPath != "" {
		store, err = storage.NewSQLiteStore(cfg.Storage.JournalPath)
		if err != nil {
			log.Error("Failed to init sqlite", zap.Error(err))
			return err
		}
		journal = store
	}

	// 4. Init Broker
	alice := broker.NewAliceBlueAdapter(broker.Credentials{
		AppID:       cfg.Broker.AppID,
		APIKey:      cfg.Broker.APIKey,
		AccessToken: cfg.Broker.AccessToken,
		UserID:      cfg.Broker.UserID,
	}, cfg.Broker.BaseURL, cfg.BrokerTimeout(), log)

	// 5. Init Services
	collector := metrics.NewCollector()
	engine := usecase.NewTrailingStopEngine(log)
	coord := usecase.NewTradeCoordinator(alice, engine, calendar, journal, collector, log, cfg.Trading.DryRun)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Price Sources
	var poller *usecase.PositionPoller
	if !cfg.Trading.DryRun {
		poller = usecase.NewPositionPoller(alice, coord, cfg.PollInterval(), log)
		poller.Start(ctx)
	}

	var ticks *feed.TickFeed
	if cfg.Feed.WSURL != "" {
		ticks = feed.NewTickFeed(cfg.Feed.WSURL, log)
		ticks.OnPriceUpdate(func(symbol string, price float64) {
			if _, _, err := coord.OnPriceUpdate(ctx, symbol, price); err != nil {
				log.Error("Error processing tick", zap.String("symbol", symbol), zap.Error(err))
			}
		})
		go usecase.NewFeedSync(ticks, coord, log).Run(ctx, cfg.SubscribeInterval())
	}

	// 7. Start Server
	server := web.NewServer(cfg.Server.Port, coord, collector.Handler(), log)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	log.Info("Bot started",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("dry_run", cfg.Trading.DryRun),
		zap.Bool("journal", journal != nil),
		zap.Bool("ws_feed", ticks != nil))

	// 8. Wait for Shutdown
	select {
	case <-ctx.Done():
	case err = <-serverErr:
		if err != nil {
			log.Error("Server failed", zap.Error(err))
		}
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if poller != nil {
		poller.Stop()
	}
	err = multierr.Append(err, server.Shutdown(shutdownCtx))
	if ticks != nil {
		err = multierr.Append(err, ticks.Close())
	}
	if store != nil {
		err = multierr.Append(err, store.Close())
	}
	if err != nil {
		log.Error("Shutdown finished with errors", zap.Error(err))
	}
	return err
}
