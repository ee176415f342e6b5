package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"harmony/internal/commands"
	"harmony/internal/database"
	"harmony/internal/discord"
	"harmony/internal/events"
	"harmony/internal/guildconfig"
	"harmony/internal/music"
	"harmony/internal/player"
	"harmony/internal/subsonic"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "harmony",
		Usage: "Discord music bot streaming from a Subsonic server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "Load environment variables from this file instead of .env",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("env-file"))
		},
	}
	return app.Run(context.Background(), os.Args)
}

func serve(ctx context.Context, envFile string) error {
	// 1. Load configuration
	cfg, err := discord.Load(envFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := discord.NewLogger(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// 2. Guild configuration storage
	backend, closeBackend, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()
	store := guildconfig.NewStore(backend, cfg.DefaultPrefix, logger)

	// 3. Subsonic
	sub := subsonic.NewClient(cfg.SubsonicURL, cfg.SubsonicUser, cfg.SubsonicPassword, logger)
	if err := pingSubsonic(ctx, sub, logger); err != nil {
		logger.Warn("Subsonic ping failed, playback may not work", zap.Error(err))
	} else {
		logger.Info("Subsonic server connected", zap.String("url", cfg.SubsonicURL))
	}

	// 4. Discord session and playback
	bot, err := discord.New(cfg, logger)
	if err != nil {
		return err
	}

	manager := player.NewManager(player.Deps{
		Dial:    player.DiscordDialer(bot.Session),
		Library: sub,
		Encoder: player.NewFFmpeg(player.EncodeOptions{
			Path:             cfg.FFmpegPath,
			Bitrate:          cfg.FFmpegBitrate,
			CompressionLevel: cfg.CompressionLevel,
		}),
		Announcer: events.NewAnnouncer(bot.Session, logger),
	}, logger)

	dispatcher := music.NewDispatcher(
		manager,
		store,
		commands.NewDirectory(bot.Session, logger),
		music.Links{Invite: cfg.InviteURL, Support: cfg.SupportURL},
		logger,
	)
	router := commands.NewRouter(music.NewService(store, dispatcher, logger), store, commands.Options{
		DefaultPrefix: cfg.DefaultPrefix,
		CommandRate:   cfg.CommandRate,
		CommandBurst:  cfg.CommandBurst,
	}, logger)
	router.Register(bot.Session)

	// 5. Start
	if err := bot.Start(); err != nil {
		return err
	}
	defer func() {
		if err := bot.Stop(); err != nil {
			logger.Warn("Error closing Discord session", zap.Error(err))
		}
	}()

	// 6. Wait for shutdown signal
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info("Bot is running. Press Ctrl+C to exit.")
	<-ctx.Done()

	logger.Info("Gracefully shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	manager.Shutdown(shutdownCtx)
	return nil
}

// openBackend opens the configured guild store backend and returns its closer.
func openBackend(cfg *discord.Config, logger *zap.Logger) (guildconfig.Backend, func(), error) {
	switch cfg.StoreBackend {
	case discord.BackendBadger:
		kv, err := database.OpenKV(cfg.BadgerPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening badger store: %w", err)
		}
		return kv, func() {
			if err := kv.Close(); err != nil {
				logger.Warn("Error closing badger store", zap.Error(err))
			}
		}, nil
	default:
		db, err := database.New(cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		return db, func() {
			if err := db.Close(); err != nil {
				logger.Warn("Error closing database", zap.Error(err))
			}
		}, nil
	}
}

// pingSubsonic retries the ping while the server may still be starting.
func pingSubsonic(ctx context.Context, c *subsonic.Client, logger *zap.Logger) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(500*time.Millisecond),
		backoff.WithMaxInterval(5*time.Second),
	), 4)

	return backoff.RetryNotify(func() error {
		return c.Ping(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.Warn("Subsonic ping failed, retrying", zap.Error(err), zap.Duration("next", next))
	})
}
