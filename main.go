package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"git.skobk.in/skobkin/telegram-relay-bot/bot"
	"git.skobk.in/skobkin/telegram-relay-bot/config"
	"git.skobk.in/skobkin/telegram-relay-bot/dialog"
	"git.skobk.in/skobkin/telegram-relay-bot/relay"
	"git.skobk.in/skobkin/telegram-relay-bot/server"
	"git.skobk.in/skobkin/telegram-relay-bot/storage"
)

func main() {
	// Parse command-line flags
	verbose := flag.Bool("v", false, "Enable verbose logging (LevelInfo)")
	veryVerbose := flag.Bool("vv", false, "Enable very verbose logging (LevelDebug)")
	configPath := flag.String("config", "config.json", "Path to the configuration file")
	flag.Parse()

	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		setLogLevel(*verbose, *veryVerbose, "")
		slog.Error("main: Failed to load configuration", "error", err)
		os.Exit(1)
	}

	setLogLevel(*verbose, *veryVerbose, cfg.Log.File)

	if envErr != nil {
		slog.Debug("main: No .env file loaded", "error", envErr)
	}
	slog.Debug("main: Configuration loaded",
		"config", *configPath,
		"database_driver", cfg.Database.Driver,
		"whitelist_size", len(cfg.WhitelistIDs),
		"redis", cfg.Redis.Addr != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := storage.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		slog.Error("main: Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Debug("main: Storage initialized successfully")

	// Dialog sessions
	var (
		sessions    dialog.SessionStore
		memSessions *dialog.MemoryStore
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			slog.Error("main: Failed to connect to Redis", "error", err, "addr", cfg.Redis.Addr)
			os.Exit(1)
		}
		sessions = dialog.NewRedisStore(client, cfg.Dialog.Timeout)
	} else {
		memSessions = dialog.NewMemoryStore(cfg.Dialog.Timeout)
		sessions = memSessions
	}

	// Initialize bot API
	api, err := telego.NewBot(cfg.BotToken, telego.WithLogger(bot.NewLogger(cfg.BotToken)))
	if err != nil {
		slog.Error("main: Failed to initialize bot API", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []relay.Option{
		relay.WithLogger(slog.Default()),
		relay.WithMetrics(relay.NewMetrics(registry)),
		relay.WithParallelism(cfg.Relay.Parallelism),
	}
	if cfg.Relay.CopyToDestinationTopic {
		opts = append(opts, relay.WithDestinationTopicOnCopy())
	}
	dispatcher := relay.NewDispatcher(store, bot.NewTransport(api), opts...)

	// Maintenance jobs
	scheduler := cron.New()
	scheduleMaintenance(scheduler, store, memSessions)
	scheduler.Start()
	defer scheduler.Stop()

	// Health and metrics endpoint
	if cfg.HTTP.Addr != "" {
		srv := server.New(cfg.HTTP.Addr, server.NewRouter(store, registry))
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("main: Failed to shut down HTTP server", "error", err)
			}
		}()
	}

	b := bot.New(api, store, dispatcher, dialog.New(sessions, store), cfg)

	// Start bot
	slog.Info("main: Starting bot...")
	if err := b.Run(ctx); err != nil {
		slog.Error("main: Bot stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
	slog.Info("main: Bot stopped")
}

// scheduleMaintenance registers periodic jobs: dialog session cleanup and a subscription count report
func scheduleMaintenance(c *cron.Cron, store *storage.Storage, sessions *dialog.MemoryStore) {
	if sessions != nil {
		if _, err := c.AddFunc("@every 1m", func() { sessions.Sweep() }); err != nil {
			slog.Error("main: Failed to schedule session cleanup", "error", err)
		}
	}

	_, err := c.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		subs, err := store.ListSubscriptions(ctx)
		if err != nil {
			slog.Warn("main: Failed to collect subscription stats", "error", err)
			return
		}

		owners := make(map[string]struct{})
		sources := make(map[string]struct{})
		for _, sub := range subs {
			owners[sub.UserIDCreated] = struct{}{}
			sources[sub.SourceID] = struct{}{}
		}

		slog.Info("main: Subscription stats",
			"subscriptions", len(subs),
			"owners", len(owners),
			"sources", len(sources),
		)
	})
	if err != nil {
		slog.Error("main: Failed to schedule stats report", "error", err)
	}
}

// setLogLevel configures the logging level based on the provided flags
func setLogLevel(verbose, veryVerbose bool, logFile string) {
	// Determine logging level based on flags
	logLevel := slog.LevelWarn // Default level
	if veryVerbose {
		logLevel = slog.LevelDebug
	} else if verbose {
		logLevel = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if logFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
		})
	}

	// Configure structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Debug("main: Log level set to", "level", logLevel.String())
}
