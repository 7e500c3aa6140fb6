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

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/adapter/cache/memory"
	rediscache "github.com/Abdurahmanit/GroupProject/marketplace-client/internal/adapter/cache/redis"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/adapter/httpapi"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/cli"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/config"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/tracer"
	cacheport "github.com/Abdurahmanit/GroupProject/marketplace-client/internal/port/cache"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/query"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/session"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/usecase"
	"github.com/chzyer/readline"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const metricsNamespace = "marketplace_client"

func main() {
	configPath := flag.String("config", "", "directory containing config.env")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := logger.New(&logger.LoggerConfig{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputFile: cfg.LogOutputFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = appLogger.Sync() }()
	appLogger = appLogger.Named(cfg.ServiceName)
	appLogger.Info("Application starting...",
		zap.String("api_base_url", cfg.APIBaseURL),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.Duration("query_stale_time", cfg.QueryStaleTime),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	tp := tracer.InitTracer(tracer.Config{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRatio:  cfg.TraceSampleRatio,
		Attributes:   map[string]string{"marketplace.api_base_url": cfg.APIBaseURL},
	}, appLogger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	metricsManager := metrics.NewMetricsManager(metricsNamespace)
	if cfg.MetricsPort != "" {
		metricsServer := metrics.NewMetricsServer(cfg.MetricsPort, metricsManager.Registry)
		go func() {
			if err := metrics.StartMetricsServer(metricsServer, appLogger); err != nil {
				appLogger.Error("Metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				appLogger.Error("Error shutting down metrics server", zap.Error(err))
			}
		}()
	}

	store, closeStore, err := newCacheRepository(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize query cache", zap.Error(err))
	}
	defer closeStore()

	queries := query.NewClient(store,
		query.WithStaleTime(cfg.QueryStaleTime),
		query.WithLogger(appLogger),
		query.WithMetrics(metricsManager),
	)

	sess := session.New()
	api, err := httpapi.NewClient(cfg.APIBaseURL, sess,
		httpapi.WithTimeout(cfg.HTTPTimeout),
		httpapi.WithLogger(appLogger),
		httpapi.WithMetrics(metricsManager),
		httpapi.WithTracerProvider(tp),
	)
	if err != nil {
		appLogger.Fatal("Failed to initialize API client", zap.Error(err))
	}

	clients := usecase.NewClients(api, sess, queries, appLogger)
	shell := cli.New(clients, api.BaseURL(), os.Stdout, readPassword, appLogger)

	if args := flag.Args(); len(args) > 0 {
		for _, script := range args {
			if err := shell.ExecuteScript(ctx, script); err != nil {
				appLogger.Error("Script failed", zap.String("script", script), zap.Error(err))
				os.Exit(1)
			}
		}
		return
	}

	if err := runShell(ctx, shell, cfg.HistoryFile); err != nil {
		appLogger.Error("Shell failed", zap.Error(err))
	}
	appLogger.Info("Application shutting down...")
}

func newCacheRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (cacheport.CacheRepository, func(), error) {
	if cfg.CacheBackend != config.CacheBackendRedis {
		return memory.NewMemoryCacheRepository(nil), func() {}, nil
	}
	client, err := rediscache.NewRedisClient(ctx, rediscache.RedisConfig{
		Address:  cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Error("Failed to close Redis client", zap.Error(err))
		}
	}
	return rediscache.NewRedisCacheRepository(client, cfg.CacheKeyPrefix, log), closeFn, nil
}

func runShell(ctx context.Context, shell *cli.CLI, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shell.Prompt(),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("Marketplace client. Use 'help' for the list of commands.")
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				fmt.Println("Use 'exit' or 'quit' to exit the program.")
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if err := shell.ExecuteLine(ctx, line); err != nil {
			if errors.Is(err, cli.ErrExit) {
				return nil
			}
			fmt.Println("Error:", err)
		}
		rl.SetPrompt(shell.Prompt())

		if ctx.Err() != nil {
			return nil
		}
	}
}

func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password required: stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}
