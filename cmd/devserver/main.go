package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/config"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/fakebackend"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"go.uber.org/zap"
)

const serviceName = "marketplace-devserver"

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
	appLogger = appLogger.Named(serviceName)
	appLogger.Info("Application starting...",
		zap.Int("port", cfg.DevServer.Port),
		zap.Bool("nats_enabled", cfg.DevServer.NATSURL != ""),
		zap.Bool("minio_enabled", cfg.DevServer.MinIO.Endpoint != ""),
		zap.Bool("mongo_enabled", cfg.DevServer.Mongo.URI != ""),
		zap.Bool("smtp_enabled", cfg.DevServer.SMTP.Host != ""),
	)

	opts := fakebackend.Options{
		JWTSecret:      cfg.DevServer.JWTSecret,
		TokenTTL:       cfg.DevServer.TokenTTL,
		MaxUploadBytes: cfg.DevServer.MaxUploadMB << 20,
		Logger:         appLogger,
	}

	if cfg.DevServer.NATSURL != "" {
		publisher, err := fakebackend.NewNATSPublisher(cfg.DevServer.NATSURL, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize NATS publisher", zap.Error(err))
		}
		defer publisher.Close()
		opts.Events = publisher
	} else {
		appLogger.Info("NATS_URL not set, events are not published.")
	}

	if m := cfg.DevServer.MinIO; m.Endpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		photos, err := fakebackend.NewMinIOPhotoStore(ctx, m.Endpoint, m.AccessKey, m.SecretKey, m.Bucket, m.UseSSL, appLogger)
		cancel()
		if err != nil {
			appLogger.Fatal("Failed to initialize MinIO photo storage", zap.Error(err))
		}
		opts.Photos = photos
	} else {
		appLogger.Info("MINIO_ENDPOINT not set, photos are kept in memory.")
	}

	if smtp := cfg.DevServer.SMTP; smtp.Host != "" {
		opts.Mailer = fakebackend.NewSMTPMailer(fakebackend.SMTPConfig{
			Host:     smtp.Host,
			Port:     smtp.Port,
			Username: smtp.Username,
			Password: smtp.Password,
			From:     smtp.From,
		}, appLogger)
	} else {
		appLogger.Info("SMTP_HOST not set, notification emails are disabled.")
	}

	var repo fakebackend.Repository = fakebackend.NewStore()
	if m := cfg.DevServer.Mongo; m.URI != "" {
		mongoStore, err := fakebackend.NewMongoStore(context.Background(), m.URI, m.Database, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize MongoDB repository", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mongoStore.Close(ctx); err != nil {
				appLogger.Error("Failed to disconnect from MongoDB", zap.Error(err))
			}
		}()
		repo = mongoStore
	} else {
		appLogger.Info("MONGO_URI not set, users and listings are kept in memory.")
	}

	server := fakebackend.New(repo, opts)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.DevServer.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Application shutting down...")
}
