// Package main is the entry point for the cigarro stock server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vyrodovalexey/cigarro-stock/internal/auth"
	"github.com/vyrodovalexey/cigarro-stock/internal/config"
	"github.com/vyrodovalexey/cigarro-stock/internal/handler"
	"github.com/vyrodovalexey/cigarro-stock/internal/seed"
	"github.com/vyrodovalexey/cigarro-stock/internal/server"
	"github.com/vyrodovalexey/cigarro-stock/internal/service"
	"github.com/vyrodovalexey/cigarro-stock/internal/store"
)

const startupTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to load configuration", zap.Error(err))
		return 1
	}

	logger, closeLog, err := initLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to initialize logger", zap.Error(err))
		return 1
	}
	defer closeLog()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.Int("probe_port", cfg.ProbePort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("store_driver", cfg.StoreDriver),
		zap.String("auth_mode", cfg.AuthModeOrDefault()),
		zap.Bool("tls_enabled", cfg.TLSEnabled),
	)

	authenticator, err := createAuthenticator(cfg, logger)
	if err != nil {
		logger.Error("failed to create authenticator", zap.Error(err))
		return 1
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelStart()

	repo, err := store.Open(startCtx, store.Options{
		Driver:          cfg.StoreDriver,
		SQLiteDSN:       cfg.SQLiteDSN,
		MongoURI:        cfg.MongoURI,
		MongoDatabase:   cfg.MongoDatabase,
		MongoCollection: cfg.MongoCollection,
	})
	if err != nil {
		logger.Error("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
		return 1
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	hub := handler.NewEventHub(logger)
	svc := service.New(repo, hub, logger)

	if cfg.SeedFile != "" {
		if err := applySeed(startCtx, cfg.SeedFile, svc, logger); err != nil {
			logger.Error("failed to seed catalog", zap.Error(err))
			return 1
		}
	}

	srv := server.New(cfg, logger, svc, hub, authenticator)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

func applySeed(ctx context.Context, path string, creator seed.Creator, logger *zap.Logger) error {
	items, err := seed.Load(path)
	if err != nil {
		return err
	}
	_, err = seed.Apply(ctx, creator, items, logger)
	return err
}

// initLogger builds the JSON logger. When logFile is set, entries are also
// written to a rotated file. The returned func flushes and closes outputs.
func initLogger(level, logFile string) (*zap.Logger, func(), error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	if logFile == "" {
		logger, err := zapConfig.Build()
		if err != nil {
			return nil, nil, err
		}
		return logger, func() { _ = logger.Sync() }, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zapConfig.EncoderConfig),
		zapcore.AddSync(rotator),
		zapConfig.Level,
	)

	logger, err := zapConfig.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
	if err != nil {
		_ = rotator.Close()
		return nil, nil, err
	}

	return logger, func() {
		_ = logger.Sync()
		_ = rotator.Close()
	}, nil
}

// createAuthenticator creates an authenticator based on the config auth mode.
// A nil authenticator disables authentication.
func createAuthenticator(
	cfg *config.Config,
	logger *zap.Logger,
) (auth.Authenticator, error) {
	switch cfg.AuthModeOrDefault() {
	case "none":
		logger.Info("authentication disabled")
		return nil, nil
	case "mtls":
		logger.Info("authentication mode: mTLS")
		return auth.NewMTLSAuthenticator(), nil
	case "basic":
		logger.Info("authentication mode: basic auth")
		ba, err := auth.NewBasicAuthenticator(cfg.BasicAuthUsers)
		if err != nil {
			return nil, err
		}
		return ba, nil
	case "apikey":
		logger.Info("authentication mode: API key")
		ak, err := auth.NewAPIKeyAuthenticator(cfg.APIKeys)
		if err != nil {
			return nil, err
		}
		return ak, nil
	case "jwt":
		logger.Info("authentication mode: JWT", zap.String("issuer", cfg.JWTIssuer))
		ja, err := auth.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return nil, err
		}
		return ja, nil
	case "multi":
		logger.Info("authentication mode: multi")
		return createMultiAuthenticator(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown auth mode: %s", cfg.AuthMode)
	}
}

// createMultiAuthenticator creates a multi-method authenticator
// from the available auth configurations.
func createMultiAuthenticator(
	cfg *config.Config,
	logger *zap.Logger,
) (auth.Authenticator, error) {
	var authenticators []auth.Authenticator

	if cfg.ClientCertRequired() {
		authenticators = append(authenticators, auth.NewMTLSAuthenticator())
		logger.Info("multi-auth: mTLS enabled")
	}

	if cfg.BasicAuthUsers != "" {
		ba, err := auth.NewBasicAuthenticator(cfg.BasicAuthUsers)
		if err != nil {
			return nil, fmt.Errorf("creating basic authenticator: %w", err)
		}
		authenticators = append(authenticators, ba)
		logger.Info("multi-auth: basic auth enabled")
	}

	if cfg.APIKeys != "" {
		ak, err := auth.NewAPIKeyAuthenticator(cfg.APIKeys)
		if err != nil {
			return nil, fmt.Errorf("creating API key authenticator: %w", err)
		}
		authenticators = append(authenticators, ak)
		logger.Info("multi-auth: API key auth enabled")
	}

	if cfg.JWTSecret != "" {
		ja, err := auth.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return nil, fmt.Errorf("creating JWT authenticator: %w", err)
		}
		authenticators = append(authenticators, ja)
		logger.Info("multi-auth: JWT enabled")
	}

	if len(authenticators) == 0 {
		return nil, fmt.Errorf("multi auth mode requires at least one authenticator")
	}

	return auth.NewMultiAuthenticator(authenticators...), nil
}
