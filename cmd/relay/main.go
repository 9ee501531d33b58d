package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deckforge/relay/clients/a2aClient"
	"github.com/deckforge/relay/server"
	"github.com/deckforge/relay/shared/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// Environment variable names
const (
	EnvDatabaseURL = "DECKRELAY_DATABASE_URL"
	EnvConfigYAML  = "DECKRELAY_CONFIG_YAML"
)

const defaultConfigYAML = "config.yaml"

func main() {
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := loggerConfig.Build()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	configDB := flag.String("database-url", "", "PostgreSQL connection string for configuration")
	configYAML := flag.String("config-yaml", "", "Path to YAML configuration file")
	listenAddr := flag.String("listen", "", "Address to listen on, overrides the configured one")
	flag.Parse()

	if *configDB != "" && *configYAML != "" {
		logger.Fatal("Cannot specify both database-url and config-yaml")
	}

	dbURL := os.Getenv(EnvDatabaseURL)
	if *configDB != "" {
		dbURL = *configDB
	}
	yamlPath := os.Getenv(EnvConfigYAML)
	if *configYAML != "" {
		yamlPath = *configYAML
	}

	baseCfg, yamlCfg, err := loadConfig(dbURL, yamlPath, logger)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	defer baseCfg.Close()
	cfg := config.WithEnvOverrides(baseCfg, logger)

	applyLogLevel(cfg, loggerConfig.Level, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	errChan, err := server.Start(gctx, logger, cfg, server.WithListenAddr(*listenAddr))
	if err != nil {
		logger.Fatal("Server failed to start", zap.Error(err))
	}
	g.Go(func() error {
		for err := range errChan {
			if err != nil {
				return fmt.Errorf("server listener: %w", err)
			}
		}
		return nil
	})

	if yamlCfg != nil {
		g.Go(func() error {
			err := yamlCfg.Watch(gctx, func() { applyLogLevel(cfg, loggerConfig.Level, logger) })
			if err != nil {
				logger.Warn("Config hot reload disabled", zap.Error(err))
			}
			return nil
		})
	}

	for _, kind := range config.AgentKinds {
		kind := kind
		g.Go(func() error {
			probeAgent(gctx, cfg, kind, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Relay stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Relay stopped")
}

// loadConfig picks the configuration source: database first, then YAML, then the
// default YAML file when it exists, and finally an in-memory config fed by the environment.
// yamlCfg is non-nil when the source can be watched for changes.
func loadConfig(dbURL, yamlPath string, logger *zap.Logger) (cfg config.IConfig, yamlCfg *config.YamlConfig, err error) {
	switch {
	case dbURL != "":
		logger.Info("Loading configuration from database")
		dbCfg, err := config.NewDatabaseConfig(dbURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("create database config: %w", err)
		}
		return dbCfg, nil, nil
	case yamlPath == "":
		if _, err := os.Stat(defaultConfigYAML); err != nil {
			logger.Info("No configuration file, using defaults and environment")
			return config.NewInternalConfig(), nil, nil
		}
		yamlPath = defaultConfigYAML
	}

	logger.Info("Loading configuration from YAML file", zap.String("path", yamlPath))
	yamlCfg, err = config.NewYamlConfig(yamlPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create YAML config: %w", err)
	}
	return yamlCfg, yamlCfg, nil
}

// applyLogLevel sets level from the configuration, keeping the current level on error.
func applyLogLevel(cfg config.IConfig, level zap.AtomicLevel, logger *zap.Logger) {
	logLevel, err := cfg.LogLevel()
	if err != nil {
		logger.Warn("Failed to get log level from config, keeping current", zap.Error(err))
		return
	}
	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(logLevel)); err != nil {
		logger.Warn("Invalid log level in config, keeping current", zap.String("level", logLevel), zap.Error(err))
		return
	}
	if parsed != level.Level() {
		logger.Info("Updating log level", zap.String("level", logLevel))
		level.SetLevel(parsed)
	}
}

// probeAgent waits until the agent serves its card and logs the result. Generation
// requests do not depend on it; it only reports readiness early.
func probeAgent(ctx context.Context, cfg config.IConfig, kind config.AgentKind, logger *zap.Logger) {
	logger = logger.With(zap.String("agent", string(kind)))
	agentURL, err := cfg.AgentURL(kind)
	if err != nil || agentURL == "" {
		logger.Warn("Agent URL not configured", zap.Error(err))
		return
	}
	b := a2aClient.NewProbeBackOff(500*time.Millisecond, 30*time.Second, 0)
	info, err := a2aClient.ProbeAgent(ctx, agentURL, nil, b, logger)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("Agent probe gave up", zap.String("url", agentURL), zap.Error(err))
		}
		return
	}
	logger.Info("Agent ready",
		zap.String("url", agentURL),
		zap.String("name", info.Name),
		zap.String("version", info.Version),
		zap.Bool("streaming", info.Capabilities.Streaming),
	)
}
