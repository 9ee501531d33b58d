package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deckforge/relay/server/extra"
	"github.com/deckforge/relay/server/transport"
	"github.com/deckforge/relay/shared/config"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// Start serves the relay endpoints and /status until ctx is cancelled.
// The returned channel carries a listener failure, if any, and is closed once the
// listener has stopped, so receiving from it waits for shutdown to finish.
func Start(ctx context.Context, logger *zap.Logger, cfg config.IConfig, options ...ServerOption) (
	<-chan error,
	error,
) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	listenAddr, err := cfg.ListenAddr()
	if err != nil {
		return nil, fmt.Errorf("failed to get listen address: %w", err)
	}

	builder := &ServerBuilder{
		logger:      logger,
		cfg:         cfg,
		listenAddr:  listenAddr,
		transport:   transport.New(logger, cfg),
		mux:         http.NewServeMux(),
		statusRoute: true,
	}

	for _, option := range options {
		if err := option(builder); err != nil {
			return nil, fmt.Errorf("failed to apply server option: %w", err)
		}
	}

	builder.transport.RegisterRelayHandlers(builder.mux, builder.generationHandlers())
	if builder.statusRoute {
		logger.Info("Registering status handler", zap.String("path", transport.STATUS_PATH))
		builder.mux.HandleFunc(transport.STATUS_PATH, extra.StatusHandler(cfg, builder.httpClient, logger))
	}

	serverInstance, listenerErrChan, err := transport.StartHTTPServer(ctx, logger, cfg, builder.mux, builder.listenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to start HTTP server: %w", err)
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received, stopping server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		transport.ShutdownHTTPServer(shutdownCtx, logger, serverInstance)
	}()

	return listenerErrChan, nil
}
