package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/deckforge/relay/shared/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

const (
	sslModeACME       = "acme"
	acmeChallengeAddr = ":80"
)

// StartHTTPServer starts the HTTP/HTTPS server described by cfg and returns immediately.
// The returned channel reports a listener failure after startup and is closed when the
// listener exits. Setup problems (missing certificate paths, ACME without domains) are
// returned directly.
func StartHTTPServer(ctx context.Context, logger *zap.Logger, cfg config.IConfig, handler http.Handler, overwriteListenAddr string) (*http.Server, <-chan error, error) {
	if logger == nil {
		return nil, nil, errors.New("logger cannot be nil")
	}
	if cfg == nil {
		return nil, nil, errors.New("config cannot be nil")
	}
	if handler == nil {
		return nil, nil, errors.New("http handler cannot be nil")
	}

	listenAddr := overwriteListenAddr
	if listenAddr == "" {
		var err error
		listenAddr, err = cfg.ListenAddr()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get listen address: %w", err)
		}
	}

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: generation streams last as long as the agent keeps producing
		// events, bounded by the agent idle timeout instead.
		IdleTimeout: 90 * time.Second,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	sslEnabled, err := cfg.SSLEnabled()
	if err != nil {
		logger.Warn("Failed to read SSL enabled setting, assuming disabled", zap.Error(err))
		sslEnabled = false
	}

	var certFile, keyFile string
	isACME := false
	if sslEnabled {
		sslMode, _ := cfg.SSLMode()
		if sslMode == sslModeACME {
			isACME = true
			tlsConfig, err := acmeTLSConfig(ctx, logger, cfg)
			if err != nil {
				return nil, nil, err
			}
			server.TLSConfig = tlsConfig
		} else {
			certFile, err = cfg.SSLCertFile()
			if err != nil || certFile == "" {
				return nil, nil, fmt.Errorf("manual SSL mode requires a certificate file path (ssl.cert_file): %w", errOrMissing(err))
			}
			keyFile, err = cfg.SSLKeyFile()
			if err != nil || keyFile == "" {
				return nil, nil, fmt.Errorf("manual SSL mode requires a private key file path (ssl.key_file): %w", errOrMissing(err))
			}
		}
	}

	listenerErrChan := make(chan error, 1)
	go func() {
		defer close(listenerErrChan)

		var err error
		switch {
		case isACME:
			logger.Info("Starting HTTPS server", zap.String("addr", listenAddr), zap.Bool("isACME", true))
			err = server.ListenAndServeTLS("", "")
		case sslEnabled:
			logger.Info("Starting HTTPS server", zap.String("addr", listenAddr), zap.Bool("isACME", false))
			err = server.ListenAndServeTLS(certFile, keyFile)
		default:
			logger.Info("Starting HTTP server", zap.String("addr", listenAddr))
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server listener error", zap.Error(err))
			listenerErrChan <- err
			return
		}
		logger.Info("Server listener stopped gracefully")
	}()

	return server, listenerErrChan, nil
}

// acmeTLSConfig builds an autocert-backed TLS config and starts the HTTP-01 challenge
// listener, which stops with ctx.
func acmeTLSConfig(ctx context.Context, logger *zap.Logger, cfg config.IConfig) (*tls.Config, error) {
	domains, err := cfg.SSLAcmeDomains()
	if err != nil || len(domains) == 0 {
		return nil, fmt.Errorf("ACME mode requires at least one domain (ssl.acme_domains): %w", errOrMissing(err))
	}
	email, _ := cfg.SSLAcmeEmail()
	cacheDir, err := cfg.SSLAcmeCacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get ACME cache directory: %w", err)
	}
	if err := os.MkdirAll(cacheDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create ACME cache directory '%s': %w", cacheDir, err)
	}

	certManager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Email:      email,
		Cache:      autocert.DirCache(cacheDir),
	}

	challengeServer := &http.Server{
		Addr:              acmeChallengeAddr,
		Handler:           certManager.HTTPHandler(nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting ACME HTTP challenge listener", zap.String("addr", acmeChallengeAddr))
		if err := challengeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ACME HTTP challenge listener error", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		_ = challengeServer.Close()
	}()

	return certManager.TLSConfig(), nil
}

func errOrMissing(err error) error {
	if err != nil {
		return err
	}
	return config.ErrNotFound
}

// ShutdownHTTPServer attempts a graceful shutdown of the HTTP server.
func ShutdownHTTPServer(ctx context.Context, logger *zap.Logger, server *http.Server) {
	if server == nil {
		logger.Warn("Shutdown requested but server instance is nil")
		return
	}
	logger.Info("Shutting down HTTP server")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server graceful shutdown failed, closing", zap.Error(err))
		_ = server.Close()
		return
	}
	logger.Info("HTTP server shut down gracefully")
}
