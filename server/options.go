package server

import (
	"errors"
	"net/http"

	"github.com/deckforge/relay/server/transport"
	"go.uber.org/zap"
)

// WithListenAddr overrides the listen address from the config.
func WithListenAddr(addr string) ServerOption {
	return func(b *ServerBuilder) error {
		// Empty means "use config default".
		if addr != "" {
			b.listenAddr = addr
			b.logger.Info("Overriding listen address", zap.String("newAddress", addr))
		}
		return nil
	}
}

// WithAgentHTTPClient sets the HTTP client used to reach the agents.
func WithAgentHTTPClient(client *http.Client) ServerOption {
	return func(b *ServerBuilder) error {
		if client == nil {
			return errors.New("agent HTTP client cannot be nil")
		}
		b.httpClient = client
		return nil
	}
}

// WithGenerationHandlers replaces the relay endpoints served behind the transport middleware.
func WithGenerationHandlers(handlers transport.GenerationHandlers) ServerOption {
	return func(b *ServerBuilder) error {
		if handlers == nil {
			return errors.New("generation handlers cannot be nil")
		}
		b.relayHandlers = handlers
		return nil
	}
}

// WithoutStatus disables the /status endpoint.
func WithoutStatus() ServerOption {
	return func(b *ServerBuilder) error {
		b.statusRoute = false
		return nil
	}
}

// WithHandler mounts an extra handler on the server mux.
func WithHandler(pattern string, handler http.Handler) ServerOption {
	return func(b *ServerBuilder) error {
		if pattern == "" || handler == nil {
			return errors.New("handler pattern and handler are required")
		}
		b.mux.Handle(pattern, handler)
		return nil
	}
}
