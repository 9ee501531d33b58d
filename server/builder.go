package server

import (
	"net/http"

	"github.com/deckforge/relay/server/relay"
	"github.com/deckforge/relay/server/transport"
	"github.com/deckforge/relay/shared/config"
	"go.uber.org/zap"
)

// ServerBuilder collects the pieces Start wires into the HTTP mux.
type ServerBuilder struct {
	logger     *zap.Logger
	cfg        config.IConfig
	listenAddr string
	transport  *transport.Transport
	mux        *http.ServeMux

	// httpClient is used for every agent call; nil means http.DefaultClient.
	httpClient *http.Client
	// relayHandlers overrides the generation endpoints, mainly for tests.
	relayHandlers transport.GenerationHandlers
	statusRoute   bool
}

func (b *ServerBuilder) generationHandlers() transport.GenerationHandlers {
	if b.relayHandlers != nil {
		return b.relayHandlers
	}
	return relay.NewHandler(b.cfg, b.logger, b.httpClient)
}

// ServerOption defines a function type for configuring the ServerBuilder.
type ServerOption func(*ServerBuilder) error
