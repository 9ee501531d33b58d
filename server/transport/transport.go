package transport

import (
	"encoding/json"
	"net/http"

	"github.com/deckforge/relay/shared/config"
	"go.uber.org/zap"
)

const (
	OUTLINE_PATH  = "/api/presentation/outline"  // Outline generation endpoint
	GENERATE_PATH = "/api/presentation/generate" // Slide generation endpoint
	STATUS_PATH   = "/status"

	contentTypeJSON = "application/json"
)

// GenerationHandlers are the relay endpoints served behind the transport middleware.
type GenerationHandlers interface {
	Outline() http.HandlerFunc
	Slides() http.HandlerFunc
}

// Transport wraps relay handlers with CORS, authentication and throttling.
type Transport struct {
	logger     *zap.Logger
	config     config.IConfig
	auth       *Authenticator
	throttling *Throttling
}

// New creates a Transport backed by cfg.
func New(logger *zap.Logger, cfg config.IConfig) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("transport")
	return &Transport{
		logger:     logger,
		config:     cfg,
		auth:       NewAuthenticator(cfg, logger),
		throttling: NewThrottling(cfg, logger),
	}
}

// RegisterRelayHandlers mounts the generation endpoints on mux.
func (t *Transport) RegisterRelayHandlers(mux *http.ServeMux, handlers GenerationHandlers) {
	mux.Handle(OUTLINE_PATH, t.Wrap(handlers.Outline()))
	mux.Handle(GENERATE_PATH, t.Wrap(handlers.Slides()))
	t.logger.Info("Registered relay handlers", zap.String("outline", OUTLINE_PATH), zap.String("generate", GENERATE_PATH))
}

// Wrap applies the middleware chain: CORS first, so preflights skip auth and throttling.
func (t *Transport) Wrap(next http.Handler) http.Handler {
	return t.withCORS(t.withRequestLog(t.auth.RequireAuth(t.throttling.Limit(next))))
}

func (t *Transport) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Allow", "POST, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *Transport) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.logger.Debug("Received request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		next.ServeHTTP(w, r)
	})
}

// WriteJSONError writes {"error": message} with the given status.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
