package relay

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deckforge/relay/clients/a2aClient"
	"github.com/deckforge/relay/server/transport"
	"github.com/deckforge/relay/shared/config"
	"go.uber.org/zap"
)

const (
	ContentTypeNDJSON    = "application/x-ndjson; charset=utf-8"
	missingFieldsMessage = "Missing required fields"
)

// Handler serves the generation endpoints. Configuration is read per request,
// so a reloaded config applies to the next request.
type Handler struct {
	cfg        config.IConfig
	logger     *zap.Logger
	httpClient *http.Client
}

// NewHandler creates a Handler. httpClient may be nil to use http.DefaultClient.
func NewHandler(cfg config.IConfig, logger *zap.Logger, httpClient *http.Client) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{cfg: cfg, logger: logger.Named("relay"), httpClient: httpClient}
}

// Outline relays a POSTed OutlineRequest to the outline agent.
func (h *Handler) Outline() http.HandlerFunc {
	return serve(h, config.AgentOutline, DecodeOutlineRequest)
}

// Slides relays a POSTed SlideRequest to the slides agent.
func (h *Handler) Slides() http.HandlerFunc {
	return serve(h, config.AgentSlides, DecodeSlideRequest)
}

func serve[T GenerationRequest](h *Handler, kind config.AgentKind, decode func(io.Reader) (T, error)) http.HandlerFunc {
	logger := h.logger.With(zap.String("agent", string(kind)))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			transport.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		req, err := decode(r.Body)
		if err != nil {
			logger.Debug("Rejected generation request", zap.Error(err))
			transport.WriteJSONError(w, http.StatusBadRequest, missingFieldsMessage)
			return
		}

		client, opts, err := h.prepare(kind, logger)
		if err != nil {
			logger.Error("Failed to set up agent call", zap.Error(err))
			transport.WriteJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", ContentTypeNDJSON)
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		started := time.Now()
		stream := client.SendMessageStream(r.Context(), req.AgentText(), req.AgentMetadata())
		stats, err := Transcode(r.Context(), stream, NewNDJSONWriter(w), opts)
		fields := []zap.Field{
			zap.Int("events", stats.Events),
			zap.Int("records", stats.Records),
			zap.Int("ignored", stats.Ignored),
			zap.Bool("agentFailed", stats.Failed),
			zap.Duration("duration", time.Since(started)),
		}
		if err != nil {
			logger.Info("Generation stream aborted by client", append(fields, zap.Error(err))...)
			return
		}
		logger.Info("Generation stream finished", fields...)
	}
}

// prepare resolves the agent for kind and builds the client and transcoder options.
func (h *Handler) prepare(kind config.AgentKind, logger *zap.Logger) (*a2aClient.Client, Options, error) {
	agentURL, err := h.cfg.AgentURL(kind)
	if err != nil {
		return nil, Options{}, fmt.Errorf("failed to read %s agent URL: %w", kind, err)
	}
	if agentURL == "" {
		return nil, Options{}, fmt.Errorf("%s agent URL is not configured", kind)
	}
	idleTimeout, err := h.cfg.AgentIdleTimeout()
	if err != nil {
		return nil, Options{}, fmt.Errorf("failed to read agent idle timeout: %w", err)
	}
	maxEventSize, err := h.cfg.AgentMaxEventSize()
	if err != nil {
		return nil, Options{}, fmt.Errorf("failed to read agent max event size: %w", err)
	}
	suppress, err := h.cfg.SuppressArtifacts(kind)
	if err != nil {
		return nil, Options{}, fmt.Errorf("failed to read artifact policy for %s agent: %w", kind, err)
	}

	client, err := a2aClient.New(agentURL,
		a2aClient.WithLogger(logger),
		a2aClient.WithHTTPClient(h.httpClient),
		a2aClient.WithIdleTimeout(idleTimeout),
		a2aClient.WithMaxEventSize(maxEventSize),
	)
	if err != nil {
		return nil, Options{}, fmt.Errorf("failed to create %s agent client: %w", kind, err)
	}
	return client, Options{SuppressArtifacts: suppress, Logger: logger}, nil
}

