package extra

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/deckforge/relay/clients/a2aClient"
	"github.com/deckforge/relay/shared/config"
	"go.uber.org/zap"
)

const agentCheckTimeout = 5 * time.Second

// AgentStatus describes one upstream agent as seen by the status endpoint.
type AgentStatus struct {
	URL     string `json:"url,omitempty"`
	Status  string `json:"status"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse represents the response structure for the status endpoint
type StatusResponse struct {
	Config string                 `json:"config"`
	Agents map[string]AgentStatus `json:"agents"`
}

// StatusHandler creates an HTTP handler reporting config health and whether each agent serves its card.
// It always answers 200; problems are reported in the body.
func StatusHandler(cfg config.IConfig, httpClient *http.Client, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		handlerLogger := logger.With(zap.String("handler", "StatusHandler"))

		response := StatusResponse{
			Config: "ok",
			Agents: make(map[string]AgentStatus, len(config.AgentKinds)),
		}
		if err := cfg.Status(r.Context()); err != nil {
			handlerLogger.Error("Failed to get config status", zap.Error(err))
			response.Config = "error"
		}

		ctx, cancel := context.WithTimeout(r.Context(), agentCheckTimeout)
		defer cancel()

		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, kind := range config.AgentKinds {
			wg.Add(1)
			go func(kind config.AgentKind) {
				defer wg.Done()
				status := checkAgent(ctx, cfg, kind, httpClient, handlerLogger)
				mu.Lock()
				response.Agents[string(kind)] = status
				mu.Unlock()
			}(kind)
		}
		wg.Wait()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(response); err != nil {
			handlerLogger.Debug("Failed to write status response", zap.Error(err))
		}
	}
}

func checkAgent(ctx context.Context, cfg config.IConfig, kind config.AgentKind, httpClient *http.Client, logger *zap.Logger) AgentStatus {
	agentURL, err := cfg.AgentURL(kind)
	if err != nil {
		logger.Error("Failed to read agent URL", zap.String("agent", string(kind)), zap.Error(err))
		return AgentStatus{Status: "error", Error: err.Error()}
	}
	if agentURL == "" {
		return AgentStatus{Status: "none"}
	}

	info, err := a2aClient.FetchAgentCard(ctx, agentURL, httpClient, logger)
	if err != nil {
		logger.Warn("Agent card not available", zap.String("agent", string(kind)), zap.Error(err))
		return AgentStatus{URL: agentURL, Status: "error", Error: err.Error()}
	}
	return AgentStatus{URL: agentURL, Status: "ok", Name: info.Name, Version: info.Version}
}
