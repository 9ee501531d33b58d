package extra

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deckforge/relay/clients/a2aClient/a2atest"
	"github.com/deckforge/relay/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getStatus(t *testing.T, cfg config.IConfig) StatusResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	StatusHandler(cfg, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	return response
}

func TestStatusReportsAgents(t *testing.T) {
	_, outline := a2atest.NewServer("Outline Agent", nil)
	defer outline.Close()
	down := httptest.NewServer(http.NotFoundHandler())
	defer down.Close()

	cfg := config.NewInternalConfig()
	cfg.SetAgentURL(config.AgentOutline, outline.URL)
	cfg.SetAgentURL(config.AgentSlides, down.URL)

	response := getStatus(t, cfg)
	assert.Equal(t, "ok", response.Config)

	assert.Equal(t, AgentStatus{URL: outline.URL, Status: "ok", Name: "Outline Agent", Version: "1.0.0"}, response.Agents["outline"])

	slides := response.Agents["slides"]
	assert.Equal(t, "error", slides.Status)
	assert.Contains(t, slides.Error, "status code 404")
}

func TestStatusWithoutAgents(t *testing.T) {
	response := getStatus(t, config.NewInternalConfig())
	assert.Equal(t, "ok", response.Config)
	assert.Equal(t, map[string]AgentStatus{
		"outline": {Status: "none"},
		"slides":  {Status: "none"},
	}, response.Agents)
}
