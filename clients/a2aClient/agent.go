package a2aClient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	a2aSchema "github.com/deckforge/relay/shared/a2a/schema"
	"go.uber.org/zap"
	"gopkg.in/cenkalti/backoff.v1"
)

// AgentInfo holds the discovered information about an A2A agent from its AgentCard.
type AgentInfo struct {
	a2aSchema.AgentCard
}

// FetchAgentCard retrieves the AgentCard JSON from the standard /.well-known path.
func FetchAgentCard(ctx context.Context, baseURL string, httpClient *http.Client, logger *zap.Logger) (*AgentInfo, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	// The card lives at the host root regardless of the agent's path.
	wellKnownURL := fmt.Sprintf("%s://%s/.well-known/agent.json", parsedURL.Scheme, parsedURL.Host)

	logger.Debug("Fetching AgentCard", zap.String("url", wellKnownURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnownURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create AgentCard request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch AgentCard from %s: %w", wellKnownURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch AgentCard from %s: status code %d", wellKnownURL, resp.StatusCode)
	}

	var agentCard a2aSchema.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&agentCard); err != nil {
		return nil, fmt.Errorf("failed to parse AgentCard JSON from %s: %w", wellKnownURL, err)
	}

	if agentCard.Name == "" || agentCard.URL == "" || agentCard.Version == "" {
		return nil, fmt.Errorf("invalid AgentCard received: missing required fields (name, url, version)")
	}

	cardURLParsed, err := url.Parse(agentCard.URL)
	if err != nil {
		logger.Warn("AgentCard URL is invalid, using provided base URL", zap.String("cardURL", agentCard.URL), zap.String("baseURL", baseURL))
		agentCard.URL = baseURL
	} else if !cardURLParsed.IsAbs() {
		agentCard.URL = parsedURL.ResolveReference(cardURLParsed).String()
	}

	if len(agentCard.DefaultInputModes) == 0 {
		agentCard.DefaultInputModes = []string{"text"}
	}
	if len(agentCard.DefaultOutputModes) == 0 {
		agentCard.DefaultOutputModes = []string{"text"}
	}

	logger.Debug("Fetched AgentCard", zap.String("agentName", agentCard.Name), zap.String("agentVersion", agentCard.Version))
	return &AgentInfo{AgentCard: agentCard}, nil
}

// NewProbeBackOff returns the backoff used by ProbeAgent: exponential from initial, capped at
// maxInterval, giving up after maxElapsed (zero retries forever).
func NewProbeBackOff(initial, maxInterval, maxElapsed time.Duration) *backoff.ExponentialBackOff {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = initial
	expBackoff.MaxInterval = maxInterval
	expBackoff.MaxElapsedTime = maxElapsed
	expBackoff.Reset()
	return expBackoff
}

// ProbeAgent fetches the agent's card, retrying with b until it succeeds, b gives up or ctx ends.
// It only serves readiness reporting; generation requests are never retried.
func ProbeAgent(ctx context.Context, baseURL string, httpClient *http.Client, b backoff.BackOff, logger *zap.Logger) (*AgentInfo, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var info *AgentInfo
	operation := func() error {
		var err error
		info, err = FetchAgentCard(ctx, baseURL, httpClient, logger)
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.Info("Agent not reachable yet", zap.String("url", baseURL), zap.Duration("retryIn", next), zap.Error(err))
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return info, nil
}
