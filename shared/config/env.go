package config

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

// Environment variables naming the upstream agents, with their defaults.
const (
	EnvOutlineAgentURL = "A2A_AGENT_OUTLINE_URL"
	EnvSlidesAgentURL  = "A2A_AGENT_SLIDES_URL"

	DefaultOutlineAgentURL = "http://localhost:10001"
	DefaultSlidesAgentURL  = "http://localhost:10011"
)

var agentEnv = map[AgentKind]struct{ name, fallback string }{
	AgentOutline: {EnvOutlineAgentURL, DefaultOutlineAgentURL},
	AgentSlides:  {EnvSlidesAgentURL, DefaultSlidesAgentURL},
}

// envConfig layers the agent URL environment variables over another IConfig.
// A set variable wins; otherwise the wrapped value is used, then the default.
type envConfig struct {
	IConfig
	getenv func(string) string
	logger *zap.Logger
}

// WithEnvOverrides wraps cfg so that A2A_AGENT_OUTLINE_URL and A2A_AGENT_SLIDES_URL apply
// regardless of the configuration source.
func WithEnvOverrides(cfg IConfig, logger *zap.Logger) IConfig {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &envConfig{IConfig: cfg, getenv: os.Getenv, logger: logger.Named("env-config")}
}

func (c *envConfig) AgentURL(kind AgentKind) (string, error) {
	env, known := agentEnv[kind]
	if known {
		if v := strings.TrimSpace(c.getenv(env.name)); v != "" {
			return v, nil
		}
	}
	url, err := c.IConfig.AgentURL(kind)
	if err != nil {
		return "", err
	}
	if url == "" && known {
		c.logger.Debug("Agent URL not configured, using default", zap.String("agent", string(kind)), zap.String("url", env.fallback))
		return env.fallback, nil
	}
	return url, nil
}
