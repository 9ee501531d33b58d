package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("defaults when nothing is configured", func(t *testing.T) {
		t.Setenv(EnvOutlineAgentURL, "")
		t.Setenv(EnvSlidesAgentURL, "")
		cfg := WithEnvOverrides(NewInternalConfig(), nil)

		url, err := cfg.AgentURL(AgentOutline)
		require.NoError(t, err)
		assert.Equal(t, DefaultOutlineAgentURL, url)
		url, err = cfg.AgentURL(AgentSlides)
		require.NoError(t, err)
		assert.Equal(t, DefaultSlidesAgentURL, url)
	})

	t.Run("configured value beats default", func(t *testing.T) {
		t.Setenv(EnvOutlineAgentURL, "")
		inner := NewInternalConfig()
		inner.SetAgentURL(AgentOutline, "http://from-config:1")
		cfg := WithEnvOverrides(inner, nil)

		url, _ := cfg.AgentURL(AgentOutline)
		assert.Equal(t, "http://from-config:1", url)
	})

	t.Run("environment beats configured value", func(t *testing.T) {
		t.Setenv(EnvSlidesAgentURL, " http://from-env:2 ")
		inner := NewInternalConfig()
		inner.SetAgentURL(AgentSlides, "http://from-config:2")
		cfg := WithEnvOverrides(inner, nil)

		url, _ := cfg.AgentURL(AgentSlides)
		assert.Equal(t, "http://from-env:2", url)
	})

	t.Run("other settings pass through", func(t *testing.T) {
		inner := NewInternalConfig()
		inner.SetListenAddr(":7777")
		cfg := WithEnvOverrides(inner, nil)

		addr, _ := cfg.ListenAddr()
		assert.Equal(t, ":7777", addr)
	})
}

func TestParseAuthorizationType(t *testing.T) {
	for input, want := range map[string]AuthorizationType{
		"":                    NotAuthorizedEverywhere,
		"none":                NotAuthorizedEverywhere,
		"users_only":          AuthorizedUsersOnly,
		"AuthorizedUsersOnly": AuthorizedUsersOnly,
	} {
		got, err := ParseAuthorizationType(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
	_, err := ParseAuthorizationType("marked_methods")
	assert.Error(t, err)
	assert.Equal(t, "AuthorizedUsersOnly", AuthorizedUsersOnly.String())
}

func TestHashAPIKey(t *testing.T) {
	assert.Empty(t, HashAPIKey(""))
	assert.Equal(t, "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b", HashAPIKey("secret"))
}
