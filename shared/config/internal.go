package config

import (
	"context"
	"sync"
	"time"
)

var _ IConfig = (*InternalConfig)(nil)

// InternalConfig implements IConfig with in-memory storage
type InternalConfig struct {
	mu                     sync.RWMutex
	ServerAddress          string
	AuthorizationTypeValue AuthorizationType
	LogLevelValue          string
	UserKeyHashes          map[string]string // keyHash -> userID
	AgentURLs              map[AgentKind]string
	SuppressArtifactsValue map[AgentKind]bool
	IdleTimeoutValue       time.Duration
	MaxEventSizeValue      int
	Throttle               ThrottleLimits

	SSLEnabledValue      bool
	SSLModeValue         string
	SSLCertFileValue     string
	SSLKeyFileValue      string
	SSLAcmeDomainsValue  []string
	SSLAcmeEmailValue    string
	SSLAcmeCacheDirValue string
}

// NewInternalConfig creates a new in-memory configuration
func NewInternalConfig() *InternalConfig {
	return &InternalConfig{
		ServerAddress:          ":8080",
		LogLevelValue:          "info",
		UserKeyHashes:          make(map[string]string),
		AgentURLs:              make(map[AgentKind]string),
		SuppressArtifactsValue: make(map[AgentKind]bool),
		IdleTimeoutValue:       DefaultAgentIdleTimeout,
		MaxEventSizeValue:      DefaultAgentMaxEventSize,
		SSLModeValue:           "manual",
		SSLAcmeCacheDirValue:   "./.autocert-cache",
	}
}

func (c *InternalConfig) ListenAddr() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ServerAddress, nil
}

func (c *InternalConfig) SetListenAddr(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ServerAddress = addr
}

func (c *InternalConfig) AuthorizationType() (AuthorizationType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AuthorizationTypeValue, nil
}

func (c *InternalConfig) LogLevel() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LogLevelValue, nil
}

func (c *InternalConfig) GetUserIDByKeyHash(keyHash string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if keyHash == "" {
		return "", nil
	}
	userID, exists := c.UserKeyHashes[keyHash]
	if !exists {
		return "", ErrNotFound
	}
	return userID, nil
}

// AddUserKey registers a plaintext API key for userID.
func (c *InternalConfig) AddUserKey(userID, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.UserKeyHashes[HashAPIKey(key)] = userID
}

func (c *InternalConfig) AgentURL(kind AgentKind) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.AgentURLs[kind], nil
}

func (c *InternalConfig) SetAgentURL(kind AgentKind, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AgentURLs[kind] = url
}

func (c *InternalConfig) AgentIdleTimeout() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.IdleTimeoutValue, nil
}

func (c *InternalConfig) AgentMaxEventSize() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.MaxEventSizeValue, nil
}

func (c *InternalConfig) SuppressArtifacts(kind AgentKind) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SuppressArtifactsValue[kind], nil
}

func (c *InternalConfig) ThrottleLimits() (ThrottleLimits, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Throttle, nil
}

func (c *InternalConfig) SSLEnabled() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLEnabledValue, nil
}

func (c *InternalConfig) SSLMode() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLModeValue, nil
}

func (c *InternalConfig) SSLCertFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLCertFileValue, nil
}

func (c *InternalConfig) SSLKeyFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLKeyFileValue, nil
}

func (c *InternalConfig) SSLAcmeDomains() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLAcmeDomainsValue, nil
}

func (c *InternalConfig) SSLAcmeEmail() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLAcmeEmailValue, nil
}

func (c *InternalConfig) SSLAcmeCacheDir() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLAcmeCacheDirValue, nil
}

func (c *InternalConfig) Close() error { return nil }
func (c *InternalConfig) Status(ctx context.Context) error { return nil }
