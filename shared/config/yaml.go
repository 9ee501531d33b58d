package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var _ IConfig = (*YamlConfig)(nil)

// YamlConfig implements IConfig with YAML file-based storage
type YamlConfig struct {
	mu                sync.RWMutex
	configPath        string
	logger            *zap.Logger
	serverAddress     string
	logLevel          string
	authorizationType AuthorizationType
	userKeyHashes     map[string]string // keyHash -> userID (generated on load)

	agentURLs         map[AgentKind]string
	suppressArtifacts map[AgentKind]bool
	idleTimeout       time.Duration
	maxEventSize      int
	throttle          ThrottleLimits

	// SSL Fields
	sslEnabled      bool
	sslMode         string
	sslCertFile     string
	sslKeyFile      string
	sslAcmeDomains  []string
	sslAcmeEmail    string
	sslAcmeCacheDir string
}

type yamlAgent struct {
	URL               string `yaml:"url"`
	SuppressArtifacts bool   `yaml:"suppress_artifacts"`
}

// YAML configuration structure matching the required format
type yamlConfig struct {
	Server struct {
		Address       string `yaml:"address"`
		LogLevel      string `yaml:"log_level"`
		Authorization string `yaml:"authorization"` // "users_only" or "none"
		SSL           struct {
			Enabled      bool     `yaml:"enabled"`
			Mode         string   `yaml:"mode"`
			CertFile     string   `yaml:"cert_file"`
			KeyFile      string   `yaml:"key_file"`
			AcmeDomains  []string `yaml:"acme_domains"`
			AcmeEmail    string   `yaml:"acme_email"`
			AcmeCacheDir string   `yaml:"acme_cache_dir"`
		} `yaml:"ssl"`
	} `yaml:"server"`

	Agents struct {
		IdleTimeout  string    `yaml:"idle_timeout"`
		MaxEventSize int       `yaml:"max_event_size"`
		Outline      yamlAgent `yaml:"outline"`
		Slides       yamlAgent `yaml:"slides"`
	} `yaml:"agents"`

	Throttle struct {
		RPS int `yaml:"rps"`
		RPM int `yaml:"rpm"`
	} `yaml:"throttle"`

	Users map[string]struct {
		Keys []string `yaml:"keys"` // Store hashes directly
	} `yaml:"users"`
}

// NewYamlConfig creates a new YAML-based configuration
func NewYamlConfig(configPath string, logger *zap.Logger) (*YamlConfig, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config := &YamlConfig{
		configPath:        configPath,
		logger:            logger.Named("yaml-config"),
		userKeyHashes:     make(map[string]string),
		agentURLs:         make(map[AgentKind]string),
		suppressArtifacts: make(map[AgentKind]bool),
		idleTimeout:       DefaultAgentIdleTimeout,
		maxEventSize:      DefaultAgentMaxEventSize,
		sslMode:           "manual",
		sslAcmeCacheDir:   "./.autocert-cache",
	}

	if err := config.Update(); err != nil {
		return nil, err
	}
	return config, nil
}

// Update reloads configuration from the YAML file.
// On error the previously loaded values stay in effect.
func (c *YamlConfig) Update() error {
	c.logger.Debug("Updating configuration from YAML file", zap.String("path", c.configPath))

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		c.logger.Error("Failed to read config file", zap.Error(err))
		return err
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		c.logger.Error("Failed to parse YAML", zap.Error(err))
		return err
	}

	authType, err := ParseAuthorizationType(yamlCfg.Server.Authorization)
	if err != nil {
		return err
	}
	idleTimeout := DefaultAgentIdleTimeout
	if yamlCfg.Agents.IdleTimeout != "" {
		if idleTimeout, err = parseDuration(yamlCfg.Agents.IdleTimeout); err != nil {
			return fmt.Errorf("agents.idle_timeout: %w", err)
		}
	}
	maxEventSize := DefaultAgentMaxEventSize
	if yamlCfg.Agents.MaxEventSize < 0 {
		return fmt.Errorf("agents.max_event_size must not be negative")
	}
	if yamlCfg.Agents.MaxEventSize > 0 {
		maxEventSize = yamlCfg.Agents.MaxEventSize
	}
	if yamlCfg.Throttle.RPS < 0 || yamlCfg.Throttle.RPM < 0 {
		return fmt.Errorf("throttle limits must not be negative")
	}

	newUserKeyHashes := make(map[string]string)
	for userID, user := range yamlCfg.Users {
		for _, keyHash := range user.Keys { // Assume keys in YAML are already hashes
			newUserKeyHashes[keyHash] = userID
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.serverAddress = yamlCfg.Server.Address
	c.logLevel = yamlCfg.Server.LogLevel
	c.authorizationType = authType

	c.sslEnabled = yamlCfg.Server.SSL.Enabled
	c.sslMode = strings.ToLower(yamlCfg.Server.SSL.Mode)
	if c.sslMode != "acme" {
		c.sslMode = "manual"
	}
	c.sslCertFile = yamlCfg.Server.SSL.CertFile
	c.sslKeyFile = yamlCfg.Server.SSL.KeyFile
	c.sslAcmeDomains = yamlCfg.Server.SSL.AcmeDomains
	c.sslAcmeEmail = yamlCfg.Server.SSL.AcmeEmail
	c.sslAcmeCacheDir = yamlCfg.Server.SSL.AcmeCacheDir
	if c.sslAcmeCacheDir == "" {
		c.sslAcmeCacheDir = "./.autocert-cache"
	}

	c.agentURLs = map[AgentKind]string{
		AgentOutline: yamlCfg.Agents.Outline.URL,
		AgentSlides:  yamlCfg.Agents.Slides.URL,
	}
	c.suppressArtifacts = map[AgentKind]bool{
		AgentOutline: yamlCfg.Agents.Outline.SuppressArtifacts,
		AgentSlides:  yamlCfg.Agents.Slides.SuppressArtifacts,
	}
	c.idleTimeout = idleTimeout
	c.maxEventSize = maxEventSize
	c.throttle = ThrottleLimits{RPS: yamlCfg.Throttle.RPS, RPM: yamlCfg.Throttle.RPM}
	c.userKeyHashes = newUserKeyHashes

	return nil
}

// Watch reloads the file whenever it changes on disk until ctx is done.
// onChange, if not nil, runs after every successful reload.
func (c *YamlConfig) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	// Editors usually replace the file instead of writing it, so watch the directory.
	target := filepath.Clean(c.configPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}
	c.logger.Info("Watching config file for changes", zap.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := c.Update(); err != nil {
				c.logger.Warn("Config reload failed, keeping previous values", zap.Error(err))
				continue
			}
			c.logger.Info("Config reloaded", zap.String("op", event.Op.String()))
			if onChange != nil {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("Config watcher error", zap.Error(err))
		}
	}
}

// --- IConfig Implementation ---

func (c *YamlConfig) Close() error { return nil }
func (c *YamlConfig) ListenAddr() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverAddress, nil
}
func (c *YamlConfig) AuthorizationType() (AuthorizationType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authorizationType, nil
}
func (c *YamlConfig) LogLevel() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logLevel, nil
}

func (c *YamlConfig) GetUserIDByKeyHash(keyHash string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if keyHash == "" {
		return "", nil
	}
	userID, exists := c.userKeyHashes[keyHash]
	if !exists {
		return "", ErrNotFound
	}
	return userID, nil
}

func (c *YamlConfig) AgentURL(kind AgentKind) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.agentURLs[kind], nil
}
func (c *YamlConfig) AgentIdleTimeout() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idleTimeout, nil
}
func (c *YamlConfig) AgentMaxEventSize() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxEventSize, nil
}
func (c *YamlConfig) SuppressArtifacts(kind AgentKind) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.suppressArtifacts[kind], nil
}
func (c *YamlConfig) ThrottleLimits() (ThrottleLimits, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.throttle, nil
}

func (c *YamlConfig) Status(ctx context.Context) error {
	if _, err := os.Stat(c.configPath); err != nil {
		c.logger.Error("YAML config file status check failed", zap.String("path", c.configPath), zap.Error(err))
		return fmt.Errorf("config file error: %w", err)
	}
	return nil
}

// --- SSL Methods ---
func (c *YamlConfig) SSLEnabled() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslEnabled, nil
}
func (c *YamlConfig) SSLMode() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslMode, nil
}
func (c *YamlConfig) SSLCertFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslCertFile, nil
}
func (c *YamlConfig) SSLKeyFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslKeyFile, nil
}
func (c *YamlConfig) SSLAcmeDomains() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	domainsCopy := make([]string, len(c.sslAcmeDomains))
	copy(domainsCopy, c.sslAcmeDomains)
	return domainsCopy, nil
}
func (c *YamlConfig) SSLAcmeEmail() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslAcmeEmail, nil
}
func (c *YamlConfig) SSLAcmeCacheDir() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslAcmeCacheDir, nil
}
