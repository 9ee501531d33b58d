package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// AuthorizationType represents different authorization strategies
type AuthorizationType int

const (
	// NotAuthorizedEverywhere allows all requests without authentication
	NotAuthorizedEverywhere AuthorizationType = iota
	// AuthorizedUsersOnly requires a known API key on every generation request
	AuthorizedUsersOnly
)

func (at AuthorizationType) String() string {
	names := [...]string{"NotAuthorizedEverywhere", "AuthorizedUsersOnly"}
	if at < 0 || int(at) >= len(names) {
		return "Unknown"
	}
	return names[at]
}

// ParseAuthorizationType accepts both the yaml spelling ("none", "users_only") and the String() form.
func ParseAuthorizationType(s string) (AuthorizationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "notauthorizedeverywhere":
		return NotAuthorizedEverywhere, nil
	case "users_only", "authorizedusersonly":
		return AuthorizedUsersOnly, nil
	}
	return NotAuthorizedEverywhere, fmt.Errorf("invalid authorization type: %q", s)
}

// AgentKind names one of the upstream generation agents.
type AgentKind string

const (
	AgentOutline AgentKind = "outline"
	AgentSlides  AgentKind = "slides"
)

// AgentKinds lists every agent the relay talks to.
var AgentKinds = []AgentKind{AgentOutline, AgentSlides}

// DefaultAgentIdleTimeout bounds how long a generation stream may stay silent.
const DefaultAgentIdleTimeout = 5 * time.Minute

// DefaultAgentMaxEventSize is the largest single agent event accepted, in bytes.
const DefaultAgentMaxEventSize = 1 << 20

// ThrottleLimits holds per-client request limits. Zero disables a limit.
type ThrottleLimits struct {
	RPS int
	RPM int
}

type IConfig interface {
	// Core Server Settings
	ListenAddr() (string, error)
	AuthorizationType() (AuthorizationType, error)
	LogLevel() (string, error)

	// User & Auth Settings
	GetUserIDByKeyHash(keyHash string) (userID string, err error)

	// Agent Settings
	AgentURL(kind AgentKind) (string, error)
	AgentIdleTimeout() (time.Duration, error)
	AgentMaxEventSize() (int, error)
	SuppressArtifacts(kind AgentKind) (bool, error)
	ThrottleLimits() (ThrottleLimits, error)

	// SSL Settings
	SSLEnabled() (bool, error)
	SSLMode() (string, error)          // Returns "manual" or "acme"
	SSLCertFile() (string, error)      // Path to certificate file (manual mode)
	SSLKeyFile() (string, error)       // Path to private key file (manual mode)
	SSLAcmeDomains() ([]string, error) // List of domains for ACME
	SSLAcmeEmail() (string, error)     // Contact email for ACME
	SSLAcmeCacheDir() (string, error)  // Directory to cache ACME certificates

	// Lifecycle & Status
	Status(ctx context.Context) error
	Close() error
}

// HashAPIKey converts a plaintext API key to its SHA-256 hash representation
func HashAPIKey(key string) string {
	if key == "" {
		return ""
	}
	hasher := sha256.New()
	hasher.Write([]byte(key))
	return hex.EncodeToString(hasher.Sum(nil))
}

// parseDuration reads "90s"-style strings; a bare number is taken as seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrNotFound
	}
	if seconds, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
