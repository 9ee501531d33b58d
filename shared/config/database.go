package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var _ IConfig = (*DatabaseConfig)(nil)

// Settings keys read from the "Settings" table. Values are JSON encoded.
const (
	settingListenAddress      = "relay_listen_address"
	settingLogLevel           = "relay_log_level"
	settingAuthorizationType  = "relay_authorization_type"
	settingAgentURLPrefix     = "relay_agent_url_"                // + AgentKind
	settingSuppressArtifacts  = "relay_agent_suppress_artifacts_" // + AgentKind
	settingAgentIdleTimeout   = "relay_agent_idle_timeout"
	settingAgentMaxEventSize  = "relay_agent_max_event_size"
	settingThrottleRPS        = "relay_throttle_rps"
	settingThrottleRPM        = "relay_throttle_rpm"
	settingSSLEnabled         = "relay_ssl_enabled"
	settingSSLMode            = "relay_ssl_mode"
	settingSSLCertFile        = "relay_ssl_cert_file"
	settingSSLKeyFile         = "relay_ssl_key_file"
	settingSSLAcmeDomains     = "relay_ssl_acme_domains"
	settingSSLAcmeEmail       = "relay_ssl_acme_email"
	settingSSLAcmeCacheDir    = "relay_ssl_acme_cache_dir"
	defaultDatabaseListenAddr = ":8080"
)

// DatabaseConfig implements IConfig with PostgreSQL database-based storage.
// Every getter reads the database, so changes apply without a restart.
type DatabaseConfig struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewDatabaseConfig creates a new DatabaseConfig. The connection is established lazily.
func NewDatabaseConfig(dbConnectionString string, logger *zap.Logger) (*DatabaseConfig, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("postgres", dbConnectionString)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	return &DatabaseConfig{db: db, logger: logger.Named("db-config")}, nil
}

// Close closes the connection pool
func (c *DatabaseConfig) Close() error {
	return c.db.Close()
}

// --- IConfig Implementation ---

func (c *DatabaseConfig) ListenAddr() (string, error) {
	return c.getSettingString(settingListenAddress, defaultDatabaseListenAddr)
}

func (c *DatabaseConfig) LogLevel() (string, error) {
	return c.getSettingString(settingLogLevel, "info")
}

func (c *DatabaseConfig) AuthorizationType() (AuthorizationType, error) {
	rawValue, err := c.getSettingJSON(settingAuthorizationType)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NotAuthorizedEverywhere, nil
		}
		return NotAuthorizedEverywhere, err
	}
	switch v := rawValue.(type) {
	case float64:
		at := AuthorizationType(int(v))
		if at != NotAuthorizedEverywhere && at != AuthorizedUsersOnly {
			return NotAuthorizedEverywhere, fmt.Errorf("invalid authorization type value: %v", v)
		}
		return at, nil
	case string:
		return ParseAuthorizationType(v)
	default:
		return NotAuthorizedEverywhere, fmt.Errorf("invalid authorization type format in database: %T", rawValue)
	}
}

func (c *DatabaseConfig) GetUserIDByKeyHash(keyHash string) (string, error) {
	if keyHash == "" {
		return "", nil
	}
	query := `SELECT "userId" FROM "ApiKey" WHERE "keyHash" = $1 LIMIT 1`
	var userID string
	err := c.db.QueryRow(query, keyHash).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("query user by key hash: %w", err)
	}
	return userID, nil
}

func (c *DatabaseConfig) AgentURL(kind AgentKind) (string, error) {
	return c.getSettingString(settingAgentURLPrefix+string(kind), "")
}

func (c *DatabaseConfig) SuppressArtifacts(kind AgentKind) (bool, error) {
	return c.getSettingBool(settingSuppressArtifacts+string(kind), false)
}

func (c *DatabaseConfig) AgentIdleTimeout() (time.Duration, error) {
	value, err := c.getSettingString(settingAgentIdleTimeout, "")
	if err != nil {
		return DefaultAgentIdleTimeout, err
	}
	if value == "" {
		return DefaultAgentIdleTimeout, nil
	}
	d, err := parseDuration(value)
	if err != nil {
		return DefaultAgentIdleTimeout, fmt.Errorf("setting '%s': %w", settingAgentIdleTimeout, err)
	}
	return d, nil
}

func (c *DatabaseConfig) AgentMaxEventSize() (int, error) {
	size, err := c.getSettingInt(settingAgentMaxEventSize, 0)
	if err != nil || size == 0 {
		return DefaultAgentMaxEventSize, err
	}
	return size, nil
}

func (c *DatabaseConfig) ThrottleLimits() (ThrottleLimits, error) {
	rps, err := c.getSettingInt(settingThrottleRPS, 0)
	if err != nil {
		return ThrottleLimits{}, err
	}
	rpm, err := c.getSettingInt(settingThrottleRPM, 0)
	if err != nil {
		return ThrottleLimits{}, err
	}
	return ThrottleLimits{RPS: rps, RPM: rpm}, nil
}

func (c *DatabaseConfig) Status(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		c.logger.Error("DB ping failed", zap.Error(err))
		return err
	}
	return nil
}

func (c *DatabaseConfig) SSLEnabled() (bool, error) {
	return c.getSettingBool(settingSSLEnabled, false)
}
func (c *DatabaseConfig) SSLMode() (string, error) {
	return c.getSettingString(settingSSLMode, "manual")
}
func (c *DatabaseConfig) SSLCertFile() (string, error) {
	return c.getSettingString(settingSSLCertFile, "")
}
func (c *DatabaseConfig) SSLKeyFile() (string, error) {
	return c.getSettingString(settingSSLKeyFile, "")
}
func (c *DatabaseConfig) SSLAcmeEmail() (string, error) {
	return c.getSettingString(settingSSLAcmeEmail, "")
}
func (c *DatabaseConfig) SSLAcmeCacheDir() (string, error) {
	return c.getSettingString(settingSSLAcmeCacheDir, "./.autocert-cache")
}
func (c *DatabaseConfig) SSLAcmeDomains() ([]string, error) {
	return c.getSettingStringSlice(settingSSLAcmeDomains, []string{})
}

// --- Database Helper Functions ---
func (c *DatabaseConfig) getSettingRaw(key string) ([]byte, error) {
	var valueStr sql.NullString
	err := c.db.QueryRowContext(context.Background(), `SELECT value FROM "Settings" WHERE key = $1 LIMIT 1`, key).Scan(&valueStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query setting '%s': %w", key, err)
	}
	if !valueStr.Valid {
		return nil, ErrNotFound
	}
	return []byte(valueStr.String), nil
}
func (c *DatabaseConfig) getSettingJSON(key string) (interface{}, error) {
	raw, err := c.getSettingRaw(key)
	if err != nil {
		return nil, err
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("unmarshal setting '%s': %w", key, err)
	}
	return value, nil
}
func (c *DatabaseConfig) getSettingString(key string, defaultValue string) (string, error) {
	value, err := c.getSettingJSON(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return defaultValue, nil
		}
		return defaultValue, err
	}
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return fmt.Sprintf("%v", v), nil
	default:
		return defaultValue, fmt.Errorf("setting '%s' has unexpected type %T", key, value)
	}
}
func (c *DatabaseConfig) getSettingInt(key string, defaultValue int) (int, error) {
	value, err := c.getSettingJSON(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return defaultValue, nil
		}
		return defaultValue, err
	}
	number, ok := value.(float64)
	if !ok || number < 0 || number != float64(int(number)) {
		return defaultValue, fmt.Errorf("setting '%s' is not a non-negative integer (%v)", key, value)
	}
	return int(number), nil
}
func (c *DatabaseConfig) getSettingBool(key string, defaultValue bool) (bool, error) {
	value, err := c.getSettingJSON(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return defaultValue, nil
		}
		return defaultValue, err
	}
	boolValue, ok := value.(bool)
	if !ok {
		return defaultValue, fmt.Errorf("setting '%s' is not a boolean (type: %T)", key, value)
	}
	return boolValue, nil
}
func (c *DatabaseConfig) getSettingStringSlice(key string, defaultValue []string) ([]string, error) {
	value, err := c.getSettingJSON(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return defaultValue, nil
		}
		return defaultValue, err
	}
	sliceInterface, ok := value.([]interface{})
	if !ok {
		return defaultValue, fmt.Errorf("setting '%s' is not a JSON array of strings (type: %T)", key, value)
	}
	strSlice := make([]string, 0, len(sliceInterface))
	for i, item := range sliceInterface {
		strVal, ok := item.(string)
		if !ok {
			return defaultValue, fmt.Errorf("non-string value at index %d in setting '%s'", i, key)
		}
		strSlice = append(strSlice, strVal)
	}
	return strSlice, nil
}
