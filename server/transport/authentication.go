package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/deckforge/relay/shared/config"
	"go.uber.org/zap"
)

// ErrUnauthorized is returned when the configuration requires a known API key and none was presented.
var ErrUnauthorized = errors.New("a valid API key is required")

// Authenticator resolves API keys to user IDs according to the configured authorization type.
type Authenticator struct {
	logger *zap.Logger
	config config.IConfig
}

// NewAuthenticator creates an Authenticator backed by cfg.
func NewAuthenticator(cfg config.IConfig, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		config: cfg,
		logger: logger.Named("auth"),
	}
}

// Authenticate returns the user owning authKey. An empty userID with a nil error means
// anonymous access, which is only allowed when authorization is not required.
func (a *Authenticator) Authenticate(authKey string) (userID string, err error) {
	authType, err := a.config.AuthorizationType()
	if err != nil {
		return "", err
	}

	if authKey != "" {
		keyHash := config.HashAPIKey(authKey)
		userID, err = a.config.GetUserIDByKeyHash(keyHash)
		switch {
		case err != nil && !errors.Is(err, config.ErrNotFound):
			// A lookup failure only matters when a user is required.
			a.logger.Error("Error checking key hash", zap.Error(err))
			userID = ""
		case err == nil && userID != "":
			a.logger.Debug("Authenticated via API key", zap.String("userID", userID))
		default:
			userID = ""
		}
	}

	if userID == "" && authType == config.AuthorizedUsersOnly {
		return "", ErrUnauthorized
	}
	return userID, nil
}

type userIDKey struct{}

// UserIDFromContext returns the user authenticated for the request, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey{}).(string)
	return userID
}

// extractAuthKey reads a bearer token from the Authorization header.
func extractAuthKey(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// RequireAuth rejects requests with 401 when Authenticate fails and stores the user ID
// in the request context otherwise.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.Authenticate(extractAuthKey(r))
		if err != nil {
			a.logger.Warn("Authentication failed", zap.String("remoteAddr", r.RemoteAddr), zap.Error(err))
			WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if userID != "" {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID))
		}
		next.ServeHTTP(w, r)
	})
}
