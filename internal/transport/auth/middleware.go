package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lecto-bridge/internal/domain"
)

type ctxKey string

const UserIDKey ctxKey = "userID"

type TokenFinder interface {
	FindTokenByPlainToken(ctx context.Context, plainToken string) (*domain.PersonalAccessToken, error)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func (m *middleware) lookup(ctx context.Context, token, source string) *domain.PersonalAccessToken {
	if token == "" {
		return nil
	}
	pat, err := m.tokens.FindTokenByPlainToken(ctx, token)
	if err != nil {
		m.logger.Debug("token lookup failed", "source", source, "error", err)
		return nil
	}
	return pat
}

type middleware struct {
	tokens TokenFinder
	logger *slog.Logger
}

// SanctumMiddleware authenticates requests with a personal access token from
// the Authorization header, falling back to the ?token= query parameter that
// browsers use for WebSocket upgrades.
func SanctumMiddleware(tokens TokenFinder, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	m := &middleware{tokens: tokens, logger: logger}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pat := m.lookup(r.Context(), bearerToken(r), "header")
			if pat == nil {
				pat = m.lookup(r.Context(), r.URL.Query().Get("token"), "query")
			}

			if pat == nil {
				m.logger.Info("unauthorized request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if pat.ExpiresAt != nil && pat.ExpiresAt.Before(time.Now()) {
				http.Error(w, "Token expired", http.StatusUnauthorized)
				return
			}

			ctx := WithUserID(r.Context(), pat.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	if !ok {
		return 0, errors.New("userID not found in context")
	}
	return userID, nil
}
