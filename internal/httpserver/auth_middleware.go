package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"teamline/internal/domain"
	"teamline/internal/security"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// WithUser returns a new context carrying the current user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUser extracts the current user from context, if any.
func CurrentUser(r *http.Request) *domain.User {
	if v := r.Context().Value(userContextKey); v != nil {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// AuthMiddleware validates the Bearer identity token, mirrors the user
// into the directory, and attaches the user to the request context. The
// token itself comes from the surrounding application's identity
// provider.
func AuthMiddleware(tokens *security.TokenService, users domain.UserRepository, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			claims, err := tokens.Parse(tokenStr)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			user := security.UserFromClaims(claims)
			if user == nil {
				http.Error(w, "invalid token subject", http.StatusUnauthorized)
				return
			}

			if err := users.Upsert(r.Context(), user); err != nil {
				log.Warn().Err(err).Int64("user_id", user.ID).Msg("directory upsert failed")
			}

			ctx := WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
