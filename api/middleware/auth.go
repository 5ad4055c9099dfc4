package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/glowcart/glowcart-backend/api/responses"
	pkgAuth "github.com/glowcart/glowcart-backend/pkg/auth"
	"github.com/glowcart/glowcart-backend/pkg/config"
	pkgerrors "github.com/glowcart/glowcart-backend/pkg/errors"
	"github.com/glowcart/glowcart-backend/pkg/logger"
)

const (
	SessionHeader     = "X-Session-Id"
	SessionQueryParam = "sessionId"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			ctx, err := withClaims(r.Context(), cfg, token, logg)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withSession(ctx, r, logg)))
		})
	}
}

// Identify resolves whoever owns the cart without requiring a login. A bearer
// token, when present, must be valid; otherwise the guest session token is read
// from the X-Session-Id header or the sessionId query parameter. Handlers fall
// back to a sessionId body field.
func Identify(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if token := bearerToken(r); token != "" {
				var err error
				ctx, err = withClaims(ctx, cfg, token, logg)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(withSession(ctx, r, logg)))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

func withClaims(ctx context.Context, cfg config.JWTConfig, token string, logg *logger.Logger) (context.Context, error) {
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return ctx, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	ctx = WithUserID(ctx, claims.UserID.String())
	ctx = WithRole(ctx, string(claims.Role))
	if logg != nil {
		ctx = logg.WithUserID(ctx, claims.UserID.String())
		ctx = logg.WithActorRole(ctx, string(claims.Role))
	}
	return ctx, nil
}

func withSession(ctx context.Context, r *http.Request, logg *logger.Logger) context.Context {
	sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
	if sessionID == "" {
		sessionID = strings.TrimSpace(r.URL.Query().Get(SessionQueryParam))
	}
	if sessionID == "" {
		return ctx
	}
	ctx = WithSessionID(ctx, sessionID)
	if logg != nil {
		ctx = logg.WithSessionID(ctx, sessionID)
	}
	return ctx
}
