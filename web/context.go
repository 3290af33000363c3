package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/caregate/caregate/adapters/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// withClaims adds JWT claims to the context.
func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// getClaims retrieves JWT claims from context.
func getClaims(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// AuthMiddleware validates the session token from the Authorization
// header or the "token" cookie. Stateless - no server-side session
// lookup.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie("token"); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			h.authFailure(w, "missing_token", "authentication required")
			return
		}

		claims, err := h.tokens.ValidateToken(token)
		if err != nil {
			h.authFailure(w, "invalid_token", "session is invalid or expired")
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func (h *Handler) authFailure(w http.ResponseWriter, code, message string) {
	if h.metrics != nil {
		h.metrics.AuthFailures.WithLabelValues(code).Inc()
	}
	h.respondError(w, http.StatusUnauthorized, code, message)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
