package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/ccna-trainer/backend/internal/models"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// ClaimsFrom returns the verified claims stored by the middleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// SessionID returns the session bound to the request token, if any.
func SessionID(ctx context.Context) string {
	if c, ok := ClaimsFrom(ctx); ok {
		return c.SessionID
	}
	return ""
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// Require rejects requests without a valid bearer token of the given role.
func (s *Service) Require(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Missing bearer token"})
				return
			}
			claims, err := s.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid or expired token"})
				return
			}
			if claims.Role != role {
				writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: "Token not valid for this resource"})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
