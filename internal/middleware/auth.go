package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/endritk/taskboard/internal/auth"
)

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// RequireAuth validates the bearer token from the Authorization header and
// injects the user id into the request context. Requests that fail here never
// reach a handler. The token itself is never logged.
func RequireAuth(tokens *auth.Tokens, revoked *auth.RevocationList) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "no token")
				return
			}
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || raw == "" {
				unauthorized(w, "invalid authorization header")
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			if revoked != nil {
				gone, err := revoked.IsRevoked(r.Context(), claims.ID)
				if err != nil || gone {
					unauthorized(w, "invalid token")
					return
				}
			}

			ctx := auth.WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
