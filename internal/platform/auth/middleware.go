package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	domain "github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/platform/requestctx"
)

// Verifier validates access tokens. Satisfied by TokenService.
type Verifier interface {
	Verify(tokenStr string) (Claims, error)
}

// RequireEmployeeAuth verifies the Authorization bearer token and ensures the
// employee carries one of the allowed roles. With no roles listed, any
// authenticated employee passes.
func RequireEmployeeAuth(verifier Verifier, allowedRoles ...domain.EmployeeRole) func(http.Handler) http.Handler {
	allowed := make(map[domain.EmployeeRole]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization header missing or invalid")
				return
			}
			if verifier == nil {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization service unavailable")
				return
			}

			claims, err := verifier.Verify(tokenStr)
			if err != nil {
				respondVerificationError(w, err)
				return
			}

			role := domain.EmployeeRole(strings.ToUpper(strings.TrimSpace(claims.Role)))
			if len(allowed) > 0 {
				if _, ok := allowed[role]; !ok {
					respondAuthError(w, http.StatusForbidden, "insufficient_role", "employee does not have required role")
					return
				}
			}

			actor := requestctx.Actor{
				EmployeeID: claims.Subject,
				Login:      claims.Login,
				Role:       string(role),
			}
			ctx := requestctx.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}

	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}

func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   code,
		"message": message,
		"status":  status,
	})
}

func respondVerificationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTokenExpired):
		respondAuthError(w, http.StatusUnauthorized, "token_expired", "access token expired")
	default:
		respondAuthError(w, http.StatusUnauthorized, "invalid_token", "access token verification failed")
	}
}
