package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/canteen-pos/api/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

var (
	errNoAuthHeader  = errors.New("missing authorization header")
	errAuthScheme    = errors.New("invalid authorization format")
	errInvalidToken  = errors.New("invalid token")
	errNotAuthed     = errors.New("not authenticated")
	errRoleForbidden = errors.New("insufficient permissions")
)

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errNoAuthHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", errAuthScheme
	}
	return token, nil
}

// Authenticate validates the bearer token and stores its claims on the
// request context for ClaimsFromContext.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				deny(w, http.StatusUnauthorized, err)
				return
			}
			claims, err := auth.ValidateToken(jwtSecret, token)
			if err != nil {
				deny(w, http.StatusUnauthorized, errInvalidToken)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// RequireScreen limits a station account to the screen its token is pinned
// to. Management roles and unpinned kitchen accounts pass through.
func RequireScreen(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			deny(w, http.StatusUnauthorized, errNotAuthed)
			return
		}

		if claims.ScreenKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		key := r.PathValue("key")
		if key == "" {
			deny(w, http.StatusBadRequest, errors.New("missing screen key"))
			return
		}

		if claims.ScreenKey != key {
			deny(w, http.StatusForbidden, errors.New("access denied for this screen"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole admits requests whose claims carry one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				deny(w, http.StatusUnauthorized, errNotAuthed)
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				deny(w, http.StatusForbidden, errRoleForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns nil outside an authenticated route.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// deny writes the {"error": ...} body the handlers use for failures.
func deny(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}) //nolint:errcheck
}
