package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"wordsofdeath.app/internal/accounts"
	"wordsofdeath.app/internal/auth"
)

const (
	authHeader    = "Authorization"
	bearer        = "Bearer "
	sessionCookie = "wod_token"
)

// withAuth verifies the session credential and attaches the claims to the
// request context. The token carries identity only; role checks happen
// against the store in requireElevated.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractToken(r)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.sessions.Verify(token)
		if err != nil {
			writeError(w, r, http.StatusForbidden, "invalid token")
			return
		}

		ctx := auth.ContextWithClaims(r.Context(), *claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireElevated re-reads the acting user from the store and admits only
// admins and owners. Roles are never trusted from the token.
func (a *API) requireElevated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "missing credentials")
			return
		}
		user, err := a.accounts.UserByUsername(r.Context(), claims.Username)
		if err != nil {
			if errors.Is(err, accounts.ErrNotFound) {
				writeError(w, r, http.StatusNotFound, "unknown user")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authorization check failed")
			return
		}
		if !user.Elevated() {
			writeError(w, r, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken takes the credential from the Authorization header or,
// failing that, the session cookie set by the login callback.
func extractToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header != "" {
		if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
			return "", errors.New("invalid authorization scheme")
		}
		token := strings.TrimSpace(header[len(bearer):])
		if token == "" {
			return "", errors.New("missing bearer token")
		}
		return token, nil
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", errors.New("missing credentials")
}
