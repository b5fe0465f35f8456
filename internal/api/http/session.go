package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kavineksith/user-management-api/internal/api/service"
	"github.com/kavineksith/user-management-api/internal/api/store"
	"github.com/kavineksith/user-management-api/pkg/httpx"
	"github.com/kavineksith/user-management-api/pkg/jwtx"
	"github.com/kavineksith/user-management-api/pkg/slogx"
)

const (
	msgNotLoggedIn     = "You are not logged in. Please log in to get access."
	msgInvalidToken    = "Invalid token. Please log in again."
	msgExpiredToken    = "Your token has expired. Please log in again."
	msgUserGone        = "The user belonging to this token no longer exists."
	msgPasswordChanged = "User recently changed password. Please log in again."
	msgForbidden       = "You do not have permission to perform this action"
)

// SessionMiddleware authenticates requests with an access token, taken from
// the Authorization header or, failing that, the jwt cookie. The full user
// record is loaded on every request so deletions, deactivations and password
// changes take effect immediately rather than at token expiry.
func SessionMiddleware(signer *jwtx.Signer, st store.Store) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				httpx.WriteError(w, r, http.StatusUnauthorized, msgNotLoggedIn)
				return
			}

			claims, err := signer.Verify(token)
			if err != nil {
				if errors.Is(err, jwtx.ErrExpired) {
					httpx.WriteError(w, r, http.StatusUnauthorized, msgExpiredToken)
					return
				}
				httpx.WriteError(w, r, http.StatusUnauthorized, msgInvalidToken)
				return
			}

			// A refresh token must never open a session.
			if claims.IsRefresh() {
				httpx.WriteError(w, r, http.StatusUnauthorized, msgInvalidToken)
				return
			}

			u, err := st.Users().GetByID(r.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					httpx.WriteError(w, r, http.StatusUnauthorized, msgUserGone)
					return
				}
				slogx.FromContext(r.Context()).Error("session user lookup failed", "err", err)
				httpx.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			if !u.IsActive {
				httpx.WriteError(w, r, http.StatusUnauthorized, msgUserGone)
				return
			}

			if service.TokenPredatesPasswordChange(claims, &u) {
				httpx.WriteError(w, r, http.StatusUnauthorized, msgPasswordChanged)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
		})
	}
}

// RequireRoles gates a route to the listed roles. Must run after
// SessionMiddleware; a missing context user means the chain is miswired.
func RequireRoles(roles ...string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				slogx.FromContext(r.Context()).Error("role gate reached without session user")
				httpx.WriteError(w, r, http.StatusInternalServerError, "Internal Server Error")
				return
			}

			for _, role := range roles {
				if u.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			httpx.WriteError(w, r, http.StatusForbidden, msgForbidden)
		})
	}
}

// extractToken pulls the access token from the Authorization header, falling
// back to the jwt cookie for browser clients.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c, err := r.Cookie(accessCookieName); err == nil {
		return c.Value
	}
	return ""
}
