package http

import (
	"net/http"
	"time"

	"github.com/kavineksith/user-management-api/internal/api/domain"
	"github.com/kavineksith/user-management-api/pkg/httpx"
)

const (
	accessCookieName  = "jwt"
	refreshCookieName = "refreshToken"
)

// tokenResponse is the envelope returned by every endpoint that issues a
// token pair. Tokens ride both in the body (API clients) and in httpOnly
// cookies (browser clients).
type tokenResponse struct {
	Status       string   `json:"status"`
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	Data         userData `json:"data"`
}

type userData struct {
	User domain.PublicUser `json:"user"`
}

type userResponse struct {
	Status string   `json:"status"`
	Data   userData `json:"data"`
}

// cookieOptions is the part of cookie policy that depends on deployment.
type cookieOptions struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// writeTokenPair sets the session cookies and writes the token envelope.
func writeTokenPair(w http.ResponseWriter, code int, u domain.User, pair domain.TokenPair, opts cookieOptions) {
	setSessionCookie(w, accessCookieName, pair.AccessToken, opts.AccessTTL, opts.Secure)
	setSessionCookie(w, refreshCookieName, pair.RefreshToken, opts.RefreshTTL, opts.Secure)

	httpx.WriteJSON(w, code, tokenResponse{
		Status:       "success",
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Data:         userData{User: u.Public()},
	})
}

// writeUser writes the sanitized single-user envelope.
func writeUser(w http.ResponseWriter, code int, u domain.User) {
	httpx.WriteJSON(w, code, userResponse{
		Status: "success",
		Data:   userData{User: u.Public()},
	})
}

// clearSessionCookies overwrites both session cookies with a short-lived
// placeholder. Logout is purely client-side; the tokens themselves stay
// valid until expiry.
func clearSessionCookies(w http.ResponseWriter, secure bool) {
	setSessionCookie(w, accessCookieName, "loggedout", 10*time.Second, secure)
	setSessionCookie(w, refreshCookieName, "loggedout", 10*time.Second, secure)
}

func setSessionCookie(w http.ResponseWriter, name, value string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
