package http

import (
	"errors"
	"net/http"

	"github.com/kavineksith/user-management-api/internal/api/service"
	"github.com/kavineksith/user-management-api/pkg/httpx"
)

// AuthHandler serves the credential endpoints: registration, login, logout,
// token refresh and the current-user lookup.
type AuthHandler struct {
	Accounts *service.AccountService
	Cookies  cookieOptions
	Env      string
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errs := collectFieldErrors(
		validateUsername(req.Username),
		validateEmail(req.Email),
		validatePassword("password", req.Password),
		validatePasswordConfirm(req.Password, req.PasswordConfirm),
	); len(errs) > 0 {
		httpx.WriteFieldErrors(w, r, errs)
		return
	}

	u, pair, err := h.Accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			httpx.WriteError(w, r, http.StatusBadRequest, "Email already in use")
			return
		}
		httpx.WriteInternalError(w, r, h.Env, err)
		return
	}

	writeTokenPair(w, http.StatusCreated, u, pair, h.Cookies)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, r, http.StatusBadRequest, "Please provide email and password")
		return
	}

	u, pair, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadCredentials):
			httpx.WriteError(w, r, http.StatusUnauthorized, "Incorrect email or password")
		case errors.Is(err, service.ErrAccountDisabled):
			httpx.WriteError(w, r, http.StatusUnauthorized, "Your account has been deactivated")
		default:
			httpx.WriteInternalError(w, r, h.Env, err)
		}
		return
	}

	writeTokenPair(w, http.StatusOK, u, pair, h.Cookies)
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookies(w, h.Cookies.Secure)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// HandleRefresh exchanges a refresh token, taken from the request body or
// the refreshToken cookie, for a new pair.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token := req.RefreshToken
	if token == "" {
		if c, err := r.Cookie(refreshCookieName); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		httpx.WriteError(w, r, http.StatusUnauthorized, "Please provide a refresh token")
		return
	}

	u, pair, err := h.Accounts.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadCredentials),
			errors.Is(err, service.ErrNoSuchUser),
			errors.Is(err, service.ErrAccountDisabled):
			httpx.WriteError(w, r, http.StatusUnauthorized, msgInvalidToken)
		default:
			httpx.WriteInternalError(w, r, h.Env, err)
		}
		return
	}

	writeTokenPair(w, http.StatusOK, u, pair, h.Cookies)
}

// HandleMe returns the authenticated user's own record.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, http.StatusUnauthorized, msgNotLoggedIn)
		return
	}
	writeUser(w, http.StatusOK, u)
}
