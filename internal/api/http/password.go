package http

import (
	"errors"
	"net/http"

	"github.com/kavineksith/user-management-api/internal/api/service"
	"github.com/kavineksith/user-management-api/pkg/httpx"
)

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type forgotPasswordResponse struct {
	Status string `json:"status"`
	// ResetToken is the plaintext token, surfaced in the response because
	// this deployment has no mail transport. It is shown exactly once.
	ResetToken string `json:"resetToken"`
}

// HandleForgotPassword issues a short-lived password reset token.
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if fe := validateEmail(req.Email); fe != nil {
		httpx.WriteFieldErrors(w, r, []httpx.FieldError{*fe})
		return
	}

	token, err := h.Accounts.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrNoSuchUser) {
			httpx.WriteError(w, r, http.StatusNotFound, "There is no user with this email address")
			return
		}
		httpx.WriteInternalError(w, r, h.Env, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, forgotPasswordResponse{
		Status:     "success",
		ResetToken: token,
	})
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// HandleResetPassword consumes the reset token from the path and sets a new
// password, logging the user straight in with a fresh pair.
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errs := collectFieldErrors(
		validatePassword("password", req.Password),
		validatePasswordConfirm(req.Password, req.PasswordConfirm),
	); len(errs) > 0 {
		httpx.WriteFieldErrors(w, r, errs)
		return
	}

	u, pair, err := h.Accounts.ResetPassword(r.Context(), token, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrResetTokenInvalid) {
			httpx.WriteError(w, r, http.StatusBadRequest, "Token is invalid or has expired")
			return
		}
		httpx.WriteInternalError(w, r, h.Env, err)
		return
	}

	writeTokenPair(w, http.StatusOK, u, pair, h.Cookies)
}

type updatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// HandleUpdatePassword changes the logged-in user's password after
// re-verifying the current one.
func (h *AuthHandler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, http.StatusUnauthorized, msgNotLoggedIn)
		return
	}

	var req updatePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errs := collectFieldErrors(
		validatePassword("password", req.Password),
		validatePasswordConfirm(req.Password, req.PasswordConfirm),
	); len(errs) > 0 {
		httpx.WriteFieldErrors(w, r, errs)
		return
	}

	updated, pair, err := h.Accounts.UpdatePassword(r.Context(), u.ID, req.PasswordCurrent, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWrongPassword):
			httpx.WriteError(w, r, http.StatusUnauthorized, "Your current password is incorrect")
		case errors.Is(err, service.ErrNoSuchUser):
			httpx.WriteError(w, r, http.StatusUnauthorized, msgUserGone)
		default:
			httpx.WriteInternalError(w, r, h.Env, err)
		}
		return
	}

	writeTokenPair(w, http.StatusOK, updated, pair, h.Cookies)
}
