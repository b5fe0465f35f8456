package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kavineksith/user-management-api/internal/api/domain"
	"github.com/kavineksith/user-management-api/internal/api/service"
	"github.com/kavineksith/user-management-api/internal/api/store"
	"github.com/kavineksith/user-management-api/internal/api/store/drivers/sqlite"
	"github.com/kavineksith/user-management-api/pkg/httpx"
	"github.com/kavineksith/user-management-api/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const routerTestPassword = "Sup3r$ecret!"

func newTestRouter(t *testing.T) (*Router, store.Store) {
	t.Helper()

	// httptest requests originate from 192.0.2.1; skip rate limiting so
	// multi-request scenarios do not trip the auth profile.
	t.Setenv("TRUSTED_IPS", "192.0.2.1")

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer := jwtx.NewSigner("router-secret", 0, 0)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRouter(signer, st, logger, "dev", httpx.DefaultCORSConfig())
	r.AccountService = &service.AccountService{
		Store:  st,
		Tokens: &service.TokenService{Signer: signer},
	}
	r.UserService = &service.UserService{Store: st}
	r.ApplyRoutes()

	return r, st
}

func doJSON(r *Router, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeTokens(t *testing.T, rec *httptest.ResponseRecorder) tokenResponse {
	t.Helper()
	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func registerUser(t *testing.T, r *Router, username, email string) tokenResponse {
	t.Helper()
	rec := doJSON(r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username":        username,
		"email":           email,
		"password":        routerTestPassword,
		"passwordConfirm": routerTestPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeTokens(t, rec)
}

func TestRegister(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username":        "alice",
		"email":           "alice@example.com",
		"password":        routerTestPassword,
		"passwordConfirm": routerTestPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeTokens(t, rec)
	require.Equal(t, "success", resp.Status)
	require.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "alice@example.com", resp.Data.User.Email)
	require.Equal(t, domain.RoleUser, resp.Data.User.Role)

	// Credential material must never appear in the payload.
	require.NotContains(t, rec.Body.String(), "password")

	var jwtCookie, refreshCookie bool
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case accessCookieName:
			jwtCookie = true
			require.True(t, c.HttpOnly)
		case refreshCookieName:
			refreshCookie = true
			require.True(t, c.HttpOnly)
		}
	}
	require.True(t, jwtCookie, "jwt cookie set")
	require.True(t, refreshCookie, "refreshToken cookie set")
}

func TestRegister_Validation(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username":        "ab", // too short
		"email":           "not-an-email",
		"password":        "weak",
		"passwordConfirm": "other",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "error", body.Status)
	require.Equal(t, "Validation error", body.Message)
	require.Len(t, body.Errors, 4)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	r, _ := newTestRouter(t)

	registerUser(t, r, "bobby", "bob@example.com")

	rec := doJSON(r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username":        "bob_two",
		"email":           "bob@example.com",
		"password":        routerTestPassword,
		"passwordConfirm": routerTestPassword,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Email already in use")
}

func TestLoginAndMe(t *testing.T) {
	r, _ := newTestRouter(t)
	registerUser(t, r, "carol", "carol@example.com")

	rec := doJSON(r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "carol@example.com",
		"password": routerTestPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeTokens(t, rec)

	rec = doJSON(r, http.MethodGet, "/api/auth/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "carol@example.com")

	// Wrong password and unknown email read identically.
	rec = doJSON(r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "carol@example.com", "password": "Wr0ng$pass!",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Incorrect email or password")

	rec = doJSON(r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ghost@example.com", "password": routerTestPassword,
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Incorrect email or password")

	rec = doJSON(r, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshToken(t *testing.T) {
	r, _ := newTestRouter(t)
	initial := registerUser(t, r, "dave", "dave@example.com")

	// Via body.
	rec := doJSON(r, http.MethodPost, "/api/auth/refresh-token", "", map[string]string{
		"refreshToken": initial.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, decodeTokens(t, rec).Token)

	// Via cookie.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh-token", bytes.NewReader([]byte("{}")))
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: initial.RefreshToken})
	req.Header.Set("Authorization", "Bearer "+initial.Token) // bearer exempts CSRF
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// An access token is not a refresh token.
	rec = doJSON(r, http.MethodPost, "/api/auth/refresh-token", "", map[string]string{
		"refreshToken": initial.Token,
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// No token anywhere reads as a missing credential, not a bad request.
	rec = doJSON(r, http.MethodPost, "/api/auth/refresh-token", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Please provide a refresh token")
}

func TestLogout(t *testing.T) {
	r, _ := newTestRouter(t)
	session := registerUser(t, r, "erin", "erin@example.com")

	rec := doJSON(r, http.MethodPost, "/api/auth/logout", session.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == accessCookieName || c.Name == refreshCookieName {
			require.Equal(t, "loggedout", c.Value)
			require.LessOrEqual(t, c.MaxAge, 10)
		}
	}
}

func TestPasswordFlows(t *testing.T) {
	r, _ := newTestRouter(t)
	registerUser(t, r, "frank", "frank@example.com")

	// Unknown email.
	rec := doJSON(r, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
		"email": "ghost@example.com",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "There is no user with this email address")

	// Issue a reset token.
	rec = doJSON(r, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
		"email": "frank@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var forgot forgotPasswordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forgot))
	require.NotEmpty(t, forgot.ResetToken)

	// Bad token.
	rec = doJSON(r, http.MethodPost, "/api/auth/reset-password/bogus", "", map[string]string{
		"password": "N3w$ecret!pass", "passwordConfirm": "N3w$ecret!pass",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Token is invalid or has expired")

	// Good token logs the user straight in.
	rec = doJSON(r, http.MethodPost, "/api/auth/reset-password/"+forgot.ResetToken, "", map[string]string{
		"password": "N3w$ecret!pass", "passwordConfirm": "N3w$ecret!pass",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fresh := decodeTokens(t, rec)
	require.NotEmpty(t, fresh.Token)

	// Old password is gone.
	rec = doJSON(r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "frank@example.com", "password": routerTestPassword,
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Change it again through update-password.
	rec = doJSON(r, http.MethodPost, "/api/auth/update-password", fresh.Token, map[string]string{
		"passwordCurrent": "WrongCurrent1!",
		"password":        "Fin4l$ecret!",
		"passwordConfirm": "Fin4l$ecret!",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Your current password is incorrect")

	rec = doJSON(r, http.MethodPost, "/api/auth/update-password", fresh.Token, map[string]string{
		"passwordCurrent": "N3w$ecret!pass",
		"password":        "Fin4l$ecret!",
		"passwordConfirm": "Fin4l$ecret!",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "frank@example.com", "password": "Fin4l$ecret!",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateMe_RejectsProtectedFields(t *testing.T) {
	r, st := newTestRouter(t)
	session := registerUser(t, r, "grace", "grace@example.com")

	rec := doJSON(r, http.MethodPatch, "/api/users/me", session.Token, map[string]string{
		"role": domain.RoleAdmin,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "dedicated endpoints")

	// The role must be untouched.
	u, err := st.Users().GetByEmail(context.Background(), "grace@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, u.Role)

	for _, field := range []string{"password", "is_active", "isActive", "active"} {
		rec = doJSON(r, http.MethodPatch, "/api/users/me", session.Token, map[string]any{
			field: "x",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code, "field %q must be rejected", field)
	}
}

func TestUpdateMe(t *testing.T) {
	r, _ := newTestRouter(t)
	session := registerUser(t, r, "henry", "henry@example.com")

	rec := doJSON(r, http.MethodPatch, "/api/users/me", session.Token, map[string]string{
		"username": "henry_renamed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp userResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "henry_renamed", resp.Data.User.Username)
	require.Equal(t, "henry@example.com", resp.Data.User.Email)
}

func TestDeleteMe(t *testing.T) {
	r, _ := newTestRouter(t)
	session := registerUser(t, r, "iris", "iris@example.com")

	rec := doJSON(r, http.MethodDelete, "/api/users/me", session.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The session dies with the account.
	rec = doJSON(r, http.MethodGet, "/api/auth/me", session.Token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), msgUserGone)
}

func TestAdminRoutes_RoleEnforcement(t *testing.T) {
	r, st := newTestRouter(t)
	session := registerUser(t, r, "judy", "judy@example.com")

	// Plain users get 403 on the listing.
	rec := doJSON(r, http.MethodGet, "/api/users", session.Token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), msgForbidden)

	// Promote at the store level, log in again, and the listing opens up.
	u, err := st.Users().GetByEmail(context.Background(), "judy@example.com")
	require.NoError(t, err)
	require.NoError(t, st.Users().SetRole(context.Background(), u.ID, domain.RoleAdmin))

	rec = doJSON(r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "judy@example.com", "password": routerTestPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	admin := decodeTokens(t, rec)

	rec = doJSON(r, http.MethodGet, "/api/users", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list listUsersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Results)
	require.Equal(t, "judy", list.Data.Users[0].Username)
}

func TestAdminRoutes_ManageUsers(t *testing.T) {
	r, st := newTestRouter(t)

	admin := registerUser(t, r, "admin_kate", "kate@example.com")
	target := registerUser(t, r, "target_liam", "liam@example.com")

	adminRow, err := st.Users().GetByEmail(context.Background(), "kate@example.com")
	require.NoError(t, err)
	require.NoError(t, st.Users().SetRole(context.Background(), adminRow.ID, domain.RoleAdmin))

	// Tokens embed no role, so the pre-promotion token still works; the gate
	// reloads the user each request.
	rec := doJSON(r, http.MethodGet, "/api/users/"+target.Data.User.ID, admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "liam@example.com")

	rec = doJSON(r, http.MethodGet, "/api/users/nope", admin.Token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(r, http.MethodPatch, "/api/users/"+target.Data.User.ID, admin.Token, map[string]string{
		"username": "liam_managed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Admin PATCH is still profile-only.
	rec = doJSON(r, http.MethodPatch, "/api/users/"+target.Data.User.ID, admin.Token, map[string]string{
		"role": domain.RoleAdmin,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(r, http.MethodDelete, "/api/users/"+target.Data.User.ID, admin.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(r, http.MethodDelete, "/api/users/"+target.Data.User.ID, admin.Token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// The target's own session is gone too.
	rec = doJSON(r, http.MethodGet, "/api/auth/me", target.Token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsersPagination(t *testing.T) {
	r, st := newTestRouter(t)

	for i := range 5 {
		registerUser(t, r, fmt.Sprintf("user_%d", i), fmt.Sprintf("user%d@example.com", i))
	}

	first, err := st.Users().GetByEmail(context.Background(), "user0@example.com")
	require.NoError(t, err)
	require.NoError(t, st.Users().SetRole(context.Background(), first.ID, domain.RoleAdmin))

	rec := doJSON(r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "user0@example.com", "password": routerTestPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	admin := decodeTokens(t, rec)

	rec = doJSON(r, http.MethodGet, "/api/users?page=2&limit=3", admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list listUsersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 2, list.Results)
}

func TestSystemRoutes(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(r, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "API is running")

	rec = doJSON(r, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body httpx.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "error", body.Status)
	require.Contains(t, body.Message, "/api/nope")
}
