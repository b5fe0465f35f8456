package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/kavineksith/user-management-api/internal/api/domain"
	"github.com/kavineksith/user-management-api/internal/api/service"
	"github.com/kavineksith/user-management-api/pkg/httpx"
)

const msgProtectedFields = "This route is not for password, role or status updates. Please use the dedicated endpoints."

// UsersHandler serves the user-management endpoints: self-service profile
// updates and deletion, plus the admin-gated listing and management routes.
type UsersHandler struct {
	Users *service.UserService
	Env   string
}

type listUsersResponse struct {
	Status  string    `json:"status"`
	Results int       `json:"results"`
	Data    usersData `json:"data"`
}

type usersData struct {
	Users []domain.PublicUser `json:"users"`
}

// HandleList returns one page of users. Admin only.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	users, err := h.Users.List(r.Context(), page, limit)
	if err != nil {
		httpx.WriteInternalError(w, r, h.Env, err)
		return
	}

	public := make([]domain.PublicUser, 0, len(users))
	for i := range users {
		public = append(public, users[i].Public())
	}

	httpx.WriteJSON(w, http.StatusOK, listUsersResponse{
		Status:  "success",
		Results: len(public),
		Data:    usersData{Users: public},
	})
}

// HandleGet returns a single user by id. Admin only.
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrNoSuchUser) {
			httpx.WriteError(w, r, http.StatusNotFound, "No user found with that ID")
			return
		}
		httpx.WriteInternalError(w, r, h.Env, err)
		return
	}
	writeUser(w, http.StatusOK, u)
}

// HandleUpdateMe updates the caller's own profile fields.
func (h *UsersHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, http.StatusUnauthorized, msgNotLoggedIn)
		return
	}
	h.updateProfile(w, r, u.ID)
}

// HandleUpdate updates another user's profile fields. Admin only.
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.updateProfile(w, r, r.PathValue("id"))
}

func (h *UsersHandler) updateProfile(w http.ResponseWriter, r *http.Request, userID string) {
	// Decode into a raw map first so credential and privilege fields can be
	// rejected outright instead of silently dropped.
	var raw map[string]json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return
	}
	if hasProtectedField(raw) {
		httpx.WriteError(w, r, http.StatusBadRequest, msgProtectedFields)
		return
	}

	var username, email string
	if v, ok := raw["username"]; ok {
		if json.Unmarshal(v, &username) != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if v, ok := raw["email"]; ok {
		if json.Unmarshal(v, &email) != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	var errs []httpx.FieldError
	if username != "" {
		errs = append(errs, collectFieldErrors(validateUsername(username))...)
	}
	if email != "" {
		errs = append(errs, collectFieldErrors(validateEmail(email))...)
	}
	if len(errs) > 0 {
		httpx.WriteFieldErrors(w, r, errs)
		return
	}

	updated, err := h.Users.UpdateProfile(r.Context(), userID, username, email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSuchUser):
			httpx.WriteError(w, r, http.StatusNotFound, "No user found with that ID")
		case errors.Is(err, service.ErrDuplicateEmail):
			httpx.WriteError(w, r, http.StatusBadRequest, "Email already in use")
		default:
			httpx.WriteInternalError(w, r, h.Env, err)
		}
		return
	}

	writeUser(w, http.StatusOK, updated)
}

// HandleDeleteMe deletes the caller's own account.
func (h *UsersHandler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, http.StatusUnauthorized, msgNotLoggedIn)
		return
	}
	h.deleteUser(w, r, u.ID)
}

// HandleDelete deletes a user by id. Admin only.
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.deleteUser(w, r, r.PathValue("id"))
}

func (h *UsersHandler) deleteUser(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.Users.Delete(r.Context(), userID); err != nil {
		if errors.Is(err, service.ErrNoSuchUser) {
			httpx.WriteError(w, r, http.StatusNotFound, "No user found with that ID")
			return
		}
		httpx.WriteInternalError(w, r, h.Env, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// hasProtectedField reports whether the payload tries to set a field that
// must only change through its dedicated endpoint.
func hasProtectedField(raw map[string]json.RawMessage) bool {
	for _, field := range []string{
		"password", "passwordConfirm", "passwordCurrent",
		"role", "is_active", "isActive", "active",
	} {
		if _, ok := raw[field]; ok {
			return true
		}
	}
	return false
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
