package http

import (
	"net/http"
	"regexp"
	"unicode"

	"github.com/kavineksith/user-management-api/pkg/httpx"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{4,30}$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func validateUsername(username string) *httpx.FieldError {
	if !usernamePattern.MatchString(username) {
		return &httpx.FieldError{
			Field:   "username",
			Message: "Username must be 4-30 characters and contain only letters, numbers and underscores",
		}
	}
	return nil
}

func validateEmail(email string) *httpx.FieldError {
	if !emailPattern.MatchString(email) {
		return &httpx.FieldError{Field: "email", Message: "Please provide a valid email address"}
	}
	return nil
}

// validatePassword enforces the composition policy: at least 8 characters
// with an upper-case letter, a lower-case letter, a digit and a symbol.
func validatePassword(field, password string) *httpx.FieldError {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	if len(password) < 8 || !upper || !lower || !digit || !special {
		return &httpx.FieldError{
			Field:   field,
			Message: "Password must be at least 8 characters and include uppercase, lowercase, number and special character",
		}
	}
	return nil
}

func validatePasswordConfirm(password, confirm string) *httpx.FieldError {
	if password != confirm {
		return &httpx.FieldError{Field: "passwordConfirm", Message: "Passwords do not match"}
	}
	return nil
}

// collectFieldErrors filters out the nils so call sites can list checks
// unconditionally.
func collectFieldErrors(errs ...*httpx.FieldError) []httpx.FieldError {
	var out []httpx.FieldError
	for _, e := range errs {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out
}

// decodeJSON is a small wrapper that rejects bodies that are not valid JSON
// with the standard envelope.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := readJSON(r, dst); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
