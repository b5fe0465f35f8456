package httpx

import (
	"net/http"

	"github.com/kavineksith/user-management-api/pkg/slogx"
)

// ErrorBody is the stable error envelope every failure response carries:
// a "status":"error" discriminator, a human message, and the request ID for
// log correlation.
type ErrorBody struct {
	Status    string       `json:"status"`
	Message   string       `json:"message"`
	RequestID string       `json:"requestId,omitempty"`
	Errors    []FieldError `json:"errors,omitempty"`
	Detail    string       `json:"detail,omitempty"`
}

// FieldError reports a validation failure for a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// WriteError writes the standard error envelope.
func WriteError(w http.ResponseWriter, r *http.Request, code int, message string) {
	WriteJSON(w, code, ErrorBody{
		Status:    "error",
		Message:   message,
		RequestID: slogx.RequestIDFromContext(r.Context()),
	})
}

// WriteFieldErrors writes a 400 validation failure with per-field messages.
func WriteFieldErrors(w http.ResponseWriter, r *http.Request, errs []FieldError) {
	WriteJSON(w, http.StatusBadRequest, ErrorBody{
		Status:    "error",
		Message:   "Validation error",
		RequestID: slogx.RequestIDFromContext(r.Context()),
		Errors:    errs,
	})
}

// WriteInternalError logs err with the request logger and answers with a
// generic message. In dev the detail string is included to save a round trip
// to the logs; in any other env internals stay suppressed.
func WriteInternalError(w http.ResponseWriter, r *http.Request, env string, err error) {
	slogx.FromContext(r.Context()).Error("internal error", "err", err)

	body := ErrorBody{
		Status:    "error",
		Message:   "Internal Server Error",
		RequestID: slogx.RequestIDFromContext(r.Context()),
	}
	if env == "dev" && err != nil {
		body.Detail = err.Error()
	}
	WriteJSON(w, http.StatusInternalServerError, body)
}
