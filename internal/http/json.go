package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/shepherd-church/shepherd/internal/errors"
)

// Error codes written in the "error" field of JSON error bodies.
const (
	errCodeAuthRequired        = "authentication_required"
	errCodeInsufficientPerms   = "insufficient_permissions"
	errCodePrivilegeEscalation = "privilege_escalation_rejected"
	errCodeValidation          = "validation_error"
	errCodeNotFound            = "not_found"
	errCodeConflict            = "conflict"
	errCodeInternal            = "internal_error"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
	Field   string
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	body := map[string]string{"error": p.ErrCode, "message": p.Err.Error()}
	if p.Field != "" {
		body["field"] = p.Field
	}
	WriteJSON(w, p.Code, body)
}

// statusForError maps an application error onto an HTTP status and error code.
func statusForError(err error) (int, string) {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeUnauthenticated:
		return http.StatusUnauthorized, errCodeAuthRequired
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden, errCodeInsufficientPerms
	case apperrors.ErrCodePrivilegeEscalation:
		return http.StatusForbidden, errCodePrivilegeEscalation
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest, errCodeValidation
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, errCodeNotFound
	case apperrors.ErrCodeConflict:
		return http.StatusConflict, errCodeConflict
	default:
		return http.StatusInternalServerError, errCodeInternal
	}
}

// WriteServiceError writes err using the application error taxonomy. Internal
// errors are logged and their message is replaced with a generic one.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code, errCode := statusForError(err)
	if code >= http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		err = errors.New(http.StatusText(code))
	}

	msg := err
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		msg = errors.New(appErr.Message)
	}
	WriteError(w, ErrorParams{Code: code, ErrCode: errCode, Err: msg, Field: apperrors.GetField(err)})
}
