package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"studio/internal/adapters/http/middleware"
	"studio/internal/adapters/storage"
	"studio/internal/application/orchestrators"
	"studio/internal/domain/account"
	"studio/internal/domain/instructor"
	"studio/internal/domain/outbox"
	"studio/internal/domain/schedule"
	"studio/internal/domain/session"
	"studio/internal/domain/viewer"
)

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// optionalDecode is strictDecode for endpoints whose body may be absent.
func optionalDecode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := strictDecode(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err.Error())
	}
}

// errorBody is the JSON error shape returned to clients.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps domain errors to HTTP statuses. Anything unrecognised is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *session.ValidationError
	status := http.StatusInternalServerError
	body := errorBody{Error: err.Error()}

	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body = errorBody{Error: verr.Error(), Field: verr.Field}
	case errors.Is(err, orchestrators.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, orchestrators.ErrNoDraft):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrPaymentRequired):
		status = http.StatusPaymentRequired
	case errors.Is(err, session.ErrCapacityExceeded),
		errors.Is(err, schedule.ErrBookingClosed),
		errors.Is(err, instructor.ErrInUse),
		errors.Is(err, account.ErrUsernameTaken),
		errors.Is(err, outbox.ErrTerminal):
		status = http.StatusConflict
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, orchestrators.ErrAccountLocked):
		status = http.StatusLocked
	case isAccountValidation(err), errors.Is(err, instructor.ErrEmptyName):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrUnavailable):
		slog.Error("storage_unavailable", "path", r.URL.Path, "error", err.Error())
		http.Error(w, "service temporarily unavailable", http.StatusServiceUnavailable)
		return
	default:
		internalError(w, err)
		return
	}

	if status >= 400 && status < 500 {
		slog.Info("request_rejected", "method", r.Method, "path", r.URL.Path, "status", status, "reason", body.Error)
	}
	writeJSON(w, status, body)
}

func isAccountValidation(err error) bool {
	for _, target := range []error{
		account.ErrEmptyName, account.ErrEmptyUsername, account.ErrInvalidUsername,
		account.ErrInvalidEmail, account.ErrInvalidRole, account.ErrEmptyPassword,
		account.ErrPasswordTooShort,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// badRequest reports malformed input that never reached an orchestrator.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// currentViewer resolves the request's viewer. Payment state is read from the
// account on every call so an admin's change applies immediately.
// A session whose account has since been deleted is treated as a guest.
func currentViewer(r *http.Request) (viewer.Viewer, error) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		return viewer.Guest(), nil
	}
	acct, err := stores.AccountStore.GetByID(r.Context(), sess.AccountID)
	if errors.Is(err, storage.ErrNotFound) {
		return viewer.Guest(), nil
	}
	if err != nil {
		return viewer.Viewer{}, err
	}
	return viewer.FromAccount(acct), nil
}

// requireViewer resolves the viewer and writes the error response on failure.
func requireViewer(w http.ResponseWriter, r *http.Request) (viewer.Viewer, bool) {
	v, err := currentViewer(r)
	if err != nil {
		writeError(w, r, err)
		return viewer.Viewer{}, false
	}
	return v, true
}

// requireAdmin blocks anyone but an admin before any store is touched.
func requireAdmin(w http.ResponseWriter, r *http.Request) (viewer.Viewer, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not authenticated"})
		return viewer.Viewer{}, false
	}
	if sess.Role != account.RoleAdmin {
		slog.Warn("auth_denied", "path", r.URL.Path, "account_id", sess.AccountID, "role", sess.Role, "required", "admin")
		writeJSON(w, http.StatusForbidden, errorBody{Error: orchestrators.ErrForbidden.Error()})
		return viewer.Viewer{}, false
	}
	return viewer.Admin(sess.AccountID), true
}

// flexInt accepts a JSON number or a numeric string, since form-driven
// clients post dayOfWeek and capacity as text.
type flexInt struct {
	Value int
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%q is not a whole number", s)
		}
		f.Value, f.Set = n, true
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	f.Value, f.Set = n, true
	return nil
}

// ptr returns a pointer to the value when set, nil otherwise.
func (f flexInt) ptr() *int {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}
