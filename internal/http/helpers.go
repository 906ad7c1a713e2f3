package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"budgethero/internal/blob"
	"budgethero/internal/core"
	"budgethero/internal/log"
	"budgethero/internal/services"
	"budgethero/internal/store"
)

// Request body limits.
const (
	maxJSONBody    = 1 << 20
	maxReceiptBody = 10 << 20
)

// Messages shown to the client for failures that carry no user-facing text.
const (
	msgMalformedBody = "Malformed request body."
	msgInvalidDate   = "Invalid date."
	msgNotFound      = "Not found."
	msgSignIn        = "Sign in to continue."
	msgInternal      = "Something went wrong. Please try again."
	msgNoUploads     = "Receipt uploads are not available."
	msgNotAnImage    = "Upload an image."
	msgRateLimited   = "Too many requests. Please try again later."
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps a service error to a status and a message safe to
// show. Unexpected errors are logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusUnprocessableEntity, ve.Message)
	case errors.Is(err, core.ErrUnknownPeriod),
		errors.Is(err, core.ErrUnknownType),
		errors.Is(err, core.ErrUnknownSort):
		writeError(w, http.StatusBadRequest, capitalize(err.Error())+".")
	case errors.Is(err, store.ErrNotFound), errors.Is(err, blob.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, blob.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, msgNotFound)
	case errors.Is(err, services.ErrNoUser):
		writeError(w, http.StatusUnauthorized, msgSignIn)
	case errors.Is(err, services.ErrNoBlobStore):
		writeError(w, http.StatusServiceUnavailable, msgNoUploads)
	default:
		ctx := r.Context()
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err,
			requestOperation(r.Method), log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, ""))
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// requestOperation names the operation a request method performs.
func requestOperation(method string) string {
	switch method {
	case http.MethodPost:
		return log.OpCreate
	case http.MethodPut, http.MethodPatch:
		return log.OpUpdate
	case http.MethodDelete:
		return log.OpDelete
	default:
		return log.OpRead
	}
}

// decodeJSON reads a single JSON object from the body into v. Unknown
// fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Malformed request body", log.FieldError, err)
		writeError(w, http.StatusBadRequest, msgMalformedBody)
		return false
	}
	if _, err := dec.Token(); err != io.EOF {
		writeError(w, http.StatusBadRequest, msgMalformedBody)
		return false
	}
	return true
}

// sanitizeInput removes control characters except tab, newline and carriage
// return and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// amountField accepts an amount as a JSON string or number and keeps its
// text so the service can report "Invalid numbers." itself.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	text := strings.TrimSpace(string(b))
	switch {
	case text == "null":
		*a = ""
	case strings.HasPrefix(text, `"`):
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		*a = amountField(n.String())
	}
	return nil
}
