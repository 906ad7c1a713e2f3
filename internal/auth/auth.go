// Package auth resolves the signed-in user from a header set by the
// identity-aware proxy in front of the server.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode"
)

// DefaultHeader carries the authenticated user id when none is configured.
const DefaultHeader = "X-User-ID"

// maxUserIDLength bounds ids used in storage keys and blob paths.
const maxUserIDLength = 128

type contextKey struct{}

// Authenticator reads the user id from a trusted request header.
type Authenticator struct {
	Header string
}

func New(header string) *Authenticator {
	if strings.TrimSpace(header) == "" {
		header = DefaultHeader
	}
	return &Authenticator{Header: header}
}

// UserID returns the user id carried by r, or "" when the header is missing
// or unusable as a storage key.
func (a *Authenticator) UserID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(a.Header))
	if !validUserID(id) {
		return ""
	}
	return id
}

func validUserID(id string) bool {
	if id == "" || len(id) > maxUserIDLength || id == "." || id == ".." {
		return false
	}
	for _, r := range id {
		if r == '/' || r == '\\' || r == '|' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// Middleware rejects requests without a user and stores the user in the
// request context for the handlers below.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := a.UserID(r)
		if id == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Sign in to continue."})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), id)))
	})
}

// WithUser returns ctx carrying the user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// FromContext returns the user id stored by Middleware, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
