package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewDefaultsHeader(t *testing.T) {
	if got := New("  ").Header; got != DefaultHeader {
		t.Errorf("Header = %q", got)
	}
	if got := New("X-Forwarded-User").Header; got != "X-Forwarded-User" {
		t.Errorf("Header = %q", got)
	}
}

func TestUserID(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"plain", "alice", "alice"},
		{"trimmed", "  alice  ", "alice"},
		{"email", "alice@example.com", "alice@example.com"},
		{"missing", "", ""},
		{"slash", "a/b", ""},
		{"cache key separator", "a|b", ""},
		{"dot dot", "..", ""},
		{"inner space", "a b", ""},
		{"too long", strings.Repeat("x", 129), ""},
	}
	a := New("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.value != "" {
				req.Header.Set(DefaultHeader, tt.value)
			}
			if got := a.UserID(req); got != tt.want {
				t.Errorf("UserID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	var seen string
	h := New("").Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Sign in") || rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("body = %q", rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set(DefaultHeader, "u1")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || seen != "u1" {
		t.Errorf("status = %d, user = %q", rr.Code, seen)
	}
}

func TestFromContextEmpty(t *testing.T) {
	if got := FromContext(context.Background()); got != "" {
		t.Errorf("FromContext = %q", got)
	}
	if got := FromContext(WithUser(context.Background(), "u2")); got != "u2" {
		t.Errorf("FromContext = %q", got)
	}
}
