package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: slog.LevelDebug, Component: component, Output: &buf}), &buf
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "warn": slog.LevelWarn,
		"warning": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	l, buf := newBufferLogger(ComponentBudget)
	l.Info("hello", FieldUserID, "u1")
	out := buf.String()
	if !strings.Contains(out, "component=budget") || !strings.Contains(out, "user_id=u1") {
		t.Fatalf("unexpected output: %s", out)
	}

	buf.Reset()
	w := l.WithComponent(ComponentWorker)
	w.Info("sync")
	if w.Component() != ComponentWorker || !strings.Contains(buf.String(), "component=worker") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestMiddlewareCarriesLogger(t *testing.T) {
	l, buf := newBufferLogger(ComponentHTTP)
	var got *Logger
	h := Middleware(l)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.Info("inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("request id not attached: %s", buf.String())
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("unexpected fallback: %+v", l)
	}
}

func TestStructuredLogger(t *testing.T) {
	l, buf := newBufferLogger(ComponentHTTP)
	sl := NewStructuredLogger(l)

	r := httptest.NewRequest(http.MethodGet, "/api/dashboard?period=Today", nil)
	sl.LogHTTPEnd(context.Background(), r, 503, 12, "1.2.3.4")
	if out := buf.String(); !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "status_code=503") {
		t.Fatalf("unexpected: %s", out)
	}

	buf.Reset()
	sl.LogRecordChanged(context.Background(), OpCreate, "u1", "goals", "g1")
	if out := buf.String(); !strings.Contains(out, "record_id=g1") || !strings.Contains(out, "collection=goals") {
		t.Fatalf("unexpected: %s", out)
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("disk full"), OpSync, nil)
	if out := buf.String(); !strings.Contains(out, `error="disk full"`) || !strings.Contains(out, "operation=sync") {
		t.Fatalf("unexpected: %s", out)
	}
}
