package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"budgethero/internal/auth"
	"budgethero/internal/log"
	"budgethero/internal/services"
)

// handleDashboard returns the one-shot dashboard for ?period=.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Dashboard(r.Context(), auth.FromContext(r.Context()), r.URL.Query().Get("period"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dto.dashboard(view))
}

// handleDashboardStream opens a live dashboard session and streams every
// recomputed view as a server-sent "dashboard" event. Views produced faster
// than the client reads are coalesced to the latest.
func (s *Server) handleDashboardStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.FromContext(ctx)
	logger := log.FromContext(ctx)

	session, err := s.svc.OpenDashboard(ctx, userID, r.URL.Query().Get("period"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer session.Close()

	updates := make(chan services.DashboardView, 1)
	stopWatch := session.Watch(func(v services.DashboardView) {
		select {
		case updates <- v:
			return
		default:
		}
		// drop the stale pending view, then offer the new one
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- v:
		default:
		}
	})
	defer stopWatch()

	rc := http.NewResponseController(w)
	// streams outlive the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	s.streams.Add(1)
	defer s.streams.Add(-1)
	logger.DebugContext(ctx, "Dashboard stream opened", log.FieldUserID, userID)

	send := func(v services.DashboardView) error {
		payload, err := json.Marshal(s.dto.dashboard(v))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: dashboard\ndata: %s\n\n", payload); err != nil {
			return err
		}
		return rc.Flush()
	}

	if err := send(session.View()); err != nil {
		return
	}

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.DebugContext(ctx, "Dashboard stream closed by client", log.FieldUserID, userID)
			return
		case <-s.closing:
			return
		case v := <-updates:
			if err := send(v); err != nil {
				logger.DebugContext(ctx, "Dashboard stream write failed", log.FieldError, err)
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// handleStatements returns the filtered ledger with its summary.
func (s *Server) handleStatements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ledger, err := s.svc.Statement(r.Context(), auth.FromContext(r.Context()), services.StatementQuery{
		Period:   q.Get("period"),
		Category: sanitizeInput(q.Get("category")),
		Type:     q.Get("type"),
		Sort:     q.Get("sort"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dto.statement(ledger))
}

func (s *Server) handleLedgerReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := s.svc.LedgerReport(r.Context(), auth.FromContext(r.Context()), q.Get("period"), q.Get("sort"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dto.report(report))
}

// handleLedgerPDF renders into memory first so a failure still gets a JSON
// error instead of a truncated download.
func (s *Server) handleLedgerPDF(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var buf bytes.Buffer
	report, err := s.svc.WriteLedgerPDF(r.Context(), &buf, auth.FromContext(r.Context()), q.Get("period"), q.Get("sort"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, pdfFilename(report.Period)))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// pdfFilename turns "This month" into "ledger-this-month.pdf".
func pdfFilename(period string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(period), "-"))
	if slug == "" {
		return "ledger.pdf"
	}
	return "ledger-" + slug + ".pdf"
}
