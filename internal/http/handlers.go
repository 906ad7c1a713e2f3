package http

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"budgethero/internal/auth"
	"budgethero/internal/blob"
	"budgethero/internal/log"
)

// readyTimeout bounds the store check behind /readyz.
const readyTimeout = 5 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK

	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			checks["store"] = "failed"
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request, security and stream metrics in
// Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	metric := func(name, kind, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %d\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("dashboard_streams", "gauge", "Open dashboard streams", s.streams.Load())
	if s.cacheSize != nil {
		metric("dashboard_cache_entries", "gauge", "Cached dashboard views", int64(s.cacheSize()))
	}
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var req onboardingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := auth.FromContext(r.Context())
	if _, err := s.svc.Onboard(r.Context(), userID, req.input()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.writeProfile(w, r, http.StatusCreated, userID)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	s.writeProfile(w, r, http.StatusOK, auth.FromContext(r.Context()))
}

// writeProfile answers with the income and the canonical fixed expenses.
func (s *Server) writeProfile(w http.ResponseWriter, r *http.Request, status int, userID string) {
	p, err := s.svc.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	fixed, err := s.svc.ListFixedExpenses(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, profileDTO{
		MonthlyIncome: s.dto.money(p.MonthlyIncome),
		FixedExpenses: s.dto.fixedExpenses(fixed),
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := auth.FromContext(r.Context())
	if _, err := s.svc.SetMonthlyIncome(r.Context(), userID, string(req.MonthlyIncome)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.writeProfile(w, r, http.StatusOK, userID)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if v := sanitizeInput(r.URL.Query().Get("since")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, msgInvalidDate)
			return
		}
		since = t
	}
	txns, err := s.svc.ListTransactions(r.Context(), auth.FromContext(r.Context()), since)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dto.transactions(txns))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.input()
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidDate)
		return
	}
	t, err := s.svc.AddTransaction(r.Context(), auth.FromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.dto.transaction(t))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.GetTransaction(r.Context(), auth.FromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dto.transaction(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.input()
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, msgInvalidDate)
		return
	}
	t, err := s.svc.UpdateTransaction(r.Context(), auth.FromContext(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dto.transaction(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTransaction(r.Context(), auth.FromContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.ListCategories(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dto.categories(cats))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.svc.AddCategory(r.Context(), auth.FromContext(r.Context()), sanitizeInput(req.Name), sanitizeInput(req.Colour))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.dto.category(c))
}

// handleDeleteCategory removes the category only; its transactions keep
// their category name and fall back to a palette colour.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCategory(r.Context(), auth.FromContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.svc.ListGoals(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dto.goals(goals))
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, err := s.svc.AddGoal(r.Context(), auth.FromContext(r.Context()), sanitizeInput(req.Name), string(req.Min), string(req.Max))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.dto.goal(g))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteGoal(r.Context(), auth.FromContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFixedExpenses(w http.ResponseWriter, r *http.Request) {
	fixed, err := s.svc.ListFixedExpenses(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dto.fixedExpenses(fixed))
}

func (s *Server) handleCreateFixedExpense(w http.ResponseWriter, r *http.Request) {
	var req fixedExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := s.svc.AddFixedExpense(r.Context(), auth.FromContext(r.Context()), req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.dto.fixedExpense(f))
}

func (s *Server) handleDeleteFixedExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteFixedExpense(r.Context(), auth.FromContext(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadReceipt stores the "receipt" part of a multipart form and
// returns its URL. The part must sniff as an image.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBody)
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, msgMalformedBody)
		return
	}

	for {
		part, err := mr.NextPart()
		if err != nil {
			writeError(w, http.StatusBadRequest, msgMalformedBody)
			return
		}
		if part.FormName() != "receipt" {
			part.Close()
			continue
		}

		br := bufio.NewReaderSize(part, 512)
		head, _ := br.Peek(512)
		contentType := http.DetectContentType(head)
		if !strings.HasPrefix(contentType, "image/") {
			part.Close()
			writeError(w, http.StatusUnprocessableEntity, msgNotAnImage)
			return
		}

		url, err := s.svc.UploadReceipt(r.Context(), auth.FromContext(r.Context()), contentType, br)
		part.Close()
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"url": url})
		return
	}
}

// handleFile serves a stored receipt to its owner. Keys are
// users/{user}/receipts/{name}.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	key, err := blob.CleanKey(r.PathValue("key"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	userID := auth.FromContext(r.Context())
	if !strings.HasPrefix(key, "users/"+userID+"/") {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	data, err := s.files.Get(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
