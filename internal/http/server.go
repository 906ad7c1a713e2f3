// Package http serves the budget JSON API, the live dashboard stream and
// receipt files.
package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"budgethero/internal/auth"
	"budgethero/internal/blob"
	"budgethero/internal/log"
	"budgethero/internal/middleware/ratelimit"
	"budgethero/internal/middleware/security"
	"budgethero/internal/middleware/trace"
	"budgethero/internal/services"
)

// DefaultHeartbeat is how often an idle dashboard stream sends a comment.
const DefaultHeartbeat = 25 * time.Second

// Deps are the collaborators of the server. Only Service is required.
type Deps struct {
	Service *services.BudgetService
	// Files serves receipt blobs under /files; nil when blobs are served
	// elsewhere, e.g. from a GCS bucket.
	Files blob.Store
	// Ready reports whether the backing store can serve requests.
	Ready func(ctx context.Context) error
	Auth  *auth.Authenticator
	// CacheSize reports the dashboard cache size for /metrics.
	CacheSize func() int
	Logger    *log.Logger
	RateLimit ratelimit.Config
	Headers   *security.HeadersConfig
	Heartbeat time.Duration
}

type Server struct {
	http.Server

	svc       *services.BudgetService
	files     blob.Store
	ready     func(ctx context.Context) error
	auth      *auth.Authenticator
	cacheSize func() int
	dto       dtoMapper
	logger    *log.Logger
	heartbeat time.Duration
	started   time.Time

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	// closing is closed on Shutdown so long-lived streams end
	closing      chan struct{}
	streams      atomic.Int64
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:              deps.Service,
		files:            deps.Files,
		ready:            deps.Ready,
		auth:             deps.Auth,
		cacheSize:        deps.CacheSize,
		dto:              dtoMapper{currency: deps.Service.Currency()},
		logger:           logger,
		heartbeat:        deps.Heartbeat,
		started:          time.Now(),
		securityDetector: security.NewDetector(logger),
		rateLimiter:      ratelimit.NewLimiter(deps.RateLimit),
		closing:          make(chan struct{}),
	}
	if s.auth == nil {
		s.auth = auth.New("")
	}
	if s.heartbeat <= 0 {
		s.heartbeat = DefaultHeartbeat
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	headers := security.DefaultHeadersConfig()
	if deps.Headers != nil {
		headers = *deps.Headers
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, ratelimit.WritesOnly, s.handleRateLimited)(h)
	h = s.securityDetector.Middleware(h)
	h = security.NewHeadersMiddleware(headers).Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestID)(h)
	h = log.Middleware(logger)(h)
	h = s.traceMiddleware.Middleware(h)
	s.Handler = h

	s.RegisterOnShutdown(func() { close(s.closing) })
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.auth.Middleware(h))
	}

	api("POST /api/onboarding", s.handleOnboarding)
	api("GET /api/profile", s.handleGetProfile)
	api("PUT /api/profile", s.handleUpdateProfile)

	api("GET /api/transactions", s.handleListTransactions)
	api("POST /api/transactions", s.handleCreateTransaction)
	api("GET /api/transactions/{id}", s.handleGetTransaction)
	api("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	api("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	api("GET /api/categories", s.handleListCategories)
	api("POST /api/categories", s.handleCreateCategory)
	api("DELETE /api/categories/{id}", s.handleDeleteCategory)

	api("GET /api/goals", s.handleListGoals)
	api("POST /api/goals", s.handleCreateGoal)
	api("DELETE /api/goals/{id}", s.handleDeleteGoal)

	api("GET /api/fixed-expenses", s.handleListFixedExpenses)
	api("POST /api/fixed-expenses", s.handleCreateFixedExpense)
	api("DELETE /api/fixed-expenses/{id}", s.handleDeleteFixedExpense)

	api("POST /api/receipts", s.handleUploadReceipt)

	api("GET /api/dashboard", s.handleDashboard)
	api("GET /api/dashboard/stream", s.handleDashboardStream)
	api("GET /api/statements", s.handleStatements)
	api("GET /api/reports/ledger", s.handleLedgerReport)
	api("GET /api/reports/ledger.pdf", s.handleLedgerPDF)

	if s.files != nil {
		api("GET /files/{key...}", s.handleFile)
	}
}

// Shutdown ends open streams, stops the rate limiter and gracefully shuts
// down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, msgRateLimited)
}
