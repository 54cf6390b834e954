package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/HelloBroCode/web-tracker1/internal/advisor"
	"github.com/HelloBroCode/web-tracker1/internal/analytics"
	"github.com/HelloBroCode/web-tracker1/internal/cache"
	"github.com/HelloBroCode/web-tracker1/internal/chat"
	"github.com/HelloBroCode/web-tracker1/internal/log"
	"github.com/HelloBroCode/web-tracker1/internal/middleware/ratelimit"
	"github.com/HelloBroCode/web-tracker1/internal/middleware/security"
	"github.com/HelloBroCode/web-tracker1/internal/middleware/trace"
	"github.com/HelloBroCode/web-tracker1/internal/receipts"
	"github.com/HelloBroCode/web-tracker1/internal/services"
	"github.com/HelloBroCode/web-tracker1/internal/storage"
)

// UserResolver identifies the authenticated user for a request. The default
// implementation trusts the X-User-ID header set by the fronting proxy.
type UserResolver func(*http.Request) (int64, error)

// HeaderUserResolver reads the user identity from the X-User-ID header.
func HeaderUserResolver(r *http.Request) (int64, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return 0, fmt.Errorf("missing X-User-ID header")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid X-User-ID header %q", raw)
	}
	return id, nil
}

// Options holds the tunables the server does not derive from its
// dependencies.
type Options struct {
	Port               int
	RateLimitPerMinute int
	ReportCacheSize    int
	ReportCacheTTL     time.Duration
	ResolveUser        UserResolver
}

// Dependencies are the collaborators every handler group draws from.
type Dependencies struct {
	Repo      storage.Repository
	Expenses  *services.ExpenseService
	Chat      *chat.Engine
	Sessions  *chat.Sessions
	Analytics *analytics.Engine
	Advisor   *advisor.Advisor
	Receipts  *receipts.Store
	Logger    *log.Logger
}

// Server is the JSON API server. Analytics and prediction responses are
// cached per user and invalidated on every expense write.
type Server struct {
	httpServer *http.Server

	repo      storage.Repository
	expenses  *services.ExpenseService
	chat      *chat.Engine
	sessions  *chat.Sessions
	analytics *analytics.Engine
	advisor   *advisor.Advisor
	receipts  *receipts.Store
	logger    *log.Logger

	resolveUser UserResolver
	reportCache *cache.LRUCache[any]
	now         func() time.Time

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
}

// NewServer wires the middleware chain and the route table.
func NewServer(opts Options, deps Dependencies) *Server {
	if opts.ResolveUser == nil {
		opts.ResolveUser = HeaderUserResolver
	}
	if opts.ReportCacheSize <= 0 {
		opts.ReportCacheSize = 256
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = 5 * time.Minute
	}

	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector()

	s := &Server{
		repo:        deps.Repo,
		expenses:    deps.Expenses,
		chat:        deps.Chat,
		sessions:    deps.Sessions,
		analytics:   deps.Analytics,
		advisor:     deps.Advisor,
		receipts:    deps.Receipts,
		logger:      logger,
		resolveUser: opts.ResolveUser,
		reportCache: cache.NewLRUCache[any](opts.ReportCacheSize, opts.ReportCacheTTL),
		now:         time.Now,
		detector:    detector,
		tracer:      trace.NewMiddleware(detector.ExtractClientIP, logger),
	}

	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		})
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.buildHandler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.withUser(s.handleChat))

	mux.HandleFunc("GET /api/expenses", s.withUser(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withUser(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses/search", s.withUser(s.handleSearchExpenses))
	mux.HandleFunc("GET /api/expenses/analyze", s.withUser(s.handleAnalyze))
	mux.HandleFunc("GET /api/expenses/predict", s.withUser(s.handlePredict))
	mux.HandleFunc("PUT /api/expenses/{id}", s.withUser(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withUser(s.handleDeleteExpense))
	mux.HandleFunc("POST /api/expenses/{id}/receipt", s.withUser(s.handleUploadReceipt))
	mux.HandleFunc("GET /api/expenses/{id}/receipt", s.withUser(s.handleViewReceipt))

	mux.HandleFunc("GET /api/categories", s.withUser(s.handleListCategories))
	mux.HandleFunc("GET /api/budget/tips", s.withUser(s.handleBudgetTips))
	mux.HandleFunc("GET /export/csv", s.withUser(s.handleExportCSV))

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	var handler http.Handler = mux
	if s.limiter != nil {
		onLimit := func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		}
		handler = s.limiter.Middleware(s.detector.ExtractClientIP, onLimit)(handler)
	}
	handler = s.tracer.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	return handler
}

// withUser resolves the request's user and passes it to the handler. The
// detector flags suspicious requests before any work is done.
func (s *Server) withUser(h func(http.ResponseWriter, *http.Request, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			s.logger.WarnContext(r.Context(), "suspicious request blocked",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldPath, r.URL.Path)
			writeError(w, http.StatusBadRequest, "malformed request")
			return
		}
		userID, err := s.resolveUser(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		h(w, r, userID)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.repo.ListCategories(ctx, 0); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "storage unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ReportCache exposes the report cache for cleanup registration.
func (s *Server) ReportCache() *cache.LRUCache[any] {
	return s.reportCache
}

// invalidateReports drops the user's cached analytics after a write.
func (s *Server) invalidateReports(userID int64) {
	removed := s.reportCache.DeletePrefix(fmt.Sprintf("user:%d:", userID))
	if removed > 0 {
		s.logger.Debug("invalidated cached reports", log.FieldUserID, userID, "entries", removed)
	}
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
