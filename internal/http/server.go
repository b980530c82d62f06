// Package http exposes the JSON API: record CRUD, derived month reports,
// installment tracking, budget preferences and statement export.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gastos/internal/auth"
	"gastos/internal/cache"
	applog "gastos/internal/log"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/middleware/trace"
	"gastos/internal/prefs"
	"gastos/internal/report"
	"gastos/internal/services"
)

type Server struct {
	http.Server

	service  *services.RecordService
	prefs    *prefs.Store
	verifier *auth.Verifier

	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	lg      *applog.Logger

	// Derived month reports, keyed by user and month. Purged on every
	// write so views always come from the fresh record set.
	reportCache *cache.LRU[report.MonthReport]
	cacheMgr    *cache.Manager

	// Serializes access to the preferences file.
	prefsMu sync.Mutex

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, service *services.RecordService, prefsStore *prefs.Store, verifier *auth.Verifier) *Server {
	mux := http.NewServeMux()

	s := &Server{
		service:     service,
		prefs:       prefsStore,
		verifier:    verifier,
		limiter:     ratelimit.New(ratelimit.DefaultConfig()),
		tracer:      trace.NewMiddleware(),
		lg:          applog.New(applog.Config{}).WithComponent(applog.ComponentHTTP),
		reportCache: cache.NewLRU[report.MonthReport](100, 5*time.Minute),
		cacheMgr:    cache.NewManager(),
	}
	s.cacheMgr.Register(s.reportCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/records", s.handleListRecords)
	api.HandleFunc("POST /api/records", s.handleCreateRecord)
	api.HandleFunc("PUT /api/records/{id}", s.handleUpdateRecord)
	api.HandleFunc("DELETE /api/records/{id}", s.handleDeleteRecord)

	api.HandleFunc("GET /api/report", s.handleMonthReport)

	api.HandleFunc("GET /api/installments", s.handleListInstallments)
	api.HandleFunc("POST /api/installments", s.handleCreateConcept)
	api.HandleFunc("GET /api/installments/{id}", s.handleInstallmentStats)
	api.HandleFunc("POST /api/installments/{id}/validate", s.handleValidateContribution)

	api.HandleFunc("GET /api/budgets", s.handleListBudgets)
	api.HandleFunc("POST /api/budgets", s.handleSaveBudget)
	api.HandleFunc("DELETE /api/budgets/{category}", s.handleDeleteBudget)
	api.HandleFunc("GET /api/prefs/theme", s.handleGetTheme)
	api.HandleFunc("PUT /api/prefs/theme", s.handleSetTheme)

	api.HandleFunc("GET /api/export/csv", s.handleExportCSV)
	api.HandleFunc("GET /api/export/pdf", s.handleExportPDF)

	mux.Handle("/api/", verifier.Middleware(api))

	s.Server = http.Server{
		Addr:    addr,
		Handler: s.tracer.Handler(s.withProtection(mux)),
	}
	return s
}

// withProtection adds security headers and applies rate limiting to
// mutating requests.
func (s *Server) withProtection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			if !s.limiter.Allow(trace.ClientIP(r)) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		next.ServeHTTP(w, r)
	})
}

// invalidateReports drops cached derived views after a write.
func (s *Server) invalidateReports() {
	s.reportCache.Purge()
}

// Shutdown stops background routines and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
