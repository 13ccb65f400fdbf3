package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cashlog/internal/auth"
	"cashlog/internal/cache"
	"cashlog/internal/core"
	applog "cashlog/internal/log"
	"cashlog/internal/services"
)

// Server is the HTTP API over the ledger, report, and master-data
// services.
type Server struct {
	http.Server

	ledger   *services.LedgerService
	reports  *services.ReportService
	master   *services.MasterDataService
	verifier *auth.Verifier

	rateLimiter *rateLimiter
	metrics     *securityMetrics

	baseLog *applog.Logger
	httpLog *applog.StructuredLogger

	// Master-data listings are cached per organization; every mutation
	// invalidates the owning organization's entries. Transaction and
	// report reads are never cached.
	categoriesCache  *cache.LRUCache[[]core.Category]
	partiesCache     *cache.LRUCache[[]core.RelatedParty]
	masterItemsCache *cache.LRUCache[[]core.MasterItem]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, ledger *services.LedgerService, reports *services.ReportService, master *services.MasterDataService, verifier *auth.Verifier) *Server {
	mux := http.NewServeMux()

	baseLog := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:           ledger,
		reports:          reports,
		master:           master,
		verifier:         verifier,
		rateLimiter:      newRateLimiter(),
		metrics:          &securityMetrics{},
		baseLog:          baseLog,
		httpLog:          applog.NewStructuredLogger(baseLog),
		categoriesCache:  cache.NewLRUCache[[]core.Category](200, 5*time.Minute),
		partiesCache:     cache.NewLRUCache[[]core.RelatedParty](200, 5*time.Minute),
		masterItemsCache: cache.NewLRUCache[[]core.MasterItem](200, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	s.categoriesCache.StartCleanup(10*time.Minute, s.stopCacheCleanup)
	s.partiesCache.StartCleanup(10*time.Minute, s.stopCacheCleanup)
	s.masterItemsCache.StartCleanup(10*time.Minute, s.stopCacheCleanup)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/transactions", s.protected(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.protected(s.handleListTransactions))
	mux.HandleFunc("GET /api/transactions/{id}", s.protected(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.protected(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.protected(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/transactions/{id}/invoice", s.protected(s.handleTransactionInvoice))

	mux.HandleFunc("GET /api/reports", s.protected(s.handleReport))
	mux.HandleFunc("GET /api/reports/export", s.protected(s.handleReportExport))

	mux.HandleFunc("POST /api/categories", s.protected(s.handleCreateCategory))
	mux.HandleFunc("GET /api/categories", s.protected(s.handleListCategories))
	mux.HandleFunc("GET /api/categories/{id}", s.protected(s.handleGetCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.protected(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.protected(s.handleDeleteCategory))

	mux.HandleFunc("POST /api/related-parties", s.protected(s.handleCreateRelatedParty))
	mux.HandleFunc("GET /api/related-parties", s.protected(s.handleListRelatedParties))
	mux.HandleFunc("GET /api/related-parties/{id}", s.protected(s.handleGetRelatedParty))
	mux.HandleFunc("PUT /api/related-parties/{id}", s.protected(s.handleUpdateRelatedParty))
	mux.HandleFunc("DELETE /api/related-parties/{id}", s.protected(s.handleDeleteRelatedParty))

	mux.HandleFunc("POST /api/master-items", s.protected(s.handleCreateMasterItem))
	mux.HandleFunc("GET /api/master-items", s.protected(s.handleListMasterItems))
	mux.HandleFunc("GET /api/master-items/{id}", s.protected(s.handleGetMasterItem))
	mux.HandleFunc("PUT /api/master-items/{id}", s.protected(s.handleUpdateMasterItem))
	mux.HandleFunc("DELETE /api/master-items/{id}", s.protected(s.handleDeleteMasterItem))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// protected chains request logging, security headers, rate limiting on
// mutating methods, and bearer-token authentication.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		reqLog := s.baseLog.With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		ctx = context.WithValue(ctx, applog.LoggerContextKey, reqLog)
		r = r.WithContext(ctx)

		s.httpLog.LogHTTPStart(ctx, r, clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			reqLog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP, applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		setSecurityHeaders(w)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		s.withAuth(next)(rw, r)

		s.httpLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// withAuth verifies the bearer token and stashes the caller identity in
// the request context.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "malformed authorization header"})
			return
		}

		id, err := s.verifier.Verify(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrNoOrganization) {
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "no organization selected"})
				return
			}
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}

		next(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	}
}

// identity returns the verified caller; withAuth guarantees it is set on
// every protected route.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
