// Package http serves the tracker's JSON API: ledger and account
// mutations, monthly budget reports, loan schedules, snapshot
// export/restore and a recent-logs debug endpoint.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"paydo/internal/budget"
	applog "paydo/internal/log"
	"paydo/internal/services"
)

type Server struct {
	http.Server
	app         *services.AppService
	ring        *applog.RingHandler
	rateLimiter *rateLimiter

	// Month reports are cached per (year, month, kind) and purged on
	// every mutation.
	reportCache *lruCache[budget.Report]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// startCacheCleanup periodically drops expired report entries.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.reportCache.CleanExpired(); cleaned > 0 {
				slog.Debug("cache cleanup completed", "report_entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// NewServer configures routes and returns a ready-to-run server. ring
// may be nil; the debug logs endpoint then serves an empty list.
func NewServer(addr string, app *services.AppService, ring *applog.RingHandler) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		app:              app,
		ring:             ring,
		rateLimiter:      newRateLimiter(),
		reportCache:      newLRUCache[budget.Report](100, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.secured(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.secured(s.handleCreateTransaction))

	mux.HandleFunc("GET /api/accounts", s.secured(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.secured(s.handleCreateAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", s.secured(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.secured(s.handleDeleteAccount))

	mux.HandleFunc("GET /api/assets", s.secured(s.handleListAssets))
	mux.HandleFunc("POST /api/assets", s.secured(s.handleCreateAsset))
	mux.HandleFunc("PUT /api/assets/{id}", s.secured(s.handleUpdateAsset))
	mux.HandleFunc("DELETE /api/assets/{id}", s.secured(s.handleDeleteAsset))

	mux.HandleFunc("GET /api/loans", s.secured(s.handleListLoans))
	mux.HandleFunc("POST /api/loans", s.secured(s.handleCreateLoan))
	mux.HandleFunc("GET /api/loans/{id}", s.secured(s.handleGetLoan))
	mux.HandleFunc("PUT /api/loans/{id}", s.secured(s.handleUpdateLoan))
	mux.HandleFunc("DELETE /api/loans/{id}", s.secured(s.handleDeleteLoan))
	mux.HandleFunc("POST /api/loans/{id}/installments", s.secured(s.handleAppendInstallment))
	mux.HandleFunc("PUT /api/loans/{id}/installments/{index}", s.secured(s.handleEditInstallment))
	mux.HandleFunc("DELETE /api/loans/{id}/installments/{index}", s.secured(s.handleRemoveInstallment))

	mux.HandleFunc("GET /api/report", s.secured(s.handleMonthReport))

	mux.HandleFunc("GET /api/snapshot", s.secured(s.handleExportSnapshot))
	mux.HandleFunc("POST /api/snapshot", s.secured(s.handleRestoreSnapshot))
	mux.HandleFunc("POST /api/reset", s.secured(s.handleReset))

	mux.HandleFunc("GET /debug/logs", s.secured(s.handleRecentLogs))

	return s
}

// secured adds security headers, rate limiting and request logging.
func (s *Server) secured(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		// Rate limit mutations only.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		level := slog.LevelInfo
		switch {
		case rw.statusCode >= 500:
			level = slog.LevelError
		case rw.statusCode >= 400:
			level = slog.LevelWarn
		}
		slog.Default().Log(ctx, level, "request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

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

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.app.Accounts(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) invalidateReports() {
	s.reportCache.Purge()
}
