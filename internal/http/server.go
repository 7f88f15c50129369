// Package http serves the JSON API: catalog management, purchase
// recording, dashboard aggregations, sessions, and the migration
// endpoints.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"einkauf/internal/auth"
	"einkauf/internal/backend"
	"einkauf/internal/cache"
	applog "einkauf/internal/log"
	"einkauf/internal/stats"
)

type Server struct {
	http.Server

	backend       *backend.Result
	jwtManager    *auth.JWTManager
	authenticator *auth.PasswordAuthenticator
	rateLimiter   *rateLimiter
	httpLog       *applog.StructuredLogger

	// Dashboard payloads are cached per user and month cursor.
	summaryCache *cache.LRUCache[stats.Summary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// Options carries the optional collaborators a server can run without.
type Options struct {
	JWTManager    *auth.JWTManager
	Authenticator *auth.PasswordAuthenticator
	CacheSize     int
	CacheTTL      time.Duration
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, be *backend.Result, opts Options) *Server {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		backend:       be,
		jwtManager:    opts.JWTManager,
		authenticator: opts.Authenticator,
		rateLimiter:   newRateLimiter(),
		httpLog:       applog.NewStructuredLogger(applog.FromContext(context.Background())),
		summaryCache:  cache.NewLRUCache[stats.Summary](opts.CacheSize, opts.CacheTTL),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	// Sessions exist only against the hosted backend.
	mux.HandleFunc("POST /api/auth/register", s.wrap(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.wrap(s.handleLogin))

	mux.HandleFunc("GET /api/categories", s.authed(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.authed(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.authed(s.handleRenameCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.authed(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/items", s.authed(s.handleListItems))
	mux.HandleFunc("POST /api/items", s.authed(s.handleCreateItem))
	mux.HandleFunc("PUT /api/items/{id}", s.authed(s.handleRenameItem))
	mux.HandleFunc("DELETE /api/items/{id}", s.authed(s.handleDeleteItem))

	mux.HandleFunc("GET /api/markets", s.authed(s.handleListMarkets))
	mux.HandleFunc("POST /api/markets", s.authed(s.handleCreateMarket))
	mux.HandleFunc("PUT /api/markets/{id}", s.authed(s.handleRenameMarket))
	mux.HandleFunc("DELETE /api/markets/{id}", s.authed(s.handleDeleteMarket))

	mux.HandleFunc("GET /api/purchases", s.authed(s.handleListPurchases))
	mux.HandleFunc("POST /api/purchases", s.authed(s.handleCreatePurchase))
	mux.HandleFunc("DELETE /api/purchases/{id}", s.authed(s.handleDeletePurchase))

	mux.HandleFunc("GET /api/dashboard/summary", s.authed(s.handleSummary))
	mux.HandleFunc("GET /api/dashboard/daily", s.authed(s.handleDaily))
	mux.HandleFunc("GET /api/dashboard/monthly", s.authed(s.handleMonthly))
	mux.HandleFunc("GET /api/dashboard/month", s.authed(s.handleMonth))
	mux.HandleFunc("GET /api/dashboard/top-items", s.authed(s.handleTopItems))
	mux.HandleFunc("GET /api/dashboard/price-progression", s.authed(s.handlePriceProgression))
	mux.HandleFunc("GET /api/dashboard/categories", s.authed(s.handleCategoryBreakdown))

	mux.HandleFunc("GET /api/migration/preflight", s.authed(s.handleMigrationPreflight))
	mux.HandleFunc("POST /api/migration/run", s.authed(s.handleMigrationRun))

	return s
}

// Shutdown stops the background routines, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// wrap adds security headers, rate limiting, request ids, and request
// logging.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := clientIP(r)
		requestID := generateRequestID()

		// Every log line under this request carries the request id.
		logger := applog.FromContext(r.Context()).With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), applog.LoggerContextKey, logger)
		r = r.WithContext(ctx)

		s.httpLog.LogHTTPStart(ctx, r, clientIP)

		// Mutations are rate limited per client.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.httpLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// authed resolves the caller's session before the handler runs. Against
// the local backend there are no accounts and every request passes with
// an empty session; against the remote backend a valid bearer token is
// required.
func (s *Server) authed(next func(http.ResponseWriter, *http.Request, auth.Session)) http.HandlerFunc {
	return s.wrap(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.sessionFrom(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r, session)
	})
}

func (s *Server) sessionFrom(r *http.Request) (auth.Session, error) {
	if s.backend.Type != backend.RemoteBackend {
		return auth.Session{}, nil
	}
	token, err := bearerToken(r)
	if err != nil {
		return auth.Session{}, err
	}
	return s.jwtManager.Validate(token)
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
