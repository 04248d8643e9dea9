// Package web provides the HTTP server and JSON API handlers.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/gridport/gridport/internal/config"
	"github.com/gridport/gridport/internal/core"
	"github.com/gridport/gridport/internal/web/middleware"
)

// Importer is the orchestrator surface the handlers call.
// *core.Service satisfies it.
type Importer interface {
	ImportFromSource(ctx context.Context, req core.ImportRequest) (*core.ImportResult, error)
	RefreshImport(ctx context.Context, fileID uuid.UUID, override *core.SourceInfo) (*core.ImportResult, error)
}

// Connector is the delegated OAuth surface. *token.UserBroker satisfies it.
type Connector interface {
	AuthURL(userID string) (string, error)
	Complete(ctx context.Context, code, state string) (string, error)
	Connected(ctx context.Context, userID string) (bool, error)
	Disconnect(ctx context.Context, userID string) error
}

// Server is the HTTP server for the import API.
type Server struct {
	service   Importer
	store     Store
	connector Connector
	cfg       *config.Config
	router    *chi.Mux
	server    *http.Server
}

// NewServer wires the router. connector may be nil when the delegated
// SharePoint flow is not configured; its routes then answer 503.
func NewServer(cfg *config.Config, service Importer, store Store, connector Connector) *Server {
	s := &Server{
		service:   service,
		store:     store,
		connector: connector,
		cfg:       cfg,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(60 * time.Second))

	s.router.Use(securityHeaders)

	limiter := newRateLimiter(s.cfg.Security.RateLimit, time.Minute)
	s.router.Use(limiter.middleware)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		r.Route("/import", func(r chi.Router) {
			r.Post("/sharepoint", s.handleImportSharePoint)
			r.Post("/sharepoint/user", s.handleImportSharePointUser)
			r.Post("/google-sheets", s.handleImportGoogleSheets)
			r.Post("/excel", s.handleImportExcel)
			r.Post("/database", s.handleImportDatabase)
			r.Post("/sql-dump", s.handleImportSQLDump)
		})

		r.Route("/auth/sharepoint", func(r chi.Router) {
			r.Get("/connect", s.handleAuthConnect)
			r.Get("/callback", s.handleAuthCallback)
			r.Get("/status", s.handleAuthStatus)
			r.Delete("/", s.handleAuthDisconnect)
		})

		r.Route("/files", func(r chi.Router) {
			r.Get("/", s.handleListFiles)
			r.Get("/{fileID}", s.handleGetFile)
			r.Delete("/{fileID}", s.handleDeleteFile)
			r.Post("/{fileID}/refresh", s.handleRefreshFile)
			r.Get("/{fileID}/sheets/{sheetID}/rows", s.handleGetSheetRows)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)
			r.Get("/", s.handleListUsers)
			r.Get("/{userID}", s.handleGetUser)
			r.Put("/{userID}", s.handleUpdateUser)
			r.Delete("/{userID}", s.handleDeleteUser)
		})

		r.Route("/dashboards", func(r chi.Router) {
			r.Post("/", s.handleCreateDashboard)
			r.Get("/", s.handleListDashboards)
			r.Get("/{dashboardID}", s.handleGetDashboard)
			r.Put("/{dashboardID}", s.handleUpdateDashboard)
			r.Delete("/{dashboardID}", s.handleDeleteDashboard)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// securityHeaders adds standard hardening headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter is a token bucket limiter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute.
func (rl *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}
	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.rate <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.allow(r.RemoteAddr) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded", Code: "RATE001"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
