package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/volumod/tracker/internal/audit"
	"github.com/volumod/tracker/internal/auth"
	"github.com/volumod/tracker/internal/db"
	"github.com/volumod/tracker/internal/notify"
	"github.com/volumod/tracker/internal/report"
	"github.com/volumod/tracker/internal/store"
)

// Server is the dashboard API server.
type Server struct {
	addr   string
	mux    *http.ServeMux
	logger *slog.Logger

	store    *store.Store
	db       *db.DB
	engine   *notify.Engine
	pub      notify.Publisher
	reporter *report.Reporter
	trail    *audit.Trail

	// Bearer token -> session. Sessions live for the process lifetime;
	// restarting the server logs everyone out.
	sessions   map[string]auth.Session
	sessionsMu sync.RWMutex

	wsHandler *WSHandler
}

// Config holds server configuration.
type Config struct {
	Addr   string
	Logger *slog.Logger
}

// New creates an API server over the given backends. A nil publisher
// disables live streaming but leaves the durable feed intact.
func New(cfg Config, s *store.Store, d *db.DB, engine *notify.Engine, pub notify.Publisher) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	if pub == nil {
		pub = notify.NopPublisher{}
	}

	srv := &Server{
		addr:     addr,
		mux:      http.NewServeMux(),
		logger:   logger,
		store:    s,
		db:       d,
		engine:   engine,
		pub:      pub,
		reporter: report.New(s),
		trail:    audit.NewTrail(d, logger),
		sessions: make(map[string]auth.Session),
	}
	srv.wsHandler = NewWSHandler(pub, srv, logger)
	srv.registerRoutes()
	return srv
}

// Handler returns the root handler, usable directly with httptest.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the server until the listener fails.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.mux)
}

// StartContext runs the server with graceful shutdown on cancellation.
func (s *Server) StartContext(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", s.addr)
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// registerRoutes sets up all API routes.
func (s *Server) registerRoutes() {
	// CORS middleware wrapper
	cors := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			h(w, r)
		}
	}
	authed := func(h sessionHandler) http.HandlerFunc {
		return cors(s.withSession(h))
	}

	// Health check and login
	s.mux.HandleFunc("GET /api/health", cors(s.handleHealth))
	s.mux.HandleFunc("POST /api/login", cors(s.handleLogin))
	s.mux.HandleFunc("POST /api/logout", authed(s.handleLogout))
	s.mux.HandleFunc("GET /api/session", authed(s.handleGetSession))

	// Projects
	s.mux.HandleFunc("GET /api/projects", authed(s.handleListProjects))
	s.mux.HandleFunc("POST /api/projects", authed(s.handleCreateProject))
	s.mux.HandleFunc("GET /api/projects/{id}", authed(s.handleGetProject))
	s.mux.HandleFunc("PUT /api/projects/{id}", authed(s.handleUpdateProject))
	s.mux.HandleFunc("GET /api/projects/{id}/modules", authed(s.handleListProjectModules))

	// Modules
	s.mux.HandleFunc("GET /api/modules", authed(s.handleListModules))
	s.mux.HandleFunc("POST /api/modules", authed(s.handleCreateModule))
	s.mux.HandleFunc("GET /api/modules/{id}", authed(s.handleGetModule))
	s.mux.HandleFunc("PUT /api/modules/{id}", authed(s.handleUpdateModule))

	// Issues
	s.mux.HandleFunc("GET /api/issues", authed(s.handleListIssues))
	s.mux.HandleFunc("POST /api/issues", authed(s.handleCreateIssue))
	s.mux.HandleFunc("GET /api/issues/{id}", authed(s.handleGetIssue))
	s.mux.HandleFunc("PUT /api/issues/{id}", authed(s.handleUpdateIssue))
	s.mux.HandleFunc("POST /api/issues/{id}/resolve", authed(s.handleResolveIssue))

	// Tasks
	s.mux.HandleFunc("GET /api/tasks", authed(s.handleListTasks))
	s.mux.HandleFunc("POST /api/tasks", authed(s.handleCreateTask))
	s.mux.HandleFunc("GET /api/tasks/{id}", authed(s.handleGetTask))
	s.mux.HandleFunc("POST /api/tasks/{id}/complete", authed(s.handleCompleteTask))
	s.mux.HandleFunc("POST /api/tasks/{id}/reassign", authed(s.handleReassignTask))

	// Notifications
	s.mux.HandleFunc("GET /api/notifications", authed(s.handleListNotifications))
	s.mux.HandleFunc("GET /api/notifications/count", authed(s.handleNotificationCount))
	s.mux.HandleFunc("POST /api/notifications/dismiss-all", authed(s.handleDismissAll))
	s.mux.HandleFunc("POST /api/notifications/{id}/dismiss", authed(s.handleDismiss))

	// Reports
	s.mux.HandleFunc("GET /api/reports/projects", authed(s.handleProjectSummaries))
	s.mux.HandleFunc("GET /api/reports/projects/{id}/completion", authed(s.handleProjectCompletion))
	s.mux.HandleFunc("GET /api/reports/issues", authed(s.handleIssueStats))
	s.mux.HandleFunc("GET /api/reports/throughput", authed(s.handleThroughput))
	s.mux.HandleFunc("GET /api/reports/overdue", authed(s.handleOverdueTasks))

	// Audit trail
	s.mux.HandleFunc("GET /api/audit", authed(s.handleRecentAudit))
	s.mux.HandleFunc("GET /api/audit/{kind}/{id}", authed(s.handleEntityAudit))

	// WebSocket notification stream
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, map[string]string{"status": "ok"})
}
