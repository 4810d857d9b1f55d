package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/pocketcal/internal/assistant"
	"github.com/dukerupert/pocketcal/internal/completion"
	"github.com/dukerupert/pocketcal/internal/handler"
	"github.com/dukerupert/pocketcal/internal/middleware"
	"github.com/dukerupert/pocketcal/internal/store"
	ws "github.com/dukerupert/pocketcal/internal/websocket"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Options carries the settings the router needs beyond its stores.
type Options struct {
	Location       *time.Location
	SessionTTL     time.Duration
	SecureCookies  bool
	AllowedOrigins []string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	assistant    *assistant.Service
	authH        *handler.AuthHandler
	entryH       *handler.EntryHandler
	calendarH    *handler.CalendarHandler
	todoH        *handler.TodoHandler
	assistantH   *handler.AssistantHandler
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	origins      []string
	logger       *slog.Logger
}

func New(db *sql.DB, backend completion.Backend, opts Options, logger *slog.Logger) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db, opts.SessionTTL)
	entryStore := store.NewEntryStore(db)
	interactionStore := store.NewInteractionStore(db)
	todoStore := store.NewTodoStore(db)
	factStore := store.NewDailyFactStore(db)

	svc := assistant.NewService(assistant.Config{
		Backend:      backend,
		Interactions: interactionStore,
		Entries:      entryStore,
		Todos:        todoStore,
		Facts:        factStore,
		Notifier:     hub,
		Location:     opts.Location,
		Now:          opts.Now,
		Logger:       logger,
	})

	handlerLogger := logger.With("component", "handler")

	return &Server{
		db:           db,
		hub:          hub,
		assistant:    svc,
		authH:        handler.NewAuthHandler(userStore, sessionStore, opts.SecureCookies, handlerLogger),
		entryH:       handler.NewEntryHandler(entryStore, hub, opts.Location, handlerLogger),
		calendarH:    handler.NewCalendarHandler(entryStore, userStore, opts.Location, opts.Now, handlerLogger),
		todoH:        handler.NewTodoHandler(todoStore, hub, handlerLogger),
		assistantH:   handler.NewAssistantHandler(svc, handlerLogger),
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(),
		origins:      opts.AllowedOrigins,
		logger:       logger,
	}
}

func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Assistant() *assistant.Service {
	return s.assistant
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Router registers every route on one mux so request metrics see the
// matched pattern.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/auth/signup", s.rateLimitedHandler(s.authH.Signup))
	mux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.registerProtectedRoutes(mux)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status = "database unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, authRateLimit, authRateWindow)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	requireAuth := middleware.RequireAuth(s.sessionStore)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(h))
	}

	handle("GET /api/auth/me", s.authH.Me)
	handle("POST /api/auth/password", s.authH.ChangePassword)

	// Calendar entries
	handle("GET /api/entries", s.entryH.List)
	handle("POST /api/entries", s.entryH.Create)
	handle("GET /api/entries/{id}", s.entryH.Get)
	handle("PUT /api/entries/{id}", s.entryH.Update)
	handle("DELETE /api/entries/{id}", s.entryH.Delete)

	// Month grid and export
	handle("GET /api/calendar", s.calendarH.Current)
	handle("GET /api/calendar/{year}/{month}", s.calendarH.Month)
	handle("GET /api/calendar.ics", s.calendarH.ICS)

	// To-do lists
	handle("GET /api/todos", s.todoH.ListLists)
	handle("POST /api/todos", s.todoH.CreateList)
	handle("GET /api/todos/{id}", s.todoH.GetList)
	handle("PUT /api/todos/{id}", s.todoH.RenameList)
	handle("DELETE /api/todos/{id}", s.todoH.DeleteList)
	handle("POST /api/todos/{id}/items", s.todoH.AddItems)
	handle("POST /api/todos/{id}/items/{index}/toggle", s.todoH.ToggleItem)
	handle("DELETE /api/todos/{id}/items/{index}", s.todoH.DeleteItem)

	// Assistant
	handle("POST /api/assistant/chat", s.assistantH.Chat)
	handle("GET /api/assistant/history", s.assistantH.History)
	handle("GET /api/assistant/pending", s.assistantH.Pending)
	handle("POST /api/assistant/interactions/{id}/processed", s.assistantH.MarkProcessed)
	handle("GET /api/daily-fact", s.assistantH.DailyFact)

	// Realtime
	handle("GET /ws", ws.HandleWebSocket(s.hub, s.origins))
}
