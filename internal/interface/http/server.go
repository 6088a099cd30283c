// Package http exposes Rada.ke over a JSON API: user actions that earn XP,
// content browsing, the civic catalogue, admin authoring and imports, and
// the websocket event stream.
package http

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/radake/rada-ke/internal/application/command"
	"github.com/radake/rada-ke/internal/application/query"
	"github.com/radake/rada-ke/internal/domain/civic"
	"github.com/radake/rada-ke/internal/domain/community"
	"github.com/radake/rada-ke/internal/domain/learning"
	"github.com/radake/rada-ke/internal/infrastructure/persistence/postgres"
	"github.com/radake/rada-ke/internal/interface/http/handlers"
	"github.com/radake/rada-ke/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// MaxBodyBytes caps JSON bodies. Photo uploads use MaxUploadBytes.
	MaxBodyBytes   int64
	MaxUploadBytes int64

	AllowedOrigins []string

	// RateLimitPerMinute is per client IP; 0 disables limiting.
	RateLimitPerMinute int

	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		MaxBodyBytes:       1 << 20,
		MaxUploadBytes:     6 << 20,
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 120,
		Version:            "v1",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// SchemaReconciler is satisfied by postgres.Reconciler.
type SchemaReconciler interface {
	Reconcile(ctx context.Context) (*postgres.ReconcileResult, error)
}

// RateLimiter counts a hit for key and reports whether it is allowed.
// redis.Cache satisfies it.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Dependencies contains everything the handlers call. Nil handlers make
// their routes answer 501.
type Dependencies struct {
	// Command side
	Users   *command.UserHandler
	Awards  *command.AwardXPHandler
	Quizzes *command.SubmitQuizHandler
	Actions *command.CivicActionsHandler
	Content *command.ContentHandler
	Catalog *command.CatalogHandler

	// Query side
	Leaderboard *query.GetLeaderboardHandler
	Profiles    *query.GetProfileHandler
	Memories    *query.GetMemoryHandler

	// Plain reads for browsing content
	Learning  learning.Repository
	Community community.Repository
	Civic     civic.Repository

	Reconciler    SchemaReconciler
	Auth          *handlers.AdminAuth
	RateLimiter   RateLimiter
	HealthChecker handlers.HealthChecker

	// Events is mounted at /ws when set.
	Events http.Handler

	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *mux.Router
	logger     *logger.Logger

	localLimiter *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		router: mux.NewRouter(),
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	if config.RateLimitPerMinute > 0 {
		s.localLimiter = newRateLimiter(config.RateLimitPerMinute, time.Minute)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.buildMiddlewareChain(s.router),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	r := s.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status
	// ─────────────────────────────────────────────────────────────────────────
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/live", s.handleLive).Methods(http.MethodGet)
	if s.deps.Events != nil {
		r.Handle("/ws", s.deps.Events).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(mux.MiddlewareFunc(handlers.NoCacheMiddleware))

	// ─────────────────────────────────────────────────────────────────────────
	// Users & rewards
	// ─────────────────────────────────────────────────────────────────────────
	api.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", s.handleGetProfile).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", s.handleUpdateProfile).Methods(http.MethodPatch)
	api.HandleFunc("/users/{id}/check-in", s.handleCheckIn).Methods(http.MethodPost)
	api.HandleFunc("/leaderboard", s.handleGetLeaderboard).Methods(http.MethodGet)

	// ─────────────────────────────────────────────────────────────────────────
	// Learning
	// ─────────────────────────────────────────────────────────────────────────
	api.HandleFunc("/modules", s.handleListModules).Methods(http.MethodGet)
	api.HandleFunc("/modules/{id}", s.handleGetModule).Methods(http.MethodGet)
	api.HandleFunc("/lessons/{id}", s.handleGetLesson).Methods(http.MethodGet)
	api.HandleFunc("/lessons/{id}/complete", s.handleCompleteLesson).Methods(http.MethodPost)
	api.HandleFunc("/quizzes/{id}", s.handleGetQuiz).Methods(http.MethodGet)
	api.HandleFunc("/quizzes/{id}/submit", s.handleSubmitQuiz).Methods(http.MethodPost)

	// ─────────────────────────────────────────────────────────────────────────
	// Community
	// ─────────────────────────────────────────────────────────────────────────
	api.HandleFunc("/posts", s.handleListPosts).Methods(http.MethodGet)
	api.HandleFunc("/posts", s.handleCreatePost).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}", s.handleGetPost).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}/comments", s.handleListComments).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}/comments", s.handleCreateComment).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}/like", s.handleLikePost).Methods(http.MethodPost)
	api.HandleFunc("/polls", s.handleListPolls).Methods(http.MethodGet)
	api.HandleFunc("/polls/{id}", s.handleGetPoll).Methods(http.MethodGet)
	api.HandleFunc("/polls/{id}/vote", s.handleVotePoll).Methods(http.MethodPost)
	api.HandleFunc("/memories", s.handleListMemories).Methods(http.MethodGet)
	api.HandleFunc("/memories", s.handleCreateMemory).Methods(http.MethodPost)
	api.HandleFunc("/memories/{id}", s.handleGetMemory).Methods(http.MethodGet)
	api.HandleFunc("/memories/{id}/candles", s.handleLightCandle).Methods(http.MethodPost)
	api.HandleFunc("/challenges", s.handleListChallenges).Methods(http.MethodGet)
	api.HandleFunc("/challenges/{id}/complete", s.handleCompleteChallenge).Methods(http.MethodPost)

	// ─────────────────────────────────────────────────────────────────────────
	// Civic catalogue
	// ─────────────────────────────────────────────────────────────────────────
	api.HandleFunc("/politicians", s.handleListPoliticians).Methods(http.MethodGet)
	api.HandleFunc("/politicians/{id}", s.handleGetPolitician).Methods(http.MethodGet)

	// ─────────────────────────────────────────────────────────────────────────
	// Admin
	// ─────────────────────────────────────────────────────────────────────────
	api.HandleFunc("/admin/login", s.handleAdminLogin).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(mux.MiddlewareFunc(s.deps.Auth.Middleware(s.denyUnauthorized)))
	admin.HandleFunc("/awards", s.handleAwardXP).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}", s.handleDeleteUser).Methods(http.MethodDelete)
	admin.HandleFunc("/modules", s.handleCreateModule).Methods(http.MethodPost)
	admin.HandleFunc("/lessons", s.handleCreateLesson).Methods(http.MethodPost)
	admin.HandleFunc("/quizzes", s.handleCreateQuiz).Methods(http.MethodPost)
	admin.HandleFunc("/badges", s.handleCreateBadge).Methods(http.MethodPost)
	admin.HandleFunc("/polls", s.handleCreatePoll).Methods(http.MethodPost)
	admin.HandleFunc("/challenges", s.handleCreateChallenge).Methods(http.MethodPost)
	admin.HandleFunc("/memories/{id}/photo", s.handleUploadMemoryPhoto).Methods(http.MethodPost)
	admin.HandleFunc("/politicians", s.handleCreatePolitician).Methods(http.MethodPost)
	admin.HandleFunc("/politicians/{id}/promises", s.handleCreatePromise).Methods(http.MethodPost)
	admin.HandleFunc("/politicians/{id}/votes", s.handleRecordVote).Methods(http.MethodPost)
	admin.HandleFunc("/import/politicians", s.handleImportPoliticians).Methods(http.MethodPost)
	admin.HandleFunc("/import/voting-records", s.handleImportVotingRecords).Methods(http.MethodPost)
	admin.HandleFunc("/schema/reconcile", s.handleReconcile).Methods(http.MethodPost)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// buildMiddlewareChain wraps the router. The first entry is outermost.
func (s *Server) buildMiddlewareChain(h http.Handler) http.Handler {
	chain := []handlers.MiddlewareFunc{
		s.recoveryMiddleware,
		s.requestIDMiddleware,
		s.loggingMiddleware,
		handlers.SecurityHeadersMiddleware,
	}
	if s.config.RateLimitPerMinute > 0 {
		chain = append(chain, s.rateLimitMiddleware)
	}
	h = handlers.Chain(chain...)(h)

	// CORS answers preflights before anything else runs.
	return cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         86400,
	}).Handler(h)
}

// requestIDMiddleware adds a unique request ID to each request.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		ctx = logger.WithContext(ctx, s.logger.With(logger.RequestID(requestID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs all HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		fields := []logger.Field{
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.StatusCode(rw.statusCode),
			logger.Latency(time.Since(start)),
			logger.RemoteAddr(getClientIP(r)),
			logger.RequestID(getRequestID(r.Context())),
		}
		switch {
		case rw.statusCode >= 500:
			s.logger.Error("http request", fields...)
		case rw.statusCode >= 400:
			s.logger.Warn("http request", fields...)
		default:
			s.logger.Info("http request", fields...)
		}
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					logger.String("error", fmt.Sprint(err)),
					logger.String("stack", string(debug.Stack())),
					logger.Path(r.URL.Path),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_error", genericErrorMessage)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware limits requests per client IP. Redis keeps the count
// shared across replicas; when it is absent or failing the local limiter
// takes over.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	limit := s.config.RateLimitPerMinute
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		ip := getClientIP(r)

		allowed := true
		var err error
		if s.deps.RateLimiter != nil {
			allowed, err = s.deps.RateLimiter.Allow(r.Context(), "ip:"+ip, limit, time.Minute)
		}
		if s.deps.RateLimiter == nil || err != nil {
			if err != nil {
				s.logger.Debug("shared rate limiter unavailable", logger.Err(err))
			}
			allowed = s.localLimiter.Allow(ip)
		}

		if !allowed {
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.localLimiter != nil {
		s.localLimiter.Stop()
	}
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER TYPES AND FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade pass through the logging wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// getRequestID extracts the request ID from context.
func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// In-process sliding window, used when Redis is not configured or failing.
// ══════════════════════════════════════════════════════════════════════════════

type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	stop     chan struct{}
	once     sync.Once
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		stop:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *rateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	valid := prune(rl.requests[key], now.Add(-rl.window))
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}
	rl.requests[key] = append(valid, now)
	return true
}

func (rl *rateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, requests := range rl.requests {
				if valid := prune(requests, now.Add(-rl.window)); len(valid) == 0 {
					delete(rl.requests, key)
				} else {
					rl.requests[key] = valid
				}
			}
			rl.mu.Unlock()
		}
	}
}

func prune(hits []time.Time, after time.Time) []time.Time {
	var valid []time.Time
	for _, t := range hits {
		if t.After(after) {
			valid = append(valid, t)
		}
	}
	return valid
}
