// Package http wires the engine's HTTP surface: inbound webhook
// ingestion (C10) and the read-only admin API, adapted from the
// teacher's local-only, read-only server.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/marketsignal/decisionengine/internal/contextstore"
	"github.com/marketsignal/decisionengine/internal/ledger"
	"github.com/marketsignal/decisionengine/internal/metrics"
	"github.com/marketsignal/decisionengine/internal/orchestrator"
	"github.com/marketsignal/decisionengine/internal/router"
	"github.com/marketsignal/decisionengine/internal/webhookreceipt"
)

// Server is the engine's HTTP front door.
type Server struct {
	router *mux.Router
	server *http.Server
	config ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns default server configuration, reading
// HTTP_PORT from the environment.
func DefaultServerConfig() ServerConfig {
	port := 8080
	if portStr := os.Getenv("HTTP_PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         port,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Deps bundles the collaborators the HTTP layer dispatches to.
type Deps struct {
	Orchestrator  *orchestrator.Orchestrator
	Ledger        ledger.Ledger
	Store         *contextstore.Store
	Receipts      webhookreceipt.Recorder
	Metrics       *metrics.Registry
	Auth          router.AuthConfig
	EngineVersion string
}

// NewServer builds the router and binds the listening socket, failing
// fast if the configured port is already in use.
func NewServer(config ServerConfig, deps Deps) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("port %d is busy or unavailable: %w", config.Port, err)
	}
	listener.Close()

	s := &Server{
		router: mux.NewRouter(),
		config: config,
	}
	s.setupRoutes(deps)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(requestIDMiddleware)
	s.router.Use(requestLoggingMiddleware)
	s.router.Use(corsMiddleware)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(jsonContentTypeMiddleware)

	webhook := NewWebhookHandler(deps.Orchestrator, deps.Auth, deps.EngineVersion)
	for _, source := range []string{"signals", "saty-phase", "trend", "options", "strat"} {
		api.Handle("/api/webhooks/"+source, webhook).Methods(http.MethodPost)
	}

	admin := NewAdminHandlers(deps.Ledger, deps.Store, deps.Receipts, deps.EngineVersion)
	api.HandleFunc("/api/decisions", admin.Decisions).Methods(http.MethodGet)
	api.HandleFunc("/api/phase/current", admin.PhaseCurrent).Methods(http.MethodGet)
	api.HandleFunc("/api/trend/current", admin.TrendCurrent).Methods(http.MethodGet)
	api.HandleFunc("/api/webhooks/recent", admin.WebhooksRecent).Methods(http.MethodGet)

	api.Handle("/health", NewHealthHandler(deps.EngineVersion)).Methods(http.MethodGet)
	if deps.Metrics != nil {
		api.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	s.router.NotFoundHandler = http.HandlerFunc(notFound)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"success": false,
		"error":   "route not found",
		"path":    r.URL.Path,
	})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID, _ := r.Context().Value(requestIDKey{}).(string)

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("http: request handled")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Signature, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	log.Info().Str("addr", s.config.Host+":"+strconv.Itoa(s.config.Port)).Msg("http: starting server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("http: shutting down server")
	return s.server.Shutdown(ctx)
}

// Address returns the bound host:port.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// responseWrapper captures the HTTP status code for logging.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
