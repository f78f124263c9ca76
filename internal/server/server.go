// Package server provides the HTTP REST API for the creative composer.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/creative-composer/internal/compiler"
	"github.com/jonathan/creative-composer/internal/config"
	"github.com/jonathan/creative-composer/internal/db"
	"github.com/jonathan/creative-composer/internal/filestore"
	"github.com/jonathan/creative-composer/internal/llm"
	"github.com/jonathan/creative-composer/internal/pipeline"
	"github.com/jonathan/creative-composer/internal/render"
	"github.com/jonathan/creative-composer/internal/server/middleware"
	"github.com/jonathan/creative-composer/internal/server/ratelimit"
)

// Server represents the HTTP server
type Server struct {
	httpServer   *http.Server
	db           *db.DB
	blobs        pipeline.BlobStore
	orchestrator *pipeline.Orchestrator
	llmClient    llm.Client
	rateLimiter  *ratelimit.Limiter
	jwtService   *JWTService
}

// Config holds server configuration
type Config struct {
	Port        int
	DatabaseURL string
	APIKey      string
	Store       filestore.Config
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	ctx := context.Background()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	blobs, err := filestore.New(ctx, cfg.Store)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to connect to object store: %w", err)
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create capability client: %w", err)
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	s := &Server{
		db:        database,
		blobs:     blobs,
		llmClient: client,
		orchestrator: pipeline.NewOrchestrator(
			database, blobs,
			compiler.NewCompiler(client),
			render.NewGenerator(client),
		),
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		jwtService:  NewJWTService(jwtConfig),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	authed := http.NewServeMux()
	authed.HandleFunc("POST /runs", s.handleCreateRun)
	authed.HandleFunc("GET /runs", s.handleListRuns)
	authed.HandleFunc("GET /runs/{id}", s.handleGetRun)
	authed.HandleFunc("POST /runs/{id}/approve", s.handleApproveRun)
	authed.HandleFunc("POST /runs/{id}/edit", s.handleEditRun)
	authed.HandleFunc("POST /runs/{id}/cancel", s.handleCancelRun)
	authed.HandleFunc("POST /runs/{id}/regenerate", s.handleRegenerateRun)
	authed.HandleFunc("GET /runs/{id}/creative", s.handleGetCreative)
	authed.HandleFunc("GET /runs/{id}/revisions", s.handleListRevisions)
	authed.HandleFunc("POST /assets", s.handleUploadAsset)
	mux.Handle("/", s.withAuth(authed))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Stage calls can run long
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.llmClient != nil {
		_ = s.llmClient.Close()
	}
	s.db.Close()
	log.Println("Server stopped")
	return nil
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	return middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(next)
}

// withRateLimit applies per-client limits keyed by IP.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method) {
			s.jsonResponse(w, http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging logs requests
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// extractClientID identifies the client for rate limiting.
func (s *Server) extractClientID(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes a domain error with its mapped status code.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		s.jsonResponse(w, status, map[string]string{"error": "internal server error"})
		return
	}
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}
