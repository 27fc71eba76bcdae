// Package server provides the HTTP REST API for the discovery pipeline.
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

	"github.com/google/uuid"

	"github.com/jonathan/gear-discovery/internal/config"
	"github.com/jonathan/gear-discovery/internal/db"
	"github.com/jonathan/gear-discovery/internal/gaps"
	"github.com/jonathan/gear-discovery/internal/orchestrator"
	"github.com/jonathan/gear-discovery/internal/server/middleware"
	"github.com/jonathan/gear-discovery/internal/server/ratelimit"
)

// RunLauncher executes one discovery run with the given configuration. The
// real implementation wires adapters and the orchestrator; tests inject a
// fake.
type RunLauncher func(ctx context.Context, cfg config.RunConfig) (*orchestrator.RunReport, error)

// RunReader is the run query surface of the database.
type RunReader interface {
	GetRun(ctx context.Context, runID uuid.UUID) (*db.DiscoveryRun, error)
	ListRuns(ctx context.Context, filters db.RunFilters) ([]db.DiscoveryRun, error)
}

// BagReader is the bag query surface of the database.
type BagReader interface {
	GetBagByCode(ctx context.Context, code string) (*db.CuratedBag, error)
	ListBagItems(ctx context.Context, bagID uuid.UUID) ([]db.BagItem, error)
}

// Deps bundles the server's collaborators.
type Deps struct {
	Runs     RunReader
	Bags     BagReader
	Gaps     gaps.Store
	Launcher RunLauncher
	JWT      *JWTService
}

// Config holds server configuration.
type Config struct {
	Port    int
	BaseRun config.RunConfig // defaults merged into every triggered run
}

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	deps        Deps
	baseRun     config.RunConfig
	rateLimiter *ratelimit.Limiter
}

// New creates a new server instance.
func New(cfg Config, deps Deps) *Server {
	s := &Server{
		deps:        deps,
		baseRun:     cfg.BaseRun,
		rateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
	}

	requireAuth := middleware.AuthMiddleware(deps.JWT.AsTokenValidator())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Read endpoints
	mux.Handle("GET /runs", requireAuth(http.HandlerFunc(s.handleListRuns)))
	mux.Handle("GET /runs/{id}", requireAuth(http.HandlerFunc(s.handleGetRun)))
	mux.Handle("GET /gaps/report", requireAuth(http.HandlerFunc(s.handleGapReport)))
	mux.Handle("GET /bags/{code}", requireAuth(http.HandlerFunc(s.handleGetBag)))

	// Trigger endpoint
	mux.Handle("POST /runs", requireAuth(http.HandlerFunc(s.handleTriggerRun)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 600 * time.Second, // synchronous runs can take minutes
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the configured handler chain for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
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

	log.Println("Server stopped")
	return nil
}

// withRateLimit adds rate limiting middleware.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request. Uses the
// IP from RemoteAddr; X-Forwarded-For would only be trustworthy behind a
// known proxy.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit
// information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
