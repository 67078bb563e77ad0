// Package server provides the HTTP REST API for the intake service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/smart-intake/internal/ashby"
	"github.com/jonathan/smart-intake/internal/assessments"
	"github.com/jonathan/smart-intake/internal/confluence"
	"github.com/jonathan/smart-intake/internal/db"
	"github.com/jonathan/smart-intake/internal/extraction"
	"github.com/jonathan/smart-intake/internal/intake"
	"github.com/jonathan/smart-intake/internal/interviews"
	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/orgctx"
	"github.com/jonathan/smart-intake/internal/server/middleware"
	"github.com/jonathan/smart-intake/internal/server/ratelimit"
	"github.com/jonathan/smart-intake/internal/synthesis"
	"github.com/jonathan/smart-intake/internal/templates"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 2 << 20

// AgentQuerier asks the enterprise search assistant a question
type AgentQuerier interface {
	QueryAgent(ctx context.Context, agentID, question string) (string, error)
}

// Deps are the collaborators the server is built from. Optional integrations
// are nil when not configured.
type Deps struct {
	Store       db.IntakeStore
	LLM         llm.Client
	Resolver    *orgctx.Resolver
	Matcher     *templates.Matcher
	Practices   *confluence.Library
	Assessments *assessments.Catalog

	ATS           *ashby.Client
	Agent         AgentQuerier
	AgentID       string
	Tokens        middleware.TokenValidator
	RateLimit     *ratelimit.Config
	AutosaveDelay time.Duration
	Port          int

	// closers run when the server stops, in reverse order
	closers []func()
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	deps        Deps
	rateLimiter *ratelimit.Limiter
	validate    *validator.Validate

	intakes     *intake.Service
	extractor   *extraction.Extractor
	synthesizer *synthesis.Synthesizer
	generator   *interviews.Generator
	drafts      *DraftRegistry

	closeOnce sync.Once
}

// New creates a new server instance
func New(deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("an intake store is required")
	}
	if deps.LLM == nil {
		return nil, fmt.Errorf("a text generation client is required")
	}
	if deps.Resolver == nil {
		deps.Resolver = orgctx.NewResolver(nil, nil)
	}
	if deps.Practices == nil {
		lib, err := confluence.NewLibrary("", nil)
		if err != nil {
			return nil, err
		}
		deps.Practices = lib
	}
	if deps.Assessments == nil {
		catalog, err := assessments.Load()
		if err != nil {
			return nil, err
		}
		deps.Assessments = catalog
	}
	if deps.Matcher == nil {
		f, err := templates.LoadFile("")
		if err != nil {
			return nil, err
		}
		deps.Matcher = templates.NewMatcher(nil, templates.NewWikiCatalog(f, ""), templates.NewFormCatalog(f))
	}

	s := &Server{
		deps:        deps,
		validate:    newValidator(),
		rateLimiter: ratelimit.NewLimiter(deps.RateLimit),
		intakes:     intake.NewService(deps.Store),
		extractor:   extraction.New(deps.LLM),
		synthesizer: synthesis.New(deps.LLM),
		generator:   interviews.New(deps.LLM, deps.Practices),
	}
	s.drafts = NewDraftRegistry(s.intakes, deps.AutosaveDelay)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Job description
	mux.HandleFunc("POST /api/jd/analyze", s.handleAnalyzeJD)
	mux.HandleFunc("POST /api/jd/enhance", s.handleEnhanceJD)
	mux.HandleFunc("POST /api/jd/assist", s.handleAssist)

	// Organization
	mux.HandleFunc("POST /api/org/resolve", s.handleResolveOrg)
	mux.HandleFunc("POST /api/org/ask", s.handleAskOrg)

	// Templates and loops
	mux.HandleFunc("POST /api/templates/match", s.handleMatchTemplates)
	mux.HandleFunc("POST /api/loops/synthesize", s.handleSynthesizeLoop)

	// Stage enrichment
	mux.HandleFunc("POST /api/interviews/questions", s.handleGenerateQuestions)
	mux.HandleFunc("POST /api/interviews/rubric", s.handleGenerateRubric)
	mux.HandleFunc("POST /api/interviews/presentation-prompt", s.handleGeneratePresentationPrompt)
	mux.HandleFunc("POST /api/assessments/suggest", s.handleSuggestAssessments)
	mux.HandleFunc("GET /api/assessments/categories", s.handleAssessmentCategories)
	mux.HandleFunc("POST /api/best-practices", s.handleBestPractices)
	mux.HandleFunc("GET /api/best-practices/topics", s.handleBestPracticeTopics)

	// ATS
	mux.HandleFunc("POST /api/ats/search-job", s.handleSearchJob)
	mux.HandleFunc("POST /api/ats/push", s.handlePushLoop)

	// Uploads
	mux.HandleFunc("POST /api/uploads/process", s.handleProcessUploads)
	mux.HandleFunc("POST /api/uploads", s.handleSaveUpload)
	mux.HandleFunc("GET /api/uploads", s.handleListUploads)

	// Intakes
	mux.HandleFunc("POST /intakes", s.handleCreateIntake)
	mux.HandleFunc("GET /intakes", s.handleListIntakes)
	mux.HandleFunc("GET /intakes/{id}", s.handleGetIntake)
	mux.HandleFunc("PATCH /intakes/{id}", s.handleUpdateIntake)
	mux.HandleFunc("DELETE /intakes/{id}", s.handleDeleteIntake)
	mux.HandleFunc("GET /intakes/{id}/versions", s.handleListVersions)
	mux.HandleFunc("GET /intakes/{id}/activity", s.handleListActivity)
	mux.HandleFunc("GET /intakes/{id}/export.xlsx", s.handleExportIntake)

	// Shares and comments
	mux.HandleFunc("POST /intakes/{id}/shares", s.handleShareIntake)
	mux.HandleFunc("GET /intakes/{id}/shares", s.handleListShares)
	mux.HandleFunc("DELETE /intakes/{id}/shares/{share_id}", s.handleRevokeShare)
	mux.HandleFunc("POST /intakes/{id}/comments", s.handleAddComment)
	mux.HandleFunc("GET /intakes/{id}/comments", s.handleListComments)
	mux.HandleFunc("PATCH /intakes/{id}/comments/{comment_id}", s.handleResolveComment)
	mux.HandleFunc("DELETE /intakes/{id}/comments/{comment_id}", s.handleDeleteComment)

	// Draft sessions
	mux.HandleFunc("POST /drafts", s.handleCreateDraft)
	mux.HandleFunc("GET /drafts/{key}", s.handleGetDraft)
	mux.HandleFunc("PATCH /drafts/{key}", s.handleUpdateDraft)
	mux.HandleFunc("DELETE /drafts/{key}", s.handleCloseDraft)
	mux.HandleFunc("POST /drafts/{key}/loop", s.handleEditDraftLoop)
	mux.HandleFunc("POST /drafts/{key}/stages/{stage_id}/{kind}", s.handleEnrichDraftStage)
	mux.HandleFunc("GET /drafts/{key}/events", s.handleDraftEvents)

	// The limiter runs after the actor is resolved so generation limits follow the person
	s.handler = s.withLogging(s.withCORS(middleware.ActorMiddleware(deps.Tokens)(s.withRateLimit(mux))))

	port := deps.Port
	if port == 0 {
		port = 8080
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // draft event streams stay open
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped request handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("[server] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.drafts.CloseAll(ctx)
	s.Close()
	log.Println("[server] stopped")
	return nil
}

// Close stops background work and releases collaborators
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		// Stop rate limiter cleanup goroutine
		s.rateLimiter.Stop()
		for i := len(s.deps.closers) - 1; i >= 0; i-- {
			s.deps.closers[i]()
		}
	})
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.HeaderActorEmail+", "+middleware.HeaderActorName)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := ratelimit.Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Peer:   s.extractClientID(r),
		}
		if id := middleware.GetIdentity(r); id.Email != middleware.AnonymousEmail {
			req.Actor = id.Email
		}

		info := s.rateLimiter.Allow(req)
		s.setRateLimitHeaders(w, info)
		if !info.Allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps event streams working through the logging wrapper
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[%s] %s %d in %v", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status": "ok",
		"integrations": map[string]bool{
			"llm":        s.deps.LLM != nil,
			"glean":      s.deps.Resolver.Configured(),
			"ashby":      s.deps.ATS != nil,
			"agent":      s.deps.Agent != nil,
			"confluence": s.deps.Practices != nil,
		},
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[server] error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFrom writes err with the status HTTPStatus picks. Internal errors are
// logged and reported without their detail.
func (s *Server) errorFrom(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	switch status {
	case http.StatusInternalServerError:
		log.Printf("[server] %s %s failed: %v", r.Method, r.URL.Path, err)
		s.errorResponse(w, status, "Internal server error")
	case http.StatusBadGateway:
		log.Printf("[server] %s %s collaborator failure: %v", r.Method, r.URL.Path, err)
		s.jsonResponse(w, status, map[string]string{"error": "Upstream service failed", "details": err.Error()})
	default:
		s.errorResponse(w, status, err.Error())
	}
}

// decodeJSON reads the request body into v and validates its struct tags
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrValidation{Field: "body", Message: "request body is required"}
		}
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if reflect.Indirect(reflect.ValueOf(v)).Kind() != reflect.Struct {
		return nil
	}
	if err := s.validate.Struct(v); err != nil {
		return validationFailure(err)
	}
	return nil
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// extractClientID extracts the client identifier from the request.
// X-Forwarded-For is not trusted; the limiter keys on the peer address.
func (s *Server) extractClientID(r *http.Request) string {
	// Get IP from RemoteAddr (format: "IP:port")
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If parsing fails, use the whole RemoteAddr
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

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
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

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Scope=%s Reset=%s",
		info.Limit, info.Scope, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// actor returns who the request is attributed to
func actor(r *http.Request) intake.Actor {
	id := middleware.GetIdentity(r)
	return intake.Actor{Email: id.Email, Name: id.Name}
}
