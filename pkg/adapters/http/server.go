// Package http exposes workflow sessions over a JSON API. Each request
// rebuilds the session engine from its stored snapshot, applies one
// operation, and persists the result, so any number of stateless replicas
// can serve the same session store.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/canvass/internal/logging"
	"github.com/aretw0/canvass/internal/runtime"
	"github.com/aretw0/canvass/pkg/deferred"
	"github.com/aretw0/canvass/pkg/domain"
	"github.com/aretw0/canvass/pkg/ports"
	"github.com/aretw0/canvass/pkg/session"
)

// Server serves workflow sessions backed by a loader and a session manager.
type Server struct {
	loader       ports.WorkflowLoader
	sessions     *session.Manager
	rootWorkflow string
	codec        *deferred.Codec
	logger       *slog.Logger
	now          func() int64
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCodec injects the decoder for deferred operations stored in snapshots.
func WithCodec(codec *deferred.Codec) Option {
	return func(s *Server) {
		s.codec = codec
	}
}

// WithClock overrides the timestamp source, mainly for tests.
func WithClock(now func() int64) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a Server for the given root workflow.
func NewServer(loader ports.WorkflowLoader, sessions *session.Manager, rootWorkflow string, opts ...Option) *Server {
	s := &Server{
		loader:       loader,
		sessions:     sessions,
		rootWorkflow: rootWorkflow,
		logger:       logging.NewNop(),
		now:          func() int64 { return time.Now().Unix() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler builds the chi router for the server.
func NewHandler(server *Server) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", server.ListSessions)
		r.Post("/", server.CreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", server.GetSession)
			r.Delete("/", server.CancelSession)
			r.Post("/answer", server.PostAnswer)
			r.Put("/answers/{questionID}", server.PutAnswer)
			r.Get("/feedback", server.GetFeedback)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionState is the API view of a session.
type SessionState struct {
	SessionID       string           `json:"session_id"`
	Completed       bool             `json:"completed"`
	AnsweredCount   int              `json:"answered_count"`
	CurrentQuestion *domain.Question `json:"current_question,omitempty"`
}

// AnswerRequest is the body for answer submissions.
type AnswerRequest struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// CreateSessionRequest is the body for session creation.
type CreateSessionRequest struct {
	SessionID string `json:"session_id"`
	Workflow  string `json:"workflow,omitempty"`
}

func (s *Server) state(engine *runtime.Engine) SessionState {
	return SessionState{
		SessionID:       engine.SessionID(),
		Completed:       engine.Completed(),
		AnsweredCount:   len(engine.FeedbackArray()),
		CurrentQuestion: engine.CurrentQuestion(),
	}
}

// newEngine builds a fresh engine for a session against the configured
// workflow.
func (s *Server) newEngine(ctx context.Context, sessionID, workflowID string) (*runtime.Engine, error) {
	if workflowID == "" {
		workflowID = s.rootWorkflow
	}
	questions, err := s.loader.LoadWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
	}

	opts := []runtime.EngineOption{
		runtime.WithLoader(s.loader),
		runtime.WithLogger(s.logger),
	}
	if s.codec != nil {
		opts = append(opts, runtime.WithCodec(s.codec))
	}
	return runtime.NewEngine(sessionID, questions, opts...), nil
}

// restoreEngine loads the stored snapshot and rebuilds the engine.
func (s *Server) restoreEngine(ctx context.Context, sessionID string) (*runtime.Engine, error) {
	snap, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	engine, err := s.newEngine(ctx, sessionID, "")
	if err != nil {
		return nil, err
	}
	if err := engine.Restore(ctx, snap, s.now()); err != nil {
		return nil, err
	}
	return engine, nil
}

func (s *Server) persist(ctx context.Context, engine *runtime.Engine) error {
	snap, err := engine.Serialize()
	if err != nil {
		return err
	}
	return s.sessions.Save(ctx, engine.SessionID(), snap)
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if existing, err := s.sessions.LoadOrNil(ctx, body.SessionID); err != nil {
		s.internalError(w, "session lookup failed", err)
		return
	} else if existing != nil {
		http.Error(w, "session already exists", http.StatusConflict)
		return
	}

	engine, err := s.newEngine(ctx, body.SessionID, body.Workflow)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := engine.Start(ctx, s.now()); err != nil {
		s.internalError(w, "failed to start session", err)
		return
	}
	if err := s.persist(ctx, engine); err != nil {
		s.internalError(w, "failed to persist session", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, s.state(engine))
}

// GetSession handles GET /sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	engine, err := s.restoreEngine(r.Context(), sessionID)
	if err != nil {
		s.restoreError(w, sessionID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.state(engine))
}

// PostAnswer handles POST /sessions/{sessionID}/answer.
func (s *Server) PostAnswer(w http.ResponseWriter, r *http.Request) {
	var body AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")
	engine, err := s.restoreEngine(ctx, sessionID)
	if err != nil {
		s.restoreError(w, sessionID, err)
		return
	}

	if err := engine.Answer(ctx, domain.Answer{Type: body.Type, Value: body.Value}, s.now()); err != nil {
		http.Error(w, fmt.Sprintf("Answer rejected: %v", err), http.StatusUnprocessableEntity)
		return
	}
	if err := s.persist(ctx, engine); err != nil {
		s.internalError(w, "failed to persist session", err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.state(engine))
}

// PutAnswer handles PUT /sessions/{sessionID}/answers/{questionID}: a
// revision of an already answered question.
func (s *Server) PutAnswer(w http.ResponseWriter, r *http.Request) {
	var body AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")
	questionID := chi.URLParam(r, "questionID")
	engine, err := s.restoreEngine(ctx, sessionID)
	if err != nil {
		s.restoreError(w, sessionID, err)
		return
	}

	if err := engine.Reanswer(ctx, questionID, domain.Answer{Type: body.Type, Value: body.Value}, s.now()); err != nil {
		http.Error(w, fmt.Sprintf("Revision rejected: %v", err), http.StatusUnprocessableEntity)
		return
	}
	if err := s.persist(ctx, engine); err != nil {
		s.internalError(w, "failed to persist session", err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.state(engine))
}

// GetFeedback handles GET /sessions/{sessionID}/feedback. It serves the
// stored history directly: answers for sensitive questions appear as secret
// references or masks, never plaintext.
func (s *Server) GetFeedback(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	snap, err := s.sessions.Load(r.Context(), sessionID)
	if err != nil {
		s.restoreError(w, sessionID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap.FeedbackHistory)
}

// CancelSession handles DELETE /sessions/{sessionID}.
func (s *Server) CancelSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")

	engine, err := s.restoreEngine(ctx, sessionID)
	if err != nil {
		s.restoreError(w, sessionID, err)
		return
	}
	if err := engine.Cancel(ctx, s.now()); err != nil {
		s.internalError(w, "failed to cancel session", err)
		return
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.internalError(w, "failed to delete session", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		s.internalError(w, "failed to list sessions", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":      "canvass-http",
		"workflow": s.rootWorkflow,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) restoreError(w http.ResponseWriter, sessionID string, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	var mismatch *runtime.VersionMismatchError
	if errors.As(err, &mismatch) {
		http.Error(w, fmt.Sprintf("stored session is incompatible: %v", err), http.StatusConflict)
		return
	}
	s.internalError(w, "failed to restore session", err, "session_id", sessionID)
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error, args ...any) {
	s.logger.Error(msg, append([]any{"err", err}, args...)...)
	http.Error(w, msg, http.StatusInternalServerError)
}
