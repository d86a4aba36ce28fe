// Package httpapi exposes the wizard over HTTP: REST-style session
// navigation, a step graph inspection endpoint, and a per-session SSE stream
// of state diffs so clients can merge deltas instead of re-fetching.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/florelab/stepwise/internal/engine"
	"github.com/florelab/stepwise/internal/logging"
	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/ports"
	"github.com/florelab/stepwise/pkg/registry"
	"github.com/florelab/stepwise/pkg/session"
	"github.com/florelab/stepwise/pkg/submission"
)

// Server routes wizard operations to per-session engines.
type Server struct {
	sessions *session.Manager
	reg      *registry.Registry
	adapter  *submission.Adapter
	sink     ports.SubmissionSink
	record   func() any
	streams  *StreamManager
	metrics  http.Handler
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithSink enables the submit endpoint. record builds a fresh external
// record for each submission.
func WithSink(sink ports.SubmissionSink, record func() any) Option {
	return func(s *Server) {
		s.sink = sink
		s.record = record
	}
}

// WithMetricsHandler mounts handler at GET /metrics.
func WithMetricsHandler(handler http.Handler) Option {
	return func(s *Server) { s.metrics = handler }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates an HTTP server over the session manager and step graph.
func NewServer(sessions *session.Manager, reg *registry.Registry, opts ...Option) *Server {
	s := &Server{
		sessions: sessions,
		reg:      reg,
		adapter:  submission.NewAdapter(reg),
		streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.health)
	r.Get("/graph", s.graph)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getState)
			r.Get("/events", s.events)
			r.Post("/advance", s.advance)
			r.Post("/retreat", s.retreat)
			r.Post("/jump", s.jump)
			r.Post("/reset", s.reset)
			r.Post("/submit", s.submit)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// graphNode is the inspection shape of one step.
type graphNode struct {
	ID       domain.StepID   `json:"id"`
	Title    string          `json:"title"`
	First    bool            `json:"first,omitempty"`
	Terminal bool            `json:"terminal,omitempty"`
	Branches []domain.StepID `json:"branches,omitempty"`
	Fields   []string        `json:"fields,omitempty"`
}

func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	nodes := make([]graphNode, 0, s.reg.Len())
	for _, step := range s.reg.Steps() {
		nodes = append(nodes, graphNode{
			ID:       step.ID,
			Title:    step.Title,
			First:    step.ID == s.reg.First(),
			Terminal: step.Terminal(),
			Branches: step.Branches,
			Fields:   step.Schema.Fields(),
		})
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()
	var state *domain.State
	err := s.sessions.With(r.Context(), sessionID, func(ctx context.Context, wiz *engine.Wizard) error {
		st, err := wiz.Start(ctx)
		state = st
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcast(sessionID, nil, state)
	writeJSON(w, http.StatusCreated, state)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var state *domain.State
	err := s.sessions.With(r.Context(), sessionID, func(ctx context.Context, wiz *engine.Wizard) error {
		if wiz.State().Phase == domain.PhaseIdle {
			st, err := wiz.Start(ctx)
			state = st
			return err
		}
		state = wiz.State()
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// advanceRequest carries one forward transition. From guards against stale
// duplicate submits: when set and it no longer matches the current step, the
// engine treats the call as a no-op.
type advanceRequest struct {
	From    domain.StepID    `json:"from,omitempty"`
	Answers domain.AnswerSet `json:"answers"`
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	var body advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	var before, after *domain.State
	err := s.sessions.With(r.Context(), sessionID, func(ctx context.Context, wiz *engine.Wizard) error {
		before = wiz.State()
		st, err := wiz.AdvanceFrom(ctx, body.From, body.Answers)
		after = st
		return err
	})

	// A validation failure still carries a state snapshot the client needs.
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		s.broadcast(sessionID, before, after)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"state":  after,
			"errors": vErr.Fields,
		})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcast(sessionID, before, after)
	writeJSON(w, http.StatusOK, after)
}

func (s *Server) retreat(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, func(ctx context.Context, wiz *engine.Wizard) (*domain.State, error) {
		return wiz.Retreat(ctx)
	})
}

func (s *Server) jump(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Target domain.StepID `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.navigate(w, r, func(ctx context.Context, wiz *engine.Wizard) (*domain.State, error) {
		return wiz.Jump(ctx, body.Target)
	})
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request, op func(context.Context, *engine.Wizard) (*domain.State, error)) {
	sessionID := chi.URLParam(r, "sessionID")
	var before, after *domain.State
	err := s.sessions.With(r.Context(), sessionID, func(ctx context.Context, wiz *engine.Wizard) error {
		before = wiz.State()
		st, err := op(ctx, wiz)
		after = st
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcast(sessionID, before, after)
	writeJSON(w, http.StatusOK, after)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	err := s.sessions.With(r.Context(), sessionID, func(ctx context.Context, wiz *engine.Wizard) error {
		return wiz.Reset(ctx)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.sessions.Drop(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		http.Error(w, "submission is not configured", http.StatusNotImplemented)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	var result *ports.SubmissionResult
	var record any
	err := s.sessions.With(r.Context(), sessionID, func(ctx context.Context, wiz *engine.Wizard) error {
		if !wiz.Completed() {
			return domain.ErrNotCompleted
		}
		state := wiz.State()
		if fields := s.reg.ValidateAll(state.Answers); len(fields) > 0 {
			return &domain.ValidationError{Step: state.Current, Fields: fields}
		}
		record = s.record()
		if err := s.adapter.Decode(state.Answers, record); err != nil {
			return err
		}
		res, err := s.adapter.Submit(ctx, s.sink, record)
		result = res
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reference": result.Reference,
		"record":    record,
	})
}

func (s *Server) broadcast(sessionID string, before, after *domain.State) {
	diff := domain.Diff(before, after)
	if diff == nil {
		return
	}
	payload, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("failed to encode state diff", "session_id", sessionID, "err", err)
		return
	}
	s.streams.Broadcast(sessionID, string(payload))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("response encode failed", "err", err)
	}
}
