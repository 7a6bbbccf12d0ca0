// Package api exposes the companion over HTTP: a turn endpoint plus
// read-only views into its inner state and memories.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/SignHolo/companion/internal/emotion"
	"github.com/SignHolo/companion/internal/orchestrator"
	"github.com/SignHolo/companion/internal/session"
	"github.com/SignHolo/companion/internal/store"
)

// TurnRunner runs one turn of the pipeline.
type TurnRunner interface {
	HandleTurn(ctx context.Context, conversationID, input string) (string, error)
	ReflectIdle(ctx context.Context) error
}

// Reader is the read-only persistence surface the API exposes.
type Reader interface {
	LoadEmotion(ctx context.Context, now time.Time) (emotion.State, error)
	LoadSession(ctx context.Context, conversationID string) (session.Memory, error)
	RecentEpisodic(ctx context.Context, limit int) ([]store.EpisodicMemory, error)
	ListTraces(ctx context.Context) ([]store.EmotionalTrace, error)
	ListSemantic(ctx context.Context) ([]store.SemanticMemory, error)
	ListIdentity(ctx context.Context) ([]store.IdentityMemory, error)
	ListSelfBeliefs(ctx context.Context) ([]store.SelfBelief, error)
	ListMonologues(ctx context.Context, limit int) ([]store.Monologue, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	runner TurnRunner
	reader Reader
	logger *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(runner TurnRunner, reader Reader, logger *zap.Logger) *Handler {
	return &Handler{runner: runner, reader: reader, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Post("/turn", h.runTurn)
		r.Get("/state", h.getState)
		r.Get("/session", h.getSession)
		r.Route("/memories", func(r chi.Router) {
			r.Get("/episodic", h.listEpisodic)
			r.Get("/traces", h.listTraces)
			r.Get("/facts", h.listFacts)
			r.Get("/identity", h.listIdentity)
			r.Get("/beliefs", h.listBeliefs)
		})
		r.Post("/monologue", h.triggerMonologue)
		r.Get("/monologues", h.listMonologues)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type turnRequest struct {
	ConversationID string `json:"conversation_id"`
	Input          string `json:"input"`
}

type turnResponse struct {
	Reply string `json:"reply"`
}

func (h *Handler) runTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Input == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "input is required"})
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = "api:default"
	}

	reply, err := h.runner.HandleTurn(r.Context(), req.ConversationID, req.Input)
	if errors.Is(err, orchestrator.ErrTurnInFlight) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a turn is already running for this conversation"})
		return
	}
	if err != nil {
		h.logger.Error("turn failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "turn failed"})
		return
	}
	writeJSON(w, http.StatusOK, turnResponse{Reply: reply})
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	state, err := h.reader.LoadEmotion(r.Context(), time.Now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		conversationID = "api:default"
	}
	mem, err := h.reader.LoadSession(r.Context(), conversationID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, mem)
}

func (h *Handler) listEpisodic(w http.ResponseWriter, r *http.Request) {
	mems, err := h.reader.RecentEpisodic(r.Context(), 50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(mems))
}

func (h *Handler) listTraces(w http.ResponseWriter, r *http.Request) {
	traces, err := h.reader.ListTraces(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(traces))
}

func (h *Handler) listFacts(w http.ResponseWriter, r *http.Request) {
	facts, err := h.reader.ListSemantic(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(facts))
}

func (h *Handler) listIdentity(w http.ResponseWriter, r *http.Request) {
	beliefs, err := h.reader.ListIdentity(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(beliefs))
}

func (h *Handler) listBeliefs(w http.ResponseWriter, r *http.Request) {
	beliefs, err := h.reader.ListSelfBeliefs(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(beliefs))
}

func (h *Handler) triggerMonologue(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.ReflectIdle(r.Context()); err != nil {
		h.logger.Error("monologue cycle failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reflection failed"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reflected"})
}

func (h *Handler) listMonologues(w http.ResponseWriter, r *http.Request) {
	monos, err := h.reader.ListMonologues(r.Context(), 20)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(monos))
}

// orEmpty keeps list endpoints returning [] instead of null.
func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
