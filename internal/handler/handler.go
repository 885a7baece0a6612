// Package handler exposes exercise sessions over a JSON HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pavelanni/eartrainer/internal/exercise"
	"github.com/pavelanni/eartrainer/internal/i18n"
	"github.com/pavelanni/eartrainer/internal/model"
	"github.com/pavelanni/eartrainer/internal/session"
	"github.com/pavelanni/eartrainer/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	registry *exercise.Registry
	store    *store.Store
	player   session.Player

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// New creates a new Handler. All sessions share p for playback.
func New(reg *exercise.Registry, s *store.Store, p session.Player) *Handler {
	return &Handler{
		registry: reg,
		store:    s,
		player:   p,
		sessions: make(map[string]*session.Session),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/exercises", h.handleListExercises)
	r.Post("/sessions", h.handleCreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGetSession)
		r.Delete("/", h.handleFinishSession)
		r.Post("/answer", h.handleAnswer)
		r.Post("/play", h.handlePlay)
		r.Post("/next", h.handleNextQuestion)
		r.Put("/settings", h.handleUpdateSettings)
	})
}

type createSessionRequest struct {
	ExerciseID string `json:"exerciseId"`
}

type sessionResponse struct {
	ID    string        `json:"id"`
	State session.State `json:"state"`
}

type answerRequest struct {
	Answer model.Answer `json:"answer"`
}

type answerResponse struct {
	Correct   bool          `json:"correct"`
	Completed bool          `json:"completed"`
	State     session.State `json:"state"`
}

type playRequest struct {
	Cadence bool `json:"cadence"`
}

func (h *Handler) handleListExercises(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess, err := session.New(h.registry, req.ExerciseID, h.player, h.store)
	if errors.Is(err, exercise.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "ErrExerciseNotFound", map[string]any{"ID": req.ExerciseID})
		return
	}
	if err != nil {
		internalError(w, r, "failed to create session", err)
		return
	}
	if err := sess.ApplyPersistedSettings(r.Context()); err != nil {
		internalError(w, r, "failed to apply persisted settings", err)
		return
	}

	id := uuid.NewString()
	h.mu.Lock()
	h.sessions[id] = sess
	h.mu.Unlock()

	slog.Info("session started", "session_id", id, "exercise", req.ExerciseID)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, State: sess.Snapshot()})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: sess.Snapshot()})
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req answerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Answer == "" {
		writeError(w, r, http.StatusBadRequest, "ErrBadRequest", map[string]any{"Reason": "answer cannot be empty"})
		return
	}

	res, err := sess.Answer(r.Context(), req.Answer)
	if errors.Is(err, session.ErrQuestionComplete) {
		writeError(w, r, http.StatusConflict, "ErrQuestionComplete", nil)
		return
	}
	if err != nil {
		internalError(w, r, "failed to answer", err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{
		Correct:   res.Correct,
		Completed: res.Completed,
		State:     sess.Snapshot(),
	})
}

func (h *Handler) handlePlay(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	req := playRequest{Cadence: true}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	var err error
	if req.Cadence {
		err = sess.PlayCurrentCadenceAndQuestion(r.Context())
	} else {
		err = sess.PlayCurrentQuestion(r.Context())
	}
	switch {
	case errors.Is(err, session.ErrPlaybackInProgress):
		writeError(w, r, http.StatusConflict, "ErrPlaybackBusy", nil)
		return
	case errors.Is(err, context.Canceled):
		slog.Debug("playback cancelled by client", "session_id", id)
		return
	case err != nil:
		internalError(w, r, "playback failed", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: sess.Snapshot()})
}

func (h *Handler) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.NextQuestion(); err != nil {
		internalError(w, r, "failed to create question", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: sess.Snapshot()})
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var data model.ExerciseSettingsData
	if !decodeBody(w, r, &data) {
		return
	}
	if err := sess.UpdateSettings(r.Context(), data); err != nil {
		internalError(w, r, "failed to update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: sess.Snapshot()})
}

// handleFinishSession records the session result and forgets the session.
func (h *Handler) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()

	result := sess.Result()
	rowID, err := h.store.RecordSessionResult(r.Context(), result)
	if err != nil {
		internalError(w, r, "failed to record session result", err)
		return
	}
	result.ID = rowID
	slog.Info("session finished",
		"session_id", id,
		"exercise", result.ExerciseID,
		"questions", result.TotalQuestions,
		"correct", result.TotalCorrectAnswers,
		"duration", result.FinishedAt.Sub(result.StartedAt).Round(time.Second),
	)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (string, *session.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	h.mu.Lock()
	sess, ok := h.sessions[id]
	h.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "ErrSessionNotFound", nil)
		return "", nil, false
	}
	return id, sess, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "ErrBadRequest", map[string]any{"Reason": err.Error()})
		return false
	}
	return true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msgID string, data map[string]any) {
	writeJSON(w, status, errorResponse{Error: i18n.Td(r.Context(), msgID, data)})
}

func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "path", r.URL.Path, "error", err)
	writeError(w, r, http.StatusInternalServerError, "ErrInternal", nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "type", fmt.Sprintf("%T", v), "error", err)
	}
}
