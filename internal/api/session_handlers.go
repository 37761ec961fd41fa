package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/lessonplay/internal/errors"
	"github.com/vytor/lessonplay/internal/logger"
	"github.com/vytor/lessonplay/internal/models"
	"github.com/vytor/lessonplay/internal/playback"
)

type startSessionRequest struct {
	Video *models.VideoContent `json:"video"`
}

type startSessionResponse struct {
	SessionID string        `json:"sessionId"`
	View      playback.View `json:"view"`
}

type timeUpdateRequest struct {
	Position *float64 `json:"position"`
	Duration float64  `json:"duration"`
}

type seekRequest struct {
	Time *float64 `json:"time"`
}

type answerResponse struct {
	Outcome playback.AnswerOutcome `json:"outcome"`
	View    playback.View          `json:"view"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req startSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.Video == nil {
		handleError(w, r, errors.NewValidationError("video", "is required"))
		return
	}

	id, view, err := s.Sessions.Start(r.Context(), *req.Video)
	if err != nil {
		handleError(w, r, err)
		return
	}
	log.Debug("session created: session_id=%s", id)
	writeJSON(w, r, http.StatusCreated, startSessionResponse{SessionID: id, View: view})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.End(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTimeUpdate(w http.ResponseWriter, r *http.Request) {
	var req timeUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.Position == nil {
		handleError(w, r, errors.NewValidationError("position", "is required"))
		return
	}

	view, err := s.Sessions.TimeUpdate(r.Context(), chi.URLParam(r, "id"), *req.Position, req.Duration)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var answer models.Answer
	if err := decodeJSON(w, r, &answer); err != nil {
		handleError(w, r, err)
		return
	}

	out, view, err := s.Sessions.Answer(r.Context(), chi.URLParam(r, "id"), answer)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, answerResponse{Outcome: out, View: view})
}

func (s *Server) handleCloseQuestion(w http.ResponseWriter, r *http.Request) {
	view, err := s.Sessions.CloseQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	view, err := s.Sessions.TogglePlayPause(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.Time == nil {
		handleError(w, r, errors.NewValidationError("time", "is required"))
		return
	}

	view, err := s.Sessions.Seek(r.Context(), chi.URLParam(r, "id"), *req.Time)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}
