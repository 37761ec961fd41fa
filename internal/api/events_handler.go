package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/lessonplay/internal/errors"
	"github.com/vytor/lessonplay/internal/logger"
	"github.com/vytor/lessonplay/internal/playback"
)

const (
	eventBuffer = 32
	mediaEvent  = "media"
	pingComment = ": ping\n\n"
)

// handleEvents streams engine events and media commands for one session.
// The stream opens with the current view and ends after the released event.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	log := logger.FromContext(ctx).WithField("session_id", id)

	flusher, ok := w.(http.Flusher)
	if !ok {
		handleError(w, r, errors.NewInternalError(fmt.Errorf("streaming unsupported")))
		return
	}

	view, err := s.Sessions.Get(ctx, id)
	if err != nil {
		handleError(w, r, err)
		return
	}

	events := make(chan playback.Event, eventBuffer)
	unsubscribe, err := s.Sessions.Subscribe(ctx, id, func(e playback.Event) {
		select {
		case events <- e:
		default:
			log.Warn("dropping %s event: stream buffer full", e.Type)
		}
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer unsubscribe()

	cmds, cancel, err := s.Sessions.Commands(ctx, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, string(playback.EventState), playback.Event{Type: playback.EventState, View: view}, log)
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat())
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("event stream closed by client")
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, pingComment)
			flusher.Flush()
		case e := <-events:
			writeEvent(w, string(e.Type), e, log)
			flusher.Flush()
			if e.Type == playback.EventReleased {
				return
			}
		case cmd, ok := <-cmds:
			if !ok {
				// Media closes on release; keep going until the released event.
				cmds = nil
				continue
			}
			writeEvent(w, mediaEvent, cmd, log)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any, log *logger.Logger) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn("failed to marshal %s event: %v", name, err)
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}
