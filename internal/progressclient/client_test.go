package progressclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/lessonplay/internal/models"
	"github.com/vytor/lessonplay/internal/progressclient"
)

func newClient(t *testing.T, h http.HandlerFunc) *progressclient.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return progressclient.New(progressclient.Options{BaseURL: srv.URL + "/", Token: "secret", Timeout: 2 * time.Second})
}

func TestFetchProgress(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/videos/v1/progress", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"currentDuration": 80, "isCompleted": true, "lastCorrectCheckpoint": 20, "correctlyAnsweredQuestions": ["q1"]}`))
	})

	got, err := c.FetchProgress(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, &models.RemoteProgress{
		CurrentDuration:            80,
		IsCompleted:                true,
		LastCorrectCheckpoint:      20,
		CorrectlyAnsweredQuestions: []string{"q1"},
	}, got)
}

func TestFetchProgress_NotFound(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := c.FetchProgress(context.Background(), "v1")
	assert.ErrorIs(t, err, progressclient.ErrNotFound)
}

func TestFetchProgress_ServerError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 2000)))
	})

	_, err := c.FetchProgress(context.Background(), "v1")
	var se *progressclient.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Len(t, se.Body, 512)
}

func TestSubmitProgress_CreateThenUpdate(t *testing.T) {
	var (
		mu      sync.Mutex
		methods []string
		bodies  []models.ProgressSnapshot
	)
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/videos/v1/progress", r.URL.Path)
		var snap models.ProgressSnapshot
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&snap))
		mu.Lock()
		methods = append(methods, r.Method)
		bodies = append(bodies, snap)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	snap := models.ProgressSnapshot{VideoID: "v1", CurrentTime: 42, Duration: 100, CorrectlyAnsweredQuestions: []string{"q1"}}
	require.NoError(t, c.SubmitProgress(context.Background(), "v1", snap, true))
	require.NoError(t, c.SubmitProgress(context.Background(), "v1", snap, false))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{http.MethodPost, http.MethodPut}, methods)
	require.Len(t, bodies, 2)
	assert.Equal(t, 42.0, bodies[0].CurrentTime)
	assert.Equal(t, []string{"q1"}, bodies[1].CorrectlyAnsweredQuestions)
}

func TestSubmitProgress_Rejected(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"already exists"}`))
	})

	err := c.SubmitProgress(context.Background(), "v1", models.ProgressSnapshot{VideoID: "v1"}, true)
	var se *progressclient.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusConflict, se.Status)
	assert.Contains(t, se.Body, "already exists")
}

func TestSubmitAnswer(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/videos/v1/answers", r.URL.Path)

		var sub models.AnswerSubmission
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		assert.Equal(t, "q1", sub.QuestionID)
		assert.Equal(t, "b", sub.Answer.OptionID)
		assert.True(t, sub.Meta.Correct)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "sub-7", "questionId": "q1", "correct": true, "submittedAt": "2025-03-01T10:00:00Z"}`))
	})

	rec, err := c.SubmitAnswer(context.Background(), models.AnswerSubmission{
		VideoID:    "v1",
		QuestionID: "q1",
		Answer:     models.Answer{QuestionID: "q1", OptionID: "b"},
		Meta:       models.AnswerMeta{Correct: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-7", rec.ID)
	assert.True(t, rec.Correct)
	assert.Equal(t, 2025, rec.SubmittedAt.Year())
}

func TestFetchProgress_ContextCancelled(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchProgress(ctx, "v1")
	assert.Error(t, err)
}
