package models

import (
	"sort"
	"time"
)

// CompletionThreshold is the watched fraction at which a video counts as completed.
const CompletionThreshold = 0.95

// AnsweredQuestionRecord is one answer given during a session.
type AnsweredQuestionRecord struct {
	QuestionID string  `json:"questionId"`
	Timestamp  float64 `json:"timestamp"`
	Correct    bool    `json:"correct"`
}

// PlaybackProgress is the learner's position in one video.
type PlaybackProgress struct {
	CurrentTime       float64                  `json:"currentTime"`
	Duration          float64                  `json:"duration"`
	Completed         bool                     `json:"completed"`
	AnsweredQuestions []AnsweredQuestionRecord `json:"answeredQuestions"`
}

// CheckpointState tracks correct answers; the checkpoint is only used by
// interactive videos.
type CheckpointState struct {
	LastCorrectCheckpoint float64             `json:"lastCorrectCheckpoint"`
	CorrectlyAnswered     map[string]struct{} `json:"-"`
}

// IDs returns the correctly answered question ids in sorted order.
func (c CheckpointState) IDs() []string {
	ids := make([]string, 0, len(c.CorrectlyAnswered))
	for id := range c.CorrectlyAnswered {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RemoteProgress is what the progress service returns for a prior session.
// CurrentDuration is the last reported playback position in seconds.
type RemoteProgress struct {
	CurrentDuration            float64  `json:"currentDuration"`
	IsCompleted                bool     `json:"isCompleted"`
	LastCorrectCheckpoint      float64  `json:"lastCorrectCheckpoint"`
	CorrectlyAnsweredQuestions []string `json:"correctlyAnsweredQuestions"`
}

// ProgressSnapshot is the full state pushed to the progress service on every
// persist. It is never a delta; the latest one to arrive wins.
type ProgressSnapshot struct {
	VideoID                    string                   `json:"videoId"`
	CourseID                   string                   `json:"courseId,omitempty"`
	ChapterID                  string                   `json:"chapterId,omitempty"`
	VideoType                  VideoType                `json:"videoType"`
	CurrentTime                float64                  `json:"currentDuration"`
	Duration                   float64                  `json:"totalDuration"`
	Completed                  bool                     `json:"isCompleted"`
	LastCorrectCheckpoint      float64                  `json:"lastCorrectCheckpoint"`
	CorrectlyAnsweredQuestions []string                 `json:"correctlyAnsweredQuestions"`
	AnsweredQuestions          []AnsweredQuestionRecord `json:"answeredQuestions"`
	CapturedAt                 time.Time                `json:"capturedAt"`
}

// Remote converts a locally cached snapshot into the fetch shape.
func (s ProgressSnapshot) Remote() RemoteProgress {
	return RemoteProgress{
		CurrentDuration:            s.CurrentTime,
		IsCompleted:                s.Completed,
		LastCorrectCheckpoint:      s.LastCorrectCheckpoint,
		CorrectlyAnsweredQuestions: append([]string(nil), s.CorrectlyAnsweredQuestions...),
	}
}

// LocalSnapshot is the instant-resume cache row for one video.
// RemoteKnown records that the progress service already holds a record, so
// an offline start still submits with update semantics.
type LocalSnapshot struct {
	ProgressSnapshot
	RemoteKnown bool      `json:"remoteKnown"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
