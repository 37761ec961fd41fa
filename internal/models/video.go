package models

import (
	"fmt"
	"sort"

	"github.com/vytor/lessonplay/internal/errors"
)

// VideoType selects the seek and rollback behavior of a whole session.
type VideoType string

const (
	VideoBasic           VideoType = "basic"
	VideoTrackable       VideoType = "trackable"
	VideoTrackableRandom VideoType = "trackableRandom"
	VideoInteractive     VideoType = "interactive"
)

func (t VideoType) Valid() bool {
	switch t {
	case VideoBasic, VideoTrackable, VideoTrackableRandom, VideoInteractive:
		return true
	}
	return false
}

// VideoContent describes one video and its embedded questions. It is not
// modified after loading.
type VideoContent struct {
	ID        string     `json:"id"`
	CourseID  string     `json:"courseId"`
	ChapterID string     `json:"chapterId"`
	Title     string     `json:"title"`
	Duration  float64    `json:"duration"`
	Type      VideoType  `json:"videoType"`
	Questions []Question `json:"questions"`
}

// Validate reports a content-load error when the video cannot be played.
func (v *VideoContent) Validate() error {
	if v == nil {
		return errors.ContentLoad("", fmt.Errorf("no video content"))
	}
	if v.ID == "" {
		return errors.ContentLoad("", fmt.Errorf("video id is required"))
	}
	if v.Duration <= 0 {
		return errors.ContentLoad(v.ID, fmt.Errorf("duration must be positive, got %v", v.Duration))
	}
	if !v.Type.Valid() {
		return errors.ContentLoad(v.ID, fmt.Errorf("unknown video type %q", v.Type))
	}

	seen := make(map[string]bool, len(v.Questions))
	for i, q := range v.Questions {
		if q.ID == "" {
			return errors.ContentLoad(v.ID, fmt.Errorf("question %d has no id", i))
		}
		if seen[q.ID] {
			return errors.ContentLoad(v.ID, fmt.Errorf("duplicate question id %q", q.ID))
		}
		seen[q.ID] = true
		if q.Body == nil || !q.Type.Valid() || q.Body.Kind() != q.Type {
			return errors.ContentLoad(v.ID, fmt.Errorf("question %q has no %s body", q.ID, q.Type))
		}
		if q.TriggerTime < 0 || q.TriggerTime > v.Duration {
			return errors.ContentLoad(v.ID, fmt.Errorf("question %q triggers at %v, outside [0, %v]", q.ID, q.TriggerTime, v.Duration))
		}
	}
	return nil
}

// OrderedQuestions returns the questions by ascending trigger time, keeping
// declaration order for equal times.
func (v *VideoContent) OrderedQuestions() []Question {
	out := append([]Question(nil), v.Questions...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TriggerTime < out[j].TriggerTime
	})
	return out
}

// Question looks a question up by id.
func (v *VideoContent) Question(id string) (Question, bool) {
	for _, q := range v.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
