package playback

import "github.com/vytor/lessonplay/internal/models"

// TriggerWindow is how long after its trigger time a question can still fire.
const TriggerWindow = 1.0

// Trigger decides which question, if any, interrupts playback at a given time.
type Trigger struct {
	ordered []models.Question
}

// NewTrigger orders questions by trigger time, keeping declaration order
// for ties.
func NewTrigger(video *models.VideoContent) *Trigger {
	return &Trigger{ordered: video.OrderedQuestions()}
}

// Due returns the first question whose window [triggerTime, triggerTime+1)
// contains at and for which skip reports false.
func (t *Trigger) Due(at float64, skip func(id string) bool) (*models.Question, bool) {
	for i := range t.ordered {
		q := t.ordered[i]
		if q.TriggerTime > at {
			break
		}
		if !InWindow(q, at) || skip(q.ID) {
			continue
		}
		return &q, true
	}
	return nil, false
}

// InWindow reports whether at falls inside the trigger window of q.
func InWindow(q models.Question, at float64) bool {
	return q.TriggerTime <= at && at < q.TriggerTime+TriggerWindow
}
