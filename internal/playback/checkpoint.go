package playback

import "github.com/vytor/lessonplay/internal/models"

// Checkpoints tracks correctly answered questions and, for interactive
// videos, the time of the latest correct answer.
type Checkpoints struct {
	last    float64
	correct map[string]struct{}
}

func NewCheckpoints() *Checkpoints {
	return &Checkpoints{correct: make(map[string]struct{})}
}

// Hydrate restores state fetched from a prior session.
func (c *Checkpoints) Hydrate(checkpoint float64, ids []string) {
	c.last = max(c.last, checkpoint)
	for _, id := range ids {
		c.correct[id] = struct{}{}
	}
}

// RecordCorrect adds id to the correct set. The checkpoint only moves for
// interactive videos and never moves backwards.
func (c *Checkpoints) RecordCorrect(id string, at float64, vt models.VideoType) {
	c.correct[id] = struct{}{}
	if vt == models.VideoInteractive {
		c.last = max(c.last, at)
	}
}

func (c *Checkpoints) Last() float64 { return c.last }

// State returns a copy of the tracked state.
func (c *Checkpoints) State() models.CheckpointState {
	ids := make(map[string]struct{}, len(c.correct))
	for id := range c.correct {
		ids[id] = struct{}{}
	}
	return models.CheckpointState{LastCorrectCheckpoint: c.last, CorrectlyAnswered: ids}
}
