package playback

import (
	"sync"

	"github.com/vytor/lessonplay/internal/models"
)

type State string

const (
	StateLoading        State = "loading"
	StatePlaying        State = "playing"
	StatePaused         State = "paused"
	StateAwaitingAnswer State = "awaitingAnswer"
	StateCompleted      State = "completed"
)

// View is the read-only projection a UI renders.
type View struct {
	VideoID               string               `json:"videoId"`
	State                 State                `json:"state"`
	IsPlaying             bool                 `json:"isPlaying"`
	CurrentTime           float64              `json:"currentTime"`
	Duration              float64              `json:"duration"`
	ShowQuestion          bool                 `json:"showQuestion"`
	CurrentQuestion       *models.QuestionView `json:"currentQuestion,omitempty"`
	CanSeek               bool                 `json:"canSeek"`
	Completed             bool                 `json:"completed"`
	LastCorrectCheckpoint float64              `json:"lastCorrectCheckpoint"`
}

type EventType string

const (
	EventState     EventType = "state"
	EventQuestion  EventType = "question"
	EventCompleted EventType = "completed"
	EventReleased  EventType = "released"
)

// Event is delivered to observers after the change it describes.
type Event struct {
	Type EventType `json:"type"`
	View View      `json:"view"`
}

// observers is a registry of event callbacks. Callbacks run on the goroutine
// that caused the change, outside the controller lock.
type observers struct {
	mu     sync.Mutex
	fns    map[int]func(Event)
	nextID int
}

func (o *observers) add(fn func(Event)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func(Event))
	}
	id := o.nextID
	o.nextID++
	o.fns[id] = fn

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.fns, id)
	}
}

func (o *observers) notify(events []Event) {
	if len(events) == 0 {
		return
	}
	o.mu.Lock()
	fns := make([]func(Event), 0, len(o.fns))
	for _, fn := range o.fns {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, e := range events {
		for _, fn := range fns {
			fn(e)
		}
	}
}

func (o *observers) clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fns = nil
}
