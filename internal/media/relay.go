package media

import (
	"sync"

	"github.com/vytor/lessonplay/internal/logger"
)

const defaultBuffer = 16

// Relay is a Player whose calls are forwarded as Commands to subscribers,
// typically a browser player listening on an event stream. Commands issued
// while nobody listens, or to a subscriber whose buffer is full, are dropped.
type Relay struct {
	mu       sync.Mutex
	subs     map[int]chan Command
	nextID   int
	buffer   int
	released bool
	log      *logger.Logger
}

var _ Player = (*Relay)(nil)

// NewRelay creates a relay whose subscriptions buffer up to buffer commands.
func NewRelay(buffer int, log *logger.Logger) *Relay {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if log == nil {
		log = logger.Default()
	}
	return &Relay{
		subs:   make(map[int]chan Command),
		buffer: buffer,
		log:    log.WithPrefix("media"),
	}
}

// Subscribe returns a command stream and a cancel func. The channel is
// closed on cancel or Release.
func (r *Relay) Subscribe() (<-chan Command, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan Command, r.buffer)
	if r.released {
		close(ch)
		return ch, func() {}
	}
	id := r.nextID
	r.nextID++
	r.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if c, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(c)
			}
		})
	}
}

func (r *Relay) Play() error  { return r.send(Command{Kind: CommandPlay}) }
func (r *Relay) Pause() error { return r.send(Command{Kind: CommandPause}) }

func (r *Relay) Seek(seconds float64) error {
	return r.send(Command{Kind: CommandSeek, Position: seconds})
}

// Release sends a final release command and closes every subscription.
// Calling it again is a no-op.
func (r *Relay) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	r.broadcast(Command{Kind: CommandRelease})
	r.released = true
	for id, ch := range r.subs {
		close(ch)
		delete(r.subs, id)
	}
	return nil
}

func (r *Relay) send(cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}
	r.broadcast(cmd)
	return nil
}

func (r *Relay) broadcast(cmd Command) {
	if len(r.subs) == 0 {
		r.log.Debug("dropping %s command: no subscribers", cmd.Kind)
		return
	}
	for id, ch := range r.subs {
		select {
		case ch <- cmd:
		default:
			r.log.WithField("subscriber", id).Warn("dropping %s command: subscriber buffer full", cmd.Kind)
		}
	}
}
