package media

import "errors"

// ErrReleased is returned by a player after Release.
var ErrReleased = errors.New("media player released")

// Player is the external playback primitive the engine drives. The engine
// acquires it on session start and releases it on teardown.
type Player interface {
	Play() error
	Pause() error
	Seek(seconds float64) error
	Release() error
}

// CommandKind names a Player call forwarded to a remote surface.
type CommandKind string

const (
	CommandPlay    CommandKind = "play"
	CommandPause   CommandKind = "pause"
	CommandSeek    CommandKind = "seek"
	CommandRelease CommandKind = "release"
)

// Command is one forwarded Player call. Position is set for seeks.
type Command struct {
	Kind     CommandKind `json:"kind"`
	Position float64     `json:"position,omitempty"`
}

// Nop is a Player that does nothing. It is used when the host drives the
// media surface itself and only reports ticks.
type Nop struct{}

func (Nop) Play() error        { return nil }
func (Nop) Pause() error       { return nil }
func (Nop) Seek(float64) error { return nil }
func (Nop) Release() error     { return nil }
