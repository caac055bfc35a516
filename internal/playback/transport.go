package playback

import (
	"context"
	"errors"
)

var (
	// ErrTransportConnection is returned when the DAW cannot be reached.
	ErrTransportConnection = errors.New("transport not connected")
	// ErrTrackNotFound is returned when a song references a track the DAW session lacks.
	ErrTrackNotFound = errors.New("track not found")
	// ErrNoClip is returned when the target track has no clip in the designated slot.
	ErrNoClip = errors.New("no clip in slot")
	// ErrCueUnavailable covers unmapped keys and a missing cue output.
	ErrCueUnavailable = errors.New("cue unavailable")
)

// ClipSlot is one slot of a track's clip column.
type ClipSlot struct {
	HasClip bool
	Name    string
}

// Track is a DAW track as reported by the Transport.
type Track struct {
	Index  int
	Name   string
	Soloed bool
	Clips  []ClipSlot
}

// Clip reports whether slot holds a clip.
func (t Track) Clip(slot int) bool {
	return slot >= 0 && slot < len(t.Clips) && t.Clips[slot].HasClip
}

// Transport controls the DAW's tracks and clips.
type Transport interface {
	// Connect establishes the connection. It is safe to call again after a failure.
	Connect(ctx context.Context) error
	Connected() bool

	// ResetPlayhead asks the DAW to rewind so a previous song cannot bleed into the next.
	ResetPlayhead(ctx context.Context) error
	// StopAllSignal stops every playing clip in one message.
	StopAllSignal(ctx context.Context) error

	ListTracks(ctx context.Context) ([]Track, error)
	SetSolo(ctx context.Context, track int, solo bool) error
	PlayClip(ctx context.Context, track, clip int) error
	StopClip(ctx context.Context, track, clip int) error

	Close() error
}
