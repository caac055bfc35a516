package midi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

// DefaultCueDuration is the time between a cue's note-on and note-off.
const DefaultCueDuration = 100 * time.Millisecond

// CueSender emits key cues: a note-on, a fixed wait, then a note-off,
// all while holding the output.
type CueSender struct {
	out      *Output
	channel  uint8
	velocity uint8
	duration time.Duration

	sleep func(time.Duration)
}

// NewCueSender creates a cue sender on out. channel is 0-based.
func NewCueSender(out *Output, channel, velocity uint8, duration time.Duration) *CueSender {
	if velocity == 0 || velocity > 127 {
		velocity = 127
	}
	if duration <= 0 {
		duration = DefaultCueDuration
	}
	return &CueSender{
		out:      out,
		channel:  channel & 0x0F,
		velocity: velocity,
		duration: duration,
		sleep:    time.Sleep,
	}
}

// Cue sends the pulse for note. The wait is not interrupted by ctx;
// a context that is already done skips the cue.
func (c *CueSender) Cue(ctx context.Context, note uint8) error {
	if c == nil || c.out == nil {
		return errors.New("no cue output")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if note > 127 {
		return fmt.Errorf("note %d out of range", note)
	}

	return c.out.Hold(func(send SendFunc) error {
		if err := send(midi.NoteOn(c.channel, note, c.velocity)); err != nil {
			return fmt.Errorf("cue note on: %w", err)
		}
		c.sleep(c.duration)
		if err := send(midi.NoteOff(c.channel, note)); err != nil {
			return fmt.Errorf("cue note off: %w", err)
		}
		return nil
	})
}
