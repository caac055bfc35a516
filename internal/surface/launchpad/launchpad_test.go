package launchpad

import (
	"testing"

	"github.com/PixPMusic/livedeck/internal/midi"
	"github.com/PixPMusic/livedeck/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestGuessModel(t *testing.T) {
	tests := map[string]midi.Model{
		"Launchpad S":             midi.ModelClassic,
		"Launchpad Mini":          midi.ModelClassic,
		"Launchpad Mini MK3 MIDI": midi.ModelColorful,
		"LPMiniMK3 MIDI":          midi.ModelColorful,
		"Launchpad X LPX MIDI":    midi.ModelColorful,
	}
	for name, want := range tests {
		assert.Equal(t, want, GuessModel(name), name)
	}
}

func TestKeyPositions(t *testing.T) {
	seen := map[position]bool{}
	for key, p := range keyPositions {
		assert.False(t, seen[p], "position %v used twice", p)
		seen[p] = true

		got, ok := keyAt(p.row, p.col)
		require.True(t, ok)
		assert.Equal(t, key, got)
	}
	_, ok := keyAt(5, 5)
	assert.False(t, ok)
}

func TestHandleDispatchesKeys(t *testing.T) {
	dev, err := New(nil, "in", "out", midi.ModelClassic, nil)
	require.NoError(t, err)

	type event struct {
		key     int
		pressed bool
	}
	var got []event
	dev.SetKeyCallback(func(_ surface.Device, key int, pressed bool) {
		got = append(got, event{key, pressed})
	})

	dev.handle(gomidi.NoteOn(0, 3, 127))          // row 1 col 3
	dev.handle(gomidi.ControlChange(0, 107, 127)) // top row, right arrow
	dev.handle(gomidi.NoteOff(0, 3))              // release
	dev.handle(gomidi.NoteOn(0, 5*16+2, 127))     // unassigned pad
	dev.handle(gomidi.ControlChange(0, 1, 127))   // not a pad

	assert.Equal(t, []event{{3, true}, {9, true}, {3, false}}, got)
}

func TestClosedDeviceRejectsWrites(t *testing.T) {
	dev, err := New(nil, "in", "out", midi.ModelColorful, nil)
	require.NoError(t, err)

	assert.Equal(t, 10, dev.KeyCount())
	assert.Error(t, dev.SetKeyColor(0, 255, 0, 0))
	assert.Error(t, dev.SetKeyColor(42, 255, 0, 0))
	assert.NoError(t, dev.Close())
}

func TestScale(t *testing.T) {
	assert.Equal(t, midi.PadColor{R: 63, G: 0, B: 10}, scale(midi.PadColor{R: 127, B: 20}, 50))
}
