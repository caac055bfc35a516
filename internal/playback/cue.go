package playback

import (
	"context"
	"fmt"
	"strings"
)

// Cuer emits a short note-on/note-off pulse on the cue output.
type Cuer interface {
	Cue(ctx context.Context, note uint8) error
}

// cueNotes maps pitch classes to the cue notes, C2 upward.
var cueNotes = map[string]uint8{
	"C":  36,
	"C#": 37, "DB": 37,
	"D":  38,
	"D#": 39, "EB": 39,
	"E":  40,
	"F":  41,
	"F#": 42, "GB": 42,
	"G":  43,
	"G#": 44, "AB": 44,
	"A":  45,
	"A#": 46, "BB": 46,
	"B": 47,
}

// CueNote returns the MIDI note for a musical key such as "C#" or "Eb".
// Unknown keys wrap ErrCueUnavailable.
func CueNote(key string) (uint8, error) {
	k := strings.ToUpper(strings.TrimSpace(key))
	k = strings.NewReplacer("♯", "#", "♭", "B").Replace(k)
	if note, ok := cueNotes[k]; ok {
		return note, nil
	}
	return 0, fmt.Errorf("%w: unmapped key %q", ErrCueUnavailable, key)
}
