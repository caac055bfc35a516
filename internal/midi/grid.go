package midi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// Model identifies a Launchpad protocol family.
type Model string

const (
	ModelClassic  Model = "classic"  // Launchpad S - no special programmer mode
	ModelColorful Model = "colorful" // Launchpad Mini Mk3 - requires SysEx
)

// PadColor represents an RGB color for a pad
type PadColor struct {
	R, G, B uint8 // 0-127 for each channel
}

// PadColorRGB converts an 8-bit RGB colour to pad range.
func PadColorRGB(r, g, b uint8) PadColor {
	return PadColor{R: r >> 1, G: g >> 1, B: b >> 1}
}

// Grid speaks the pad protocol of one Launchpad model. Positions are
// (row, col) on a 9x9 grid: row 0 is the top row of round buttons and
// col 8 the right-hand scene column.
type Grid interface {
	// Init sends necessary commands to initialize the device
	Init(send SendFunc) error

	SetPadColor(send SendFunc, row, col int, color PadColor) error

	// Clear turns every pad off
	Clear(send SendFunc) error

	// HandleMessage parses a MIDI message and returns grid position and state.
	// handled is false when the message is not a pad event.
	HandleMessage(msg midi.Message) (row, col int, pressed bool, handled bool)
}

// GridFor returns the protocol for model.
func GridFor(model Model) (Grid, error) {
	switch model {
	case ModelClassic:
		return classicGrid{}, nil
	case ModelColorful, "":
		return colorfulGrid{}, nil
	default:
		return nil, fmt.Errorf("unknown launchpad model %q", model)
	}
}

// classicGrid implements Grid for Launchpad S
type classicGrid struct{}

func (classicGrid) Init(send SendFunc) error {
	// Reset: B0 00 00
	if err := send(midi.ControlChange(0, 0, 0)); err != nil {
		return fmt.Errorf("failed to reset Launchpad S: %w", err)
	}
	return nil
}

func (g classicGrid) SetPadColor(send SendFunc, row, col int, color PadColor) error {
	if row < 0 || row > 8 || col < 0 || col > 8 || (row == 0 && col == 8) {
		return nil
	}
	velocity := g.velocity(color)

	if row == 0 {
		return send(midi.ControlChange(0, uint8(104+col), velocity))
	}
	// Row 1 = notes 0-8, Row 2 = notes 16-24, etc.
	return send(midi.NoteOn(0, uint8((row-1)*16+col), velocity))
}

// velocity packs a colour as 0bGGCCRR: two bits each of green and red
// with the copy and clear flags set. Blue is folded into red and green.
func (classicGrid) velocity(color PadColor) uint8 {
	if color.R < 5 && color.G < 5 && color.B < 5 {
		return 0x0C
	}
	r := min(int(color.R)+int(color.B)/4, 127)
	g := min(int(color.G)+(int(color.B)*3)/4, 127)
	return level(uint8(g))<<4 | 0x0C | level(uint8(r))
}

func level(value uint8) uint8 {
	switch {
	case value < 32:
		return 0
	case value < 64:
		return 1
	case value < 96:
		return 2
	default:
		return 3
	}
}

func (classicGrid) Clear(send SendFunc) error {
	return send(midi.ControlChange(0, 0, 0))
}

func (classicGrid) HandleMessage(msg midi.Message) (row, col int, pressed bool, handled bool) {
	var channel, key, velocity uint8

	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		row, col = int(key/16)+1, int(key%16)
		if row <= 8 && col <= 8 {
			return row, col, velocity > 0, true
		}
	case msg.GetNoteOff(&channel, &key, &velocity):
		row, col = int(key/16)+1, int(key%16)
		if row <= 8 && col <= 8 {
			return row, col, false, true
		}
	case msg.GetControlChange(&channel, &key, &velocity):
		if key >= 104 && key <= 111 {
			return 0, int(key - 104), velocity > 0, true
		}
	}
	return 0, 0, false, false
}

// colorfulGrid implements Grid for Launchpad Mini Mk3 in programmer mode.
// LED index = (8-row)*10 + col + 11: top row 91-99, bottom row 11-19.
type colorfulGrid struct{}

var novationHeader = []byte{0x00, 0x20, 0x29, 0x02, 0x0D}

func sysex(body ...byte) midi.Message {
	return midi.SysEx(append(append([]byte{}, novationHeader...), body...))
}

func (colorfulGrid) Init(send SendFunc) error {
	if err := send(sysex(0x0E, 0x01)); err != nil {
		return fmt.Errorf("failed to send programmer mode message: %w", err)
	}
	return nil
}

func (g colorfulGrid) SetPadColor(send SendFunc, row, col int, color PadColor) error {
	if row < 0 || row > 8 || col < 0 || col > 8 {
		return nil
	}
	led := uint8((8-row)*10 + col + 11)
	// 03 <type 3 = RGB> <led> <r> <g> <b>
	return send(sysex(0x03, 0x03, led, g.scale(color.R)&0x7F, g.scale(color.G)&0x7F, g.scale(color.B)&0x7F))
}

// scale applies a square curve so mid-range colours stay distinct.
func (colorfulGrid) scale(value uint8) uint8 {
	if value == 0 {
		return 0
	}
	f := float64(value) / 127.0
	scaled := f * f * 127.0
	if scaled < 1 {
		scaled = 1
	}
	return uint8(scaled)
}

func (colorfulGrid) Clear(send SendFunc) error {
	body := []byte{0x03}
	for i := 11; i <= 99; i++ {
		if i%10 >= 1 && i%10 <= 9 {
			body = append(body, 0x00, uint8(i), 0x00) // static, colour 0
		}
	}
	return send(sysex(body...))
}

func (g colorfulGrid) HandleMessage(msg midi.Message) (row, col int, pressed bool, handled bool) {
	var channel, key, velocity uint8

	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		if row, col, ok := g.position(key); ok {
			return row, col, velocity > 0, true
		}
	case msg.GetNoteOff(&channel, &key, &velocity):
		if row, col, ok := g.position(key); ok {
			return row, col, false, true
		}
	case msg.GetControlChange(&channel, &key, &velocity):
		if key >= 91 && key <= 98 {
			return 0, int(key - 91), velocity > 0, true
		}
		// Scene column: 89 is row 1, 19 is row 8.
		if key%10 == 9 && key >= 19 && key <= 89 {
			return 8 - int((key-19)/10), 8, velocity > 0, true
		}
	}
	return 0, 0, false, false
}

func (colorfulGrid) position(note uint8) (row, col int, ok bool) {
	if note < 11 || note > 99 {
		return 0, 0, false
	}
	row = 8 - int((note-11)/10)
	col = int((note - 11) % 10)
	return row, col, col <= 8
}
