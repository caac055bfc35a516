package virtual

import (
	"image"
	"image/color"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/PixPMusic/livedeck/internal/surface"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyForRune(t *testing.T) {
	tests := []struct {
		in  string
		key int
		ok  bool
	}{
		{"1", 0, true},
		{"8", 7, true},
		{"9", 8, true},
		{"0", 9, true},
		{"a", 0, false},
		{"12", 0, false},
	}
	for _, tt := range tests {
		key, ok := keyForRune(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.key, key, tt.in)
		}
	}
}

func TestKeysAndView(t *testing.T) {
	dev := New()
	red := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(red.Pix); i += 4 {
		red.Pix[i], red.Pix[i+3] = 255, 255
	}
	require.NoError(t, dev.SetKeyImage(0, red))
	require.NoError(t, dev.SetKeyColor(9, 255, 255, 255))
	assert.Error(t, dev.SetKeyColor(10, 0, 0, 0))

	colors, _ := dev.snapshot()
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, colors[0])

	view := model{dev: dev}.View()
	for _, label := range []string{"0", "4", "9", "q: quit"} {
		assert.Contains(t, view, label)
	}

	_, cmd := model{dev: dev}.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.NotNil(t, cmd)

	assert.Error(t, dev.Press(1), "not open")
}

func TestDim(t *testing.T) {
	assert.Equal(t, color.RGBA{50, 25, 0, 255}, dim(color.RGBA{100, 50, 0, 255}, 50))
	assert.Equal(t, "#ff8000", hex(color.RGBA{255, 128, 0, 255}))
}

func TestProgramDeliversPresses(t *testing.T) {
	dev := New(tea.WithInput(nil), tea.WithOutput(io.Discard))

	got := make(chan [2]int, 4)
	dev.SetKeyCallback(func(_ surface.Device, key int, pressed bool) {
		p := 0
		if pressed {
			p = 1
		}
		got <- [2]int{key, p}
	})

	require.NoError(t, dev.Open())
	require.NoError(t, dev.Press(5))

	for _, want := range [][2]int{{5, 1}, {5, 0}} {
		select {
		case ev := <-got:
			assert.Equal(t, want, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("key event not delivered")
		}
	}

	require.NoError(t, dev.Close())
	select {
	case <-dev.Done():
	default:
		t.Fatal("program still running after Close")
	}
	assert.True(t, strings.Contains(dev.ID(), "virtual"))
}
