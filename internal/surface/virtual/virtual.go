// Package virtual is a terminal stand-in for a control surface. Keys are
// drawn as coloured cells and pressed with the number keys.
package virtual

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/PixPMusic/livedeck/internal/surface"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DriverName is the name the driver registers under.
const DriverName = "virtual"

const (
	keyCount = 10
	// Key images are reduced to one colour, so a tiny format is enough.
	keyImageSize = 16
	perRow       = 4
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fff"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	cellStyle  = lipgloss.NewStyle().Width(8).Height(3).Align(lipgloss.Center, lipgloss.Center).MarginRight(1)
)

type keyEvent struct {
	key     int
	pressed bool
}

type refreshMsg struct{}

// Device is a virtual surface rendered with bubbletea.
type Device struct {
	opts []tea.ProgramOption

	mu         sync.Mutex
	colors     [keyCount]color.RGBA
	brightness int
	callback   surface.KeyCallback
	prog       *tea.Program
	events     chan keyEvent
	done       chan struct{}
}

// New creates a virtual device. opts are passed to the bubbletea program.
func New(opts ...tea.ProgramOption) *Device {
	return &Device{opts: opts, brightness: 100, done: make(chan struct{})}
}

func init() {
	surface.Register(DriverName, func() ([]surface.Device, error) {
		return []surface.Device{New(tea.WithAltScreen())}, nil
	})
}

func (d *Device) ID() string {
	return DriverName
}

// Open starts the terminal UI.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.prog != nil {
		return nil
	}

	d.events = make(chan keyEvent, 16)
	d.prog = tea.NewProgram(model{dev: d}, d.opts...)

	go d.deliver(d.events)
	go func() {
		defer close(d.done)
		_, _ = d.prog.Run()
	}()
	return nil
}

// Done is closed when the terminal UI exits, e.g. after q is pressed.
func (d *Device) Done() <-chan struct{} {
	return d.done
}

func (d *Device) Close() error {
	d.mu.Lock()
	prog := d.prog
	d.prog, d.events = nil, nil
	d.mu.Unlock()

	if prog == nil {
		return nil
	}
	prog.Quit()
	<-d.done
	return nil
}

func (d *Device) Reset() error {
	d.mu.Lock()
	d.colors = [keyCount]color.RGBA{}
	d.mu.Unlock()
	d.refresh()
	return nil
}

func (d *Device) SetBrightness(percent int) error {
	d.mu.Lock()
	d.brightness = max(0, min(percent, 100))
	d.mu.Unlock()
	d.refresh()
	return nil
}

func (d *Device) KeyImageFormat() (int, int) {
	return keyImageSize, keyImageSize
}

func (d *Device) KeyCount() int {
	return keyCount
}

func (d *Device) SetKeyImage(index int, img image.Image) error {
	c := surface.AverageColor(img)
	return d.SetKeyColor(index, c.R, c.G, c.B)
}

func (d *Device) SetKeyColor(index int, r, g, b uint8) error {
	if index < 0 || index >= keyCount {
		return fmt.Errorf("key %d out of range", index)
	}
	d.mu.Lock()
	d.colors[index] = color.RGBA{r, g, b, 255}
	d.mu.Unlock()
	d.refresh()
	return nil
}

func (d *Device) SetKeyCallback(fn surface.KeyCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = fn
}

// Press queues a press and release of key, as if typed in the terminal.
func (d *Device) Press(key int) error {
	d.mu.Lock()
	events := d.events
	d.mu.Unlock()
	if events == nil {
		return errors.New("virtual surface not open")
	}
	for _, pressed := range []bool{true, false} {
		select {
		case events <- keyEvent{key, pressed}:
		case <-d.done:
			return errors.New("virtual surface closed")
		}
	}
	return nil
}

// deliver runs callbacks off the UI goroutine so a repaint triggered by
// a key can send to the program without blocking its update loop.
func (d *Device) deliver(events <-chan keyEvent) {
	for {
		select {
		case <-d.done:
			return
		case ev := <-events:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()
			if cb != nil {
				cb(d, ev.key, ev.pressed)
			}
		}
	}
}

func (d *Device) refresh() {
	d.mu.Lock()
	prog := d.prog
	d.mu.Unlock()
	if prog != nil {
		go prog.Send(refreshMsg{})
	}
}

func (d *Device) snapshot() ([keyCount]color.RGBA, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.colors, d.brightness
}

type model struct {
	dev *Device
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch s := msg.String(); s {
		case "q", "ctrl+c":
			return m, tea.Quit
		default:
			if key, ok := keyForRune(s); ok {
				go func() { _ = m.dev.Press(key) }()
			}
		}
	case refreshMsg:
		// redraw
	}
	return m, nil
}

func (m model) View() string {
	colors, brightness := m.dev.snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("livedeck virtual surface"))
	b.WriteString("\n\n")

	var row []string
	for key := 0; key < keyCount; key++ {
		row = append(row, cell(key, colors[key], brightness))
		if len(row) == perRow || key == keyCount-1 {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
			b.WriteString("\n")
			row = row[:0]
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("1-9, 0: press key 0-9 • q: quit"))
	b.WriteString("\n")
	return b.String()
}

func cell(key int, c color.RGBA, brightness int) string {
	c = dim(c, brightness)
	fg := "#fff"
	if int(c.R)*299+int(c.G)*587+int(c.B)*114 > 128000 {
		fg = "#000"
	}
	return cellStyle.
		Background(lipgloss.Color(hex(c))).
		Foreground(lipgloss.Color(fg)).
		Render(fmt.Sprintf("%d", key))
}

// keyForRune maps the number row to keys: 1 is key 0, 0 is key 9.
func keyForRune(s string) (int, bool) {
	if len(s) != 1 || s[0] < '0' || s[0] > '9' {
		return 0, false
	}
	if s[0] == '0' {
		return 9, true
	}
	return int(s[0] - '1'), true
}

func dim(c color.RGBA, percent int) color.RGBA {
	return color.RGBA{
		R: uint8(int(c.R) * percent / 100),
		G: uint8(int(c.G) * percent / 100),
		B: uint8(int(c.B) * percent / 100),
		A: 255,
	}
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
