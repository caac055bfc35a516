// Package launchpad drives a Novation Launchpad as a control surface.
// Pads cannot show images, so every key image is reduced to its average
// colour.
package launchpad

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/PixPMusic/livedeck/internal/logging"
	"github.com/PixPMusic/livedeck/internal/midi"
	"github.com/PixPMusic/livedeck/internal/surface"
	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"
)

// DriverName is the name the driver registers under.
const DriverName = "launchpad"

const keyImageSize = 8

type position struct{ row, col int }

// keyPositions maps surface keys to pads: keys 0-7 are the first row of
// the 8x8 grid, keys 8 and 9 the left and right arrows of the top row.
var keyPositions = []position{
	{1, 0}, {1, 1}, {1, 2}, {1, 3}, {1, 4}, {1, 5}, {1, 6}, {1, 7},
	{0, 2}, {0, 3},
}

func keyAt(row, col int) (int, bool) {
	for key, p := range keyPositions {
		if p.row == row && p.col == col {
			return key, true
		}
	}
	return 0, false
}

// Device is a Launchpad reached through a pair of MIDI ports.
type Device struct {
	mgr     *midi.Manager
	inPort  string
	outPort string
	grid    midi.Grid
	log     *zap.Logger

	mu         sync.Mutex
	out        *midi.Output
	stop       func()
	callback   surface.KeyCallback
	brightness int
	colors     []midi.PadColor
}

// New creates a Launchpad device on the given ports. It is not opened.
func New(mgr *midi.Manager, inPort, outPort string, model midi.Model, log *zap.Logger) (*Device, error) {
	grid, err := midi.GridFor(model)
	if err != nil {
		return nil, err
	}
	return &Device{
		mgr:        mgr,
		inPort:     inPort,
		outPort:    outPort,
		grid:       grid,
		log:        logging.OrNop(log).With(zap.String("device", outPort)),
		brightness: 100,
		colors:     make([]midi.PadColor, len(keyPositions)),
	}, nil
}

// Detect finds Launchpads by port name. The model is guessed from the
// name: MK3 and X models speak the colourful protocol.
func Detect(mgr *midi.Manager, log *zap.Logger) ([]surface.Device, error) {
	ins := map[string]bool{}
	for _, name := range mgr.ListInPorts() {
		ins[name] = true
	}

	var devices []surface.Device
	for _, name := range mgr.ListOutPorts() {
		if !strings.Contains(strings.ToLower(name), "launchpad") || !ins[name] {
			continue
		}
		dev, err := New(mgr, name, name, GuessModel(name), log)
		if err != nil {
			return nil, err
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// GuessModel picks the protocol for a port name.
func GuessModel(portName string) midi.Model {
	n := strings.ToLower(portName)
	if strings.Contains(n, "mk3") || strings.Contains(n, "launchpad x") || strings.Contains(n, "lpx") || strings.Contains(n, "lpmini") {
		return midi.ModelColorful
	}
	return midi.ModelClassic
}

func init() {
	surface.Register(DriverName, func() ([]surface.Device, error) {
		return Detect(midi.NewManager(), nil)
	})
}

func (d *Device) ID() string {
	return "launchpad:" + d.outPort
}

// Open opens both ports and switches the device into programmer mode.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.out != nil {
		return nil
	}
	out, err := d.mgr.OpenOutput(d.outPort)
	if err != nil {
		return err
	}
	if err := d.grid.Init(out.Send); err != nil {
		return err
	}
	stop, err := d.mgr.Listen(d.inPort, d.handle)
	if err != nil {
		return err
	}
	d.out, d.stop = out, stop
	d.log.Info("Launchpad opened", zap.String("in", d.inPort))
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
	d.out = nil
	return nil
}

func (d *Device) Reset() error {
	out, err := d.output()
	if err != nil {
		return err
	}
	d.mu.Lock()
	for i := range d.colors {
		d.colors[i] = midi.PadColor{}
	}
	d.mu.Unlock()
	return d.grid.Clear(out.Send)
}

// SetBrightness scales every pad colour. Pads already lit are redrawn.
func (d *Device) SetBrightness(percent int) error {
	d.mu.Lock()
	d.brightness = max(0, min(percent, 100))
	colors := append([]midi.PadColor(nil), d.colors...)
	d.mu.Unlock()

	for key, c := range colors {
		if err := d.setPad(key, c); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) KeyImageFormat() (int, int) {
	return keyImageSize, keyImageSize
}

func (d *Device) KeyCount() int {
	return len(keyPositions)
}

func (d *Device) SetKeyImage(index int, img image.Image) error {
	c := surface.AverageColor(img)
	return d.SetKeyColor(index, c.R, c.G, c.B)
}

func (d *Device) SetKeyColor(index int, r, g, b uint8) error {
	if index < 0 || index >= len(keyPositions) {
		return fmt.Errorf("key %d out of range", index)
	}
	c := midi.PadColorRGB(r, g, b)
	d.mu.Lock()
	d.colors[index] = c
	d.mu.Unlock()
	return d.setPad(index, c)
}

func (d *Device) SetKeyCallback(fn surface.KeyCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = fn
}

func (d *Device) setPad(key int, c midi.PadColor) error {
	out, err := d.output()
	if err != nil {
		return err
	}
	d.mu.Lock()
	scaled := scale(c, d.brightness)
	d.mu.Unlock()

	p := keyPositions[key]
	return d.grid.SetPadColor(out.Send, p.row, p.col, scaled)
}

func (d *Device) output() (*midi.Output, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.out == nil {
		return nil, errors.New("launchpad not open")
	}
	return d.out, nil
}

func (d *Device) handle(msg gomidi.Message) {
	row, col, pressed, ok := d.grid.HandleMessage(msg)
	if !ok {
		return
	}
	key, ok := keyAt(row, col)
	if !ok {
		return
	}

	d.mu.Lock()
	cb := d.callback
	d.mu.Unlock()
	if cb != nil {
		cb(d, key, pressed)
	}
}

func scale(c midi.PadColor, percent int) midi.PadColor {
	return midi.PadColor{
		R: uint8(int(c.R) * percent / 100),
		G: uint8(int(c.G) * percent / 100),
		B: uint8(int(c.B) * percent / 100),
	}
}
