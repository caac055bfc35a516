// Package loupedeck drives a Loupedeck Live. The top eight touch areas of
// the centre display are image keys and the first two round buttons are
// colour-only keys. The left display shows the status screen.
package loupedeck

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/PixPMusic/livedeck/internal/surface"
	ld "github.com/scottlaird/loupedeck"
	"golang.org/x/image/draw"
)

// DriverName is the name the driver registers under.
const DriverName = "loupedeck"

const (
	touchSize   = 90
	touchCols   = 4
	leftWidth   = 60
	leftHeight  = 270
	touchKeys   = 8
	buttonKeyLo = touchKeys
)

// Keys 0-7 are the first two rows of touch areas, keys 8 and 9 the first
// two round buttons.
var (
	touchButtons = []ld.TouchButton{
		ld.Touch1, ld.Touch2, ld.Touch3, ld.Touch4,
		ld.Touch5, ld.Touch6, ld.Touch7, ld.Touch8,
	}
	roundButtons = []ld.Button{ld.Button1, ld.Button2}
)

// Device is a Loupedeck Live found over USB serial.
type Device struct {
	mu       sync.Mutex
	deck     *ld.Loupedeck
	callback surface.KeyCallback
}

func init() {
	surface.Register(DriverName, func() ([]surface.Device, error) {
		return []surface.Device{&Device{}}, nil
	})
}

func (d *Device) ID() string {
	return DriverName
}

// Open connects to the first Loupedeck found and starts its event loop.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deck != nil {
		return nil
	}

	deck, err := ld.ConnectAuto()
	if err != nil {
		return fmt.Errorf("%w: %v", surface.ErrDeviceNotFound, err)
	}
	d.deck = deck

	for i, tb := range touchButtons {
		key := i
		deck.BindTouch(tb, func(_ ld.TouchButton, status ld.ButtonStatus, _ uint16, _ uint16) {
			d.dispatch(key, status == ld.ButtonDown)
		})
	}
	for i, b := range roundButtons {
		key := buttonKeyLo + i
		deck.BindButton(b, func(_ ld.Button, status ld.ButtonStatus) {
			d.dispatch(key, status == ld.ButtonDown)
		})
	}

	go deck.Listen()
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deck == nil {
		return nil
	}
	d.deck.Close()
	d.deck = nil
	return nil
}

// Reset blanks both displays and turns the round buttons off.
func (d *Device) Reset() error {
	deck, err := d.open()
	if err != nil {
		return err
	}
	deck.GetDisplay("center").Draw(solid(touchCols*touchSize, 3*touchSize), 0, 0)
	deck.GetDisplay("left").Draw(solid(leftWidth, leftHeight), 0, 0)
	for _, b := range roundButtons {
		if err := deck.SetButtonColor(b, color.RGBA{A: 255}); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) SetBrightness(percent int) error {
	deck, err := d.open()
	if err != nil {
		return err
	}
	// The device takes 0-10.
	deck.SetBrightness(max(0, min(percent, 100)) / 10)
	return nil
}

func (d *Device) KeyImageFormat() (int, int) {
	return touchSize, touchSize
}

func (d *Device) KeyCount() int {
	return touchKeys + len(roundButtons)
}

// SetKeyImage draws img on a touch key. Round buttons show its average colour.
func (d *Device) SetKeyImage(index int, img image.Image) error {
	if index >= buttonKeyLo {
		c := surface.AverageColor(img)
		return d.SetKeyColor(index, c.R, c.G, c.B)
	}
	x, y, err := touchOrigin(index)
	if err != nil {
		return err
	}
	deck, err := d.open()
	if err != nil {
		return err
	}
	deck.GetDisplay("center").Draw(img, x, y)
	return nil
}

func (d *Device) SetKeyColor(index int, r, g, b uint8) error {
	deck, err := d.open()
	if err != nil {
		return err
	}
	c := color.RGBA{r, g, b, 255}
	if index >= buttonKeyLo && index < d.KeyCount() {
		return deck.SetButtonColor(roundButtons[index-buttonKeyLo], c)
	}
	x, y, err := touchOrigin(index)
	if err != nil {
		return err
	}
	img := image.NewRGBA(image.Rect(0, 0, touchSize, touchSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	deck.GetDisplay("center").Draw(img, x, y)
	return nil
}

func (d *Device) SetKeyCallback(fn surface.KeyCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = fn
}

func (d *Device) ScreenImageFormat() (int, int) {
	return leftWidth, leftHeight
}

func (d *Device) SetScreenImage(img image.Image) error {
	deck, err := d.open()
	if err != nil {
		return err
	}
	deck.GetDisplay("left").Draw(img, 0, 0)
	return nil
}

func (d *Device) open() (*ld.Loupedeck, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deck == nil {
		return nil, errors.New("loupedeck not open")
	}
	return d.deck, nil
}

func (d *Device) dispatch(key int, pressed bool) {
	d.mu.Lock()
	cb := d.callback
	d.mu.Unlock()
	if cb != nil {
		cb(d, key, pressed)
	}
}

// touchOrigin returns the top-left pixel of touch key index on the centre display.
func touchOrigin(index int) (x, y int, err error) {
	if index < 0 || index >= touchKeys {
		return 0, 0, fmt.Errorf("key %d is not a touch key", index)
	}
	return (index % touchCols) * touchSize, (index / touchCols) * touchSize, nil
}

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return img
}
