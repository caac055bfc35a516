// Package streamdeck drives an Elgato Stream Deck over USB HID. The main
// keys come first, followed by the touch points of models that have them.
// On a Stream Deck Neo that is keys 0-7 on the grid and keys 8 and 9 on the
// two touch points, and the info bar is the status screen.
package streamdeck

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/PixPMusic/livedeck/internal/surface"
	"golang.org/x/image/draw"
)

// DriverName is the name the driver registers under.
const DriverName = "streamdeck"

// deck is the part of the HID library the driver uses. Key and touch point
// indices are zero-based.
type deck interface {
	Open() error
	Close() error
	Serial() string
	Model() string

	SetBrightness(percent byte) error

	KeyCount() int
	KeyRect() (image.Rectangle, error)
	SetKeyImage(key int, img image.Image) error
	SetKeyColor(key int, c color.Color) error
	OnKey(key int, fn func()) error

	TouchCount() int
	SetTouchColor(tp int, c color.Color) error
	OnTouch(tp int, fn func()) error

	InfoBarRect() (image.Rectangle, error)
	SetInfoBarImage(img image.Image) error

	Listen(errCh chan error) error
}

func init() {
	surface.Register(DriverName, func() ([]surface.Device, error) {
		decks, err := enumerateHID()
		if err != nil {
			return nil, err
		}
		devices := make([]surface.Device, 0, len(decks))
		for _, dk := range decks {
			devices = append(devices, wrap(dk))
		}
		return devices, nil
	})
}

// Device is one Stream Deck.
type Device struct {
	deck deck

	mu       sync.Mutex
	open     bool
	callback surface.KeyCallback
	errc     chan error
}

// ScreenDevice is a Stream Deck with an info bar.
type ScreenDevice struct {
	*Device
}

// wrap returns a ScreenDevice when dk has an info bar.
func wrap(dk deck) surface.Device {
	d := &Device{deck: dk}
	if _, err := dk.InfoBarRect(); err == nil {
		return &ScreenDevice{Device: d}
	}
	return d
}

func (d *Device) ID() string {
	if serial := d.deck.Serial(); serial != "" {
		return fmt.Sprintf("%s %s", d.deck.Model(), serial)
	}
	return d.deck.Model()
}

// Open claims the device, binds every key and starts listening for input.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return nil
	}
	if err := d.deck.Open(); err != nil {
		return fmt.Errorf("%w: %v", surface.ErrDeviceNotFound, err)
	}

	for i := range d.deck.KeyCount() {
		key := i
		if err := d.deck.OnKey(i, func() { d.tap(key) }); err != nil {
			_ = d.deck.Close()
			return fmt.Errorf("bind key %d: %w", i, err)
		}
	}
	for i := range d.deck.TouchCount() {
		key := d.deck.KeyCount() + i
		if err := d.deck.OnTouch(i, func() { d.tap(key) }); err != nil {
			_ = d.deck.Close()
			return fmt.Errorf("bind touch point %d: %w", i, err)
		}
	}

	d.errc = make(chan error, 1)
	go func(errc chan error) { _ = d.deck.Listen(errc) }(d.errc)
	d.open = true
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil
	}
	d.open = false
	return d.deck.Close()
}

// Reset blanks every key, touch point and the info bar.
func (d *Device) Reset() error {
	if err := d.check(); err != nil {
		return err
	}
	var errs []error
	for i := range d.KeyCount() {
		errs = append(errs, d.SetKeyColor(i, 0, 0, 0))
	}
	if r, err := d.deck.InfoBarRect(); err == nil {
		errs = append(errs, d.deck.SetInfoBarImage(solid(r.Dx(), r.Dy(), color.Black)))
	}
	return errors.Join(errs...)
}

func (d *Device) SetBrightness(percent int) error {
	if err := d.check(); err != nil {
		return err
	}
	return d.deck.SetBrightness(byte(max(0, min(percent, 100))))
}

func (d *Device) KeyImageFormat() (int, int) {
	r, err := d.deck.KeyRect()
	if err != nil {
		return 0, 0
	}
	return r.Dx(), r.Dy()
}

func (d *Device) KeyCount() int {
	return d.deck.KeyCount() + d.deck.TouchCount()
}

// SetKeyImage draws img on a main key. Touch points show its average colour.
func (d *Device) SetKeyImage(index int, img image.Image) error {
	if err := d.check(); err != nil {
		return err
	}
	if tp, ok := d.touchPoint(index); ok {
		return d.deck.SetTouchColor(tp, surface.AverageColor(img))
	}
	if index < 0 || index >= d.deck.KeyCount() {
		return fmt.Errorf("key %d out of range", index)
	}
	return d.deck.SetKeyImage(index, img)
}

func (d *Device) SetKeyColor(index int, r, g, b uint8) error {
	if err := d.check(); err != nil {
		return err
	}
	c := color.RGBA{r, g, b, 255}
	if tp, ok := d.touchPoint(index); ok {
		return d.deck.SetTouchColor(tp, c)
	}
	if index < 0 || index >= d.deck.KeyCount() {
		return fmt.Errorf("key %d out of range", index)
	}
	return d.deck.SetKeyColor(index, c)
}

func (d *Device) SetKeyCallback(fn surface.KeyCallback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = fn
}

func (d *ScreenDevice) ScreenImageFormat() (int, int) {
	r, err := d.deck.InfoBarRect()
	if err != nil {
		return 0, 0
	}
	return r.Dx(), r.Dy()
}

// SetScreenImage scales img to the info bar and draws it.
func (d *ScreenDevice) SetScreenImage(img image.Image) error {
	if err := d.check(); err != nil {
		return err
	}
	r, err := d.deck.InfoBarRect()
	if err != nil {
		return err
	}
	if img.Bounds().Size() != r.Size() {
		scaled := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = scaled
	}
	return d.deck.SetInfoBarImage(img)
}

func (d *Device) touchPoint(index int) (int, bool) {
	tp := index - d.deck.KeyCount()
	return tp, tp >= 0 && tp < d.deck.TouchCount()
}

func (d *Device) check() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return errors.New("stream deck not open")
	}
	return nil
}

// tap reports a press and its release. The library signals presses only.
func (d *Device) tap(key int) {
	d.mu.Lock()
	cb := d.callback
	d.mu.Unlock()
	if cb == nil {
		return
	}
	cb(d, key, true)
	cb(d, key, false)
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}
