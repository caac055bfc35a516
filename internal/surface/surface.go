package surface

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sort"
	"sync"
)

// ErrDeviceNotFound is returned when no control surface is attached.
var ErrDeviceNotFound = errors.New("no control surface found")

// KeyCallback is invoked for every key transition. pressed is false on release.
type KeyCallback func(dev Device, key int, pressed bool)

// Device is a multi-key control surface with per-key images and colours.
type Device interface {
	// ID identifies the device in logs.
	ID() string

	Open() error
	Close() error

	// Reset blanks every key.
	Reset() error

	// SetBrightness sets the display brightness in percent (0-100).
	SetBrightness(percent int) error

	// KeyImageFormat returns the pixel size of a key image.
	KeyImageFormat() (width, height int)

	// KeyCount returns the number of addressable keys.
	KeyCount() int

	// SetKeyImage draws img on key index. img must match KeyImageFormat.
	SetKeyImage(index int, img image.Image) error

	// SetKeyColor lights key index with an RGB colour (0-255 per channel).
	SetKeyColor(index int, r, g, b uint8) error

	// SetKeyCallback registers the handler for key transitions.
	SetKeyCallback(fn KeyCallback)
}

// Screen is implemented by devices that have a status display besides their keys.
type Screen interface {
	ScreenImageFormat() (width, height int)
	SetScreenImage(img image.Image) error
}

// Enumerator lists the devices a driver can see.
type Enumerator func() ([]Device, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]Enumerator{}
)

// Register makes a driver available by name. Drivers call it from init.
func Register(name string, enum Enumerator) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if enum == nil {
		panic("surface: Register enumerator is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("surface: Register called twice for driver " + name)
	}
	drivers[name] = enum
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enumerate lists the devices of driver. An empty result is ErrDeviceNotFound.
func Enumerate(driver string) ([]Device, error) {
	driversMu.RLock()
	enum, ok := drivers[driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown surface driver %q (available: %v)", driver, Drivers())
	}

	devices, err := enum()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceNotFound, driver, err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, driver)
	}
	return devices, nil
}

// First returns the first device of driver without opening it.
func First(driver string) (Device, error) {
	devices, err := Enumerate(driver)
	if err != nil {
		return nil, err
	}
	return devices[0], nil
}

// maxSamples bounds the pixels AverageColor reads along each axis.
const maxSamples = 256

// AverageColor returns the mean colour of img. Keys that can only show a
// single colour use it in place of the image. Large images are sampled on a
// grid of at most maxSamples per axis.
func AverageColor(img image.Image) color.RGBA {
	if u, ok := img.(*image.Uniform); ok {
		cr, cg, cb, _ := u.C.RGBA()
		return color.RGBA{uint8(cr >> 8), uint8(cg >> 8), uint8(cb >> 8), 255}
	}
	b := img.Bounds()
	if b.Empty() {
		return color.RGBA{A: 255}
	}
	stepX := max(b.Dx()/maxSamples, 1)
	stepY := max(b.Dy()/maxSamples, 1)

	var r, g, bl, n uint64
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			r += uint64(cr >> 8)
			g += uint64(cg >> 8)
			bl += uint64(cb >> 8)
			n++
		}
	}
	return color.RGBA{uint8(r / n), uint8(g / n), uint8(bl / n), 255}
}
