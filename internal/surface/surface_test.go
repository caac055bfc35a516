package surface

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDevice struct{ id string }

func (d *stubDevice) ID() string                                 { return d.id }
func (d *stubDevice) Open() error                                { return nil }
func (d *stubDevice) Close() error                               { return nil }
func (d *stubDevice) Reset() error                               { return nil }
func (d *stubDevice) SetBrightness(int) error                    { return nil }
func (d *stubDevice) KeyImageFormat() (int, int)                 { return 72, 72 }
func (d *stubDevice) KeyCount() int                              { return 10 }
func (d *stubDevice) SetKeyImage(int, image.Image) error         { return nil }
func (d *stubDevice) SetKeyColor(int, uint8, uint8, uint8) error { return nil }
func (d *stubDevice) SetKeyCallback(KeyCallback)                 {}

func TestEnumerate(t *testing.T) {
	Register("test-empty", func() ([]Device, error) { return nil, nil })
	Register("test-broken", func() ([]Device, error) { return nil, errors.New("usb gone") })
	Register("test-one", func() ([]Device, error) { return []Device{&stubDevice{id: "a"}}, nil })

	_, err := Enumerate("test-empty")
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = Enumerate("test-broken")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
	assert.Contains(t, err.Error(), "usb gone")

	_, err = Enumerate("no-such-driver")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDeviceNotFound)

	dev, err := First("test-one")
	require.NoError(t, err)
	assert.Equal(t, "a", dev.ID())

	assert.Contains(t, Drivers(), "test-one")
}

func TestRegister_Duplicate(t *testing.T) {
	Register("test-dup", func() ([]Device, error) { return nil, nil })
	assert.Panics(t, func() {
		Register("test-dup", func() ([]Device, error) { return nil, nil })
	})
}

func TestAverageColor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{200, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 100, 50, 255})

	assert.Equal(t, color.RGBA{100, 50, 25, 255}, AverageColor(img))
	assert.Equal(t, color.RGBA{A: 255}, AverageColor(image.NewRGBA(image.Rectangle{})))
}

func TestAverageColor_Unbounded(t *testing.T) {
	done := make(chan color.RGBA, 1)
	go func() { done <- AverageColor(image.NewUniform(color.RGBA{255, 0, 0, 255})) }()
	select {
	case c := <-done:
		assert.Equal(t, color.RGBA{255, 0, 0, 255}, c)
	case <-time.After(3 * time.Second):
		t.Fatal("AverageColor did not return for a uniform image")
	}

	big := image.NewRGBA(image.Rect(0, 0, 4096, 4096))
	draw.Draw(big, big.Bounds(), image.NewUniform(color.RGBA{0, 0, 200, 255}), image.Point{}, draw.Src)
	assert.Equal(t, color.RGBA{0, 0, 200, 255}, AverageColor(big))
}
