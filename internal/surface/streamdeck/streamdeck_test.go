package streamdeck

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/PixPMusic/livedeck/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeck is a Stream Deck Neo: 8 keys of 96x96, 2 touch points and a
// 248x58 info bar.
type fakeDeck struct {
	mu       sync.Mutex
	infoBar  bool
	opened   bool
	keyFns   map[int]func()
	touchFns map[int]func()

	brightness byte
	images     map[int]image.Image
	keyColors  map[int]color.Color
	touch      map[int]color.Color
	bar        image.Image
}

func newFakeDeck(infoBar bool) *fakeDeck {
	return &fakeDeck{
		infoBar:   infoBar,
		keyFns:    map[int]func(){},
		touchFns:  map[int]func(){},
		images:    map[int]image.Image{},
		keyColors: map[int]color.Color{},
		touch:     map[int]color.Color{},
	}
}

func (f *fakeDeck) Open() error    { f.opened = true; return nil }
func (f *fakeDeck) Close() error   { f.opened = false; return nil }
func (f *fakeDeck) Serial() string { return "A1B2" }
func (f *fakeDeck) Model() string  { return "Stream Deck Neo" }

func (f *fakeDeck) SetBrightness(p byte) error { f.brightness = p; return nil }

func (f *fakeDeck) KeyCount() int                     { return 8 }
func (f *fakeDeck) KeyRect() (image.Rectangle, error) { return image.Rect(0, 0, 96, 96), nil }

func (f *fakeDeck) SetKeyImage(key int, img image.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[key] = img
	return nil
}

func (f *fakeDeck) SetKeyColor(key int, c color.Color) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyColors[key] = c
	return nil
}

func (f *fakeDeck) OnKey(key int, fn func()) error { f.keyFns[key] = fn; return nil }

func (f *fakeDeck) TouchCount() int {
	if f.infoBar {
		return 2
	}
	return 0
}

func (f *fakeDeck) SetTouchColor(tp int, c color.Color) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touch[tp] = c
	return nil
}

func (f *fakeDeck) OnTouch(tp int, fn func()) error { f.touchFns[tp] = fn; return nil }

func (f *fakeDeck) InfoBarRect() (image.Rectangle, error) {
	if !f.infoBar {
		return image.Rectangle{}, errors.New("no info bar")
	}
	return image.Rect(0, 0, 248, 58), nil
}

func (f *fakeDeck) SetInfoBarImage(img image.Image) error { f.bar = img; return nil }

func (f *fakeDeck) Listen(chan error) error { return nil }

func openNeo(t *testing.T) (*fakeDeck, surface.Device) {
	t.Helper()
	fake := newFakeDeck(true)
	dev := wrap(fake)
	require.NoError(t, dev.Open())
	return fake, dev
}

func TestWrapAddsScreenForInfoBar(t *testing.T) {
	_, ok := wrap(newFakeDeck(true)).(surface.Screen)
	assert.True(t, ok)
	_, ok = wrap(newFakeDeck(false)).(surface.Screen)
	assert.False(t, ok)
}

func TestNeoShape(t *testing.T) {
	_, dev := openNeo(t)
	assert.Equal(t, 10, dev.KeyCount())
	w, h := dev.KeyImageFormat()
	assert.Equal(t, [2]int{96, 96}, [2]int{w, h})
	assert.Equal(t, "Stream Deck Neo A1B2", dev.ID())

	sw, sh := dev.(surface.Screen).ScreenImageFormat()
	assert.Equal(t, [2]int{248, 58}, [2]int{sw, sh})
}

func TestKeysMapToGridAndTouchPoints(t *testing.T) {
	fake, dev := openNeo(t)

	var got [][2]int
	dev.SetKeyCallback(func(_ surface.Device, key int, pressed bool) {
		p := 0
		if pressed {
			p = 1
		}
		got = append(got, [2]int{key, p})
	})

	fake.keyFns[0]()
	fake.keyFns[7]()
	fake.touchFns[0]()
	fake.touchFns[1]()
	assert.Equal(t, [][2]int{{0, 1}, {0, 0}, {7, 1}, {7, 0}, {8, 1}, {8, 0}, {9, 1}, {9, 0}}, got)
}

func TestDrawing(t *testing.T) {
	fake, dev := openNeo(t)

	art := image.NewRGBA(image.Rect(0, 0, 96, 96))
	for i := 0; i < len(art.Pix); i += 4 {
		art.Pix[i+1], art.Pix[i+3] = 200, 255
	}
	require.NoError(t, dev.SetKeyImage(3, art))
	assert.Same(t, art, fake.images[3])

	require.NoError(t, dev.SetKeyImage(9, art))
	assert.Equal(t, color.RGBA{0, 200, 0, 255}, fake.touch[1])

	require.NoError(t, dev.SetKeyColor(8, 255, 255, 255))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, fake.touch[0])

	require.NoError(t, dev.SetKeyColor(7, 255, 0, 0))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, fake.keyColors[7])

	assert.Error(t, dev.SetKeyColor(10, 0, 0, 0))
	assert.Error(t, dev.SetKeyImage(-1, art))

	require.NoError(t, dev.SetBrightness(140))
	assert.Equal(t, byte(100), fake.brightness)
}

func TestScreenScalesToInfoBar(t *testing.T) {
	fake, dev := openNeo(t)
	require.NoError(t, dev.(surface.Screen).SetScreenImage(image.NewRGBA(image.Rect(0, 0, 124, 29))))
	assert.Equal(t, image.Pt(248, 58), fake.bar.Bounds().Size())
}

func TestReset(t *testing.T) {
	fake, dev := openNeo(t)
	require.NoError(t, dev.Reset())

	black := color.RGBA{0, 0, 0, 255}
	for i := range 8 {
		assert.Equal(t, black, fake.keyColors[i], "key %d", i)
	}
	assert.Equal(t, black, fake.touch[0])
	assert.Equal(t, black, fake.touch[1])
	require.NotNil(t, fake.bar)
	assert.Equal(t, image.Pt(248, 58), fake.bar.Bounds().Size())
}

func TestClosedDevice(t *testing.T) {
	dev := wrap(newFakeDeck(true))
	assert.Error(t, dev.SetKeyColor(0, 1, 2, 3), "not open")
	assert.NoError(t, dev.Close())

	require.NoError(t, dev.Open())
	require.NoError(t, dev.Close())
	assert.Error(t, dev.Reset())
}
