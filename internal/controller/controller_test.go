package controller

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/PixPMusic/livedeck/internal/catalog"
	"github.com/PixPMusic/livedeck/internal/playback"
	"github.com/PixPMusic/livedeck/internal/render"
	"github.com/PixPMusic/livedeck/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = 32

type fakeDevice struct {
	mu       sync.Mutex
	images   map[int]image.Image
	colors   map[int][3]uint8
	failKey  int
	callback surface.KeyCallback
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{images: map[int]image.Image{}, colors: map[int][3]uint8{}, failKey: -1}
}

func (d *fakeDevice) ID() string                            { return "fake" }
func (d *fakeDevice) Open() error                           { return nil }
func (d *fakeDevice) Close() error                          { return nil }
func (d *fakeDevice) Reset() error                          { return nil }
func (d *fakeDevice) SetBrightness(int) error               { return nil }
func (d *fakeDevice) KeyImageFormat() (int, int)            { return testKey, testKey }
func (d *fakeDevice) KeyCount() int                         { return 10 }
func (d *fakeDevice) SetKeyCallback(fn surface.KeyCallback) { d.callback = fn }

func (d *fakeDevice) SetKeyImage(index int, img image.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index == d.failKey {
		d.failKey = -1
		return errors.New("usb write failed")
	}
	d.images[index] = img
	return nil
}

func (d *fakeDevice) SetKeyColor(index int, r, g, b uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.colors[index] = [3]uint8{r, g, b}
	return nil
}

func (d *fakeDevice) image(i int) image.Image {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.images[i]
}

func (d *fakeDevice) color(i int) [3]uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.colors[i]
}

type screenDevice struct {
	*fakeDevice
	screens int
}

func (d *screenDevice) ScreenImageFormat() (int, int) { return 60, 120 }

func (d *screenDevice) SetScreenImage(img image.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.screens++
	return nil
}

type fakePlayer struct {
	calls   []string
	playErr error
}

func (p *fakePlayer) Play(_ context.Context, song catalog.Song) error {
	p.calls = append(p.calls, "play "+song.Title)
	return p.playErr
}

func (p *fakePlayer) StopAll(context.Context) playback.StopSummary {
	p.calls = append(p.calls, "stop_all")
	return playback.StopSummary{Connected: true}
}

func songs(n int) *catalog.Catalog {
	out := make([]catalog.Song, n)
	for i := range out {
		out[i] = catalog.Song{Title: fmt.Sprintf("Song %d", i), Track: catalog.TrackIndex(i)}
	}
	return catalog.New(out)
}

type fixture struct {
	dev    *fakeDevice
	player *fakePlayer
	cache  *render.Cache
	ctrl   *Controller
}

func newFixture(t *testing.T, n int) fixture {
	t.Helper()
	r, err := render.NewRenderer(render.Options{AssetsDir: t.TempDir()})
	require.NoError(t, err)

	f := fixture{dev: newFakeDevice(), player: &fakePlayer{}, cache: render.NewCache()}
	f.ctrl, err = New(f.dev, songs(n), f.player, r, f.cache, Options{Layout: DefaultLayout()})
	require.NoError(t, err)
	f.ctrl.Attach(context.Background())
	return f
}

func (f fixture) press(key int) {
	f.dev.callback(f.dev, key, true)
}

func (f fixture) songImage(t *testing.T, title string) image.Image {
	t.Helper()
	img, ok := f.cache.Lookup("title:"+title, image.Pt(testKey, testKey))
	require.True(t, ok, "%s not cached", title)
	return img
}

func isEmptySlot(img image.Image) bool {
	return color.RGBAModel.Convert(img.At(testKey/2, testKey/2)) == render.EmptySlot
}

func TestPagingTenSongs(t *testing.T) {
	f := newFixture(t, 10)

	assert.Equal(t, 0, f.ctrl.CurrentPage())
	for slot := 0; slot < 7; slot++ {
		assert.Same(t, f.songImage(t, fmt.Sprintf("Song %d", slot)), f.dev.image(slot))
	}
	assert.Equal(t, navOff, f.dev.color(8))
	assert.Equal(t, navLit, f.dev.color(9))
	assert.NotNil(t, f.dev.image(7), "stop key drawn")

	f.press(9)
	assert.Equal(t, 1, f.ctrl.CurrentPage())
	for slot := 0; slot < 3; slot++ {
		assert.Same(t, f.songImage(t, fmt.Sprintf("Song %d", 7+slot)), f.dev.image(slot))
	}
	for slot := 3; slot < 7; slot++ {
		assert.True(t, isEmptySlot(f.dev.image(slot)), "slot %d empty", slot)
	}
	assert.Equal(t, navLit, f.dev.color(8))
	assert.Equal(t, navOff, f.dev.color(9))

	f.press(9)
	assert.Equal(t, 1, f.ctrl.CurrentPage(), "forward on the last page is a no-op")

	f.press(8)
	f.press(8)
	assert.Equal(t, 0, f.ctrl.CurrentPage(), "back on the first page is a no-op")
	assert.Empty(t, f.player.calls)
}

func TestSongKeyStopsThenPlays(t *testing.T) {
	f := newFixture(t, 10)

	f.press(3)
	assert.Equal(t, []string{"stop_all", "play Song 3"}, f.player.calls)

	f.press(9)
	f.press(2)
	assert.Equal(t, []string{"stop_all", "play Song 3", "stop_all", "play Song 9"}, f.player.calls)

	f.press(4)
	assert.Len(t, f.player.calls, 4, "slot past the end of the catalog is a no-op")
}

func TestKeyUpIgnored(t *testing.T) {
	f := newFixture(t, 10)
	f.dev.callback(f.dev, 9, false)
	f.dev.callback(f.dev, 3, false)
	assert.Equal(t, 0, f.ctrl.CurrentPage())
	assert.Empty(t, f.player.calls)
}

func TestPlaybackErrorStillRepaints(t *testing.T) {
	f := newFixture(t, 3)
	f.player.playErr = playback.ErrTrackNotFound
	f.dev.images = map[int]image.Image{}

	f.press(1)
	assert.Equal(t, []string{"stop_all", "play Song 1"}, f.player.calls)
	assert.Len(t, f.dev.images, 8)
}

func TestEmptyCatalog(t *testing.T) {
	f := newFixture(t, 0)

	assert.Equal(t, navOff, f.dev.color(8))
	assert.Equal(t, navOff, f.dev.color(9))
	for slot := 0; slot < 7; slot++ {
		assert.True(t, isEmptySlot(f.dev.image(slot)))
	}

	for key := 0; key < 7; key++ {
		f.press(key)
	}
	f.press(8)
	f.press(9)
	assert.Empty(t, f.player.calls)

	f.press(7)
	assert.Equal(t, []string{"stop_all"}, f.player.calls)
}

func TestStopKeyFallsBackToRed(t *testing.T) {
	f := newFixture(t, 1)
	assert.Equal(t, render.StopFallback, color.RGBAModel.Convert(f.dev.image(7).At(testKey/2, testKey/2)))
}

func TestKeyImageFailureFallsBackToPlaceholder(t *testing.T) {
	f := newFixture(t, 10)
	f.dev.failKey = 2

	f.ctrl.UpdateButtons()
	assert.True(t, isEmptySlot(f.dev.image(2)))
	assert.Same(t, f.songImage(t, "Song 3"), f.dev.image(3), "rest of the grid still updates")
}

func TestNew_RejectsBadLayout(t *testing.T) {
	r, err := render.NewRenderer(render.Options{})
	require.NoError(t, err)

	_, err = New(newFakeDevice(), songs(1), &fakePlayer{}, r, nil, Options{Layout: Layout{SongsPerPage: 8, Stop: 7, NavBack: 8, NavForward: 9}})
	assert.Error(t, err)
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		keys   int
		ok     bool
	}{
		{"default", DefaultLayout(), 10, true},
		{"too few keys", DefaultLayout(), 9, false},
		{"no songs", Layout{SongsPerPage: 0, Stop: 1, NavBack: 2, NavForward: 3}, 10, false},
		{"shared key", Layout{SongsPerPage: 4, Stop: 4, NavBack: 4, NavForward: 5}, 10, false},
		{"wider grid", Layout{SongsPerPage: 14, Stop: 14, NavBack: 15, NavForward: 16}, 17, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate(tt.keys)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStatusRefreshSharesLock(t *testing.T) {
	r, err := render.NewRenderer(render.Options{})
	require.NoError(t, err)
	dev := &screenDevice{fakeDevice: newFakeDevice()}
	ctrl, err := New(dev, songs(20), &fakePlayer{}, r, nil, Options{Layout: DefaultLayout()})
	require.NoError(t, err)
	ctrl.Attach(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ctrl.RunStatus(ctx, time.Millisecond)
		close(done)
	}()

	for i := 0; i < 20; i++ {
		dev.callback(dev, 9, true)
		dev.callback(dev, 8, true)
	}
	cancel()
	<-done

	dev.mu.Lock()
	defer dev.mu.Unlock()
	assert.Positive(t, dev.screens)
}

func TestRunStatusWithoutScreenReturns(t *testing.T) {
	f := newFixture(t, 1)
	f.ctrl.RunStatus(context.Background(), time.Millisecond)
}

func TestPrerender(t *testing.T) {
	f := newFixture(t, 12)
	require.NoError(t, f.ctrl.Prerender(context.Background()))
	f.songImage(t, "Song 11")
}
