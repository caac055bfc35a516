package controller

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/PixPMusic/livedeck/internal/catalog"
	"github.com/PixPMusic/livedeck/internal/logging"
	"github.com/PixPMusic/livedeck/internal/page"
	"github.com/PixPMusic/livedeck/internal/playback"
	"github.com/PixPMusic/livedeck/internal/render"
	"github.com/PixPMusic/livedeck/internal/surface"
	"go.uber.org/zap"
)

const (
	emptySlotKey = "special:empty"
	stopKey      = "special:stop"
)

var (
	navLit = [3]uint8{255, 255, 255}
	navOff = [3]uint8{0, 0, 0}
)

// Player is the part of the playback coordinator the controller drives.
type Player interface {
	Play(ctx context.Context, song catalog.Song) error
	StopAll(ctx context.Context) playback.StopSummary
}

// Options configures a Controller.
type Options struct {
	Layout Layout
	// StopIcon is the image shown on the stop key. Empty or unusable
	// paths show a solid red key.
	StopIcon string
	Logger   *zap.Logger
}

// Controller binds a surface's keys to the song catalog. It owns the
// current page; key handling and status refreshes are serialised so a
// repaint never races a page change.
type Controller struct {
	dev      surface.Device
	songs    *catalog.Catalog
	player   Player
	renderer *render.Renderer
	cache    *render.Cache
	layout   Layout
	pages    page.Model
	stopIcon string
	keySize  image.Point
	log      *zap.Logger

	mu   sync.Mutex
	page int
	ctx  context.Context
}

// New creates a controller for dev. The layout must fit the device.
func New(dev surface.Device, songs *catalog.Catalog, player Player, renderer *render.Renderer, cache *render.Cache, opts Options) (*Controller, error) {
	if err := opts.Layout.Validate(dev.KeyCount()); err != nil {
		return nil, err
	}
	if cache == nil {
		cache = render.NewCache()
	}
	w, h := dev.KeyImageFormat()

	return &Controller{
		dev:      dev,
		songs:    songs,
		player:   player,
		renderer: renderer,
		cache:    cache,
		layout:   opts.Layout,
		pages:    page.Model{Size: songs.Len(), PerPage: opts.Layout.SongsPerPage},
		stopIcon: opts.StopIcon,
		keySize:  image.Pt(w, h),
		log:      logging.OrNop(opts.Logger).With(zap.String("device", dev.ID())),
		ctx:      context.Background(),
	}, nil
}

// Attach registers the key handler and paints the first page. Actions
// triggered by keys run with ctx.
func (c *Controller) Attach(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.page = c.pages.Clamp(c.page)
	c.updateButtons()
	c.mu.Unlock()

	c.dev.SetKeyCallback(c.HandleKey)
	c.log.Info("Controller attached",
		zap.Int("songs", c.songs.Len()),
		zap.Int("pages", c.pages.TotalPages()))
}

// Prerender renders every song's key image ahead of first paint.
func (c *Controller) Prerender(ctx context.Context) error {
	start := time.Now()
	if err := c.cache.PrerenderAll(ctx, c.songs.All(), c.keySize, c.renderer.RenderSong); err != nil {
		return err
	}
	c.log.Info("Key images prerendered", zap.Int("songs", c.songs.Len()), zap.Duration("took", time.Since(start)))
	return nil
}

// CurrentPage returns the page shown on the surface.
func (c *Controller) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// HandleKey is the surface key callback. Only key-down events act.
func (c *Controller) HandleKey(_ surface.Device, key int, pressed bool) {
	if !pressed {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	ctx := c.ctx

	switch {
	case key == c.layout.Stop:
		c.log.Info("Stop pressed")
		c.player.StopAll(ctx)
		c.updateButtons()

	case key == c.layout.NavBack:
		if !c.pages.CanGoBack(c.page) {
			return
		}
		c.page = c.pages.Retreat(c.page)
		c.log.Debug("Page back", zap.Int("page", c.page))
		c.updateButtons()

	case key == c.layout.NavForward:
		if !c.pages.CanGoForward(c.page) {
			return
		}
		c.page = c.pages.Advance(c.page)
		c.log.Debug("Page forward", zap.Int("page", c.page))
		c.updateButtons()

	case key >= 0 && key < c.layout.SongsPerPage:
		idx, ok := c.pages.SongIndex(c.page, key)
		if !ok {
			return
		}
		song, _ := c.songs.At(idx)
		c.log.Info("Song selected", zap.Int("key", key), zap.Int("index", idx), zap.String("title", song.Title))

		c.player.StopAll(ctx)
		if err := c.player.Play(ctx, song); err != nil {
			c.log.Error("Playback failed", zap.String("title", song.Title), zap.Error(err))
		}
		c.updateButtons()

	default:
		c.log.Debug("Unassigned key", zap.Int("key", key))
	}
}

// UpdateButtons repaints every key for the current page.
func (c *Controller) UpdateButtons() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateButtons()
}

// updateButtons must be called with mu held.
func (c *Controller) updateButtons() {
	for slot := 0; slot < c.layout.SongsPerPage; slot++ {
		img := c.emptySlot()
		if idx, ok := c.pages.SongIndex(c.page, slot); ok {
			song, _ := c.songs.At(idx)
			img = c.cache.GetOrRender(song, c.keySize, c.renderer.RenderSong)
		}
		c.setImage(slot, img)
	}

	c.setImage(c.layout.Stop, c.cache.GetOrCreate(stopKey, c.keySize, func(size image.Point) image.Image {
		return c.renderer.Icon(c.stopIcon, size, render.StopFallback)
	}))

	c.setNav(c.layout.NavBack, c.pages.CanGoBack(c.page))
	c.setNav(c.layout.NavForward, c.pages.CanGoForward(c.page))
}

func (c *Controller) emptySlot() image.Image {
	return c.cache.GetOrCreate(emptySlotKey, c.keySize, func(size image.Point) image.Image {
		return render.Solid(size, render.EmptySlot)
	})
}

func (c *Controller) setImage(key int, img image.Image) {
	err := c.dev.SetKeyImage(key, img)
	if err == nil {
		return
	}
	c.log.Warn("Key image failed, drawing placeholder", zap.Int("key", key), zap.Error(err))
	if err := c.dev.SetKeyImage(key, c.emptySlot()); err != nil {
		c.log.Error("Placeholder failed", zap.Int("key", key), zap.Error(err))
	}
}

func (c *Controller) setNav(key int, available bool) {
	rgb := navOff
	if available {
		rgb = navLit
	}
	if err := c.dev.SetKeyColor(key, rgb[0], rgb[1], rgb[2]); err != nil {
		c.log.Warn("Nav indicator failed", zap.Int("key", key), zap.Error(err))
	}
}

// RefreshStatus redraws the status screen, if the device has one.
func (c *Controller) RefreshStatus(now time.Time) {
	screen, ok := c.dev.(surface.Screen)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	w, h := screen.ScreenImageFormat()
	img := c.renderer.Status(now, c.page, c.pages.TotalPages(), image.Pt(w, h))
	if err := screen.SetScreenImage(img); err != nil {
		c.log.Warn("Status screen update failed", zap.Error(err))
	}
}

// RunStatus refreshes the status screen every interval until ctx is done.
// It returns at once for devices without a screen.
func (c *Controller) RunStatus(ctx context.Context, interval time.Duration) {
	if _, ok := c.dev.(surface.Screen); !ok {
		c.log.Debug("Device has no status screen")
		return
	}
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.RefreshStatus(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.RefreshStatus(now)
		}
	}
}
