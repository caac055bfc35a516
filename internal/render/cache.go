package render

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/PixPMusic/livedeck/internal/catalog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// RenderFunc draws a song at the given key size. It must not fail;
// see Renderer.RenderSong.
type RenderFunc func(song catalog.Song, size image.Point) image.Image

type cacheKey struct {
	identity string
	size     image.Point
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%s@%dx%d", k.identity, k.size.X, k.size.Y)
}

// Cache holds one device-format image per (song identity, key size).
// Entries are never evicted; the catalog is static for a session.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*image.RGBA
	group   singleflight.Group
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]*image.RGBA)}
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Lookup returns the cached image for identity at size, if any.
func (c *Cache) Lookup(identity string, size image.Point) (*image.RGBA, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.entries[cacheKey{identity, size}]
	return img, ok
}

// GetOrRender returns the cached image for song at size, rendering and
// storing it on a miss. Concurrent misses for the same key render once.
// Callers must treat the returned image as read-only.
func (c *Cache) GetOrRender(song catalog.Song, size image.Point, render RenderFunc) *image.RGBA {
	return c.getOrCreate(cacheKey{song.Identity(), size}, func() image.Image {
		return render(song, size)
	})
}

// GetOrCreate is GetOrRender for images that are not songs, such as
// the stop icon or the empty-slot placeholder.
func (c *Cache) GetOrCreate(identity string, size image.Point, create func(size image.Point) image.Image) *image.RGBA {
	return c.getOrCreate(cacheKey{identity, size}, func() image.Image {
		return create(size)
	})
}

func (c *Cache) getOrCreate(key cacheKey, create func() image.Image) *image.RGBA {
	if img, ok := c.Lookup(key.identity, key.size); ok {
		return img
	}

	v, _, _ := c.group.Do(key.String(), func() (any, error) {
		if img, ok := c.Lookup(key.identity, key.size); ok {
			return img, nil
		}
		img := toDevice(create(), key.size)

		c.mu.Lock()
		c.entries[key] = img
		c.mu.Unlock()
		return img, nil
	})
	return v.(*image.RGBA)
}

// PrerenderAll renders every song at size ahead of first paint.
// Work is spread over a bounded pool of goroutines.
func (c *Cache) PrerenderAll(ctx context.Context, songs []catalog.Song, size image.Point, render RenderFunc) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, song := range songs {
		song := song
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.GetOrRender(song, size, render)
			return nil
		})
	}
	return g.Wait()
}
