package render

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/PixPMusic/livedeck/internal/catalog"
	"github.com/PixPMusic/livedeck/internal/logging"
	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

var (
	// ArtworkPlaceholder fills song keys whose artwork cannot be loaded.
	ArtworkPlaceholder = color.RGBA{0, 0, 0, 255}
	// EmptySlot fills song keys past the end of the catalog.
	EmptySlot = color.RGBA{50, 50, 50, 255}
	// StopFallback fills the stop key when the stop icon cannot be loaded.
	StopFallback = color.RGBA{255, 0, 0, 255}

	titleColor = color.White
)

const (
	titleFontSize = 14
	// Keys shorter than this get artwork only; text would be unreadable.
	minTitleHeight = 24
)

// Options configures a Renderer.
type Options struct {
	// AssetsDir is the base for relative image references.
	AssetsDir string
	// FontPath is a TrueType font for titles. Empty means Go Regular.
	FontPath string
	Logger   *zap.Logger
}

// Renderer turns songs and icons into key-sized images. Its methods never
// fail: unusable artwork is replaced by a solid placeholder and logged.
type Renderer struct {
	artwork ArtworkLoader
	text    textDrawer
	log     *zap.Logger
}

// NewRenderer loads the title font and prepares the artwork loader.
func NewRenderer(opts Options) (*Renderer, error) {
	log := logging.OrNop(opts.Logger)

	f, err := loadFont(opts.FontPath)
	if f == nil {
		return nil, err
	}
	if err != nil {
		log.Warn("Title font fallback", zap.Error(err))
	}

	return &Renderer{
		artwork: ArtworkLoader{BaseDir: opts.AssetsDir},
		text:    textDrawer{font: f},
		log:     log,
	}, nil
}

// Font returns the font used for titles.
func (r *Renderer) Font() *truetype.Font {
	return r.text.font
}

// RenderSong draws the song's artwork scaled to size with the title along the bottom.
// It matches the RenderFunc signature used by Cache.
func (r *Renderer) RenderSong(song catalog.Song, size image.Point) image.Image {
	var canvas *image.RGBA

	art, err := r.artwork.Load(context.Background(), song.Image)
	if err != nil {
		r.log.Warn("Artwork not found, using placeholder",
			zap.String("title", song.Title),
			zap.String("image", song.Image),
			zap.Error(err))
		canvas = Solid(size, ArtworkPlaceholder)
	} else {
		canvas = Fit(art, size)
	}

	r.drawTitle(canvas, song.Title)
	return canvas
}

// Icon loads the image at path scaled to size, or a solid fallback colour.
func (r *Renderer) Icon(path string, size image.Point, fallback color.Color) image.Image {
	if path != "" {
		img, err := r.artwork.Load(context.Background(), path)
		if err == nil {
			return Fit(img, size)
		}
		r.log.Warn("Icon unusable, using fallback colour", zap.String("path", path), zap.Error(err))
	}
	return Solid(size, fallback)
}

func (r *Renderer) drawTitle(dst *image.RGBA, title string) {
	b := dst.Bounds()
	if title == "" || b.Dy() < minTitleHeight {
		return
	}

	size := float64(titleFontSize) * float64(b.Dy()) / 72
	text, size := r.text.fit(title, math.Max(size, minFontSize), b.Dx()-4)
	baseline := b.Max.Y - b.Dy()*10/72
	if err := r.text.drawCentered(dst, text, size, b.Min.X+b.Dx()/2, baseline, titleColor); err != nil {
		r.log.Warn("Failed to draw title", zap.String("title", title), zap.Error(err))
	}
}

// Solid returns an opaque image of size filled with c.
func Solid(size image.Point, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// Fit scales src to fit within size, preserving aspect ratio, centred on black.
func Fit(src image.Image, size image.Point) *image.RGBA {
	dst := Solid(size, color.Black)
	sb := src.Bounds()
	if sb.Empty() || size.X <= 0 || size.Y <= 0 {
		return dst
	}

	w, h := size.X, size.Y
	ratio := float64(sb.Dx()) / float64(sb.Dy())
	if float64(w)/float64(h) > ratio {
		w = int(math.Round(float64(h) * ratio))
	} else {
		h = int(math.Round(float64(w) / ratio))
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	off := image.Pt((size.X-w)/2, (size.Y-h)/2)
	target := image.Rectangle{Min: off, Max: off.Add(image.Pt(w, h))}
	draw.CatmullRom.Scale(dst, target, src, sb, draw.Over, nil)
	return dst
}

// toDevice converts img into the device key format: an RGBA image of exactly size.
func toDevice(img image.Image, size image.Point) *image.RGBA {
	if img == nil {
		return Solid(size, ArtworkPlaceholder)
	}
	b := img.Bounds()
	if b.Dx() == size.X && b.Dy() == size.Y {
		dst := image.NewRGBA(image.Rectangle{Max: size})
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	dst := image.NewRGBA(image.Rectangle{Max: size})
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
