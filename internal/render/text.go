package render

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const (
	textDPI     = 72
	minFontSize = 7
	ellipsis    = "…"
)

// loadFont parses the TrueType font at path. An empty path, or a font
// freetype cannot parse (e.g. CFF-flavoured .otf), falls back to Go Regular.
func loadFont(path string) (*truetype.Font, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			var f *truetype.Font
			if f, err = freetype.ParseFont(data); err == nil {
				return f, nil
			}
		}
		fallback, ferr := freetype.ParseFont(goregular.TTF)
		if ferr != nil {
			return nil, ferr
		}
		return fallback, fmt.Errorf("font %s unusable, using Go Regular: %w", path, err)
	}
	return freetype.ParseFont(goregular.TTF)
}

// textDrawer renders single lines of anti-aliased text.
type textDrawer struct {
	font *truetype.Font
}

func (t textDrawer) face(size float64) font.Face {
	return truetype.NewFace(t.font, &truetype.Options{Size: size, DPI: textDPI, Hinting: font.HintingFull})
}

func (t textDrawer) width(s string, size float64) int {
	face := t.face(size)
	defer face.Close()
	return font.MeasureString(face, s).Ceil()
}

// fit picks the largest size in [minFontSize, size] at which s is at most
// maxWidth pixels wide, truncating s with an ellipsis when even the minimum
// size is too wide.
func (t textDrawer) fit(s string, size float64, maxWidth int) (string, float64) {
	for ; size >= minFontSize; size-- {
		if t.width(s, size) <= maxWidth {
			return s, size
		}
	}
	size = minFontSize
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if t.width(candidate, size) <= maxWidth {
			return candidate, size
		}
	}
	return "", size
}

// drawCentered draws s horizontally centred on centerX with its baseline at baselineY.
func (t textDrawer) drawCentered(dst *image.RGBA, s string, size float64, centerX, baselineY int, col color.Color) error {
	if s == "" {
		return nil
	}
	c := freetype.NewContext()
	c.SetDPI(textDPI)
	c.SetFont(t.font)
	c.SetFontSize(size)
	c.SetHinting(font.HintingFull)
	c.SetClip(dst.Bounds())
	c.SetDst(dst)
	c.SetSrc(image.NewUniform(col))

	x := centerX - t.width(s, size)/2
	_, err := c.DrawString(s, fixed.Point26_6{X: fixed.I(x), Y: fixed.I(baselineY)})
	return err
}

// lineHeight returns ascent+descent in pixels at size.
func (t textDrawer) lineHeight(size float64) int {
	face := t.face(size)
	defer face.Close()
	m := face.Metrics()
	return (m.Ascent + m.Descent).Ceil()
}
