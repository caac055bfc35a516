package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

// TrayIcon returns a PNG of a white 4x2 key grid on a transparent
// background, size pixels square. It is used as a template icon.
func TrayIcon(size int) ([]byte, error) {
	if size < 8 {
		size = 8
	}
	img := image.NewNRGBA(image.Rect(0, 0, size, size))

	const cols, rows = 4, 2
	gap := size / 12
	if gap < 1 {
		gap = 1
	}
	keyW := (size - gap*(cols+1)) / cols
	keyH := keyW
	top := (size - rows*keyH - (rows-1)*gap) / 2

	white := image.NewUniform(color.NRGBA{255, 255, 255, 255})
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x := gap + col*(keyW+gap)
			y := top + row*(keyH+gap)
			draw.Draw(img, image.Rect(x, y, x+keyW, y+keyH), white, image.Point{}, draw.Src)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
