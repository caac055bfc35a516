package render

import (
	"image"
	"image/color"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

var (
	statusBackground = color.RGBA{0, 0, 0, 255}
	statusNeighbour  = color.RGBA{128, 128, 128, 255}
	statusCurrent    = color.RGBA{255, 255, 255, 255}
	statusMarker     = color.RGBA{0, 0, 255, 255}
	statusDigits     = color.RGBA{0, 0, 0, 255}
)

// NeighbourPages returns the 1-based page numbers shown either side of
// current (also 1-based). Both wrap around the ends of the catalog.
func NeighbourPages(current, total int) (prev, next int) {
	if total < 1 {
		total = 1
	}
	prev = current - 1
	if prev < 1 {
		prev = total
	}
	next = current + 1
	if next > total {
		next = 1
	}
	return prev, next
}

// Status draws the status screen: a clock over three page boxes
// (previous, current, next) with a marker under the current one.
// page is 0-based.
func (r *Renderer) Status(now time.Time, page, total int, size image.Point) *image.RGBA {
	dst := Solid(size, statusBackground)
	if size.X <= 0 || size.Y <= 0 {
		return dst
	}

	clockHeight := size.Y / 2
	clock := now.Format("15:04")
	clockSize := float64(clockHeight) * 0.6
	clock, clockSize = r.text.fit(clock, clockSize, size.X-4)
	if err := r.text.drawCentered(dst, clock, clockSize, size.X/2, clockHeight*3/4, statusCurrent); err != nil {
		r.log.Warn("Failed to draw clock", zap.Error(err))
	}

	current := page + 1
	prev, next := NeighbourPages(current, total)

	// Three boxes with gaps of a third of a box, centred on the lower half.
	area := image.Rect(0, clockHeight, size.X, size.Y)
	box := area.Dy() * 3 / 5
	if maxBox := size.X * 3 / 11; box > maxBox {
		box = maxBox
	}
	if box < 3 {
		return dst
	}
	gap := box / 3
	left := (size.X - 3*box - 2*gap) / 2
	top := area.Min.Y + (area.Dy()-box)/2 - box/8

	digitSize := float64(box) * 0.55
	for i, n := range []int{prev, current, next} {
		fill := statusNeighbour
		if i == 1 {
			fill = statusCurrent
		}
		rect := image.Rect(left+i*(box+gap), top, left+i*(box+gap)+box, top+box)
		draw.Draw(dst, rect, image.NewUniform(fill), image.Point{}, draw.Src)

		label, labelSize := r.text.fit(strconv.Itoa(n), digitSize, box-2)
		baseline := rect.Min.Y + (box+r.text.lineHeight(labelSize)*2/3)/2
		if err := r.text.drawCentered(dst, label, labelSize, rect.Min.X+box/2, baseline, statusDigits); err != nil {
			r.log.Warn("Failed to draw page number", zap.Int("page", n), zap.Error(err))
		}
	}

	dot := box / 6
	if dot < 1 {
		dot = 1
	}
	cx := left + box + gap + box/2
	cy := top + box + (area.Max.Y-top-box)/2
	marker := image.Rect(cx-dot, cy-dot/2, cx+dot, cy+dot/2+1).Intersect(dst.Bounds())
	draw.Draw(dst, marker, image.NewUniform(statusMarker), image.Point{}, draw.Src)

	return dst
}
