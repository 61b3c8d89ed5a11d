package mask

import (
	"image"
	"math"

	"github.com/example/maskedit/internal/mapper"
)

// BrushRange bounds the stroke width a tool accepts.
type BrushRange struct {
	Min, Max, Default int
}

var (
	// PaintBrush is the free-paint tool range.
	PaintBrush = BrushRange{Min: 6, Max: 72, Default: 28}
	// RefineBrush is the category refinement tool range.
	RefineBrush = BrushRange{Min: 8, Max: 72, Default: 32}
)

// Clamp limits width to the range. Zero selects the default.
func (r BrushRange) Clamp(width int) int {
	if width == 0 {
		return r.Default
	}
	if width < r.Min {
		return r.Min
	}
	if width > r.Max {
		return r.Max
	}
	return width
}

// fillCapsule sets every pixel whose centre lies within radius of the
// segment a-b to v. A zero-length segment yields a disc, which gives the
// stroke its round caps and joins.
func fillCapsule(img *image.Alpha, a, b mapper.Point, radius float64, v uint8) {
	box := image.Rect(
		int(math.Floor(math.Min(a.X, b.X)-radius)),
		int(math.Floor(math.Min(a.Y, b.Y)-radius)),
		int(math.Ceil(math.Max(a.X, b.X)+radius))+1,
		int(math.Ceil(math.Max(a.Y, b.Y)+radius))+1,
	).Intersect(img.Rect)
	if box.Empty() {
		return
	}
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	r2 := radius * radius
	for y := box.Min.Y; y < box.Max.Y; y++ {
		py := float64(y) + 0.5
		row := img.Pix[(y-img.Rect.Min.Y)*img.Stride:]
		for x := box.Min.X; x < box.Max.X; x++ {
			px := float64(x) + 0.5
			t := 0.0
			if lenSq > 0 {
				t = ((px-a.X)*dx + (py-a.Y)*dy) / lenSq
				if t < 0 {
					t = 0
				} else if t > 1 {
					t = 1
				}
			}
			ex := px - (a.X + t*dx)
			ey := py - (a.Y + t*dy)
			if ex*ex+ey*ey <= r2 {
				row[x-img.Rect.Min.X] = v
			}
		}
	}
}
