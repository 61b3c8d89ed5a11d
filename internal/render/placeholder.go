package render

import (
	"image"
	"math"
)

// PlaceholderOpacity is the peak alpha of the default overlay.
const PlaceholderOpacity = 0.6

// Placeholder returns the overlay shown when a category has no stored mask
// yet: a centred ellipse covering most of the frame, fading out over its
// outer fifth, at PlaceholderOpacity.
func Placeholder(w, h int) *image.Alpha {
	out := image.NewAlpha(image.Rect(0, 0, max(w, 0), max(h, 0)))
	if w <= 0 || h <= 0 {
		return out
	}
	cx, cy := float64(w)/2, float64(h)/2
	rx, ry := float64(w)*0.4, float64(h)*0.4
	peak := PlaceholderOpacity * 255
	for y := 0; y < h; y++ {
		dy := (float64(y) + 0.5 - cy) / ry
		for x := 0; x < w; x++ {
			dx := (float64(x) + 0.5 - cx) / rx
			d := math.Sqrt(dx*dx + dy*dy)
			var a float64
			switch {
			case d <= 0.8:
				a = 1
			case d < 1:
				a = (1 - d) / 0.2
			}
			out.Pix[y*out.Stride+x] = uint8(a*peak + 0.5)
		}
	}
	return out
}
