package render

import (
	"image"
	"image/color"
	"image/draw"
)

// ShadowOptions configures the drop shadow drawn under an exported preview.
type ShadowOptions struct {
	Radius  int
	Offset  image.Point
	Opacity float64
}

// DefaultShadowOptions is used by the preview command when -shadow is set.
func DefaultShadowOptions() ShadowOptions {
	return ShadowOptions{Radius: 16, Offset: image.Pt(10, 10), Opacity: 0.5}
}

// ApplyShadow places img on a larger transparent canvas with a blurred shadow
// of its opaque area behind it. The result always starts at the origin; the
// second return value is where img's top-left corner landed.
func ApplyShadow(img *image.RGBA, opts ShadowOptions) (*image.RGBA, image.Point) {
	if img == nil || img.Rect.Empty() || opts.Opacity <= 0 {
		return img, image.Point{}
	}
	opacity := min(opts.Opacity, 1)
	radius := max(opts.Radius, 0)

	src := img.Rect
	padded := src.Inset(-radius)
	shadow := padded.Add(opts.Offset)
	all := src.Union(shadow)

	silhouette := image.NewGray(image.Rect(0, 0, padded.Dx(), padded.Dy()))
	for y := src.Min.Y; y < src.Max.Y; y++ {
		for x := src.Min.X; x < src.Max.X; x++ {
			silhouette.SetGray(x-padded.Min.X, y-padded.Min.Y, color.Gray{Y: img.RGBAAt(x, y).A})
		}
	}
	soft := blurGray(silhouette, radius)

	dst := image.NewRGBA(image.Rect(0, 0, all.Dx(), all.Dy()))
	tint := image.NewUniform(color.RGBA{A: uint8(opacity*255 + 0.5)})
	draw.DrawMask(dst, soft.Rect.Add(shadow.Min.Sub(all.Min)), tint, image.Point{}, soft, image.Point{}, draw.Over)
	draw.Draw(dst, src.Sub(all.Min), img, src.Min, draw.Over)
	return dst, src.Min.Sub(all.Min)
}
