package render

import (
	"image"
	"image/color"
	"image/draw"
)

// Fill methods understood by Redact.
const (
	MethodBlur     = "blur"
	MethodSolid    = "solid"
	MethodPixelate = "pixelate"
)

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}

// composite draws fill over base wherever mask is set, blending by the mask
// value so feathered edges stay soft.
func composite(base image.Image, fill image.Image, mask *image.Alpha) *image.RGBA {
	out := toRGBA(base)
	if mask != nil {
		draw.DrawMask(out, out.Rect, fill, image.Point{}, mask, mask.Rect.Min, draw.Over)
	}
	return out
}

// BlurWithMask blurs img under mask.
func BlurWithMask(img image.Image, mask *image.Alpha, radius int) *image.RGBA {
	blurred := toRGBA(img)
	blurRGBA(blurred, max(radius, 1))
	return composite(img, blurred, mask)
}

// SolidFill paints c under mask.
func SolidFill(img image.Image, mask *image.Alpha, c color.Color) *image.RGBA {
	return composite(img, image.NewUniform(c), mask)
}

// Pixelate replaces img under mask with block by block averages.
func Pixelate(img image.Image, mask *image.Alpha, block int) *image.RGBA {
	src := toRGBA(img)
	block = max(block, 1)
	blocks := image.NewRGBA(src.Rect)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	for by := 0; by < h; by += block {
		for bx := 0; bx < w; bx += block {
			cell := image.Rect(bx, by, min(bx+block, w), min(by+block, h))
			var r, g, b, a, n int
			for y := cell.Min.Y; y < cell.Max.Y; y++ {
				for x := cell.Min.X; x < cell.Max.X; x++ {
					p := src.RGBAAt(x, y)
					r, g, b, a = r+int(p.R), g+int(p.G), b+int(p.B), a+int(p.A)
					n++
				}
			}
			avg := color.RGBA{uint8(r / n), uint8(g / n), uint8(b / n), uint8(a / n)}
			draw.Draw(blocks, cell, image.NewUniform(avg), image.Point{}, draw.Src)
		}
	}
	return composite(src, blocks, mask)
}

// Redact applies method under mask. Unknown methods fall back to blur.
func Redact(img image.Image, mask *image.Alpha, method string) *image.RGBA {
	b := img.Bounds()
	short := max(min(b.Dx(), b.Dy()), 1)
	switch method {
	case MethodSolid:
		return SolidFill(img, mask, color.Black)
	case MethodPixelate:
		return Pixelate(img, mask, max(short/32, 4))
	default:
		return BlurWithMask(img, mask, max(short/40, 6))
	}
}
