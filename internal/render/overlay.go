package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Layer is one tinted mask in a preview.
type Layer struct {
	Name  string
	Mask  *image.Alpha
	Color color.RGBA
}

var layerColors = map[string]color.RGBA{
	"face":     colornames.Orangered,
	"doc":      colornames.Dodgerblue,
	"location": colornames.Limegreen,
	"plate":    colornames.Gold,
}

// LayerColor returns the preview tint for a category name. Anything else is
// looked up in the CSS colour table and defaults to magenta.
func LayerColor(name string) color.RGBA {
	if c, ok := layerColors[name]; ok {
		return c
	}
	if c, ok := colornames.Map[name]; ok {
		return c
	}
	return colornames.Magenta
}

// overlayAlpha scales each layer so the base stays visible underneath.
const overlayAlpha = 0.5

// Overlay tints base with every layer in order and, when legend is set,
// labels the layers in the top-left corner.
func Overlay(base image.Image, layers []Layer, legend bool) *image.RGBA {
	out := toRGBA(base)
	for _, l := range layers {
		if l.Mask == nil {
			continue
		}
		c := l.Color
		c.A = uint8(float64(c.A)*overlayAlpha + 0.5)
		draw.DrawMask(out, out.Rect, image.NewUniform(c), image.Point{}, l.Mask, l.Mask.Rect.Min, draw.Over)
	}
	if legend {
		drawLegend(out, layers)
	}
	return out
}

func drawLegend(dst *image.RGBA, layers []Layer) {
	const lineHeight = 16
	y := 4
	for _, l := range layers {
		if y+lineHeight > dst.Rect.Dy() {
			return
		}
		swatch := image.Rect(4, y+2, 16, y+14)
		draw.Draw(dst, swatch, image.NewUniform(l.Color), image.Point{}, draw.Src)
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.White,
			Face: basicfont.Face7x13,
			Dot:  fixed.P(20, y+12),
		}
		d.DrawString(l.Name)
		y += lineHeight
	}
}
