package render

import (
	"image"
)

// DiffMask marks every pixel whose colour differs between original and
// processed by more than threshold on any channel. It is how a server-side
// auto-redaction (face blur, document clean) becomes an editable mask. The
// processed image is compared over the overlapping area only.
func DiffMask(original, processed image.Image, threshold uint8) *image.Alpha {
	ob := original.Bounds()
	out := image.NewAlpha(image.Rect(0, 0, ob.Dx(), ob.Dy()))
	pb := processed.Bounds()
	w, h := min(ob.Dx(), pb.Dx()), min(ob.Dy(), pb.Dy())
	limit := uint32(threshold) << 8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r1, g1, b1, _ := original.At(ob.Min.X+x, ob.Min.Y+y).RGBA()
			r2, g2, b2, _ := processed.At(pb.Min.X+x, pb.Min.Y+y).RGBA()
			if absDiff(r1, r2) > limit || absDiff(g1, g2) > limit || absDiff(b1, b2) > limit {
				out.Pix[y*out.Stride+x] = 0xff
			}
		}
	}
	return out
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
