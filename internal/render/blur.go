package render

import "image"

// boxBlur runs a separable box blur over one 8-bit plane in place. Each pass
// averages 2*radius+1 samples using a running prefix sum, clamping the window
// at the edges so borders do not darken.
func boxBlur(pix []uint8, stride, step, w, h, radius int) {
	if radius <= 0 || w == 0 || h == 0 {
		return
	}
	tmp := make([]uint8, w*h)
	prefix := make([]int, max(w, h)+1)

	for y := 0; y < h; y++ {
		row := y * stride
		for x := 0; x < w; x++ {
			prefix[x+1] = prefix[x] + int(pix[row+x*step])
		}
		for x := 0; x < w; x++ {
			x0, x1 := max(x-radius, 0), min(x+radius, w-1)
			tmp[y*w+x] = uint8((prefix[x1+1] - prefix[x0]) / (x1 - x0 + 1))
		}
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			prefix[y+1] = prefix[y] + int(tmp[y*w+x])
		}
		for y := 0; y < h; y++ {
			y0, y1 := max(y-radius, 0), min(y+radius, h-1)
			pix[y*stride+x*step] = uint8((prefix[y1+1] - prefix[y0]) / (y1 - y0 + 1))
		}
	}
}

func blurGray(src *image.Gray, radius int) *image.Gray {
	out := image.NewGray(src.Bounds())
	copy(out.Pix, src.Pix)
	boxBlur(out.Pix, out.Stride, 1, out.Rect.Dx(), out.Rect.Dy(), radius)
	return out
}

// Feather softens the edge of a mask with a box blur of the given radius.
// The input is left untouched.
func Feather(mask *image.Alpha, radius int) *image.Alpha {
	if mask == nil {
		return nil
	}
	out := image.NewAlpha(mask.Rect)
	copy(out.Pix, mask.Pix)
	boxBlur(out.Pix, out.Stride, 1, out.Rect.Dx(), out.Rect.Dy(), radius)
	return out
}

// blurRGBA blurs every channel of img.
func blurRGBA(img *image.RGBA, radius int) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for c := 0; c < 4; c++ {
		boxBlur(img.Pix[c:], img.Stride, 4, w, h, radius)
	}
}

// Dilate grows every masked pixel into a square of side 2*px+1, so a mask
// covers a little more than the detector found.
func Dilate(mask *image.Alpha, px int) *image.Alpha {
	if mask == nil {
		return nil
	}
	out := image.NewAlpha(mask.Rect)
	copy(out.Pix, mask.Pix)
	if px <= 0 {
		return out
	}
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	// max filter, separable like the blur
	tmp := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var m uint8
			for k := max(x-px, 0); k <= min(x+px, w-1); k++ {
				m = max(m, mask.Pix[y*mask.Stride+k])
			}
			tmp[y*w+x] = m
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var m uint8
			for k := max(y-px, 0); k <= min(y+px, h-1); k++ {
				m = max(m, tmp[k*w+x])
			}
			out.Pix[y*out.Stride+x] = m
		}
	}
	return out
}
