// Package mask holds the editable redaction buffer, its brush compositing and
// the undo history that checkpoints it.
package mask

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/example/maskedit/internal/mapper"
)

// Mode selects how a stroke segment composites into the surface.
type Mode int

const (
	// ModePaint marks every covered pixel fully masked.
	ModePaint Mode = iota
	// ModeErase clears every covered pixel regardless of its prior value.
	ModeErase
	// ModeRestore replaces the whole surface from the originally loaded mask.
	// Only the refinement tool honours it.
	ModeRestore
)

func (m Mode) String() string {
	switch m {
	case ModePaint:
		return "paint"
	case ModeErase:
		return "erase"
	case ModeRestore:
		return "restore"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paint":
		return ModePaint, nil
	case "erase":
		return ModeErase, nil
	case "restore":
		return ModeRestore, nil
	}
	return ModePaint, fmt.Errorf("unknown mode %q", s)
}

// Masked is the alpha threshold above which a pixel counts as redacted.
const Masked = 128

// Surface is an alpha buffer aligned to a source image. 255 means fully
// masked. The dimensions are fixed at creation and every write is clipped.
type Surface struct {
	img      *image.Alpha
	mode     Mode
	stroking bool
}

// NewSurface returns an unmasked surface of w by h pixels. Non-positive
// dimensions give an empty surface that ignores all strokes.
func NewSurface(w, h int) *Surface {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Surface{img: image.NewAlpha(image.Rect(0, 0, w, h))}
}

// SurfaceFromImage converts img into a w by h surface. Translucent images
// contribute their alpha channel; opaque ones their luminance, so both a
// canvas export and a white-on-black mask load the same way. img is scaled
// when its size differs.
func SurfaceFromImage(img image.Image, w, h int) *Surface {
	s := NewSurface(w, h)
	if img == nil || img.Bounds().Empty() || s.img.Rect.Empty() {
		return s
	}
	src := toAlpha(img)
	if src.Rect.Dx() == w && src.Rect.Dy() == h {
		copy(s.img.Pix, src.Pix)
		return s
	}
	xdraw.CatmullRom.Scale(s.img, s.img.Rect, src, src.Rect, xdraw.Src, nil)
	return s
}

func toAlpha(img image.Image) *image.Alpha {
	b := img.Bounds()
	out := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	translucent := false
	for y := b.Min.Y; y < b.Max.Y && !translucent; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				translucent = true
				break
			}
		}
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.At(x, y)
			var v uint8
			if translucent {
				_, _, _, a := c.RGBA()
				v = uint8(a >> 8)
			} else {
				v = color.GrayModel.Convert(c).(color.Gray).Y
			}
			out.Pix[(y-b.Min.Y)*out.Stride+(x-b.Min.X)] = v
		}
	}
	return out
}

// Width returns the buffer width in pixels.
func (s *Surface) Width() int { return s.img.Rect.Dx() }

// Height returns the buffer height in pixels.
func (s *Surface) Height() int { return s.img.Rect.Dy() }

// Bounds returns the zero-based buffer rectangle.
func (s *Surface) Bounds() image.Rectangle { return s.img.Rect }

// At returns the mask value at x, y or 0 outside the buffer.
func (s *Surface) At(x, y int) uint8 {
	if !image.Pt(x, y).In(s.img.Rect) {
		return 0
	}
	return s.img.AlphaAt(x, y).A
}

// Mode reports the mode of the current or last stroke.
func (s *Surface) Mode() Mode { return s.mode }

// BeginStroke starts a stroke composited with mode.
func (s *Surface) BeginStroke(mode Mode) {
	s.mode = mode
	s.stroking = true
}

// SetMode changes the mode used by later segments of the active stroke.
func (s *Surface) SetMode(mode Mode) { s.mode = mode }

// Stroking reports whether a stroke is open.
func (s *Surface) Stroking() bool { return s.stroking }

// ExtendStroke composites a round-capped segment from a to b. It is ignored
// outside a stroke and for ModeRestore, which is resolved by the caller.
func (s *Surface) ExtendStroke(a, b mapper.Point, radius float64) {
	if !s.stroking || radius <= 0 {
		return
	}
	switch s.mode {
	case ModePaint:
		fillCapsule(s.img, a, b, radius, 255)
	case ModeErase:
		fillCapsule(s.img, a, b, radius, 0)
	}
}

// EndStroke closes the active stroke.
func (s *Surface) EndStroke() { s.stroking = false }

// Clear unmasks every pixel.
func (s *Surface) Clear() {
	clear(s.img.Pix)
}

// Fill masks every pixel.
func (s *Surface) Fill() {
	for i := range s.img.Pix {
		s.img.Pix[i] = 255
	}
}

// MaskedCount returns how many pixels are at or above threshold.
func (s *Surface) MaskedCount(threshold uint8) int {
	n := 0
	for _, v := range s.img.Pix {
		if v >= threshold {
			n++
		}
	}
	return n
}

// Alpha returns a copy of the buffer.
func (s *Surface) Alpha() *image.Alpha {
	out := image.NewAlpha(s.img.Rect)
	copy(out.Pix, s.img.Pix)
	return out
}

// Gray returns the buffer as a white-on-black image, the form redaction
// services expect for masks.
func (s *Surface) Gray() *image.Gray {
	out := image.NewGray(s.img.Rect)
	copy(out.Pix, s.img.Pix)
	return out
}

// Snapshot copies the buffer into an immutable value.
func (s *Surface) Snapshot() Snapshot {
	pix := make([]byte, len(s.img.Pix))
	copy(pix, s.img.Pix)
	return Snapshot{w: s.Width(), h: s.Height(), pix: pix}
}

// Restore replaces the whole buffer with snap. Snapshots of a different size
// are ignored.
func (s *Surface) Restore(snap Snapshot) bool {
	if snap.w != s.Width() || snap.h != s.Height() || len(snap.pix) != len(s.img.Pix) {
		return false
	}
	copy(s.img.Pix, snap.pix)
	return true
}

// Snapshot is a frozen copy of a surface buffer.
type Snapshot struct {
	w, h int
	pix  []byte
}

// Size returns the snapshot dimensions.
func (s Snapshot) Size() (int, int) { return s.w, s.h }

// Equal reports whether both snapshots hold the same pixels.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.w != o.w || s.h != o.h || len(s.pix) != len(o.pix) {
		return false
	}
	for i := range s.pix {
		if s.pix[i] != o.pix[i] {
			return false
		}
	}
	return true
}

// Gray renders the snapshot white on black.
func (s Snapshot) Gray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, s.w, s.h))
	copy(out.Pix, s.pix)
	return out
}
