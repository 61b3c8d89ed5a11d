// Package mapper converts pointer and touch positions reported in display
// space into pixel coordinates of the backing mask buffer.
package mapper

import (
	"errors"
	"math"
)

// ErrInvalidPosition reports an event that carries no usable coordinate or a
// canvas whose on-screen rectangle has no area. Callers drop such events.
var ErrInvalidPosition = errors.New("pointer event has no usable position")

// Point is a coordinate in either display or image space.
type Point struct {
	X, Y float64
}

// Rect is the on-screen rectangle of the canvas element in display units.
type Rect struct {
	Left, Top     float64
	Width, Height float64
}

// Canvas pairs the displayed rectangle with the buffer resolution it shows.
// The two usually differ: the buffer is locked to the image while the element
// is laid out to fit the screen.
type Canvas struct {
	Rect         Rect
	BufferWidth  int
	BufferHeight int
}

// Event is a pointer or touch sample. Pointer is preferred when set; otherwise
// the first touch point is used.
type Event struct {
	Pointer *Point
	Touches []Point
}

// MouseEvent builds an event carrying a primary pointer coordinate.
func MouseEvent(x, y float64) Event {
	return Event{Pointer: &Point{X: x, Y: y}}
}

// TouchEvent builds an event from one or more touch points.
func TouchEvent(points ...Point) Event {
	return Event{Touches: points}
}

func (e Event) client() (Point, bool) {
	if e.Pointer != nil {
		return *e.Pointer, true
	}
	if len(e.Touches) > 0 {
		return e.Touches[0], true
	}
	return Point{}, false
}

// Scale returns the independent horizontal and vertical factors between
// display units and buffer pixels.
func (c Canvas) Scale() (float64, float64, bool) {
	if c.Rect.Width <= 0 || c.Rect.Height <= 0 || c.BufferWidth <= 0 || c.BufferHeight <= 0 {
		return 0, 0, false
	}
	return float64(c.BufferWidth) / c.Rect.Width, float64(c.BufferHeight) / c.Rect.Height, true
}

// MapToImageSpace maps ev onto the buffer of c, clamped to the buffer bounds.
func MapToImageSpace(ev Event, c Canvas) (Point, error) {
	client, ok := ev.client()
	if !ok || isBad(client.X) || isBad(client.Y) {
		return Point{}, ErrInvalidPosition
	}
	sx, sy, ok := c.Scale()
	if !ok {
		return Point{}, ErrInvalidPosition
	}
	return Point{
		X: clamp((client.X-c.Rect.Left)*sx, float64(c.BufferWidth-1)),
		Y: clamp((client.Y-c.Rect.Top)*sy, float64(c.BufferHeight-1)),
	}, nil
}

func isBad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func clamp(v, hi float64) float64 {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
