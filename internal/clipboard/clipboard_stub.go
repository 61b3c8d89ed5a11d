//go:build !cgo && !windows

package clipboard

import (
	"errors"
	"image"
)

var (
	// ErrEmpty means the clipboard holds nothing of the requested kind.
	ErrEmpty       = errors.New("clipboard is empty")
	errUnsupported = errors.New("clipboard support needs a cgo build")
)

func WriteImage(image.Image) error { return errUnsupported }

func ReadImage() (image.Image, error) { return nil, errUnsupported }

func WriteText(string) error { return errUnsupported }
