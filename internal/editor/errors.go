package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoImage is returned when a session is loaded without a usable base
	// image or used before Load.
	ErrNoImage = errors.New("no image loaded")
	// ErrVideoDraft rejects masking a video; only stills are editable.
	ErrVideoDraft = errors.New("masks can only be edited on still images")
	// ErrNoClient is returned by Inpaint when the session has no client.
	ErrNoClient = errors.New("no inpaint client configured")
)

// InputError reports a request the session cannot act on: a missing image,
// a video draft, an unknown category or a mode the tool does not offer.
type InputError struct {
	Op  string
	Err error
}

func (e *InputError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *InputError) Unwrap() error { return e.Err }
