// Package drafts stores uploaded-but-unpublished media and the per-category
// redaction masks attached to each item.
package drafts

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/oklog/ulid/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrNotFound is returned for unknown draft ids.
	ErrNotFound = errors.New("draft not found")
	// ErrInvalidID rejects ids that are not ULIDs.
	ErrInvalidID = errors.New("draft id must be a ULID")
)

// Upload limits for a single batch.
const (
	MaxImagesPerBatch = 5
	MaxVideosPerBatch = 1
)

// Category is one of the fixed redaction classes.
type Category string

const (
	Face     Category = "face"
	Doc      Category = "doc"
	Location Category = "location"
	Plate    Category = "plate"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{Face, Doc, Location, Plate}
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	switch c {
	case Face, Doc, Location, Plate:
		return true
	}
	return false
}

// ParseCategory accepts the category names and a few long forms.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "face", "faces":
		return Face, nil
	case "doc", "document", "documents":
		return Doc, nil
	case "location", "landmark":
		return Location, nil
	case "plate", "license_plate", "licence_plate":
		return Plate, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Kind is the media type of a draft.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// ParseKind accepts image or video.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindImage:
		return KindImage, nil
	case KindVideo:
		return KindVideo, nil
	}
	return "", fmt.Errorf("unknown media kind %q", s)
}

// Draft is one uploaded item. Masks holds an encoded image per category; a
// missing entry means no redaction was requested for it.
type Draft struct {
	ID        string              `json:"id"`
	Source    string              `json:"source"`
	Kind      Kind                `json:"kind"`
	Masks     map[Category]string `json:"masks"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// New returns an unsaved draft with a fresh id.
func New(source string, kind Kind) Draft {
	return Draft{
		ID:     ulid.Make().String(),
		Source: source,
		Kind:   kind,
		Masks:  map[Category]string{},
	}
}

// Mask returns the encoded mask for c.
func (d Draft) Mask(c Category) (string, bool) {
	v, ok := d.Masks[c]
	return v, ok && v != ""
}

// Clone deep copies the mask map.
func (d Draft) Clone() Draft {
	out := d
	out.Masks = make(map[Category]string, len(d.Masks))
	maps.Copy(out.Masks, d.Masks)
	return out
}

// Store is the draft collaborator. SetMask replaces one category entry
// atomically: readers observe either the old mask or the new one.
type Store interface {
	Add(ctx context.Context, d Draft) (Draft, error)
	AddMany(ctx context.Context, ds []Draft) ([]Draft, error)
	Get(ctx context.Context, id string) (Draft, error)
	List(ctx context.Context) ([]Draft, error)
	Update(ctx context.Context, d Draft) error
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	GetMask(ctx context.Context, id string, c Category) (string, bool, error)
	SetMask(ctx context.Context, id string, c Category, encoded string) error
	Close() error
}

// ValidateBatch applies the upload rules: up to five images, or a single
// video on its own.
func ValidateBatch(ds []Draft) error {
	if len(ds) == 0 {
		return errors.New("no drafts to add")
	}
	images, videos := 0, 0
	for _, d := range ds {
		switch d.Kind {
		case KindVideo:
			videos++
		default:
			images++
		}
	}
	if videos > 0 && (videos > MaxVideosPerBatch || images > 0) {
		return fmt.Errorf("a video must be uploaded on its own")
	}
	if images > MaxImagesPerBatch {
		return fmt.Errorf("at most %d images per upload, got %d", MaxImagesPerBatch, images)
	}
	return nil
}

// prepare validates d and fills in the id, empty masks and timestamps.
func prepare(d Draft, now time.Time) (Draft, error) {
	d = d.Clone()
	if strings.TrimSpace(d.Source) == "" {
		return Draft{}, errors.New("draft source is required")
	}
	if d.Kind == "" {
		d.Kind = KindImage
	}
	if _, err := ParseKind(string(d.Kind)); err != nil {
		return Draft{}, err
	}
	if d.ID == "" {
		d.ID = ulid.Make().String()
	} else if err := checkID(d.ID); err != nil {
		return Draft{}, err
	}
	for c, v := range d.Masks {
		if !c.Valid() {
			return Draft{}, fmt.Errorf("unknown category %q", c)
		}
		if v == "" {
			delete(d.Masks, c)
		}
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	return d, nil
}

func checkID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func checkCategory(c Category) error {
	if !c.Valid() {
		return fmt.Errorf("unknown category %q", c)
	}
	return nil
}

func now() time.Time { return time.Now().UTC() }
