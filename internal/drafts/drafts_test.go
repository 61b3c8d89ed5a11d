package drafts

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func images(n int) []Draft {
	out := make([]Draft, n)
	for i := range out {
		out[i] = Draft{Source: "photo.jpg", Kind: KindImage}
	}
	return out
}

func TestValidateBatch(t *testing.T) {
	require.NoError(t, ValidateBatch(images(1)))
	require.NoError(t, ValidateBatch(images(MaxImagesPerBatch)))
	assert.Error(t, ValidateBatch(images(MaxImagesPerBatch+1)))
	assert.Error(t, ValidateBatch(nil))

	video := Draft{Source: "clip.mp4", Kind: KindVideo}
	require.NoError(t, ValidateBatch([]Draft{video}))
	assert.Error(t, ValidateBatch([]Draft{video, video}))
	assert.Error(t, ValidateBatch(append(images(1), video)))
}

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"face":          Face,
		"Faces":         Face,
		"document":      Doc,
		"doc":           Doc,
		"location":      Location,
		" plate ":       Plate,
		"license_plate": Plate,
	}
	for in, want := range cases {
		got, err := ParseCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseCategory("tattoo")
	assert.Error(t, err)
}

func TestCategoriesAreFixed(t *testing.T) {
	assert.Equal(t, []Category{Face, Doc, Location, Plate}, Categories())
	for _, c := range Categories() {
		assert.True(t, c.Valid())
	}
	assert.False(t, Category("other").Valid())
}

func TestPrepare(t *testing.T) {
	ts := now()
	d, err := prepare(Draft{Source: "a.png", Masks: map[Category]string{Face: "", Doc: "x"}}, ts)
	require.NoError(t, err)
	assert.Equal(t, KindImage, d.Kind)
	_, err = ulid.ParseStrict(d.ID)
	require.NoError(t, err)
	assert.Equal(t, map[Category]string{Doc: "x"}, d.Masks)
	assert.Equal(t, ts, d.CreatedAt)

	_, err = prepare(Draft{}, ts)
	assert.Error(t, err)
	_, err = prepare(Draft{Source: "a.png", ID: "nope"}, ts)
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = prepare(Draft{Source: "a.png", Masks: map[Category]string{"tattoo": "x"}}, ts)
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	d := New("a.png", KindImage)
	d.Masks[Face] = "one"
	c := d.Clone()
	c.Masks[Face] = "two"
	assert.Equal(t, "one", d.Masks[Face])
}
