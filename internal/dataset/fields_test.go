package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/songcorpus/internal/model"
)

func TestSuggestFieldMap(t *testing.T) {
	fields, mode := SuggestFieldMap([]string{"song_id", "Title", "lyrics", "styles", "song_url"})
	assert.Equal(t, model.FieldMap{TitleKey: "Title", LyricsKey: "lyrics", StylesKey: "styles"}, fields)
	assert.Equal(t, model.LanguageDetect, mode)

	fields, mode = SuggestFieldMap([]string{"name", "songtext", "genre", "tags", "sprache"})
	assert.Equal(t, model.FieldMap{
		TitleKey:    "name",
		LyricsKey:   "songtext",
		StylesKey:   "genre",
		MetatagsKey: "tags",
		LanguageKey: "sprache",
	}, fields)
	assert.Equal(t, model.LanguageFromKey, mode)
}

func TestSuggestFieldMap_PrefersEarlierAlias(t *testing.T) {
	fields, _ := SuggestFieldMap([]string{"name", "title"})
	assert.Equal(t, "title", fields.TitleKey)
}

func TestDocumentKeys(t *testing.T) {
	keys, err := DocumentKeys([]byte(`{"song_id":"1","title":"x","styles":[]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"song_id", "title", "styles"}, keys)

	_, err = DocumentKeys([]byte(`[1,2]`))
	assert.Error(t, err)
	_, err = DocumentKeys([]byte(`{`))
	assert.Error(t, err)
}

func TestWhatlangDetector(t *testing.T) {
	d := WhatlangDetector{}

	lang, err := d.Detect("The quick brown fox jumps over the lazy dog while the sun is shining and the birds are singing")
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	_, err = d.Detect("   ")
	assert.ErrorIs(t, err, ErrUndetectable)

	_, err = d.Detect("12345 !!! ???")
	assert.ErrorIs(t, err, ErrUndetectable)
}
