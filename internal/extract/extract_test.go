package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/songcorpus/internal/model"
)

var testSelectors = SelectorsFromCatalog(model.DefaultConfig().Catalog)

const songPage = `<html><body>
<div class="bg-vinylBlack-darker">
  <input type="text" value="  Midnight Drive ">
  <input type="text" value="ignored">
  <a href="/style/synthwave">synth wave,</a>
  <a href="/profile/someone">someone</a>
  <a href="/style/empty"> , </a>
  <a href="https://suno.com/style/retro">Retro</a>
  <textarea>
[Verse]
Neon lights
[Chorus]
Drive
  </textarea>
</div>
<div class="bg-vinylBlack-darker"><input value="second container"></div>
</body></html>`

func TestItem_ExtractsFields(t *testing.T) {
	item, ok := Item(songPage, "https://suno.com/song/abc-1?sh=x", testSelectors)
	require.True(t, ok)

	assert.Equal(t, "abc-1", item.ID)
	assert.Equal(t, "https://suno.com/song/abc-1?sh=x", item.URL)
	require.NotNil(t, item.Title)
	assert.Equal(t, "Midnight Drive", *item.Title)
	assert.Equal(t, []string{"synthwave", "Retro"}, item.Styles)
	assert.Equal(t, "[Verse]\nNeon lights\n[Chorus]\nDrive", item.Lyrics)
}

func TestItem_MissingFieldsUsePlaceholders(t *testing.T) {
	page := `<div class="bg-vinylBlack-darker"><p>nothing here</p></div>`

	item, ok := Item(page, "https://suno.com/song/zz", testSelectors)
	require.True(t, ok)
	assert.Nil(t, item.Title)
	assert.Equal(t, []string{NoStylesFound}, item.Styles)
	assert.Equal(t, NoLyricsFound, item.Lyrics)
	assert.Equal(t, "untitled", item.TitleOr("untitled"))
}

func TestItem_NoContainer(t *testing.T) {
	_, ok := Item(`<html><body><input value="x"></body></html>`, "https://suno.com/song/1", testSelectors)
	assert.False(t, ok)

	_, err := ParseItem(`<html></html>`, "https://suno.com/song/1", testSelectors)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoContainer))
}

func TestFindLinks(t *testing.T) {
	page := `<html><body>
<a href="/playlist/one">One</a>
<a href="/song/1">song</a>
<a href="https://suno.com/playlist/two#top">Two</a>
<a href="/playlist/one">One again</a>
<a href="/playlist/two">Two again</a>
<a>no href</a>
</body></html>`

	links, err := FindLinks(page, "https://suno.com/", "/playlist/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://suno.com/playlist/one",
		"https://suno.com/playlist/two",
	}, links)

	songs, err := FindLinks(page, "https://suno.com/playlist/one", "/song/")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://suno.com/song/1"}, songs)
}

func TestFindLinks_NoMatches(t *testing.T) {
	links, err := FindLinks("<html></html>", "https://suno.com/", "/playlist/")
	require.NoError(t, err)
	assert.Empty(t, links)

	_, err = FindLinks("<html></html>", "://bad", "/playlist/")
	assert.Error(t, err)
}
