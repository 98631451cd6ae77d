package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestItemIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://suno.com/song/3f2a-99", "3f2a-99"},
		{"https://suno.com/song/3f2a-99/", "3f2a-99"},
		{"https://suno.com/song/3f2a-99?sh=abc", "3f2a-99"},
		{"https://suno.com/song/3f2a-99#lyrics", "3f2a-99"},
		{"https://suno.com/playlist/123", UnknownID},
		{"https://suno.com/song/", UnknownID},
		{"", UnknownID},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveItemID(tt.url))
		})
	}
}

func TestItemIDFromURL_IsDeterministic(t *testing.T) {
	url := "https://suno.com/song/abc-123"
	assert.Equal(t, ItemIDFromURL(url, "/song/"), ItemIDFromURL(url, "/song/"))
	assert.Equal(t, UnknownID, ItemIDFromURL(url, ""))
	assert.Equal(t, "abc-123", ItemIDFromURL("https://x/track/abc-123", "/track/"))
}

func TestExtractEmbeddedTags(t *testing.T) {
	assert.Equal(t, []string{"Intro", "Chorus"}, ExtractEmbeddedTags("Verse [Intro] lyrics [Chorus] more"))
	assert.Equal(t, []string{"Chorus", "Verse", "Chorus"}, ExtractEmbeddedTags("[Chorus]a[Verse]b[Chorus]"))
	assert.Equal(t, []string{""}, ExtractEmbeddedTags("empty [] tag"))
	assert.Empty(t, ExtractEmbeddedTags("no tags here"))
	assert.Equal(t, []string{"a"}, ExtractEmbeddedTags("[a] unterminated [b"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World_abc", "Hello World_abc"},
		{"  spaced   out\t title  ", "spaced out title"},
		{"AC/DC: Back*In?Black", "ACDC BackInBlack"},
		{"Café Über_1", "Caf ber_1"},
		{"v1.2-final_x", "v1.2-final_x"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestSanitizeFilename_Idempotent(t *testing.T) {
	inputs := []string{
		"  a  b  ",
		"Weird <> name | with \" chars",
		"Mixed\n\nlines\tand tabs",
		"ünïcödé ☃ title",
		"already_clean-name.v2",
	}
	for _, in := range inputs {
		once := SanitizeFilename(in)
		assert.Equal(t, once, SanitizeFilename(once), "input %q", in)
	}
}

func TestItemFilenameRoundTrip(t *testing.T) {
	name := ItemFilename("My Song!", "9d1c-77aa")
	assert.Equal(t, "My Song_9d1c-77aa.json", name)
	assert.Equal(t, "9d1c-77aa", ItemIDFromFilename(name))

	assert.Equal(t, "solo", ItemIDFromFilename("solo.json"))
	assert.Equal(t, "id", ItemIDFromFilename("a_b_c_id.json"))
}

func TestCleanCategory(t *testing.T) {
	assert.Equal(t, "darkpop", CleanCategory("  dark pop, "))
	assert.Equal(t, "Lo-Fi", CleanCategory("Lo-Fi"))
	assert.Equal(t, "", CleanCategory(" , "))
}

func TestPlaceholderTitle(t *testing.T) {
	at := time.Unix(1700000000, 0)
	assert.Equal(t, "untitled-abc-1700000000", PlaceholderTitle("abc", at))
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Dedupe([]string{" a", "b", "a ", "", "b"}))
	assert.Empty(t, Dedupe(nil))
}
