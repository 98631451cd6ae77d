package crawl

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/songcorpus/internal/model"
	"github.com/ppiankov/songcorpus/internal/store"
)

const collectionsDoc = "auto_playlists_and_songs.json"

type fakeSource struct {
	pages   map[string]string
	fail    map[string]error
	fetched []string
	onFetch func(url string)
}

func (f *fakeSource) Fetch(_ context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	if f.onFetch != nil {
		f.onFetch(url)
	}
	if err, ok := f.fail[url]; ok {
		return "", err
	}
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("unexpected status: 404 404 Not Found")
	}
	return html, nil
}

func catalog() model.CatalogConfig {
	c := model.DefaultConfig().Catalog
	c.RootURL = "https://suno.com"
	return c
}

func links(hrefs ...string) string {
	html := "<html><body>"
	for _, h := range hrefs {
		html += fmt.Sprintf(`<a href="%s">x</a>`, h)
	}
	return html + "</body></html>"
}

func newFixture() (*fakeSource, *store.JSONStore) {
	src := &fakeSource{
		pages: map[string]string{
			"https://suno.com":            links("/playlist/a", "/song/stray", "/playlist/b", "/playlist/a"),
			"https://suno.com/playlist/a": links("/song/1", "/song/2", "/song/1"),
			"https://suno.com/playlist/b": links("/song/3"),
		},
		fail: map[string]error{},
	}
	return src, store.New(afero.NewMemMapFs(), "/meta")
}

func TestRun_DiscoversAndPersists(t *testing.T) {
	src, s := newFixture()
	c := NewCrawler(src, s, catalog(), collectionsDoc)

	stats, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Collections)
	assert.Equal(t, 2, stats.Crawled)
	assert.Equal(t, 3, stats.NewItems)
	assert.Equal(t, 3, stats.TotalItems)

	m, err := LoadCollections(s, collectionsDoc)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://suno.com/playlist/a", "https://suno.com/playlist/b"}, m.Keys())
	rec, ok := m.Get("https://suno.com/playlist/a")
	require.True(t, ok)
	assert.Equal(t, []string{"https://suno.com/song/1", "https://suno.com/song/2"}, rec.ItemURLs)
}

func TestRun_AdditiveMerge(t *testing.T) {
	src, s := newFixture()
	existing := model.NewCollectionMap()
	existing.Merge("https://suno.com/playlist/old", []string{"https://suno.com/song/0"})
	existing.Merge("https://suno.com/playlist/a", []string{"https://suno.com/song/9"})
	require.NoError(t, s.Save(collectionsDoc, existing))

	stats, err := NewCrawler(src, s, catalog(), collectionsDoc).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.KnownCollections)

	m, err := LoadCollections(s, collectionsDoc)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://suno.com/playlist/old",
		"https://suno.com/playlist/a",
		"https://suno.com/playlist/b",
	}, m.Keys())
	rec, _ := m.Get("https://suno.com/playlist/a")
	assert.Equal(t, []string{"https://suno.com/song/9", "https://suno.com/song/1", "https://suno.com/song/2"}, rec.ItemURLs)

	// a second crawl adds nothing
	stats, err = NewCrawler(src, s, catalog(), collectionsDoc).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.NewItems)
}

func TestRun_CollectionFailureIsSkipped(t *testing.T) {
	src, s := newFixture()
	src.fail["https://suno.com/playlist/a"] = errors.New("fetch: timeout")

	var lines []string
	c := NewCrawler(src, s, catalog(), collectionsDoc)
	c.SetLogFunc(func(msg string) { lines = append(lines, msg) })

	stats, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Crawled)

	m, err := LoadCollections(s, collectionsDoc)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://suno.com/playlist/b"}, m.Keys())
	assert.NotEmpty(t, lines)
}

func TestRun_RootFailureIsError(t *testing.T) {
	src, s := newFixture()
	src.fail["https://suno.com"] = errors.New("fetch: connection refused")

	_, err := NewCrawler(src, s, catalog(), collectionsDoc).Run(context.Background())
	require.Error(t, err)

	exists, err := s.Exists(collectionsDoc)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRun_StopsOnCancel(t *testing.T) {
	src, s := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	src.onFetch = func(url string) {
		if url == "https://suno.com/playlist/a" {
			cancel()
		}
	}

	stats, err := NewCrawler(src, s, catalog(), collectionsDoc).Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, stats.Crawled, "in-flight collection completes")
	assert.NotContains(t, src.fetched, "https://suno.com/playlist/b")
}

func TestLoadCollections_Malformed(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := store.New(fs, "/meta")
	require.NoError(t, afero.WriteFile(fs, "/meta/"+collectionsDoc, []byte(`["not","an","object"]`), 0644))

	m, err := LoadCollections(s, collectionsDoc)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}
