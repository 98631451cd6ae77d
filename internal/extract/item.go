package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/songcorpus/internal/model"
	"github.com/ppiankov/songcorpus/internal/normalize"
)

// Placeholders stored when a field is missing from the page
const (
	NoStylesFound = "no-styles-found"
	NoLyricsFound = "no-lyrics-found"
)

// ErrNoContainer means the page has no song content container
var ErrNoContainer = errors.New("song container not found")

// Selectors locate the song fields inside a page
type Selectors struct {
	Container       string // CSS selector of the content container
	CategoryPattern string // href substring of category anchors
	ItemMarker      string // URL marker preceding the item id
}

// SelectorsFromCatalog builds Selectors from catalog settings
func SelectorsFromCatalog(c model.CatalogConfig) Selectors {
	return Selectors{
		Container:       c.ContainerSelector,
		CategoryPattern: c.CategoryPattern,
		ItemMarker:      c.ItemPattern,
	}
}

// Item extracts a song from its page. It returns false when the container is absent.
//
// Inside the first container: the title is the value of the first input (nil
// when there is no input), styles are the cleaned texts of category anchors,
// and lyrics are the trimmed text of the first textarea.
func Item(html, pageURL string, sel Selectors) (*model.Item, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}

	container := doc.Find(sel.Container).First()
	if container.Length() == 0 {
		return nil, false
	}

	item := &model.Item{
		ID:  normalize.ItemIDFromURL(pageURL, sel.ItemMarker),
		URL: pageURL,
	}

	if input := container.Find("input").First(); input.Length() > 0 {
		title := strings.TrimSpace(input.AttrOr("value", ""))
		item.Title = &title
	}

	container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if !strings.Contains(a.AttrOr("href", ""), sel.CategoryPattern) {
			return
		}
		if style := normalize.CleanCategory(a.Text()); style != "" {
			item.Styles = append(item.Styles, style)
		}
	})
	if len(item.Styles) == 0 {
		item.Styles = []string{NoStylesFound}
	}

	item.Lyrics = NoLyricsFound
	if textarea := container.Find("textarea").First(); textarea.Length() > 0 {
		item.Lyrics = strings.TrimSpace(textarea.Text())
	}

	return item, true
}

// ParseItem is Item with the missing container reported as an error
func ParseItem(html, pageURL string, sel Selectors) (*model.Item, error) {
	item, ok := Item(html, pageURL, sel)
	if !ok {
		return nil, fmt.Errorf("%s: %w", pageURL, ErrNoContainer)
	}
	return item, nil
}
