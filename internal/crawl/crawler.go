// Package crawl discovers collections on the catalog root page and the item
// URLs inside each collection, merging them into the persisted collection map.
package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/songcorpus/internal/extract"
	"github.com/ppiankov/songcorpus/internal/fetch"
	"github.com/ppiankov/songcorpus/internal/logging"
	"github.com/ppiankov/songcorpus/internal/model"
	"github.com/ppiankov/songcorpus/internal/store"
)

// Store is the persistence used by the crawler
type Store interface {
	Load(name string, v any) (bool, error)
	Save(name string, v any) error
}

// Stats summarizes one crawl
type Stats struct {
	Collections      int           `json:"collections"`       // discovered on the root page
	Crawled          int           `json:"crawled"`           // fetched successfully
	Failed           int           `json:"failed"`            // skipped after a fetch error
	NewItems         int           `json:"new_items"`         // URLs not present before this crawl
	TotalItems       int           `json:"total_items"`       // URLs in the map afterwards
	KnownCollections int           `json:"known_collections"` // collections in the map afterwards
	Duration         time.Duration `json:"duration"`
}

// Crawler runs the two discovery phases
type Crawler struct {
	source   fetch.PageSource
	store    Store
	catalog  model.CatalogConfig
	document string
	logf     model.LogFunc
	logger   zerolog.Logger
}

// NewCrawler creates a crawler that persists the collection map as document
func NewCrawler(source fetch.PageSource, s Store, catalog model.CatalogConfig, document string) *Crawler {
	return &Crawler{
		source:   source,
		store:    s,
		catalog:  catalog,
		document: document,
		logf:     func(string) {},
		logger:   logging.Component("crawl"),
	}
}

// SetLogFunc sets the receiver of status lines
func (c *Crawler) SetLogFunc(fn model.LogFunc) {
	if fn == nil {
		fn = func(string) {}
	}
	c.logf = fn
}

// DiscoverCollections fetches the root page and returns collection URLs in document order
func (c *Crawler) DiscoverCollections(ctx context.Context) ([]string, error) {
	html, err := c.source.Fetch(ctx, c.catalog.RootURL)
	if err != nil {
		return nil, fmt.Errorf("fetch root %s: %w", c.catalog.RootURL, err)
	}
	links, err := extract.FindLinks(html, c.catalog.RootURL, c.catalog.CollectionPattern)
	if err != nil {
		return nil, fmt.Errorf("find collections: %w", err)
	}
	return links, nil
}

// Run discovers collections, then crawls each one and saves the map after every
// collection. A collection that fails to load is skipped. Cancellation is checked
// before each collection; the returned error then wraps ctx.Err().
func (c *Crawler) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	collections, err := LoadCollections(c.store, c.document)
	if err != nil {
		return stats, err
	}

	urls, err := c.DiscoverCollections(ctx)
	if err != nil {
		return stats, err
	}
	stats.Collections = len(urls)
	c.logf(fmt.Sprintf("Found %d collections", len(urls)))

	for i, collectionURL := range urls {
		if err := ctx.Err(); err != nil {
			stats.finish(collections, start)
			return stats, fmt.Errorf("crawl stopped: %w", err)
		}

		html, err := c.source.Fetch(ctx, collectionURL)
		if err != nil {
			stats.Failed++
			c.logger.Warn().Err(err).Str("url", collectionURL).Msg("Skipping collection")
			c.logf(fmt.Sprintf("Error loading collection %s: %v", collectionURL, err))
			continue
		}

		items, err := extract.FindLinks(html, collectionURL, c.catalog.ItemPattern)
		if err != nil {
			stats.Failed++
			c.logger.Warn().Err(err).Str("url", collectionURL).Msg("Skipping unparseable collection")
			continue
		}

		added := collections.Merge(collectionURL, items)
		if err := c.store.Save(c.document, collections); err != nil {
			stats.finish(collections, start)
			return stats, fmt.Errorf("save collections: %w", err)
		}

		stats.Crawled++
		stats.NewItems += added
		c.logf(fmt.Sprintf("[%d/%d] %s: %d songs (%d new)", i+1, len(urls), collectionURL, len(items), added))
	}

	stats.finish(collections, start)
	return stats, nil
}

func (s *Stats) finish(m *model.CollectionMap, start time.Time) {
	s.TotalItems = m.TotalItems()
	s.KnownCollections = m.Len()
	s.Duration = time.Since(start)
}

// LoadCollections reads a collection map document. A missing document yields an
// empty map; a malformed one is logged and replaced by an empty map.
func LoadCollections(s Store, name string) (*model.CollectionMap, error) {
	m := model.NewCollectionMap()
	if _, err := s.Load(name, m); err != nil {
		if !store.IsParseError(err) {
			return nil, fmt.Errorf("load collections %s: %w", name, err)
		}
		logger := logging.Component("crawl")
		logger.Warn().Err(err).Str("document", name).Msg("Malformed collection map, starting empty")
		return model.NewCollectionMap(), nil
	}
	return m, nil
}
