// Package scrape fetches every discovered song page that has no item document
// yet, stores it once, and keeps the style and meta tag registries current.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/ppiankov/songcorpus/internal/extract"
	"github.com/ppiankov/songcorpus/internal/fetch"
	"github.com/ppiankov/songcorpus/internal/logging"
	"github.com/ppiankov/songcorpus/internal/model"
	"github.com/ppiankov/songcorpus/internal/normalize"
	"github.com/ppiankov/songcorpus/internal/registry"
	"github.com/ppiankov/songcorpus/internal/store"
)

// ItemStore holds one document per song
type ItemStore interface {
	Create(name string, v any) error
	List(suffix string) ([]string, error)
	LoadRaw(name string) ([]byte, bool, error)
}

// Stats summarizes one scrape
type Stats struct {
	Total     int           `json:"total"`
	Scraped   int           `json:"scraped"`
	Existing  int           `json:"existing"`
	Failed    int           `json:"failed"`
	NewStyles int           `json:"new_styles"`
	NewTags   int           `json:"new_tags"`
	Duration  time.Duration `json:"duration"`
}

func (s *Stats) progress() model.Progress {
	return model.Progress{
		Processed:       s.Scraped,
		Total:           s.Total,
		SkippedExisting: s.Existing,
		SkippedOther:    s.Failed,
	}
}

// Scraper drives the fetch-and-extract loop
type Scraper struct {
	source    fetch.PageSource
	items     ItemStore
	meta      registry.Store
	paths     model.PathsConfig
	selectors extract.Selectors
	now       func() time.Time
	progress  model.ProgressFunc
	logf      model.LogFunc
	logger    zerolog.Logger
}

// NewScraper creates a scraper writing items to items and registries to meta
func NewScraper(source fetch.PageSource, items ItemStore, meta registry.Store, cfg *model.Config) *Scraper {
	return &Scraper{
		source:    source,
		items:     items,
		meta:      meta,
		paths:     cfg.Paths,
		selectors: extract.SelectorsFromCatalog(cfg.Catalog),
		now:       time.Now,
		progress:  func(model.Progress) {},
		logf:      func(string) {},
		logger:    logging.Component("scrape"),
	}
}

// SetProgressFunc sets the receiver of per-item progress
func (s *Scraper) SetProgressFunc(fn model.ProgressFunc) {
	if fn == nil {
		fn = func(model.Progress) {}
	}
	s.progress = fn
}

// SetLogFunc sets the receiver of status lines
func (s *Scraper) SetLogFunc(fn model.LogFunc) {
	if fn == nil {
		fn = func(string) {}
	}
	s.logf = fn
}

type registries struct {
	styles       *registry.Registry
	tags         *registry.Registry
	styleMapping *registry.Mapping
	tagMapping   *registry.Mapping
}

func (s *Scraper) loadRegistries() (*registries, error) {
	styles, err := registry.Load(s.meta, s.paths.StylesFile)
	if err != nil {
		return nil, err
	}
	tags, err := registry.Load(s.meta, s.paths.MetaTagsFile)
	if err != nil {
		return nil, err
	}
	styleMapping, err := registry.LoadMapping(s.meta, s.paths.StylesMappingFile)
	if err != nil {
		return nil, err
	}
	tagMapping, err := registry.LoadMapping(s.meta, s.paths.MetaTagsMappingFile)
	if err != nil {
		return nil, err
	}
	return &registries{styles: styles, tags: tags, styleMapping: styleMapping, tagMapping: tagMapping}, nil
}

// processedIDs rebuilds the set of item ids that already have a document.
// The song_id stored in each document wins; documents without one fall back
// to the id suffix of their filename.
func (s *Scraper) processedIDs() (map[string]struct{}, error) {
	names, err := s.items.List(".json")
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	ids := make(map[string]struct{}, len(names))
	for _, name := range names {
		data, found, err := s.items.LoadRaw(name)
		if err != nil {
			return nil, fmt.Errorf("read item %s: %w", name, err)
		}
		if found {
			if id := gjson.GetBytes(data, "song_id").String(); id != "" {
				ids[id] = struct{}{}
				continue
			}
		}
		ids[normalize.ItemIDFromFilename(name)] = struct{}{}
	}
	return ids, nil
}

// Run scrapes every item URL in collections, in collection then item order.
// Items whose id already has a document are skipped. Fetch and extraction
// failures are logged and skipped; storage failures stop the run.
// Cancellation is checked before each collection and each item.
func (s *Scraper) Run(ctx context.Context, collections *model.CollectionMap) (*Stats, error) {
	start := time.Now()
	stats := &Stats{Total: collections.TotalItems()}
	defer func() { stats.Duration = time.Since(start) }()

	processed, err := s.processedIDs()
	if err != nil {
		return stats, err
	}
	regs, err := s.loadRegistries()
	if err != nil {
		return stats, err
	}

	for _, collectionURL := range collections.Keys() {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("scrape stopped: %w", err)
		}
		rec, _ := collections.Get(collectionURL)
		s.logf(fmt.Sprintf("Collection %s: %d songs", collectionURL, len(rec.ItemURLs)))

		for _, itemURL := range rec.ItemURLs {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("scrape stopped: %w", err)
			}
			if err := s.scrapeItem(ctx, itemURL, processed, regs, stats); err != nil {
				return stats, err
			}
			s.progress(stats.progress())
		}
	}

	s.logf(fmt.Sprintf("Scraped %d songs, %d already present, %d failed", stats.Scraped, stats.Existing, stats.Failed))
	return stats, nil
}

func (s *Scraper) scrapeItem(ctx context.Context, itemURL string, processed map[string]struct{}, regs *registries, stats *Stats) error {
	id := normalize.ItemIDFromURL(itemURL, s.selectors.ItemMarker)
	if _, done := processed[id]; done {
		stats.Existing++
		s.logger.Debug().Str("url", itemURL).Str("id", id).Msg("Already scraped")
		return nil
	}

	html, err := s.source.Fetch(ctx, itemURL)
	if err != nil {
		stats.Failed++
		s.logger.Warn().Err(err).Str("url", itemURL).Msg("Failed to fetch song")
		s.logf(fmt.Sprintf("Error scraping song %s: %v", itemURL, err))
		return nil
	}

	item, err := extract.ParseItem(html, itemURL, s.selectors)
	if err != nil {
		stats.Failed++
		s.logger.Warn().Err(err).Str("url", itemURL).Msg("Failed to extract song")
		s.logf(fmt.Sprintf("Error scraping song %s: %v", itemURL, err))
		return nil
	}
	item.ID = id

	title := item.TitleOr(normalize.PlaceholderTitle(id, s.now()))
	name := normalize.ItemFilename(title, id)
	if err := s.items.Create(name, item); err != nil {
		if !errors.Is(err, store.ErrExists) {
			return fmt.Errorf("save song %s: %w", itemURL, err)
		}
		processed[id] = struct{}{}
		stats.Existing++
		s.logger.Debug().Str("document", name).Msg("Item document already present")
		return nil
	}
	processed[id] = struct{}{}
	stats.Scraped++

	stats.NewStyles += len(regs.styles.Add(item.Styles...))
	if _, err := regs.styles.Persist(s.meta); err != nil {
		return err
	}
	regs.styleMapping.Set(itemURL, item.Styles)
	if err := regs.styleMapping.Persist(s.meta); err != nil {
		return err
	}

	tags := normalize.ExtractEmbeddedTags(item.Lyrics)
	stats.NewTags += len(regs.tags.Add(tags...))
	if _, err := regs.tags.Persist(s.meta); err != nil {
		return err
	}
	regs.tagMapping.Set(itemURL, tags)
	if err := regs.tagMapping.Persist(s.meta); err != nil {
		return err
	}

	s.logf(fmt.Sprintf("Saved %s", name))
	return nil
}
