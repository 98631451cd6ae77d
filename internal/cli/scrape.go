package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/songcorpus/internal/crawl"
	"github.com/ppiankov/songcorpus/internal/scrape"
)

var (
	manual     bool
	manualFile string
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch and store every song that has no document yet",
	Long: `Scrape walks the collection map in order and fetches each song page
whose id has no document in the songs directory. Each song is stored once
and the style and meta tag registries are updated as it is saved.

Songs that fail to load are logged and skipped; rerun to retry them.

Example:
  songcorpus scrape
  songcorpus scrape --manual
  songcorpus scrape --manual-file my_playlists.json`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	addFetchFlags(scrapeCmd)
	scrapeCmd.Flags().BoolVar(&manual, "manual", false, "scrape the manually curated collection map instead of the crawled one")
	scrapeCmd.Flags().StringVar(&manualFile, "manual-file", "", "manual collection map document in the metadata directory (implies --manual)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFetchFlags(cmd, cfg)
	a := newApp(cfg)

	document := cfg.Paths.CollectionsFile
	if manual || manualFile != "" {
		document = cfg.Paths.ManualCollectionsFile
		if manualFile != "" {
			document = manualFile
		}
	}

	return a.run("scrape", func(ctx context.Context) error {
		_, err := a.scrape(ctx, document)
		return err
	})
}

func (a *app) scrape(ctx context.Context, document string) (*scrape.Stats, error) {
	collections, err := crawl.LoadCollections(a.meta, document)
	if err != nil {
		return nil, err
	}
	if collections.Len() == 0 {
		fmt.Fprintf(os.Stderr, "No collections in %s; run 'songcorpus crawl' first\n", a.meta.Path(document))
		return &scrape.Stats{}, nil
	}

	s := scrape.NewScraper(a.source, a.items, a.meta, a.cfg)
	if verbose {
		s.SetLogFunc(statusLine)
	} else {
		s.SetProgressFunc(progressLine("Scrape"))
	}

	fmt.Fprintf(os.Stderr, "Scraping %d songs from %d collections\n", collections.TotalItems(), collections.Len())
	stats, err := s.Run(ctx, collections)
	if !verbose {
		fmt.Fprintln(os.Stderr)
	}
	if stats != nil {
		fmt.Fprintf(os.Stderr, "Scrape: %d saved, %d already present, %d failed, %d new styles, %d new tags (%s)\n",
			stats.Scraped, stats.Existing, stats.Failed, stats.NewStyles, stats.NewTags, stats.Duration.Round(time.Millisecond))
	}
	return stats, err
}
