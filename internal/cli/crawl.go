package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/songcorpus/internal/crawl"
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Discover collections and their song URLs",
	Long: `Crawl fetches the catalog root page, collects every collection link,
then visits each collection and records the song URLs it lists.

The collection map is merged, never replaced: URLs found earlier are kept
and the map is saved after every collection.

Example:
  songcorpus crawl
  songcorpus crawl --root-url https://suno.com --settle 2s`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	addFetchFlags(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFetchFlags(cmd, cfg)
	a := newApp(cfg)

	return a.run("crawl", func(ctx context.Context) error {
		_, err := a.crawl(ctx)
		return err
	})
}

func (a *app) crawl(ctx context.Context) (*crawl.Stats, error) {
	c := crawl.NewCrawler(a.source, a.meta, a.cfg.Catalog, a.cfg.Paths.CollectionsFile)
	c.SetLogFunc(statusLine)

	fmt.Fprintf(os.Stderr, "Crawling %s\n", a.cfg.Catalog.RootURL)
	stats, err := c.Run(ctx)
	if stats != nil {
		fmt.Fprintf(os.Stderr, "Crawl: %d/%d collections, %d failed, %d new songs, %d songs known (%s)\n",
			stats.Crawled, stats.Collections, stats.Failed, stats.NewItems, stats.TotalItems, stats.Duration.Round(time.Millisecond))
	}
	return stats, err
}
