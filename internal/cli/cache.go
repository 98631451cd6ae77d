package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ppiankov/songcorpus/internal/cache"
	"github.com/ppiankov/songcorpus/internal/fetch"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fetched page cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [url...]",
	Short: "Remove cached pages",
	Long: `Remove cached pages so the next crawl or scrape fetches them again.
Without arguments the whole cache is cleared.

Example:
  songcorpus cache clear
  songcorpus cache clear https://suno.com/playlist/abc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Cache.Enabled {
			fmt.Println("Page cache is disabled")
			return nil
		}

		n, err := clearPages(fetch.NewPageCache(cfg, afero.NewOsFs()), args)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			fmt.Printf("✓ Cleared page cache: %s\n", cfg.Cache.Dir)
			return nil
		}
		fmt.Printf("✓ Removed %d cached pages\n", n)
		return nil
	},
}

// clearPages drops the entries for urls, or everything when urls is empty
func clearPages(c cache.Cache, urls []string) (int, error) {
	if len(urls) == 0 {
		if err := c.Clear(); err != nil {
			return 0, fmt.Errorf("clear cache: %w", err)
		}
		return 0, nil
	}

	for i, u := range urls {
		if err := c.Delete(cache.PageKey(u)); err != nil {
			return i, fmt.Errorf("remove %s: %w", u, err)
		}
	}
	return len(urls), nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
