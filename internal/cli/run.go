package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var runBuild bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawl, then scrape (and optionally build) in one job",
	Long: `Run performs crawl followed by scrape under a single job lock.
With --build the training corpus is updated afterwards.

Example:
  songcorpus run --build`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyFetchFlags(cmd, cfg)
		if runBuild {
			if err := applyDatasetFlags(cmd, cfg); err != nil {
				return err
			}
		}
		a := newApp(cfg)

		return a.run("run", func(ctx context.Context) error {
			if _, err := a.crawl(ctx); err != nil {
				return err
			}
			if _, err := a.scrape(ctx, cfg.Paths.CollectionsFile); err != nil {
				return err
			}
			if !runBuild {
				return nil
			}
			return a.build(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addFetchFlags(runCmd)
	addDatasetFlags(runCmd)
	runCmd.Flags().BoolVar(&runBuild, "build", false, "build the training corpus after scraping")
}
