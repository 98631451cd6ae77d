package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/songcorpus/internal/logging"
	"github.com/ppiankov/songcorpus/internal/model"
)

// Version is set at build time
var Version = "dev"

var (
	cfgFile string
	verbose bool
	jsonLog bool
	dataDir string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "songcorpus",
	Short: "Songcorpus - song catalog scraper and training corpus builder",
	Long: `Songcorpus collects song metadata and lyrics from a web catalog and
assembles them into a deduplicated training corpus.

The pipeline has three resumable stages:
  crawl   discover collections and the song URLs they contain
  scrape  fetch every new song page and store it once
  build   append normalized records to the training corpus

Every stage can be interrupted (Ctrl-C) and rerun; finished work is skipped.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(os.Stderr, verbose, jsonLog)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("songcorpus %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.songcorpus/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "write logs as JSON lines")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "base directory for songs, metadata and corpus (default: current directory)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("output.json_log", rootCmd.PersistentFlags().Lookup("json-log"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".songcorpus"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// SONGCORPUS_HTTP_SETTLE_DELAY=2s overrides http.settle_delay
	viper.SetEnvPrefix("SONGCORPUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range configKeys() {
		// AutomaticEnv only answers keys viper already knows about
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over the defaults and
// resolves relative paths against --data-dir
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Output.Verbose = verbose || cfg.Output.Verbose
	cfg.Output.JSONLog = jsonLog || cfg.Output.JSONLog

	if dataDir != "" {
		cfg.Paths.ItemsDir = underDir(dataDir, cfg.Paths.ItemsDir)
		cfg.Paths.MetaDir = underDir(dataDir, cfg.Paths.MetaDir)
		cfg.Cache.Dir = underDir(dataDir, cfg.Cache.Dir)
		cfg.Dataset.SourceDir = underDir(dataDir, cfg.Dataset.SourceDir)
		cfg.Dataset.CorpusFile = underDir(dataDir, cfg.Dataset.CorpusFile)
	}
	return cfg, nil
}

func underDir(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// configKeys lists the dotted keys of every leaf setting
func configKeys() []string {
	return []string{
		"paths.items_dir", "paths.meta_dir", "paths.collections_file", "paths.manual_collections_file",
		"paths.styles_file", "paths.styles_mapping_file", "paths.meta_tags_file", "paths.meta_tags_mapping_file",
		"paths.lock_file",
		"catalog.root_url", "catalog.collection_pattern", "catalog.item_pattern", "catalog.category_pattern",
		"catalog.container_selector",
		"http.timeout", "http.user_agent", "http.max_body_bytes", "http.insecure_tls",
		"http.http_proxy", "http.https_proxy", "http.no_proxy", "http.settle_delay",
		"rate_limiting.requests_per_second", "rate_limiting.burst_size",
		"cache.enabled", "cache.dir", "cache.memory_ttl", "cache.disk_ttl",
		"robots.respect",
		"dataset.source_dir", "dataset.corpus_file", "dataset.language_mode",
		"dataset.fields.title_key", "dataset.fields.lyrics_key", "dataset.fields.styles_key",
		"dataset.fields.metatags_key", "dataset.fields.language_key",
	}
}
