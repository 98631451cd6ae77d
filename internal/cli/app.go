package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ppiankov/songcorpus/internal/fetch"
	"github.com/ppiankov/songcorpus/internal/model"
	"github.com/ppiankov/songcorpus/internal/store"
	"github.com/ppiankov/songcorpus/internal/worker"
)

// fetch flag values, applied only when set
var (
	rootURL      string
	settleDelay  time.Duration
	requestRate  float64
	httpTimeout  time.Duration
	userAgent    string
	noCache      bool
	ignoreRobots bool
	insecureTLS  bool
)

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rootURL, "root-url", "", "catalog root page (default from config)")
	cmd.Flags().DurationVar(&settleDelay, "settle", 0, "pause after every page fetch")
	cmd.Flags().Float64Var(&requestRate, "rps", 0, "max requests per second per host")
	cmd.Flags().DurationVar(&httpTimeout, "timeout", 0, "per-request HTTP timeout")
	cmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the page cache (force fresh fetch)")
	cmd.Flags().BoolVar(&ignoreRobots, "ignore-robots", false, "do not consult robots.txt")
	cmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification")
}

func applyFetchFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("root-url") {
		cfg.Catalog.RootURL = rootURL
	}
	if flags.Changed("settle") {
		cfg.HTTP.SettleDelay = settleDelay
	}
	if flags.Changed("rps") {
		cfg.RateLimiting.RequestsPerSecond = requestRate
	}
	if flags.Changed("timeout") {
		cfg.HTTP.Timeout = httpTimeout
	}
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if ignoreRobots {
		cfg.Robots.Respect = false
	}
	if insecureTLS {
		cfg.HTTP.InsecureTLS = true
	}
}

// app holds the wired components shared by the pipeline commands
type app struct {
	cfg    *model.Config
	fs     afero.Fs
	items  *store.JSONStore
	meta   *store.JSONStore
	source fetch.PageSource
	runner *worker.Runner
}

func newApp(cfg *model.Config) *app {
	fs := afero.NewOsFs()
	return &app{
		cfg:    cfg,
		fs:     fs,
		items:  store.New(fs, cfg.Paths.ItemsDir),
		meta:   store.New(fs, cfg.Paths.MetaDir),
		source: fetch.NewSource(cfg, fs),
		runner: worker.NewRunner(cfg.Paths.LockPath()),
	}
}

// sourceStore returns the store of song documents read by the dataset builder
func (a *app) sourceStore() *store.JSONStore {
	return store.New(a.fs, a.cfg.Dataset.SourceDir)
}

// corpusStore returns the store holding the corpus document and its name
func (a *app) corpusStore() (*store.JSONStore, string) {
	path := a.cfg.Dataset.CorpusFile
	return store.New(a.fs, filepath.Dir(path)), filepath.Base(path)
}

// run executes job on the runner; Ctrl-C or SIGTERM stops it at the next checkpoint
func (a *app) run(name string, job worker.Job) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	if err := a.runner.Start(context.Background(), name, job); err != nil {
		return err
	}

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-signals:
			fmt.Fprintf(os.Stderr, "\nStopping %s after the current step...\n", name)
			a.runner.Stop()
		case <-finished:
		}
	}()

	err := a.runner.Wait()
	if errors.Is(err, context.Canceled) {
		log.Info().Str("job", name).Msg("Stopped")
		return nil
	}
	return err
}

// statusLine prints human status lines to stderr
func statusLine(message string) {
	fmt.Fprintln(os.Stderr, message)
}

// progressLine renders progress on a single stderr line
func progressLine(label string) model.ProgressFunc {
	return func(p model.Progress) {
		pct := 0.0
		if p.Total > 0 {
			pct = float64(p.Processed+p.SkippedExisting+p.SkippedOther) / float64(p.Total) * 100
		}
		fmt.Fprintf(os.Stderr, "\r%s: %5.1f%% (%d done, %d existing, %d skipped, %d total)",
			label, pct, p.Processed, p.SkippedExisting, p.SkippedOther, p.Total)
	}
}
