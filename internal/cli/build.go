package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/songcorpus/internal/dataset"
	"github.com/ppiankov/songcorpus/internal/model"
)

var (
	sourceDir    string
	corpusFile   string
	titleKey     string
	lyricsKey    string
	stylesKey    string
	metatagsKey  string
	languageKey  string
	languageMode string
	autoKeys     bool
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Append song documents to the training corpus",
	Long: `Build reads every song document, keeps those with the required fields,
normalizes them and appends them to the training corpus. Documents already in
the corpus (by filename) are skipped, and the corpus is saved after every
record so an interrupted build resumes where it stopped.

Keys are read from the configured field map. With --auto-keys the field map
is guessed from the first song document (see 'songcorpus keys').

Example:
  songcorpus build
  songcorpus build --metatags-key tags --language-mode key --language-key lang
  songcorpus build --auto-keys --corpus out/trainingdata.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyDatasetFlags(cmd, cfg); err != nil {
			return err
		}
		a := newApp(cfg)
		return a.run("build", a.build)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addDatasetFlags(buildCmd)
}

func addDatasetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sourceDir, "source", "", "directory of song documents")
	cmd.Flags().StringVar(&corpusFile, "corpus", "", "training corpus file")
	cmd.Flags().StringVar(&titleKey, "title-key", "", "document key holding the title")
	cmd.Flags().StringVar(&lyricsKey, "lyrics-key", "", "document key holding the lyrics")
	cmd.Flags().StringVar(&stylesKey, "styles-key", "", "document key holding the styles (empty: not required)")
	cmd.Flags().StringVar(&metatagsKey, "metatags-key", "", "document key holding meta tags (empty: derive from [tags] in lyrics)")
	cmd.Flags().StringVar(&languageKey, "language-key", "", "document key holding the language")
	cmd.Flags().StringVar(&languageMode, "language-mode", "", "language source: key or detect")
	cmd.Flags().BoolVar(&autoKeys, "auto-keys", false, "guess the field map from the first song document")
}

func applyDatasetFlags(cmd *cobra.Command, cfg *model.Config) error {
	flags := cmd.Flags()
	d := &cfg.Dataset
	if flags.Changed("source") {
		d.SourceDir = sourceDir
	}
	if flags.Changed("corpus") {
		d.CorpusFile = corpusFile
	}

	if autoKeys {
		fields, mode, err := suggestFromSource(d.SourceDir)
		if err != nil {
			return err
		}
		d.Fields, d.LanguageMode = fields, mode
	}

	set := map[string]*string{
		"title-key":    &d.Fields.TitleKey,
		"lyrics-key":   &d.Fields.LyricsKey,
		"styles-key":   &d.Fields.StylesKey,
		"metatags-key": &d.Fields.MetatagsKey,
		"language-key": &d.Fields.LanguageKey,
	}
	values := map[string]string{
		"title-key":    titleKey,
		"lyrics-key":   lyricsKey,
		"styles-key":   stylesKey,
		"metatags-key": metatagsKey,
		"language-key": languageKey,
	}
	for name, dst := range set {
		if flags.Changed(name) {
			*dst = values[name]
		}
	}
	if flags.Changed("language-mode") {
		d.LanguageMode = model.LanguageMode(languageMode)
	}
	return d.Validate()
}

func (a *app) build(ctx context.Context) error {
	corpus, name := a.corpusStore()
	b := dataset.NewBuilder(a.sourceStore(), corpus, name, a.cfg.Dataset, dataset.WhatlangDetector{})
	if verbose {
		b.SetLogFunc(statusLine)
	} else {
		b.SetProgressFunc(progressLine("Build"))
	}

	processed, total, err := b.Build(ctx)
	if !verbose && total > 0 {
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintf(os.Stderr, "Build: %d of %d songs added to %s\n", processed, total, a.cfg.Dataset.CorpusFile)
	return err
}
