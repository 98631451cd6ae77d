package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/songcorpus/internal/dataset"
	"github.com/ppiankov/songcorpus/internal/model"
	"github.com/ppiankov/songcorpus/internal/store"
)

// keysCmd represents the keys command
var keysCmd = &cobra.Command{
	Use:   "keys [document]",
	Short: "Show the keys of a song document and the suggested field map",
	Long: `Keys lists the top-level keys of a song document and suggests a field
map for 'songcorpus build' from well-known key names. Without an argument the
first document of the source directory is used.

Example:
  songcorpus keys
  songcorpus keys songs/My_Song_abc123.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dir, name := cfg.Dataset.SourceDir, ""
		if len(args) == 1 {
			dir, name = filepath.Dir(args[0]), filepath.Base(args[0])
		}
		keys, doc, err := documentKeys(dir, name)
		if err != nil {
			return err
		}

		fields, mode := dataset.SuggestFieldMap(keys)
		fmt.Printf("Document: %s\n\nKeys:\n", doc)
		for _, k := range keys {
			fmt.Printf("  - %s\n", k)
		}

		out, err := yaml.Marshal(struct {
			Fields       model.FieldMap     `yaml:"fields"`
			LanguageMode model.LanguageMode `yaml:"language_mode"`
		}{fields, mode})
		if err != nil {
			return fmt.Errorf("error marshaling field map: %w", err)
		}
		fmt.Printf("\nSuggested dataset settings:\n%s", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}

// documentKeys reads the keys of name in dir, or of the first document when name is empty
func documentKeys(dir, name string) ([]string, string, error) {
	s := store.New(afero.NewOsFs(), dir)
	if name == "" {
		names, err := s.List(".json")
		if err != nil {
			return nil, "", err
		}
		if len(names) == 0 {
			return nil, "", fmt.Errorf("no song documents in %s", dir)
		}
		name = names[0]
	}

	data, found, err := s.LoadRaw(name)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, "", fmt.Errorf("document not found: %s", s.Path(name))
	}
	keys, err := dataset.DocumentKeys(data)
	if err != nil {
		return nil, "", fmt.Errorf("read keys of %s: %w", s.Path(name), err)
	}
	return keys, s.Path(name), nil
}

func suggestFromSource(dir string) (model.FieldMap, model.LanguageMode, error) {
	keys, _, err := documentKeys(dir, "")
	if err != nil {
		return model.FieldMap{}, "", err
	}
	fields, mode := dataset.SuggestFieldMap(keys)
	return fields, mode, nil
}
