// Package dataset assembles item documents into the training corpus. The
// corpus is append-only, keyed by source filename, and rewritten after every
// record so an interrupted build resumes where it stopped.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/ppiankov/songcorpus/internal/logging"
	"github.com/ppiankov/songcorpus/internal/model"
	"github.com/ppiankov/songcorpus/internal/normalize"
	"github.com/ppiankov/songcorpus/internal/store"
)

// DefaultTitle is used when a document has no title value
const DefaultTitle = "No Title"

// SourceStore lists and reads item documents
type SourceStore interface {
	List(suffix string) ([]string, error)
	LoadRaw(name string) ([]byte, bool, error)
}

// CorpusStore reads and replaces the corpus document
type CorpusStore interface {
	Load(name string, v any) (bool, error)
	Save(name string, v any) error
}

// Builder converts item documents into training records
type Builder struct {
	source     SourceStore
	corpus     CorpusStore
	corpusName string
	cfg        model.DatasetConfig
	detector   Detector
	progress   model.ProgressFunc
	logf       model.LogFunc
	logger     zerolog.Logger
}

// NewBuilder creates a builder writing the corpus document corpusName to corpus
func NewBuilder(source SourceStore, corpus CorpusStore, corpusName string, cfg model.DatasetConfig, detector Detector) *Builder {
	if detector == nil {
		detector = WhatlangDetector{}
	}
	return &Builder{
		source:     source,
		corpus:     corpus,
		corpusName: corpusName,
		cfg:        cfg,
		detector:   detector,
		progress:   func(model.Progress) {},
		logf:       func(string) {},
		logger:     logging.Component("dataset"),
	}
}

// SetProgressFunc sets the receiver of per-document progress
func (b *Builder) SetProgressFunc(fn model.ProgressFunc) {
	if fn == nil {
		fn = func(model.Progress) {}
	}
	b.progress = fn
}

// SetLogFunc sets the receiver of status lines
func (b *Builder) SetLogFunc(fn model.LogFunc) {
	if fn == nil {
		fn = func(string) {}
	}
	b.logf = fn
}

// corpus keeps existing entries verbatim and indexes them by filename
type corpus struct {
	entries   []json.RawMessage
	filenames map[string]struct{}
}

func (c *corpus) has(filename string) bool {
	_, ok := c.filenames[filename]
	return ok
}

func (c *corpus) add(rec model.TrainingRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.Filename, err)
	}
	c.entries = append(c.entries, raw)
	c.filenames[rec.Filename] = struct{}{}
	return nil
}

func (b *Builder) loadCorpus() (*corpus, error) {
	c := &corpus{entries: []json.RawMessage{}, filenames: make(map[string]struct{})}

	found, err := b.corpus.Load(b.corpusName, &c.entries)
	switch {
	case err != nil && store.IsParseError(err):
		// the malformed document stays on disk until the first record replaces it
		b.logger.Warn().Err(err).Str("document", b.corpusName).Msg("Malformed corpus, starting empty")
		b.logf(fmt.Sprintf("Could not load %s, starting with an empty corpus", b.corpusName))
		c.entries = []json.RawMessage{}
	case err != nil:
		return nil, fmt.Errorf("load corpus: %w", err)
	case !found || c.entries == nil:
		c.entries = []json.RawMessage{}
		if err := b.corpus.Save(b.corpusName, c.entries); err != nil {
			return nil, fmt.Errorf("initialize corpus: %w", err)
		}
	}

	for _, entry := range c.entries {
		if name := gjson.GetBytes(entry, "filename"); name.Exists() {
			c.filenames[name.String()] = struct{}{}
		}
	}
	return c, nil
}

// Build appends a record for every document not yet in the corpus and returns
// the number of records added and the number of documents seen.
// The configuration is validated before anything is read.
func (b *Builder) Build(ctx context.Context) (int, int, error) {
	if err := b.cfg.Validate(); err != nil {
		return 0, 0, err
	}

	names, err := b.source.List(".json")
	if err != nil {
		return 0, 0, fmt.Errorf("list songs: %w", err)
	}
	total := len(names)
	if total == 0 {
		b.logf("No songs found in the source directory")
		return 0, 0, nil
	}

	c, err := b.loadCorpus()
	if err != nil {
		return 0, total, err
	}

	var p model.Progress
	p.Total = total
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return p.Processed, total, fmt.Errorf("build stopped: %w", err)
		}
		b.logf(fmt.Sprintf("Processing song: %s", name))

		if c.has(name) {
			p.SkippedExisting++
			b.logf("Song already in corpus, skipping")
			b.progress(p)
			continue
		}

		rec, reason, err := b.record(name)
		if err != nil {
			return p.Processed, total, err
		}
		if rec == nil {
			p.SkippedOther++
			b.logf(fmt.Sprintf("Song skipped: %s", reason))
			b.progress(p)
			continue
		}

		if err := c.add(*rec); err != nil {
			return p.Processed, total, err
		}
		if err := b.corpus.Save(b.corpusName, c.entries); err != nil {
			return p.Processed, total, fmt.Errorf("save corpus: %w", err)
		}
		p.Processed++
		b.progress(p)
	}

	return p.Processed, total, nil
}

// record reads one document. A nil record with a reason means the document is
// skipped; an error means the source could not be read at all.
func (b *Builder) record(name string) (*model.TrainingRecord, string, error) {
	data, found, err := b.source.LoadRaw(name)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", name, err)
	}
	if !found {
		return nil, "document disappeared", nil
	}
	if !gjson.ValidBytes(data) {
		b.logger.Warn().Str("document", name).Msg("Malformed song document")
		return nil, "malformed JSON", nil
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, "not a JSON object", nil
	}

	f := b.cfg.Fields
	rec := &model.TrainingRecord{
		Title:    strings.TrimSpace(field(root, f.TitleKey).String()),
		Lyrics:   strings.TrimSpace(field(root, f.LyricsKey).String()),
		Filename: name,
	}
	if rec.Title == "" {
		rec.Title = DefaultTitle
	}
	if rec.Lyrics == "" {
		return nil, "no lyrics", nil
	}

	rec.Styles = normalize.Dedupe(stringList(field(root, f.StylesKey)))
	if len(rec.Styles) == 0 {
		return nil, "no styles", nil
	}

	if f.MetatagsKey != "" {
		rec.Metatags = normalize.Dedupe(stringList(field(root, f.MetatagsKey)))
		if len(rec.Metatags) == 0 {
			return nil, "no metatags", nil
		}
	} else {
		rec.Metatags = normalize.Dedupe(normalize.ExtractEmbeddedTags(rec.Lyrics))
		if len(rec.Metatags) == 0 {
			return nil, "no metatags in lyrics", nil
		}
	}

	rec.Language = b.language(root, rec.Lyrics)
	return rec, "", nil
}

func (b *Builder) language(root gjson.Result, lyrics string) string {
	if b.cfg.LanguageMode == model.LanguageFromKey {
		if lang := strings.TrimSpace(field(root, b.cfg.Fields.LanguageKey).String()); lang != "" {
			return lang
		}
		return model.UnknownLanguage
	}

	lang, err := b.detector.Detect(lyrics)
	if err != nil || lang == "" {
		b.logger.Debug().Err(err).Msg("Language detection failed")
		return model.UnknownLanguage
	}
	return lang
}
