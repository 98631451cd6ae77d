package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// ErrIncompleteConfig is returned when required settings are missing
var ErrIncompleteConfig = errors.New("incomplete configuration")

// Config is the complete songcorpus configuration
type Config struct {
	Paths        PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Catalog      CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	HTTP         HTTPConfig      `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Robots       RobotsConfig    `yaml:"robots" mapstructure:"robots"`
	Dataset      DatasetConfig   `yaml:"dataset" mapstructure:"dataset"`
	Output       OutputConfig    `yaml:"output" mapstructure:"output"`
}

// PathsConfig locates the on-disk documents
type PathsConfig struct {
	ItemsDir string `yaml:"items_dir" mapstructure:"items_dir"` // one JSON document per song
	MetaDir  string `yaml:"meta_dir" mapstructure:"meta_dir"`   // collection map, registries, mappings

	CollectionsFile       string `yaml:"collections_file" mapstructure:"collections_file"`
	ManualCollectionsFile string `yaml:"manual_collections_file" mapstructure:"manual_collections_file"`
	StylesFile            string `yaml:"styles_file" mapstructure:"styles_file"`
	StylesMappingFile     string `yaml:"styles_mapping_file" mapstructure:"styles_mapping_file"`
	MetaTagsFile          string `yaml:"meta_tags_file" mapstructure:"meta_tags_file"`
	MetaTagsMappingFile   string `yaml:"meta_tags_mapping_file" mapstructure:"meta_tags_mapping_file"`
	LockFile              string `yaml:"lock_file" mapstructure:"lock_file"`
}

// LockPath returns the cross-process job lock location
func (p PathsConfig) LockPath() string {
	return filepath.Join(p.MetaDir, p.LockFile)
}

// CatalogConfig describes where and how to find collections and items
type CatalogConfig struct {
	RootURL           string `yaml:"root_url" mapstructure:"root_url"`
	CollectionPattern string `yaml:"collection_pattern" mapstructure:"collection_pattern"` // href substring of collection links
	ItemPattern       string `yaml:"item_pattern" mapstructure:"item_pattern"`             // href substring of item links, also the id marker
	CategoryPattern   string `yaml:"category_pattern" mapstructure:"category_pattern"`     // href substring of category anchors
	ContainerSelector string `yaml:"container_selector" mapstructure:"container_selector"` // CSS selector of the item content container
}

// HTTPConfig controls page fetching
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	SettleDelay  time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"` // pause after every navigation
}

// RateLimitConfig bounds request rate per domain
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// CacheConfig controls the fetched page cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RobotsConfig controls robots.txt compliance
type RobotsConfig struct {
	Respect bool `yaml:"respect" mapstructure:"respect"`
}

// OutputConfig controls console output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
	JSONLog bool `yaml:"json_log" mapstructure:"json_log"`
}

// LanguageMode selects how a training record gets its language
type LanguageMode string

const (
	LanguageFromKey LanguageMode = "key"    // read FieldMap.LanguageKey from the document
	LanguageDetect  LanguageMode = "detect" // run language detection over the lyrics
)

// UnknownLanguage is assigned when no language can be determined
const UnknownLanguage = "unknown"

// FieldMap names the document keys read by the dataset builder.
// Title, lyrics and styles keys are required. Without a metatags key the tags
// are taken from the lyrics. Records with no styles or no tags are skipped.
type FieldMap struct {
	TitleKey    string `yaml:"title_key" mapstructure:"title_key"`
	LyricsKey   string `yaml:"lyrics_key" mapstructure:"lyrics_key"`
	StylesKey   string `yaml:"styles_key" mapstructure:"styles_key"`
	MetatagsKey string `yaml:"metatags_key" mapstructure:"metatags_key"`
	LanguageKey string `yaml:"language_key" mapstructure:"language_key"`
}

// DatasetConfig controls corpus assembly
type DatasetConfig struct {
	SourceDir    string       `yaml:"source_dir" mapstructure:"source_dir"`
	CorpusFile   string       `yaml:"corpus_file" mapstructure:"corpus_file"`
	Fields       FieldMap     `yaml:"fields" mapstructure:"fields"`
	LanguageMode LanguageMode `yaml:"language_mode" mapstructure:"language_mode"`
}

// Validate checks the dataset settings before any document is read
func (d DatasetConfig) Validate() error {
	var missing []string
	if d.SourceDir == "" {
		missing = append(missing, "source_dir")
	}
	if d.CorpusFile == "" {
		missing = append(missing, "corpus_file")
	}
	if d.Fields.TitleKey == "" {
		missing = append(missing, "title_key")
	}
	if d.Fields.LyricsKey == "" {
		missing = append(missing, "lyrics_key")
	}
	if d.Fields.StylesKey == "" {
		missing = append(missing, "styles_key")
	}

	switch d.LanguageMode {
	case LanguageDetect:
	case LanguageFromKey:
		if d.Fields.LanguageKey == "" {
			missing = append(missing, "language_key")
		}
	default:
		return fmt.Errorf("%w: unknown language mode %q (want %q or %q)", ErrIncompleteConfig, d.LanguageMode, LanguageFromKey, LanguageDetect)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrIncompleteConfig, missing)
	}
	return nil
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			ItemsDir:              "songs",
			MetaDir:               "song_meta",
			CollectionsFile:       "auto_playlists_and_songs.json",
			ManualCollectionsFile: "manual_playlists_and_songs.json",
			StylesFile:            "all_styles.json",
			StylesMappingFile:     "song_styles_mapping.json",
			MetaTagsFile:          "all_meta_tags.json",
			MetaTagsMappingFile:   "song_meta_mapping.json",
			LockFile:              ".songcorpus.lock",
		},
		Catalog: CatalogConfig{
			RootURL:           "https://suno.com",
			CollectionPattern: "/playlist/",
			ItemPattern:       "/song/",
			CategoryPattern:   "/style/",
			ContainerSelector: "div.bg-vinylBlack-darker",
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "songcorpus/0.1 (+https://github.com/ppiankov/songcorpus)",
			MaxBodyBytes: 5_000_000,
			SettleDelay:  5 * time.Second,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 1,
			BurstSize:         1,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       filepath.Join("song_meta", "cache"),
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   time.Hour,
		},
		Robots: RobotsConfig{
			Respect: true,
		},
		Dataset: DatasetConfig{
			SourceDir:  "songs",
			CorpusFile: "trainingdata.json",
			Fields: FieldMap{
				TitleKey:  "title",
				LyricsKey: "lyrics",
				StylesKey: "styles",
			},
			LanguageMode: LanguageDetect,
		},
	}
}
