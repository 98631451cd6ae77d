package model

// Item is one scraped song as persisted in the items directory
type Item struct {
	ID     string   `json:"song_id"`
	URL    string   `json:"song_url"`
	Title  *string  `json:"title"`  // nil when the page had no title field
	Styles []string `json:"styles"` // category labels, never empty after extraction
	Lyrics string   `json:"lyrics"`
}

// TitleOr returns the title or the fallback when the title is missing or blank
func (i *Item) TitleOr(fallback string) string {
	if i.Title == nil || *i.Title == "" {
		return fallback
	}
	return *i.Title
}

// TrainingRecord is one normalized entry in the training corpus
type TrainingRecord struct {
	Title    string   `json:"title"`
	Lyrics   string   `json:"lyrics"`
	Styles   []string `json:"styles"`
	Metatags []string `json:"metatags"`
	Language string   `json:"language"`
	Filename string   `json:"filename"` // source document name, unique within the corpus
}

// Progress carries running counts for a batch operation
type Progress struct {
	Processed       int `json:"processed"`
	Total           int `json:"total"`
	SkippedExisting int `json:"skipped_existing"`
	SkippedOther    int `json:"skipped_other"`
}

// ProgressFunc receives progress updates; it must not block
type ProgressFunc func(Progress)

// LogFunc receives human-readable status lines
type LogFunc func(message string)
