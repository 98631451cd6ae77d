package dataset

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// ErrUndetectable is returned when no language can be recognized in a text
var ErrUndetectable = errors.New("language not detectable")

// Detector identifies the language of a text
type Detector interface {
	Detect(text string) (string, error)
}

// DetectorFunc adapts a function to Detector
type DetectorFunc func(text string) (string, error)

// Detect calls f(text)
func (f DetectorFunc) Detect(text string) (string, error) {
	return f(text)
}

// WhatlangDetector detects languages with whatlanggo and reports ISO 639-1
// codes, falling back to ISO 639-3 for languages without a two-letter code.
type WhatlangDetector struct {
	// MinConfidence rejects detections below this confidence (0 accepts all)
	MinConfidence float64
}

// Detect returns the language code of text
func (d WhatlangDetector) Detect(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrUndetectable
	}

	info := whatlanggo.Detect(text)
	if info.Script == nil || info.Confidence < d.MinConfidence {
		return "", ErrUndetectable
	}

	code := info.Lang.Iso6391()
	if code == "" {
		code = info.Lang.Iso6393()
	}
	if code == "" {
		return "", ErrUndetectable
	}
	return code, nil
}
