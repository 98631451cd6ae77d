// Package normalize derives identifiers and cleans free text scraped from the catalog.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// UnknownID is returned when an item id cannot be derived from a URL
const UnknownID = "unknown-id"

// DefaultItemMarker precedes the item id in item URLs
const DefaultItemMarker = "/song/"

var (
	reDisallowed  = regexp.MustCompile(`[^A-Za-z0-9 _\-.]`)
	reWhitespace  = regexp.MustCompile(`\s+`)
	reBracketTags = regexp.MustCompile(`\[(.*?)\]`)
)

// DeriveItemID extracts the item id from an item URL using the default marker
func DeriveItemID(url string) string {
	return ItemIDFromURL(url, DefaultItemMarker)
}

// ItemIDFromURL returns the path segment following marker, or UnknownID.
// The segment ends at the next '/', '?' or '#'.
func ItemIDFromURL(url, marker string) string {
	if marker == "" {
		return UnknownID
	}
	idx := strings.Index(url, marker)
	if idx < 0 {
		return UnknownID
	}
	rest := url[idx+len(marker):]
	if end := strings.IndexAny(rest, "/?#"); end >= 0 {
		rest = rest[:end]
	}
	if rest == "" {
		return UnknownID
	}
	return rest
}

// ExtractEmbeddedTags returns the interiors of all [bracketed] markers in order.
// Duplicates are kept.
func ExtractEmbeddedTags(text string) []string {
	matches := reBracketTags.FindAllStringSubmatch(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}

// SanitizeFilename keeps letters, digits, space, underscore, hyphen and dot,
// collapses whitespace runs and trims the result.
func SanitizeFilename(raw string) string {
	s := reDisallowed.ReplaceAllString(raw, "")
	s = reWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ItemFilename builds the document name for an item
func ItemFilename(title, itemID string) string {
	return SanitizeFilename(title+"_"+itemID) + ".json"
}

// ItemIDFromFilename recovers the item id from a document name built by ItemFilename
func ItemIDFromFilename(name string) string {
	name = strings.TrimSuffix(name, ".json")
	if idx := strings.LastIndex(name, "_"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// CleanCategory trims a category label and removes commas and spaces
func CleanCategory(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	return strings.ReplaceAll(s, " ", "")
}

// PlaceholderTitle names an item whose page had no title
func PlaceholderTitle(itemID string, at time.Time) string {
	return fmt.Sprintf("untitled-%s-%d", itemID, at.Unix())
}

// Dedupe returns values without duplicates or blanks, keeping first occurrences
func Dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
