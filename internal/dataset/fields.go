package dataset

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ppiankov/songcorpus/internal/model"
)

// Known key spellings for each field, in order of preference
var (
	titleAliases    = []string{"title", "songtitle", "name"}
	lyricsAliases   = []string{"lyrics", "text", "songtext"}
	stylesAliases   = []string{"styles", "genre", "genres", "style"}
	metatagsAliases = []string{"metatags", "tags", "meta"}
	languageAliases = []string{"language", "lang", "sprache"}
)

// DocumentKeys returns the top-level keys of a JSON object document in document order
func DocumentKeys(data []byte) ([]string, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("expected a JSON object, got %s", root.Type)
	}

	var keys []string
	root.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys, nil
}

// SuggestFieldMap picks document keys for each field from the known aliases.
// Matching ignores case; the returned map uses the keys as they appear.
// Language detection is suggested when no language key is present.
func SuggestFieldMap(keys []string) (model.FieldMap, model.LanguageMode) {
	pick := func(aliases []string) string {
		for _, alias := range aliases {
			for _, k := range keys {
				if strings.EqualFold(k, alias) {
					return k
				}
			}
		}
		return ""
	}

	fields := model.FieldMap{
		TitleKey:    pick(titleAliases),
		LyricsKey:   pick(lyricsAliases),
		StylesKey:   pick(stylesAliases),
		MetatagsKey: pick(metatagsAliases),
		LanguageKey: pick(languageAliases),
	}

	mode := model.LanguageDetect
	if fields.LanguageKey != "" {
		mode = model.LanguageFromKey
	}
	return fields, mode
}

// field looks a key up by exact name; gjson paths would treat dots and
// wildcards in configured keys as syntax
func field(root gjson.Result, key string) gjson.Result {
	var found gjson.Result
	root.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found = v
			return false
		}
		return true
	})
	return found
}

// stringList reads an array of strings, or a single string, as a list
func stringList(v gjson.Result) []string {
	switch {
	case v.IsArray():
		var out []string
		v.ForEach(func(_, el gjson.Result) bool {
			if el.Type == gjson.String || el.Type == gjson.Number {
				out = append(out, el.String())
			}
			return true
		})
		return out
	case v.Type == gjson.String:
		return []string{v.String()}
	default:
		return nil
	}
}
