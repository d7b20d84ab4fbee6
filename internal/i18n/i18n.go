// Package i18n resolves user-facing strings from an embedded, read-only
// dictionary. Lookups fall back to English and then to the key itself.
package i18n

import (
	"embed"
	"encoding/json"
	"path"
	"strings"

	"golang.org/x/text/language"
)

// Default is the fallback locale.
const Default = "en"

//go:embed locales/*.json
var files embed.FS

var (
	dict      map[string]map[string]string
	supported []language.Tag
	matcher   language.Matcher
)

func init() {
	dict = make(map[string]map[string]string)
	entries, err := files.ReadDir("locales")
	if err != nil {
		panic(err)
	}
	// Default goes first so the matcher prefers it when nothing matches.
	supported = []language.Tag{language.MustParse(Default)}
	for _, e := range entries {
		raw, err := files.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			panic(err)
		}
		m := map[string]string{}
		if err := json.Unmarshal(raw, &m); err != nil {
			panic("i18n: " + e.Name() + ": " + err.Error())
		}
		loc := strings.TrimSuffix(e.Name(), ".json")
		dict[loc] = m
		if loc != Default {
			supported = append(supported, language.MustParse(loc))
		}
	}
	matcher = language.NewMatcher(supported)
}

// T returns the text for key in locale.
func T(locale, key string) string {
	if m, ok := dict[base(locale)]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if s, ok := dict[Default][key]; ok {
		return s
	}
	return key
}

// Supported reports whether locale has its own dictionary.
func Supported(locale string) bool {
	_, ok := dict[base(locale)]
	return ok
}

// Locales lists the available dictionaries, default first.
func Locales() []string {
	out := make([]string, 0, len(supported))
	for _, t := range supported {
		out = append(out, t.String())
	}
	return out
}

// Match picks the best supported locale for an Accept-Language header.
func Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return supported[idx].String()
}

func base(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		locale = locale[:i]
	}
	return locale
}
