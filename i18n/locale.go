package i18n

import (
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// localePattern matches "language" and "language_region" tokens after
// lower-casing. Hyphens are accepted as the separator and normalised.
var localePattern = regexp.MustCompile(`^([a-z]{2,3})(?:[_-]([a-z]{2,3}))?$`)

// suffixPattern matches a locale in the last segment of a file name: a
// two-letter language with an optional region.
var suffixPattern = regexp.MustCompile(`^[a-z]{2}(?:[_-][a-z]{2})?$`)

// NormalizeLocale returns the canonical bundle key for a locale string:
// lower case with an underscore separator ("en-US" becomes "en_us").
// Languages are canonicalised the way Accept-Language headers are, so
// "iw" becomes "he" and "eng" becomes "en".
// It reports false when s is not a known language optionally followed by
// a known region.
func NormalizeLocale(s string) (string, bool) {
	parts := localePattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if parts == nil {
		return "", false
	}

	if _, err := language.ParseBase(parts[1]); err != nil {
		return "", false
	}
	id := parts[1]
	if parts[2] != "" {
		if _, err := language.ParseRegion(parts[2]); err != nil {
			return "", false
		}
		id += "-" + parts[2]
	}

	tag, err := language.Parse(id)
	if err != nil {
		return "", false
	}
	return localeKey(tag), true
}

// localeKey converts a tag to a bundle key: the canonical language,
// followed by the region when the tag names one explicitly. Scripts and
// variants are dropped.
func localeKey(tag language.Tag) string {
	base, _ := tag.Base()
	key := base.String()
	if region, conf := tag.Region(); conf == language.Exact {
		key += "_" + strings.ToLower(region.String())
	}
	return key
}

// LanguageFromLocale returns the lower-case language part of a locale.
//
//	LanguageFromLocale("EN_US")  // "en", true
//	LanguageFromLocale("nl")     // "nl", true
//	LanguageFromLocale("Narnia") // "", false
//	LanguageFromLocale("")       // "", false
func LanguageFromLocale(locale string) (string, bool) {
	normalized, ok := NormalizeLocale(locale)
	if !ok {
		return "", false
	}
	lang, _, _ := strings.Cut(normalized, "_")
	return lang, true
}

// normalizeKey returns the bundle key for a locale. Valid locales are
// normalised; anything else, such as a custom default locale named
// "my-default", is only lower-cased.
func normalizeKey(locale string) string {
	if key, ok := NormalizeLocale(locale); ok {
		return key
	}
	return strings.ToLower(strings.TrimSpace(locale))
}

// localeFromFilename derives the locale of a message file from its name.
// The whole stem is tried first ("nl_be.json"), then the segment after the
// last '-' or '.' ("messages-nl_be.json", "messages.nl.yaml"), which must
// be a two-letter language with an optional region.
func localeFromFilename(name string) (string, bool) {
	stem := strings.TrimSuffix(name, path.Ext(name))
	if locale, ok := NormalizeLocale(stem); ok {
		return locale, true
	}

	if i := strings.LastIndexAny(stem, "-."); i >= 0 {
		suffix := strings.ToLower(stem[i+1:])
		if !suffixPattern.MatchString(suffix) {
			return "", false
		}
		return NormalizeLocale(suffix)
	}
	return "", false
}
