package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// LocalesFromHeader returns the locales named by an Accept-Language style
// header, most preferred first, as normalised bundle keys ("en-US" becomes
// "en_us"). Entries with q=0 are dropped and duplicates are removed.
//
// A missing, empty or unparseable header yields []string{"*"}; the function
// never fails.
//
//	LocalesFromHeader("nl-BE,nl;q=0.9,en;q=0.8") // ["nl_be", "nl", "en"]
//	LocalesFromHeader("")                        // ["*"]
func LocalesFromHeader(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return []string{Wildcard}
	}

	// ParseAcceptLanguage sorts by weight (stable) and drops q=0 entries.
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return []string{Wildcard}
	}

	seen := make(map[string]bool, len(tags))
	locales := make([]string, 0, len(tags))
	for _, tag := range tags {
		locale := tagKey(tag)
		if seen[locale] {
			continue
		}
		seen[locale] = true
		locales = append(locales, locale)
	}
	return locales
}

// LocalesFromValue is LocalesFromHeader for loosely typed input such as a
// decoded JSON field. Only strings (and non-nil string pointers) are parsed;
// anything else yields []string{"*"}.
func LocalesFromValue(v any) []string {
	switch val := v.(type) {
	case string:
		return LocalesFromHeader(val)
	case *string:
		if val != nil {
			return LocalesFromHeader(*val)
		}
	case []string:
		return LocalesFromHeader(strings.Join(val, ","))
	}
	return []string{Wildcard}
}

// tagKey converts a parsed tag to a bundle key. The "*" range is parsed
// by x/text as the "mul" language.
func tagKey(tag language.Tag) string {
	if tag.String() == "mul" {
		return Wildcard
	}
	return localeKey(tag)
}
