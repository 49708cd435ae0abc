// Package i18n loads locale message bundles and derives the messages for a
// single request locale.
//
// Features:
//   - Message bundles merged from any number of ordered sources
//     (directories, embedded file systems, S3, GCS, Azure Blob)
//   - JSON, YAML and TOML message files with nested keys
//   - Locale detection from the Accept-Language header, cookies and query parameters
//   - Layered fallback: default locale, then language, then exact locale
//   - %placeholder substitution
//   - Live reloading of message bundles (development mode)
//   - Concurrency-safe for use in HTTP handlers
//
// Example:
//
//	bundle := i18n.LoadMessageBundles(ctx, i18n.Dirs("./messages", "./overrides"), "en_us")
//	messages := i18n.DeriveFromHeader(r.Header.Get("Accept-Language"), bundle, "en_us")
//
//	// Or let a Manager own the bundle
//	manager := i18n.NewManager(ctx, i18n.Dirs("./messages"))
//
//	func GreetingHandler(w http.ResponseWriter, r *http.Request) {
//	    translator := manager.Translator(r)
//	    greeting := translator.T("welcome", map[string]any{"user": "Alex"})
//	}
//
// Message files (e.g., messages/nl_be.json):
//
//	{
//	    "welcome": "Welkom, %user!",
//	    "cart": {"empty": "Je winkelwagen is leeg."}
//	}
//
// A file whose name carries no locale (messages.json) is stored under the
// default locale.
package i18n

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// DefaultLocale is used when no default locale is configured.
	DefaultLocale = "en_us"

	// Wildcard is returned by LocalesFromHeader when the header names no locale.
	Wildcard = "*"
)

// MessageMap maps message keys to values. Every value is either a string or
// a nested MessageMap.
type MessageMap map[string]any

// MessageBundle maps lower-case locale keys ("en", "en_us") to their messages.
type MessageBundle map[string]MessageMap

// Get looks up a message by key. A key containing dots is first tried as
// a literal key and then as a path into nested maps.
func (m MessageMap) Get(key string) (string, bool) {
	if v, ok := m[key]; ok {
		s, isString := v.(string)
		return s, isString
	}

	head, rest, found := strings.Cut(key, ".")
	if !found {
		return "", false
	}
	child, ok := m[head].(MessageMap)
	if !ok {
		return "", false
	}
	return child.Get(rest)
}

// Clone returns a deep copy of m.
func (m MessageMap) Clone() MessageMap {
	out := make(MessageMap, len(m))
	for k, v := range m {
		if nested, ok := v.(MessageMap); ok {
			out[k] = nested.Clone()
			continue
		}
		out[k] = v
	}
	return out
}

// Merge deep-merges src into m. Nested maps are merged key by key;
// any other value in src replaces the value in m.
// src is never aliased by m afterwards.
func (m MessageMap) Merge(src MessageMap) {
	for k, v := range src {
		nested, ok := v.(MessageMap)
		if !ok {
			m[k] = v
			continue
		}
		if existing, ok := m[k].(MessageMap); ok {
			existing.Merge(nested)
			continue
		}
		m[k] = nested.Clone()
	}
}

// Flatten returns the messages keyed by their dotted path.
func (m MessageMap) Flatten() map[string]string {
	out := make(map[string]string)
	m.flattenInto("", out)
	return out
}

func (m MessageMap) flattenInto(prefix string, out map[string]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case MessageMap:
			val.flattenInto(key, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Keys returns the sorted dotted keys of m.
func (m MessageMap) Keys() []string {
	flat := m.Flatten()
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Locales returns the sorted locale keys of the bundle.
func (b MessageBundle) Locales() []string {
	locales := make([]string, 0, len(b))
	for locale := range b {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	return locales
}

// merge deep-merges messages into the bundle under locale.
func (b MessageBundle) merge(locale string, messages MessageMap) {
	existing, ok := b[locale]
	if !ok {
		existing = make(MessageMap, len(messages))
		b[locale] = existing
	}
	existing.Merge(messages)
}
