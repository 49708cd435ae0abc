package i18n

import (
	"context"
)

// Resolution describes how a MessageMap was derived.
type Resolution struct {
	// Requested is the locale or header the caller asked for.
	Requested string `json:"requested"`
	// Locale is the most specific bundle key applied, or the default locale.
	Locale string `json:"locale"`
	// Layers lists the bundle keys merged, lowest precedence first.
	Layers []string `json:"layers"`
	// Fallback is true when nothing beyond the default locale applied.
	Fallback bool `json:"fallback"`
}

// Derive returns the messages for locale: the default locale's messages,
// overlaid with the locale's language ("nl"), overlaid with the exact
// locale ("nl_be"). Missing layers are skipped. An empty locale yields the
// default layer only; an empty defaultLocale means DefaultLocale.
//
// The result is a new map; the bundle is never modified.
//
//	bundle := i18n.MessageBundle{
//	    "en_us": {"a": "A1"},
//	    "en":    {"a": "A2", "b": "B"},
//	}
//	i18n.Derive("en_us", bundle, "en_us") // {a: A1, b: B}
//	i18n.Derive("en_gb", bundle, "en_us") // {a: A2, b: B}
func Derive(locale string, bundle MessageBundle, defaultLocale string) MessageMap {
	messages, _ := derive(locale, bundle, defaultLocale)
	return messages
}

// DeriveFromHeader derives the messages for the first locale in an
// Accept-Language style header that the bundle has an exact or language
// entry for. Without a match the default locale's messages are returned.
func DeriveFromHeader(header string, bundle MessageBundle, defaultLocale string) MessageMap {
	messages, _ := Resolve(context.Background(), header, bundle, defaultLocale)
	return messages
}

// Resolve is DeriveFromHeader that also reports which layers were applied.
// The resolution is reported to the registered observer.
func Resolve(ctx context.Context, header string, bundle MessageBundle, defaultLocale string) (MessageMap, Resolution) {
	locale := matchLocale(LocalesFromHeader(header), bundle)

	messages, res := derive(locale, bundle, defaultLocale)
	res.Requested = header

	if obs := getObserver(); obs != nil {
		obs.OnLocaleResolution(ctx, header, res.Locale, res.Fallback)
	}
	return messages, res
}

// matchLocale returns the first candidate the bundle can serve beyond the
// default layer, or "" when none can.
func matchLocale(candidates []string, bundle MessageBundle) string {
	for _, candidate := range candidates {
		if candidate == Wildcard {
			continue
		}
		key := normalizeKey(candidate)
		if _, ok := bundle[key]; ok {
			return key
		}
		if lang, ok := LanguageFromLocale(key); ok {
			if _, ok := bundle[lang]; ok {
				return key
			}
		}
	}
	return ""
}

func derive(locale string, bundle MessageBundle, defaultLocale string) (MessageMap, Resolution) {
	if defaultLocale == "" {
		defaultLocale = DefaultLocale
	}
	defaultLocale = normalizeKey(defaultLocale)

	res := Resolution{Requested: locale, Locale: defaultLocale, Fallback: true}

	messages := make(MessageMap)
	if base, ok := bundle[defaultLocale]; ok {
		messages.Merge(base)
		res.Layers = append(res.Layers, defaultLocale)
	}

	if locale == "" {
		return messages, res
	}

	key := normalizeKey(locale)
	lang, hasLang := LanguageFromLocale(key)
	if hasLang {
		if layer, ok := bundle[lang]; ok {
			messages.Merge(layer)
			res.Layers = append(res.Layers, lang)
			res.Locale = lang
			res.Fallback = false
		}
	}

	if key != lang {
		if layer, ok := bundle[key]; ok {
			messages.Merge(layer)
			res.Layers = append(res.Layers, key)
			res.Locale = key
			res.Fallback = false
		}
	}

	return messages, res
}
