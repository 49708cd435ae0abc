package i18n

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	// TranslatorContextKey is the key used to store the Translator in the request context
	TranslatorContextKey contextKey = "tmplkit_translator"
	// LocaleContextKey is the key used to store the detected locale in the request context
	LocaleContextKey contextKey = "tmplkit_locale"
)

// LocaleDetector returns middleware that detects the user's locale and injects
// a pre-configured Translator into the request context.
//
// Example usage:
//
//	manager := i18n.NewManager(ctx, i18n.Dirs("./messages"))
//
//	r := chi.NewRouter()
//	r.Use(i18n.LocaleDetector(manager))
//	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
//	    translator := i18n.TranslatorFromContext(r.Context())
//	    fmt.Fprintln(w, translator.T("home.title", nil))
//	})
//
// Locale detection order:
// 1. Query parameter: ?locale=nl_be
// 2. Cookie: locale=nl_be
// 3. Accept-Language header: Accept-Language: nl-BE,nl;q=0.9,en;q=0.8
// 4. Default locale (configured in manager)
func LocaleDetector(manager *Manager) func(http.Handler) http.Handler {
	return LocaleDetectorWithOptions(manager, LocaleDetectorOptions{})
}

// TranslatorFromContext retrieves the Translator from the request context.
// Returns nil if no Translator was found in the context.
func TranslatorFromContext(ctx context.Context) *Translator {
	if translator, ok := ctx.Value(TranslatorContextKey).(*Translator); ok {
		return translator
	}
	return nil
}

// LocaleFromContext retrieves the detected locale from the request context.
// Returns an empty string if no locale was found in the context.
func LocaleFromContext(ctx context.Context) string {
	if locale, ok := ctx.Value(LocaleContextKey).(string); ok {
		return locale
	}
	return ""
}

// MustTranslatorFromContext retrieves the Translator from the request context.
// Panics if no Translator was found in the context.
//
// Use this function when you're certain the LocaleDetector middleware
// has been applied and you want to fail fast if it hasn't.
func MustTranslatorFromContext(ctx context.Context) *Translator {
	translator := TranslatorFromContext(ctx)
	if translator == nil {
		panic("i18n: Translator not found in context. Did you apply the LocaleDetector middleware?")
	}
	return translator
}

// LocaleDetectorOptions configures LocaleDetectorWithOptions.
type LocaleDetectorOptions struct {
	// SetCookie sets a cookie with the detected locale
	SetCookie bool
	// CookieName is the name of the cookie to set (default: "locale")
	CookieName string
	// CookieMaxAge is the max age of the locale cookie in seconds (default: 1 year)
	CookieMaxAge int
	// ContentLanguage sets the Content-Language response header
	ContentLanguage bool
}

// LocaleDetectorWithOptions returns middleware with configurable options.
//
// Cookie behavior:
// - When SetCookie is true, the detected locale is stored in a cookie
// - The cookie is accessible to JavaScript (HttpOnly: false)
// - Future requests will use the cookie value for locale detection
//
// The cookie is only written when the request resolved to something more
// specific than the default locale.
func LocaleDetectorWithOptions(manager *Manager, opts LocaleDetectorOptions) func(http.Handler) http.Handler {
	if opts.CookieName == "" {
		opts.CookieName = "locale"
	}
	if opts.CookieMaxAge == 0 {
		opts.CookieMaxAge = 365 * 24 * 60 * 60 // 1 year
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			translator := manager.Translator(r)

			if opts.SetCookie && !translator.resolution.Fallback {
				http.SetCookie(w, &http.Cookie{
					Name:     opts.CookieName,
					Value:    translator.locale,
					MaxAge:   opts.CookieMaxAge,
					Path:     "/",
					HttpOnly: false, // Allow JavaScript access for client-side locale switching
				})
			}
			if opts.ContentLanguage {
				w.Header().Set("Content-Language", contentLanguage(translator.locale))
			}

			ctx := context.WithValue(r.Context(), TranslatorContextKey, translator)
			ctx = context.WithValue(ctx, LocaleContextKey, translator.locale)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// contentLanguage converts a bundle key back to a BCP 47 tag ("nl_be" => "nl-BE").
func contentLanguage(locale string) string {
	lang, region, found := strings.Cut(locale, "_")
	if !found {
		return lang
	}
	return lang + "-" + strings.ToUpper(region)
}
