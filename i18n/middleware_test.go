package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocaleDetector(t *testing.T) {
	m := newFixtureManager(t)

	var gotLocale string
	var gotMessage string
	handler := LocaleDetector(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLocale = LocaleFromContext(r.Context())
		gotMessage = MustTranslatorFromContext(r.Context()).T("four-oh-four", nil)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Accept-Language", "nl-BE,nl;q=0.9")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.Equal(t, "nl_be", gotLocale)
	assert.Equal(t, "Hier is er geen kat.", gotMessage)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLocaleDetectorWithOptions(t *testing.T) {
	m := newFixtureManager(t)

	handler := LocaleDetectorWithOptions(m, LocaleDetectorOptions{
		SetCookie:       true,
		CookieName:      "app_locale",
		ContentLanguage: true,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/?locale=nl-NL", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "app_locale", cookies[0].Name)
	assert.Equal(t, "nl_nl", cookies[0].Value)
	assert.Equal(t, 365*24*60*60, cookies[0].MaxAge)
	assert.Equal(t, "nl-NL", rec.Header().Get("Content-Language"))

	// Nothing beyond the default locale: no cookie.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, "en-US", rec.Header().Get("Content-Language"))
}

func TestTranslatorFromContext_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Nil(t, TranslatorFromContext(r.Context()))
	assert.Empty(t, LocaleFromContext(r.Context()))
	assert.Panics(t, func() { MustTranslatorFromContext(r.Context()) })
}

func TestContentLanguage(t *testing.T) {
	assert.Equal(t, "nl-BE", contentLanguage("nl_be"))
	assert.Equal(t, "nl", contentLanguage("nl"))
}
