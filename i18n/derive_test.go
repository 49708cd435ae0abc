package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_Precedence(t *testing.T) {
	bundle := MessageBundle{
		"en_us": {"a": "A1"},
		"en":    {"a": "A2", "b": "B"},
	}

	assert.Equal(t, MessageMap{"a": "A1", "b": "B"}, Derive("en_us", bundle, "en_us"))
	assert.Equal(t, MessageMap{"a": "A2", "b": "B"}, Derive("en_gb", bundle, "en_us"))
	assert.Equal(t, MessageMap{"a": "A1"}, Derive("", bundle, "en_us"))
}

func TestDerive_FallbackTable(t *testing.T) {
	bundle := MessageBundle{
		"en_us": {"k": "default", "d": "only-default"},
		"en":    {"k": "en"},
		"nl":    {"k": "nl", "n": "nl-only"},
		"nl_nl": {"k": "nl_nl"},
	}

	tests := []struct {
		locale string
		want   MessageMap
	}{
		{"nl_nl", MessageMap{"k": "nl_nl", "d": "only-default", "n": "nl-only"}},
		{"nl_be", MessageMap{"k": "nl", "d": "only-default", "n": "nl-only"}},
		{"en_in", MessageMap{"k": "en", "d": "only-default"}},
		{"zh_tw", MessageMap{"k": "default", "d": "only-default"}},
		{"", MessageMap{"k": "default", "d": "only-default"}},
		{"NL-NL", MessageMap{"k": "nl_nl", "d": "only-default", "n": "nl-only"}},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(tt.locale, bundle, "en_us"))
		})
	}
}

func TestDerive_MissingHeaderUsesCustomDefault(t *testing.T) {
	bundle := MessageBundle{"my-default": {"this": "works"}}
	assert.Equal(t, MessageMap{"this": "works"}, Derive("", bundle, "my-default"))
}

func TestDeriveFromHeader_CustomDefault(t *testing.T) {
	bundle := MessageBundle{
		"my-default": {"this": "works", "greeting": "hi"},
		"nl":         {"greeting": "hallo"},
	}
	assert.Equal(t, MessageMap{"this": "works", "greeting": "hi"}, DeriveFromHeader("", bundle, "my-default"))
	assert.Equal(t, MessageMap{"this": "works", "greeting": "hallo"}, DeriveFromHeader("nl-BE", bundle, "my-default"))
}

func TestDerive_HyphenatedDefault(t *testing.T) {
	bundle := MessageBundle{"en_us": {"a": "A"}}
	assert.Equal(t, MessageMap{"a": "A"}, Derive("", bundle, "en-US"))
}

func TestDerive_EmptyDefaultMeansEnUS(t *testing.T) {
	bundle := MessageBundle{DefaultLocale: {"a": "A"}}
	assert.Equal(t, MessageMap{"a": "A"}, Derive("", bundle, ""))
}

func TestDerive_NoDefaultLayer(t *testing.T) {
	bundle := MessageBundle{"nl": {"a": "A"}}
	assert.Equal(t, MessageMap{}, Derive("zh_tw", bundle, "en_us"))
	assert.Equal(t, MessageMap{"a": "A"}, Derive("nl_be", bundle, "en_us"))
	assert.Equal(t, MessageMap{}, Derive("", nil, ""))
}

func TestDerive_Idempotent(t *testing.T) {
	bundle := MessageBundle{
		"en_us": {"a": "A1", "nested": MessageMap{"x": "X1"}},
		"en":    {"b": "B", "nested": MessageMap{"y": "Y"}},
		"en_gb": {"nested": MessageMap{"x": "X3"}},
	}
	snapshot := MessageBundle{}
	for k, v := range bundle {
		snapshot[k] = v.Clone()
	}

	first := Derive("en_gb", bundle, "en_us")
	second := Derive("en_gb", bundle, "en_us")
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, bundle, "the bundle must not be modified")

	first["nested"].(MessageMap)["x"] = "mutated"
	assert.Equal(t, "X3", bundle["en_gb"]["nested"].(MessageMap)["x"])
	assert.Equal(t, "X1", bundle["en_us"]["nested"].(MessageMap)["x"])
}

func TestResolve(t *testing.T) {
	bundle := MessageBundle{
		"en_us": {"k": "default"},
		"nl":    {"k": "nl"},
		"nl_be": {"k": "nl_be"},
	}
	ctx := context.Background()

	messages, res := Resolve(ctx, "fr-FR,nl-BE;q=0.9,en;q=0.5", bundle, "en_us")
	assert.Equal(t, MessageMap{"k": "nl_be"}, messages)
	assert.Equal(t, Resolution{
		Requested: "fr-FR,nl-BE;q=0.9,en;q=0.5",
		Locale:    "nl_be",
		Layers:    []string{"en_us", "nl", "nl_be"},
		Fallback:  false,
	}, res)

	messages, res = Resolve(ctx, "nl-NL", bundle, "en_us")
	assert.Equal(t, MessageMap{"k": "nl"}, messages)
	assert.Equal(t, "nl", res.Locale)

	messages, res = Resolve(ctx, "fr,de", bundle, "en_us")
	assert.Equal(t, MessageMap{"k": "default"}, messages)
	assert.True(t, res.Fallback)
	assert.Equal(t, "en_us", res.Locale)

	messages, res = Resolve(ctx, "", bundle, "en_us")
	assert.Equal(t, MessageMap{"k": "default"}, messages)
	assert.True(t, res.Fallback)
}

func TestDeriveFromHeader(t *testing.T) {
	bundle := MessageBundle{
		"en_us": {"k": "default"},
		"en":    {"k": "en"},
	}

	assert.Equal(t, MessageMap{"k": "en"}, DeriveFromHeader("en-GB,en;q=0.8", bundle, "en_us"))
	assert.Equal(t, MessageMap{"k": "default"}, DeriveFromHeader("*", bundle, "en_us"))
	assert.Equal(t, MessageMap{"k": "default"}, DeriveFromHeader("garbled;;;q=x", bundle, "en_us"))
}

func TestResolve_ReportsToObserver(t *testing.T) {
	obs := &recordingObserver{}
	RegisterObserver(obs)
	t.Cleanup(func() { RegisterObserver(nil) })

	bundle := MessageBundle{"en_us": {"k": "default"}, "nl": {"k": "nl"}}
	_, _ = Resolve(context.Background(), "nl-BE", bundle, "en_us")

	require.Len(t, obs.resolutions, 1)
	assert.Equal(t, resolutionEvent{requested: "nl-BE", resolved: "nl", fallback: false}, obs.resolutions[0])
}
