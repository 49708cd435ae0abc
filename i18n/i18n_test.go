package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageMap_Get(t *testing.T) {
	m := MessageMap{
		"title":       "Home",
		"cart.empty":  "Literal dotted key",
		"cart":        MessageMap{"empty": "Nested", "items": MessageMap{"one": "1 item"}},
		"not-message": MessageMap{},
	}

	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"title", "Home", true},
		{"cart.empty", "Literal dotted key", true},
		{"cart.items.one", "1 item", true},
		{"cart", "", false},
		{"cart.missing", "", false},
		{"missing", "", false},
		{"title.sub", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := m.Get(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessageMap_MergeIsDeep(t *testing.T) {
	dst := MessageMap{"x": "1", "y": "2", "nested": MessageMap{"a": "A", "b": "B"}}
	src := MessageMap{"y": "3", "z": "4", "nested": MessageMap{"b": "B2", "c": "C2"}}

	dst.Merge(src)

	assert.Equal(t, MessageMap{
		"x":      "1",
		"y":      "3",
		"z":      "4",
		"nested": MessageMap{"a": "A", "b": "B2", "c": "C2"},
	}, dst)
}

func TestMessageMap_MergeDoesNotAlias(t *testing.T) {
	src := MessageMap{"nested": MessageMap{"a": "A"}}
	dst := MessageMap{}
	dst.Merge(src)

	dst["nested"].(MessageMap)["a"] = "changed"
	assert.Equal(t, "A", src["nested"].(MessageMap)["a"])
}

func TestMessageMap_MergeScalarReplacesMap(t *testing.T) {
	dst := MessageMap{"k": MessageMap{"a": "A"}}
	dst.Merge(MessageMap{"k": "scalar"})
	assert.Equal(t, MessageMap{"k": "scalar"}, dst)

	dst.Merge(MessageMap{"k": MessageMap{"b": "B"}})
	assert.Equal(t, MessageMap{"k": MessageMap{"b": "B"}}, dst)
}

func TestMessageMap_Clone(t *testing.T) {
	orig := MessageMap{"a": "A", "nested": MessageMap{"b": "B"}}
	clone := orig.Clone()
	require.Equal(t, orig, clone)

	clone["nested"].(MessageMap)["b"] = "changed"
	clone["a"] = "changed"
	assert.Equal(t, "B", orig["nested"].(MessageMap)["b"])
	assert.Equal(t, "A", orig["a"])
}

func TestMessageMap_FlattenAndKeys(t *testing.T) {
	m := MessageMap{
		"title": "Home",
		"cart":  MessageMap{"empty": "Empty", "items": MessageMap{"one": "1 item"}},
	}

	assert.Equal(t, map[string]string{
		"title":          "Home",
		"cart.empty":     "Empty",
		"cart.items.one": "1 item",
	}, m.Flatten())
	assert.Equal(t, []string{"cart.empty", "cart.items.one", "title"}, m.Keys())
}

func TestMessageBundle_Locales(t *testing.T) {
	b := MessageBundle{"nl_be": {}, "en": {}, "en_us": {}}
	assert.Equal(t, []string{"en", "en_us", "nl_be"}, b.Locales())
	assert.Empty(t, MessageBundle{}.Locales())
}
