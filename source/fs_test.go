package source

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSSource(t *testing.T) {
	fsys := fstest.MapFS{
		"messages/en.json":        {Data: []byte(`{"hello":"Hello"}`)},
		"messages/nl.toml":        {Data: []byte(`hello = "Hallo"`)},
		"messages/.keep":          {Data: []byte{}},
		"messages/legacy/de.json": {Data: []byte(`{}`)},
		"other.json":              {Data: []byte(`{}`)},
	}

	src, err := NewFS("embedded", fsys, "messages")
	require.NoError(t, err)
	assert.Equal(t, "embedded", src.Name())

	ctx := context.Background()
	names, err := src.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"en.json", "nl.toml"}, names)

	data, err := ReadAll(ctx, src, "nl.toml")
	require.NoError(t, err)
	assert.Equal(t, `hello = "Hallo"`, string(data))

	_, err = src.Open(ctx, "de.json")
	assert.ErrorIs(t, err, ErrNotFound)

	root, err := NewFS("", fsys, "/")
	require.NoError(t, err)
	assert.Equal(t, "fs:.", root.Name())
	names, err = root.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other.json"}, names)
}

func TestFSSource_Errors(t *testing.T) {
	fsys := fstest.MapFS{"file.json": {Data: []byte(`{}`)}}

	_, err := NewFS("x", nil, ".")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewFS("x", fsys, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = NewFS("x", fsys, "file.json")
	assert.ErrorIs(t, err, ErrNotDirectory)
}
