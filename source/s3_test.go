package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves objects from a map and pages listings two keys at a time.
type fakeS3 struct {
	objects map[string]string
	keys    []string
	calls   int
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.calls++

	start := 0
	if params.ContinuationToken != nil {
		for i, k := range f.keys {
			if k == *params.ContinuationToken {
				start = i
			}
		}
	}

	prefix := aws.ToString(params.Prefix)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for i := start; i < len(f.keys); i++ {
		if len(out.Contents) == 2 {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(f.keys[i])
			break
		}
		if strings.HasPrefix(f.keys[i], prefix) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(f.keys[i])})
		}
	}
	return out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("not found")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func newFakeS3(objects map[string]string, keys ...string) *fakeS3 {
	return &fakeS3{objects: objects, keys: keys}
}

func TestS3Source(t *testing.T) {
	client := newFakeS3(map[string]string{
		"app/messages/en.json": `{"hello":"Hello"}`,
		"app/messages/nl.json": `{"hello":"Hallo"}`,
	},
		"app/messages/",
		"app/messages/en.json",
		"app/messages/fr/old.json",
		"app/messages/nl.json",
		"app/other.json",
	)

	src := NewS3WithClient(client, "bucket", "/app/messages/")
	assert.Equal(t, "s3://bucket/app/messages", src.Name())

	ctx := context.Background()
	names, err := src.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"en.json", "nl.json"}, names)
	assert.Greater(t, client.calls, 1, "listing should follow continuation tokens")

	data, err := ReadAll(ctx, src, "nl.json")
	require.NoError(t, err)
	assert.Equal(t, `{"hello":"Hallo"}`, string(data))

	_, err = src.Open(ctx, "de.json")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = src.Open(ctx, "fr/old.json")
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.NoError(t, src.Close())
}

type failingS3 struct{ fakeS3 }

func (f *failingS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return nil, errors.New("access denied")
}

func TestS3Source_ListError(t *testing.T) {
	src := NewS3WithClient(&failingS3{}, "bucket", "")
	_, err := src.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
