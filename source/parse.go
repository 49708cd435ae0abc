package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Parse builds a Source from a location string. Recognised forms:
//
//	/abs/path, rel/path, ~/path, $VAR/path   local directory
//	file:///abs/path                         local directory
//	s3://bucket/prefix                       S3 (region/credentials from the AWS chain)
//	gs://bucket/prefix                       Google Cloud Storage
//	azblob://account/container/prefix        Azure Blob (key from AZURE_STORAGE_KEY)
//
// The returned source is wrapped with NewObservable.
func Parse(ctx context.Context, location string) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("%w: empty location", ErrInvalidConfig)
	}

	scheme, rest, hasScheme := strings.Cut(location, "://")
	if !hasScheme {
		dir, err := NewDir(location)
		if err != nil {
			return nil, err
		}
		return NewObservable(dir, "dir"), nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %s", ErrInvalidConfig, location, err)
	}

	switch strings.ToLower(scheme) {
	case "file":
		dir, err := NewDir(u.Path)
		if err != nil {
			return nil, err
		}
		return NewObservable(dir, "dir"), nil

	case "s3":
		src, err := NewS3(ctx, S3Config{
			Bucket:   u.Host,
			Prefix:   u.Path,
			Region:   os.Getenv("AWS_REGION"),
			Endpoint: os.Getenv("AWS_ENDPOINT_URL_S3"),
		})
		if err != nil {
			return nil, err
		}
		return NewObservable(src, "s3"), nil

	case "gs":
		src, err := NewGCS(ctx, GCSConfig{
			Bucket: u.Host,
			Prefix: u.Path,
		})
		if err != nil {
			return nil, err
		}
		return NewObservable(src, "gcs"), nil

	case "azblob":
		container, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		src, err := NewAzure(AzureConfig{
			AccountName: u.Host,
			AccountKey:  os.Getenv("AZURE_STORAGE_KEY"),
			Container:   container,
			Prefix:      prefix,
			ServiceURL:  os.Getenv("AZURE_STORAGE_SERVICE_URL"),
		})
		if err != nil {
			return nil, err
		}
		return NewObservable(src, "azure"), nil

	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q in %s", ErrInvalidConfig, scheme, rest)
	}
}
