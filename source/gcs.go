package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig holds configuration for the GCS source backend.
type GCSConfig struct {
	Bucket          string // GCS bucket name (required)
	Prefix          string // Object prefix acting as the "directory" (optional)
	CredentialsFile string // Path to service account JSON file (optional, uses ADC if empty)
	Endpoint        string // Custom endpoint, e.g. a local emulator (optional)
}

// GCSSource implements Source for the objects directly under a GCS prefix.
type GCSSource struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates a GCS source with the specified configuration.
func NewGCS(ctx context.Context, config GCSConfig) (*GCSSource, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket name is required", ErrInvalidConfig)
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSSource{
		client: client,
		bucket: config.Bucket,
		prefix: strings.Trim(config.Prefix, "/"),
	}, nil
}

// Name returns the gs:// URI of the source.
func (g *GCSSource) Name() string {
	return "gs://" + g.bucket + "/" + g.prefix
}

// List returns the object names directly under the prefix.
func (g *GCSSource) List(ctx context.Context) ([]string, error) {
	query := &storage.Query{
		Prefix:    listPrefix(g.prefix),
		Delimiter: "/",
	}
	if err := query.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, err
	}

	var names []string
	it := g.client.Bucket(g.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", g.Name(), err)
		}
		// Synthetic "directory" entries only carry a Prefix.
		if attrs.Name == "" {
			continue
		}
		if name, ok := childName(g.prefix, attrs.Name); ok {
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names, nil
}

// Open returns a reader for an object directly under the prefix.
func (g *GCSSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	r, err := g.client.Bucket(g.bucket).Object(joinKey(g.prefix, name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, g.Name(), name)
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return r, nil
}

// Close closes the underlying GCS client.
func (g *GCSSource) Close() error {
	return g.client.Close()
}
