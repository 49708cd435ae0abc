package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config holds configuration for the S3 source backend.
// All fields except Bucket are optional and fall back to the AWS defaults.
type S3Config struct {
	Bucket          string // S3 bucket name (required)
	Prefix          string // Key prefix acting as the "directory" (optional)
	Region          string // AWS region (optional, uses default chain if empty)
	AccessKeyID     string // AWS access key ID (optional, uses environment/default)
	SecretAccessKey string // AWS secret access key (optional, uses environment/default)
	Endpoint        string // Custom S3 endpoint (optional, for S3-compatible services)
	ForcePathStyle  bool   // Use path-style addressing (optional, for S3-compatible services)
}

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source implements Source for the objects directly under an S3 prefix.
type S3Source struct {
	client S3API
	bucket string
	prefix string
}

// NewS3 creates an S3 source with the specified configuration.
// Credentials come from the config when both keys are set, otherwise from
// the default AWS chain (environment, shared config, IAM role).
//
// Example:
//
//	// S3-compatible service (like MinIO)
//	src, err := source.NewS3(ctx, source.S3Config{
//	    Bucket:         "my-bucket",
//	    Prefix:         "messages",
//	    Endpoint:       "http://localhost:9000",
//	    ForcePathStyle: true,
//	})
func NewS3(ctx context.Context, config S3Config) (*S3Source, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket name is required", ErrInvalidConfig)
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if config.Region != "" {
		opts = append(opts, awsconfig.WithRegion(config.Region))
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.ForcePathStyle
	})

	return NewS3WithClient(client, config.Bucket, config.Prefix), nil
}

// NewS3WithClient creates an S3 source around an existing client.
func NewS3WithClient(client S3API, bucket, prefix string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Name returns the s3:// URI of the source.
func (s *S3Source) Name() string {
	return "s3://" + s.bucket + "/" + s.prefix
}

// List returns the object names directly under the prefix.
func (s *S3Source) List(ctx context.Context) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Delimiter: aws.String("/"),
	}
	if p := listPrefix(s.prefix); p != "" {
		input.Prefix = aws.String(p)
	}

	var names []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", s.Name(), err)
		}
		for _, object := range page.Contents {
			if object.Key == nil {
				continue
			}
			if name, ok := childName(s.prefix, *object.Key); ok {
				names = append(names, name)
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

// Open returns the body of an object directly under the prefix.
func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(joinKey(s.prefix, name)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, s.Name(), name)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	return result.Body, nil
}

// Close is a no-op; the S3 client holds no resources that need releasing.
func (s *S3Source) Close() error {
	return nil
}
