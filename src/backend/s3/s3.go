package s3

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Options configures the S3 lister.
type Options struct {
	Endpoint        string // e.g. https://s3.eu-central-003.backblazeb2.com
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	BasePath        string
}

// Backend implements backend.Lister on an S3-compatible bucket using
// delimiter listings.
type Backend struct {
	client   s3.ListObjectsV2APIClient
	bucket   string
	basePath string
}

// New builds an S3 client from opts. Empty credentials fall back to the
// default AWS credential chain.
func New(ctx context.Context, opts Options) (*Backend, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 backend: bucket must not be empty")
	}
	region := opts.Region
	if region == "" {
		region = "auto"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3 backend: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})
	return NewWithClient(client, opts.Bucket, opts.BasePath), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client s3.ListObjectsV2APIClient, bucket, basePath string) *Backend {
	return &Backend{client: client, bucket: bucket, basePath: strings.Trim(basePath, "/")}
}

func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	full := b.fullPrefix(prefix)
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(full),
		Delimiter: aws.String("/"),
	})
	var names []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 backend: list s3://%s/%s: %w", b.bucket, full, err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), full), "/")
			if name != "" {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func (b *Backend) fullPrefix(prefix string) string {
	parts := make([]string, 0, 2)
	if b.basePath != "" {
		parts = append(parts, b.basePath)
	}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "/") + "/"
}
