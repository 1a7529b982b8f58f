package blob

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
)

const (
	BindingKindS3 = "s3_bucket"

	// deleteBatchMax is the DeleteObjects limit
	deleteBatchMax = 1000
)

// s3API is the part of the S3 client the store uses
type s3API interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Store serves an S3 bucket as an asset object store
type S3Store struct {
	client s3API
	config *S3Config
}

var _ assets.ObjectStore = (*S3Store)(nil)

func NewS3Store(client s3API, cfg *S3Config) *S3Store {
	cfg.Prefix = normPrefix(cfg.Prefix)
	return &S3Store{client: client, config: cfg}
}

func NewS3StoreWithConfig(ctx context.Context, cfg *S3Config) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3Store(client, cfg), nil
}

func (s *S3Store) key(name string) string {
	return s.config.Prefix + name
}

// ListKeys lists every asset key under the prefix, with the prefix stripped
func (s *S3Store) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string

	input := &s3.ListObjectsV2Input{
		Bucket: &s.config.BucketName,
	}
	if s.config.Prefix != "" {
		input.Prefix = aws.String(s.config.Prefix)
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), s.config.Prefix))
		}
	}

	return keys, nil
}

// BulkPut writes every entry. S3 has no batch put; entries go one request at a time
// and the first failure stops the bucket
func (s *S3Store) BulkPut(ctx context.Context, entries []assets.Entry) error {
	for _, e := range entries {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        &s.config.BucketName,
			Key:           aws.String(s.key(e.Key)),
			Body:          bytes.NewReader(e.Content),
			ContentLength: aws.Int64(int64(len(e.Content))),
			ContentType:   aws.String(e.ContentType),
		})
		if err != nil {
			return fmt.Errorf("put %s: %w", e.Key, err)
		}
	}
	return nil
}

// BulkDelete removes keys in DeleteObjects batches
func (s *S3Store) BulkDelete(ctx context.Context, keys []string) error {
	for start := 0; start < len(keys); start += deleteBatchMax {
		end := min(start+deleteBatchMax, len(keys))

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(s.key(k))})
		}

		resp, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: &s.config.BucketName,
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return err
		}
		if len(resp.Errors) > 0 {
			first := resp.Errors[0]
			slog.Debug("s3 delete objects", "failed", len(resp.Errors), "first", aws.ToString(first.Key))
			return fmt.Errorf("delete %d objects: %s: %s", len(resp.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	return nil
}

func (s *S3Store) Descriptor() assets.BindingDescriptor {
	return assets.BindingDescriptor{Kind: BindingKindS3, Namespace: s.config.BucketName + "/" + s.config.Prefix}
}
