// Package storage provides the blob store for uploaded KYC documents.
// Documents are stored in an S3-compatible bucket (AWS S3, Cloudflare R2 or
// minio via the endpoint override) under account-scoped keys.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
)

// Config holds blob store configuration.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // Optional: S3-compatible endpoint (R2, minio)
	AccessKey string
	SecretKey string
}

// S3Store implements domain.BlobStore against an S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	log    zerolog.Logger
}

// Compile-time check
var _ domain.BlobStore = (*S3Store)(nil)

// New creates a new S3-backed blob store.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("blob store bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.Endpoint != "" // Path-style for R2/minio endpoints
	})

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		log:    log.With().Str("store", "s3").Logger(),
	}, nil
}

// Put stores data under key and returns the key.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", domain.ExternalServicef("failed to store blob %s: %v", key, err)
	}

	s.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("Blob stored")
	return key, nil
}

// Get retrieves the blob stored at key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, domain.ExternalServicef("failed to fetch blob %s: %v", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, domain.ExternalServicef("failed to read blob %s: %v", key, err)
	}

	return data, nil
}
