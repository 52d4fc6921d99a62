// Package storage archives synchronization payloads in object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/config"
)

const (
	defaultPresignExpiration = 15 * time.Minute
	defaultRegion            = "us-east-1"
	payloadContentType       = "application/json"
)

var (
	ErrMissingBucket = errors.New("storage: bucket is required")
	ErrMissingKey    = errors.New("storage: object key is required")
)

// PayloadLocator hands out temporary download links for archived payloads
type PayloadLocator interface {
	PayloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// S3PayloadArchive stores payloads in an S3-compatible bucket (AWS S3, MinIO, RustFS)
type S3PayloadArchive struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
	log     *zap.Logger
}

// NewS3PayloadArchive creates an archive from configuration. Without static
// keys the default AWS credential chain is used.
func NewS3PayloadArchive(ctx context.Context, cfg *config.StorageConfig, log *zap.Logger) (*S3PayloadArchive, error) {
	if cfg == nil || cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}
	if log == nil {
		log = zap.NewNop()
	}

	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &S3PayloadArchive{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		log:     log.Named("payload_archive"),
	}, nil
}

func newS3Client(ctx context.Context, cfg *config.StorageConfig) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		static := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		loaders = append(loaders, awsconfig.WithCredentialsProvider(static))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

func (s *S3PayloadArchive) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func isMissingBucket(err error) bool {
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	return errors.As(err, &notFound) || errors.As(err, &noSuchBucket)
}

// EnsureBucket creates the bucket when HeadBucket reports it missing.
func (s *S3PayloadArchive) EnsureBucket(ctx context.Context) error {
	bucket := aws.String(s.bucket)
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: bucket})
	switch {
	case err == nil:
		return nil
	case !isMissingBucket(err):
		return fmt.Errorf("storage: head bucket %s: %w", s.bucket, err)
	}

	s.log.Info("Creating payload archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: bucket})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("storage: create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Store uploads one payload as a JSON object
func (s *S3PayloadArchive) Store(ctx context.Context, key string, payload []byte) error {
	if key == "" {
		return ErrMissingKey
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String(payloadContentType),
		ContentLength: aws.Int64(int64(len(payload))),
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("storage: archive %s: %w", key, err)
	}
	s.log.Debug("Payload archived", zap.String("key", key), zap.Int("bytes", len(payload)))
	return nil
}

// PayloadURL returns a presigned GET URL for an archived payload
func (s *S3PayloadArchive) PayloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrMissingKey
	}
	if expiresIn <= 0 {
		expiresIn = defaultPresignExpiration
	}
	input := &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(s.objectKey(key))}
	signed, err := s.presign.PresignGetObject(ctx, input, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("storage: presign %s: %w", key, err)
	}
	return signed.URL, time.Now().Add(expiresIn), nil
}

func (s *S3PayloadArchive) Bucket() string { return s.bucket }

var (
	_ reconciliation.PayloadArchive = (*S3PayloadArchive)(nil)
	_ PayloadLocator                = (*S3PayloadArchive)(nil)
)
