package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wenjia-zhai/genbridge/internal/common"
)

// S3Store implements ObjectStore on an S3 bucket.
type S3Store struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	region     string
	publicRead bool
	logger     *slog.Logger
}

// NewS3Store builds an S3-backed store from the default credential chain.
func NewS3Store(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, common.NewAppError("STORAGE_CONFIG", "bucket name is required", common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Store{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		publicRead: cfg.PublicRead,
		logger:     logger,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, in UploadInput) (string, error) {
	put := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(in.Key),
		Body:   in.Body,
	}
	if in.ContentType != "" {
		put.ContentType = aws.String(in.ContentType)
	}
	if in.SizeBytes > 0 {
		put.ContentLength = aws.Int64(in.SizeBytes)
	}

	if _, err := s.client.PutObject(ctx, put); err != nil {
		s.logger.Error("storage.upload_failed", "key", in.Key, "error", err)
		return "", fmt.Errorf("put object %s: %w", in.Key, err)
	}

	s.logger.Info("storage.uploaded", "key", in.Key, "size_bytes", in.SizeBytes)
	if s.publicRead {
		return s.publicURL(in.Key), nil
	}
	return s.SignedURL(ctx, in.Key, 0)
}

func (s *S3Store) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return raw, nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Store) SignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = time.Hour
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		// Signing failure on a public bucket still has a usable URL.
		if s.publicRead {
			return s.publicURL(key), nil
		}
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// Health lists at most one key to verify credentials and reachability.
func (s *S3Store) Health(ctx context.Context) error {
	_, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return common.WrapError(err, "storage health")
	}
	return nil
}

func (s *S3Store) publicURL(key string) string {
	// Escape path segments but keep the slashes that form the key hierarchy.
	escaped := (&url.URL{Path: key}).EscapedPath()
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
}

var _ ObjectStore = (*S3Store)(nil)
