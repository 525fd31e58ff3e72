package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"marketplace/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

var _ ObjectStorage = (*S3ObjectStorage)(nil)

// S3ObjectStorage presigns uploads against any S3-compatible backend
// (AWS S3, MinIO, R2).
type S3ObjectStorage struct {
	presignClient     *s3.PresignClient
	bucket            string
	endpoint          string
	usePathStyle      bool
	presignExpiration time.Duration
	logger            *zap.Logger
}

// NewS3ObjectStorage builds the client from configuration
func NewS3ObjectStorage(cfg config.StorageConfig, logger *zap.Logger) (*S3ObjectStorage, error) {
	if !cfg.Enabled() {
		return nil, errors.New("storage bucket and credentials are required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	expiration := time.Duration(cfg.PresignMinutes) * time.Minute
	if expiration <= 0 {
		expiration = 15 * time.Minute
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &S3ObjectStorage{
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		endpoint:          endpoint,
		usePathStyle:      cfg.UsePathStyle,
		presignExpiration: expiration,
		logger:            logger,
	}, nil
}

// GenerateUploadURL presigns a PUT for storageKey
func (s *S3ObjectStorage) GenerateUploadURL(
	ctx context.Context,
	storageKey, contentType string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = s.presignExpiration
	}

	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(storageKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		s.logger.Error("Failed to presign upload", zap.String("key", storageKey), zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return req.URL, time.Now().Add(expiresIn), nil
}

// ObjectURL returns the unsigned URL of an object
func (s *S3ObjectStorage) ObjectURL(storageKey string) string {
	if s.endpoint == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, storageKey)
	}
	if s.usePathStyle {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, storageKey)
	}
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, storageKey)
	}
	return fmt.Sprintf("%s://%s.%s/%s", u.Scheme, s.bucket, u.Host, storageKey)
}
