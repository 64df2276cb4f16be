// Package uploads stores user images in S3 compatible object storage.
package uploads

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/pkg/config"
)

// ImageStore writes an object and returns its public URL.
type ImageStore interface {
	Put(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error)
}

var _ ImageStore = (*S3Store)(nil)

// S3Store talks to AWS S3 or Cloudflare R2. Each upload bucket maps to a
// real bucket of the same name.
type S3Store struct {
	client  *s3.Client
	baseURL string
	logger  *zap.Logger
}

// NewS3Store builds a client from static credentials. An empty endpoint
// means AWS itself.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*S3Store, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:  client,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		logger:  logger,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("Failed to store object", zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", s.baseURL, bucket, key), nil
}
