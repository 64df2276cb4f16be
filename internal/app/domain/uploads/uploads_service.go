package uploads

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/app/observability/metrics"
	"github.com/FACorreiaa/gurume/internal/pkg/config"
)

const megabyte = 1 << 20

// Upload buckets.
const (
	BucketAvatars      = "avatars"
	BucketRouteImages  = "route-images"
	BucketPlaceImages  = "place-images"
	BucketReviewImages = "review-images"
)

// File is an image on its way to storage.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Service validates uploads and hands them to the image store. A nil store
// means storage is not configured.
type Service struct {
	store  ImageStore
	limits map[string]int64
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store ImageStore, cfg config.StorageConfig, logger *zap.Logger) *Service {
	avatarMax, imageMax := cfg.AvatarMaxMB, cfg.ImageMaxMB
	if avatarMax <= 0 {
		avatarMax = 2
	}
	if imageMax <= 0 {
		imageMax = 5
	}
	return &Service{
		store: store,
		limits: map[string]int64{
			BucketAvatars:      avatarMax * megabyte,
			BucketRouteImages:  imageMax * megabyte,
			BucketPlaceImages:  imageMax * megabyte,
			BucketReviewImages: imageMax * megabyte,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Limit is the largest accepted size for bucket, or 0 for unknown buckets.
func (s *Service) Limit(bucket string) int64 {
	return s.limits[bucket]
}

func extension(f File) string {
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), ".")); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(f.ContentType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "jpg"
}

// ObjectKey names an upload: <owner>/<owner>_<unixmillis>.<ext>.
func ObjectKey(owner string, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%s_%d.%s", owner, owner, at.UnixMilli(), ext)
}

// Upload stores f under the owner's folder of bucket and returns where it
// can be fetched.
func (s *Service) Upload(ctx context.Context, owner, bucket string, f File) (models.UploadResult, error) {
	l := s.logger.With(zap.String("method", "Upload"), zap.String("bucket", bucket), zap.String("owner", owner))

	if s.store == nil {
		return models.UploadResult{}, fmt.Errorf("%w: image storage", models.ErrNotConfigured)
	}
	limit, ok := s.limits[bucket]
	if !ok {
		return models.UploadResult{}, fmt.Errorf("%w: %q", models.ErrUnknownBucket, bucket)
	}
	if f.Size > limit {
		return models.UploadResult{}, fmt.Errorf("%w: %d bytes, limit %d", models.ErrUploadTooLarge, f.Size, limit)
	}
	if !strings.HasPrefix(f.ContentType, "image/") {
		return models.UploadResult{}, fmt.Errorf("%w: only images can be uploaded", models.ErrValidation)
	}

	key := ObjectKey(owner, s.now(), extension(f))
	url, err := s.store.Put(ctx, bucket, key, f.ContentType, io.LimitReader(f.Body, limit+1))
	if err != nil {
		l.Error("Upload failed", zap.Error(err))
		return models.UploadResult{}, fmt.Errorf("%w: upload: %w", models.ErrPersistence, err)
	}

	metrics.Inc(ctx, metrics.Get().UploadsTotal, attribute.String("bucket", bucket))
	l.Info("Image uploaded", zap.String("key", key))
	return models.UploadResult{Bucket: bucket, Key: key, URL: url, Size: f.Size}, nil
}
