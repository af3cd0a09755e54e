package filestorage

import (
	"bytes"
	"context"
	"fmt"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/SeakMengs/OceanSeal/internal/config"
	"github.com/SeakMengs/OceanSeal/internal/util"
	"github.com/disintegration/imaging"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

const (
	ThumbnailSize    = 320
	thumbnailQuality = 80
	imageDirectory   = "certificates"
)

type StoredImage struct {
	ImageURL     string
	ThumbnailURL string
}

type ImageStore struct {
	s3        *minio.Client
	bucket    string
	publicURL string
	logger    *zap.SugaredLogger
	// guards bucketReady
	mu          sync.Mutex
	bucketReady bool
}

func NewImageStore(s3 *minio.Client, cfg *config.MinioConfig, logger *zap.SugaredLogger) *ImageStore {
	publicURL := cfg.PUBLIC_URL
	if publicURL == "" {
		scheme := "http"
		if cfg.USE_SSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, cfg.ENDPOINT)
	}

	return &ImageStore{
		s3:        s3,
		bucket:    cfg.BUCKET,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// PutImage uploads the certificate image and a JPEG thumbnail under a directory derived from
// the image hash. Images that cannot be decoded are stored without a thumbnail.
func (s *ImageStore) PutImage(ctx context.Context, imageHash string, data []byte) (*StoredImage, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	directory := ImageDirectoryPath(imageHash)
	contentType := http.DetectContentType(data)

	originalKey := path.Join(directory, util.AddUniquePrefixToFileName("original"+extensionFor(contentType)))
	if err := s.put(ctx, originalKey, data, contentType); err != nil {
		return nil, err
	}

	stored := &StoredImage{ImageURL: s.ObjectURL(originalKey)}

	thumbnail, err := Thumbnail(data)
	if err != nil {
		s.logger.Warnf("Skipping thumbnail for image %s: %v", imageHash, err)
		return stored, nil
	}

	thumbnailKey := path.Join(directory, util.AddUniquePrefixToFileName("thumbnail.jpg"))
	if err := s.put(ctx, thumbnailKey, thumbnail, "image/jpeg"); err != nil {
		s.logger.Warnf("Thumbnail upload failed for image %s: %v", imageHash, err)
		return stored, nil
	}

	stored.ThumbnailURL = s.ObjectURL(thumbnailKey)
	return stored, nil
}

func (s *ImageStore) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bucketReady {
		return nil
	}
	if err := createBucketIfNotExists(ctx, s.s3, s.bucket); err != nil {
		return err
	}
	s.bucketReady = true
	return nil
}

func (s *ImageStore) put(ctx context.Context, key string, data []byte, contentType string) error {
	info, err := s.s3.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file to S3: %w", err)
	}

	s.logger.Debugf("Uploaded %s (%d bytes) to bucket %s", info.Key, info.Size, info.Bucket)
	return nil
}

func (s *ImageStore) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key)
}

// ImageDirectoryPath groups uploads by the first 16 hex digits of the image hash.
func ImageDirectoryPath(imageHash string) string {
	digits := strings.TrimPrefix(imageHash, "0x")
	if len(digits) > 16 {
		digits = digits[:16]
	}
	return path.Join(imageDirectory, digits)
}

// Thumbnail fits the image into a ThumbnailSize square and encodes it as JPEG.
func Thumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Fit(img, ThumbnailSize, ThumbnailSize, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, thumb, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
