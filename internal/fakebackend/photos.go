package fakebackend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// UploadsPrefix is the server-relative path listing images are served from.
const UploadsPrefix = "/uploads/"

var ErrPhotoNotFound = errors.New("photo not found")

// PhotoStore keeps uploaded listing photos.
type PhotoStore interface {
	// Save stores data and returns its object key.
	Save(ctx context.Context, originalName, contentType string, data []byte) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

func newObjectKey(originalName string) string {
	ext := strings.ToLower(path.Ext(originalName))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("photos/%s%s", uuid.NewString(), ext)
}

type storedPhoto struct {
	contentType string
	data        []byte
}

type memoryPhotoStore struct {
	mu     sync.RWMutex
	photos map[string]storedPhoto
}

func NewMemoryPhotoStore() PhotoStore {
	return &memoryPhotoStore{photos: make(map[string]storedPhoto)}
}

func (s *memoryPhotoStore) Save(_ context.Context, originalName, contentType string, data []byte) (string, error) {
	key := newObjectKey(originalName)
	buf := make([]byte, len(data))
	copy(buf, data)
	s.mu.Lock()
	s.photos[key] = storedPhoto{contentType: contentType, data: buf}
	s.mu.Unlock()
	return key, nil
}

func (s *memoryPhotoStore) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.RLock()
	p, ok := s.photos[key]
	s.mu.RUnlock()
	if !ok {
		return nil, "", ErrPhotoNotFound
	}
	return io.NopCloser(bytes.NewReader(p.data)), p.contentType, nil
}

type MinIOPhotoStore struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

func NewMinIOPhotoStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, log *logger.Logger) (*MinIOPhotoStore, error) {
	log = log.Named("MinIOPhotoStore")
	log.Info("Initializing MinIO photo storage", zap.String("endpoint", endpoint), zap.String("bucket", bucket), zap.Bool("use_ssl", useSSL))

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", endpoint, err)
	}

	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		exists, existsErr := client.BucketExists(ctx, bucket)
		if existsErr != nil || !exists {
			return nil, fmt.Errorf("failed to make/verify bucket %s: (make: %v / exists_check: %v)", bucket, err, existsErr)
		}
		log.Info("Bucket already exists", zap.String("bucket", bucket))
	}

	return &MinIOPhotoStore{client: client, bucket: bucket, logger: log}, nil
}

func (s *MinIOPhotoStore) Save(ctx context.Context, originalName, contentType string, data []byte) (string, error) {
	key := newObjectKey(originalName)
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"original-filename": originalName},
	})
	if err != nil {
		s.logger.Error("PutObject failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", key, s.bucket, err)
	}
	s.logger.Debug("Photo uploaded", zap.String("key", info.Key), zap.Int64("size", info.Size))
	return key, nil
}

func (s *MinIOPhotoStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object %s: %w", key, err)
	}
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", ErrPhotoNotFound
		}
		return nil, "", fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return obj, stat.ContentType, nil
}
