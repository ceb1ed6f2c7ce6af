package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// GCSStore writes images to a Cloud Storage bucket and hands out Firebase
// download-token URLs.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) Save(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	ext, ct, err := ImageExt(filename)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = ct
	}
	objectPath := "products/" + uuid.NewString() + ext
	token := uuid.NewString()

	w := s.client.Bucket(s.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": token,
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object: %w", err)
	}
	return downloadURL(s.bucket, objectPath, token), nil
}

func downloadURL(bucket, objectPath, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(objectPath), token)
}

func (s *GCSStore) Qualify(ref string) string {
	if isAbsoluteURL(ref) {
		return ref
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, strings.TrimLeft(ref, "/"))
}
