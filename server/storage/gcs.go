package storage

import (
	"context"
	"errors"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/cyclopcam/logs"
)

// StorageGCS is a Google Cloud Storage-based blob store.
// Credentials come from the environment (GOOGLE_APPLICATION_CREDENTIALS, or the metadata server).
type StorageGCS struct {
	bucketName string
	client     *gcs.Client
	bucket     *gcs.BucketHandle
	isPublic   bool
	log        logs.Log
}

func NewStorageGCS(log logs.Log, bucketName string, isPublic bool) (*StorageGCS, error) {
	ctx := context.Background()
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &StorageGCS{
		bucketName: bucketName,
		client:     client,
		bucket:     client.Bucket(bucketName),
		isPublic:   isPublic,
		log:        log,
	}, nil
}

func (s *StorageGCS) WriteFile(name string) (io.WriteCloser, error) {
	w := s.bucket.Object(name).NewWriter(context.Background())
	w.ContentType = contentTypeFromName(name)
	return w, nil
}

func (s *StorageGCS) ReadFile(name string) (*File, error) {
	r, err := s.bucket.Object(name).NewReader(context.Background())
	if err != nil {
		return nil, err
	}
	return &File{
		Reader:     r,
		ModifiedAt: r.Attrs.LastModified,
		Size:       r.Attrs.Size,
	}, nil
}

func (s *StorageGCS) DeleteFile(name string) error {
	return s.bucket.Object(name).Delete(context.Background())
}

func (s *StorageGCS) Exists(name string) (bool, error) {
	_, err := s.bucket.Object(name).Attrs(context.Background())
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *StorageGCS) URL(name string) (string, error) {
	if !s.isPublic {
		return "", ErrNoPublicUrl
	}
	return "https://storage.googleapis.com/" + s.bucketName + "/" + name, nil
}

func (s *StorageGCS) Close() error {
	return s.client.Close()
}
