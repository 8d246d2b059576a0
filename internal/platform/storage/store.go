package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	gcs "cloud.google.com/go/storage"
)

// ErrObjectNotFound indicates that the requested object does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// Object holds the payload and metadata of a stored blob.
type Object struct {
	Data        []byte
	ContentType string
}

// BlobStore persists binary objects under bucket/path keys.
type BlobStore interface {
	Write(ctx context.Context, bucket, object string, payload Object) error
	Read(ctx context.Context, bucket, object string) (Object, error)
	Exists(ctx context.Context, bucket, object string) (bool, error)
	Delete(ctx context.Context, bucket, object string) error
}

// GCSStore implements BlobStore on top of Cloud Storage.
type GCSStore struct {
	client *gcs.Client
}

// NewGCSStore constructs a GCSStore backed by the provided Cloud Storage client.
func NewGCSStore(client *gcs.Client) (*GCSStore, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Write(ctx context.Context, bucket, object string, payload Object) error {
	bucket, object, err := validateObjectKey(bucket, object)
	if err != nil {
		return err
	}

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if payload.ContentType != "" {
		w.ContentType = payload.ContentType
	}
	if _, err := w.Write(payload.Data); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: write object %s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: write object %s/%s: %w", bucket, object, err)
	}
	return nil
}

func (s *GCSStore) Read(ctx context.Context, bucket, object string) (Object, error) {
	bucket, object, err := validateObjectKey(bucket, object)
	if err != nil {
		return Object{}, err
	}

	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return Object{}, ErrObjectNotFound
		}
		return Object{}, fmt.Errorf("storage: read object %s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return Object{}, fmt.Errorf("storage: read object %s/%s: %w", bucket, object, err)
	}
	return Object{Data: buf.Bytes(), ContentType: r.Attrs.ContentType}, nil
}

func (s *GCSStore) Exists(ctx context.Context, bucket, object string) (bool, error) {
	bucket, object, err := validateObjectKey(bucket, object)
	if err != nil {
		return false, err
	}

	_, err = s.client.Bucket(bucket).Object(object).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat object %s/%s: %w", bucket, object, err)
	}
	return true, nil
}

func (s *GCSStore) Delete(ctx context.Context, bucket, object string) error {
	bucket, object, err := validateObjectKey(bucket, object)
	if err != nil {
		return err
	}

	if err := s.client.Bucket(bucket).Object(object).Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("storage: delete object %s/%s: %w", bucket, object, err)
	}
	return nil
}

// MemoryStore is an in-memory BlobStore for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (s *MemoryStore) Write(_ context.Context, bucket, object string, payload Object) error {
	bucket, object, err := validateObjectKey(bucket, object)
	if err != nil {
		return err
	}

	stored := Object{
		Data:        append([]byte(nil), payload.Data...),
		ContentType: payload.ContentType,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[memoryKey(bucket, object)] = stored
	return nil
}

func (s *MemoryStore) Read(_ context.Context, bucket, object string) (Object, error) {
	bucket, object, err := validateObjectKey(bucket, object)
	if err != nil {
		return Object{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.objects[memoryKey(bucket, object)]
	if !ok {
		return Object{}, ErrObjectNotFound
	}
	return Object{
		Data:        append([]byte(nil), stored.Data...),
		ContentType: stored.ContentType,
	}, nil
}

func (s *MemoryStore) Exists(_ context.Context, bucket, object string) (bool, error) {
	bucket, object, err := validateObjectKey(bucket, object)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[memoryKey(bucket, object)]
	return ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, bucket, object string) error {
	bucket, object, err := validateObjectKey(bucket, object)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := memoryKey(bucket, object)
	if _, ok := s.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func validateObjectKey(bucket, object string) (string, string, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return "", "", errInvalidBucket
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return "", "", errInvalidObject
	}
	return bucket, object, nil
}

func memoryKey(bucket, object string) string {
	return bucket + "/" + object
}
