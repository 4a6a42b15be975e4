package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

// GCSStorage implements Storage on a Google Cloud Storage bucket. Objects are
// named <prefix>/<user>/<file id>_<name>; the original name travels in object
// metadata.
type GCSStorage struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStorage creates a client using application default credentials.
// STORAGE_EMULATOR_HOST is honored by the client library.
func NewGCSStorage(ctx context.Context, bucket, prefix string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, errors.New("GCS bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// Close releases the client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Upload stores a file and returns its metadata
func (s *GCSStorage) Upload(ctx context.Context, userID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error) {
	fileID := uuid.New()
	name := storedName(fileID, filename)
	object := s.objectName(userID, name)

	wc := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	wc.ContentType = contentType
	wc.Metadata = map[string]string{"file_id": fileID.String(), "name": filename}

	size, err := io.Copy(wc, r)
	if err != nil {
		_ = wc.Close()
		return nil, fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := wc.Close(); err != nil {
		return nil, fmt.Errorf("failed to close GCS writer: %w", err)
	}

	return &FileInfo{
		ID:          fileID,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		Path:        object,
		CreatedAt:   wc.Attrs().Created,
	}, nil
}

// Download retrieves a file by its ID
func (s *GCSStorage) Download(ctx context.Context, userID uuid.UUID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.find(ctx, userID, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.client.Bucket(s.bucket).Object(info.Path).NewReader(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open object: %w", err)
	}
	return rc, info, nil
}

// Delete removes a file by its ID
func (s *GCSStorage) Delete(ctx context.Context, userID uuid.UUID, fileID uuid.UUID) error {
	info, err := s.find(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if err := s.client.Bucket(s.bucket).Object(info.Path).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// List returns all files for a user
func (s *GCSStorage) List(ctx context.Context, userID uuid.UUID) ([]*FileInfo, error) {
	var files []*FileInfo
	err := s.walk(ctx, s.userPrefix(userID), func(info *FileInfo) error {
		files = append(files, info)
		return nil
	})
	return files, err
}

// Purge removes objects under the prefix created before the cutoff
func (s *GCSStorage) Purge(ctx context.Context, before time.Time) (int, error) {
	removed := 0
	root := ""
	if s.prefix != "" {
		root = s.prefix + "/"
	}
	err := s.walk(ctx, root, func(info *FileInfo) error {
		if !info.CreatedAt.Before(before) {
			return nil
		}
		if err := s.client.Bucket(s.bucket).Object(info.Path).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("failed to delete object: %w", err)
		}
		removed++
		return nil
	})
	return removed, err
}

func (s *GCSStorage) find(ctx context.Context, userID, fileID uuid.UUID) (*FileInfo, error) {
	var found *FileInfo
	err := s.walk(ctx, s.userPrefix(userID)+fileID.String()+"_", func(info *FileInfo) error {
		found = info
		return iterator.Done
	})
	if err != nil && !errors.Is(err, iterator.Done) {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	return found, nil
}

func (s *GCSStorage) walk(ctx context.Context, prefix string, fn func(*FileInfo) error) error {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		if err := fn(fileInfoFromAttrs(attrs)); err != nil {
			return err
		}
	}
}

func (s *GCSStorage) userPrefix(userID uuid.UUID) string {
	return s.objectName(userID, "")
}

func (s *GCSStorage) objectName(userID uuid.UUID, name string) string {
	return objectPath(s.prefix, userID, name)
}

func objectPath(prefix string, userID uuid.UUID, name string) string {
	if prefix == "" {
		return userID.String() + "/" + name
	}
	return path.Join(prefix, userID.String()) + "/" + name
}

func fileInfoFromAttrs(attrs *storage.ObjectAttrs) *FileInfo {
	info := &FileInfo{
		Name:        attrs.Metadata["name"],
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Path:        attrs.Name,
		CreatedAt:   attrs.Created,
	}
	if id, err := uuid.Parse(attrs.Metadata["file_id"]); err == nil {
		info.ID = id
	}
	if info.Name == "" {
		info.Name = path.Base(attrs.Name)
	}
	return info
}
