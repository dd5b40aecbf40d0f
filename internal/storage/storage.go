package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"saasan/internal/config"

	"github.com/google/uuid"
)

var (
	// ErrInvalidRef is returned when a storage ref was not produced by the store.
	ErrInvalidRef = errors.New("invalid storage ref")
	// ErrUnsupportedType is returned by stores that only hold some content types.
	ErrUnsupportedType = errors.New("content type not supported by store")
)

// Object is a single evidence file handed to a BlobStore.
type Object struct {
	Name        string // original file name, used for the extension only
	ContentType string
	Data        []byte
}

// BlobStore is the external home of evidence files. Put returns an opaque
// ref that Delete later releases.
type BlobStore interface {
	Put(ctx context.Context, obj Object) (string, error)
	Delete(ctx context.Context, ref string) error
	Close() error
}

// TypeFilter is implemented by stores that refuse some content types, so
// callers can reject a file before anything is uploaded.
type TypeFilter interface {
	Accepts(contentType string) bool
}

// Accepts reports whether store takes contentType. Stores without a
// TypeFilter take everything.
func Accepts(store BlobStore, contentType string) bool {
	if f, ok := store.(TypeFilter); ok {
		return f.Accepts(contentType)
	}
	return true
}

// New builds the BlobStore selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Backend {
	case config.StorageLocal:
		return NewLocal(cfg.LocalDir)
	case config.StorageGCS:
		return NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
	case config.StorageImgur:
		return NewImgur(cfg.ImgurClientID, cfg.ImgurBaseURL, cfg.UploadTimeout), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// objectKey returns a collision-free key that keeps the original extension.
func objectKey(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return uuid.NewString() + ext
}
