package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound reports that no blob exists under the requested key. The
// transfer coordinator treats this as a storage inconsistency when metadata
// says the transfer is still active.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the byte storage for encrypted payloads. Implementations
// must treat blob contents as opaque and never persist decrypted output.
type BlobStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
