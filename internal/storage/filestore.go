package storage

import (
	"context"
	"io"
)

// FileStore persists attachment bytes. The report store keeps only metadata;
// the returned key is the storage locator saved on the attachment row.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
