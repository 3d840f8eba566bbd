// Package storage keeps uploaded course files.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a key has no stored blob.
var ErrNotFound = errors.New("blob not found")

// BlobStore stores opaque files under keys it assigns.
type BlobStore interface {
	// Put stores r and returns the canonical key. ext is appended to the
	// generated key so downloads keep their type.
	Put(ctx context.Context, ext string, r io.Reader) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
