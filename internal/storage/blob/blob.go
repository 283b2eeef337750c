// Package blob stores opaque documents by key on the local filesystem or an
// S3-compatible bucket.
package blob

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Read when nothing is stored under the key.
var ErrNotExist = errors.New("blob does not exist")

// Storage is a flat key/value document store. Write replaces the whole
// document atomically.
type Storage interface {
	// Write stores data at the given key
	Write(ctx context.Context, key string, data []byte) error

	// Read retrieves data from the given key. A missing key is ErrNotExist;
	// any other failure is returned as is.
	Read(ctx context.Context, key string) ([]byte, error)
}
