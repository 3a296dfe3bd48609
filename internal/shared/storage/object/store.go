package object

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("object not found")

// Object describes a stored upload.
type Object struct {
	Key      string
	Size     int64
	MimeType string
}

// ObjectStore saves and retrieves binary objects such as uploaded documents
// and drafting templates.
type ObjectStore interface {
	// Save stores an upload under the owner's namespace and sniffs its MIME type.
	Save(ctx context.Context, ownerID, fileName string, r io.Reader) (Object, error)
	// Put writes r at an exact key.
	Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// List returns keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ReadAll opens key and reads it fully.
func ReadAll(ctx context.Context, store ObjectStore, key string) ([]byte, error) {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
