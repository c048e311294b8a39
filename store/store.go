// Package store abstracts the object storage that dsszarr reads source
// containers from and writes Zarr hierarchies to.
//
// The interface is intentionally small: every backend (filesystem, memory,
// S3) provides the same key-addressed operations with the same error
// semantics, so the conversion pipeline never sees backend-specific errors.
package store

import (
	"context"
	"errors"
	"io"
)

// -----------------------------------------------------------------------------
// Store interface
// -----------------------------------------------------------------------------

// Store abstracts the underlying object storage system.
type Store interface {
	// Put writes data to the given path.
	// Returns ErrPathExists if the path already exists.
	Put(ctx context.Context, path string, r io.Reader) error

	// Replace writes data to the given path, overwriting any existing object.
	Replace(ctx context.Context, path string, r io.Reader) error

	// Get retrieves data from the given path.
	// Returns ErrNotFound if the path does not exist.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists checks whether a path exists.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns paths under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the path if it exists.
	Delete(ctx context.Context, path string) error
}

// Factory opens the Store addressing a single bucket.
type Factory func(ctx context.Context, bucket string) (Store, error)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// Error sentinel values for common conditions.
var (
	// ErrNotFound indicates a requested object does not exist.
	ErrNotFound = errNotFound{}

	// ErrPathExists indicates an attempt to Put to an existing path.
	ErrPathExists = errPathExists{}

	// ErrInvalidPath indicates a path that is empty or would escape the storage root.
	ErrInvalidPath = errors.New("invalid path: escapes storage root")
)

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

type errPathExists struct{}

func (errPathExists) Error() string { return "path exists" }

// closer returns a function that closes c, discarding the error.
func closer(c io.Closer) func() {
	return func() { _ = c.Close() }
}
