// Package testutil provides helpers for examples and tests.
package testutil

import (
	"os"
	"path/filepath"
)

// RemoveAll removes the path and any children. Errors are ignored.
// Use for defer cleanup of scratch directories in examples.
//
// Usage:
//
//	defer testutil.RemoveAll(tmpDir)
func RemoveAll(path string) { _ = os.RemoveAll(path) }

// MkdirAll creates each named directory under root. Filesystem stores
// require their root to exist, so examples create one directory per
// bucket up front.
func MkdirAll(root string, dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return err
		}
	}
	return nil
}
