package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMkdirAllAndRemoveAll(t *testing.T) {
	root := filepath.Join(t.TempDir(), "buckets")
	if err := MkdirAll(root, "models", "archive"); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{"models", "archive"} {
		if info, err := os.Stat(filepath.Join(root, d)); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", d, err)
		}
	}

	RemoveAll(root)
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("root still present: %v", err)
	}
}
