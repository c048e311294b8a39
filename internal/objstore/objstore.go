// Package objstore holds the object-level helpers the conversion pipeline
// needs on top of store.Store: source preflight, key listing, JSON reads
// and streaming downloads.
package objstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/pithecene-io/dsszarr/store"
)

// SourceSuffix is the file suffix every source container key must carry.
const SourceSuffix = ".dss"

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// CheckSource verifies that key names an existing source container.
//
// The suffix is checked before any store call, so a misnamed key never
// reaches the network. Both failure modes wrap store.ErrNotFound.
func CheckSource(ctx context.Context, st store.Store, key string) error {
	if !strings.HasSuffix(key, SourceSuffix) {
		return fmt.Errorf("%w: %q is not a %s file", store.ErrNotFound, key, SourceSuffix)
	}
	ok, err := st.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("objstore: check %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, key)
	}
	return nil
}

// ListKeys returns the sorted keys under prefix that end with suffix.
// An empty suffix keeps every key.
func ListKeys(ctx context.Context, st store.Store, prefix, suffix string) ([]string, error) {
	keys, err := st.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("objstore: list %q: %w", prefix, err)
	}
	out := keys[:0]
	for _, k := range keys {
		if strings.HasSuffix(k, suffix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// ReadJSON decodes the JSON object at key into v.
func ReadJSON(ctx context.Context, st store.Store, key string, v any) error {
	rc, err := st.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("objstore: read %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()

	if err := jsonCodec.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("objstore: decode %s: %w", key, err)
	}
	return nil
}

// Fetch streams the object at key into w and returns the byte count.
func Fetch(ctx context.Context, st store.Store, key string, w io.Writer) (int64, error) {
	rc, err := st.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("objstore: fetch %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()

	n, err := io.Copy(w, rc)
	if err != nil {
		return n, fmt.Errorf("objstore: fetch %s: %w", key, err)
	}
	return n, nil
}
