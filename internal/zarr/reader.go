package zarr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"

	"github.com/pithecene-io/dsszarr/store"
)

// ReadMeta reads the .zarray document of the array at node.
func ReadMeta(ctx context.Context, st store.Store, node string) (*ArrayMeta, error) {
	var meta ArrayMeta
	if err := readJSON(ctx, st, path.Join(node, ArrayKey), &meta); err != nil {
		return nil, fmt.Errorf("zarr: read meta %q: %w", node, err)
	}
	if meta.ZarrFormat != 2 {
		return nil, fmt.Errorf("zarr: %q: unsupported zarr_format %d", node, meta.ZarrFormat)
	}
	if meta.Order != "" && meta.Order != "C" {
		return nil, fmt.Errorf("zarr: %q: unsupported order %q", node, meta.Order)
	}
	return &meta, nil
}

// ReadAttrs reads the .zattrs document of node. A missing document is empty.
func ReadAttrs(ctx context.Context, st store.Store, node string) (map[string]any, error) {
	attrs := map[string]any{}
	err := readJSON(ctx, st, path.Join(node, AttrsKey), &attrs)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("zarr: read attrs %q: %w", node, err)
	}
	return attrs, nil
}

// ReadConsolidated reads the .zmetadata document under root.
func ReadConsolidated(ctx context.Context, st store.Store, root string) (*Consolidated, error) {
	var doc Consolidated
	if err := readJSON(ctx, st, path.Join(root, ConsolidatedKey), &doc); err != nil {
		return nil, fmt.Errorf("zarr: read consolidated %q: %w", root, err)
	}
	return &doc, nil
}

// ReadFloat64 reads a whole <f8 array.
func ReadFloat64(ctx context.Context, st store.Store, node string) ([]float64, *ArrayMeta, error) {
	return readArray(ctx, st, node, func(m *ArrayMeta) bool { return m.DType == DTypeFloat64 },
		math.NaN(), getFloat64)
}

// ReadInt64 reads a whole <i8 array.
func ReadInt64(ctx context.Context, st store.Store, node string) ([]int64, *ArrayMeta, error) {
	return readArray(ctx, st, node, func(m *ArrayMeta) bool { return m.DType == DTypeInt64 },
		0, getInt64)
}

// ReadStrings reads a whole fixed-width unicode array.
func ReadStrings(ctx context.Context, st store.Store, node string) ([]string, *ArrayMeta, error) {
	return readArray(ctx, st, node, func(m *ArrayMeta) bool { return len(m.DType) > 2 && m.DType[:2] == "<U" },
		"", getUnicode)
}

func readArray[T any](ctx context.Context, st store.Store, node string, accept func(*ArrayMeta) bool,
	fill T, get func([]byte) T) ([]T, *ArrayMeta, error) {
	meta, err := ReadMeta(ctx, st, node)
	if err != nil {
		return nil, nil, err
	}
	if !accept(meta) {
		return nil, nil, fmt.Errorf("zarr: %q: unexpected dtype %q", node, meta.DType)
	}
	size, err := itemSize(meta.DType)
	if err != nil {
		return nil, nil, err
	}
	comp, err := compressorFor(meta.Compressor)
	if err != nil {
		return nil, nil, err
	}

	n := 1
	for _, d := range meta.Shape {
		n *= d
	}
	data := make([]T, n)
	for i := range data {
		data[i] = fill
	}

	err = eachChunk(GridShape(meta.Shape, meta.Chunks), func(idx []int) error {
		raw, err := readAll(ctx, st, path.Join(node, ChunkKey(idx)))
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if comp != nil {
			if raw, err = comp.Decode(raw); err != nil {
				return err
			}
		}
		decodeChunk(raw, data, meta.Shape, meta.Chunks, idx, size, get)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("zarr: read %q: %w", node, err)
	}
	return data, meta, nil
}
