package zarr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math"
	"path"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/pithecene-io/dsszarr/store"
)

var (
	// ErrArrayExists indicates an array already exists at the target path.
	ErrArrayExists = errors.New("array exists")

	// ErrNodeConflict indicates a group was requested where an array lives.
	ErrNodeConflict = errors.New("node conflict")
)

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

// Option configures a Writer.
type Option interface {
	apply(*Writer) error
}

type compressorOption struct {
	c Compressor
}

// WithCompressor sets the chunk compressor. Nil writes raw chunks.
// Default: zstd at DefaultZstdLevel.
func WithCompressor(c Compressor) Option {
	return &compressorOption{c: c}
}

func (o *compressorOption) apply(w *Writer) error {
	w.compressor = o.c
	return nil
}

type loggerOption struct {
	l *slog.Logger
}

// WithLogger sets the writer's logger.
func WithLogger(l *slog.Logger) Option {
	return &loggerOption{l: l}
}

func (o *loggerOption) apply(w *Writer) error {
	if o.l == nil {
		return errors.New("zarr: WithLogger: nil logger")
	}
	w.logger = o.l
	return nil
}

// -----------------------------------------------------------------------------
// Writer
// -----------------------------------------------------------------------------

// Writer creates groups and arrays under a root path of a store.
//
// Groups are created in append mode: an existing group is kept and its
// attributes are merged. Arrays are never overwritten.
type Writer struct {
	store      store.Store
	root       string
	compressor Compressor
	logger     *slog.Logger
}

// NewWriter returns a Writer rooted at root ("" for the store root).
func NewWriter(st store.Store, root string, opts ...Option) (*Writer, error) {
	if st == nil {
		return nil, errors.New("zarr: store is required")
	}
	c, err := NewCompressor(CompressorZstd, DefaultZstdLevel)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		store:      st,
		root:       strings.Trim(root, "/"),
		compressor: c,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if err := opt.apply(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Root returns the root path.
func (w *Writer) Root() string {
	return w.root
}

func (w *Writer) key(node, name string) string {
	return path.Join(w.root, node, name)
}

// Group ensures a group exists at node and merges attrs into its .zattrs.
func (w *Writer) Group(ctx context.Context, node string, attrs map[string]any) error {
	isArray, err := w.store.Exists(ctx, w.key(node, ArrayKey))
	if err != nil {
		return fmt.Errorf("zarr: group %q: %w", node, err)
	}
	if isArray {
		return fmt.Errorf("%w: %q is an array", ErrNodeConflict, node)
	}

	err = w.putJSON(ctx, w.key(node, GroupKey), GroupMeta{ZarrFormat: 2}, false)
	switch {
	case err == nil:
		w.logger.Debug("created group", "path", w.key(node, ""))
	case errors.Is(err, store.ErrPathExists):
		w.logger.Debug("appending to existing group", "path", w.key(node, ""))
	default:
		return fmt.Errorf("zarr: group %q: %w", node, err)
	}

	return w.mergeAttrs(ctx, node, attrs)
}

func (w *Writer) mergeAttrs(ctx context.Context, node string, attrs map[string]any) error {
	key := w.key(node, AttrsKey)
	merged := map[string]any{}
	if err := readJSON(ctx, w.store, key, &merged); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("zarr: attrs %q: %w", node, err)
	}
	maps.Copy(merged, attrs)
	if err := w.putJSON(ctx, key, merged, true); err != nil {
		return fmt.Errorf("zarr: attrs %q: %w", node, err)
	}
	return nil
}

// ArraySpec describes an array to create.
type ArraySpec struct {
	// Path is the array node relative to the writer root.
	Path string

	Shape  []int
	Chunks []int

	// Dims names each dimension; written as _ARRAY_DIMENSIONS.
	Dims []string

	Attrs map[string]any
}

func (s ArraySpec) validate(n int) error {
	if s.Path == "" {
		return errors.New("zarr: array path is required")
	}
	if len(s.Chunks) != len(s.Shape) {
		return fmt.Errorf("zarr: array %q: %d chunk dims for %d shape dims", s.Path, len(s.Chunks), len(s.Shape))
	}
	if s.Dims != nil && len(s.Dims) != len(s.Shape) {
		return fmt.Errorf("zarr: array %q: %d dimension names for %d dims", s.Path, len(s.Dims), len(s.Shape))
	}
	size := 1
	for i, d := range s.Shape {
		if d < 0 || s.Chunks[i] < 1 {
			return fmt.Errorf("zarr: array %q: invalid shape %v / chunks %v", s.Path, s.Shape, s.Chunks)
		}
		size *= d
	}
	if size != n {
		return fmt.Errorf("zarr: array %q: %d values for shape %v", s.Path, n, s.Shape)
	}
	return nil
}

// Float64 creates an <f8 array filled with NaN.
func (w *Writer) Float64(ctx context.Context, spec ArraySpec, data []float64) error {
	if err := spec.validate(len(data)); err != nil {
		return err
	}
	return writeArray(ctx, w, spec, DTypeFloat64, "NaN", data, 8, math.NaN(), putFloat64)
}

// Int64 creates an <i8 array filled with 0.
func (w *Writer) Int64(ctx context.Context, spec ArraySpec, data []int64) error {
	if err := spec.validate(len(data)); err != nil {
		return err
	}
	return writeArray(ctx, w, spec, DTypeInt64, 0, data, 8, 0, putInt64)
}

// Strings creates a fixed-width unicode array sized to the longest value.
func (w *Writer) Strings(ctx context.Context, spec ArraySpec, data []string) error {
	if err := spec.validate(len(data)); err != nil {
		return err
	}
	n := maxRunes(data)
	return writeArray(ctx, w, spec, DTypeUnicode(n), nil, data, 4*n, "", putUnicode)
}

func writeArray[T any](ctx context.Context, w *Writer, spec ArraySpec, dtype string, fillJSON any,
	data []T, size int, fill T, put func([]byte, T)) error {
	meta := ArrayMeta{
		Chunks:     spec.Chunks,
		DType:      dtype,
		FillValue:  fillJSON,
		Order:      "C",
		Shape:      spec.Shape,
		ZarrFormat: 2,
	}
	if w.compressor != nil {
		meta.Compressor = w.compressor.Config()
	}

	isGroup, err := w.store.Exists(ctx, w.key(spec.Path, GroupKey))
	if err != nil {
		return fmt.Errorf("zarr: array %q: %w", spec.Path, err)
	}
	if isGroup {
		return fmt.Errorf("%w: %q is a group", ErrNodeConflict, spec.Path)
	}

	if err := w.putJSON(ctx, w.key(spec.Path, ArrayKey), meta, false); err != nil {
		if errors.Is(err, store.ErrPathExists) {
			return fmt.Errorf("%w: %s", ErrArrayExists, w.key(spec.Path, ""))
		}
		return fmt.Errorf("zarr: array %q: %w", spec.Path, err)
	}

	attrs := maps.Clone(spec.Attrs)
	if attrs == nil {
		attrs = map[string]any{}
	}
	if spec.Dims != nil {
		attrs[DimensionsAttr] = spec.Dims
	}
	if err := w.putJSON(ctx, w.key(spec.Path, AttrsKey), attrs, true); err != nil {
		return fmt.Errorf("zarr: array %q: %w", spec.Path, err)
	}

	chunks := 0
	err = eachChunk(GridShape(spec.Shape, spec.Chunks), func(idx []int) error {
		raw := encodeChunk(data, spec.Shape, spec.Chunks, idx, size, fill, put)
		if w.compressor != nil {
			var encErr error
			if raw, encErr = w.compressor.Encode(raw); encErr != nil {
				return encErr
			}
		}
		chunks++
		return w.store.Replace(ctx, w.key(spec.Path, ChunkKey(idx)), bytes.NewReader(raw))
	})
	if err != nil {
		return fmt.Errorf("zarr: array %q chunks: %w", spec.Path, err)
	}

	w.logger.Debug("wrote array", "path", w.key(spec.Path, ""), "dtype", dtype,
		"shape", spec.Shape, "chunks", chunks)
	return nil
}

// Consolidate rewrites the root .zmetadata from every metadata document
// under the root.
func (w *Writer) Consolidate(ctx context.Context) error {
	prefix := w.root
	if prefix != "" {
		prefix += "/"
	}
	keys, err := w.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("zarr: consolidate: %w", err)
	}

	doc := Consolidated{
		Metadata:               map[string]jsoniter.RawMessage{},
		ZarrConsolidatedFormat: 1,
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		switch path.Base(k) {
		case GroupKey, AttrsKey, ArrayKey:
		default:
			continue
		}
		raw, err := readAll(ctx, w.store, k)
		if err != nil {
			return fmt.Errorf("zarr: consolidate %s: %w", k, err)
		}
		if !jsonCodec.Valid(raw) {
			return fmt.Errorf("zarr: consolidate %s: invalid JSON", k)
		}
		doc.Metadata[strings.TrimPrefix(k, prefix)] = raw
	}

	if err := w.putJSON(ctx, w.key("", ConsolidatedKey), doc, true); err != nil {
		return fmt.Errorf("zarr: consolidate: %w", err)
	}
	w.logger.Debug("consolidated metadata", "root", w.root, "entries", len(doc.Metadata))
	return nil
}

func (w *Writer) putJSON(ctx context.Context, key string, v any, overwrite bool) error {
	data, err := jsonCodec.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	if overwrite {
		return w.store.Replace(ctx, key, bytes.NewReader(data))
	}
	return w.store.Put(ctx, key, bytes.NewReader(data))
}

func readAll(ctx context.Context, st store.Store, key string) ([]byte, error) {
	rc, err := st.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func readJSON(ctx context.Context, st store.Store, key string, v any) error {
	raw, err := readAll(ctx, st, key)
	if err != nil {
		return err
	}
	return jsonCodec.Unmarshal(raw, v)
}
