// Package table exports an assembled array as a long-format parquet table:
// one row per (event, element, time_index) cell.
package table

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/parquet-go/parquet-go"

	"github.com/pithecene-io/dsszarr/internal/assemble"
	"github.com/pithecene-io/dsszarr/store"
)

// Row is one cell of the array.
type Row struct {
	Event     string  `parquet:"event,dict"`
	Element   string  `parquet:"element,dict"`
	TimeIndex int64   `parquet:"time_index,delta"`
	Value     float64 `parquet:"value"`
}

// Compression selects the parquet page compression.
type Compression int

const (
	// CompressionSnappy uses Snappy compression (default).
	CompressionSnappy Compression = iota
	// CompressionZstd uses Zstandard compression.
	CompressionZstd
	// CompressionGzip uses Gzip compression.
	CompressionGzip
	// CompressionNone disables compression.
	CompressionNone
)

// ParseCompression maps a compressor name to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "snappy":
		return CompressionSnappy, nil
	case "zstd":
		return CompressionZstd, nil
	case "gzip":
		return CompressionGzip, nil
	case "none":
		return CompressionNone, nil
	}
	return 0, fmt.Errorf("table: unknown compression %q", name)
}

func (c Compression) option() parquet.WriterOption {
	switch c {
	case CompressionZstd:
		return parquet.Compression(&parquet.Zstd)
	case CompressionGzip:
		return parquet.Compression(&parquet.Gzip)
	case CompressionNone:
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Snappy)
	}
}

// Options configures Write.
type Options struct {
	Compression Compression

	// SkipNaN drops cells whose value is NaN.
	SkipNaN bool
}

// Rows flattens a in C order.
func Rows(a *assemble.Array, skipNaN bool) []Row {
	rows := make([]Row, 0, len(a.Data))
	for e, ev := range a.Events {
		for el, name := range a.Elements {
			for t := 0; t < a.Steps; t++ {
				v := a.At(e, el, t)
				if skipNaN && math.IsNaN(v) {
					continue
				}
				rows = append(rows, Row{Event: ev, Element: name, TimeIndex: int64(t), Value: v})
			}
		}
	}
	return rows
}

// Encode writes a as a parquet file to w and returns the row count.
func Encode(w io.Writer, a *assemble.Array, opts Options) (int, error) {
	rows := Rows(a, opts.SkipNaN)

	pw := parquet.NewGenericWriter[Row](w, opts.Compression.option())
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return 0, fmt.Errorf("table: write rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return 0, fmt.Errorf("table: close writer: %w", err)
	}
	return len(rows), nil
}

// Write encodes a and stores it at key. An existing object is not replaced.
func Write(ctx context.Context, st store.Store, key string, a *assemble.Array, opts Options) (int, error) {
	var buf bytes.Buffer
	n, err := Encode(&buf, a, opts)
	if err != nil {
		return 0, err
	}
	if err := st.Put(ctx, key, &buf); err != nil {
		return 0, fmt.Errorf("table: put %s: %w", key, err)
	}
	return n, nil
}

// Read loads every row stored at key.
func Read(ctx context.Context, st store.Store, key string) ([]Row, error) {
	rc, err := st.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("table: get %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("table: read %s: %w", key, err)
	}
	if len(data) == 0 {
		return nil, errors.New("table: empty file")
	}
	rows, err := parquet.Read[Row](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("table: decode %s: %w", key, err)
	}
	return rows, nil
}
