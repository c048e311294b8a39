// Package zarr writes and reads Zarr v2 hierarchies on a store.Store.
//
// Only the subset needed for labeled time-series cubes is implemented:
// little-endian f8/i8 and fixed-width unicode arrays, C order, "." chunk
// separator, zstd/gzip/no compression, and consolidated metadata.
package zarr

import (
	"fmt"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Metadata keys.
const (
	GroupKey        = ".zgroup"
	AttrsKey        = ".zattrs"
	ArrayKey        = ".zarray"
	ConsolidatedKey = ".zmetadata"
)

// DimensionsAttr is the attribute xarray reads dimension names from.
const DimensionsAttr = "_ARRAY_DIMENSIONS"

// Data types.
const (
	DTypeFloat64 = "<f8"
	DTypeInt64   = "<i8"
)

// DTypeUnicode returns the fixed-width unicode dtype for n code points.
func DTypeUnicode(n int) string {
	return fmt.Sprintf("<U%d", n)
}

// ArrayMeta is the .zarray document.
type ArrayMeta struct {
	Chunks             []int             `json:"chunks"`
	Compressor         *CompressorConfig `json:"compressor"`
	DimensionSeparator string            `json:"dimension_separator,omitempty"`
	DType              string            `json:"dtype"`
	FillValue          any               `json:"fill_value"`
	Filters            []any             `json:"filters"`
	Order              string            `json:"order"`
	Shape              []int             `json:"shape"`
	ZarrFormat         int               `json:"zarr_format"`
}

// CompressorConfig is the .zarray compressor entry.
type CompressorConfig struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

// GroupMeta is the .zgroup document.
type GroupMeta struct {
	ZarrFormat int `json:"zarr_format"`
}

// Consolidated is the .zmetadata document.
type Consolidated struct {
	Metadata               map[string]jsoniter.RawMessage `json:"metadata"`
	ZarrConsolidatedFormat int                            `json:"zarr_consolidated_format"`
}

// itemSize returns the byte width of one element of dtype.
func itemSize(dtype string) (int, error) {
	switch dtype {
	case DTypeFloat64, DTypeInt64:
		return 8, nil
	}
	var n int
	if _, err := fmt.Sscanf(dtype, "<U%d", &n); err == nil && n > 0 {
		return 4 * n, nil
	}
	return 0, fmt.Errorf("zarr: unsupported dtype %q", dtype)
}

// maxRunes returns the longest string length in code points, at least 1.
func maxRunes(values []string) int {
	n := 1
	for _, v := range values {
		if c := utf8.RuneCountInString(v); c > n {
			n = c
		}
	}
	return n
}
