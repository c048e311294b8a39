package zarr

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compressor ids, as registered by numcodecs.
const (
	CompressorZstd = "zstd"
	CompressorGzip = "gzip"
	CompressorNone = "none"
)

// Default levels match numcodecs.
const (
	DefaultZstdLevel = 3
	DefaultGzipLevel = 1
)

// Compressor encodes whole chunks.
type Compressor interface {
	// Config returns the .zarray "compressor" entry.
	Config() *CompressorConfig

	Encode(src []byte) ([]byte, error)
	Decode(src []byte) ([]byte, error)
}

// NewCompressor returns the compressor registered under id.
// A level of zero selects the codec default. "none" and "" return nil,
// which writes uncompressed chunks.
func NewCompressor(id string, level int) (Compressor, error) {
	switch id {
	case CompressorZstd:
		if level == 0 {
			level = DefaultZstdLevel
		}
		return newZstd(level)
	case CompressorGzip:
		if level == 0 {
			level = DefaultGzipLevel
		}
		if level < gzip.HuffmanOnly || level > gzip.BestCompression {
			return nil, fmt.Errorf("zarr: gzip level %d out of range", level)
		}
		return &gzipCompressor{level: level}, nil
	case CompressorNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("zarr: unsupported compressor %q", id)
	}
}

// compressorFor rebuilds a compressor from stored metadata.
func compressorFor(cfg *CompressorConfig) (Compressor, error) {
	if cfg == nil {
		return nil, nil
	}
	return NewCompressor(cfg.ID, cfg.Level)
}

// -----------------------------------------------------------------------------
// Zstd
// -----------------------------------------------------------------------------

type zstdCompressor struct {
	level int
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

func newZstd(level int) (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("zarr: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zarr: zstd decoder: %w", err)
	}
	return &zstdCompressor{level: level, enc: enc, dec: dec}, nil
}

func (z *zstdCompressor) Config() *CompressorConfig {
	return &CompressorConfig{ID: CompressorZstd, Level: z.level}
}

func (z *zstdCompressor) Encode(src []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

func (z *zstdCompressor) Decode(src []byte) ([]byte, error) {
	return z.dec.DecodeAll(src, nil)
}

// -----------------------------------------------------------------------------
// Gzip
// -----------------------------------------------------------------------------

type gzipCompressor struct {
	level int
}

func (g *gzipCompressor) Config() *CompressorConfig {
	return &CompressorConfig{ID: CompressorGzip, Level: g.level}
}

func (g *gzipCompressor) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, g.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *gzipCompressor) Decode(src []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}
