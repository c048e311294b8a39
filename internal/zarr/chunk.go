package zarr

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// GridShape returns the number of chunks along each dimension.
func GridShape(shape, chunks []int) []int {
	grid := make([]int, len(shape))
	for i := range shape {
		grid[i] = (shape[i] + chunks[i] - 1) / chunks[i]
	}
	return grid
}

// ChunkKey renders chunk grid indices as a v2 key such as "0.1.0".
// A 0-d array has the single chunk "0".
func ChunkKey(indices []int) string {
	if len(indices) == 0 {
		return "0"
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ".")
}

// eachChunk calls fn with the grid indices of every chunk in C order.
func eachChunk(grid []int, fn func(idx []int) error) error {
	for _, g := range grid {
		if g == 0 {
			return nil
		}
	}
	idx := make([]int, len(grid))
	for {
		if err := fn(append([]int(nil), idx...)); err != nil {
			return err
		}
		d := len(idx) - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < grid[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return nil
		}
	}
}

// chunkOffsets maps every element of the chunk at idx (C order) to its
// flat offset in the full array, or -1 where the chunk overhangs the edge.
func chunkOffsets(shape, chunks, idx []int) []int {
	n := 1
	for _, c := range chunks {
		n *= c
	}
	out := make([]int, n)
	local := make([]int, len(chunks))
	for i := range out {
		flat, inside := 0, true
		for d := range chunks {
			g := idx[d]*chunks[d] + local[d]
			if g >= shape[d] {
				inside = false
			}
			flat = flat*shape[d] + g
		}
		if inside {
			out[i] = flat
		} else {
			out[i] = -1
		}
		for d := len(local) - 1; d >= 0; d-- {
			local[d]++
			if local[d] < chunks[d] {
				break
			}
			local[d] = 0
		}
	}
	return out
}

// encodeChunk packs the chunk at idx, padding overhang with fill.
func encodeChunk[T any](data []T, shape, chunks, idx []int, size int, fill T, put func([]byte, T)) []byte {
	offsets := chunkOffsets(shape, chunks, idx)
	buf := make([]byte, len(offsets)*size)
	for i, off := range offsets {
		v := fill
		if off >= 0 {
			v = data[off]
		}
		put(buf[i*size:(i+1)*size], v)
	}
	return buf
}

// decodeChunk scatters a raw chunk back into data.
func decodeChunk[T any](raw []byte, data []T, shape, chunks, idx []int, size int, get func([]byte) T) {
	offsets := chunkOffsets(shape, chunks, idx)
	for i, off := range offsets {
		if off < 0 || (i+1)*size > len(raw) {
			continue
		}
		data[off] = get(raw[i*size : (i+1)*size])
	}
}

func putFloat64(b []byte, v float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(v)) }
func getFloat64(b []byte) float64    { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }
func putInt64(b []byte, v int64)     { binary.LittleEndian.PutUint64(b, uint64(v)) }
func getInt64(b []byte) int64        { return int64(binary.LittleEndian.Uint64(b)) }

// putUnicode writes v as zero-padded UTF-32LE.
func putUnicode(b []byte, v string) {
	clear(b)
	i := 0
	for _, r := range v {
		if i+4 > len(b) {
			return
		}
		binary.LittleEndian.PutUint32(b[i:], uint32(r))
		i += 4
	}
}

// getUnicode reads zero-padded UTF-32LE.
func getUnicode(b []byte) string {
	var sb strings.Builder
	for i := 0; i+4 <= len(b); i += 4 {
		r := rune(binary.LittleEndian.Uint32(b[i:]))
		if r == 0 {
			break
		}
		if !utf8.ValidRune(r) {
			r = utf8.RuneError
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
