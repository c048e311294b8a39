package table

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/pithecene-io/dsszarr/internal/assemble"
	"github.com/pithecene-io/dsszarr/internal/extract"
	"github.com/pithecene-io/dsszarr/store"
)

func exampleArray(t *testing.T) *assemble.Array {
	t.Helper()
	var g extract.Grouped
	g.Insert("E1", "A", []float64{1, 2, math.NaN()})
	g.Insert("E1", "B", []float64{4, 5, 6})
	g.Insert("E2", "A", []float64{7, 8, 9})
	g.Insert("E2", "B", []float64{10, 11, 12})
	a, err := assemble.Build(&g, "FLOW")
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestRows(t *testing.T) {
	a := exampleArray(t)

	rows := Rows(a, false)
	if len(rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(rows))
	}
	last := rows[11]
	if last.Event != "E2" || last.Element != "B" || last.TimeIndex != 2 || last.Value != 12 {
		t.Errorf("last row = %+v", last)
	}

	if got := len(Rows(a, true)); got != 11 {
		t.Errorf("expected NaN cell dropped, got %d rows", got)
	}
}

func TestWriteRead(t *testing.T) {
	for _, c := range []Compression{CompressionSnappy, CompressionZstd, CompressionGzip, CompressionNone} {
		ctx := t.Context()
		st := store.NewMemory()

		n, err := Write(ctx, st, "out/main_group/Y001/FLOW.parquet", exampleArray(t), Options{Compression: c, SkipNaN: true})
		if err != nil {
			t.Fatalf("compression %d: Write failed: %v", c, err)
		}
		if n != 11 {
			t.Errorf("compression %d: wrote %d rows", c, n)
		}

		rows, err := Read(ctx, st, "out/main_group/Y001/FLOW.parquet")
		if err != nil {
			t.Fatalf("compression %d: Read failed: %v", c, err)
		}
		if len(rows) != 11 || rows[0] != (Row{Event: "E1", Element: "A", TimeIndex: 0, Value: 1}) {
			t.Errorf("compression %d: rows = %v", c, rows)
		}
	}
}

func TestWrite_NoOverwrite(t *testing.T) {
	ctx := t.Context()
	st := store.NewMemory()
	a := exampleArray(t)

	if _, err := Write(ctx, st, "t.parquet", a, Options{}); err != nil {
		t.Fatal(err)
	}
	if _, err := Write(ctx, st, "t.parquet", a, Options{}); !errors.Is(err, store.ErrPathExists) {
		t.Errorf("expected ErrPathExists, got %v", err)
	}
}

func TestEncode_ParquetMagic(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Encode(&buf, exampleArray(t), Options{}); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if len(b) < 8 || string(b[:4]) != "PAR1" || string(b[len(b)-4:]) != "PAR1" {
		t.Error("output is not a parquet file")
	}
}

func TestParseCompression(t *testing.T) {
	if c, err := ParseCompression("zstd"); err != nil || c != CompressionZstd {
		t.Errorf("zstd = %v, %v", c, err)
	}
	if c, _ := ParseCompression(""); c != CompressionSnappy {
		t.Errorf("default = %v", c)
	}
	if _, err := ParseCompression("lz4"); err == nil {
		t.Error("expected error")
	}
}
