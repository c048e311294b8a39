package source

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/pithecene-io/dsszarr/internal/pathname"
)

// -----------------------------------------------------------------------------
// Catalog container
// -----------------------------------------------------------------------------

func testCatalog() Catalog {
	return Catalog{
		"//ALDERSON/FLOW/01FEB2000/1Hour/RUN:Y001-E0001/": {4, 5, 6},
		"//ALDERSON/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/": {1, 2, 3},
		"//ALDERSON/STAGE/01JAN2000/1Hour/RUN:Y001-E0001/": {9, 9, 9},
	}
}

func TestCatalog_ReadStemConcatenatesInDateOrder(t *testing.T) {
	ctx := t.Context()
	c, err := testCatalog().Opener().Open(ctx, "ignored.dss")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	stem := pathname.MustParse("//ALDERSON/FLOW//1Hour/RUN:Y001-E0001/")
	got, err := c.Read(ctx, stem)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if want := []float64{1, 2, 3, 4, 5, 6}; !slices.Equal(got, want) {
		t.Errorf("Read = %v, want %v", got, want)
	}
}

func TestCatalog_ReadExactBlock(t *testing.T) {
	ctx := t.Context()
	c, _ := testCatalog().Opener().Open(ctx, "")

	got, err := c.Read(ctx, pathname.MustParse("//ALDERSON/FLOW/01FEB2000/1Hour/RUN:Y001-E0001/"))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []float64{4, 5, 6}) {
		t.Errorf("Read = %v", got)
	}

	_, err = c.Read(ctx, pathname.MustParse("//NOWHERE/FLOW//1Hour/RUN:Y001-E0001/"))
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestCatalog_ClosedContainer(t *testing.T) {
	ctx := t.Context()
	c, _ := testCatalog().Opener().Open(ctx, "")
	_ = c.Close()
	if _, err := c.Catalog(ctx); err == nil {
		t.Error("expected error from closed container")
	}
}

// -----------------------------------------------------------------------------
// Match
// -----------------------------------------------------------------------------

func TestMatch(t *testing.T) {
	ctx := t.Context()
	c, _ := testCatalog().Opener().Open(ctx, "")

	flow, _ := pathname.VariablePattern("FLOW")
	got, err := Match(ctx, c, flow)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 FLOW records, got %d", len(got))
	}

	precip, _ := pathname.VariablePattern("PRECIP")
	_, err = Match(ctx, c, precip)
	if !errors.Is(err, ErrPatternMatch) {
		t.Errorf("expected ErrPatternMatch for empty selection, got %v", err)
	}
}

func TestMatch_CatalogFailure(t *testing.T) {
	ctx := t.Context()
	bad := Catalog{"not-a-pathname": {1}}
	if _, err := bad.Opener().Open(ctx, ""); !errors.Is(err, pathname.ErrMalformedPathname) {
		t.Errorf("expected ErrMalformedPathname, got %v", err)
	}

	c, _ := testCatalog().Opener().Open(ctx, "")
	_ = c.Close()
	flow, _ := pathname.VariablePattern("FLOW")
	if _, err := Match(ctx, c, flow); !errors.Is(err, ErrPatternMatch) {
		t.Errorf("expected ErrPatternMatch, got %v", err)
	}
}

// -----------------------------------------------------------------------------
// Block ordering
// -----------------------------------------------------------------------------

func TestSortBlocks(t *testing.T) {
	blocks := []pathname.Pathname{
		pathname.MustParse("//B/FLOW/01MAR1996/1Hour/F/"),
		pathname.MustParse("//B/FLOW/garbage/1Hour/F/"),
		pathname.MustParse("//B/FLOW/14Jan1996 - 07Feb1996/1Hour/F/"),
		pathname.MustParse("//B/FLOW/01DEC1995/1Hour/F/"),
	}
	sortBlocks(blocks)

	var got []string
	for _, b := range blocks {
		d, _ := b.Raw(pathname.Time)
		got = append(got, d)
	}
	want := []string{"01DEC1995", "14Jan1996 - 07Feb1996", "01MAR1996", "garbage"}
	if !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

// -----------------------------------------------------------------------------
// Exec decoder (helper process pattern)
// -----------------------------------------------------------------------------

const helperStem = "//ALDERSON/FLOW//1Hour/RUN:Y001-E0001/"

// TestHelperProcess is not a real test; it impersonates the external
// decoder when invoked by the Exec tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_DECODER_HELPER") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}

	fmt.Fprintln(os.Stderr, "-----DSS--- zopen   Existing file opened")
	switch args[0] {
	case "catalog":
		fmt.Println("//ALDERSON/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/")
		fmt.Println("")
		fmt.Println("//ALDERSON/FLOW/01FEB2000/1Hour/RUN:Y001-E0001/")
	case "read":
		if args[2] != helperStem {
			fmt.Println(`{"pathname":"` + args[2] + `"}`)
			break
		}
		fmt.Println(`{"pathname":"` + args[2] + `","values":[1.5,null,3.5,"NaN"]}`)
	default:
		fmt.Fprintln(os.Stderr, "unknown verb")
		os.Exit(2)
	}
	os.Exit(0)
}

func helperDecoder(logger *slog.Logger) Exec {
	return Exec{
		Command: os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--"},
		Env:     []string{"GO_WANT_DECODER_HELPER=1"},
		Logger:  logger,
	}
}

func scratchFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "Y001.dss")
	if err := os.WriteFile(p, []byte("ZDSS"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestExec_CatalogAndRead(t *testing.T) {
	ctx := t.Context()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c, err := helperDecoder(logger).Open(ctx, scratchFile(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	catalog, err := c.Catalog(ctx)
	if err != nil {
		t.Fatalf("Catalog failed: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("expected 2 pathnames, got %d", len(catalog))
	}

	stems := pathname.DeduplicateByTimeField(catalog)
	if len(stems) != 1 || stems[0].String() != helperStem {
		t.Fatalf("unexpected stems %v", stems)
	}

	values, err := c.Read(ctx, stems[0])
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(values) != 4 || values[0] != 1.5 || values[2] != 3.5 {
		t.Fatalf("Read = %v", values)
	}
	if !math.IsNaN(values[1]) || !math.IsNaN(values[3]) {
		t.Errorf("missing values should read as NaN, got %v", values)
	}

	if !strings.Contains(logs.String(), "zopen") {
		t.Errorf("decoder stderr not forwarded to logger: %q", logs.String())
	}
}

func TestExec_ReadMissingValues(t *testing.T) {
	ctx := t.Context()
	c, err := helperDecoder(nil).Open(ctx, scratchFile(t))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Read(ctx, pathname.MustParse("//OTHER/FLOW//1Hour/RUN:Y001-E0001/"))
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestExec_OpenMissingFile(t *testing.T) {
	_, err := helperDecoder(nil).Open(t.Context(), filepath.Join(t.TempDir(), "absent.dss"))
	if err == nil {
		t.Error("expected error for missing local file")
	}
}

func TestExec_RequiresCommand(t *testing.T) {
	if _, err := (Exec{}).Open(t.Context(), scratchFile(t)); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestReadResponse_Series(t *testing.T) {
	var resp readResponse
	if err := jsonCodec.Unmarshal([]byte(`{"values":[1,null,3,"NaN","2.5"]}`), &resp); err != nil {
		t.Fatal(err)
	}
	got, err := resp.series()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 || got[0] != 1 || got[2] != 3 || got[4] != 2.5 {
		t.Errorf("series = %v", got)
	}
	if !math.IsNaN(got[1]) || !math.IsNaN(got[3]) {
		t.Errorf("null and \"NaN\" should decode to NaN, got %v", got)
	}

	bad := readResponse{}
	if err := jsonCodec.Unmarshal([]byte(`{"values":[true]}`), &bad); err != nil {
		t.Fatal(err)
	}
	if _, err := bad.series(); err == nil {
		t.Error("expected error for non-numeric value")
	}
}
