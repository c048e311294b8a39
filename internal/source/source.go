// Package source reads time series out of HEC-DSS containers.
//
// Binary DSS decoding is not done in-process: a Container is backed either
// by an external decoder (see Exec) or by an in-memory Catalog. Everything
// above this package sees only pathnames and float64 series.
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pithecene-io/dsszarr/internal/pathname"
)

var (
	// ErrPatternMatch indicates the container could not be catalogued or no
	// record matched the pathname pattern.
	ErrPatternMatch = errors.New("pathname pattern match")

	// ErrRecordNotFound indicates a read of a pathname the container does not hold.
	ErrRecordNotFound = errors.New("record not found")
)

// Container is an opened source container.
type Container interface {
	// Catalog lists every record pathname in the container.
	Catalog(ctx context.Context) ([]pathname.Pathname, error)

	// Read returns the values of a record. A pathname with a blank D field
	// reads every block sharing the stem, concatenated in block date order.
	Read(ctx context.Context, p pathname.Pathname) ([]float64, error)

	// Close releases the container.
	Close() error
}

// Opener opens a container materialized at a local path.
type Opener interface {
	Open(ctx context.Context, localPath string) (Container, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, localPath string) (Container, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, localPath string) (Container, error) {
	return f(ctx, localPath)
}

// Match catalogs c and returns the pathnames selected by pattern.
// Catalog failures and empty selections wrap ErrPatternMatch.
func Match(ctx context.Context, c Container, pattern pathname.Pattern) ([]pathname.Pathname, error) {
	all, err := c.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: %w", ErrPatternMatch, err)
	}
	matched := pattern.Filter(all)
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: no records match %s (%d in catalog)", ErrPatternMatch, pattern, len(all))
	}
	return matched, nil
}

// blockDateLayouts are the D-part date forms written by HEC tools.
var blockDateLayouts = []string{"02Jan2006", "2Jan2006", "02January2006"}

// blockStart parses the start date of a D field such as "01JAN2000" or
// "14Jan1996 - 07Feb1996".
func blockStart(d string) (time.Time, bool) {
	first := strings.TrimSpace(strings.SplitN(d, "-", 2)[0])
	for _, layout := range blockDateLayouts {
		// HEC writes upper-case month names; time.Parse wants "Jan".
		if t, err := time.Parse(layout, titleMonth(first)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// titleMonth turns "01JAN2000" into "01Jan2000".
func titleMonth(s string) string {
	b := []byte(strings.ToLower(s))
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
			break
		}
	}
	return string(b)
}

// sortBlocks orders pathnames by the start date in field D. Unparseable
// dates sort after parseable ones, lexically.
func sortBlocks(blocks []pathname.Pathname) {
	sort.SliceStable(blocks, func(i, j int) bool {
		di, _ := blocks[i].Raw(pathname.Time)
		dj, _ := blocks[j].Raw(pathname.Time)
		ti, oki := blockStart(di)
		tj, okj := blockStart(dj)
		switch {
		case oki && okj:
			return ti.Before(tj)
		case oki != okj:
			return oki
		default:
			return di < dj
		}
	})
}
