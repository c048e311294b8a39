// Package dsszarr converts HEC-DSS time-series containers stored in object
// storage into Zarr v2 hierarchies.
//
// One conversion reads every record of a single variable from one source
// container, groups the series by event (pathname part F) and element
// (part B), assembles a dense (event, element, time_index) array and writes
// it to <dest_prefix>/<group_id>/<sub_group_name>/<variable_name>.
//
// Decoding of the DSS binary format is delegated to a source.Opener, usually
// an external decoder command.
package dsszarr

import (
	"errors"

	"github.com/pithecene-io/dsszarr/internal/assemble"
	"github.com/pithecene-io/dsszarr/internal/eventkey"
	"github.com/pithecene-io/dsszarr/internal/extract"
	"github.com/pithecene-io/dsszarr/internal/pathname"
	"github.com/pithecene-io/dsszarr/internal/source"
	"github.com/pithecene-io/dsszarr/internal/zarr"
	"github.com/pithecene-io/dsszarr/store"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrConfiguration indicates invalid parameters or missing credentials.
	// Configuration errors are returned without being logged.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound indicates the source object is missing or misnamed.
	ErrNotFound = store.ErrNotFound

	// ErrPatternMatch indicates an unreadable container or an empty selection.
	ErrPatternMatch = source.ErrPatternMatch

	// ErrFormat indicates a run field the custom parser cannot split.
	ErrFormat = eventkey.ErrFormat

	// ErrContextMismatch indicates a run field tagged with another context.
	ErrContextMismatch = eventkey.ErrContextMismatch

	// ErrShapeMismatch indicates ragged series that cannot form a dense array.
	ErrShapeMismatch = assemble.ErrShapeMismatch

	// ErrEmpty indicates nothing was extracted.
	ErrEmpty = assemble.ErrEmpty

	// ErrInvalidRole indicates a pathname role outside A..H.
	ErrInvalidRole = pathname.ErrInvalidRole

	// ErrDuplicateSeries indicates a repeated (event, element) pair in strict mode.
	ErrDuplicateSeries = extract.ErrDuplicateSeries

	// ErrArrayExists indicates the destination already holds the output arrays.
	ErrArrayExists = zarr.ErrArrayExists
)

// Typed errors carrying the offending input.
type (
	FormatError          = eventkey.FormatError
	ContextMismatchError = eventkey.ContextMismatchError
	ShapeMismatchError   = assemble.ShapeMismatchError
)

// -----------------------------------------------------------------------------
// Result
// -----------------------------------------------------------------------------

// Failure is a record skipped under ContinueOnError.
type Failure struct {
	Pathname string `json:"pathname"`
	Error    string `json:"error"`

	err error
}

// Err returns the underlying error.
func (f Failure) Err() error { return f.err }

// Result describes a completed conversion.
type Result struct {
	// ConversionID tags the run in logs and dataset attributes.
	ConversionID string `json:"conversion_id"`

	// OutputLocation is the URL of the hierarchy root.
	OutputLocation string `json:"output_location"`

	// Dataset is the sub group path under the root.
	Dataset string `json:"dataset"`

	// Shape is (events, elements, time steps).
	Shape []int `json:"shape"`

	// Table is the parquet export key, if written.
	Table string `json:"table,omitempty"`

	Successes []string  `json:"successes"`
	Failures  []Failure `json:"failures"`
}
