// Package extract pulls every series of one variable out of a source
// container in object storage and groups it by event and element.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/pithecene-io/dsszarr/internal/eventkey"
	"github.com/pithecene-io/dsszarr/internal/objstore"
	"github.com/pithecene-io/dsszarr/internal/pathname"
	"github.com/pithecene-io/dsszarr/internal/source"
	"github.com/pithecene-io/dsszarr/store"
)

// ErrDuplicateSeries indicates two stems resolved to the same (event, element)
// pair while Options.Strict was set.
var ErrDuplicateSeries = errors.New("duplicate series")

// Options configures Extract.
type Options struct {
	// Pattern selects the records to read. Required.
	Pattern pathname.Pattern

	// Resolver maps run fields to event keys. Defaults to eventkey.Default.
	Resolver eventkey.Resolver

	// Opener opens the downloaded container. Required.
	Opener source.Opener

	// Logger receives progress and warnings. Nil discards.
	Logger *slog.Logger

	// Strict fails on duplicate (event, element) pairs instead of overwriting.
	Strict bool

	// ContinueOnError records per-stem read and resolve failures in the
	// report and keeps going instead of aborting.
	ContinueOnError bool

	// ScratchDir holds the temporary local copy. Defaults to os.TempDir().
	ScratchDir string
}

// Failure is a stem that could not be read or resolved.
type Failure struct {
	Pathname string
	Err      error
}

// Report summarizes an extraction.
type Report struct {
	// Matched is the number of catalog records selected by the pattern.
	Matched int

	// Successes lists the stems read, in processing order.
	Successes []string

	// Failures lists stems skipped under ContinueOnError.
	Failures []Failure
}

// Extract downloads key from st, reads every stem matching opts.Pattern and
// groups the series by event key (resolved from field F) and element key
// (field B). The local copy is removed on every exit path.
func Extract(ctx context.Context, st store.Store, key string, opts Options) (*Grouped, *Report, error) {
	if opts.Opener == nil {
		return nil, nil, errors.New("extract: opener is required")
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = eventkey.Default{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	local, err := download(ctx, st, key, opts.ScratchDir)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err := os.Remove(local); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove scratch file", "path", local, "error", err)
		}
	}()

	c, err := opts.Opener.Open(ctx, local)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %w", source.ErrPatternMatch, key, err)
	}
	defer func() { _ = c.Close() }()

	matched, err := source.Match(ctx, c, opts.Pattern)
	if err != nil {
		return nil, nil, err
	}
	stems := pathname.DeduplicateByTimeField(matched)
	logger.Info("matched records", "key", key, "pattern", opts.Pattern.String(),
		"records", len(matched), "stems", len(stems))

	report := &Report{Matched: len(matched)}
	grouped := &Grouped{}

	for _, stem := range stems {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		event, element, values, err := readStem(ctx, c, stem, resolver)
		if err != nil {
			if !opts.ContinueOnError {
				return nil, nil, err
			}
			logger.Warn("skipping record", "pathname", stem.String(), "error", err)
			report.Failures = append(report.Failures, Failure{Pathname: stem.String(), Err: err})
			continue
		}

		if grouped.Has(event, element) {
			if opts.Strict {
				return nil, nil, fmt.Errorf("%w: event %q element %q (%s)", ErrDuplicateSeries, event, element, stem)
			}
			logger.Warn("overwriting duplicate series", "event", event, "element", element, "pathname", stem.String())
		}
		grouped.Insert(event, element, values)
		report.Successes = append(report.Successes, stem.String())
		logger.Debug("read series", "pathname", stem.String(), "event", event, "element", element, "length", len(values))
	}

	return grouped, report, nil
}

func readStem(ctx context.Context, c source.Container, stem pathname.Pathname, resolver eventkey.Resolver) (event, element string, values []float64, err error) {
	element, err = stem.Field(pathname.Element)
	if err != nil {
		return "", "", nil, err
	}
	run, err := stem.Field(pathname.Run)
	if err != nil {
		return "", "", nil, err
	}
	event, err = resolver.Resolve(run)
	if err != nil {
		return "", "", nil, fmt.Errorf("resolve event for %s: %w", stem, err)
	}
	values, err = c.Read(ctx, stem)
	if err != nil {
		return "", "", nil, fmt.Errorf("read %s: %w", stem, err)
	}
	return event, element, values, nil
}

// download copies key into a fresh ".dss" scratch file and returns its path.
func download(ctx context.Context, st store.Store, key, dir string) (string, error) {
	f, err := os.CreateTemp(dir, "dsszarr-*"+objstore.SourceSuffix)
	if err != nil {
		return "", fmt.Errorf("extract: create scratch file: %w", err)
	}
	name := f.Name()

	_, fetchErr := objstore.Fetch(ctx, st, key, f)
	closeErr := f.Close()
	if err := errors.Join(fetchErr, closeErr); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("extract: download %s: %w", key, err)
	}
	return name, nil
}
