package dsszarr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/pithecene-io/dsszarr/internal/assemble"
	"github.com/pithecene-io/dsszarr/internal/eventkey"
	"github.com/pithecene-io/dsszarr/internal/extract"
	"github.com/pithecene-io/dsszarr/internal/objstore"
	"github.com/pithecene-io/dsszarr/internal/pathname"
	"github.com/pithecene-io/dsszarr/internal/source"
	"github.com/pithecene-io/dsszarr/internal/table"
	"github.com/pithecene-io/dsszarr/internal/zarr"
	"github.com/pithecene-io/dsszarr/store"
)

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

// Option configures a Converter.
type Option interface {
	apply(*Converter) error
}

type loggerOption struct {
	logger *slog.Logger
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return &loggerOption{logger: l}
}

func (o *loggerOption) apply(c *Converter) error {
	if o.logger == nil {
		return fmt.Errorf("WithLogger: %w: nil logger", ErrConfiguration)
	}
	c.logger = o.logger
	return nil
}

type scratchDirOption struct {
	dir string
}

// WithScratchDir sets the directory for the local source copy.
// Default: os.TempDir().
func WithScratchDir(dir string) Option {
	return &scratchDirOption{dir: dir}
}

func (o *scratchDirOption) apply(c *Converter) error {
	info, err := os.Stat(o.dir)
	if err != nil {
		return fmt.Errorf("WithScratchDir: %w: %w", ErrConfiguration, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("WithScratchDir: %w: %s is not a directory", ErrConfiguration, o.dir)
	}
	c.scratchDir = o.dir
	return nil
}

type schemeOption struct {
	scheme string
}

// WithScheme sets the URL scheme of Result.OutputLocation. Default: "s3".
func WithScheme(scheme string) Option {
	return &schemeOption{scheme: scheme}
}

func (o *schemeOption) apply(c *Converter) error {
	if o.scheme == "" {
		return fmt.Errorf("WithScheme: %w: empty scheme", ErrConfiguration)
	}
	c.scheme = o.scheme
	return nil
}

// -----------------------------------------------------------------------------
// Converter
// -----------------------------------------------------------------------------

// Converter runs conversions. It holds no per-run state and may be reused.
type Converter struct {
	stores     store.Factory
	opener     source.Opener
	logger     *slog.Logger
	scratchDir string
	scheme     string
}

// New creates a Converter that opens buckets through stores and decodes
// source containers through opener.
func New(stores store.Factory, opener source.Opener, opts ...Option) (*Converter, error) {
	if stores == nil {
		return nil, fmt.Errorf("%w: store factory is required", ErrConfiguration)
	}
	if opener == nil {
		return nil, fmt.Errorf("%w: source opener is required", ErrConfiguration)
	}
	c := &Converter{
		stores: stores,
		opener: opener,
		logger: slog.New(slog.DiscardHandler),
		scheme: "s3",
	}
	for _, opt := range opts {
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Convert runs one conversion.
//
// Configuration errors are returned as-is. Every other failure is logged
// before being returned; preflight failures leave the destination untouched.
func (c *Converter) Convert(ctx context.Context, params Params) (*Result, error) {
	p := params.WithDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := c.logger.With("conversion_id", id)

	res, err := c.convert(ctx, p, id, logger)
	if err != nil {
		logger.Error("conversion failed",
			"source", objectURL(c.scheme, p.SourceBucket, p.SourceKey), "error", err)
		return nil, err
	}
	return res, nil
}

func (c *Converter) convert(ctx context.Context, p Params, id string, logger *slog.Logger) (*Result, error) {
	st, err := c.stores(ctx, p.SourceBucket)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", p.SourceBucket, err)
	}

	if err := objstore.CheckSource(ctx, st, p.SourceKey); err != nil {
		return nil, err
	}
	logger.Info("converting", "source", objectURL(c.scheme, p.SourceBucket, p.SourceKey),
		"variable", p.VariableName, "custom_parser", p.UseCustomParser)

	attrs := map[string]any{}
	if p.MetadataKey != "" {
		if err := objstore.ReadJSON(ctx, st, p.MetadataKey, &attrs); err != nil {
			return nil, err
		}
	}

	pattern, err := pathname.VariablePattern(p.VariableName)
	if err != nil {
		return nil, err
	}
	var resolver eventkey.Resolver = eventkey.Default{}
	if p.UseCustomParser {
		resolver = eventkey.NewRunContext(p.ParserContext)
	}

	grouped, report, err := extract.Extract(ctx, st, p.SourceKey, extract.Options{
		Pattern:         pattern,
		Resolver:        resolver,
		Opener:          c.opener,
		Logger:          logger,
		Strict:          p.StrictDuplicates,
		ContinueOnError: p.ContinueOnError,
		ScratchDir:      c.scratchDir,
	})
	if err != nil {
		return nil, err
	}

	arr, err := assemble.Build(grouped, p.VariableName)
	if err != nil {
		return nil, err
	}
	for i, ev := range arr.Events {
		logger.Debug("event range", "event", ev, "min", arr.Min(i), "max", arr.Max(i))
	}

	comp, err := zarr.NewCompressor(p.Compressor, p.CompressionLevel)
	if err != nil {
		return nil, err
	}
	w, err := zarr.NewWriter(st, p.DestPrefix, zarr.WithCompressor(comp), zarr.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	attrs["conversion_id"] = id
	attrs["source"] = objectURL(c.scheme, p.SourceBucket, p.SourceKey)
	attrs["variable_name"] = p.VariableName
	if p.UseCustomParser {
		attrs["parser_context"] = p.ParserContext
	}

	ds := zarr.Dataset{GroupID: p.GroupID, SubGroup: p.SubGroupName, Array: arr, Attrs: attrs}
	if err := zarr.WriteDataset(ctx, w, ds); err != nil {
		return nil, err
	}

	res := &Result{
		ConversionID:   id,
		OutputLocation: objectURL(c.scheme, p.DestBucket, w.Root()),
		Dataset:        ds.Path(),
		Shape:          arr.Shape(),
		Successes:      report.Successes,
		Failures:       make([]Failure, 0, len(report.Failures)),
	}
	for _, f := range report.Failures {
		res.Failures = append(res.Failures, Failure{Pathname: f.Pathname, Error: f.Err.Error(), err: f.Err})
	}

	if p.TableExport {
		key := path.Join(w.Root(), ds.Path(), p.VariableName+".parquet")
		comp, err := table.ParseCompression(p.Compressor)
		if err != nil {
			return nil, err
		}
		n, err := table.Write(ctx, st, key, arr, table.Options{Compression: comp})
		if err != nil {
			return nil, err
		}
		res.Table = key
		logger.Info("wrote table", "key", key, "rows", n)
	}

	logger.Info("conversion complete", "output", res.OutputLocation, "dataset", res.Dataset,
		"shape", res.Shape, "successes", len(res.Successes), "failures", len(res.Failures))
	return res, nil
}

func objectURL(scheme, bucket, key string) string {
	return scheme + "://" + bucket + "/" + strings.TrimPrefix(key, "/")
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
