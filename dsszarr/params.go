package dsszarr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pithecene-io/dsszarr/internal/zarr"
)

// Defaults for optional parameters.
const (
	DefaultGroupID      = "main_group"
	DefaultVariableName = "FLOW"
	DefaultSubGroupName = "sub_group"
	DefaultCompressor   = zarr.CompressorZstd
)

// Params are the invocation parameters of one conversion.
type Params struct {
	// SourceBucket holds the source container. Required.
	SourceBucket string `yaml:"source_bucket" json:"source_bucket"`

	// SourceKey is the source container key; must end in ".dss". Required.
	SourceKey string `yaml:"source_key" json:"source_key"`

	// DestBucket receives the output. Required; must equal SourceBucket.
	DestBucket string `yaml:"dest_bucket" json:"dest_bucket"`

	// DestPrefix is the key prefix of the output hierarchy root. Required.
	DestPrefix string `yaml:"dest_prefix" json:"dest_prefix"`

	GroupID      string `yaml:"group_id" json:"group_id"`
	VariableName string `yaml:"variable_name" json:"variable_name"`
	SubGroupName string `yaml:"sub_group_name" json:"sub_group_name"`

	// UseCustomParser resolves event keys with the run-context parser.
	UseCustomParser bool `yaml:"use_custom_parser" json:"use_custom_parser"`

	// ParserContext is the context the custom parser expects.
	// Defaults to SubGroupName.
	ParserContext string `yaml:"parser_context" json:"parser_context"`

	// MetadataKey names a JSON object in the source bucket whose fields
	// are attached to the output dataset attributes.
	MetadataKey string `yaml:"metadata_key" json:"metadata_key"`

	// TableExport also writes a long-format parquet table next to the array.
	TableExport bool `yaml:"table_export" json:"table_export"`

	// StrictDuplicates fails on repeated (event, element) pairs instead of
	// overwriting with a warning.
	StrictDuplicates bool `yaml:"strict_duplicates" json:"strict_duplicates"`

	// ContinueOnError records per-record failures instead of aborting.
	ContinueOnError bool `yaml:"continue_on_error" json:"continue_on_error"`

	Compressor       string `yaml:"compressor" json:"compressor"`
	CompressionLevel int    `yaml:"compression_level" json:"compression_level"`
}

// WithDefaults returns a copy of p with empty optional fields defaulted.
func (p Params) WithDefaults() Params {
	if p.GroupID == "" {
		p.GroupID = DefaultGroupID
	}
	if p.VariableName == "" {
		p.VariableName = DefaultVariableName
	}
	if p.SubGroupName == "" {
		p.SubGroupName = DefaultSubGroupName
	}
	if p.ParserContext == "" {
		p.ParserContext = p.SubGroupName
	}
	if p.Compressor == "" {
		p.Compressor = DefaultCompressor
	}
	if p.CompressionLevel == 0 && p.Compressor == zarr.CompressorZstd {
		p.CompressionLevel = zarr.DefaultZstdLevel
	}
	return p
}

// Validate checks p after defaulting. Every failure wraps ErrConfiguration.
func (p Params) Validate() error {
	var errs []error
	for _, req := range []struct{ name, value string }{
		{"source_bucket", p.SourceBucket},
		{"source_key", p.SourceKey},
		{"dest_bucket", p.DestBucket},
		{"dest_prefix", p.DestPrefix},
	} {
		if strings.TrimSpace(req.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", req.name))
		}
	}
	if strings.TrimSpace(p.DestPrefix) != "" && strings.Trim(p.DestPrefix, "/ ") == "" {
		errs = append(errs, fmt.Errorf("dest_prefix %q resolves to the bucket root", p.DestPrefix))
	}
	if p.DestBucket != "" && p.SourceBucket != "" && p.DestBucket != p.SourceBucket {
		errs = append(errs, fmt.Errorf("dest_bucket %q differs from source_bucket %q: multi-bucket transfers are not supported",
			p.DestBucket, p.SourceBucket))
	}
	for _, name := range []struct{ field, value string }{
		{"group_id", p.GroupID},
		{"variable_name", p.VariableName},
		{"sub_group_name", p.SubGroupName},
	} {
		if name.value == "" || strings.ContainsAny(name.value, "/\\") || name.value == "." || name.value == ".." {
			errs = append(errs, fmt.Errorf("%s %q is not a valid node name", name.field, name.value))
		}
	}
	if _, err := zarr.NewCompressor(p.Compressor, p.CompressionLevel); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}
