package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/pithecene-io/dsszarr/dsszarr"
	"github.com/pithecene-io/dsszarr/internal/config"
	"github.com/pithecene-io/dsszarr/internal/source"
	"github.com/pithecene-io/dsszarr/store/s3"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, " ") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	paramsFile := fs.String("params", "", "YAML or JSON parameter file")
	envFile := fs.String("env", "", "dotenv file to load (default: .env if present)")
	decoder := fs.String("decoder", os.Getenv("DSSZARR_DECODER"), "DSS decoder command (env DSSZARR_DECODER)")
	var decoderArgs stringList
	fs.Var(&decoderArgs, "decoder-arg", "argument passed to the decoder before the verb (repeatable)")
	scratchDir := fs.String("scratch-dir", "", "directory for the local copy of the source file")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", "json", "log format: json or text")

	var p dsszarr.Params
	fs.StringVar(&p.SourceBucket, "source-bucket", "", "bucket holding the source file")
	fs.StringVar(&p.SourceKey, "source-key", "", "key of the source .dss file")
	fs.StringVar(&p.DestBucket, "dest-bucket", "", "output bucket (must equal -source-bucket)")
	fs.StringVar(&p.DestPrefix, "dest-prefix", "", "key prefix of the output hierarchy")
	fs.StringVar(&p.GroupID, "group-id", "", "parent group name (default main_group)")
	fs.StringVar(&p.VariableName, "variable", "", "pathname part C to convert (default FLOW)")
	fs.StringVar(&p.SubGroupName, "sub-group", "", "sub group name (default sub_group)")
	fs.BoolVar(&p.UseCustomParser, "custom-parser", false, "resolve events with the run-context parser")
	fs.StringVar(&p.ParserContext, "parser-context", "", "context expected by the custom parser (default: sub group)")
	fs.StringVar(&p.MetadataKey, "metadata-key", "", "JSON object attached to the dataset attributes")
	fs.BoolVar(&p.TableExport, "table", false, "also write a long-format parquet table")
	fs.BoolVar(&p.StrictDuplicates, "strict", false, "fail on duplicate (event, element) series")
	fs.BoolVar(&p.ContinueOnError, "continue-on-error", false, "skip unreadable records instead of aborting")
	fs.StringVar(&p.Compressor, "compressor", "", "chunk compressor: zstd, gzip, none (default zstd)")
	fs.IntVar(&p.CompressionLevel, "level", 0, "compression level (default: codec default)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: dsszarr convert [options]

Convert one DSS file in S3 into a Zarr hierarchy at
<dest-prefix>/<group-id>/<sub-group>/<variable>.
Flags override values from -params.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := newLogger(os.Stderr, *logLevel, *logFormat)
	if err != nil {
		return fmt.Errorf("%w: %w", dsszarr.ErrConfiguration, err)
	}

	if *paramsFile != "" {
		fromFile, err := config.LoadParams(*paramsFile)
		if err != nil {
			return err
		}
		p = mergeParams(fs, fromFile, p)
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	if err := config.LoadEnv(envFiles...); err != nil {
		return err
	}
	clientCfg, err := config.S3Config(os.Getenv)
	if err != nil {
		return err
	}
	if *decoder == "" {
		return fmt.Errorf("%w: -decoder or DSSZARR_DECODER is required", dsszarr.ErrConfiguration)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := s3.NewClient(ctx, clientCfg)
	if err != nil {
		return fmt.Errorf("%w: %w", dsszarr.ErrConfiguration, err)
	}

	opts := []dsszarr.Option{dsszarr.WithLogger(logger)}
	if *scratchDir != "" {
		opts = append(opts, dsszarr.WithScratchDir(*scratchDir))
	}
	conv, err := dsszarr.New(s3.Factory(client), source.Exec{
		Command: *decoder,
		Args:    decoderArgs,
		Logger:  logger,
	}, opts...)
	if err != nil {
		return err
	}

	res, err := conv.Convert(ctx, p)
	if err != nil {
		return err
	}

	out, err := jsonCodec.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// mergeParams overlays the flags explicitly set on fs onto base.
func mergeParams(fs *flag.FlagSet, base, flags dsszarr.Params) dsszarr.Params {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source-bucket":
			base.SourceBucket = flags.SourceBucket
		case "source-key":
			base.SourceKey = flags.SourceKey
		case "dest-bucket":
			base.DestBucket = flags.DestBucket
		case "dest-prefix":
			base.DestPrefix = flags.DestPrefix
		case "group-id":
			base.GroupID = flags.GroupID
		case "variable":
			base.VariableName = flags.VariableName
		case "sub-group":
			base.SubGroupName = flags.SubGroupName
		case "custom-parser":
			base.UseCustomParser = flags.UseCustomParser
		case "parser-context":
			base.ParserContext = flags.ParserContext
		case "metadata-key":
			base.MetadataKey = flags.MetadataKey
		case "table":
			base.TableExport = flags.TableExport
		case "strict":
			base.StrictDuplicates = flags.StrictDuplicates
		case "continue-on-error":
			base.ContinueOnError = flags.ContinueOnError
		case "compressor":
			base.Compressor = flags.Compressor
		case "level":
			base.CompressionLevel = flags.CompressionLevel
		}
	})
	return base
}
