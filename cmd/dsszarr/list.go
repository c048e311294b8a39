package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/pithecene-io/dsszarr/dsszarr"
	"github.com/pithecene-io/dsszarr/internal/config"
	"github.com/pithecene-io/dsszarr/internal/objstore"
	"github.com/pithecene-io/dsszarr/store/s3"
)

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	bucket := fs.String("bucket", "", "bucket to list")
	prefix := fs.String("prefix", "", "key prefix")
	suffix := fs.String("suffix", objstore.SourceSuffix, "key suffix filter (empty for all keys)")
	envFile := fs.String("env", "", "dotenv file to load (default: .env if present)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: dsszarr list -bucket <bucket> [options]

List source files under a bucket prefix, one key per line.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *bucket == "" {
		fs.Usage()
		return fmt.Errorf("%w: -bucket is required", dsszarr.ErrConfiguration)
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := s3.NewClient(ctx, clientCfg)
	if err != nil {
		return fmt.Errorf("%w: %w", dsszarr.ErrConfiguration, err)
	}
	st, err := s3.New(client, s3.Config{Bucket: *bucket})
	if err != nil {
		return err
	}

	keys, err := objstore.ListKeys(ctx, st, *prefix, *suffix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}
