// Package config loads conversion parameters and object-store settings for
// the command line.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/dsszarr/dsszarr"
	"github.com/pithecene-io/dsszarr/store/s3"
)

// Environment variables read by S3Config.
const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvSessionToken    = "AWS_SESSION_TOKEN"
	EnvRegion          = "AWS_REGION"
	EnvDefaultRegion   = "AWS_DEFAULT_REGION"
	EnvEndpoint        = "AWS_ENDPOINT_URL"
	EnvPathStyle       = "DSSZARR_S3_PATH_STYLE"
)

// DefaultEnvFile is loaded by LoadEnv when no file is named.
const DefaultEnvFile = ".env"

// ParseParams decodes a YAML (or JSON) parameter document.
// Unknown keys are rejected.
func ParseParams(r io.Reader) (dsszarr.Params, error) {
	var p dsszarr.Params
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return p, fmt.Errorf("%w: empty parameter document", dsszarr.ErrConfiguration)
		}
		return p, fmt.Errorf("%w: %w", dsszarr.ErrConfiguration, err)
	}
	return p, nil
}

// LoadParams reads a parameter file.
func LoadParams(path string) (dsszarr.Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dsszarr.Params{}, fmt.Errorf("%w: read params %s: %w", dsszarr.ErrConfiguration, path, err)
	}
	return ParseParams(bytes.NewReader(data))
}

// LoadEnv loads dotenv files into the process environment without
// overriding variables that are already set. With no arguments it loads
// DefaultEnvFile if present; named files must exist.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		err := gotenv.Load(DefaultEnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: load %s: %w", dsszarr.ErrConfiguration, DefaultEnvFile, err)
		}
		return nil
	}
	if err := gotenv.Load(files...); err != nil {
		return fmt.Errorf("%w: load env: %w", dsszarr.ErrConfiguration, err)
	}
	return nil
}

// S3Config builds the S3 client configuration from getenv.
// Static credentials are required.
func S3Config(getenv func(string) string) (s3.ClientConfig, error) {
	id, secret := getenv(EnvAccessKeyID), getenv(EnvSecretAccessKey)
	if id == "" || secret == "" {
		return s3.ClientConfig{}, fmt.Errorf("%w: %s and %s must be set",
			dsszarr.ErrConfiguration, EnvAccessKeyID, EnvSecretAccessKey)
	}

	cfg := s3.ClientConfig{
		Region:      getenv(EnvRegion),
		Endpoint:    getenv(EnvEndpoint),
		Credentials: s3.StaticCredentials(id, secret, getenv(EnvSessionToken)),
	}
	if cfg.Region == "" {
		cfg.Region = getenv(EnvDefaultRegion)
	}
	if v := getenv(EnvPathStyle); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return s3.ClientConfig{}, fmt.Errorf("%w: %s=%q: %w", dsszarr.ErrConfiguration, EnvPathStyle, v, err)
		}
		cfg.UsePathStyle = b
	}
	return cfg, nil
}
