package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/pithecene-io/dsszarr/dsszarr"
)

var version = "dev"

var commands = map[string]func([]string) error{
	"convert": runConvert,
	"list":    runList,
}

func usage() {
	fmt.Fprintf(os.Stderr, `dsszarr - HEC-DSS to Zarr converter (version %s)

Usage:
  dsszarr <command> [options]

Commands:
  convert    Convert one DSS file in S3 into a Zarr hierarchy in the same bucket
  list       List DSS files under a bucket prefix

Credentials are read from AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY,
after loading a .env file if one is present.

Run 'dsszarr <command> -h' for command-specific help.
`, version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage()
		os.Exit(0)
	}
	if cmd == "-v" || cmd == "--version" || cmd == "version" {
		fmt.Println(version)
		os.Exit(0)
	}

	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err := fn(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, dsszarr.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
