package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/pithecene-io/dsszarr/internal/pathname"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

var errClosed = errors.New("source: container closed")

// Exec opens containers through an external decoder command.
//
// The decoder is a black box speaking a two-verb protocol:
//
//	<command> [args...] catalog <file>          one pathname per line on stdout
//	<command> [args...] read <file> <pathname>  {"values": [...]} on stdout
//
// JSON has no NaN, so a missing value is written as null or the string
// "NaN"; both decode to math.NaN().
//
// A pathname with a blank D field asks the decoder for the condensed series
// across all blocks. Anything the decoder prints on stderr is forwarded to
// Logger at debug level, so chatty decoders stay out of the caller's output.
type Exec struct {
	// Command is the decoder executable. Required.
	Command string

	// Args are inserted before the verb.
	Args []string

	// Env is appended to the current process environment.
	Env []string

	// Logger receives decoder stderr. Nil discards it.
	Logger *slog.Logger
}

// readResponse is the decoder's reply to a read verb.
type readResponse struct {
	Pathname string     `json:"pathname,omitempty"`
	Values   *[]any `json:"values"`
}

// series converts decoded values, mapping null and "NaN" to NaN.
func (r readResponse) series() ([]float64, error) {
	out := make([]float64, len(*r.Values))
	for i, v := range *r.Values {
		switch v := v.(type) {
		case nil:
			out[i] = math.NaN()
		case float64:
			out[i] = v
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("value %d: %w", i, err)
			}
			out[i] = f
		default:
			return nil, fmt.Errorf("value %d: unexpected %T", i, v)
		}
	}
	return out, nil
}

// Open verifies localPath exists and returns a container bound to it.
func (e Exec) Open(_ context.Context, localPath string) (Container, error) {
	if e.Command == "" {
		return nil, errors.New("source: decoder command is required")
	}
	if _, err := os.Stat(localPath); err != nil {
		return nil, fmt.Errorf("source: open %s: %w", localPath, err)
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &execContainer{cfg: e, path: localPath, logger: logger}, nil
}

type execContainer struct {
	cfg    Exec
	path   string
	logger *slog.Logger
	closed bool
}

func (c *execContainer) run(ctx context.Context, verb string, extra ...string) ([]byte, error) {
	if c.closed {
		return nil, errClosed
	}

	args := append(append([]string{}, c.cfg.Args...), verb, c.path)
	args = append(args, extra...)

	cmd := exec.CommandContext(ctx, c.cfg.Command, args...)
	cmd.Env = append(os.Environ(), c.cfg.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	c.forwardStderr(verb, stderr.Bytes())
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[len(msg)-512:]
		}
		return nil, fmt.Errorf("source: decoder %s: %w: %s", verb, err, msg)
	}
	return stdout.Bytes(), nil
}

func (c *execContainer) forwardStderr(verb string, data []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			c.logger.Debug("decoder output", "verb", verb, "line", line)
		}
	}
}

func (c *execContainer) Catalog(ctx context.Context) ([]pathname.Pathname, error) {
	out, err := c.run(ctx, "catalog")
	if err != nil {
		return nil, err
	}

	var pathnames []pathname.Pathname
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p, err := pathname.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("source: decoder catalog: %w", err)
		}
		pathnames = append(pathnames, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("source: decoder catalog: %w", err)
	}
	return pathnames, nil
}

func (c *execContainer) Read(ctx context.Context, p pathname.Pathname) ([]float64, error) {
	out, err := c.run(ctx, "read", p.String())
	if err != nil {
		return nil, err
	}

	var resp readResponse
	if err := jsonCodec.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("source: decoder read %s: %w", p, err)
	}
	if resp.Values == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, p)
	}
	values, err := resp.series()
	if err != nil {
		return nil, fmt.Errorf("source: decoder read %s: %w", p, err)
	}
	return values, nil
}

func (c *execContainer) Close() error {
	c.closed = true
	return nil
}
