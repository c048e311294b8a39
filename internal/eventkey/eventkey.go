// Package eventkey derives the event grouping key from a pathname's run field.
package eventkey

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultPrefix is the literal that precedes HMS run identifiers ("RUN:Y001-E0001").
const DefaultPrefix = "RUN:"

var (
	// ErrFormat indicates a run field that does not split into context and event.
	ErrFormat = errors.New("run field format")

	// ErrContextMismatch indicates a run field tagged with an unexpected context.
	ErrContextMismatch = errors.New("run context mismatch")
)

// FormatError reports a run field that did not split into exactly two parts.
type FormatError struct {
	Field string
	Parts []string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("expected 2 parts [context, event] in run field %q, got %d %q", e.Field, len(e.Parts), e.Parts)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// ContextMismatchError reports a run field whose context differs from the expected one.
type ContextMismatchError struct {
	Field    string
	Got      string
	Expected string
}

func (e *ContextMismatchError) Error() string {
	return fmt.Sprintf("run field %q: context %q does not match expected %q", e.Field, e.Got, e.Expected)
}

func (e *ContextMismatchError) Unwrap() error { return ErrContextMismatch }

// Resolver maps a run field (pathname part F) to an event key.
type Resolver interface {
	Resolve(runField string) (string, error)
}

// Func adapts a plain function to Resolver.
type Func func(runField string) (string, error)

// Resolve calls f.
func (f Func) Resolve(runField string) (string, error) { return f(runField) }

// Default uses the run field unchanged as the event key.
type Default struct{}

// Resolve returns runField.
func (Default) Resolve(runField string) (string, error) { return runField, nil }

// RunContext remaps "<prefix><context>-<event>" run fields to "<event>",
// rejecting fields whose context is not Context. It catches files whose
// internal run tag disagrees with the year or scenario they were filed under.
type RunContext struct {
	// Prefix is stripped before splitting. Defaults to DefaultPrefix.
	Prefix string

	// Context is the expected first part, e.g. "Y001".
	Context string
}

// NewRunContext returns a RunContext resolver using DefaultPrefix.
func NewRunContext(context string) RunContext {
	return RunContext{Prefix: DefaultPrefix, Context: context}
}

// Resolve splits runField and returns the event part.
func (r RunContext) Resolve(runField string) (string, error) {
	prefix := r.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	parts := strings.Split(strings.TrimPrefix(runField, prefix), "-")
	if len(parts) != 2 {
		return "", &FormatError{Field: runField, Parts: parts}
	}
	if parts[0] != r.Context {
		return "", &ContextMismatchError{Field: runField, Got: parts[0], Expected: r.Context}
	}
	return parts[1], nil
}
