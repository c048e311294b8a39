package pathname

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrMalformedPattern indicates a pattern that cannot be compiled.
var ErrMalformedPattern = errors.New("malformed pathname pattern")

// Pattern selects pathnames with one glob per field.
//
// Globs follow path.Match syntax ("*", "?", "[...]") and compare
// case-insensitively, as DSS catalogs do. Fields absent from the pattern
// match anything.
type Pattern struct {
	raw    string
	fields []string
}

// ParsePattern compiles a pattern such as "/*/*/FLOW/*/*/*/".
func ParsePattern(s string) (Pattern, error) {
	if !strings.HasPrefix(s, "/") {
		return Pattern{}, fmt.Errorf("%w: %q must start with '/'", ErrMalformedPattern, s)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "/"), "/")
	parts := strings.Split(body, "/")
	if len(parts) > NumFields {
		return Pattern{}, fmt.Errorf("%w: %q has %d fields, at most %d allowed",
			ErrMalformedPattern, s, len(parts), NumFields)
	}

	fields := make([]string, len(parts))
	for i, part := range parts {
		glob := strings.ToUpper(part)
		if _, err := path.Match(glob, ""); err != nil {
			return Pattern{}, fmt.Errorf("%w: field %s %q: %w", ErrMalformedPattern, Roles[i], part, err)
		}
		fields[i] = glob
	}
	return Pattern{raw: s, fields: fields}, nil
}

// VariablePattern selects every record of the given variable (field C).
func VariablePattern(variable string) (Pattern, error) {
	return ParsePattern(fmt.Sprintf("/*/*/%s/*/*/*/", variable))
}

// Match reports whether p satisfies the pattern.
func (pt Pattern) Match(p Pathname) bool {
	for i, glob := range pt.fields {
		if glob == "*" {
			continue
		}
		// Compiled globs were validated in ParsePattern.
		ok, _ := path.Match(glob, strings.ToUpper(p.fields[i]))
		if !ok {
			return false
		}
	}
	return true
}

// Filter returns the pathnames matching the pattern, preserving order.
func (pt Pattern) Filter(pathnames []Pathname) []Pathname {
	var out []Pathname
	for _, p := range pathnames {
		if pt.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// String returns the pattern as written.
func (pt Pattern) String() string {
	return pt.raw
}
