// Package pathname parses and decomposes HEC-DSS record pathnames.
//
// A DSS pathname is a fixed-arity, slash-delimited address. Each position
// carries a role:
//
//	/A/B/C/D/E/F/
//	 |  | | | | +- F: run / simulation identifier ("RUN:Y001-E0001")
//	 |  | | | +--- E: time interval ("1Hour")
//	 |  | | +----- D: timestamp range ("01JAN2000"), the block start date
//	 |  | +------- C: variable ("FLOW")
//	 |  +--------- B: element / location ("ALDERSON")
//	 +------------ A: project or basin
//
// Classic pathnames carry six fields; G and H are reserved extension fields
// that are empty unless present.
package pathname

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Role names a fixed field position within a pathname.
type Role string

// Pathname roles, in positional order.
const (
	A Role = "A"
	B Role = "B"
	C Role = "C"
	D Role = "D"
	E Role = "E"
	F Role = "F"
	G Role = "G"
	H Role = "H"
)

// Semantic aliases for the roles the conversion pipeline reads.
const (
	Element  = B
	Variable = C
	Time     = D
	Run      = F
)

// Roles lists every valid role in positional order.
var Roles = [NumFields]Role{A, B, C, D, E, F, G, H}

const (
	// NumFields is the number of addressable fields.
	NumFields = 8

	// minFields is the arity of a classic DSS pathname.
	minFields = 6
)

var (
	// ErrInvalidRole indicates a role outside A..H.
	ErrInvalidRole = errors.New("invalid pathname role")

	// ErrMalformedPathname indicates a string that is not a DSS pathname.
	ErrMalformedPathname = errors.New("malformed pathname")
)

// index returns the zero-based field position of r.
func (r Role) index() (int, error) {
	for i, role := range Roles {
		if role == r {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q must be one of %v", ErrInvalidRole, string(r), Roles)
}

// Valid reports whether r is one of A..H.
func (r Role) Valid() bool {
	_, err := r.index()
	return err == nil
}

// ParseRole validates s as a role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, err := r.index(); err != nil {
		return "", err
	}
	return r, nil
}

// Pathname is a parsed DSS pathname. The zero value is the empty address.
type Pathname struct {
	fields [NumFields]string
	arity  int
}

// Parse parses a slash-delimited pathname such as "/BASIN/ALDERSON/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/".
//
// The leading slash is required and a single trailing slash is optional.
// Between six and eight fields are accepted; absent trailing fields are empty.
func Parse(s string) (Pathname, error) {
	if !strings.HasPrefix(s, "/") {
		return Pathname{}, fmt.Errorf("%w: %q must start with '/'", ErrMalformedPathname, s)
	}
	body := strings.TrimPrefix(s, "/")
	body = strings.TrimSuffix(body, "/")

	parts := strings.Split(body, "/")
	if len(parts) < minFields || len(parts) > NumFields {
		return Pathname{}, fmt.Errorf("%w: %q has %d fields, want %d to %d",
			ErrMalformedPathname, s, len(parts), minFields, NumFields)
	}

	var p Pathname
	copy(p.fields[:], parts)
	p.arity = len(parts)
	return p, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Pathname {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Raw returns the field at role exactly as stored.
func (p Pathname) Raw(r Role) (string, error) {
	i, err := r.index()
	if err != nil {
		return "", err
	}
	return p.fields[i], nil
}

// Field returns the field at role with internal spaces replaced by underscores.
func (p Pathname) Field(r Role) (string, error) {
	raw, err := p.Raw(r)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(raw, " ", "_"), nil
}

// ExtractField parses s and returns the field at role with spaces replaced
// by underscores.
func ExtractField(s string, r Role) (string, error) {
	if _, err := r.index(); err != nil {
		return "", err
	}
	p, err := Parse(s)
	if err != nil {
		return "", err
	}
	return p.Field(r)
}

// With returns a copy of p with the field at role set to value.
func (p Pathname) With(r Role, value string) (Pathname, error) {
	i, err := r.index()
	if err != nil {
		return Pathname{}, err
	}
	if strings.Contains(value, "/") {
		return Pathname{}, fmt.Errorf("%w: field %s value %q contains '/'", ErrMalformedPathname, r, value)
	}
	p.fields[i] = value
	if i+1 > p.arity {
		p.arity = i + 1
	}
	return p, nil
}

// WithoutTime returns p with the timestamp field (D) blanked. Records that
// differ only by block date share the same stem.
func (p Pathname) WithoutTime() Pathname {
	p.fields[3] = ""
	return p
}

// IsStem reports whether the timestamp field is blank.
func (p Pathname) IsStem() bool {
	return p.fields[3] == ""
}

// String renders p in DSS form with leading and trailing slashes.
func (p Pathname) String() string {
	n := p.arity
	if n < minFields {
		n = minFields
	}
	return "/" + strings.Join(p.fields[:n], "/") + "/"
}

// DeduplicateByTimeField blanks field D of every pathname and returns the
// distinct stems. Order is not part of the contract; the result is sorted by
// rendered form so repeated runs iterate identically.
func DeduplicateByTimeField(pathnames []Pathname) []Pathname {
	seen := make(map[string]Pathname, len(pathnames))
	for _, p := range pathnames {
		stem := p.WithoutTime()
		seen[stem.String()] = stem
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Pathname, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out
}
