package pathname

import (
	"errors"
	"slices"
	"testing"
)

func TestExtractField_AllRoles(t *testing.T) {
	const eight = "/basin/Alderson Gage/FLOW/14Jan1996 - 07Feb1996/1Hour/RUN:Jan 1996/g part/h/"
	want := map[Role]string{
		A: "basin",
		B: "Alderson_Gage",
		C: "FLOW",
		D: "14Jan1996_-_07Feb1996",
		E: "1Hour",
		F: "RUN:Jan_1996",
		G: "g_part",
		H: "h",
	}

	for _, r := range Roles {
		got, err := ExtractField(eight, r)
		if err != nil {
			t.Fatalf("ExtractField(%s) failed: %v", r, err)
		}
		if got != want[r] {
			t.Errorf("ExtractField(%s) = %q, want %q", r, got, want[r])
		}
	}
}

func TestExtractField_ClassicSixFields(t *testing.T) {
	const six = "//ALDERSON/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/"
	got, err := ExtractField(six, F)
	if err != nil {
		t.Fatal(err)
	}
	if got != "RUN:Y001-E0001" {
		t.Errorf("F = %q", got)
	}
	for _, r := range []Role{G, H} {
		got, err := ExtractField(six, r)
		if err != nil || got != "" {
			t.Errorf("%s = %q, %v; want empty, nil", r, got, err)
		}
	}
}

func TestExtractField_InvalidRole(t *testing.T) {
	for _, r := range []Role{"", "I", "a", "AB", "Z"} {
		_, err := ExtractField("/a/b/c/d/e/f/", r)
		if !errors.Is(err, ErrInvalidRole) {
			t.Errorf("role %q: expected ErrInvalidRole, got %v", r, err)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("F"); err != nil || r != Run {
		t.Errorf("ParseRole(F) = %q, %v", r, err)
	}
	if _, err := ParseRole("X"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("ParseRole(X): expected ErrInvalidRole, got %v", err)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []string{
		"",
		"a/b/c/d/e/f/",
		"/a/b/c/",
		"/a/b/c/d/e/f/g/h/i/",
	}
	for _, s := range tests {
		if _, err := Parse(s); !errors.Is(err, ErrMalformedPathname) {
			t.Errorf("Parse(%q): expected ErrMalformedPathname, got %v", s, err)
		}
	}
}

func TestPathname_StringRoundTrip(t *testing.T) {
	for _, s := range []string{
		"//ALDERSON/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/",
		"/a/b/c/d/e/f/g/h/",
	} {
		if got := MustParse(s).String(); got != s {
			t.Errorf("String() = %q, want %q", got, s)
		}
	}
}

func TestPathname_With(t *testing.T) {
	p := MustParse("//ALDERSON/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/")
	q, err := p.With(B, "GAUGE")
	if err != nil {
		t.Fatal(err)
	}
	if got := q.String(); got != "//GAUGE/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/" {
		t.Errorf("With(B) = %q", got)
	}
	if _, err := p.With(B, "a/b"); !errors.Is(err, ErrMalformedPathname) {
		t.Errorf("expected ErrMalformedPathname for embedded slash, got %v", err)
	}
	if _, err := p.With("Q", "x"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

// -----------------------------------------------------------------------------
// Deduplication
// -----------------------------------------------------------------------------

func parseAll(t *testing.T, ss ...string) []Pathname {
	t.Helper()
	out := make([]Pathname, len(ss))
	for i, s := range ss {
		p, err := Parse(s)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = p
	}
	return out
}

func render(ps []Pathname) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

func TestDeduplicateByTimeField_CollapsesDates(t *testing.T) {
	in := parseAll(t,
		"//ALDERSON/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/",
		"//ALDERSON/FLOW/01FEB2000/1Hour/RUN:Y001-E0001/",
		"//ALDERSON/FLOW/01JAN2000/1Hour/RUN:Y001-E0002/",
	)

	got := render(DeduplicateByTimeField(in))
	want := []string{
		"//ALDERSON/FLOW//1Hour/RUN:Y001-E0001/",
		"//ALDERSON/FLOW//1Hour/RUN:Y001-E0002/",
	}
	if !slices.Equal(got, want) {
		t.Errorf("DeduplicateByTimeField = %v, want %v", got, want)
	}
}

func TestDeduplicateByTimeField_Idempotent(t *testing.T) {
	in := parseAll(t,
		"//B1/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/",
		"//B1/FLOW/01FEB2000/1Hour/RUN:Y001-E0001/",
		"//B2/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/",
		"/a/b/c/d/e/f/g/h/",
	)

	once := DeduplicateByTimeField(in)
	twice := DeduplicateByTimeField(once)
	if !slices.Equal(render(once), render(twice)) {
		t.Errorf("not idempotent: %v vs %v", render(once), render(twice))
	}
	for _, p := range once {
		if !p.IsStem() {
			t.Errorf("%s still carries a D field", p)
		}
	}
}

func TestDeduplicateByTimeField_OnlyTouchesD(t *testing.T) {
	// The date text also appears in the F field; only position D is blanked.
	in := parseAll(t, "//B1/FLOW/01JAN2000/1Hour/RUN:01JAN2000/")
	got := render(DeduplicateByTimeField(in))
	if !slices.Equal(got, []string{"//B1/FLOW//1Hour/RUN:01JAN2000/"}) {
		t.Errorf("got %v", got)
	}
}

// -----------------------------------------------------------------------------
// Patterns
// -----------------------------------------------------------------------------

func TestPattern_Match(t *testing.T) {
	pt, err := VariablePattern("FLOW")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		path string
		want bool
	}{
		{"//ALDERSON/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/", true},
		{"//ALDERSON/flow/01JAN2000/1Hour/RUN:Y001-E0001/", true},
		{"//ALDERSON/STAGE/01JAN2000/1Hour/RUN:Y001-E0001/", false},
		{"/a/b/FLOW/d/e/f/g/h/", true},
	}
	for _, tt := range tests {
		if got := pt.Match(MustParse(tt.path)); got != tt.want {
			t.Errorf("Match(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestPattern_PartialGlobs(t *testing.T) {
	pt, err := ParsePattern("/*/ALD*/FLOW/*/1HOUR/RUN:Y00?-*/")
	if err != nil {
		t.Fatal(err)
	}
	in := parseAll(t,
		"//ALDERSON/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/",
		"//BLUESTONE/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/",
		"//ALDERSON/FLOW/01JAN2000/15Minute/RUN:Y001-E0001/",
		"//ALDERSON/FLOW/01JAN2000/1Hour/RUN:Y010-E0001/",
	)
	got := render(pt.Filter(in))
	want := []string{"//ALDERSON/FLOW/01JAN2000/1Hour/RUN:Y001-E0001/"}
	if !slices.Equal(got, want) {
		t.Errorf("Filter = %v, want %v", got, want)
	}
}

func TestParsePattern_Malformed(t *testing.T) {
	for _, s := range []string{"*/FLOW/", "/*/[FLOW/*/*/*/*/", "/1/2/3/4/5/6/7/8/9/"} {
		if _, err := ParsePattern(s); !errors.Is(err, ErrMalformedPattern) {
			t.Errorf("ParsePattern(%q): expected ErrMalformedPattern, got %v", s, err)
		}
	}
}
