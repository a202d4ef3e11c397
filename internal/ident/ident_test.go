package ident

import (
	"testing"

	"github.com/matsen/litscout/internal/paper"
)

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.1038/s41586-023-06424-7", "10.1038/s41586-023-06424-7"},
		{"https://doi.org/10.1038/S41586-023-06424-7", "10.1038/s41586-023-06424-7"},
		{"http://dx.doi.org/10.1000/XYZ", "10.1000/xyz"},
		{"HTTPS://DOI.ORG/10.1000/abc", "10.1000/abc"},
		{"  10.1000/abc  ", "10.1000/abc"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeDOI(tt.in); got != tt.want {
			t.Errorf("NormalizeDOI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDOI_Idempotent(t *testing.T) {
	inputs := []string{
		"https://doi.org/10.1038/ABC",
		"http://doi.org/https://doi.org/10.1/x",
		" 10.1101/2023.01.01.123456 ",
		"not a doi",
	}
	for _, in := range inputs {
		once := NormalizeDOI(in)
		twice := NormalizeDOI(once)
		if once != twice {
			t.Errorf("NormalizeDOI not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestPathEscapeDOI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.1000/abc", "10.1000/abc"},
		{"10.1000/a/b", "10.1000/a/b"},
		{"10.1002/x#y?z", "10.1002/x%23y%3Fz"},
		{"10.1/a<b>", "10.1/a%3Cb%3E"},
		{"10.1/a b", "10.1/a%20b"},
	}
	for _, tt := range tests {
		if got := PathEscapeDOI(tt.in); got != tt.want {
			t.Errorf("PathEscapeDOI(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractDOIFromString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.1038_s41586-023-06424-7.pdf", "10.1038/s41586-023-06424-7"},
		{"10.1038/nature12373.PDF", "10.1038/nature12373"},
		{"paper 10.1234/abc.def, more", "10.1234/abc.def"},
		{"10.1234/abc;", "10.1234/abc"},
		{"smith2020.pdf", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractDOIFromString(tt.in); got != tt.want {
			t.Errorf("ExtractDOIFromString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractDOIFromString_FirstUnderscoreOnly(t *testing.T) {
	// The suffix underscore survives; only the first one becomes the separator.
	got := ExtractDOIFromString("10.1000_abc_def.pdf")
	if got != "10.1000/abc_def" {
		t.Errorf("got %q, want 10.1000/abc_def", got)
	}
}

func TestSanitizeRoundTrip(t *testing.T) {
	doi := "10.1016/j.cell.2020.01.001"
	name := SanitizeForFilename(doi) + ".pdf"
	if got := ExtractDOIFromString(name); got != doi {
		t.Errorf("round trip: got %q, want %q", got, doi)
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.1000/abc", "10.1000_abc"},
		{`a<b>c:d"e|f?g*h\i`, "abcdefghi"},
		{"s2_abc", "s2_abc"},
	}
	for _, tt := range tests {
		if got := SanitizeForFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeForFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileStem(t *testing.T) {
	withDOI := &paper.Paper{PaperID: "s2:abc", DOI: "10.1/x"}
	if got := FileStem(withDOI); got != "10.1_x" {
		t.Errorf("FileStem() = %q, want 10.1_x", got)
	}
	noDOI := &paper.Paper{PaperID: "oalex:W123"}
	if got := FileStem(noDOI); got != "oalex_W123" {
		t.Errorf("FileStem() = %q, want oalex_W123", got)
	}
}

func TestReconstructAbstract(t *testing.T) {
	idx := map[string][]int{
		"the": {0, 4},
		"cat": {1},
		"sat": {2},
		"on":  {3},
		"mat": {5},
	}
	want := "the cat sat on the mat"
	if got := ReconstructAbstract(idx); got != want {
		t.Errorf("ReconstructAbstract() = %q, want %q", got, want)
	}
}

func TestReconstructAbstract_Gaps(t *testing.T) {
	idx := map[string][]int{"a": {0}, "b": {2}}
	if got := ReconstructAbstract(idx); got != "a  b" {
		t.Errorf("ReconstructAbstract() = %q, want %q", got, "a  b")
	}
}

func TestReconstructAbstract_Empty(t *testing.T) {
	if got := ReconstructAbstract(nil); got != "" {
		t.Errorf("ReconstructAbstract(nil) = %q, want empty", got)
	}
	if got := ReconstructAbstract(map[string][]int{"x": {}}); got != "" {
		t.Errorf("ReconstructAbstract(no positions) = %q, want empty", got)
	}
}

func TestNormalizePMCID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"123456", "PMC123456"},
		{"PMC123456", "PMC123456"},
		{"pmc123456", "PMC123456"},
		{" PMC7 ", "PMC7"},
	}
	for _, tt := range tests {
		if got := NormalizePMCID(tt.in); got != tt.want {
			t.Errorf("NormalizePMCID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := PMCIDNumber("PMC42"); got != "42" {
		t.Errorf("PMCIDNumber(PMC42) = %q, want 42", got)
	}
}

func TestStripPrefix(t *testing.T) {
	if id, ok := StripPrefix("s2:abc", "s2:"); !ok || id != "abc" {
		t.Errorf("StripPrefix(s2:abc) = %q, %v", id, ok)
	}
	if id, ok := StripPrefix("oalex:W1", "s2:"); ok || id != "oalex:W1" {
		t.Errorf("StripPrefix(oalex:W1) = %q, %v", id, ok)
	}
}
