package chunker

import (
	"strings"
	"testing"
)

// reconstruct rebuilds normalised text from pieces by dropping the overlap
// each window shares with its predecessor in the same paragraph.
func reconstruct(pieces []Piece) string {
	var paragraphs []string
	var current []rune
	end := 0
	for i, p := range pieces {
		runes := []rune(p.Content)
		if i == 0 || p.Paragraph != pieces[i-1].Paragraph {
			if i > 0 {
				paragraphs = append(paragraphs, string(current))
			}
			current = append([]rune(nil), runes...)
			end = p.Offset + len(runes)
			continue
		}
		shared := end - p.Offset
		current = append(current, runes[shared:]...)
		end = p.Offset + len(runes)
	}
	if len(pieces) > 0 {
		paragraphs = append(paragraphs, string(current))
	}
	return strings.Join(paragraphs, ParagraphSeparator)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		collapse bool
		expected string
	}{
		{"empty", "", true, ""},
		{"whitespace only", " \n\t\n ", true, ""},
		{"trims", "  hello  ", true, "hello"},
		{"collapses inside paragraph", "a  b\tc\nd", true, "a b c d"},
		{"keeps paragraph breaks", "a\n\n\n  b", true, "a\n\nb"},
		{"crlf", "a\r\n\r\nb", true, "a\n\nb"},
		{"no collapse keeps inner spacing", "a  b\nc\n\nd", false, "a  b\nc\n\nd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input, tt.collapse); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	if chunks := Split("", DefaultOptions()); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
	if chunks := Split("\n\n  \n", DefaultOptions()); len(chunks) != 0 {
		t.Errorf("expected no chunks for whitespace, got %d", len(chunks))
	}
}

func TestSplit_ParagraphAware(t *testing.T) {
	text := "First paragraph.\n\nSecond paragraph.\n\nThird."
	chunks := Split(text, Options{ChunkSize: 50, Overlap: 10, NormalizeWhitespace: true})

	expected := []string{"First paragraph.", "Second paragraph.", "Third."}
	if len(chunks) != len(expected) {
		t.Fatalf("expected %d chunks, got %d: %q", len(expected), len(chunks), chunks)
	}
	for i := range expected {
		if chunks[i] != expected[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], expected[i])
		}
	}
}

func TestSplit_WindowsReachEndOnce(t *testing.T) {
	text := "0123456789ABCDEFGHIJ" // 20 chars
	pieces := Pieces(text, Options{ChunkSize: 10, Overlap: 3})

	// Step 7: windows at 0 and 7, then clamped to 10.
	want := []Piece{
		{Content: "0123456789", Offset: 0},
		{Content: "789ABCDEFG", Offset: 7},
		{Content: "ABCDEFGHIJ", Offset: 10},
	}
	if len(pieces) != len(want) {
		t.Fatalf("expected %d pieces, got %d: %+v", len(want), len(pieces), pieces)
	}
	for i := range want {
		if pieces[i] != want[i] {
			t.Errorf("piece %d = %+v, want %+v", i, pieces[i], want[i])
		}
	}
}

func TestSplit_ExactMultipleNoOverlap(t *testing.T) {
	chunks := Split(strings.Repeat("a", 100), Options{ChunkSize: 50, Overlap: 0})
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(chunks))
	}
}

func TestSplit_CountsRunes(t *testing.T) {
	text := strings.Repeat("日本語", 10) // 30 runes, 90 bytes
	chunks := Split(text, Options{ChunkSize: 30, Overlap: 5})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Error("chunk should be the whole paragraph")
	}
}

func TestSplit_ChunkSizeBound(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 40) + "\n\n" + "short"
	opts := Options{ChunkSize: 64, Overlap: 16, NormalizeWhitespace: true}
	for _, c := range Split(text, opts) {
		if CountChars(c) > opts.ChunkSize {
			t.Errorf("chunk exceeds size: %d > %d", CountChars(c), opts.ChunkSize)
		}
	}
}

func TestSplit_OverlapClamp(t *testing.T) {
	// Overlap >= size clamps to size-1, so windows advance one rune at a time.
	chunks := Split("abcdef", Options{ChunkSize: 4, Overlap: 9})
	expected := []string{"abcd", "bcde", "cdef"}
	if len(chunks) != len(expected) {
		t.Fatalf("expected %d chunks, got %d: %q", len(expected), len(chunks), chunks)
	}
	for i := range expected {
		if chunks[i] != expected[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], expected[i])
		}
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"single line",
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 30),
		"Intro paragraph.\n\n" + strings.Repeat("abcdefghij", 37) + "\n\n\n  tail  ",
		strings.Repeat("日本語のテキスト。", 40),
	}
	configs := []Options{
		{ChunkSize: 10, Overlap: 0},
		{ChunkSize: 10, Overlap: 9},
		{ChunkSize: 64, Overlap: 16, NormalizeWhitespace: true},
		{ChunkSize: 100, Overlap: 33, NormalizeWhitespace: false},
		{ChunkSize: 1000, Overlap: 200, NormalizeWhitespace: true},
	}

	for _, in := range inputs {
		for _, opts := range configs {
			pieces := Pieces(in, opts)
			want := Normalize(in, opts.NormalizeWhitespace)
			if got := reconstruct(pieces); got != want {
				t.Errorf("round trip failed for size=%d overlap=%d:\n got %q\nwant %q",
					opts.ChunkSize, opts.Overlap, got, want)
			}
		}
	}
}

func TestSplit_Idempotent(t *testing.T) {
	text := strings.Repeat("Led migration of 40 services to Kubernetes.\n\n", 8)
	opts := Options{ChunkSize: 30, Overlap: 7, NormalizeWhitespace: true}

	first := Split(text, opts)
	second := Split(text, opts)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}

	h1, h2 := Hashes(first), Hashes(second)
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs", i)
		}
		if h1[i] != h2[i] {
			t.Errorf("hash %d differs", i)
		}
	}
}

func TestHash(t *testing.T) {
	if Hash("abc") != Hash("abc") {
		t.Error("hash must be deterministic")
	}
	if Hash("abc") == Hash("abd") {
		t.Error("different content should hash differently")
	}
	if len(Hash("")) != 16 {
		t.Errorf("expected 16 hex chars, got %q", Hash(""))
	}
}
