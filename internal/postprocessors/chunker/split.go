package chunker

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Options configures text splitting. Sizes are measured in characters (runes).
type Options struct {
	// ChunkSize is the maximum chunk length. Non-positive means DefaultChunkSize.
	ChunkSize int

	// Overlap is the number of characters consecutive windows of one paragraph share.
	// Negative means 0; values >= ChunkSize are clamped to ChunkSize-1.
	Overlap int

	// NormalizeWhitespace collapses whitespace runs inside paragraphs.
	NormalizeWhitespace bool
}

// DefaultOptions returns the default splitting options.
func DefaultOptions() Options {
	return Options{
		ChunkSize:           DefaultChunkSize,
		Overlap:             DefaultChunkOverlap,
		NormalizeWhitespace: true,
	}
}

// Clamped returns the options with invalid values corrected.
func (o Options) Clamped() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap >= o.ChunkSize {
		o.Overlap = o.ChunkSize - 1
	}
	return o
}

// Piece is one chunk with its position in the normalised text.
type Piece struct {
	// Content is the chunk text.
	Content string

	// Paragraph is the 0-based paragraph the chunk came from.
	Paragraph int

	// Offset is the rune offset of the chunk within its paragraph.
	Offset int
}

// Split chunks text and returns the chunk contents in order.
// Empty input yields an empty list.
func Split(text string, opts Options) []string {
	pieces := Pieces(text, opts)
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.Content
	}
	return out
}

// Pieces chunks text paragraph by paragraph. A paragraph that fits in
// ChunkSize is one chunk; a longer one is covered by windows of ChunkSize
// advancing by ChunkSize-Overlap, the last window ending exactly at the
// paragraph end.
func Pieces(text string, opts Options) []Piece {
	opts = opts.Clamped()

	var pieces []Piece
	for i, para := range Paragraphs(text, opts.NormalizeWhitespace) {
		runes := []rune(para)
		if len(runes) <= opts.ChunkSize {
			pieces = append(pieces, Piece{Content: para, Paragraph: i})
			continue
		}

		step := opts.ChunkSize - opts.Overlap
		for start := 0; ; start += step {
			if start+opts.ChunkSize >= len(runes) {
				start = len(runes) - opts.ChunkSize
				pieces = append(pieces, Piece{Content: string(runes[start:]), Paragraph: i, Offset: start})
				break
			}
			pieces = append(pieces, Piece{
				Content:   string(runes[start : start+opts.ChunkSize]),
				Paragraph: i,
				Offset:    start,
			})
		}
	}
	return pieces
}
