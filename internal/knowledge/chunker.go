package knowledge

import "strings"

// Chunking parameters are part of the reproducibility contract: changing
// them invalidates comparability of retrieval results across runs.
const (
	DefaultChunkSize    = 400
	DefaultChunkOverlap = 20
	DefaultSeparator    = "\n"
)

// Chunker splits source text into overlapping chunks on a fixed separator.
type Chunker struct {
	Size      int
	Overlap   int
	Separator string
}

// NewChunker returns a Chunker with the fixed default parameters.
func NewChunker() Chunker {
	return Chunker{
		Size:      DefaultChunkSize,
		Overlap:   DefaultChunkOverlap,
		Separator: DefaultSeparator,
	}
}

// Split divides text into chunks of at most Size characters. The text is
// first split on the separator; pieces are then packed greedily, with the
// tail of each chunk (up to Overlap characters of trailing pieces) carried
// into the next. A single piece longer than Size becomes its own chunk
// rather than being cut mid-piece.
func (c Chunker) Split(text string) []string {
	pieces := strings.Split(text, c.Separator)

	var chunks []string
	var current []string
	currentLen := 0
	fresh := false // whether current holds pieces not yet emitted

	flush := func() {
		if len(current) == 0 || !fresh {
			return
		}
		chunk := strings.TrimSpace(strings.Join(current, c.Separator))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		// Carry trailing pieces into the next chunk for overlap.
		var tail []string
		tailLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			pieceLen := len(current[i]) + len(c.Separator)
			if tailLen+pieceLen > c.Overlap {
				break
			}
			tail = append([]string{current[i]}, tail...)
			tailLen += pieceLen
		}
		current = tail
		currentLen = tailLen
		fresh = false
	}

	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		pieceLen := len(piece) + len(c.Separator)
		if currentLen > 0 && currentLen+pieceLen > c.Size {
			flush()
		}
		current = append(current, piece)
		currentLen += pieceLen
		fresh = true
	}
	flush()

	return chunks
}

// SplitAll chunks every source document, preserving provenance.
func (c Chunker) SplitAll(docs []SourceDocument) []Chunk {
	var out []Chunk
	for _, doc := range docs {
		for i, text := range c.Split(doc.Text) {
			out = append(out, Chunk{
				Source:  doc.Source,
				Ordinal: i,
				Content: text,
			})
		}
	}
	return out
}
