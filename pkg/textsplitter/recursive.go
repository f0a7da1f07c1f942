// Package textsplitter splits documents into overlapping chunks for
// embedding and retrieval.
package textsplitter

import (
	"strings"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveCharacterTextSplitter splits text on a prioritized list of
// separators, recursing to finer separators when a piece is still larger
// than the chunk size.
type RecursiveCharacterTextSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// Option configures the splitter.
type Option func(*RecursiveCharacterTextSplitter)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *RecursiveCharacterTextSplitter) {
		s.ChunkSize = size
	}
}

// WithChunkOverlap sets the overlap between consecutive chunks.
func WithChunkOverlap(overlap int) Option {
	return func(s *RecursiveCharacterTextSplitter) {
		s.ChunkOverlap = overlap
	}
}

// WithSeparators sets the separator priority list.
func WithSeparators(separators []string) Option {
	return func(s *RecursiveCharacterTextSplitter) {
		s.Separators = separators
	}
}

// NewRecursiveCharacterTextSplitter creates a splitter with the default
// chunk size of 1000 characters and an overlap of 200.
func NewRecursiveCharacterTextSplitter(options ...Option) *RecursiveCharacterTextSplitter {
	splitter := &RecursiveCharacterTextSplitter{
		ChunkSize:    defaultChunkSize,
		ChunkOverlap: defaultChunkOverlap,
		Separators:   defaultSeparators,
	}

	for _, opt := range options {
		opt(splitter)
	}

	if s := splitter; s.ChunkOverlap >= s.ChunkSize {
		s.ChunkOverlap = s.ChunkSize / 2
	}

	return splitter
}

// SplitText splits text into chunks of at most ChunkSize characters with
// ChunkOverlap characters shared between consecutive chunks.
func (s *RecursiveCharacterTextSplitter) SplitText(text string) []string {
	if text == "" {
		return nil
	}
	return s.split(text, s.Separators)
}

func (s *RecursiveCharacterTextSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var nextSeparators []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			nextSeparators = separators[i+1:]
			break
		}
	}

	splits := splitOnSeparator(text, separator)

	var chunks []string
	var goodSplits []string

	for _, piece := range splits {
		if len(piece) < s.ChunkSize {
			goodSplits = append(goodSplits, piece)
			continue
		}

		if len(goodSplits) > 0 {
			chunks = append(chunks, s.merge(goodSplits, separator)...)
			goodSplits = nil
		}

		// Piece is still too large; recurse with finer separators.
		if len(nextSeparators) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, nextSeparators)...)
		}
	}

	if len(goodSplits) > 0 {
		chunks = append(chunks, s.merge(goodSplits, separator)...)
	}

	return chunks
}

func splitOnSeparator(text, separator string) []string {
	if separator == "" {
		// Character-level split as the last resort.
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	return strings.Split(text, separator)
}

// merge combines small splits into chunks close to ChunkSize, carrying
// ChunkOverlap characters of trailing context into the next chunk.
func (s *RecursiveCharacterTextSplitter) merge(splits []string, separator string) []string {
	var chunks []string
	var current []string
	currentLen := 0

	sepLen := len(separator)

	for _, piece := range splits {
		pieceLen := len(piece)
		if currentLen+pieceLen+sepLen*len(current) > s.ChunkSize && len(current) > 0 {
			chunk := strings.TrimSpace(strings.Join(current, separator))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}

			// Drop leading pieces until the retained tail fits the overlap.
			for currentLen > s.ChunkOverlap ||
				(currentLen+pieceLen+sepLen*len(current) > s.ChunkSize && currentLen > 0) {
				currentLen -= len(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		currentLen += pieceLen
	}

	chunk := strings.TrimSpace(strings.Join(current, separator))
	if chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}
