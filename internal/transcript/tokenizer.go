// Package transcript turns a raw transcript buffer into addressable segments
// and tracks which words the user has highlighted.
package transcript

import (
	"strings"
	"unicode"
)

// Kind classifies a segment.
type Kind int

const (
	Separator Kind = iota
	Word
)

func (k Kind) String() string {
	if k == Word {
		return "word"
	}
	return "separator"
}

// Segment is one chunk of the buffer: either a word or a run of whitespace
// or punctuation. Segments are derived and never mutated.
type Segment struct {
	Text string
	Kind Kind
	Key  string // trimmed text; set only for Word segments
}

// Tokenize splits buffer on whitespace runs, keeping the runs as separator
// segments. Concatenating the Text of the result reproduces buffer exactly.
func Tokenize(buffer string) []Segment {
	if buffer == "" {
		return nil
	}

	var segs []Segment
	start := 0
	inSpace := false
	for i, r := range buffer {
		space := unicode.IsSpace(r)
		if i == 0 {
			inSpace = space
			continue
		}
		if space != inSpace {
			segs = append(segs, classify(buffer[start:i]))
			start = i
			inSpace = space
		}
	}
	segs = append(segs, classify(buffer[start:]))
	return segs
}

func classify(chunk string) Segment {
	key := strings.TrimSpace(chunk)
	if !hasWordChar(key) {
		return Segment{Text: chunk, Kind: Separator}
	}
	return Segment{Text: chunk, Kind: Word, Key: key}
}

func hasWordChar(s string) bool {
	for _, r := range s {
		if IsWordChar(r) {
			return true
		}
	}
	return false
}

// IsWordChar reports whether r counts toward making a chunk a word.
func IsWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// WordIndexes returns the positions of the Word segments in segs.
func WordIndexes(segs []Segment) []int {
	var idx []int
	for i, s := range segs {
		if s.Kind == Word {
			idx = append(idx, i)
		}
	}
	return idx
}

// Normalize collapses whitespace runs to a single space and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
