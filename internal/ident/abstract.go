package ident

import "strings"

// ReconstructAbstract rebuilds plain text from an inverted index mapping each
// word to its zero-based positions. Unfilled positions become empty strings,
// which show up as doubled spaces in the output.
func ReconstructAbstract(index map[string][]int) string {
	maxPos := -1
	for _, positions := range index {
		for _, pos := range positions {
			if pos > maxPos {
				maxPos = pos
			}
		}
	}
	if maxPos < 0 {
		return ""
	}

	words := make([]string, maxPos+1)
	for word, positions := range index {
		for _, pos := range positions {
			if pos >= 0 {
				words[pos] = word
			}
		}
	}
	return strings.Join(words, " ")
}
