package dedup

import (
	"strings"
	"unicode"
)

// NormalizeTitle lowercases a title, drops everything that is not a word
// character or whitespace, and collapses runs of whitespace.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Ratio is the normalized Indel similarity of a and b on a 0-100 scale:
// 100 * 2*LCS / (len(a)+len(b)), measured in runes. Two empty strings are
// identical.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(ra, rb)) / float64(total)
}

// PartialRatio returns the best Ratio between the shorter string and every
// window of the longer string with the same length.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		if len(long) == 0 {
			return 100
		}
		return 0
	}

	best := 0.0
	n := len(short)
	for start := 0; start+n <= len(long); start++ {
		lcs := lcsLength(short, long[start:start+n])
		score := 100 * float64(2*lcs) / float64(2*n)
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// lcsLength computes the longest common subsequence length with a single
// rolling row.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) > len(a) {
		a, b = b, a
	}
	row := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		prevDiag := 0
		for j := 1; j <= len(b); j++ {
			saved := row[j]
			if a[i-1] == b[j-1] {
				row[j] = prevDiag + 1
			} else if row[j-1] > row[j] {
				row[j] = row[j-1]
			}
			prevDiag = saved
		}
	}
	return row[len(b)]
}
