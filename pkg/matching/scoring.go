package matching

import (
	"strings"

	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// initialsFloor is the minimum similarity granted when two multi-token names
// agree on the first name and the last-name initial ("Sara J." vs "Sara Johnson")
const initialsFloor = 0.85

// Scorer provides the string comparison algorithms used for contact signals
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Ratio returns a Levenshtein-based similarity between 0.0 and 1.0
func (s *Scorer) Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(s.LevenshteinDistance(ra, rb))/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two rune slices
func (s *Scorer) LevenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// TokenSortRatio compares two strings after sorting their whitespace tokens,
// which tolerates reordering ("sara johnson" vs "johnson sara")
func (s *Scorer) TokenSortRatio(a, b string) float64 {
	return s.Ratio(sortTokens(a), sortTokens(b))
}

// PartialRatio returns the best Ratio of the shorter string against every
// equal-length window of the longer one, which tolerates substrings
// ("sara j" inside "sara johnson")
func (s *Scorer) PartialRatio(a, b string) float64 {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 {
		if len(longer) == 0 {
			return 1.0
		}
		return 0.0
	}

	best := 0.0
	for i := 0; i+len(shorter) <= len(longer); i++ {
		window := longer[i : i+len(shorter)]
		score := 1.0 - float64(s.LevenshteinDistance(shorter, window))/float64(len(shorter))
		if score > best {
			best = score
		}
		if best == 1.0 {
			break
		}
	}
	return best
}

// NameSimilarity scores two display names in [0,1]:
//  1. exact match after normalization is 1.0
//  2. otherwise the best of token-sort and partial ratios
//  3. multi-token names matching on first name + last initial are floored at 0.85
func (s *Scorer) NameSimilarity(a, b string) float64 {
	a = normalizers.NormalizeName(a)
	b = normalizers.NormalizeName(b)

	if a == b {
		return 1.0
	}

	tokenSort := s.TokenSortRatio(a, b)
	partial := s.PartialRatio(a, b)

	if initialsMatch(a, b) {
		return max(tokenSort, initialsFloor)
	}

	return max(tokenSort, partial)
}

// initialsMatch recognizes abbreviation patterns: both names have at least
// two tokens, the first tokens are equal, and the last tokens share a first
// letter
func initialsMatch(a, b string) bool {
	aTokens := strings.Fields(a)
	bTokens := strings.Fields(b)
	if len(aTokens) < 2 || len(bTokens) < 2 {
		return false
	}
	if aTokens[0] != bTokens[0] {
		return false
	}
	aLast := []rune(aTokens[len(aTokens)-1])
	bLast := []rune(bTokens[len(bTokens)-1])
	return aLast[0] == bLast[0]
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	for i := 1; i < len(tokens); i++ {
		for j := i; j > 0 && tokens[j] < tokens[j-1]; j-- {
			tokens[j], tokens[j-1] = tokens[j-1], tokens[j]
		}
	}
	return strings.Join(tokens, " ")
}
