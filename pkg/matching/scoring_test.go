package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{
			name:     "identical strings",
			a:        "sara",
			b:        "sara",
			expected: 1.0,
		},
		{
			name:     "both empty",
			a:        "",
			b:        "",
			expected: 1.0,
		},
		{
			name:     "one empty",
			a:        "sara",
			b:        "",
			expected: 0.0,
		},
		{
			name:     "kitten sitting",
			a:        "kitten",
			b:        "sitting",
			expected: 1.0 - 3.0/7.0,
		},
		{
			name:     "single insertion",
			a:        "sarajohnson",
			b:        "sara.johnson",
			expected: 1.0 - 1.0/12.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, s.Ratio(tt.a, tt.b), 0.0001)
		})
	}
}

func TestLevenshteinDistance(t *testing.T) {
	s := NewScorer()

	assert.Equal(t, 0, s.LevenshteinDistance([]rune("abc"), []rune("abc")))
	assert.Equal(t, 3, s.LevenshteinDistance([]rune("kitten"), []rune("sitting")))
	assert.Equal(t, 4, s.LevenshteinDistance([]rune(""), []rune("sara")))
	assert.Equal(t, 1, s.LevenshteinDistance([]rune("sara"), []rune("sarah")))
}

func TestTokenSortRatio(t *testing.T) {
	s := NewScorer()

	// Reordered tokens compare equal
	assert.InDelta(t, 1.0, s.TokenSortRatio("johnson sara", "sara johnson"), 0.0001)
	assert.Less(t, s.TokenSortRatio("sara johnson", "mike brown"), 0.5)
}

func TestPartialRatio(t *testing.T) {
	s := NewScorer()

	// Shorter string appearing verbatim inside the longer scores 1.0
	assert.InDelta(t, 1.0, s.PartialRatio("sara j", "sara johnson"), 0.0001)
	assert.InDelta(t, 1.0, s.PartialRatio("sara johnson", "sara j"), 0.0001)
	assert.InDelta(t, 1.0, s.PartialRatio("", ""), 0.0001)
	assert.InDelta(t, 0.0, s.PartialRatio("", "sara"), 0.0001)
}

func TestNameSimilarity(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{
			name:     "exact after normalization",
			a:        "  Sara   Johnson ",
			b:        "sara johnson",
			expected: 1.0,
		},
		{
			name:     "token reorder",
			a:        "Johnson Sara",
			b:        "Sara Johnson",
			expected: 1.0,
		},
		{
			name:     "abbreviated last name hits the floor",
			a:        "Sara J.",
			b:        "Sara Johnson",
			expected: initialsFloor,
		},
		{
			name:     "similar last names keep the higher token sort score",
			a:        "Sara Johansson",
			b:        "Sara Johnson",
			expected: 1.0 - 2.0/14.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, s.NameSimilarity(tt.a, tt.b), 0.0001)
		})
	}

	// Unrelated names stay below the fuzzy gate
	assert.Less(t, s.NameSimilarity("John Doe", "Sara Johnson"), 0.7)
}

func TestInitialsMatch(t *testing.T) {
	assert.True(t, initialsMatch("sara j", "sara johnson"))
	assert.True(t, initialsMatch("sara johnson", "sara j"))
	assert.False(t, initialsMatch("sara", "sara johnson"), "single token never matches on initials")
	assert.False(t, initialsMatch("mike j", "sara johnson"), "first names must be equal")
	assert.False(t, initialsMatch("sara b", "sara johnson"), "last initials must agree")
}
