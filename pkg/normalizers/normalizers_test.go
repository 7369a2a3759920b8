package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases and trims",
			input:    "  Sara.Johnson@XYZ.com ",
			expected: "sara.johnson@xyz.com",
		},
		{
			name:     "strips dots for gmail local part",
			input:    "Sara.Johnson@Gmail.com",
			expected: "sarajohnson@gmail.com",
		},
		{
			name:     "keeps dots for other domains",
			input:    "sara.johnson@xyz.com",
			expected: "sara.johnson@xyz.com",
		},
		{
			name:     "strips every dot in gmail local part",
			input:    "s.ara@gmail.com",
			expected: "sara@gmail.com",
		},
		{
			name:     "no at sign passes through",
			input:    "  Not-An-Email ",
			expected: "not-an-email",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeEmail(tt.input))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips formatting",
			input:    "+91 98765 43210",
			expected: "919876543210",
		},
		{
			name:     "bare ten digits gets country code",
			input:    "9876543210",
			expected: "919876543210",
		},
		{
			name:     "hyphenated ten digits gets country code",
			input:    "987-654-3210",
			expected: "919876543210",
		},
		{
			name:     "short number unchanged",
			input:    "12345",
			expected: "12345",
		},
		{
			name:     "already prefixed twelve digits unchanged",
			input:    "919876543210",
			expected: "919876543210",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases and trims",
			input:    "  Sara Johnson  ",
			expected: "sara johnson",
		},
		{
			name:     "strips punctuation",
			input:    "Sara J.",
			expected: "sara j",
		},
		{
			name:     "collapses internal whitespace",
			input:    "Sara \t  Johnson",
			expected: "sara johnson",
		},
		{
			name:     "keeps digits and underscores",
			input:    "user_42 jones",
			expected: "user_42 jones",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

// Normalization must be idempotent: applying a normalizer to its own output
// returns the same value.
func TestNormalizationIdempotent(t *testing.T) {
	emails := []string{"Sara.Johnson@Gmail.com", "sara@xyz.com", "not-an-email"}
	for _, e := range emails {
		once := NormalizeEmail(e)
		assert.Equal(t, once, NormalizeEmail(once))
	}

	phones := []string{"+91 98765 43210", "9876543210", "12345"}
	for _, p := range phones {
		once := NormalizePhone(p)
		assert.Equal(t, once, NormalizePhone(once))
	}

	names := []string{"Sara J.", "  Sara   Johnson ", "user_42"}
	for _, n := range names {
		once := NormalizeName(n)
		assert.Equal(t, once, NormalizeName(once))
	}
}

func TestExtractSocialHandle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{
			name:     "bare handle",
			input:    "sarapoetry23",
			expected: "sarapoetry23",
			ok:       true,
		},
		{
			name:     "at mention",
			input:    "@sarapoetry23",
			expected: "sarapoetry23",
			ok:       true,
		},
		{
			name:     "instagram url",
			input:    "https://www.instagram.com/sarapoetry23/",
			expected: "sarapoetry23",
			ok:       true,
		},
		{
			name:     "twitter url with query",
			input:    "https://twitter.com/sarapoetry23?ref=share",
			expected: "sarapoetry23",
			ok:       true,
		},
		{
			name:     "x dot com url",
			input:    "x.com/sarapoetry23",
			expected: "sarapoetry23",
			ok:       true,
		},
		{
			name:  "empty input",
			input: "   ",
			ok:    false,
		},
		{
			name:  "url with nothing after stripping",
			input: "https://www.",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle, ok := ExtractSocialHandle(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, handle)
		})
	}
}

func TestRegistry(t *testing.T) {
	fn, ok := Get("nemail")
	assert.True(t, ok)
	assert.Equal(t, "sarajohnson@gmail.com", fn("Sara.Johnson@Gmail.com"))

	assert.Equal(t, "919876543210", Apply("9876543210", "nphone"))
	assert.Equal(t, "unchanged", Apply("unchanged", "no_such_normalizer"))
}
