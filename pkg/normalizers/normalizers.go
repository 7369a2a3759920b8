// Package normalizers canonicalizes raw contact fields for identity matching
package normalizers

import (
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", strings.ToLower)
	Register("trim", strings.TrimSpace)
	Register("digits_only", DigitsOnly)
	Register("nemail", NormalizeEmail)
	Register("nphone", NormalizePhone)
	Register("nname", NormalizeName)
	Register("nhandle", func(s string) string {
		handle, _ := ExtractSocialHandle(s)
		return handle
	})
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value; unknown names pass the value through
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// Locale-dependent defaults. Configure overrides them once at startup.
var (
	dotInsensitiveDomains = map[string]struct{}{"gmail.com": {}}
	defaultCountryCode    = "91"
)

// Configure sets the locale rules used by NormalizeEmail and NormalizePhone.
// Call before any matching starts; the rules are not safe to change mid-scan.
func Configure(countryCode string, dotInsensitive []string) {
	if countryCode != "" {
		defaultCountryCode = countryCode
	}
	if len(dotInsensitive) > 0 {
		domains := make(map[string]struct{}, len(dotInsensitive))
		for _, d := range dotInsensitive {
			domains[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
		}
		dotInsensitiveDomains = domains
	}
}

// NormalizeEmail lower-cases and trims an email address. For domains that
// ignore dots in the local part (the gmail convention) the dots are removed.
// Malformed addresses pass through lower-cased and trimmed; no RFC
// validation is attempted.
func NormalizeEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	at := strings.Index(s, "@")
	if at < 0 {
		return s
	}
	local, domain := s[:at], s[at+1:]
	if _, ok := dotInsensitiveDomains[domain]; ok {
		local = strings.ReplaceAll(local, ".", "")
	}
	return local + "@" + domain
}

// NormalizePhone strips every non-digit character. A bare 10-digit number is
// assumed to be local and gets the default country code prefixed; anything
// else is returned as-is post-stripping.
func NormalizePhone(s string) string {
	digits := DigitsOnly(s)
	if len(digits) == 10 {
		return defaultCountryCode + digits
	}
	return digits
}

// NormalizeName lower-cases a display name, strips punctuation, and
// collapses internal whitespace to single spaces.
func NormalizeName(s string) string {
	s = strings.ToLower(s)

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			result.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// socialPrefixes are stripped from handle inputs before extraction
var socialPrefixes = []string{
	"https://",
	"http://",
	"www.",
	"instagram.com/",
	"twitter.com/",
	"x.com/",
}

// ExtractSocialHandle pulls a bare handle out of the formats handles arrive
// in: profile URLs, @-mentions, or the handle itself. Returns false when
// nothing remains after stripping.
func ExtractSocialHandle(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, prefix := range socialPrefixes {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimPrefix(s, "@")

	if i := strings.IndexAny(s, "/?"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)

	if s == "" {
		return "", false
	}
	return s, true
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
