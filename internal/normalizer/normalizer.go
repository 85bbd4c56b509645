// Package normalizer implements pure title-comparison functions: projecting
// album titles to a canonical comparison form and judging whether two
// titles are a strong alias match. No teacher package does anything like
// this — title comparison there is plain SQL ILIKE/LOWER().
package normalizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	yearParenRe  = regexp.MustCompile(`\s+[\(\[]((?:19|20)\d{2})[\)\]]$`)
	yearDashRe   = regexp.MustCompile(`\s+[-\x{2013}\x{2014}]\s+((?:19|20)\d{2})$`)
	yearBareRe   = regexp.MustCompile(`(.*\S)\s+((?:19|20)\d{2})$`)
	editionNoise = regexp.MustCompile(`(?i)\b(special edition|bonus tracks|bonus track|deluxe|remaster|remastered|anniversary|expanded|edition)\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

var bareYearExclusions = map[string]bool{
	"live": true,
	"the":  true,
}

// stripTrailingYearSuffix removes a trailing " (YYYY)", " [YYYY]", " - YYYY"
// (dash/en-dash/em-dash), or bare trailing " YYYY" for YYYY in 1900-2099.
// The bare form is only removed when the prefix is non-empty and its
// lowercased form isn't in the conservative exclusion set.
func stripTrailingYearSuffix(s string) string {
	if m := yearParenRe.FindStringIndex(s); m != nil {
		return s[:m[0]]
	}
	if m := yearDashRe.FindStringIndex(s); m != nil {
		return s[:m[0]]
	}
	if m := yearBareRe.FindStringSubmatch(s); m != nil {
		prefix := strings.TrimSpace(m[1])
		if prefix == "" {
			return s
		}
		if bareYearExclusions[strings.ToLower(prefix)] {
			return s
		}
		return prefix
	}
	return s
}

// StripTrailingYearSuffix is the exported form, used directly by tests and
// callers.
func StripTrailingYearSuffix(s string) string {
	return stripTrailingYearSuffix(s)
}

// NormalizeTitle projects s to its canonical comparison form: strip
// trailing year, NFKD normalize, fold quote variants, lowercase, fold
// "+"/"&" to "and", drop combining marks, collapse punctuation/symbols to
// whitespace, remove edition-noise words, collapse whitespace.
func NormalizeTitle(s string) string {
	s = stripTrailingYearSuffix(s)
	s = norm.NFKD.String(s)

	s = strings.NewReplacer(
		"‘", "'", "’", "'", "‛", "'",
		"“", "\"", "”", "\"", "‟", "\"",
	).Replace(s)

	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "+", " and ")
	s = strings.ReplaceAll(s, "&", " and ")

	s = removeCombiningMarks(s)
	s = replacePunctAndSymbols(s)

	s = editionNoise.ReplaceAllString(s, " ")

	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func removeCombiningMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func replacePunctAndSymbols(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsStrongTitleAliasMatch reports whether a and b are a strong alias match:
// equal outright, or one fully contains the other and their token sets
// overlap by at least minOverlap relative to the smaller set (which must
// have at least 3 tokens).
func IsStrongTitleAliasMatch(a, b string, minOverlap float64) bool {
	if a == b {
		return true
	}

	var smaller, larger string
	switch {
	case strings.Contains(a, b):
		smaller, larger = b, a
	case strings.Contains(b, a):
		smaller, larger = a, b
	default:
		return false
	}

	smallTokens := tokenSet(smaller)
	largeTokens := tokenSet(larger)
	if len(smallTokens) < 3 {
		return false
	}

	overlap := 0
	for t := range smallTokens {
		if largeTokens[t] {
			overlap++
		}
	}
	return float64(overlap)/float64(len(smallTokens)) >= minOverlap
}

// Slugify projects s to a URL/path-safe slug: lowercase alphanumerics
// joined by single dashes. Shared by the artist repository (name -> slug)
// and the Scanner (album title -> virtual path segment).
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func tokenSet(s string) map[string]bool {
	tokens := strings.Fields(s)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
