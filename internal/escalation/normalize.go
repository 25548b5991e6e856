package escalation

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

// minTokenLen drops short filler tokens ("a", "is", "to") from normalization
// and similarity so the hash keys on content words.
const minTokenLen = 3

var (
	nonWordOrSpace       = regexp.MustCompile(`[^\w\s]`)
	nonWordSpaceOrHyphen = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRun        = regexp.MustCompile(`\s+`)
	hyphenRun            = regexp.MustCompile(`-+`)
)

// Tokenize lowercases, strips punctuation, splits on whitespace and drops
// tokens shorter than three characters.
func Tokenize(s string) []string {
	cleaned := nonWordOrSpace.ReplaceAllString(strings.ToLower(s), "")
	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// NormalizeSymptom canonicalizes free text so that reports differing only in
// case, punctuation, word order or filler words produce the same string.
func NormalizeSymptom(symptom string) string {
	tokens := Tokenize(symptom)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// SymptomHash returns the dedup key for a symptom: the first 16 hex characters
// of the SHA-256 of the normalized text. The 64-bit truncation makes
// collisions negligible at this system's scale, though not impossible.
func SymptomHash(symptom string) string {
	sum := sha256.Sum256([]byte(NormalizeSymptom(symptom)))
	return hex.EncodeToString(sum[:])[:16]
}

// slugMaxLen bounds generated change identifiers so artifact paths stay short.
const slugMaxLen = 40

// Slug derives a filesystem-safe identifier fragment from free text.
func Slug(s string) string {
	out := strings.ToLower(s)
	out = nonWordSpaceOrHyphen.ReplaceAllString(out, "")
	out = whitespaceRun.ReplaceAllString(out, "-")
	out = hyphenRun.ReplaceAllString(out, "-")
	if len(out) > slugMaxLen {
		out = out[:slugMaxLen]
	}
	return strings.Trim(out, "-")
}
