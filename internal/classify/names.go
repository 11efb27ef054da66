package classify

import (
	"regexp"
	"strings"
)

var (
	indexBracketRe = regexp.MustCompile(`\[\d*\]`)
	numericOnlyRe  = regexp.MustCompile(`^\d+$`)
	nonAlnumRe     = regexp.MustCompile(`[^a-z0-9]+`)
	underscoresRe  = regexp.MustCompile(`_+`)
)

// leafSegment returns the last hierarchical path segment that is not purely
// numeric, with index brackets stripped. "topmostSubform[0].Page1[0].PlaintiffName[0]"
// yields "PlaintiffName".
func leafSegment(name string) string {
	segments := strings.Split(name, ".")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := indexBracketRe.ReplaceAllString(segments[i], "")
		if seg != "" && !numericOnlyRe.MatchString(seg) {
			return seg
		}
	}
	return indexBracketRe.ReplaceAllString(name, "")
}

// HumanizeLabel derives a display label from a raw field name: the leaf
// segment, split at case and separator boundaries, title-cased.
func HumanizeLabel(name string) string {
	seg := leafSegment(name)
	if seg == "" {
		return ""
	}

	var words []string
	for _, chunk := range splitSeparators(seg) {
		words = append(words, splitCamel(chunk)...)
	}

	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// SanitizeName derives a stable snake_case identifier from the raw name.
// It is a deterministic function of the raw name only; schema regeneration
// must produce the same identifier for the same PDF field.
func SanitizeName(name string) string {
	seg := strings.ToLower(leafSegment(name))
	seg = nonAlnumRe.ReplaceAllString(seg, "_")
	seg = underscoresRe.ReplaceAllString(seg, "_")
	return strings.Trim(seg, "_")
}

// DetectSection returns a humanized section hint for names with at least
// three hierarchical segments: the first middle segment that is not a page,
// index, or hash marker. Empty means no hint; the caller defaults the
// section to "general".
func DetectSection(name string) string {
	segments := strings.Split(name, ".")
	if len(segments) < 3 {
		return ""
	}
	for _, seg := range segments[1 : len(segments)-1] {
		seg = indexBracketRe.ReplaceAllString(seg, "")
		if seg == "" || sectionMarkerPattern.MatchString(seg) {
			continue
		}
		return HumanizeLabel(seg)
	}
	return ""
}

// splitSeparators breaks a segment on underscores, dashes, and spaces.
func splitSeparators(s string) []string {
	var out []string
	for _, chunk := range strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}) {
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

// splitCamel splits one chunk at lower-to-upper and letter-digit
// boundaries: "PlaintiffName2" -> ["Plaintiff", "Name", "2"].
func splitCamel(s string) []string {
	var words []string
	start := 0
	runes := []rune(s)
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := (isLower(prev) && isUpper(cur)) ||
			(isLetter(prev) && isDigit(cur)) ||
			(isDigit(prev) && isLetter(cur))
		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	words = append(words, string(runes[start:]))
	return words
}

func isUpper(r rune) bool  { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool  { return r >= 'a' && r <= 'z' }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return isUpper(r) || isLower(r) }
