// Package classify maps raw PDF field names to the closed semantic type
// enum and derives human labels, stable identifiers, and section hints.
// Every function here is pure: no I/O, no state, deterministic on its
// arguments. Keep it that way: the generator depends on rerunning
// classification and getting identical schemas.
package classify

import (
	"github.com/cancelei/ca-small-claims/internal/extract"
	"github.com/cancelei/ca-small-claims/internal/schema"
)

// Classify maps a raw field name plus its backend-reported control kind to
// a semantic type. A button or choice control kind wins outright: the PDF
// author's control choice is authoritative there. Otherwise the ordered
// name-pattern table decides, defaulting to text. A heuristic miss is an
// expected outcome, not an error.
func Classify(name string, kind extract.ControlKind) schema.FieldType {
	switch kind {
	case extract.ControlButton:
		return schema.TypeCheckbox
	case extract.ControlChoice:
		return schema.TypeSelect
	case extract.ControlSignature:
		return schema.TypeSignature
	}

	for _, rule := range typeRules {
		for _, re := range rule.Patterns {
			if re.MatchString(name) {
				return rule.Type
			}
		}
	}
	return schema.TypeText
}

// SkipField reports whether the raw name matches a boilerplate control that
// should be excluded from generated schemas.
func SkipField(name string) bool {
	for _, re := range skipPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// PIIField reports whether the raw name suggests personally identifying
// content. Advisory only.
func PIIField(name string) bool {
	for _, re := range piiPatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
