package generate

import (
	"regexp"

	"github.com/cancelei/ca-small-claims/internal/schema"
)

// sharedKeyRule maps field-name patterns to a namespaced shared key. The
// pattern is tested against the sanitized name and the raw PDF name joined
// by a space, first match wins. Shared keys let a value entered on one form
// prefill same-keyed fields on every other form, so the table only carries
// attributes that are stable across a filing: the plaintiff's own details,
// the court, and the case identity. Per-form values (defendants, claim
// amounts) deliberately have no rule.
type sharedKeyRule struct {
	Key     string
	Pattern *regexp.Regexp
}

var sharedKeyRules = []sharedKeyRule{
	{"plaintiff:address", regexp.MustCompile(`(?i)plaintiff\w*[\s_]*(street|mailing)?[\s_]*address`)},
	{"plaintiff:city", regexp.MustCompile(`(?i)plaintiff\w*[\s_]*city`)},
	{"plaintiff:state", regexp.MustCompile(`(?i)plaintiff\w*[\s_]*state`)},
	{"plaintiff:zip", regexp.MustCompile(`(?i)plaintiff\w*[\s_]*zip`)},
	{"plaintiff:phone", regexp.MustCompile(`(?i)plaintiff\w*[\s_]*(phone|telephone|tel)`)},
	{"plaintiff:email", regexp.MustCompile(`(?i)plaintiff\w*[\s_]*e?[\s_-]*mail`)},
	{"plaintiff:name", regexp.MustCompile(`(?i)plaintiff\w*[\s_]*(full[\s_]*)?name`)},
	{"court:address", regexp.MustCompile(`(?i)court\w*[\s_]*(street|mailing)?[\s_]*address`)},
	{"court:county", regexp.MustCompile(`(?i)(court\w*[\s_]*county|county[\s_]*of)`)},
	{"court:branch", regexp.MustCompile(`(?i)court\w*[\s_]*branch|branch[\s_]*name`)},
	{"court:name", regexp.MustCompile(`(?i)(court[\s_]*name|name[\s_]*of[\s_]*court|court\w*name)`)},
	{"case:number", regexp.MustCompile(`(?i)case[\s_]*(number|num|no)`)},
	{"case:name", regexp.MustCompile(`(?i)case[\s_]*(name|title)`)},
	{"hearing:date", regexp.MustCompile(`(?i)(hearing[\s_]*date|date[\s_]*of[\s_]*hearing)`)},
	{"hearing:time", regexp.MustCompile(`(?i)hearing[\s_]*time`)},
}

// sharedKey returns the namespaced shared key for a field, or empty when no
// rule matches the combined sanitized + raw name string.
func sharedKey(sanitized, raw string) string {
	combined := sanitized + " " + raw
	for _, rule := range sharedKeyRules {
		if rule.Pattern.MatchString(combined) {
			return rule.Key
		}
	}
	return ""
}

// widthFor returns the layout width class for a semantic type. Anything
// not listed renders full width.
func widthFor(t schema.FieldType) string {
	switch t {
	case schema.TypeDate, schema.TypeTel, schema.TypeEmail:
		return schema.WidthHalf
	case schema.TypeCurrency, schema.TypeNumber:
		return schema.WidthThird
	default:
		return schema.WidthFull
	}
}
