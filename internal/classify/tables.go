package classify

import (
	"regexp"

	"github.com/cancelei/ca-small-claims/internal/schema"
)

// typeRule maps raw-name patterns to one semantic type. Rules are evaluated
// in order and the first matching alternative wins, so more specific
// categories (signature, date) sit above looser ones (number).
type typeRule struct {
	Type     schema.FieldType
	Patterns []*regexp.Regexp
}

var typeRules = []typeRule{
	{
		Type: schema.TypeSignature,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)signature`),
			regexp.MustCompile(`(?i)\bsign(ed|er)?\b`),
			regexp.MustCompile(`(?i)firma`),
		},
	},
	{
		Type: schema.TypeDate,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bdate\b`),
			regexp.MustCompile(`(?i)^date|date$`),
			regexp.MustCompile(`(?i)date(of|_of)?(birth|filed|served|hearing|mailing)`),
			regexp.MustCompile(`(?i)\bdob\b`),
			regexp.MustCompile(`(?i)fecha`),
		},
	},
	{
		Type: schema.TypeEmail,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)e[-_]?mail`),
			regexp.MustCompile(`(?i)correo`),
		},
	},
	{
		Type: schema.TypeTel,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)phone`),
			regexp.MustCompile(`(?i)telephone`),
			regexp.MustCompile(`(?i)\btel\b`),
			regexp.MustCompile(`(?i)\bfax\b`),
			regexp.MustCompile(`(?i)mobile|cell`),
		},
	},
	{
		Type: schema.TypeCurrency,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)amount`),
			regexp.MustCompile(`(?i)\bamt\b`),
			regexp.MustCompile(`(?i)dollar|money|payment|cost|fee\b`),
			regexp.MustCompile(`(?i)total|balance|owed|damages`),
			regexp.MustCompile(`(?i)\bwages?\b|salary|income`),
		},
	},
	{
		Type: schema.TypeAddress,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)address`),
			regexp.MustCompile(`(?i)street|mailing`),
			regexp.MustCompile(`(?i)city.?state.?zip`),
		},
	},
	{
		Type: schema.TypeCheckbox,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)checkbox|check_?box`),
			regexp.MustCompile(`(?i)\bcb[_\d]`),
			regexp.MustCompile(`(?i)\bchk\b`),
			// Case-sensitive on purpose: (?i) would let "issue" match "is".
			regexp.MustCompile(`^(is|has|was|does)[A-Z_]`),
		},
	},
	{
		Type: schema.TypeNumber,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bnumber\b|number$|\bnum\b`),
			regexp.MustCompile(`(?i)\bcount\b|\bage\b`),
			regexp.MustCompile(`(?i)quantity|\bqty\b`),
			regexp.MustCompile(`(?i)zip_?code|\bzip\b|zip$`),
		},
	},
}

// skipPatterns match boilerplate and utility controls that carry no user
// data: viewer buttons, watermarks, barcodes, and print plumbing that the
// Judicial Council authoring tools leave behind.
var skipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^save\b|save_?(form|button)`),
	regexp.MustCompile(`(?i)^print\b|print_?(form|button|this)`),
	regexp.MustCompile(`(?i)reset_?(form|button)?$`),
	regexp.MustCompile(`(?i)clear_?(form|fields|button)`),
	regexp.MustCompile(`(?i)submit_?(form|button)?$`),
	regexp.MustCompile(`(?i)watermark`),
	regexp.MustCompile(`(?i)barcode|bar_?code`),
	regexp.MustCompile(`(?i)^qr_?code`),
	regexp.MustCompile(`(?i)form_?number`),
	regexp.MustCompile(`(?i)page_?number|page_?count`),
	regexp.MustCompile(`(?i)^header\b|^footer\b`),
	regexp.MustCompile(`(?i)judicial_?council`),
	regexp.MustCompile(`(?i)^seal\b|court_?seal`),
	regexp.MustCompile(`(?i)revision_?date|rev_?date`),
	regexp.MustCompile(`(?i)^version\b`),
	regexp.MustCompile(`(?i)^spacer|^filler`),
	regexp.MustCompile(`(?i)^dummy`),
	regexp.MustCompile(`(?i)^button`),
	regexp.MustCompile(`(?i)^help_?(text|button)`),
	regexp.MustCompile(`(?i)instructions?_?only`),
}

// piiPatterns flag fields whose values identify a person beyond contact
// details. The flag is advisory: it marks the field for redaction and
// retention policy downstream, never blocks anything.
var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ssn|social_?security`),
	regexp.MustCompile(`(?i)date_?of_?birth|birth_?date|\bdob\b`),
	regexp.MustCompile(`(?i)driver.?s?_?license`),
	regexp.MustCompile(`(?i)license_?(number|no)`),
	regexp.MustCompile(`(?i)passport`),
	regexp.MustCompile(`(?i)account_?(number|no)`),
	regexp.MustCompile(`(?i)bank_?account|routing`),
	regexp.MustCompile(`(?i)credit_?card`),
	regexp.MustCompile(`(?i)minor.?s?_?name|child.?s?_?name`),
	regexp.MustCompile(`(?i)victim.?s?_?name`),
	regexp.MustCompile(`(?i)taxpayer|itin\b`),
}

// sectionMarkerPattern matches hierarchical segments that carry position
// rather than meaning: page markers, bare indices, hash suffixes.
var sectionMarkerPattern = regexp.MustCompile(`(?i)^(page\s*\d*|p\d+|\d+|#.*|row\d*|item\d*)$`)
