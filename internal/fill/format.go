package fill

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cancelei/ca-small-claims/internal/schema"
	"github.com/cancelei/ca-small-claims/internal/store"
)

// repeatIndexPlaceholder marks the repetition slot in the PDF field name of
// a repeating-group field. Only the first repetition is currently filled,
// so the placeholder always resolves to index 0.
// TODO: emit one entry per repetition up to max_repetitions once the
// intake flow collects multi-row values.
const repeatIndexPlaceholder = "{n}"

// dateLayouts are tried in order when normalizing date input.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// BuildData maps canonical field definitions plus submitted values to the
// backend field-name -> formatted-value pairs handed to a fill backend.
// Fields hidden by their visibility conditions are dropped entirely; blank
// values are skipped except for visible checkboxes, which always emit an
// explicit on/off state.
func BuildData(fields []store.FieldRecord, values map[string]any) map[string]string {
	data := make(map[string]string, len(fields))
	for _, f := range fields {
		if !visible(f.Conditions, values) {
			continue
		}
		raw, ok := values[f.Name]
		if !ok && f.Type != schema.TypeCheckbox {
			continue
		}
		formatted := FormatValue(f.Type, raw)
		if formatted == "" && f.Type != schema.TypeCheckbox {
			continue
		}

		pdfName := f.PDFFieldName
		if f.RepeatGroup != "" {
			pdfName = strings.ReplaceAll(pdfName, repeatIndexPlaceholder, "0")
		}
		data[pdfName] = formatted
	}
	return data
}

// visible reports whether every condition on a field holds against the
// submitted values. A hidden field never reaches the PDF, not even as a
// checkbox off-state.
func visible(conds []schema.Condition, values map[string]any) bool {
	for _, c := range conds {
		if !c.Evaluate(values) {
			return false
		}
	}
	return true
}

// FormatValue renders a submitted value per semantic type.
func FormatValue(t schema.FieldType, raw any) string {
	switch t {
	case schema.TypeCheckbox:
		if truthy(raw) {
			return "Yes"
		}
		return "Off"
	case schema.TypeDate:
		return formatDate(stringValue(raw))
	case schema.TypeCurrency:
		return formatCurrency(raw)
	case schema.TypeCheckboxGroup:
		return joinTokens(raw)
	default:
		return stringValue(raw)
	}
}

// truthy matches the accepted checkbox on-values.
func truthy(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		switch strings.TrimSpace(v) {
		case "1", "true", "Yes", "on":
			return true
		}
		return false
	case int:
		return v != 0
	case float64:
		return v != 0
	default:
		return false
	}
}

// formatDate renders a parseable calendar date as MM/DD/YYYY. Input the
// layouts do not cover passes through unchanged rather than erroring.
func formatDate(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("01/02/2006")
		}
	}
	return s
}

// formatCurrency renders a numeric value with two fixed decimals. Blank
// stays blank; non-numeric text passes through.
func formatCurrency(raw any) string {
	switch v := raw.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', 2, 64)
	case int:
		return fmt.Sprintf("%d.00", v)
	case string:
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "$"))
		if trimmed == "" {
			return ""
		}
		trimmed = strings.ReplaceAll(trimmed, ",", "")
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return strconv.FormatFloat(f, 'f', 2, 64)
		}
		return v
	case nil:
		return ""
	default:
		return stringValue(raw)
	}
}

// joinTokens joins selected checkbox-group tokens with ", ".
func joinTokens(raw any) string {
	switch v := raw.(type) {
	case []string:
		return strings.Join(v, ", ")
	case []any:
		tokens := make([]string, 0, len(v))
		for _, item := range v {
			tokens = append(tokens, stringValue(item))
		}
		return strings.Join(tokens, ", ")
	default:
		return stringValue(raw)
	}
}

// stringValue coerces any submitted value to its string form.
func stringValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
