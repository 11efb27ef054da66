package fill

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cancelei/ca-small-claims/internal/schema"
	"github.com/cancelei/ca-small-claims/internal/store"
)

func TestFormatValue_Checkbox(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		expected string
	}{
		{name: "bool_true", raw: true, expected: "Yes"},
		{name: "bool_false", raw: false, expected: "Off"},
		{name: "string_1", raw: "1", expected: "Yes"},
		{name: "string_true", raw: "true", expected: "Yes"},
		{name: "string_yes", raw: "Yes", expected: "Yes"},
		{name: "string_on", raw: "on", expected: "Yes"},
		{name: "string_0", raw: "0", expected: "Off"},
		{name: "string_no", raw: "no", expected: "Off"},
		{name: "empty_string", raw: "", expected: "Off"},
		{name: "nil", raw: nil, expected: "Off"},
		{name: "lowercase_yes_is_off", raw: "yes", expected: "Off"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatValue(schema.TypeCheckbox, tt.raw))
		})
	}
}

func TestFormatValue_Date(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		expected string
	}{
		{name: "iso_date", raw: "2026-03-15", expected: "03/15/2026"},
		{name: "us_date_passthrough_normalized", raw: "3/5/2026", expected: "03/05/2026"},
		{name: "long_form", raw: "March 15, 2026", expected: "03/15/2026"},
		{name: "unparseable_passes_through", raw: "sometime next week", expected: "sometime next week"},
		{name: "blank", raw: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatValue(schema.TypeDate, tt.raw))
		})
	}
}

func TestFormatValue_Currency(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		expected string
	}{
		{name: "float_padded", raw: 500.5, expected: "500.50"},
		{name: "int", raw: 1200, expected: "1200.00"},
		{name: "numeric_string", raw: "750", expected: "750.00"},
		{name: "dollar_sign_stripped", raw: "$2,500.75", expected: "2500.75"},
		{name: "non_numeric_passthrough", raw: "to be determined", expected: "to be determined"},
		{name: "blank", raw: "", expected: ""},
		{name: "nil", raw: nil, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatValue(schema.TypeCurrency, tt.raw))
		})
	}
}

func TestFormatValue_CheckboxGroup(t *testing.T) {
	assert.Equal(t, "personal, mail", FormatValue(schema.TypeCheckboxGroup, []string{"personal", "mail"}))
	assert.Equal(t, "personal, mail", FormatValue(schema.TypeCheckboxGroup, []any{"personal", "mail"}))
	assert.Equal(t, "personal", FormatValue(schema.TypeCheckboxGroup, "personal"))
}

func TestBuildData(t *testing.T) {
	fields := []store.FieldRecord{
		{Name: "plaintiff_name", PDFFieldName: "PlaintiffName", Type: schema.TypeText},
		{Name: "claim_amount", PDFFieldName: "ClaimAmount", Type: schema.TypeCurrency},
		{Name: "demand_made", PDFFieldName: "DemandMade", Type: schema.TypeCheckbox},
		{Name: "hearing_date", PDFFieldName: "HearingDate", Type: schema.TypeDate},
		{Name: "notes", PDFFieldName: "Notes", Type: schema.TypeTextarea},
	}
	values := map[string]any{
		"plaintiff_name": "Jane Doe",
		"claim_amount":   500.5,
		"demand_made":    true,
		"notes":          "",
	}

	data := BuildData(fields, values)

	assert.Equal(t, map[string]string{
		"PlaintiffName": "Jane Doe",
		"ClaimAmount":   "500.50",
		"DemandMade":    "Yes",
	}, data)
}

func TestBuildData_CheckboxAlwaysEmitted(t *testing.T) {
	fields := []store.FieldRecord{
		{Name: "demand_made", PDFFieldName: "DemandMade", Type: schema.TypeCheckbox},
	}

	data := BuildData(fields, map[string]any{})
	assert.Equal(t, map[string]string{"DemandMade": "Off"}, data)
}

func TestBuildData_ConditionHiddenFieldsDropped(t *testing.T) {
	fields := []store.FieldRecord{
		{
			Name:         "payment_details",
			PDFFieldName: "PaymentDetails",
			Type:         schema.TypeText,
			Conditions: []schema.Condition{
				{Field: "demand_made", Operator: "equals", Value: "true"},
			},
		},
		{
			Name:         "waiver_reason",
			PDFFieldName: "WaiverReason",
			Type:         schema.TypeCheckbox,
			Conditions: []schema.Condition{
				{Field: "fee_waiver", Operator: "equals", Value: "true"},
			},
		},
		{Name: "plaintiff_name", PDFFieldName: "PlaintiffName", Type: schema.TypeText},
	}
	values := map[string]any{
		"plaintiff_name":  "Jane Doe",
		"payment_details": "check 1042",
		"demand_made":     false,
		"fee_waiver":      false,
		"waiver_reason":   true,
	}

	data := BuildData(fields, values)

	// Hidden fields never reach the PDF, not even as a checkbox off-state.
	assert.Equal(t, map[string]string{"PlaintiffName": "Jane Doe"}, data)
}

func TestBuildData_ConditionMetFieldFilled(t *testing.T) {
	fields := []store.FieldRecord{
		{
			Name:         "payment_details",
			PDFFieldName: "PaymentDetails",
			Type:         schema.TypeText,
			Conditions: []schema.Condition{
				{Field: "demand_made", Operator: "equals", Value: "true"},
			},
		},
	}
	values := map[string]any{
		"demand_made":     true,
		"payment_details": "check 1042",
	}

	data := BuildData(fields, values)
	assert.Equal(t, map[string]string{"PaymentDetails": "check 1042"}, data)
}

func TestBuildData_RepeatGroupPlaceholder(t *testing.T) {
	fields := []store.FieldRecord{
		{
			Name:         "defendant_name",
			PDFFieldName: "Defendant{n}Name",
			Type:         schema.TypeText,
			RepeatGroup:  "defendants",
		},
	}

	data := BuildData(fields, map[string]any{"defendant_name": "Acme Corp"})
	assert.Equal(t, map[string]string{"Defendant0Name": "Acme Corp"}, data)
}
