package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSchema() *Schema {
	return &Schema{
		Form: Form{
			Code:        "sc-100",
			Title:       "SC-100",
			Category:    "claim",
			PDFFilename: "sc100.pdf",
			Fillable:    true,
		},
		Sections: SectionList{
			{
				Key:   "plaintiff",
				Title: "Plaintiff Information",
				Fields: []FieldDefinition{
					{
						Name:         "plaintiff_name",
						PDFFieldName: "PlaintiffName",
						Type:         TypeText,
						Label:        "Plaintiff Name",
						Width:        WidthFull,
						SharedKey:    "plaintiff:name",
					},
				},
			},
		},
	}
}

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		name             string
		mutate           func(*Schema)
		expectedErrors   []string
		expectedWarnings []string
	}{
		{
			name:   "valid_schema",
			mutate: func(s *Schema) {},
		},
		{
			name:           "missing_code",
			mutate:         func(s *Schema) { s.Form.Code = "" },
			expectedErrors: []string{"form.code is required"},
		},
		{
			name:           "missing_title",
			mutate:         func(s *Schema) { s.Form.Title = "" },
			expectedErrors: []string{"form.title is required"},
		},
		{
			name:           "missing_pdf_filename",
			mutate:         func(s *Schema) { s.Form.PDFFilename = "" },
			expectedErrors: []string{"form.pdf_filename is required"},
		},
		{
			name:           "missing_category",
			mutate:         func(s *Schema) { s.Form.Category = "" },
			expectedErrors: []string{"form.category is required"},
		},
		{
			name:             "unknown_category_warns",
			mutate:           func(s *Schema) { s.Form.Category = "maritime" },
			expectedWarnings: []string{`category "maritime" is not in the reference set`},
		},
		{
			name: "field_missing_name",
			mutate: func(s *Schema) {
				s.Sections[0].Fields[0].Name = ""
			},
			expectedErrors: []string{`section "plaintiff": field missing name`},
		},
		{
			name: "field_missing_pdf_field_name",
			mutate: func(s *Schema) {
				s.Sections[0].Fields[0].PDFFieldName = ""
			},
			expectedErrors: []string{`section "plaintiff" field "plaintiff_name": missing pdf_field_name`},
		},
		{
			name: "field_unknown_type",
			mutate: func(s *Schema) {
				s.Sections[0].Fields[0].Type = "hologram"
			},
			expectedErrors: []string{`section "plaintiff" field "plaintiff_name": unknown type "hologram"`},
		},
		{
			name: "field_missing_label",
			mutate: func(s *Schema) {
				s.Sections[0].Fields[0].Label = ""
			},
			expectedErrors: []string{`section "plaintiff" field "plaintiff_name": missing label`},
		},
		{
			name: "duplicate_field_name_across_sections",
			mutate: func(s *Schema) {
				s.Sections = append(s.Sections, Section{
					Key:   "extra",
					Title: "Extra",
					Fields: []FieldDefinition{
						{
							Name:         "plaintiff_name",
							PDFFieldName: "PlaintiffName2",
							Type:         TypeText,
							Label:        "Plaintiff Name Again",
							Width:        WidthFull,
						},
					},
				})
			},
			expectedErrors: []string{`duplicate field name "plaintiff_name"`},
		},
		{
			name: "unnamespaced_shared_key_warns",
			mutate: func(s *Schema) {
				s.Sections[0].Fields[0].SharedKey = "name"
			},
			expectedWarnings: []string{
				`section "plaintiff" field "plaintiff_name": shared_key "name" is not namespaced (want category:attribute)`,
			},
		},
	}

	v := &Validator{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validSchema()
			tt.mutate(doc)

			res := v.Validate(doc)

			assert.Equal(t, len(tt.expectedErrors) == 0, res.Valid)
			assert.Equal(t, tt.expectedErrors, res.Errors)
			assert.Equal(t, tt.expectedWarnings, res.Warnings)
		})
	}
}

func TestValidator_MissingPDFWarning(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sc100.pdf"), []byte("%PDF-1.7"), 0o644))

	v := &Validator{TemplatesDir: dir}

	t.Run("present_pdf_no_warning", func(t *testing.T) {
		res := v.Validate(validSchema())
		assert.True(t, res.Valid)
		assert.Empty(t, res.Warnings)
	})

	t.Run("missing_pdf_warns", func(t *testing.T) {
		doc := validSchema()
		doc.Form.PDFFilename = "sc999.pdf"
		res := v.Validate(doc)
		assert.True(t, res.Valid)
		assert.Equal(t, []string{`pdf file "sc999.pdf" not found in templates directory`}, res.Warnings)
	})
}

func TestCheckSharedKeyCollisions(t *testing.T) {
	withKey := func(code, key string) *Schema {
		doc := validSchema()
		doc.Form.Code = code
		doc.Sections[0].Fields[0].SharedKey = key
		return doc
	}

	tests := []struct {
		name     string
		schemas  map[string]*Schema
		expected []string
	}{
		{
			name: "namespaced_keys_never_collide",
			schemas: map[string]*Schema{
				"sc-100": withKey("sc-100", "plaintiff:name"),
				"sc-104": withKey("sc-104", "plaintiff:name"),
			},
			expected: nil,
		},
		{
			name: "bare_key_single_form_ok",
			schemas: map[string]*Schema{
				"sc-100": withKey("sc-100", "name"),
				"sc-104": withKey("sc-104", "plaintiff:name"),
			},
			expected: nil,
		},
		{
			name: "bare_key_two_forms_one_warning",
			schemas: map[string]*Schema{
				"sc-100": withKey("sc-100", "name"),
				"sc-104": withKey("sc-104", "name"),
			},
			expected: []string{`unnamespaced shared key "name" reused by forms: sc-100, sc-104`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CheckSharedKeyCollisions(tt.schemas))
		})
	}
}
