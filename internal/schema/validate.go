package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReferenceCategories is the known small-claims category slug set. An
// unknown category is a warning, not an error, so new categories can be
// introduced schema-first.
var ReferenceCategories = []string{
	"plaintiff",
	"defendant",
	"claim",
	"court",
	"hearing",
	"judgment",
	"fee-waiver",
	"general",
}

// Result is the outcome of validating one schema document. Errors block
// sync; warnings are advisory only.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Validator structurally checks schema documents.
type Validator struct {
	// TemplatesDir, when set, enables the missing-PDF warning.
	TemplatesDir string
	// Categories overrides the reference category set. Nil uses
	// ReferenceCategories.
	Categories []string
}

func (v *Validator) categorySet() map[string]bool {
	cats := v.Categories
	if cats == nil {
		cats = ReferenceCategories
	}
	set := make(map[string]bool, len(cats))
	for _, c := range cats {
		set[c] = true
	}
	return set
}

// Validate checks one schema for required keys, valid types, and duplicate
// field names, plus advisory category/file/shared-key warnings.
func (v *Validator) Validate(s *Schema) Result {
	var res Result

	if s.Form.Code == "" {
		res.Errors = append(res.Errors, "form.code is required")
	}
	if s.Form.Title == "" {
		res.Errors = append(res.Errors, "form.title is required")
	}
	if s.Form.PDFFilename == "" {
		res.Errors = append(res.Errors, "form.pdf_filename is required")
	}
	if s.Form.Category == "" {
		res.Errors = append(res.Errors, "form.category is required")
	} else if !v.categorySet()[s.Form.Category] {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("category %q is not in the reference set", s.Form.Category))
	}

	seen := map[string]bool{}
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			where := fmt.Sprintf("section %q field %q", sec.Key, f.Name)
			if f.Name == "" {
				res.Errors = append(res.Errors, fmt.Sprintf("section %q: field missing name", sec.Key))
				continue
			}
			if seen[f.Name] {
				res.Errors = append(res.Errors, fmt.Sprintf("duplicate field name %q", f.Name))
			}
			seen[f.Name] = true
			if f.PDFFieldName == "" {
				res.Errors = append(res.Errors, where+": missing pdf_field_name")
			}
			if f.Type == "" {
				res.Errors = append(res.Errors, where+": missing type")
			} else if !f.Type.Valid() {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: unknown type %q", where, f.Type))
			}
			if f.Label == "" {
				res.Errors = append(res.Errors, where+": missing label")
			}
			if f.SharedKey != "" && !strings.Contains(f.SharedKey, ":") {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("%s: shared_key %q is not namespaced (want category:attribute)", where, f.SharedKey))
			}
		}
	}

	if v.TemplatesDir != "" && s.Form.PDFFilename != "" {
		path := filepath.Join(v.TemplatesDir, s.Form.PDFFilename)
		if _, err := os.Stat(path); err != nil {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("pdf file %q not found in templates directory", s.Form.PDFFilename))
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// CheckSharedKeyCollisions scans a schema corpus for unnamespaced shared
// keys reused by two or more forms. Namespaced keys are meant to be shared;
// a bare key reused across forms usually indicates an accidental overwrite
// channel. One warning is emitted per colliding key.
func CheckSharedKeyCollisions(schemas map[string]*Schema) []string {
	users := map[string]map[string]bool{}
	for _, s := range schemas {
		for _, f := range s.AllFields() {
			if f.SharedKey == "" || strings.Contains(f.SharedKey, ":") {
				continue
			}
			if users[f.SharedKey] == nil {
				users[f.SharedKey] = map[string]bool{}
			}
			users[f.SharedKey][s.Form.Code] = true
		}
	}

	keys := make([]string, 0, len(users))
	for key, forms := range users {
		if len(forms) >= 2 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var warnings []string
	for _, key := range keys {
		forms := make([]string, 0, len(users[key]))
		for code := range users[key] {
			forms = append(forms, code)
		}
		sort.Strings(forms)
		warnings = append(warnings, fmt.Sprintf(
			"unnamespaced shared key %q reused by forms: %s", key, strings.Join(forms, ", ")))
	}
	return warnings
}
