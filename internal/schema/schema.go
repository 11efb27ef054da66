// Package schema defines the declarative form schema document: the durable
// source of truth describing one court form's fields, sections, and
// metadata, independent of any PDF's binary internals.
package schema

// FieldType is the closed set of semantic field categories. It drives both
// UI rendering and fill-time value formatting.
type FieldType string

const (
	TypeText          FieldType = "text"
	TypeTextarea      FieldType = "textarea"
	TypeTel           FieldType = "tel"
	TypeEmail         FieldType = "email"
	TypeDate          FieldType = "date"
	TypeCurrency      FieldType = "currency"
	TypeNumber        FieldType = "number"
	TypeCheckbox      FieldType = "checkbox"
	TypeCheckboxGroup FieldType = "checkbox_group"
	TypeRadio         FieldType = "radio"
	TypeSelect        FieldType = "select"
	TypeSignature     FieldType = "signature"
	TypeAddress       FieldType = "address"
	TypeHidden        FieldType = "hidden"
	TypeReadonly      FieldType = "readonly"
)

// fieldTypes is the membership set for validation.
var fieldTypes = map[FieldType]bool{
	TypeText: true, TypeTextarea: true, TypeTel: true, TypeEmail: true,
	TypeDate: true, TypeCurrency: true, TypeNumber: true, TypeCheckbox: true,
	TypeCheckboxGroup: true, TypeRadio: true, TypeSelect: true,
	TypeSignature: true, TypeAddress: true, TypeHidden: true, TypeReadonly: true,
}

// Valid reports whether t is a member of the closed enum.
func (t FieldType) Valid() bool { return fieldTypes[t] }

// Layout width classes.
const (
	WidthFull  = "full"
	WidthHalf  = "half"
	WidthThird = "third"
)

// Option is one selectable value of a select or radio field.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// FieldDefinition describes one fillable field of a form.
type FieldDefinition struct {
	Name         string      `yaml:"name" json:"name"`
	PDFFieldName string      `yaml:"pdf_field_name" json:"pdf_field_name"`
	Type         FieldType   `yaml:"type" json:"type"`
	Label        string      `yaml:"label" json:"label"`
	Placeholder  string      `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	HelpText     string      `yaml:"help_text,omitempty" json:"help_text,omitempty"`
	Required     bool        `yaml:"required" json:"required"`
	Width        string      `yaml:"width" json:"width"`
	SharedKey    string      `yaml:"shared_key,omitempty" json:"shared_key,omitempty"`
	Options      []Option    `yaml:"options,omitempty" json:"options,omitempty"`
	Conditions   []Condition `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	Page         int         `yaml:"page,omitempty" json:"page,omitempty"`
	PII          bool        `yaml:"pii,omitempty" json:"pii,omitempty"`

	// Optional validation and repetition metadata carried through to the
	// canonical store.
	Pattern        string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	MinLength      int    `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	MaxLength      int    `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	RepeatGroup    string `yaml:"repeat_group,omitempty" json:"repeat_group,omitempty"`
	MaxRepetitions int    `yaml:"max_repetitions,omitempty" json:"max_repetitions,omitempty"`
}

// Section groups fields under a heading. Key is the mapping key in the
// document; section order mirrors visual layout, never alphabetical.
type Section struct {
	Key    string            `yaml:"-" json:"key"`
	Title  string            `yaml:"title" json:"title"`
	Page   int               `yaml:"page,omitempty" json:"page,omitempty"`
	Fields []FieldDefinition `yaml:"fields" json:"fields"`
}

// Form is the schema's form-level metadata.
type Form struct {
	Code         string `yaml:"code" json:"code"`
	Title        string `yaml:"title" json:"title"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty"`
	Category     string `yaml:"category" json:"category"`
	PDFFilename  string `yaml:"pdf_filename" json:"pdf_filename"`
	Fillable     bool   `yaml:"fillable" json:"fillable"`
	Instructions string `yaml:"instructions,omitempty" json:"instructions,omitempty"`
}

// Schema is one complete form schema document.
type Schema struct {
	Form     Form        `yaml:"form" json:"form"`
	Sections SectionList `yaml:"sections" json:"sections"`
}

// AllFields flattens every section's fields in section order.
func (s *Schema) AllFields() []FieldDefinition {
	var fields []FieldDefinition
	for _, sec := range s.Sections {
		fields = append(fields, sec.Fields...)
	}
	return fields
}

// Section returns the section with the given key, or nil.
func (s *Schema) Section(key string) *Section {
	for i := range s.Sections {
		if s.Sections[i].Key == key {
			return &s.Sections[i]
		}
	}
	return nil
}
