// Package store persists the canonical form and field records derived from
// schema documents. Records here are a replaceable projection: sync
// regenerates them wholesale, and nothing may mutate them directly without
// re-running sync.
package store

import (
	"time"

	"github.com/cancelei/ca-small-claims/internal/schema"
)

// CategoryRecord is one entry of the category reference set.
type CategoryRecord struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// FormRecord is the persisted form row keyed by code.
type FormRecord struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	CategoryID   int64     `json:"category_id,omitempty"`
	PDFFilename  string    `json:"pdf_filename"`
	Fillable     bool      `json:"fillable"`
	Instructions string    `json:"instructions,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FieldRecord is one canonical field definition, unique per (form, name).
// Position is the field's 1-based rank in the single global ordering
// computed at sync time.
type FieldRecord struct {
	ID             int64              `json:"id"`
	FormCode       string             `json:"form_code"`
	Name           string             `json:"name"`
	PDFFieldName   string             `json:"pdf_field_name"`
	Type           schema.FieldType   `json:"type"`
	Label          string             `json:"label"`
	Placeholder    string             `json:"placeholder,omitempty"`
	HelpText       string             `json:"help_text,omitempty"`
	Required       bool               `json:"required"`
	Pattern        string             `json:"pattern,omitempty"`
	MinLength      int                `json:"min_length,omitempty"`
	MaxLength      int                `json:"max_length,omitempty"`
	Section        string             `json:"section"`
	Position       int                `json:"position"`
	Page           int                `json:"page,omitempty"`
	Width          string             `json:"width"`
	Conditions     []schema.Condition `json:"conditions,omitempty"`
	RepeatGroup    string             `json:"repeat_group,omitempty"`
	MaxRepetitions int                `json:"max_repetitions,omitempty"`
	Options        []schema.Option    `json:"options,omitempty"`
	SharedKey      string             `json:"shared_key,omitempty"`
	PII            bool               `json:"pii,omitempty"`
}

// Store is the keyed upsert/delete persistence the pipeline consumes. The
// pipeline does not care which technology implements it.
type Store interface {
	Categories() ([]CategoryRecord, error)
	UpsertForm(f *FormRecord) error
	FormByCode(code string) (*FormRecord, error)
	UpsertField(f *FieldRecord) error
	// DeleteFieldsExcept removes every field row of the form whose name is
	// not in keep, returning the number deleted.
	DeleteFieldsExcept(formCode string, keep []string) (int, error)
	// FieldsByForm returns the form's field rows ordered by position.
	FieldsByForm(formCode string) ([]FieldRecord, error)
	// TouchSubmission records when a submission's PDF was last generated.
	TouchSubmission(submissionID, formCode string, at time.Time) error
	Close() error
}
