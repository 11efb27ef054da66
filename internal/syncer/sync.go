// Package syncer projects schema documents into canonical form and field
// records. The projection is one-directional and idempotent: the schema is
// the source of truth, rows absent from the latest schema are deleted, and
// syncing an unchanged schema twice is a no-op beyond timestamps.
package syncer

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/cancelei/ca-small-claims/internal/schema"
	"github.com/cancelei/ca-small-claims/internal/store"
)

// Syncer writes schema projections into a store.
type Syncer struct {
	store  store.Store
	logger *slog.Logger
}

// New wires a syncer over the given store.
func New(st store.Store, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{store: st, logger: logger}
}

// Result summarizes one sync run for a single form.
type Result struct {
	Form    *store.FormRecord
	Synced  int
	Removed int
}

// Sync upserts the form record and regenerates its canonical field rows
// from the schema, computing the single global field ordering.
func (s *Syncer) Sync(doc *schema.Schema) (*Result, error) {
	if doc.Form.Code == "" {
		return nil, fmt.Errorf("sync: schema has no form code")
	}

	catID, err := s.resolveCategory(doc.Form.Category)
	if err != nil {
		return nil, err
	}

	form := &store.FormRecord{
		Code:         doc.Form.Code,
		Title:        doc.Form.Title,
		Description:  doc.Form.Description,
		CategoryID:   catID,
		PDFFilename:  doc.Form.PDFFilename,
		Fillable:     doc.Form.Fillable,
		Instructions: doc.Form.Instructions,
	}
	if err := s.store.UpsertForm(form); err != nil {
		return nil, err
	}

	ordered := orderFields(doc)
	keep := make([]string, 0, len(ordered))
	for i, of := range ordered {
		rec := fieldRecord(doc.Form.Code, of.section, of.def)
		rec.Position = i + 1
		if err := s.store.UpsertField(rec); err != nil {
			return nil, err
		}
		keep = append(keep, rec.Name)
	}

	deleted, err := s.store.DeleteFieldsExcept(doc.Form.Code, keep)
	if err != nil {
		return nil, err
	}
	if deleted > 0 {
		s.logger.Info("pruned stale field rows", "form", doc.Form.Code, "deleted", deleted)
	}
	return &Result{Form: form, Synced: len(ordered), Removed: deleted}, nil
}

type orderedField struct {
	def     schema.FieldDefinition
	section string
	page    int
	index   int
}

// orderFields flattens every section's fields and sorts them by effective
// page ascending (a field-level page overrides its section's page hint),
// then by original document order. The resulting rank is the global
// position.
func orderFields(doc *schema.Schema) []orderedField {
	var fields []orderedField
	index := 0
	for _, sec := range doc.Sections {
		for _, def := range sec.Fields {
			page := def.Page
			if page == 0 {
				page = sec.Page
			}
			fields = append(fields, orderedField{
				def:     def,
				section: sec.Key,
				page:    page,
				index:   index,
			})
			index++
		}
	}
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].page != fields[j].page {
			return fields[i].page < fields[j].page
		}
		return fields[i].index < fields[j].index
	})
	return fields
}

func fieldRecord(formCode, section string, def schema.FieldDefinition) *store.FieldRecord {
	return &store.FieldRecord{
		FormCode:       formCode,
		Name:           def.Name,
		PDFFieldName:   def.PDFFieldName,
		Type:           def.Type,
		Label:          def.Label,
		Placeholder:    def.Placeholder,
		HelpText:       def.HelpText,
		Required:       def.Required,
		Pattern:        def.Pattern,
		MinLength:      def.MinLength,
		MaxLength:      def.MaxLength,
		Section:        section,
		Page:           def.Page,
		Width:          def.Width,
		Conditions:     def.Conditions,
		RepeatGroup:    def.RepeatGroup,
		MaxRepetitions: def.MaxRepetitions,
		Options:        def.Options,
		SharedKey:      def.SharedKey,
		PII:            def.PII,
	}
}

var punctRe = regexp.MustCompile(`[^a-z0-9]+`)

// resolveCategory maps a schema category to a category row ID by slug,
// trying three strategies in order: exact slug, trailing path segment, and
// punctuation-normalized comparison. An empty category or a miss on all
// three resolves to no category rather than an error.
func (s *Syncer) resolveCategory(category string) (int64, error) {
	if category == "" {
		return 0, nil
	}
	cats, err := s.store.Categories()
	if err != nil {
		return 0, err
	}

	lower := strings.ToLower(category)
	for _, c := range cats {
		if c.Slug == lower {
			return c.ID, nil
		}
	}

	if idx := strings.LastIndexAny(lower, "/:"); idx >= 0 {
		tail := lower[idx+1:]
		for _, c := range cats {
			if c.Slug == tail {
				return c.ID, nil
			}
		}
	}

	normalized := punctRe.ReplaceAllString(lower, "")
	for _, c := range cats {
		if punctRe.ReplaceAllString(c.Slug, "") == normalized {
			return c.ID, nil
		}
	}

	s.logger.Warn("category not resolved", "category", category)
	return 0, nil
}
