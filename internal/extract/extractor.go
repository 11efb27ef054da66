// Package extract reads the fillable-field dictionary of a PDF through two
// independent backends and returns normalized field descriptors ordered by
// visual position (page ascending, top-to-bottom, left-to-right).
package extract

import (
	"log/slog"
	"os"
	"sort"
)

// Backend is one PDF-processing engine capable of listing form fields.
type Backend interface {
	Name() string
	Extract(path string) ([]FieldDescriptor, error)
}

// Extractor tries the primary backend first and falls back to the secondary
// when the primary errors or reports zero fields. Backend failures never
// propagate past this type: an empty result means "non-fillable form".
type Extractor struct {
	primary  Backend
	fallback Backend
	logger   *slog.Logger
}

// NewExtractor builds an extractor over the default backend pair.
func NewExtractor(logger *slog.Logger) *Extractor {
	return NewExtractorWithBackends(NewPDFCPUBackend(), NewLedongthucBackend(), logger)
}

// NewExtractorWithBackends wires explicit backends, used by tests to force
// failure paths.
func NewExtractorWithBackends(primary, fallback Backend, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{primary: primary, fallback: fallback, logger: logger}
}

// Extract returns the form fields of the PDF at path in visual order. A
// missing file or a form without fillable fields yields an empty slice and
// no error; that is the caller's signal that the form is non-fillable.
func (e *Extractor) Extract(path string) []FieldDescriptor {
	if _, err := os.Stat(path); err != nil {
		e.logger.Warn("pdf not readable", "path", path, "error", err)
		return nil
	}

	fields, err := e.primary.Extract(path)
	if err != nil {
		e.logger.Warn("primary extraction failed, falling back",
			"backend", e.primary.Name(), "path", path, "error", err)
	}
	if len(fields) == 0 {
		fields, err = e.fallback.Extract(path)
		if err != nil {
			e.logger.Warn("fallback extraction failed",
				"backend", e.fallback.Name(), "path", path, "error", err)
			return nil
		}
	}

	sortFields(fields)
	return fields
}

// sortFields orders descriptors by page ascending, then vertical position
// descending (PDF user space grows upward, so larger Y is higher on the
// page), then horizontal position ascending. Descriptors without geometry
// keep their document order within the page.
func sortFields(fields []FieldDescriptor) {
	sort.SliceStable(fields, func(i, j int) bool {
		a, b := fields[i], fields[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Rect == nil || b.Rect == nil {
			return a.Order < b.Order
		}
		if a.Rect.Top() != b.Rect.Top() {
			return a.Rect.Top() > b.Rect.Top()
		}
		if a.Rect.X1 != b.Rect.X1 {
			return a.Rect.X1 < b.Rect.X1
		}
		return a.Order < b.Order
	})
}
