// Package fill regenerates filled PDFs from canonical field records and
// submitted values, formatting values per semantic type and writing through
// the primary backend with deterministic fallback to the secondary.
package fill

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cancelei/ca-small-claims/internal/store"
	"github.com/cancelei/ca-small-claims/internal/templates"
)

// Backend writes formatted field values into a template PDF.
type Backend interface {
	Name() string
	Fill(templatePath, outputPath string, data map[string]string) error
}

// Flattener is implemented by backends that can lock a filled document.
type Flattener interface {
	Flatten(path string) error
}

// Request is one fill job: a submission's identity, the form's canonical
// field definitions, and the submitted values keyed by field name.
type Request struct {
	SubmissionID string
	FormCode     string
	Fields       []store.FieldRecord
	Values       map[string]any
}

// Filler produces filled PDFs. The output path is a pure function of the
// submission identity, so concurrent fills for different submissions never
// collide; fills for the same submission race benignly (last writer wins,
// and output is a deterministic function of current source data).
type Filler struct {
	templates templates.Store
	store     store.Store
	outputDir string
	primary   Backend
	fallback  Backend
	logger    *slog.Logger
}

// NewFiller wires the default backend pair: in-process pdfcpu as primary,
// the pdftk executable as fallback.
func NewFiller(tpl templates.Store, st store.Store, outputDir string, logger *slog.Logger) *Filler {
	return NewFillerWithBackends(tpl, st, outputDir,
		NewPDFCPUFiller(), NewPdftkFiller(NewResolver()), logger)
}

// NewFillerWithBackends wires explicit backends, used by tests to force
// failure paths.
func NewFillerWithBackends(
	tpl templates.Store, st store.Store, outputDir string,
	primary, fallback Backend, logger *slog.Logger,
) *Filler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filler{
		templates: tpl,
		store:     st,
		outputDir: outputDir,
		primary:   primary,
		fallback:  fallback,
		logger:    logger,
	}
}

// OutputPath returns the deterministic output location for a submission's
// filled form.
func (f *Filler) OutputPath(submissionID, formCode string) string {
	return filepath.Join(f.outputDir, submissionID, formCode+".pdf")
}

// Generate fills the form and returns the output path. The primary backend
// is tried first; on failure the secondary takes over transparently. Only
// both backends failing is fatal, with both causes preserved.
func (f *Filler) Generate(req Request) (string, error) {
	templatePath, err := f.templates.ResolveByCode(req.FormCode)
	if err != nil {
		return "", fmt.Errorf("resolve template: %w", err)
	}

	outputPath := f.OutputPath(req.SubmissionID, req.FormCode)
	if err := ensureDir(outputPath); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	data := BuildData(req.Fields, req.Values)
	if len(data) == 0 {
		return "", fmt.Errorf("no fillable values for submission %s form %s", req.SubmissionID, req.FormCode)
	}

	primaryErr := f.primary.Fill(templatePath, outputPath, data)
	if primaryErr != nil {
		f.logger.Warn("primary fill failed, falling back",
			"backend", f.primary.Name(), "form", req.FormCode, "error", primaryErr)
		if fallbackErr := f.fallback.Fill(templatePath, outputPath, data); fallbackErr != nil {
			return "", fmt.Errorf("both fill backends failed for %s: %w",
				req.FormCode, errors.Join(primaryErr, fallbackErr))
		}
	}

	f.touchSubmission(req)
	return outputPath, nil
}

// GenerateFlattened fills the form and then locks the result. A flatten
// failure degrades to the unflattened output rather than erroring.
func (f *Filler) GenerateFlattened(req Request) (string, error) {
	path, err := f.Generate(req)
	if err != nil {
		return "", err
	}

	flattener, ok := f.primary.(Flattener)
	if !ok {
		return path, nil
	}
	if err := flattener.Flatten(path); err != nil {
		f.logger.Warn("flatten failed, returning unflattened output",
			"form", req.FormCode, "error", err)
	}
	return path, nil
}

func (f *Filler) touchSubmission(req Request) {
	if f.store == nil || req.SubmissionID == "" {
		return
	}
	if err := f.store.TouchSubmission(req.SubmissionID, req.FormCode, time.Now()); err != nil {
		f.logger.Warn("submission timestamp update failed",
			"submission", req.SubmissionID, "error", err)
	}
}
