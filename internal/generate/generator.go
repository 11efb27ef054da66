// Package generate derives form schema documents from fillable PDF
// templates: extraction, classification, section grouping, and name/key
// assignment in one pass.
package generate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cancelei/ca-small-claims/internal/classify"
	"github.com/cancelei/ca-small-claims/internal/extract"
	"github.com/cancelei/ca-small-claims/internal/schema"
	"github.com/cancelei/ca-small-claims/internal/templates"
)

// Generator authors schema documents from PDF templates.
type Generator struct {
	templates templates.Store
	extractor *extract.Extractor
	// SchemasDir receives generated documents in batch mode.
	SchemasDir string
	logger     *slog.Logger
}

// NewGenerator wires a generator over a template store and extractor.
func NewGenerator(store templates.Store, extractor *extract.Extractor, schemasDir string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		templates:  store,
		extractor:  extractor,
		SchemasDir: schemasDir,
		logger:     logger,
	}
}

// Generate builds the schema for one form code. A template with no
// fillable fields produces a fillable:false schema with empty sections; a
// missing template is the only error.
func (g *Generator) Generate(formCode string) (*schema.Schema, error) {
	path, err := g.templates.ResolveByCode(formCode)
	if err != nil {
		return nil, fmt.Errorf("resolve template for %s: %w", formCode, err)
	}
	return g.generateFromPath(formCode, path), nil
}

func (g *Generator) generateFromPath(formCode, path string) *schema.Schema {
	code := strings.ToLower(formCode)
	doc := &schema.Schema{
		Form: schema.Form{
			Code:        code,
			Title:       strings.ToUpper(code),
			Category:    "general",
			PDFFilename: filepath.Base(path),
		},
	}

	fields := g.extractor.Extract(path)
	if len(fields) == 0 {
		g.logger.Info("no fillable fields, emitting non-fillable schema", "form", code)
		doc.Form.Fillable = false
		doc.Sections = schema.SectionList{}
		return doc
	}
	doc.Form.Fillable = true

	seenRaw := map[string]bool{}
	nameCounts := map[string]int{}
	sections := map[string]*schema.Section{}
	var sectionOrder []string

	for _, fd := range fields {
		if classify.SkipField(fd.Name) || seenRaw[fd.Name] {
			continue
		}
		seenRaw[fd.Name] = true

		fieldType := classify.Classify(fd.Name, fd.Kind)
		// A button control carrying multiple export values is a radio
		// group, not an independent checkbox.
		if fieldType == schema.TypeCheckbox && len(fd.Options) > 1 {
			fieldType = schema.TypeRadio
		}

		name := g.uniqueName(classify.SanitizeName(fd.Name), nameCounts)

		def := schema.FieldDefinition{
			Name:         name,
			PDFFieldName: fd.Name,
			Type:         fieldType,
			Label:        classify.HumanizeLabel(fd.Name),
			Width:        widthFor(fieldType),
			SharedKey:    sharedKey(name, fd.Name),
			Page:         fd.Page,
			PII:          classify.PIIField(fd.Name),
		}
		if fieldType == schema.TypeSelect || fieldType == schema.TypeRadio {
			for _, opt := range fd.Options {
				def.Options = append(def.Options, schema.Option{
					Value: opt,
					Label: classify.HumanizeLabel(opt),
				})
			}
		}

		secKey, secTitle := sectionFor(fd.Name)
		sec, ok := sections[secKey]
		if !ok {
			sec = &schema.Section{Key: secKey, Title: secTitle, Page: fd.Page}
			sections[secKey] = sec
			sectionOrder = append(sectionOrder, secKey)
		}
		sec.Fields = append(sec.Fields, def)
	}

	for _, key := range sectionOrder {
		doc.Sections = append(doc.Sections, *sections[key])
	}
	return doc
}

// uniqueName appends _2, _3, ... on collision within one form.
func (g *Generator) uniqueName(base string, counts map[string]int) string {
	if base == "" {
		base = "field"
	}
	counts[base]++
	if counts[base] == 1 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, counts[base])
}

// sectionFor derives the section key and title from the raw name's
// hierarchy, defaulting to the general section.
func sectionFor(rawName string) (key, title string) {
	hint := classify.DetectSection(rawName)
	if hint == "" {
		return "general", "General Information"
	}
	return classify.SanitizeName(hint), hint
}

// Write saves a generated schema document to SchemasDir as <code>.yml and
// returns the written path.
func (g *Generator) Write(doc *schema.Schema) (string, error) {
	path := filepath.Join(g.SchemasDir, doc.Form.Code+".yml")
	if err := doc.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// BatchResult aggregates one batch generation run.
type BatchResult struct {
	Generated []string `json:"generated"`
	Skipped   []string `json:"skipped"`
	Failed    []string `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// Batch generates schemas for every template matching the code prefix,
// writing each to SchemasDir as <code>.yml. Forms with an existing schema
// are skipped unless force is set. Failures are aggregated, never fatal.
func (g *Generator) Batch(prefix string, force bool) BatchResult {
	var res BatchResult

	paths, err := g.templates.List(prefix)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	for _, path := range paths {
		code := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		outPath := filepath.Join(g.SchemasDir, code+".yml")

		if !force {
			if _, err := os.Stat(outPath); err == nil {
				res.Skipped = append(res.Skipped, code)
				continue
			}
		}

		doc := g.generateFromPath(code, path)
		if err := doc.Save(outPath); err != nil {
			g.logger.Error("schema write failed", "form", code, "error", err)
			res.Failed = append(res.Failed, code)
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", code, err))
			continue
		}
		res.Generated = append(res.Generated, code)
	}
	return res
}
