package generate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cancelei/ca-small-claims/internal/extract"
	"github.com/cancelei/ca-small-claims/internal/schema"
	"github.com/cancelei/ca-small-claims/internal/templates"
)

type fakeBackend struct {
	fields []extract.FieldDescriptor
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Extract(string) ([]extract.FieldDescriptor, error) {
	return f.fields, nil
}

// newTestGenerator seeds a templates dir with the given PDF names and wires
// a generator whose extractor reports the given descriptors for any of them.
func newTestGenerator(t *testing.T, fields []extract.FieldDescriptor, pdfNames ...string) *Generator {
	t.Helper()
	tplDir := t.TempDir()
	for _, name := range pdfNames {
		require.NoError(t, os.WriteFile(filepath.Join(tplDir, name), []byte("%PDF-1.7"), 0o644))
	}
	extractor := extract.NewExtractorWithBackends(&fakeBackend{fields: fields}, &fakeBackend{}, nil)
	return NewGenerator(templates.NewDir(tplDir), extractor, t.TempDir(), nil)
}

func TestGenerator_Generate_SharedKeys(t *testing.T) {
	fields := []extract.FieldDescriptor{
		{Name: "PlaintiffName", Page: 1},
		{Name: "DefendantName", Page: 1},
		{Name: "ClaimAmount", Page: 1},
		{Name: "CourtName", Page: 1},
	}
	g := newTestGenerator(t, fields, "sc-100.pdf")

	doc, err := g.Generate("sc-100")
	require.NoError(t, err)

	assert.Equal(t, "sc-100", doc.Form.Code)
	assert.Equal(t, "SC-100", doc.Form.Title)
	assert.Equal(t, "sc-100.pdf", doc.Form.PDFFilename)
	assert.True(t, doc.Form.Fillable)

	byPDFName := map[string]schema.FieldDefinition{}
	for _, f := range doc.AllFields() {
		byPDFName[f.PDFFieldName] = f
	}
	require.Len(t, byPDFName, 4)

	assert.Equal(t, "plaintiff:name", byPDFName["PlaintiffName"].SharedKey)
	assert.Equal(t, "court:name", byPDFName["CourtName"].SharedKey)
	// Defendants and claim amounts are per-form values, never shared.
	assert.Empty(t, byPDFName["DefendantName"].SharedKey)
	assert.Empty(t, byPDFName["ClaimAmount"].SharedKey)

	assert.Equal(t, schema.TypeCurrency, byPDFName["ClaimAmount"].Type)
	assert.Equal(t, schema.WidthThird, byPDFName["ClaimAmount"].Width)
	assert.Equal(t, schema.TypeText, byPDFName["PlaintiffName"].Type)
	assert.Equal(t, schema.WidthFull, byPDFName["PlaintiffName"].Width)
}

func TestGenerator_Generate_NameCollisions(t *testing.T) {
	fields := []extract.FieldDescriptor{
		{Name: "Plaintiff.Name", Page: 1},
		{Name: "Respondent.Name", Page: 1},
		{Name: "Witness.Name", Page: 1},
	}
	g := newTestGenerator(t, fields, "sc-100.pdf")

	doc, err := g.Generate("sc-100")
	require.NoError(t, err)

	var names []string
	for _, f := range doc.AllFields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"name", "name_2", "name_3"}, names)
}

func TestGenerator_Generate_SkipsAndDuplicates(t *testing.T) {
	fields := []extract.FieldDescriptor{
		{Name: "PrintButton", Page: 1},
		{Name: "ResetForm", Page: 1},
		{Name: "PlaintiffName", Page: 1},
		{Name: "PlaintiffName", Page: 1},
	}
	g := newTestGenerator(t, fields, "sc-100.pdf")

	doc, err := g.Generate("sc-100")
	require.NoError(t, err)

	all := doc.AllFields()
	require.Len(t, all, 1)
	assert.Equal(t, "PlaintiffName", all[0].PDFFieldName)
}

func TestGenerator_Generate_RadioFromMultiOptionButton(t *testing.T) {
	fields := []extract.FieldDescriptor{
		{Name: "ServiceMethod", Kind: extract.ControlButton, Options: []string{"personal", "mail"}, Page: 1},
		{Name: "DemandMade", Kind: extract.ControlButton, Options: []string{"Yes"}, Page: 1},
	}
	g := newTestGenerator(t, fields, "sc-100.pdf")

	doc, err := g.Generate("sc-100")
	require.NoError(t, err)

	byPDFName := map[string]schema.FieldDefinition{}
	for _, f := range doc.AllFields() {
		byPDFName[f.PDFFieldName] = f
	}

	radio := byPDFName["ServiceMethod"]
	assert.Equal(t, schema.TypeRadio, radio.Type)
	require.Len(t, radio.Options, 2)
	assert.Equal(t, schema.Option{Value: "personal", Label: "Personal"}, radio.Options[0])
	assert.Equal(t, schema.Option{Value: "mail", Label: "Mail"}, radio.Options[1])

	checkbox := byPDFName["DemandMade"]
	assert.Equal(t, schema.TypeCheckbox, checkbox.Type)
	assert.Empty(t, checkbox.Options)
}

func TestGenerator_Generate_Sections(t *testing.T) {
	fields := []extract.FieldDescriptor{
		{Name: "form1[0].PlaintiffInfo[0].Name[0]", Page: 1},
		{Name: "form1[0].PlaintiffInfo[0].Phone[0]", Page: 1},
		{Name: "form1[0].ClaimDetails[0].Amount[0]", Page: 2},
		{Name: "CaseNumber", Page: 1},
	}
	g := newTestGenerator(t, fields, "sc-100.pdf")

	doc, err := g.Generate("sc-100")
	require.NoError(t, err)

	var keys []string
	for _, sec := range doc.Sections {
		keys = append(keys, sec.Key)
	}
	// First-seen order, grouped by hierarchy hint, flat names in general.
	assert.Equal(t, []string{"plaintiff_info", "general", "claim_details"}, keys)

	plaintiff := doc.Section("plaintiff_info")
	require.NotNil(t, plaintiff)
	assert.Equal(t, "Plaintiff Info", plaintiff.Title)
	assert.Len(t, plaintiff.Fields, 2)

	general := doc.Section("general")
	require.NotNil(t, general)
	assert.Equal(t, "General Information", general.Title)
}

func TestGenerator_Generate_NonFillable(t *testing.T) {
	g := newTestGenerator(t, nil, "sc-150.pdf")

	doc, err := g.Generate("sc-150")
	require.NoError(t, err)

	assert.False(t, doc.Form.Fillable)
	assert.NotNil(t, doc.Sections)
	assert.Empty(t, doc.Sections)
}

func TestGenerator_Generate_MissingTemplate(t *testing.T) {
	g := newTestGenerator(t, nil, "sc-100.pdf")

	_, err := g.Generate("sc-999")
	assert.Error(t, err)
}

func TestGenerator_Batch(t *testing.T) {
	fields := []extract.FieldDescriptor{{Name: "PlaintiffName", Page: 1}}
	g := newTestGenerator(t, fields, "sc-100.pdf", "SC-104.pdf", "fw-001.pdf")

	result := g.Batch("sc", false)
	assert.ElementsMatch(t, []string{"sc-100", "sc-104"}, result.Generated)
	assert.Empty(t, result.Skipped)
	assert.Empty(t, result.Failed)

	for _, code := range result.Generated {
		_, err := os.Stat(filepath.Join(g.SchemasDir, code+".yml"))
		assert.NoError(t, err)
	}

	t.Run("existing_schemas_skipped", func(t *testing.T) {
		again := g.Batch("sc", false)
		assert.Empty(t, again.Generated)
		assert.ElementsMatch(t, []string{"sc-100", "sc-104"}, again.Skipped)
	})

	t.Run("force_regenerates", func(t *testing.T) {
		forced := g.Batch("sc", true)
		assert.ElementsMatch(t, []string{"sc-100", "sc-104"}, forced.Generated)
		assert.Empty(t, forced.Skipped)
	})
}

func TestGenerator_Write(t *testing.T) {
	fields := []extract.FieldDescriptor{{Name: "PlaintiffName", Page: 1}}
	g := newTestGenerator(t, fields, "sc-100.pdf")

	doc, err := g.Generate("sc-100")
	require.NoError(t, err)

	path, err := g.Write(doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(g.SchemasDir, "sc-100.yml"), path)

	loaded, err := schema.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sc-100", loaded.Form.Code)
}
