package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSchema() *Schema {
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
				Page:  1,
				Fields: []FieldDefinition{
					{
						Name:         "plaintiff_name",
						PDFFieldName: "PlaintiffName",
						Type:         TypeText,
						Label:        "Plaintiff Name",
						Required:     true,
						Width:        WidthFull,
						SharedKey:    "plaintiff:name",
					},
				},
			},
			{
				Key:   "claim",
				Title: "Claim",
				Page:  2,
				Fields: []FieldDefinition{
					{
						Name:         "claim_amount",
						PDFFieldName: "ClaimAmount",
						Type:         TypeCurrency,
						Label:        "Claim Amount",
						Width:        WidthThird,
					},
				},
			},
			{
				Key:   "general",
				Title: "General Information",
				Fields: []FieldDefinition{
					{
						Name:         "case_number",
						PDFFieldName: "CaseNumber",
						Type:         TypeNumber,
						Label:        "Case Number",
						Width:        WidthThird,
					},
				},
			},
		},
	}
}

func TestSchema_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sc-100.yml")

	original := sampleSchema()
	require.NoError(t, original.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	if diff := cmp.Diff(original, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSectionList_OrderPreserved(t *testing.T) {
	// Keys are deliberately not alphabetical; the decoder must keep
	// document order, not map iteration order.
	doc := []byte(`
form:
  code: sc-104
  title: SC-104
  category: claim
  pdf_filename: sc104.pdf
  fillable: true
sections:
  zeta:
    title: Last In Layout
    fields: []
  alpha:
    title: First In Layout
    fields: []
  middle:
    title: Middle
    fields: []
`)
	dir := t.TempDir()
	path := filepath.Join(dir, "sc-104.yml")
	require.NoError(t, os.WriteFile(path, doc, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)

	keys := make([]string, 0, len(loaded.Sections))
	for _, sec := range loaded.Sections {
		keys = append(keys, sec.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "middle"}, keys)

	// And order survives a save/load cycle.
	out := filepath.Join(dir, "resaved.yml")
	require.NoError(t, loaded.Save(out))
	reloaded, err := Load(out)
	require.NoError(t, err)

	keys = keys[:0]
	for _, sec := range reloaded.Sections {
		keys = append(keys, sec.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "middle"}, keys)
}

func TestLoadByCode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, sampleSchema().Save(filepath.Join(dir, "sc-100.yml")))

	t.Run("found", func(t *testing.T) {
		doc, err := LoadByCode(dir, "SC-100")
		require.NoError(t, err)
		assert.Equal(t, "sc-100", doc.Form.Code)
	})

	t.Run("yaml_extension_accepted", func(t *testing.T) {
		other := sampleSchema()
		other.Form.Code = "sc-120"
		require.NoError(t, other.Save(filepath.Join(dir, "sc-120.yaml")))

		doc, err := LoadByCode(dir, "sc-120")
		require.NoError(t, err)
		assert.Equal(t, "sc-120", doc.Form.Code)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := LoadByCode(dir, "sc-999")
		assert.Error(t, err)
	})
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	first := sampleSchema()
	require.NoError(t, first.Save(filepath.Join(dir, "sc-100.yml")))

	second := sampleSchema()
	second.Form.Code = "sc-104"
	require.NoError(t, second.Save(filepath.Join(dir, "sc-104.yaml")))

	// Non-schema files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("notes"), 0o644))

	docs, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	codes := map[string]bool{}
	for _, doc := range docs {
		codes[doc.Form.Code] = true
	}
	assert.True(t, codes["sc-100"])
	assert.True(t, codes["sc-104"])
}

func TestSchema_AllFields(t *testing.T) {
	doc := sampleSchema()
	fields := doc.AllFields()
	require.Len(t, fields, 3)
	assert.Equal(t, "plaintiff_name", fields[0].Name)
	assert.Equal(t, "claim_amount", fields[1].Name)
	assert.Equal(t, "case_number", fields[2].Name)
}

func TestSchema_Section(t *testing.T) {
	doc := sampleSchema()
	sec := doc.Section("claim")
	require.NotNil(t, sec)
	assert.Equal(t, "Claim", sec.Title)
	assert.Nil(t, doc.Section("nonexistent"))
}
