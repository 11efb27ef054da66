package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeMinimalPDF assembles a PDF from numbered body objects, computing the
// cross-reference table so both backends parse it, and writes it to a temp
// file. Object n in the slice becomes object n+1 in the document; object 1
// must be the catalog.
func writeMinimalPDF(t *testing.T, objects []string) string {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d /Root 1 0 R>>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefOffset)

	path := filepath.Join(t.TempDir(), "form.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// flatFormPDF has terminal fields directly in the AcroForm Fields array,
// each a merged field/widget annotation.
func flatFormPDF(t *testing.T) string {
	t.Helper()
	return writeMinimalPDF(t, []string{
		"<</Type /Catalog /Pages 2 0 R /AcroForm <</Fields [4 0 R 5 0 R]>>>>",
		"<</Type /Pages /Kids [3 0 R] /Count 1>>",
		"<</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Annots [4 0 R 5 0 R]>>",
		"<</Type /Annot /Subtype /Widget /T (PlaintiffName) /FT /Tx /Rect [72 700 300 718] /V (Jane Doe)>>",
		"<</Type /Annot /Subtype /Widget /T (ClaimAmount) /FT /Tx /Rect [72 650 300 668]>>",
	})
}

// hierarchicalFormPDF mirrors the XFA-authored Judicial Council shape: a
// root container field with no FT whose kids are the terminal fields.
func hierarchicalFormPDF(t *testing.T) string {
	t.Helper()
	return writeMinimalPDF(t, []string{
		"<</Type /Catalog /Pages 2 0 R /AcroForm <</Fields [4 0 R]>>>>",
		"<</Type /Pages /Kids [3 0 R] /Count 1>>",
		"<</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Annots [5 0 R 6 0 R]>>",
		"<</T (topmostSubform) /Kids [5 0 R 6 0 R]>>",
		"<</Type /Annot /Subtype /Widget /Parent 4 0 R /T (PlaintiffName) /FT /Tx /Rect [72 700 300 718]>>",
		"<</Type /Annot /Subtype /Widget /Parent 4 0 R /T (DemandMade) /FT /Btn /Rect [72 650 90 668]>>",
	})
}

func fieldNames(fields []FieldDescriptor) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func TestPDFCPUBackend_ExtractFlat(t *testing.T) {
	path := flatFormPDF(t)

	fields, err := NewPDFCPUBackend().Extract(path)
	require.NoError(t, err)
	require.Len(t, fields, 2)

	assert.Equal(t, []string{"PlaintiffName", "ClaimAmount"}, fieldNames(fields))

	assert.Equal(t, ControlText, fields[0].Kind)
	assert.Equal(t, "Jane Doe", fields[0].Value)
	assert.Equal(t, 1, fields[0].Page)
	require.NotNil(t, fields[0].Rect)
	assert.Equal(t, 72.0, fields[0].Rect.X1)
	assert.Equal(t, 718.0, fields[0].Rect.Top())

	assert.Equal(t, ControlText, fields[1].Kind)
	assert.Equal(t, 1, fields[1].Page)
	assert.Equal(t, 1, fields[1].Order)
}

func TestPDFCPUBackend_ExtractHierarchical(t *testing.T) {
	path := hierarchicalFormPDF(t)

	fields, err := NewPDFCPUBackend().Extract(path)
	require.NoError(t, err)
	require.Len(t, fields, 2, "container fields must be represented by their terminal children")

	assert.Equal(t,
		[]string{"topmostSubform.PlaintiffName", "topmostSubform.DemandMade"},
		fieldNames(fields))

	assert.Equal(t, ControlText, fields[0].Kind)
	assert.Equal(t, ControlButton, fields[1].Kind)
	for _, f := range fields {
		assert.Equal(t, 1, f.Page, "field %s", f.Name)
		assert.NotNil(t, f.Rect, "field %s", f.Name)
	}
}

func TestLedongthucBackend_ExtractFlat(t *testing.T) {
	path := flatFormPDF(t)

	fields, err := NewLedongthucBackend().Extract(path)
	require.NoError(t, err)
	require.Len(t, fields, 2)

	assert.Equal(t, []string{"PlaintiffName", "ClaimAmount"}, fieldNames(fields))
	assert.Equal(t, ControlText, fields[0].Kind)
	assert.Equal(t, "Jane Doe", fields[0].Value)
	assert.Equal(t, 0, fields[0].Page, "no page inference without a page marker in the name")
	assert.Nil(t, fields[0].Rect)
}

func TestLedongthucBackend_ExtractHierarchical(t *testing.T) {
	path := hierarchicalFormPDF(t)

	fields, err := NewLedongthucBackend().Extract(path)
	require.NoError(t, err)
	require.Len(t, fields, 2)

	assert.Equal(t,
		[]string{"topmostSubform.PlaintiffName", "topmostSubform.DemandMade"},
		fieldNames(fields))
	assert.Equal(t, ControlText, fields[0].Kind)
	assert.Equal(t, ControlButton, fields[1].Kind)
}

// Both backends must agree on fully qualified names so schemas generated
// from either backend address the same PDF fields at fill time.
func TestBackends_AgreeOnHierarchicalNames(t *testing.T) {
	path := hierarchicalFormPDF(t)

	primary, err := NewPDFCPUBackend().Extract(path)
	require.NoError(t, err)
	fallback, err := NewLedongthucBackend().Extract(path)
	require.NoError(t, err)

	assert.Equal(t, fieldNames(fallback), fieldNames(primary))
}
