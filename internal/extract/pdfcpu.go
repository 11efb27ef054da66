package extract

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFCPUBackend extracts form fields by walking the AcroForm dictionary with
// pdfcpu. It is the primary backend: it reports widget geometry and resolves
// the owning page of every field, but it rejects some malformed documents
// that the fallback backend tolerates.
type PDFCPUBackend struct{}

// NewPDFCPUBackend creates the primary extraction backend.
func NewPDFCPUBackend() *PDFCPUBackend {
	return &PDFCPUBackend{}
}

// Name identifies the backend in logs.
func (b *PDFCPUBackend) Name() string { return "pdfcpu" }

// Extract reads every AcroForm field from the PDF at path.
func (b *PDFCPUBackend) Extract(path string) ([]FieldDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return nil, fmt.Errorf("read pdf context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("ensure page count: %w", err)
	}

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("dereference Fields array: %w", err)
	}

	pages := b.annotationPages(ctx, rootDict)

	var fields []FieldDescriptor
	order := 0
	for _, fieldRef := range fieldsArray {
		fields = b.walkField(ctx, fieldRef, "", pages, fields, &order)
	}
	return fields, nil
}

// annotationPages walks the page tree and maps widget annotation object
// numbers to 1-based page numbers. Field dictionaries with merged widgets
// appear directly in a page's Annots array; fields with separate widgets
// are located through their Kids.
func (b *PDFCPUBackend) annotationPages(ctx *model.Context, rootDict types.Dict) map[int]int {
	pages := map[int]int{}
	pagesObj, found := rootDict.Find("Pages")
	if !found {
		return pages
	}
	pageNr := 0
	b.walkPageTree(ctx, pagesObj, pages, &pageNr)
	return pages
}

func (b *PDFCPUBackend) walkPageTree(ctx *model.Context, node types.Object, pages map[int]int, pageNr *int) {
	dict, err := ctx.DereferenceDict(node)
	if err != nil || dict == nil {
		return
	}

	typeName := ""
	if typeObj, found := dict.Find("Type"); found {
		if name, err := ctx.DereferenceName(typeObj, model.V10, nil); err == nil {
			typeName = name.Value()
		}
	}

	if typeName == "Pages" {
		if kidsObj, found := dict.Find("Kids"); found {
			if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
				for _, kid := range kids {
					b.walkPageTree(ctx, kid, pages, pageNr)
				}
			}
		}
		return
	}

	*pageNr++
	annotsObj, found := dict.Find("Annots")
	if !found {
		return
	}
	annots, err := ctx.DereferenceArray(annotsObj)
	if err != nil {
		return
	}
	for _, annot := range annots {
		if ref, ok := annot.(types.IndirectRef); ok {
			pages[ref.ObjectNumber.Value()] = *pageNr
		}
	}
}

// walkField descends the field tree, composing fully qualified names from
// partial T entries. Kids carrying their own T are child fields; kids
// without one are widget annotations and terminate the descent. Only
// terminal fields become descriptors; pushbuttons are dropped since they
// never carry data. A field that fails to dereference is skipped so a
// single broken entry cannot sink the whole extraction.
func (b *PDFCPUBackend) walkField(
	ctx *model.Context, fieldObj types.Object, prefix string,
	pages map[int]int, acc []FieldDescriptor, order *int,
) []FieldDescriptor {
	fieldDict, err := ctx.DereferenceDict(fieldObj)
	if err != nil || fieldDict == nil {
		return acc
	}

	name := prefix
	if nameObj, found := fieldDict.Find("T"); found {
		if partial, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			if name != "" {
				name += "."
			}
			name += partial
		}
	}

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
			childFields := false
			for _, kid := range kids {
				if kidDict, err := ctx.DereferenceDict(kid); err == nil && kidDict != nil {
					if _, hasName := kidDict.Find("T"); hasName {
						childFields = true
						acc = b.walkField(ctx, kid, name, pages, acc, order)
					}
				}
			}
			if childFields {
				return acc
			}
		}
	}

	if name == "" {
		return acc
	}

	kind, pushButton := b.fieldKind(ctx, fieldDict)
	if pushButton {
		return acc
	}

	fd := FieldDescriptor{
		Name:  name,
		Kind:  kind,
		Order: *order,
	}
	if valueObj, found := fieldDict.Find("V"); found {
		fd.Value = b.fieldValue(ctx, valueObj)
	}
	if kind == ControlChoice || kind == ControlButton {
		fd.Options = b.fieldOptions(ctx, fieldDict)
	}
	fd.Rect, fd.Page = b.fieldGeometry(ctx, fieldObj, fieldDict, pages)

	*order++
	return append(acc, fd)
}

// fieldKind resolves the field type, consulting the parent chain for
// inherited FT entries. The second return reports a pushbutton.
func (b *PDFCPUBackend) fieldKind(ctx *model.Context, fieldDict types.Dict) (ControlKind, bool) {
	ftObj, found := fieldDict.Find("FT")
	if !found {
		if parentObj, found := fieldDict.Find("Parent"); found {
			if parentDict, err := ctx.DereferenceDict(parentObj); err == nil && parentDict != nil {
				return b.fieldKind(ctx, parentDict)
			}
		}
		return ControlText, false
	}

	ftName, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return ControlText, false
	}

	switch ftName {
	case "Btn":
		if flagsObj, found := fieldDict.Find("Ff"); found {
			if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
				if (*flags & (1 << 16)) != 0 { // bit 17: pushbutton
					return ControlButton, true
				}
			}
		}
		return ControlButton, false
	case "Ch":
		return ControlChoice, false
	case "Sig":
		return ControlSignature, false
	default:
		return ControlText, false
	}
}

// fieldValue renders the V entry as a string regardless of its object type.
func (b *PDFCPUBackend) fieldValue(ctx *model.Context, valueObj types.Object) string {
	if val, err := ctx.DereferenceStringOrHexLiteral(valueObj, model.V10, nil); err == nil {
		return val
	}
	if name, err := ctx.DereferenceName(valueObj, model.V10, nil); err == nil {
		return name.Value()
	}
	return ""
}

// fieldOptions extracts the Opt array for choice controls. Entries may be
// plain strings or [export, display] pairs; the export value is kept.
func (b *PDFCPUBackend) fieldOptions(ctx *model.Context, fieldDict types.Dict) []string {
	optObj, found := fieldDict.Find("Opt")
	if !found {
		return nil
	}
	optArray, err := ctx.DereferenceArray(optObj)
	if err != nil {
		return nil
	}

	var options []string
	for _, opt := range optArray {
		if str, err := ctx.DereferenceStringOrHexLiteral(opt, model.V10, nil); err == nil {
			options = append(options, str)
			continue
		}
		if arr, err := ctx.DereferenceArray(opt); err == nil && len(arr) >= 1 {
			if exportVal, err := ctx.DereferenceStringOrHexLiteral(arr[0], model.V10, nil); err == nil {
				options = append(options, exportVal)
			}
		}
	}
	return options
}

// fieldGeometry finds the widget rectangle and owning page, checking the
// field dictionary first (merged widget) and the first kid otherwise.
func (b *PDFCPUBackend) fieldGeometry(
	ctx *model.Context, fieldObj types.Object, fieldDict types.Dict, pages map[int]int,
) (*Rect, int) {
	page := 0
	if ref, ok := fieldObj.(types.IndirectRef); ok {
		page = pages[ref.ObjectNumber.Value()]
	}

	if rectObj, found := fieldDict.Find("Rect"); found {
		if rect := b.parseRect(ctx, rectObj); rect != nil {
			return rect, page
		}
	}

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kidsArray, err := ctx.DereferenceArray(kidsObj); err == nil && len(kidsArray) > 0 {
			if page == 0 {
				if ref, ok := kidsArray[0].(types.IndirectRef); ok {
					page = pages[ref.ObjectNumber.Value()]
				}
			}
			if widgetDict, err := ctx.DereferenceDict(kidsArray[0]); err == nil && widgetDict != nil {
				if rectObj, found := widgetDict.Find("Rect"); found {
					return b.parseRect(ctx, rectObj), page
				}
			}
		}
	}
	return nil, page
}

func (b *PDFCPUBackend) parseRect(ctx *model.Context, rectObj types.Object) *Rect {
	rectArray, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(rectArray) != 4 {
		return nil
	}
	coords := make([]float64, 4)
	for i, coord := range rectArray {
		f, err := ctx.DereferenceNumber(coord)
		if err != nil {
			return nil
		}
		coords[i] = f
	}
	return &Rect{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}
}
