package extract

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/ledongthuc/pdf"
)

// pageFromNameRes infer a page number from naming conventions used by the
// Judicial Council form authors, e.g. "SC100.Page2.Plaintiff" or "p2[0]".
var pageFromNameRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)page\s*(\d+)`),
	regexp.MustCompile(`p(\d+)\[`),
}

// LedongthucBackend extracts form fields with ledongthuc/pdf. It is the
// fallback backend: its lenient parser accepts documents pdfcpu rejects, but
// it reports neither widget geometry nor owning pages. Page numbers are
// inferred from the raw field name when the form author encoded them there.
type LedongthucBackend struct{}

// NewLedongthucBackend creates the fallback extraction backend.
func NewLedongthucBackend() *LedongthucBackend {
	return &LedongthucBackend{}
}

// Name identifies the backend in logs.
func (b *LedongthucBackend) Name() string { return "ledongthuc" }

// Extract walks the AcroForm field tree through the document trailer.
func (b *LedongthucBackend) Extract(path string) (fields []FieldDescriptor, err error) {
	// The underlying parser panics on some malformed cross-reference
	// tables; recover so a bad file reads as an extraction error.
	defer func() {
		if r := recover(); r != nil {
			fields = nil
			err = fmt.Errorf("ledongthuc parse panic: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	acroForm := reader.Trailer().Key("Root").Key("AcroForm")
	if acroForm.IsNull() {
		return nil, nil
	}
	fieldsArr := acroForm.Key("Fields")
	if fieldsArr.Kind() != pdf.Array {
		return nil, nil
	}

	order := 0
	for i := 0; i < fieldsArr.Len(); i++ {
		fields = b.walkField(fieldsArr.Index(i), "", fields, &order)
	}
	return fields, nil
}

// walkField descends the field tree, composing fully qualified names from
// partial T entries. Kids carrying their own T are child fields; kids
// without one are widget annotations and terminate the descent.
func (b *LedongthucBackend) walkField(v pdf.Value, prefix string, acc []FieldDescriptor, order *int) []FieldDescriptor {
	if v.Kind() != pdf.Dict {
		return acc
	}

	name := prefix
	if t := v.Key("T"); t.Kind() == pdf.String {
		if name != "" {
			name += "."
		}
		name += t.Text()
	}

	kids := v.Key("Kids")
	if kids.Kind() == pdf.Array {
		childFields := false
		for i := 0; i < kids.Len(); i++ {
			kid := kids.Index(i)
			if kid.Kind() == pdf.Dict && kid.Key("T").Kind() == pdf.String {
				childFields = true
				acc = b.walkField(kid, name, acc, order)
			}
		}
		if childFields {
			return acc
		}
	}

	if name == "" {
		return acc
	}

	kind, pushButton := b.fieldKind(v)
	if pushButton {
		return acc
	}

	fd := FieldDescriptor{
		Name:  name,
		Kind:  kind,
		Value: b.fieldValue(v),
		Page:  pageFromName(name),
		Order: *order,
	}
	if kind == ControlChoice || kind == ControlButton {
		fd.Options = b.fieldOptions(v)
	}
	*order++
	return append(acc, fd)
}

func (b *LedongthucBackend) fieldKind(v pdf.Value) (ControlKind, bool) {
	ft := v.Key("FT")
	if ft.Kind() != pdf.Name {
		if parent := v.Key("Parent"); parent.Kind() == pdf.Dict {
			return b.fieldKind(parent)
		}
		return ControlText, false
	}
	switch ft.Name() {
	case "Btn":
		if ff := v.Key("Ff"); ff.Kind() == pdf.Integer && ff.Int64()&(1<<16) != 0 {
			return ControlButton, true
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

func (b *LedongthucBackend) fieldValue(v pdf.Value) string {
	val := v.Key("V")
	switch val.Kind() {
	case pdf.String:
		return val.Text()
	case pdf.Name:
		return val.Name()
	default:
		return ""
	}
}

func (b *LedongthucBackend) fieldOptions(v pdf.Value) []string {
	opt := v.Key("Opt")
	if opt.Kind() != pdf.Array {
		return nil
	}
	var options []string
	for i := 0; i < opt.Len(); i++ {
		entry := opt.Index(i)
		switch entry.Kind() {
		case pdf.String:
			options = append(options, entry.Text())
		case pdf.Array:
			if entry.Len() >= 1 && entry.Index(0).Kind() == pdf.String {
				options = append(options, entry.Index(0).Text())
			}
		}
	}
	return options
}

// pageFromName returns the page number encoded in a raw field name, or 0.
func pageFromName(name string) int {
	for _, re := range pageFromNameRes {
		if m := re.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}
