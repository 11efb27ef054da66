package extract

import "fmt"

// ControlKind is the backend-reported control type of an AcroForm field.
// Both backends normalize their native field types into this closed set so
// downstream classification never inspects backend-specific symbols.
type ControlKind int

const (
	ControlText ControlKind = iota
	ControlButton
	ControlChoice
	ControlSignature
)

// String returns the lowercase name of the control kind.
func (k ControlKind) String() string {
	switch k {
	case ControlText:
		return "text"
	case ControlButton:
		return "button"
	case ControlChoice:
		return "choice"
	case ControlSignature:
		return "signature"
	default:
		return fmt.Sprintf("control(%d)", int(k))
	}
}

// Rect is a field widget rectangle in PDF user space, bottom-left origin.
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Top returns the upper edge of the rectangle. Widgets are sorted
// top-to-bottom, so the comparison key is the upper edge, not the lower.
func (r Rect) Top() float64 { return r.Y2 }

// FieldDescriptor is one raw fillable field as reported by a PDF backend,
// prior to any semantic classification. It only lives for the duration of a
// single extraction call.
type FieldDescriptor struct {
	// Name is the fully qualified (dot-joined) AcroForm field name.
	Name string `json:"name"`
	// Kind is the normalized control kind.
	Kind ControlKind `json:"kind"`
	// Options holds export values for choice and radio controls.
	Options []string `json:"options,omitempty"`
	// Value is the current field value, if any.
	Value string `json:"value,omitempty"`
	// Page is the 1-based page number, 0 when the backend could not tell.
	Page int `json:"page"`
	// Rect is the widget rectangle, nil when the backend has no geometry.
	Rect *Rect `json:"rect,omitempty"`
	// Order is the encounter order in the document's field array.
	Order int `json:"order"`
}
