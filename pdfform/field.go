// Package pdfform reads and writes the fillable form fields in a PDF,
// operating on the raw object bytes handed back by pdfstruct rather than a
// parsed object tree: every mutation is a DictScan splice enqueued as a
// pdfstruct.Patch, never a live Dict mutation.
package pdfform

import (
	"github.com/wynk182/acro-that/pdfstruct"
)

// A FieldKind distinguishes the four field shapes this package understands.
type FieldKind int

const (
	// KindText is a free-text field (/FT /Tx).
	KindText FieldKind = iota
	// KindCheckbox is a standalone button field (/FT /Btn, Radio flag clear).
	KindCheckbox
	// KindRadio is a button field with one or more child widgets (/FT /Btn,
	// Radio flag set, or a /Kids array present with the Pushbutton flag clear
	// even when the Radio flag is clear — some writers get the flag wrong).
	KindRadio
	// KindChoice is a list or combo box (/FT /Ch).
	KindChoice
	// KindSignature is a signature field (/FT /Sig).
	KindSignature
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindCheckbox:
		return "Checkbox"
	case KindRadio:
		return "Radio"
	case KindChoice:
		return "Choice"
	case KindSignature:
		return "Signature"
	default:
		return "Unknown"
	}
}

// A Field is one entry in the form's field list, as surfaced by
// Document.ListFields. It is a snapshot value, not a live view: mutating
// methods (Update, Remove) look the field back up by name on the owning
// Document rather than holding any live reference into it.
type Field struct {
	Name  string
	Value string
	Kind  FieldKind
	Ref   pdfstruct.Reference
	// Rect is the widget rectangle in default user space, taken from the
	// field's own widget, or from the first kid widget for a hierarchical
	// field. Zero if no widget could be matched.
	Rect [4]float64
	// Page is the 1-indexed page number the field's widget appears on, or
	// zero if it could not be determined.
	Page int

	doc *Document
}

// Update sets the field's value (and optionally renames it), the same as
// calling Document.UpdateField(f.Name, value, newName). Reports false if the
// field is detached from a Document (e.g. constructed directly, or removed).
func (f Field) Update(value any, newName ...string) bool {
	if f.doc == nil {
		return false
	}
	var rename string
	if len(newName) > 0 {
		rename = newName[0]
	}
	return f.doc.UpdateField(f.Name, value, rename) == nil
}

// Remove deletes the field, the same as Document.RemoveField(f.Name).
func (f Field) Remove() bool {
	if f.doc == nil {
		return false
	}
	return f.doc.RemoveField(f.Name) == nil
}

// ValidRef reports whether the field is attached to a Document.
func (f Field) ValidRef() bool { return f.doc != nil }

// ObjectNumber returns the field object's number.
func (f Field) ObjectNumber() int { return f.Ref.Number }

// Generation returns the field object's generation.
func (f Field) Generation() int { return f.Ref.Generation }

// X returns the widget rectangle's lower-left X coordinate.
func (f Field) X() float64 { return f.Rect[0] }

// Y returns the widget rectangle's lower-left Y coordinate.
func (f Field) Y() float64 { return f.Rect[1] }

// Width returns the widget rectangle's width.
func (f Field) Width() float64 { return f.Rect[2] - f.Rect[0] }

// Height returns the widget rectangle's height.
func (f Field) Height() float64 { return f.Rect[3] - f.Rect[1] }

// IsTextField reports whether the field is a free-text field.
func (f Field) IsTextField() bool { return f.Kind == KindText }

// IsButtonField reports whether the field is a checkbox or radio button.
func (f Field) IsButtonField() bool { return f.Kind == KindCheckbox || f.Kind == KindRadio }

// IsChoiceField reports whether the field is a list or combo box.
func (f Field) IsChoiceField() bool { return f.Kind == KindChoice }

// IsSignatureField reports whether the field is a signature field.
func (f Field) IsSignatureField() bool { return f.Kind == KindSignature }

func kindFromFT(ft string, flags int64, hasKids bool) FieldKind {
	switch ft {
	case "Tx":
		return KindText
	case "Ch":
		return KindChoice
	case "Sig":
		return KindSignature
	case "Btn":
		const pushButton = 1 << 16
		const radio = 1 << 15
		if flags&radio != 0 || (hasKids && flags&pushButton == 0) {
			return KindRadio
		}
		return KindCheckbox
	default:
		return KindText
	}
}

// placeholderName reports whether a /T value is one of the sentinel names
// writers sometimes leave on an otherwise-unused field object.
func placeholderName(name string) bool {
	return name == ""
}
