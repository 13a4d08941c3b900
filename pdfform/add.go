package pdfform

import (
	"fmt"
	"strings"

	"github.com/wynk182/acro-that/dictscan"
	"github.com/wynk182/acro-that/pdfstruct"
)

// AddFieldOptions configures Document.AddField. Zero values take the
// documented defaults.
type AddFieldOptions struct {
	// Value is the field's initial value: a bool for checkbox/radio
	// fields, a string for everything else.
	Value any
	// Type selects the field kind: "text", "button", "checkbox", "radio",
	// "choice", "signature", or a raw PDF field-type name ("/Tx", "/Btn",
	// "/Ch", "/Sig"). Defaults to "text".
	Type string
	// X, Y, Width, Height place the widget in default user space.
	// Defaults: 100, 500, 100, 20.
	X, Y, Width, Height float64
	// Page is the 1-indexed page to place the widget on. Default 1.
	Page int
	// GroupID names the export value this widget represents within a
	// radio group (ignored for non-radio fields).
	GroupID string
	// Selected marks a checkbox/radio widget as initially on.
	Selected bool
	// Metadata carries additional PDF dictionary entries to merge into the
	// new field object, keyed by bare key name (e.g. "TU", "MaxLen"),
	// valued as already-formatted PDF tokens.
	Metadata map[string]string
}

func (o AddFieldOptions) rect() [4]float64 {
	x, y, w, h := o.X, o.Y, o.Width, o.Height
	if w == 0 {
		w = 100
	}
	if h == 0 {
		h = 20
	}
	if x == 0 && y == 0 {
		x, y = 100, 500
	}
	return [4]float64{x, y, x + w, y + h}
}

func (o AddFieldOptions) page() int {
	if o.Page == 0 {
		return 1
	}
	return o.Page
}

func requestedKind(t string) (FieldKind, string) {
	switch strings.ToLower(strings.TrimPrefix(t, "/")) {
	case "", "text", "tx":
		return KindText, "Tx"
	case "button", "checkbox", "btn":
		return KindCheckbox, "Btn"
	case "radio":
		return KindRadio, "Btn"
	case "choice", "ch":
		return KindChoice, "Ch"
	case "signature", "sig":
		return KindSignature, "Sig"
	default:
		return KindText, "Tx"
	}
}

// AddField allocates a new field object and a widget annotation for it,
// wires it into the AcroForm /Fields array and the target page's /Annots,
// and (for check boxes) synthesizes Yes/Off appearance streams.
func (d *Document) AddField(name string, opts AddFieldOptions) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("pdfform: AddField: empty name")
	}
	kind, ft := requestedKind(opts.Type)

	pages, err := d.ListPages()
	if err != nil {
		return Field{}, err
	}
	pageIdx := opts.page() - 1
	if pageIdx < 0 || pageIdx >= len(pages) {
		return Field{}, fmt.Errorf("%w: page %d", ErrInvalidPageNumber, opts.page())
	}
	pageRef := pages[pageIdx]

	fieldNum := d.maxObjectNumber() + 1
	widgetNum := fieldNum + 1
	fieldRef := pdfstruct.Reference{Number: fieldNum}
	widgetRef := pdfstruct.Reference{Number: widgetNum}

	ff := 0
	if kind == KindRadio {
		ff = 49152 // bit 15 (Radio) | bit 14 (NoToggleToOff)
	}
	if v, ok := opts.Metadata["Ff"]; ok {
		fmt.Sscanf(v, "%d", &ff)
	}

	onName := "Yes"
	if kind == KindRadio && opts.GroupID != "" {
		onName = opts.GroupID
	}
	selected := opts.Selected
	if b, ok := opts.Value.(bool); ok && b {
		selected = true
	}

	var fieldV, widgetV string
	switch kind {
	case KindCheckbox, KindRadio:
		if selected {
			fieldV = "/" + onName
		} else {
			fieldV = "/Off"
		}
		widgetV = fieldV
	case KindSignature:
		if s, ok := opts.Value.(string); ok && looksLikeImage(s) {
			// handled below via the appearance path; no textual /V.
		} else if s, ok := opts.Value.(string); ok {
			fieldV = string(dictscan.EncodeString(s))
		}
	default:
		if s, ok := opts.Value.(string); ok {
			fieldV = string(dictscan.EncodeString(s))
		} else {
			fieldV = "()"
		}
	}

	var field strings.Builder
	field.WriteString("<< /FT /")
	field.WriteString(ft)
	field.WriteString(" /T ")
	field.Write(dictscan.EncodeString(name))
	fmt.Fprintf(&field, " /Ff %d", ff)
	field.WriteString(" /DA ")
	field.Write(dictscan.EncodeString("/Helv 0 Tf 0 g"))
	if fieldV != "" {
		field.WriteString(" /V ")
		field.WriteString(fieldV)
	}
	for k, v := range opts.Metadata {
		if k == "Ff" {
			continue
		}
		field.WriteString(" /")
		field.WriteString(k)
		field.WriteString(" ")
		field.WriteString(v)
	}
	field.WriteString(" >>")

	rect := opts.rect()
	var widget strings.Builder
	fmt.Fprintf(&widget, "<< /Type /Annot /Subtype /Widget /Parent %d 0 R /P %d %d R /FT /%s /Rect [ %g %g %g %g ] /F 4 /DA %s",
		fieldRef.Number, pageRef.Number, pageRef.Generation, ft, rect[0], rect[1], rect[2], rect[3], dictscan.EncodeString("/Helv 0 Tf 0 g"))
	if widgetV != "" {
		widget.WriteString(" /V ")
		widget.WriteString(widgetV)
	}
	widget.WriteString(" >>")
	widgetBody := []byte(widget.String())

	// Queue the field and widget before synthesizing appearance streams, so
	// allocObject sees their numbers as taken and hands the appearance
	// XObjects fresh ones.
	d.patch(fieldRef, []byte(field.String()))
	d.patch(widgetRef, widgetBody)

	if kind == KindCheckbox {
		yesRef, offRef := d.synthesizeCheckboxAppearance(rect, onName)
		widgetBody = dictscan.UpsertKeyValue(widgetBody, "AP",
			[]byte(fmt.Sprintf("<< /N << /%s %d 0 R /Off %d 0 R >> >>", onName, yesRef.Number, offRef.Number)), d.diag)
		widgetBody = dictscan.UpsertKeyValue(widgetBody, "AS", []byte(widgetV), d.diag)
		d.patch(widgetRef, widgetBody)
	}

	if err := d.wireFieldIntoAcroForm(fieldRef); err != nil {
		return Field{}, err
	}
	if err := d.wireWidgetIntoPage(pageRef, widgetRef); err != nil {
		return Field{}, err
	}

	if kind == KindSignature {
		if s, ok := opts.Value.(string); ok && looksLikeImage(s) {
			if err := d.applySignatureAppearance(fieldRef, widgetRef, rect, s); err != nil {
				return Field{}, err
			}
		}
	}

	value := fieldV
	if kind == KindCheckbox || kind == KindRadio {
		if selected {
			value = onName
		} else {
			value = "Off"
		}
	} else if s, ok := opts.Value.(string); ok {
		value = s
	}

	return Field{
		Name:  name,
		Value: value,
		Kind:  kind,
		Ref:   fieldRef,
		Rect:  rect,
		Page:  opts.page(),
		doc:   d,
	}, nil
}

// wireFieldIntoAcroForm adds fieldRef to /AcroForm/Fields, sets
// /NeedAppearances true, drops /XFA (we author AcroForm, not XFA), and
// ensures /AcroForm/DR/Font/Helv exists.
func (d *Document) wireFieldIntoAcroForm(fieldRef pdfstruct.Reference) error {
	afRef, afBody, inline, err := d.acroFormRefAndBody()
	if err != nil {
		return err
	}
	afBody, err = d.addRefToListKey(afBody, "Fields", fieldRef)
	if err != nil {
		return err
	}
	afBody = dictscan.UpsertKeyValue(afBody, "NeedAppearances", []byte("true"), d.diag)
	afBody = dictscan.DeleteKey(afBody, "XFA", d.diag)
	afBody, err = d.ensureHelveticaFont(afBody)
	if err != nil {
		return err
	}
	if inline {
		cat, err := d.catalogBody()
		if err != nil {
			return err
		}
		cat = dictscan.UpsertKeyValue(cat, "AcroForm", afBody, d.diag)
		d.patch(d.RootRef(), cat)
	} else {
		d.patch(afRef, afBody)
	}
	return nil
}

// ensureHelveticaFont makes sure afBody's /DR/Font/Helv maps to a Helvetica
// Type1 font object, allocating one if absent, and returns the (possibly
// unmodified) AcroForm body.
func (d *Document) ensureHelveticaFont(afBody []byte) ([]byte, error) {
	drRaw, hasDR := dictscan.FullValue("DR", afBody)
	var drBody []byte
	var drIsRef bool
	var drRef pdfstruct.Reference
	if hasDR {
		if ref, ok := parseRef(drRaw); ok {
			drIsRef = true
			drRef = ref
			b, err := d.resolve(ref)
			if err != nil {
				return nil, err
			}
			drBody = b
		} else {
			drBody = drRaw
		}
	} else {
		drBody = []byte("<< >>")
	}

	fontRaw, hasFont := dictscan.FullValue("Font", drBody)
	var fontBody []byte
	var fontIsRef bool
	var fontRef pdfstruct.Reference
	if hasFont {
		if ref, ok := parseRef(fontRaw); ok {
			fontIsRef = true
			fontRef = ref
			b, err := d.resolve(ref)
			if err != nil {
				return nil, err
			}
			fontBody = b
		} else {
			fontBody = fontRaw
		}
	} else {
		fontBody = []byte("<< >>")
	}

	if _, ok := dictscan.RawValue("Helv", fontBody); !ok {
		helvRef := d.allocObject([]byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"))
		fontBody = dictscan.UpsertKeyValue(fontBody, "Helv", []byte(fmt.Sprintf("%d 0 R", helvRef.Number)), d.diag)
		if fontIsRef {
			d.patch(fontRef, fontBody)
		} else {
			drBody = dictscan.UpsertKeyValue(drBody, "Font", fontBody, d.diag)
		}
	}
	if drIsRef {
		d.patch(drRef, drBody)
		return afBody, nil
	}
	return dictscan.UpsertKeyValue(afBody, "DR", drBody, d.diag), nil
}

// wireWidgetIntoPage adds widgetRef to pageRef's /Annots array, setting /P
// on the widget is the caller's job (already done at construction time).
func (d *Document) wireWidgetIntoPage(pageRef, widgetRef pdfstruct.Reference) error {
	pageBody, err := d.resolve(pageRef)
	if err != nil {
		return err
	}
	pageBody, err = d.addRefToListKey(pageBody, "Annots", widgetRef)
	if err != nil {
		return err
	}
	d.patch(pageRef, pageBody)
	return nil
}

// synthesizeCheckboxAppearance emits Yes/Off Form XObjects for a check box
// widget: Yes draws a fixed 3-vertex check mark scaled to the widget
// rectangle; Off is empty.
func (d *Document) synthesizeCheckboxAppearance(rect [4]float64, onName string) (yesRef, offRef pdfstruct.Reference) {
	w, h := rect[2]-rect[0], rect[3]-rect[1]
	check := fmt.Sprintf("q %g w %g %g m %g %g l %g %g l S Q",
		h*0.12, w*0.15, h*0.45, w*0.40, h*0.15, w*0.85, h*0.85)
	yesBody := []byte(fmt.Sprintf("<< /Type /XObject /Subtype /Form /BBox [ 0 0 %g %g ] /Length %d >>\nstream\n%s\nendstream", w, h, len(check), check))
	offBody := []byte(fmt.Sprintf("<< /Type /XObject /Subtype /Form /BBox [ 0 0 %g %g ] /Length 0 >>\nstream\n\nendstream", w, h))
	yesRef = d.allocObject(yesBody)
	offRef = d.allocObject(offBody)
	return yesRef, offRef
}

func looksLikeImage(s string) bool {
	if strings.HasPrefix(s, "data:image/") {
		return true
	}
	return isLikelyBase64(s) && len(s) > 64
}

func isLikelyBase64(s string) bool {
	for i := 0; i < len(s) && i < 256; i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/', c == '=':
		default:
			return false
		}
	}
	return len(s) > 0
}
