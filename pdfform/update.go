package pdfform

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/wynk182/acro-that/dictscan"
	"github.com/wynk182/acro-that/pdfstruct"
)

func valueToString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// UpdateField rewrites a field's value on the field object and every widget
// that descends from it. newName, if given and non-empty, renames the field.
func (d *Document) UpdateField(name string, value any, newName ...string) error {
	fieldRef, fieldBody, err := d.findField(name)
	if err != nil {
		return err
	}
	ft, _ := dictName(d.resolve, fieldBody, "FT")
	if ft == "" {
		ft = "Tx"
	}
	var flags int64
	if raw, ok := dictscan.RawValue("Ff", fieldBody); ok {
		flags, _ = strconv.ParseInt(string(raw), 10, 64)
	}
	_, hasKids := dictscan.RawValue("Kids", fieldBody)
	kind := kindFromFT(ft, flags, hasKids)

	widgets, err := d.widgetsFor(fieldRef, name)
	if err != nil {
		return err
	}

	if kind == KindSignature {
		if s, ok := value.(string); ok && looksLikeImage(s) {
			err := d.applySignatureToWidgets(fieldRef, widgets, s)
			if err == nil {
				return d.setNeedAppearances()
			}
			if !errors.Is(err, ErrAppearanceDecode) {
				return err
			}
			// Image decode failed; fall through to setting /V textually.
		}
	}

	switch kind {
	case KindCheckbox:
		newBody, err := setCheckboxValue(fieldBody, value, d.diag)
		if err != nil {
			return err
		}
		fieldBody = newBody
		// A checkbox added by AddField is two objects, not one: the /AP
		// and /AS live on the separate widget, so the new state must reach
		// it too.
		d.propagateToWidgets(widgets, fieldRef, func(wb []byte) []byte {
			nb, err := setCheckboxValue(wb, value, d.diag)
			if err != nil {
				return wb
			}
			return nb
		})
	case KindRadio:
		kids, err := refOrInlineRefs(d.resolve, fieldBody, "Kids")
		if err != nil {
			return err
		}
		newBody, err := setRadioValue(d.resolve, d.patch, fieldBody, kids, value, d.diag)
		if err != nil {
			return err
		}
		fieldBody = newBody
	case KindChoice:
		s := valueToString(value)
		newBody, err := setChoiceValue(d.resolve, fieldBody, s, d.diag)
		if err != nil {
			return err
		}
		fieldBody = newBody
		d.propagateToWidgets(widgets, fieldRef, func(wb []byte) []byte {
			return dictscan.UpsertKeyValue(wb, "V", dictscan.EncodeValue(s), d.diag)
		})
	default: // KindText, and KindSignature with a non-image value
		s := valueToString(value)
		fieldBody = setTextValue(fieldBody, s, d.diag)
		d.propagateToWidgets(widgets, fieldRef, func(wb []byte) []byte {
			return setTextValue(wb, s, d.diag)
		})
	}

	if dictscan.IsMultilineField(fieldBody) {
		fieldBody = dictscan.RemoveAppearanceStream(fieldBody, d.diag)
		d.propagateToWidgets(widgets, fieldRef, func(wb []byte) []byte {
			return dictscan.RemoveAppearanceStream(wb, d.diag)
		})
	}

	if len(newName) > 0 && newName[0] != "" && newName[0] != name {
		fieldBody = dictscan.UpsertKeyValue(fieldBody, "T", dictscan.EncodeString(newName[0]), d.diag)
		for _, w := range widgets {
			if w == fieldRef {
				continue
			}
			wb, err := d.resolve(w)
			if err != nil {
				continue
			}
			if _, hasT := dictscan.RawValue("T", wb); !hasT {
				continue
			}
			wb = dictscan.UpsertKeyValue(wb, "T", dictscan.EncodeString(newName[0]), d.diag)
			d.patch(w, wb)
		}
	}

	d.patch(fieldRef, fieldBody)
	return d.setNeedAppearances()
}

// applySignatureToWidgets runs the signature-appearance path against the
// field's first widget.
func (d *Document) applySignatureToWidgets(fieldRef pdfstruct.Reference, widgets []pdfstruct.Reference, value string) error {
	if len(widgets) == 0 {
		return fmt.Errorf("%w: signature field has no widget", ErrAppearanceDecode)
	}
	wb, err := d.resolve(widgets[0])
	if err != nil {
		return err
	}
	rect, _ := dictscan.ParseBox(wb, "Rect")
	return d.applySignatureAppearance(fieldRef, widgets[0], rect, value)
}

// propagateToWidgets applies edit to every widget in widgets other than
// fieldRef itself (which the caller patches separately), queuing the result.
func (d *Document) propagateToWidgets(widgets []pdfstruct.Reference, fieldRef pdfstruct.Reference, edit func([]byte) []byte) {
	for _, w := range widgets {
		if w == fieldRef {
			continue
		}
		wb, err := d.resolve(w)
		if err != nil {
			continue
		}
		d.patch(w, edit(wb))
	}
}

// setNeedAppearances upserts /AcroForm/NeedAppearances true.
func (d *Document) setNeedAppearances() error {
	afRef, afBody, inline, err := d.acroFormRefAndBody()
	if err != nil {
		return err
	}
	afBody = dictscan.UpsertKeyValue(afBody, "NeedAppearances", []byte("true"), d.diag)
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
