package pdfform

import (
	"fmt"

	"github.com/wynk182/acro-that/dictscan"
	"github.com/wynk182/acro-that/pdfstruct"
)

/*
Radio button sets are encoded as a parent field with one Kids entry per
button:

	<< /T "Immediate" /FT /Btn /Ff 49152 /V /1 /Kids [ 177 0 R 178 0 R 179 0 R ] >>

Each kid is its own widget, with /Parent pointing back and its own /AP /N
dictionary naming the value it represents when selected ("/1" in the
example) and /AS holding its current state (that name, or /Off).

Note, however, that at least one popular PDF viewer misencodes radio button
selections: instead of updating /V on the parent, it writes /V, /FT, /T, and
/Ff directly onto the selected kid and leaves deselected kids untouched.
UpdateField always writes the canonical form: /V on the parent, /AS on every
kid.
*/

// setRadioValue rewrites the parent field's /V to newValue and every kid
// widget's /AS to match (or /Off), resolving and re-patching each kid
// through resolve/patch. Returns the field's own new body; kid bodies are
// queued via patch directly since setRadioValue must patch more than one
// object.
func setRadioValue(
	resolve func(pdfstruct.Reference) ([]byte, error),
	patch func(pdfstruct.Reference, []byte),
	fieldBody []byte, kids []pdfstruct.Reference, newValue any,
	diag dictscan.Diagnostics,
) ([]byte, error) {
	wantsOff := false
	switch v := newValue.(type) {
	case bool:
		wantsOff = !v
	case string:
		wantsOff = v == "Off" || v == "/Off" || v == ""
	case dictscan.Name:
		wantsOff = string(v) == "Off" || string(v) == "/Off" || string(v) == ""
	}

	var found bool
	var selectedAS string
	for _, kidRef := range kids {
		kidBody, err := resolve(kidRef)
		if err != nil {
			return nil, fmt.Errorf("pdfform: radio kid %d %d: %w", kidRef.Number, kidRef.Generation, err)
		}
		var apN []byte
		if apDict, ok := nestedDictValue(kidBody, "AP"); ok {
			apN, _ = nestedDictValue(apDict, "N")
		}
		asName, err := dictscan.AppearanceChoiceFor(newValue, apN)
		if err != nil {
			// This kid doesn't recognize the requested state; turn it off
			// and keep looking for one that does.
			asName = "/Off"
		} else if asName != "/Off" {
			found = true
			selectedAS = asName
		}
		if raw, ok := dictscan.RawValue("AS", kidBody); !ok || string(raw) != asName {
			kidBody = dictscan.UpsertKeyValue(kidBody, "AS", []byte(asName), diag)
			patch(kidRef, kidBody)
		}
	}
	if wantsOff {
		fieldBody = dictscan.UpsertKeyValue(fieldBody, "V", []byte("/Off"), diag)
		return fieldBody, nil
	}
	if !found {
		return nil, fmt.Errorf("pdfform: value is not valid for this radio group")
	}
	fieldBody = dictscan.UpsertKeyValue(fieldBody, "V", []byte(selectedAS), diag)
	return fieldBody, nil
}
