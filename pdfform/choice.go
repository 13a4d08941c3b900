package pdfform

import (
	"fmt"
	"strconv"

	"github.com/wynk182/acro-that/dictscan"
	"github.com/wynk182/acro-that/pdfstruct"
)

/*
Choices are encoded in the PDF as follows:

	/Root/AcroForm/Fields/6 = (#24,0) -> Dict<<
	    /AP = (#332,0)				[appearance]
	    /DA = "/TimesNewRomanPSMT 9 Tf 0 g"	[default appearance]
	    /FT = /Ch 				[field type choice]
	    /Ff = 4587520 				[flags: combo box, editable]
	    /Opt = Array[				[list of valid options]
	        [0] = "RACES Chief Radio Officer"
	        [1] = "RACES Unit"
	        [2] = "Operations Section"
	    ]
	    /T = "ToICSPosition"			[field name]
	    /V = "RACES Chief Radio Officer"	[current value]
	    >>

/Ff bit 18 (0x20000) is Combo, bit 19 (0x40000) is Edit; either one set means
the widget accepts a value outside the /Opt list, so validation is skipped.
*/

// setChoiceValue rewrites body's /V to newValue, validating it against the
// field's /Opt list unless the combo or edit flags allow free text.
func setChoiceValue(resolve func(pdfstruct.Reference) ([]byte, error), body []byte, newValue string, diag dictscan.Diagnostics) ([]byte, error) {
	var flags int64
	if raw, ok := dictscan.RawValue("Ff", body); ok {
		flags, _ = strconv.ParseInt(string(raw), 10, 64)
	}
	const comboOrEdit = 0x20000 | 0x40000
	if flags&comboOrEdit == 0 {
		opts, err := choiceOptions(resolve, body)
		if err != nil {
			return nil, err
		}
		if len(opts) > 0 {
			valid := false
			for _, o := range opts {
				if o == newValue {
					valid = true
					break
				}
			}
			if !valid {
				return nil, fmt.Errorf("pdfform: value %q is not valid for this choice field", newValue)
			}
		}
	}
	body = dictscan.UpsertKeyValue(body, "V", dictscan.EncodeValue(newValue), diag)
	return body, nil
}

// choiceOptions decodes the field's /Opt array, which may hold bare strings
// or two-element [export display] subarrays (the export value is the first
// element in that case).
func choiceOptions(resolve func(pdfstruct.Reference) ([]byte, error), body []byte) ([]string, error) {
	raw, ok := dictscan.RawValue("Opt", body)
	if !ok {
		return nil, nil
	}
	if ref, ok := parseRef(raw); ok {
		b, err := resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("pdfform: resolving /Opt: %w", err)
		}
		raw = b
	}
	var opts []string
	dictscan.EachArrayElement(raw, func(token []byte) bool {
		if len(token) > 0 && token[0] == '[' {
			dictscan.EachArrayElement(token, func(inner []byte) bool {
				if s, err := dictscan.DecodeString(inner); err == nil {
					opts = append(opts, s)
				}
				return false
			})
			return true
		}
		if s, err := dictscan.DecodeString(token); err == nil {
			opts = append(opts, s)
		}
		return true
	})
	return opts, nil
}
