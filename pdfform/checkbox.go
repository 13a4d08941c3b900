package pdfform

import (
	"fmt"

	"github.com/wynk182/acro-that/dictscan"
)

/*
Checkboxes come in two shapes. Most existing documents roll field and widget
into a single annotation dictionary (no /Kids):

    << /FT /Btn /V /Yes /AS /Yes /AP << /N << /Yes ... /Off ... >> >> ... >>

Checkboxes this package adds itself are two objects: a field dictionary
carrying /FT /T /V, and a separate widget annotation with /Parent pointing
back, carrying the /AP appearance dictionary and /AS. /Ff in either shape is
absent or has neither the Radio (bit 15) nor Pushbutton (bit 16) flag set.
Setting a value therefore rewrites /V and /AS on the field body AND on every
separate widget; for the flat shape those are the same dictionary and the
single rewrite covers both.
*/

// setCheckboxValue rewrites body's /V and /AS to reflect newValue, using the
// on/off state names declared in its own /AP /N dictionary (defaulting to
// Yes/Off when the body — e.g. a parent field dictionary — carries no /AP).
func setCheckboxValue(body []byte, newValue any, diag dictscan.Diagnostics) ([]byte, error) {
	var apN []byte
	if apDict, ok := nestedDictValue(body, "AP"); ok {
		apN, _ = nestedDictValue(apDict, "N")
	}
	asName, err := dictscan.AppearanceChoiceFor(newValue, apN)
	if err != nil {
		return nil, fmt.Errorf("pdfform: checkbox value: %w", err)
	}
	body = dictscan.UpsertKeyValue(body, "V", []byte(asName), diag)
	body = dictscan.UpsertKeyValue(body, "AS", []byte(asName), diag)
	return body, nil
}
