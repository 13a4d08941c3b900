package pdfform

import "github.com/wynk182/acro-that/dictscan"

/*
Text fields are encoded in the PDF generally as follows:

	/Root/AcroForm/Fields/10 = (#198,0) -> Dict<<
	    /T = "Origin Msg #"			[field name]
	    /DA = "/Helv 0 Tf 0 g"			[default appearance]
	    /Rect = Array[...]			[rectangle on page]
	    /Subtype = /Widget
	    /FT = /Tx				[field type is text]
	    /V = "RSC-103P"				[current value]
	    >>

Rendering the new value is the viewer's job, driven by /DA and /NeedAppearances
(set by Document.UpdateField); this package only ever rewrites /V. Synthesizing
a pixel-accurate text-layout appearance stream is explicitly out of scope (the
only content streams this package emits are the fixed check-mark and
image-placement operators for buttons and signatures).
*/

// setTextValue rewrites body's /V to newValue.
func setTextValue(body []byte, newValue string, diag dictscan.Diagnostics) []byte {
	return dictscan.UpsertKeyValue(body, "V", dictscan.EncodeValue(newValue), diag)
}
