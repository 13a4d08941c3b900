package pdfform

import (
	"github.com/wynk182/acro-that/dictscan"
	"github.com/wynk182/acro-that/pdfstruct"
)

func toDictscanRef(ref pdfstruct.Reference) dictscan.Ref {
	return dictscan.Ref{Num: ref.Number, Gen: ref.Generation}
}

// addRefToListKey adds ref to the array stored at key in containerBody,
// whether that array is inline or a separate indirect object. If the array
// is indirect, the referenced array object is patched directly and
// containerBody is returned unchanged; otherwise the updated containerBody
// (with the array rewritten inline) is returned for the caller to patch.
func (d *Document) addRefToListKey(containerBody []byte, key string, ref pdfstruct.Reference) ([]byte, error) {
	if raw, ok := dictscan.RawValue(key, containerBody); ok {
		if arrRef, isRef := parseRef(raw); isRef {
			arrBody, err := d.resolve(arrRef)
			if err != nil {
				return containerBody, err
			}
			d.patch(arrRef, dictscan.AddRefToArray(arrBody, toDictscanRef(ref)))
			return containerBody, nil
		}
	}
	return dictscan.AddRefToInlineArray(containerBody, key, toDictscanRef(ref), d.diag), nil
}

// removeRefFromListKey is addRefToListKey's inverse.
func (d *Document) removeRefFromListKey(containerBody []byte, key string, ref pdfstruct.Reference) ([]byte, error) {
	if raw, ok := dictscan.RawValue(key, containerBody); ok {
		if arrRef, isRef := parseRef(raw); isRef {
			arrBody, err := d.resolve(arrRef)
			if err != nil {
				return containerBody, err
			}
			d.patch(arrRef, dictscan.RemoveRefFromArray(arrBody, toDictscanRef(ref)))
			return containerBody, nil
		}
	}
	return dictscan.RemoveRefFromInlineArray(containerBody, key, toDictscanRef(ref), d.diag), nil
}
