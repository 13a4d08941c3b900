package pdfform

import "github.com/wynk182/acro-that/dictscan"

// nestedDictValue returns the full "<< ... >>" span of the dictionary-typed
// value stored at key within dict. DictScan's plain key lookups deliberately
// stop at the two-byte "<<" sentinel; FullValue expands it.
func nestedDictValue(dict []byte, key string) ([]byte, bool) {
	v, ok := dictscan.FullValue(key, dict)
	if !ok || len(v) < 2 || v[0] != '<' || v[1] != '<' {
		return nil, false
	}
	return v, true
}
