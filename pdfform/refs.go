package pdfform

import (
	"bytes"
	"regexp"
	"strconv"

	"github.com/wynk182/acro-that/dictscan"
	"github.com/wynk182/acro-that/pdfstruct"
)

var singleRefRE = regexp.MustCompile(`^\s*(\d+)\s+(\d+)\s+R\s*$`)
var anyRefRE = regexp.MustCompile(`(\d+)[ \t\r\n\f\x00]+(\d+)[ \t\r\n\f\x00]+R\b`)

// parseRef parses a lone "N G R" token, as returned by dictscan.RawValue for
// a key whose value is an indirect reference.
func parseRef(token []byte) (pdfstruct.Reference, bool) {
	m := singleRefRE.FindSubmatch(token)
	if m == nil {
		return pdfstruct.Reference{}, false
	}
	num, _ := strconv.Atoi(string(m[1]))
	gen, _ := strconv.Atoi(string(m[2]))
	return pdfstruct.Reference{Number: num, Generation: gen}, true
}

// refsInArray returns every "N G R" reference appearing textually within
// an array fragment (or any byte span, really — it does not require "[ ]"
// delimiters).
func refsInArray(arr []byte) []pdfstruct.Reference {
	var out []pdfstruct.Reference
	for _, m := range anyRefRE.FindAllSubmatch(arr, -1) {
		num, _ := strconv.Atoi(string(m[1]))
		gen, _ := strconv.Atoi(string(m[2]))
		out = append(out, pdfstruct.Reference{Number: num, Generation: gen})
	}
	return out
}

// refOrInlineRefs resolves a key's value into a list of references, whether
// it is stored as a lone indirect reference to an array object or as an
// inline array literal. body is consulted if the value is an indirect
// reference to a separate array object.
func refOrInlineRefs(resolve func(pdfstruct.Reference) ([]byte, error), dict []byte, key string) ([]pdfstruct.Reference, error) {
	raw, ok := dictscan.RawValue(key, dict)
	if !ok {
		return nil, nil
	}
	if ref, ok := parseRef(raw); ok {
		body, err := resolve(ref)
		if err != nil {
			return nil, err
		}
		return refsInArray(body), nil
	}
	return refsInArray(raw), nil
}

// dictName returns the Name value (without the leading slash) stored at
// key, resolving one level of indirection if needed.
func dictName(resolve func(pdfstruct.Reference) ([]byte, error), dict []byte, key string) (string, bool) {
	raw, ok := dictscan.RawValue(key, dict)
	if !ok {
		return "", false
	}
	if ref, ok := parseRef(raw); ok {
		body, err := resolve(ref)
		if err != nil {
			return "", false
		}
		raw = bytes.TrimSpace(body)
	}
	if len(raw) > 0 && raw[0] == '/' {
		name, err := dictscan.DecodeName(raw)
		if err != nil {
			return "", false
		}
		return name, true
	}
	return "", false
}

// dictString returns a decoded string at key, resolving an indirect string
// object if needed.
func dictString(resolve func(pdfstruct.Reference) ([]byte, error), dict []byte, key string) (string, bool) {
	raw, ok := dictscan.RawValue(key, dict)
	if !ok {
		return "", false
	}
	if ref, ok := parseRef(raw); ok {
		body, err := resolve(ref)
		if err != nil {
			return "", false
		}
		raw = body
	}
	if len(raw) == 0 || (raw[0] != '(' && raw[0] != '<') {
		return "", false
	}
	s, err := dictscan.DecodeString(raw)
	if err != nil {
		return "", false
	}
	return s, true
}
