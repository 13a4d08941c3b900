package dictscan

import (
	"bytes"
	"fmt"
	"strconv"
)

// IsWidget reports whether body contains "/Subtype" followed, with optional
// whitespace, by "/Widget".
func IsWidget(body []byte) bool {
	return subtypeIs(body, "Widget")
}

// IsPage reports whether body contains "/Type" followed by "/Page", but not
// "/Pages" — the trailing byte after the name must not be a name character.
func IsPage(body []byte) bool {
	val, ok := RawValue("Type", body)
	if !ok {
		return false
	}
	return bytes.Equal(val, []byte("/Page"))
}

func subtypeIs(body []byte, want string) bool {
	val, ok := RawValue("Subtype", body)
	if !ok {
		return false
	}
	return bytes.Equal(val, []byte("/"+want))
}

// IsMultilineField reports whether body's /Ff entry has bit 0x1000 (the
// field flag PDF reserves for multiline text fields) set. A field with no
// /Ff at all is single-line.
func IsMultilineField(body []byte) bool {
	flags, ok := fieldFlags(body)
	if !ok {
		return false
	}
	return flags&0x1000 != 0
}

func fieldFlags(body []byte) (int64, bool) {
	val, ok := RawValue("Ff", body)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(string(val), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseBox extracts the 4-number array following a /MediaBox-class key
// (/MediaBox, /CropBox, /Rect, ...) as [llx, lly, urx, ury].
func ParseBox(body []byte, name string) ([4]float64, bool) {
	var box [4]float64
	val, ok := RawValue(name, body)
	if !ok || len(val) < 2 || val[0] != '[' {
		return box, false
	}
	nums := parseNumberList(val[1 : len(val)-1])
	if len(nums) != 4 {
		return box, false
	}
	copy(box[:], nums)
	return box, true
}

func parseNumberList(data []byte) []float64 {
	var nums []float64
	i := 0
	for i < len(data) {
		i = skipWhitespace(data, i)
		if i >= len(data) {
			break
		}
		start := i
		for i < len(data) && !isWhitespace(data[i]) && data[i] != ']' {
			i++
		}
		if i > start {
			if f, err := strconv.ParseFloat(string(data[start:i]), 64); err == nil {
				nums = append(nums, f)
			}
		}
	}
	return nums
}

// AppearanceChoiceFor maps a field's new logical value to the "/Name" token
// a button widget's /AS entry should take on, using the /Yes and /Off
// sub-dictionaries of the widget's /AP /N appearance dictionary as the set
// of valid on-states. apDict may be either the whole /AP dictionary or its
// /N subdictionary. Accepts bool, Name, and string forms of the value.
func AppearanceChoiceFor(newValue any, apDict []byte) (string, error) {
	on, off := appearanceStates(apDict)
	switch v := newValue.(type) {
	case bool:
		if v {
			return "/" + on, nil
		}
		return "/" + off, nil
	case Name:
		return normalizeAppearanceName(string(v), on, off)
	case string:
		return normalizeAppearanceName(v, on, off)
	default:
		return "", fmt.Errorf("dictscan: AppearanceChoiceFor: unsupported value type %T", newValue)
	}
}

func normalizeAppearanceName(v, on, off string) (string, error) {
	switch v {
	case "Yes", "/Yes", on, "/" + on:
		return "/" + on, nil
	case "Off", "/Off", off, "/" + off:
		return "/" + off, nil
	default:
		return "", fmt.Errorf("dictscan: AppearanceChoiceFor: value %q is not a valid appearance state", v)
	}
}

// appearanceStates returns the on-state and off-state names found in an
// appearance subdictionary, defaulting to the conventional "Yes"/"Off" pair
// when the dictionary doesn't name them explicitly.
func appearanceStates(apDict []byte) (on, off string) {
	if n, ok := FullValue("N", apDict); ok && len(n) >= 2 && n[0] == '<' && n[1] == '<' {
		apDict = n
	}
	on, off = "Yes", "Off"
	foundOn, foundOff := false, false
	EachDictionaryKey(apDict, func(key string) bool {
		if key == "Off" {
			foundOff = true
		} else if key != "" {
			if !foundOn {
				on = key
				foundOn = true
			}
		}
		return true
	})
	if !foundOff {
		off = "Off"
	}
	return on, off
}

// EachDictionaryKey walks the top-level keys of a single "<< ... >>"
// fragment, in order, calling fn with each bare key name (no slash). Nested
// dictionary values are skipped, not descended into.
func EachDictionaryKey(dict []byte, fn func(key string) bool) {
	i := bytes.Index(dict, []byte("<<"))
	if i < 0 {
		return
	}
	i += 2
	end := len(dict)
	if j := bytes.LastIndex(dict, []byte(">>")); j >= i {
		end = j
	}
	for i < end {
		i = skipWhitespace(dict, i)
		if i >= end || dict[i] != '/' {
			i++
			continue
		}
		keyStart := i
		nameEnd, err := nameSpan(dict, i)
		if err != nil {
			return
		}
		key, err := DecodeName(dict[keyStart:nameEnd])
		if err != nil {
			return
		}
		i = skipWhitespace(dict, nameEnd)
		valEnd, err := fullValueSpan(dict, i)
		if err != nil {
			return
		}
		if !fn(key) {
			return
		}
		i = valEnd
	}
}

// RemoveAppearanceStream deletes the /AP entry (and its, possibly nested,
// dictionary value) from dict, verifying structural integrity before
// returning the edited fragment. Like DeleteKey, it fully expands a
// dictionary-valued /AP instead of stopping at the "<<" sentinel, since an
// appearance dictionary is routinely nested ("/AP << /N << /Yes 3 0 R /Off
// 4 0 R >> >>").
func RemoveAppearanceStream(dict []byte, diag Diagnostics) []byte {
	diag = diagOrNop(diag)
	keyStart := findKey(dict, "AP")
	if keyStart < 0 {
		return dict
	}
	valStart := skipWhitespace(dict, keyStart+3)
	valEnd, err := fullValueSpan(dict, valStart)
	if err != nil {
		diag.Warnf("dictscan: RemoveAppearanceStream found malformed /AP value, abandoning edit")
		return dict
	}
	out := make([]byte, 0, len(dict))
	out = append(out, dict[:keyStart]...)
	out = append(out, dict[valEnd:]...)
	if !looksStructurallyIntact(dict, out) {
		diag.Warnf("dictscan: RemoveAppearanceStream would corrupt dictionary structure, abandoning edit")
		return dict
	}
	return out
}
