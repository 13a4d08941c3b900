package dictscan

import "bytes"

// ReplaceKeyValue finds key's value token in dict by exact byte span and
// splices newToken in its place. If key is absent, or the splice would leave
// the fragment without a balanced "<<"/">>" pair, the original dict is
// returned unchanged and a warning is logged — DictScan never hands back
// something worse than what it started with.
func ReplaceKeyValue(dict []byte, key string, newToken []byte, diag Diagnostics) []byte {
	diag = diagOrNop(diag)
	keyStart := findKey(dict, key)
	if keyStart < 0 {
		diag.Warnf("dictscan: key %q not found for replace", key)
		return dict
	}
	start := skipWhitespace(dict, keyStart+1+len(key))
	end, err := fullValueSpan(dict, start)
	if err != nil {
		diag.Warnf("dictscan: key %q has malformed value, abandoning replace", key)
		return dict
	}
	out := make([]byte, 0, len(dict)-(end-start)+len(newToken))
	out = append(out, dict[:start]...)
	out = append(out, newToken...)
	out = append(out, dict[end:]...)
	if !looksStructurallyIntact(dict, out) {
		diag.Warnf("dictscan: replace of key %q would corrupt dictionary structure, abandoning edit", key)
		return dict
	}
	return out
}

// UpsertKeyValue sets key's value to token, inserting "<key> <token>"
// immediately after the opening "<<" when the key does not already exist.
func UpsertKeyValue(dict []byte, key string, token []byte, diag Diagnostics) []byte {
	diag = diagOrNop(diag)
	if _, _, ok := ValueTokenAfter(key, dict); ok {
		return ReplaceKeyValue(dict, key, token, diag)
	}
	open := bytes.Index(dict, []byte("<<"))
	if open < 0 {
		diag.Warnf("dictscan: upsert of key %q on fragment without '<<'", key)
		return dict
	}
	insertAt := open + 2
	insert := []byte(" /" + key + " ")
	insert = append(insert, token...)
	out := make([]byte, 0, len(dict)+len(insert))
	out = append(out, dict[:insertAt]...)
	out = append(out, insert...)
	out = append(out, dict[insertAt:]...)
	return out
}

// DeleteKey removes key and its value token from dict entirely: everything
// from the leading "/key" through the end of the value (a dictionary value is
// expanded to its full balanced span). Whitespace after the value is kept.
func DeleteKey(dict []byte, key string, diag Diagnostics) []byte {
	diag = diagOrNop(diag)
	keyStart := findKey(dict, key)
	if keyStart < 0 {
		return dict
	}
	valStart := skipWhitespace(dict, keyStart+1+len(key))
	valEnd, err := fullValueSpan(dict, valStart)
	if err != nil {
		diag.Warnf("dictscan: delete of key %q found malformed value, abandoning edit", key)
		return dict
	}
	out := make([]byte, 0, len(dict))
	out = append(out, dict[:keyStart]...)
	out = append(out, dict[valEnd:]...)
	if !looksStructurallyIntact(dict, out) {
		diag.Warnf("dictscan: delete of key %q would corrupt dictionary structure, abandoning edit", key)
		return dict
	}
	return out
}

// looksStructurallyIntact reports whether a splice left the fragment still
// looking like a dictionary — it must not have lost its outer "<<"/">>"
// pair.
func looksStructurallyIntact(before, after []byte) bool {
	if !bytes.Contains(before, []byte("<<")) {
		return true // wasn't a dict fragment to begin with (e.g. bare array)
	}
	return bytes.Contains(after, []byte("<<")) && bytes.Contains(after, []byte(">>"))
}

// AddRefToArray inserts ref into the array fragment arr (including its
// "[ ... ]" delimiters), immediately before the closing bracket.
func AddRefToArray(arr []byte, ref Ref) []byte {
	close := bytes.LastIndexByte(arr, ']')
	if close < 0 {
		return arr
	}
	insert := []byte(" " + ref.Token())
	out := make([]byte, 0, len(arr)+len(insert))
	out = append(out, arr[:close]...)
	out = append(out, insert...)
	out = append(out, ' ')
	out = append(out, arr[close:]...)
	return out
}

// RemoveRefFromArray deletes every "N G R" occurrence of ref from the array
// fragment arr, using a word-boundary match so "10 0 R" does not also match
// inside "110 0 R".
func RemoveRefFromArray(arr []byte, ref Ref) []byte {
	return refPattern(ref).ReplaceAll(arr, nil)
}

// AddRefToInlineArray upserts key in dict to be (or extend) an array
// containing ref. If key is absent, a fresh single-element array is created.
func AddRefToInlineArray(dict []byte, key string, ref Ref, diag Diagnostics) []byte {
	diag = diagOrNop(diag)
	start, end, ok := ValueTokenAfter(key, dict)
	if !ok {
		return UpsertKeyValue(dict, key, []byte("[ "+ref.Token()+" ]"), diag)
	}
	if dict[start] != '[' {
		diag.Warnf("dictscan: key %q value is not an inline array, abandoning edit", key)
		return dict
	}
	newArr := AddRefToArray(dict[start:end], ref)
	return ReplaceKeyValue(dict, key, newArr, diag)
}

// RemoveRefFromInlineArray removes ref from the array stored inline at key,
// leaving an empty "[ ]" if it was the last element.
func RemoveRefFromInlineArray(dict []byte, key string, ref Ref, diag Diagnostics) []byte {
	diag = diagOrNop(diag)
	start, end, ok := ValueTokenAfter(key, dict)
	if !ok {
		return dict
	}
	if dict[start] != '[' {
		diag.Warnf("dictscan: key %q value is not an inline array, abandoning edit", key)
		return dict
	}
	newArr := RemoveRefFromArray(dict[start:end], ref)
	return ReplaceKeyValue(dict, key, newArr, diag)
}
