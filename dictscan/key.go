package dictscan

// findKey locates "/<key>" in dict at a valid token boundary: the
// preceding byte (if any) must not be a name character, and the following
// byte must be one of the characters that can legally follow a key name —
// whitespace, '(', '<', '[', or '/'. It returns the byte offset of the
// slash that starts the name, or -1 if not found.
func findKey(dict []byte, key string) int {
	needle := "/" + key
	from := 0
	for {
		idx := indexFrom(dict, needle, from)
		if idx < 0 {
			return -1
		}
		after := idx + len(needle)
		if keyBoundaryOK(dict, idx, after) {
			return idx
		}
		from = idx + 1
	}
}

func keyBoundaryOK(dict []byte, start, after int) bool {
	if start > 0 {
		prev := dict[start-1]
		if !isDelim(prev) {
			return false
		}
	}
	if after >= len(dict) {
		return true
	}
	switch dict[after] {
	case ' ', '\t', '\r', '\n', '\f', 0, '(', '<', '[', '/':
		return true
	}
	return false
}

// ValueTokenAfter locates "/<key>" in dict and returns the byte span of its
// value token, per the grammar documented on valueSpan. ok is false if the
// key is absent or the value token is malformed.
func ValueTokenAfter(key string, dict []byte) (start, end int, ok bool) {
	keyStart := findKey(dict, key)
	if keyStart < 0 {
		return 0, 0, false
	}
	valStart := skipWhitespace(dict, keyStart+1+len(key))
	valEnd, err := valueSpan(dict, valStart)
	if err != nil {
		return 0, 0, false
	}
	return valStart, valEnd, true
}

// RawValue returns the raw bytes of the value token following key, if
// present.
func RawValue(key string, dict []byte) ([]byte, bool) {
	start, end, ok := ValueTokenAfter(key, dict)
	if !ok {
		return nil, false
	}
	return dict[start:end], true
}

// FullValue is RawValue, except that a dictionary-typed value is returned as
// its full balanced "<< ... >>" span rather than the two-byte sentinel.
func FullValue(key string, dict []byte) ([]byte, bool) {
	keyStart := findKey(dict, key)
	if keyStart < 0 {
		return nil, false
	}
	valStart := skipWhitespace(dict, keyStart+1+len(key))
	valEnd, err := fullValueSpan(dict, valStart)
	if err != nil {
		return nil, false
	}
	return dict[valStart:valEnd], true
}
