package dictscan

import (
	"fmt"
	"sort"
	"strconv"
)

// FormatKey renders a bare key name (without the leading slash) as PDF name
// syntax, e.g. "Parent" -> "/Parent". It shares EncodeName's escaping rules
// but skips transliteration: keys DictScan is asked to format are almost
// always already-ASCII structural names ("FT", "Kids", "AP"), not arbitrary
// user text, so the transliteration pass would be wasted work.
func FormatKey(key string) []byte {
	out := make([]byte, 0, len(key)+1)
	out = append(out, '/')
	for i := 0; i < len(key); i++ {
		b := key[i]
		if needsNameEscape(b) {
			out = append(out, '#')
			out = appendHexByte(out, b)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// FormatValue renders a host-language value as a PDF value token: integers,
// floats, bools, Name, Ref, []any (array), map[string]any (dict), and
// string (via EncodeString) are all supported. It panics on unsupported
// types, the same way fmt.Sprintf panics on a bad verb — this is a coding
// error in the caller, not a runtime data condition.
func FormatValue(v any) []byte {
	switch v := v.(type) {
	case nil:
		return []byte("null")
	case bool:
		if v {
			return []byte("true")
		}
		return []byte("false")
	case int:
		return []byte(strconv.Itoa(v))
	case int64:
		return []byte(strconv.FormatInt(v, 10))
	case float64:
		return []byte(formatReal(v))
	case Name:
		return EncodeName(string(v))
	case string:
		return EncodeString(v)
	case Ref:
		return []byte(v.Token())
	case []any:
		return formatArray(v)
	case map[string]any:
		return formatDict(v)
	default:
		panic(fmt.Sprintf("dictscan: FormatValue: unsupported type %T", v))
	}
}

func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	return s
}

func formatArray(items []any) []byte {
	out := []byte("[")
	for _, item := range items {
		out = append(out, ' ')
		out = append(out, FormatValue(item)...)
	}
	out = append(out, ' ', ']')
	return out
}

func formatDict(entries map[string]any) []byte {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := []byte("<<")
	for _, k := range keys {
		out = append(out, ' ')
		out = append(out, FormatKey(k)...)
		out = append(out, ' ')
		out = append(out, FormatValue(entries[k])...)
	}
	out = append(out, ' ', '>', '>')
	return out
}
