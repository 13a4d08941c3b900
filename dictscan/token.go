package dictscan

import "fmt"

// nonRegularChars is the PDF whitespace-and-delimiter set: any byte in here
// ends a bare name or atom token.
const nonRegularChars = "\x00\t\n\f\r ()<>[]{}/%"

func isDelim(b byte) bool {
	for i := 0; i < len(nonRegularChars); i++ {
		if nonRegularChars[i] == b {
			return true
		}
	}
	return false
}

func isWhitespace(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

// skipWhitespace returns the first index at or after i that is not
// whitespace.
func skipWhitespace(data []byte, i int) int {
	for i < len(data) && isWhitespace(data[i]) {
		i++
	}
	return i
}

// valueSpan returns the [start,end) byte span of the single PDF value token
// that begins at data[start], dispatching on its first byte:
//
//	'('  balanced literal string, honoring backslash escapes
//	"<<" the two-byte sentinel; callers wanting the nested dict scan it themselves
//	'<'  hex string, terminated by '>'
//	'['  balanced array
//	'/'  name, terminated by a delimiter
//	else atom (number, boolean, null, or "N G R" reference), terminated by a
//	     delimiter or '%'
func valueSpan(data []byte, start int) (end int, err error) {
	if start >= len(data) {
		return 0, fmt.Errorf("dictscan: value token starts past end of fragment")
	}
	switch data[start] {
	case '(':
		return literalStringSpan(data, start)
	case '<':
		if start+1 < len(data) && data[start+1] == '<' {
			return start + 2, nil
		}
		return hexStringSpan(data, start)
	case '[':
		return arraySpan(data, start)
	case '/':
		return nameSpan(data, start)
	default:
		if end, ok := refSpan(data, start); ok {
			return end, nil
		}
		return atomSpan(data, start)
	}
}

// refSpan recognizes an "N G R" indirect reference beginning at data[start],
// so the three whitespace-separated words count as a single value token. ok
// is false when the bytes at start are any other kind of atom.
func refSpan(data []byte, start int) (end int, ok bool) {
	i := digitsEnd(data, start)
	if i == start {
		return 0, false
	}
	j := skipWhitespace(data, i)
	if j == i {
		return 0, false
	}
	k := digitsEnd(data, j)
	if k == j {
		return 0, false
	}
	l := skipWhitespace(data, k)
	if l == k || l >= len(data) || data[l] != 'R' {
		return 0, false
	}
	if l+1 < len(data) && !isDelim(data[l+1]) && data[l+1] != '%' {
		return 0, false
	}
	return l + 1, true
}

func digitsEnd(data []byte, i int) int {
	for i < len(data) && data[i] >= '0' && data[i] <= '9' {
		i++
	}
	return i
}

func literalStringSpan(data []byte, start int) (end int, err error) {
	depth := 0
	i := start
	for i < len(data) {
		switch data[i] {
		case '(':
			depth++
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return i, nil
			}
		case '\\':
			i += 2
		default:
			i++
		}
	}
	return 0, fmt.Errorf("dictscan: unterminated literal string")
}

func hexStringSpan(data []byte, start int) (end int, err error) {
	i := start + 1
	for i < len(data) {
		if data[i] == '>' {
			return i + 1, nil
		}
		i++
	}
	return 0, fmt.Errorf("dictscan: unterminated hex string")
}

func arraySpan(data []byte, start int) (end int, err error) {
	depth := 0
	i := start
	for i < len(data) {
		switch data[i] {
		case '[':
			depth++
			i++
		case ']':
			depth--
			i++
			if depth == 0 {
				return i, nil
			}
		case '(':
			if end, err = literalStringSpan(data, i); err != nil {
				return 0, err
			}
			i = end
		case '<':
			if i+1 < len(data) && data[i+1] == '<' {
				if end, err = balancedSpan(data, i, "<<", ">>"); err != nil {
					return 0, err
				}
				i = end
			} else {
				if end, err = hexStringSpan(data, i); err != nil {
					return 0, err
				}
				i = end
			}
		default:
			i++
		}
	}
	return 0, fmt.Errorf("dictscan: unterminated array")
}

// balancedSpan scans a region delimited by a (possibly multi-byte) open/close
// marker pair that may nest, such as "<<"/">>" for dictionaries.
func balancedSpan(data []byte, start int, open, close string) (end int, err error) {
	depth := 0
	i := start
	for i < len(data) {
		switch {
		case hasPrefixAt(data, i, open):
			depth++
			i += len(open)
		case hasPrefixAt(data, i, close):
			depth--
			i += len(close)
			if depth == 0 {
				return i, nil
			}
		default:
			i++
		}
	}
	return 0, fmt.Errorf("dictscan: unterminated %q region", open)
}

// fullValueSpan is valueSpan, except that a "<<" value is expanded to its
// full balanced dictionary span rather than the two-byte sentinel. Used by
// edits that must consume an entire dictionary-valued entry (e.g. deleting
// /AP), as opposed to ValueTokenAfter's lookup semantics, which intentionally
// stop at the sentinel and let the caller scan the nested dict itself.
func fullValueSpan(data []byte, start int) (end int, err error) {
	if start+1 < len(data) && data[start] == '<' && data[start+1] == '<' {
		return balancedSpan(data, start, "<<", ">>")
	}
	return valueSpan(data, start)
}

func hasPrefixAt(data []byte, i int, prefix string) bool {
	if i+len(prefix) > len(data) {
		return false
	}
	return string(data[i:i+len(prefix)]) == prefix
}

func nameSpan(data []byte, start int) (end int, err error) {
	i := start + 1
	for i < len(data) && !isDelim(data[i]) {
		i++
	}
	return i, nil
}

func atomSpan(data []byte, start int) (end int, err error) {
	i := start
	for i < len(data) && !isDelim(data[i]) && data[i] != '%' {
		i++
	}
	if i == start {
		return 0, fmt.Errorf("dictscan: empty atom token")
	}
	return i, nil
}

// EachDictionary emits every outermost balanced "<< ... >>" region in data,
// in the order they start. Nesting of any depth is tracked, but a nested
// dictionary is only seen as part of its enclosing region, not emitted on
// its own. fn is called with the full span of each region, including the
// delimiters; it returns false to stop the walk early.
func EachDictionary(data []byte, fn func(dict []byte) bool) {
	depth := 0
	start := -1
	for i := 0; i+1 < len(data); {
		switch {
		case data[i] == '<' && data[i+1] == '<':
			if depth == 0 {
				start = i
			}
			depth++
			i += 2
		case data[i] == '>' && data[i+1] == '>':
			depth--
			i += 2
			if depth == 0 && start >= 0 {
				if !fn(data[start:i]) {
					return
				}
				start = -1
			}
			if depth < 0 {
				depth = 0
			}
		default:
			i++
		}
	}
}

// EachArrayElement emits the raw token span of every top-level element of
// arr, an array fragment including its "[ ... ]" delimiters. fn returns
// false to stop the walk early.
func EachArrayElement(arr []byte, fn func(token []byte) bool) {
	if len(arr) < 2 || arr[0] != '[' {
		return
	}
	i := skipWhitespace(arr, 1)
	end := len(arr)
	if j := len(arr) - 1; j >= i && arr[j] == ']' {
		end = j
	}
	for i < end {
		i = skipWhitespace(arr, i)
		if i >= end {
			break
		}
		tokEnd, err := valueSpan(arr, i)
		if err != nil || tokEnd > end {
			return
		}
		if !fn(arr[i:tokEnd]) {
			return
		}
		i = tokEnd
	}
}

// StripStreamBodies replaces every "stream ... endstream" payload with a
// fixed sentinel so dictionary scanning cannot wander into arbitrary stream
// bytes. Used only by the enumeration fallback path that scans the whole
// file textually instead of going through the object resolver.
func StripStreamBodies(data []byte) []byte {
	const openTok = "stream"
	const closeTok = "endstream"
	out := make([]byte, 0, len(data))
	i := 0
	for i < len(data) {
		if hasPrefixAt(data, i, openTok) && !precededByRegular(data, i) {
			j := i + len(openTok)
			// Stream data starts after the EOL that follows the keyword.
			if j < len(data) && data[j] == '\r' {
				j++
			}
			if j < len(data) && data[j] == '\n' {
				j++
			}
			end := indexFrom(data, closeTok, j)
			if end < 0 {
				out = append(out, data[i:]...)
				return out
			}
			out = append(out, []byte(openTok)...)
			out = append(out, '\n')
			for k := 0; k < 16; k++ {
				out = append(out, 'X')
			}
			out = append(out, '\n')
			out = append(out, []byte(closeTok)...)
			i = end + len(closeTok)
			continue
		}
		out = append(out, data[i])
		i++
	}
	return out
}

func precededByRegular(data []byte, i int) bool {
	return i > 0 && !isDelim(data[i-1])
}

func indexFrom(data []byte, tok string, from int) int {
	for i := from; i+len(tok) <= len(data); i++ {
		if string(data[i:i+len(tok)]) == tok {
			return i
		}
	}
	return -1
}
