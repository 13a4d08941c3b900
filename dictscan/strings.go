package dictscan

import (
	"fmt"
	"strings"
	"unicode"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// extraTransliterations covers Latin letters that NFD decomposition does not
// split into base-plus-combining-mark form (ligatures, strokes, barred
// letters), so the norm.NFD + mark-stripping pipeline below would otherwise
// leave them untouched. Applied before decomposition.
var extraTransliterations = map[rune]string{
	'æ': "ae", 'Æ': "AE",
	'œ': "oe", 'Œ': "OE",
	'ß': "ss",
	'ø': "o", 'Ø': "O",
	'ł': "l", 'Ł': "L",
	'đ': "d", 'Đ': "D",
	'ð': "d", 'Ð': "D",
	'þ': "th", 'Þ': "Th",
	'ı': "i", 'İ': "I",
	'ñ': "n", 'Ñ': "N", // NFD decomposes these too; harmless duplicate mapping
}

// TransliterateToASCII deterministically maps Latin-1 Supplement, Latin
// Extended, and other common diacritic-bearing characters to their ASCII
// skeleton (e.g. "María" -> "Maria", "François" -> "Francois"). It is a
// fixed-table transliteration, not locale-aware, so the result is stable
// across platforms. Runes with no ASCII skeleton (CJK, Cyrillic, ...) are
// left in place; callers that need pure ASCII check the result and fall back
// to UTF-16BE encoding of the original.
func TransliterateToASCII(s string) string {
	var pre strings.Builder
	for _, r := range s {
		if repl, ok := extraTransliterations[r]; ok {
			pre.WriteString(repl)
		} else {
			pre.WriteRune(r)
		}
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	decomposed, _, err := transform.String(t, pre.String())
	if err != nil {
		return pre.String()
	}
	return decomposed
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// EncodeString renders a Go string as a PDF string token.
// The string is first transliterated; if that fully reduces it to ASCII, it
// is emitted as an escaped literal "(...)". Otherwise the *original* value
// is encoded as UTF-16BE with a byte-order-mark and emitted as a hex string,
// since transliteration could not preserve it losslessly.
func EncodeString(s string) []byte {
	translit := TransliterateToASCII(s)
	if isASCII(translit) {
		return encodeLiteral(translit)
	}
	utf16be, err := utf16BEWithBOM(s)
	if err != nil {
		return encodeLiteral(translit)
	}
	return encodeHex(utf16be)
}

// EncodeValue renders a host value as a PDF token: booleans become
// true/false, a Name becomes /name, and strings go through EncodeString.
func EncodeValue(v any) []byte {
	switch v := v.(type) {
	case bool:
		if v {
			return []byte("true")
		}
		return []byte("false")
	case Name:
		return EncodeName(string(v))
	case string:
		return EncodeString(v)
	default:
		return []byte(fmt.Sprint(v))
	}
}

// Name is a bare PDF/PostScript name (without the leading slash), used as a
// tag type so EncodeValue knows to emit it as a symbol rather than a string.
type Name string

func encodeLiteral(s string) []byte {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '(')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '(', ')':
			out = append(out, '\\', s[i])
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		default:
			out = append(out, s[i])
		}
	}
	out = append(out, ')')
	return out
}

func encodeHex(b []byte) []byte {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*2+2)
	out = append(out, '<')
	for _, c := range b {
		out = append(out, digits[c>>4], digits[c&0xf])
	}
	out = append(out, '>')
	return out
}

func utf16BEWithBOM(s string) ([]byte, error) {
	enc := xunicode.UTF16(xunicode.BigEndian, xunicode.UseBOM)
	return enc.NewEncoder().Bytes([]byte(s))
}

// DecodeString is the inverse of
// EncodeString, including UTF-16BE-with-BOM detection on both literal and
// hex-encoded strings (some writers put BOM-prefixed UTF-16BE bytes directly
// inside a literal string instead of a hex string).
func DecodeString(token []byte) (string, error) {
	if len(token) < 2 {
		return "", fmt.Errorf("dictscan: string token too short")
	}
	var raw []byte
	var err error
	switch token[0] {
	case '(':
		raw, err = decodeLiteralBytes(token)
	case '<':
		raw, err = decodeHexBytes(token)
	default:
		return "", fmt.Errorf("dictscan: not a string token")
	}
	if err != nil {
		return "", err
	}
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		dec := xunicode.UTF16(xunicode.BigEndian, xunicode.IgnoreBOM)
		out, err := dec.NewDecoder().Bytes(raw[2:])
		if err != nil {
			return "", fmt.Errorf("dictscan: decoding UTF-16BE string: %w", err)
		}
		return string(out), nil
	}
	return string(raw), nil
}

func decodeLiteralBytes(token []byte) ([]byte, error) {
	if token[0] != '(' || token[len(token)-1] != ')' {
		return nil, fmt.Errorf("dictscan: malformed literal string")
	}
	body := token[1 : len(token)-1]
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' {
			out = append(out, body[i])
			continue
		}
		i++
		if i >= len(body) {
			break
		}
		switch body[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '(', ')', '\\':
			out = append(out, body[i])
		case '\n':
			// line continuation, emits nothing
		case '\r':
			if i+1 < len(body) && body[i+1] == '\n' {
				i++
			}
		case '0', '1', '2', '3', '4', '5', '6', '7':
			val := int(body[i] - '0')
			digits := 1
			for digits < 3 && i+1 < len(body) && body[i+1] >= '0' && body[i+1] <= '7' {
				i++
				val = val*8 + int(body[i]-'0')
				digits++
			}
			out = append(out, byte(val))
		default:
			out = append(out, body[i])
		}
	}
	return out, nil
}

func decodeHexBytes(token []byte) ([]byte, error) {
	if token[0] != '<' || token[len(token)-1] != '>' {
		return nil, fmt.Errorf("dictscan: malformed hex string")
	}
	body := token[1 : len(token)-1]
	var digits []byte
	for _, b := range body {
		if isWhitespace(b) {
			continue
		}
		digits = append(digits, b)
	}
	if len(digits)%2 != 0 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := 0; i < len(out); i++ {
		hi, err := hexNibble(digits[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexNibble(digits[i*2+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(b byte) (byte, error) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', nil
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, nil
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("dictscan: invalid hex digit %q", b)
	}
}

// EncodeName renders a bare name as a PDF name token: transliterate to
// ASCII, then hex-escape delimiters, control bytes, and high bytes as "#hh".
func EncodeName(name string) []byte {
	translit := TransliterateToASCII(name)
	out := make([]byte, 0, len(translit)+1)
	out = append(out, '/')
	for i := 0; i < len(translit); i++ {
		b := translit[i]
		if needsNameEscape(b) {
			out = append(out, '#')
			out = appendHexByte(out, b)
		} else {
			out = append(out, b)
		}
	}
	return out
}

func needsNameEscape(b byte) bool {
	if b <= 0x20 || b == 0x7F || b >= 0x80 {
		return true
	}
	switch b {
	case '#', '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func appendHexByte(out []byte, b byte) []byte {
	const digits = "0123456789ABCDEF"
	return append(out, digits[b>>4], digits[b&0xf])
}

// DecodeName strips the leading slash from a name token and resolves any
// "#hh" hex escapes.
func DecodeName(token []byte) (string, error) {
	if len(token) == 0 || token[0] != '/' {
		return "", fmt.Errorf("dictscan: not a name token")
	}
	body := token[1:]
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		if body[i] == '#' && i+2 < len(body) {
			hi, err1 := hexNibble(body[i+1])
			lo, err2 := hexNibble(body[i+2])
			if err1 == nil && err2 == nil {
				out = append(out, hi<<4|lo)
				i += 2
				continue
			}
		}
		out = append(out, body[i])
	}
	return string(out), nil
}
