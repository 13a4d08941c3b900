package dictscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueTokenAfter(t *testing.T) {
	dict := []byte(`<< /Type /Page /Parent 3 0 R /MediaBox [ 0 0 612 792 ] >>`)

	val, ok := RawValue("Type", dict)
	require.True(t, ok)
	assert.Equal(t, "/Page", string(val))

	val, ok = RawValue("Parent", dict)
	require.True(t, ok)
	assert.Equal(t, "3 0 R", string(val))

	val, ok = RawValue("MediaBox", dict)
	require.True(t, ok)
	assert.Equal(t, "[ 0 0 612 792 ]", string(val))

	_, ok = RawValue("Missing", dict)
	assert.False(t, ok)
}

func TestValueTokenAfterDoesNotMatchSubstringKeys(t *testing.T) {
	dict := []byte(`<< /T (field) /TU (tooltip) >>`)
	val, ok := RawValue("T", dict)
	require.True(t, ok)
	assert.Equal(t, "(field)", string(val))
}

func TestFullValueExpandsNestedDictionaries(t *testing.T) {
	dict := []byte(`<< /DR << /Font << /Helv 19 0 R >> >> /DA (x) >>`)
	v, ok := FullValue("DR", dict)
	require.True(t, ok)
	assert.Equal(t, "<< /Font << /Helv 19 0 R >> >>", string(v))

	// The plain lookup stops at the two-byte sentinel.
	raw, ok := RawValue("DR", dict)
	require.True(t, ok)
	assert.Equal(t, "<<", string(raw))
}

func TestEachArrayElementTreatsReferencesAsSingleTokens(t *testing.T) {
	var got []string
	EachArrayElement([]byte(`[ 1 0 R (two) /Three 4.5 ]`), func(tok []byte) bool {
		got = append(got, string(tok))
		return true
	})
	assert.Equal(t, []string{"1 0 R", "(two)", "/Three", "4.5"}, got)
}

func TestReplaceKeyValueExpandsDictionaryValues(t *testing.T) {
	dict := []byte(`<< /DR << /Font << /Helv 19 0 R >> >> /DA (x) >>`)
	out := ReplaceKeyValue(dict, "DR", []byte(`<< /Font << /Helv 7 0 R >> >>`), nil)
	assert.Contains(t, string(out), "/Helv 7 0 R")
	assert.NotContains(t, string(out), "19 0 R")
	assert.Contains(t, string(out), "/DA (x)")
}

func TestReplaceKeyValue(t *testing.T) {
	dict := []byte(`<< /FT /Tx /V (old) /Ff 0 >>`)
	out := ReplaceKeyValue(dict, "V", []byte("(new)"), nil)
	assert.Contains(t, string(out), "/V (new)")
	assert.Contains(t, string(out), "/FT /Tx")
}

func TestReplaceKeyValueMissingKeyIsNoop(t *testing.T) {
	dict := []byte(`<< /FT /Tx >>`)
	out := ReplaceKeyValue(dict, "V", []byte("(new)"), nil)
	assert.Equal(t, dict, out)
}

func TestUpsertKeyValueInsertsWhenAbsent(t *testing.T) {
	dict := []byte(`<< /FT /Tx >>`)
	out := UpsertKeyValue(dict, "V", []byte("(hello)"), nil)
	assert.Contains(t, string(out), "/V (hello)")
	assert.Contains(t, string(out), "/FT /Tx")
}

func TestUpsertKeyValueReplacesWhenPresent(t *testing.T) {
	dict := []byte(`<< /FT /Tx /V (old) >>`)
	out := UpsertKeyValue(dict, "V", []byte("(new)"), nil)
	assert.Contains(t, string(out), "/V (new)")
	assert.NotContains(t, string(out), "(old)")
}

func TestDeleteKey(t *testing.T) {
	dict := []byte(`<< /FT /Tx /V (old) /Ff 0 >>`)
	out := DeleteKey(dict, "V", nil)
	assert.NotContains(t, string(out), "/V")
	assert.Contains(t, string(out), "/FT /Tx")
	assert.Contains(t, string(out), "/Ff 0")
}

func TestDeleteKeyAbandonsEditOnCorruption(t *testing.T) {
	rec := &Recorder{}
	dict := []byte(`no dict here at all`)
	out := DeleteKey(dict, "V", rec)
	assert.Equal(t, dict, out)
}

func TestAddRefToArray(t *testing.T) {
	arr := []byte(`[ 1 0 R 2 0 R ]`)
	out := AddRefToArray(arr, Ref{Num: 3, Gen: 0})
	assert.Contains(t, string(out), "3 0 R")
	assert.Contains(t, string(out), "1 0 R")
}

func TestRemoveRefFromArray(t *testing.T) {
	arr := []byte(`[ 1 0 R 2 0 R 3 0 R ]`)
	out := RemoveRefFromArray(arr, Ref{Num: 2, Gen: 0})
	assert.NotContains(t, string(out), "2 0 R")
	assert.Contains(t, string(out), "1 0 R")
	assert.Contains(t, string(out), "3 0 R")
}

func TestRemoveRefFromArrayDoesNotMatchSubstringNumbers(t *testing.T) {
	arr := []byte(`[ 1 0 R 12 0 R ]`)
	out := RemoveRefFromArray(arr, Ref{Num: 1, Gen: 0})
	assert.NotContains(t, string(out), "[ 0 R")
	assert.Contains(t, string(out), "12 0 R")
}

func TestAddRefToInlineArrayCreatesArrayWhenAbsent(t *testing.T) {
	dict := []byte(`<< /FT /Btn >>`)
	out := AddRefToInlineArray(dict, "Kids", Ref{Num: 5, Gen: 0}, nil)
	assert.Contains(t, string(out), "5 0 R")
}

func TestEncodeDecodeStringRoundTripsASCII(t *testing.T) {
	tok := EncodeString("hello (world)")
	assert.Equal(t, byte('('), tok[0])
	decoded, err := DecodeString(tok)
	require.NoError(t, err)
	assert.Equal(t, "hello (world)", decoded)
}

func TestEncodeStringTransliteratesAccentedLatin(t *testing.T) {
	tok := EncodeString("José")
	assert.Equal(t, "(Jose)", string(tok))
}

func TestEncodeStringFallsBackToUTF16BEForNonReducibleInput(t *testing.T) {
	s := "日本語"
	tok := EncodeString(s)
	require.Equal(t, byte('<'), tok[0])
	decoded, err := DecodeString(tok)
	require.NoError(t, err)
	assert.Equal(t, s, decoded)
}

func TestDecodeStringHexRoundTrip(t *testing.T) {
	tok := []byte("<68656C6C6F>")
	decoded, err := DecodeString(tok)
	require.NoError(t, err)
	assert.Equal(t, "hello", decoded)
}

func TestEncodeNameEscapesReservedBytes(t *testing.T) {
	name := EncodeName("A B#C")
	assert.Equal(t, "/A#20B#23C", string(name))
}

func TestDecodeNameUnescapesHex(t *testing.T) {
	name, err := DecodeName([]byte("/A#20B"))
	require.NoError(t, err)
	assert.Equal(t, "A B", name)
}

func TestIsWidget(t *testing.T) {
	assert.True(t, IsWidget([]byte(`<< /Type /Annot /Subtype /Widget /Rect [0 0 1 1] >>`)))
	assert.False(t, IsWidget([]byte(`<< /Type /Page >>`)))
}

func TestIsPageExcludesPagesNode(t *testing.T) {
	assert.True(t, IsPage([]byte(`<< /Type /Page /Parent 2 0 R >>`)))
	assert.False(t, IsPage([]byte(`<< /Type /Pages /Kids [1 0 R] >>`)))
}

func TestIsMultilineField(t *testing.T) {
	assert.True(t, IsMultilineField([]byte(`<< /FT /Tx /Ff 4096 >>`)))
	assert.False(t, IsMultilineField([]byte(`<< /FT /Tx /Ff 0 >>`)))
	assert.False(t, IsMultilineField([]byte(`<< /FT /Tx >>`)))
}

func TestParseBox(t *testing.T) {
	box, ok := ParseBox([]byte(`<< /MediaBox [0 0 612 792] >>`), "MediaBox")
	require.True(t, ok)
	assert.Equal(t, [4]float64{0, 0, 612, 792}, box)
}

func TestAppearanceChoiceForBool(t *testing.T) {
	ap := []byte(`<< /N << /Yes 3 0 R /Off 4 0 R >> >>`)
	choice, err := AppearanceChoiceFor(true, ap)
	require.NoError(t, err)
	assert.Equal(t, "/Yes", choice)

	choice, err = AppearanceChoiceFor(false, ap)
	require.NoError(t, err)
	assert.Equal(t, "/Off", choice)
}

func TestAppearanceChoiceForNamedState(t *testing.T) {
	ap := []byte(`<< /N << /Star 3 0 R /Off 4 0 R >> >>`)
	choice, err := AppearanceChoiceFor("Star", ap)
	require.NoError(t, err)
	assert.Equal(t, "/Star", choice)
}

func TestRemoveAppearanceStream(t *testing.T) {
	dict := []byte(`<< /FT /Btn /AP << /N << /Yes 3 0 R /Off 4 0 R >> >> /AS /Yes >>`)
	out := RemoveAppearanceStream(dict, nil)
	assert.NotContains(t, string(out), "/AP")
	assert.NotContains(t, string(out), "/Yes 3 0 R")
	assert.Contains(t, string(out), "/AS /Yes")
}

func TestEachDictionaryVisitsNestedRegions(t *testing.T) {
	data := []byte(`prefix << /A 1 >> middle << /B << /C 2 >> >> suffix`)
	var found []string
	EachDictionary(data, func(d []byte) bool {
		found = append(found, string(d))
		return true
	})
	require.Len(t, found, 2)
	assert.Equal(t, "<< /A 1 >>", found[0])
	assert.Equal(t, "<< /B << /C 2 >> >>", found[1])
}

func TestStripStreamBodies(t *testing.T) {
	data := []byte("1 0 obj << /Length 5 >> stream\nhello\nendstream\nendobj")
	out := StripStreamBodies(data)
	assert.NotContains(t, string(out), "hello")
	assert.Contains(t, string(out), "stream\nXXXXXXXXXXXXXXXX\nendstream")
}

func TestFormatValueRoundTripsStructuralTypes(t *testing.T) {
	assert.Equal(t, "true", string(FormatValue(true)))
	assert.Equal(t, "false", string(FormatValue(false)))
	assert.Equal(t, "3 0 R", string(FormatValue(Ref{Num: 3, Gen: 0})))
	assert.Equal(t, "/Widget", string(FormatValue(Name("Widget"))))
}

func TestFormatKeyEscapesReservedBytes(t *testing.T) {
	assert.Equal(t, "/A#20B", string(FormatKey("A B")))
}
