package pdfform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wynk182/acro-that/pdfstruct"
)

// fixtureObjects builds a minimal but complete AcroForm document: a catalog,
// a one-page page tree, a flat text field, a flat checkbox, a radio group
// with two kids, a choice field, a signature field, the AcroForm dictionary,
// and its default Helvetica font.
func fixtureObjects() []pdfstruct.Patch {
	obj := func(n int, body string) pdfstruct.Patch {
		return pdfstruct.Patch{Ref: pdfstruct.Reference{Number: n}, Body: []byte(body)}
	}
	return []pdfstruct.Patch{
		obj(1, `<< /Type /Catalog /Pages 2 0 R /AcroForm 10 0 R >>`),
		obj(2, `<< /Type /Pages /Kids [ 3 0 R ] /Count 1 >>`),
		obj(3, `<< /Type /Page /Parent 2 0 R /MediaBox [ 0 0 612 792 ] /Annots [ 4 0 R 5 0 R 6 0 R 7 0 R 8 0 R ] >>`),
		obj(4, `<< /Type /Annot /Subtype /Widget /FT /Tx /T (Name) /V (hello) /Rect [ 100 600 300 620 ] /P 3 0 R >>`),
		obj(5, `<< /Type /Annot /Subtype /Widget /FT /Btn /T (Agree) /V /Off /AS /Off /Rect [ 100 550 120 570 ] /P 3 0 R /AP << /N << /Yes 11 0 R /Off 12 0 R >> >> >>`),
		obj(6, `<< /FT /Btn /T (Color) /Ff 49152 /V /1 /Kids [ 13 0 R 14 0 R ] >>`),
		obj(7, `<< /Type /Annot /Subtype /Widget /FT /Ch /T (Fruit) /V (apple) /Opt [ (apple) (pear) (plum) ] /Rect [ 100 450 200 470 ] /P 3 0 R >>`),
		obj(8, `<< /Type /Annot /Subtype /Widget /FT /Sig /T (Sig1) /Rect [ 100 400 300 450 ] /P 3 0 R >>`),
		obj(10, `<< /Fields [ 4 0 R 5 0 R 6 0 R 7 0 R 8 0 R ] /DR << /Font << /Helv 19 0 R >> >> /DA (/Helv 0 Tf 0 g) >>`),
		obj(11, `<< /Type /XObject /Subtype /Form /BBox [ 0 0 20 20 ] >>`),
		obj(12, `<< /Type /XObject /Subtype /Form /BBox [ 0 0 20 20 ] >>`),
		obj(13, `<< /Type /Annot /Subtype /Widget /Parent 6 0 R /AP << /N << /1 15 0 R /Off 16 0 R >> >> /AS /1 /Rect [ 100 500 120 520 ] /P 3 0 R >>`),
		obj(14, `<< /Type /Annot /Subtype /Widget /Parent 6 0 R /AP << /N << /2 17 0 R /Off 18 0 R >> >> /AS /Off /Rect [ 130 500 150 520 ] /P 3 0 R >>`),
		obj(15, `<< /Type /XObject /Subtype /Form /BBox [ 0 0 20 20 ] >>`),
		obj(16, `<< /Type /XObject /Subtype /Form /BBox [ 0 0 20 20 ] >>`),
		obj(17, `<< /Type /XObject /Subtype /Form /BBox [ 0 0 20 20 ] >>`),
		obj(18, `<< /Type /XObject /Subtype /Form /BBox [ 0 0 20 20 ] >>`),
		obj(19, `<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>`),
	}
}

func openFixture(t *testing.T) *Document {
	t.Helper()
	raw, err := pdfstruct.WriteFull(fixtureObjects(), pdfstruct.Reference{Number: 1}, "")
	require.NoError(t, err)
	doc, err := Open(raw)
	require.NoError(t, err)
	return doc
}

func fieldByName(fields []Field, name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func TestListFieldsEnumeratesEveryKind(t *testing.T) {
	doc := openFixture(t)
	fields, err := doc.ListFields()
	require.NoError(t, err)

	names := map[string]FieldKind{}
	for _, f := range fields {
		names[f.Name] = f.Kind
	}
	assert.Equal(t, KindText, names["Name"])
	assert.Equal(t, KindCheckbox, names["Agree"])
	assert.Equal(t, KindRadio, names["Color"])
	assert.Equal(t, KindChoice, names["Fruit"])
	assert.Equal(t, KindSignature, names["Sig1"])
}

func TestListFieldsPositionsFromWidget(t *testing.T) {
	doc := openFixture(t)
	fields, err := doc.ListFields()
	require.NoError(t, err)

	f, ok := fieldByName(fields, "Name")
	require.True(t, ok)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, [4]float64{100, 600, 300, 620}, f.Rect)
}

func TestPagesReportsMediaBoxDimensions(t *testing.T) {
	doc := openFixture(t)
	pages, err := doc.Pages()
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 612.0, pages[0].Width)
	assert.Equal(t, 792.0, pages[0].Height)
	assert.Equal(t, pages[0].MediaBox, pages[0].CropBox)
}

func TestUpdateFieldRewritesTextValue(t *testing.T) {
	doc := openFixture(t)
	err := doc.UpdateField("Name", "new value")
	require.NoError(t, err)

	fields, err := doc.ListFields()
	require.NoError(t, err)
	f, ok := fieldByName(fields, "Name")
	require.True(t, ok)
	assert.Equal(t, "new value", f.Value)
}

func TestUpdateFieldRenamesField(t *testing.T) {
	doc := openFixture(t)
	err := doc.UpdateField("Name", "v", "RenamedField")
	require.NoError(t, err)

	fields, err := doc.ListFields()
	require.NoError(t, err)
	_, stillThere := fieldByName(fields, "Name")
	assert.False(t, stillThere)
	f, ok := fieldByName(fields, "RenamedField")
	require.True(t, ok)
	assert.Equal(t, "v", f.Value)
}

func TestUpdateFieldChecksCheckbox(t *testing.T) {
	doc := openFixture(t)
	err := doc.UpdateField("Agree", true)
	require.NoError(t, err)

	_, body, err := doc.findField("Agree")
	require.NoError(t, err)
	assert.Contains(t, string(body), "/V /Yes")
	assert.Contains(t, string(body), "/AS /Yes")
}

func TestUpdateFieldSelectsRadioKid(t *testing.T) {
	doc := openFixture(t)
	err := doc.UpdateField("Color", "2")
	require.NoError(t, err)

	_, fieldBody, err := doc.findField("Color")
	require.NoError(t, err)
	assert.Contains(t, string(fieldBody), "/V /2")

	kid1, err := doc.resolve(pdfstruct.Reference{Number: 13})
	require.NoError(t, err)
	assert.Contains(t, string(kid1), "/AS /Off")

	kid2, err := doc.resolve(pdfstruct.Reference{Number: 14})
	require.NoError(t, err)
	assert.Contains(t, string(kid2), "/AS /2")
}

func TestUpdateFieldDeselectsRadioGroup(t *testing.T) {
	doc := openFixture(t)
	require.NoError(t, doc.UpdateField("Color", "2"))
	require.NoError(t, doc.UpdateField("Color", false))

	_, fieldBody, err := doc.findField("Color")
	require.NoError(t, err)
	assert.Contains(t, string(fieldBody), "/V /Off")

	kid1, err := doc.resolve(pdfstruct.Reference{Number: 13})
	require.NoError(t, err)
	assert.Contains(t, string(kid1), "/AS /Off")

	kid2, err := doc.resolve(pdfstruct.Reference{Number: 14})
	require.NoError(t, err)
	assert.Contains(t, string(kid2), "/AS /Off")
}

func TestUpdateFieldRejectsInvalidChoiceValue(t *testing.T) {
	doc := openFixture(t)
	err := doc.UpdateField("Fruit", "kiwi")
	assert.Error(t, err)
}

func TestUpdateFieldAcceptsValidChoiceValue(t *testing.T) {
	doc := openFixture(t)
	err := doc.UpdateField("Fruit", "pear")
	require.NoError(t, err)

	fields, err := doc.ListFields()
	require.NoError(t, err)
	f, ok := fieldByName(fields, "Fruit")
	require.True(t, ok)
	assert.Equal(t, "pear", f.Value)
}

func TestUpdateFieldUnknownNameReturnsFieldNotFound(t *testing.T) {
	doc := openFixture(t)
	err := doc.UpdateField("DoesNotExist", "x")
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestRemoveFieldDropsFieldAndUnlinksWidget(t *testing.T) {
	doc := openFixture(t)
	err := doc.RemoveField("Name")
	require.NoError(t, err)

	fields, err := doc.ListFields()
	require.NoError(t, err)
	_, ok := fieldByName(fields, "Name")
	assert.False(t, ok)

	pageBody, err := doc.resolve(pdfstruct.Reference{Number: 3})
	require.NoError(t, err)
	assert.NotContains(t, string(pageBody), "4 0 R")

	afRef, afBody, _, err := doc.acroFormRefAndBody()
	require.NoError(t, err)
	_ = afRef
	assert.NotContains(t, string(afBody), "4 0 R")
}

func TestAddFieldCreatesTextFieldWiredIntoAcroFormAndPage(t *testing.T) {
	doc := openFixture(t)
	f, err := doc.AddField("NewField", AddFieldOptions{Type: "text", Value: "hi", Page: 1})
	require.NoError(t, err)
	assert.Equal(t, "NewField", f.Name)
	assert.Equal(t, KindText, f.Kind)

	fields, err := doc.ListFields()
	require.NoError(t, err)
	got, ok := fieldByName(fields, "NewField")
	require.True(t, ok)
	assert.Equal(t, "hi", got.Value)

	// The widget is allocated immediately after the field object; the page's
	// /Annots references the widget, while /AcroForm/Fields references the
	// field itself.
	widgetRef := pdfstruct.Reference{Number: got.Ref.Number + 1}
	pageBody, err := doc.resolve(pdfstruct.Reference{Number: 3})
	require.NoError(t, err)
	assert.Contains(t, string(pageBody), fmtRef(widgetRef))

	_, afBody, _, err := doc.acroFormRefAndBody()
	require.NoError(t, err)
	assert.Contains(t, string(afBody), fmtRef(got.Ref))
}

func TestAddFieldRejectsInvalidPage(t *testing.T) {
	doc := openFixture(t)
	_, err := doc.AddField("X", AddFieldOptions{Page: 5})
	assert.ErrorIs(t, err, ErrInvalidPageNumber)
}

func TestClearInPlaceDropsSelectedFieldsOnly(t *testing.T) {
	doc := openFixture(t)
	out, err := doc.ClearInPlace(ClearSelector{Keep: []string{"Name"}})
	require.NoError(t, err)

	doc2, err := Open(out)
	require.NoError(t, err)

	fields, err := doc2.ListFields()
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "Name", fields[0].Name)
}

func TestClearInPlaceDropsExcludedObjectBodiesEntirely(t *testing.T) {
	doc := openFixture(t)
	out, err := doc.ClearInPlace(ClearSelector{Keep: []string{"Name"}})
	require.NoError(t, err)

	// "Agree" is a flat checkbox, object 5, serving as both field and
	// widget; it must be gone outright, not merely tombstoned.
	assert.NotContains(t, string(out), "(Agree)")
	r, err := pdfstruct.Open(out)
	require.NoError(t, err)
	_, err = r.ObjectBody(pdfstruct.Reference{Number: 5})
	assert.Error(t, err)
}

func TestClearDoesNotMutateOriginalDocument(t *testing.T) {
	doc := openFixture(t)
	before, err := doc.ListFields()
	require.NoError(t, err)

	_, err = doc.Clear(ClearSelector{Remove: []string{"Name"}})
	require.NoError(t, err)

	after, err := doc.ListFields()
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
	_, ok := fieldByName(after, "Name")
	assert.True(t, ok)
}

func TestWriteIncrementalPreservesOriginalBytes(t *testing.T) {
	doc := openFixture(t)
	original := append([]byte(nil), doc.raw...)

	require.NoError(t, doc.UpdateField("Name", "changed"))
	out, err := doc.Write(false)
	require.NoError(t, err)

	assert.Equal(t, original, out[:len(original)])
}

func TestFlattenProducesReopenableDocument(t *testing.T) {
	doc := openFixture(t)
	require.NoError(t, doc.UpdateField("Name", "flattened value"))
	out, err := doc.Flatten()
	require.NoError(t, err)

	doc2, err := Open(out)
	require.NoError(t, err)
	fields, err := doc2.ListFields()
	require.NoError(t, err)
	f, ok := fieldByName(fields, "Name")
	require.True(t, ok)
	assert.Equal(t, "flattened value", f.Value)
}

func fmtRef(ref pdfstruct.Reference) string {
	return fmtInt(ref.Number) + " " + fmtInt(ref.Generation) + " R"
}

func fmtInt(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
