package pdfstruct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureObjects returns a minimal but complete AcroForm document: a
// catalog, a one-page page tree, a flat text field/widget, an AcroForm
// dictionary, and its default Helvetica font.
func fixtureObjects() []Patch {
	return []Patch{
		{Ref: Reference{Number: 1}, Body: []byte(`<< /Type /Catalog /Pages 2 0 R /AcroForm 5 0 R >>`)},
		{Ref: Reference{Number: 2}, Body: []byte(`<< /Type /Pages /Kids [ 3 0 R ] /Count 1 >>`)},
		{Ref: Reference{Number: 3}, Body: []byte(`<< /Type /Page /Parent 2 0 R /MediaBox [ 0 0 612 792 ] /Annots [ 4 0 R ] >>`)},
		{Ref: Reference{Number: 4}, Body: []byte(`<< /Type /Annot /Subtype /Widget /FT /Tx /T (Name) /V (hello) /Rect [ 100 100 200 120 ] /P 3 0 R >>`)},
		{Ref: Reference{Number: 5}, Body: []byte(`<< /Fields [ 4 0 R ] /DR << /Font << /Helv 6 0 R >> >> /DA (/Helv 0 Tf 0 g) >>`)},
		{Ref: Reference{Number: 6}, Body: []byte(`<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>`)},
	}
}

func buildFixture(t *testing.T) []byte {
	t.Helper()
	out, err := WriteFull(fixtureObjects(), Reference{Number: 1}, "")
	require.NoError(t, err)
	return out
}

func TestOpenParsesClassicXRefAndTrailer(t *testing.T) {
	raw := buildFixture(t)
	r, err := Open(raw)
	require.NoError(t, err)
	assert.Equal(t, Reference{Number: 1}, r.RootRef())
	assert.Equal(t, 6, r.MaxObjectNumber())
}

func TestObjectBodyReturnsRawSpan(t *testing.T) {
	raw := buildFixture(t)
	r, err := Open(raw)
	require.NoError(t, err)

	body, err := r.ObjectBody(Reference{Number: 4})
	require.NoError(t, err)
	assert.Contains(t, string(body), "/FT /Tx")
	assert.Contains(t, string(body), "(hello)")
}

func TestObjectBodyRejectsWrongGeneration(t *testing.T) {
	raw := buildFixture(t)
	r, err := Open(raw)
	require.NoError(t, err)

	_, err = r.ObjectBody(Reference{Number: 4, Generation: 1})
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestObjectBodyRejectsOutOfRangeNumber(t *testing.T) {
	raw := buildFixture(t)
	r, err := Open(raw)
	require.NoError(t, err)

	_, err = r.ObjectBody(Reference{Number: 999})
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestEachObjectVisitsEveryLiveObject(t *testing.T) {
	raw := buildFixture(t)
	r, err := Open(raw)
	require.NoError(t, err)

	seen := map[int]bool{}
	r.EachObject(func(ref Reference, body []byte) bool {
		seen[ref.Number] = true
		return true
	})
	for n := 1; n <= 6; n++ {
		assert.True(t, seen[n], "object %d not visited", n)
	}
}

func TestOpenRejectsNonPDF(t *testing.T) {
	_, err := Open([]byte("not a pdf at all"))
	assert.ErrorIs(t, err, ErrMalformedDocument)
}

func TestOpenStripsMultipartEnvelope(t *testing.T) {
	inner := buildFixture(t)
	var wrapped []byte
	wrapped = append(wrapped, []byte("------WebKitFormBoundaryAbc123\r\nContent-Disposition: form-data; name=\"file\"\r\n\r\n")...)
	wrapped = append(wrapped, inner...)
	wrapped = append(wrapped, []byte("\r\n------WebKitFormBoundaryAbc123--\r\n")...)

	r, err := Open(wrapped)
	require.NoError(t, err)
	assert.Equal(t, Reference{Number: 1}, r.RootRef())
}

func TestWriteIncrementalAppendsRevisionAndPreservesOriginalBytes(t *testing.T) {
	raw := buildFixture(t)
	r, err := Open(raw)
	require.NoError(t, err)

	patch := []Patch{{Ref: Reference{Number: 4}, Body: []byte(`<< /Type /Annot /Subtype /Widget /FT /Tx /T (Name) /V (changed) /Rect [ 100 100 200 120 ] /P 3 0 R >>`)}}
	out, err := WriteIncremental(r, patch)
	require.NoError(t, err)

	assert.True(t, len(out) > len(raw))
	assert.Equal(t, raw, out[:len(raw)])
	assert.Contains(t, string(out), "/Prev")

	r2, err := Open(out)
	require.NoError(t, err)
	body, err := r2.ObjectBody(Reference{Number: 4})
	require.NoError(t, err)
	assert.Contains(t, string(body), "(changed)")
}

func TestWriteIncrementalNoopOnEmptyPatchSet(t *testing.T) {
	raw := buildFixture(t)
	r, err := Open(raw)
	require.NoError(t, err)

	out, err := WriteIncremental(r, nil)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestDedupePatchesKeepsLastWriteWins(t *testing.T) {
	patches := []Patch{
		{Ref: Reference{Number: 1}, Body: []byte("first")},
		{Ref: Reference{Number: 2}, Body: []byte("only")},
		{Ref: Reference{Number: 1}, Body: []byte("second")},
	}
	out := DedupePatches(patches)
	require.Len(t, out, 2)
	assert.Equal(t, Reference{Number: 1}, out[0].Ref)
	assert.Equal(t, "second", string(out[0].Body))
	assert.Equal(t, Reference{Number: 2}, out[1].Ref)
}

func TestWriteFullEmitsOnlyKeptObjects(t *testing.T) {
	objs := fixtureObjects()
	out, err := WriteFull(objs[:5], Reference{Number: 1}, "")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "/BaseFont /Helvetica")

	r, err := Open(out)
	require.NoError(t, err)
	assert.Equal(t, 5, r.MaxObjectNumber())
}
