package pdfstruct

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const objStmFieldBody = `<< /Type /Annot /Subtype /Widget /FT /Tx /T (Name) /V (hello) /Rect [ 100 100 200 120 ] /P 3 0 R >>`

// buildXRefStreamFixture writes a document whose cross-reference data lives
// in an xref stream (object 8) and whose field object (4) is compressed
// inside an object stream (7). usePredictor additionally PNG-Up-filters the
// xref rows with predictor tag 12 before compression.
func buildXRefStreamFixture(t *testing.T, usePredictor bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.6\n")
	buf.Write([]byte{'%', 0xE2, 0xE3, 0xCF, 0xD3, '\n'})

	offsets := make(map[int]int)
	plain := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	plain(1, `<< /Type /Catalog /Pages 2 0 R /AcroForm 5 0 R >>`)
	plain(2, `<< /Type /Pages /Kids [ 3 0 R ] /Count 1 >>`)
	plain(3, `<< /Type /Page /Parent 2 0 R /MediaBox [ 0 0 612 792 ] /Annots [ 4 0 R ] >>`)
	plain(5, `<< /Fields [ 4 0 R ] /DR << /Font << /Helv 6 0 R >> >> /DA (/Helv 0 Tf 0 g) >>`)
	plain(6, `<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>`)

	stmDict, stmData, err := BuildObjStm([]ObjStmEntry{
		{Ref: Reference{Number: 4}, Body: []byte(objStmFieldBody)},
	})
	require.NoError(t, err)
	offsets[7] = buf.Len()
	fmt.Fprintf(&buf, "7 0 obj\n<< /Type /ObjStm /N %d /First %d /Filter /FlateDecode /Length %d >>\nstream\n",
		stmDict["N"].(int), stmDict["First"].(int), len(stmData))
	buf.Write(stmData)
	buf.WriteString("\nendstream\nendobj\n")

	// Entry layout /W [ 1 4 2 ]: one type byte, four offset/container
	// bytes, two generation/index bytes.
	const rowSize = 7
	xrefOffset := buf.Len()
	offsets[8] = xrefOffset
	var rows []byte
	addRow := func(typ, f2, f3 int) {
		rows = append(rows, byte(typ),
			byte(f2>>24), byte(f2>>16), byte(f2>>8), byte(f2),
			byte(f3>>8), byte(f3))
	}
	addRow(0, 0, 0xFFFF)
	addRow(1, offsets[1], 0)
	addRow(1, offsets[2], 0)
	addRow(1, offsets[3], 0)
	addRow(2, 7, 0)
	addRow(1, offsets[5], 0)
	addRow(1, offsets[6], 0)
	addRow(1, offsets[7], 0)
	addRow(1, offsets[8], 0)

	data := rows
	parmsClause := ""
	if usePredictor {
		data = pngUpFilter(rows, rowSize)
		parmsClause = " /DecodeParms << /Predictor 12 /Columns 7 >>"
	}
	compressed := zlibCompress(t, data)
	fmt.Fprintf(&buf, "8 0 obj\n<< /Type /XRef /Size 9 /W [ 1 4 2 ] /Root 1 0 R /Filter /FlateDecode%s /Length %d >>\nstream\n",
		parmsClause, len(compressed))
	buf.Write(compressed)
	buf.WriteString("\nendstream\nendobj\n")
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes()
}

// pngUpFilter applies the PNG "Up" row filter (tag 2) to fixed-width rows,
// the forward transform reversePNGPredictor undoes.
func pngUpFilter(rows []byte, width int) []byte {
	out := make([]byte, 0, len(rows)+len(rows)/width)
	prev := make([]byte, width)
	for i := 0; i < len(rows); i += width {
		cur := rows[i : i+width]
		out = append(out, 2)
		for j := 0; j < width; j++ {
			out = append(out, cur[j]-prev[j])
		}
		prev = cur
	}
	return out
}

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestXRefStreamDocumentResolvesObjStmMember(t *testing.T) {
	raw := buildXRefStreamFixture(t, false)
	r, err := Open(raw)
	require.NoError(t, err)
	assert.Equal(t, Reference{Number: 1}, r.RootRef())

	body, err := r.ObjectBody(Reference{Number: 4})
	require.NoError(t, err)
	assert.Equal(t, objStmFieldBody, string(bytes.TrimRight(body, "\n")))
}

func TestXRefStreamWithPNGPredictor12(t *testing.T) {
	raw := buildXRefStreamFixture(t, true)
	r, err := Open(raw)
	require.NoError(t, err)

	body, err := r.ObjectBody(Reference{Number: 4})
	require.NoError(t, err)
	assert.Contains(t, string(body), "(hello)")
}

func TestEachObjectIncludesObjStmMembers(t *testing.T) {
	raw := buildXRefStreamFixture(t, false)
	r, err := Open(raw)
	require.NoError(t, err)

	seen := map[int]bool{}
	r.EachObject(func(ref Reference, body []byte) bool {
		seen[ref.Number] = true
		return true
	})
	for n := 1; n <= 8; n++ {
		assert.True(t, seen[n], "object %d not visited", n)
	}
}

func TestClearObjStmCacheForcesRedecode(t *testing.T) {
	raw := buildXRefStreamFixture(t, false)
	r, err := Open(raw)
	require.NoError(t, err)

	_, err = r.ObjectBody(Reference{Number: 4})
	require.NoError(t, err)
	r.ClearObjStmCache()
	body, err := r.ObjectBody(Reference{Number: 4})
	require.NoError(t, err)
	assert.Contains(t, string(body), "(Name)")
}

func TestParseObjStmRoundTripsThroughBuildObjStm(t *testing.T) {
	entries := []ObjStmEntry{
		{Ref: Reference{Number: 4}, Body: []byte(`<< /T (A) >>`)},
		{Ref: Reference{Number: 9}, Body: []byte(`<< /T (B) /V (x) >>`)},
	}
	dict, data, err := BuildObjStm(entries)
	require.NoError(t, err)

	zr, err := zlib.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	decompressed, err := io.ReadAll(zr)
	require.NoError(t, err)

	got, err := ParseObjStm(decompressed, dict["N"].(int), dict["First"].(int))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Ref.Number)
	assert.Equal(t, `<< /T (A) >>`, string(bytes.TrimRight(got[0].Body, "\n")))
	assert.Equal(t, 9, got[1].Ref.Number)
	assert.Equal(t, `<< /T (B) /V (x) >>`, string(bytes.TrimRight(got[1].Body, "\n")))
}
