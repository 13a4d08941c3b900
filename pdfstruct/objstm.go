package pdfstruct

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"strconv"
)

// An ObjStmEntry is one decoded slot from a decompressed object-stream
// container: the object it holds, and the raw body bytes of that object
// (the same representation ObjectBody returns for in-file objects).
type ObjStmEntry struct {
	Ref  Reference
	Body []byte
}

// ParseObjStm decodes the header of an already-decompressed object-stream
// container body (n is /N, first is /First) into its individual object
// bodies, per the ObjStm layout: a header of n (objnum, offset) integer
// pairs, followed at byte offset `first` by the concatenated object bodies.
func ParseObjStm(body []byte, n, first int) ([]ObjStmEntry, error) {
	if first < 0 || first > len(body) {
		return nil, errors.New("pdfstruct: object stream /First is out of range")
	}
	header := body[:first]
	fields := splitWhitespace(header)
	if len(fields) < 2*n {
		return nil, fmt.Errorf("pdfstruct: object stream header has %d fields, need %d", len(fields), 2*n)
	}
	entries := make([]ObjStmEntry, n)
	for i := 0; i < n; i++ {
		num, err := strconv.Atoi(fields[2*i])
		if err != nil {
			return nil, fmt.Errorf("pdfstruct: invalid object number in object stream header: %w", err)
		}
		off, err := strconv.Atoi(fields[2*i+1])
		if err != nil {
			return nil, fmt.Errorf("pdfstruct: invalid offset in object stream header: %w", err)
		}
		start := first + off
		end := len(body)
		if i+1 < n {
			nextOff, err := strconv.Atoi(fields[2*(i+1)+1])
			if err != nil {
				return nil, fmt.Errorf("pdfstruct: invalid offset in object stream header: %w", err)
			}
			end = first + nextOff
		}
		if start < 0 || end > len(body) || start > end {
			return nil, fmt.Errorf("pdfstruct: object stream slot %d has out-of-range span [%d,%d)", i, start, end)
		}
		entries[i] = ObjStmEntry{Ref: Reference{Number: num}, Body: body[start:end]}
	}
	return entries, nil
}

func splitWhitespace(b []byte) []string {
	var fields []string
	i := 0
	for i < len(b) {
		for i < len(b) && isObjStmSpace(b[i]) {
			i++
		}
		start := i
		for i < len(b) && !isObjStmSpace(b[i]) {
			i++
		}
		if i > start {
			fields = append(fields, string(b[start:i]))
		}
	}
	return fields
}

func isObjStmSpace(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

// BuildObjStm compresses entries into a fresh object-stream container,
// returning the stream dictionary and its (already Flate-compressed) data.
// Not used by WriteIncremental or WriteFull — both always emit patched
// objects as standalone revisions, so an updated object-stream member wins
// over its container copy rather than being re-packed — but callers
// assembling their own documents can use it directly.
func BuildObjStm(entries []ObjStmEntry) (dict Dict, data []byte, err error) {
	var header bytes.Buffer
	var bodies bytes.Buffer
	offset := 0
	for _, e := range entries {
		fmt.Fprintf(&header, "%d %d ", e.Ref.Number, offset)
		bodies.Write(e.Body)
		bodies.WriteByte('\n')
		offset += len(e.Body) + 1
	}
	first := header.Len()
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err = zw.Write(header.Bytes()); err != nil {
		return nil, nil, err
	}
	if _, err = zw.Write(bodies.Bytes()); err != nil {
		return nil, nil, err
	}
	if err = zw.Close(); err != nil {
		return nil, nil, err
	}
	dict = Dict{
		"Type":   Name("ObjStm"),
		"N":      len(entries),
		"First":  first,
		"Filter": Name("FlateDecode"),
		"Length": compressed.Len(),
	}
	return dict, compressed.Bytes(), nil
}
