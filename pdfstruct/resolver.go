package pdfstruct

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/wynk182/acro-that/dictscan"
)

// Reader is the interface a Resolver reads structural objects through; a
// bytes.Reader over the Document's own buffer satisfies it, so no bytes are
// copied to construct a Resolver.
type Reader interface {
	ReadAt(p []byte, off int64) (n int, err error)
	Seek(offset int64, whence int) (int64, error)
}

// Resolver locates and returns the raw body bytes of every object in a PDF,
// whether in the linear file, in a cross-reference stream, or compressed
// inside an object stream. It does not interpret field semantics; callers
// (pdfform.Document) use DictScan on the bytes it returns.
type Resolver struct {
	raw           []byte
	fh            Reader
	start         int
	trailerOffset int
	xref          []any
	Info          Dict
	objStmCache   map[int][]ObjStmEntry
	rootRef       Reference
}

var multipartPDFStartRE = regexp.MustCompile(`%PDF-`)

// stripMultipart removes a multipart/form-data preamble and epilogue from
// raw, if present: everything before the first "%PDF-" and everything after
// the last "%%EOF". Required because callers often hand the library a raw
// HTTP upload body rather than an isolated PDF file.
func stripMultipart(raw []byte) []byte {
	if bytes.HasPrefix(raw, []byte("%PDF-")) {
		return raw
	}
	loc := multipartPDFStartRE.FindIndex(raw)
	if loc == nil {
		return raw
	}
	start := loc[0]
	end := len(raw)
	if eof := bytes.LastIndex(raw, []byte("%%EOF")); eof >= 0 {
		end = eof + len("%%EOF")
	}
	if end <= start {
		return raw[start:]
	}
	return raw[start:end]
}

// Open parses a complete PDF byte buffer and builds its cross-reference
// table. The returned Resolver shares raw with the caller; raw must not be
// mutated afterward.
func Open(raw []byte) (*Resolver, error) {
	stripped := stripMultipart(raw)
	r := &Resolver{
		raw:         stripped,
		fh:          bytes.NewReader(stripped),
		Info:        make(Dict),
		objStmCache: make(map[int][]ObjStmEntry),
	}
	if err := r.verifySignature(); err != nil {
		return nil, err
	}
	if err := r.readXRef(); err != nil {
		return nil, err
	}
	switch root := r.Info["Root"].(type) {
	case Reference:
		r.rootRef = root
	default:
		return nil, fmt.Errorf("%w: document trailer has no /Root reference", ErrMalformedDocument)
	}
	return r, nil
}

func (r *Resolver) verifySignature() error {
	if !bytes.HasPrefix(r.raw, []byte("%PDF-")) {
		return fmt.Errorf("%w: not a PDF file", ErrMalformedDocument)
	}
	return nil
}

// RootRef returns the catalog reference from the trailer.
func (r *Resolver) RootRef() Reference {
	return r.rootRef
}

// TrailerDict returns the raw bytes of the trailer dictionary (or, for a
// document whose latest revision uses a cross-reference stream, that
// stream object's own dictionary), for /Info extraction during rewrite.
func (r *Resolver) TrailerDict() []byte {
	var found []byte
	dictscan.EachDictionary(r.raw[r.trailerOffset:], func(d []byte) bool {
		found = d
		return false
	})
	return found
}

// ObjectBody returns the raw body bytes of ref: for an in-file object, the
// bytes between its "N G obj" header and "endobj"; for an object living in
// an object stream, the cached slot body.
func (r *Resolver) ObjectBody(ref Reference) ([]byte, error) {
	if ref.Number < 1 || ref.Number >= len(r.xref) {
		return nil, fmt.Errorf("%w: object number %d is out of range (max %d)", ErrMalformedDocument, ref.Number, len(r.xref)-1)
	}
	switch xe := r.xref[ref.Number].(type) {
	case nil:
		return nil, fmt.Errorf("%w: object number %d has no xref entry", ErrMalformedDocument, ref.Number)
	case xrefFree:
		return nil, fmt.Errorf("%w: object number %d is on the free list", ErrMalformedDocument, ref.Number)
	case xrefDirect:
		if xe.gen != ref.Generation {
			return nil, fmt.Errorf("%w: object %d has generation %d, %d was requested", ErrMalformedDocument, ref.Number, xe.gen, ref.Generation)
		}
		start, end, err := objectBodySpan(r.raw, xe.offset, ref.Number, ref.Generation)
		if err != nil {
			return nil, fmt.Errorf("locating object %d %d: %w", ref.Number, ref.Generation, err)
		}
		return r.raw[start:end], nil
	case xrefStream:
		entries, err := r.decodeObjStm(xe.stream)
		if err != nil {
			return nil, fmt.Errorf("decoding object stream %d for object %d: %w", xe.stream, ref.Number, err)
		}
		if xe.index < 0 || xe.index >= len(entries) {
			return nil, fmt.Errorf("%w: index %d out of range in object stream %d", ErrMalformedDocument, xe.index, xe.stream)
		}
		return entries[xe.index].Body, nil
	default:
		return nil, fmt.Errorf("%w: unrecognized xref entry type for object %d", ErrMalformedDocument, ref.Number)
	}
}

// decodeObjStm lazily decodes and caches the slot table for the object
// stream whose container number is streamNum.
func (r *Resolver) decodeObjStm(streamNum int) ([]ObjStmEntry, error) {
	if entries, ok := r.objStmCache[streamNum]; ok {
		return entries, nil
	}
	containerXe, ok := r.xref[streamNum].(xrefDirect)
	if !ok {
		return nil, fmt.Errorf("%w: object stream container %d is not an in-file object", ErrMalformedDocument, streamNum)
	}
	obj, err := r.readObjectAt(containerXe.offset)
	if err != nil {
		return nil, err
	}
	str, ok := obj.(Stream)
	if !ok {
		return nil, fmt.Errorf("%w: object %d is not a stream", ErrMalformedDocument, streamNum)
	}
	if err := decodeStreamData(&str, 0); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, err)
	}
	n, _ := str.Dict["N"].(int)
	first, _ := str.Dict["First"].(int)
	entries, err := ParseObjStm(str.Data, n, first)
	if err != nil {
		return nil, err
	}
	r.objStmCache[streamNum] = entries
	return entries, nil
}

// ClearObjStmCache releases decompressed object-stream contents. Callers
// must invoke this before replacing the Resolver's underlying byte buffer
// (i.e. before a Document rebuilds its Resolver after a write).
func (r *Resolver) ClearObjStmCache() {
	r.objStmCache = make(map[int][]ObjStmEntry)
}

// EachObject invokes fn(ref, body) for every object reachable from the
// latest revision's cross-reference table, stopping early if fn returns
// false. Objects that fail to resolve (e.g. a corrupt object-stream member)
// are skipped rather than aborting the whole walk.
func (r *Resolver) EachObject(fn func(ref Reference, body []byte) bool) {
	for num := 1; num < len(r.xref); num++ {
		var gen int
		switch xe := r.xref[num].(type) {
		case nil, xrefFree:
			continue
		case xrefDirect:
			gen = xe.gen
		case xrefStream:
			gen = 0
		}
		ref := Reference{Number: num, Generation: gen}
		body, err := r.ObjectBody(ref)
		if err != nil {
			continue
		}
		if !fn(ref, body) {
			return
		}
	}
}

// MaxObjectNumber returns the highest object number known to the xref
// table (not counting patches the caller may be tracking separately).
func (r *Resolver) MaxObjectNumber() int {
	return len(r.xref) - 1
}

// StartXRefOffset returns the "startxref" offset this Resolver was opened
// with, for IncrementalWriter's /Prev chaining.
func (r *Resolver) StartXRefOffset() int {
	return r.start
}

var objHeaderAnchoredRE = regexp.MustCompile(`^(\d+)[ \t\r\n\f\x00]+(\d+)[ \t\r\n\f\x00]+obj\b`)

// objectBodySpan locates the "N G obj" header at or near offset and returns
// the byte span of the object's body (after the header, before "endobj"),
// reusing the shared tokenizer purely to find where the body ends — it
// already tracks position precisely, including skipping undecoded stream
// bytes by /Length.
func objectBodySpan(raw []byte, offset, wantNum, wantGen int) (start, end int, err error) {
	bodyStart, ok := matchObjHeader(raw, offset, wantNum, wantGen)
	if !ok {
		bodyStart, ok = scanNearbyObjHeader(raw, offset, wantNum, wantGen)
	}
	if !ok {
		return 0, 0, fmt.Errorf("%w: could not locate %d %d obj near offset %d", ErrMalformedDocument, wantNum, wantGen, offset)
	}
	_, newoff, err := readObjectFrom(raw[bodyStart:])
	if err != nil {
		return 0, 0, fmt.Errorf("reading object body at offset %d: %s", bodyStart, err)
	}
	return bodyStart, bodyStart + newoff, nil
}

func matchObjHeader(raw []byte, offset, wantNum, wantGen int) (bodyStart int, ok bool) {
	if offset < 0 || offset >= len(raw) {
		return 0, false
	}
	m := objHeaderAnchoredRE.FindSubmatchIndex(raw[offset:])
	if m == nil {
		return 0, false
	}
	num := atoiBytes(raw[offset+m[2] : offset+m[3]])
	gen := atoiBytes(raw[offset+m[4] : offset+m[5]])
	if num != wantNum || gen != wantGen {
		return 0, false
	}
	return offset + m[1], true
}

// scanNearbyObjHeader tolerates slightly wrong recorded offsets: xref
// entries written by a misbehaving prior writer can be off by a few bytes.
func scanNearbyObjHeader(raw []byte, offset, wantNum, wantGen int) (bodyStart int, ok bool) {
	const window = 64
	lo := offset - window
	if lo < 0 {
		lo = 0
	}
	hi := offset + window
	if hi > len(raw) {
		hi = len(raw)
	}
	region := raw[lo:hi]
	for _, m := range objHeaderRE.FindAllSubmatchIndex(region, -1) {
		num := atoiBytes(region[m[2]:m[3]])
		gen := atoiBytes(region[m[4]:m[5]])
		if num == wantNum && gen == wantGen {
			return lo + m[1], true
		}
	}
	return 0, false
}

func atoiBytes(b []byte) int {
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}
