package pdfform

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/wynk182/acro-that/dictscan"
	"github.com/wynk182/acro-that/pdfstruct"
)

// A Document is an open, mutable PDF form. All mutations are buffered as
// patches; none are visible in the underlying bytes until Write.
type Document struct {
	resolver      *pdfstruct.Resolver
	raw           []byte
	patches       []pdfstruct.Patch
	diag          dictscan.Diagnostics
	compressLevel int
}

// Open parses raw as a PDF and prepares it for form editing. raw is not
// retained past Write/Flatten — the Document keeps its own copy.
func Open(raw []byte) (*Document, error) {
	buf := make([]byte, len(raw))
	copy(buf, raw)
	r, err := pdfstruct.Open(buf)
	if err != nil {
		return nil, err
	}
	return &Document{resolver: r, raw: buf, diag: dictscan.NopDiagnostics{}, compressLevel: zlib.DefaultCompression}, nil
}

// OpenFile reads path and opens it as a Document.
func OpenFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Open(raw)
}

// SetDiagnostics installs a sink for warnings about malformed input that
// DictScan routes around instead of failing on.
func (d *Document) SetDiagnostics(diag dictscan.Diagnostics) {
	d.diag = diag
}

// SetCompression sets the zlib compression level used when this Document
// writes new Flate-encoded streams (signature images and their soft masks).
// Accepts any level zlib.NewWriterLevel does, e.g.
// zlib.BestSpeed, zlib.BestCompression, zlib.DefaultCompression.
func (d *Document) SetCompression(level int) error {
	if _, err := zlib.NewWriterLevel(discardWriter{}, level); err != nil {
		return fmt.Errorf("pdfform: SetCompression: %w", err)
	}
	d.compressLevel = level
	return nil
}

// discardWriter discards writes; used only to validate a compression level
// without allocating a real buffer.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// patchedBody returns the pending body for ref, if one has been queued.
func (d *Document) patchedBody(ref pdfstruct.Reference) ([]byte, bool) {
	for i := len(d.patches) - 1; i >= 0; i-- {
		if d.patches[i].Ref == ref {
			return d.patches[i].Body, true
		}
	}
	return nil, false
}

// resolve returns the current body of ref, consulting queued patches before
// falling back to the frozen bytes.
func (d *Document) resolve(ref pdfstruct.Reference) ([]byte, error) {
	if body, ok := d.patchedBody(ref); ok {
		return body, nil
	}
	return d.resolver.ObjectBody(ref)
}

// patch enqueues a new body for ref.
func (d *Document) patch(ref pdfstruct.Reference, body []byte) {
	d.patches = append(d.patches, pdfstruct.Patch{Ref: ref, Body: body})
}

// allocObject reserves the next unused object number and queues body for
// it, returning the fresh reference.
func (d *Document) allocObject(body []byte) pdfstruct.Reference {
	num := d.maxObjectNumber() + 1
	ref := pdfstruct.Reference{Number: num, Generation: 0}
	d.patch(ref, body)
	return ref
}

func (d *Document) maxObjectNumber() int {
	max := d.resolver.MaxObjectNumber()
	for _, p := range d.patches {
		if p.Ref.Number > max {
			max = p.Ref.Number
		}
	}
	return max
}

// eachObject visits every object the document currently knows about: every
// object reachable from the resolver, with patched bodies substituted, plus
// any objects that exist only as patches (newly added objects).
func (d *Document) eachObject(fn func(ref pdfstruct.Reference, body []byte) bool) {
	visited := make(map[pdfstruct.Reference]bool)
	cont := true
	d.resolver.EachObject(func(ref pdfstruct.Reference, body []byte) bool {
		visited[ref] = true
		if patched, ok := d.patchedBody(ref); ok {
			body = patched
		}
		cont = fn(ref, body)
		return cont
	})
	if !cont {
		return
	}
	seenNew := make(map[pdfstruct.Reference]bool)
	for _, p := range d.patches {
		if visited[p.Ref] || seenNew[p.Ref] {
			continue
		}
		seenNew[p.Ref] = true
		if body, ok := d.patchedBody(p.Ref); ok {
			if !fn(p.Ref, body) {
				return
			}
		}
	}
}

var textualObjHeaderRE = regexp.MustCompile(`(\d+)[ \t\r\n\f\x00]+(\d+)[ \t\r\n\f\x00]+obj\b`)

// eachObjectTextual scans the document bytes for "N G obj ... endobj"
// regions without consulting the xref table at all, for enumeration of
// documents whose cross-reference data is too damaged to walk. Bodies come
// from a copy with stream payloads replaced by a sentinel, so they are
// suitable for reading only, never for patching back.
func (d *Document) eachObjectTextual(fn func(ref pdfstruct.Reference, body []byte) bool) {
	stripped := dictscan.StripStreamBodies(d.raw)
	for _, m := range textualObjHeaderRE.FindAllSubmatchIndex(stripped, -1) {
		num, _ := strconv.Atoi(string(stripped[m[2]:m[3]]))
		gen, _ := strconv.Atoi(string(stripped[m[4]:m[5]]))
		end := bytes.Index(stripped[m[1]:], []byte("endobj"))
		if end < 0 {
			continue
		}
		if !fn(pdfstruct.Reference{Number: num, Generation: gen}, stripped[m[1]:m[1]+end]) {
			return
		}
	}
}

// RootRef returns the document catalog's reference.
func (d *Document) RootRef() pdfstruct.Reference {
	return d.resolver.RootRef()
}

// catalogBody returns the current body of the document catalog.
func (d *Document) catalogBody() ([]byte, error) {
	return d.resolve(d.RootRef())
}

// acroFormRefAndBody locates the AcroForm dictionary, which may be inline
// in the catalog or an indirect object, and returns its reference (the zero
// Reference if inline) and current body.
func (d *Document) acroFormRefAndBody() (ref pdfstruct.Reference, body []byte, inline bool, err error) {
	cat, err := d.catalogBody()
	if err != nil {
		return ref, nil, false, err
	}
	raw, ok := dictscan.FullValue("AcroForm", cat)
	if !ok {
		return ref, nil, false, errors.New("pdfform: document has no AcroForm")
	}
	if r, ok := parseRef(raw); ok {
		b, err := d.resolve(r)
		if err != nil {
			return ref, nil, false, fmt.Errorf("reading AcroForm: %w", err)
		}
		return r, b, false, nil
	}
	return ref, raw, true, nil
}

// ListPages returns every /Page object's reference, in document order
// (a depth-first walk of the /Pages tree).
func (d *Document) ListPages() ([]pdfstruct.Reference, error) {
	cat, err := d.catalogBody()
	if err != nil {
		return nil, err
	}
	raw, ok := dictscan.RawValue("Pages", cat)
	if !ok {
		return nil, errors.New("pdfform: document catalog has no /Pages")
	}
	root, ok := parseRef(raw)
	if !ok {
		return nil, errors.New("pdfform: catalog /Pages is not an indirect reference")
	}
	var pages []pdfstruct.Reference
	var walk func(ref pdfstruct.Reference, seen map[pdfstruct.Reference]bool) error
	walk = func(ref pdfstruct.Reference, seen map[pdfstruct.Reference]bool) error {
		if seen[ref] {
			return nil
		}
		seen[ref] = true
		body, err := d.resolve(ref)
		if err != nil {
			return err
		}
		if dictscan.IsPage(body) {
			pages = append(pages, ref)
			return nil
		}
		kids, err := refOrInlineRefs(d.resolve, body, "Kids")
		if err != nil {
			return err
		}
		for _, kid := range kids {
			if err := walk(kid, seen); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, map[pdfstruct.Reference]bool{}); err != nil {
		return nil, err
	}
	return pages, nil
}

type widgetInfo struct {
	ref    pdfstruct.Reference
	rect   [4]float64
	hasRct bool
	page   pdfstruct.Reference
	hasPg  bool
	parent pdfstruct.Reference
	hasPar bool
	name   string
}

// fieldCandidate is one /T-bearing object surfaced by the enumeration walk,
// carrying its body so the fallback (textual) path can feed objects the
// resolver does not know about.
type fieldCandidate struct {
	ref  pdfstruct.Reference
	body []byte
}

// ListFields returns every form field in the document, per the field
// dedup/positioning rules: annotations are indexed by parent ref and name,
// then every /T-bearing candidate object is resolved to a Field, positioned
// from the matching widget, and deduplicated by name keeping the lowest
// object number.
func (d *Document) ListFields() ([]Field, error) {
	byParent := make(map[pdfstruct.Reference][]widgetInfo)
	byName := make(map[string][]widgetInfo)
	var candidates []fieldCandidate

	collect := func(ref pdfstruct.Reference, body []byte) bool {
		if dictscan.IsWidget(body) {
			w := widgetInfo{ref: ref}
			if rect, ok := dictscan.ParseBox(body, "Rect"); ok {
				w.rect, w.hasRct = rect, true
			}
			if raw, ok := dictscan.RawValue("P", body); ok {
				if pr, ok := parseRef(raw); ok {
					w.page, w.hasPg = pr, true
				}
			}
			if raw, ok := dictscan.RawValue("Parent", body); ok {
				if pr, ok := parseRef(raw); ok {
					w.parent, w.hasPar = pr, true
					byParent[pr] = append(byParent[pr], w)
				}
			}
			if name, ok := dictString(d.resolve, body, "T"); ok && name != "" {
				w.name = name
				byName[name] = append(byName[name], w)
			}
		}
		_, hasFT := dictscan.RawValue("FT", body)
		_, hasKids := dictscan.RawValue("Kids", body)
		_, hasParent := dictscan.RawValue("Parent", body)
		if _, ok := dictscan.RawValue("T", body); ok && (hasFT || dictscan.IsWidget(body) || hasKids || hasParent) {
			candidates = append(candidates, fieldCandidate{ref: ref, body: body})
		}
		return true
	}
	visited := 0
	d.eachObject(func(ref pdfstruct.Reference, body []byte) bool {
		visited++
		return collect(ref, body)
	})
	if visited == 0 {
		// Fallback: the xref-driven walk surfaced nothing, which happens
		// with badly damaged cross-reference data. Scan the raw bytes for
		// "N G obj ... endobj" regions instead, with stream payloads
		// blanked out so dictionary scanning cannot wander into them.
		d.diag.Warnf("pdfform: cross-reference walk found no objects, falling back to textual scan")
		d.eachObjectTextual(collect)
	}

	pages, err := d.ListPages()
	if err != nil {
		pages = nil
	}
	pageNumber := make(map[pdfstruct.Reference]int, len(pages))
	for i, p := range pages {
		pageNumber[p] = i + 1
	}

	byNameBest := make(map[string]Field)
	for _, cand := range candidates {
		ref, body := cand.ref, cand.body
		name, ok := dictString(d.resolve, body, "T")
		if !ok || placeholderName(name) {
			continue
		}
		var value string
		if v, ok := dictString(d.resolve, body, "V"); ok {
			value = v
		} else if v, ok := dictName(d.resolve, body, "V"); ok {
			value = v
		}
		ft, _ := dictName(d.resolve, body, "FT")
		if ft == "" {
			ft = "Tx"
		}
		flags, _ := dictscan.RawValue("Ff", body)
		var flagsInt int64
		fmt.Sscanf(string(flags), "%d", &flagsInt)
		_, hasKids := dictscan.RawValue("Kids", body)
		kind := kindFromFT(ft, flagsInt, hasKids)

		f := Field{Name: name, Value: value, Kind: kind, Ref: ref, doc: d}

		var matches []widgetInfo
		if ws, ok := byParent[ref]; ok {
			matches = ws
		} else if ws, ok := byName[name]; ok {
			matches = ws
		} else if dictscan.IsWidget(body) {
			matches = []widgetInfo{{ref: ref}}
			if rect, ok := dictscan.ParseBox(body, "Rect"); ok {
				matches[0].rect, matches[0].hasRct = rect, true
			}
			if raw, ok := dictscan.RawValue("P", body); ok {
				if pr, ok := parseRef(raw); ok {
					matches[0].page, matches[0].hasPg = pr, true
				}
			}
		}
		if len(matches) > 0 {
			w := matches[0]
			if w.hasRct {
				f.Rect = w.rect
			}
			if w.hasPg {
				if n, ok := pageNumber[w.page]; ok {
					f.Page = n
				}
			}
		}

		if existing, ok := byNameBest[name]; !ok || ref.Number < existing.Ref.Number {
			byNameBest[name] = f
		}
	}

	fields := make([]Field, 0, len(byNameBest))
	for _, f := range byNameBest {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Ref.Number < fields[j].Ref.Number })
	return fields, nil
}

// findField locates a field by name, returning its reference and current
// body (including any already-queued patch).
func (d *Document) findField(name string) (pdfstruct.Reference, []byte, error) {
	fields, err := d.ListFields()
	if err != nil {
		return pdfstruct.Reference{}, nil, err
	}
	for _, f := range fields {
		if f.Name == name {
			body, err := d.resolve(f.Ref)
			if err != nil {
				return pdfstruct.Reference{}, nil, err
			}
			return f.Ref, body, nil
		}
	}
	return pdfstruct.Reference{}, nil, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
}

// Write deduplicates the patch queue and runs IncrementalWriter, freezing
// the result as the document's new byte buffer and rebuilding the resolver
// so subsequent reads see the applied changes. If flatten is true, a full
// rewrite follows.
func (d *Document) Write(flatten bool) ([]byte, error) {
	out, err := pdfstruct.WriteIncremental(d.resolver, d.patches)
	if err != nil {
		return nil, err
	}
	d.patches = nil
	d.resolver.ClearObjStmCache()
	r, err := pdfstruct.Open(out)
	if err != nil {
		return nil, fmt.Errorf("pdfform: re-parsing document after write: %w", err)
	}
	d.resolver = r
	d.raw = out
	if flatten {
		return d.Flatten()
	}
	return d.raw, nil
}

// WriteFile serializes the document (see Write) and writes the result to
// path.
func (d *Document) WriteFile(path string, flatten bool) error {
	out, err := d.Write(flatten)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// Flatten emits a fresh single-revision document containing every live
// object, discarding all revision history, and adopts it as the document's
// new bytes.
func (d *Document) Flatten() ([]byte, error) {
	return d.flattenExcluding(nil)
}

// flattenExcluding is Flatten with excluded object references dropped from
// the kept set entirely, instead of re-emitted as unreferenced garbage.
// Clear/ClearInPlace use this so a removed field's tombstoned dictionary and
// detached widgets never make it into the rewritten document, per the
// full-rewriter's responsibility to clean up dangling widget references.
func (d *Document) flattenExcluding(excluded map[pdfstruct.Reference]bool) ([]byte, error) {
	var kept []pdfstruct.Patch
	d.eachObject(func(ref pdfstruct.Reference, body []byte) bool {
		if excluded[ref] {
			return true
		}
		kept = append(kept, pdfstruct.Patch{Ref: ref, Body: body})
		return true
	})
	infoClause := extractInfoClause(d.resolver.TrailerDict())
	out, err := pdfstruct.WriteFull(kept, d.RootRef(), infoClause)
	if err != nil {
		return nil, err
	}
	d.resolver.ClearObjStmCache()
	r, err := pdfstruct.Open(out)
	if err != nil {
		return nil, fmt.Errorf("pdfform: re-parsing document after flatten: %w", err)
	}
	d.resolver = r
	d.raw = out
	d.patches = nil
	return d.raw, nil
}

func extractInfoClause(trailer []byte) string {
	raw, ok := dictscan.RawValue("Info", trailer)
	if !ok {
		return ""
	}
	if _, ok := parseRef(raw); !ok {
		return ""
	}
	return "/Info " + string(raw)
}
