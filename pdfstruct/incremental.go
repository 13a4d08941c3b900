package pdfstruct

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// A Patch is one pending object rewrite: the object's reference and its
// complete new body bytes (never a delta).
type Patch struct {
	Ref  Reference
	Body []byte
}

// DedupePatches keeps only the last patch queued for each reference,
// preserving the order of first occurrence, per the patch queue's
// last-write-wins invariant.
func DedupePatches(patches []Patch) []Patch {
	last := make(map[Reference]int, len(patches))
	var order []Reference
	for i, p := range patches {
		if _, ok := last[p.Ref]; !ok {
			order = append(order, p.Ref)
		}
		last[p.Ref] = i
	}
	out := make([]Patch, 0, len(order))
	for _, ref := range order {
		out = append(out, patches[last[ref]])
	}
	return out
}

var rootEntryRE = regexp.MustCompile(`/Root\s+\d+\s+\d+\s+R\b`)

// normalizeBody strips the leading whitespace an object body picked up from
// a prior writer's "obj\n" separator, so repeated rewrites do not accrete a
// newline per revision and flatten stays idempotent.
func normalizeBody(body []byte) []byte {
	return bytes.TrimLeft(body, "\x00\t\n\f\r ")
}

// WriteIncremental appends an incremental revision to raw containing the
// given patches, per the classic-xref-table incremental update algorithm:
// a new block of "N G obj ... endobj" objects, a fresh xref table covering
// only the patched objects, and a /Prev-chained trailer. If patches is
// empty, raw is returned unchanged.
func WriteIncremental(r *Resolver, patches []Patch) ([]byte, error) {
	patches = DedupePatches(patches)
	if len(patches) == 0 {
		return r.raw, nil
	}

	maxObj := r.MaxObjectNumber()
	for _, p := range patches {
		if p.Ref.Number > maxObj {
			maxObj = p.Ref.Number
		}
	}

	var out bytes.Buffer
	out.Write(r.raw)
	if out.Len() > 0 && out.Bytes()[out.Len()-1] != '\n' {
		out.WriteByte('\n')
	}

	type placedObj struct {
		ref    Reference
		offset int
	}
	placed := make([]placedObj, 0, len(patches))
	for _, p := range patches {
		offset := out.Len()
		fmt.Fprintf(&out, "%d %d obj\n", p.Ref.Number, p.Ref.Generation)
		body := normalizeBody(p.Body)
		out.Write(body)
		if len(body) == 0 || body[len(body)-1] != '\n' {
			out.WriteByte('\n')
		}
		out.WriteString("endobj\n")
		placed = append(placed, placedObj{ref: p.Ref, offset: offset})
	}

	sort.Slice(placed, func(i, j int) bool {
		if placed[i].ref.Number != placed[j].ref.Number {
			return placed[i].ref.Number < placed[j].ref.Number
		}
		return placed[i].ref.Generation < placed[j].ref.Generation
	})
	if len(placed) == 0 {
		return nil, errors.New("pdfstruct: incremental write produced an empty xref table")
	}

	xrefOffset := out.Len()
	out.WriteString("xref\n")
	for i := 0; i < len(placed); {
		j := i + 1
		for j < len(placed) && placed[j].ref.Number == placed[j-1].ref.Number+1 {
			j++
		}
		fmt.Fprintf(&out, "%d %d\n", placed[i].ref.Number, j-i)
		for _, p := range placed[i:j] {
			fmt.Fprintf(&out, "%010d %05d n \n", p.offset, p.ref.Generation)
		}
		i = j
	}

	rootClause := extractRootClause(r.raw, r.trailerOffset)

	out.WriteString("trailer\n<< /Size ")
	fmt.Fprintf(&out, "%d", maxObj+1)
	out.WriteString(" /Prev ")
	fmt.Fprintf(&out, "%d", r.StartXRefOffset())
	if rootClause != "" {
		out.WriteString(" ")
		out.WriteString(rootClause)
	}
	out.WriteString(" >>\nstartxref\n")
	fmt.Fprintf(&out, "%d", xrefOffset)
	out.WriteString("\n%%EOF\n")

	return out.Bytes(), nil
}

// extractRootClause finds the literal "/Root N G R" text in the previous
// trailer (classic trailer dict or xref-stream dict at trailerOffset) so
// it can be copied verbatim into the new trailer, without fully parsing
// the dictionary.
func extractRootClause(raw []byte, trailerOffset int) string {
	if trailerOffset < 0 || trailerOffset >= len(raw) {
		return ""
	}
	window := raw[trailerOffset:]
	if len(window) > 4096 {
		window = window[:4096]
	}
	m := rootEntryRE.Find(window)
	if m == nil {
		return ""
	}
	return string(m)
}
