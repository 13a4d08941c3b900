package pdfstruct

import (
	"bytes"
	"fmt"
)

// WriteFull emits a fresh single-revision document containing exactly the
// objects in kept (sorted by object number), discarding all revision
// history. infoClause, if non-empty, must be a literal "/Info N G R" clause
// copied from the previous trailer.
func WriteFull(kept []Patch, rootRef Reference, infoClause string) ([]byte, error) {
	kept = DedupePatches(kept)

	byNum := make(map[int]Patch, len(kept))
	maxObj := 0
	for _, p := range kept {
		byNum[p.Ref.Number] = p
		if p.Ref.Number > maxObj {
			maxObj = p.Ref.Number
		}
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.6\n")
	out.Write([]byte{'%', 0xE2, 0xE3, 0xCF, 0xD3, '\n'})

	offsets := make([]int, maxObj+1)
	for num := 1; num <= maxObj; num++ {
		p, ok := byNum[num]
		if !ok {
			continue
		}
		offsets[num] = out.Len()
		fmt.Fprintf(&out, "%d %d obj\n", p.Ref.Number, p.Ref.Generation)
		body := normalizeBody(p.Body)
		out.Write(body)
		if len(body) == 0 || body[len(body)-1] != '\n' {
			out.WriteByte('\n')
		}
		out.WriteString("endobj\n")
	}

	xrefOffset := out.Len()
	out.WriteString("xref\n")
	fmt.Fprintf(&out, "0 %d\n", maxObj+1)
	out.WriteString("0000000000 65535 f \n")
	for num := 1; num <= maxObj; num++ {
		if p, ok := byNum[num]; ok {
			fmt.Fprintf(&out, "%010d %05d n \n", offsets[num], p.Ref.Generation)
		} else {
			out.WriteString("0000000000 65535 f \n")
		}
	}

	out.WriteString("trailer\n<< /Size ")
	fmt.Fprintf(&out, "%d", maxObj+1)
	fmt.Fprintf(&out, " /Root %d %d R", rootRef.Number, rootRef.Generation)
	if infoClause != "" {
		out.WriteString(" ")
		out.WriteString(infoClause)
	}
	out.WriteString(" >>\nstartxref\n")
	fmt.Fprintf(&out, "%d", xrefOffset)
	out.WriteString("\n%%EOF\n")

	return out.Bytes(), nil
}
