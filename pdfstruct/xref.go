package pdfstruct

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// xrefFree is a free-list entry in the cross-reference table.
type xrefFree struct {
	next int
	gen  int
}

// xrefDirect is a direct (in-file) object entry in the cross-reference table.
type xrefDirect struct {
	offset int
	gen    int
}

// xrefStream is a cross-reference entry for an object compressed inside an
// object stream.
type xrefStream struct {
	stream int
	index  int
}

// readXRef reads all of the cross reference sections from the PDF and builds
// a merged cross-reference table, later sections losing to earlier ones
// (sections are read in reverse chronological order via /Prev chaining).
func (r *Resolver) readXRef() (err error) {
	var addr int

	if err = r.readStartXRef(); err != nil {
		return fmt.Errorf(`reading "startxref": %w: %s`, ErrMalformedDocument, err)
	}
	addr = r.start
	for addr != 0 {
		var next int
		if next, err = r.readXRefSection(addr); err != nil {
			return fmt.Errorf("reading xref section at offset %d: %s", addr, err)
		}
		addr = next
	}
	return
}

var xrefAddrRE = regexp.MustCompile(`(?:\r|\n|\r\n)startxref(?:\r|\n|\r\n)(\d+)(?:\r|\n|\r\n)%%EOF(?:\r|\n|\r\n)?$`)
var xrefAddrLooseRE = regexp.MustCompile(`startxref[\x00\t\n\f\r ]+(\d+)`)

// readStartXRef finds the "startxref" keyword at the end of the file and
// reads the offset on the line after it. If the strict end-of-file pattern
// isn't found, it falls back to a permissive scan for "startxref" followed
// by digits anywhere in the trailing window.
func (r *Resolver) readStartXRef() (err error) {
	var (
		end   int64
		buf   [1024]byte
		match [][]byte
	)
	if end, err = r.fh.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	readLen := int64(len(buf))
	if end < readLen {
		readLen = end
	}
	if _, err = r.fh.ReadAt(buf[:readLen], end-readLen); err != nil && err != io.EOF {
		return err
	}
	window := buf[:readLen]
	if match = xrefAddrRE.FindSubmatch(window); match != nil {
		r.start, _ = strconv.Atoi(string(match[1]))
		return nil
	}
	if matches := xrefAddrLooseRE.FindAllSubmatch(window, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		r.start, _ = strconv.Atoi(string(last[1]))
		return nil
	}
	return fmt.Errorf(`no "startxref" found at end of file: %w`, ErrMalformedDocument)
}

// readXRefSection reads the cross reference section at the specified
// address into the table. It returns the address of the next earlier
// section, zero for the earliest one.
func (r *Resolver) readXRefSection(addr int) (prev int, err error) {
	var (
		buf [5]byte
		n   int
	)
	if n, err = r.fh.ReadAt(buf[:], int64(addr)); err != nil || n < 5 {
		return
	}
	if bytes.Equal(buf[:4], []byte("xref")) && (buf[4] == '\r' || buf[4] == '\n') {
		return r.readXRefTable(addr)
	}
	return r.readXRefStream(addr)
}

// xrefLineRE validates one 20-byte classic xref entry, including its
// two-byte terminator (" \n", "\r\n", or " \r").
var xrefLineRE = regexp.MustCompile(`^(\d{10}) (\d{5}) ([nf])[ \r\n]*$`)

// readXRefTable reads an old-style cross-reference table.
func (r *Resolver) readXRefTable(addr int) (prev int, err error) {
	var (
		buf [20]byte
		obj Object
	)
	if _, err = r.fh.ReadAt(buf[:6], int64(addr)); err != nil {
		return 0, err
	}
	if buf[4] == '\r' && buf[5] == '\n' {
		addr += 6
	} else {
		addr += 5
	}
	for {
		if _, err = r.fh.ReadAt(buf[:], int64(addr)); err != nil {
			return 0, err
		}
		if bytes.HasPrefix(buf[:], []byte("trailer")) && (buf[7] == '\r' || buf[7] == '\n') {
			if buf[7] == '\r' && buf[8] == '\n' {
				addr += 9
			} else {
				addr += 8
			}
			break
		}
		if addr, err = r.readXRefTableSection(addr, buf[:]); err != nil {
			return 0, fmt.Errorf("%w: %s", ErrMalformedDocument, err)
		}
	}
	r.trailerOffset = addr
	if obj, err = r.readObjectAt(addr); err != nil {
		return 0, fmt.Errorf("reading trailer dict at offset %d: %s", addr, err)
	}
	switch obj := obj.(type) {
	case Dict:
		for key, val := range obj {
			switch key {
			case "Prev":
				switch val := val.(type) {
				case int:
					prev = val
				default:
					return 0, fmt.Errorf("value of /Prev should be an integer in trailer dict at offset %d", addr)
				}
			case "XRefStm":
				switch val := val.(type) {
				case int:
					if _, err = r.readXRefStream(val); err != nil {
						return 0, err
					}
				default:
					return 0, fmt.Errorf("value of /XRefStm should be an integer in trailer dict at offset %d", addr)
				}
			default:
				if _, ok := r.Info[key]; !ok {
					r.Info[key] = val
				}
			}
		}
	default:
		return 0, fmt.Errorf(`expected dict after "trailer" at offset %d`, addr)
	}
	return prev, nil
}

// readXRefTableSection reads a single "<first> <count>" section of a
// classic xref table, falling back to a linear object-header scan if a
// subsection is malformed.
func (r *Resolver) readXRefTableSection(addr int, line []byte) (_ int, err error) {
	var start, count int
	if idx := bytes.IndexAny(line, "\r\n"); idx >= 0 {
		var n int
		if n, err = fmt.Sscanf(string(line[:idx]), "%d %d", &start, &count); err != nil || n != 2 {
			return r.reconstructXRefLinear(addr)
		}
		if line[idx] == '\r' && idx < len(line)-1 && line[idx+1] == '\n' {
			addr += idx + 2
		} else {
			addr += idx + 1
		}
	} else {
		return r.reconstructXRefLinear(addr)
	}
	if len(r.xref) < start+count {
		t := make([]any, start+count)
		copy(t, r.xref)
		r.xref = t
	}
	for i := 0; i < count; i, addr = i+1, addr+20 {
		if r.xref[start+i] != nil {
			continue
		}
		if _, err = r.fh.ReadAt(line, int64(addr)); err != nil {
			return 0, fmt.Errorf("reading cross-reference table entry at offset %d: %s", addr, err)
		}
		if !xrefLineRE.Match(line) {
			return r.reconstructXRefLinear(addr)
		}
		switch line[17] {
		case 'n':
			var xd xrefDirect
			xd.offset, _ = strconv.Atoi(string(line[:10]))
			xd.gen, _ = strconv.Atoi(string(line[11:16]))
			r.xref[start+i] = xd
		case 'f':
			var xf xrefFree
			xf.next, _ = strconv.Atoi(string(line[:10]))
			xf.gen, _ = strconv.Atoi(string(line[11:16]))
			r.xref[start+i] = xf
		default:
			return 0, fmt.Errorf("invalid cross-reference table entry at offset %d", addr)
		}
	}
	return addr, nil
}

// reconstructXRefLinear recovers from a malformed classic xref subsection by
// scanning forward for "N G obj" headers and rebuilding an approximate xref
// from whatever it finds, up to the next "trailer" keyword.
func (r *Resolver) reconstructXRefLinear(addr int) (int, error) {
	var buf [4096]byte
	n, err := r.fh.ReadAt(buf[:], int64(addr))
	if err != nil && n == 0 {
		return 0, err
	}
	window := buf[:n]
	if idx := bytes.Index(window, []byte("trailer")); idx >= 0 {
		for _, m := range objHeaderRE.FindAllSubmatchIndex(window[:idx], -1) {
			num, _ := strconv.Atoi(string(window[m[2]:m[3]]))
			gen, _ := strconv.Atoi(string(window[m[4]:m[5]]))
			if len(r.xref) <= num {
				t := make([]any, num+1)
				copy(t, r.xref)
				r.xref = t
			}
			if r.xref[num] == nil {
				r.xref[num] = xrefDirect{offset: addr + m[0], gen: gen}
			}
		}
		return addr + idx, nil
	}
	return 0, errors.New("could not locate \"trailer\" while reconstructing malformed xref section")
}

var objHeaderRE = regexp.MustCompile(`(\d+)[ \t\r\n\f\x00]+(\d+)[ \t\r\n\f\x00]+obj\b`)

// readXRefStream reads a cross-reference stream and merges its entries into
// the document's cross-reference table.
func (r *Resolver) readXRefStream(addr int) (prev int, err error) {
	var (
		obj   Object
		str   Stream
		ok    bool
		index []int
		w     []int
		data  []byte
	)
	if obj, err = r.readObjectAt(addr); err != nil {
		return 0, fmt.Errorf("reading xref stream at offset %d: %s", addr, err)
	}
	if str, ok = obj.(Stream); !ok {
		if prev, err2 := r.fallbackClassicXRefNear(addr); err2 == nil {
			return prev, nil
		}
		return 0, fmt.Errorf("expected xref stream at offset %d", addr)
	}
	if str.Dict["Type"] != Name("XRef") {
		if prev, err2 := r.fallbackClassicXRefNear(addr); err2 == nil {
			return prev, nil
		}
		return 0, fmt.Errorf(`expected /Type "XRef" in xref stream at offset %d`, addr)
	}
	r.trailerOffset = addr
	for key, val := range str.Dict {
		switch key {
		case "Prev":
			switch val := val.(type) {
			case int:
				prev = val
			default:
				return 0, fmt.Errorf("value of /Prev should be integer in xref stream at offset %d", addr)
			}
		case "Index":
			index = index[:0]
			switch val := val.(type) {
			case Array:
				for _, vi := range val {
					switch vi := vi.(type) {
					case int:
						index = append(index, vi)
					default:
						return 0, fmt.Errorf("value of element of /Index should be integer in xref stream at offset %d", addr)
					}
				}
				if len(index) < 2 || len(index)%2 != 0 {
					return 0, fmt.Errorf("invalid number of elements in /Index in xref stream at offset %d", addr)
				}
			default:
				return 0, fmt.Errorf("value of /Index should be array in xref stream at offset %d", addr)
			}
		case "Size":
			switch val := val.(type) {
			case int:
				if len(index) == 0 {
					index = append(index, 0, val)
				}
			default:
				return 0, fmt.Errorf("value of /Size should be integer in xref stream at offset %d", addr)
			}
			if _, ok := r.Info[key]; !ok {
				r.Info[key] = val
			}
		case "W":
			switch val := val.(type) {
			case Array:
				if len(val) != 3 {
					return 0, fmt.Errorf("value of /W should be array of length 3 in xref stream at offset %d", addr)
				}
				for _, vi := range val {
					switch vi := vi.(type) {
					case int:
						w = append(w, vi)
					default:
						return 0, fmt.Errorf("value of element of /W should be integer in xref stream at offset %d", addr)
					}
				}
			default:
				return 0, fmt.Errorf("value of /W should be array in xref stream at offset %d", addr)
			}
		case "Type", "Length", "Filter", "DecodeParms", "F", "FFilter", "FDecodeParms", "DL":
			break
		default:
			if _, ok := r.Info[key]; !ok {
				r.Info[key] = val
			}
		}
	}
	if len(index) == 0 {
		return 0, fmt.Errorf("missing both /Index and /Size in xref stream at offset %d", addr)
	}
	if len(w) == 0 {
		return 0, fmt.Errorf("missing /W in xref stream at offset %d", addr)
	}
	if err = decodeStreamData(&str, w[0]+w[1]+w[2]); err != nil {
		return 0, fmt.Errorf("%w: decompressing xref stream at offset %d: %s", ErrUnsupportedFilter, addr, err)
	}
	if max := index[len(index)-2] + index[len(index)-1]; len(r.xref) < max {
		t := make([]any, max)
		copy(t, r.xref)
		r.xref = t
	}
	data = str.Data
	for len(index) != 0 {
		var start, count int

		start, count, index = index[0], index[1], index[2:]
		for i := start; i < start+count; i++ {
			var (
				xtype int
				xr    any
			)
			data, xtype = getStreamElement(data, w[0], 1)
			switch xtype {
			case 0:
				var xf xrefFree
				data, xf.next = getStreamElement(data, w[1], 0)
				data, xf.gen = getStreamElement(data, w[2], 0)
				xr = xf
			case 1:
				var xd xrefDirect
				data, xd.offset = getStreamElement(data, w[1], 0)
				data, xd.gen = getStreamElement(data, w[2], 0)
				xr = xd
			case 2:
				var xs xrefStream
				data, xs.stream = getStreamElement(data, w[1], 0)
				data, xs.index = getStreamElement(data, w[2], 0)
				xr = xs
			default:
				return 0, fmt.Errorf("invalid type %d in xref stream at offset %d, index %d", xtype, addr, i)
			}
			if r.xref[i] == nil {
				r.xref[i] = xr
			}
		}
	}
	return prev, nil
}

// fallbackClassicXRefNear searches the bytes surrounding addr for a classic
// "xref" keyword when an xref stream fails to decode, repairing the document
// locally instead of failing the open.
func (r *Resolver) fallbackClassicXRefNear(addr int) (int, error) {
	const window = 4096
	start := addr - window
	if start < 0 {
		start = 0
	}
	var buf [2 * window]byte
	n, err := r.fh.ReadAt(buf[:], int64(start))
	if err != nil && n == 0 {
		return 0, err
	}
	data := buf[:n]
	idx := bytes.Index(data, []byte("\nxref\n"))
	if idx < 0 {
		idx = bytes.Index(data, []byte("\nxref\r"))
	}
	if idx < 0 {
		return 0, errors.New("no nearby classic xref keyword found")
	}
	return r.readXRefTable(start + idx + 1)
}

// getStreamElement reads one field of a cross-reference element from a
// stream, returning the remaining data and the value (or def if size is 0).
func getStreamElement(data []byte, size int, def int) (_ []byte, ret int) {
	if size == 0 {
		return data, def
	}
	for i := 0; i < size; i++ {
		ret = ret*256 + int(data[0])
		data = data[1:]
	}
	return data, ret
}
