package pdfstruct

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// decodeStreamData undoes whatever /Filter chain a stream declares, in
// place on s.Data. rowSize is the PNG-predictor row width in bytes; callers
// that know the stream carries no predictor (most object streams) pass 0.
func decodeStreamData(s *Stream, rowSize int) error {
	names, parms, err := filterChain(s.Dict)
	if err != nil {
		return err
	}
	for i, name := range names {
		var dp Dict
		if parms != nil {
			dp = parms[i]
		}
		if name != "FlateDecode" {
			return fmt.Errorf("%w: %q", ErrUnsupportedFilter, name)
		}
		if err := inflateAndUnpredict(s, dp, rowSize); err != nil {
			return err
		}
	}
	delete(s.Dict, "Filter")
	return nil
}

// filterChain normalizes a stream's /Filter (and matching /DecodeParms)
// into parallel slices, whether the dictionary spelled them as a bare
// Name/Dict or as same-length Arrays.
func filterChain(dict Dict) ([]string, []Dict, error) {
	switch flist := dict["Filter"].(type) {
	case nil:
		return nil, nil, nil
	case Name:
		var parms []Dict
		switch p := dict["DecodeParms"].(type) {
		case Dict:
			parms = []Dict{p}
		case nil:
		default:
			return nil, nil, fmt.Errorf("stream /DecodeParms is not a dictionary")
		}
		return []string{string(flist)}, parms, nil
	case Array:
		names := make([]string, 0, len(flist))
		for _, n := range flist {
			nm, ok := n.(Name)
			if !ok {
				return nil, nil, fmt.Errorf("stream /Filter entry is not a /Name")
			}
			names = append(names, string(nm))
		}
		switch pa := dict["DecodeParms"].(type) {
		case nil:
			return names, nil, nil
		case Array:
			if len(pa) != len(flist) {
				return nil, nil, fmt.Errorf("stream /DecodeParms is array with wrong length")
			}
			parms := make([]Dict, len(pa))
			for i, p := range pa {
				if p == nil {
					continue
				}
				pd, ok := p.(Dict)
				if !ok {
					return nil, nil, fmt.Errorf("stream /DecodeParms entry is not a dict")
				}
				parms[i] = pd
			}
			return names, parms, nil
		default:
			return nil, nil, fmt.Errorf("stream /DecodeParms is not an array")
		}
	default:
		return nil, nil, fmt.Errorf("stream /Filter is not a /Name or array")
	}
}

// inflateAndUnpredict zlib-inflates s.Data, then reverses a PNG predictor
// named in parms["Predictor"], if any.
func inflateAndUnpredict(s *Stream, parms Dict, rowSize int) error {
	zr, err := zlib.NewReader(bytes.NewReader(s.Data))
	if err != nil {
		return fmt.Errorf("inflating FlateDecode stream: %w", err)
	}
	defer zr.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return fmt.Errorf("inflating FlateDecode stream: %w", err)
	}
	s.Data = buf.Bytes()

	if parms == nil {
		return nil
	}
	pred, ok := parms["Predictor"].(int)
	if !ok {
		if parms["Predictor"] != nil {
			return fmt.Errorf("FlateDecode predictor is not an integer")
		}
		return nil
	}
	switch {
	case pred == 1:
		return nil
	case pred >= 10 && pred <= 15:
		if rowSize == 0 {
			return fmt.Errorf("PNG predictor needs a row size but none was given")
		}
		unpacked, err := reversePNGPredictor(s.Data, rowSize)
		if err != nil {
			return err
		}
		s.Data = unpacked
		return nil
	default:
		return fmt.Errorf("FlateDecode predictor %d is not supported", pred)
	}
}

// reversePNGPredictor undoes the PNG predictor filters applied per-row
// before Flate compression. Every row in data is one tag byte followed by
// rowSize bytes of sample data; only tags 0 (None) and 2 (Up) occur in PDF
// xref streams and object-stream data, so those are the only ones handled.
func reversePNGPredictor(data []byte, rowSize int) ([]byte, error) {
	stride := rowSize + 1
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("predicted stream length is not a multiple of row width+1")
	}
	numRows := len(data) / stride
	out := make([]byte, 0, numRows*rowSize)
	prev := make([]byte, rowSize)
	for row := 0; row < numRows; row++ {
		tag := data[row*stride]
		sample := data[row*stride+1 : row*stride+stride]
		cur := make([]byte, rowSize)
		switch tag {
		case 0:
			copy(cur, sample)
		case 2:
			for i := range cur {
				cur[i] = sample[i] + prev[i]
			}
		default:
			return nil, fmt.Errorf("unsupported PNG predictor row tag %d", tag)
		}
		out = append(out, cur...)
		prev = cur
	}
	return out, nil
}
