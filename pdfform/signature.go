package pdfform

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/h2non/filetype"
	"github.com/wynk182/acro-that/dictscan"
	"github.com/wynk182/acro-that/pdfstruct"
)

// decodeImagePayload strips an optional "data:image/...;base64," prefix and
// base64-decodes the remainder.
func decodeImagePayload(s string) ([]byte, error) {
	if idx := strings.Index(s, ";base64,"); idx >= 0 {
		s = s[idx+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if raw, err2 := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err2 == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrAppearanceDecode, err)
	}
	return raw, nil
}

// applySignatureAppearance decodes value as an image (JPEG or PNG, sniffed
// by magic bytes), places it as a Form XObject scaled to fit rect, and
// attaches it as the widget's /AP /N.
// JPEG passes through via /DCTDecode; PNG is decoded to raw RGB (plus
// an optional /SMask for partial transparency) and re-encoded with Flate.
func (d *Document) applySignatureAppearance(fieldRef, widgetRef pdfstruct.Reference, rect [4]float64, value string) error {
	raw, err := decodeImagePayload(value)
	if err != nil {
		return err
	}
	kind, err := filetype.Match(raw)
	if err != nil || kind == filetype.Unknown {
		return fmt.Errorf("%w: unrecognized image format", ErrAppearanceDecode)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAppearanceDecode, err)
	}
	imgW, imgH := float64(cfg.Width), float64(cfg.Height)
	rectW, rectH := rect[2]-rect[0], rect[3]-rect[1]
	scale := rectW / imgW
	if s2 := rectH / imgH; s2 < scale {
		scale = s2
	}
	scaledW, scaledH := imgW*scale, imgH*scale
	// Center the scaled image within the widget's full rect so the form
	// XObject's BBox always matches Rect, as the appearance-fitting
	// algorithm expects; a smaller BBox would just get stretched back out.
	offsetX, offsetY := (rectW-scaledW)/2, (rectH-scaledH)/2

	var imageRef pdfstruct.Reference
	switch {
	case kind.Extension == "jpg":
		imageRef = d.allocObject(jpegImageObject(raw, cfg.Width, cfg.Height))
	case kind.Extension == "png":
		body, err := d.pngImageObject(raw)
		if err != nil {
			return err
		}
		imageRef = d.allocObject(body)
	default:
		return fmt.Errorf("%w: unsupported image type %q", ErrAppearanceDecode, kind.Extension)
	}

	content := fmt.Sprintf("q\n%g 0 0 %g %g %g cm\n/Im1 Do\nQ", scaledW, scaledH, offsetX, offsetY)
	formBody := []byte(fmt.Sprintf(
		"<< /Type /XObject /Subtype /Form /BBox [ 0 0 %g %g ] /Resources << /XObject << /Im1 %d 0 R >> >> /Length %d >>\nstream\n%s\nendstream",
		rectW, rectH, imageRef.Number, len(content), content))
	formRef := d.allocObject(formBody)

	widgetBody, err := d.resolve(widgetRef)
	if err != nil {
		return err
	}
	widgetBody = dictscan.UpsertKeyValue(widgetBody, "AP", []byte(fmt.Sprintf("<< /N %d 0 R >>", formRef.Number)), d.diag)
	d.patch(widgetRef, widgetBody)
	return nil
}

// jpegImageObject wraps raw JPEG bytes as a DCTDecode image XObject, passed
// through verbatim (no re-encoding).
func jpegImageObject(raw []byte, w, h int) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n", w, h, len(raw))
	buf.Write(raw)
	buf.WriteString("\nendstream")
	return buf.Bytes()
}

// pngImageObject decodes a PNG to raw RGB octets (plus a gray /SMask if any
// pixel has partial transparency) and re-encodes both as Flate streams.
func (d *Document) pngImageObject(raw []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAppearanceDecode, err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rgb := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	hasAlpha := false
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			rgb = append(rgb, byte(r>>8), byte(g>>8), byte(b>>8))
			av := byte(a >> 8)
			if av < 255 {
				hasAlpha = true
			}
			alpha = append(alpha, av)
		}
	}
	compressed, err := d.flateCompress(rgb)
	if err != nil {
		return nil, err
	}

	var smaskRef pdfstruct.Reference
	if hasAlpha {
		acompressed, err := d.flateCompress(alpha)
		if err != nil {
			return nil, err
		}
		var smask bytes.Buffer
		fmt.Fprintf(&smask, "<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray /BitsPerComponent 8 /Filter /FlateDecode /Length %d >>\nstream\n", w, h, len(acompressed))
		smask.Write(acompressed)
		smask.WriteString("\nendstream")
		smaskRef = d.allocObject(smask.Bytes())
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /FlateDecode", w, h)
	if hasAlpha {
		fmt.Fprintf(&buf, " /SMask %d 0 R", smaskRef.Number)
	}
	fmt.Fprintf(&buf, " /Length %d >>\nstream\n", len(compressed))
	buf.Write(compressed)
	buf.WriteString("\nendstream")
	return buf.Bytes(), nil
}

func (d *Document) flateCompress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, d.compressLevel)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
