package pdfform

import "errors"

// ErrFieldNotFound is returned by UpdateField/RemoveField when no field by
// that name exists.
var ErrFieldNotFound = errors.New("pdfform: no such field")

// ErrInvalidPageNumber is returned by AddField when the requested page is
// out of range.
var ErrInvalidPageNumber = errors.New("pdfform: invalid page number")

// ErrAppearanceDecode is returned when a signature field's value looks like
// image data but cannot be decoded as JPEG or PNG.
var ErrAppearanceDecode = errors.New("pdfform: could not decode appearance image")
