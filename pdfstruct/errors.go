package pdfstruct

import "errors"

// ErrMalformedDocument is raised when the input cannot reasonably be
// processed as a PDF at all: no startxref, no trailer, no catalog.
var ErrMalformedDocument = errors.New("pdfstruct: malformed document")

// ErrUnsupportedFilter is raised when a stream declares a filter this
// package does not implement.
var ErrUnsupportedFilter = errors.New("pdfstruct: unsupported stream filter")
