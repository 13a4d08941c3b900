// Package pdfstruct provides byte-precise access to the structure of a PDF:
// locating and returning the raw body bytes of every object, whether in the
// linear file, in a cross-reference stream, or compressed inside an object
// stream, plus writers that append an incremental revision or emit a fresh
// single-revision document. It understands just enough PDF grammar to find
// object boundaries and chase the xref chain; it does not interpret field
// semantics, which is pdfform's job operating on the byte spans this package
// hands back.
package pdfstruct

// An Object is a structurally parsed PDF value, used only for the handful
// of things this package must understand structurally: the trailer
// dictionary, xref stream dictionaries, and object-stream headers. It will
// be one of:
//   - nil (a null object)
//   - bool
//   - int
//   - float64
//   - string
//   - []byte (a hex string)
//   - Name
//   - Array
//   - Dict
//   - Stream
//   - Reference
type Object any

// A Name is a PDF/PostScript name, without the leading slash.
type Name string

// An Array is an array of objects.
type Array []Object

// A Dict is a map from Name to Object.
type Dict map[Name]Object

// A Stream is a Dict followed by a block of arbitrary data. Stream data
// passed through decodeStreamData has been decoded; raw object bodies handed
// back by the Resolver still carry it encoded.
type Stream struct {
	Dict Dict
	Data []byte
}

// A Reference is an indirect reference to an Object: (object number,
// generation number). (0, 65535) is the conventional free-list head.
type Reference struct {
	Number     int
	Generation int
}
