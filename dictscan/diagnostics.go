// Package dictscan operates on byte slices representing PDF dictionary and
// array fragments without ever parsing a whole document. Every function here
// takes and returns []byte and is safe to call on a fragment pulled out of
// the middle of a much larger file: the operations are position-preserving,
// reusing the original bytes wherever possible so formatting and unrelated
// entries survive untouched.
package dictscan

import "fmt"

// Diagnostics receives warnings about malformed input that DictScan chose to
// route around instead of failing. Production code gets a no-op sink; tests
// can install a recording one to assert on specific warnings.
type Diagnostics interface {
	Warnf(format string, args ...any)
}

// NopDiagnostics discards every warning. It is the default sink.
type NopDiagnostics struct{}

// Warnf implements Diagnostics.
func (NopDiagnostics) Warnf(string, ...any) {}

// Recorder collects warnings in memory, for use in tests that want to assert
// a particular recovery path was taken.
type Recorder struct {
	Messages []string
}

// Warnf implements Diagnostics.
func (r *Recorder) Warnf(format string, args ...any) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

func diagOrNop(d Diagnostics) Diagnostics {
	if d == nil {
		return NopDiagnostics{}
	}
	return d
}
