package dictscan

import (
	"fmt"
	"regexp"
)

// Ref is an indirect object reference, (number, generation), spelled "N G R"
// in PDF syntax. DictScan stays free of any dependency on the object layer,
// so it carries its own minimal reference type; pdfstruct and pdfform
// convert to/from it at their boundary.
type Ref struct {
	Num int
	Gen int
}

// Token returns the PDF syntax for the reference, e.g. "12 0 R".
func (r Ref) Token() string {
	return fmt.Sprintf("%d %d R", r.Num, r.Gen)
}

func refPattern(r Ref) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`\b%d[ \t\r\n\f\x00]+%d[ \t\r\n\f\x00]+R\b`, r.Num, r.Gen))
}
