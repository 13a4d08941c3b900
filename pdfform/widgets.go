package pdfform

import (
	"github.com/wynk182/acro-that/dictscan"
	"github.com/wynk182/acro-that/pdfstruct"
)

// widgetsFor returns every widget annotation belonging to fieldRef: the
// field object itself if it is flat (field and widget are the same
// dictionary, as with most check boxes and single-widget text fields), plus
// every widget whose /Parent is fieldRef (the hierarchical-field case, as
// with radio button kids), falling back to widgets sharing the field's /T
// name when none declare /Parent (some writers omit it).
func (d *Document) widgetsFor(fieldRef pdfstruct.Reference, name string) ([]pdfstruct.Reference, error) {
	var widgets []pdfstruct.Reference
	fieldBody, err := d.resolve(fieldRef)
	if err != nil {
		return nil, err
	}
	if dictscan.IsWidget(fieldBody) {
		widgets = append(widgets, fieldRef)
	}

	var byParent, byName []pdfstruct.Reference
	d.eachObject(func(ref pdfstruct.Reference, body []byte) bool {
		if ref == fieldRef || !dictscan.IsWidget(body) {
			return true
		}
		if raw, ok := dictscan.RawValue("Parent", body); ok {
			if pr, ok := parseRef(raw); ok && pr == fieldRef {
				byParent = append(byParent, ref)
				return true
			}
		}
		if name != "" {
			if _, hasParent := dictscan.RawValue("Parent", body); !hasParent {
				if n, ok := dictString(d.resolve, body, "T"); ok && n == name {
					byName = append(byName, ref)
				}
			}
		}
		return true
	})
	if len(byParent) > 0 {
		widgets = append(widgets, byParent...)
	} else {
		widgets = append(widgets, byName...)
	}
	return widgets, nil
}

func contains(refs []pdfstruct.Reference, want pdfstruct.Reference) bool {
	for _, r := range refs {
		if r == want {
			return true
		}
	}
	return false
}
