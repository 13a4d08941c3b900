package pdfform

import (
	"github.com/wynk182/acro-that/dictscan"
	"github.com/wynk182/acro-that/pdfstruct"
)

// RemoveField deletes a field and its widgets: every widget is unlinked
// from its page's /Annots, the field ref is pruned from
// /AcroForm/Fields, and the field object itself is tombstoned (its /T cleared)
// rather than physically deleted, since other objects may still reference it
// and incremental updates cannot remove an object body outright. A later
// Flatten of the whole document keeps these tombstoned/orphaned bodies as
// unreferenced garbage; Clear/ClearInPlace drop them from a flatten's kept
// set instead, via removeField's returned ref list.
func (d *Document) RemoveField(name string) error {
	_, err := d.removeField(name)
	return err
}

// removeField does RemoveField's work and additionally returns every object
// reference it detached: the field itself plus every one of its widgets.
func (d *Document) removeField(name string) ([]pdfstruct.Reference, error) {
	fieldRef, fieldBody, err := d.findField(name)
	if err != nil {
		return nil, err
	}
	widgets, err := d.widgetsFor(fieldRef, name)
	if err != nil {
		return nil, err
	}
	pages, err := d.ListPages()
	if err != nil {
		return nil, err
	}

	for _, w := range widgets {
		wb, err := d.resolve(w)
		if err != nil {
			continue
		}
		var pageRef pdfstruct.Reference
		found := false
		if raw, ok := dictscan.RawValue("P", wb); ok {
			if pr, ok := parseRef(raw); ok {
				pageRef = pr
				found = true
			}
		}
		if found {
			pb, err := d.resolve(pageRef)
			if err == nil {
				pb, err = d.removeRefFromListKey(pb, "Annots", w)
				if err == nil {
					d.patch(pageRef, pb)
				}
			}
			continue
		}
		for _, p := range pages {
			pb, err := d.resolve(p)
			if err != nil {
				continue
			}
			refs, err := refOrInlineRefs(d.resolve, pb, "Annots")
			if err != nil {
				continue
			}
			if contains(refs, w) {
				pb2, err := d.removeRefFromListKey(pb, "Annots", w)
				if err == nil {
					d.patch(p, pb2)
				}
				break
			}
		}
	}

	if err := d.removeFromAcroFormFields(fieldRef); err != nil {
		return nil, err
	}

	fieldBody = dictscan.UpsertKeyValue(fieldBody, "T", []byte("()"), d.diag)
	d.patch(fieldRef, fieldBody)

	detached := append([]pdfstruct.Reference{fieldRef}, widgets...)
	return detached, nil
}

func (d *Document) removeFromAcroFormFields(fieldRef pdfstruct.Reference) error {
	afRef, afBody, inline, err := d.acroFormRefAndBody()
	if err != nil {
		return err
	}
	afBody, err = d.removeRefFromListKey(afBody, "Fields", fieldRef)
	if err != nil {
		return err
	}
	if inline {
		cat, err := d.catalogBody()
		if err != nil {
			return err
		}
		cat = dictscan.UpsertKeyValue(cat, "AcroForm", afBody, d.diag)
		d.patch(d.RootRef(), cat)
	} else {
		d.patch(afRef, afBody)
	}
	return nil
}
