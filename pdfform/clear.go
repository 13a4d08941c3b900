package pdfform

import (
	"regexp"

	"github.com/wynk182/acro-that/pdfstruct"
)

// ClearSelector picks which fields a Clear/ClearInPlace call drops. Exactly
// one of Keep, Remove, Pattern, or Match should be set; when more than one is
// set, Keep takes precedence, then Remove, then Pattern, then Match.
type ClearSelector struct {
	Keep    []string
	Remove  []string
	Pattern *regexp.Regexp
	Match   func(name string) bool
}

func (sel ClearSelector) shouldRemove(name string) bool {
	switch {
	case sel.Keep != nil:
		for _, k := range sel.Keep {
			if k == name {
				return false
			}
		}
		return true
	case sel.Remove != nil:
		for _, r := range sel.Remove {
			if r == name {
				return true
			}
		}
		return false
	case sel.Pattern != nil:
		return sel.Pattern.MatchString(name)
	case sel.Match != nil:
		return sel.Match(name)
	default:
		return false
	}
}

// documentSnapshot captures the mutable parts of a Document so Clear can run
// its (mutating) ClearInPlace logic on a scratch copy and roll back.
type documentSnapshot struct {
	resolver *pdfstruct.Resolver
	raw      []byte
	patches  []pdfstruct.Patch
}

func (d *Document) snapshot() documentSnapshot {
	return documentSnapshot{
		resolver: d.resolver,
		raw:      d.raw,
		patches:  append([]pdfstruct.Patch(nil), d.patches...),
	}
}

func (d *Document) restore(s documentSnapshot) {
	d.resolver = s.resolver
	d.raw = s.raw
	d.patches = s.patches
}

// applyClear removes every field sel selects, returning the set of object
// references it detached (each removed field and all of its widgets) so the
// caller's flatten can drop them outright instead of re-emitting them as
// unreferenced garbage.
func (d *Document) applyClear(sel ClearSelector) (map[pdfstruct.Reference]bool, error) {
	fields, err := d.ListFields()
	if err != nil {
		return nil, err
	}
	excluded := make(map[pdfstruct.Reference]bool)
	for _, f := range fields {
		if !sel.shouldRemove(f.Name) {
			continue
		}
		detached, err := d.removeField(f.Name)
		if err != nil {
			return nil, err
		}
		for _, ref := range detached {
			excluded[ref] = true
		}
	}
	return excluded, nil
}

// ClearInPlace removes every field sel selects and flattens the result,
// adopting the output as the document's new bytes (see Flatten). The
// returned bytes contain neither the removed fields' dictionaries nor their
// widget annotations: flattenExcluding drops exactly those object references
// applyClear detached, rather than relying on Flatten's normal "re-emit
// everything eachObject still visits" behavior.
func (d *Document) ClearInPlace(sel ClearSelector) ([]byte, error) {
	excluded, err := d.applyClear(sel)
	if err != nil {
		return nil, err
	}
	return d.flattenExcluding(excluded)
}

// Clear behaves like ClearInPlace but leaves the Document unmodified: it
// runs the same removal and flatten on a snapshot, then rolls the Document
// back before returning the resulting bytes.
func (d *Document) Clear(sel ClearSelector) ([]byte, error) {
	saved := d.snapshot()
	out, err := d.ClearInPlace(sel)
	d.restore(saved)
	return out, err
}
