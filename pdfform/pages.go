package pdfform

import (
	"github.com/wynk182/acro-that/dictscan"
	"github.com/wynk182/acro-that/pdfstruct"
)

// PageInfo describes one page's geometry, as surfaced by Document.Pages.
// Every box, MediaBox included, inherits the nearest ancestor's value down
// the /Pages tree when a page omits it; a box other than MediaBox that no
// ancestor sets either defaults to MediaBox.
type PageInfo struct {
	Number   int
	Width    float64
	Height   float64
	Ref      pdfstruct.Reference
	MediaBox [4]float64
	CropBox  [4]float64
	ArtBox   [4]float64
	BleedBox [4]float64
	TrimBox  [4]float64
}

var pageBoxKeys = [5]string{"MediaBox", "CropBox", "ArtBox", "BleedBox", "TrimBox"}

// Pages returns every page in the document, in document order, with
// inherited box geometry resolved.
func (d *Document) Pages() ([]PageInfo, error) {
	refs, err := d.ListPages()
	if err != nil {
		return nil, err
	}
	// Re-walk the tree to accumulate inherited boxes; ListPages already
	// validated the tree shape, so errors here would be unexpected.
	cat, err := d.catalogBody()
	if err != nil {
		return nil, err
	}
	raw, _ := dictscan.RawValue("Pages", cat)
	root, _ := parseRef(raw)

	boxesByRef := make(map[pdfstruct.Reference]map[string][4]float64, len(refs))
	seen := map[pdfstruct.Reference]bool{}
	var walk func(ref pdfstruct.Reference, inherited map[string][4]float64) error
	walk = func(ref pdfstruct.Reference, inherited map[string][4]float64) error {
		if seen[ref] {
			return nil
		}
		seen[ref] = true
		body, err := d.resolve(ref)
		if err != nil {
			return err
		}
		boxes := make(map[string][4]float64, len(inherited))
		for k, v := range inherited {
			boxes[k] = v
		}
		for _, name := range pageBoxKeys {
			if box, ok := dictscan.ParseBox(body, name); ok {
				boxes[name] = box
			}
		}
		if dictscan.IsPage(body) {
			boxesByRef[ref] = boxes
			return nil
		}
		kids, err := refOrInlineRefs(d.resolve, body, "Kids")
		if err != nil {
			return err
		}
		for _, kid := range kids {
			if err := walk(kid, boxes); err != nil {
				return err
			}
		}
		return nil
	}
	if root != (pdfstruct.Reference{}) {
		if err := walk(root, map[string][4]float64{}); err != nil {
			return nil, err
		}
	}

	infos := make([]PageInfo, 0, len(refs))
	for i, ref := range refs {
		boxes := boxesByRef[ref]
		media := boxes["MediaBox"]
		infos = append(infos, PageInfo{
			Number:   i + 1,
			Ref:      ref,
			Width:    media[2] - media[0],
			Height:   media[3] - media[1],
			MediaBox: media,
			CropBox:  boxOrDefault(boxes, "CropBox", media),
			ArtBox:   boxOrDefault(boxes, "ArtBox", media),
			BleedBox: boxOrDefault(boxes, "BleedBox", media),
			TrimBox:  boxOrDefault(boxes, "TrimBox", media),
		})
	}
	return infos, nil
}

func boxOrDefault(boxes map[string][4]float64, key string, def [4]float64) [4]float64 {
	if b, ok := boxes[key]; ok {
		return b
	}
	return def
}
