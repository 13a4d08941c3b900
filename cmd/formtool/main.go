// formtool inspects and edits the AcroForm fields of a PDF file.
//
//	usage: formtool pdf-file command [args...]
//
// Commands:
//
//	list                                  list form fields
//	pages                                 list pages and their boxes
//	dump path                             dump one object tree (pdfinspect-style)
//	add name type [key=value ...]         add a field, write result to stdout
//	update name value [new-name]          set a field's value, write to stdout
//	remove name                           remove a field, write to stdout
//	flatten                               rewrite as a single revision, write to stdout
//	clear keep=a,b | remove=a,b | pattern=re   drop a subset of fields, write to stdout
//
// path, for dump, is a slash-separated path of dictionary keys or array
// indexes leading to the object in question, starting at the document
// catalog; a leading "/" starts at the trailer instead. "*" matches every
// key or index at that level.
package main

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/wynk182/acro-that/dictscan"
	"github.com/wynk182/acro-that/pdfform"
	"github.com/wynk182/acro-that/pdfstruct"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: formtool pdf-file command [args...]\n")
		os.Exit(2)
	}
	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
	doc, err := pdfform.Open(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s: %s\n", os.Args[1], err)
		os.Exit(1)
	}

	cmd, args := os.Args[2], os.Args[3:]
	switch cmd {
	case "list":
		err = cmdList(doc)
	case "pages":
		err = cmdPages(doc)
	case "dump":
		err = cmdDump(raw, args)
	case "add":
		err = cmdAdd(doc, args)
	case "update":
		err = cmdUpdate(doc, args)
	case "remove":
		err = cmdRemove(doc, args)
	case "flatten":
		err = cmdFlatten(doc)
	case "clear":
		err = cmdClear(doc, args)
	default:
		fmt.Fprintf(os.Stderr, "ERROR: unknown command %q\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func cmdList(doc *pdfform.Document) error {
	fields, err := doc.ListFields()
	if err != nil {
		return err
	}
	for _, f := range fields {
		fmt.Printf("%-30s %-10s %-20q page %d  (#%d,%d)  rect=%v\n",
			f.Name, f.Kind, f.Value, f.Page, f.ObjectNumber(), f.Generation(), f.Rect)
	}
	return nil
}

func cmdPages(doc *pdfform.Document) error {
	pages, err := doc.Pages()
	if err != nil {
		return err
	}
	for _, p := range pages {
		fmt.Printf("page %d  (#%d,%d)  %gx%g  media=%v crop=%v\n",
			p.Number, p.Ref.Number, p.Ref.Generation, p.Width, p.Height, p.MediaBox, p.CropBox)
	}
	return nil
}

func cmdAdd(doc *pdfform.Document, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: add name type [key=value ...]")
	}
	name, typ := args[0], args[1]
	opts := pdfform.AddFieldOptions{Type: typ}
	for _, kv := range args[2:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("bad key=value pair %q", kv)
		}
		if err := setAddOption(&opts, k, v); err != nil {
			return err
		}
	}
	if _, err := doc.AddField(name, opts); err != nil {
		return err
	}
	return writeResult(doc)
}

func setAddOption(opts *pdfform.AddFieldOptions, key, value string) error {
	switch strings.ToLower(key) {
	case "value":
		opts.Value = value
	case "x":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		opts.X = f
	case "y":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		opts.Y = f
	case "width":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		opts.Width = f
	case "height":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		opts.Height = f
	case "page":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		opts.Page = n
	case "group_id":
		opts.GroupID = value
	case "selected":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		opts.Selected = b
	default:
		if opts.Metadata == nil {
			opts.Metadata = map[string]string{}
		}
		opts.Metadata[key] = value
	}
	return nil
}

func cmdUpdate(doc *pdfform.Document, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: update name value [new-name]")
	}
	name, value := args[0], args[1]
	var newName []string
	if len(args) > 2 {
		newName = args[2:3]
	}
	var v any = value
	if b, err := strconv.ParseBool(value); err == nil {
		v = b
	}
	if err := doc.UpdateField(name, v, newName...); err != nil {
		return err
	}
	return writeResult(doc)
}

func cmdRemove(doc *pdfform.Document, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: remove name")
	}
	if err := doc.RemoveField(args[0]); err != nil {
		return err
	}
	return writeResult(doc)
}

func cmdFlatten(doc *pdfform.Document) error {
	out, err := doc.Flatten()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func cmdClear(doc *pdfform.Document, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: clear keep=a,b | remove=a,b | pattern=re")
	}
	key, value, ok := strings.Cut(args[0], "=")
	if !ok {
		return fmt.Errorf("bad selector %q", args[0])
	}
	var sel pdfform.ClearSelector
	switch key {
	case "keep":
		sel.Keep = strings.Split(value, ",")
	case "remove":
		sel.Remove = strings.Split(value, ",")
	case "pattern":
		re, err := regexp.Compile(value)
		if err != nil {
			return err
		}
		sel.Pattern = re
	default:
		return fmt.Errorf("unknown selector %q", key)
	}
	out, err := doc.ClearInPlace(sel)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// writeResult serializes doc as an incremental update and writes it to
// stdout, the default for every mutating subcommand.
func writeResult(doc *pdfform.Document) error {
	out, err := doc.Write(false)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

// cmdDump walks the document's raw object graph by a slash-separated path of
// dictionary keys and array indexes, exactly as the teacher's pdfinspect did
// against a parsed object tree, adapted here to resolve each step against raw
// object bytes instead.
func cmdDump(raw []byte, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: dump path/to/object")
	}
	r, err := pdfstruct.Open(append([]byte(nil), raw...))
	if err != nil {
		return err
	}
	path := strings.Split(args[0], "/")
	var root []byte
	var prefix string
	if path[0] == "" {
		path, root, prefix = path[1:], r.TrailerDict(), ""
	} else {
		cat, err := r.ObjectBody(r.RootRef())
		if err != nil {
			return err
		}
		root, prefix = cat, "/Root"
	}
	find(r, root, prefix, path)
	return nil
}

func find(r *pdfstruct.Resolver, body []byte, prefix string, path []string) {
	if len(path) == 0 {
		dumpBody(r, body, prefix, 0)
		return
	}
	key := path[0]
	if key == "*" {
		dictscan.EachDictionaryKey(body, func(k string) bool {
			dumpChild(r, body, k, prefix, path[1:])
			return true
		})
		return
	}
	if idx, err := strconv.Atoi(key); err == nil && idx >= 0 {
		var i int
		var found []byte
		dictscan.EachArrayElement(body, func(tok []byte) bool {
			if i == idx {
				found = tok
				return false
			}
			i++
			return true
		})
		if found == nil {
			fmt.Fprintf(os.Stderr, "ERROR: index %d out of bounds for %s\n", idx, prefix)
			return
		}
		resolveAndFind(r, found, fmt.Sprintf("%s/%d", prefix, idx), path[1:])
		return
	}
	dumpChild(r, body, key, prefix, path[1:])
}

func dumpChild(r *pdfstruct.Resolver, body []byte, key, prefix string, rest []string) {
	raw, ok := dictscan.FullValue(key, body)
	if !ok {
		fmt.Fprintf(os.Stderr, "ERROR: key %q does not exist in %s\n", key, prefix)
		return
	}
	resolveAndFind(r, raw, fmt.Sprintf("%s/%s", prefix, key), rest)
}

func resolveAndFind(r *pdfstruct.Resolver, token []byte, prefix string, rest []string) {
	if ref, ok := parseDumpRef(token); ok {
		body, err := r.ObjectBody(ref)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s: (#%d,%d): %s\n", prefix, ref.Number, ref.Generation, err)
			return
		}
		find(r, body, prefix, rest)
		return
	}
	find(r, token, prefix, rest)
}

func parseDumpRef(token []byte) (pdfstruct.Reference, bool) {
	s := strings.TrimSpace(string(token))
	var num, gen int
	var r byte
	if n, err := fmt.Sscanf(s, "%d %d %c", &num, &gen, &r); n == 3 && err == nil && r == 'R' {
		return pdfstruct.Reference{Number: num, Generation: gen}, true
	}
	return pdfstruct.Reference{}, false
}

func dumpBody(r *pdfstruct.Resolver, body []byte, prefix string, indent int) {
	switch {
	case len(body) >= 2 && body[0] == '<' && body[1] == '<':
		fmt.Printf("%s = Dict<<\n", prefix)
		var keys []string
		dictscan.EachDictionaryKey(body, func(k string) bool {
			keys = append(keys, k)
			return true
		})
		sort.Strings(keys)
		for _, k := range keys {
			raw, _ := dictscan.FullValue(k, body)
			dumpValue(r, raw, fmt.Sprintf("%*s/%s", indent*4+4, "", k), indent+1)
		}
		fmt.Printf("%*s>>\n", indent*4, "")
	case len(body) >= 1 && body[0] == '[':
		fmt.Printf("%s = Array[\n", prefix)
		i := 0
		dictscan.EachArrayElement(body, func(tok []byte) bool {
			dumpValue(r, tok, fmt.Sprintf("%*s[%d]", indent*4+4, "", i), indent+1)
			i++
			return true
		})
		fmt.Printf("%*s]\n", indent*4, "")
	default:
		dumpValue(r, body, prefix, indent)
	}
}

func dumpValue(r *pdfstruct.Resolver, raw []byte, prefix string, indent int) {
	if ref, ok := parseDumpRef(raw); ok {
		body, err := r.ObjectBody(ref)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s: (#%d,%d): %s\n", prefix, ref.Number, ref.Generation, err)
			return
		}
		fmt.Printf("%s = (#%d,%d) -> ", prefix, ref.Number, ref.Generation)
		dumpInline(r, body, prefix, indent)
		return
	}
	fmt.Printf("%s = ", prefix)
	dumpInline(r, raw, prefix, indent)
}

func dumpInline(r *pdfstruct.Resolver, raw []byte, prefix string, indent int) {
	switch {
	case len(raw) >= 2 && raw[0] == '<' && raw[1] == '<':
		fmt.Println("Dict<<")
		var keys []string
		dictscan.EachDictionaryKey(raw, func(k string) bool {
			keys = append(keys, k)
			return true
		})
		sort.Strings(keys)
		for _, k := range keys {
			v, _ := dictscan.FullValue(k, raw)
			dumpValue(r, v, fmt.Sprintf("%*s/%s", indent*4+4, "", k), indent+1)
		}
		fmt.Printf("%*s>>\n", indent*4, "")
	case len(raw) >= 1 && raw[0] == '[':
		fmt.Println("Array[")
		i := 0
		dictscan.EachArrayElement(raw, func(tok []byte) bool {
			dumpValue(r, tok, fmt.Sprintf("%*s[%d]", indent*4+4, "", i), indent+1)
			i++
			return true
		})
		fmt.Printf("%*s]\n", indent*4, "")
	case len(raw) >= 1 && raw[0] == '/':
		name, err := dictscan.DecodeName(raw)
		if err != nil {
			name = string(raw)
		}
		fmt.Printf("/%s\n", name)
	case len(raw) >= 1 && (raw[0] == '(' || raw[0] == '<'):
		s, err := dictscan.DecodeString(raw)
		if err != nil {
			spew.Dump(raw)
			return
		}
		fmt.Printf("%q\n", s)
	default:
		fmt.Printf("%s\n", strings.TrimSpace(string(raw)))
	}
}
