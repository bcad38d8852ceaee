package tabular

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// Reserved keys in the parsed XML tree: attributes keep their name behind
// a prefix and mixed text content lands under a text key.
const (
	xmlAttrPrefix = "@_"
	xmlTextKey    = "#text"
)

// maxXMLSize bounds ParseXML input. Entity expansion is disabled
// outright; the size cap keeps pathological documents out of the token
// walk entirely.
const maxXMLSize = 10 << 20

// XMLCodec parses and writes XML documents with no fixed schema.
type XMLCodec struct{}

func NewXMLCodec() *XMLCodec { return &XMLCodec{} }

func (c *XMLCodec) Accepts(info StreamInfo) bool {
	if info.Extension == ".xml" {
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "text/xml") || strings.HasPrefix(mime, "application/xml")
}

func (c *XMLCodec) Sniff(data []byte) bool {
	return sniffXML(bytes.TrimSpace(data))
}

// Decode never fails; the error return exists to satisfy Decoder and is
// always nil. See ParseXML.
func (c *XMLCodec) Decode(data []byte, opts ParseOptions) (*TabularData, error) {
	return ParseXML(data), nil
}

func (c *XMLCodec) Encode(t *TabularData, opts ConvertOptions) ([]byte, error) {
	return []byte(WriteXML(t.Headers, t.Rows, opts.XML)), nil
}

// ParseXML parses an XML document into tabular form. The signature is
// the contract: there is no error to handle, and malformed, oversized or
// doctype-bearing input yields an empty table tagged xml.
//
// Rows come from the first repeated element found directly under the
// root, then one level further down; a document with no repetition
// becomes a single row. Attributes map to "@_"-prefixed keys and mixed
// text to "#text". HTML tables and RSS/Atom feeds are recognized up
// front and get row mappings of their own.
func ParseXML(data []byte) *TabularData {
	t := emptyTable(FormatXML)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return t.finalize()
	}
	if len(trimmed) > maxXMLSize {
		pkgLog.WithField("size", len(trimmed)).Warn("xml input exceeds size cap, returning empty table")
		return t.finalize()
	}

	// The HTML path never touches the XML token walk, so an HTML doctype
	// is fine here; everything else with a doctype or entity declaration
	// is rejected before parsing.
	if looksLikeHTML(trimmed) {
		if rows, headers, ok := htmlTableRows(trimmed); ok {
			t.Headers = headers
			t.Rows = rows
			return t.finalize()
		}
		return t.finalize()
	}
	if xmlHasDoctype(trimmed) {
		pkgLog.Warn("xml input carries a doctype or entity declaration, returning empty table")
		return t.finalize()
	}
	if looksLikeFeed(trimmed) {
		if rows, headers, ok := feedRows(trimmed); ok {
			t.Headers = headers
			t.Rows = rows
			return t.finalize()
		}
	}

	root, err := parseXMLTree(trimmed)
	if err != nil || root == nil {
		return t.finalize()
	}

	doc := newOrderedMap()
	doc.set(root.name, elementValue(root))
	t.Raw = doc

	union := newHeaderUnion()
	rowEls := extractRowElements(root)
	if len(rowEls) == 0 {
		// No repeating element near the top: the whole document is one
		// row, keyed from the root down.
		flat := flattenNode(doc, FlattenOptions{Nulls: NullEmpty})
		row := make(Row, flat.len())
		for _, k := range flat.keys {
			row[k] = flat.vals[k]
			union.add(k)
		}
		t.Rows = []Row{row}
	} else {
		for _, el := range rowEls {
			var flat *orderedMap
			switch v := elementValue(el).(type) {
			case *orderedMap:
				flat = flattenNode(v, FlattenOptions{Nulls: NullEmpty})
			default:
				// A text-only repeated element keeps its value under the
				// element's own name.
				flat = newOrderedMap()
				flat.set(el.name, v)
			}
			row := make(Row, flat.len())
			for _, k := range flat.keys {
				row[k] = flat.vals[k]
				union.add(k)
			}
			t.Rows = append(t.Rows, row)
		}
	}
	t.Headers = union.list()
	return t.finalize()
}

// xmlHasDoctype scans for DOCTYPE and ENTITY declarations, the external
// entity vector. Case-insensitive to close the trivial bypass.
func xmlHasDoctype(data []byte) bool {
	upper := bytes.ToUpper(data)
	return bytes.Contains(upper, []byte("<!DOCTYPE")) || bytes.Contains(upper, []byte("<!ENTITY"))
}

// xmlElement is one node of the parsed tree, children in document order.
type xmlElement struct {
	name     string
	attrs    []xml.Attr
	children []*xmlElement
	text     strings.Builder
}

func (el *xmlElement) textContent() string {
	return strings.TrimSpace(el.text.String())
}

// parseXMLTree token-walks the document into an element tree. Strict
// mode is off so real-world sloppiness like unescaped ampersands still
// parses; no entity map is supplied, so nothing expands beyond the
// builtin five.
func parseXMLTree(data []byte) (*xmlElement, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root  *xmlElement
		stack []*xmlElement
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tk := tok.(type) {
		case xml.StartElement:
			el := &xmlElement{name: tk.Name.Local, attrs: tk.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unbalanced closing element %s", tk.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(tk)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed element %s", stack[len(stack)-1].name)
	}
	return root, nil
}

// elementValue converts an element to its generic value: a plain string
// for text-only leaves, otherwise an ordered map of attributes, children
// and text. Children repeating a name group into an array in document
// order.
func elementValue(el *xmlElement) any {
	text := el.textContent()
	if len(el.attrs) == 0 && len(el.children) == 0 {
		return text
	}

	om := newOrderedMap()
	for _, a := range el.attrs {
		om.set(xmlAttrPrefix+a.Name.Local, a.Value)
	}
	for _, child := range el.children {
		v := elementValue(child)
		if existing, ok := om.get(child.name); ok {
			if arr, isArr := existing.([]any); isArr {
				om.vals[child.name] = append(arr, v)
			} else {
				om.vals[child.name] = []any{existing, v}
			}
		} else {
			om.set(child.name, v)
		}
	}
	if text != "" {
		om.set(xmlTextKey, text)
	}
	return om
}

// extractRowElements finds the repeating element that plays the row
// role: the first repeated child name directly under the root, else the
// first repeated name one level further down. Document order decides
// "first".
func extractRowElements(root *xmlElement) []*xmlElement {
	if rows := repeatedChildren(root); rows != nil {
		return rows
	}
	for _, child := range root.children {
		if rows := repeatedChildren(child); rows != nil {
			return rows
		}
	}
	return nil
}

func repeatedChildren(el *xmlElement) []*xmlElement {
	counts := make(map[string]int, len(el.children))
	for _, c := range el.children {
		counts[c.name]++
	}
	for _, c := range el.children {
		if counts[c.name] < 2 {
			continue
		}
		rows := make([]*xmlElement, 0, counts[c.name])
		for _, cc := range el.children {
			if cc.name == c.name {
				rows = append(rows, cc)
			}
		}
		return rows
	}
	return nil
}

// WriteXML renders rows as an XML document: one element per row under a
// single root, one child element per column. Missing and nil values
// render as empty elements rather than being omitted. Header names are
// sanitized into valid element names; cell text is entity-escaped.
func WriteXML(headers []string, rows []Row, opts XMLWriteOptions) string {
	rootName := xmlName(opts.RootName, "root")
	itemName := xmlName(opts.ItemName, "item")

	names := make([]string, len(headers))
	for i, h := range headers {
		names[i] = elName(h)
	}

	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString("<" + rootName + ">")
	for _, row := range rows {
		b.WriteString("\n  <" + itemName + ">")
		for i, h := range headers {
			b.WriteString("\n    <" + names[i] + ">")
			if v, ok := row[h]; ok && v != nil {
				xml.EscapeText(&b, []byte(scalarString(v)))
			}
			b.WriteString("</" + names[i] + ">")
		}
		b.WriteString("\n  </" + itemName + ">")
	}
	b.WriteString("\n</" + rootName + ">")
	return b.String()
}

// xmlName sanitizes a caller-supplied element name, falling back to the
// default for blank input.
func xmlName(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return elName(name)
}

// elName coerces arbitrary header text into a valid XML element name:
// invalid characters become underscores and a leading non-letter gains an
// underscore prefix.
func elName(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			return r
		}
		return '_'
	}, s)
	if mapped == "" {
		return "_"
	}
	first, _ := utf8.DecodeRuneInString(mapped)
	if !unicode.IsLetter(first) && first != '_' {
		mapped = "_" + mapped
	}
	return mapped
}
