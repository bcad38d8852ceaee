package tabular

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// looksLikeHTML spots documents that are really HTML pasted into the XML
// path: an HTML doctype or an html/table root.
func looksLikeHTML(trimmed []byte) bool {
	lower := bytes.ToLower(trimmed)
	for _, p := range [][]byte{[]byte("<!doctype html"), []byte("<html"), []byte("<table")} {
		if bytes.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// htmlTableRows extracts the first table in the document as rows. The
// first tr supplies headers and th/td text becomes cell values.
func htmlTableRows(data []byte) ([]Row, []string, bool) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, false
	}
	table := findFirstElement(doc, "table")
	if table == nil {
		return nil, nil, false
	}

	var grid [][]string
	for _, tr := range findElements(table, "tr") {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				cells = append(cells, strings.TrimSpace(nodeText(c)))
			}
		}
		if len(cells) > 0 {
			grid = append(grid, cells)
		}
	}
	if len(grid) == 0 {
		return nil, nil, false
	}

	rawHeaders := grid[0]
	headers := dedupeHeaders(rawHeaders)
	rows := make([]Row, 0, len(grid)-1)
	for _, rec := range grid[1:] {
		row := make(Row, len(headers))
		for i, cell := range rec {
			if i >= len(rawHeaders) {
				break
			}
			row[rawHeaders[i]] = cell
		}
		rows = append(rows, row)
	}
	return rows, headers, true
}

// findFirstElement depth-first searches for the named element.
func findFirstElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirstElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

// findElements collects named descendants in document order without
// crossing into nested tables.
func findElements(root *html.Node, name string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n != root && n.Type == html.ElementNode && n.Data == "table" {
			return
		}
		if n.Type == html.ElementNode && n.Data == name {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// nodeText concatenates the text content beneath a node.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
