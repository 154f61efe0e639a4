// Package dom is an HTML document target for the process table. The page is
// held as a parsed node tree; every update replaces the children of one
// element and all dynamic content is inserted as text nodes.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"go-process-table-ui/internal/render"
)

// Elements names the elements of the page the document updates.
type Elements struct {
	ContainerID  string
	TableBodyID  string
	StatusID     string
	CaptionClass string
}

// DefaultElements matches the page served by the viewer.
var DefaultElements = Elements{
	ContainerID:  "generatedProcesses",
	TableBodyID:  "processesTableBody",
	StatusID:     "generateStatus",
	CaptionClass: "card-header",
}

// Document is a render.Target over a parsed HTML page.
type Document struct {
	mu        sync.RWMutex
	root      *html.Node
	container *html.Node
	body      *html.Node
	status    *html.Node
	caption   *html.Node
}

var _ render.Target = (*Document)(nil)

// Parse reads a page skeleton and binds the elements named by els.
// The caption element is optional.
func Parse(r io.Reader, els Elements) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	d := &Document{root: root}

	if d.container = findByID(root, els.ContainerID); d.container == nil {
		return nil, fmt.Errorf("page has no element #%s", els.ContainerID)
	}
	if d.body = findByID(root, els.TableBodyID); d.body == nil {
		return nil, fmt.Errorf("page has no element #%s", els.TableBodyID)
	}
	if d.status = findByID(root, els.StatusID); d.status == nil {
		return nil, fmt.Errorf("page has no element #%s", els.StatusID)
	}
	if els.CaptionClass != "" {
		d.caption = findByClass(d.container, els.CaptionClass)
	}
	return d, nil
}

// ParseString is Parse over a string skeleton.
func ParseString(page string, els Elements) (*Document, error) {
	return Parse(strings.NewReader(page), els)
}

// Render writes the current page.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.root)
}

// String renders the page to a string.
func (d *Document) String() string {
	var b bytes.Buffer
	_ = d.Render(&b)
	return b.String()
}

// TableRows returns the text of every cell of the table body.
func (d *Document) TableRows() [][]string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := [][]string{}
	for tr := d.body.FirstChild; tr != nil; tr = tr.NextSibling {
		if tr.Type != html.ElementNode || tr.DataAtom != atom.Tr {
			continue
		}
		row := []string{}
		for td := tr.FirstChild; td != nil; td = td.NextSibling {
			if td.Type == html.ElementNode && td.DataAtom == atom.Td {
				row = append(row, textContent(td))
			}
		}
		out = append(out, row)
	}
	return out
}

// StatusText returns the text of the status element.
func (d *Document) StatusText() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return strings.TrimSpace(textContent(d.status))
}

// CaptionText returns the text of the caption element.
func (d *Document) CaptionText() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.caption == nil {
		return ""
	}
	return strings.TrimSpace(textContent(d.caption))
}

// Visible reports whether the container is displayed.
func (d *Document) Visible() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !strings.Contains(strings.ReplaceAll(getAttr(d.container, "style"), " ", ""), "display:none")
}

func (d *Document) SetVisible(visible bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	display := "display: none"
	if visible {
		display = "display: block"
	}
	setAttr(d.container, "style", display)
}

func (d *Document) SetStatus(b render.Banner) {
	d.mu.Lock()
	defer d.mu.Unlock()
	removeChildren(d.status)
	if b.Text == "" {
		return
	}
	d.status.AppendChild(element(atom.Div, []html.Attribute{{Key: "class", Val: "alert alert-" + string(b.Level)}}, text(b.Text)))
}

func (d *Document) SetCaption(caption string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.caption == nil {
		return
	}
	removeChildren(d.caption)
	d.caption.AppendChild(element(atom.H3, []html.Attribute{{Key: "class", Val: "mb-0"}}, text(caption)))
}

func (d *Document) SetRows(header []string, rows [][]string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(header) > 0 {
		if thead := findAtom(d.container, atom.Thead); thead != nil {
			removeChildren(thead)
			tr := element(atom.Tr, nil)
			for _, h := range header {
				tr.AppendChild(element(atom.Th, []html.Attribute{{Key: "class", Val: "text-center"}}, text(h)))
			}
			thead.AppendChild(tr)
		}
	}

	removeChildren(d.body)
	for _, row := range rows {
		tr := element(atom.Tr, nil)
		for _, cell := range row {
			tr.AppendChild(element(atom.Td, []html.Attribute{{Key: "class", Val: "text-center"}}, text(cell)))
		}
		d.body.AppendChild(tr)
	}
}

func (d *Document) SetError(message string, span int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if span < 1 {
		span = 1
	}
	removeChildren(d.body)
	td := element(atom.Td, []html.Attribute{
		{Key: "colspan", Val: strconv.Itoa(span)},
		{Key: "class", Val: "text-center text-danger"},
	}, text(message))
	d.body.AppendChild(element(atom.Tr, nil, td))
}

func element(a atom.Atom, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func textContent(n *html.Node) string {
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

func findByID(n *html.Node, id string) *html.Node {
	return find(n, func(n *html.Node) bool { return getAttr(n, "id") == id })
}

func findByClass(n *html.Node, class string) *html.Node {
	return find(n, func(n *html.Node) bool {
		for _, c := range strings.Fields(getAttr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	})
}

func findAtom(n *html.Node, a atom.Atom) *html.Node {
	return find(n, func(n *html.Node) bool { return n.DataAtom == a })
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
