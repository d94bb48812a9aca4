// Package htmldoc adapts a parsed HTML tree to the glossa Document
// interface. The adapter wraps the nodes of a golang.org/x/net/html parse
// tree, assigns them stable identities, and routes content writes through
// a watch mechanism so an engine observing the document sees its own
// write-backs the same way it would in a live page.
//
// Parsed documents have no geometry: every attached element counts as
// visible and viewport-entry requests for attached elements fire
// immediately. Engines driving a parsed document should run with lazy
// translation disabled.
package htmldoc

import (
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/calyptra/glossa"
)

// ErrNoBody indicates that the parsed document contains no body element.
var ErrNoBody = errors.New("no body element in document")

// Doc is a glossa.Document over a parsed HTML tree. All access to the
// underlying tree goes through the document lock; wrappers handed out by
// Doc are safe to use from multiple goroutines.
type Doc struct {
	mu        sync.Mutex
	root      *html.Node
	body      *html.Node
	nextID    glossa.NodeID
	ids       map[*html.Node]glossa.NodeID
	attrs     map[attrKey]*Attr
	watches   map[int]*watch
	nextWatch int
}

type attrKey struct {
	owner *html.Node
	name  string
}

type watch struct {
	root    *html.Node
	deliver func(glossa.Event)
}

type delivery struct {
	deliver func(glossa.Event)
	ev      glossa.Event
}

// Parse reads an HTML document from r. The parser supplies html, head and
// body elements when the input omits them.
func Parse(r io.Reader) (*Doc, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	body := findBody(root)
	if body == nil {
		return nil, ErrNoBody
	}
	return &Doc{
		root:    root,
		body:    body,
		ids:     make(map[*html.Node]glossa.NodeID),
		attrs:   make(map[attrKey]*Attr),
		watches: make(map[int]*watch),
	}, nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Doc, error) {
	return Parse(strings.NewReader(s))
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// Body returns the document's body element.
func (d *Doc) Body() glossa.Element {
	return &Element{d: d, n: d.body}
}

// Render writes the current state of the document as HTML.
func (d *Doc) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// Find returns the elements matching a CSS selector, in document order.
// Invalid selectors match nothing.
func (d *Doc) Find(selector string) []glossa.Element {
	d.mu.Lock()
	sel := goquery.NewDocumentFromNode(d.root).Find(selector)
	nodes := make([]*html.Node, len(sel.Nodes))
	copy(nodes, sel.Nodes)
	d.mu.Unlock()

	out := make([]glossa.Element, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, &Element{d: d, n: n})
		}
	}
	return out
}

// Attached reports whether el sits under the document body.
func (d *Doc) Attached(el glossa.Element) bool {
	h, ok := el.(*Element)
	if !ok || h.d != d {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attachedLocked(h.n)
}

func (d *Doc) attachedLocked(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.body {
			return true
		}
	}
	return false
}

// Intersects reports whether el is attached. Parsed documents carry no
// geometry, so attachment is the whole visibility story.
func (d *Doc) Intersects(el glossa.Element) bool {
	return d.Attached(el)
}

// Watch starts delivering mutation events for the subtree rooted at root.
// Parsed trees only mutate through the content setters, so the stream
// carries text and attribute changes.
func (d *Doc) Watch(root glossa.Element, deliver func(glossa.Event)) (func(), error) {
	h, ok := root.(*Element)
	if !ok || h.d != d {
		return nil, glossa.ErrForeignNode
	}
	d.mu.Lock()
	handle := d.nextWatch
	d.nextWatch++
	d.watches[handle] = &watch{root: h.n, deliver: deliver}
	d.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.watches, handle)
			d.mu.Unlock()
		})
	}, nil
}

// EnterViewport fires fn synchronously when el is attached; there is no
// viewport to wait for. Requests for detached or foreign elements never
// fire. The returned cancel is a no-op.
func (d *Doc) EnterViewport(el glossa.Element, fn func(glossa.Element)) func() {
	if d.Attached(el) {
		fn(el)
	}
	return func() {}
}

func (d *Doc) idLocked(n *html.Node) glossa.NodeID {
	if id, ok := d.ids[n]; ok {
		return id
	}
	d.nextID++
	d.ids[n] = d.nextID
	return d.nextID
}

func (d *Doc) attrLocked(owner *html.Node, name string) *Attr {
	key := attrKey{owner: owner, name: name}
	if a, ok := d.attrs[key]; ok {
		return a
	}
	d.nextID++
	a := &Attr{d: d, id: d.nextID, owner: owner, name: name}
	d.attrs[key] = a
	return a
}

// deliveriesLocked collects the watches covering anchor: those whose root
// is the anchor or one of its ancestors.
func (d *Doc) deliveriesLocked(kind glossa.EventKind, n glossa.Node, anchor *html.Node) []delivery {
	var out []delivery
	for _, w := range d.watches {
		for p := anchor; p != nil; p = p.Parent {
			if p == w.root {
				out = append(out, delivery{deliver: w.deliver, ev: glossa.Event{Kind: kind, Node: n}})
				break
			}
		}
	}
	return out
}

func dispatch(dels []delivery) {
	for _, dl := range dels {
		dl.deliver(dl.ev)
	}
}

// Element wraps an element node of the parse tree.
type Element struct {
	d *Doc
	n *html.Node
}

// ID returns the node's stable identity.
func (el *Element) ID() glossa.NodeID {
	el.d.mu.Lock()
	defer el.d.mu.Unlock()
	return el.d.idLocked(el.n)
}

// Kind returns glossa.KindElement.
func (el *Element) Kind() glossa.NodeKind { return glossa.KindElement }

// Tag returns the element name. The parser stores names lowercase.
func (el *Element) Tag() string { return el.n.Data }

// Parent returns the enclosing element, or nil above the document root.
func (el *Element) Parent() glossa.Element {
	el.d.mu.Lock()
	defer el.d.mu.Unlock()
	if p := el.n.Parent; p != nil && p.Type == html.ElementNode {
		return &Element{d: el.d, n: p}
	}
	return nil
}

// Nodes returns the element's child elements and text nodes in document
// order. Comments and other structural nodes are not exposed.
func (el *Element) Nodes() []glossa.Node {
	el.d.mu.Lock()
	defer el.d.mu.Unlock()
	var out []glossa.Node
	for c := el.n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			out = append(out, &Element{d: el.d, n: c})
		case html.TextNode:
			out = append(out, &Text{d: el.d, n: c})
		}
	}
	return out
}

// Attrs returns the element's attribute nodes.
func (el *Element) Attrs() []glossa.Attr {
	el.d.mu.Lock()
	defer el.d.mu.Unlock()
	out := make([]glossa.Attr, 0, len(el.n.Attr))
	for _, a := range el.n.Attr {
		if a.Namespace == "" {
			out = append(out, el.d.attrLocked(el.n, a.Key))
		}
	}
	return out
}

// Shadow returns nil; parsed HTML has no shadow trees.
func (el *Element) Shadow() []glossa.Node { return nil }

// Attr returns the element's attribute node for name, creating the
// attribute on first write through the returned node. Names fold to
// lowercase.
func (el *Element) Attr(name string) *Attr {
	el.d.mu.Lock()
	defer el.d.mu.Unlock()
	return el.d.attrLocked(el.n, strings.ToLower(name))
}

// Text wraps a text node of the parse tree.
type Text struct {
	d *Doc
	n *html.Node
}

// ID returns the node's stable identity.
func (t *Text) ID() glossa.NodeID {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	return t.d.idLocked(t.n)
}

// Kind returns glossa.KindText.
func (t *Text) Kind() glossa.NodeKind { return glossa.KindText }

// Parent returns the enclosing element, or nil when detached.
func (t *Text) Parent() glossa.Element {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	if p := t.n.Parent; p != nil && p.Type == html.ElementNode {
		return &Element{d: t.d, n: p}
	}
	return nil
}

// Text returns the current content.
func (t *Text) Text() string {
	t.d.mu.Lock()
	defer t.d.mu.Unlock()
	return t.n.Data
}

// SetText replaces the content and reports the change to covering watches.
func (t *Text) SetText(s string) {
	d := t.d
	d.mu.Lock()
	t.n.Data = s
	var dels []delivery
	if t.n.Parent != nil {
		dels = d.deliveriesLocked(glossa.EventTextChanged, t, t.n.Parent)
	}
	d.mu.Unlock()
	dispatch(dels)
}

// Attr wraps one attribute of an element. Attribute wrappers are stable:
// the same (element, name) pair always yields the same wrapper.
type Attr struct {
	d     *Doc
	id    glossa.NodeID
	owner *html.Node
	name  string
}

// ID returns the node's stable identity.
func (a *Attr) ID() glossa.NodeID { return a.id }

// Kind returns glossa.KindAttr.
func (a *Attr) Kind() glossa.NodeKind { return glossa.KindAttr }

// Name returns the lowercase attribute name.
func (a *Attr) Name() string { return a.name }

// Owner returns the element the attribute belongs to.
func (a *Attr) Owner() glossa.Element {
	return &Element{d: a.d, n: a.owner}
}

// Value returns the current attribute value, or the empty string when the
// attribute is no longer present.
func (a *Attr) Value() string {
	a.d.mu.Lock()
	defer a.d.mu.Unlock()
	for _, at := range a.owner.Attr {
		if at.Namespace == "" && at.Key == a.name {
			return at.Val
		}
	}
	return ""
}

// SetValue replaces the attribute value, creating the attribute when it is
// not present, and reports the change to covering watches.
func (a *Attr) SetValue(s string) {
	d := a.d
	d.mu.Lock()
	found := false
	for i := range a.owner.Attr {
		if a.owner.Attr[i].Namespace == "" && a.owner.Attr[i].Key == a.name {
			a.owner.Attr[i].Val = s
			found = true
			break
		}
	}
	if !found {
		a.owner.Attr = append(a.owner.Attr, html.Attribute{Key: a.name, Val: s})
	}
	dels := d.deliveriesLocked(glossa.EventAttrChanged, a, a.owner)
	d.mu.Unlock()
	dispatch(dels)
}
