package glossa

import (
	"strings"
	"sync"
)

// Rect is an axis-aligned box in viewport coordinates.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) intersects(o Rect) bool {
	return r.W > 0 && r.H > 0 && o.W > 0 && o.H > 0 &&
		r.X < o.X+o.W && o.X < r.X+r.W &&
		r.Y < o.Y+o.H && o.Y < r.Y+r.H
}

// MemDoc is a complete in-memory Document: a mutable element tree with
// attribute nodes, shadow trees, rectangle geometry and synchronous event
// delivery. It is the reference implementation of the Document contract
// and the substrate the engine's tests run on; adapters over real trees
// (parsed HTML, a browser bridge) plug in the same way.
//
// All mutations go through MemDoc methods or the node setters; events are
// delivered synchronously from the mutating call, after the document's
// internal lock is released. Watches cover shadow tree contents. Geometry
// is explicit: elements have no extent until SetBounds.
type MemDoc struct {
	mu        sync.Mutex
	nextID    NodeID
	body      *MemElement
	viewport  Rect
	watches   map[int]*memWatch
	nextWatch int
	entries   map[int]*memEntry
	nextEntry int
}

type memWatch struct {
	root    *MemElement
	deliver func(Event)
}

type memEntry struct {
	el *MemElement
	fn func(Element)
}

type delivery struct {
	deliver func(Event)
	ev      Event
}

type entryFire struct {
	fn func(Element)
	el *MemElement
}

// NewMemDoc creates an empty document with a body element and a
// 1280x720 viewport at the origin.
func NewMemDoc() *MemDoc {
	d := &MemDoc{
		viewport: Rect{X: 0, Y: 0, W: 1280, H: 720},
		watches:  make(map[int]*memWatch),
		entries:  make(map[int]*memEntry),
	}
	d.body = &MemElement{doc: d, id: d.allocID(), tag: "body"}
	return d
}

func (d *MemDoc) allocID() NodeID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

// Body returns the document's root element.
func (d *MemDoc) Body() *MemElement {
	return d.body
}

// NewElement creates a detached element. Tags are stored lowercase.
func (d *MemDoc) NewElement(tag string) *MemElement {
	return &MemElement{doc: d, id: d.allocID(), tag: strings.ToLower(tag)}
}

// NewText creates a detached text node.
func (d *MemDoc) NewText(s string) *MemText {
	return &MemText{doc: d, id: d.allocID(), text: s}
}

// SetViewport moves the viewport and fires any viewport-entry
// registrations whose elements now intersect it.
func (d *MemDoc) SetViewport(r Rect) {
	d.mu.Lock()
	d.viewport = r
	fires := d.checkEntriesLocked()
	d.mu.Unlock()
	for _, f := range fires {
		f.fn(f.el)
	}
}

// Attached reports whether el is connected under the body.
func (d *MemDoc) Attached(el Element) bool {
	mel, ok := el.(*MemElement)
	if !ok || mel.doc != d {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attachedLocked(mel)
}

func (d *MemDoc) attachedLocked(el *MemElement) bool {
	for p := el; p != nil; p = p.parent {
		if p == d.body {
			return true
		}
	}
	return false
}

// Intersects reports whether el is attached and its bounds overlap the
// viewport.
func (d *MemDoc) Intersects(el Element) bool {
	mel, ok := el.(*MemElement)
	if !ok || mel.doc != d {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attachedLocked(mel) && mel.bounds.intersects(d.viewport)
}

// Watch starts delivering mutation events for the subtree rooted at root.
func (d *MemDoc) Watch(root Element, deliver func(Event)) (func(), error) {
	mel, ok := root.(*MemElement)
	if !ok || mel.doc != d {
		return nil, ErrForeignNode
	}
	d.mu.Lock()
	h := d.nextWatch
	d.nextWatch++
	d.watches[h] = &memWatch{root: mel, deliver: deliver}
	d.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.watches, h)
			d.mu.Unlock()
		})
	}, nil
}

// EnterViewport registers fn to fire once when el first intersects the
// viewport. If el already intersects, fn runs synchronously and the
// returned cancel is a no-op.
func (d *MemDoc) EnterViewport(el Element, fn func(Element)) func() {
	mel, ok := el.(*MemElement)
	if !ok || mel.doc != d {
		return func() {}
	}
	d.mu.Lock()
	if d.attachedLocked(mel) && mel.bounds.intersects(d.viewport) {
		d.mu.Unlock()
		fn(el)
		return func() {}
	}
	h := d.nextEntry
	d.nextEntry++
	d.entries[h] = &memEntry{el: mel, fn: fn}
	d.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.entries, h)
			d.mu.Unlock()
		})
	}
}

// checkEntriesLocked consumes and returns every viewport-entry
// registration whose element now intersects the viewport.
func (d *MemDoc) checkEntriesLocked() []entryFire {
	var fires []entryFire
	for h, ent := range d.entries {
		if d.attachedLocked(ent.el) && ent.el.bounds.intersects(d.viewport) {
			delete(d.entries, h)
			fires = append(fires, entryFire{fn: ent.fn, el: ent.el})
		}
	}
	return fires
}

// deliveriesLocked collects the watches that cover anchor: those whose
// root is the anchor element or one of its ancestors, crossing shadow
// boundaries toward the host.
func (d *MemDoc) deliveriesLocked(kind EventKind, n Node, anchor *MemElement) []delivery {
	var out []delivery
	for _, w := range d.watches {
		for p := anchor; p != nil; p = p.parent {
			if p == w.root {
				out = append(out, delivery{deliver: w.deliver, ev: Event{Kind: kind, Node: n}})
				break
			}
		}
	}
	return out
}

func (d *MemDoc) dispatch(dels []delivery, fires []entryFire) {
	for _, dl := range dels {
		dl.deliver(dl.ev)
	}
	for _, f := range fires {
		f.fn(f.el)
	}
}

// MemElement is an element node in a MemDoc.
type MemElement struct {
	doc    *MemDoc
	id     NodeID
	tag    string
	parent *MemElement
	// inShadow marks membership in the parent's shadow list rather than
	// its child list.
	inShadow bool
	kids     []Node
	shadow   []Node
	attrs    []*MemAttr
	bounds   Rect
}

// ID returns the node's identity.
func (el *MemElement) ID() NodeID { return el.id }

// Kind returns KindElement.
func (el *MemElement) Kind() NodeKind { return KindElement }

// Tag returns the lowercase element name.
func (el *MemElement) Tag() string { return el.tag }

// Parent returns the enclosing element, or nil when detached. Top-level
// shadow nodes report the host.
func (el *MemElement) Parent() Element {
	el.doc.mu.Lock()
	defer el.doc.mu.Unlock()
	if el.parent == nil {
		return nil
	}
	return el.parent
}

// Nodes returns the element's direct children in document order.
func (el *MemElement) Nodes() []Node {
	el.doc.mu.Lock()
	defer el.doc.mu.Unlock()
	return append([]Node(nil), el.kids...)
}

// Attrs returns the element's attribute nodes.
func (el *MemElement) Attrs() []Attr {
	el.doc.mu.Lock()
	defer el.doc.mu.Unlock()
	out := make([]Attr, len(el.attrs))
	for i, a := range el.attrs {
		out[i] = a
	}
	return out
}

// Shadow returns the top-level nodes of the element's shadow tree.
func (el *MemElement) Shadow() []Node {
	el.doc.mu.Lock()
	defer el.doc.mu.Unlock()
	if len(el.shadow) == 0 {
		return nil
	}
	return append([]Node(nil), el.shadow...)
}

// SetBounds sets the element's box and fires viewport-entry
// registrations that now intersect.
func (el *MemElement) SetBounds(r Rect) {
	d := el.doc
	d.mu.Lock()
	el.bounds = r
	fires := d.checkEntriesLocked()
	d.mu.Unlock()
	d.dispatch(nil, fires)
}

// Append attaches detached nodes as the element's last children and
// reports each insertion to covering watches. Appending a node that is
// already attached or belongs to another document panics.
func (el *MemElement) Append(children ...Node) {
	el.appendNodes(&el.kids, false, children)
}

// ShadowAppend attaches detached nodes at the top level of the element's
// shadow tree.
func (el *MemElement) ShadowAppend(children ...Node) {
	el.appendNodes(&el.shadow, true, children)
}

func (el *MemElement) appendNodes(list *[]Node, inShadow bool, children []Node) {
	d := el.doc
	d.mu.Lock()
	var dels []delivery
	for _, c := range children {
		switch t := c.(type) {
		case *MemElement:
			if t.doc != d {
				panic("glossa: node belongs to a different document")
			}
			if t.parent != nil {
				panic("glossa: node already attached")
			}
			t.parent = el
			t.inShadow = inShadow
		case *MemText:
			if t.doc != d {
				panic("glossa: node belongs to a different document")
			}
			if t.parent != nil {
				panic("glossa: node already attached")
			}
			t.parent = el
			t.inShadow = inShadow
		default:
			panic("glossa: unsupported node type")
		}
		*list = append(*list, c)
		dels = append(dels, d.deliveriesLocked(EventAdded, c, el)...)
	}
	fires := d.checkEntriesLocked()
	d.mu.Unlock()
	d.dispatch(dels, fires)
}

// Remove detaches a direct child (regular or shadow) and reports the
// removal to covering watches. The removed subtree stays readable.
func (el *MemElement) Remove(child Node) {
	d := el.doc
	d.mu.Lock()
	var found bool
	switch t := child.(type) {
	case *MemElement:
		if t.parent == el {
			found = true
			t.parent = nil
			el.splice(child, t.inShadow)
		}
	case *MemText:
		if t.parent == el {
			found = true
			t.parent = nil
			el.splice(child, t.inShadow)
		}
	}
	if !found {
		d.mu.Unlock()
		panic("glossa: not a child of this element")
	}
	dels := d.deliveriesLocked(EventRemoved, child, el)
	d.mu.Unlock()
	d.dispatch(dels, nil)
}

func (el *MemElement) splice(child Node, inShadow bool) {
	list := &el.kids
	if inShadow {
		list = &el.shadow
	}
	for i, c := range *list {
		if c == child {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// SetAttr sets an attribute value, creating the attribute node on first
// use, and reports the change to covering watches.
func (el *MemElement) SetAttr(name, value string) {
	d := el.doc
	name = strings.ToLower(name)
	d.mu.Lock()
	var node *MemAttr
	for _, a := range el.attrs {
		if a.name == name {
			node = a
			break
		}
	}
	if node == nil {
		d.nextID++
		node = &MemAttr{doc: d, id: d.nextID, owner: el, name: name}
		el.attrs = append(el.attrs, node)
	}
	node.value = value
	dels := d.deliveriesLocked(EventAttrChanged, node, el)
	d.mu.Unlock()
	d.dispatch(dels, nil)
}

// RemoveAttr drops an attribute and reports the removal. Unknown names
// are ignored.
func (el *MemElement) RemoveAttr(name string) {
	d := el.doc
	name = strings.ToLower(name)
	d.mu.Lock()
	var node *MemAttr
	for i, a := range el.attrs {
		if a.name == name {
			node = a
			el.attrs = append(el.attrs[:i], el.attrs[i+1:]...)
			break
		}
	}
	if node == nil {
		d.mu.Unlock()
		return
	}
	dels := d.deliveriesLocked(EventRemoved, node, el)
	d.mu.Unlock()
	d.dispatch(dels, nil)
}

// Attr returns the element's attribute node by name, or nil.
func (el *MemElement) Attr(name string) *MemAttr {
	name = strings.ToLower(name)
	el.doc.mu.Lock()
	defer el.doc.mu.Unlock()
	for _, a := range el.attrs {
		if a.name == name {
			return a
		}
	}
	return nil
}

// MemText is a text node in a MemDoc.
type MemText struct {
	doc      *MemDoc
	id       NodeID
	parent   *MemElement
	inShadow bool
	text     string
}

// ID returns the node's identity.
func (t *MemText) ID() NodeID { return t.id }

// Kind returns KindText.
func (t *MemText) Kind() NodeKind { return KindText }

// Parent returns the enclosing element, or nil when detached.
func (t *MemText) Parent() Element {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	if t.parent == nil {
		return nil
	}
	return t.parent
}

// Text returns the current content.
func (t *MemText) Text() string {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	return t.text
}

// SetText replaces the content and reports the change to covering
// watches. Edits on detached nodes are silent.
func (t *MemText) SetText(s string) {
	d := t.doc
	d.mu.Lock()
	t.text = s
	var dels []delivery
	if t.parent != nil {
		dels = d.deliveriesLocked(EventTextChanged, t, t.parent)
	}
	d.mu.Unlock()
	d.dispatch(dels, nil)
}

// MemAttr is an attribute node in a MemDoc. Attribute nodes are stable:
// the same (element, name) pair keeps one node while the attribute exists.
type MemAttr struct {
	doc   *MemDoc
	id    NodeID
	owner *MemElement
	name  string
	value string
}

// ID returns the node's identity.
func (a *MemAttr) ID() NodeID { return a.id }

// Kind returns KindAttr.
func (a *MemAttr) Kind() NodeKind { return KindAttr }

// Name returns the lowercase attribute name.
func (a *MemAttr) Name() string { return a.name }

// Owner returns the element the attribute belongs to.
func (a *MemAttr) Owner() Element { return a.owner }

// Value returns the current attribute value.
func (a *MemAttr) Value() string {
	a.doc.mu.Lock()
	defer a.doc.mu.Unlock()
	return a.value
}

// SetValue replaces the attribute value and reports the change to
// covering watches. Edits on removed attributes are silent.
func (a *MemAttr) SetValue(s string) {
	d := a.doc
	d.mu.Lock()
	a.value = s
	var dels []delivery
	if a.presentLocked() {
		dels = d.deliveriesLocked(EventAttrChanged, a, a.owner)
	}
	d.mu.Unlock()
	d.dispatch(dels, nil)
}

// presentLocked reports whether the attribute is still in its owner's
// attribute list.
func (a *MemAttr) presentLocked() bool {
	for _, at := range a.owner.attrs {
		if at == a {
			return true
		}
	}
	return false
}

