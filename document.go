package glossa

// NodeID uniquely identifies a node within a document. IDs are assigned by
// the document implementation and must remain stable for the lifetime of
// the node object. An implementation may reuse the ID of a discarded node;
// the engine's internal identities guard against aliasing.
type NodeID uint64

// NodeKind identifies the concrete interface behind a Node.
type NodeKind int

const (
	// KindElement is a structural node with a tag, attributes and children.
	KindElement NodeKind = iota

	// KindText is a text node carrying translatable content.
	KindText

	// KindAttr is an attribute value attached to an owning element.
	KindAttr
)

// String returns a human-readable name for the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindAttr:
		return "attr"
	default:
		return "unknown"
	}
}

// Node is the common surface of every document node the engine can see.
type Node interface {
	// ID returns the document-assigned identity of this node.
	ID() NodeID

	// Kind reports which concrete interface the node implements.
	Kind() NodeKind
}

// Element is a structural node. Tags are reported lowercase.
type Element interface {
	Node

	// Tag returns the lowercase element name.
	Tag() string

	// Parent returns the enclosing element, or nil for a root. Top-level
	// nodes of a shadow tree report the shadow host as their parent.
	Parent() Element

	// Nodes returns the element's direct children in document order.
	Nodes() []Node

	// Attrs returns the attribute nodes currently present on the element.
	Attrs() []Attr

	// Shadow returns the top-level nodes of the element's shadow tree,
	// or nil if the element hosts none.
	Shadow() []Node
}

// Text is a text node. SetText must route through the document's mutation
// machinery so that watchers observe the change.
type Text interface {
	Node

	// Parent returns the enclosing element, or nil when detached.
	Parent() Element

	// Text returns the current content.
	Text() string

	// SetText replaces the content.
	SetText(s string)
}

// Attr is an attribute value node. Attribute nodes are stable: the same
// (element, name) pair always yields the same node object while the
// attribute exists.
type Attr interface {
	Node

	// Name returns the lowercase attribute name.
	Name() string

	// Owner returns the element the attribute belongs to.
	Owner() Element

	// Value returns the current attribute value.
	Value() string

	// SetValue replaces the attribute value.
	SetValue(s string)
}

// EventKind classifies a mutation event.
type EventKind int

const (
	// EventAdded reports a node inserted into the watched subtree.
	EventAdded EventKind = iota

	// EventRemoved reports a node removed from the watched subtree.
	EventRemoved

	// EventTextChanged reports a content change on a text node.
	EventTextChanged

	// EventAttrChanged reports a value change on an attribute node.
	EventAttrChanged
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventTextChanged:
		return "text-changed"
	case EventAttrChanged:
		return "attr-changed"
	default:
		return "unknown"
	}
}

// Event is a single mutation delivered by a document watch. Removed nodes
// are delivered after detachment; their own subtree remains readable.
type Event struct {
	Kind EventKind
	Node Node
}

// Document is the engine's view of a live document tree: structure through
// the node interfaces, synchronous geometry queries, and the two event
// sources the engine consumes.
//
// Delivery contract: implementations must not hold internal locks while
// invoking a delivery or viewport callback, and mutations performed through
// the node setters must produce the same events as any other mutation,
// including writes issued by the engine itself. Mutations and event
// delivery are assumed serialized with respect to each other.
type Document interface {
	// Attached reports whether el is currently connected under the
	// document body.
	Attached(el Element) bool

	// Intersects reports whether el's box currently overlaps the viewport
	// at zero margin. The query is synchronous.
	Intersects(el Element) bool

	// Watch starts delivering mutation events for the subtree rooted at
	// root. The returned stop function ends delivery and is idempotent.
	Watch(root Element, deliver func(Event)) (stop func(), err error)

	// EnterViewport arranges for fn to be called once when el next
	// intersects the viewport. If el already intersects, fn may be invoked
	// synchronously before EnterViewport returns. The returned cancel
	// function withdraws the request and is idempotent.
	EnterViewport(el Element, fn func(Element)) (cancel func())
}

// unitContent returns the live content of a translatable unit. The second
// result is false for nodes that carry no content (elements).
func unitContent(n Node) (string, bool) {
	switch t := n.(type) {
	case Text:
		return t.Text(), true
	case Attr:
		return t.Value(), true
	default:
		return "", false
	}
}

// setUnitContent writes content back to a translatable unit.
func setUnitContent(n Node, s string) {
	switch t := n.(type) {
	case Text:
		t.SetText(s)
	case Attr:
		t.SetValue(s)
	}
}

// unitOwner resolves the element a unit hangs off: the parent for text
// nodes, the owner for attributes, the element itself otherwise.
func unitOwner(n Node) Element {
	switch t := n.(type) {
	case Element:
		return t
	case Text:
		return t.Parent()
	case Attr:
		return t.Owner()
	default:
		return nil
	}
}
