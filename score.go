package glossa

// Priority bands. Attribute values are cheaper to get wrong than visible
// prose, and anything currently on screen jumps ahead of offscreen work.
const (
	attrBasePriority      = 1
	textBasePriority      = 2
	viewportPriorityBoost = 2
)

// score computes a unit's translation priority at registration time.
// Attribute values start at 1 and text nodes at 2; units whose owning
// element currently intersects the viewport gain 2 more. Other nodes
// score 0. The viewport query is synchronous and the result is fixed for
// the record's lifetime.
func (e *Engine) score(n Node) int {
	var p int
	switch n.(type) {
	case Attr:
		p = attrBasePriority
	case Text:
		p = textBasePriority
	default:
		return 0
	}
	if owner := unitOwner(n); owner != nil && e.doc.Intersects(owner) {
		p += viewportPriorityBoost
	}
	return p
}
