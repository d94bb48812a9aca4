package glossa

import "strings"

// eligible reports whether a unit may be translated under the current
// configuration. Attribute units must carry an allowed name; the unit's
// resolved element and every ancestor up to the root (crossing shadow
// boundaries toward the host) must be free of ignored tags. Units that
// resolve to no element, such as detached text nodes, are eligible.
func (e *Engine) eligible(n Node) bool {
	var el Element
	switch t := n.(type) {
	case Element:
		el = t
	case Attr:
		if !e.attrAllow[strings.ToLower(t.Name())] {
			return false
		}
		el = t.Owner()
	case Text:
		el = t.Parent()
	default:
		return false
	}
	for ; el != nil; el = el.Parent() {
		if e.ignored[el.Tag()] {
			return false
		}
	}
	return true
}
