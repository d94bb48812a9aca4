package glossa

import "sync"

// gate defers translation of offscreen content. It wraps the document's
// viewport-entry primitive with per-element registrations: at most one
// pending registration per element, fired exactly once on first
// intersection, cancellable when the element leaves the tree.
//
// watch must be called without the engine lock held: the document may
// invoke the visibility callback synchronously when the element is already
// on screen.
type gate struct {
	mu      sync.Mutex
	doc     Document
	pending map[NodeID]*gateEntry
}

type gateEntry struct {
	fn     func(Element)
	cancel func()
}

func newGate(doc Document) *gate {
	return &gate{doc: doc, pending: make(map[NodeID]*gateEntry)}
}

// watch registers fn to run once when el first intersects the viewport.
// A second watch on an element with a pending registration is a no-op.
func (g *gate) watch(el Element, fn func(Element)) {
	g.mu.Lock()
	if _, ok := g.pending[el.ID()]; ok {
		g.mu.Unlock()
		return
	}
	ent := &gateEntry{fn: fn}
	g.pending[el.ID()] = ent
	g.mu.Unlock()

	cancel := g.doc.EnterViewport(el, g.visible)

	g.mu.Lock()
	if cur, ok := g.pending[el.ID()]; ok && cur == ent {
		cur.cancel = cancel
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	// The registration fired or was dropped while we were registering;
	// release the document-side resource.
	cancel()
}

// visible consumes the registration for el and fires its callback. Late
// notifications for already-consumed registrations are ignored.
func (g *gate) visible(el Element) {
	g.mu.Lock()
	ent, ok := g.pending[el.ID()]
	if !ok {
		g.mu.Unlock()
		return
	}
	delete(g.pending, el.ID())
	g.mu.Unlock()
	ent.fn(el)
}

// drop cancels the pending registration for el, if any.
func (g *gate) drop(el Element) {
	g.mu.Lock()
	ent, ok := g.pending[el.ID()]
	if ok {
		delete(g.pending, el.ID())
	}
	g.mu.Unlock()
	if ok && ent.cancel != nil {
		ent.cancel()
	}
}

// reset cancels every pending registration.
func (g *gate) reset() {
	g.mu.Lock()
	ents := make([]*gateEntry, 0, len(g.pending))
	for _, ent := range g.pending {
		ents = append(ents, ent)
	}
	g.pending = make(map[NodeID]*gateEntry)
	g.mu.Unlock()
	for _, ent := range ents {
		if ent.cancel != nil {
			ent.cancel()
		}
	}
}
