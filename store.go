package glossa

import "strings"

// record tracks one translatable unit through its lifecycle. The engine
// wants a translation for a unit exactly when version > committed.
type record struct {
	// identity is allocated by the engine, monotonically, and never
	// reused. It distinguishes a re-added unit that happens to occupy a
	// recycled node ID from the unit an in-flight translation was issued
	// for.
	identity uint64

	// version starts at 1 on registration and increments once per
	// content-changing event on the unit.
	version uint64

	// committed starts at 0 and is set to the requested version plus one
	// when that version's translation lands. It never exceeds version+1;
	// the excess window closes when the write-back's own mutation event
	// bumps version to meet it.
	committed uint64

	// original is the last known pre-translation content: captured at
	// registration and refreshed from the live content just before each
	// write-back. Removal restores it.
	original string

	// priority is fixed at registration time.
	priority int
}

// translateRequest snapshots everything a translation needs to validate
// its commit after the asynchronous call returns.
type translateRequest struct {
	node     Node
	identity uint64
	version  uint64
	priority int
	epoch    epoch
	content  string
}

// writeBack is a deferred live-content write.
type writeBack struct {
	node    Node
	content string
}

// effects accumulates actions that must run after the engine lock is
// released: content restores and viewport gate registrations. Both can
// re-enter the engine synchronously, restores through the document's
// mutation events and gate registrations through an immediate visibility
// callback.
type effects struct {
	writes []writeBack
	gates  []Element
}

func (eff *effects) apply(e *Engine) {
	for _, w := range eff.writes {
		setUnitContent(w.node, w.content)
	}
	for _, el := range eff.gates {
		e.gate.watch(el, e.visibleFanout)
	}
}

// optionLike reports elements that cannot meaningfully intersect the
// viewport: select popup contents render outside normal document flow.
func optionLike(tag string) bool {
	return tag == "option" || tag == "optgroup"
}

func (e *Engine) intersectable(el Element) bool {
	return !optionLike(el.Tag()) && e.doc.Attached(el)
}

// handleEvent is the delivery callback for every document watch. It routes
// mutations into the lifecycle operations, then applies deferred effects
// with the lock released.
func (e *Engine) handleEvent(ev Event) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	var eff effects
	switch ev.Kind {
	case EventAdded:
		e.addLocked(ev.Node, &eff)
	case EventRemoved:
		e.removeLocked(ev.Node, &eff)
	case EventTextChanged:
		e.updateLocked(ev.Node)
	case EventAttrChanged:
		if _, ok := e.records[ev.Node.ID()]; ok {
			e.updateLocked(ev.Node)
		} else {
			e.addLocked(ev.Node, &eff)
		}
	}
	e.mu.Unlock()
	eff.apply(e)
}

// addLocked registers a node for translation. Elements fan out to every
// candidate unit in their subtree; units register individually.
func (e *Engine) addLocked(n Node, eff *effects) {
	if el, ok := n.(Element); ok {
		forEachUnit(el, func(u Node) {
			e.addUnitLocked(u, eff)
		})
		return
	}
	e.addUnitLocked(n, eff)
}

func (e *Engine) addUnitLocked(n Node, eff *effects) {
	if _, ok := e.records[n.ID()]; ok {
		return
	}
	content, ok := unitContent(n)
	if !ok || strings.TrimSpace(content) == "" {
		return
	}
	if !e.eligible(n) {
		return
	}
	if e.cfg.Lazy {
		if owner := unitOwner(n); owner != nil && e.intersectable(owner) {
			// Defer until the owner scrolls into view. Only the owner's
			// direct text children are translated at that point; see
			// visibleFanout.
			eff.gates = append(eff.gates, owner)
			return
		}
	}
	e.registerLocked(n, content)
}

// registerLocked creates the lifecycle record for a unit and issues its
// first translation attempt.
func (e *Engine) registerLocked(n Node, content string) {
	e.nextIdentity++
	rec := &record{
		identity: e.nextIdentity,
		version:  1,
		original: content,
		priority: e.score(n),
	}
	e.records[n.ID()] = rec
	e.attemptLocked(n, rec)
}

// removeLocked reverts and forgets a node. Elements recurse over their
// subtree in walker order, cancelling the gate registration of every
// element on the way down; leaf units restore their original content and
// drop their record.
func (e *Engine) removeLocked(n Node, eff *effects) {
	if el, ok := n.(Element); ok {
		walkTree(el,
			func(sub Element) { e.gate.drop(sub) },
			func(u Node) { e.removeUnitLocked(u, eff) })
		return
	}
	e.removeUnitLocked(n, eff)
}

func (e *Engine) removeUnitLocked(n Node, eff *effects) {
	rec, ok := e.records[n.ID()]
	if !ok {
		return
	}
	delete(e.records, n.ID())
	eff.writes = append(eff.writes, writeBack{node: n, content: rec.original})
}

// updateLocked handles a content change on an already-tracked unit.
// Content changes on untracked units are ignored: lazily deferred units
// stay deferred until their owner becomes visible.
func (e *Engine) updateLocked(n Node) {
	rec, ok := e.records[n.ID()]
	if !ok {
		return
	}
	rec.version++
	e.attemptLocked(n, rec)
}

// attemptLocked issues an asynchronous translation for n if its record is
// behind. The request snapshots identity, version and epoch; the commit
// path revalidates all three.
func (e *Engine) attemptLocked(n Node, rec *record) {
	if rec.version <= rec.committed {
		return
	}
	content, ok := unitContent(n)
	if !ok || content == "" {
		return
	}
	req := translateRequest{
		node:     n,
		identity: rec.identity,
		version:  rec.version,
		priority: rec.priority,
		epoch:    e.epoch,
		content:  content,
	}
	if e.onIssued != nil {
		e.onIssued(req.epoch)
	}
	e.log.Debug("translation issued",
		"node", uint64(n.ID()), "version", req.version, "priority", req.priority)
	e.wg.Add(1)
	go e.translateAsync(req)
}

func (e *Engine) translateAsync(req translateRequest) {
	defer e.wg.Done()
	out, err := e.tr.Translate(e.ctx, req.content, req.priority)
	if err != nil {
		e.log.Warn("translation rejected",
			"node", uint64(req.node.ID()), "version", req.version, "error", err)
		e.finish(req.epoch, outcomeRejected)
		return
	}
	e.commit(req, out)
}

// commit validates a finished translation against the live record and, if
// it still applies, writes it back. The bookkeeping runs before the write:
// committed is set to the requested version plus one, so the write-back's
// own mutation event bumps version to exactly committed and the resulting
// attempt is a no-op. A later external edit bumps version past committed
// and retranslates as usual.
func (e *Engine) commit(req translateRequest, out string) {
	e.mu.Lock()
	rec, ok := e.records[req.node.ID()]
	if !ok || rec.identity != req.identity || rec.version != req.version ||
		req.epoch != e.epoch || e.closed {
		e.mu.Unlock()
		e.log.Debug("stale translation discarded",
			"node", uint64(req.node.ID()), "version", req.version)
		e.finish(req.epoch, outcomeDiscarded)
		return
	}
	if cur, ok := unitContent(req.node); ok {
		rec.original = cur
	}
	rec.committed = req.version + 1
	e.mu.Unlock()

	setUnitContent(req.node, out)
	e.log.Debug("translation committed",
		"node", uint64(req.node.ID()), "version", req.version)
	e.finish(req.epoch, outcomeCommitted)
}

func (e *Engine) finish(ep epoch, o outcome) {
	if e.onDone != nil {
		e.onDone(ep, o)
	}
}

// visibleFanout runs when a gated element first intersects the viewport:
// the element's direct text-node children that pass the filter are
// registered and translated. Attribute units deferred against the same
// element are not re-swept here; they recover through their own
// attribute-change events.
func (e *Engine) visibleFanout(el Element) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	for _, n := range el.Nodes() {
		t, ok := n.(Text)
		if !ok {
			continue
		}
		if _, tracked := e.records[t.ID()]; tracked {
			continue
		}
		content, ok := unitContent(t)
		if !ok || strings.TrimSpace(content) == "" {
			continue
		}
		if !e.eligible(t) {
			continue
		}
		e.registerLocked(t, content)
	}
	e.mu.Unlock()
}
