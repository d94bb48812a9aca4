package glossa

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Config controls discovery and translation behavior.
type Config struct {
	// IgnoredTags lists element names whose subtrees are never
	// translated. Matching is case-insensitive.
	IgnoredTags []string

	// TranslatableAttrs lists attribute names whose values are eligible
	// for translation. Matching is case-insensitive.
	TranslatableAttrs []string

	// Lazy defers translation of attached, intersectable content until
	// its element first enters the viewport.
	Lazy bool

	// Logger receives engine diagnostics. Nil discards them.
	Logger *slog.Logger
}

// DefaultConfig returns the standard configuration: lazy viewport gating
// on, machine-readable subtrees ignored, and the common human-readable
// attributes translatable.
func DefaultConfig() Config {
	return Config{
		IgnoredTags:       []string{"script", "style", "noscript", "template", "code", "textarea"},
		TranslatableAttrs: []string{"title", "placeholder", "alt", "aria-label"},
		Lazy:              true,
	}
}

// Engine discovers translatable units in a live document, translates them
// asynchronously through the configured Translator, and keeps the results
// consistent as the document mutates: stale results are discarded, removed
// content is reverted, and the engine's own write-backs never retrigger
// translation. All exported methods are safe for concurrent use.
type Engine struct {
	doc Document
	tr  Translator
	cfg Config
	log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	closed       bool
	records      map[NodeID]*record
	nextIdentity uint64
	epoch        epoch
	watches      map[NodeID]*watchEntry

	gate *gate

	// Session hooks. NewSession wires these before any observation
	// starts; they stay nil for a bare engine.
	onIssued func(epoch)
	onDone   func(epoch, outcome)

	ignored   map[string]bool
	attrAllow map[string]bool

	wg sync.WaitGroup
}

// watchEntry pairs an observed root with its watch's stop function.
type watchEntry struct {
	root Element
	stop func()
}

// New creates an engine over doc that translates through tr. Both are
// required. A zero Config disables lazy gating and allows no attributes,
// so most callers start from DefaultConfig.
func New(doc Document, tr Translator, cfg Config) (*Engine, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	if tr == nil {
		return nil, ErrNilTranslator
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		doc:       doc,
		tr:        tr,
		cfg:       cfg,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		records:   make(map[NodeID]*record),
		epoch:     newEpoch(),
		watches:   make(map[NodeID]*watchEntry),
		ignored:   nameSet(cfg.IgnoredTags),
		attrAllow: nameSet(cfg.TranslatableAttrs),
	}
	e.gate = newGate(doc)
	return e, nil
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}

// Observe starts tracking the subtree rooted at root: a mutation watch is
// opened and the subtree is swept once for existing translatable units.
// Observing an already-observed root fails with ErrAlreadyObserved; a
// failure to open the document watch is returned unchanged.
func (e *Engine) Observe(root Element) error {
	if root == nil {
		return ErrNilRoot
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if _, ok := e.watches[root.ID()]; ok {
		e.mu.Unlock()
		return ErrAlreadyObserved
	}
	e.mu.Unlock()

	stop, err := e.doc.Watch(root, e.handleEvent)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		stop()
		return ErrClosed
	}
	if _, ok := e.watches[root.ID()]; ok {
		e.mu.Unlock()
		stop()
		return ErrAlreadyObserved
	}
	e.watches[root.ID()] = &watchEntry{root: root, stop: stop}
	var eff effects
	e.addLocked(root, &eff)
	e.mu.Unlock()

	eff.apply(e)
	e.log.Debug("observing root", "node", uint64(root.ID()))
	return nil
}

// Unobserve stops the watch for root and reverts every tracked unit in
// its subtree to its original content.
func (e *Engine) Unobserve(root Element) error {
	if root == nil {
		return ErrNilRoot
	}
	e.mu.Lock()
	ent, ok := e.watches[root.ID()]
	if !ok {
		e.mu.Unlock()
		return ErrNotObserved
	}
	delete(e.watches, root.ID())
	var eff effects
	e.removeLocked(root, &eff)
	e.mu.Unlock()

	ent.stop()
	eff.apply(e)
	e.log.Debug("unobserved root", "node", uint64(root.ID()))
	return nil
}

// OriginalText returns the pre-translation content of a tracked unit. The
// second result is false for untracked nodes.
func (e *Engine) OriginalText(n Node) (string, bool) {
	if n == nil {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[n.ID()]
	if !ok {
		return "", false
	}
	return rec.original, true
}

// Close unobserves every root, reverts tracked content, cancels in-flight
// translations and waits for them to settle. A closed engine cannot be
// reused.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.closed = true
	ents := make([]*watchEntry, 0, len(e.watches))
	for _, ent := range e.watches {
		ents = append(ents, ent)
	}
	e.watches = make(map[NodeID]*watchEntry)
	var eff effects
	for _, ent := range ents {
		e.removeLocked(ent.root, &eff)
	}
	e.mu.Unlock()

	for _, ent := range ents {
		ent.stop()
	}
	eff.apply(e)
	e.gate.reset()
	e.cancel()
	e.wg.Wait()
	return nil
}
