package glossa

import (
	"testing"
	"time"
)

// offscreen places an element well below the default 1280x720 viewport.
var offscreen = Rect{X: 0, Y: 2000, W: 200, H: 50}

func gatePending(e *Engine) int {
	e.gate.mu.Lock()
	defer e.gate.mu.Unlock()
	return len(e.gate.pending)
}

func TestLazyDefersOffscreenText(t *testing.T) {
	d := NewMemDoc()
	div := d.NewElement("div")
	div.SetBounds(offscreen)
	txt := d.NewText("Hola")
	div.Append(txt)
	d.Body().Append(div)

	tr := &countingTranslator{}
	e, err := New(d, tr, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	if err := e.Observe(d.Body()); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if got := tr.calls.Load(); got != 0 {
		t.Errorf("Expected no translations while offscreen, got %d", got)
	}
	if n := recordCount(e); n != 0 {
		t.Errorf("Expected no records while deferred, got %d", n)
	}
	if n := gatePending(e); n != 1 {
		t.Errorf("Expected 1 gate registration, got %d", n)
	}

	// Scroll the element into view.
	d.SetViewport(Rect{X: 0, Y: 1900, W: 1280, H: 720})
	waitFor(t, "deferred translation", func() bool { return txt.Text() == "HOLA" })
	if n := gatePending(e); n != 0 {
		t.Errorf("Expected gate registration consumed, got %d", n)
	}

	// Entering the viewport again must not re-fire.
	d.SetViewport(Rect{X: 0, Y: 0, W: 1280, H: 720})
	d.SetViewport(Rect{X: 0, Y: 1900, W: 1280, H: 720})
	time.Sleep(30 * time.Millisecond)
	if got := tr.calls.Load(); got != 1 {
		t.Errorf("Expected exactly 1 translation, got %d", got)
	}
}

func TestLazyVisibleElementTranslatesPromptly(t *testing.T) {
	d := NewMemDoc()
	div := d.NewElement("div")
	div.SetBounds(Rect{X: 0, Y: 0, W: 200, H: 50})
	txt := d.NewText("Hola")
	div.Append(txt)
	d.Body().Append(div)

	e, err := New(d, upperTranslator(), DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	// The element is already on screen: the gate fires during the
	// bootstrap sweep without any scrolling.
	if err := e.Observe(d.Body()); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	waitFor(t, "prompt translation", func() bool { return txt.Text() == "HOLA" })
	if n := gatePending(e); n != 0 {
		t.Errorf("Expected no pending gate registrations, got %d", n)
	}
}

func TestLazyDetachedTranslatesImmediately(t *testing.T) {
	d := NewMemDoc()
	txt := d.NewText("Hola")

	tr := &countingTranslator{}
	e, err := New(d, tr, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	// A detached unit has no element to wait on; delivery of its added
	// event translates it immediately even in lazy mode.
	e.handleEvent(Event{Kind: EventAdded, Node: txt})
	waitFor(t, "detached translation", func() bool { return txt.Text() == "HOLA" })
	if got := tr.calls.Load(); got != 1 {
		t.Errorf("Expected 1 translation, got %d", got)
	}
}

func TestLazyOptionLikeTranslatesImmediately(t *testing.T) {
	d := NewMemDoc()
	sel := d.NewElement("select")
	opt := d.NewElement("option")
	txt := d.NewText("Hola")
	opt.Append(txt)
	sel.Append(opt)
	d.Body().Append(sel)

	e, err := New(d, upperTranslator(), DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	// Option contents render outside normal flow and never intersect;
	// they bypass the gate entirely.
	if err := e.Observe(d.Body()); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	waitFor(t, "option translation", func() bool { return txt.Text() == "HOLA" })
	if n := gatePending(e); n != 0 {
		t.Errorf("Expected no gate registrations for option content, got %d", n)
	}
}

func TestLazyGateCancelledOnRemoval(t *testing.T) {
	d := NewMemDoc()
	div := d.NewElement("div")
	div.SetBounds(offscreen)
	txt := d.NewText("Hola")
	div.Append(txt)
	d.Body().Append(div)

	tr := &countingTranslator{}
	e, err := New(d, tr, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	if err := e.Observe(d.Body()); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	waitFor(t, "gate registration", func() bool { return gatePending(e) == 1 })

	d.Body().Remove(div)
	if n := gatePending(e); n != 0 {
		t.Errorf("Expected gate registration cancelled, got %d", n)
	}

	// Even if the old coordinates scroll into view nothing happens.
	d.SetViewport(Rect{X: 0, Y: 1900, W: 1280, H: 720})
	time.Sleep(30 * time.Millisecond)
	if got := tr.calls.Load(); got != 0 {
		t.Errorf("Expected no translations after cancellation, got %d", got)
	}
	if got := txt.Text(); got != "Hola" {
		t.Errorf("Expected content untouched, got %q", got)
	}
}

func TestLazyFanoutSkipsAttributesAndGrandchildren(t *testing.T) {
	// Visibility fan-out translates only the revealed element's direct
	// text children. Its attributes stay deferred, and nested elements
	// wait for their own gate registrations.
	d := NewMemDoc()
	div := d.NewElement("div")
	div.SetBounds(offscreen)
	div.SetAttr("title", "Hola")
	txt := d.NewText("Uno")
	inner := d.NewElement("span")
	inner.SetBounds(offscreen)
	deep := d.NewText("Dos")
	inner.Append(deep)
	div.Append(txt, inner)
	d.Body().Append(div)

	e, err := New(d, upperTranslator(), DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	if err := e.Observe(d.Body()); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	// Three deferred units against two distinct owners.
	waitFor(t, "gate registrations", func() bool { return gatePending(e) == 2 })

	d.SetViewport(Rect{X: 0, Y: 1900, W: 1280, H: 720})
	waitFor(t, "fanout translations", func() bool {
		return txt.Text() == "UNO" && deep.Text() == "DOS"
	})
	if got := div.Attr("title").Value(); got != "Hola" {
		t.Errorf("Expected attribute still deferred after reveal, got %q", got)
	}
	if _, ok := e.OriginalText(div.Attr("title")); ok {
		t.Error("Expected no record for the deferred attribute")
	}
}

func TestLazyDeferredEditStaysDeferred(t *testing.T) {
	d := NewMemDoc()
	div := d.NewElement("div")
	div.SetBounds(offscreen)
	txt := d.NewText("Hola")
	div.Append(txt)
	d.Body().Append(div)

	tr := &countingTranslator{}
	e, err := New(d, tr, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer e.Close()

	if err := e.Observe(d.Body()); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	// Content edits on a deferred unit do not wake it.
	txt.SetText("Adios")
	time.Sleep(30 * time.Millisecond)
	if got := tr.calls.Load(); got != 0 {
		t.Errorf("Expected edit on deferred unit to stay deferred, got %d calls", got)
	}

	// On reveal the current content is what gets translated.
	d.SetViewport(Rect{X: 0, Y: 1900, W: 1280, H: 720})
	waitFor(t, "translation of latest content", func() bool { return txt.Text() == "ADIOS" })
}
