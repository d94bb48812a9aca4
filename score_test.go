package glossa

import (
	"testing"
)

func TestScoreBands(t *testing.T) {
	d := NewMemDoc()
	e := newFilterEngine(t, d, DefaultConfig())
	defer e.Close()

	onscreen := d.NewElement("div")
	onscreen.SetBounds(Rect{X: 0, Y: 0, W: 200, H: 50})
	onscreen.SetAttr("title", "hint")
	visText := d.NewText("hola")
	onscreen.Append(visText)
	d.Body().Append(onscreen)

	offscreen := d.NewElement("div")
	offscreen.SetBounds(Rect{X: 0, Y: 5000, W: 200, H: 50})
	offscreen.SetAttr("title", "hint")
	farText := d.NewText("hola")
	offscreen.Append(farText)
	d.Body().Append(offscreen)

	cases := []struct {
		name string
		node Node
		want int
	}{
		{"visible text", visText, 4},
		{"visible attr", onscreen.Attr("title"), 3},
		{"offscreen text", farText, 2},
		{"offscreen attr", offscreen.Attr("title"), 1},
		{"element", onscreen, 0},
	}
	for _, c := range cases {
		if got := e.score(c.node); got != c.want {
			t.Errorf("Expected %s to score %d, got %d", c.name, c.want, got)
		}
	}
}

func TestScoreDetachedAndUnsized(t *testing.T) {
	d := NewMemDoc()
	e := newFilterEngine(t, d, DefaultConfig())
	defer e.Close()

	// Detached text has no owner to intersect; an attached element with
	// zero-size bounds never intersects.
	if got := e.score(d.NewText("hola")); got != textBasePriority {
		t.Errorf("Expected detached text to score %d, got %d", textBasePriority, got)
	}

	unsized := d.NewElement("div")
	txt := d.NewText("hola")
	unsized.Append(txt)
	d.Body().Append(unsized)
	if got := e.score(txt); got != textBasePriority {
		t.Errorf("Expected text in unsized element to score %d, got %d", textBasePriority, got)
	}
}
