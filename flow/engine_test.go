package flow

import (
	"reflect"
	"testing"
)

// fixed is a test element with a mutable natural size.
type fixed struct {
	w, h   float64
	calls  int
	bounds Rect
}

func (f *fixed) NaturalSize() Size {
	f.calls++
	return Size{Width: f.w, Height: f.h}
}

func el(w, h float64) *fixed { return &fixed{w: w, h: h} }

type bounded struct {
	fixed
	applied []Rect
}

func (b *bounded) SetBounds(r Rect) { b.applied = append(b.applied, r) }

func boundsOf(t *testing.T, arr Arrangement) []Rect {
	t.Helper()
	out := make([]Rect, len(arr.Placements))
	for i, p := range arr.Placements {
		out[i] = p.Bounds
	}
	return out
}

func TestEmptyEngine(t *testing.T) {
	e := New()
	m := e.Measure(0)
	if m != (Metrics{}) {
		t.Fatalf("empty engine should measure zero, got %+v", m)
	}
	arr := e.Arrange(0)
	if len(arr.Placements) != 0 || arr.Lines != 0 {
		t.Fatalf("empty engine should place nothing, got %+v", arr)
	}
}

func TestEmptyEngineKeepsContainerWidth(t *testing.T) {
	m := New().Measure(80)
	if m.PreferredWidth != 80 || m.MinimumWidth != 0 || m.PreferredHeight != 0 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestBlocksOnly(t *testing.T) {
	e := New()
	e.Add(el(40, 10), Block)
	e.Add(el(120, 5), Block)
	e.Add(el(70, 20), Block)

	m := e.Measure(50)
	if m.MinimumWidth != 120 {
		t.Fatalf("minimum width want 120, got %g", m.MinimumWidth)
	}
	if m.PreferredWidth != 120 {
		t.Fatalf("preferred width want 120, got %g", m.PreferredWidth)
	}
	if m.PreferredHeight != 35 {
		t.Fatalf("preferred height want 35, got %g", m.PreferredHeight)
	}

	got := boundsOf(t, e.Arrange(50))
	want := []Rect{
		{X: 0, Y: 0, Width: 120, Height: 10},
		{X: 0, Y: 10, Width: 120, Height: 5},
		{X: 0, Y: 15, Width: 120, Height: 20},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("block bounds mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestWideContainerStretchesBlocks(t *testing.T) {
	e := New(Entry{Element: el(40, 10), Mode: Block})
	arr := e.Arrange(200)
	if arr.PreferredWidth != 200 || arr.MinimumWidth != 40 {
		t.Fatalf("unexpected metrics: %+v", arr.Metrics)
	}
	if arr.Placements[0].Bounds.Width != 200 {
		t.Fatalf("block should stretch to 200, got %g", arr.Placements[0].Bounds.Width)
	}
}

func TestInlineSingleLine(t *testing.T) {
	e := New()
	e.Add(el(20, 5), Inline)
	e.Add(el(30, 12), Inline)
	e.Add(el(10, 8), Inline)

	arr := e.Arrange(100)
	want := []Rect{
		{X: 0, Y: 0, Width: 20, Height: 5},
		{X: 20, Y: 0, Width: 30, Height: 12},
		{X: 50, Y: 0, Width: 10, Height: 8},
	}
	if got := boundsOf(t, arr); !reflect.DeepEqual(got, want) {
		t.Fatalf("inline bounds mismatch:\n got %+v\nwant %+v", got, want)
	}
	if arr.PreferredHeight != 12 {
		t.Fatalf("height should be tallest inline (12), got %g", arr.PreferredHeight)
	}
	if arr.MinimumWidth != 0 {
		t.Fatalf("inline entries must not contribute to minimum width, got %g", arr.MinimumWidth)
	}
	if arr.Lines != 1 {
		t.Fatalf("want 1 line, got %d", arr.Lines)
	}
}

func TestWrapBoundary(t *testing.T) {
	cases := []struct {
		name     string
		second   float64
		wantX    float64
		wantY    float64
		wantLine int
	}{
		{name: "overflow wraps", second: 50, wantX: 0, wantY: 10, wantLine: 1},
		{name: "exact fit stays", second: 40, wantX: 60, wantY: 0, wantLine: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := New()
			e.Add(el(60, 10), Inline)
			e.Add(el(tc.second, 10), Inline)
			arr := e.Arrange(100)
			p := arr.Placements[1]
			if p.Bounds.X != tc.wantX || p.Bounds.Y != tc.wantY || p.Line != tc.wantLine {
				t.Fatalf("second element at (%g,%g) line %d, want (%g,%g) line %d",
					p.Bounds.X, p.Bounds.Y, p.Line, tc.wantX, tc.wantY, tc.wantLine)
			}
			if p.Bounds.Width != tc.second {
				t.Fatalf("second element width %g, want %g", p.Bounds.Width, tc.second)
			}
		})
	}
}

// The wrapping element's height is folded into the line before the overflow
// test, so the line it closes is as tall as the wrapping element.
func TestWrapClosesLineIncludingWrappingElement(t *testing.T) {
	e := New()
	e.Add(el(60, 10), Inline)
	e.Add(el(50, 30), Inline)
	arr := e.Arrange(100)
	if y := arr.Placements[1].Bounds.Y; y != 30 {
		t.Fatalf("wrapped element should start at y=30, got y=%g", y)
	}
	if arr.PreferredHeight != 60 {
		t.Fatalf("height want 60, got %g", arr.PreferredHeight)
	}
	if m := e.Measure(100); m.PreferredHeight != 60 {
		t.Fatalf("measure height want 60, got %g", m.PreferredHeight)
	}
	if arr.Lines != 2 {
		t.Fatalf("want 2 lines, got %d", arr.Lines)
	}
}

func TestBlockClosesInlineRun(t *testing.T) {
	e := New()
	e.Add(el(30, 10), Inline)
	e.Add(el(15, 20), Block)
	arr := e.Arrange(100)
	want := []Rect{
		{X: 0, Y: 0, Width: 30, Height: 10},
		{X: 0, Y: 10, Width: 100, Height: 20},
	}
	if got := boundsOf(t, arr); !reflect.DeepEqual(got, want) {
		t.Fatalf("bounds mismatch:\n got %+v\nwant %+v", got, want)
	}
	if arr.PreferredHeight != 30 {
		t.Fatalf("height want 30, got %g", arr.PreferredHeight)
	}
}

func TestInlineAfterBlockStartsFreshLine(t *testing.T) {
	e := New()
	e.Add(el(10, 20), Block)
	e.Add(el(30, 5), Inline)
	e.Add(el(30, 7), Inline)
	arr := e.Arrange(100)
	if b := arr.Placements[1].Bounds; b.X != 0 || b.Y != 20 {
		t.Fatalf("first inline after block at (%g,%g), want (0,20)", b.X, b.Y)
	}
	if b := arr.Placements[2].Bounds; b.X != 30 || b.Y != 20 {
		t.Fatalf("second inline after block at (%g,%g), want (30,20)", b.X, b.Y)
	}
	if arr.PreferredHeight != 27 {
		t.Fatalf("height want 27, got %g", arr.PreferredHeight)
	}
}

func TestOversizedInlineIsClamped(t *testing.T) {
	t.Run("at line start", func(t *testing.T) {
		e := New()
		e.Add(el(150, 10), Inline)
		arr := e.Arrange(100)
		b := arr.Placements[0].Bounds
		// x+w > renderWidth holds even at x=0: a line of its own height closes first.
		if b.X != 0 || b.Y != 10 || b.Width != 100 {
			t.Fatalf("oversized inline got %+v, want x=0 y=10 width=100", b)
		}
		if arr.PreferredHeight != 20 {
			t.Fatalf("height want 20, got %g", arr.PreferredHeight)
		}
	})
	t.Run("after block", func(t *testing.T) {
		e := New()
		e.Add(el(10, 20), Block)
		e.Add(el(150, 10), Inline)
		arr := e.Arrange(100)
		b := arr.Placements[1].Bounds
		if b.X != 0 || b.Y != 30 || b.Width != 100 {
			t.Fatalf("oversized inline got %+v, want x=0 y=30 width=100", b)
		}
		if arr.PreferredHeight != 40 {
			t.Fatalf("height want 40, got %g", arr.PreferredHeight)
		}
	})
	t.Run("mid line", func(t *testing.T) {
		e := New()
		e.Add(el(20, 10), Inline)
		e.Add(el(150, 10), Inline)
		e.Add(el(5, 10), Inline)
		arr := e.Arrange(100)
		b := arr.Placements[1].Bounds
		if b.X != 0 || b.Y != 10 || b.Width != 100 {
			t.Fatalf("oversized inline got %+v, want x=0 y=10 width=100", b)
		}
		// x advanced by the natural width, so the next inline wraps again.
		if c := arr.Placements[2].Bounds; c.X != 0 || c.Y != 20 {
			t.Fatalf("element after oversized inline at (%g,%g), want (0,20)", c.X, c.Y)
		}
	})
}

func TestBlockWidthDrivesWrapWidth(t *testing.T) {
	e := New()
	e.Add(el(120, 10), Block)
	e.Add(el(70, 10), Inline)
	e.Add(el(50, 10), Inline)
	arr := e.Arrange(80)
	if arr.PreferredWidth != 120 {
		t.Fatalf("render width want 120, got %g", arr.PreferredWidth)
	}
	if b := arr.Placements[2].Bounds; b.X != 70 || b.Y != 10 {
		t.Fatalf("inline should fit beside the first on a 120 render width, got %+v", b)
	}
}

func TestArrangeIsIdempotent(t *testing.T) {
	e := New()
	e.Add(el(60, 10), Inline)
	e.Add(el(50, 12), Inline)
	e.Add(el(10, 4), Block)
	e.Add(el(33, 9), Inline)
	first := e.Arrange(100)
	second := e.Arrange(100)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("arrange not idempotent:\n%+v\n%+v", first, second)
	}
	if m := e.Measure(100); m != first.Metrics {
		t.Fatalf("measure %+v disagrees with arrange %+v", m, first.Metrics)
	}
}

func TestNaturalSizeRequeriedEachPass(t *testing.T) {
	a := el(30, 10)
	e := New(Entry{Element: a, Mode: Inline})
	if h := e.Measure(100).PreferredHeight; h != 10 {
		t.Fatalf("height want 10, got %g", h)
	}
	a.h = 25
	if h := e.Measure(100).PreferredHeight; h != 25 {
		t.Fatalf("height should follow natural size change, got %g", h)
	}
	before := a.calls
	e.Arrange(100)
	if a.calls-before != 1 {
		t.Fatalf("arrange should query natural size once, got %d", a.calls-before)
	}
}

func TestContainerWidthChangeRewraps(t *testing.T) {
	e := New()
	e.Add(el(60, 10), Inline)
	e.Add(el(50, 10), Inline)
	if h := e.Measure(100).PreferredHeight; h != 20 {
		t.Fatalf("narrow container height want 20, got %g", h)
	}
	if h := e.Measure(110).PreferredHeight; h != 10 {
		t.Fatalf("wide container height want 10, got %g", h)
	}
}

func TestRemove(t *testing.T) {
	a, b, c := el(10, 10), el(20, 10), el(30, 10)
	e := New()
	e.Add(a, Inline)
	e.Add(b, Inline)
	e.Add(c, Inline)

	before := e.Arrange(100)
	if e.Remove(el(10, 10)) {
		t.Fatalf("removing an unknown element should report false")
	}
	after := e.Arrange(100)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("removing unknown element changed the layout")
	}

	if !e.Remove(b) {
		t.Fatalf("remove of present element should report true")
	}
	if e.Contains(b) || e.Len() != 2 {
		t.Fatalf("element still present after remove")
	}
	arr := e.Arrange(100)
	if x := arr.Placements[1].Bounds.X; x != 10 {
		t.Fatalf("c should follow a directly, got x=%g", x)
	}
}

func TestAddDuplicateUpdatesModeInPlace(t *testing.T) {
	a, b := el(10, 10), el(20, 10)
	e := New()
	e.Add(a, Inline)
	e.Add(b, Inline)
	if !e.Add(a, Block) {
		t.Fatalf("re-adding should report an update")
	}
	entries := e.Entries()
	if len(entries) != 2 {
		t.Fatalf("duplicate add must not grow the sequence, got %d", len(entries))
	}
	if entries[0].Element != a || entries[0].Mode != Block {
		t.Fatalf("first entry should be a in block mode, got %+v", entries[0])
	}
}

func TestAddDefaultsToBlock(t *testing.T) {
	e := New()
	e.Add(el(10, 10), Mode(42))
	if got := e.Entries()[0].Mode; got != Block {
		t.Fatalf("unknown mode should default to block, got %v", got)
	}
	if e.Add(nil, Inline) || e.Len() != 1 {
		t.Fatalf("nil element should be ignored")
	}
}

func TestDegenerateSizes(t *testing.T) {
	e := New()
	e.Add(el(0, 0), Inline)
	e.Add(el(-5, -5), Inline)
	e.Add(el(-10, 8), Block)
	arr := e.Arrange(-20)
	if arr.PreferredWidth != 0 || arr.MinimumWidth != 0 {
		t.Fatalf("negative inputs should clamp to zero, got %+v", arr.Metrics)
	}
	for i, p := range arr.Placements {
		if p.Bounds.Width < 0 || p.Bounds.Height < 0 {
			t.Fatalf("placement %d has negative size: %+v", i, p.Bounds)
		}
	}
	if arr.PreferredHeight != 8 {
		t.Fatalf("height want 8, got %g", arr.PreferredHeight)
	}
}

// A zero-width inline leaves the cursor at x=0, so the block does not close its line.
func TestZeroWidthInlineDoesNotCloseBeforeBlock(t *testing.T) {
	e := New()
	e.Add(el(0, 6), Inline)
	e.Add(el(10, 4), Block)
	arr := e.Arrange(50)
	if y := arr.Placements[1].Bounds.Y; y != 0 {
		t.Fatalf("block should start at y=0 after a zero-width inline, got y=%g", y)
	}
	if arr.PreferredHeight != 4 {
		t.Fatalf("height want 4, got %g", arr.PreferredHeight)
	}
	if arr.Placements[1].Line != 1 {
		t.Fatalf("block should take the next line index, got %d", arr.Placements[1].Line)
	}
}

func TestArrangeAppliesBounds(t *testing.T) {
	b := &bounded{fixed: fixed{w: 25, h: 5}}
	e := New(Entry{Element: b, Mode: Inline})
	e.Arrange(100)
	want := []Rect{{X: 0, Y: 0, Width: 25, Height: 5}}
	if !reflect.DeepEqual(b.applied, want) {
		t.Fatalf("bounds not applied: %+v", b.applied)
	}
}

func TestMaxContentWidth(t *testing.T) {
	e := New()
	e.Add(el(30, 1), Inline)
	e.Add(el(40, 1), Inline)
	e.Add(el(50, 1), Block)
	e.Add(el(20, 1), Inline)
	if got := e.MaxContentWidth(); got != 70 {
		t.Fatalf("max content width want 70, got %g", got)
	}
	if h := e.Measure(e.MaxContentWidth()).PreferredHeight; h != 3 {
		t.Fatalf("nothing should wrap at max content width, height %g", h)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(" Inline "); err != nil || m != Inline {
		t.Fatalf("ParseMode inline: %v %v", m, err)
	}
	if m, err := ParseMode("block"); err != nil || m != Block {
		t.Fatalf("ParseMode block: %v %v", m, err)
	}
	if _, err := ParseMode("float"); err == nil {
		t.Fatalf("ParseMode should reject unknown modes")
	}
	if Inline.String() != "inline" || Block.String() != "block" {
		t.Fatalf("unexpected mode strings")
	}
}
