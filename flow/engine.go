package flow

import "math"

var _ Layout = (*Engine)(nil)

// Engine owns an ordered list of entries. It is not safe for concurrent use;
// hosts serialize calls (typically on their UI goroutine).
type Engine struct {
	entries []Entry
}

// New returns an engine seeded with entries. Duplicate elements keep their
// first position and take the mode of the last occurrence.
func New(entries ...Entry) *Engine {
	e := &Engine{}
	for _, en := range entries {
		e.Add(en.Element, en.Mode)
	}
	return e
}

// Add appends element with mode. If the element is already present its mode
// is updated in place and Add reports true. Nil elements are ignored.
func (e *Engine) Add(element Element, mode Mode) bool {
	if element == nil {
		return false
	}
	mode = normalizeMode(mode)
	if i := e.index(element); i >= 0 {
		e.entries[i].Mode = mode
		return true
	}
	e.entries = append(e.entries, Entry{Element: element, Mode: mode})
	return false
}

// Remove drops element and reports whether it was present.
func (e *Engine) Remove(element Element) bool {
	i := e.index(element)
	if i < 0 {
		return false
	}
	e.entries = append(e.entries[:i], e.entries[i+1:]...)
	return true
}

func (e *Engine) Contains(element Element) bool {
	return e.index(element) >= 0
}

func (e *Engine) Len() int { return len(e.entries) }

// Entries returns a copy of the entries in flow order.
func (e *Engine) Entries() []Entry {
	out := make([]Entry, len(e.entries))
	copy(out, e.entries)
	return out
}

func (e *Engine) index(element Element) int {
	if element == nil {
		return -1
	}
	for i, en := range e.entries {
		if en.Element == element {
			return i
		}
	}
	return -1
}

// Measure runs the wrap simulation for containerWidth without placing
// anything.
func (e *Engine) Measure(containerWidth float64) Metrics {
	sizes := e.naturalSizes()
	m, _ := e.simulate(sizes, containerWidth, nil)
	return m
}

// Arrange measures and places every entry in a single pass, so the
// rectangles always agree with the returned metrics. Elements implementing
// Bounded get their rectangle applied.
func (e *Engine) Arrange(containerWidth float64) Arrangement {
	sizes := e.naturalSizes()
	placements := make([]Placement, 0, len(e.entries))
	m, lines := e.simulate(sizes, containerWidth, func(i, line int, r Rect) {
		placements = append(placements, Placement{
			Element: e.entries[i].Element,
			Mode:    e.entries[i].Mode,
			Bounds:  r,
			Line:    line,
		})
	})
	for _, p := range placements {
		if b, ok := p.Element.(Bounded); ok {
			b.SetBounds(p.Bounds)
		}
	}
	return Arrangement{Metrics: m, Placements: placements, Lines: lines}
}

// MaxContentWidth is the narrowest container width at which no inline run
// wraps: the larger of the widest block and the widest run of consecutive
// inline entries.
func (e *Engine) MaxContentWidth() float64 {
	widest, run := 0.0, 0.0
	for _, en := range e.entries {
		w := clamp(en.Element.NaturalSize().Width)
		if en.Mode == Block {
			run = 0
			widest = math.Max(widest, w)
			continue
		}
		run += w
		widest = math.Max(widest, run)
	}
	return widest
}

func (e *Engine) naturalSizes() []Size {
	sizes := make([]Size, len(e.entries))
	for i, en := range e.entries {
		s := en.Element.NaturalSize()
		sizes[i] = Size{Width: clamp(s.Width), Height: clamp(s.Height)}
	}
	return sizes
}

// simulate walks the entries once. place, when non-nil, receives the entry
// index, its line and its rectangle.
func (e *Engine) simulate(sizes []Size, containerWidth float64, place func(i, line int, r Rect)) (Metrics, int) {
	minWidth := 0.0
	for i, en := range e.entries {
		if en.Mode == Block {
			minWidth = math.Max(minWidth, sizes[i].Width)
		}
	}
	renderWidth := math.Max(clamp(containerWidth), minWidth)

	var (
		x, y       float64
		lineHeight float64
		line       int
		// open is true once an inline sits on the current line. Only line
		// numbering uses it; y follows the x cursor.
		open bool
	)

	for i, en := range e.entries {
		s := sizes[i]
		if en.Mode == Block {
			if x != 0 {
				y += lineHeight
			}
			if open {
				line++
			}
			x, lineHeight, open = 0, 0, false
			if place != nil {
				place(i, line, Rect{X: 0, Y: y, Width: renderWidth, Height: s.Height})
			}
			y += s.Height
			line++
			continue
		}

		// The line height absorbs the element before the overflow test, so a
		// wrapping element also counts toward the line it closes.
		lineHeight = math.Max(lineHeight, s.Height)
		if x+s.Width > renderWidth {
			y += lineHeight
			line++
			if place != nil {
				place(i, line, Rect{X: 0, Y: y, Width: math.Min(s.Width, renderWidth), Height: s.Height})
			}
			x, lineHeight, open = s.Width, s.Height, true
			continue
		}
		if place != nil {
			place(i, line, Rect{X: x, Y: y, Width: s.Width, Height: s.Height})
		}
		x += s.Width
		open = true
	}

	lines := line
	if open {
		lines++
	}
	return Metrics{
		MinimumWidth:    minWidth,
		PreferredWidth:  renderWidth,
		PreferredHeight: y + lineHeight,
	}, lines
}

// clamp maps negative and NaN values to zero.
func clamp(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}
