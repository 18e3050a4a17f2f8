// Package flow arranges elements in a container following a simplified
// block/inline flow: block elements take a full line at the render width,
// inline elements run left to right and wrap when they would overflow.
package flow

import (
	"fmt"
	"strings"
)

// Mode selects how an element participates in the flow.
type Mode int

const (
	Block Mode = iota
	Inline
)

func (m Mode) String() string {
	if m == Inline {
		return "inline"
	}
	return "block"
}

// ParseMode accepts "block" or "inline" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block":
		return Block, nil
	case "inline":
		return Inline, nil
	default:
		return Block, fmt.Errorf("flow: unknown display mode %q", s)
	}
}

func normalizeMode(m Mode) Mode {
	if m == Inline {
		return Inline
	}
	return Block
}

// Size is a width/height pair in the caller's units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an assigned rectangle relative to the container origin.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is anything that can report its natural size. The size is asked
// for on every pass and may change between passes.
type Element interface {
	NaturalSize() Size
}

// Bounded elements receive their rectangle directly from Arrange.
type Bounded interface {
	Element
	SetBounds(Rect)
}

// Entry pairs an element with its display mode.
type Entry struct {
	Element Element
	Mode    Mode
}

// Metrics is the outcome of a measurement pass.
type Metrics struct {
	MinimumWidth    float64 `json:"minimumWidth"`
	PreferredWidth  float64 `json:"preferredWidth"`
	PreferredHeight float64 `json:"preferredHeight"`
}

func (m Metrics) PreferredSize() Size {
	return Size{Width: m.PreferredWidth, Height: m.PreferredHeight}
}

func (m Metrics) MinimumSize() Size {
	return Size{Width: m.MinimumWidth, Height: m.PreferredHeight}
}

// Placement is the rectangle assigned to one entry. Line is the zero-based
// index of the line the element sits on.
type Placement struct {
	Element Element
	Mode    Mode
	Bounds  Rect
	Line    int
}

// Arrangement is the outcome of an arrange pass.
type Arrangement struct {
	Metrics
	Placements []Placement
	Lines      int
}

// Layout is what a rendering host needs from a layout: aggregate size for a
// candidate width, and concrete rectangles for the actual width.
type Layout interface {
	Measure(containerWidth float64) Metrics
	Arrange(containerWidth float64) Arrangement
}
