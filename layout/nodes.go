package layout

import (
	"math"

	"github.com/forana/blocklayout/flow"
)

// node 是容器中的一个元素：既向 flow 引擎报告自然尺寸，也能把自己输出到 Result。
type node interface {
	flow.Element
	base() *nodeBase
	emit(out *emitter, bounds flow.Rect)
}

type nodeBase struct {
	id   string
	kind string
}

func (b *nodeBase) base() *nodeBase { return b }

// emitter 把嵌套的排版结果平铺成绝对坐标。
type emitter struct {
	res   *Result
	depth int
}

func (e *emitter) item(n node, p flow.Placement, bounds flow.Rect) {
	b := n.base()
	e.res.Items = append(e.res.Items, Item{
		ID:      b.id,
		Kind:    b.kind,
		Mode:    p.Mode.String(),
		Depth:   e.depth,
		Line:    p.Line,
		Natural: n.NaturalSize(),
		Bounds:  bounds,
	})
}

// textNode 的自然尺寸来自 Typesetter：宽度为最宽的一行，高度为各行高度与行距之和。
type textNode struct {
	nodeBase
	box   TextBox
	width float64 // 显式宽度，0 表示使用文本宽度

	ts   Typesetter
	data any
	font FontResource
}

func (t *textNode) NaturalSize() flow.Size {
	w := t.width
	if w <= 0 {
		for _, ln := range t.box.Lines {
			w = math.Max(w, ln.Width)
		}
	}
	return flow.Size{Width: w, Height: t.box.Height}
}

func (t *textNode) emit(out *emitter, bounds flow.Rect) {
	tb := t.box
	tb.ID = t.id
	tb.X, tb.Y = bounds.X, bounds.Y
	tb.Width = bounds.Width
	tb.Clipped = bounds.Width+1e-9 < t.NaturalSize().Width
	tb.Lines = append([]TextLine(nil), t.box.Lines...)
	out.res.Texts = append(out.res.Texts, tb)
}

// boxNode 是固定尺寸的矩形，可选填充与描边。
type boxNode struct {
	nodeBase
	size  flow.Size
	shape BoxShape
}

func (b *boxNode) NaturalSize() flow.Size { return b.size }

func (b *boxNode) emit(out *emitter, bounds flow.Rect) {
	shape := b.shape
	shape.ID = b.id
	shape.X, shape.Y = bounds.X, bounds.Y
	shape.Width, shape.Height = bounds.Width, bounds.Height
	if shape.FillColor == nil && shape.StrokeColor == nil {
		return
	}
	out.res.Boxes = append(out.res.Boxes, shape)
}

// spacerNode 只占位，不输出任何图形。
type spacerNode struct {
	nodeBase
	size flow.Size
}

func (s *spacerNode) NaturalSize() flow.Size { return s.size }

func (s *spacerNode) emit(*emitter, flow.Rect) {}

type imageNode struct {
	nodeBase
	size  flow.Size
	image ImageBox
}

func (i *imageNode) NaturalSize() flow.Size { return i.size }

func (i *imageNode) emit(out *emitter, bounds flow.Rect) {
	img := i.image
	img.ID = i.id
	img.X, img.Y = bounds.X, bounds.Y
	img.Width, img.Height = bounds.Width, bounds.Height
	out.res.Images = append(out.res.Images, img)
}

// groupNode 是嵌套容器，拥有自己的 flow 引擎。
// 自然宽度：显式 width，否则为不折行时的内容宽度；自然高度为该宽度下的测量高度。
type groupNode struct {
	nodeBase
	engine *flow.Engine
	width  float64
	shape  BoxShape
}

func newGroup(id string) *groupNode {
	return &groupNode{nodeBase: nodeBase{id: id, kind: "group"}, engine: flow.New()}
}

func (g *groupNode) NaturalSize() flow.Size {
	w := g.width
	if w <= 0 {
		w = g.engine.MaxContentWidth()
	}
	return g.engine.Measure(w).PreferredSize()
}

func (g *groupNode) emit(out *emitter, bounds flow.Rect) {
	if g.shape.FillColor != nil || g.shape.StrokeColor != nil {
		shape := g.shape
		shape.ID = g.id
		shape.X, shape.Y = bounds.X, bounds.Y
		shape.Width, shape.Height = bounds.Width, bounds.Height
		out.res.Boxes = append(out.res.Boxes, shape)
	}
	arr := g.engine.Arrange(bounds.Width)
	out.depth++
	g.emitChildren(out, arr, bounds.X, bounds.Y)
	out.depth--
}

func (g *groupNode) emitChildren(out *emitter, arr flow.Arrangement, dx, dy float64) {
	for _, p := range arr.Placements {
		child, ok := p.Element.(node)
		if !ok {
			continue
		}
		abs := p.Bounds
		abs.X += dx
		abs.Y += dy
		out.item(child, p, abs)
		child.emit(out, abs)
	}
}
