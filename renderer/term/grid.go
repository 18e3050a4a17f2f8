// Package term 把布局结果栅格化为终端单元格，输出为带样式的字符串或绘制到 tcell 屏幕。
package term

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/forana/blocklayout/layout"
)

// 每个终端单元格对应的毫米数。行高约为列宽的两倍，与常见等宽字体比例一致。
const (
	CellWidth  = 2.0
	CellHeight = 4.0
)

// Columns 返回 widthMM 覆盖的列数（向上取整）。
func Columns(widthMM float64) int { return cells(widthMM, CellWidth) }

// Rows 返回 heightMM 覆盖的行数（向上取整）。
func Rows(heightMM float64) int { return cells(heightMM, CellHeight) }

// WidthForColumns 是 Columns 的逆运算，供终端宿主按窗口列数排版。
func WidthForColumns(cols int) float64 { return float64(cols) * CellWidth }

func cells(mm, unit float64) int {
	if mm <= 0 || math.IsNaN(mm) {
		return 0
	}
	return int(math.Ceil(mm/unit - 1e-9))
}

func col(mm float64) int { return int(math.Floor(mm/CellWidth + 1e-9)) }
func row(mm float64) int { return int(math.Floor(mm/CellHeight + 1e-9)) }

// Cell 是一个终端单元格。Rune 为 0 表示被左侧宽字符占用。
type Cell struct {
	Rune rune
	FG   *layout.Color
	BG   *layout.Color
}

// Grid 是栅格化后的单元格矩阵，按行存储。
type Grid struct {
	Width  int
	Height int
	cells  [][]Cell
}

// NewGrid 创建填满空格的 Grid。
func NewGrid(width, height int) *Grid {
	g := &Grid{Width: max(width, 0), Height: max(height, 0)}
	g.cells = make([][]Cell, g.Height)
	for y := range g.cells {
		g.cells[y] = make([]Cell, g.Width)
		for x := range g.cells[y] {
			g.cells[y][x].Rune = ' '
		}
	}
	return g
}

// At 返回 (x, y) 处的单元格；越界时返回空格。
func (g *Grid) At(x, y int) Cell {
	if !g.inside(x, y) {
		return Cell{Rune: ' '}
	}
	return g.cells[y][x]
}

func (g *Grid) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

func (g *Grid) set(x, y int, r rune, fg *layout.Color) {
	if !g.inside(x, y) {
		return
	}
	c := &g.cells[y][x]
	c.Rune = r
	if fg != nil {
		c.FG = fg
	}
}

func (g *Grid) paint(x0, y0, x1, y1 int, bg *layout.Color) {
	for y := max(y0, 0); y < min(y1, g.Height); y++ {
		for x := max(x0, 0); x < min(x1, g.Width); x++ {
			g.cells[y][x].BG = bg
		}
	}
}

// Lines 返回不带样式的各行文本，行尾空格保留。
func (g *Grid) Lines() []string {
	out := make([]string, g.Height)
	var b strings.Builder
	for y := range g.cells {
		b.Reset()
		for _, c := range g.cells[y] {
			if c.Rune != 0 {
				b.WriteRune(c.Rune)
			}
		}
		out[y] = b.String()
	}
	return out
}

// Rasterize 把布局结果映射到单元格：矩形按背景色与边框绘制，图片用 ░ 占位，文本逐行写入。
func Rasterize(res *layout.Result) *Grid {
	if res == nil {
		return NewGrid(0, 0)
	}
	width := math.Max(res.Frame.ContainerWidth, res.Frame.PreferredWidth)
	g := NewGrid(Columns(width), Rows(res.Frame.PreferredHeight))
	for _, box := range res.Boxes {
		g.drawBox(box)
	}
	for _, img := range res.Images {
		g.drawImage(img)
	}
	for _, tb := range res.Texts {
		g.drawText(tb)
	}
	return g
}

func span(x, w float64) (int, int) {
	start := col(x)
	return start, max(start+Columns(w), start+1)
}

func (g *Grid) drawBox(box layout.BoxShape) {
	x0, x1 := span(box.X, box.Width)
	y0 := row(box.Y)
	y1 := max(y0+Rows(box.Height), y0+1)
	if box.FillColor != nil {
		g.paint(x0, y0, x1, y1, box.FillColor)
	}
	if box.StrokeColor == nil || x1-x0 < 2 || y1-y0 < 2 {
		return
	}
	fg := box.StrokeColor
	for x := x0 + 1; x < x1-1; x++ {
		g.set(x, y0, '─', fg)
		g.set(x, y1-1, '─', fg)
	}
	for y := y0 + 1; y < y1-1; y++ {
		g.set(x0, y, '│', fg)
		g.set(x1-1, y, '│', fg)
	}
	g.set(x0, y0, '┌', fg)
	g.set(x1-1, y0, '┐', fg)
	g.set(x0, y1-1, '└', fg)
	g.set(x1-1, y1-1, '┘', fg)
}

func (g *Grid) drawImage(img layout.ImageBox) {
	x0, x1 := span(img.X, img.Width)
	y0 := row(img.Y)
	y1 := max(y0+Rows(img.Height), y0+1)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			g.set(x, y, '░', nil)
		}
	}
}

func (g *Grid) drawText(tb layout.TextBox) {
	x0, x1 := span(tb.X, tb.Width)
	avail := x1 - x0
	color := tb.Color
	y := tb.Y
	for _, ln := range tb.Lines {
		y += ln.GapBefore
		content := ln.Content
		if runewidth.StringWidth(content) > avail {
			content = runewidth.Truncate(content, avail, "")
		}
		w := runewidth.StringWidth(content)
		x := x0
		switch tb.Align {
		case "right":
			x = x1 - w
		case "center":
			x = x0 + (avail-w)/2
		}
		g.writeString(x, row(y), content, &color)
		y += ln.Height
	}
}

func (g *Grid) writeString(x, y int, s string, fg *layout.Color) {
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		g.set(x, y, r, fg)
		for i := 1; i < w; i++ {
			g.set(x+i, y, 0, fg)
		}
		x += w
	}
}
