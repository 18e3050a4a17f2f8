package term

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/forana/blocklayout/layout"
	"github.com/forana/blocklayout/renderer"
)

// Typesetter 按终端显示宽度测量文本：一列 CellWidth，一行 CellHeight，忽略字体与字号。
type Typesetter struct{}

var _ layout.Typesetter = Typesetter{}

func (Typesetter) LayoutLines(content string, _ layout.FontResource, _, _ float64) ([]layout.TextLine, error) {
	parts := strings.Split(strings.ReplaceAll(content, "\r", ""), "\n")
	lines := make([]layout.TextLine, 0, len(parts))
	for _, part := range parts {
		lines = append(lines, layout.TextLine{
			Content: part,
			Width:   float64(runewidth.StringWidth(part)) * CellWidth,
			Height:  CellHeight,
		})
	}
	return lines, nil
}

// Renderer 输出带 ANSI 样式的文本，颜色深度由 lipgloss 当前的颜色配置决定。
type Renderer struct{}

var _ renderer.Renderer = Renderer{}

func (Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	return []byte(Styled(Rasterize(result))), nil
}

// Styled 把相同样式的连续单元格合并后交给 lipgloss 渲染，各行以 \n 连接。
func Styled(g *Grid) string {
	rows := make([]string, g.Height)
	var run strings.Builder
	for y := 0; y < g.Height; y++ {
		var line strings.Builder
		var current Cell
		flush := func() {
			if run.Len() == 0 {
				return
			}
			line.WriteString(styleFor(current).Render(run.String()))
			run.Reset()
		}
		for x := 0; x < g.Width; x++ {
			c := g.At(x, y)
			if x == 0 || !sameStyle(c, current) {
				flush()
				current = c
			}
			if c.Rune != 0 {
				run.WriteRune(c.Rune)
			}
		}
		flush()
		rows[y] = line.String()
	}
	return strings.Join(rows, "\n")
}

func sameStyle(a, b Cell) bool {
	return sameColor(a.FG, b.FG) && sameColor(a.BG, b.BG)
}

func sameColor(a, b *layout.Color) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func styleFor(c Cell) lipgloss.Style {
	style := lipgloss.NewStyle()
	if c.FG != nil {
		style = style.Foreground(lipgloss.Color(hex(*c.FG)))
	}
	if c.BG != nil {
		style = style.Background(lipgloss.Color(hex(*c.BG)))
	}
	return style
}

func hex(c layout.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Draw 把 Grid 绘制到 tcell 屏幕的 (ox, oy) 位置，超出屏幕的部分被裁掉。调用方负责 Show。
func Draw(screen tcell.Screen, g *Grid, ox, oy int) {
	sw, sh := screen.Size()
	for y := 0; y < g.Height && oy+y < sh; y++ {
		for x := 0; x < g.Width && ox+x < sw; x++ {
			c := g.At(x, y)
			if c.Rune == 0 {
				continue
			}
			style := tcell.StyleDefault
			if c.FG != nil {
				style = style.Foreground(tcellColor(*c.FG))
			}
			if c.BG != nil {
				style = style.Background(tcellColor(*c.BG))
			}
			screen.SetContent(ox+x, oy+y, c.Rune, nil, style)
		}
	}
}

func tcellColor(c layout.Color) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
