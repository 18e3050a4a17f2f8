// Command flowview 在终端中预览 flow 文档，窗口宽度变化时重新排版。
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gdamore/tcell/v2"
	"github.com/muesli/termenv"

	"github.com/forana/blocklayout/dsl"
	"github.com/forana/blocklayout/layout"
	"github.com/forana/blocklayout/renderer/term"
)

func main() {
	input := flag.String("in", "examples/demo.flow", "DSL 文件路径")
	dataJSON := flag.String("data", "", "绑定到 DSL 的 JSON 数据")
	useTcell := flag.Bool("tcell", false, "使用 tcell 事件循环代替 bubbletea")
	plain := flag.Bool("plain", false, "不输出颜色")
	logPath := flag.String("log", "", "日志文件路径")
	flag.Parse()

	events, closeLog, err := openLog(*logPath)
	if err != nil {
		log.Fatalf("打开日志文件失败: %v", err)
	}
	defer closeLog.Close()
	if *plain {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	comp, title, err := load(*input, *dataJSON)
	if err != nil {
		log.Fatalf("加载文档失败: %v", err)
	}

	if *useTcell {
		err = runTcell(comp, *plain, events)
	} else {
		_, err = tea.NewProgram(newModel(comp, title), tea.WithAltScreen()).Run()
	}
	if err != nil {
		log.Fatalf("flowview: %v", err)
	}
}

func load(path, dataJSON string) (*layout.Composition, string, error) {
	var data any
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			return nil, "", fmt.Errorf("解析 data JSON 失败: %w", err)
		}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("无法打开 DSL 文件 %s: %w", path, err)
	}
	defer file.Close()
	doc, err := dsl.Parse(file)
	if err != nil {
		return nil, "", fmt.Errorf("解析 DSL 失败: %w", err)
	}
	comp, err := layout.Compose(doc, data, layout.BuildOptions{Typesetter: term.Typesetter{}})
	if err != nil {
		return nil, "", err
	}
	return comp, doc.Name, nil
}

// openLog 返回事件日志。未指定 path 时丢弃输出，避免写进正在绘制的终端；
// 指定时经 tea.LogToFile 把标准 log 重定向到文件。
func openLog(path string) (*log.Logger, io.Closer, error) {
	if path == "" {
		return log.New(io.Discard, "", 0), io.NopCloser(nil), nil
	}
	f, err := tea.LogToFile(path, "flowview")
	if err != nil {
		return nil, nil, err
	}
	return log.Default(), f, nil
}

// clampOffset 把滚动位置限制在 [0, contentRows-viewRows]。
func clampOffset(offset, contentRows, viewRows int) int {
	return min(max(offset, 0), max(contentRows-viewRows, 0))
}

// runTcell 直接驱动 tcell 屏幕：每次 EventResize 都重新排版并重绘。
func runTcell(comp *layout.Composition, plain bool, events *log.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	offset := 0
	var grid *term.Grid
	redraw := func() {
		screen.Clear()
		if grid != nil {
			if plain {
				drawPlain(screen, grid, -offset)
			} else {
				term.Draw(screen, grid, 0, -offset)
			}
		}
		screen.Show()
	}

	for {
		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			w, h := ev.Size()
			grid = term.Rasterize(comp.Layout(term.WidthForColumns(w)))
			events.Printf("resize: %d cols, %d rows of content", w, grid.Height)
			offset = clampOffset(offset, grid.Height, h)
			screen.Sync()
			redraw()
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
				return nil
			case ev.Key() == tcell.KeyDown, ev.Rune() == 'j':
				offset++
			case ev.Key() == tcell.KeyUp, ev.Rune() == 'k':
				offset--
			}
			if grid != nil {
				_, h := screen.Size()
				offset = clampOffset(offset, grid.Height, h)
			} else {
				offset = 0
			}
			redraw()
		case nil:
			return nil
		}
	}
}

func drawPlain(screen tcell.Screen, g *term.Grid, oy int) {
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if c := g.At(x, y); c.Rune != 0 {
				screen.SetContent(x, oy+y, c.Rune, nil, tcell.StyleDefault)
			}
		}
	}
}
