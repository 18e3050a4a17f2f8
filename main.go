package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/forana/blocklayout/dsl"
	"github.com/forana/blocklayout/layout"
	"github.com/forana/blocklayout/renderer"
	canvasrenderer "github.com/forana/blocklayout/renderer/canvas"
	"github.com/forana/blocklayout/renderer/term"
)

// options 汇总命令行参数。
type options struct {
	input         string
	output        string
	width         float64 // mm，<=0 时使用文档声明的容器宽度
	hide          []string
	debugPath     string
	debugRawUnits bool
	data          any
}

func main() {
	input := flag.String("in", "examples/demo.flow", "DSL 文件路径")
	output := flag.String("out", "output/demo.pdf", "输出路径，按扩展名选择 .pdf/.svg/.txt")
	width := flag.String("width", "", "覆盖容器宽度，例如 90mm")
	hide := flag.String("hide", "", "排版前移除的元素 id，逗号分隔")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	debugRawUnits := flag.Bool("debug-raw-units", false, "在调试 JSON 中输出 debug.rawUnits 影子字段")
	dataJSON := flag.String("data", "", "绑定到 DSL 的 JSON 数据")
	dataFile := flag.String("data-file", "", "绑定到 DSL 的 JSON 文件")
	flag.Parse()

	opts := options{
		input:         *input,
		output:        *output,
		debugPath:     *debug,
		debugRawUnits: *debugRawUnits,
	}
	if *width != "" {
		l, ok := layout.ParseLength(*width)
		if !ok || l.Unit == layout.UnitPercent || l.ToMM() <= 0 {
			log.Fatalf("容器宽度无效: %s", *width)
		}
		opts.width = l.ToMM()
	}
	if *hide != "" {
		opts.hide = strings.Split(*hide, ",")
	}

	raw := []byte(*dataJSON)
	if *dataFile != "" {
		b, err := os.ReadFile(*dataFile)
		if err != nil {
			log.Fatalf("读取 data 文件失败: %v", err)
		}
		raw = b
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &opts.data); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	if err := run(opts); err != nil {
		log.Fatalf("生成失败: %v", err)
	}
	fmt.Printf("已生成：%s\n", opts.output)
}

// rendererFor 根据输出扩展名选择渲染器；渲染器同时负责文本测量。
func rendererFor(outputPath, baseDir string) (renderer.Renderer, layout.Typesetter, error) {
	if strings.EqualFold(filepath.Ext(outputPath), ".txt") {
		// 写入文件时不输出 ANSI 转义序列
		lipgloss.SetColorProfile(termenv.Ascii)
		return term.Renderer{}, term.Typesetter{}, nil
	}
	format, ok := canvasrenderer.FormatForPath(outputPath)
	if !ok {
		return nil, nil, fmt.Errorf("不支持的输出格式：%s", outputPath)
	}
	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{BaseDir: baseDir, Format: format})
	return r, r, nil
}

// run 串联解析、布局与渲染。
func run(opts options) error {
	baseDir := filepath.Dir(opts.input)
	r, ts, err := rendererFor(opts.output, baseDir)
	if err != nil {
		return err
	}

	file, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("无法打开 DSL 文件 %s: %w", opts.input, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return fmt.Errorf("解析 DSL 失败: %w", err)
	}

	comp, err := layout.Compose(doc, opts.data, layout.BuildOptions{
		Typesetter: ts,
		Debug:      layout.DebugOptions{RawUnits: opts.debugRawUnits},
		BaseDir:    baseDir,
	})
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}
	for _, id := range opts.hide {
		if id = strings.TrimSpace(id); id != "" && !comp.Hide(id) {
			return fmt.Errorf("无法隐藏元素 %s：id 不存在", id)
		}
	}
	result := comp.Layout(opts.width)

	if opts.debugPath != "" {
		if err := writeDebug(result, opts.debugPath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(opts.output), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	out, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if err := os.WriteFile(opts.output, out, 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
