package layout

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/webp"
	"golang.org/x/text/unicode/norm"

	"github.com/forana/blocklayout/binding"
	"github.com/forana/blocklayout/dsl"
	"github.com/forana/blocklayout/flow"
)

const (
	// defaultContainerWidth 为 A4 宽度减去左右各 20mm 边距。
	defaultContainerWidth = 170.0
	defaultFontSize       = 12 * PtToMm
	defaultImageWidth     = 40.0
	defaultImageDPI       = 96
)

// Composition 是解析后的文档：容器内的元素已转换为 flow 元素，
// 可以在不同容器宽度下反复排版。不支持并发调用。
type Composition struct {
	root      *groupNode
	width     float64
	resources ResourceSet
	meta      DocumentMeta
	ids       map[string]*member
}

// member 记录带 id 的元素及其所在的引擎，用于 Hide / SetText。
type member struct {
	parent *groupNode
	node   node
}

// Build 解析文档并按声明的容器宽度完成一次排版。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	comp, err := Compose(doc, data, opts)
	if err != nil {
		return nil, err
	}
	return comp.Layout(0), nil
}

// Compose 根据 DSL AST 构建元素树，但不做排版。
func Compose(doc *dsl.Document, data any, opts BuildOptions) (*Composition, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("layout: 缺少排版后端 Typesetter")
	}
	container := doc.Container()
	if container == nil {
		return nil, fmt.Errorf("文档中缺少 container 段落")
	}
	if container.Block == nil {
		return nil, fmt.Errorf("container 段落缺少内容")
	}

	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	width, err := resolveContainerWidth(container.Params)
	if err != nil {
		return nil, err
	}

	c := &composer{
		res:   res,
		data:  data,
		opts:  opts,
		width: width,
		ids:   map[string]*member{},
	}
	root := newGroup("")
	if err := c.fill(root, container.Block); err != nil {
		return nil, err
	}
	return &Composition{
		root:      root,
		width:     width,
		resources: res,
		meta:      collectMeta(doc),
		ids:       c.ids,
	}, nil
}

// Width 返回文档声明的容器宽度（mm）。
func (c *Composition) Width() float64 { return c.width }

// Layout 在给定容器宽度下排版；width <= 0 时使用文档声明的宽度。
func (c *Composition) Layout(width float64) *Result {
	if width <= 0 {
		width = c.width
	}
	arr := c.root.engine.Arrange(width)
	res := &Result{
		Frame: Frame{
			ContainerWidth:  width,
			MinimumWidth:    arr.MinimumWidth,
			PreferredWidth:  arr.PreferredWidth,
			PreferredHeight: arr.PreferredHeight,
			Lines:           arr.Lines,
		},
		Resources: c.resources,
		Meta:      c.meta,
	}
	c.root.emitChildren(&emitter{res: res}, arr, 0, 0)
	return res
}

// Measure 只测量不定位。
func (c *Composition) Measure(width float64) flow.Metrics {
	if width <= 0 {
		width = c.width
	}
	return c.root.engine.Measure(width)
}

// Hide 从所在容器中移除带 id 的元素；id 不存在或已移除时返回 false。
func (c *Composition) Hide(id string) bool {
	m, ok := c.ids[id]
	if !ok {
		return false
	}
	return m.parent.engine.Remove(m.node)
}

// SetText 替换文本元素内容并重新测量其自然尺寸，下次排版即生效。
func (c *Composition) SetText(id, content string) error {
	m, ok := c.ids[id]
	if !ok {
		return fmt.Errorf("元素 %s 不存在", id)
	}
	t, ok := m.node.(*textNode)
	if !ok {
		return fmt.Errorf("元素 %s 不是 text", id)
	}
	return t.typeset(content)
}

type composer struct {
	res   ResourceSet
	data  any
	opts  BuildOptions
	width float64 // 根容器宽度，用于解析百分比
	ids   map[string]*member
}

// fill 依次处理 block 内的元素命令，加入 group 的引擎。
func (c *composer) fill(group *groupNode, block *dsl.Block) error {
	for _, stmt := range block.Statements {
		if stmt.Command == nil {
			continue
		}
		cmd := stmt.Command
		var (
			n    node
			mode flow.Mode
			err  error
		)
		switch cmd.Name {
		case "text":
			n, mode, err = c.text(cmd)
		case "box":
			n, mode, err = c.box(cmd)
		case "spacer":
			n, mode, err = c.spacer(cmd)
		case "image":
			n, mode, err = c.image(cmd)
		case "group":
			n, mode, err = c.group(cmd)
		default:
			// 其余命令暂未实现，忽略即可
			continue
		}
		if err != nil {
			return fmt.Errorf("%s (%s): %w", cmd.Name, cmd.Pos, err)
		}
		if id := n.base().id; id != "" {
			if _, dup := c.ids[id]; dup {
				return fmt.Errorf("%s (%s): id %s 重复", cmd.Name, cmd.Pos, id)
			}
			c.ids[id] = &member{parent: group, node: n}
		}
		group.engine.Add(n, mode)
	}
	return nil
}

func (c *composer) isStyle(name string) bool {
	_, ok := c.res.Styles[name]
	return ok
}

func (c *composer) args(cmd *dsl.Command, isRef func(string) bool) (commandArgs, map[string]string, error) {
	args, err := parseArgs(cmd.Args, isRef)
	if err != nil {
		return args, nil, err
	}
	return args, mergeStyleAttributes(args.ref, args.attrs, c.res.Styles), nil
}

func (c *composer) text(cmd *dsl.Command) (node, flow.Mode, error) {
	args, attrs, err := c.args(cmd, func(name string) bool {
		_, font := c.res.Fonts[name]
		return font || c.isStyle(name)
	})
	if err != nil {
		return nil, 0, err
	}
	content := extractText(cmd.Block)
	if content == "" {
		return nil, 0, fmt.Errorf("text 语句缺少文本内容")
	}

	fontName := attrs["font"]
	if fontName == "" {
		fontName = args.ref
	}
	font, err := resolveFontResource(fontName, c.res)
	if err != nil {
		return nil, 0, err
	}
	fontSize := parseMM(attrs["size"], 0)
	if fontSize <= 0 {
		fontSize = defaultFontSize
	}
	lhSpec, ok := ParseLineHeight(attrs["line-height"])
	if !ok {
		lhSpec = LineHeightSpec{Kind: LineHeightFactor, Factor: defaultLineHeightFactor}
	}

	t := &textNode{
		nodeBase: nodeBase{id: attrs["id"], kind: "text"},
		width:    parseMM(attrs["width"], c.width),
		ts:       c.opts.Typesetter,
		data:     c.data,
		font:     font,
		box: TextBox{
			LineHeight: lhSpec.Resolve(fontSize),
			Font:       font.Name,
			FontSize:   fontSize,
			Color:      resolveColor(attrs["color"], c.res),
			Align:      normalizeAlign(attrs["align"]),
		},
	}
	if c.opts.Debug.RawUnits {
		t.box.Debug = &TextBoxDebug{RawUnits: rawUnits(attrs)}
	}
	if err := t.typeset(content); err != nil {
		return nil, 0, err
	}
	return t, displayMode(args, attrs), nil
}

// typeset 插值、规范化并测量文本，更新自然尺寸。
func (t *textNode) typeset(content string) error {
	content = norm.NFC.String(binding.Interpolate(content, t.data))
	lines, err := t.ts.LayoutLines(content, t.font, t.box.FontSize, t.box.LineHeight)
	if err != nil {
		return fmt.Errorf("测量文本失败: %w", err)
	}
	if len(lines) == 0 {
		lines = []TextLine{{Content: "", Height: t.box.FontSize}}
	}
	leading := math.Max(t.box.LineHeight-t.box.FontSize, 0)
	total := 0.0
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = t.box.FontSize
		}
		if i == 0 {
			lines[i].GapBefore = 0
		} else if lines[i].GapBefore <= 0 {
			lines[i].GapBefore = leading
		}
		total += lines[i].GapBefore + lines[i].Height
	}
	t.box.Content = content
	t.box.Lines = lines
	t.box.Height = total
	return nil
}

func rawUnits(attrs map[string]string) *RawUnits {
	size := RawLengthJSON{Value: 12, Unit: "pt"}
	if l, ok := ParseLength(attrs["size"]); ok && l.Value > 0 && l.Unit != UnitNone {
		size = RawLengthJSON{Value: l.Value, Unit: l.Unit.String()}
	}
	lh := RawLineHeightJSON{Kind: "factor", Factor: defaultLineHeightFactor}
	if spec, ok := ParseLineHeight(attrs["line-height"]); ok {
		if spec.Kind == LineHeightFactor {
			lh = RawLineHeightJSON{Kind: "factor", Factor: spec.Factor}
		} else {
			lh = RawLineHeightJSON{Kind: "absolute", Value: spec.Len.Value, Unit: spec.Len.Unit.String()}
		}
	}
	return &RawUnits{FontSize: &size, LineHeight: &lh}
}

func (c *composer) box(cmd *dsl.Command) (node, flow.Mode, error) {
	args, attrs, err := c.args(cmd, c.isStyle)
	if err != nil {
		return nil, 0, err
	}
	b := &boxNode{
		nodeBase: nodeBase{id: attrs["id"], kind: "box"},
		size:     c.size(attrs),
		shape:    c.shape(attrs),
	}
	return b, displayMode(args, attrs), nil
}

func (c *composer) spacer(cmd *dsl.Command) (node, flow.Mode, error) {
	args, attrs, err := c.args(cmd, c.isStyle)
	if err != nil {
		return nil, 0, err
	}
	s := &spacerNode{
		nodeBase: nodeBase{id: attrs["id"], kind: "spacer"},
		size:     c.size(attrs),
	}
	return s, displayMode(args, attrs), nil
}

func (c *composer) group(cmd *dsl.Command) (node, flow.Mode, error) {
	args, attrs, err := c.args(cmd, c.isStyle)
	if err != nil {
		return nil, 0, err
	}
	if cmd.Block == nil {
		return nil, 0, fmt.Errorf("group 语句缺少子内容")
	}
	g := newGroup(attrs["id"])
	g.width = parseMM(attrs["width"], c.width)
	g.shape = c.shape(attrs)
	if err := c.fill(g, cmd.Block); err != nil {
		return nil, 0, err
	}
	return g, displayMode(args, attrs), nil
}

func (c *composer) image(cmd *dsl.Command) (node, flow.Mode, error) {
	args, attrs, err := c.args(cmd, func(name string) bool {
		_, img := c.res.Images[name]
		return img || c.isStyle(name)
	})
	if err != nil {
		return nil, 0, err
	}

	name := args.ref
	if attrs["image"] != "" {
		name = attrs["image"]
	}
	img := ImageBox{Opacity: 1}
	var declared flow.Size
	dpi := defaultImageDPI
	if resImg, ok := c.res.Images[name]; ok {
		img.Path = resImg.Src
		declared = flow.Size{Width: resImg.Width, Height: resImg.Height}
		if resImg.DPI > 0 {
			dpi = resImg.DPI
		}
	}
	if attrs["src"] != "" {
		img.Path = attrs["src"]
	}
	if img.Path == "" {
		return nil, 0, fmt.Errorf("image 语句缺少资源或 src")
	}
	if v, err := strconv.Atoi(attrs["dpi"]); err == nil && v > 0 {
		dpi = v
	}
	if v := attrs["opacity"]; v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			img.Opacity = math.Min(math.Max(f, 0), 1)
		}
	}
	if w := parseMM(attrs["width"], c.width); w > 0 {
		declared.Width = w
	}
	if h := parseMM(attrs["height"], c.width); h > 0 {
		declared.Height = h
	}

	n := &imageNode{
		nodeBase: nodeBase{id: attrs["id"], kind: "image"},
		size:     c.imageSize(img.Path, dpi, declared),
		image:    img,
	}
	return n, displayMode(args, attrs), nil
}

// imageSize 补全未声明的宽高：优先按图片像素与 DPI 推算，保持宽高比；
// 读不到图片时使用默认尺寸。
func (c *composer) imageSize(path string, dpi int, declared flow.Size) flow.Size {
	if declared.Width > 0 && declared.Height > 0 {
		return declared
	}
	natural, ok := c.decodeImageSize(path, dpi)
	if !ok {
		natural = flow.Size{Width: defaultImageWidth, Height: defaultImageWidth * 0.6}
	}
	switch {
	case declared.Width > 0 && natural.Width > 0:
		return flow.Size{Width: declared.Width, Height: declared.Width * natural.Height / natural.Width}
	case declared.Height > 0 && natural.Height > 0:
		return flow.Size{Width: declared.Height * natural.Width / natural.Height, Height: declared.Height}
	default:
		return natural
	}
}

func (c *composer) decodeImageSize(path string, dpi int) (flow.Size, bool) {
	if path == "" || strings.HasPrefix(path, "builtin:") || strings.HasPrefix(path, "embed:") {
		return flow.Size{}, false
	}
	if !filepath.IsAbs(path) {
		if c.opts.BaseDir == "" {
			return flow.Size{}, false
		}
		path = filepath.Join(c.opts.BaseDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return flow.Size{}, false
	}
	defer file.Close()
	cfg, _, err := image.DecodeConfig(file)
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return flow.Size{}, false
	}
	mmPerPx := 25.4 / float64(dpi)
	return flow.Size{Width: float64(cfg.Width) * mmPerPx, Height: float64(cfg.Height) * mmPerPx}, true
}

func (c *composer) size(attrs map[string]string) flow.Size {
	return flow.Size{
		Width:  parseMM(attrs["width"], c.width),
		Height: parseMM(attrs["height"], c.width),
	}
}

func (c *composer) shape(attrs map[string]string) BoxShape {
	return BoxShape{
		FillColor:   optionalColor(attrs["fill"], c.res),
		StrokeColor: optionalColor(attrs["stroke"], c.res),
		StrokeWidth: parseMM(attrs["stroke-width"], 0),
	}
}

func resolveContainerWidth(params []*dsl.Lexeme) (float64, error) {
	width := defaultContainerWidth
	for i := 0; i < len(params); i++ {
		if params[i].Value != "width" {
			continue
		}
		if i+1 >= len(params) {
			return 0, fmt.Errorf("container width 缺少取值")
		}
		l, ok := ParseLength(params[i+1].Value)
		if !ok || l.Unit == UnitPercent || l.ToMM() <= 0 {
			return 0, fmt.Errorf("container width 无效：%s", params[i+1].Value)
		}
		width = l.ToMM()
		i++
	}
	return width, nil
}

func resolveFontResource(name string, res ResourceSet) (FontResource, error) {
	if font, ok := res.Fonts[name]; ok {
		return font, nil
	}
	if font, ok := res.Fonts["Body"]; ok {
		return font, nil
	}
	// 没有 Body 时取名称排序后的第一个，保证每次运行结果一致
	if names := sortedFontNames(res.Fonts); len(names) > 0 {
		return res.Fonts[names[0]], nil
	}
	return FontResource{}, fmt.Errorf("字体 %s 未定义，且没有可用的默认字体", name)
}

func sortedFontNames(set map[string]FontResource) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
