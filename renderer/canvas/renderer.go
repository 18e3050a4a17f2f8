package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"
	_ "golang.org/x/image/webp"

	"github.com/forana/blocklayout/fonts"
	"github.com/forana/blocklayout/layout"
	"github.com/forana/blocklayout/renderer"
)

// defaultStrokeWidth 用于未声明 stroke-width 的描边（mm）。
const defaultStrokeWidth = 0.2

// Format 是输出格式。
type Format string

const (
	FormatPDF Format = "pdf"
	FormatSVG Format = "svg"
)

// Renderer draws layout results via github.com/tdewolff/canvas onto a single
// page sized to the container.
type Renderer struct {
	baseDir string
	format  Format

	// injected resources
	fontBlobs  map[string][]byte // by unique name
	imageBlobs map[string][]byte // by unique name

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Format  Format              // pdf（默认）或 svg
	Fonts   map[string]Resource // fonts reachable via builtin:<name>, checked before the bundled ones
	Images  map[string]Resource // images reachable via builtin:<name>
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a PDF renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		format:       opts.Format,
		fontBlobs:    ingest(opts.Fonts),
		imageBlobs:   ingest(opts.Images),
		fontFamilies: map[string]*fontFamilyEntry{},
	}
	if r.format == "" {
		r.format = FormatPDF
	}
	return r
}

// ingest 读取注入的资源；读取失败的条目直接跳过，使用时再报错。
func ingest(resources map[string]Resource) map[string][]byte {
	out := map[string][]byte{}
	for name, res := range resources {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			out[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			if data, _ := os.ReadFile(res.Path); len(data) > 0 {
				out[name] = data
			}
		}
	}
	return out
}

// FormatForPath 根据文件扩展名选择输出格式。
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, true
	case ".svg":
		return FormatSVG, true
	default:
		return "", false
	}
}

// Render draws the result onto one page whose width is the container width
// (or the preferred width when blocks are wider) and whose height is the
// preferred height.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	width := math.Max(result.Frame.ContainerWidth, result.Frame.PreferredWidth)
	height := result.Frame.PreferredHeight
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("容器尺寸无效：%gx%g mm", width, height)
	}

	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
	if err := r.draw(ctx, result); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch r.format {
	case FormatSVG:
		writer := svg.New(&buf, width, height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 SVG 失败: %w", err)
		}
	case FormatPDF:
		writer := pdf.New(&buf, width, height, nil)
		applyMeta(writer, result.Meta)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 PDF 失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的输出格式 %q", r.format)
	}
	return buf.Bytes(), nil
}

func applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// LayoutLines 实现 layout.Typesetter：只按显式换行拆分，宽度取字体测量值。
// fontSize/lineHeight 入参均为毫米（mm），创建字体面时换算为 pt。
func (r *Renderer) LayoutLines(content string, font layout.FontResource, fontSize, lineHeight float64) ([]layout.TextLine, error) {
	face, err := r.fontFace(font, toPt(fontSize), layout.Color{R: 30, G: 30, B: 30})
	if err != nil {
		return nil, err
	}
	textHeight := face.Metrics().LineHeight
	if textHeight <= 0 {
		textHeight = lineHeight
	}
	leading := math.Max(lineHeight-textHeight, 0)

	parts := strings.Split(strings.ReplaceAll(content, "\r", ""), "\n")
	lines := make([]layout.TextLine, 0, len(parts))
	for i, part := range parts {
		ln := layout.TextLine{
			Content: part,
			Width:   face.TextWidth(part),
			Height:  textHeight,
		}
		if i > 0 {
			ln.GapBefore = leading
		}
		lines = append(lines, ln)
	}
	return lines, nil
}

// draw 依次绘制矩形（group 背景在其子元素之前）、图片与文本。
func (r *Renderer) draw(ctx *canvas.Context, result *layout.Result) error {
	for _, box := range result.Boxes {
		drawBox(ctx, box)
	}
	if err := r.drawImages(ctx, result.Images); err != nil {
		return err
	}
	for _, tb := range result.Texts {
		fontRes := resolveFontResource(tb.Font, result.Resources.Fonts)
		if err := r.drawTextBox(ctx, tb, fontRes); err != nil {
			return err
		}
	}
	return nil
}

func drawBox(ctx *canvas.Context, box layout.BoxShape) {
	if box.Width <= 0 || box.Height <= 0 {
		return
	}
	if box.FillColor != nil {
		ctx.SetFillColor(colorFromLayout(*box.FillColor))
	} else {
		ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	}
	if box.StrokeColor != nil {
		w := box.StrokeWidth
		if w <= 0 {
			w = defaultStrokeWidth
		}
		ctx.SetStrokeColor(colorFromLayout(*box.StrokeColor))
		ctx.SetStrokeWidth(w)
	} else {
		ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
		ctx.SetStrokeWidth(0)
	}
	ctx.DrawPath(box.X, box.Y, canvas.Rectangle(box.Width, box.Height))
}

func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox, fontRes layout.FontResource) error {
	// TextBox 的坐标/字号/行高均为 mm；创建字体面需要 pt，这里做一次 mm→pt。
	face, err := r.fontFace(fontRes, toPt(tb.FontSize), tb.Color)
	if err != nil {
		return err
	}

	lines := tb.Lines
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: tb.Content, Width: tb.Width, Height: tb.LineHeight}}
	}

	var textAlign canvas.TextAlign
	var anchorX float64
	switch tb.Align {
	case "center":
		textAlign = canvas.Center
		anchorX = tb.X + tb.Width/2
	case "right":
		textAlign = canvas.Right
		anchorX = tb.X + tb.Width
	default:
		textAlign = canvas.Left
		anchorX = tb.X
	}

	ascent := face.Metrics().Ascent
	cursorY := tb.Y
	for _, line := range lines {
		cursorY += line.GapBefore
		content := line.Content
		if tb.Clipped {
			content = truncateToWidth(face, content, tb.Width)
		}
		if content != "" {
			ctx.DrawText(anchorX, cursorY+ascent, canvas.NewTextLine(face, content, textAlign))
		}
		h := line.Height
		if h <= 0 {
			h = tb.FontSize
		}
		cursorY += h
	}
	return nil
}

// truncateToWidth 从末尾逐字删除，直到文本宽度不超过 width。
func truncateToWidth(face *canvas.FontFace, s string, width float64) string {
	if face.TextWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && face.TextWidth(string(runes)) > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}

func (r *Renderer) drawImages(ctx *canvas.Context, images []layout.ImageBox) error {
	for _, img := range images {
		if img.Path == "" || img.Width <= 0 || img.Height <= 0 {
			continue
		}
		data, err := r.loadImage(img.Path)
		if err != nil {
			return err
		}
		if img.Opacity < 1 {
			data = fade(data, img.Opacity)
		}
		dpmm := float64(data.Bounds().Dx()) / img.Width
		if dpmm <= 0 {
			dpmm = 1
		}
		ctx.DrawImage(img.X, img.Y, data, canvas.DPMM(dpmm))
	}
	return nil
}

func (r *Renderer) loadImage(orig string) (image.Image, error) {
	// built-in resources take precedence
	if strings.HasPrefix(orig, "builtin:") {
		name := strings.TrimPrefix(orig, "builtin:")
		blob, ok := r.imageBlobs[name]
		if !ok {
			return nil, fmt.Errorf("找不到内置图片资源 builtin:%s", name)
		}
		img, _, err := image.Decode(bytes.NewReader(blob))
		if err != nil {
			return nil, fmt.Errorf("解码内置图片 builtin:%s 失败: %w", name, err)
		}
		return img, nil
	}
	if strings.HasPrefix(orig, "embed:") {
		return nil, fmt.Errorf("图片资源 %s 未找到（embed 仅支持内置字体）", orig)
	}
	if r.baseDir == "" && !filepath.IsAbs(orig) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用路径：%s（请改用 builtin:）", orig)
	}
	path := orig
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取图片 %s 失败: %w", orig, err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", orig, err)
	}
	return img, nil
}

// fade 返回按 opacity 缩放 alpha 后的副本。
func fade(src image.Image, opacity float64) image.Image {
	dst := image.NewNRGBA(src.Bounds())
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(math.Max(opacity, 0) * 255))})
	draw.DrawMask(dst, dst.Bounds(), src, src.Bounds().Min, mask, image.Point{}, draw.Over)
	return dst
}

func (r *Renderer) fontFace(font layout.FontResource, size float64, col layout.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(size, colorFromLayout(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := fontCacheKey(font)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	style := parseFontStyle(font.Style)
	familyName := font.Family
	if familyName == "" {
		familyName = font.Name
	}
	if familyName == "" {
		familyName = "Body"
	}
	family := canvas.NewFontFamily(familyName)

	err := r.loadFontIntoFamily(family, font.Src, style)
	if err != nil && font.Fallback != "" {
		err = r.loadFontIntoFamily(family, font.Fallback, style)
	}
	if err != nil {
		fallback, fbErr := r.fallback()
		if fbErr != nil {
			return nil, canvas.FontRegular, err
		}
		r.fontFamilies[key] = &fontFamilyEntry{family: fallback, style: canvas.FontRegular}
		return fallback, canvas.FontRegular, nil
	}

	r.fontFamilies[key] = &fontFamilyEntry{family: family, style: style}
	return family, style, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, src string, style canvas.FontStyle) error {
	data, err := r.loadFontBytes(src)
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, style)
}

func (r *Renderer) loadFontBytes(src string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("字体缺少 src")
	}
	if fonts.IsBuiltin(src) {
		name := strings.TrimPrefix(strings.TrimPrefix(src, "builtin:"), "embed:")
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return fonts.Load(name)
	}
	path := src
	if r.baseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 builtin:）", src)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	return os.ReadFile(path)
}

// fallback 在调用方持有 fontMu 时使用。
func (r *Renderer) fallback() (*canvas.FontFamily, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("blocklayout-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	r.fallbackFamily = family
	return family, nil
}

func resolveFontResource(name string, set map[string]layout.FontResource) layout.FontResource {
	if font, ok := set[name]; ok {
		return font
	}
	if font, ok := set["Body"]; ok {
		return font
	}
	if len(set) > 0 {
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		sort.Strings(names)
		return set[names[0]]
	}
	return layout.FontResource{Name: "Body", Src: "builtin:" + fonts.Default}
}

func parseFontStyle(style string) canvas.FontStyle {
	s := strings.ToLower(style)
	var result canvas.FontStyle
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	default:
		result = canvas.FontRegular
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func fontCacheKey(font layout.FontResource) string {
	return fmt.Sprintf("%s|%s|%s|%s", font.Name, font.Src, font.Style, font.Fallback)
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }
