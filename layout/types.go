package layout

import "github.com/forana/blocklayout/flow"

// 该文件定义布局结果与资源描述，供布局计算、渲染与调试 JSON 共用。
// 所有坐标与尺寸均以毫米（mm）为单位，原点为容器左上角。

// Result 保存一次排版后的容器尺寸、已定位元素与资源信息。
type Result struct {
	Frame     Frame        `json:"frame"`
	Texts     []TextBox    `json:"texts"`
	Boxes     []BoxShape   `json:"boxes"`
	Images    []ImageBox   `json:"images"`
	Items     []Item       `json:"items"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
}

// Frame 记录容器宽度与 flow 引擎测量出的尺寸。
type Frame struct {
	ContainerWidth  float64 `json:"containerWidth"`
	MinimumWidth    float64 `json:"minimumWidth"`
	PreferredWidth  float64 `json:"preferredWidth"`
	PreferredHeight float64 `json:"preferredHeight"`
	Lines           int     `json:"lines"`
}

// Item 是每个元素的定位记录（含嵌套 group 内的元素），主要用于调试输出。
type Item struct {
	ID      string    `json:"id,omitempty"`
	Kind    string    `json:"kind"`
	Mode    string    `json:"mode"`
	Depth   int       `json:"depth"`
	Line    int       `json:"line"`
	Natural flow.Size `json:"natural"`
	Bounds  flow.Rect `json:"bounds"`
}

// ResourceSet 记录解析出的字体、颜色、图片与样式定义。
type ResourceSet struct {
	Fonts  map[string]FontResource  `json:"fonts"`
	Colors map[string]Color         `json:"colors"`
	Images map[string]ImageResource `json:"images"`
	Styles map[string]Style         `json:"styles"`
}

// FontResource 描述字体资源，src 可以是文件路径、builtin:<name> 或 embed:<name>。
type FontResource struct {
	Name     string `json:"name"`
	Src      string `json:"src"`
	Style    string `json:"style"`
	Family   string `json:"family"`
	Fallback string `json:"fallback,omitempty"`
}

// ImageResource 记录图片资源；宽高为 0 时由图片本身的像素与 DPI 推算。
type ImageResource struct {
	Name   string  `json:"name"`
	Src    string  `json:"src"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	DPI    int     `json:"dpi"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Style 是可继承的属性集合（extends 已在解析阶段展开）。
type Style struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// DocumentMeta 保存输出文件的元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// TextBox 表示一个已经定位的文本元素。Lines 只按显式换行拆分。
type TextBox struct {
	ID         string        `json:"id,omitempty"`
	Content    string        `json:"content"`
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	Width      float64       `json:"width"`
	Height     float64       `json:"height"`
	LineHeight float64       `json:"lineHeight"`
	Font       string        `json:"font"`
	FontSize   float64       `json:"fontSize"`
	Color      Color         `json:"color"`
	Lines      []TextLine    `json:"lines"`
	Align      string        `json:"align,omitempty"`   // left/center/right，默认 left
	Clipped    bool          `json:"clipped,omitempty"` // 分配宽度小于自然宽度，超出部分截断
	Debug      *TextBoxDebug `json:"debug,omitempty"`
}

// TextLine 表示一行文本及其宽高。
type TextLine struct {
	Content   string  `json:"content"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	GapBefore float64 `json:"gapBefore,omitempty"`
}

// TextBoxDebug 仅在 DebugOptions.RawUnits 打开时输出。
type TextBoxDebug struct {
	RawUnits *RawUnits `json:"rawUnits,omitempty"`
}

// RawUnits 记录作者书写时的原始单位。
type RawUnits struct {
	FontSize   *RawLengthJSON     `json:"fontSize,omitempty"`
	LineHeight *RawLineHeightJSON `json:"lineHeight,omitempty"`
}

type RawLengthJSON struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type RawLineHeightJSON struct {
	Kind   string  `json:"kind"` // "factor" | "absolute"
	Factor float64 `json:"factor,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Unit   string  `json:"unit,omitempty"`
}

// BoxShape 是 box/group 绘制的矩形。
type BoxShape struct {
	ID          string  `json:"id,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	FillColor   *Color  `json:"fillColor,omitempty"` // 为空表示不填充
	StrokeColor *Color  `json:"strokeColor,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"` // mm，<=0 时由渲染器给默认值
}

// ImageBox 描述图片位置与尺寸。
type ImageBox struct {
	ID      string  `json:"id,omitempty"`
	Path    string  `json:"path"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Opacity float64 `json:"opacity"`
}
