package layout

// BuildOptions 配置排版阶段所需的依赖。
type BuildOptions struct {
	Typesetter Typesetter
	Debug      DebugOptions
	// BaseDir 用于解析图片等相对路径，以读取图片像素尺寸。
	BaseDir string
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	RawUnits bool // 在调试 JSON 中输出 debug.rawUnits 影子字段
}

// Typesetter 负责测量文本：按显式换行拆分成行，并给出每行的宽高（mm）。
// 单个元素内部不做自动折行。
type Typesetter interface {
	LayoutLines(content string, font FontResource, fontSize, lineHeight float64) ([]TextLine, error)
}
