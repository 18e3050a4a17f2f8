// Package renderer 定义排版结果的输出后端：canvas 输出 PDF/SVG，term 输出终端文本。
package renderer

import "github.com/forana/blocklayout/layout"

// Renderer 把一次排版的结果（单一容器帧）编码为输出字节。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}
