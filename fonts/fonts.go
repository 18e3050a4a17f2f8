// Package fonts 提供内置字体数据，文档中以 builtin:<name> 引用。
package fonts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Default 是未指定或找不到字体时使用的内置字体。
const Default = "lmroman"

var builtin = map[string][]byte{
	"lmroman":            lmroman10regular.TTF,
	"lmroman-bold":       lmroman10bold.TTF,
	"lmroman-italic":     lmroman10italic.TTF,
	"lmroman-bolditalic": lmroman10bolditalic.TTF,
	"go":                 goregular.TTF,
	"go-bold":            gobold.TTF,
	"go-italic":          goitalic.TTF,
	"go-mono":            gomono.TTF,
}

// IsBuiltin 判断 src 是否指向内置字体（builtin: 或 embed: 前缀）。
func IsBuiltin(src string) bool {
	return strings.HasPrefix(src, "builtin:") || strings.HasPrefix(src, "embed:")
}

// Load 返回内置字体的字节数据，name 可写为 "builtin:lmroman" 或直接 "lmroman"。
func Load(name string) ([]byte, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "builtin:")
	key = strings.TrimPrefix(key, "embed:")
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("内置字体 %s 不存在，可用: %s", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names 按字母序列出所有内置字体名。
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
