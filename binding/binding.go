// Package binding 负责把 JSON 数据绑定到文本中的 ${path} 占位符。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 支持 ${path | 默认值}：路径不存在时使用默认值；没有默认值时保留原占位符。
func Interpolate(text string, data any) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		path, fallback, hasFallback := strings.Cut(groups[1], "|")
		path = strings.TrimSpace(path)
		if path != "" && data != nil {
			if val, ok := Lookup(data, path); ok && val != nil {
				return format(val)
			}
		}
		if hasFallback {
			return strings.TrimSpace(fallback)
		}
		return match
	})
}

// Lookup 按 a.b[0].c 形式的路径在 data 中取值。
func Lookup(data any, path string) (any, bool) {
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, indexes, ok := parseSegment(segment)
		if !ok {
			return nil, false
		}
		if name != "" {
			if current, ok = descendMap(current, name); !ok {
				return nil, false
			}
		}
		for _, idx := range indexes {
			if current, ok = descendArray(current, idx); !ok {
				return nil, false
			}
		}
	}
	return current, true
}

// format 避免 JSON 数字被打印成科学计数法（例如 1e+06）。
func format(val any) string {
	switch v := val.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func parseSegment(segment string) (string, []int, bool) {
	segment = strings.TrimSpace(segment)
	name, rest, found := strings.Cut(segment, "[")
	if !found {
		return name, nil, name != ""
	}
	rest = "[" + rest
	var indexes []int
	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, false
		}
		end := strings.IndexByte(rest, ']')
		if end == -1 {
			return "", nil, false
		}
		idx, err := strconv.Atoi(strings.TrimSpace(rest[1:end]))
		if err != nil {
			return "", nil, false
		}
		indexes = append(indexes, idx)
		rest = rest[end+1:]
	}
	return name, indexes, true
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}

func descendArray(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []any:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	case []string:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}
