package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forana/blocklayout/dsl"
	"github.com/forana/blocklayout/flow"
)

// commandArgs 是一条元素命令解析后的参数。
type commandArgs struct {
	ref     string // 第一个参数引用的样式/字体/图片名
	mode    flow.Mode
	hasMode bool
	attrs   map[string]string
}

// parseArgs 解析 `<ref>? (block|inline)? key value ...` 形式的参数。
// 只有当首个标识符是已知资源名时才作为 ref，避免把属性名误当成样式。
func parseArgs(args []*dsl.Lexeme, isRef func(string) bool) (commandArgs, error) {
	out := commandArgs{attrs: map[string]string{}}
	cursor := 0
	if len(args) > 0 && args[0].IsIdent() && isRef != nil && isRef(args[0].Value) {
		out.ref = args[0].Value
		cursor = 1
	}
	for cursor < len(args) {
		key := args[cursor]
		if key.IsIdent() && (key.Value == "block" || key.Value == "inline") {
			out.mode, _ = flow.ParseMode(key.Value)
			out.hasMode = true
			cursor++
			continue
		}
		if cursor+1 >= len(args) {
			return out, fmt.Errorf("参数 %s 缺少取值 (%s)", key.Value, key.Pos)
		}
		val := args[cursor+1].Value
		if key.Value == "display" {
			mode, err := flow.ParseMode(val)
			if err != nil {
				return out, err
			}
			out.mode, out.hasMode = mode, true
		} else {
			out.attrs[key.Value] = val
		}
		cursor += 2
	}
	return out, nil
}

// displayMode 决定元素的排版方式：命令参数优先，其次样式中的 display，默认 block。
func displayMode(args commandArgs, attrs map[string]string) flow.Mode {
	if args.hasMode {
		return args.mode
	}
	if v, ok := attrs["display"]; ok {
		if mode, err := flow.ParseMode(v); err == nil {
			return mode
		}
	}
	return flow.Block
}

func mergeStyleAttributes(style string, inline map[string]string, styles map[string]Style) map[string]string {
	out := make(map[string]string)
	if s, ok := styles[style]; ok && style != "" {
		for k, v := range s.Props {
			out[k] = v
		}
	}
	for k, v := range inline {
		out[k] = v
	}
	return out
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}

func normalizeAlign(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "center", "middle":
		return "center"
	case "right", "end":
		return "right"
	case "left", "start":
		return "left"
	default:
		return ""
	}
}

var defaultTextColor = Color{R: 30, G: 30, B: 30}

func resolveColor(value string, res ResourceSet) Color {
	c, ok := lookupColor(value, res)
	if !ok {
		return defaultTextColor
	}
	return c
}

// optionalColor 用于填充/描边，未设置时返回 nil。
func optionalColor(value string, res ResourceSet) *Color {
	c, ok := lookupColor(value, res)
	if !ok {
		return nil
	}
	return &c
}

func lookupColor(value string, res ResourceSet) (Color, bool) {
	if value == "" || strings.EqualFold(value, "none") {
		return Color{}, false
	}
	if c, ok := res.Colors[value]; ok {
		return c, true
	}
	if strings.HasPrefix(value, "#") {
		if c, err := parseColor(value); err == nil {
			return c, true
		}
	}
	return Color{}, false
}

func parseColor(value string) (Color, error) {
	hex := strings.TrimPrefix(value, "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	var rgb [3]int
	for i := range rgb {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", value, err)
		}
		rgb[i] = int(v)
	}
	return Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}
