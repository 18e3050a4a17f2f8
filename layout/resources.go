package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/forana/blocklayout/dsl"
)

// defaultFont 在文档未声明任何字体时使用。
var defaultFont = FontResource{
	Name:   "Body",
	Src:    "builtin:lmroman",
	Family: "Body",
}

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Fonts:  map[string]FontResource{},
		Colors: map[string]Color{},
		Images: map[string]ImageResource{},
		Styles: map[string]Style{},
	}
	rawStyles := map[string]Style{}

	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			if stmt.Command == nil {
				continue
			}
			switch stmt.Command.Name {
			case "font":
				if font := parseFontResource(stmt.Command); font.Name != "" {
					res.Fonts[font.Name] = font
				}
			case "color":
				name, value := parseColorResource(stmt.Command)
				if name == "" || value == "" {
					continue
				}
				c, err := parseColor(value)
				if err != nil {
					return res, fmt.Errorf("color %s: %w", name, err)
				}
				res.Colors[name] = c
			case "image":
				if image := parseImageResource(stmt.Command); image.Name != "" {
					res.Images[image.Name] = image
				}
			case "style":
				if style := parseStyleResource(stmt.Command); style.Name != "" {
					rawStyles[style.Name] = style
				}
			}
		}
	}

	if len(res.Fonts) == 0 {
		res.Fonts[defaultFont.Name] = defaultFont
	}

	styles, err := resolveStyles(rawStyles)
	if err != nil {
		return res, err
	}
	res.Styles = styles
	return res, nil
}

func collectMeta(doc *dsl.Document) DocumentMeta {
	meta := DocumentMeta{Creator: "blocklayout"}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = valueToString(stmt.Assignment.Value)
			case "author":
				meta.Author = valueToString(stmt.Assignment.Value)
			case "subject":
				meta.Subject = valueToString(stmt.Assignment.Value)
			case "creator":
				meta.Creator = valueToString(stmt.Assignment.Value)
			case "keywords":
				meta.Keywords = valueToStringSlice(stmt.Assignment.Value)
			}
		}
	}
	return meta
}

func parseFontResource(cmd *dsl.Command) FontResource {
	if len(cmd.Args) == 0 {
		return FontResource{}
	}
	name := cmd.Args[0].Value
	font := FontResource{Name: name, Family: name}
	if strings.HasPrefix(name, "builtin:") {
		font.Src = name
	}
	if cmd.Block == nil {
		return font
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		val := valueToString(stmt.Assignment.Value)
		switch stmt.Assignment.Key {
		case "src":
			font.Src = val
		case "style":
			font.Style = val
		case "family":
			font.Family = val
		case "fallback":
			font.Fallback = val
		}
	}
	return font
}

func parseImageResource(cmd *dsl.Command) ImageResource {
	if len(cmd.Args) == 0 {
		return ImageResource{}
	}
	image := ImageResource{Name: cmd.Args[0].Value}
	if cmd.Block == nil {
		return image
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		val := valueToString(stmt.Assignment.Value)
		switch stmt.Assignment.Key {
		case "src":
			image.Src = val
		case "width":
			image.Width = parseMM(val, 0)
		case "height":
			image.Height = parseMM(val, 0)
		case "dpi":
			if v, err := strconv.Atoi(val); err == nil {
				image.DPI = v
			}
		}
	}
	return image
}

func parseStyleResource(cmd *dsl.Command) Style {
	if len(cmd.Args) == 0 {
		return Style{}
	}
	style := Style{Name: cmd.Args[0].Value, Props: map[string]string{}}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Extends = cmd.Args[2].Value
	}
	if cmd.Block == nil {
		return style
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		if val := valueToString(stmt.Assignment.Value); val != "" {
			style.Props[stmt.Assignment.Key] = val
		}
	}
	return style
}

// resolveStyles 展开 extends 继承链，子样式覆盖父样式，检测循环继承。
func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var visit func(name string) (Style, error)
	visit = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return Style{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		props := map[string]string{}
		if style.Extends != "" {
			parent, err := visit(style.Extends)
			if err != nil {
				return Style{}, err
			}
			for k, v := range parent.Props {
				props[k] = v
			}
		}
		for k, v := range style.Props {
			props[k] = v
		}
		style.Props = props
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for name := range styles {
		if _, err := visit(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func parseColorResource(cmd *dsl.Command) (string, string) {
	if len(cmd.Args) == 0 {
		return "", ""
	}
	name := cmd.Args[0].Value
	value := ""
	if len(cmd.Args) > 1 {
		value = cmd.Args[len(cmd.Args)-1].Value
	}
	return name, value
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Expr != nil:
		var builder strings.Builder
		for _, part := range val.Expr.Parts {
			builder.WriteString(part.Value)
		}
		return builder.String()
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array == nil {
		if s := valueToString(val); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(val.Array.Values))
	for _, item := range val.Array.Values {
		if s := valueToString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
