package layout

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/richtext/binding"
	"github.com/ByLCY/richtext/dsl"
	"github.com/ByLCY/richtext/fonts"
)

// DefaultFormat 是标记中未设置属性时使用的格式。
var DefaultFormat = GlyphFormat{
	Style:    StyleIndex{Font: fonts.Default, Style: StyleRegular},
	Align:    AlignLeft,
	Color:    Color{R: 30, G: 30, B: 30},
	TextSize: 12,
}

// Style 用于描述可继承的文本样式。
type Style struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// BuildText 根据标记 AST 生成 RichText。data 用于 ${path} 插值，可以为 nil。
// 文本会被规范化为 NFC，使组合字符成为单个字符。
func BuildText(doc *dsl.Document, data any) (RichText, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	colors := map[string]Color{}
	styles := map[string]Style{}
	for _, entry := range doc.Entries {
		switch {
		case entry.Color != nil:
			c, err := parseColor(entry.Color.Value)
			if err != nil {
				return nil, fmt.Errorf("color %s: %w", entry.Color.Name, err)
			}
			colors[entry.Color.Name] = c
		case entry.Style != nil:
			styles[entry.Style.Name] = parseStyle(entry.Style)
		}
	}
	resolved, err := resolveStyles(styles)
	if err != nil {
		return nil, err
	}

	var out RichText
	for _, entry := range doc.Entries {
		run := entry.Run
		if run == nil {
			continue
		}
		style, ok := resolved[run.Style]
		if !ok {
			return nil, fmt.Errorf("%s: style %s 未定义", run.Pos, run.Style)
		}
		props := mergeStyleAttributes(style, run.Overrides)
		format, err := formatFromProps(props, colors)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", run.Pos, err)
		}
		text, err := run.Text()
		if err != nil {
			return nil, err
		}
		text = norm.NFC.String(binding.Interpolate(text, data))
		if text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Format == format {
			out[n-1].Text += text
			continue
		}
		out = append(out, RichString{Text: text, Format: format})
	}
	return out, nil
}

func parseStyle(def *dsl.StyleDef) Style {
	style := Style{Name: def.Name, Extends: def.Extends, Props: map[string]string{}}
	for _, p := range def.Props {
		style.Props[strings.ToLower(p.Key)] = dsl.PropertyValue(p.Value)
	}
	return style
}

func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var dfs func(name string) (Style, error)
	dfs = func(name string) (Style, error) {
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
			parent, err := dfs(style.Extends)
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
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func mergeStyleAttributes(style Style, overrides []*dsl.Override) map[string]string {
	out := make(map[string]string, len(style.Props)+len(overrides))
	for k, v := range style.Props {
		out[k] = v
	}
	for _, o := range overrides {
		out[strings.ToLower(o.Key)] = dsl.PropertyValue(o.Value)
	}
	return out
}

// formatFromProps 把样式属性转换为 GlyphFormat，未设置的属性取 DefaultFormat。
func formatFromProps(props map[string]string, colors map[string]Color) (GlyphFormat, error) {
	format := DefaultFormat
	if v := props["font"]; v != "" {
		format.Style.Font = v
	}
	if v := props["style"]; v != "" {
		format.Style.Style = parseFontStyle(v)
	}
	if v := props["size"]; v != "" {
		l, ok := ParseLength(v)
		if !ok || l.Value <= 0 {
			return GlyphFormat{}, fmt.Errorf("字号 %s 无法解析", v)
		}
		format.TextSize = l.ToPT()
	}
	if v := props["color"]; v != "" {
		c, err := resolveColor(v, colors)
		if err != nil {
			return GlyphFormat{}, err
		}
		format.Color = c
	}
	if v := props["align"]; v != "" {
		a, err := parseAlign(v)
		if err != nil {
			return GlyphFormat{}, err
		}
		format.Align = a
	}
	return format, nil
}

func parseFontStyle(v string) FontStyle {
	s := strings.ToLower(v)
	style := StyleRegular
	if strings.Contains(s, "bold") {
		style |= StyleBold
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		style |= StyleItalic
	}
	return style
}

func parseAlign(v string) (Alignment, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "left", "start":
		return AlignLeft, nil
	case "center":
		return AlignCenter, nil
	case "right", "end":
		return AlignRight, nil
	default:
		return AlignLeft, fmt.Errorf("对齐方式 %s 无法解析", v)
	}
}

func resolveColor(value string, colors map[string]Color) (Color, error) {
	if c, ok := colors[value]; ok {
		return c, nil
	}
	if strings.HasPrefix(value, "#") {
		return parseColor(value)
	}
	return Color{}, fmt.Errorf("颜色 %s 未定义", value)
}

func parseColor(value string) (Color, error) {
	hex := strings.TrimPrefix(value, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", value, err)
	}
	return Color{R: int(n >> 16 & 0xff), G: int(n >> 8 & 0xff), B: int(n & 0xff)}, nil
}
