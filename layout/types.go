package layout

import (
	"strings"
	"unicode/utf8"
)

// 该文件定义富文本的值类型：格式、字符、行以及对外交换用的 RichString/RichText。

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// FontResource 描述字体资源，src 可以是文件路径、embed:go-regular 或 builtin:* 形式。
type FontResource struct {
	Name  string  `json:"name"`
	Src   string  `json:"src"`
	Scale float64 `json:"scale,omitempty"` // 字体基准缩放，<=0 视为 1
}

// Alignment 是一行文本的水平对齐方式。
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

func (a Alignment) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

// FontStyle 以位标记粗体/斜体。
type FontStyle uint8

const (
	StyleRegular FontStyle = 0
	StyleBold    FontStyle = 1
	StyleItalic  FontStyle = 2
)

func (s FontStyle) String() string {
	switch s {
	case StyleBold:
		return "bold"
	case StyleItalic:
		return "italic"
	case StyleBold | StyleItalic:
		return "bolditalic"
	default:
		return "regular"
	}
}

// StyleIndex 标识 (字体, 字形风格) 组合。
type StyleIndex struct {
	Font  string    `json:"font"`
	Style FontStyle `json:"style"`
}

// GlyphFormat 是一段字符共享的格式。结构体可比较，== 即结构相等。
type GlyphFormat struct {
	Style    StyleIndex `json:"style"`
	Align    Alignment  `json:"align"`
	Color    Color      `json:"color"`
	TextSize float64    `json:"textSize"` // pt
}

// Vec2 是二维尺寸，X 为宽度，Y 为高度。
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Index 是文档中的 (行, 列) 坐标。
// 坐标只在两次修改之间有效，任何修改操作之后都不应继续使用旧坐标。
type Index struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Less reports whether i comes before o in document order.
func (i Index) Less(o Index) bool {
	if i.Line != o.Line {
		return i.Line < o.Line
	}
	return i.Col < o.Col
}

// RichChar 是绑定了格式与尺寸的单个字符。Size 是派生值：Metrics(Ch, Format) * scale。
type RichChar struct {
	Ch     rune        `json:"ch"`
	Format GlyphFormat `json:"format"`
	Size   Vec2        `json:"size"`
}

// IsSeparator 空格、'-' 与 '_' 视为分隔符。
func (c RichChar) IsSeparator() bool {
	return c.Ch == ' ' || c.Ch == '-' || c.Ch == '_'
}

func (c RichChar) IsLineBreak() bool { return c.Ch == '\n' }

// IsWordBreak reports whether a word ends between c and next.
func (c RichChar) IsWordBreak(next RichChar) bool {
	return c.IsSeparator() && !next.IsSeparator()
}

// SetFormatting 替换格式并按 scale 重新计算尺寸。
func (c *RichChar) SetFormatting(format GlyphFormat, m Metrics, scale float64) {
	c.Format = format
	w, h := m.Measure(c.Ch, format)
	c.Size = Vec2{X: w * scale, Y: h * scale}
}

// Line 是一行可见文本。Size 是缓存值，只在 UpdateSize 之后有效。
type Line struct {
	Chars []RichChar `json:"chars"`
	Size  Vec2       `json:"size"`
	rev   uint64
}

// Len returns the number of characters on the line.
func (l Line) Len() int { return len(l.Chars) }

// Rev returns the document revision at which the line content last changed.
func (l Line) Rev() uint64 { return l.rev }

// UpdateSize 重新计算行宽（字符宽度之和）与行高（最大字符高度）。
func (l *Line) UpdateSize() {
	var size Vec2
	for _, c := range l.Chars {
		size.X += c.Size.X
		if c.Size.Y > size.Y {
			size.Y = c.Size.Y
		}
	}
	l.Size = size
}

// String returns the plain text of the line.
func (l Line) String() string {
	var sb strings.Builder
	for _, c := range l.Chars {
		sb.WriteRune(c.Ch)
	}
	return sb.String()
}

// RichString 是共享同一格式的一段文本。
type RichString struct {
	Text   string      `json:"text"`
	Format GlyphFormat `json:"format"`
}

// RichText 是按顺序排列的 RichString。
type RichText []RichString

// NewRichText is a convenience constructor for a single run.
func NewRichText(text string, format GlyphFormat) RichText {
	return RichText{{Text: text, Format: format}}
}

// String returns the concatenated plain text.
func (t RichText) String() string {
	var sb strings.Builder
	for _, run := range t {
		sb.WriteString(run.Text)
	}
	return sb.String()
}

// Len returns the number of characters (runes) in t.
func (t RichText) Len() int {
	n := 0
	for _, run := range t {
		n += utf8.RuneCountInString(run.Text)
	}
	return n
}

// Coalesce 将 chars 中格式相同的相邻字符合并为 RichString。
func Coalesce(chars []RichChar) RichText {
	if len(chars) == 0 {
		return RichText{}
	}
	var (
		out RichText
		sb  strings.Builder
	)
	format := chars[0].Format
	for _, c := range chars {
		if c.Format != format {
			out = append(out, RichString{Text: sb.String(), Format: format})
			sb.Reset()
			format = c.Format
		}
		sb.WriteRune(c.Ch)
	}
	return append(out, RichString{Text: sb.String(), Format: format})
}
