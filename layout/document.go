package layout

import (
	"log/slog"
	"slices"
)

// capacityTrimFactor 行容量超过存活行数的该倍数时，删除操作后回收多余容量。
const capacityTrimFactor = 9

// Formatter 决定扁平的字符序列如何被切分成行。
// 由 NewDocument 在构造时选定，文档的所有结构性修改都委托给它。
// 一个 Formatter 实例只应服务于一个 Document。
type Formatter interface {
	// insert 把 chars 插入到已经过 ClampIndex 的位置 at。
	insert(d *Document, at Index, chars []RichChar)
	// reformat 在 [first, last] 行的字符格式被替换、尺寸重算之后调用。
	reformat(d *Document, first, last int)
	// removed 在删除区间之后调用，line 为合并后的边界行。
	removed(d *Document, line int)
	rescale(factor float64)
}

// Document 是由行组成的富文本文档。
// Document 不是并发安全的，所有调用应来自同一个（通常是 UI）goroutine。
type Document struct {
	lines     []Line
	scale     float64
	metrics   Metrics
	formatter Formatter
	rev       uint64
	log       *slog.Logger
}

// NewDocument 创建一个空文档。formatter 为 nil 时使用 PlainFormatter。
func NewDocument(m Metrics, formatter Formatter, opts Options) *Document {
	if m == nil {
		panic("layout: 缺少 Metrics")
	}
	if formatter == nil {
		formatter = &PlainFormatter{}
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	return &Document{
		lines:     make([]Line, 0, max(opts.Capacity, 0)),
		scale:     scale,
		metrics:   m,
		formatter: formatter,
		log:       log,
	}
}

func (d *Document) Formatter() Formatter { return d.formatter }

func (d *Document) Scale() float64 { return d.scale }

// Revision 每次修改操作递增；被该次操作改动的行 Rev() 等于它。
func (d *Document) Revision() uint64 { return d.rev }

// LineCount returns the number of lines.
func (d *Document) LineCount() int { return len(d.lines) }

// LineCapacity returns the capacity of the backing line slice.
func (d *Document) LineCapacity() int { return cap(d.lines) }

// Line 返回第 n 行（n 会被限制在有效范围内）。返回的行共享字符切片，调用方不应修改。
func (d *Document) Line(n int) Line {
	if len(d.lines) == 0 {
		return Line{}
	}
	return d.lines[clamp(n, 0, len(d.lines)-1)]
}

// At 返回 idx 处的字符；idx 落在行尾或文档为空时返回零值与 false。
func (d *Document) At(idx Index) (RichChar, bool) {
	idx = d.ClampIndex(idx)
	if len(d.lines) == 0 || idx.Col >= len(d.lines[idx.Line].Chars) {
		return RichChar{}, false
	}
	return d.lines[idx.Line].Chars[idx.Col], true
}

// End 返回文档末尾坐标，空文档为 {0, 0}。
func (d *Document) End() Index {
	if len(d.lines) == 0 {
		return Index{}
	}
	last := len(d.lines) - 1
	return Index{Line: last, Col: len(d.lines[last].Chars)}
}

// Append 在文档末尾追加文本。
func (d *Document) Append(t RichText) { d.Insert(t, d.End()) }

func (d *Document) AppendString(s RichString) { d.Append(RichText{s}) }

// Insert 在 at 处插入文本，越界坐标会被限制到最近的有效位置。
func (d *Document) Insert(t RichText, at Index) {
	chars := d.toChars(t)
	if len(chars) == 0 {
		return
	}
	d.rev++
	d.formatter.insert(d, d.ClampIndex(at), chars)
}

func (d *Document) InsertString(s RichString, at Index) { d.Insert(RichText{s}, at) }

// Clear 清空所有行，保留容量。
func (d *Document) Clear() {
	clear(d.lines)
	d.lines = d.lines[:0]
	d.rev++
}

// SetFormatting 把 format 应用到闭区间 [start, end] 内的所有字符并重算尺寸。
func (d *Document) SetFormatting(start, end Index, format GlyphFormat) {
	s, e, ok := d.charRange(start, end)
	if !ok {
		return
	}
	d.rev++
	for l := s.Line; l <= e.Line; l++ {
		line := &d.lines[l]
		from, to := 0, len(line.Chars)
		if l == s.Line {
			from = s.Col
		}
		if l == e.Line {
			to = e.Col + 1
		}
		for i := from; i < to; i++ {
			line.Chars[i].SetFormatting(format, d.metrics, d.scale)
		}
		line.UpdateSize()
		line.rev = d.rev
	}
	d.formatter.reformat(d, s.Line, e.Line)
}

// RemoveRange 删除闭区间 [start, end] 内的字符，并把首尾残余片段合并为一行。
func (d *Document) RemoveRange(start, end Index) {
	s, e, ok := d.charRange(start, end)
	if !ok {
		return
	}
	d.rev++
	head := d.lines[s.Line].Chars[:s.Col]
	tail := d.lines[e.Line].Chars[e.Col+1:]
	var repl []Line
	if len(head)+len(tail) > 0 {
		merged := make([]RichChar, 0, len(head)+len(tail))
		merged = append(merged, head...)
		merged = append(merged, tail...)
		repl = []Line{newLine(merged)}
	}
	d.replaceLines(s.Line, e.Line+1, repl)
	d.formatter.removed(d, s.Line)
	d.trimCapacity()
}

// Rescale 将所有字符与行的尺寸乘以 factor，factor <= 0 时忽略。
func (d *Document) Rescale(factor float64) {
	if factor <= 0 || factor == 1 {
		return
	}
	for l := range d.lines {
		line := &d.lines[l]
		for i := range line.Chars {
			line.Chars[i].Size.X *= factor
			line.Chars[i].Size.Y *= factor
		}
		line.Size.X *= factor
		line.Size.Y *= factor
	}
	d.scale *= factor
	d.formatter.rescale(factor)
}

// SetScale 把文档缩放调整为 scale。
func (d *Document) SetScale(scale float64) {
	if scale <= 0 {
		return
	}
	d.Rescale(scale / d.scale)
}

// MaxLineWidth 返回折行宽度；非折行文档返回 0。
func (d *Document) MaxLineWidth() float64 {
	if w, ok := d.formatter.(*WrappedFormatter); ok {
		return w.MaxLineWidth
	}
	return 0
}

// SetMaxLineWidth 调整折行宽度，仅对 WrappedFormatter 有效。
// 返回值表示是否触发了整篇重排。
func (d *Document) SetMaxLineWidth(width float64) bool {
	w, ok := d.formatter.(*WrappedFormatter)
	if !ok {
		return false
	}
	return w.setMaxLineWidth(d, width)
}

// Text 返回整篇文档的富文本。
func (d *Document) Text() RichText {
	if len(d.lines) == 0 {
		return RichText{}
	}
	return d.TextRange(Index{}, d.End())
}

// TextRange 返回闭区间 [start, end] 的富文本，相邻同格式字符合并为一段。
func (d *Document) TextRange(start, end Index) RichText {
	s, e, ok := d.charRange(start, end)
	if !ok {
		return RichText{}
	}
	return Coalesce(d.collect(s, e))
}

// LineText 返回第 n 行的富文本。
func (d *Document) LineText(n int) RichText {
	if len(d.lines) == 0 {
		return RichText{}
	}
	return Coalesce(d.lines[clamp(n, 0, len(d.lines)-1)].Chars)
}

// ClampIndex 把坐标限制到 [0, LineCount-1] × [0, len(line)]。
func (d *Document) ClampIndex(idx Index) Index {
	if len(d.lines) == 0 {
		return Index{}
	}
	idx.Line = clamp(idx.Line, 0, len(d.lines)-1)
	idx.Col = clamp(idx.Col, 0, len(d.lines[idx.Line].Chars))
	return idx
}

// PrevIndex 返回前一个字符的坐标，可跨行；已在文档开头时返回 false。
func (d *Document) PrevIndex(idx Index) (Index, bool) {
	if len(d.lines) == 0 {
		return Index{}, false
	}
	idx = d.ClampIndex(idx)
	if idx.Col > 0 {
		return Index{Line: idx.Line, Col: idx.Col - 1}, true
	}
	for l := idx.Line - 1; l >= 0; l-- {
		if n := len(d.lines[l].Chars); n > 0 {
			return Index{Line: l, Col: n - 1}, true
		}
	}
	return idx, false
}

// NextIndex 返回下一个字符的坐标，可跨行；已是最后一个字符时返回 false。
func (d *Document) NextIndex(idx Index) (Index, bool) {
	if len(d.lines) == 0 {
		return Index{}, false
	}
	idx = d.ClampIndex(idx)
	if idx.Col+1 < len(d.lines[idx.Line].Chars) {
		return Index{Line: idx.Line, Col: idx.Col + 1}, true
	}
	for l := idx.Line + 1; l < len(d.lines); l++ {
		if len(d.lines[l].Chars) > 0 {
			return Index{Line: l}, true
		}
	}
	return idx, false
}

// charRange 把 [start, end] 规范化为指向真实字符的闭区间。
// 行尾的 start 指向下一字符，行尾的 end 指向该行最后一个字符。
func (d *Document) charRange(start, end Index) (Index, Index, bool) {
	if len(d.lines) == 0 {
		return Index{}, Index{}, false
	}
	s, e := d.ClampIndex(start), d.ClampIndex(end)
	if e.Less(s) {
		s, e = e, s
	}
	if s.Col >= len(d.lines[s.Line].Chars) {
		next, ok := d.NextIndex(s)
		if !ok || next.Line == s.Line {
			return Index{}, Index{}, false
		}
		s = next
	}
	if n := len(d.lines[e.Line].Chars); e.Col >= n {
		e.Col = n - 1
	}
	if e.Less(s) {
		return Index{}, Index{}, false
	}
	return s, e, true
}

// collect 复制闭区间 [s, e] 内的字符。
func (d *Document) collect(s, e Index) []RichChar {
	var out []RichChar
	for l := s.Line; l <= e.Line; l++ {
		chars := d.lines[l].Chars
		from, to := 0, len(chars)
		if l == s.Line {
			from = s.Col
		}
		if l == e.Line {
			to = min(e.Col+1, len(chars))
		}
		out = append(out, chars[from:to]...)
	}
	return out
}

func (d *Document) toChars(t RichText) []RichChar {
	out := make([]RichChar, 0, t.Len())
	for _, run := range t {
		for _, r := range run.Text {
			c := RichChar{Ch: r}
			c.SetFormatting(run.Format, d.metrics, d.scale)
			out = append(out, c)
		}
	}
	return out
}

// replaceLines 用 repl 替换 d.lines[from:to]，并为新行记录当前修订号。
func (d *Document) replaceLines(from, to int, repl []Line) {
	for i := range repl {
		repl[i].rev = d.rev
	}
	d.lines = slices.Replace(d.lines, from, to, repl...)
}

func (d *Document) deleteLine(n int) {
	d.lines = slices.Delete(d.lines, n, n+1)
}

// trimCapacity 在容量远大于行数时回收内存，避免大段删除后长期占用。
func (d *Document) trimCapacity() {
	if cap(d.lines) <= capacityTrimFactor*len(d.lines) {
		return
	}
	trimmed := make([]Line, len(d.lines))
	copy(trimmed, d.lines)
	d.log.Debug("layout: trim line capacity", "from", cap(d.lines), "to", len(trimmed))
	d.lines = trimmed
}

func newLine(chars []RichChar) Line {
	l := Line{Chars: chars}
	l.UpdateSize()
	return l
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
