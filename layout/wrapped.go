package layout

import "slices"

// 视口宽度抖动的容差：宽度变化超出 (old-2, old+4) 才会触发整篇重排。
const (
	rewrapShrinkSlack = 2.0
	rewrapGrowSlack   = 4.0
)

// WrappedFormatter 按宽度贪心折行：每行累计宽度不超过 MaxLineWidth，
// 单个宽度超过 MaxLineWidth 的单词除外（它会逐字符溢出到后续行）。
// 显式换行符总是开启新行。
//
// 前置条件：使用前 MaxLineWidth 必须为正数，否则打包时 panic。
type WrappedFormatter struct {
	MaxLineWidth float64
}

// NewWrappedFormatter 创建折行宽度为 maxLineWidth 的 WrappedFormatter。
func NewWrappedFormatter(maxLineWidth float64) *WrappedFormatter {
	return &WrappedFormatter{MaxLineWidth: maxLineWidth}
}

// 尚未设置有效宽度（<= 0）时总是采用新宽度，不走容差判断。
func (w *WrappedFormatter) setMaxLineWidth(d *Document, width float64) bool {
	old := w.MaxLineWidth
	if old > 0 && width >= old-rewrapShrinkSlack && width <= old+rewrapGrowSlack {
		return false
	}
	w.MaxLineWidth = width
	w.rewrapAll(d)
	return true
}

// Rewrap 对整篇文档重新折行，对 PlainFormatter 文档无效果。
func (d *Document) Rewrap() {
	if w, ok := d.formatter.(*WrappedFormatter); ok {
		w.rewrapAll(d)
	}
}

func (w *WrappedFormatter) rewrapAll(d *Document) {
	if len(d.lines) == 0 {
		return
	}
	d.rev++
	last := len(d.lines) - 1
	chars := d.collect(Index{}, Index{Line: last, Col: len(d.lines[last].Chars) - 1})
	before := len(d.lines)
	d.replaceLines(0, len(d.lines), w.pack(nil, chars))
	d.log.Debug("layout: full rewrap", "width", w.MaxLineWidth, "chars", len(chars), "linesBefore", before, "linesAfter", len(d.lines))
}

func (w *WrappedFormatter) insert(d *Document, at Index, chars []RichChar) {
	if len(d.lines) == 0 {
		d.replaceLines(0, 0, w.pack(nil, chars))
		return
	}
	// 从插入点前一个字符所在单词的开头开始重排，避免把该单词拆开。
	start := at
	var flat []RichChar
	if prev, ok := d.PrevIndex(at); ok {
		start = wordStart(d, prev)
		flat = d.collect(start, prev)
	}
	flat = append(flat, chars...)
	flat = append(flat, d.lines[at.Line].Chars[at.Col:]...)

	// 插入内容与下一行开头拼成同一个单词时，把后续行一并重排。
	last := at.Line
	for last+1 < len(d.lines) && len(flat) > 0 {
		next := d.lines[last+1].Chars
		if next[0].IsLineBreak() || flat[len(flat)-1].IsWordBreak(next[0]) {
			break
		}
		flat = append(flat, next...)
		last++
	}

	packed := w.pack(d.lines[start.Line].Chars[:start.Col], flat)
	d.replaceLines(start.Line, last+1, packed)
	w.pullFrom(d, max(start.Line-1, 0), start.Line+len(packed)-1)
}

// reformat 重排格式发生变化的行区间 [first, last]。
// 区间向前扩展到首个单词的开头，向后扩展到末尾单词结束的那一行。
func (w *WrappedFormatter) reformat(d *Document, first, last int) {
	for !wordEndsLine(d, last) {
		last++
	}
	start := wordStart(d, Index{Line: first})
	end := Index{Line: last, Col: len(d.lines[last].Chars) - 1}
	packed := w.pack(d.lines[start.Line].Chars[:start.Col], d.collect(start, end))
	d.replaceLines(start.Line, last+1, packed)
	w.pullFrom(d, max(start.Line-1, 0), start.Line+len(packed)-1)
}

// removed 只向前压缩，不整篇重排。
// 合并后的行超宽，或它与上一行、下一行拼成了同一个单词时，只重排这一处。
func (w *WrappedFormatter) removed(d *Document, line int) {
	if len(d.lines) == 0 {
		return
	}
	line = min(line, len(d.lines)-1)
	joined := !wordEndsLine(d, line) || (line > 0 && !wordEndsLine(d, line-1))
	if joined || d.lines[line].Size.X > w.MaxLineWidth {
		w.reformat(d, line, line)
		return
	}
	w.pullFrom(d, max(line-1, 0), line)
}

func (w *WrappedFormatter) rescale(factor float64) {
	w.MaxLineWidth *= factor
}

// pack 把 chars 贪心地排入行中。prefix 是保留在第一行开头的已有字符。
func (w *WrappedFormatter) pack(prefix, chars []RichChar) []Line {
	if w.MaxLineWidth <= 0 {
		panic("layout: WrappedFormatter.MaxLineWidth 必须为正数")
	}
	var lines []Line
	cur := slices.Clone(prefix)
	remaining := w.MaxLineWidth - width(prefix)
	breakLine := func() {
		if len(cur) > 0 {
			lines = append(lines, newLine(cur))
			cur = nil
		}
		remaining = w.MaxLineWidth
	}

	for i := 0; i < len(chars); {
		end := wordEnd(chars, i)
		wordWidth := width(chars[i:end])
		if (remaining < wordWidth && wordWidth <= w.MaxLineWidth) || chars[i].IsLineBreak() {
			breakLine()
		}
		oversized := wordWidth > w.MaxLineWidth
		for _, c := range chars[i:end] {
			if oversized && c.Size.X > remaining && len(cur) > 0 {
				breakLine()
			}
			cur = append(cur, c)
			remaining -= c.Size.X
		}
		i = end
	}
	if len(cur) > 0 {
		lines = append(lines, newLine(cur))
	}
	return lines
}

// pullFrom 从 start 行开始逐行尝试把后续行的单词拉上来。
// 至少处理到 minEnd 行；之后一旦某行没有拉到内容就停止。
func (w *WrappedFormatter) pullFrom(d *Document, start, minEnd int) {
	for l := start; l < len(d.lines)-1; l++ {
		if !w.tryPullToLine(d, l) && l >= minEnd {
			return
		}
	}
}

// tryPullToLine 把第 l+1 行（及其后被拉空的行）开头的完整单词拉到第 l 行，
// 不跨越换行符。返回是否拉动了内容。
func (w *WrappedFormatter) tryPullToLine(d *Document, l int) bool {
	pulled := false
	for l+1 < len(d.lines) {
		remaining := w.MaxLineWidth - d.lines[l].Size.X
		donor := d.lines[l+1].Chars
		if donor[0].IsLineBreak() {
			break
		}
		take, used := 0, 0.0
		for take < len(donor) {
			end := wordEnd(donor, take)
			if end == len(donor) && !wordEndsLine(d, l+1) {
				break
			}
			ww := width(donor[take:end])
			if used+ww > remaining {
				break
			}
			used += ww
			take = end
		}
		if take == 0 {
			break
		}
		target := &d.lines[l]
		target.Chars = append(slices.Clip(target.Chars), donor[:take]...)
		target.UpdateSize()
		target.rev = d.rev
		pulled = true
		if take == len(donor) {
			d.deleteLine(l + 1)
			continue
		}
		rest := &d.lines[l+1]
		rest.Chars = slices.Clone(donor[take:])
		rest.UpdateSize()
		rest.rev = d.rev
		break
	}
	return pulled
}

// wordEnd 返回从 i 开始的单词的结束位置（不含）。
// 单词在换行符之前、单词边界处或缓冲区末尾结束。
func wordEnd(chars []RichChar, i int) int {
	for j := i; j+1 < len(chars); j++ {
		if chars[j+1].IsLineBreak() || chars[j].IsWordBreak(chars[j+1]) {
			return j + 1
		}
	}
	return len(chars)
}

// wordStart 从 idx 向左扫描到所在单词的开头，不跨越换行符与单词边界。
func wordStart(d *Document, idx Index) Index {
	for {
		cur, _ := d.At(idx)
		if cur.IsLineBreak() {
			return idx
		}
		p, ok := d.PrevIndex(idx)
		if !ok {
			return idx
		}
		prev, _ := d.At(p)
		if prev.IsWordBreak(cur) {
			return idx
		}
		idx = p
	}
}

// wordEndsLine reports whether the last word on line n ends there rather
// than spilling onto line n+1.
func wordEndsLine(d *Document, n int) bool {
	if n+1 >= len(d.lines) {
		return true
	}
	chars, next := d.lines[n].Chars, d.lines[n+1].Chars
	return next[0].IsLineBreak() || chars[len(chars)-1].IsWordBreak(next[0])
}

func width(chars []RichChar) float64 {
	var w float64
	for _, c := range chars {
		w += c.Size.X
	}
	return w
}
