package layout

import "slices"

// PlainFormatter 只在显式换行符处分行，不按宽度折行。
// 换行符保存在它所开启的那一行的行首。
type PlainFormatter struct{}

func (p *PlainFormatter) insert(d *Document, at Index, chars []RichChar) {
	if len(d.lines) == 0 {
		d.replaceLines(0, 0, splitLines(chars))
		return
	}
	// 非首行的行首即上一行行尾（该行以换行符开头）。
	if at.Col == 0 && at.Line > 0 {
		at = Index{Line: at.Line - 1, Col: len(d.lines[at.Line-1].Chars)}
	}
	line := d.lines[at.Line].Chars
	flat := make([]RichChar, 0, len(line)+len(chars))
	flat = append(flat, line[:at.Col]...)
	flat = append(flat, chars...)
	flat = append(flat, line[at.Col:]...)
	d.replaceLines(at.Line, at.Line+1, splitLines(flat))
}

// 换行只由换行符决定，格式变化不会改变分行。
func (p *PlainFormatter) reformat(*Document, int, int) {}

func (p *PlainFormatter) removed(d *Document, line int) {
	if line <= 0 || line >= len(d.lines) {
		return
	}
	cur := d.lines[line].Chars
	if cur[0].IsLineBreak() {
		return
	}
	// 删除了开头的换行符：剩余部分并回上一行。
	prev := &d.lines[line-1]
	merged := make([]RichChar, 0, len(prev.Chars)+len(cur))
	merged = append(merged, prev.Chars...)
	merged = append(merged, cur...)
	prev.Chars = merged
	prev.UpdateSize()
	prev.rev = d.rev
	d.deleteLine(line)
}

func (p *PlainFormatter) rescale(float64) {}

// splitLines 在每个换行符处开启新行；当前行为空时不会产生空行。
func splitLines(chars []RichChar) []Line {
	var lines []Line
	start := 0
	for i, c := range chars {
		if c.IsLineBreak() && i > start {
			lines = append(lines, newLine(slices.Clone(chars[start:i])))
			start = i
		}
	}
	if start < len(chars) {
		lines = append(lines, newLine(slices.Clone(chars[start:])))
	}
	return lines
}
