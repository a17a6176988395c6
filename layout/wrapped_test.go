package layout

import (
	"strings"
	"testing"
)

// checkWrapped 校验折行文档的结构不变式：行非空、行宽不超限、单词不跨行、换行符只出现在行首。
// 测试输入中不包含超宽单词。
func checkWrapped(t *testing.T, d *Document) {
	t.Helper()
	limit := d.MaxLineWidth()
	for i := 0; i < d.LineCount(); i++ {
		line := d.Line(i)
		if line.Len() == 0 {
			t.Fatalf("第 %d 行为空", i)
		}
		if line.Size.X > limit+1e-9 {
			t.Fatalf("第 %d 行 %q 宽度 %g 超过 %g", i, line.String(), line.Size.X, limit)
		}
		for j, c := range line.Chars {
			if c.IsLineBreak() && j > 0 {
				t.Fatalf("第 %d 行 %q 中间出现换行符", i, line.String())
			}
		}
		if i == 0 {
			continue
		}
		prev := d.Line(i - 1)
		last, first := prev.Chars[prev.Len()-1], line.Chars[0]
		if !first.IsLineBreak() && !last.IsWordBreak(first) {
			t.Fatalf("单词在第 %d/%d 行之间被拆开: %q | %q", i-1, i, prev.String(), line.String())
		}
	}
}

func TestWrappedScenarioExactFit(t *testing.T) {
	d := newWrappedDoc(t, 6)
	d.Append(NewRichText("hello world", unitFormat))
	expectLines(t, d, "hello ", "world")
	checkWrapped(t, d)
}

func TestWrappedRemovePullsRemainderUp(t *testing.T) {
	d := newWrappedDoc(t, 10)
	d.Append(NewRichText("hello world foo", unitFormat))
	expectLines(t, d, "hello ", "world foo")

	d.RemoveRange(Index{Line: 1, Col: 0}, Index{Line: 1, Col: 5})
	expectLines(t, d, "hello foo")
	checkWrapped(t, d)
}

func TestWrappedRemoveAcrossBoundary(t *testing.T) {
	d := newWrappedDoc(t, 10)
	d.Append(NewRichText("aaaa bbbb cccc dd", unitFormat))
	expectLines(t, d, "aaaa bbbb ", "cccc dd")

	// 删除 "bbbb cccc"，剩余 "aaaa " + " dd"
	d.RemoveRange(Index{Line: 0, Col: 5}, Index{Line: 1, Col: 3})
	expectLines(t, d, "aaaa  dd")
	checkWrapped(t, d)
}

func TestWrappedRemoveJoiningWordsRewraps(t *testing.T) {
	d := newWrappedDoc(t, 8)
	d.Append(NewRichText("aaa bbb cccc", unitFormat))
	expectLines(t, d, "aaa bbb ", "cccc")

	// 删除 bbb 后面的空格，bbbcccc 成为一个单词，放不进第 0 行
	d.RemoveRange(Index{Line: 0, Col: 7}, Index{Line: 0, Col: 7})
	expectLines(t, d, "aaa ", "bbbcccc")
	checkWrapped(t, d)
}

func TestWrappedSetFormattingReflowsDownstream(t *testing.T) {
	d := newWrappedDoc(t, 10)
	d.Append(NewRichText("aa bb cc dd ee ff gg hh", unitFormat))
	expectLines(t, d, "aa bb cc ", "dd ee ff ", "gg hh")
	first := d.Line(0).Rev()

	big := unitFormat
	big.TextSize = 20
	d.SetFormatting(Index{Line: 1, Col: 0}, Index{Line: 1, Col: 8}, big)
	expectLines(t, d, "aa bb cc ", "dd ", "ee ", "ff gg ", "hh")
	if d.Line(0).Rev() != first {
		t.Fatalf("格式区间之前的行不应被改动")
	}
	checkWrapped(t, d)

	// 恢复格式后重新压缩
	d.SetFormatting(Index{Line: 1, Col: 0}, Index{Line: 3, Col: 2}, unitFormat)
	expectLines(t, d, "aa bb cc ", "dd ee ff ", "gg hh")
	checkWrapped(t, d)
}

func TestWrappedExplicitLineBreak(t *testing.T) {
	d := newWrappedDoc(t, 20)
	d.Append(NewRichText("ab\ncd ef\n\ngh", unitFormat))
	expectLines(t, d, "ab", "\ncd ef", "\n", "\ngh")
	checkWrapped(t, d)

	// 删除换行符后，后续文本回到上一行
	d.RemoveRange(Index{Line: 1, Col: 0}, Index{Line: 1, Col: 0})
	expectLines(t, d, "abcd ef", "\n", "\ngh")
	checkWrapped(t, d)
}

func TestWrappedOversizedWordSpills(t *testing.T) {
	d := newWrappedDoc(t, 4)
	d.Append(NewRichText("abcdefghij", unitFormat))
	expectLines(t, d, "abcd", "efgh", "ij")

	d = newWrappedDoc(t, 4)
	d.Append(NewRichText("xy abcdefghij", unitFormat))
	for i := 0; i < d.LineCount(); i++ {
		if l := d.Line(i); l.Size.X > 4 {
			t.Fatalf("溢出单词也应逐字符换行，第 %d 行 %q 宽 %g", i, l.String(), l.Size.X)
		}
	}
	if got := d.Text().String(); got != "xy abcdefghij" {
		t.Fatalf("文本不符: %q", got)
	}
}

func TestWrappedInsertInsideWord(t *testing.T) {
	d := newWrappedDoc(t, 10)
	d.Append(NewRichText("aaaa bbbb cccc", unitFormat))
	expectLines(t, d, "aaaa bbbb ", "cccc")

	// 在 bbbb 中间插入，单词整体移到下一行
	d.Insert(NewRichText("XX", unitFormat), Index{Line: 0, Col: 7})
	expectLines(t, d, "aaaa ", "bbXXbb ", "cccc")
	checkWrapped(t, d)

	d.RemoveRange(Index{Line: 1, Col: 2}, Index{Line: 1, Col: 3})
	expectLines(t, d, "aaaa bbbb ", "cccc")
	checkWrapped(t, d)
}

func TestWrappedInsertAtLineStart(t *testing.T) {
	d := newWrappedDoc(t, 10)
	d.Append(NewRichText("aaaa bbbb cccc", unitFormat))
	d.Insert(NewRichText("z ", unitFormat), Index{Line: 1, Col: 0})
	expectLines(t, d, "aaaa bbbb ", "z cccc")
	checkWrapped(t, d)

	d.Insert(NewRichText("\n", unitFormat), Index{})
	expectLines(t, d, "\naaaa bbbb ", "z cccc")
	checkWrapped(t, d)
}

func TestWrappedRoundTripAndIdempotentRewrap(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet, consectetur adipiscing elit.\n", 20)
	d := newWrappedDoc(t, 17)
	d.Append(NewRichText(text, unitFormat))
	checkWrapped(t, d)
	if got := d.Text().String(); got != text {
		t.Fatalf("往返文本不一致")
	}

	d.Rewrap()
	first := lineTexts(d)
	d.Rewrap()
	second := lineTexts(d)
	if strings.Join(first, "|") != strings.Join(second, "|") {
		t.Fatalf("两次整篇重排结果不同")
	}

	// 增量编辑之后的结果应与整篇重排一致
	d.Insert(NewRichText("extra words here ", unitFormat), Index{Line: 3, Col: 2})
	d.RemoveRange(Index{Line: 10, Col: 1}, Index{Line: 12, Col: 4})
	checkWrapped(t, d)
	incremental := lineTexts(d)
	d.Rewrap()
	checkWrapped(t, d)
	if strings.Join(incremental, "|") != strings.Join(lineTexts(d), "|") {
		t.Fatalf("增量结果与整篇重排不一致:\n%q\n%q", incremental, lineTexts(d))
	}
}

func TestWrappedInsertTouchesOnlyLocalLines(t *testing.T) {
	d := newWrappedDoc(t, 12)
	d.Append(NewRichText(strings.Repeat("abcd abcd ", 1000), unitFormat))
	if d.LineCount() != 1000 {
		t.Fatalf("期望 1000 行，实际 %d", d.LineCount())
	}

	d.Insert(NewRichText("x", unitFormat), Index{Line: 500, Col: 2})
	touched := 0
	for i := 0; i < d.LineCount(); i++ {
		if d.Line(i).Rev() == d.Revision() {
			touched++
		}
	}
	if touched != 1 {
		t.Fatalf("只应改动 1 行，实际 %d", touched)
	}
	if got := d.Line(500).String(); got != "abxcd abcd " {
		t.Fatalf("第 500 行不符: %q", got)
	}

	// 行首插入会回溯到上一行的单词开头，改动范围仍然有限
	d.Insert(NewRichText("y", unitFormat), Index{Line: 700, Col: 0})
	touched = 0
	for i := 0; i < d.LineCount(); i++ {
		if d.Line(i).Rev() == d.Revision() {
			touched++
		}
	}
	if touched > 3 {
		t.Fatalf("改动行数过多: %d", touched)
	}
	checkWrapped(t, d)
}

func TestSetMaxLineWidthHysteresis(t *testing.T) {
	d := newWrappedDoc(t, 10)
	d.Append(NewRichText("aa bb cc dd ee ff", unitFormat))
	expectLines(t, d, "aa bb cc ", "dd ee ff")

	for _, w := range []float64{8, 10, 13, 14} {
		if d.SetMaxLineWidth(w) {
			t.Fatalf("宽度 %g 在容差内，不应重排", w)
		}
		if d.MaxLineWidth() != 10 {
			t.Fatalf("容差内不应更新宽度，实际 %g", d.MaxLineWidth())
		}
	}
	if !d.SetMaxLineWidth(7.5) {
		t.Fatalf("宽度 7.5 低于下限，应重排")
	}
	expectLines(t, d, "aa bb ", "cc dd ", "ee ff")
	if !d.SetMaxLineWidth(14.5) {
		t.Fatalf("宽度 14.5 高于上限，应重排")
	}
	expectLines(t, d, "aa bb cc dd ", "ee ff")
	checkWrapped(t, d)
}

func TestWrappedNonPositiveWidthPanics(t *testing.T) {
	d := newWrappedDoc(t, 0)
	defer func() {
		if recover() == nil {
			t.Fatalf("MaxLineWidth <= 0 时打包应 panic")
		}
	}()
	d.Append(NewRichText("abc", unitFormat))
}

// expectSameAsRewrap 校验增量编辑后的分行与整篇重排一致。
func expectSameAsRewrap(t *testing.T, d *Document) {
	t.Helper()
	incremental := lineTexts(d)
	d.Rewrap()
	if strings.Join(incremental, "|") != strings.Join(lineTexts(d), "|") {
		t.Fatalf("增量结果与整篇重排不一致:\n%q\n%q", incremental, lineTexts(d))
	}
}

func TestWrappedInsertJoinsFollowingWord(t *testing.T) {
	d := newWrappedDoc(t, 8)
	d.Append(NewRichText("aaaa bbbbbb", unitFormat))
	expectLines(t, d, "aaaa ", "bbbbbb")

	// 在第 0 行行尾插入，新文本与下一行的 bbbbbb 拼成一个单词
	d.Insert(NewRichText("cc", unitFormat), Index{Line: 0, Col: 5})
	expectLines(t, d, "aaaa ", "ccbbbbbb")
	checkWrapped(t, d)
	expectSameAsRewrap(t, d)
}

func TestWrappedInsertJoinsAcrossSeveralLines(t *testing.T) {
	d := newWrappedDoc(t, 6)
	d.Append(NewRichText("aa bb cc dd", unitFormat))
	expectLines(t, d, "aa bb ", "cc dd")

	d.Insert(NewRichText("x", unitFormat), Index{Line: 0, Col: 6})
	expectLines(t, d, "aa bb ", "xcc dd")
	checkWrapped(t, d)
	expectSameAsRewrap(t, d)
}

func TestWrappedRemoveLineBreakJoinsPreviousWord(t *testing.T) {
	d := newWrappedDoc(t, 10)
	d.Append(NewRichText("xxxxxx ab\ncd", unitFormat))
	expectLines(t, d, "xxxxxx ab", "\ncd")

	// 删除换行符后 ab 与 cd 成为一个单词，放不进第 0 行剩余空间
	d.RemoveRange(Index{Line: 1, Col: 0}, Index{Line: 1, Col: 0})
	expectLines(t, d, "xxxxxx ", "abcd")
	checkWrapped(t, d)
	expectSameAsRewrap(t, d)
}

func TestWrappedRemoveLineBreakMovesJoinedWordDown(t *testing.T) {
	d := newWrappedDoc(t, 10)
	d.Append(NewRichText("xxxxxx ab\nc de", unitFormat))
	expectLines(t, d, "xxxxxx ab", "\nc de")

	d.RemoveRange(Index{Line: 1, Col: 0}, Index{Line: 1, Col: 0})
	expectLines(t, d, "xxxxxx ", "abc de")
	checkWrapped(t, d)
	expectSameAsRewrap(t, d)
}

func TestSetMaxLineWidthFromZero(t *testing.T) {
	d := newWrappedDoc(t, 0)
	if !d.SetMaxLineWidth(3) {
		t.Fatalf("宽度未设置时应总是采用新宽度")
	}
	if d.MaxLineWidth() != 3 {
		t.Fatalf("宽度应为 3，实际 %g", d.MaxLineWidth())
	}
	d.Append(NewRichText("ab cd", unitFormat))
	expectLines(t, d, "ab ", "cd")
}
