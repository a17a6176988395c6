package canvasrenderer

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/ByLCY/richtext/layout"
)

var bodyFormat = layout.GlyphFormat{
	Style:    layout.StyleIndex{Font: "go-regular"},
	Color:    layout.Color{R: 20, G: 20, B: 20},
	TextSize: 12,
}

func TestMeasureGlyphs(t *testing.T) {
	r := NewRenderer(".")
	w, h := r.Measure('m', bodyFormat)
	if w <= 0 || h <= 0 {
		t.Fatalf("expected positive metrics, got w=%g h=%g", w, h)
	}
	// 12pt 约 4.23mm，字符宽度与行高应在同一量级
	if w > 12*layout.PtToMm || h < 12*layout.PtToMm*0.8 {
		t.Fatalf("metrics out of range: w=%g h=%g", w, h)
	}

	nw, nh := r.Measure('\n', bodyFormat)
	if nw != 0 || nh != h {
		t.Fatalf("line break should have zero width and line height, got w=%g h=%g", nw, nh)
	}

	big := bodyFormat
	big.TextSize = 24
	bw, _ := r.Measure('m', big)
	if math.Abs(bw-2*w) > 1e-6 {
		t.Fatalf("advance should scale with text size: %g vs %g", bw, w)
	}
}

func TestMeasureFontScaleAndFallback(t *testing.T) {
	r := NewRendererWithOptions(Options{Fonts: map[string]layout.FontResource{
		"Wide":   {Src: "embed:go-regular", Scale: 2},
		"Broken": {Src: "fonts/missing.ttf"},
	}})
	w, _ := r.Measure('a', bodyFormat)

	wide := bodyFormat
	wide.Style.Font = "Wide"
	ww, _ := r.Measure('a', wide)
	if math.Abs(ww-2*w) > 1e-6 {
		t.Fatalf("font scale should multiply advance: %g vs %g", ww, w)
	}

	broken := bodyFormat
	broken.Style.Font = "Broken"
	if bw, _ := r.Measure('a', broken); bw <= 0 {
		t.Fatalf("unloadable font should fall back to the default font, got %g", bw)
	}
}

func TestRenderPDF(t *testing.T) {
	r := NewRendererWithOptions(Options{Meta: Meta{Title: "Notes", Keywords: []string{"a", "b"}}})
	doc := layout.NewDocument(r, layout.NewWrappedFormatter(60), layout.Options{})
	center := bodyFormat
	center.Align = layout.AlignCenter
	center.Style.Style = layout.StyleBold
	doc.Append(layout.RichText{
		{Text: "Heading\n", Format: center},
		{Text: "hello world again, this line should wrap at sixty millimetres", Format: bodyFormat},
	})
	if doc.LineCount() < 3 {
		t.Fatalf("expected wrapped lines, got %d", doc.LineCount())
	}

	data, err := r.Render(doc)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestRenderNilDocument(t *testing.T) {
	if _, err := NewRenderer(".").Render(nil); err == nil {
		t.Fatalf("expected error for nil document")
	}
}

func TestPaginate(t *testing.T) {
	metrics := layout.MetricsFunc(func(ch rune, f layout.GlyphFormat) (float64, float64) {
		return 1, 10
	})
	doc := layout.NewDocument(metrics, nil, layout.Options{})
	doc.Append(layout.NewRichText(strings.Repeat("line\n", 9)+"end", bodyFormat))

	// 可用高度 30mm，每行 10mm
	page := PageOptions{Width: 100, Height: 50, Margin: Margin{Top: 10, Bottom: 10, Left: 5, Right: 5}}
	pages := paginate(doc, page)
	if len(pages) != 4 {
		t.Fatalf("expected 4 pages, got %d: %v", len(pages), pages)
	}
	if len(pages[0]) != 3 || pages[3][0] != 9 {
		t.Fatalf("unexpected page split: %v", pages)
	}

	empty := layout.NewDocument(metrics, nil, layout.Options{})
	if got := paginate(empty, page); len(got) != 1 || len(got[0]) != 0 {
		t.Fatalf("empty document should produce one blank page, got %v", got)
	}
}
