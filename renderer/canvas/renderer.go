package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/richtext/fonts"
	"github.com/ByLCY/richtext/layout"
	"github.com/ByLCY/richtext/renderer"
)

// Renderer measures glyphs and draws documents via github.com/tdewolff/canvas.
// 所有长度均为毫米（mm），字号为点（pt）。
type Renderer struct {
	baseDir string
	fonts   map[string]layout.FontResource
	page    PageOptions
	meta    Meta

	fontMu   sync.Mutex
	families map[string]*fontFamilyEntry
	measured map[measureKey][2]float64
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Metrics    = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
	scale  float64
}

type measureKey struct {
	ch    rune
	style layout.StyleIndex
	size  float64
}

// Margin 以毫米为单位。
type Margin struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// PageOptions 描述输出页面，零值表示 A4、18mm 边距。
type PageOptions struct {
	Width  float64
	Height float64
	Margin Margin
}

// Meta 保存 PDF 元信息。
type Meta struct {
	Title    string
	Author   string
	Subject  string
	Creator  string
	Keywords []string
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Fonts   map[string]layout.FontResource // 按 GlyphFormat.Style.Font 查找；未登记的名称按内置字体处理
	Page    PageOptions
	Meta    Meta
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving font paths.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with registered fonts and page settings.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:  opts.BaseDir,
		fonts:    map[string]layout.FontResource{},
		page:     opts.Page,
		meta:     opts.Meta,
		families: map[string]*fontFamilyEntry{},
		measured: map[measureKey][2]float64{},
	}
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		res.Name = name
		r.fonts[name] = res
	}
	if r.page.Width <= 0 || r.page.Height <= 0 {
		r.page.Width, r.page.Height = 210, 297
	}
	if r.page.Margin == (Margin{}) {
		r.page.Margin = Margin{Top: 18, Right: 18, Bottom: 18, Left: 18}
	}
	return r
}

// Measure 实现 layout.Metrics：返回字符在 scale=1 时的宽度与行高（mm），已乘以字体基准缩放。
// 换行符宽度为 0，但保留行高，使空行仍占据高度。
func (r *Renderer) Measure(ch rune, format layout.GlyphFormat) (float64, float64) {
	key := measureKey{ch: ch, style: format.Style, size: format.TextSize}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if v, ok := r.measured[key]; ok {
		return v[0], v[1]
	}
	face, scale, err := r.fontFaceLocked(format.Style, format.TextSize, layout.Color{})
	if err != nil {
		return 0, 0
	}
	var advance float64
	if ch != '\n' {
		advance = face.TextWidth(string(ch)) * scale
	}
	height := face.Metrics().LineHeight * scale
	r.measured[key] = [2]float64{advance, height}
	return advance, height
}

// Render renders the document into a PDF byte slice.
func (r *Renderer) Render(doc *layout.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("渲染文档为空")
	}
	page := r.page
	pages := paginate(doc, page)

	var buf bytes.Buffer
	writer := pdf.New(&buf, page.Width, page.Height, nil)
	r.applyMeta(writer)
	contentWidth := page.Width - page.Margin.Left - page.Margin.Right
	if w := doc.MaxLineWidth(); w > 0 && w < contentWidth {
		contentWidth = w
	}
	for i, lines := range pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c := canvas.New(page.Width, page.Height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与排版保持左上角为原点

		y := page.Margin.Top
		for _, n := range lines {
			line := doc.Line(n)
			if err := r.drawLine(ctx, line, page.Margin.Left, y, contentWidth, doc.Scale()); err != nil {
				return nil, err
			}
			y += line.Size.Y
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// paginate 按行高把行号分配到各页，至少返回一页。
func paginate(doc *layout.Document, page PageOptions) [][]int {
	bottom := page.Height - page.Margin.Bottom
	pages := [][]int{nil}
	y := page.Margin.Top
	for i := 0; i < doc.LineCount(); i++ {
		h := doc.Line(i).Size.Y
		cur := len(pages) - 1
		if y+h > bottom && len(pages[cur]) > 0 {
			pages = append(pages, nil)
			cur++
			y = page.Margin.Top
		}
		pages[cur] = append(pages[cur], i)
		y += h
	}
	return pages
}

func (r *Renderer) applyMeta(writer *pdf.PDF) {
	if writer == nil {
		return
	}
	keywords := strings.Join(r.meta.Keywords, ", ")
	writer.SetInfo(r.meta.Title, r.meta.Subject, keywords, r.meta.Author, r.meta.Creator)
}

type drawRun struct {
	text  string
	face  *canvas.FontFace
	width float64
}

// drawLine 把一行按格式分段绘制；对齐方式取行内第一个可见字符的格式。
func (r *Renderer) drawLine(ctx *canvas.Context, line layout.Line, x, y, width, scale float64) error {
	var (
		runs   []drawRun
		ascent float64
		align  = layout.AlignLeft
		seen   bool
	)
	for i := 0; i < len(line.Chars); {
		if line.Chars[i].IsLineBreak() {
			i++
			continue
		}
		format := line.Chars[i].Format
		if !seen {
			align, seen = format.Align, true
		}
		var sb strings.Builder
		var w float64
		j := i
		for ; j < len(line.Chars) && line.Chars[j].Format == format && !line.Chars[j].IsLineBreak(); j++ {
			sb.WriteRune(line.Chars[j].Ch)
			w += line.Chars[j].Size.X
		}
		face, err := r.fontFace(format.Style, format.TextSize*scale, format.Color)
		if err != nil {
			return err
		}
		ascent = math.Max(ascent, face.Metrics().Ascent)
		runs = append(runs, drawRun{text: sb.String(), face: face, width: w})
		i = j
	}

	switch align {
	case layout.AlignCenter:
		x += (width - line.Size.X) / 2
	case layout.AlignRight:
		x += width - line.Size.X
	}
	baseline := y + ascent
	for _, run := range runs {
		ctx.DrawText(x, baseline, canvas.NewTextLine(run.face, run.text, canvas.Left))
		x += run.width
	}
	return nil
}

func (r *Renderer) fontFace(style layout.StyleIndex, size float64, col layout.Color) (*canvas.FontFace, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	face, _, err := r.fontFaceLocked(style, size, col)
	return face, err
}

func (r *Renderer) fontFaceLocked(style layout.StyleIndex, size float64, col layout.Color) (*canvas.FontFace, float64, error) {
	entry, err := r.ensureFontFamily(style)
	if err != nil {
		return nil, 1, err
	}
	return entry.family.Face(size, colorFromLayout(col), entry.style, canvas.FontNormal), entry.scale, nil
}

func (r *Renderer) ensureFontFamily(style layout.StyleIndex) (*fontFamilyEntry, error) {
	key := fmt.Sprintf("%s|%d", style.Font, style.Style)
	if entry, ok := r.families[key]; ok {
		return entry, nil
	}

	res, ok := r.fonts[style.Font]
	if !ok {
		res = layout.FontResource{Name: style.Font, Src: "embed:" + fonts.Variant(style.Font, style.Style&layout.StyleBold != 0, style.Style&layout.StyleItalic != 0)}
	}
	scale := res.Scale
	if scale <= 0 {
		scale = 1
	}
	cstyle := canvasStyle(style.Style)
	family := canvas.NewFontFamily(style.Font)
	if err := r.loadFontIntoFamily(family, res, cstyle); err != nil {
		fallback, fbErr := r.fallback()
		if fbErr != nil {
			return nil, err
		}
		r.families[key] = fallback
		return fallback, nil
	}
	entry := &fontFamilyEntry{family: family, style: cstyle, scale: scale}
	r.families[key] = entry
	return entry, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, font layout.FontResource, style canvas.FontStyle) error {
	data, err := r.loadFontBytes(font)
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, style)
}

func (r *Renderer) loadFontBytes(font layout.FontResource) ([]byte, error) {
	if font.Src == "" {
		return nil, fmt.Errorf("字体 %s 缺少 src", font.Name)
	}
	src := font.Src
	if strings.HasPrefix(src, "embed:") || strings.HasPrefix(src, "builtin:") {
		return fonts.Load(strings.TrimPrefix(src, "builtin:"))
	}
	path := src
	if r.baseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 embed:）", src)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	return os.ReadFile(path)
}

func (r *Renderer) fallback() (*fontFamilyEntry, error) {
	key := "|fallback"
	if entry, ok := r.families[key]; ok {
		return entry, nil
	}
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("richtext-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	entry := &fontFamilyEntry{family: family, style: canvas.FontRegular, scale: 1}
	r.families[key] = entry
	return entry, nil
}

func canvasStyle(s layout.FontStyle) canvas.FontStyle {
	result := canvas.FontRegular
	if s&layout.StyleBold != 0 {
		result = canvas.FontBold
	}
	if s&layout.StyleItalic != 0 {
		result |= canvas.FontItalic
	}
	return result
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}
