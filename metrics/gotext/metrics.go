// Package gotextmetrics 使用 go-text/typesetting 直接读取字体表来度量字符，
// 不依赖绘图后端，适合在服务端只做排版计算的场景。
package gotextmetrics

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-text/typesetting/font"

	"github.com/ByLCY/richtext/fonts"
	"github.com/ByLCY/richtext/layout"
)

// Options configures the metrics source.
type Options struct {
	BaseDir string
	Fonts   map[string]layout.FontResource
}

// Metrics implements layout.Metrics on top of parsed OpenType tables.
// 返回值单位为毫米，与 canvas 渲染器一致。
type Metrics struct {
	baseDir string
	fonts   map[string]layout.FontResource

	mu    sync.Mutex
	faces map[layout.StyleIndex]*faceEntry
}

var _ layout.Metrics = (*Metrics)(nil)

type faceEntry struct {
	face  *font.Face
	scale float64
}

// New creates a Metrics with the given fonts registered.
func New(opts Options) *Metrics {
	m := &Metrics{
		baseDir: opts.BaseDir,
		fonts:   map[string]layout.FontResource{},
		faces:   map[layout.StyleIndex]*faceEntry{},
	}
	for name, res := range opts.Fonts {
		if name != "" {
			res.Name = name
			m.fonts[name] = res
		}
	}
	return m
}

// Measure returns the advance and line height of ch in millimetres.
func (m *Metrics) Measure(ch rune, format layout.GlyphFormat) (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.face(format.Style)
	if err != nil {
		layout.Logger().Warn("字体加载失败，改用默认字体", "font", format.Style.Font, "err", err)
		if entry, err = m.fallback(format.Style); err != nil {
			return 0, 0
		}
	}
	upem := float64(entry.face.Upem())
	if upem == 0 {
		return 0, 0
	}
	perUnit := format.TextSize * layout.PtToMm / upem * entry.scale

	var height float64
	if ext, ok := entry.face.FontHExtents(); ok {
		height = float64(ext.Ascender-ext.Descender+ext.LineGap) * perUnit
	} else {
		height = format.TextSize * layout.PtToMm * 1.2 * entry.scale
	}
	if ch == '\n' {
		return 0, height
	}
	gid, ok := entry.face.NominalGlyph(ch)
	if !ok {
		// 缺字时以空格宽度占位
		gid, _ = entry.face.NominalGlyph(' ')
	}
	return float64(entry.face.HorizontalAdvance(gid)) * perUnit, height
}

func (m *Metrics) face(style layout.StyleIndex) (*faceEntry, error) {
	if entry, ok := m.faces[style]; ok {
		return entry, nil
	}
	data, scale, err := m.fontBytes(style)
	if err != nil {
		return nil, err
	}
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解析字体 %s 失败: %w", style.Font, err)
	}
	entry := &faceEntry{face: face, scale: scale}
	m.faces[style] = entry
	return entry, nil
}

// fallback 解析默认字体并缓存到 style 下，避免重复报错。
func (m *Metrics) fallback(style layout.StyleIndex) (*faceEntry, error) {
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, err
	}
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	entry := &faceEntry{face: face, scale: 1}
	m.faces[style] = entry
	return entry, nil
}

func (m *Metrics) fontBytes(style layout.StyleIndex) ([]byte, float64, error) {
	res, ok := m.fonts[style.Font]
	if !ok {
		data, err := fonts.Load(fonts.Variant(style.Font, style.Style&layout.StyleBold != 0, style.Style&layout.StyleItalic != 0))
		return data, 1, err
	}
	scale := res.Scale
	if scale <= 0 {
		scale = 1
	}
	src := res.Src
	if src == "" {
		return nil, 0, fmt.Errorf("字体 %s 缺少 src", res.Name)
	}
	if name, ok := strings.CutPrefix(src, "embed:"); ok {
		data, err := fonts.Load(name)
		return data, scale, err
	}
	if !filepath.IsAbs(src) {
		if m.baseDir == "" {
			return nil, 0, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 embed:）", src)
		}
		src = filepath.Join(m.baseDir, src)
	}
	data, err := os.ReadFile(src)
	return data, scale, err
}
