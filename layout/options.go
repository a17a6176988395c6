package layout

import "log/slog"

// Metrics 负责测量单个字符在给定格式下的尺寸（scale = 1）。
// 返回值应已包含字体自身的基准缩放；文档的 scale 由 Document 负责相乘。
// 对于同一 (ch, format) 必须返回确定的结果。
type Metrics interface {
	Measure(ch rune, format GlyphFormat) (advance, lineHeight float64)
}

// MetricsFunc adapts a plain function to Metrics.
type MetricsFunc func(ch rune, format GlyphFormat) (float64, float64)

func (f MetricsFunc) Measure(ch rune, format GlyphFormat) (float64, float64) { return f(ch, format) }

// Options 配置 Document 的初始状态。
type Options struct {
	Capacity int     // 行容量提示
	Scale    float64 // 文档缩放，<=0 视为 1
	Logger   *slog.Logger
}
