package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ByLCY/richtext/dsl"
	"github.com/ByLCY/richtext/layout"
	gotextmetrics "github.com/ByLCY/richtext/metrics/gotext"
	"github.com/ByLCY/richtext/renderer"
	canvasrenderer "github.com/ByLCY/richtext/renderer/canvas"
)

func main() {
	input := flag.String("in", "examples/demo.rt", "标记文件路径")
	output := flag.String("out", "output/demo.pdf", "PDF 输出路径")
	debug := flag.String("debug", "", "排版调试 JSON 输出路径")
	dataJSON := flag.String("data", "", "绑定到标记的 JSON 数据")
	width := flag.Float64("width", 174, "最大行宽（mm），0 表示只按换行符分行")
	scale := flag.Float64("scale", 1, "文档缩放")
	metrics := flag.String("metrics", "canvas", "字符度量后端：canvas 或 gotext")
	verbose := flag.Bool("v", false, "输出排版调试日志")
	flag.Parse()

	if *verbose {
		layout.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	var inputData any
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &inputData); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	baseDir := filepath.Dir(*input)
	r := canvasrenderer.NewRenderer(baseDir)
	var m layout.Metrics = r
	switch *metrics {
	case "canvas":
	case "gotext":
		m = gotextmetrics.New(gotextmetrics.Options{BaseDir: baseDir})
	default:
		log.Fatalf("未知的度量后端: %s", *metrics)
	}

	cfg := config{
		inputPath:  *input,
		outputPath: *output,
		debugPath:  *debug,
		width:      *width,
		scale:      *scale,
		data:       inputData,
	}
	if err := run(cfg, m, r); err != nil {
		log.Fatalf("生成 PDF 失败: %v", err)
	}
	fmt.Printf("已生成 PDF：%s\n", *output)
}

type config struct {
	inputPath  string
	outputPath string
	debugPath  string
	width      float64
	scale      float64
	data       any
}

// run 串联解析、排版与渲染。
func run(cfg config, m layout.Metrics, r renderer.Renderer) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	file, err := os.Open(cfg.inputPath)
	if err != nil {
		return fmt.Errorf("无法打开标记文件 %s: %w", cfg.inputPath, err)
	}
	defer file.Close()

	markup, err := dsl.Parse(file)
	if err != nil {
		return fmt.Errorf("解析标记失败: %w", err)
	}
	text, err := layout.BuildText(markup, cfg.data)
	if err != nil {
		return fmt.Errorf("生成富文本失败: %w", err)
	}

	var formatter layout.Formatter
	if cfg.width > 0 {
		formatter = layout.NewWrappedFormatter(cfg.width)
	}
	doc := layout.NewDocument(m, formatter, layout.Options{Scale: cfg.scale})
	doc.Append(text)

	if cfg.debugPath != "" {
		if err := writeDebug(doc, cfg.debugPath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	pdfBytes, err := r.Render(doc)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := os.WriteFile(cfg.outputPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

func writeDebug(doc *layout.Document, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(doc, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
