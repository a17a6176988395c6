package layout

import (
	"encoding/json"
	"os"
)

// Snapshot 是文档排版结果的可序列化视图，用于调试输出。
type Snapshot struct {
	Scale        float64        `json:"scale"`
	MaxLineWidth float64        `json:"maxLineWidth,omitempty"`
	Revision     uint64         `json:"revision"`
	Capacity     int            `json:"capacity"`
	Lines        []LineSnapshot `json:"lines"`
}

// LineSnapshot 记录一行的文本、尺寸与格式段。
type LineSnapshot struct {
	Text   string   `json:"text"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Rev    uint64   `json:"rev"`
	Runs   RichText `json:"runs"`
}

// TakeSnapshot 生成文档当前状态的快照。
func TakeSnapshot(d *Document) Snapshot {
	snap := Snapshot{
		Scale:        d.scale,
		MaxLineWidth: d.MaxLineWidth(),
		Revision:     d.rev,
		Capacity:     cap(d.lines),
		Lines:        make([]LineSnapshot, 0, len(d.lines)),
	}
	for i := range d.lines {
		line := &d.lines[i]
		snap.Lines = append(snap.Lines, LineSnapshot{
			Text:   line.String(),
			Width:  line.Size.X,
			Height: line.Size.Y,
			Rev:    line.rev,
			Runs:   Coalesce(line.Chars),
		})
	}
	return snap
}

// WriteDebugJSON 将文档快照输出为 JSON，便于调试或可视化。
func WriteDebugJSON(d *Document, path string) error {
	if d == nil {
		return nil
	}
	data, err := json.MarshalIndent(TakeSnapshot(d), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
