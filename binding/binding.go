package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 若 data 为空或路径不存在，则保留原占位符。
func Interpolate(text string, data any) string {
	if data == nil || !strings.Contains(text, "${") {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-1])
		if val, ok := Lookup(data, path); ok {
			return fmt.Sprint(val)
		}
		return match
	})
}

// Lookup 在 JSON 解码得到的数据中按路径取值，支持 a.b[0].c 形式。
func Lookup(data any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	keys, err := splitPath(path)
	if err != nil {
		return nil, false
	}
	current := data
	for _, k := range keys {
		switch c := current.(type) {
		case map[string]any:
			if k.index {
				return nil, false
			}
			v, ok := c[k.name]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			if !k.index || k.pos < 0 || k.pos >= len(c) {
				return nil, false
			}
			current = c[k.pos]
		default:
			return nil, false
		}
	}
	return current, true
}

type pathKey struct {
	name  string
	index bool
	pos   int
}

// splitPath 把 a.b[0][1] 拆成 a, b, [0], [1]。
func splitPath(path string) ([]pathKey, error) {
	var keys []pathKey
	for _, segment := range strings.Split(path, ".") {
		name, rest, _ := strings.Cut(segment, "[")
		if name != "" {
			keys = append(keys, pathKey{name: name})
		}
		if rest == "" {
			continue
		}
		for _, idx := range strings.Split(strings.TrimSuffix(rest, "]"), "][") {
			n, err := strconv.Atoi(idx)
			if err != nil {
				return nil, fmt.Errorf("binding: 非法下标 %q: %w", idx, err)
			}
			keys = append(keys, pathKey{index: true, pos: n})
		}
	}
	return keys, nil
}
