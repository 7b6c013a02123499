package page

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gonewx/scrollfx/pkg/types"
)

// ensureLayout 布局失效时重新计算，结果是新的快照对象
// 旧快照保持不变，正在读取它的触发器不受影响
func (d *Document) ensureLayout() {
	if !d.dirty && d.layout != nil {
		return
	}

	rects := make(map[string]types.Rect, len(d.ordered))
	h := d.layoutChildren(d.root, 0, 0, d.viewport.Width, rects)
	d.height = h
	d.layout = &types.StaticLayout{View: d.viewport, Rects: rects}
	d.dirty = false
}

// layoutChildren 布局 parent 的子元素，返回内容高度
func (d *Document) layoutChildren(parent *Element, x, y, width float64, rects map[string]types.Rect) float64 {
	flow := make([]*Element, 0, len(parent.children))
	for _, c := range parent.children {
		if c.detached {
			continue
		}
		if c.Fixed {
			// 固定元素：位于视口顶部，不占文档流高度
			d.layoutElement(c, 0, 0, d.viewport.Width, rects)
			continue
		}
		flow = append(flow, c)
	}
	if len(flow) == 0 {
		return 0
	}

	if parent.row {
		n := float64(len(flow))
		w := (width - parent.gap*(n-1)) / n
		maxH := 0.0
		for i, c := range flow {
			h := d.layoutElement(c, x+float64(i)*(w+parent.gap), y, w, rects)
			if h > maxH {
				maxH = h
			}
		}
		return maxH
	}

	cursor := y
	for i, c := range flow {
		if i > 0 {
			cursor += parent.gap
		}
		cursor += d.layoutElement(c, x, cursor, width, rects)
	}
	return cursor - y
}

// layoutElement 布局单个元素，返回其高度
func (d *Document) layoutElement(el *Element, x, y, width float64, rects map[string]types.Rect) float64 {
	inner := width - 2*el.padding
	if inner < 0 {
		inner = 0
	}
	content := d.layoutChildren(el, x+el.padding, y+el.padding, inner, rects)

	var h float64
	if el.height != "" && el.height != "auto" {
		// 高度在构建时已校验
		h, _ = resolveLength(el.height, d.viewport)
	} else if len(el.children) == 0 {
		h = defaultLeafHeight + 2*el.padding
	} else {
		h = content + 2*el.padding
	}

	rects[el.Handle] = types.Rect{X: x, Y: y, Width: width, Height: h}
	return h
}

// resolveLength 解析长度：px / vh / %（相对视口高度）/ 纯数字
func resolveLength(s string, vp types.Viewport) (float64, error) {
	s = strings.TrimSpace(s)
	var (
		num   string
		scale = 1.0
	)
	switch {
	case strings.HasSuffix(s, "px"):
		num = strings.TrimSuffix(s, "px")
	case strings.HasSuffix(s, "vh"):
		num = strings.TrimSuffix(s, "vh")
		scale = vp.Height / 100
	case strings.HasSuffix(s, "%"):
		num = strings.TrimSuffix(s, "%")
		scale = vp.Height / 100
	default:
		num = s
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid length %q", s)
	}
	return v * scale, nil
}
