package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gonewx/scrollfx/pkg/types"
)

// 默认边界：元素顶边到达视口底边时开始，元素底边离开视口顶边时结束
const (
	DefaultStart = "top bottom"
	DefaultEnd   = "bottom top"
)

// Anchor 一维锚点：position = Fraction × 尺寸 + Pixels
type Anchor struct {
	Fraction float64
	Pixels   float64
}

// Resolve 在给定尺寸下求锚点位置
func (a Anchor) Resolve(size float64) float64 {
	return a.Fraction*size + a.Pixels
}

// Bounds 解析后的边界描述
//
// 形如 "<元素锚点> <视口锚点>"，例如：
//   - "top 80%"：元素顶边到达视口 80% 高度处
//   - "bottom 80px"：元素底边到达距视口顶部 80px 处
//   - "30% top"：元素 30% 高度处到达视口顶边
//   - "top bottom-=100"：元素顶边到达视口底边上方 100px 处
type Bounds struct {
	Element  Anchor
	Viewport Anchor
	Raw      string
}

// ScrollPosition 计算满足该边界条件时的滚动偏移
// rect 为元素的文档坐标，vp 为当前视口
func (b Bounds) ScrollPosition(rect types.Rect, vp types.Viewport) float64 {
	return rect.Y + b.Element.Resolve(rect.Height) - b.Viewport.Resolve(vp.Height)
}

// ParseBounds 解析边界描述
//
// 返回的错误包装 types.ErrMalformedBounds
func ParseBounds(desc string) (Bounds, error) {
	fields := strings.Fields(desc)
	if len(fields) != 2 {
		return Bounds{}, fmt.Errorf("%w: %q needs exactly two anchors", types.ErrMalformedBounds, desc)
	}

	elem, err := parseAnchor(fields[0])
	if err != nil {
		return Bounds{}, fmt.Errorf("%w: %q: %v", types.ErrMalformedBounds, desc, err)
	}
	view, err := parseAnchor(fields[1])
	if err != nil {
		return Bounds{}, fmt.Errorf("%w: %q: %v", types.ErrMalformedBounds, desc, err)
	}

	return Bounds{Element: elem, Viewport: view, Raw: desc}, nil
}

// MustParseBounds 解析边界描述，失败时 panic（仅用于常量和测试）
func MustParseBounds(desc string) Bounds {
	b, err := ParseBounds(desc)
	if err != nil {
		panic(err)
	}
	return b
}

// parseAnchor 解析单个锚点：关键字或数值，可带 +=/-= 偏移
func parseAnchor(token string) (Anchor, error) {
	base := token
	offset := ""
	sign := 1.0
	if i := strings.Index(token, "+="); i >= 0 {
		base, offset = token[:i], token[i+2:]
	} else if i := strings.Index(token, "-="); i >= 0 {
		base, offset = token[:i], token[i+2:]
		sign = -1
	}

	a, err := parseAnchorValue(base)
	if err != nil {
		return Anchor{}, err
	}

	if offset != "" {
		o, err := parseAnchorValue(offset)
		if err != nil {
			return Anchor{}, fmt.Errorf("bad offset in %q: %w", token, err)
		}
		a.Fraction += sign * o.Fraction
		a.Pixels += sign * o.Pixels
	} else if strings.HasSuffix(token, "+=") || strings.HasSuffix(token, "-=") {
		return Anchor{}, fmt.Errorf("empty offset in %q", token)
	}

	return a, nil
}

func parseAnchorValue(s string) (Anchor, error) {
	switch s {
	case "top":
		return Anchor{Fraction: 0}, nil
	case "center":
		return Anchor{Fraction: 0.5}, nil
	case "bottom":
		return Anchor{Fraction: 1}, nil
	case "":
		return Anchor{}, fmt.Errorf("empty anchor")
	}

	switch {
	case strings.HasSuffix(s, "%"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return Anchor{}, fmt.Errorf("bad percentage %q", s)
		}
		return Anchor{Fraction: v / 100}, nil
	case strings.HasSuffix(s, "px"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "px"), 64)
		if err != nil {
			return Anchor{}, fmt.Errorf("bad pixel value %q", s)
		}
		return Anchor{Pixels: v}, nil
	default:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Anchor{}, fmt.Errorf("unknown anchor %q", s)
		}
		return Anchor{Pixels: v}, nil
	}
}
