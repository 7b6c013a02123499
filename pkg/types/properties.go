package types

import (
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// PropertySet 一组可动画的视觉属性
//
// Numbers 保存数值属性（x、y、yPercent、opacity、scale、scaleX、rotation ...），
// Colors 保存颜色属性（如 glow），颜色在 RGB 空间混合。
type PropertySet struct {
	Numbers map[string]float64
	Colors  map[string]colorful.Color
}

// NewPropertySet 创建空属性集
func NewPropertySet() PropertySet {
	return PropertySet{
		Numbers: make(map[string]float64),
		Colors:  make(map[string]colorful.Color),
	}
}

// naturalValues 未施加任何动画时的属性值
var naturalValues = map[string]float64{
	"opacity": 1,
	"scale":   1,
	"scaleX":  1,
	"scaleY":  1,
}

// NaturalValue 返回数值属性的自然（中性）值
func NaturalValue(prop string) float64 {
	if v, ok := naturalValues[prop]; ok {
		return v
	}
	return 0
}

// Len 返回属性总数
func (p PropertySet) Len() int {
	return len(p.Numbers) + len(p.Colors)
}

// IsEmpty 检查属性集是否为空
func (p PropertySet) IsEmpty() bool {
	return p.Len() == 0
}

// Clone 深拷贝属性集
func (p PropertySet) Clone() PropertySet {
	out := NewPropertySet()
	for k, v := range p.Numbers {
		out.Numbers[k] = v
	}
	for k, v := range p.Colors {
		out.Colors[k] = v
	}
	return out
}

// Keys 返回排序后的全部属性名
func (p PropertySet) Keys() []string {
	keys := make([]string, 0, p.Len())
	for k := range p.Numbers {
		keys = append(keys, k)
	}
	for k := range p.Colors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LerpProperties 在两组属性之间插值
// 只处理两侧都存在的属性；t 不做钳制（back 类缓动允许越界）
func LerpProperties(from, to PropertySet, t float64) PropertySet {
	out := NewPropertySet()
	for k, a := range from.Numbers {
		b, ok := to.Numbers[k]
		if !ok {
			continue
		}
		out.Numbers[k] = a + (b-a)*t
	}
	for k, a := range from.Colors {
		b, ok := to.Colors[k]
		if !ok {
			continue
		}
		ct := t
		if ct < 0 {
			ct = 0
		} else if ct > 1 {
			ct = 1
		}
		out.Colors[k] = a.BlendRgb(b, ct).Clamped()
	}
	return out
}

// ParseColor 解析 "#rrggbb" 形式的颜色
func ParseColor(hex string) (colorful.Color, error) {
	return colorful.Hex(hex)
}
