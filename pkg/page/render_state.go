package page

import (
	"sort"

	"github.com/gonewx/scrollfx/pkg/types"
	"github.com/lucasb-eyer/go-colorful"
)

// ApplyProps 实现 types.Renderer：合并写入属性
func (d *Document) ApplyProps(target string, props types.PropertySet) {
	st, ok := d.state[target]
	if !ok {
		return
	}
	for k, v := range props.Numbers {
		st.props.Numbers[k] = v
	}
	for k, v := range props.Colors {
		st.props.Colors[k] = v
	}
}

// SetText 实现 types.Renderer
func (d *Document) SetText(target, text string) {
	if st, ok := d.state[target]; ok {
		st.text = text
	}
}

// SetFlag 实现 types.Renderer
func (d *Document) SetFlag(target, flag string, on bool) {
	st, ok := d.state[target]
	if !ok {
		return
	}
	if on {
		st.flags[flag] = true
	} else {
		delete(st.flags, flag)
	}
}

// Number 返回目标的数值属性；从未被写入时返回自然值
func (d *Document) Number(target, prop string) float64 {
	if st, ok := d.state[target]; ok {
		if v, ok := st.props.Numbers[prop]; ok {
			return v
		}
	}
	return types.NaturalValue(prop)
}

// Color 返回目标的颜色属性
func (d *Document) Color(target, prop string) (colorful.Color, bool) {
	st, ok := d.state[target]
	if !ok {
		return colorful.Color{}, false
	}
	c, ok := st.props.Colors[prop]
	return c, ok
}

// Text 返回目标当前的可见文本
func (d *Document) Text(target string) string {
	if st, ok := d.state[target]; ok {
		return st.text
	}
	return ""
}

// HasFlag 检查目标是否带有状态标记
func (d *Document) HasFlag(target, flag string) bool {
	st, ok := d.state[target]
	return ok && st.flags[flag]
}

// Flags 返回目标的全部状态标记（排序后）
func (d *Document) Flags(target string) []string {
	st, ok := d.state[target]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(st.flags))
	for f := range st.flags {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
