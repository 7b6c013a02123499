package page

import (
	"fmt"
	"strings"
)

// 选择器子集：
//   - 类型：div、section、*
//   - 类：.hero__content
//   - ID：#nav
//   - 属性：[data-counter]、[data-animate="fade-up"]
//   - 组合符：后代（空格）、子元素（>）
//   - 选择器组：a, b

type attrMatcher struct {
	name     string
	value    string
	hasValue bool
}

// compound 复合选择器，如 div.card[data-x="1"]
type compound struct {
	tag     string // 空或 "*" 表示任意
	id      string
	classes []string
	attrs   []attrMatcher
}

// step 一个复合选择器及其与左侧的组合符
type step struct {
	sel   compound
	child bool // true: ">"，false: 后代
}

// selector 单个（非分组）选择器，从左到右
type selector []step

// selectorGroup 逗号分隔的选择器组
type selectorGroup []selector

func parseSelector(src string) (selectorGroup, error) {
	parts, err := splitTopLevel(src, ',')
	if err != nil {
		return nil, err
	}
	group := make(selectorGroup, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty selector in %q", src)
		}
		sel, err := parseComplex(part)
		if err != nil {
			return nil, err
		}
		group = append(group, sel)
	}
	return group, nil
}

// splitTopLevel 按分隔符切分，忽略方括号和引号内部的分隔符
func splitTopLevel(src string, sep rune) ([]string, error) {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range src {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[':
			depth++
		case r == ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced ']' in %q", src)
			}
		case r == sep && depth == 0:
			parts = append(parts, src[start:i])
			start = i + 1
		}
	}
	if depth != 0 || quote != 0 {
		return nil, fmt.Errorf("unterminated attribute selector in %q", src)
	}
	return append(parts, src[start:]), nil
}

func parseComplex(src string) (selector, error) {
	var (
		sel     selector
		child   bool
		pending bool // 已出现组合符，等待右侧的复合选择器
	)
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '>':
			if len(sel) == 0 || pending {
				return nil, fmt.Errorf("dangling '>' in %q", src)
			}
			child = true
			pending = true
			i++
		default:
			end := compoundEnd(src, i)
			comp, err := parseCompound(src[i:end])
			if err != nil {
				return nil, fmt.Errorf("%q: %w", src, err)
			}
			sel = append(sel, step{sel: comp, child: child})
			child = false
			pending = false
			i = end
		}
	}
	if len(sel) == 0 || pending {
		return nil, fmt.Errorf("incomplete selector %q", src)
	}
	return sel, nil
}

// compoundEnd 返回从 i 开始的复合选择器的结束位置
func compoundEnd(src string, i int) int {
	depth := 0
	var quote byte
	for ; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
		case depth == 0 && (c == ' ' || c == '\t' || c == '\n' || c == '>'):
			return i
		}
	}
	return i
}

func parseCompound(src string) (compound, error) {
	var comp compound
	i := 0
	if i < len(src) && (src[i] == '*' || isNameChar(src[i])) {
		if src[i] == '*' {
			comp.tag = "*"
			i++
		} else {
			j := nameEnd(src, i)
			comp.tag = strings.ToLower(src[i:j])
			i = j
		}
	}
	for i < len(src) {
		switch src[i] {
		case '.':
			j := nameEnd(src, i+1)
			if j == i+1 {
				return comp, fmt.Errorf("empty class name")
			}
			comp.classes = append(comp.classes, src[i+1:j])
			i = j
		case '#':
			j := nameEnd(src, i+1)
			if j == i+1 {
				return comp, fmt.Errorf("empty id")
			}
			comp.id = src[i+1 : j]
			i = j
		case '[':
			j := strings.IndexByte(src[i:], ']')
			if j < 0 {
				return comp, fmt.Errorf("unterminated attribute selector")
			}
			m, err := parseAttr(src[i+1 : i+j])
			if err != nil {
				return comp, err
			}
			comp.attrs = append(comp.attrs, m)
			i += j + 1
		default:
			return comp, fmt.Errorf("unexpected %q", src[i])
		}
	}
	return comp, nil
}

func parseAttr(body string) (attrMatcher, error) {
	name, value, hasValue := strings.Cut(body, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return attrMatcher{}, fmt.Errorf("empty attribute name")
	}
	if !hasValue {
		return attrMatcher{name: name}, nil
	}
	value = strings.TrimSpace(value)
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		value = value[1 : len(value)-1]
	}
	return attrMatcher{name: name, value: value, hasValue: true}, nil
}

func isNameChar(c byte) bool {
	return c == '-' || c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func nameEnd(src string, i int) int {
	for i < len(src) && isNameChar(src[i]) {
		i++
	}
	return i
}

// matches 检查元素是否匹配复合选择器
func (c compound) matches(el *Element) bool {
	if c.tag != "" && c.tag != "*" && c.tag != el.Tag {
		return false
	}
	if c.id != "" && c.id != el.ID {
		return false
	}
	for _, cls := range c.classes {
		if !el.HasClass(cls) {
			return false
		}
	}
	for _, a := range c.attrs {
		v, ok := el.Attrs[a.name]
		if !ok || (a.hasValue && v != a.value) {
			return false
		}
	}
	return true
}

// matches 从右向左匹配
func (s selector) matches(el *Element) bool {
	return s.matchAt(el, len(s)-1)
}

func (s selector) matchAt(el *Element, i int) bool {
	if !s[i].sel.matches(el) {
		return false
	}
	if i == 0 {
		return true
	}
	if s[i].child {
		return el.parent != nil && s.matchAt(el.parent, i-1)
	}
	for a := el.parent; a != nil; a = a.parent {
		if s.matchAt(a, i-1) {
			return true
		}
	}
	return false
}

func (g selectorGroup) matches(el *Element) bool {
	for _, s := range g {
		if s.matches(el) {
			return true
		}
	}
	return false
}
