// Package page 实现一个最小化的页面文档模型
//
// 它为引擎提供 types.Document（选择器、数据属性、布局快照）和
// types.Renderer（视觉状态写入），演示宿主和效果校验工具共用同一份实现。
package page

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gonewx/scrollfx/pkg/embedded"
	"github.com/gonewx/scrollfx/pkg/types"
	"gopkg.in/yaml.v3"
)

// 默认行高（无子元素、未指定高度的叶子元素）
const defaultLeafHeight = 32

// ElementConfig 页面 YAML 中的元素声明
type ElementConfig struct {
	ID        string            `yaml:"id"`
	Tag       string            `yaml:"tag"`
	Class     string            `yaml:"class"` // 空格分隔
	Attrs     map[string]string `yaml:"attrs"` // 例如 data-counter: "150"
	Text      string            `yaml:"text"`
	Style     map[string]string `yaml:"style"`     // background / color / border（#rrggbb）
	Height    string            `yaml:"height"`    // 120px / 100vh / 50% / auto
	Padding   float64           `yaml:"padding"`   // 四边内边距
	Gap       float64           `yaml:"gap"`       // 子元素间距
	Direction string            `yaml:"direction"` // column（默认）/ row
	Fixed     bool              `yaml:"fixed"`     // 固定在视口顶部，不参与文档流
	Children  []ElementConfig   `yaml:"children"`
}

// PageConfig 页面 YAML 顶层结构
type PageConfig struct {
	Title    string          `yaml:"title"`
	Viewport types.Viewport  `yaml:"viewport"`
	Body     []ElementConfig `yaml:"body"`
}

// Element 文档中的一个元素
type Element struct {
	Handle  string // 引擎使用的目标句柄（有 ID 时等于 ID）
	ID      string
	Tag     string
	Classes []string
	Attrs   map[string]string
	Text    string // 初始文本
	Style   map[string]string
	Fixed   bool

	height    string
	padding   float64
	gap       float64
	row       bool
	parent    *Element
	children  []*Element
	detached  bool
	depth     int
	treeIndex int
}

// HasClass 检查元素是否有指定类名
func (e *Element) HasClass(cls string) bool {
	for _, c := range e.Classes {
		if c == cls {
			return true
		}
	}
	return false
}

// Parent 返回父元素句柄（根元素返回空串）
func (e *Element) Parent() string {
	if e.parent == nil {
		return ""
	}
	return e.parent.Handle
}

// Depth 返回元素在树中的深度（body 的直接子元素为 0）
func (e *Element) Depth() int {
	return e.depth
}

// visualState 渲染器写入的状态
type visualState struct {
	props types.PropertySet
	text  string
	flags map[string]bool
}

// Document 页面文档
//
// 同时实现 types.Document 和 types.Renderer。
// 所有方法都只在帧时钟所在的 goroutine 上调用，触发器并行计算阶段
// 只读取 Layout() 返回的不可变快照。
type Document struct {
	Title string

	root     *Element
	ordered  []*Element // 文档顺序
	byHandle map[string]*Element

	viewport types.Viewport
	layout   *types.StaticLayout
	height   float64
	dirty    bool

	state map[string]*visualState
}

// NewDocument 根据声明构建文档
func NewDocument(cfg *PageConfig) (*Document, error) {
	vp := cfg.Viewport
	if vp.Width <= 0 {
		vp.Width = 1280
	}
	if vp.Height <= 0 {
		vp.Height = 800
	}

	d := &Document{
		Title:    cfg.Title,
		root:     &Element{Handle: "body", Tag: "body", Attrs: map[string]string{}, depth: -1},
		byHandle: make(map[string]*Element),
		viewport: vp,
		dirty:    true,
		state:    make(map[string]*visualState),
	}
	d.byHandle[d.root.Handle] = d.root

	seq := 0
	for _, ec := range cfg.Body {
		if err := d.build(d.root, ec, &seq); err != nil {
			return nil, err
		}
	}
	for i, el := range d.ordered {
		el.treeIndex = i
	}

	log.Printf("[Page] Built document %q: %d elements", d.Title, len(d.ordered))
	return d, nil
}

func (d *Document) build(parent *Element, ec ElementConfig, seq *int) error {
	*seq = *seq + 1
	tag := strings.ToLower(ec.Tag)
	if tag == "" {
		tag = "div"
	}
	handle := ec.ID
	if handle == "" {
		handle = tag + "-" + strconv.Itoa(*seq)
	}
	if _, exists := d.byHandle[handle]; exists {
		return fmt.Errorf("duplicate element handle %q", handle)
	}

	attrs := make(map[string]string, len(ec.Attrs))
	for k, v := range ec.Attrs {
		attrs[k] = v
	}
	el := &Element{
		Handle:  handle,
		ID:      ec.ID,
		Tag:     tag,
		Classes: strings.Fields(ec.Class),
		Attrs:   attrs,
		Text:    ec.Text,
		Style:   ec.Style,
		Fixed:   ec.Fixed,
		height:  ec.Height,
		padding: ec.Padding,
		gap:     ec.Gap,
		row:     ec.Direction == "row",
		parent:  parent,
		depth:   parent.depth + 1,
	}
	if ec.Height != "" && ec.Height != "auto" {
		if _, err := resolveLength(ec.Height, types.Viewport{Height: 1}); err != nil {
			return fmt.Errorf("element %s: %w", handle, err)
		}
	}

	parent.children = append(parent.children, el)
	d.byHandle[handle] = el
	d.ordered = append(d.ordered, el)
	d.state[handle] = &visualState{props: types.NewPropertySet(), text: ec.Text, flags: map[string]bool{}}

	for _, child := range ec.Children {
		if err := d.build(el, child, seq); err != nil {
			return err
		}
	}
	return nil
}

// ParsePage 解析页面 YAML
func ParsePage(data []byte) (*Document, error) {
	var cfg PageConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("无法解析页面: %w", err)
	}
	return NewDocument(&cfg)
}

// LoadPage 从嵌入资源（data/ 前缀）或磁盘加载页面
func LoadPage(path string) (*Document, error) {
	var (
		data []byte
		err  error
	)
	if embedded.IsInitialized() && strings.HasPrefix(path, "data/") {
		data, err = embedded.ReadFile(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("无法读取页面 %s: %w", path, err)
	}
	return ParsePage(data)
}

// Element 按句柄查找元素
func (d *Document) Element(handle string) (*Element, bool) {
	el, ok := d.byHandle[handle]
	if !ok || el == d.root {
		return nil, false
	}
	return el, true
}

// Elements 按文档顺序返回所有仍在文档中的元素
func (d *Document) Elements() []*Element {
	out := make([]*Element, 0, len(d.ordered))
	for _, el := range d.ordered {
		if !d.isDetached(el) {
			out = append(out, el)
		}
	}
	return out
}

// Query 实现 types.Document
// 非法选择器记录日志并返回空结果
func (d *Document) Query(sel string) []string {
	return d.query(d.root, sel)
}

// QueryWithin 实现 types.Document
func (d *Document) QueryWithin(scope, sel string) []string {
	el, ok := d.byHandle[scope]
	if !ok {
		return nil
	}
	return d.query(el, sel)
}

func (d *Document) query(scope *Element, sel string) []string {
	group, err := parseSelector(sel)
	if err != nil {
		log.Printf("[Page] Invalid selector: %v", err)
		return nil
	}
	var out []string
	for _, el := range d.ordered {
		if d.isDetached(el) || !isDescendant(el, scope) {
			continue
		}
		if group.matches(el) {
			out = append(out, el.Handle)
		}
	}
	return out
}

// ValidateSelector 检查选择器语法
func ValidateSelector(sel string) error {
	_, err := parseSelector(sel)
	return err
}

// Children 实现 types.Document
func (d *Document) Children(target string) []string {
	el, ok := d.byHandle[target]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(el.children))
	for _, c := range el.children {
		if !c.detached {
			out = append(out, c.Handle)
		}
	}
	return out
}

// Attr 实现 types.Document
// key 可以是完整属性名（data-counter）或省略 data- 前缀（counter）
func (d *Document) Attr(target, key string) (string, bool) {
	el, ok := d.byHandle[target]
	if !ok {
		return "", false
	}
	if v, ok := el.Attrs[key]; ok {
		return v, true
	}
	v, ok := el.Attrs["data-"+key]
	return v, ok
}

// TextContent 返回元素声明时的文本（不受渲染写入影响）
func (d *Document) TextContent(target string) (string, bool) {
	el, ok := d.byHandle[target]
	if !ok {
		return "", false
	}
	return el.Text, true
}

// Viewport 返回当前视口
func (d *Document) Viewport() types.Viewport {
	return d.viewport
}

// SetViewport 视口尺寸变化时调用，下一次 Layout() 重新计算布局
func (d *Document) SetViewport(vp types.Viewport) {
	if vp == d.viewport {
		return
	}
	d.viewport = vp
	d.dirty = true
}

// Detach 把元素（及其子树）移出文档，之后的布局快照不再包含它
func (d *Document) Detach(target string) bool {
	el, ok := d.byHandle[target]
	if !ok || el == d.root || el.detached {
		return false
	}
	el.detached = true
	d.dirty = true
	log.Printf("[Page] Detached %s", target)
	return true
}

// Height 返回文档总高度
func (d *Document) Height() float64 {
	d.ensureLayout()
	return d.height
}

// ScrollLimit 返回最大滚动偏移
func (d *Document) ScrollLimit() float64 {
	d.ensureLayout()
	limit := d.height - d.viewport.Height
	if limit < 0 {
		return 0
	}
	return limit
}

// Layout 实现 types.Document，返回不可变的布局快照
func (d *Document) Layout() types.Layout {
	d.ensureLayout()
	return d.layout
}

// Rect 返回元素的文档坐标矩形
func (d *Document) Rect(target string) (types.Rect, bool) {
	d.ensureLayout()
	return d.layout.Rect(target)
}

func (d *Document) isDetached(el *Element) bool {
	for e := el; e != nil; e = e.parent {
		if e.detached {
			return true
		}
	}
	return false
}

func isDescendant(el, scope *Element) bool {
	for p := el.parent; p != nil; p = p.parent {
		if p == scope {
			return true
		}
	}
	return false
}

// Handles 返回全部句柄（排序后），主要用于诊断
func (d *Document) Handles() []string {
	out := make([]string, 0, len(d.ordered))
	for _, el := range d.ordered {
		out = append(out, el.Handle)
	}
	sort.Strings(out)
	return out
}
