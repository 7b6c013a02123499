package types

// Viewport 视口尺寸（像素）
type Viewport struct {
	Width  float64
	Height float64
}

// Rect 元素在文档坐标系中的矩形（未滚动时的位置）
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Bottom 返回矩形底边的文档坐标
func (r Rect) Bottom() float64 {
	return r.Y + r.Height
}

// Layout 某一帧的布局快照
//
// 每个 tick 只读取一次，所有触发器共享同一份快照，
// 避免逐个触发器读取几何信息造成的布局抖动。
type Layout interface {
	// Viewport 返回当前视口尺寸
	Viewport() Viewport
	// Rect 返回目标元素的文档坐标矩形，元素已脱离文档时返回 false
	Rect(target string) (Rect, bool)
}

// Document 宿主文档（页面）抽象
//
// 引擎只通过它解析选择器、读取数据属性和获取布局快照，
// 从不直接访问具体的 UI 框架。
type Document interface {
	// Query 按文档顺序返回匹配选择器的目标句柄
	Query(selector string) []string
	// QueryWithin 只在 scope 的后代中查询
	QueryWithin(scope, selector string) []string
	// Children 按顺序返回目标的直接子元素
	Children(target string) []string
	// Attr 读取目标的数据属性（如 counter、suffix、typewriter）
	Attr(target, key string) (string, bool)
	// Layout 返回当前帧的布局快照
	Layout() Layout
}

// StaticLayout 不可变的布局快照实现
type StaticLayout struct {
	View  Viewport
	Rects map[string]Rect
}

// Viewport 实现 Layout 接口
func (l *StaticLayout) Viewport() Viewport {
	return l.View
}

// Rect 实现 Layout 接口
func (l *StaticLayout) Rect(target string) (Rect, bool) {
	r, ok := l.Rects[target]
	return r, ok
}
