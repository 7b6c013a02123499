package types

// Renderer 渲染出口
//
// 引擎唯一可观察的输出就是对视觉目标状态的修改；
// 真正的绘制由宿主完成。
type Renderer interface {
	// ApplyProps 设置目标的视觉属性（位置、透明度、缩放、颜色等）
	ApplyProps(target string, props PropertySet)
	// SetText 设置目标的可见文本
	SetText(target, text string)
	// SetFlag 打开或关闭目标上的状态标记（类似 CSS class）
	SetFlag(target, flag string, on bool)
}

// MotionPreference 系统级“减少动态效果”偏好
type MotionPreference interface {
	// ReducedMotion 返回当前是否要求减少动态效果
	ReducedMotion() bool
	// OnChange 注册偏好变化回调；回调可能在任意 goroutine 上触发
	OnChange(fn func(reduced bool))
}
