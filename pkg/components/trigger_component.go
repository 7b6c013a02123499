package components

import "github.com/gonewx/scrollfx/pkg/config"

// TriggerMode 触发器模式
type TriggerMode int

const (
	// TriggerOneShot 首次进入时触发一次，之后退役
	TriggerOneShot TriggerMode = iota
	// TriggerRecurring 每次状态转换都发出事件
	TriggerRecurring
	// TriggerScrubbed 进度与滚动偏移绑定
	TriggerScrubbed
)

// String 返回模式名称
func (m TriggerMode) String() string {
	switch m {
	case TriggerOneShot:
		return "ONE_SHOT"
	case TriggerRecurring:
		return "RECURRING"
	case TriggerScrubbed:
		return "SCRUBBED"
	default:
		return "UNKNOWN"
	}
}

// TriggerState 触发器相对滚动区间的位置
type TriggerState int

const (
	// TriggerBefore 偏移在起点之前
	TriggerBefore TriggerState = iota
	// TriggerActive 偏移在 [起点, 终点] 之间
	TriggerActive
	// TriggerAfter 偏移在终点之后
	TriggerAfter
)

// String 返回状态名称
func (s TriggerState) String() string {
	switch s {
	case TriggerBefore:
		return "BEFORE"
	case TriggerActive:
		return "ACTIVE"
	case TriggerAfter:
		return "AFTER"
	default:
		return "UNKNOWN"
	}
}

// TriggerComponent 滚动触发器
//
// 把一个文档元素、一对边界和一种模式绑定在一起。
// 只由 TriggerSystem 修改，其他系统通过事件获得它的状态。
type TriggerComponent struct {
	Name   string // 所属效果 ID，用于日志
	Target string // 触发器元素句柄

	Start config.Bounds
	End   config.Bounds
	Mode  TriggerMode

	State    TriggerState
	Fired    bool    // ONE_SHOT 是否已触发
	Progress float64 // SCRUBBED 进度 [0, 1]

	// Faulted 几何读取失败后永久为 AFTER，评估时跳过
	Faulted bool
	// Retired ONE_SHOT 触发后不再评估
	Retired bool

	// 最近一次评估得到的滚动位置（诊断用）
	StartPos float64
	EndPos   float64
}
