package components

import (
	"github.com/gonewx/scrollfx/pkg/ecs"
	"github.com/gonewx/scrollfx/pkg/types"
	"github.com/gonewx/scrollfx/pkg/utils"
)

// PlaybackStatus 播放单元状态
type PlaybackStatus int

const (
	StatusPending PlaybackStatus = iota
	StatusPlaying
	StatusComplete
	StatusScrubbing
)

// String 返回状态名称
func (s PlaybackStatus) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusPlaying:
		return "PLAYING"
	case StatusComplete:
		return "COMPLETE"
	case StatusScrubbing:
		return "SCRUBBING"
	default:
		return "UNKNOWN"
	}
}

// TweenComponent 对一组目标的补间
//
// 目标组在注册时一次性解析，第 i 个目标在 i×Stagger 秒后开始。
// 播放进度始终由 (now - StartTime) 推导，不累加 dt，
// 因此时钟停顿后恢复也能得到正确的姿态。
type TweenComponent struct {
	Name    string
	Targets []string

	From types.PropertySet
	To   types.PropertySet

	Duration float64
	Delay    float64
	Stagger  float64
	Ease     utils.EaseFunc
	Repeat   int  // 额外重复次数
	Yoyo     bool // 重复时往返

	// Scrubbed 由触发器 PROGRESS 事件直接驱动
	Scrubbed bool
	// ImmediateRender 调度时立即写入 From，元素在起始姿态等待触发
	ImmediateRender bool
	// Trigger 绑定的触发器，InvalidEntity 表示手动 Play
	Trigger ecs.EntityID

	Status    PlaybackStatus
	StartTime float64
}

// TotalDuration 所有目标完成所需时间（不含 Delay）
func (t *TweenComponent) TotalDuration() float64 {
	n := len(t.Targets)
	if n == 0 {
		return 0
	}
	return float64(n-1)*t.Stagger + t.Duration*float64(t.Repeat+1)
}
