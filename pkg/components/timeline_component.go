package components

import (
	"github.com/gonewx/scrollfx/pkg/types"
	"github.com/gonewx/scrollfx/pkg/utils"
)

// TimelineSegment 时间线中的一段
type TimelineSegment struct {
	Targets  []string
	From     types.PropertySet
	To       types.PropertySet
	Offset   float64 // 相对时间线起点的开始时间（已解析位置偏移和延迟）
	Duration float64
	Stagger  float64
	Ease     utils.EaseFunc
}

// End 段结束时间（相对时间线起点）
func (s *TimelineSegment) End() float64 {
	n := len(s.Targets)
	if n == 0 {
		return s.Offset
	}
	return s.Offset + float64(n-1)*s.Stagger + s.Duration
}

// TimelineComponent 入场时间线
// 不绑定触发器，页面内容就绪后播放一次
type TimelineComponent struct {
	Name     string
	Segments []TimelineSegment

	Status    PlaybackStatus
	StartTime float64
}

// TotalDuration 时间线总时长
func (t *TimelineComponent) TotalDuration() float64 {
	total := 0.0
	for i := range t.Segments {
		if end := t.Segments[i].End(); end > total {
			total = end
		}
	}
	return total
}
