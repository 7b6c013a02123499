package components

import (
	"strings"

	"github.com/gonewx/scrollfx/pkg/ecs"
	"github.com/gonewx/scrollfx/pkg/utils"
)

// CounterComponent 数字计数器
// 私有值单元从 0 补间到 Goal，每帧把 round(value)+Suffix 写入目标文本
type CounterComponent struct {
	Target   string
	Goal     float64
	Suffix   string
	Duration float64
	Ease     utils.EaseFunc
	Trigger  ecs.EntityID

	Value     float64
	Status    PlaybackStatus
	StartTime float64

	// 完成后的强调脉冲（scale 1 → PulseScale → 1），PulseScale <= 1 时关闭
	PulseScale    float64
	PulseDuration float64
}

// TypewriterComponent 打字机文本
// 私有索引从 0 线性走到字素数，每帧写入前 round(index) 个字素
type TypewriterComponent struct {
	Target    string
	Graphemes []string
	Duration  float64
	Trigger   ecs.EntityID

	Index     float64
	Status    PlaybackStatus
	StartTime float64
}

// FullText 完整文本
func (t *TypewriterComponent) FullText() string {
	return strings.Join(t.Graphemes, "")
}
