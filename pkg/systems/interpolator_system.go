package systems

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/gonewx/scrollfx/pkg/clock"
	"github.com/gonewx/scrollfx/pkg/components"
	"github.com/gonewx/scrollfx/pkg/ecs"
	"github.com/gonewx/scrollfx/pkg/types"
	"github.com/gonewx/scrollfx/pkg/utils"
	"github.com/rivo/uniseg"
)

// 插值器默认参数
const (
	DefaultCounterDuration   = 2.0
	DefaultCharDuration      = 0.05
	DefaultPulseScale        = 1.05
	DefaultPulseDuration     = 0.2
	defaultCounterEaseName   = "power2.out"
	counterPulseEffectSuffix = "/pulse"
)

// CounterSpec 计数器调度参数
type CounterSpec struct {
	Name     string
	Target   string
	Goal     float64
	Suffix   string
	Duration float64        // <= 0 时取 DefaultCounterDuration
	Ease     utils.EaseFunc // nil 时取 power2.out
	// PulseScale 完成后的强调脉冲峰值，0 取默认值，<= 1 关闭
	PulseScale    float64
	PulseDuration float64
}

// TypewriterSpec 打字机调度参数
type TypewriterSpec struct {
	Name   string
	Target string
	Text   string
	// CharDuration 每个字素的时长，<= 0 取 DefaultCharDuration
	CharDuration float64
}

// InterpolatorSystem 逐帧值插值器（计数器、打字机）
//
// 每个插值器持有一个私有值单元，在绑定触发器 ENTER 后开始，
// 每帧由值单元计算出文本写入目标。只运行一次。
type InterpolatorSystem struct {
	entityManager *ecs.EntityManager
	renderer      types.Renderer
	clock         *clock.FrameClock
	triggers      *TriggerSystem
	playback      *PlaybackSystem
	queue         *EventQueue
	router        *EventRouter
}

// NewInterpolatorSystem 创建插值器系统
func NewInterpolatorSystem(em *ecs.EntityManager, renderer types.Renderer, fc *clock.FrameClock, triggers *TriggerSystem, playback *PlaybackSystem, queue *EventQueue, router *EventRouter) *InterpolatorSystem {
	s := &InterpolatorSystem{
		entityManager: em,
		renderer:      renderer,
		clock:         fc,
		triggers:      triggers,
		playback:      playback,
		queue:         queue,
		router:        router,
	}
	triggers.OnUnregister(s.cancelBound)
	return s
}

// cancelBound 触发器被注销：绑定的插值器直接显示最终文本
func (s *InterpolatorSystem) cancelBound(trigger ecs.EntityID) {
	for _, id := range ecs.GetEntitiesWith1[*components.CounterComponent](s.entityManager) {
		if c, _ := ecs.GetComponent[*components.CounterComponent](s.entityManager, id); c.Trigger == trigger {
			s.Cancel(id)
		}
	}
	for _, id := range ecs.GetEntitiesWith1[*components.TypewriterComponent](s.entityManager) {
		if t, _ := ecs.GetComponent[*components.TypewriterComponent](s.entityManager, id); t.Trigger == trigger {
			s.Cancel(id)
		}
	}
}

// ScheduleCounter 创建计数器并绑定到触发器
func (s *InterpolatorSystem) ScheduleCounter(spec CounterSpec, trigger ecs.EntityID) (ecs.EntityID, error) {
	if spec.Target == "" {
		return ecs.InvalidEntity, &types.ConfigurationError{
			Effect: spec.Name,
			Field:  "target",
			Err:    fmt.Errorf("%w: counter without target", types.ErrTargetNotFound),
		}
	}
	if math.IsNaN(spec.Goal) || math.IsInf(spec.Goal, 0) {
		return ecs.InvalidEntity, &types.ConfigurationError{
			Effect: spec.Name,
			Field:  "value",
			Err:    fmt.Errorf("%w: counter goal %v", types.ErrInvalidEffect, spec.Goal),
		}
	}

	duration := spec.Duration
	if duration <= 0 {
		duration = DefaultCounterDuration
	}
	ease := spec.Ease
	if ease == nil {
		ease = utils.MustEase(defaultCounterEaseName)
	}
	pulse := spec.PulseScale
	if pulse == 0 {
		pulse = DefaultPulseScale
	}
	pulseDuration := spec.PulseDuration
	if pulseDuration <= 0 {
		pulseDuration = DefaultPulseDuration
	}

	id := s.entityManager.CreateEntity()
	ecs.AddComponent(s.entityManager, id, &components.CounterComponent{
		Target:        spec.Target,
		Goal:          spec.Goal,
		Suffix:        spec.Suffix,
		Duration:      duration,
		Ease:          ease,
		Trigger:       trigger,
		Status:        components.StatusPending,
		PulseScale:    pulse,
		PulseDuration: pulseDuration,
	})

	if err := s.bind(id, trigger); err != nil {
		return ecs.InvalidEntity, &types.ConfigurationError{Effect: spec.Name, Field: "trigger", Err: err}
	}
	return id, nil
}

// ScheduleTypewriter 创建打字机并绑定到触发器
// 目标文本在调度时立即清空
func (s *InterpolatorSystem) ScheduleTypewriter(spec TypewriterSpec, trigger ecs.EntityID) (ecs.EntityID, error) {
	if spec.Target == "" {
		return ecs.InvalidEntity, &types.ConfigurationError{
			Effect: spec.Name,
			Field:  "target",
			Err:    fmt.Errorf("%w: typewriter without target", types.ErrTargetNotFound),
		}
	}

	graphemes := splitGraphemes(spec.Text)
	perChar := spec.CharDuration
	if perChar <= 0 {
		perChar = DefaultCharDuration
	}

	id := s.entityManager.CreateEntity()
	ecs.AddComponent(s.entityManager, id, &components.TypewriterComponent{
		Target:    spec.Target,
		Graphemes: graphemes,
		Duration:  float64(len(graphemes)) * perChar,
		Trigger:   trigger,
		Status:    components.StatusPending,
	})

	if err := s.bind(id, trigger); err != nil {
		return ecs.InvalidEntity, &types.ConfigurationError{Effect: spec.Name, Field: "trigger", Err: err}
	}
	s.renderer.SetText(spec.Target, "")
	return id, nil
}

// splitGraphemes 按用户感知的字符切分（组合字符、emoji 不会被截断）
func splitGraphemes(text string) []string {
	out := make([]string, 0, len(text))
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

func (s *InterpolatorSystem) bind(id, trigger ecs.EntityID) error {
	if trigger == ecs.InvalidEntity {
		return nil
	}
	err := s.triggers.Subscribe(trigger, EventEnter, func(TriggerEvent) {
		s.Start(id)
	})
	if err != nil {
		ecs.RemoveComponent[*components.CounterComponent](s.entityManager, id)
		ecs.RemoveComponent[*components.TypewriterComponent](s.entityManager, id)
		s.entityManager.DestroyEntity(id)
	}
	return err
}

// Start 开始一个待运行的插值器
func (s *InterpolatorSystem) Start(id ecs.EntityID) bool {
	now := s.clock.Elapsed()
	if c, ok := ecs.GetComponent[*components.CounterComponent](s.entityManager, id); ok && c.Status == components.StatusPending {
		c.Status = components.StatusPlaying
		c.StartTime = now
		return true
	}
	if t, ok := ecs.GetComponent[*components.TypewriterComponent](s.entityManager, id); ok && t.Status == components.StatusPending {
		t.Status = components.StatusPlaying
		t.StartTime = now
		return true
	}
	return false
}

// Value 返回插值器的私有值（计数器的数值、打字机的索引）
func (s *InterpolatorSystem) Value(id ecs.EntityID) (float64, bool) {
	if c, ok := ecs.GetComponent[*components.CounterComponent](s.entityManager, id); ok {
		return c.Value, true
	}
	if t, ok := ecs.GetComponent[*components.TypewriterComponent](s.entityManager, id); ok {
		return t.Index, true
	}
	return 0, false
}

// Update 推进所有运行中的插值器
func (s *InterpolatorSystem) Update() {
	now := s.clock.Elapsed()

	for _, id := range ecs.GetEntitiesWith1[*components.CounterComponent](s.entityManager) {
		c, _ := ecs.GetComponent[*components.CounterComponent](s.entityManager, id)
		if c.Status != components.StatusPlaying {
			continue
		}
		p := utils.Clamp01((now - c.StartTime) / c.Duration)
		c.Value = c.Goal * c.Ease(p)
		s.renderer.SetText(c.Target, formatCounter(c.Value, c.Suffix))
		if p >= 1 {
			c.Value = c.Goal
			c.Status = components.StatusComplete
			s.renderer.SetText(c.Target, formatCounter(c.Goal, c.Suffix))
			s.pulse(id, c)
			s.queue.Push(TriggerEvent{Source: id, Type: EventComplete, Progress: 1})
		}
	}

	for _, id := range ecs.GetEntitiesWith1[*components.TypewriterComponent](s.entityManager) {
		t, _ := ecs.GetComponent[*components.TypewriterComponent](s.entityManager, id)
		if t.Status != components.StatusPlaying {
			continue
		}
		n := len(t.Graphemes)
		p := 1.0
		if t.Duration > 0 {
			p = utils.Clamp01((now - t.StartTime) / t.Duration)
		}
		t.Index = float64(n) * p
		shown := int(roundHalfUp(t.Index))
		if shown > n {
			shown = n
		}
		s.renderer.SetText(t.Target, strings.Join(t.Graphemes[:shown], ""))
		if p >= 1 {
			t.Status = components.StatusComplete
			s.queue.Push(TriggerEvent{Source: id, Type: EventComplete, Progress: 1})
		}
	}

	s.router.DispatchAll()
}

// pulse 计数器完成后的强调脉冲：交给播放系统作为往返补间播放
func (s *InterpolatorSystem) pulse(id ecs.EntityID, c *components.CounterComponent) {
	if c.PulseScale <= 1 || s.playback == nil {
		return
	}
	from := types.NewPropertySet()
	from.Numbers["scale"] = 1
	to := types.NewPropertySet()
	to.Numbers["scale"] = c.PulseScale

	unit, err := s.playback.Schedule(TweenSpec{
		Name:     fmt.Sprintf("counter-%d%s", id, counterPulseEffectSuffix),
		Targets:  []string{c.Target},
		From:     from,
		To:       to,
		Duration: c.PulseDuration,
		Yoyo:     true,
		Repeat:   1,
	}, ecs.InvalidEntity)
	if err != nil {
		log.Printf("[InterpolatorSystem] Pulse for %s failed: %v", c.Target, err)
		return
	}
	s.playback.Play(unit)
}

// Cancel 取消插值器，目标直接显示最终文本
func (s *InterpolatorSystem) Cancel(id ecs.EntityID) {
	if c, ok := ecs.GetComponent[*components.CounterComponent](s.entityManager, id); ok {
		c.Value = c.Goal
		c.Status = components.StatusComplete
		s.renderer.SetText(c.Target, formatCounter(c.Goal, c.Suffix))
	}
	if t, ok := ecs.GetComponent[*components.TypewriterComponent](s.entityManager, id); ok {
		t.Index = float64(len(t.Graphemes))
		t.Status = components.StatusComplete
		s.renderer.SetText(t.Target, t.FullText())
	}
}

// Revert 把所有插值器的目标还原为完整的最终文本
func (s *InterpolatorSystem) Revert() {
	for _, id := range ecs.GetEntitiesWith1[*components.CounterComponent](s.entityManager) {
		c, _ := ecs.GetComponent[*components.CounterComponent](s.entityManager, id)
		s.renderer.SetText(c.Target, formatCounter(c.Goal, c.Suffix))
	}
	for _, id := range ecs.GetEntitiesWith1[*components.TypewriterComponent](s.entityManager) {
		t, _ := ecs.GetComponent[*components.TypewriterComponent](s.entityManager, id)
		s.renderer.SetText(t.Target, t.FullText())
	}
}

// formatCounter 计数器文本：四舍五入后的整数加后缀
func formatCounter(value float64, suffix string) string {
	return strconv.FormatFloat(roundHalfUp(value), 'f', 0, 64) + suffix
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
