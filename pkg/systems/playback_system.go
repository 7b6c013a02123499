package systems

import (
	"fmt"
	"log"
	"math"

	"github.com/gonewx/scrollfx/pkg/clock"
	"github.com/gonewx/scrollfx/pkg/components"
	"github.com/gonewx/scrollfx/pkg/ecs"
	"github.com/gonewx/scrollfx/pkg/types"
	"github.com/gonewx/scrollfx/pkg/utils"
)

// TweenSpec 补间调度参数
type TweenSpec struct {
	Name     string
	Targets  []string // 有序目标组，注册时一次性解析
	From     types.PropertySet
	To       types.PropertySet
	Duration float64
	Delay    float64
	Stagger  float64
	Ease     utils.EaseFunc // nil 时使用 power1.out
	Repeat   int
	Yoyo     bool

	Scrubbed        bool
	ImmediateRender bool
}

// FollowUp 后续动作：在延迟之后打开或关闭目标上的状态标记
// 第 i 个目标的延迟为 Delay + i×Stagger
type FollowUp struct {
	Targets []string
	Flag    string
	On      bool
	Delay   float64
	Stagger float64
}

// PlaybackSystem 动画播放引擎
//
// 离散补间在绑定触发器的 ENTER 事件上开始播放；
// 拖拽补间在每个 PROGRESS 事件上直接写入对应姿态；
// 入场时间线在 ContentReady 之后开始。
// 所有时间都取自帧时钟的已用时间。
type PlaybackSystem struct {
	entityManager *ecs.EntityManager
	renderer      types.Renderer
	clock         *clock.FrameClock
	triggers      *TriggerSystem
	queue         *EventQueue
	router        *EventRouter

	contentReady bool

	// 后续动作使用的定时器，会话结束时取消
	timers []clock.TimerID
	// 被后续动作打开过的标记，还原时全部关闭
	flagged map[string]map[string]bool
}

// NewPlaybackSystem 创建播放系统
func NewPlaybackSystem(em *ecs.EntityManager, renderer types.Renderer, fc *clock.FrameClock, triggers *TriggerSystem, queue *EventQueue, router *EventRouter) *PlaybackSystem {
	s := &PlaybackSystem{
		entityManager: em,
		renderer:      renderer,
		clock:         fc,
		triggers:      triggers,
		queue:         queue,
		router:        router,
		timers:        make([]clock.TimerID, 0),
		flagged:       make(map[string]map[string]bool),
	}
	triggers.OnUnregister(s.cancelBound)
	return s
}

// cancelBound 触发器被注销：绑定的未完成补间跳到终点姿态
func (s *PlaybackSystem) cancelBound(trigger ecs.EntityID) {
	for _, id := range ecs.GetEntitiesWith1[*components.TweenComponent](s.entityManager) {
		tween, _ := ecs.GetComponent[*components.TweenComponent](s.entityManager, id)
		if tween.Trigger == trigger && tween.Status != components.StatusComplete {
			s.Cancel(id)
		}
	}
}

// now 当前播放时间
func (s *PlaybackSystem) now() float64 {
	return s.clock.Elapsed()
}

// Schedule 创建补间并绑定到触发器
//
// trigger 为 ecs.InvalidEntity 时补间不绑定触发器，由 Play 手动开始。
func (s *PlaybackSystem) Schedule(spec TweenSpec, trigger ecs.EntityID) (ecs.EntityID, error) {
	from, to, err := normalizeProps(spec.Name, spec.From, spec.To)
	if err != nil {
		return ecs.InvalidEntity, err
	}
	if len(spec.Targets) == 0 {
		return ecs.InvalidEntity, &types.ConfigurationError{
			Effect: spec.Name,
			Field:  "targets",
			Err:    fmt.Errorf("%w: empty target group", types.ErrTargetNotFound),
		}
	}
	if spec.Duration < 0 || spec.Delay < 0 || spec.Stagger < 0 || spec.Repeat < 0 {
		return ecs.InvalidEntity, &types.ConfigurationError{
			Effect: spec.Name,
			Field:  "duration",
			Err:    fmt.Errorf("%w: negative timing", types.ErrInvalidEffect),
		}
	}
	if spec.Scrubbed && trigger == ecs.InvalidEntity {
		return ecs.InvalidEntity, &types.ConfigurationError{
			Effect: spec.Name,
			Field:  "mode",
			Err:    fmt.Errorf("%w: scrubbed tween needs a trigger", types.ErrInvalidEffect),
		}
	}

	ease := spec.Ease
	if ease == nil {
		ease = utils.EaseOutQuad
	}

	targets := make([]string, len(spec.Targets))
	copy(targets, spec.Targets)

	id := s.entityManager.CreateEntity()
	tween := &components.TweenComponent{
		Name:            spec.Name,
		Targets:         targets,
		From:            from,
		To:              to,
		Duration:        spec.Duration,
		Delay:           spec.Delay,
		Stagger:         spec.Stagger,
		Ease:            ease,
		Repeat:          spec.Repeat,
		Yoyo:            spec.Yoyo,
		Scrubbed:        spec.Scrubbed,
		ImmediateRender: spec.ImmediateRender,
		Trigger:         trigger,
		Status:          components.StatusPending,
	}
	ecs.AddComponent(s.entityManager, id, tween)

	if trigger != ecs.InvalidEntity {
		var err error
		if spec.Scrubbed {
			err = s.triggers.Subscribe(trigger, EventProgress, func(ev TriggerEvent) {
				s.scrub(id, ev.Progress)
			})
		} else if trig, ok := s.triggers.Trigger(trigger); ok && trig.Mode == components.TriggerRecurring {
			// 可重复触发：每次进入都从头播放
			err = s.triggers.Subscribe(trigger, EventEnter, func(ev TriggerEvent) {
				s.Restart(id)
			})
		} else {
			err = s.triggers.Subscribe(trigger, EventEnter, func(ev TriggerEvent) {
				s.Play(id)
			})
		}
		if err != nil {
			s.remove(id)
			return ecs.InvalidEntity, &types.ConfigurationError{Effect: spec.Name, Field: "trigger", Err: err}
		}
	}

	if tween.ImmediateRender && !tween.Scrubbed {
		for _, target := range tween.Targets {
			s.renderer.ApplyProps(target, tween.From)
		}
	}
	logSchedule("tween", spec.Name, id, len(targets))
	return id, nil
}

// normalizeProps 补全只在一侧声明的数值属性（另一侧取自然值）
// 颜色必须两侧都声明
func normalizeProps(name string, from, to types.PropertySet) (types.PropertySet, types.PropertySet, error) {
	if from.Numbers == nil && from.Colors == nil {
		from = types.NewPropertySet()
	}
	if to.Numbers == nil && to.Colors == nil {
		to = types.NewPropertySet()
	}
	from, to = from.Clone(), to.Clone()
	if from.IsEmpty() && to.IsEmpty() {
		return from, to, &types.ConfigurationError{
			Effect: name,
			Field:  "to",
			Err:    fmt.Errorf("%w: no animated properties", types.ErrInvalidEffect),
		}
	}

	for k := range to.Numbers {
		if _, ok := from.Numbers[k]; !ok {
			from.Numbers[k] = types.NaturalValue(k)
		}
	}
	for k := range from.Numbers {
		if _, ok := to.Numbers[k]; !ok {
			to.Numbers[k] = types.NaturalValue(k)
		}
	}
	for k := range to.Colors {
		if _, ok := from.Colors[k]; !ok {
			return from, to, &types.ConfigurationError{
				Effect: name,
				Field:  "from." + k,
				Err:    fmt.Errorf("%w: color %s needs both ends", types.ErrInvalidEffect, k),
			}
		}
	}
	for k := range from.Colors {
		if _, ok := to.Colors[k]; !ok {
			return from, to, &types.ConfigurationError{
				Effect: name,
				Field:  "to." + k,
				Err:    fmt.Errorf("%w: color %s needs both ends", types.ErrInvalidEffect, k),
			}
		}
	}
	return from, to, nil
}

// Play 开始播放一个待播放的补间；已经播放或完成的补间不受影响
func (s *PlaybackSystem) Play(id ecs.EntityID) bool {
	tween, ok := ecs.GetComponent[*components.TweenComponent](s.entityManager, id)
	if !ok || tween.Scrubbed || tween.Status != components.StatusPending {
		return false
	}
	tween.Status = components.StatusPlaying
	tween.StartTime = s.now()
	return true
}

// Restart 从头重新播放补间（待播放或已完成均可），用于可重复触发的动作
func (s *PlaybackSystem) Restart(id ecs.EntityID) bool {
	tween, ok := ecs.GetComponent[*components.TweenComponent](s.entityManager, id)
	if !ok || tween.Scrubbed {
		return false
	}
	tween.Status = components.StatusPlaying
	tween.StartTime = s.now()
	return true
}

// Status 返回播放单元状态
func (s *PlaybackSystem) Status(id ecs.EntityID) (components.PlaybackStatus, bool) {
	if tween, ok := ecs.GetComponent[*components.TweenComponent](s.entityManager, id); ok {
		return tween.Status, true
	}
	if tl, ok := ecs.GetComponent[*components.TimelineComponent](s.entityManager, id); ok {
		return tl.Status, true
	}
	return components.StatusPending, false
}

// OnComplete 订阅播放单元完成事件
func (s *PlaybackSystem) OnComplete(id ecs.EntityID, fn func()) error {
	if !s.entityManager.Exists(id) {
		return fmt.Errorf("%w: playback unit %d", types.ErrUnknownEntity, id)
	}
	s.router.Subscribe(id, EventComplete, func(TriggerEvent) { fn() })
	return nil
}

// scrub 把拖拽补间的目标直接设置到 progress 对应的姿态
func (s *PlaybackSystem) scrub(id ecs.EntityID, progress float64) {
	tween, ok := ecs.GetComponent[*components.TweenComponent](s.entityManager, id)
	if !ok {
		return
	}
	tween.Status = components.StatusScrubbing
	props := types.LerpProperties(tween.From, tween.To, tween.Ease(utils.Clamp01(progress)))
	for _, target := range tween.Targets {
		s.renderer.ApplyProps(target, props)
	}
}

// Cancel 取消播放单元，目标直接跳到终点姿态
func (s *PlaybackSystem) Cancel(id ecs.EntityID) {
	if tween, ok := ecs.GetComponent[*components.TweenComponent](s.entityManager, id); ok {
		for _, target := range tween.Targets {
			s.renderer.ApplyProps(target, tween.To)
		}
		tween.Status = components.StatusComplete
		s.remove(id)
		return
	}
	if tl, ok := ecs.GetComponent[*components.TimelineComponent](s.entityManager, id); ok {
		for i := range tl.Segments {
			seg := &tl.Segments[i]
			for _, target := range seg.Targets {
				s.renderer.ApplyProps(target, seg.To)
			}
		}
		tl.Status = components.StatusComplete
		s.remove(id)
	}
}

func (s *PlaybackSystem) remove(id ecs.EntityID) {
	ecs.RemoveComponent[*components.TweenComponent](s.entityManager, id)
	ecs.RemoveComponent[*components.TimelineComponent](s.entityManager, id)
	s.entityManager.DestroyEntity(id)
	s.router.Unsubscribe(id)
}

// Update 按当前时间渲染所有播放中的单元
func (s *PlaybackSystem) Update() {
	now := s.now()

	for _, id := range ecs.GetEntitiesWith1[*components.TweenComponent](s.entityManager) {
		tween, _ := ecs.GetComponent[*components.TweenComponent](s.entityManager, id)
		if tween.Status != components.StatusPlaying {
			continue
		}
		if s.renderTween(tween, now) {
			tween.Status = components.StatusComplete
			s.queue.Push(TriggerEvent{Source: id, Type: EventComplete, Progress: 1})
		}
	}

	s.updateTimelines(now)

	s.router.DispatchAll()
}

// renderTween 渲染补间在 now 时刻的姿态，返回是否所有目标都已完成
func (s *PlaybackSystem) renderTween(tween *components.TweenComponent, now float64) bool {
	done := true
	cycles := float64(tween.Repeat + 1)
	for i, target := range tween.Targets {
		local := now - tween.StartTime - tween.Delay - float64(i)*tween.Stagger
		if local < 0 {
			done = false
			continue
		}
		p, finished := cycleProgress(local, tween.Duration, cycles, tween.Yoyo)
		if !finished {
			done = false
		}
		s.renderer.ApplyProps(target, types.LerpProperties(tween.From, tween.To, tween.Ease(p)))
	}
	return done
}

// cycleProgress 把局部时间映射为单个周期内的进度（含重复和往返）
func cycleProgress(local, duration, cycles float64, yoyo bool) (float64, bool) {
	if duration <= 0 || local >= duration*cycles {
		// 偶数个周期的往返结束于起点
		if yoyo && int(cycles)%2 == 0 {
			return 0, true
		}
		return 1, true
	}
	cycle := math.Floor(local / duration)
	p := (local - cycle*duration) / duration
	if yoyo && int(cycle)%2 == 1 {
		p = 1 - p
	}
	return p, false
}

// ScheduleFollowUp 通过帧时钟的定时器安排后续动作
func (s *PlaybackSystem) ScheduleFollowUp(f FollowUp) {
	for i, target := range f.Targets {
		target := target
		delay := f.Delay + float64(i)*f.Stagger
		id := s.clock.After(delay, func() {
			s.setFlag(target, f.Flag, f.On)
		})
		s.timers = append(s.timers, id)
	}
}

func (s *PlaybackSystem) setFlag(target, flag string, on bool) {
	if on {
		if s.flagged[target] == nil {
			s.flagged[target] = make(map[string]bool)
		}
		s.flagged[target][flag] = true
	}
	s.renderer.SetFlag(target, flag, on)
}

// Revert 结束会话：取消待执行的后续动作，并把所有目标还原为中性状态
// 数值属性回到自然值，颜色回到起始色，标记全部关闭
func (s *PlaybackSystem) Revert() {
	for _, id := range s.timers {
		s.clock.CancelTimer(id)
	}
	s.timers = s.timers[:0]

	for _, id := range ecs.GetEntitiesWith1[*components.TweenComponent](s.entityManager) {
		tween, _ := ecs.GetComponent[*components.TweenComponent](s.entityManager, id)
		neutral := neutralProps(tween.From, tween.To)
		for _, target := range tween.Targets {
			s.renderer.ApplyProps(target, neutral)
		}
	}
	for _, id := range ecs.GetEntitiesWith1[*components.TimelineComponent](s.entityManager) {
		tl, _ := ecs.GetComponent[*components.TimelineComponent](s.entityManager, id)
		for i := range tl.Segments {
			seg := &tl.Segments[i]
			neutral := neutralProps(seg.From, seg.To)
			for _, target := range seg.Targets {
				s.renderer.ApplyProps(target, neutral)
			}
		}
	}

	for target, flags := range s.flagged {
		for flag := range flags {
			s.renderer.SetFlag(target, flag, false)
		}
	}
	s.flagged = make(map[string]map[string]bool)
}

// neutralProps 返回未施加动画时的属性值
func neutralProps(from, to types.PropertySet) types.PropertySet {
	out := types.NewPropertySet()
	for k := range from.Numbers {
		out.Numbers[k] = types.NaturalValue(k)
	}
	for k := range to.Numbers {
		out.Numbers[k] = types.NaturalValue(k)
	}
	for k, c := range from.Colors {
		out.Colors[k] = c
	}
	return out
}

// logSchedule 记录调度结果
func logSchedule(kind, name string, id ecs.EntityID, targets int) {
	log.Printf("[PlaybackSystem] Scheduled %s %q (entity=%d, targets=%d)", kind, name, id, targets)
}
