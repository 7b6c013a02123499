package systems

import (
	"fmt"
	"log"

	"github.com/gonewx/scrollfx/pkg/components"
	"github.com/gonewx/scrollfx/pkg/config"
	"github.com/gonewx/scrollfx/pkg/ecs"
	"github.com/gonewx/scrollfx/pkg/types"
	"github.com/gonewx/scrollfx/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// 触发器数量达到该值时才启用并行计算
const defaultParallelThreshold = 64

// TriggerSpec 触发器注册参数
type TriggerSpec struct {
	Name   string // 所属效果 ID
	Target string // 触发器元素句柄
	Start  string // 起点边界描述，空为 "top bottom"
	End    string // 终点边界描述，空为 "bottom top"
	Mode   components.TriggerMode
}

// triggerResult 纯计算阶段的结果
type triggerResult struct {
	skip     bool
	fault    bool
	startPos float64
	endPos   float64
	state    components.TriggerState
	progress float64
}

// TriggerSystem 触发器注册表与评估器
//
// 每个 tick 调用一次 Evaluate：
//  1. 纯计算阶段：用同一份布局快照计算每个触发器的起止位置和新状态（可并行）
//  2. 应用阶段：按注册顺序更新状态并把事件写入队列
//
// 事件由 EventRouter 在全部触发器计算完成后统一分发。
type TriggerSystem struct {
	entityManager *ecs.EntityManager
	doc           types.Document
	queue         *EventQueue
	router        *EventRouter

	parallelism       int
	parallelThreshold int

	onFault func(*types.EvaluationFault)
	// 注销触发器时通知绑定方（播放系统、插值器系统）
	onUnregister []func(ecs.EntityID)
}

// NewTriggerSystem 创建触发器系统
func NewTriggerSystem(em *ecs.EntityManager, doc types.Document, queue *EventQueue, router *EventRouter) *TriggerSystem {
	return &TriggerSystem{
		entityManager:     em,
		doc:               doc,
		queue:             queue,
		router:            router,
		parallelThreshold: defaultParallelThreshold,
	}
}

// SetParallelism 设置计算阶段的并行度，n <= 1 为串行
func (s *TriggerSystem) SetParallelism(n, threshold int) {
	s.parallelism = n
	if threshold > 0 {
		s.parallelThreshold = threshold
	}
}

// OnFault 设置评估故障回调（默认只记录日志）
func (s *TriggerSystem) OnFault(fn func(*types.EvaluationFault)) {
	s.onFault = fn
}

// Register 注册触发器
//
// 边界描述非法或目标不在文档中时返回 *types.ConfigurationError，注册被拒绝。
func (s *TriggerSystem) Register(spec TriggerSpec) (ecs.EntityID, error) {
	if spec.Start == "" {
		spec.Start = config.DefaultStart
	}
	if spec.End == "" {
		spec.End = config.DefaultEnd
	}

	start, err := config.ParseBounds(spec.Start)
	if err != nil {
		return ecs.InvalidEntity, &types.ConfigurationError{Effect: spec.Name, Field: "start", Err: err}
	}
	end, err := config.ParseBounds(spec.End)
	if err != nil {
		return ecs.InvalidEntity, &types.ConfigurationError{Effect: spec.Name, Field: "end", Err: err}
	}
	if spec.Mode < components.TriggerOneShot || spec.Mode > components.TriggerScrubbed {
		return ecs.InvalidEntity, &types.ConfigurationError{
			Effect: spec.Name,
			Field:  "mode",
			Err:    fmt.Errorf("%w: mode %d", types.ErrInvalidEffect, spec.Mode),
		}
	}
	if _, ok := s.doc.Layout().Rect(spec.Target); !ok {
		return ecs.InvalidEntity, &types.ConfigurationError{
			Effect: spec.Name,
			Field:  "trigger",
			Err:    fmt.Errorf("%w: %q", types.ErrTargetNotFound, spec.Target),
		}
	}

	id := s.entityManager.CreateEntity()
	ecs.AddComponent(s.entityManager, id, &components.TriggerComponent{
		Name:   spec.Name,
		Target: spec.Target,
		Start:  start,
		End:    end,
		Mode:   spec.Mode,
		State:  components.TriggerBefore,
	})
	return id, nil
}

// OnUnregister 注册注销回调，回调在触发器移除之前按注册顺序调用
func (s *TriggerSystem) OnUnregister(fn func(trigger ecs.EntityID)) {
	s.onUnregister = append(s.onUnregister, fn)
}

// Unregister 移除触发器及其订阅
// 绑定在它上面的播放单元和插值器直接跳到最终状态
func (s *TriggerSystem) Unregister(id ecs.EntityID) {
	if !ecs.HasComponent[*components.TriggerComponent](s.entityManager, id) {
		return
	}
	for _, fn := range s.onUnregister {
		fn(id)
	}
	ecs.RemoveComponent[*components.TriggerComponent](s.entityManager, id)
	s.entityManager.DestroyEntity(id)
	s.router.Unsubscribe(id)
}

// Subscribe 订阅触发器事件
func (s *TriggerSystem) Subscribe(id ecs.EntityID, typ EventType, fn EventHandler) error {
	if !ecs.HasComponent[*components.TriggerComponent](s.entityManager, id) {
		return fmt.Errorf("%w: trigger %d", types.ErrUnknownEntity, id)
	}
	s.router.Subscribe(id, typ, fn)
	return nil
}

// State 返回触发器当前状态
func (s *TriggerSystem) State(id ecs.EntityID) (components.TriggerState, bool) {
	trig, ok := ecs.GetComponent[*components.TriggerComponent](s.entityManager, id)
	if !ok {
		return components.TriggerBefore, false
	}
	return trig.State, true
}

// Progress 返回触发器当前进度
func (s *TriggerSystem) Progress(id ecs.EntityID) (float64, bool) {
	trig, ok := ecs.GetComponent[*components.TriggerComponent](s.entityManager, id)
	if !ok {
		return 0, false
	}
	return trig.Progress, true
}

// Trigger 返回触发器组件（只读使用）
func (s *TriggerSystem) Trigger(id ecs.EntityID) (*components.TriggerComponent, bool) {
	return ecs.GetComponent[*components.TriggerComponent](s.entityManager, id)
}

// Count 返回已注册触发器数
func (s *TriggerSystem) Count() int {
	return len(ecs.GetEntitiesWith1[*components.TriggerComponent](s.entityManager))
}

// IDs 返回全部触发器实体，按注册顺序
func (s *TriggerSystem) IDs() []ecs.EntityID {
	return ecs.GetEntitiesWith1[*components.TriggerComponent](s.entityManager)
}

// Evaluate 以模拟偏移和本 tick 的布局快照评估全部触发器
func (s *TriggerSystem) Evaluate(offset float64, layout types.Layout) {
	ids := ecs.GetEntitiesWith1[*components.TriggerComponent](s.entityManager)
	if len(ids) == 0 {
		return
	}

	trigs := make([]*components.TriggerComponent, len(ids))
	for i, id := range ids {
		trigs[i], _ = ecs.GetComponent[*components.TriggerComponent](s.entityManager, id)
	}

	results := make([]triggerResult, len(ids))
	if s.parallelism > 1 && len(ids) >= s.parallelThreshold {
		s.computeParallel(trigs, offset, layout, results)
	} else {
		for i, trig := range trigs {
			results[i] = computeTrigger(trig, offset, layout)
		}
	}

	for i, id := range ids {
		s.apply(id, trigs[i], results[i])
	}
}

// computeParallel 把纯计算阶段分散到多个 goroutine
// 只读取组件的边界和布局快照，不做任何写入
func (s *TriggerSystem) computeParallel(trigs []*components.TriggerComponent, offset float64, layout types.Layout, results []triggerResult) {
	var g errgroup.Group
	g.SetLimit(s.parallelism)

	chunk := (len(trigs) + s.parallelism - 1) / s.parallelism
	for lo := 0; lo < len(trigs); lo += chunk {
		hi := lo + chunk
		if hi > len(trigs) {
			hi = len(trigs)
		}
		lo, hi := lo, hi
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				results[i] = computeTrigger(trigs[i], offset, layout)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// computeTrigger 计算单个触发器的新状态（纯函数）
func computeTrigger(trig *components.TriggerComponent, offset float64, layout types.Layout) triggerResult {
	if trig == nil || trig.Faulted || trig.Retired {
		return triggerResult{skip: true}
	}

	rect, ok := layout.Rect(trig.Target)
	if !ok {
		return triggerResult{fault: true}
	}
	vp := layout.Viewport()
	start := trig.Start.ScrollPosition(rect, vp)
	end := trig.End.ScrollPosition(rect, vp)

	r := triggerResult{startPos: start, endPos: end}
	switch {
	case offset < start:
		r.state = components.TriggerBefore
	case offset <= end:
		r.state = components.TriggerActive
	default:
		r.state = components.TriggerAfter
	}

	if end > start {
		r.progress = utils.Clamp01((offset - start) / (end - start))
	} else if offset >= start {
		r.progress = 1
	}
	return r
}

// transitionEvents 返回状态转换对应的事件序列
// 一帧内跨越整个区间时两侧事件都会发出，不做合并
func transitionEvents(from, to components.TriggerState) []EventType {
	switch {
	case from == to:
		return nil
	case from == components.TriggerBefore && to == components.TriggerActive:
		return []EventType{EventEnter}
	case from == components.TriggerActive && to == components.TriggerAfter:
		return []EventType{EventLeave}
	case from == components.TriggerAfter && to == components.TriggerActive:
		return []EventType{EventEnterBack}
	case from == components.TriggerActive && to == components.TriggerBefore:
		return []EventType{EventLeaveBack}
	case from == components.TriggerBefore && to == components.TriggerAfter:
		return []EventType{EventEnter, EventLeave}
	case from == components.TriggerAfter && to == components.TriggerBefore:
		return []EventType{EventEnterBack, EventLeaveBack}
	}
	return nil
}

// apply 应用计算结果并把事件写入队列
func (s *TriggerSystem) apply(id ecs.EntityID, trig *components.TriggerComponent, r triggerResult) {
	if r.skip {
		return
	}
	if r.fault {
		trig.Faulted = true
		trig.State = components.TriggerAfter
		fault := &types.EvaluationFault{
			Trigger: uint64(id),
			Target:  trig.Target,
			Err:     fmt.Errorf("%w: no layout for %q", types.ErrTargetNotFound, trig.Target),
		}
		if s.onFault != nil {
			s.onFault(fault)
		} else {
			log.Printf("[TriggerSystem] %v", fault)
		}
		return
	}

	trig.StartPos = r.startPos
	trig.EndPos = r.endPos
	prev := trig.State
	trig.State = r.state
	events := transitionEvents(prev, r.state)

	switch trig.Mode {
	case components.TriggerOneShot:
		for _, ev := range events {
			if ev == EventEnter && !trig.Fired {
				trig.Fired = true
				trig.Retired = true
				s.queue.Push(TriggerEvent{Source: id, Type: EventEnter, Progress: r.progress})
				log.Printf("[TriggerSystem] %s fired (target=%s, start=%.1f)", trig.Name, trig.Target, r.startPos)
				return
			}
		}

	case components.TriggerRecurring:
		for _, ev := range events {
			s.queue.Push(TriggerEvent{Source: id, Type: ev, Progress: r.progress})
		}

	case components.TriggerScrubbed:
		trig.Progress = r.progress
		for _, ev := range events {
			s.queue.Push(TriggerEvent{Source: id, Type: ev, Progress: r.progress})
		}
		if r.state == components.TriggerActive || len(events) > 0 {
			s.queue.Push(TriggerEvent{Source: id, Type: EventProgress, Progress: r.progress})
		}
	}
}
