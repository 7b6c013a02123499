package game

import (
	"log"
	"sync/atomic"

	"github.com/gonewx/scrollfx/pkg/clock"
	"github.com/gonewx/scrollfx/pkg/config"
	"github.com/gonewx/scrollfx/pkg/ecs"
	"github.com/gonewx/scrollfx/pkg/systems"
	"github.com/gonewx/scrollfx/pkg/types"
)

// MotionSession 一次“允许动态效果”期间的全部动画状态
//
// 每个会话拥有独立的 ECS 世界、事件队列和系统；触发器的 Fired/Progress
// 都从初始值开始。会话结束时所有视觉目标还原为中性状态。
type MotionSession struct {
	entityManager *ecs.EntityManager
	queue         *systems.EventQueue
	router        *systems.EventRouter
	triggers      *systems.TriggerSystem
	playback      *systems.PlaybackSystem
	interp        *systems.InterpolatorSystem

	Report *LoadReport
}

// NewMotionSession 创建会话并加载全部效果声明
func NewMotionSession(cfg *config.EffectsConfig, fc *clock.FrameClock, doc types.Document, renderer types.Renderer, contentReady bool) *MotionSession {
	em := ecs.NewEntityManager()
	queue := systems.NewEventQueue()
	router := systems.NewEventRouter(queue)
	triggers := systems.NewTriggerSystem(em, doc, queue, router)
	triggers.SetParallelism(cfg.Clock.Parallelism, 0)
	playback := systems.NewPlaybackSystem(em, renderer, fc, triggers, queue, router)
	interp := systems.NewInterpolatorSystem(em, renderer, fc, triggers, playback, queue, router)

	s := &MotionSession{
		entityManager: em,
		queue:         queue,
		router:        router,
		triggers:      triggers,
		playback:      playback,
		interp:        interp,
	}
	s.Report = LoadEffects(cfg, doc, triggers, playback, interp)
	if contentReady {
		playback.ContentReady()
	}

	log.Printf("[MotionSession] Started: %d triggers, %d tweens, %d timelines, %d counters, %d typewriters, %d rejected",
		s.Report.Triggers, s.Report.Tweens, s.Report.Timelines, s.Report.Counters, s.Report.Typewriters, s.Report.Rejected())
	return s
}

// Update 会话内的单个 tick：触发器评估 → 事件分发 → 播放 → 插值器
func (s *MotionSession) Update(offset float64, layout types.Layout) {
	s.triggers.Evaluate(offset, layout)
	s.router.DispatchAll()
	s.playback.Update()
	s.interp.Update()
	s.entityManager.RemoveMarkedEntities()
}

// ContentReady 页面内容就绪，开始入场时间线
func (s *MotionSession) ContentReady() {
	s.playback.ContentReady()
}

// Triggers 返回会话的触发器系统
func (s *MotionSession) Triggers() *systems.TriggerSystem {
	return s.triggers
}

// Playback 返回会话的播放系统
func (s *MotionSession) Playback() *systems.PlaybackSystem {
	return s.playback
}

// Interpolators 返回会话的插值器系统
func (s *MotionSession) Interpolators() *systems.InterpolatorSystem {
	return s.interp
}

// Teardown 结束会话：取消待执行的后续动作，目标还原为中性状态
func (s *MotionSession) Teardown() {
	s.playback.Revert()
	s.interp.Revert()
	log.Printf("[MotionSession] Torn down")
}

// 排队中的偏好变化
const (
	pendingNone int32 = iota
	pendingAllow
	pendingReduce
)

// MotionGate 根据“减少动态效果”偏好创建和销毁动画会话
//
// 偏好回调可能来自任意 goroutine，这里只记录最新的值；
// 真正的切换在下一个 tick 开始时由 Apply 完成。
type MotionGate struct {
	pending atomic.Int32
	reduced bool
	build   func() *MotionSession
	session *MotionSession
}

// NewMotionGate 查询一次初始偏好并订阅后续变化
// pref 为 nil 时视为允许动态效果
func NewMotionGate(pref types.MotionPreference, build func() *MotionSession) *MotionGate {
	g := &MotionGate{build: build}
	if pref != nil {
		g.reduced = pref.ReducedMotion()
		pref.OnChange(g.Request)
	}
	if g.reduced {
		log.Printf("[MotionGate] Reduced motion preferred, animations disabled")
	} else {
		g.session = build()
	}
	return g
}

// Request 记录一次偏好变化（线程安全）
func (g *MotionGate) Request(reduced bool) {
	if reduced {
		g.pending.Store(pendingReduce)
	} else {
		g.pending.Store(pendingAllow)
	}
}

// Apply 应用排队中的偏好变化，每个 tick 开始时调用
func (g *MotionGate) Apply() {
	switch g.pending.Swap(pendingNone) {
	case pendingReduce:
		if g.reduced {
			return
		}
		g.reduced = true
		if g.session != nil {
			g.session.Teardown()
			g.session = nil
		}
		log.Printf("[MotionGate] Reduced motion enabled")
	case pendingAllow:
		if !g.reduced {
			return
		}
		g.reduced = false
		g.session = g.build()
		log.Printf("[MotionGate] Reduced motion disabled, new session")
	}
}

// Reduced 返回当前是否处于减少动态效果状态
func (g *MotionGate) Reduced() bool {
	return g.reduced
}

// Session 返回当前会话（减少动态效果时为 nil）
func (g *MotionGate) Session() *MotionSession {
	return g.session
}

// Close 结束当前会话
func (g *MotionGate) Close() {
	if g.session != nil {
		g.session.Teardown()
		g.session = nil
	}
}
