package game

import (
	"log"

	"github.com/gonewx/scrollfx/pkg/clock"
	"github.com/gonewx/scrollfx/pkg/config"
	"github.com/gonewx/scrollfx/pkg/systems"
	"github.com/gonewx/scrollfx/pkg/types"
)

// scrollBounded 可选接口：文档能给出最大滚动偏移时，模拟器据此钳制
type scrollBounded interface {
	ScrollLimit() float64
}

// Engine 滚动同步动画引擎
//
// 持有唯一的帧时钟。每个 tick 的顺序固定为：
// 偏好变化 → 平滑滚动 → 触发器评估 → 事件分发 → 播放 → 插值器 → 延迟调用。
// 所有方法都必须在帧源所在的 goroutine 上调用；只有偏好回调可以来自其他 goroutine。
type Engine struct {
	cfg      *config.EffectsConfig
	clock    *clock.FrameClock
	scroll   *systems.SmoothScrollSystem
	doc      types.Document
	renderer types.Renderer
	gate     *MotionGate

	contentReady bool
}

// NewEngine 创建引擎并启动帧时钟
//
// 参数：
//   - cfg: 效果声明（已填充默认值）
//   - doc: 页面文档（选择器、属性、布局快照）
//   - renderer: 视觉状态出口
//   - pref: “减少动态效果”偏好来源，可为 nil
func NewEngine(cfg *config.EffectsConfig, doc types.Document, renderer types.Renderer, pref types.MotionPreference) *Engine {
	if cfg == nil {
		cfg = config.DefaultEffectsConfig()
	}
	opts := []clock.Option{clock.WithStallWindow(cfg.Clock.StallWindow)}
	if !cfg.Clock.LagSmoothing {
		opts = append(opts, clock.WithLagSmoothing(0, 0))
	}

	e := &Engine{
		cfg:      cfg,
		clock:    clock.New(opts...),
		scroll:   systems.NewSmoothScrollSystem(cfg.Scroll),
		doc:      doc,
		renderer: renderer,
	}
	e.gate = NewMotionGate(pref, e.newSession)
	e.clock.Subscribe(e.tick)
	e.clock.Start()

	log.Printf("[Engine] Ready (scroll=%s, effects=%d, entrance=%d, reduced=%v)",
		e.scroll.Mode(), len(cfg.Effects), len(cfg.Entrance), e.gate.Reduced())
	return e
}

func (e *Engine) newSession() *MotionSession {
	return NewMotionSession(e.cfg, e.clock, e.doc, e.renderer, e.contentReady)
}

// tick 帧时钟上唯一的订阅者
func (e *Engine) tick(_, dt float64) error {
	e.gate.Apply()

	if b, ok := e.doc.(scrollBounded); ok {
		e.scroll.SetLimit(b.ScrollLimit())
	}
	e.scroll.Update(dt)

	if s := e.gate.Session(); s != nil {
		s.Update(e.scroll.State().SimulatedOffset, e.doc.Layout())
	}
	return nil
}

// Tick 宿主帧源：以时间戳（秒）推进一帧
func (e *Engine) Tick(timestamp float64) {
	e.clock.Tick(timestamp)
}

// Advance 宿主帧源：以固定增量推进一帧
func (e *Engine) Advance(dt float64) {
	e.clock.Advance(dt)
}

// SetRawOffset 宿主滚动源：报告原始滚动偏移
func (e *Engine) SetRawOffset(offset float64) {
	e.scroll.SetRawOffset(offset)
}

// ScrollBy 宿主滚动源：以像素增量滚动
func (e *Engine) ScrollBy(delta float64) {
	e.scroll.ScrollBy(delta * e.cfg.Scroll.WheelMultiplier)
}

// Wheel 宿主滚轮输入，notches 为滚轮格数（向下为正）
func (e *Engine) Wheel(notches float64) {
	e.ScrollBy(notches * e.cfg.Scroll.WheelStep)
}

// ScrollTo 滚动到指定偏移
func (e *Engine) ScrollTo(offset float64, immediate bool) {
	e.scroll.ScrollTo(offset, immediate)
}

// ContentReady 页面内容就绪，开始入场时间线
func (e *Engine) ContentReady() {
	if e.contentReady {
		return
	}
	e.contentReady = true
	if s := e.gate.Session(); s != nil {
		s.ContentReady()
	}
	log.Printf("[Engine] Content ready")
}

// SetReducedMotion 直接提交一次偏好变化（下一 tick 生效）
func (e *Engine) SetReducedMotion(reduced bool) {
	e.gate.Request(reduced)
}

// OnScroll 订阅平滑滚动状态
func (e *Engine) OnScroll(fn systems.ScrollListener) {
	e.scroll.OnScroll(fn)
}

// ScrollState 返回当前滚动状态
func (e *Engine) ScrollState() systems.ScrollState {
	return e.scroll.State()
}

// Clock 返回帧时钟
func (e *Engine) Clock() *clock.FrameClock {
	return e.clock
}

// Gate 返回偏好闸门
func (e *Engine) Gate() *MotionGate {
	return e.gate
}

// Session 返回当前动画会话（减少动态效果时为 nil）
func (e *Engine) Session() *MotionSession {
	return e.gate.Session()
}

// Close 停止时钟并还原所有视觉目标
func (e *Engine) Close() {
	e.clock.Stop()
	e.gate.Close()
	log.Printf("[Engine] Closed")
}
