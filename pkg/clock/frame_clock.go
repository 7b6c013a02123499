// Package clock 提供整个引擎唯一的计时源：帧时钟。
//
// 帧时钟由宿主的显示刷新回调驱动（ebiten 的 Update、浏览器的 rAF 等），
// 每个 tick 按订阅顺序把单调递增的已用时间分发给所有订阅者。
// 订阅者内部禁止阻塞：任何阻塞都会让所有动画停顿。
package clock

import (
	"fmt"
	"log"
	"sort"

	"github.com/gonewx/scrollfx/pkg/types"
)

const (
	// DefaultStallWindow 超过该间隔没有 tick 时记录 ClockStallWarning（秒）
	DefaultStallWindow = 0.5
)

// Subscriber tick 回调
//
// 参数：
//   - elapsed: 时钟启动以来的已用时间（秒，单调递增）
//   - dt: 距上一 tick 的时间增量（秒，已应用 lag smoothing）
//
// 返回的错误只会被记录，不会中断其他订阅者。
type Subscriber func(elapsed, dt float64) error

// Handle 订阅句柄
type Handle uint64

// TimerID 延迟调用句柄
type TimerID uint64

type subscription struct {
	handle Handle
	fn     Subscriber
}

type timer struct {
	id  TimerID
	due float64
	seq uint64
	fn  func()
}

// FrameClock 帧时钟
type FrameClock struct {
	running bool

	// 时间戳跟踪
	started       bool
	lastTimestamp float64
	elapsed       float64
	tickCount     uint64

	subscribers []subscription
	nextHandle  Handle

	timers    []timer
	nextTimer TimerID
	timerSeq  uint64

	// Lag smoothing：dt 超过阈值时替换为 adjustedLag；阈值 <= 0 表示关闭
	lagThreshold float64
	adjustedLag  float64

	stallWindow float64
	onStall     func(*types.ClockStallWarning)
}

// Option 帧时钟配置项
type Option func(*FrameClock)

// WithLagSmoothing 开启帧间隔补偿
// threshold <= 0 时关闭（平滑滚动要求关闭，否则模拟偏移会与真实滚动速度脱节）
func WithLagSmoothing(threshold, adjusted float64) Option {
	return func(c *FrameClock) {
		c.lagThreshold = threshold
		c.adjustedLag = adjusted
	}
}

// WithStallWindow 设置卡顿告警窗口（秒），<= 0 时关闭告警
func WithStallWindow(window float64) Option {
	return func(c *FrameClock) {
		c.stallWindow = window
	}
}

// WithStallHandler 设置卡顿回调（默认仅记录日志）
func WithStallHandler(fn func(*types.ClockStallWarning)) Option {
	return func(c *FrameClock) {
		c.onStall = fn
	}
}

// New 创建帧时钟
// 默认开启 500ms/33ms 的 lag smoothing，与常见动画库的默认值一致
func New(opts ...Option) *FrameClock {
	c := &FrameClock{
		subscribers:  make([]subscription, 0),
		timers:       make([]timer, 0),
		lagThreshold: 0.5,
		adjustedLag:  0.033,
		stallWindow:  DefaultStallWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetLagSmoothing 运行时调整 lag smoothing，threshold <= 0 关闭
func (c *FrameClock) SetLagSmoothing(threshold, adjusted float64) {
	c.lagThreshold = threshold
	c.adjustedLag = adjusted
}

// Subscribe 注册 tick 回调，按注册顺序调用
func (c *FrameClock) Subscribe(fn Subscriber) Handle {
	c.nextHandle++
	c.subscribers = append(c.subscribers, subscription{handle: c.nextHandle, fn: fn})
	return c.nextHandle
}

// Unsubscribe 移除 tick 回调；可以在 tick 内部调用
func (c *FrameClock) Unsubscribe(h Handle) {
	for i, s := range c.subscribers {
		if s.handle == h {
			c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
			return
		}
	}
}

// Start 启动时钟；下一次 Tick 只建立时间基准，不产生 dt 跳变
func (c *FrameClock) Start() {
	if c.running {
		return
	}
	c.running = true
	c.started = false
	log.Printf("[FrameClock] Started (subscribers=%d)", len(c.subscribers))
}

// Stop 停止时钟，之后的 Tick 调用全部被忽略
func (c *FrameClock) Stop() {
	if !c.running {
		return
	}
	c.running = false
	log.Printf("[FrameClock] Stopped after %d ticks (elapsed=%.3fs)", c.tickCount, c.elapsed)
}

// Running 返回时钟是否在运行
func (c *FrameClock) Running() bool {
	return c.running
}

// Elapsed 返回已用时间（秒）
func (c *FrameClock) Elapsed() float64 {
	return c.elapsed
}

// TickCount 返回已分发的 tick 数
func (c *FrameClock) TickCount() uint64 {
	return c.tickCount
}

// Tick 以宿主提供的时间戳（秒）推进一帧
//
// 时间戳倒退时 dt 记为 0，保证已用时间单调递增。
func (c *FrameClock) Tick(timestamp float64) {
	if !c.running {
		return
	}

	if !c.started {
		c.started = true
		c.lastTimestamp = timestamp
		c.deliver(0)
		return
	}

	dt := timestamp - c.lastTimestamp
	c.lastTimestamp = timestamp
	if dt < 0 {
		dt = 0
	}
	c.deliver(dt)
}

// Advance 以固定增量推进一帧（用于没有时间戳的帧源和测试）
func (c *FrameClock) Advance(dt float64) {
	if !c.running {
		return
	}
	if !c.started {
		c.started = true
		c.lastTimestamp = 0
	}
	if dt < 0 {
		dt = 0
	}
	c.lastTimestamp += dt
	c.deliver(dt)
}

// deliver 分发一次 tick：订阅者 → 到期的延迟调用
func (c *FrameClock) deliver(dt float64) {
	if c.stallWindow > 0 && dt > c.stallWindow {
		warning := &types.ClockStallWarning{Gap: dt, Window: c.stallWindow}
		if c.onStall != nil {
			c.onStall(warning)
		} else {
			log.Printf("[FrameClock] Warning: %v", warning)
		}
	}

	if c.lagThreshold > 0 && dt > c.lagThreshold {
		dt = c.adjustedLag
	}

	c.elapsed += dt
	c.tickCount++

	// 拷贝一份订阅列表：tick 内的订阅/退订从下一 tick 开始生效
	subs := make([]subscription, len(c.subscribers))
	copy(subs, c.subscribers)
	for _, s := range subs {
		if !c.running {
			return
		}
		if err := c.invoke(s, dt); err != nil {
			log.Printf("[FrameClock] Subscriber %d failed: %v", s.handle, err)
		}
	}

	c.fireTimers()
}

// invoke 调用单个订阅者，把 panic 隔离为错误
func (c *FrameClock) invoke(s subscription, dt float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.fn(c.elapsed, dt)
}

// After 在 delay 秒后的 tick 中执行 fn
//
// 这是引擎内唯一的定时器：所有延迟动作（如动画完成后延迟添加状态标记）
// 都由帧时钟调度，后台挂起时随时钟一起暂停。
func (c *FrameClock) After(delay float64, fn func()) TimerID {
	if delay < 0 {
		delay = 0
	}
	c.nextTimer++
	c.timerSeq++
	c.timers = append(c.timers, timer{
		id:  c.nextTimer,
		due: c.elapsed + delay,
		seq: c.timerSeq,
		fn:  fn,
	})
	return c.nextTimer
}

// CancelTimer 取消尚未执行的延迟调用
func (c *FrameClock) CancelTimer(id TimerID) bool {
	for i, t := range c.timers {
		if t.id == id {
			c.timers = append(c.timers[:i:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

// PendingTimers 返回待执行的延迟调用数
func (c *FrameClock) PendingTimers() int {
	return len(c.timers)
}

// fireTimers 按到期时间（相同则按调度顺序）执行所有到期的延迟调用
func (c *FrameClock) fireTimers() {
	if len(c.timers) == 0 {
		return
	}

	due := make([]timer, 0)
	rest := c.timers[:0]
	for _, t := range c.timers {
		if t.due <= c.elapsed+1e-9 {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	c.timers = rest

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})

	for _, t := range due {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[FrameClock] Timer %d panicked: %v", t.id, r)
				}
			}()
			t.fn()
		}()
	}
}
