package systems

import (
	"log"
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/gonewx/scrollfx/pkg/config"
	"github.com/gonewx/scrollfx/pkg/utils"
)

// lerp 模式的收敛阈值（像素）
const scrollSnapEpsilon = 0.01

// ScrollState 对外发布的滚动状态
//
// 唯一的写入者是 SmoothScrollSystem；触发器和诊断只读取副本。
type ScrollState struct {
	RawOffset       float64 // 平台报告的原始偏移（目标）
	SimulatedOffset float64 // 平滑后的偏移，所有滚动效果只读取它
	Velocity        float64 // 像素/秒
	Limit           float64 // 最大偏移
	Time            float64 // 模拟器累计时间
	Moving          bool
}

// ScrollListener 每次模拟更新后收到新的状态
type ScrollListener func(state ScrollState)

// SmoothScrollSystem 平滑滚动模拟器
//
// 把离散的原始滚动输入转换为连续、带缓动的虚拟偏移。
// 每个 tick 只调用一次 Update，在触发器评估之前。
// 它不受“减少动态效果”偏好影响。
type SmoothScrollSystem struct {
	state ScrollState

	mode     string
	duration float64
	ease     utils.EaseFunc
	lerpRate float64

	// duration 模式：每次目标变化都从当前偏移重新开始一段滑行
	gliding      bool
	glideFrom    float64
	glideTo      float64
	glideElapsed float64

	// spring 模式
	springFreq    float64
	springDamping float64
	springDT      float64
	spring        harmonica.Spring
	springVel     float64

	limited   bool
	listeners []ScrollListener
}

// NewSmoothScrollSystem 根据配置创建模拟器
func NewSmoothScrollSystem(cfg config.ScrollConfig) *SmoothScrollSystem {
	ease, err := utils.ParseEase(cfg.Easing)
	if err != nil {
		log.Printf("[SmoothScrollSystem] Invalid easing %q, using expo.out: %v", cfg.Easing, err)
		ease = utils.EaseOutExpo
	}

	damping := cfg.SpringDamping
	if damping < 1 {
		// 欠阻尼会越过目标，偏移将来回穿越触发器边界
		damping = 1
	}

	s := &SmoothScrollSystem{
		mode:          cfg.Mode,
		duration:      cfg.Duration,
		ease:          ease,
		lerpRate:      cfg.Lerp,
		springFreq:    cfg.SpringFrequency,
		springDamping: damping,
	}
	switch s.mode {
	case config.ScrollModeDuration, config.ScrollModeLerp, config.ScrollModeSpring:
	default:
		log.Printf("[SmoothScrollSystem] Unknown mode %q, using %s", s.mode, config.ScrollModeDuration)
		s.mode = config.ScrollModeDuration
	}
	return s
}

// OnScroll 注册状态监听器，按注册顺序在每次 Update 后调用
func (s *SmoothScrollSystem) OnScroll(fn ScrollListener) {
	s.listeners = append(s.listeners, fn)
}

// State 返回当前状态副本
func (s *SmoothScrollSystem) State() ScrollState {
	return s.state
}

// Mode 返回平滑模式
func (s *SmoothScrollSystem) Mode() string {
	return s.mode
}

// SetLimit 设置最大偏移（文档高度 - 视口高度），未设置时不限制
func (s *SmoothScrollSystem) SetLimit(limit float64) {
	if limit < 0 {
		limit = 0
	}
	s.state.Limit = limit
	s.limited = true
	if s.state.RawOffset > limit {
		s.SetRawOffset(limit)
	}
	if s.state.SimulatedOffset > limit {
		s.state.SimulatedOffset = limit
	}
}

// SetRawOffset 平台报告新的原始偏移
// 目标变化时从当前模拟偏移开始一段新的滑行
func (s *SmoothScrollSystem) SetRawOffset(offset float64) {
	offset = s.clamp(offset)
	if offset == s.state.RawOffset && (s.gliding || s.state.SimulatedOffset == offset) {
		return
	}
	s.state.RawOffset = offset
	s.gliding = true
	s.glideFrom = s.state.SimulatedOffset
	s.glideTo = offset
	s.glideElapsed = 0
}

// ScrollBy 以增量移动目标（滚轮输入）
func (s *SmoothScrollSystem) ScrollBy(delta float64) {
	s.SetRawOffset(s.state.RawOffset + delta)
}

// ScrollTo 移动到指定偏移；immediate 为 true 时跳过平滑
func (s *SmoothScrollSystem) ScrollTo(offset float64, immediate bool) {
	if !immediate {
		s.SetRawOffset(offset)
		return
	}
	offset = s.clamp(offset)
	s.state.RawOffset = offset
	s.state.SimulatedOffset = offset
	s.state.Velocity = 0
	s.gliding = false
	s.springVel = 0
}

func (s *SmoothScrollSystem) clamp(offset float64) float64 {
	if offset < 0 {
		return 0
	}
	if s.limited && offset > s.state.Limit {
		return s.state.Limit
	}
	return offset
}

// Update 推进模拟并发布状态
func (s *SmoothScrollSystem) Update(dt float64) {
	prev := s.state.SimulatedOffset
	s.state.Time += dt

	if s.gliding {
		switch s.mode {
		case config.ScrollModeLerp:
			s.stepLerp(dt)
		case config.ScrollModeSpring:
			s.stepSpring(dt)
		default:
			s.stepDuration(dt)
		}
	}

	if dt > 0 {
		s.state.Velocity = (s.state.SimulatedOffset - prev) / dt
	} else {
		s.state.Velocity = 0
	}
	s.state.Moving = s.gliding

	for _, fn := range s.listeners {
		fn(s.state)
	}
}

func (s *SmoothScrollSystem) stepDuration(dt float64) {
	if s.duration <= 0 {
		s.finishGlide()
		return
	}
	s.glideElapsed += dt
	p := utils.Clamp01(s.glideElapsed / s.duration)
	s.state.SimulatedOffset = utils.Lerp(s.glideFrom, s.glideTo, s.ease(p))
	if p >= 1 {
		s.finishGlide()
	}
}

func (s *SmoothScrollSystem) stepLerp(dt float64) {
	if s.lerpRate <= 0 {
		s.finishGlide()
		return
	}
	target := s.state.RawOffset
	x := s.state.SimulatedOffset
	x += (target - x) * (1 - math.Exp(-s.lerpRate*dt))
	if math.Abs(target-x) < scrollSnapEpsilon {
		s.finishGlide()
		return
	}
	s.state.SimulatedOffset = x
}

func (s *SmoothScrollSystem) stepSpring(dt float64) {
	if dt <= 0 {
		return
	}
	if dt != s.springDT {
		s.springDT = dt
		s.spring = harmonica.NewSpring(dt, s.springFreq, s.springDamping)
	}
	target := s.state.RawOffset
	pos, vel := s.spring.Update(s.state.SimulatedOffset, s.springVel, target)
	// 临界阻尼不会越过目标，这里只处理浮点误差
	if (s.state.SimulatedOffset <= target && pos > target) || (s.state.SimulatedOffset >= target && pos < target) {
		pos = target
	}
	s.state.SimulatedOffset = pos
	s.springVel = vel
	if math.Abs(target-pos) < scrollSnapEpsilon && math.Abs(vel) < scrollSnapEpsilon {
		s.finishGlide()
	}
}

func (s *SmoothScrollSystem) finishGlide() {
	s.state.SimulatedOffset = s.state.RawOffset
	s.gliding = false
	s.springVel = 0
}
