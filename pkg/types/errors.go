package types

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedBounds 边界描述无法解析（如 "top 80%" 写错）
	ErrMalformedBounds = errors.New("malformed bounds descriptor")
	// ErrTargetNotFound 注册时找不到目标元素
	ErrTargetNotFound = errors.New("target not found")
	// ErrInvalidEffect 效果声明本身不合法（缺字段、模式未知等）
	ErrInvalidEffect = errors.New("invalid effect declaration")
	// ErrUnknownEntity 引用了不存在的触发器或播放单元
	ErrUnknownEntity = errors.New("unknown entity")
)

// ConfigurationError 注册阶段发现的配置错误
// 注册被拒绝，其余触发器不受影响
type ConfigurationError struct {
	Effect string // 效果 ID
	Field  string // 出错字段
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("effect %q: %v", e.Effect, e.Err)
	}
	return fmt.Sprintf("effect %q: %s: %v", e.Effect, e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// EvaluationFault 单个触发器在评估时读取几何信息失败（如目标已脱离文档）
// 该触发器被永久标记为 AFTER 并在后续 tick 中跳过
type EvaluationFault struct {
	Trigger uint64
	Target  string
	Err     error
}

func (e *EvaluationFault) Error() string {
	return fmt.Sprintf("trigger %d (%s): evaluation fault: %v", e.Trigger, e.Target, e.Err)
}

func (e *EvaluationFault) Unwrap() error {
	return e.Err
}

// ClockStallWarning 在预期时间窗口内没有收到 tick
// 非致命：下一次 tick 到来时动画直接继续
type ClockStallWarning struct {
	Gap    float64 // 两次 tick 之间的间隔（秒）
	Window float64 // 预期窗口（秒）
}

func (e *ClockStallWarning) Error() string {
	return fmt.Sprintf("clock stalled for %.3fs (window %.3fs)", e.Gap, e.Window)
}
