package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Easing Functions (缓动函数)
//
// 缓动函数用于控制动画的速度曲线，使动画看起来更自然。
// 所有函数接受一个进度值 t ∈ [0, 1]，返回缓动后的值（back 类缓动会短暂越界）。
//
// 参考：https://easings.net/

// EaseFunc 缓动函数类型
type EaseFunc func(t float64) float64

// EaseLinear 线性缓动（无缓动）
// 返回值 = 输入值（匀速运动）
func EaseLinear(t float64) float64 {
	return t
}

// EaseOutCubic 三次方缓出
// 特点：开始快，结束慢（power2.out）
// 公式：f(t) = 1 - (1-t)³
func EaseOutCubic(t float64) float64 {
	return 1 - math.Pow(1-t, 3)
}

// EaseInCubic 三次方缓入
// 公式：f(t) = t³
func EaseInCubic(t float64) float64 {
	return t * t * t
}

// EaseInOutCubic 三次方缓入缓出
// 公式：
//
//	t < 0.5: f(t) = 4t³
//	t >= 0.5: f(t) = 1 - (-2t + 2)³ / 2
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// EaseOutQuad 二次方缓出（power1.out）
// 公式：f(t) = 1 - (1-t)²
func EaseOutQuad(t float64) float64 {
	return 1 - (1-t)*(1-t)
}

// EaseInQuad 二次方缓入
// 公式：f(t) = t²
func EaseInQuad(t float64) float64 {
	return t * t
}

// EaseOutExpo 指数缓出
// 特点：开始非常快，结束非常慢，平滑滚动的默认响应曲线
// 公式：f(t) = 1 - 2^(-10t)，t >= 1 时钳制为 1
func EaseOutExpo(t float64) float64 {
	if t >= 1.0 {
		return 1.0
	}
	return 1 - math.Pow(2, -10*t)
}

// EaseInOutSine 正弦缓入缓出
// 公式：f(t) = -(cos(πt) - 1) / 2
func EaseInOutSine(t float64) float64 {
	return -(math.Cos(math.Pi*t) - 1) / 2
}

// EaseOutBack 回弹缓出：先冲过终点再回落
// overshoot 为回弹强度（常用 1.70158）
func EaseOutBack(overshoot float64) EaseFunc {
	return func(t float64) float64 {
		c3 := overshoot + 1
		u := t - 1
		return 1 + c3*u*u*u + overshoot*u*u
	}
}

// powerOut 幂次缓出：power N 对应指数 N+1
func powerOut(exp float64) EaseFunc {
	return func(t float64) float64 {
		return 1 - math.Pow(1-t, exp)
	}
}

// powerIn 幂次缓入
func powerIn(exp float64) EaseFunc {
	return func(t float64) float64 {
		return math.Pow(t, exp)
	}
}

// powerInOut 幂次缓入缓出
func powerInOut(exp float64) EaseFunc {
	return func(t float64) float64 {
		if t < 0.5 {
			return math.Pow(2*t, exp) / 2
		}
		return 1 - math.Pow(2*(1-t), exp)/2
	}
}

// ParseEase 按名称解析缓动函数
//
// 支持的写法：
//   - "none" / "linear" / ""（线性）
//   - "power1".."power4"，可带 ".in" / ".out" / ".inOut"，省略方向时为 ".out"
//   - "quad" / "cubic" / "quart" / "quint"（等价于 power1..power4）
//   - "sine.in" / "sine.out" / "sine.inOut"
//   - "expo.out" / "expo.in"
//   - "back.out" 或 "back.out(1.7)"
//
// 返回：
//   - EaseFunc: 缓动函数
//   - error: 名称无法识别时返回错误
func ParseEase(name string) (EaseFunc, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "none" || name == "linear" {
		return EaseLinear, nil
	}

	// 解析可选参数，如 back.out(1.7)
	param := math.NaN()
	if open := strings.IndexByte(name, '('); open >= 0 {
		if !strings.HasSuffix(name, ")") {
			return nil, fmt.Errorf("invalid ease %q: unbalanced parenthesis", name)
		}
		v, err := strconv.ParseFloat(name[open+1:len(name)-1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ease %q: %w", name, err)
		}
		param = v
		name = name[:open]
	}

	family, direction, _ := strings.Cut(name, ".")
	if direction == "" {
		direction = "out"
	}

	switch family {
	case "power1", "quad", "power2", "cubic", "power3", "quart", "power4", "quint":
		exp := map[string]float64{
			"power1": 2, "quad": 2,
			"power2": 3, "cubic": 3,
			"power3": 4, "quart": 4,
			"power4": 5, "quint": 5,
		}[family]
		switch direction {
		case "out":
			return powerOut(exp), nil
		case "in":
			return powerIn(exp), nil
		case "inOut":
			return powerInOut(exp), nil
		}
	case "sine":
		switch direction {
		case "out":
			return func(t float64) float64 { return math.Sin(t * math.Pi / 2) }, nil
		case "in":
			return func(t float64) float64 { return 1 - math.Cos(t*math.Pi/2) }, nil
		case "inOut":
			return EaseInOutSine, nil
		}
	case "expo":
		switch direction {
		case "out":
			return EaseOutExpo, nil
		case "in":
			return func(t float64) float64 {
				if t <= 0 {
					return 0
				}
				return math.Pow(2, 10*t-10)
			}, nil
		}
	case "back":
		overshoot := 1.70158
		if !math.IsNaN(param) {
			overshoot = param
		}
		if direction == "out" {
			return EaseOutBack(overshoot), nil
		}
	}

	return nil, fmt.Errorf("unknown ease %q", name)
}

// MustEase 解析缓动名称，失败时退化为线性缓动
func MustEase(name string) EaseFunc {
	fn, err := ParseEase(name)
	if err != nil {
		return EaseLinear
	}
	return fn
}

// Lerp 线性插值
// 在 a 和 b 之间根据 t 插值
// t=0 返回 a，t=1 返回 b
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Clamp01 将值限制在 [0, 1]
func Clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
