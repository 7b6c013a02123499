package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gonewx/scrollfx/pkg/embedded"
	"github.com/gonewx/scrollfx/pkg/types"
	"gopkg.in/yaml.v3"
)

// 效果类型
const (
	KindTween      = "tween"
	KindCounter    = "counter"
	KindTypewriter = "typewriter"
	KindAction     = "action"
)

// 触发模式（YAML 写法）
const (
	ModeOneShot   = "one_shot"
	ModeRecurring = "recurring"
	ModeScrubbed  = "scrubbed"
)

// 平滑滚动模式
const (
	ScrollModeDuration = "duration"
	ScrollModeLerp     = "lerp"
	ScrollModeSpring   = "spring"
)

// EffectsConfig 效果声明文件的顶层结构
type EffectsConfig struct {
	Scroll   ScrollConfig     `yaml:"scroll"`
	Clock    ClockConfig      `yaml:"clock"`
	Entrance []TimelineConfig `yaml:"entrance"`
	Effects  []EffectConfig   `yaml:"effects"`
}

// ScrollConfig 平滑滚动配置
type ScrollConfig struct {
	Mode            string  `yaml:"mode"`             // duration（默认）/ lerp / spring
	Duration        float64 `yaml:"duration"`         // duration 模式的滑行时长（秒）
	Easing          string  `yaml:"easing"`           // duration 模式的响应曲线，默认 expo.out
	Lerp            float64 `yaml:"lerp"`             // lerp 模式的衰减速率（1/秒）
	SpringFrequency float64 `yaml:"spring_frequency"` // spring 模式角频率
	SpringDamping   float64 `yaml:"spring_damping"`   // spring 模式阻尼比（>= 1）
	WheelMultiplier float64 `yaml:"wheel_multiplier"` // 滚轮增量倍率
	WheelStep       float64 `yaml:"wheel_step"`       // 每格滚轮对应的像素
}

// ClockConfig 帧时钟配置
type ClockConfig struct {
	TPS          int     `yaml:"tps"`
	LagSmoothing bool    `yaml:"lag_smoothing"` // 平滑滚动要求关闭
	StallWindow  float64 `yaml:"stall_window"`
	Parallelism  int     `yaml:"parallelism"` // 触发器计算阶段的并行度，<= 1 为串行
}

// TweenConfig 一段补间的声明
type TweenConfig struct {
	Targets  string         `yaml:"targets"`
	From     map[string]any `yaml:"from,omitempty"`
	To       map[string]any `yaml:"to,omitempty"`
	Duration float64        `yaml:"duration"`
	Delay    float64        `yaml:"delay"`
	Stagger  float64        `yaml:"stagger"`
	Ease     string         `yaml:"ease"`
	Repeat   int            `yaml:"repeat"`
	Yoyo     bool           `yaml:"yoyo"`
}

// ActionConfig 触发器事件或补间完成时执行的动作
type ActionConfig struct {
	On         string       `yaml:"on"` // enter / leave / enter_back / leave_back / complete
	Targets    string       `yaml:"targets"`
	AddFlag    string       `yaml:"add_flag,omitempty"`
	RemoveFlag string       `yaml:"remove_flag,omitempty"`
	Delay      float64      `yaml:"delay"`
	Stagger    float64      `yaml:"stagger"`
	Play       *TweenConfig `yaml:"play,omitempty"`
}

// EffectConfig 单个滚动效果的声明
type EffectConfig struct {
	ID      string `yaml:"id"`
	Kind    string `yaml:"kind"`    // tween（默认）/ counter / typewriter / action
	Trigger string `yaml:"trigger"` // 触发器元素选择器
	Each    bool   `yaml:"each"`    // 为每个匹配的触发器元素展开一个效果
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Mode    string `yaml:"mode"` // one_shot（默认）/ recurring / scrubbed

	TweenConfig `yaml:",inline"`

	// 计数器
	Value      *float64 `yaml:"value,omitempty"`
	ValueAttr  string   `yaml:"value_attr,omitempty"`
	Suffix     string   `yaml:"suffix,omitempty"`
	SuffixAttr string   `yaml:"suffix_attr,omitempty"`

	// 打字机
	Text         string  `yaml:"text,omitempty"`
	TextAttr     string  `yaml:"text_attr,omitempty"`
	CharDuration float64 `yaml:"char_duration,omitempty"`

	Actions    []ActionConfig `yaml:"actions,omitempty"`
	OnComplete []ActionConfig `yaml:"on_complete,omitempty"`
}

// SegmentConfig 入场时间线中的一段
type SegmentConfig struct {
	TweenConfig `yaml:",inline"`
	// Position 相对上一段结束时间的偏移，如 "-=0.5"、"+=0.2"；为空表示紧接上一段
	Position string `yaml:"position"`
}

// TimelineConfig 入场时间线（页面内容就绪后播放一次）
type TimelineConfig struct {
	ID       string          `yaml:"id"`
	Ease     string          `yaml:"ease"` // 各段默认缓动
	Segments []SegmentConfig `yaml:"segments"`
}

// DefaultEffectsConfig 返回仅含默认值的配置
func DefaultEffectsConfig() *EffectsConfig {
	cfg := &EffectsConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadEffectsConfig 加载效果声明
//
// 路径以 "data/" 开头且 embedded 已初始化时从嵌入资源读取，否则从磁盘读取。
func LoadEffectsConfig(path string) (*EffectsConfig, error) {
	var (
		data []byte
		err  error
	)
	if embedded.IsInitialized() && strings.HasPrefix(path, "data/") {
		data, err = embedded.ReadFile(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("无法读取效果配置 %s: %w", path, err)
	}

	cfg, err := ParseEffectsConfig(data)
	if err != nil {
		return nil, fmt.Errorf("无法解析效果配置 %s: %w", path, err)
	}
	return cfg, nil
}

// ParseEffectsConfig 解析 YAML 并填充默认值
func ParseEffectsConfig(data []byte) (*EffectsConfig, error) {
	var cfg EffectsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults 填充未设置的字段
func (c *EffectsConfig) applyDefaults() {
	if c.Scroll.Mode == "" {
		c.Scroll.Mode = ScrollModeDuration
	}
	if c.Scroll.Duration == 0 {
		c.Scroll.Duration = 1.2
	}
	if c.Scroll.Easing == "" {
		c.Scroll.Easing = "expo.out"
	}
	if c.Scroll.Lerp == 0 {
		c.Scroll.Lerp = 10
	}
	if c.Scroll.SpringFrequency == 0 {
		c.Scroll.SpringFrequency = 6
	}
	if c.Scroll.SpringDamping < 1 {
		c.Scroll.SpringDamping = 1
	}
	if c.Scroll.WheelMultiplier == 0 {
		c.Scroll.WheelMultiplier = 1
	}
	if c.Scroll.WheelStep == 0 {
		c.Scroll.WheelStep = 100
	}
	if c.Clock.TPS == 0 {
		c.Clock.TPS = 60
	}
	if c.Clock.StallWindow == 0 {
		c.Clock.StallWindow = 0.5
	}

	for i := range c.Effects {
		e := &c.Effects[i]
		if e.ID == "" {
			e.ID = fmt.Sprintf("effect-%d", i+1)
		}
		if e.Kind == "" {
			e.Kind = KindTween
		}
		if e.Mode == "" {
			e.Mode = ModeOneShot
		}
		if e.Start == "" {
			e.Start = DefaultStart
		}
		if e.End == "" {
			e.End = DefaultEnd
		}
	}
	for i := range c.Entrance {
		if c.Entrance[i].ID == "" {
			c.Entrance[i].ID = fmt.Sprintf("entrance-%d", i+1)
		}
	}
}

// ParseProperties 把 YAML 属性表转换为 PropertySet
// 数字为数值属性，"#rrggbb" 字符串为颜色属性
func ParseProperties(raw map[string]any) (types.PropertySet, error) {
	props := types.NewPropertySet()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := raw[k].(type) {
		case int:
			props.Numbers[k] = float64(v)
		case int64:
			props.Numbers[k] = float64(v)
		case float64:
			props.Numbers[k] = v
		case string:
			if strings.HasPrefix(v, "#") {
				c, err := types.ParseColor(v)
				if err != nil {
					return props, fmt.Errorf("property %s: %w", k, err)
				}
				props.Colors[k] = c
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return props, fmt.Errorf("property %s: unsupported value %q", k, v)
			}
			props.Numbers[k] = f
		default:
			return props, fmt.Errorf("property %s: unsupported value %v", k, v)
		}
	}
	return props, nil
}

// ParsePosition 解析时间线位置偏移（"-=0.5" / "+=0.2" / "0.3"）
func ParsePosition(pos string) (float64, error) {
	pos = strings.TrimSpace(pos)
	if pos == "" {
		return 0, nil
	}
	sign := 1.0
	switch {
	case strings.HasPrefix(pos, "-="):
		sign = -1
		pos = pos[2:]
	case strings.HasPrefix(pos, "+="):
		pos = pos[2:]
	}
	v, err := strconv.ParseFloat(pos, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", pos)
	}
	return sign * v, nil
}
