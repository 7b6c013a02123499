package game

import (
	"fmt"
	"log"
	"sync"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

// ViewerSettings 演示宿主的全局设置
type ViewerSettings struct {
	// 动态效果
	ReducedMotion bool `yaml:"reducedMotion"` // 减少动态效果（平滑滚动不受影响）

	// 滚动
	ScrollMode      string  `yaml:"scrollMode"`      // 覆盖 effects.yaml 中的平滑模式，空为不覆盖
	WheelMultiplier float64 `yaml:"wheelMultiplier"` // 滚轮速度 0.25 ~ 4

	// 显示设置
	Fullscreen bool `yaml:"fullscreen"` // 启动时是否全屏
}

// DefaultSettings 返回默认设置
func DefaultSettings() *ViewerSettings {
	return &ViewerSettings{
		ReducedMotion:   false,
		WheelMultiplier: 1,
		Fullscreen:      false,
	}
}

// SettingsManager 设置管理器
// 负责设置的加载、保存，同时作为 types.MotionPreference 的来源
type SettingsManager struct {
	gdataManager *gdata.Manager // gdata 跨平台存储管理器，可为 nil（降级模式）
	settings     *ViewerSettings

	mu        sync.Mutex
	listeners []func(reduced bool)
}

// 存储路径常量
const (
	settingsObject   = "settings"
	settingsProperty = "viewer"
)

// NewSettingsManager 创建新的设置管理器实例
//
// 参数：
//   - gdataManager: gdata 跨平台存储管理器，可为 nil（降级模式，仅内存设置）
func NewSettingsManager(gdataManager *gdata.Manager) *SettingsManager {
	sm := &SettingsManager{
		gdataManager: gdataManager,
		settings:     DefaultSettings(),
	}

	// 加载失败不是致命错误，使用默认设置
	if err := sm.Load(); err != nil {
		log.Printf("[SettingsManager] Warning: Failed to load settings: %v (using defaults)", err)
	}
	return sm
}

// Load 从 gdata 加载设置
//
// 如果 gdataManager 为 nil 或文件不存在，使用默认设置
func (sm *SettingsManager) Load() error {
	if sm.gdataManager == nil {
		sm.settings = DefaultSettings()
		return nil
	}
	if !sm.gdataManager.ObjectPropExists(settingsObject, settingsProperty) {
		sm.settings = DefaultSettings()
		return nil
	}

	data, err := sm.gdataManager.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		sm.settings = DefaultSettings()
		return fmt.Errorf("failed to load settings: %w", err)
	}

	loaded := DefaultSettings()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		sm.settings = DefaultSettings()
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	loaded.WheelMultiplier = clampWheel(loaded.WheelMultiplier)

	sm.settings = loaded
	log.Printf("[SettingsManager] Settings loaded (reducedMotion=%v)", loaded.ReducedMotion)
	return nil
}

// Save 保存设置到 gdata
//
// 如果 gdataManager 为 nil，返回 nil（降级模式，不报错）
func (sm *SettingsManager) Save() error {
	if sm.gdataManager == nil {
		return nil
	}

	data, err := yaml.Marshal(sm.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := sm.gdataManager.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	log.Printf("[SettingsManager] Settings saved successfully")
	return nil
}

// GetSettings 获取当前设置
func (sm *SettingsManager) GetSettings() *ViewerSettings {
	return sm.settings
}

// ReducedMotion 实现 types.MotionPreference
func (sm *SettingsManager) ReducedMotion() bool {
	return sm.settings.ReducedMotion
}

// OnChange 实现 types.MotionPreference
func (sm *SettingsManager) OnChange(fn func(reduced bool)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, fn)
}

// SetReducedMotion 修改“减少动态效果”偏好并通知监听者
// 注意：仅修改内存中的设置，需调用 Save() 方法持久化
func (sm *SettingsManager) SetReducedMotion(reduced bool) {
	if sm.settings.ReducedMotion == reduced {
		return
	}
	sm.settings.ReducedMotion = reduced

	sm.mu.Lock()
	listeners := make([]func(bool), len(sm.listeners))
	copy(listeners, sm.listeners)
	sm.mu.Unlock()

	for _, fn := range listeners {
		fn(reduced)
	}
}

// ToggleReducedMotion 切换偏好，返回新值
func (sm *SettingsManager) ToggleReducedMotion() bool {
	sm.SetReducedMotion(!sm.settings.ReducedMotion)
	return sm.settings.ReducedMotion
}

// SetWheelMultiplier 设置滚轮速度，限制在 0.25 ~ 4
func (sm *SettingsManager) SetWheelMultiplier(m float64) {
	sm.settings.WheelMultiplier = clampWheel(m)
}

// SetFullscreen 设置全屏模式
func (sm *SettingsManager) SetFullscreen(enabled bool) {
	sm.settings.Fullscreen = enabled
}

func clampWheel(m float64) float64 {
	if m <= 0 {
		return 1
	}
	if m < 0.25 {
		return 0.25
	}
	if m > 4 {
		return 4
	}
	return m
}
