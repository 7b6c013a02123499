// Package app 提供演示宿主的核心包装器
//
// 该包将初始化逻辑从 main 包提取出来，使其可以被桌面端和移动端共用。
// 桌面端通过 main.go 调用 NewApp()，移动端通过 mobile/mobile.go 调用。
package app

import (
	"fmt"
	"io"
	"log"

	"github.com/gonewx/scrollfx/pkg/config"
	"github.com/gonewx/scrollfx/pkg/game"
	"github.com/gonewx/scrollfx/pkg/page"
	"github.com/gonewx/scrollfx/pkg/scenes"
	"github.com/gonewx/scrollfx/pkg/utils"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/quasilyte/gdata/v2"
)

// 默认资源路径
const (
	DefaultEffectsPath = "data/effects.yaml"
	DefaultPagePath    = "data/page.yaml"
)

// Config 定义应用启动配置
type Config struct {
	// Verbose 启用详细日志输出
	Verbose bool
	// EffectsPath 效果声明文件，为空使用 DefaultEffectsPath
	EffectsPath string
	// PagePath 页面文件，为空使用 DefaultPagePath
	PagePath string
	// ReducedMotion 非 nil 时覆盖已保存的偏好
	ReducedMotion *bool
	// ScrollMode 非空时覆盖平滑滚动模式
	ScrollMode string
}

// App 是演示宿主的核心包装器，实现 ebiten.Game 接口
//
// 它同时是引擎的四个平台来源：帧（Update）、滚动（滚轮/按键）、
// 视口（Layout）以及“减少动态效果”偏好（SettingsManager）。
type App struct {
	sceneManager *game.SceneManager
	settings     *game.SettingsManager
	verbose      bool

	width, height int
}

// NewApp 创建并初始化应用
//
// 调用此函数前，必须先调用 embedded.Init() 初始化嵌入资源。
func NewApp(cfg Config) (*App, error) {
	// 配置日志输出
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}
	if cfg.EffectsPath == "" {
		cfg.EffectsPath = DefaultEffectsPath
	}
	if cfg.PagePath == "" {
		cfg.PagePath = DefaultPagePath
	}

	// 设置存储不可用时降级为内存设置
	if err := utils.EnsureStorageDir(); err != nil {
		log.Printf("[App] Warning: %v", err)
	}
	store, err := gdata.Open(gdata.Config{AppName: "scrollfx"})
	if err != nil {
		log.Printf("[App] Warning: settings store unavailable: %v", err)
		store = nil
	}
	settings := game.NewSettingsManager(store)
	if cfg.ReducedMotion != nil {
		settings.SetReducedMotion(*cfg.ReducedMotion)
	}

	effects, err := config.LoadEffectsConfig(cfg.EffectsPath)
	if err != nil {
		return nil, fmt.Errorf("效果配置加载失败: %w", err)
	}
	viewer := settings.GetSettings()
	if viewer.ScrollMode != "" {
		effects.Scroll.Mode = viewer.ScrollMode
	}
	if cfg.ScrollMode != "" {
		effects.Scroll.Mode = cfg.ScrollMode
	}
	effects.Scroll.WheelMultiplier *= viewer.WheelMultiplier

	rm := game.NewResourceManager()
	sceneManager := game.NewSceneManager()
	sceneManager.SetSceneFactory(func(pagePath string) (game.Scene, error) {
		doc, err := page.LoadPage(pagePath)
		if err != nil {
			return nil, err
		}
		engine := game.NewEngine(effects, doc, doc, settings)
		if session := engine.Session(); session != nil && session.Report.Rejected() > 0 {
			log.Printf("[App] %d effect declarations rejected, see [EffectLoader] messages", session.Report.Rejected())
		}
		return scenes.NewPageScene(doc, engine, rm)
	})
	if err := sceneManager.LoadPage(cfg.PagePath); err != nil {
		return nil, fmt.Errorf("页面加载失败: %w", err)
	}

	log.Printf("[App] Started (page=%s, effects=%s, reducedMotion=%v)",
		cfg.PagePath, cfg.EffectsPath, settings.ReducedMotion())
	return &App{
		sceneManager: sceneManager,
		settings:     settings,
		verbose:      cfg.Verbose,
	}, nil
}

// Update 每个 tick 调用一次（通常每秒 60 次）
func (a *App) Update() error {
	if ebiten.IsWindowBeingClosed() {
		a.Close()
		return ebiten.Termination
	}

	// F11 切换全屏
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		fullscreen := !ebiten.IsFullscreen()
		ebiten.SetFullscreen(fullscreen)
		a.settings.SetFullscreen(fullscreen)
	}

	// M 切换“减少动态效果”，引擎在下一个 tick 应用
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		reduced := a.settings.ToggleReducedMotion()
		log.Printf("[App] Reduced motion toggled: %v", reduced)
		if err := a.settings.Save(); err != nil {
			log.Printf("[App] Warning: failed to save settings: %v", err)
		}
	}

	deltaTime := 1.0 / float64(ebiten.TPS())
	a.sceneManager.Update(deltaTime)
	return nil
}

// Draw 每帧调用一次
func (a *App) Draw(screen *ebiten.Image) {
	a.sceneManager.Draw(screen)
}

// resizable 可选接口：场景需要知道视口尺寸
type resizable interface {
	Resize(width, height int)
}

// Layout 逻辑尺寸与窗口尺寸一致，页面随窗口重新布局
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != a.width || outsideHeight != a.height {
		a.width, a.height = outsideWidth, outsideHeight
		if r, ok := a.sceneManager.GetCurrentScene().(resizable); ok {
			r.Resize(outsideWidth, outsideHeight)
		}
	}
	return outsideWidth, outsideHeight
}

// Close 关闭场景并保存设置（窗口关闭时调用）
func (a *App) Close() {
	a.sceneManager.Close()
	if err := a.settings.Save(); err != nil {
		log.Printf("[App] Warning: failed to save settings: %v", err)
	}
}

// Settings 返回设置管理器
func (a *App) Settings() *game.SettingsManager {
	return a.settings
}

// IsVerbose 返回是否启用了详细日志
func (a *App) IsVerbose() bool {
	return a.verbose
}
