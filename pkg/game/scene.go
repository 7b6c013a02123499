package game

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Scene represents a viewer scene (e.g., the scrolling page, a settings overlay).
// Each scene has its own update and rendering logic.
type Scene interface {
	// Update advances the scene. deltaTime is the time elapsed since the last update in seconds.
	Update(deltaTime float64)

	// Draw renders the scene to the provided screen.
	Draw(screen *ebiten.Image)
}

// Closable 是一个可选接口，场景被替换或程序退出时调用 Close
//
// 页面场景在这里停止帧时钟、还原视觉目标并保存设置。
type Closable interface {
	Close()
}
