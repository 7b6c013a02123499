package game

import (
	"errors"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
)

var errNoSceneFactory = errors.New("scene factory not set")

// SceneFactory 场景工厂函数类型
// 用于按页面 ID 创建场景，避免 game 与 scenes 之间的循环依赖
type SceneFactory func(pageID string) (Scene, error)

// SceneManager manages which scene is active.
// It ensures only one scene's Update and Draw methods are called at any given time.
type SceneManager struct {
	currentScene Scene
	sceneFactory SceneFactory
}

// NewSceneManager creates a SceneManager with no active scene.
func NewSceneManager() *SceneManager {
	return &SceneManager{}
}

// SetSceneFactory 设置场景工厂函数
func (sm *SceneManager) SetSceneFactory(factory SceneFactory) {
	sm.sceneFactory = factory
}

// SwitchTo changes the active scene; the previous scene is closed if it implements Closable.
func (sm *SceneManager) SwitchTo(scene Scene) {
	if prev, ok := sm.currentScene.(Closable); ok && sm.currentScene != scene {
		prev.Close()
	}
	sm.currentScene = scene
}

// GetCurrentScene 返回当前活动的场景，没有时返回 nil
func (sm *SceneManager) GetCurrentScene() Scene {
	return sm.currentScene
}

// LoadPage 通过工厂函数加载页面场景
// 创建失败时保留当前场景
func (sm *SceneManager) LoadPage(pageID string) error {
	log.Printf("[SceneManager] 加载页面: %s", pageID)

	if sm.sceneFactory == nil {
		log.Printf("[SceneManager] 错误: SceneFactory 未设置")
		return errNoSceneFactory
	}

	scene, err := sm.sceneFactory(pageID)
	if err != nil {
		log.Printf("[SceneManager] 错误: 无法创建页面场景 %s: %v", pageID, err)
		return err
	}
	sm.SwitchTo(scene)
	log.Printf("[SceneManager] 成功切换到页面: %s", pageID)
	return nil
}

// Update updates the currently active scene.
func (sm *SceneManager) Update(deltaTime float64) {
	if sm.currentScene != nil {
		sm.currentScene.Update(deltaTime)
	}
}

// Draw renders the currently active scene.
func (sm *SceneManager) Draw(screen *ebiten.Image) {
	if sm.currentScene != nil {
		sm.currentScene.Draw(screen)
	}
}

// Close 关闭当前场景（程序退出时调用）
func (sm *SceneManager) Close() {
	if c, ok := sm.currentScene.(Closable); ok {
		c.Close()
	}
	sm.currentScene = nil
}
