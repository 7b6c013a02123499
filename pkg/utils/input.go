// Package utils 提供通用工具函数
package utils

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// DragState 拖拽状态
type DragState int

const (
	// DragStateNone 无拖拽
	DragStateNone DragState = iota
	// DragStateStarted 拖拽开始（刚按下）
	DragStateStarted
	// DragStateDragging 拖拽中（按住移动）
	DragStateDragging
	// DragStateEnded 拖拽结束（释放）
	DragStateEnded
)

// DragInfo 拖拽信息
type DragInfo struct {
	// State 当前拖拽状态
	State DragState
	// StartX, StartY 拖拽起始位置（屏幕坐标）
	StartX, StartY int
	// CurrentX, CurrentY 当前位置（屏幕坐标）
	CurrentX, CurrentY int
	// TouchID 当前跟踪的触摸ID（-1 表示鼠标）
	TouchID ebiten.TouchID
	// IsTouchInput 是否为触摸输入（区分触摸和鼠标）
	IsTouchInput bool
}

// PointerSample 一帧的指针采样
type PointerSample struct {
	Pressed bool
	X, Y    int
	TouchID ebiten.TouchID // -1 表示鼠标
}

// DragManager 拖拽管理器
// 跟踪触摸/鼠标的拖拽状态，页面场景用它实现拖动滚动
type DragManager struct {
	info  DragInfo
	prevY int
	dy    int
}

// NewDragManager 创建拖拽管理器
func NewDragManager() *DragManager {
	dm := &DragManager{}
	dm.Reset()
	return dm
}

// Update 采样当前输入并更新拖拽状态（每帧调用一次）
func (dm *DragManager) Update() {
	dm.Feed(samplePointer(dm.info))
}

// samplePointer 读取 ebiten 输入，优先触摸
func samplePointer(info DragInfo) PointerSample {
	if info.State != DragStateNone && info.IsTouchInput {
		for _, id := range ebiten.AppendTouchIDs(nil) {
			if id == info.TouchID {
				x, y := ebiten.TouchPosition(id)
				return PointerSample{Pressed: true, X: x, Y: y, TouchID: id}
			}
		}
		return PointerSample{TouchID: info.TouchID}
	}

	if ids := inpututil.AppendJustPressedTouchIDs(nil); len(ids) > 0 {
		x, y := ebiten.TouchPosition(ids[0])
		return PointerSample{Pressed: true, X: x, Y: y, TouchID: ids[0]}
	}
	x, y := ebiten.CursorPosition()
	return PointerSample{Pressed: ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft), X: x, Y: y, TouchID: -1}
}

// Feed 用一帧的采样推进状态机
func (dm *DragManager) Feed(s PointerSample) {
	dm.dy = 0

	switch dm.info.State {
	case DragStateNone:
		if s.Pressed {
			dm.info = DragInfo{
				State:        DragStateStarted,
				StartX:       s.X,
				StartY:       s.Y,
				CurrentX:     s.X,
				CurrentY:     s.Y,
				TouchID:      s.TouchID,
				IsTouchInput: s.TouchID >= 0,
			}
			dm.prevY = s.Y
		}

	case DragStateStarted, DragStateDragging:
		if !s.Pressed {
			dm.info.State = DragStateEnded
			return
		}
		dm.info.State = DragStateDragging
		dm.info.CurrentX, dm.info.CurrentY = s.X, s.Y
		dm.dy = s.Y - dm.prevY
		dm.prevY = s.Y

	case DragStateEnded:
		// 结束状态只持续一帧
		dm.Reset()
		if s.Pressed {
			dm.Feed(s)
		}
	}
}

// Reset 重置拖拽状态
func (dm *DragManager) Reset() {
	dm.info = DragInfo{
		State:   DragStateNone,
		TouchID: -1,
	}
	dm.dy = 0
}

// GetState 获取当前拖拽状态
func (dm *DragManager) GetState() DragState {
	return dm.info.State
}

// GetInfo 获取完整拖拽信息
func (dm *DragManager) GetInfo() DragInfo {
	return dm.info
}

// IsDragging 是否正在拖拽
func (dm *DragManager) IsDragging() bool {
	return dm.info.State == DragStateDragging
}

// GetDragDistance 获取拖拽距离（从起点到当前位置）
func (dm *DragManager) GetDragDistance() (dx, dy int) {
	return dm.info.CurrentX - dm.info.StartX, dm.info.CurrentY - dm.info.StartY
}

// FrameDelta 本帧的纵向移动量（向下为正）
func (dm *DragManager) FrameDelta() int {
	return dm.dy
}
