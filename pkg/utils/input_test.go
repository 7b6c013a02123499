package utils

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func TestDragManagerInitialState(t *testing.T) {
	dm := NewDragManager()

	if dm.GetState() != DragStateNone {
		t.Errorf("Expected initial state to be DragStateNone, got %v", dm.GetState())
	}
	if dm.IsDragging() {
		t.Error("Expected IsDragging to be false initially")
	}
	if dm.GetInfo().TouchID != -1 {
		t.Errorf("Expected TouchID to be -1 initially, got %d", dm.GetInfo().TouchID)
	}
}

func TestDragManagerLifecycle(t *testing.T) {
	dm := NewDragManager()

	steps := []struct {
		name      string
		sample    PointerSample
		wantState DragState
		wantDelta int
	}{
		{"按下", PointerSample{Pressed: true, X: 10, Y: 300, TouchID: 3}, DragStateStarted, 0},
		{"上移", PointerSample{Pressed: true, X: 10, Y: 260, TouchID: 3}, DragStateDragging, -40},
		{"继续上移", PointerSample{Pressed: true, X: 12, Y: 250, TouchID: 3}, DragStateDragging, -10},
		{"释放", PointerSample{TouchID: 3}, DragStateEnded, 0},
		{"空闲", PointerSample{TouchID: -1}, DragStateNone, 0},
	}
	for _, s := range steps {
		t.Run(s.name, func(t *testing.T) {
			dm.Feed(s.sample)
			if dm.GetState() != s.wantState {
				t.Errorf("state = %v, want %v", dm.GetState(), s.wantState)
			}
			if dm.FrameDelta() != s.wantDelta {
				t.Errorf("FrameDelta() = %d, want %d", dm.FrameDelta(), s.wantDelta)
			}
		})
	}
}

func TestDragManagerTouchFlag(t *testing.T) {
	tests := []struct {
		name    string
		touchID ebiten.TouchID
		want    bool
	}{
		{"鼠标", -1, false},
		{"触摸", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dm := NewDragManager()
			dm.Feed(PointerSample{Pressed: true, X: 1, Y: 1, TouchID: tt.touchID})
			if got := dm.GetInfo().IsTouchInput; got != tt.want {
				t.Errorf("IsTouchInput = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDragManagerGetDragDistance(t *testing.T) {
	dm := NewDragManager()
	dm.Feed(PointerSample{Pressed: true, X: 100, Y: 200, TouchID: -1})
	dm.Feed(PointerSample{Pressed: true, X: 150, Y: 120, TouchID: -1})

	dx, dy := dm.GetDragDistance()
	if dx != 50 || dy != -80 {
		t.Errorf("GetDragDistance() = (%d, %d), want (50, -80)", dx, dy)
	}
}

func TestDragManagerPressRightAfterEnd(t *testing.T) {
	dm := NewDragManager()
	dm.Feed(PointerSample{Pressed: true, Y: 10, TouchID: -1})
	dm.Feed(PointerSample{TouchID: -1})
	dm.Feed(PointerSample{Pressed: true, Y: 40, TouchID: -1})

	if dm.GetState() != DragStateStarted {
		t.Errorf("state = %v, want DragStateStarted", dm.GetState())
	}
	if dy := dm.GetInfo().StartY; dy != 40 {
		t.Errorf("StartY = %d, want 40", dy)
	}
}

func TestDragManagerReset(t *testing.T) {
	dm := NewDragManager()
	dm.Feed(PointerSample{Pressed: true, X: 100, Y: 200, TouchID: 1})
	dm.Feed(PointerSample{Pressed: true, X: 150, Y: 250, TouchID: 1})

	dm.Reset()

	if dm.GetState() != DragStateNone {
		t.Errorf("Expected state to be DragStateNone after reset, got %v", dm.GetState())
	}
	info := dm.GetInfo()
	if info.StartX != 0 || info.StartY != 0 || info.CurrentX != 0 || info.CurrentY != 0 {
		t.Errorf("Expected zero positions after reset, got %+v", info)
	}
	if info.TouchID != -1 {
		t.Errorf("Expected TouchID to be -1 after reset, got %d", info.TouchID)
	}
}
