//go:build !mobile

package utils

import "testing"

// TestIsMobile_Desktop 测试桌面端编译时 IsMobile() 的行为
func TestIsMobile_Desktop(t *testing.T) {
	t.Setenv("SCROLLFX_MOBILE_EMULATE", "")
	if IsMobile() {
		t.Error("IsMobile() should return false on desktop")
	}

	t.Setenv("SCROLLFX_MOBILE_EMULATE", "1")
	if !IsMobile() {
		t.Error("IsMobile() should honour SCROLLFX_MOBILE_EMULATE=1")
	}
}
