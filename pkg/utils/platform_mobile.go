//go:build mobile

package utils

// IsMobile 检测当前是否在移动设备上运行
// 使用 -tags mobile 构建（ebitenmobile 绑定）时恒为 true
func IsMobile() bool {
	return true
}
