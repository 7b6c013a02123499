package utils

import (
	"strings"

	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/rivo/uniseg"
)

// MeasureFunc 返回一行文本的像素宽度
type MeasureFunc func(s string) float64

// FaceMeasure 使用字体测量文本宽度
func FaceMeasure(face *text.GoTextFace) MeasureFunc {
	return func(s string) float64 {
		if s == "" || face == nil {
			return 0
		}
		w, _ := text.Measure(s, face, 0)
		return w
	}
}

// WrapText 将文本按指定宽度自动换行
// 参数:
//   - textStr: 要换行的文本
//   - measure: 宽度测量函数
//   - maxWidth: 最大宽度（像素）
//
// 返回:
//   - []string: 换行后的文本数组（每个元素为一行）
//
// 换行规则:
//   - 在 Unicode 断行点（空格后、CJK 字符之间）断行
//   - 文本中的换行符强制断行
//   - 单个片段超过最大宽度时按字素簇强制断行
func WrapText(textStr string, measure MeasureFunc, maxWidth float64) []string {
	if textStr == "" || measure == nil || maxWidth <= 0 {
		return []string{textStr}
	}
	if !strings.Contains(textStr, "\n") && measure(textStr) <= maxWidth {
		return []string{textStr}
	}

	var (
		lines   []string
		current string
		state   = -1
	)
	flush := func() {
		lines = append(lines, strings.TrimRight(current, " \n\r"))
		current = ""
	}

	rest := textStr
	for len(rest) > 0 {
		var (
			segment   string
			mustBreak bool
		)
		segment, rest, mustBreak, state = uniseg.FirstLineSegmentInString(rest, state)

		if measure(strings.TrimRight(current+segment, " \n\r")) > maxWidth {
			if current != "" {
				flush()
			}
			// 单个片段仍然超宽，按字素簇拆开
			if measure(strings.TrimRight(segment, " \n\r")) > maxWidth {
				segment = breakGraphemes(segment, measure, maxWidth, &lines)
			}
		}
		current += segment

		if mustBreak && len(rest) > 0 {
			flush()
		}
	}
	if current != "" {
		flush()
	}
	if len(lines) == 0 {
		lines = []string{textStr}
	}
	return lines
}

// breakGraphemes 把超宽片段拆成多行写入 lines，返回最后不满一行的部分
func breakGraphemes(segment string, measure MeasureFunc, maxWidth float64, lines *[]string) string {
	line := ""
	g := uniseg.NewGraphemes(segment)
	for g.Next() {
		cluster := g.Str()
		if line != "" && measure(line+cluster) > maxWidth {
			*lines = append(*lines, line)
			line = ""
		}
		line += cluster
	}
	return line
}
