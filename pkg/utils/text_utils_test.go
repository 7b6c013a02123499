package utils

import (
	"reflect"
	"testing"

	"github.com/rivo/uniseg"
)

// monoMeasure 每个字素簇 10 像素
func monoMeasure(s string) float64 {
	return float64(uniseg.GraphemeClusterCount(s)) * 10
}

// TestWrapText 测试文本换行功能
func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth float64
		want     []string
	}{
		{
			name:     "短文本不换行",
			input:    "boot ok",
			maxWidth: 100,
			want:     []string{"boot ok"},
		},
		{
			name:     "在空格处断行",
			input:    "firmware that ships",
			maxWidth: 100,
			want:     []string{"firmware", "that ships"},
		},
		{
			name:     "超长单词强制断行",
			input:    "watchdogwatchdog",
			maxWidth: 50,
			want:     []string{"watch", "dogwa", "tchdo", "g"},
		},
		{
			name:     "换行符强制断行",
			input:    "a\nb",
			maxWidth: 100,
			want:     []string{"a", "b"},
		},
		{
			name:     "中文字符之间可断行",
			input:    "嵌入式系统咨询",
			maxWidth: 40,
			want:     []string{"嵌入式系", "统咨询"},
		},
		{
			name:     "组合字符不被拆开",
			input:    "e\u0301e\u0301e\u0301",
			maxWidth: 20,
			want:     []string{"e\u0301e\u0301", "e\u0301"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapText(tt.input, monoMeasure, tt.maxWidth)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("WrapText(%q, %v) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
		})
	}
}

// TestWrapTextEdgeCases 测试边界情况
func TestWrapTextEdgeCases(t *testing.T) {
	t.Run("空字符串", func(t *testing.T) {
		got := WrapText("", monoMeasure, 100)
		if len(got) != 1 || got[0] != "" {
			t.Errorf("WrapText(\"\") = %q, want [\"\"]", got)
		}
	})

	t.Run("nil 测量函数", func(t *testing.T) {
		got := WrapText("text", nil, 100)
		if len(got) != 1 || got[0] != "text" {
			t.Errorf("WrapText with nil measure = %q", got)
		}
	})

	t.Run("非正宽度", func(t *testing.T) {
		got := WrapText("text", monoMeasure, 0)
		if len(got) != 1 || got[0] != "text" {
			t.Errorf("WrapText with zero width = %q", got)
		}
	})

	t.Run("nil 字体", func(t *testing.T) {
		if w := FaceMeasure(nil)("abc"); w != 0 {
			t.Errorf("FaceMeasure(nil) = %v, want 0", w)
		}
	})
}
