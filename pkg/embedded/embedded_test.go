package embedded

import (
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"data/effects.yaml": {Data: []byte("effects: []\n")},
		"data/page.yaml":    {Data: []byte("title: test\n")},
	}
}

// reset 恢复未初始化状态，避免影响其他测试
func reset(t *testing.T) {
	t.Cleanup(func() {
		dataFS = nil
		initialized = false
	})
}

// TestIsInitialized 测试初始化状态检测
func TestIsInitialized(t *testing.T) {
	reset(t)
	initialized = false

	if IsInitialized() {
		t.Error("Expected IsInitialized() to return false before Init()")
	}
	Init(testFS())
	if !IsInitialized() {
		t.Error("Expected IsInitialized() to return true after Init()")
	}
}

// TestNotInitialized 测试未初始化时的各个入口
func TestNotInitialized(t *testing.T) {
	reset(t)
	initialized = false

	if _, err := Open("data/page.yaml"); err != errNotInitialized {
		t.Errorf("Open() error = %v, want errNotInitialized", err)
	}
	if _, err := ReadFile("data/page.yaml"); err != errNotInitialized {
		t.Errorf("ReadFile() error = %v, want errNotInitialized", err)
	}
	if Exists("data/page.yaml") {
		t.Error("Expected Exists() to return false before Init()")
	}
}

// TestReadFile 测试路径标准化和前缀检查
func TestReadFile(t *testing.T) {
	reset(t)
	Init(testFS())

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"标准路径", "data/page.yaml", "title: test\n", false},
		{"./ 前缀", "./data/effects.yaml", "effects: []\n", false},
		{"未知前缀", "assets/page.yaml", "", true},
		{"不存在", "data/missing.yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadFile(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadFile(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("ReadFile(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestExists 测试文件存在性检查
func TestExists(t *testing.T) {
	reset(t)
	Init(testFS())

	if !Exists("data/effects.yaml") {
		t.Error("Expected data/effects.yaml to exist")
	}
	if Exists("data/other.yaml") {
		t.Error("Expected data/other.yaml not to exist")
	}
	if Exists("page.yaml") {
		t.Error("paths without the data/ prefix are never found")
	}
}
