package game

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/gonewx/scrollfx/pkg/embedded"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultFontPath is the cache key of the built-in Go Regular font.
const DefaultFontPath = "builtin:goregular"

// ResourceManager is responsible for centralized management of viewer resources.
// It loads font sources once and caches the text faces created from them,
// so every scene draws with the same face objects.
//
// Thread Safety Note:
// This implementation is NOT thread-safe. The caches use standard Go maps and
// must only be accessed from the ebiten update/draw goroutine.
//
// Usage:
//
//	rm := NewResourceManager()
//	face, err := rm.LoadFont(DefaultFontPath, 18)
//	if err != nil {
//	    log.Printf("Failed to load font: %v", err)
//	}
type ResourceManager struct {
	fontSourceCache map[string]*text.GoTextFaceSource // Cache for parsed font files: path -> source
	fontFaceCache   map[string]*text.GoTextFace       // Cache for Ebitengine v2 text faces: path:size -> face
}

// NewResourceManager creates a ResourceManager with empty caches.
func NewResourceManager() *ResourceManager {
	return &ResourceManager{
		fontSourceCache: make(map[string]*text.GoTextFaceSource),
		fontFaceCache:   make(map[string]*text.GoTextFace),
	}
}

// readResource 从嵌入资源（data/ 前缀）或磁盘读取文件
func readResource(path string) ([]byte, error) {
	if embedded.IsInitialized() && strings.HasPrefix(path, "data/") {
		return embedded.ReadFile(path)
	}
	return os.ReadFile(path)
}

// LoadFont loads a TrueType/OpenType font and returns a text face of the given size.
// Faces are cached by path and size; font files are parsed only once.
//
// Parameters:
//   - path: DefaultFontPath for the built-in font, or a file path (embedded or on disk).
//   - size: The font size in pixels.
//
// Returns:
//   - A text face, or an error if the font cannot be read or parsed.
func (rm *ResourceManager) LoadFont(path string, size float64) (*text.GoTextFace, error) {
	cacheKey := fmt.Sprintf("%s:%.1f", path, size)
	if cachedFace, exists := rm.fontFaceCache[cacheKey]; exists {
		return cachedFace, nil
	}

	source, ok := rm.fontSourceCache[path]
	if !ok {
		var fontData []byte
		if path == DefaultFontPath {
			fontData = goregular.TTF
		} else {
			data, err := readResource(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read font file %s: %w", path, err)
			}
			fontData = data
		}

		var err error
		source, err = text.NewGoTextFaceSource(bytes.NewReader(fontData))
		if err != nil {
			return nil, fmt.Errorf("failed to create font source for %s: %w", path, err)
		}
		rm.fontSourceCache[path] = source
	}

	face := &text.GoTextFace{
		Source:    source,
		Size:      size,
		Direction: text.DirectionLeftToRight,
	}
	rm.fontFaceCache[cacheKey] = face
	return face, nil
}

// GetFont retrieves a previously loaded font face from the cache.
// If the font has not been loaded yet, it returns nil.
func (rm *ResourceManager) GetFont(path string, size float64) *text.GoTextFace {
	return rm.fontFaceCache[fmt.Sprintf("%s:%.1f", path, size)]
}
