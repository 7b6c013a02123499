// scrollfx 演示程序：在 ebiten 窗口中滚动一个带动画的页面
//
// Usage:
//
//	go run . [flags]
//
// Flags:
//
//	--verbose            Enable verbose logging
//	--effects <path>     Effect declarations (default: data/effects.yaml)
//	--page <path>        Page layout (default: data/page.yaml)
//	--reduced-motion     Start with reduced motion (overrides saved setting)
//	--allow-motion       Start with motion allowed (overrides saved setting)
//	--scroll <mode>      Smooth scroll mode: duration / lerp / spring
//
// Controls:
//
//	Wheel / Drag / Arrows / PageUp / PageDown / Space / Home / End - Scroll
//	M   - Toggle reduced motion
//	H   - Toggle HUD
//	F11 - Toggle fullscreen
package main

import (
	"flag"
	"log"

	"github.com/gonewx/scrollfx/pkg/app"
	"github.com/gonewx/scrollfx/pkg/embedded"
	"github.com/hajimehoshi/ebiten/v2"
)

var (
	verboseFlag       = flag.Bool("verbose", false, "Enable verbose logging")
	effectsFlag       = flag.String("effects", app.DefaultEffectsPath, "Effect declarations file")
	pageFlag          = flag.String("page", app.DefaultPagePath, "Page layout file")
	reducedMotionFlag = flag.Bool("reduced-motion", false, "Start with reduced motion")
	allowMotionFlag   = flag.Bool("allow-motion", false, "Start with motion allowed")
	scrollFlag        = flag.String("scroll", "", "Smooth scroll mode (duration, lerp, spring)")
)

func main() {
	flag.Parse()

	// dataFS 在 embed.go 中声明
	embedded.Init(dataFS)

	cfg := app.Config{
		Verbose:     *verboseFlag,
		EffectsPath: *effectsFlag,
		PagePath:    *pageFlag,
		ScrollMode:  *scrollFlag,
	}
	switch {
	case *reducedMotionFlag:
		reduced := true
		cfg.ReducedMotion = &reduced
	case *allowMotionFlag:
		reduced := false
		cfg.ReducedMotion = &reduced
	}

	viewer, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	ebiten.SetWindowSize(1280, 800)
	ebiten.SetWindowTitle("scrollfx")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowClosingHandled(true)
	if viewer.Settings().GetSettings().Fullscreen {
		ebiten.SetFullscreen(true)
	}

	if err := ebiten.RunGame(viewer); err != nil {
		log.Fatal(err)
	}
}
