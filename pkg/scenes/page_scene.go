package scenes

import (
	"fmt"
	"image/color"
	"log"
	"math"

	"github.com/gonewx/scrollfx/pkg/game"
	"github.com/gonewx/scrollfx/pkg/page"
	"github.com/gonewx/scrollfx/pkg/types"
	"github.com/gonewx/scrollfx/pkg/utils"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/lucasb-eyer/go-colorful"
)

// 页面绘制参数
const (
	bodyFontSize    = 16
	headingFontSize = 36
	textInset       = 12
	lineSpacing     = 1.3 // 行高相对字号
	glowSpread      = 14
	glowAlpha       = 0.35
	accentHeight    = 2
	keyScrollSpeed  = 900 // 方向键滚动速度（像素/秒）
	pageScrollRatio = 0.9 // PageUp/PageDown 滚动视口高度的比例
)

var (
	pageBackground = color.RGBA{R: 8, G: 11, B: 16, A: 255}
	defaultText    = mustColor("#e6edf3")
	defaultAccent  = mustColor("#00e676")
)

func mustColor(hex string) colorful.Color {
	c, err := types.ParseColor(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// elementVisual 一个元素在当前帧的屏幕姿态
type elementVisual struct {
	El       *page.Element
	X, Y     float64 // 屏幕坐标（未缩放、未旋转）
	W, H     float64
	Opacity  float64 // 已乘上祖先的透明度
	ScaleX   float64
	ScaleY   float64
	Rotation float64 // 弧度
	Fixed    bool
}

// inherited 子元素从祖先继承的位移和透明度
type inherited struct {
	dx, dy  float64
	opacity float64
	fixed   bool
}

// PageScene 绘制可滚动的页面文档
//
// 每帧：读取输入 → 推进引擎（帧时钟、平滑滚动、动画）→ 按模拟偏移绘制。
// 引擎写入的视觉状态保存在 page.Document 中，这里只读取。
type PageScene struct {
	doc    *page.Document
	engine *game.Engine

	bodyFace    *text.GoTextFace
	headingFace *text.GoTextFace
	pixel       *ebiten.Image

	drag        *utils.DragManager
	styleColors map[string]colorful.Color
	frames      int
	showHUD     bool
}

// NewPageScene 创建页面场景
func NewPageScene(doc *page.Document, engine *game.Engine, rm *game.ResourceManager) (*PageScene, error) {
	bodyFace, err := rm.LoadFont(game.DefaultFontPath, bodyFontSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load body font: %w", err)
	}
	headingFace, err := rm.LoadFont(game.DefaultFontPath, headingFontSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load heading font: %w", err)
	}

	pixel := ebiten.NewImage(1, 1)
	pixel.Fill(color.White)

	log.Printf("[PageScene] Created for page %q (%d elements)", doc.Title, len(doc.Elements()))
	return &PageScene{
		doc:         doc,
		engine:      engine,
		bodyFace:    bodyFace,
		headingFace: headingFace,
		pixel:       pixel,
		drag:        utils.NewDragManager(),
		styleColors: make(map[string]colorful.Color),
	}, nil
}

// Update 处理滚动输入并推进引擎
func (s *PageScene) Update(deltaTime float64) {
	s.handleInput(deltaTime)
	s.engine.Advance(deltaTime)

	// 第一帧绘制之后页面内容才算就绪，入场时间线从这里开始
	s.frames++
	if s.frames == 2 {
		s.engine.ContentReady()
	}
}

func (s *PageScene) handleInput(deltaTime float64) {
	if _, dy := ebiten.Wheel(); dy != 0 {
		// ebiten 向下滚动为负
		s.engine.Wheel(-dy)
	}

	// 拖动：内容跟随指针，向上拖动页面向下滚
	s.drag.Update()
	if dy := s.drag.FrameDelta(); dy != 0 {
		s.engine.SetRawOffset(s.engine.ScrollState().RawOffset - float64(dy))
	}

	vh := s.doc.Viewport().Height
	switch {
	case ebiten.IsKeyPressed(ebiten.KeyArrowDown):
		s.engine.ScrollBy(keyScrollSpeed * deltaTime)
	case ebiten.IsKeyPressed(ebiten.KeyArrowUp):
		s.engine.ScrollBy(-keyScrollSpeed * deltaTime)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageDown) || inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		s.engine.ScrollBy(vh * pageScrollRatio)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageUp) {
		s.engine.ScrollBy(-vh * pageScrollRatio)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyHome) {
		s.engine.ScrollTo(0, false)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnd) {
		s.engine.ScrollTo(s.doc.ScrollLimit(), false)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		s.showHUD = !s.showHUD
	}
}

// Resize 窗口尺寸变化时更新视口（布局在下一次读取时重算）
func (s *PageScene) Resize(width, height int) {
	vp := s.doc.Viewport()
	if int(vp.Width) == width && int(vp.Height) == height {
		return
	}
	s.doc.SetViewport(types.Viewport{Width: float64(width), Height: float64(height)})
}

// Close 停止引擎并还原所有视觉目标
func (s *PageScene) Close() {
	s.engine.Close()
}

// visuals 按文档顺序计算所有元素在给定偏移下的屏幕姿态
// 固定元素（及其子元素）不随滚动移动
func (s *PageScene) visuals(offset float64) []elementVisual {
	elements := s.doc.Elements()
	out := make([]elementVisual, 0, len(elements))
	inh := map[string]inherited{"body": {opacity: 1}}

	for _, el := range elements {
		rect, ok := s.doc.Rect(el.Handle)
		if !ok {
			continue
		}
		parent, ok := inh[el.Parent()]
		if !ok {
			parent = inherited{opacity: 1}
		}
		h := el.Handle
		num := func(prop string) float64 { return s.doc.Number(h, prop) }

		dx := parent.dx + num("x") + num("xPercent")/100*rect.Width
		dy := parent.dy + num("y") + num("yPercent")/100*rect.Height
		opacity := parent.opacity * utils.Clamp01(num("opacity"))
		fixed := el.Fixed || parent.fixed
		inh[h] = inherited{dx: dx, dy: dy, opacity: opacity, fixed: fixed}

		y := rect.Y + dy
		if !fixed {
			y -= offset
		}
		scale := num("scale")
		out = append(out, elementVisual{
			El:       el,
			X:        rect.X + dx,
			Y:        y,
			W:        rect.Width,
			H:        rect.Height,
			Opacity:  opacity,
			ScaleX:   scale * num("scaleX"),
			ScaleY:   scale * num("scaleY"),
			Rotation: num("rotation") * math.Pi / 180,
			Fixed:    fixed,
		})
	}
	return out
}

// Draw 绘制页面
func (s *PageScene) Draw(screen *ebiten.Image) {
	screen.Fill(pageBackground)

	state := s.engine.ScrollState()
	vh := s.doc.Viewport().Height
	all := s.visuals(state.SimulatedOffset)

	// 固定元素最后绘制，位于内容之上
	for pass := 0; pass < 2; pass++ {
		for i := range all {
			v := &all[i]
			if v.Fixed != (pass == 1) || v.Opacity <= 0 {
				continue
			}
			if v.Y+v.H < -glowSpread || v.Y > vh+glowSpread {
				continue
			}
			s.drawElement(screen, v)
		}
	}

	if s.showHUD {
		hint := "(M)"
		if utils.IsMobile() {
			hint = ""
		}
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf(
			"raw %.0f  sim %.0f  v %.0f px/s  reduced %v %s  tps %.0f",
			state.RawOffset, state.SimulatedOffset, state.Velocity,
			s.engine.Gate().Reduced(), hint, ebiten.ActualTPS()), 10, int(vh)-20)
	}
}

func (s *PageScene) drawElement(screen *ebiten.Image, v *elementVisual) {
	h := v.El.Handle

	if glow, ok := s.doc.Color(h, "glow"); ok {
		halo := *v
		halo.X -= glowSpread
		halo.Y -= glowSpread
		halo.W += 2 * glowSpread
		halo.H += 2 * glowSpread
		s.drawQuad(screen, &halo, glow, v.Opacity*glowAlpha)
	}

	if bg, ok := s.background(v.El); ok {
		s.drawQuad(screen, v, bg, v.Opacity)
	}

	if border, ok := s.styleColor(v.El, "border"); ok && v.Rotation == 0 {
		x, y, w, hh := scaledRect(v)
		vector.StrokeRect(screen, float32(x), float32(y), float32(w), float32(hh), 1, withAlpha(border, v.Opacity), true)
	}

	// 状态标记（nav--scrolled、bento-card--scanned ...）显示为底部的强调线
	if flags := s.doc.Flags(h); len(flags) > 0 {
		accent, ok := s.styleColor(v.El, "accent")
		if !ok {
			accent = defaultAccent
		}
		x, y, w, hh := scaledRect(v)
		vector.DrawFilledRect(screen, float32(x), float32(y+hh-accentHeight), float32(w), accentHeight, withAlpha(accent, v.Opacity), true)
	}

	if str := s.doc.Text(h); str != "" {
		s.drawText(screen, v, str)
	}
}

// drawQuad 用 1x1 像素图绘制带缩放和旋转的矩形（以中心为变换原点）
func (s *PageScene) drawQuad(screen *ebiten.Image, v *elementVisual, c colorful.Color, alpha float64) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(v.W, v.H)
	op.GeoM.Translate(-v.W/2, -v.H/2)
	op.GeoM.Scale(v.ScaleX, v.ScaleY)
	op.GeoM.Rotate(v.Rotation)
	op.GeoM.Translate(v.X+v.W/2, v.Y+v.H/2)
	op.ColorScale.ScaleWithColor(c)
	op.ColorScale.ScaleAlpha(float32(alpha))
	screen.DrawImage(s.pixel, op)
}

func (s *PageScene) drawText(screen *ebiten.Image, v *elementVisual, str string) {
	face := s.bodyFace
	if v.El.Tag == "h1" || v.El.Tag == "h2" {
		face = s.headingFace
	}
	fg, ok := s.styleColor(v.El, "color")
	if !ok {
		fg = defaultText
	}

	lines := utils.WrapText(str, utils.FaceMeasure(face), v.W-2*textInset)
	lineH := face.Size * lineSpacing
	top := (v.H - lineH*float64(len(lines))) / 2
	for i, line := range lines {
		op := &text.DrawOptions{}
		op.GeoM.Translate(textInset-v.W/2, top+float64(i)*lineH-v.H/2)
		op.GeoM.Scale(v.ScaleX, v.ScaleY)
		op.GeoM.Rotate(v.Rotation)
		op.GeoM.Translate(v.X+v.W/2, v.Y+v.H/2)
		op.ColorScale.ScaleWithColor(fg)
		op.ColorScale.ScaleAlpha(float32(v.Opacity))
		op.LineSpacing = lineH
		text.Draw(screen, line, face, op)
	}
}

// background 动画写入的背景色优先于样式声明
func (s *PageScene) background(el *page.Element) (colorful.Color, bool) {
	if c, ok := s.doc.Color(el.Handle, "background"); ok {
		return c, true
	}
	return s.styleColor(el, "background")
}

// styleColor 解析并缓存元素样式中的颜色
func (s *PageScene) styleColor(el *page.Element, key string) (colorful.Color, bool) {
	raw, ok := el.Style[key]
	if !ok {
		return colorful.Color{}, false
	}
	if c, ok := s.styleColors[raw]; ok {
		return c, true
	}
	c, err := types.ParseColor(raw)
	if err != nil {
		log.Printf("[PageScene] Invalid %s color %q on %s: %v", key, raw, el.Handle, err)
		return colorful.Color{}, false
	}
	s.styleColors[raw] = c
	return c, true
}

// scaledRect 返回按中心缩放后的矩形（不含旋转）
func scaledRect(v *elementVisual) (x, y, w, h float64) {
	w = v.W * v.ScaleX
	h = v.H * v.ScaleY
	return v.X + (v.W-w)/2, v.Y + (v.H-h)/2, w, h
}

func withAlpha(c colorful.Color, alpha float64) color.Color {
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(255 * utils.Clamp01(alpha)))}
}
