package game

import (
	"errors"
	"math"
	"testing"

	"github.com/gonewx/scrollfx/pkg/clock"
	"github.com/gonewx/scrollfx/pkg/config"
	"github.com/gonewx/scrollfx/pkg/page"
	"github.com/gonewx/scrollfx/pkg/types"
)

const frame = 1.0 / 60

// 布局（视口 1000x800）：
//
//	hero     0 ~ 800
//	services 800 ~ 1400（card-1 800, card-2 1000, card-3 1200）
//	stats    1400 ~ 1496
//	quote    1496 ~ 1528
const loaderPage = `
title: loader
viewport: {width: 1000, height: 800}
body:
  - {id: nav, class: nav, fixed: true, height: 64px}
  - id: hero
    class: hero
    height: 800px
    children:
      - {id: hero-title, class: hero__title, tag: h1, text: Welcome}
  - id: services
    class: services
    children:
      - id: grid
        class: grid
        children:
          - {id: card-1, class: card, height: 200px}
          - {id: card-2, class: card, height: 200px}
          - id: card-3
            class: card
            height: 200px
            children:
              - {id: card-3-icon, class: card__icon}
  - id: stats
    class: stats
    children:
      - {id: stat-1, class: stat, attrs: {data-counter: "150", data-suffix: "+"}}
      - {id: stat-2, class: stat, attrs: {data-counter: "12"}}
      - {id: stat-3, class: stat, attrs: {data-counter: "oops"}}
  - id: quote
    class: quote
    children:
      - {id: quote-text, class: quote__text, text: Ship it}
`

// loaderWorld 一个手动驱动的会话：偏移由测试直接给出，不经过平滑滚动
type loaderWorld struct {
	doc     *page.Document
	clock   *clock.FrameClock
	session *MotionSession
	offset  float64
}

func newLoaderWorld(t *testing.T, effects string) *loaderWorld {
	t.Helper()
	doc, err := page.ParsePage([]byte(loaderPage))
	if err != nil {
		t.Fatalf("ParsePage error: %v", err)
	}
	cfg, err := config.ParseEffectsConfig([]byte(effects))
	if err != nil {
		t.Fatalf("ParseEffectsConfig error: %v", err)
	}

	w := &loaderWorld{doc: doc, clock: clock.New(clock.WithLagSmoothing(0, 0))}
	w.session = NewMotionSession(cfg, w.clock, doc, doc, false)
	w.clock.Subscribe(func(_, _ float64) error {
		w.session.Update(w.offset, doc.Layout())
		return nil
	})
	w.clock.Start()
	return w
}

// scroll 跳到 offset 并推进 seconds 秒
func (w *loaderWorld) scroll(offset, seconds float64) {
	w.offset = offset
	n := int(math.Round(seconds / frame))
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		w.clock.Advance(frame)
	}
}

func assertNumber(t *testing.T, doc *page.Document, target, prop string, want float64) {
	t.Helper()
	if got := doc.Number(target, prop); math.Abs(got-want) > 1e-6 {
		t.Errorf("%s.%s = %v, want %v", target, prop, got, want)
	}
}

func TestLoaderScopesTargetsToTriggerElement(t *testing.T) {
	w := newLoaderWorld(t, `
effects:
  - id: cards
    trigger: .services
    targets: "& .card"
    start: top 80%
    from: {opacity: 0, y: 40}
    duration: 0.5
    stagger: 0.1
    ease: none
    on_complete:
      - {targets: "&", add_flag: services--scanned, delay: 0.2}
  - id: icons
    trigger: .card
    each: true
    targets: "& > .card__icon"
    from: {scale: 0.5}
    duration: 0.4
`)
	r := w.session.Report
	// 没有图标的卡片不保留触发器
	if r.Triggers != 2 || r.Tweens != 2 || r.Actions != 1 {
		t.Errorf("report = %+v, want 2 triggers, 2 tweens, 1 action", *r)
	}
	if n := w.session.Triggers().Count(); n != r.Triggers {
		t.Errorf("Triggers().Count() = %d, want %d", n, r.Triggers)
	}
	// card-1 和 card-2 没有图标
	if r.Rejected() != 2 {
		t.Fatalf("Rejected() = %d, want 2: %v", r.Rejected(), r.Errors)
	}
	for _, err := range r.Errors {
		if !errors.Is(err, types.ErrTargetNotFound) {
			t.Errorf("error %v should wrap ErrTargetNotFound", err)
		}
	}

	// from 值在加载时立即生效
	assertNumber(t, w.doc, "card-2", "opacity", 0)
	assertNumber(t, w.doc, "card-3-icon", "scale", 0.5)
	assertNumber(t, w.doc, "hero-title", "opacity", 1)

	w.scroll(100, 0.5)
	assertNumber(t, w.doc, "card-1", "opacity", 0)

	// services 起点 800-640=160
	w.scroll(1000, 0.8)
	for _, card := range []string{"card-1", "card-2", "card-3"} {
		assertNumber(t, w.doc, card, "opacity", 1)
		assertNumber(t, w.doc, card, "y", 0)
	}
	assertNumber(t, w.doc, "card-3-icon", "scale", 1)

	if w.doc.HasFlag("services", "services--scanned") {
		t.Error("flag added before its delay")
	}
	w.scroll(1000, 0.25)
	if !w.doc.HasFlag("services", "services--scanned") {
		t.Error("on_complete flag missing after delay")
	}
}

func TestLoaderCountersAndTypewriters(t *testing.T) {
	w := newLoaderWorld(t, `
effects:
  - id: stats
    kind: counter
    trigger: "[data-counter]"
    each: true
    value_attr: data-counter
    suffix_attr: data-suffix
    duration: 1
  - id: quote
    kind: typewriter
    trigger: .quote
    targets: "& .quote__text"
    char_duration: 0.05
`)
	r := w.session.Report
	if r.Counters != 2 || r.Typewriters != 1 {
		t.Errorf("report = %+v, want 2 counters and 1 typewriter", *r)
	}
	if r.Rejected() != 1 || !errors.Is(r.Errors[0], types.ErrInvalidEffect) {
		t.Fatalf("errors = %v, want one invalid value for stat-3", r.Errors)
	}

	if got := w.doc.Text("quote-text"); got != "" {
		t.Errorf("typewriter target should start empty, got %q", got)
	}

	w.scroll(1500, 1.5)
	if got := w.doc.Text("stat-1"); got != "150+" {
		t.Errorf("stat-1 = %q, want 150+", got)
	}
	if got := w.doc.Text("stat-2"); got != "12" {
		t.Errorf("stat-2 = %q, want 12", got)
	}
	if got := w.doc.Text("quote-text"); got != "Ship it" {
		t.Errorf("quote-text = %q, want the declared text", got)
	}
}

func TestLoaderRecurringActions(t *testing.T) {
	w := newLoaderWorld(t, `
effects:
  - id: nav
    kind: action
    mode: recurring
    trigger: .hero
    start: top top
    end: bottom 80px
    actions:
      - {on: leave, targets: .nav, add_flag: nav--scrolled}
      - {on: enter_back, targets: .nav, remove_flag: nav--scrolled}
  - id: glow
    kind: action
    mode: recurring
    trigger: .quote
    actions:
      - on: enter
        play: {targets: "&", from: {opacity: 0.2}, to: {opacity: 1}, duration: 0.5, ease: none}
`)
	if r := w.session.Report; r.Actions != 3 || r.Tweens != 1 || r.Rejected() != 0 {
		t.Fatalf("report = %+v", *r)
	}

	w.scroll(0, frame)
	if w.doc.HasFlag("nav", "nav--scrolled") {
		t.Error("nav flagged while hero is active")
	}
	w.scroll(750, frame)
	if !w.doc.HasFlag("nav", "nav--scrolled") {
		t.Error("nav not flagged after leaving the hero")
	}
	w.scroll(100, frame)
	if w.doc.HasFlag("nav", "nav--scrolled") {
		t.Error("nav still flagged after scrolling back")
	}

	// quote 起点 1496-800=696
	assertNumber(t, w.doc, "quote", "opacity", 1)
	w.scroll(700, frame)
	assertNumber(t, w.doc, "quote", "opacity", 0.2)
	w.scroll(700, 0.6)
	assertNumber(t, w.doc, "quote", "opacity", 1)

	// 离开再进入：动作补间从头播放
	w.scroll(0, frame)
	w.scroll(700, frame)
	assertNumber(t, w.doc, "quote", "opacity", 0.2)
}

func TestLoaderEntranceWaitsForContent(t *testing.T) {
	w := newLoaderWorld(t, `
entrance:
  - id: hero-in
    ease: none
    segments:
      - {targets: .hero__title, from: {opacity: 0}, duration: 0.5}
      - {targets: .nav, from: {y: -64}, duration: 0.5, position: "-=0.25"}
`)
	if w.session.Report.Timelines != 1 {
		t.Fatalf("Timelines = %d, want 1", w.session.Report.Timelines)
	}

	w.scroll(0, 1)
	assertNumber(t, w.doc, "hero-title", "opacity", 0)
	assertNumber(t, w.doc, "nav", "y", -64)

	w.session.ContentReady()
	w.scroll(0, 0.5)
	assertNumber(t, w.doc, "hero-title", "opacity", 1)
	// nav 段从 0.25s 开始，此时走了一半
	assertNumber(t, w.doc, "nav", "y", -32)
	w.scroll(0, 0.3)
	assertNumber(t, w.doc, "nav", "y", 0)
}

func TestLoaderRejectsBadDeclarations(t *testing.T) {
	tests := []struct {
		name     string
		effect   string
		field    string
		sentinel error
	}{
		{"未知模式", "{id: x, trigger: .hero, mode: sometimes, to: {opacity: 1}}", "mode", types.ErrInvalidEffect},
		{"未知类型", "{id: x, trigger: .hero, kind: sparkle}", "kind", types.ErrInvalidEffect},
		{"拖拽计数器", "{id: x, kind: counter, trigger: .stat, mode: scrubbed, value: 3}", "mode", types.ErrInvalidEffect},
		{"缺少触发器", "{id: x, to: {opacity: 1}}", "trigger", types.ErrInvalidEffect},
		{"触发器不存在", "{id: x, trigger: .missing, to: {opacity: 1}}", "trigger", types.ErrTargetNotFound},
		{"边界错误", "{id: x, trigger: .hero, start: middle nowhere, to: {opacity: 1}}", "start", types.ErrMalformedBounds},
		{"缓动未知", "{id: x, trigger: .hero, to: {opacity: 1}, ease: wobble.out}", "ease", types.ErrInvalidEffect},
		{"没有属性", "{id: x, trigger: .hero}", "to", types.ErrInvalidEffect},
		{"完成事件动作", "{id: x, kind: action, trigger: .hero, actions: [{on: complete, add_flag: f}]}", "actions[0].on", types.ErrInvalidEffect},
		{"空动作", "{id: x, kind: action, trigger: .hero, actions: [{on: enter}]}", "actions[0]", types.ErrInvalidEffect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newLoaderWorld(t, "effects:\n  - "+tt.effect+"\n")
			errs := w.session.Report.Errors
			if len(errs) != 1 {
				t.Fatalf("errors = %v, want exactly one", errs)
			}
			var cfgErr *types.ConfigurationError
			if !errors.As(errs[0], &cfgErr) {
				t.Fatalf("error %T is not a ConfigurationError", errs[0])
			}
			if cfgErr.Effect != "x" || cfgErr.Field != tt.field {
				t.Errorf("error at %s.%s, want x.%s", cfgErr.Effect, cfgErr.Field, tt.field)
			}
			if !errors.Is(errs[0], tt.sentinel) {
				t.Errorf("error %v should wrap %v", errs[0], tt.sentinel)
			}
		})
	}
}

func TestLoaderDropsTriggerWhenUnitRejected(t *testing.T) {
	tests := []struct {
		name   string
		effect string
	}{
		{"目标不存在", "{id: x, trigger: .hero, targets: .nowhere, to: {opacity: 1}}"},
		{"缓动未知", "{id: x, trigger: .hero, to: {opacity: 1}, ease: wobble.out}"},
		{"计数器无数值", "{id: x, kind: counter, trigger: .stats, targets: \"#stat-3\", value_attr: data-counter}"},
		{"动作全部无效", "{id: x, kind: action, trigger: .hero, actions: [{on: enter}]}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newLoaderWorld(t, `
effects:
  - `+tt.effect+`
  - {id: good, trigger: .hero, targets: .hero__title, start: top top, from: {opacity: 0}, duration: 0.2}
`)
			r := w.session.Report
			if r.Rejected() == 0 {
				t.Fatal("expected a rejection")
			}
			if r.Triggers != 1 {
				t.Errorf("Report.Triggers = %d, want 1", r.Triggers)
			}
			if n := w.session.Triggers().Count(); n != 1 {
				t.Errorf("Triggers().Count() = %d, want 1", n)
			}
			w.scroll(0, 0.3)
			assertNumber(t, w.doc, "hero-title", "opacity", 1)
		})
	}
}

func TestLoaderKeepsValidEffectsAfterRejection(t *testing.T) {
	w := newLoaderWorld(t, `
effects:
  - {id: bad, trigger: .missing, to: {opacity: 1}}
  - {id: good, trigger: .hero, targets: .hero__title, start: top top, from: {opacity: 0}, duration: 0.2}
`)
	if r := w.session.Report; r.Rejected() != 1 || r.Tweens != 1 {
		t.Fatalf("report = %+v", *r)
	}
	w.scroll(0, 0.3)
	assertNumber(t, w.doc, "hero-title", "opacity", 1)
}
