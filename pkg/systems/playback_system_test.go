package systems

import (
	"errors"
	"math"
	"testing"

	"github.com/gonewx/scrollfx/pkg/components"
	"github.com/gonewx/scrollfx/pkg/ecs"
	"github.com/gonewx/scrollfx/pkg/types"
	"github.com/gonewx/scrollfx/pkg/utils"
	"github.com/lucasb-eyer/go-colorful"
)

func oneShot(t *testing.T, w *testWorld) ecs.EntityID {
	t.Helper()
	id, err := w.triggers.Register(TriggerSpec{
		Name:   "fade-up",
		Target: "section",
		Start:  "top 80%",
		Mode:   components.TriggerOneShot,
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	return id
}

func assertNumber(t *testing.T, w *testWorld, target, prop string, want float64) {
	t.Helper()
	if got := w.renderer.number(target, prop); math.Abs(got-want) > 1e-9 {
		t.Errorf("%s.%s = %v, want %v", target, prop, got, want)
	}
}

func TestStaggeredTweenFollowsTrigger(t *testing.T) {
	w := newTestWorld(t, sectionRects())
	trig := oneShot(t, w)

	tween, err := w.playback.Schedule(TweenSpec{
		Name:            "cards",
		Targets:         []string{"a", "b", "c"},
		From:            numProps("opacity", 0, "y", 60),
		To:              numProps("opacity", 1, "y", 0),
		Duration:        0.5,
		Stagger:         0.25,
		Ease:            utils.EaseLinear,
		ImmediateRender: true,
	}, trig)
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	completed := 0
	if err := w.playback.OnComplete(tween, func() { completed++ }); err != nil {
		t.Fatal(err)
	}

	// 调度时立即写入起始姿态，避免内容先闪现
	for _, target := range []string{"a", "b", "c"} {
		assertNumber(t, w, target, "opacity", 0)
		assertNumber(t, w, target, "y", 60)
	}

	w.step(0, 0.125)
	if st, _ := w.playback.Status(tween); st != components.StatusPending {
		t.Fatalf("status before trigger = %v, want pending", st)
	}

	w.step(500, 0.125) // 触发，开始播放
	assertNumber(t, w, "a", "opacity", 0)

	w.step(500, 0.25)
	assertNumber(t, w, "a", "opacity", 0.5)
	assertNumber(t, w, "b", "opacity", 0)
	assertNumber(t, w, "c", "opacity", 0)

	w.step(500, 0.25)
	assertNumber(t, w, "a", "opacity", 1)
	assertNumber(t, w, "b", "opacity", 0.5)
	assertNumber(t, w, "c", "y", 60)
	if completed != 0 {
		t.Fatal("completed before the last target finished")
	}

	w.step(500, 0.5)
	assertNumber(t, w, "c", "opacity", 1)
	assertNumber(t, w, "c", "y", 0)
	if st, _ := w.playback.Status(tween); st != components.StatusComplete {
		t.Errorf("status = %v, want complete", st)
	}

	w.step(0, 0.5)
	w.step(500, 0.5)
	if completed != 1 {
		t.Errorf("OnComplete called %d times, want 1", completed)
	}
}

func TestYoyoRepeatEndsWhereCycleCountSays(t *testing.T) {
	tests := []struct {
		name   string
		repeat int
		// 各检查点（相对开始时间）的 scale
		samples map[float64]float64
	}{
		{
			name:   "往返一次回到起点",
			repeat: 1,
			samples: map[float64]float64{
				0.125: 1.025,
				0.25:  1.05,
				0.375: 1.025,
				0.5:   1,
			},
		},
		{
			name:   "往返两次停在终点",
			repeat: 2,
			samples: map[float64]float64{
				0.5:   1,
				0.625: 1.025,
				0.75:  1.05,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, sectionRects())
			unit, err := w.playback.Schedule(TweenSpec{
				Name:     "pulse",
				Targets:  []string{"stat"},
				From:     numProps("scale", 1),
				To:       numProps("scale", 1.05),
				Duration: 0.25,
				Ease:     utils.EaseLinear,
				Repeat:   tt.repeat,
				Yoyo:     true,
			}, ecs.InvalidEntity)
			if err != nil {
				t.Fatal(err)
			}
			w.step(0, 0.125)
			if !w.playback.Play(unit) {
				t.Fatal("Play returned false")
			}
			if w.playback.Play(unit) {
				t.Error("second Play should be ignored")
			}

			elapsed := 0.0
			for _, at := range []float64{0.125, 0.25, 0.375, 0.5, 0.625, 0.75, 1} {
				w.step(0, at-elapsed)
				elapsed = at
				if want, ok := tt.samples[at]; ok {
					if got := w.renderer.number("stat", "scale"); math.Abs(got-want) > 1e-9 {
						t.Errorf("scale at %v = %v, want %v", at, got, want)
					}
				}
			}
			if st, _ := w.playback.Status(unit); st != components.StatusComplete {
				t.Errorf("status = %v, want complete", st)
			}
		})
	}
}

func TestColorTweenBlendsInRGB(t *testing.T) {
	w := newTestWorld(t, sectionRects())
	from := types.NewPropertySet()
	from.Colors["glow"] = colorful.Color{R: 0, G: 0, B: 0}
	to := types.NewPropertySet()
	to.Colors["glow"] = colorful.Color{R: 1, G: 0.5, B: 0}

	unit, err := w.playback.Schedule(TweenSpec{
		Name:     "glow",
		Targets:  []string{"card"},
		From:     from,
		To:       to,
		Duration: 0.5,
		Ease:     utils.EaseLinear,
		Repeat:   2,
		Yoyo:     true,
	}, ecs.InvalidEntity)
	if err != nil {
		t.Fatal(err)
	}
	w.playback.Play(unit)

	w.step(0, 0.25)
	got := w.renderer.props["card"].Colors["glow"]
	if math.Abs(got.R-0.5) > 1e-9 || math.Abs(got.G-0.25) > 1e-9 || got.B != 0 {
		t.Errorf("midpoint glow = %+v", got)
	}

	w.step(0, 1.5)
	got = w.renderer.props["card"].Colors["glow"]
	if math.Abs(got.R-1) > 1e-9 || math.Abs(got.G-0.5) > 1e-9 {
		t.Errorf("final glow = %+v, want the end color", got)
	}
}

func TestScheduleRejectsBadTweens(t *testing.T) {
	w := newTestWorld(t, sectionRects())
	oneSided := types.NewPropertySet()
	oneSided.Colors["glow"] = colorful.Color{R: 1}

	tests := []struct {
		name     string
		spec     TweenSpec
		trigger  ecs.EntityID
		sentinel error
	}{
		{"没有属性", TweenSpec{Name: "a", Targets: []string{"x"}, Duration: 1}, ecs.InvalidEntity, types.ErrInvalidEffect},
		{"颜色只有一侧", TweenSpec{Name: "b", Targets: []string{"x"}, To: oneSided, Duration: 1}, ecs.InvalidEntity, types.ErrInvalidEffect},
		{"没有目标", TweenSpec{Name: "c", To: numProps("opacity", 1), Duration: 1}, ecs.InvalidEntity, types.ErrTargetNotFound},
		{"负时长", TweenSpec{Name: "d", Targets: []string{"x"}, To: numProps("opacity", 1), Duration: -1}, ecs.InvalidEntity, types.ErrInvalidEffect},
		{"拖拽没有触发器", TweenSpec{Name: "e", Targets: []string{"x"}, To: numProps("y", 10), Duration: 1, Scrubbed: true}, ecs.InvalidEntity, types.ErrInvalidEffect},
		{"触发器不存在", TweenSpec{Name: "f", Targets: []string{"x"}, To: numProps("y", 10), Duration: 1}, ecs.EntityID(999), types.ErrUnknownEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.playback.Schedule(tt.spec, tt.trigger)
			var cfgErr *types.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error = %v, want ConfigurationError", err)
			}
			if cfgErr.Effect != tt.spec.Name {
				t.Errorf("Effect = %q, want %q", cfgErr.Effect, tt.spec.Name)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("error %v should wrap %v", err, tt.sentinel)
			}
		})
	}
}

func TestScrubbedTweenTracksProgress(t *testing.T) {
	w := newTestWorld(t, sectionRects())
	trig, err := w.triggers.Register(TriggerSpec{
		Name:   "parallax",
		Target: "section",
		Start:  "top top",
		End:    "bottom top",
		Mode:   components.TriggerScrubbed,
	})
	if err != nil {
		t.Fatal(err)
	}
	unit, err := w.playback.Schedule(TweenSpec{
		Name:            "parallax",
		Targets:         []string{"section-bg"},
		To:              numProps("yPercent", -20),
		Ease:            utils.EaseLinear,
		Scrubbed:        true,
		ImmediateRender: true,
	}, trig)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := w.renderer.props["section-bg"]; ok {
		t.Error("scrubbed tweens should not render on schedule")
	}

	tests := []struct {
		offset float64
		want   float64
	}{
		{1200, -10},
		{1300, -15},
		{1000, 0},
		{1600, -20},
		{1100, -5},
	}
	for _, tt := range tests {
		w.step(tt.offset, frame)
		assertNumber(t, w, "section-bg", "yPercent", tt.want)
	}
	if st, _ := w.playback.Status(unit); st != components.StatusScrubbing {
		t.Errorf("status = %v, want scrubbing", st)
	}
	if w.playback.Play(unit) {
		t.Error("Play must not start a scrubbed tween")
	}
}

func TestCancelSnapsToEndPose(t *testing.T) {
	w := newTestWorld(t, sectionRects())
	unit, _ := w.playback.Schedule(TweenSpec{
		Name:     "slide",
		Targets:  []string{"a"},
		From:     numProps("x", -100),
		To:       numProps("x", 0),
		Duration: 1,
	}, ecs.InvalidEntity)
	w.playback.Play(unit)
	w.step(0, 0.25)

	w.playback.Cancel(unit)
	assertNumber(t, w, "a", "x", 0)
	if _, ok := w.playback.Status(unit); ok {
		t.Error("cancelled unit should be removed")
	}

	w.step(0, 0.25)
	assertNumber(t, w, "a", "x", 0)
}

func TestUnregisterSnapsBoundUnitsToEnd(t *testing.T) {
	w := newTestWorld(t, sectionRects())

	scrubTrig, _ := w.triggers.Register(TriggerSpec{Name: "parallax", Target: "section", Mode: components.TriggerScrubbed})
	scrub, err := w.playback.Schedule(TweenSpec{
		Name:     "parallax",
		Targets:  []string{"bg"},
		From:     numProps("yPercent", 0),
		To:       numProps("yPercent", -20),
		Ease:     utils.EaseLinear,
		Scrubbed: true,
	}, scrubTrig)
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}

	fadeTrig, _ := w.triggers.Register(TriggerSpec{Name: "fade", Target: "other", Start: "top 80%", Mode: components.TriggerOneShot})
	if _, err := w.playback.Schedule(TweenSpec{
		Name:            "fade",
		Targets:         []string{"card"},
		From:            numProps("opacity", 0),
		Duration:        0.5,
		ImmediateRender: true,
	}, fadeTrig); err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	if _, err := w.interp.ScheduleCounter(CounterSpec{Name: "stat", Target: "stat", Goal: 140, Suffix: "+"}, fadeTrig); err != nil {
		t.Fatalf("ScheduleCounter error: %v", err)
	}
	if _, err := w.interp.ScheduleTypewriter(TypewriterSpec{Name: "motto", Target: "motto", Text: "ready"}, fadeTrig); err != nil {
		t.Fatalf("ScheduleTypewriter error: %v", err)
	}

	// 拖拽到一半时注销
	w.step(800, frame)
	assertNumber(t, w, "bg", "yPercent", -10)
	w.triggers.Unregister(scrubTrig)
	assertNumber(t, w, "bg", "yPercent", -20)
	if _, ok := w.playback.Status(scrub); ok {
		t.Error("cancelled scrubbed unit should be removed")
	}
	w.step(1300, frame)
	assertNumber(t, w, "bg", "yPercent", -20)

	// 触发之前注销：起始姿态不能保留
	assertNumber(t, w, "card", "opacity", 0)
	w.triggers.Unregister(fadeTrig)
	for i := 0; i < 120; i++ {
		w.step(0, frame)
	}
	assertNumber(t, w, "card", "opacity", 1)
	if got := w.renderer.text["stat"]; got != "140+" {
		t.Errorf("counter text = %q, want %q", got, "140+")
	}
	if got := w.renderer.text["motto"]; got != "ready" {
		t.Errorf("typewriter text = %q, want %q", got, "ready")
	}
}

func TestRecurringTriggerReplaysTween(t *testing.T) {
	w := newTestWorld(t, sectionRects())
	trig, _ := w.triggers.Register(TriggerSpec{Name: "pulse", Target: "section", Start: "top 80%", Mode: components.TriggerRecurring})
	unit, err := w.playback.Schedule(TweenSpec{
		Name:     "pulse",
		Targets:  []string{"a"},
		From:     numProps("opacity", 0),
		To:       numProps("opacity", 1),
		Duration: 0.5,
		Ease:     utils.EaseLinear,
	}, trig)
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}

	w.step(0, frame)
	w.step(500, frame) // 进入
	w.step(500, 0.5)
	assertNumber(t, w, "a", "opacity", 1)
	if st, _ := w.playback.Status(unit); st != components.StatusComplete {
		t.Fatalf("status after first play = %v, want complete", st)
	}

	w.step(0, frame)   // 离开（向上）
	w.step(500, frame) // 再次进入，从头播放
	assertNumber(t, w, "a", "opacity", 0)
	w.step(500, 0.1)
	assertNumber(t, w, "a", "opacity", 0.2)
}

func TestPlayOnlyOnceButRestartReplays(t *testing.T) {
	w := newTestWorld(t, sectionRects())
	unit, _ := w.playback.Schedule(TweenSpec{
		Name:     "glow",
		Targets:  []string{"a"},
		From:     numProps("opacity", 0),
		To:       numProps("opacity", 1),
		Duration: 0.5,
		Ease:     utils.EaseLinear,
	}, ecs.InvalidEntity)

	if !w.playback.Play(unit) {
		t.Fatal("first Play should start the unit")
	}
	w.step(0, 0.5)
	assertNumber(t, w, "a", "opacity", 1)

	if w.playback.Play(unit) {
		t.Error("Play on a completed unit should be ignored")
	}
	if !w.playback.Restart(unit) {
		t.Fatal("Restart should replay a completed unit")
	}
	w.step(0, 0.25)
	assertNumber(t, w, "a", "opacity", 0.5)
	if st, _ := w.playback.Status(unit); st != components.StatusPlaying {
		t.Errorf("status = %v, want playing", st)
	}
}

func TestLongStallResumesAtAbsoluteTime(t *testing.T) {
	w := newTestWorld(t, sectionRects())
	unit, _ := w.playback.Schedule(TweenSpec{
		Name:     "fade",
		Targets:  []string{"a"},
		From:     numProps("opacity", 0),
		To:       numProps("opacity", 1),
		Duration: 0.5,
		Ease:     utils.EaseLinear,
	}, ecs.InvalidEntity)
	w.playback.Play(unit)
	w.step(0, 0.25)
	assertNumber(t, w, "a", "opacity", 0.5)

	// 后台挂起很久之后恢复：直接落到终点，不逐帧补放
	w.step(0, 30)
	assertNumber(t, w, "a", "opacity", 1)
	if st, _ := w.playback.Status(unit); st != components.StatusComplete {
		t.Errorf("status = %v, want complete", st)
	}
}

func TestTimelineWaitsForContentReady(t *testing.T) {
	w := newTestWorld(t, sectionRects())
	tl, err := w.playback.ScheduleTimeline(TimelineSpec{
		Name: "hero",
		Ease: utils.EaseLinear,
		Segments: []SegmentSpec{
			{Targets: []string{"title"}, From: numProps("y", -30, "opacity", 0), To: numProps("y", 0, "opacity", 1), Duration: 0.5},
			{Targets: []string{"subtitle"}, From: numProps("opacity", 0), To: numProps("opacity", 1), Duration: 0.5, Position: -0.25},
			{Targets: []string{"cta"}, From: numProps("scale", 0.5), Duration: 0.25, Delay: 0.25},
		},
	})
	if err != nil {
		t.Fatalf("ScheduleTimeline error: %v", err)
	}

	comp, _ := ecs.GetComponent[*components.TimelineComponent](w.em, tl)
	wantOffsets := []float64{0, 0.25, 1}
	for i, want := range wantOffsets {
		if got := comp.Segments[i].Offset; math.Abs(got-want) > 1e-9 {
			t.Errorf("segment %d offset = %v, want %v", i, got, want)
		}
	}
	if got := comp.TotalDuration(); math.Abs(got-1.25) > 1e-9 {
		t.Errorf("TotalDuration = %v, want 1.25", got)
	}

	// 起始姿态立即写入，内容就绪前保持不动
	w.step(0, 0.5)
	assertNumber(t, w, "title", "opacity", 0)
	assertNumber(t, w, "cta", "scale", 0.5)

	done := 0
	w.playback.OnComplete(tl, func() { done++ })
	w.playback.ContentReady()

	w.step(0, 0.25)
	assertNumber(t, w, "title", "y", -15)
	assertNumber(t, w, "subtitle", "opacity", 0)
	w.step(0, 0.25)
	assertNumber(t, w, "title", "opacity", 1)
	assertNumber(t, w, "subtitle", "opacity", 0.5)
	assertNumber(t, w, "cta", "scale", 0.5)

	w.step(0, 0.75)
	assertNumber(t, w, "cta", "scale", 1)
	if done != 1 {
		t.Errorf("timeline completed %d times, want 1", done)
	}

	// 内容就绪之后调度的时间线立即开始
	late, _ := w.playback.ScheduleTimeline(TimelineSpec{
		Name:     "late",
		Segments: []SegmentSpec{{Targets: []string{"footer"}, From: numProps("opacity", 0), Duration: 0.25}},
	})
	if st, _ := w.playback.Status(late); st != components.StatusPlaying {
		t.Errorf("late timeline status = %v, want playing", st)
	}
}

func TestFollowUpsAndRevert(t *testing.T) {
	w := newTestWorld(t, sectionRects())
	w.step(0, 0.125)

	w.playback.ScheduleFollowUp(FollowUp{Targets: []string{"a", "b"}, Flag: "active", On: true, Delay: 0.25, Stagger: 0.25})
	w.step(0, 0.125)
	if w.renderer.flags["a"]["active"] {
		t.Fatal("flag set before its delay")
	}
	w.step(0, 0.125)
	if !w.renderer.flags["a"]["active"] || w.renderer.flags["b"]["active"] {
		t.Fatalf("flags after 0.25s: %v", w.renderer.flags)
	}
	w.step(0, 0.25)
	if !w.renderer.flags["b"]["active"] {
		t.Fatal("second target not flagged after its stagger")
	}

	// 一个进行中的补间和一个待执行的后续动作
	from := numProps("opacity", 0, "y", 40)
	from.Colors["glow"] = colorful.Color{R: 0.2, G: 0.2, B: 0.2}
	to := numProps("opacity", 1, "y", 0)
	to.Colors["glow"] = colorful.Color{R: 1, G: 1, B: 1}
	unit, _ := w.playback.Schedule(TweenSpec{Name: "fade", Targets: []string{"c"}, From: from, To: to, Duration: 1}, ecs.InvalidEntity)
	w.playback.Play(unit)
	w.playback.ScheduleFollowUp(FollowUp{Targets: []string{"c"}, Flag: "done", On: true, Delay: 2})
	w.step(0, 0.25)

	w.playback.Revert()
	if n := w.clock.PendingTimers(); n != 0 {
		t.Errorf("PendingTimers = %d after Revert, want 0", n)
	}
	if w.renderer.flags["a"]["active"] || w.renderer.flags["b"]["active"] {
		t.Errorf("flags not cleared: %v", w.renderer.flags)
	}
	assertNumber(t, w, "c", "opacity", 1)
	assertNumber(t, w, "c", "y", 0)
	if got := w.renderer.props["c"].Colors["glow"]; !got.AlmostEqualRgb(colorful.Color{R: 0.2, G: 0.2, B: 0.2}) {
		t.Errorf("glow after Revert = %+v, want the start color", got)
	}

	w.step(0, 3)
	if w.renderer.flags["c"]["done"] {
		t.Error("cancelled follow-up fired")
	}
}
