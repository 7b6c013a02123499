package game

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/gonewx/scrollfx/pkg/components"
	"github.com/gonewx/scrollfx/pkg/config"
	"github.com/gonewx/scrollfx/pkg/ecs"
	"github.com/gonewx/scrollfx/pkg/systems"
	"github.com/gonewx/scrollfx/pkg/types"
	"github.com/gonewx/scrollfx/pkg/utils"
)

// LoadReport 效果加载结果统计
type LoadReport struct {
	Triggers    int
	Tweens      int
	Timelines   int
	Counters    int
	Typewriters int
	Actions     int
	Errors      []error // 全部为 *types.ConfigurationError
}

// Rejected 返回被拒绝的声明数
func (r *LoadReport) Rejected() int {
	return len(r.Errors)
}

// textContent 可选接口：文档能提供元素的初始文本时，打字机以它作为默认文本
type textContent interface {
	TextContent(target string) (string, bool)
}

// effectLoader 把 YAML 声明解析为触发器、播放单元和插值器
//
// 目标组在加载时一次性解析；单个声明出错只拒绝该声明，其余照常注册。
type effectLoader struct {
	doc      types.Document
	triggers *systems.TriggerSystem
	playback *systems.PlaybackSystem
	interp   *systems.InterpolatorSystem
	report   *LoadReport
}

// LoadEffects 把效果声明注册到一组系统中
func LoadEffects(cfg *config.EffectsConfig, doc types.Document, triggers *systems.TriggerSystem, playback *systems.PlaybackSystem, interp *systems.InterpolatorSystem) *LoadReport {
	l := &effectLoader{
		doc:      doc,
		triggers: triggers,
		playback: playback,
		interp:   interp,
		report:   &LoadReport{},
	}
	for _, tc := range cfg.Entrance {
		l.loadTimeline(tc)
	}
	for _, ec := range cfg.Effects {
		l.loadEffect(ec)
	}
	for _, err := range l.report.Errors {
		log.Printf("[EffectLoader] Rejected: %v", err)
	}
	return l.report
}

func (l *effectLoader) reject(effect, field string, sentinel error, format string, args ...any) {
	l.report.Errors = append(l.report.Errors, &types.ConfigurationError{
		Effect: effect,
		Field:  field,
		Err:    fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)),
	})
}

func (l *effectLoader) fail(err error) {
	if err != nil {
		l.report.Errors = append(l.report.Errors, err)
	}
}

// parseEase 空名称返回 nil（由系统取默认缓动）
func parseEase(name string) (utils.EaseFunc, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	return utils.ParseEase(name)
}

// parseMode 把 YAML 模式名转换为触发模式
func parseMode(mode string) (components.TriggerMode, bool) {
	switch mode {
	case config.ModeOneShot, "":
		return components.TriggerOneShot, true
	case config.ModeRecurring:
		return components.TriggerRecurring, true
	case config.ModeScrubbed:
		return components.TriggerScrubbed, true
	}
	return components.TriggerOneShot, false
}

// resolveTargets 解析目标选择器
//
//   - "" 或 "&"：触发器元素本身
//   - "& > *"：触发器元素的直接子元素
//   - "& > sel"：匹配 sel 的直接子元素
//   - "& sel"：触发器元素内匹配 sel 的后代
//   - 其他：整个文档范围的选择器
func (l *effectLoader) resolveTargets(sel, scope string) []string {
	sel = strings.TrimSpace(sel)
	if sel == "" || sel == "&" {
		return []string{scope}
	}
	if !strings.HasPrefix(sel, "&") {
		return l.doc.Query(sel)
	}

	rest := strings.TrimSpace(sel[1:])
	if !strings.HasPrefix(rest, ">") {
		return l.doc.QueryWithin(scope, rest)
	}
	rest = strings.TrimSpace(rest[1:])
	children := l.doc.Children(scope)
	if rest == "*" {
		return children
	}
	direct := make(map[string]bool, len(children))
	for _, c := range children {
		direct[c] = true
	}
	var out []string
	for _, h := range l.doc.QueryWithin(scope, rest) {
		if direct[h] {
			out = append(out, h)
		}
	}
	return out
}

// loadTimeline 注册一条入场时间线
func (l *effectLoader) loadTimeline(tc config.TimelineConfig) {
	ease, err := parseEase(tc.Ease)
	if err != nil {
		l.reject(tc.ID, "ease", types.ErrInvalidEffect, "%v", err)
		return
	}

	spec := systems.TimelineSpec{Name: tc.ID, Ease: ease}
	for i, seg := range tc.Segments {
		field := fmt.Sprintf("segments[%d]", i)
		targets := l.doc.Query(seg.Targets)
		if len(targets) == 0 {
			l.reject(tc.ID, field+".targets", types.ErrTargetNotFound, "%q matches nothing", seg.Targets)
			return
		}
		from, to, err := parseTweenProps(seg.TweenConfig)
		if err != nil {
			l.reject(tc.ID, field, types.ErrInvalidEffect, "%v", err)
			return
		}
		segEase, err := parseEase(seg.Ease)
		if err != nil {
			l.reject(tc.ID, field+".ease", types.ErrInvalidEffect, "%v", err)
			return
		}
		pos, err := config.ParsePosition(seg.Position)
		if err != nil {
			l.reject(tc.ID, field+".position", types.ErrInvalidEffect, "%v", err)
			return
		}
		spec.Segments = append(spec.Segments, systems.SegmentSpec{
			Targets:  targets,
			From:     from,
			To:       to,
			Duration: seg.Duration,
			Delay:    seg.Delay,
			Stagger:  seg.Stagger,
			Ease:     segEase,
			Position: pos,
		})
	}

	if _, err := l.playback.ScheduleTimeline(spec); err != nil {
		l.fail(err)
		return
	}
	l.report.Timelines++
}

func parseTweenProps(tc config.TweenConfig) (types.PropertySet, types.PropertySet, error) {
	from, err := config.ParseProperties(tc.From)
	if err != nil {
		return from, from, fmt.Errorf("from: %w", err)
	}
	to, err := config.ParseProperties(tc.To)
	if err != nil {
		return from, to, fmt.Errorf("to: %w", err)
	}
	return from, to, nil
}

// loadEffect 注册一个滚动效果；each 为 true 时为每个匹配的触发器元素各注册一份
func (l *effectLoader) loadEffect(ec config.EffectConfig) {
	mode, ok := parseMode(ec.Mode)
	if !ok {
		l.reject(ec.ID, "mode", types.ErrInvalidEffect, "unknown mode %q", ec.Mode)
		return
	}
	switch ec.Kind {
	case config.KindTween, config.KindAction:
	case config.KindCounter, config.KindTypewriter:
		if mode == components.TriggerScrubbed {
			l.reject(ec.ID, "mode", types.ErrInvalidEffect, "%s cannot be scrubbed", ec.Kind)
			return
		}
	default:
		l.reject(ec.ID, "kind", types.ErrInvalidEffect, "unknown kind %q", ec.Kind)
		return
	}
	if strings.TrimSpace(ec.Trigger) == "" {
		l.reject(ec.ID, "trigger", types.ErrInvalidEffect, "missing trigger selector")
		return
	}

	elements := l.doc.Query(ec.Trigger)
	if len(elements) == 0 {
		l.reject(ec.ID, "trigger", types.ErrTargetNotFound, "%q matches nothing", ec.Trigger)
		return
	}
	if !ec.Each {
		elements = elements[:1]
	}

	for i, el := range elements {
		name := ec.ID
		if ec.Each {
			name = ec.ID + "[" + strconv.Itoa(i) + "]"
		}
		l.loadInstance(ec, name, el, mode)
	}
}

func (l *effectLoader) loadInstance(ec config.EffectConfig, name, element string, mode components.TriggerMode) {
	trig, err := l.triggers.Register(systems.TriggerSpec{
		Name:   name,
		Target: element,
		Start:  ec.Start,
		End:    ec.End,
		Mode:   mode,
	})
	if err != nil {
		l.fail(err)
		return
	}

	bound := 0
	switch ec.Kind {
	case config.KindTween:
		bound += l.loadTween(ec, name, element, trig, mode)
	case config.KindCounter:
		bound += l.loadCounters(ec, name, element, trig)
	case config.KindTypewriter:
		bound += l.loadTypewriters(ec, name, element, trig)
	}

	for i, ac := range ec.Actions {
		if l.loadAction(ac, name, fmt.Sprintf("actions[%d]", i), element, trig) {
			bound++
		}
	}

	// 没有任何单元或动作被接受时，触发器也不保留
	if bound == 0 {
		l.triggers.Unregister(trig)
		return
	}
	l.report.Triggers++
}

// loadTween 返回成功调度的补间数
func (l *effectLoader) loadTween(ec config.EffectConfig, name, element string, trig ecs.EntityID, mode components.TriggerMode) int {
	targets := l.resolveTargets(ec.Targets, element)
	if len(targets) == 0 {
		l.reject(name, "targets", types.ErrTargetNotFound, "%q matches nothing", ec.Targets)
		return 0
	}
	from, to, err := parseTweenProps(ec.TweenConfig)
	if err != nil {
		l.reject(name, "props", types.ErrInvalidEffect, "%v", err)
		return 0
	}
	ease, err := parseEase(ec.Ease)
	if err != nil {
		l.reject(name, "ease", types.ErrInvalidEffect, "%v", err)
		return 0
	}

	unit, err := l.playback.Schedule(systems.TweenSpec{
		Name:            name,
		Targets:         targets,
		From:            from,
		To:              to,
		Duration:        ec.Duration,
		Delay:           ec.Delay,
		Stagger:         ec.Stagger,
		Ease:            ease,
		Repeat:          ec.Repeat,
		Yoyo:            ec.Yoyo,
		Scrubbed:        mode == components.TriggerScrubbed,
		ImmediateRender: len(ec.From) > 0,
	}, trig)
	if err != nil {
		l.fail(err)
		return 0
	}
	l.report.Tweens++

	if len(ec.OnComplete) == 0 {
		return 1
	}
	followUps := make([]systems.FollowUp, 0, len(ec.OnComplete))
	for i, ac := range ec.OnComplete {
		field := fmt.Sprintf("on_complete[%d]", i)
		if ac.Play != nil {
			l.reject(name, field+".play", types.ErrInvalidEffect, "on_complete only toggles flags")
			continue
		}
		fu, ok := l.resolveFlagActions(ac, name, field, element)
		if !ok {
			continue
		}
		followUps = append(followUps, fu...)
	}
	err = l.playback.OnComplete(unit, func() {
		for _, fu := range followUps {
			l.playback.ScheduleFollowUp(fu)
		}
	})
	if err != nil {
		l.fail(&types.ConfigurationError{Effect: name, Field: "on_complete", Err: err})
		return 1
	}
	l.report.Actions += len(followUps)
	return 1
}

// numberFrom 读取字面值或数据属性
func (l *effectLoader) numberFrom(literal *float64, attr, target string) (float64, bool) {
	if literal != nil {
		return *literal, true
	}
	if attr == "" {
		return 0, false
	}
	raw, ok := l.doc.Attr(target, attr)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (l *effectLoader) stringFrom(literal, attr, target string) string {
	if literal != "" {
		return literal
	}
	if attr != "" {
		if v, ok := l.doc.Attr(target, attr); ok {
			return v
		}
	}
	return ""
}

func (l *effectLoader) loadCounters(ec config.EffectConfig, name, element string, trig ecs.EntityID) int {
	ease, err := parseEase(ec.Ease)
	if err != nil {
		l.reject(name, "ease", types.ErrInvalidEffect, "%v", err)
		return 0
	}
	targets := l.resolveTargets(ec.Targets, element)
	if len(targets) == 0 {
		l.reject(name, "targets", types.ErrTargetNotFound, "%q matches nothing", ec.Targets)
		return 0
	}
	n := 0
	for _, target := range targets {
		goal, ok := l.numberFrom(ec.Value, ec.ValueAttr, target)
		if !ok {
			l.reject(name, "value", types.ErrInvalidEffect, "no numeric value for %s", target)
			continue
		}
		_, err := l.interp.ScheduleCounter(systems.CounterSpec{
			Name:     name,
			Target:   target,
			Goal:     goal,
			Suffix:   l.stringFrom(ec.Suffix, ec.SuffixAttr, target),
			Duration: ec.Duration,
			Ease:     ease,
		}, trig)
		if err != nil {
			l.fail(err)
			continue
		}
		l.report.Counters++
		n++
	}
	return n
}

func (l *effectLoader) loadTypewriters(ec config.EffectConfig, name, element string, trig ecs.EntityID) int {
	targets := l.resolveTargets(ec.Targets, element)
	if len(targets) == 0 {
		l.reject(name, "targets", types.ErrTargetNotFound, "%q matches nothing", ec.Targets)
		return 0
	}
	n := 0
	for _, target := range targets {
		text := l.stringFrom(ec.Text, ec.TextAttr, target)
		if text == "" {
			if tc, ok := l.doc.(textContent); ok {
				text, _ = tc.TextContent(target)
			}
		}
		if text == "" {
			l.reject(name, "text", types.ErrInvalidEffect, "no text for %s", target)
			continue
		}
		_, err := l.interp.ScheduleTypewriter(systems.TypewriterSpec{
			Name:         name,
			Target:       target,
			Text:         text,
			CharDuration: ec.CharDuration,
		}, trig)
		if err != nil {
			l.fail(err)
			continue
		}
		l.report.Typewriters++
		n++
	}
	return n
}

// resolveFlagActions 把一个动作中的标记开关解析为后续动作
func (l *effectLoader) resolveFlagActions(ac config.ActionConfig, name, field, element string) ([]systems.FollowUp, bool) {
	if ac.AddFlag == "" && ac.RemoveFlag == "" {
		if ac.Play == nil {
			l.reject(name, field, types.ErrInvalidEffect, "action does nothing")
			return nil, false
		}
		return nil, true
	}
	if ac.Delay < 0 || ac.Stagger < 0 {
		l.reject(name, field, types.ErrInvalidEffect, "negative delay")
		return nil, false
	}
	targets := l.resolveTargets(ac.Targets, element)
	if len(targets) == 0 {
		l.reject(name, field+".targets", types.ErrTargetNotFound, "%q matches nothing", ac.Targets)
		return nil, false
	}

	var out []systems.FollowUp
	if ac.AddFlag != "" {
		out = append(out, systems.FollowUp{Targets: targets, Flag: ac.AddFlag, On: true, Delay: ac.Delay, Stagger: ac.Stagger})
	}
	if ac.RemoveFlag != "" {
		out = append(out, systems.FollowUp{Targets: targets, Flag: ac.RemoveFlag, On: false, Delay: ac.Delay, Stagger: ac.Stagger})
	}
	return out, true
}

// loadAction 把动作挂到触发器事件上：标记开关走帧时钟定时器，play 每次事件都从头播放
func (l *effectLoader) loadAction(ac config.ActionConfig, name, field, element string, trig ecs.EntityID) bool {
	on, err := systems.ParseEventType(ac.On)
	if err != nil || on == systems.EventComplete {
		l.reject(name, field+".on", types.ErrInvalidEffect, "unsupported event %q", ac.On)
		return false
	}

	followUps, ok := l.resolveFlagActions(ac, name, field, element)
	if !ok {
		return false
	}

	unit := ecs.InvalidEntity
	if ac.Play != nil {
		unit, ok = l.scheduleActionTween(*ac.Play, name, field, element, ac.Targets)
		if !ok {
			return false
		}
	}

	err = l.triggers.Subscribe(trig, on, func(systems.TriggerEvent) {
		for _, fu := range followUps {
			l.playback.ScheduleFollowUp(fu)
		}
		if unit != ecs.InvalidEntity {
			l.playback.Restart(unit)
		}
	})
	if err != nil {
		l.fail(&types.ConfigurationError{Effect: name, Field: field, Err: err})
		return false
	}
	l.report.Actions++
	return true
}

// scheduleActionTween 预先创建动作要播放的补间（不绑定触发器）
func (l *effectLoader) scheduleActionTween(tc config.TweenConfig, name, field, element, fallbackTargets string) (ecs.EntityID, bool) {
	sel := tc.Targets
	if sel == "" {
		sel = fallbackTargets
	}
	targets := l.resolveTargets(sel, element)
	if len(targets) == 0 {
		l.reject(name, field+".play.targets", types.ErrTargetNotFound, "%q matches nothing", sel)
		return ecs.InvalidEntity, false
	}
	from, to, err := parseTweenProps(tc)
	if err != nil {
		l.reject(name, field+".play", types.ErrInvalidEffect, "%v", err)
		return ecs.InvalidEntity, false
	}
	ease, err := parseEase(tc.Ease)
	if err != nil {
		l.reject(name, field+".play.ease", types.ErrInvalidEffect, "%v", err)
		return ecs.InvalidEntity, false
	}
	unit, err := l.playback.Schedule(systems.TweenSpec{
		Name:     name + "/" + field,
		Targets:  targets,
		From:     from,
		To:       to,
		Duration: tc.Duration,
		Delay:    tc.Delay,
		Stagger:  tc.Stagger,
		Ease:     ease,
		Repeat:   tc.Repeat,
		Yoyo:     tc.Yoyo,
	}, ecs.InvalidEntity)
	if err != nil {
		l.fail(err)
		return ecs.InvalidEntity, false
	}
	l.report.Tweens++
	return unit, true
}
