package systems

import (
	"fmt"

	"github.com/gonewx/scrollfx/pkg/components"
	"github.com/gonewx/scrollfx/pkg/ecs"
	"github.com/gonewx/scrollfx/pkg/types"
	"github.com/gonewx/scrollfx/pkg/utils"
)

// SegmentSpec 时间线段调度参数
type SegmentSpec struct {
	Targets  []string
	From     types.PropertySet
	To       types.PropertySet
	Duration float64
	Delay    float64
	Stagger  float64
	Ease     utils.EaseFunc // nil 时使用时间线默认缓动
	// Position 相对上一段结束时间的偏移（负数表示重叠）
	Position float64
}

// TimelineSpec 入场时间线调度参数
type TimelineSpec struct {
	Name     string
	Ease     utils.EaseFunc // 段的默认缓动
	Segments []SegmentSpec
}

// ScheduleTimeline 创建入场时间线
//
// 段的开始时间 = 上一段结束时间 + Position + Delay（不早于 0）。
// 各段的起始姿态立即写入；ContentReady 之后开始播放。
func (s *PlaybackSystem) ScheduleTimeline(spec TimelineSpec) (ecs.EntityID, error) {
	if len(spec.Segments) == 0 {
		return ecs.InvalidEntity, &types.ConfigurationError{
			Effect: spec.Name,
			Field:  "segments",
			Err:    fmt.Errorf("%w: empty timeline", types.ErrInvalidEffect),
		}
	}
	defaultEase := spec.Ease
	if defaultEase == nil {
		defaultEase = utils.EaseOutQuad
	}

	segments := make([]components.TimelineSegment, 0, len(spec.Segments))
	cursor := 0.0
	for i, seg := range spec.Segments {
		field := fmt.Sprintf("segments[%d]", i)
		if len(seg.Targets) == 0 {
			return ecs.InvalidEntity, &types.ConfigurationError{
				Effect: spec.Name,
				Field:  field,
				Err:    fmt.Errorf("%w: empty target group", types.ErrTargetNotFound),
			}
		}
		if seg.Duration < 0 || seg.Delay < 0 || seg.Stagger < 0 {
			return ecs.InvalidEntity, &types.ConfigurationError{
				Effect: spec.Name,
				Field:  field,
				Err:    fmt.Errorf("%w: negative timing", types.ErrInvalidEffect),
			}
		}
		from, to, err := normalizeProps(spec.Name, seg.From, seg.To)
		if err != nil {
			return ecs.InvalidEntity, err
		}
		ease := seg.Ease
		if ease == nil {
			ease = defaultEase
		}

		offset := cursor + seg.Position + seg.Delay
		if offset < 0 {
			offset = 0
		}
		targets := make([]string, len(seg.Targets))
		copy(targets, seg.Targets)

		built := components.TimelineSegment{
			Targets:  targets,
			From:     from,
			To:       to,
			Offset:   offset,
			Duration: seg.Duration,
			Stagger:  seg.Stagger,
			Ease:     ease,
		}
		cursor = built.End()
		segments = append(segments, built)
	}

	id := s.entityManager.CreateEntity()
	tl := &components.TimelineComponent{
		Name:     spec.Name,
		Segments: segments,
		Status:   components.StatusPending,
	}
	ecs.AddComponent(s.entityManager, id, tl)

	for i := range tl.Segments {
		seg := &tl.Segments[i]
		for _, target := range seg.Targets {
			s.renderer.ApplyProps(target, seg.From)
		}
	}

	if s.contentReady {
		tl.Status = components.StatusPlaying
		tl.StartTime = s.now()
	}
	logSchedule("timeline", spec.Name, id, len(segments))
	return id, nil
}

// ContentReady 页面内容就绪，开始所有待播放的入场时间线
func (s *PlaybackSystem) ContentReady() {
	if s.contentReady {
		return
	}
	s.contentReady = true
	now := s.now()
	for _, id := range ecs.GetEntitiesWith1[*components.TimelineComponent](s.entityManager) {
		tl, _ := ecs.GetComponent[*components.TimelineComponent](s.entityManager, id)
		if tl.Status == components.StatusPending {
			tl.Status = components.StatusPlaying
			tl.StartTime = now
		}
	}
}

// updateTimelines 渲染播放中的时间线
func (s *PlaybackSystem) updateTimelines(now float64) {
	for _, id := range ecs.GetEntitiesWith1[*components.TimelineComponent](s.entityManager) {
		tl, _ := ecs.GetComponent[*components.TimelineComponent](s.entityManager, id)
		if tl.Status != components.StatusPlaying {
			continue
		}

		elapsed := now - tl.StartTime
		for i := range tl.Segments {
			seg := &tl.Segments[i]
			for j, target := range seg.Targets {
				local := elapsed - seg.Offset - float64(j)*seg.Stagger
				if local < 0 {
					continue
				}
				p := 1.0
				if seg.Duration > 0 {
					p = utils.Clamp01(local / seg.Duration)
				}
				s.renderer.ApplyProps(target, types.LerpProperties(seg.From, seg.To, seg.Ease(p)))
			}
		}

		if elapsed >= tl.TotalDuration() {
			tl.Status = components.StatusComplete
			s.queue.Push(TriggerEvent{Source: id, Type: EventComplete, Progress: 1})
		}
	}
}
