package systems

import (
	"testing"

	"github.com/gonewx/scrollfx/pkg/clock"
	"github.com/gonewx/scrollfx/pkg/ecs"
	"github.com/gonewx/scrollfx/pkg/types"
)

// fakeDocument 可以直接修改布局的测试文档
type fakeDocument struct {
	layout *types.StaticLayout
	attrs  map[string]map[string]string
}

func newFakeDocument(vpHeight float64, rects map[string]types.Rect) *fakeDocument {
	return &fakeDocument{
		layout: &types.StaticLayout{View: types.Viewport{Width: 1280, Height: vpHeight}, Rects: rects},
		attrs:  map[string]map[string]string{},
	}
}

func (d *fakeDocument) Query(string) []string { return nil }

func (d *fakeDocument) QueryWithin(string, string) []string { return nil }

func (d *fakeDocument) Children(string) []string { return nil }

func (d *fakeDocument) Layout() types.Layout { return d.layout }

func (d *fakeDocument) Attr(target, key string) (string, bool) {
	v, ok := d.attrs[target][key]
	return v, ok
}

// remove 用不含 target 的新快照替换布局
func (d *fakeDocument) remove(target string) {
	rects := make(map[string]types.Rect, len(d.layout.Rects))
	for k, v := range d.layout.Rects {
		if k != target {
			rects[k] = v
		}
	}
	d.layout = &types.StaticLayout{View: d.layout.View, Rects: rects}
}

// recordingRenderer 记录渲染器收到的全部写入
type recordingRenderer struct {
	props map[string]types.PropertySet
	text  map[string]string
	flags map[string]map[string]bool
	texts []string // 每次 SetText 的值，按顺序
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{
		props: map[string]types.PropertySet{},
		text:  map[string]string{},
		flags: map[string]map[string]bool{},
	}
}

func (r *recordingRenderer) ApplyProps(target string, props types.PropertySet) {
	cur, ok := r.props[target]
	if !ok {
		cur = types.NewPropertySet()
		r.props[target] = cur
	}
	for k, v := range props.Numbers {
		cur.Numbers[k] = v
	}
	for k, v := range props.Colors {
		cur.Colors[k] = v
	}
}

func (r *recordingRenderer) SetText(target, text string) {
	r.text[target] = text
	r.texts = append(r.texts, text)
}

func (r *recordingRenderer) SetFlag(target, flag string, on bool) {
	if r.flags[target] == nil {
		r.flags[target] = map[string]bool{}
	}
	r.flags[target][flag] = on
}

func (r *recordingRenderer) number(target, prop string) float64 {
	if p, ok := r.props[target]; ok {
		if v, ok := p.Numbers[prop]; ok {
			return v
		}
	}
	return types.NaturalValue(prop)
}

// testWorld 按引擎的顺序把各系统串在帧时钟上
type testWorld struct {
	em       *ecs.EntityManager
	clock    *clock.FrameClock
	doc      *fakeDocument
	renderer *recordingRenderer
	queue    *EventQueue
	router   *EventRouter
	triggers *TriggerSystem
	playback *PlaybackSystem
	interp   *InterpolatorSystem

	offset float64
}

func newTestWorld(t *testing.T, rects map[string]types.Rect) *testWorld {
	t.Helper()
	w := &testWorld{
		em:       ecs.NewEntityManager(),
		clock:    clock.New(clock.WithLagSmoothing(0, 0), clock.WithStallWindow(0)),
		doc:      newFakeDocument(800, rects),
		renderer: newRecordingRenderer(),
	}
	w.queue = NewEventQueue()
	w.router = NewEventRouter(w.queue)
	w.triggers = NewTriggerSystem(w.em, w.doc, w.queue, w.router)
	w.playback = NewPlaybackSystem(w.em, w.renderer, w.clock, w.triggers, w.queue, w.router)
	w.interp = NewInterpolatorSystem(w.em, w.renderer, w.clock, w.triggers, w.playback, w.queue, w.router)

	w.clock.Subscribe(func(elapsed, dt float64) error {
		w.triggers.Evaluate(w.offset, w.doc.Layout())
		w.router.DispatchAll()
		w.playback.Update()
		w.interp.Update()
		w.em.RemoveMarkedEntities()
		return nil
	})
	w.clock.Start()
	return w
}

// step 以给定偏移推进一帧
func (w *testWorld) step(offset, dt float64) {
	w.offset = offset
	w.clock.Advance(dt)
}

// record 订阅触发器的全部事件类型，返回事件日志
func (w *testWorld) record(t *testing.T, id ecs.EntityID) *[]EventType {
	t.Helper()
	log := &[]EventType{}
	for _, typ := range []EventType{EventEnter, EventLeave, EventEnterBack, EventLeaveBack, EventProgress} {
		typ := typ
		if err := w.triggers.Subscribe(id, typ, func(TriggerEvent) { *log = append(*log, typ) }); err != nil {
			t.Fatalf("Subscribe error: %v", err)
		}
	}
	return log
}

func numProps(kv ...any) types.PropertySet {
	p := types.NewPropertySet()
	for i := 0; i+1 < len(kv); i += 2 {
		p.Numbers[kv[i].(string)] = toFloat(kv[i+1])
	}
	return p
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	panic("unsupported number")
}
