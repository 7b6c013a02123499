package systems

import (
	"fmt"
	"log"

	"github.com/gonewx/scrollfx/pkg/ecs"
)

// EventType 触发器事件类型
type EventType int

const (
	EventEnter EventType = iota
	EventLeave
	EventEnterBack
	EventLeaveBack
	EventProgress
	EventComplete
)

// String 返回事件名称
func (t EventType) String() string {
	switch t {
	case EventEnter:
		return "ENTER"
	case EventLeave:
		return "LEAVE"
	case EventEnterBack:
		return "ENTER_BACK"
	case EventLeaveBack:
		return "LEAVE_BACK"
	case EventProgress:
		return "PROGRESS"
	case EventComplete:
		return "COMPLETE"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// ParseEventType 解析 YAML 中的事件名（enter / leave / enter_back / leave_back / complete）
func ParseEventType(name string) (EventType, error) {
	switch name {
	case "enter", "ENTER", "":
		return EventEnter, nil
	case "leave", "LEAVE":
		return EventLeave, nil
	case "enter_back", "ENTER_BACK":
		return EventEnterBack, nil
	case "leave_back", "LEAVE_BACK":
		return EventLeaveBack, nil
	case "progress", "PROGRESS":
		return EventProgress, nil
	case "complete", "COMPLETE":
		return EventComplete, nil
	}
	return 0, fmt.Errorf("unknown event %q", name)
}

// TriggerEvent 一个触发器事件
// Source 对 COMPLETE 事件是播放单元，对其他事件是触发器
type TriggerEvent struct {
	Source   ecs.EntityID
	Type     EventType
	Progress float64
}

// EventHandler 事件回调，在分发阶段同步调用
type EventHandler func(ev TriggerEvent)

// EventQueue 单 tick 内的有序事件队列
type EventQueue struct {
	events []TriggerEvent
}

// NewEventQueue 创建事件队列
func NewEventQueue() *EventQueue {
	return &EventQueue{events: make([]TriggerEvent, 0, 16)}
}

// Push 追加事件
func (q *EventQueue) Push(ev TriggerEvent) {
	q.events = append(q.events, ev)
}

// Len 返回待分发事件数
func (q *EventQueue) Len() int {
	return len(q.events)
}

// Consume 取出全部事件（FIFO），队列清空
func (q *EventQueue) Consume() []TriggerEvent {
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = make([]TriggerEvent, 0, cap(out))
	return out
}

type subscriptionKey struct {
	source ecs.EntityID
	typ    EventType
}

// EventRouter 把事件分发给按 (来源, 类型) 订阅的回调
//
// 同一事件的回调按订阅顺序调用；事件按入队顺序处理。
// 回调中 panic 会被隔离，只记录日志。
type EventRouter struct {
	handlers map[subscriptionKey][]EventHandler
	queue    *EventQueue
}

// NewEventRouter 创建挂接在队列上的路由器
func NewEventRouter(queue *EventQueue) *EventRouter {
	return &EventRouter{
		handlers: make(map[subscriptionKey][]EventHandler),
		queue:    queue,
	}
}

// Subscribe 订阅某个来源的某类事件
func (r *EventRouter) Subscribe(source ecs.EntityID, typ EventType, fn EventHandler) {
	key := subscriptionKey{source: source, typ: typ}
	r.handlers[key] = append(r.handlers[key], fn)
}

// Unsubscribe 移除某个来源的全部订阅
func (r *EventRouter) Unsubscribe(source ecs.EntityID) {
	for key := range r.handlers {
		if key.source == source {
			delete(r.handlers, key)
		}
	}
}

// HandlerCount 返回某个来源某类事件的回调数
func (r *EventRouter) HandlerCount(source ecs.EntityID, typ EventType) int {
	return len(r.handlers[subscriptionKey{source: source, typ: typ}])
}

// Emit 立即分发一个事件（不经过队列）
func (r *EventRouter) Emit(ev TriggerEvent) {
	for _, fn := range r.handlers[subscriptionKey{source: ev.Source, typ: ev.Type}] {
		r.invoke(fn, ev)
	}
}

// DispatchAll 分发队列中的全部事件
// 分发过程中新入队的事件在同一次调用中继续处理
func (r *EventRouter) DispatchAll() int {
	n := 0
	for r.queue.Len() > 0 {
		for _, ev := range r.queue.Consume() {
			r.Emit(ev)
			n++
		}
	}
	return n
}

func (r *EventRouter) invoke(fn EventHandler, ev TriggerEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[EventRouter] Handler for %s of %d panicked: %v", ev.Type, ev.Source, rec)
		}
	}()
	fn(ev)
}
