package core

// EventCode identifies a kind of event. Application codes should start beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01

	// Pointer pressed. Data: PointerEvent.
	EVENT_CODE_POINTER_PRESSED EventCode = 0x02

	// Pointer moved. Data: PointerEvent.
	EVENT_CODE_POINTER_MOVED EventCode = 0x03

	// Pointer released. Data: PointerEvent.
	EVENT_CODE_POINTER_RELEASED EventCode = 0x04

	// Viewport resized. Data: ResizeEvent.
	EVENT_CODE_RESIZED EventCode = 0x05

	// Avatar file changed on disk. Data: string path.
	EVENT_CODE_ASSET_CHANGED EventCode = 0x06

	MAX_EVENT_CODE EventCode = 0xFF
)

// PointerEvent carries a pointer sample in viewport pixels.
type PointerEvent struct {
	X, Y   float32
	Button Button
}

type ResizeEvent struct {
	Width, Height uint32
}

type EventContext struct {
	Type EventCode
	Data interface{}
}

// Should return true if handled.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches events synchronously to registered listeners. It is
// owned by whoever drives the frame loop and is not safe for concurrent use.
type EventBus struct {
	registered map[EventCode][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[EventCode][]*registeredEvent),
	}
}

/**
 * Register to listen for when events are sent with the provided code. A listener
 * registered twice for the same code is refused.
 * @param code The event code to listen for.
 * @param listener A comparable listener identity, typically a pointer.
 * @param onEvent The callback invoked when the event code is fired.
 * @returns true if the event is successfully registered; otherwise false.
 */
func (b *EventBus) Register(code EventCode, listener interface{}, onEvent FnOnEvent) bool {
	if onEvent == nil {
		return false
	}
	for _, e := range b.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	b.registered[code] = append(b.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code.
 * @returns true if the listener was found and removed; otherwise false.
 */
func (b *EventBus) Unregister(code EventCode, listener interface{}) bool {
	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i:i], events[i+1:]...)
			if len(b.registered[code]) == 0 {
				delete(b.registered, code)
			}
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of its code. If a handler returns true the event
 * is considered handled and is not passed on to any more listeners.
 * @returns true if handled, otherwise false.
 */
func (b *EventBus) Fire(context EventContext) bool {
	// Copy so listeners may unregister themselves while handling.
	events := append([]*registeredEvent(nil), b.registered[context.Type]...)
	for _, e := range events {
		if e.callback(context) {
			return true
		}
	}
	return false
}

// ListenerCount reports how many listeners are registered for code.
func (b *EventBus) ListenerCount(code EventCode) int {
	return len(b.registered[code])
}

// Len reports the number of listeners across all codes.
func (b *EventBus) Len() int {
	n := 0
	for _, events := range b.registered {
		n += len(events)
	}
	return n
}
