// Package eventbus is the single-producer-many-consumer notification
// fabric between the hub core and the UI adapter. Grounded on the
// teacher's event builder/subject-constant pattern
// (internal/signaling/events/builder.go, events/subjects.go); the
// teacher's NATS sketch (services/signaling/events/nats.go) is fully
// commented out and unwired, so this bus stays in-process.
package eventbus

import (
	"log/slog"
	"sync"
)

// Topic is one of the fixed event subjects the hub emits.
type Topic string

const (
	TopicDeviceRequestAdded    Topic = "device_requests:added"
	TopicDeviceRequestRemoved  Topic = "device_requests:removed"
	TopicDeviceRequestAccepted Topic = "device_requests:accepted"
	TopicDeviceRequestDeclined Topic = "device_requests:declined"
	TopicDeviceAuthenticated   Topic = "device:authenticated"
	TopicDeviceRevoked         Topic = "device:revoked"
	TopicPluginRecvMessage     Topic = "plugin:recv_plugin_message"
	TopicPluginInspectorOpen   Topic = "plugin:inspector_open"
	TopicPluginInspectorClose  Topic = "plugin:inspector_close"
	TopicIconPackLoaded        Topic = "icon_pack:loaded"
	TopicIconPackUnloaded      Topic = "icon_pack:unloaded"
)

// Event is one (topic, payload) notification.
type Event struct {
	Topic   Topic
	Payload any
}

// Emitter is the interface components depend on to publish events,
// matching §9's "explicit dependencies, not ambient globals" rule.
type Emitter interface {
	Emit(topic Topic, payload any)
}

// Bus is a single unbounded, in-order-per-producer queue drained by one
// cooperative loop. Delivery to the UI sink is at-most-once: a failed
// emit is logged and dropped, the bus never blocks producers.
type Bus struct {
	mu     sync.Mutex
	queue  []Event
	notify chan struct{}
	sink   func(Event) error
	done   chan struct{}
}

// New creates a bus that drains into sink on its own goroutine.
func New(sink func(Event) error) *Bus {
	b := &Bus{
		notify: make(chan struct{}, 1),
		sink:   sink,
		done:   make(chan struct{}),
	}
	go b.loop()
	return b
}

// Emit appends an event to the queue; never blocks.
func (b *Bus) Emit(topic Topic, payload any) {
	b.mu.Lock()
	b.queue = append(b.queue, Event{Topic: topic, Payload: payload})
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *Bus) loop() {
	for {
		select {
		case <-b.notify:
			b.drain()
		case <-b.done:
			return
		}
	}
}

func (b *Bus) drain() {
	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		ev := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		if err := b.sink(ev); err != nil {
			slog.Error("[Bus] failed to emit event", "topic", ev.Topic, "error", err)
		}
	}
}

// Close stops the drain loop.
func (b *Bus) Close() {
	close(b.done)
}
