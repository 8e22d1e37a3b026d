package eventbus

import (
	"context"
	"sync"

	"pkt.systems/frontline/schema"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventView signals that a view's lines or scroll position changed.
	EventView EventType = "view"
	// EventStatus signals a status bar, find, replace or hover change.
	EventStatus EventType = "status"
	// EventPlugin signals plugin lifecycle or command list changes.
	EventPlugin EventType = "plugin"
	// EventGlobal signals style, theme, language or alert changes that affect
	// every view.
	EventGlobal EventType = "global"
)

// Event represents a display change. Subscribers re-read the display state,
// so events carry identifiers only.
type Event struct {
	Type   EventType
	ViewID schema.ViewID
	Alert  string
}

// allViews keys wildcard subscribers.
const allViews schema.ViewID = 0

// Bus fanouts events to per-view subscribers.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.ViewID]map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.ViewID]map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for one view and returns a channel +
// cancel. Global events reach every subscriber.
func (b *Bus) Subscribe(viewID schema.ViewID) (<-chan Event, func()) {
	return b.subscribe(viewID)
}

// SubscribeAll registers a subscriber for every view.
func (b *Bus) SubscribeAll() (<-chan Event, func()) {
	return b.subscribe(allViews)
}

func (b *Bus) subscribe(viewID schema.ViewID) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	viewSubs := b.subs[viewID]
	if viewSubs == nil {
		viewSubs = make(map[chan Event]struct{})
		b.subs[viewID] = viewSubs
	}
	viewSubs[ch] = struct{}{}
	count := len(viewSubs)
	b.mu.Unlock()
	log := b.viewLog(viewID)
	log.Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[viewID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, viewID)
				}
			}
			b.mu.Unlock()
			close(ch)
			log.Debug("eventbus unsubscribe")
		})
	}
}

// Publish delivers event to the subscribers of its view and to wildcard
// subscribers. Global events reach every subscriber. Publishing never
// blocks; full subscriber channels drop the event.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	var subs []chan Event
	for viewID, viewSubs := range b.subs {
		if event.Type != EventGlobal && viewID != allViews && viewID != event.ViewID {
			continue
		}
		for sub := range viewSubs {
			subs = append(subs, sub)
		}
	}
	// Sends happen under the lock so a concurrent cancel cannot close a
	// channel mid-send.
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.viewLog(event.ViewID).Trace("eventbus dropped", "type", string(event.Type), "count", dropped)
	}
}

func (b *Bus) viewLog(viewID schema.ViewID) pslog.Logger {
	if viewID == allViews {
		return b.log
	}
	return b.log.With("view", viewID.String())
}
