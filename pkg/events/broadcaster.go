package events

import (
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/marmos91/lodestone/internal/logger"
)

// DefaultBuffer is the per-subscriber channel capacity used by
// NewBroadcaster when the caller passes a non-positive value.
const DefaultBuffer = 64

// Broadcaster fans events out to any number of subscribers. Slow consumers
// never block publishers: when a subscriber's buffer is full the event is
// dropped for that subscriber and a warning is logged.
type Broadcaster struct {
	subscribers cmap.ConcurrentMap[string, chan Event]
	buffer      int
}

// NewBroadcaster creates a broadcaster whose subscriber channels hold up to
// buffer events.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		subscribers: cmap.New[chan Event](),
		buffer:      buffer,
	}
}

// Subscribe registers a new consumer and returns its subscription ID
// together with the channel events will arrive on. The channel is never
// closed; consumers stop by calling Unsubscribe and abandoning the channel.
func (b *Broadcaster) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, b.buffer)
	b.subscribers.Set(id, ch)
	return id, ch
}

// Unsubscribe removes a consumer. Events broadcast after this call will no
// longer be delivered to it.
func (b *Broadcaster) Unsubscribe(id string) {
	b.subscribers.Remove(id)
}

// Broadcast delivers the event to every current subscriber without
// blocking.
func (b *Broadcaster) Broadcast(event Event) {
	for item := range b.subscribers.IterBuffered() {
		select {
		case item.Val <- event:
		default:
			logger.Warn("Event %d dropped for slow subscriber %s", event.ID, item.Key)
		}
	}
}

// Count returns the number of live subscriptions.
func (b *Broadcaster) Count() int {
	return b.subscribers.Count()
}
