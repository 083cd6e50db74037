// Package broadcast fans progress notifications out to interested
// consumers. Publishing is fire-and-forget; the pipeline never waits for
// delivery.
package broadcast

import (
	"sync"
	"time"
)

// Broadcaster delivers a named event on a channel. Implementations must not
// block the caller.
type Broadcaster interface {
	Publish(channelID, eventName string, payload any)
}

// Notification is a single delivered message. The payload is self-contained,
// so a duplicate or late delivery never corrupts subscriber state.
type Notification struct {
	ChannelID string    `json:"channel_id"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Subscriber receives notifications for one channel.
type Subscriber func(n Notification)

// Hub is an in-process broadcaster: subscribers register per channel, and a
// bounded ring of recent notifications is kept so a subscriber attaching
// mid-task can catch up.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]Subscriber
	buffer      map[string][]Notification
	bufferSize  int
}

// NewHub creates a hub retaining the last bufferSize notifications per
// channel. Zero or negative means 100.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Hub{
		subscribers: make(map[string][]Subscriber),
		buffer:      make(map[string][]Notification),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers fn for a channel and replays the buffered history.
func (h *Hub) Subscribe(channelID string, fn Subscriber) {
	h.mu.Lock()
	history := make([]Notification, len(h.buffer[channelID]))
	copy(history, h.buffer[channelID])
	h.subscribers[channelID] = append(h.subscribers[channelID], fn)
	h.mu.Unlock()

	for _, n := range history {
		fn(n)
	}
}

// Publish delivers the event to every subscriber of the channel and records
// it in the ring.
func (h *Hub) Publish(channelID, eventName string, payload any) {
	n := Notification{
		ChannelID: channelID,
		Event:     eventName,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	h.mu.Lock()
	buf := append(h.buffer[channelID], n)
	if len(buf) > h.bufferSize {
		buf = buf[len(buf)-h.bufferSize:]
	}
	h.buffer[channelID] = buf
	subs := make([]Subscriber, len(h.subscribers[channelID]))
	copy(subs, h.subscribers[channelID])
	h.mu.Unlock()

	for _, fn := range subs {
		fn(n)
	}
}

// Drop discards a channel's buffer and subscribers, called when a task's
// record is deleted.
func (h *Hub) Drop(channelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, channelID)
	delete(h.buffer, channelID)
}

// Nop is a broadcaster that discards everything.
type Nop struct{}

func (Nop) Publish(channelID, eventName string, payload any) {}
