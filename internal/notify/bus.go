// Package notify provides the async notification bus that decouples the
// supervisor from push delivery sinks.
package notify

import (
	"context"
	"sync"
	"time"
)

// Notification is a reminder push addressed to one member.
type Notification struct {
	TenantID string    `json:"tenant_id"`
	UserID   string    `json:"user_id"`
	Channel  string    `json:"channel"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	At       time.Time `json:"at"`
}

// Bus decouples the supervisor from delivery sinks.
type Bus struct {
	out  chan *Notification
	subs map[string][]func(*Notification)
	mu   sync.RWMutex
}

// NewBus creates a notification bus.
func NewBus() *Bus {
	return &Bus{
		out:  make(chan *Notification, 100),
		subs: make(map[string][]func(*Notification)),
	}
}

// Publish queues a notification for delivery.
func (b *Bus) Publish(n *Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	b.out <- n
}

// Subscribe registers a callback for notifications on a specific channel.
func (b *Bus) Subscribe(channel string, callback func(*Notification)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[channel] = append(b.subs[channel], callback)
}

// Dispatch runs the delivery loop. This should be run as a goroutine.
func (b *Bus) Dispatch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-b.out:
			b.mu.RLock()
			callbacks := b.subs[n.Channel]
			b.mu.RUnlock()

			for _, cb := range callbacks {
				cb(n)
			}
		}
	}
}

// Pending returns the number of undelivered notifications.
func (b *Bus) Pending() int {
	return len(b.out)
}
