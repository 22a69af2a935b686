package notify

import (
	"context"
	"testing"
	"time"
)

func TestBusDeliversToChannelSubscribers(t *testing.T) {
	bus := NewBus()
	got := make(chan *Notification, 1)
	other := make(chan *Notification, 1)

	bus.Subscribe("push", func(n *Notification) { got <- n })
	bus.Subscribe("email", func(n *Notification) { other <- n })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Dispatch(ctx)

	bus.Publish(&Notification{
		TenantID: "t1", UserID: "u1",
		Channel: "push", Title: "Close one open loop today",
	})

	select {
	case n := <-got:
		if n.TenantID != "t1" || n.Title != "Close one open loop today" {
			t.Fatalf("unexpected notification: %+v", n)
		}
		if n.At.IsZero() {
			t.Fatal("Publish must stamp At")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("push subscriber never received the notification")
	}

	select {
	case n := <-other:
		t.Fatalf("email subscriber got a push notification: %+v", n)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusPending(t *testing.T) {
	bus := NewBus()
	if bus.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", bus.Pending())
	}
	bus.Publish(&Notification{Channel: "push"})
	bus.Publish(&Notification{Channel: "push"})
	if bus.Pending() != 2 {
		t.Fatalf("Pending = %d, want 2", bus.Pending())
	}
}

func TestBusDispatchStopsOnCancel(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- bus.Dispatch(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Dispatch returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch did not stop on cancel")
	}
}
