package lastfm

import (
	"testing"
	"time"
)

func TestBusFanOutOrdering(t *testing.T) {
	bus := NewBus()
	subA := bus.Subscribe()
	subB := bus.Subscribe()
	defer subA.Close()
	defer subB.Close()

	for i := 0; i < 5; i++ {
		bus.Publish(requestStarted(RequestInfo{ID: string(rune('a' + i))}))
	}

	for i := 0; i < 5; i++ {
		evA := <-subA.Events()
		evB := <-subB.Events()
		if evA.Request.ID != evB.Request.ID {
			t.Fatalf("subscribers diverged at index %d: %q vs %q", i, evA.Request.ID, evB.Request.ID)
		}
	}
}

func TestBusLatest(t *testing.T) {
	bus := NewBus()
	if _, ok := bus.Latest(); ok {
		t.Fatal("Latest() on a fresh bus should report false")
	}

	bus.Publish(requestStarted(RequestInfo{ID: "r1"}))
	latest, ok := bus.Latest()
	if !ok || latest.Request.ID != "r1" {
		t.Fatalf("Latest() = %+v, %v", latest, ok)
	}
}

func TestBusDropsOldestWhenSubscriberLags(t *testing.T) {
	bus := NewBusWithCapacity(100)
	sub := bus.Subscribe()
	defer sub.Close()

	for i := 0; i < 150; i++ {
		bus.Publish(requestStarted(RequestInfo{ID: "x"}))
	}

	if !sub.Lagged() {
		t.Fatal("subscriber should be flagged as lagged after the channel filled")
	}
	if sub.Lagged() {
		t.Fatal("Lagged() should clear the flag after being read")
	}

	drained := 0
	for {
		select {
		case <-sub.Events():
			drained++
		case <-time.After(10 * time.Millisecond):
			if drained == 0 || drained > 100 {
				t.Fatalf("expected a bounded number of buffered events, got %d", drained)
			}
			return
		}
	}
}

func TestBusMinimumCapacity(t *testing.T) {
	bus := NewBusWithCapacity(1)
	if bus.capacity != 100 {
		t.Errorf("capacity should be floored to 100, got %d", bus.capacity)
	}
}
