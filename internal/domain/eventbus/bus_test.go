package eventbus

import (
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewBus(2)
	defer bus.Stop()

	got := make(chan AuthEventData, 1)
	if err := bus.Subscribe(EventLogin, func(data AuthEventData) {
		got <- data
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	bus.Publish(EventLogin, AuthEventData{ClientID: 7, Group: "users"})

	select {
	case data := <-got:
		if data.ClientID != 7 || data.Group != "users" {
			t.Fatalf("unexpected event payload: %+v", data)
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestPanickingSubscriberDoesNotKillWorkers(t *testing.T) {
	bus := NewBus(1)
	defer bus.Stop()

	if err := bus.Subscribe(EventBanned, func(ThrottleEventData) {
		panic("boom")
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	got := make(chan struct{}, 1)
	if err := bus.Subscribe(EventRateLimited, func(ThrottleEventData) {
		got <- struct{}{}
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	bus.Publish(EventBanned, ThrottleEventData{IP: "10.0.0.1"})
	bus.Publish(EventRateLimited, ThrottleEventData{IP: "10.0.0.2"})

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("worker died after subscriber panic")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	bus := NewBus(2)
	bus.Stop()
	bus.Stop()
}

func TestHasCallback(t *testing.T) {
	bus := NewBus(1)
	defer bus.Stop()

	if bus.HasCallback(EventLogout) {
		t.Fatal("no subscriber registered yet")
	}
	handler := func(AuthEventData) {}
	if err := bus.Subscribe(EventLogout, handler); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if !bus.HasCallback(EventLogout) {
		t.Fatal("expected a subscriber")
	}
	if err := bus.Unsubscribe(EventLogout, handler); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}
}
