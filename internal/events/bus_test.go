package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan PreviewStartedEvent, 1)

	unsub := bus.Subscribe(func(e PreviewStartedEvent) {
		received <- e
	})
	defer unsub()

	event := PreviewStartedEvent{
		CameraID:  "0",
		Surface:   "surfaceA",
		Timestamp: "2025-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got.CameraID != event.CameraID {
		t.Errorf("Expected camera_id %s, got %s", event.CameraID, got.CameraID)
	}
	if got.Surface != event.Surface {
		t.Errorf("Expected surface %s, got %s", event.Surface, got.Surface)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan DeviceErrorEvent, 1)

	unsub := bus.Subscribe(func(e DeviceErrorEvent) {
		received <- e
	})

	bus.Publish(DeviceErrorEvent{CameraID: "0", Code: 1})
	<-received

	unsub()

	bus.Publish(DeviceErrorEvent{CameraID: "0", Code: 2})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	startReceived := make(chan bool, 1)
	stopReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ PreviewStartedEvent) {
		startReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ PreviewStoppedEvent) {
		stopReceived <- true
	})
	defer unsub2()

	bus.Publish(PreviewStartedEvent{CameraID: "0"})
	<-startReceived

	select {
	case <-stopReceived:
		t.Fatal("Stop subscriber should NOT have received PreviewStartedEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}

	bus.Publish(PreviewStoppedEvent{CameraID: "0"})
	<-stopReceived
}

func TestBus_SubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 4)

	unsub := SubscribeToChannel[SessionStateEvent](bus, ch)
	defer unsub()

	bus.Publish(SessionStateEvent{State: "ready"})
	bus.Publish(SessionStateEvent{State: "active"})

	for _, want := range []string{"ready", "active"} {
		select {
		case raw := <-ch:
			e, ok := raw.(SessionStateEvent)
			if !ok {
				t.Fatalf("unexpected event type %T", raw)
			}
			if e.State != want {
				t.Errorf("state = %q, want %q", e.State, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for session state event")
		}
	}
}
