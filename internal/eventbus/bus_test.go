package eventbus

import "testing"

func TestBroadcasterDeliversToSubscribersSubscribedBeforePublish(t *testing.T) {
	b := NewBroadcaster[int]()
	sub, unsub := b.Subscribe()
	defer unsub()

	b.Publish(42)

	select {
	case v := <-sub:
		if v != 42 {
			t.Fatalf("got %d, want 42", v)
		}
	default:
		t.Fatal("expected a buffered message")
	}
}

func TestBroadcasterDropsSlowSubscriberWithoutBlocking(t *testing.T) {
	b := NewBroadcaster[int]()
	sub, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < channelCapacity+10; i++ {
		b.Publish(i) // must never block even once sub's buffer is full
	}
	if len(sub) != channelCapacity {
		t.Fatalf("expected buffer full at capacity %d, got %d", channelCapacity, len(sub))
	}
}

func TestNotifyCoalesces(t *testing.T) {
	n := NewNotify()
	n.NotifyOne()
	n.NotifyOne()
	n.NotifyOne()

	select {
	case <-n.Wait():
	default:
		t.Fatal("expected a pending notification")
	}
	select {
	case <-n.Wait():
		t.Fatal("expected notifications to coalesce into one wakeup")
	default:
	}
}
