package observable

import "testing"

// TestSubscribeReceivesCurrent verifies a new subscriber sees the current value first.
func TestSubscribeReceivesCurrent(t *testing.T) {
	v := New(7)
	ch, cancel := v.Subscribe()
	defer cancel()

	if got := <-ch; got != 7 {
		t.Errorf("first value = %d, want 7", got)
	}
}

// TestSlowSubscriberGetsLatest verifies that unread values are replaced
// rather than blocking Set.
func TestSlowSubscriberGetsLatest(t *testing.T) {
	v := New(0)
	ch, cancel := v.Subscribe()
	defer cancel()

	for i := 1; i <= 5; i++ {
		v.Set(i)
	}
	if got := <-ch; got != 5 {
		t.Errorf("value = %d, want 5", got)
	}
	if got := v.Get(); got != 5 {
		t.Errorf("Get() = %d, want 5", got)
	}
}

// TestCancelClosesChannel verifies cancel closes the channel and is idempotent.
func TestCancelClosesChannel(t *testing.T) {
	v := New("a")
	ch, cancel := v.Subscribe()
	<-ch
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel still open after cancel")
	}
	v.Set("b")
}

// TestCloseEndsSubscriptions verifies Close closes live channels and that
// later subscribers get an already-closed channel.
func TestCloseEndsSubscriptions(t *testing.T) {
	v := New(1)
	ch, cancel := v.Subscribe()
	defer cancel()
	<-ch

	v.Close()
	if _, ok := <-ch; ok {
		t.Error("channel still open after Close")
	}

	late, lateCancel := v.Subscribe()
	defer lateCancel()
	if _, ok := <-late; ok {
		t.Error("late subscription should be closed")
	}

	v.Set(2)
	if got := v.Get(); got != 2 {
		t.Errorf("Get() = %d, want 2", got)
	}
}
