package schedule

import (
	"testing"
	"time"
)

func TestManualFireDeliversInOrder(t *testing.T) {
	src := NewManual()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	got := make(chan time.Time, 3)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			got <- <-src.C()
		}
	}()

	for i := 0; i < 3; i++ {
		if !src.Fire(base.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("expected fire %d to be delivered", i)
		}
	}
	<-done
	for i := 0; i < 3; i++ {
		if at := <-got; !at.Equal(base.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("expected tick %d at %v, got %v", i, base.Add(time.Duration(i)*time.Second), at)
		}
	}
}

func TestManualFireAfterStop(t *testing.T) {
	src := NewManual()
	src.Stop()
	src.Stop()
	if src.Fire(time.Now()) {
		t.Fatalf("expected fire after stop to report false")
	}
}

func TestTickerFires(t *testing.T) {
	src := NewTicker(200)
	defer src.Stop()
	select {
	case <-src.C():
	case <-time.After(time.Second):
		t.Fatalf("expected ticker to fire within a second")
	}
}

func TestManualClock(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewManualClock(base)
	if !clock.Now().Equal(base) {
		t.Fatalf("expected initial time %v, got %v", base, clock.Now())
	}
	if next := clock.Advance(time.Second); !next.Equal(base.Add(time.Second)) {
		t.Fatalf("unexpected advanced time %v", next)
	}
}
