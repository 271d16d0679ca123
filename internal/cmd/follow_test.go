package cmd

import (
	"testing"
	"time"
)

func TestReconnectBackoffGrowsAndCaps(t *testing.T) {
	var b reconnectBackoff

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, w := range want {
		if got := b.delay(time.Second); got != w {
			t.Errorf("drop %d: delay = %s, want %s", i, got, w)
		}
	}
}

func TestReconnectBackoffResetsAfterHealthyRun(t *testing.T) {
	var b reconnectBackoff

	// A run of quick drops accumulates delay.
	for range 5 {
		b.delay(time.Second)
	}

	// A stream that stayed up past the healthy threshold starts the
	// progression over instead of waiting the accumulated delay.
	if got := b.delay(2 * time.Minute); got != followBackoffInitial {
		t.Errorf("delay after healthy run = %s, want %s", got, followBackoffInitial)
	}
	if got := b.delay(time.Second); got != 2*time.Second {
		t.Errorf("next delay = %s, want 2s", got)
	}
}
