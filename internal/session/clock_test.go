package session

import (
	"testing"
	"time"
)

func TestActivityClockTouch(t *testing.T) {
	clock := NewActivityClock(t.TempDir())

	if !clock.Last().IsZero() {
		t.Fatal("fresh clock reports activity")
	}
	if clock.IdleFor() != 0 {
		t.Fatal("fresh clock reports idle time")
	}

	before := time.Now()
	clock.Touch()

	last := clock.Last()
	if last.Before(before) {
		t.Fatalf("Touch recorded %v, before %v", last, before)
	}
	if clock.IdleFor() > time.Minute {
		t.Fatal("implausible idle duration right after Touch")
	}
}

func TestActivityClockSurvivesRestart(t *testing.T) {
	root := t.TempDir()

	first := NewActivityClock(root)
	first.Touch()
	want := first.Last()

	// A fresh clock over the same volume picks up the persisted value, the
	// way a restarted watcher would.
	second := NewActivityClock(root)
	got := second.Last()
	if got.IsZero() {
		t.Fatal("restarted clock lost the persisted timestamp")
	}
	if !got.Equal(want) {
		t.Fatalf("persisted timestamp mismatch: got %v, want %v", got, want)
	}
}
