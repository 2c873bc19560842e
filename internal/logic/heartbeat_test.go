package logic

import (
	"testing"
	"time"
)

var hbStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestHeartbeatDisabled(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Minute} {
		h := NewHeartbeat(interval, hbStart)
		if hb := h.Check(hbStart.Add(time.Hour), true); hb != nil {
			t.Errorf("interval %v: should not return heartbeat when disabled", interval)
		}
	}
}

func TestHeartbeatBeforeFirstReading(t *testing.T) {
	h := NewHeartbeat(15*time.Minute, hbStart)
	if hb := h.Check(hbStart.Add(15*time.Minute), false); hb != nil {
		t.Error("should not return heartbeat before the first reading")
	}
}

func TestHeartbeatBeforeInterval(t *testing.T) {
	h := NewHeartbeat(15*time.Minute, hbStart)
	if hb := h.Check(hbStart.Add(14*time.Minute), true); hb != nil {
		t.Error("should not return heartbeat before interval")
	}
}

func TestHeartbeatAtInterval(t *testing.T) {
	h := NewHeartbeat(15*time.Minute, hbStart)

	checkTime := hbStart.Add(15 * time.Minute)
	hb := h.Check(checkTime, true)
	if hb == nil {
		t.Fatal("should return heartbeat at interval")
	}
	if !hb.Timestamp.Equal(checkTime) {
		t.Errorf("expected timestamp %v, got %v", checkTime, hb.Timestamp)
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("expected uptime 15m, got %v", hb.Uptime)
	}
}

func TestHeartbeatUpdatesLastTime(t *testing.T) {
	h := NewHeartbeat(15*time.Minute, hbStart)

	t1 := hbStart.Add(15 * time.Minute)
	if h.Check(t1, true) == nil {
		t.Fatal("should return first heartbeat")
	}
	if h.Check(t1.Add(time.Second), true) != nil {
		t.Error("should not return heartbeat immediately after previous")
	}

	t2 := t1.Add(15 * time.Minute)
	hb := h.Check(t2, true)
	if hb == nil {
		t.Fatal("should return second heartbeat")
	}
	if hb.Uptime != 30*time.Minute {
		t.Errorf("expected uptime 30m, got %v", hb.Uptime)
	}
}

func TestHeartbeatLateReadingFiresOnFirstReadyCheck(t *testing.T) {
	h := NewHeartbeat(15*time.Minute, hbStart)
	if h.Check(hbStart.Add(20*time.Minute), false) != nil {
		t.Fatal("not ready yet")
	}
	if h.Check(hbStart.Add(21*time.Minute), true) == nil {
		t.Error("should fire once a reading exists and the interval has passed")
	}
}
