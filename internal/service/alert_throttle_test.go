package service

import (
	"testing"
	"time"
)

func TestAlertThrottleCooldown(t *testing.T) {
	throttle := NewAlertThrottle(time.Minute)
	current := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	throttle.SetClock(func() time.Time { return current })

	if !throttle.Allow("stock_alert:1") {
		t.Fatalf("first alert should pass")
	}
	if throttle.Allow("stock_alert:1") {
		t.Fatalf("second alert within cooldown should be throttled")
	}
	// 不同 key 互不影响
	if !throttle.Allow("stock_alert:2") {
		t.Fatalf("different key should pass")
	}

	current = current.Add(59 * time.Second)
	if throttle.Allow("stock_alert:1") {
		t.Fatalf("still inside cooldown window")
	}
	current = current.Add(2 * time.Second)
	if !throttle.Allow("stock_alert:1") {
		t.Fatalf("alert should pass after cooldown elapsed")
	}
}

func TestAlertThrottleReset(t *testing.T) {
	throttle := NewAlertThrottle(time.Hour)
	if !throttle.Allow("k") {
		t.Fatalf("first alert should pass")
	}
	throttle.Reset("k")
	if !throttle.Allow("k") {
		t.Fatalf("reset should clear cooldown")
	}
}

func TestAlertThrottleDefaults(t *testing.T) {
	throttle := NewAlertThrottle(0)
	if !throttle.Allow("k") {
		t.Fatalf("zero cooldown falls back to default and first pass succeeds")
	}
	if throttle.Allow("k") {
		t.Fatalf("default cooldown should throttle immediate repeat")
	}
	// 空 key 永远放行
	if !throttle.Allow("") || !throttle.Allow("") {
		t.Fatalf("empty key must always pass")
	}
}
