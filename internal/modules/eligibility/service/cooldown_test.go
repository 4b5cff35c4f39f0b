package service

import (
	"sync"
	"testing"
	"time"
)

func TestCooldownAcquireBlocksWindow(t *testing.T) {
	c := NewCooldowns(300 * time.Second)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if !c.Acquire(1, now) {
		t.Fatalf("first acquire must succeed")
	}
	if c.Acquire(1, now.Add(10*time.Second)) {
		t.Fatalf("acquire inside window must fail")
	}
	if left := c.Remaining(1, now.Add(10*time.Second)); left != 290*time.Second {
		t.Fatalf("remaining = %v, want 290s", left)
	}
	if !c.Acquire(1, now.Add(301*time.Second)) {
		t.Fatalf("acquire after window must succeed")
	}
}

func TestCooldownIndependentUsers(t *testing.T) {
	c := NewCooldowns(time.Minute)
	now := time.Now()
	if !c.Acquire(1, now) || !c.Acquire(2, now) {
		t.Fatalf("different users must not share a window")
	}
}

func TestCooldownSeedKeepsNewer(t *testing.T) {
	c := NewCooldowns(time.Minute)
	now := time.Now()

	c.Acquire(1, now)
	c.Seed(map[int64]time.Time{
		1: now.Add(-time.Hour), // старее текущей отметки — игнор
		2: now.Add(-10 * time.Second),
	})

	if c.Acquire(1, now.Add(30*time.Second)) {
		t.Fatalf("seed must not roll user 1 back")
	}
	if c.Acquire(2, now) {
		t.Fatalf("user 2 seeded inside window")
	}
	if !c.Acquire(2, now.Add(51*time.Second)) {
		t.Fatalf("user 2 window expired, acquire must succeed")
	}
}

func TestCooldownConcurrentAcquireSingleWinner(t *testing.T) {
	c := NewCooldowns(time.Minute)
	now := time.Now()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Acquire(7, now) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}
