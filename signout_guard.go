package authsync

import (
	"sync"
	"time"
)

// signOutGuard is the single-shot latch that prevents duplicate forced
// sign-outs when unauthorized outcomes overlap (an in-flight fetch racing
// a manual refresh). The first caller wins and arms a cooldown; callers
// inside the window are suppressed. The guard disarms purely by time, so a
// genuinely new unauthorized outcome inside the window is also suppressed;
// that bound is the accepted trade-off for loop protection.
type signOutGuard struct {
	mu         sync.Mutex
	now        func() time.Time
	cooldown   time.Duration
	armedUntil time.Time
}

func newSignOutGuard(cooldown time.Duration, now func() time.Time) *signOutGuard {
	if cooldown <= 0 {
		cooldown = DefaultSignOutCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &signOutGuard{now: now, cooldown: cooldown}
}

// TryArm reports whether the caller won the latch. While armed, further
// calls return false until the cooldown elapses.
func (g *signOutGuard) TryArm() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.now()
	if ts.Before(g.armedUntil) {
		return false
	}
	g.armedUntil = ts.Add(g.cooldown)
	return true
}

func (g *signOutGuard) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().Before(g.armedUntil)
}
