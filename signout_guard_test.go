package authsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignOutGuardTryArm(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	guard := newSignOutGuard(30*time.Second, func() time.Time { return now })

	assert.True(t, guard.TryArm(), "first caller wins the latch")
	assert.True(t, guard.Armed())

	assert.False(t, guard.TryArm(), "second caller inside the window is suppressed")

	now = now.Add(29 * time.Second)
	assert.False(t, guard.TryArm(), "still inside the window")

	now = now.Add(2 * time.Second)
	assert.False(t, guard.Armed())
	assert.True(t, guard.TryArm(), "guard disarms by time alone")
}

func TestSignOutGuardSuppressedCallsDoNotExtendWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	guard := newSignOutGuard(10*time.Second, func() time.Time { return now })

	assert.True(t, guard.TryArm())

	now = now.Add(9 * time.Second)
	assert.False(t, guard.TryArm())

	// The window is measured from the arming call, not the last attempt.
	now = now.Add(2 * time.Second)
	assert.True(t, guard.TryArm())
}

func TestSignOutGuardDefaults(t *testing.T) {
	guard := newSignOutGuard(0, nil)
	assert.Equal(t, DefaultSignOutCooldown, guard.cooldown)
	assert.NotNil(t, guard.now)
	assert.False(t, guard.Armed())
}
