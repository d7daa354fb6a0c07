package authsync_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablekeep/go-authsync"
)

func TestStoreStartsLoading(t *testing.T) {
	store := authsync.NewStore()

	snap := store.Snapshot()
	assert.True(t, snap.Loading)
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.Identity)
	assert.Nil(t, snap.Session)
}

func TestStoreSetIdentityAndToken(t *testing.T) {
	store := authsync.NewStore()

	store.SetIdentityAndToken(testIdentity{uid: "u1"}, "tok-1")

	snap := store.Snapshot()
	require.True(t, snap.Authenticated)
	assert.Equal(t, "u1", snap.Identity.ID())
	assert.Equal(t, "tok-1", snap.Token)
}

func TestStoreIdentitySwitchDropsSession(t *testing.T) {
	store := authsync.NewStore()

	store.SetIdentityAndToken(testIdentity{uid: "u1"}, "tok-1")
	store.SetSession(&authsync.SessionRecord{OnboardingStatus: authsync.OnboardingCompleted})
	store.SetError(authsync.ErrTransient)
	require.NotNil(t, store.Snapshot().Session)

	// A different user replaces identity, token, session and error together;
	// u2 must never observe u1's session record.
	store.SetIdentityAndToken(testIdentity{uid: "u2"}, "tok-2")

	snap := store.Snapshot()
	assert.Equal(t, "u2", snap.Identity.ID())
	assert.Equal(t, "tok-2", snap.Token)
	assert.Nil(t, snap.Session)
	assert.NoError(t, snap.Err)
}

func TestStoreSameIdentityKeepsSession(t *testing.T) {
	store := authsync.NewStore()

	store.SetIdentityAndToken(testIdentity{uid: "u1"}, "tok-1")
	store.SetSession(&authsync.SessionRecord{OnboardingStatus: authsync.OnboardingCompleted})

	store.SetIdentityAndToken(testIdentity{uid: "u1"}, "tok-refreshed")

	snap := store.Snapshot()
	assert.Equal(t, "tok-refreshed", snap.Token)
	assert.NotNil(t, snap.Session, "re-installing the same identity keeps the session")
}

func TestStoreSessionRequiresIdentity(t *testing.T) {
	store := authsync.NewStore()

	store.SetSession(&authsync.SessionRecord{OnboardingStatus: authsync.OnboardingCompleted})
	assert.Nil(t, store.Snapshot().Session, "a session record is never retained without an identity")
}

func TestStoreSetSessionClearsError(t *testing.T) {
	store := authsync.NewStore()

	store.SetIdentityAndToken(testIdentity{uid: "u1"}, "tok-1")
	store.SetError(authsync.ErrTransient)
	require.Error(t, store.Snapshot().Err)

	store.SetSession(&authsync.SessionRecord{})
	assert.NoError(t, store.Snapshot().Err)
}

func TestStoreClearAll(t *testing.T) {
	store := authsync.NewStore()

	store.SetIdentityAndToken(testIdentity{uid: "u1"}, "tok-1")
	store.SetSession(&authsync.SessionRecord{OnboardingStatus: authsync.OnboardingCompleted})
	store.SetError(authsync.ErrTransient)
	store.SetLoading(true)

	store.ClearAll()

	snap := store.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.Identity)
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.Session)
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.Err)
}

func TestStoreSnapshotClonesSession(t *testing.T) {
	store := authsync.NewStore()

	store.SetIdentityAndToken(testIdentity{uid: "u1"}, "tok-1")
	record := &authsync.SessionRecord{Resy: &authsync.LinkedAccount{Email: "a@resy.example"}}
	store.SetSession(record)

	snap := store.Snapshot()
	snap.Session.Resy.Email = "mutated@resy.example"
	record.Resy.Email = "also-mutated@resy.example"

	assert.Equal(t, "a@resy.example", store.Snapshot().Session.Resy.Email)
}

func TestStoreCombinedLoading(t *testing.T) {
	store := authsync.NewStore()
	store.SetLoading(false)
	assert.False(t, store.Snapshot().CombinedLoading())

	store.SetSigningIn(true)
	assert.True(t, store.Snapshot().CombinedLoading())
	store.SetSigningIn(false)

	store.SetSigningOut(true)
	assert.True(t, store.Snapshot().CombinedLoading())
	store.SetSigningOut(false)

	assert.False(t, store.Snapshot().CombinedLoading())
}

func TestSnapshotIsOnboarded(t *testing.T) {
	snap := authsync.Snapshot{}
	assert.False(t, snap.IsOnboarded())

	snap.Session = &authsync.SessionRecord{OnboardingStatus: authsync.OnboardingNotStarted}
	assert.False(t, snap.IsOnboarded())

	snap.Session = &authsync.SessionRecord{OnboardingStatus: authsync.OnboardingCompleted}
	assert.True(t, snap.IsOnboarded())
}

func TestStoreSubscribe(t *testing.T) {
	store := authsync.NewStore()

	snaps := make(chan authsync.Snapshot, 8)
	unsub := store.Subscribe(func(s authsync.Snapshot) {
		snaps <- s
	})

	store.SetIdentityAndToken(testIdentity{uid: "u1"}, "tok-1")

	select {
	case snap := <-snaps:
		assert.True(t, snap.Authenticated)
		assert.Equal(t, "u1", snap.Identity.ID())
	case <-time.After(time.Second):
		t.Fatal("subscriber was not notified")
	}

	unsub()
	store.ClearAll()

	select {
	case <-snaps:
		t.Fatal("unsubscribed listener was notified")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStoreSubscribersObserveMutationsInOrder(t *testing.T) {
	store := authsync.NewStore()

	snaps := make(chan authsync.Snapshot, 64)
	unsub := store.Subscribe(func(s authsync.Snapshot) {
		snaps <- s
	})
	defer unsub()

	const commits = 20
	for i := 0; i < commits; i++ {
		store.SetIdentityAndToken(testIdentity{uid: "u1"}, fmt.Sprintf("tok-%02d", i))
	}

	for i := 0; i < commits; i++ {
		select {
		case snap := <-snaps:
			assert.Equal(t, fmt.Sprintf("tok-%02d", i), snap.Token, "notifications arrive in commit order")
		case <-time.After(time.Second):
			t.Fatalf("notification %d was not delivered", i)
		}
	}
}

func TestParseOnboardingStatus(t *testing.T) {
	assert.Equal(t, authsync.OnboardingCompleted, authsync.ParseOnboardingStatus("completed"))
	assert.Equal(t, authsync.OnboardingNotStarted, authsync.ParseOnboardingStatus("not_started"))
	assert.Equal(t, authsync.OnboardingNotStarted, authsync.ParseOnboardingStatus("some_future_state"))
	assert.Equal(t, authsync.OnboardingNotStarted, authsync.ParseOnboardingStatus(""))
}
