package authsync

import "sync"

// Snapshot is the externally visible auth state. It is read atomically by
// value; the embedded session record is cloned so readers never alias
// store internals.
type Snapshot struct {
	Authenticated bool
	Identity      Identity
	Token         string
	Session       *SessionRecord
	Loading       bool
	SigningIn     bool
	SigningOut    bool
	Err           error
}

// CombinedLoading reports whether any auth operation is in flight.
func (s Snapshot) CombinedLoading() bool {
	return s.Loading || s.SigningIn || s.SigningOut
}

// IsOnboarded reports whether the session record marks onboarding as
// completed.
func (s Snapshot) IsOnboarded() bool {
	return s.Session.IsOnboarded()
}

// Store holds the canonical race-free auth snapshot. All mutation flows
// through the named operations below; consumers only read. A new store
// starts in the loading state, matching the controller's Initializing
// phase.
type Store struct {
	mu     sync.RWMutex
	snap   Snapshot
	subs   map[int]func(Snapshot)
	nextID int

	// Pending notifications, appended under mu so subscribers observe
	// mutations in commit order; drained by a single goroutine.
	queue    []notification
	draining bool
}

type notification struct {
	snap Snapshot
	subs []func(Snapshot)
}

func NewStore() *Store {
	return &Store{
		snap: Snapshot{Loading: true},
		subs: map[int]func(Snapshot){},
	}
}

// Snapshot returns a copy of the current state.
func (st *Store) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	snap := st.snap
	snap.Session = snap.Session.Clone()
	return snap
}

// Subscribe registers fn to be called after every mutation. Notifications
// are delivered asynchronously, in mutation order, and carry the snapshot
// as of the mutation; read Snapshot for current state when reacting.
func (st *Store) Subscribe(fn func(Snapshot)) Unsubscribe {
	st.mu.Lock()
	id := st.nextID
	st.nextID++
	st.subs[id] = fn
	st.mu.Unlock()

	return func() {
		st.mu.Lock()
		delete(st.subs, id)
		st.mu.Unlock()
	}
}

// SetIdentityAndToken installs the current identity and its derived token.
// A different identity atomically replaces the prior identity, token,
// session record and error together; re-installing the same identity keeps
// the previously held session.
func (st *Store) SetIdentityAndToken(identity Identity, token string) {
	if identity == nil {
		return
	}
	st.commit(func(s *Snapshot) {
		if s.Identity == nil || s.Identity.ID() != identity.ID() {
			s.Session = nil
			s.Err = nil
		}
		s.Identity = identity
		s.Token = token
		s.Authenticated = true
	})
}

// SetSession installs a fetched session record and clears any recorded
// error. Ignored when no identity is current: a session record is never
// retained without one.
func (st *Store) SetSession(record *SessionRecord) {
	st.commit(func(s *Snapshot) {
		if s.Identity == nil {
			return
		}
		s.Session = record.Clone()
		s.Err = nil
	})
}

// SetError records a fetch error for passive observation without touching
// identity, token or session.
func (st *Store) SetError(err error) {
	st.commit(func(s *Snapshot) {
		s.Err = err
	})
}

func (st *Store) SetLoading(loading bool) {
	st.commit(func(s *Snapshot) {
		s.Loading = loading
	})
}

func (st *Store) SetSigningIn(v bool) {
	st.commit(func(s *Snapshot) {
		s.SigningIn = v
	})
}

func (st *Store) SetSigningOut(v bool) {
	st.commit(func(s *Snapshot) {
		s.SigningOut = v
	})
}

// ClearAll resets the store to the unauthenticated terminal state. It is
// the only operation that nulls identity, token and session together; no
// other path nulls the session record alone.
func (st *Store) ClearAll() {
	st.commit(func(s *Snapshot) {
		*s = Snapshot{}
	})
}

func (st *Store) commit(mutate func(*Snapshot)) {
	st.mu.Lock()
	mutate(&st.snap)
	if len(st.subs) == 0 {
		st.mu.Unlock()
		return
	}

	snap := st.snap
	snap.Session = snap.Session.Clone()
	subs := make([]func(Snapshot), 0, len(st.subs))
	for _, fn := range st.subs {
		subs = append(subs, fn)
	}
	st.queue = append(st.queue, notification{snap: snap, subs: subs})
	spawn := !st.draining
	st.draining = true
	st.mu.Unlock()

	if spawn {
		go st.drain()
	}
}

// drain delivers queued notifications one at a time. Callbacks run outside
// the lock so subscribers may read Snapshot or mutate the store; those
// mutations enqueue behind the current batch.
func (st *Store) drain() {
	for {
		st.mu.Lock()
		if len(st.queue) == 0 {
			st.draining = false
			st.mu.Unlock()
			return
		}
		next := st.queue[0]
		st.queue = st.queue[1:]
		st.mu.Unlock()

		for _, fn := range next.subs {
			fn(next.snap)
		}
	}
}
