package authsync_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/tablekeep/go-authsync"
)

type testIdentity struct {
	uid   string
	name  string
	email string
}

func (t testIdentity) ID() string          { return t.uid }
func (t testIdentity) DisplayName() string { return t.name }
func (t testIdentity) Email() string       { return t.email }

type testConfig struct {
	endpoint string
	cooldown time.Duration
	timeout  time.Duration
}

func (c testConfig) GetSessionEndpoint() string        { return c.endpoint }
func (c testConfig) GetSignOutCooldown() time.Duration { return c.cooldown }
func (c testConfig) GetHTTPTimeout() time.Duration     { return c.timeout }

// fakeProvider records expectations like a regular mock but keeps a real
// listener registry; Emit delivers events synchronously so tests observe
// the controller's terminal state as soon as it returns.
type fakeProvider struct {
	mock.Mock

	mu        sync.Mutex
	listeners map[int]authsync.AuthChangeFunc
	nextID    int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{listeners: map[int]authsync.AuthChangeFunc{}}
}

func (p *fakeProvider) OnAuthChanged(fn authsync.AuthChangeFunc) authsync.Unsubscribe {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *fakeProvider) Emit(identity authsync.Identity) {
	p.mu.Lock()
	fns := make([]authsync.AuthChangeFunc, 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(identity)
	}
}

func (p *fakeProvider) listenerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

func (p *fakeProvider) Token(ctx context.Context, identity authsync.Identity) (string, error) {
	args := p.Called(ctx, identity)
	return args.String(0), args.Error(1)
}

func (p *fakeProvider) SignInPassword(ctx context.Context, email, password string) (authsync.Identity, error) {
	args := p.Called(ctx, email, password)
	identity, _ := args.Get(0).(authsync.Identity)
	return identity, args.Error(1)
}

func (p *fakeProvider) SignInFederated(ctx context.Context, credential authsync.FederatedCredential) (authsync.Identity, error) {
	args := p.Called(ctx, credential)
	identity, _ := args.Get(0).(authsync.Identity)
	return identity, args.Error(1)
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password, displayName string) (authsync.Identity, error) {
	args := p.Called(ctx, email, password, displayName)
	identity, _ := args.Get(0).(authsync.Identity)
	return identity, args.Error(1)
}

func (p *fakeProvider) SignOut(ctx context.Context) error {
	args := p.Called(ctx)
	return args.Error(0)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchSession(ctx context.Context, uid, token string) (*authsync.SessionRecord, error) {
	args := m.Called(ctx, uid, token)
	record, _ := args.Get(0).(*authsync.SessionRecord)
	return record, args.Error(1)
}

// funcFetcher lets ordering tests block and release individual fetches.
type funcFetcher struct {
	fetch func(ctx context.Context, uid, token string) (*authsync.SessionRecord, error)
}

func (f funcFetcher) FetchSession(ctx context.Context, uid, token string) (*authsync.SessionRecord, error) {
	return f.fetch(ctx, uid, token)
}
