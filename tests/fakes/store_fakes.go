package fakes

import (
	"context"
	"sort"
	"sync"

	"github.com/systmms/keyproxy/internal/audit"
	"github.com/systmms/keyproxy/internal/userstore"
	"github.com/systmms/keyproxy/pkg/provider"
)

// FakeUserStore is an in-memory userstore.Store
type FakeUserStore struct {
	mu sync.Mutex

	// Configs maps identities to their stored (encoded) provider configuration
	Configs map[string]provider.Configuration
	// Roles maps identities to roles
	Roles map[string]string
	// GetProviderConfigFunc allows custom behavior for GetProviderConfig
	GetProviderConfigFunc func(ctx context.Context, identity string) (provider.Configuration, error)
	// PutProviderConfigFunc allows custom behavior for PutProviderConfig
	PutProviderConfigFunc func(ctx context.Context, identity string, cfg provider.Configuration) error
	// GetRoleFunc allows custom behavior for GetRole
	GetRoleFunc func(ctx context.Context, identity string) (string, error)

	// Call counters
	GetProviderConfigCalls int
	GetRoleCalls           int
}

// NewFakeUserStore creates an empty user store
func NewFakeUserStore() *FakeUserStore {
	return &FakeUserStore{
		Configs: make(map[string]provider.Configuration),
		Roles:   make(map[string]string),
	}
}

// GetProviderConfig returns a copy of the stored configuration
func (f *FakeUserStore) GetProviderConfig(ctx context.Context, identity string) (provider.Configuration, error) {
	f.mu.Lock()
	f.GetProviderConfigCalls++
	fn := f.GetProviderConfigFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, identity)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.Configs[identity]
	if !ok {
		return provider.Configuration{}, userstore.ErrNotFound
	}
	creds := make(map[string]string, len(cfg.Credentials))
	for k, v := range cfg.Credentials {
		creds[k] = v
	}
	return provider.Configuration{Kind: cfg.Kind, Credentials: creds}, nil
}

// PutProviderConfig stores cfg, giving new identities the default role
func (f *FakeUserStore) PutProviderConfig(ctx context.Context, identity string, cfg provider.Configuration) error {
	if f.PutProviderConfigFunc != nil {
		return f.PutProviderConfigFunc(ctx, identity, cfg)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Configs[identity] = cfg
	if _, ok := f.Roles[identity]; !ok {
		f.Roles[identity] = userstore.RoleUser
	}
	return nil
}

// GetRole returns the identity's role
func (f *FakeUserStore) GetRole(ctx context.Context, identity string) (string, error) {
	f.mu.Lock()
	f.GetRoleCalls++
	fn := f.GetRoleFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, identity)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.Roles[identity]
	if !ok {
		return "", userstore.ErrNotFound
	}
	return role, nil
}

// SetRole sets the identity's role
func (f *FakeUserStore) SetRole(ctx context.Context, identity, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Roles[identity] = role
	return nil
}

// FakeRecorder is an in-memory audit.Journal
type FakeRecorder struct {
	mu sync.Mutex

	// Events holds every recorded event in write order
	Events []audit.Event
	// Err, if set, is returned by every Record call and nothing is stored
	Err error
	// RecordFunc allows custom behavior for Record
	RecordFunc func(ctx context.Context, event audit.Event) error
}

// NewFakeRecorder creates an empty recorder
func NewFakeRecorder() *FakeRecorder {
	return &FakeRecorder{}
}

// Record appends event
func (f *FakeRecorder) Record(ctx context.Context, event audit.Event) error {
	if f.RecordFunc != nil {
		return f.RecordFunc(ctx, event)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Events = append(f.Events, event)
	return nil
}

// List returns identity's events, newest first
func (f *FakeRecorder) List(ctx context.Context, identity string, limit int) ([]audit.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	events := []audit.Event{}
	for _, e := range f.Events {
		if e.Identity == identity {
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(a, b int) bool {
		return events[a].Timestamp.After(events[b].Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// Recorded returns a snapshot of all events
func (f *FakeRecorder) Recorded() []audit.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]audit.Event(nil), f.Events...)
}

// CountFor returns how many events were recorded for identity
func (f *FakeRecorder) CountFor(identity string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.Events {
		if e.Identity == identity {
			n++
		}
	}
	return n
}
