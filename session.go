package uibind

import (
	"sort"
	"sync"
)

// Account is the part of the signed-in account the binder cares about.
// An empty UID means nobody is signed in.
type Account struct {
	UID          string `yaml:"uid,omitempty"`
	IsRegistered bool   `yaml:"isRegistered,omitempty"`
}

// AccountChange carries the account before and after a change.
type AccountChange struct {
	Old Account
	New Account
}

// Session reports account state to the binder.
type Session interface {
	// IsInitialized reports whether the account state is known yet.
	IsInitialized() bool

	// Subscribe registers fn to be called on every account change. The
	// returned function removes the subscription.
	Subscribe(fn func(AccountChange)) (unsubscribe func())
}

// SessionState is an in-memory Session. Subscribers are called
// synchronously from Init and Update, so callers that feed it from
// JavaScript callbacks should do so on the binder's event loop.
type SessionState struct {
	mu          sync.Mutex
	initialized bool
	account     Account
	nextID      int
	subs        map[int]func(AccountChange)
}

// NewSessionState returns an uninitialized session.
func NewSessionState() *SessionState {
	return &SessionState{subs: make(map[int]func(AccountChange))}
}

// IsInitialized implements Session.
func (s *SessionState) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Account returns the current account.
func (s *SessionState) Account() Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

// Subscribe implements Session.
func (s *SessionState) Subscribe(fn func(AccountChange)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Init marks the session initialized with the given account and notifies
// subscribers, even if the account equals the zero Account.
func (s *SessionState) Init(acct Account) {
	s.mu.Lock()
	old := s.account
	s.account = acct
	s.initialized = true
	subs := s.snapshot()
	s.mu.Unlock()
	notify(subs, AccountChange{Old: old, New: acct})
}

// Update replaces the account and notifies subscribers if it changed. An
// update to an uninitialized session initializes it.
func (s *SessionState) Update(acct Account) {
	s.mu.Lock()
	if s.initialized && s.account == acct {
		s.mu.Unlock()
		return
	}
	old := s.account
	s.account = acct
	s.initialized = true
	subs := s.snapshot()
	s.mu.Unlock()
	notify(subs, AccountChange{Old: old, New: acct})
}

// SubscriberCount returns the number of live subscriptions.
func (s *SessionState) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *SessionState) snapshot() []func(AccountChange) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(AccountChange), len(ids))
	for i, id := range ids {
		out[i] = s.subs[id]
	}
	return out
}

func notify(subs []func(AccountChange), change AccountChange) {
	for _, fn := range subs {
		fn(change)
	}
}
