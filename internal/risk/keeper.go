package risk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// GlobalScopeKey is the keeper key for the global state.
const GlobalScopeKey = "GLOBAL"

// ScopeKey maps an account id to its keeper key. An empty account falls back
// to the global state.
func ScopeKey(accountID string) string {
	if accountID == "" {
		return GlobalScopeKey
	}
	return "account:" + accountID
}

// ErrStateNotFound is returned by StateStore implementations when no
// persisted state exists for a key.
var ErrStateNotFound = errors.New("risk state not found")

// StateStore persists risk states keyed by scope key.
type StateStore interface {
	LoadState(ctx context.Context, key string) (*RiskState, error)
	SaveState(ctx context.Context, key string, state *RiskState) error
}

type stateEntry struct {
	mu    sync.Mutex
	state *RiskState
}

// Keeper owns one RiskState and one lock per scope key. Do provides the
// exclusive "evaluate - decide - apply consequence" critical section the
// check-then-act pipeline needs; nothing else may mutate a state. States are
// lazily loaded from the store (or created fresh) on first use.
type Keeper struct {
	mu       sync.RWMutex
	entries  map[string]*stateEntry
	lastSeen map[string]time.Time
	store    StateStore // nil = in-memory only
}

// NewKeeper creates a keeper backed by store. A nil store keeps all states in
// memory, which is what the tests use.
func NewKeeper(store StateStore) *Keeper {
	return &Keeper{
		entries:  make(map[string]*stateEntry),
		lastSeen: make(map[string]time.Time),
		store:    store,
	}
}

// entry returns the entry for key, creating and loading it if needed. Only
// the map access is guarded here; the per-key lock is taken by the caller.
func (k *Keeper) entry(ctx context.Context, key string) (*stateEntry, error) {
	k.mu.RLock()
	e, ok := k.entries[key]
	k.mu.RUnlock()
	if ok {
		return e, nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	// Double-check
	if e, ok := k.entries[key]; ok {
		return e, nil
	}

	state, err := k.loadOrCreate(ctx, key)
	if err != nil {
		return nil, err
	}
	e = &stateEntry{state: state}
	k.entries[key] = e
	k.lastSeen[key] = time.Now()
	return e, nil
}

func (k *Keeper) loadOrCreate(ctx context.Context, key string) (*RiskState, error) {
	if k.store != nil {
		state, err := k.store.LoadState(ctx, key)
		switch {
		case err == nil:
			if state.Tracker == nil {
				state.Tracker = NewOrderFrequencyTracker()
			}
			return state, nil
		case errors.Is(err, ErrStateNotFound):
			// fall through to a fresh state
		default:
			return nil, fmt.Errorf("load risk state %q: %w", key, err)
		}
	}

	if key == GlobalScopeKey {
		s := DefaultState()
		s.ID = key
		return s, nil
	}
	s := NewAccountState(trimAccountKey(key))
	s.ID = key
	return s, nil
}

func trimAccountKey(key string) string {
	const prefix = "account:"
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return key
}

// Do runs fn while holding the exclusive lock for key, then persists the
// state if a store is configured. fn may mutate the state freely.
func (k *Keeper) Do(ctx context.Context, key string, fn func(*RiskState) error) error {
	e, err := k.entry(ctx, key)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	k.touch(key)
	if err := fn(e.state); err != nil {
		return err
	}
	if k.store != nil {
		if err := k.store.SaveState(ctx, key, e.state); err != nil {
			return fmt.Errorf("save risk state %q: %w", key, err)
		}
	}
	return nil
}

func (k *Keeper) touch(key string) {
	k.mu.Lock()
	k.lastSeen[key] = time.Now()
	k.mu.Unlock()
}

// Peek returns a snapshot of the state for key without creating one. The
// second result is false when the key is unknown.
func (k *Keeper) Peek(key string) (RiskState, bool) {
	k.mu.RLock()
	e, ok := k.entries[key]
	k.mu.RUnlock()
	if !ok {
		return RiskState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Snapshot(), true
}

// Snapshot returns copies of every tracked state, for the admin surface.
func (k *Keeper) Snapshot() map[string]RiskState {
	k.mu.RLock()
	keys := make([]string, 0, len(k.entries))
	for key := range k.entries {
		keys = append(keys, key)
	}
	k.mu.RUnlock()

	out := make(map[string]RiskState, len(keys))
	for _, key := range keys {
		if s, ok := k.Peek(key); ok {
			out[key] = s
		}
	}
	return out
}

// KeyCount returns the number of tracked scope keys.
func (k *Keeper) KeyCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.entries)
}

// ResetDailyAll clears daily counters across all keys. Wired to the
// midnight rollover job.
func (k *Keeper) ResetDailyAll(ctx context.Context) error {
	k.mu.RLock()
	keys := make([]string, 0, len(k.entries))
	for key := range k.entries {
		keys = append(keys, key)
	}
	k.mu.RUnlock()

	for _, key := range keys {
		if err := k.Do(ctx, key, func(s *RiskState) error {
			s.ResetDaily()
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// CleanupIdle drops states not touched within ttl. States with the kill
// switch engaged are kept so the reason survives until someone clears it.
func (k *Keeper) CleanupIdle(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-ttl)

	k.mu.RLock()
	stale := make([]string, 0)
	for key, seen := range k.lastSeen {
		if seen.Before(cutoff) {
			stale = append(stale, key)
		}
	}
	k.mu.RUnlock()

	for _, key := range stale {
		if s, ok := k.Peek(key); ok && s.KillSwitchStatus != KillSwitchOff {
			continue
		}
		k.mu.Lock()
		// Re-check under the write lock; the key may have been touched.
		if seen, ok := k.lastSeen[key]; ok && seen.Before(cutoff) {
			delete(k.entries, key)
			delete(k.lastSeen, key)
		}
		k.mu.Unlock()
	}
}
