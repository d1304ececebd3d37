package lock

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrNotAcquired = errors.New("resource lock not acquired")

// Locker guards the check-then-act sequence of the scheduling service. Keys
// identify (resource, day) pairs; WithLock holds every key for the duration
// of fn. Implementations must treat the key set atomically: either all keys
// are held or fn does not run.
type Locker interface {
	WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

// ResourceDayKey builds the canonical lock key for a resource on a day.
func ResourceDayKey(resourceID string, day time.Time) string {
	return "sched:" + resourceID + ":" + day.UTC().Format("2006-01-02")
}

// NormalizeKeys sorts and deduplicates lock keys so every caller acquires in
// the same total order. This is what keeps a doctor+room pair deadlock-free
// when two requests name them in opposite orders.
func NormalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// KeyedMutex is an in-process Locker: one mutex per key, created on demand
// and dropped when the last holder releases. Suitable for single-node
// deployments and tests.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyEntry
}

type keyEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyEntry)}
}

func (k *KeyedMutex) WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	keys = NormalizeKeys(keys)

	held := make([]*keyEntry, 0, len(keys))
	for _, key := range keys {
		e := k.acquire(key)
		held = append(held, e)
	}
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			k.release(keys[i], held[i])
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (k *KeyedMutex) acquire(key string) *keyEntry {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return e
}

func (k *KeyedMutex) release(key string, e *keyEntry) {
	e.mu.Unlock()

	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}
