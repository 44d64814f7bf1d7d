package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/cubetab/internal/table"
)

type entry struct {
	key      Key
	table    *table.Memory
	inserted time.Time
	expires  time.Time // zero means never
	hits     atomic.Int64
}

func (e *entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// Memory is an in-process QueryCache with per-entry TTL.
type Memory struct {
	defaultTTL time.Duration
	now        func() time.Time

	mu      sync.RWMutex
	entries map[uint64]*entry

	hits   atomic.Int64
	misses atomic.Int64
}

var _ QueryCache = (*Memory)(nil)

// NewMemory returns an empty cache. defaultTTL <= 0 keeps entries until
// removed.
func NewMemory(defaultTTL time.Duration) *Memory {
	return &Memory{
		defaultTTL: defaultTTL,
		now:        time.Now,
		entries:    make(map[uint64]*entry),
	}
}

// Put implements QueryCache. A colliding key replaces the stored entry.
func (m *Memory) Put(key Key, t *table.Memory, ttl time.Duration) {
	if t == nil {
		return
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	now := m.now()
	e := &entry{key: NewKey(key.DataAccessID, key.Params), table: t, inserted: now}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}

	m.mu.Lock()
	m.entries[key.Hash()] = e
	m.mu.Unlock()
}

// Get implements QueryCache.
func (m *Memory) Get(key Key) (*table.Memory, bool) {
	e := m.lookup(key)
	if e == nil {
		m.misses.Add(1)
		return nil, false
	}
	e.hits.Add(1)
	m.hits.Add(1)
	return e.table, true
}

// ElementInfo implements QueryCache.
func (m *Memory) ElementInfo(key Key) (ElementInfo, bool) {
	e := m.lookup(key)
	if e == nil {
		return ElementInfo{}, false
	}
	return e.info(), true
}

func (e *entry) info() ElementInfo {
	return ElementInfo{
		Key:          e.key.String(),
		DataAccessID: e.key.DataAccessID,
		Rows:         e.table.RowCount(),
		Inserted:     e.inserted,
		Expires:      e.expires,
		Hits:         e.hits.Load(),
	}
}

func (m *Memory) lookup(key Key) *entry {
	m.mu.RLock()
	e, ok := m.entries[key.Hash()]
	m.mu.RUnlock()
	if !ok || !e.key.Equal(key) || e.expired(m.now()) {
		return nil
	}
	return e
}

// Keys implements QueryCache. Expired entries are omitted.
func (m *Memory) Keys() []Key {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]Key, 0, len(m.entries))
	for _, e := range m.entries {
		if !e.expired(now) {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Infos returns the description of every live entry.
func (m *Memory) Infos() []ElementInfo {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]ElementInfo, 0, len(m.entries))
	for _, e := range m.entries {
		if !e.expired(now) {
			infos = append(infos, e.info())
		}
	}
	return infos
}

// Remove implements QueryCache.
func (m *Memory) Remove(key Key) bool {
	h := key.Hash()
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[h]
	if !ok || !e.key.Equal(key) {
		return false
	}
	delete(m.entries, h)
	return true
}

// RemoveAll implements QueryCache.
func (m *Memory) RemoveAll(dataAccessID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for h, e := range m.entries {
		if e.key.DataAccessID == dataAccessID {
			delete(m.entries, h)
			n++
		}
	}
	return n
}

// Clear implements QueryCache.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.entries = make(map[uint64]*entry)
	m.mu.Unlock()
}

// Shutdown implements QueryCache.
func (m *Memory) Shutdown() {
	m.Clear()
}

// Sweep removes expired entries and returns how many were dropped.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for h, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, h)
			n++
		}
	}
	return n
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Stats returns the current counters.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	n := len(m.entries)
	m.mu.RUnlock()
	return Stats{Entries: n, Hits: m.hits.Load(), Misses: m.misses.Load()}
}
