package cache

import (
	"time"

	"github.com/JonMunkholm/cubetab/internal/table"
)

// ElementInfo describes a cached entry.
type ElementInfo struct {
	Key          string    `json:"key"`
	DataAccessID string    `json:"dataAccessId"`
	Rows         int       `json:"rows"`
	Inserted     time.Time `json:"inserted"`
	Expires      time.Time `json:"expires"`
	Hits         int64     `json:"hits"`
}

// QueryCache stores materialised results.
type QueryCache interface {
	// Put stores t under key. ttl <= 0 uses the cache default.
	Put(key Key, t *table.Memory, ttl time.Duration)
	Get(key Key) (*table.Memory, bool)
	ElementInfo(key Key) (ElementInfo, bool)
	Keys() []Key
	Remove(key Key) bool
	// RemoveAll drops every entry of a data access and returns the count.
	RemoveAll(dataAccessID string) int
	Clear()
	Shutdown()
}

// NoCache never stores anything.
type NoCache struct{}

var _ QueryCache = NoCache{}

func (NoCache) Put(Key, *table.Memory, time.Duration) {}
func (NoCache) Get(Key) (*table.Memory, bool)         { return nil, false }
func (NoCache) ElementInfo(Key) (ElementInfo, bool)   { return ElementInfo{}, false }
func (NoCache) Keys() []Key                           { return nil }
func (NoCache) Remove(Key) bool                       { return false }
func (NoCache) RemoveAll(string) int                  { return 0 }
func (NoCache) Clear()                                {}
func (NoCache) Shutdown()                             {}
