package directoryclient

import (
	"sync"
	"time"

	"github.com/noah-isme/crm-admin-api/internal/models"
)

// Cache holds fetched user listings keyed by endpoint path. The client never
// reaches into a global cache; whoever builds it decides which Cache it gets.
//
// Version and SetIfVersion let a reader that fetched outside the cache store
// its result only if no Invalidate ran for that key in the meantime.
type Cache interface {
	Get(key string) ([]models.User, bool)
	Version(key string) uint64
	SetIfVersion(key string, users []models.User, version uint64) bool
	Invalidate(key string)
}

type memoryEntry struct {
	users   []models.User
	expires time.Time
}

// MemoryCache is a process-local Cache. A zero ttl keeps entries until they
// are invalidated.
type MemoryCache struct {
	mu       sync.RWMutex
	ttl      time.Duration
	entries  map[string]memoryEntry
	versions map[string]uint64
	now      func() time.Time
}

// NewMemoryCache builds an empty MemoryCache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:      ttl,
		entries:  make(map[string]memoryEntry),
		versions: make(map[string]uint64),
		now:      time.Now,
	}
}

// Get returns a copy of the cached listing.
func (m *MemoryCache) Get(key string) ([]models.User, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !entry.expires.IsZero() && m.now().After(entry.expires) {
		m.mu.Lock()
		// A Set may have replaced the entry since the read lock was released.
		if cur, ok := m.entries[key]; ok && cur.expires.Equal(entry.expires) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return append([]models.User(nil), entry.users...), true
}

// Set stores users unconditionally.
func (m *MemoryCache) Set(key string, users []models.User) {
	entry := m.entry(users)
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
}

// Version returns the invalidation count for key.
func (m *MemoryCache) Version(key string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.versions[key]
}

// SetIfVersion stores users only when key has not been invalidated since
// version was read.
func (m *MemoryCache) SetIfVersion(key string, users []models.User, version uint64) bool {
	entry := m.entry(users)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versions[key] != version {
		return false
	}
	m.entries[key] = entry
	return true
}

func (m *MemoryCache) Invalidate(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.versions[key]++
	m.mu.Unlock()
}

func (m *MemoryCache) entry(users []models.User) memoryEntry {
	entry := memoryEntry{users: append([]models.User(nil), users...)}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	return entry
}
