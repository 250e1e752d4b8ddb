package cache

import (
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/uscensus/internal/table"
)

// Memo remembers results per argument tuple for the lifetime of its owner
type Memo struct {
	cache *gocache.Cache
}

// NewMemo creates an empty memo table whose entries never expire
func NewMemo() *Memo {
	return &Memo{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// MemoKey joins an operation name and its arguments into a memo key
func MemoKey(op string, args ...string) string {
	return op + "(" + strings.Join(args, "\x1f") + ")"
}

// Get retrieves a remembered table
func (m *Memo) Get(key string) (*table.Table, bool) {
	if val, found := m.cache.Get(key); found {
		return val.(*table.Table), true
	}
	return nil, false
}

// Set remembers a table for the key
func (m *Memo) Set(key string, t *table.Table) {
	m.cache.Set(key, t, gocache.NoExpiration)
}

// Clear forgets every entry
func (m *Memo) Clear() {
	m.cache.Flush()
}
