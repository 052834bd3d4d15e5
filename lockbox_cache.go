package lockbox

import "sync"

type cacheKey struct {
	service     string
	account     string
	accessGroup string
}

func keyOf(q Query) cacheKey {
	return cacheKey{service: q.Service, account: q.Account, accessGroup: q.AccessGroup}
}

type cacheEntry struct {
	data    []byte
	present bool
}

// itemCache remembers the last observed state of each item identity.
type itemCache struct {
	mu    sync.RWMutex
	items map[cacheKey]cacheEntry
}

func newItemCache() *itemCache {
	return &itemCache{items: make(map[cacheKey]cacheEntry)}
}

func (c *itemCache) get(q Query) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.items[keyOf(q)]
	return entry, ok
}

func (c *itemCache) put(q Query, entry cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[keyOf(q)] = entry
}

func (c *itemCache) forget(q Query) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, keyOf(q))
}
