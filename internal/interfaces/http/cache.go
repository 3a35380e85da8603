package http

import "sync"

// DashboardCache keeps per-user dashboard payloads so repeat loads skip the
// aggregator round trips. Entries are dropped whenever the user's set of
// linked banks changes.
type DashboardCache struct {
	mu      sync.RWMutex
	entries map[string]*DashboardData
}

func NewDashboardCache() *DashboardCache {
	return &DashboardCache{entries: make(map[string]*DashboardData)}
}

func (c *DashboardCache) Get(userID string) (*DashboardData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.entries[userID]
	return data, ok
}

func (c *DashboardCache) Put(userID string, data *DashboardData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = data
}

// Invalidate implements linking.Invalidator.
func (c *DashboardCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}
