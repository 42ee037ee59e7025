// Package cache holds the in-process caches of the ledger API.
package cache

import (
	"log/slog"
	"time"

	"sysfinance/internal/core"
)

// Cache is the lookup surface shared by the in-process caches.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Size() int
}

var _ Cache[periodKey, core.DashboardSummary] = (*LRU[periodKey, core.DashboardSummary])(nil)

type periodKey struct {
	userID      int64
	year, month int
}

// SummaryCache memoizes monthly dashboard summaries per (user, year, month).
// A nil *SummaryCache is valid and caches nothing.
type SummaryCache struct {
	lru *LRU[periodKey, core.DashboardSummary]
}

func NewSummaryCache(maxSize int, ttl time.Duration) *SummaryCache {
	return &SummaryCache{lru: NewLRU[periodKey, core.DashboardSummary](maxSize, ttl)}
}

func (c *SummaryCache) Get(userID int64, year, month int) (core.DashboardSummary, bool) {
	if c == nil {
		return core.DashboardSummary{}, false
	}
	return c.lru.Get(periodKey{userID, year, month})
}

func (c *SummaryCache) Set(userID int64, s core.DashboardSummary) {
	if c == nil {
		return
	}
	c.lru.Set(periodKey{userID, s.Year, s.Month}, s)
}

// Invalidate drops the summary of one month.
func (c *SummaryCache) Invalidate(userID int64, year, month int) {
	if c == nil {
		return
	}
	c.lru.Delete(periodKey{userID, year, month})
}

// InvalidateUser drops every cached month of a user. Used when a change
// (category rename, template edit) can affect several months at once.
func (c *SummaryCache) InvalidateUser(userID int64) {
	if c == nil {
		return
	}
	c.lru.DeleteFunc(func(k periodKey) bool { return k.userID == userID })
}

func (c *SummaryCache) CleanExpired() int {
	if c == nil {
		return 0
	}
	return c.lru.CleanExpired()
}

func (c *SummaryCache) Size() int {
	if c == nil {
		return 0
	}
	return c.lru.Size()
}

func (c *SummaryCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return c.lru.Stats()
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := 0
			for _, c := range m.caches {
				total += c.CleanExpired()
			}
			if total > 0 {
				slog.Debug("Expired cache entries removed", "component", "cache", "removed", total)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine. It must be called at most once,
// after StartCleanup.
func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}
