// Package cache provides the query result cache: an LRU with per-entry TTL
// whose entries carry group names for bulk invalidation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Cache stores query results.
type Cache interface {
	// Get retrieves a live entry.
	Get(key string) (any, bool)
	// Set stores a value. A zero ttl uses the cache default, a negative one
	// never expires.
	Set(key string, value any, ttl time.Duration, groups ...string)
	// Invalidate removes a single key.
	Invalidate(key string)
	// InvalidateGroup removes every entry with a group matching pattern.
	// Patterns are ":"-separated segments where "*" matches one segment, and
	// a bare "*" matches everything.
	InvalidateGroup(pattern string)
	// Clear removes all entries and resets statistics.
	Clear()
	Stats() Stats
}

// Stats describes cache effectiveness.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	MaxSize   int
	// HitRate is a percentage.
	HitRate float64
}

// LRU implements Cache with least-recently-used eviction.
type LRU struct {
	mu         sync.Mutex
	data       map[string]*node
	maxSize    int
	defaultTTL time.Duration
	head       *node
	tail       *node
	stats      Stats
	now        func() time.Time
}

// node is an element of the recency list, most recent at head.
type node struct {
	key       string
	value     any
	groups    []string
	expiresAt time.Time
	prev      *node
	next      *node
}

// NewLRU creates a cache holding at most maxSize entries.
func NewLRU(maxSize int, defaultTTL time.Duration) *LRU {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRU{
		data:       make(map[string]*node),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		stats:      Stats{MaxSize: maxSize},
		now:        time.Now,
	}
}

func (c *LRU) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.data[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if !n.expiresAt.IsZero() && c.now().After(n.expiresAt) {
		c.remove(n)
		c.stats.Misses++
		return nil, false
	}

	c.unlink(n)
	c.pushFront(n)
	c.stats.Hits++
	return n.value, true
}

func (c *LRU) Set(key string, value any, ttl time.Duration, groups ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == 0 {
		ttl = c.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if n, ok := c.data[key]; ok {
		n.value, n.groups, n.expiresAt = value, groups, expiresAt
		c.unlink(n)
		c.pushFront(n)
		return
	}

	if len(c.data) >= c.maxSize && c.tail != nil {
		c.remove(c.tail)
		c.stats.Evictions++
	}
	n := &node{key: key, value: value, groups: groups, expiresAt: expiresAt}
	c.pushFront(n)
	c.data[key] = n
}

func (c *LRU) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.data[key]; ok {
		c.remove(n)
	}
}

func (c *LRU) InvalidateGroup(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, n := range c.data {
		for _, g := range n.groups {
			if matchesPattern(g, pattern) {
				c.remove(n)
				break
			}
		}
	}
}

func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]*node)
	c.head, c.tail = nil, nil
	c.stats = Stats{MaxSize: c.maxSize}
}

func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = len(c.data)
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	}
	return s
}

func (c *LRU) pushFront(n *node) {
	n.prev, n.next = nil, c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *LRU) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (c *LRU) remove(n *node) {
	c.unlink(n)
	delete(c.data, n.key)
}

func matchesPattern(group, pattern string) bool {
	if pattern == "*" {
		return true
	}
	parts := strings.Split(pattern, ":")
	groupParts := strings.Split(group, ":")
	if len(parts) != len(groupParts) {
		return false
	}
	for i, part := range parts {
		if part != "*" && part != groupParts[i] {
			return false
		}
	}
	return true
}

// EntityGroup is the group every cached result of an entity belongs to.
func EntityGroup(entity string) string {
	return "entity:" + entity
}

// Key derives a cache key from a statement and its arguments.
func Key(sql string, args []any) string {
	h := sha256.New()
	h.Write([]byte(sql))
	for _, a := range args {
		fmt.Fprintf(h, "\x00%T:%v", a, a)
	}
	return "query:" + hex.EncodeToString(h.Sum(nil))[:32]
}
