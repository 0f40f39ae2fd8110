package core

import (
	"sort"
)

// CountEntry is a key with its occurrence count
type CountEntry[K comparable] struct {
	Key   K
	Count int
}

// Counter counts keys and remembers the order in which they first appeared
type Counter[K comparable] struct {
	order  []K
	counts map[K]int
}

// NewCounter creates an empty counter
func NewCounter[K comparable]() *Counter[K] {
	return &Counter[K]{counts: make(map[K]int)}
}

// Inc adds one occurrence of key
func (c *Counter[K]) Inc(key K) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// Get returns the count for key (0 if absent)
func (c *Counter[K]) Get(key K) int {
	if c == nil {
		return 0
	}
	return c.counts[key]
}

// Len returns the number of distinct keys
func (c *Counter[K]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Entries returns all entries in first-seen order
func (c *Counter[K]) Entries() []CountEntry[K] {
	if c == nil {
		return nil
	}
	entries := make([]CountEntry[K], 0, len(c.order))
	for _, k := range c.order {
		entries = append(entries, CountEntry[K]{Key: k, Count: c.counts[k]})
	}
	return entries
}

// MostCommon returns the n most frequent entries, or all of them when n <= 0.
// Equal counts keep first-seen order.
func (c *Counter[K]) MostCommon(n int) []CountEntry[K] {
	entries := c.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}
