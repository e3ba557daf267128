package batch

import "sort"

// Collection maps unit keys to successful payloads. Inserting an existing key
// overwrites the previous value. It is not safe for concurrent use; only the
// goroutine driving a pass mutates it.
type Collection[V any] struct {
	items map[string]V
}

// NewCollection returns an empty collection.
func NewCollection[V any]() *Collection[V] {
	return &Collection[V]{items: make(map[string]V)}
}

// Put stores v under key, replacing any previous value.
func (c *Collection[V]) Put(key string, v V) {
	c.items[key] = v
}

// Get returns the value stored under key.
func (c *Collection[V]) Get(key string) (V, bool) {
	v, ok := c.items[key]
	return v, ok
}

// Len returns the number of stored keys.
func (c *Collection[V]) Len() int {
	return len(c.items)
}

// Keys returns the stored keys in ascending order.
func (c *Collection[V]) Keys() []string {
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Each calls fn for every entry in key order.
func (c *Collection[V]) Each(fn func(key string, v V)) {
	for _, k := range c.Keys() {
		fn(k, c.items[k])
	}
}

// Merge inserts every successful outcome and returns how many there were.
// Failed outcomes are ignored and leave no trace in the collection.
func (c *Collection[V]) Merge(outcomes []Outcome[V]) int {
	merged := 0
	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		c.items[o.Key] = o.Value
		merged++
	}
	return merged
}
