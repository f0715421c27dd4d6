// Package kv holds a small ordered-collection helper: a keyed store that
// supports point lookup plus ordered range scans. Its one user is
// checkpoint.Incarnations (incarnations indexed by ID). Built on google/btree, matching
// the ordered-key-iteration role erigon-lib/kv fills for chain data.
package kv

import "github.com/google/btree"

// Ordered is a keyed collection supporting O(log n) point lookup, insert,
// delete, and ascending range scan from a starting key. K must have a
// total order via Less.
type Ordered[K btree.Ordered, V any] struct {
	tree *btree.BTreeG[entry[K, V]]
}

type entry[K btree.Ordered, V any] struct {
	key K
	val V
}

func lessEntry[K btree.Ordered, V any](a, b entry[K, V]) bool {
	return a.key < b.key
}

func NewOrdered[K btree.Ordered, V any]() *Ordered[K, V] {
	return &Ordered[K, V]{tree: btree.NewG(32, lessEntry[K, V])}
}

func (o *Ordered[K, V]) Upsert(key K, val V) {
	o.tree.ReplaceOrInsert(entry[K, V]{key: key, val: val})
}

func (o *Ordered[K, V]) Delete(key K) (V, bool) {
	e, ok := o.tree.Delete(entry[K, V]{key: key})
	return e.val, ok
}

func (o *Ordered[K, V]) Get(key K) (V, bool) {
	e, ok := o.tree.Get(entry[K, V]{key: key})
	return e.val, ok
}

func (o *Ordered[K, V]) Len() int { return o.tree.Len() }

// AscendFrom walks entries with key >= from in ascending order, stopping
// early if fn returns false.
func (o *Ordered[K, V]) AscendFrom(from K, fn func(key K, val V) bool) {
	o.tree.AscendGreaterOrEqual(entry[K, V]{key: from}, func(e entry[K, V]) bool {
		return fn(e.key, e.val)
	})
}

// Ascend walks every entry in ascending key order.
func (o *Ordered[K, V]) Ascend(fn func(key K, val V) bool) {
	o.tree.Ascend(func(e entry[K, V]) bool {
		return fn(e.key, e.val)
	})
}

// Clear removes every entry, keeping the underlying tree allocation.
func (o *Ordered[K, V]) Clear() {
	o.tree.Clear(false)
}
