package session

import (
	"github.com/tidwall/btree"

	"github.com/CPNiemand/eos/kv"
)

// The iterator cache is a key-ordered memo of logical keys a layer has
// seen, with per-key hints about whether the key's immediate neighbors are
// also memoized and whether the key is tombstoned in this layer's view.
//
// It is strictly a hint: a key absent here may still exist logically, and
// neighbor flags can go stale; the merged iterator refreshes them on use.

type iterState struct {
	// nextInCache/prevInCache report whether the immediately larger/smaller
	// logical key is currently present in this cache.
	nextInCache bool
	prevInCache bool
	// deleted marks a key known to be tombstoned in this layer's view.
	deleted bool
}

type icItem struct {
	key   kv.Bytes
	state *iterState
}

type iterCache struct {
	tree *btree.BTreeG[icItem]
}

func newIterCache() iterCache {
	return iterCache{
		tree: btree.NewBTreeGOptions(
			func(a, b icItem) bool { return a.key.Less(b.key) },
			btree.Options{NoLocks: true},
		),
	}
}

// ensure returns the state for k, inserting a default one if absent.
func (c iterCache) ensure(k kv.Bytes) *iterState {
	if it, ok := c.tree.Get(icItem{key: k}); ok {
		return it.state
	}
	st := &iterState{}
	c.tree.Set(icItem{key: k, state: st})
	return st
}

// get returns the state for k, or nil.
func (c iterCache) get(k kv.Bytes) *iterState {
	if it, ok := c.tree.Get(icItem{key: k}); ok {
		return it.state
	}
	return nil
}

func (c iterCache) clear() {
	c.tree.Clear()
}

func (c iterCache) len() int {
	return c.tree.Len()
}

// next returns the smallest memoized key strictly greater than k.
func (c iterCache) next(k kv.Bytes) (kv.Bytes, *iterState) {
	it := c.tree.Iter()
	defer it.Release()
	ok := it.Seek(icItem{key: k})
	if ok && it.Item().key.Equal(k) {
		ok = it.Next()
	}
	if !ok {
		return kv.InvalidBytes, nil
	}
	item := it.Item()
	return item.key, item.state
}

// prev returns the largest memoized key strictly smaller than k.
func (c iterCache) prev(k kv.Bytes) (kv.Bytes, *iterState) {
	it := c.tree.Iter()
	defer it.Release()
	ok := it.Seek(icItem{key: k})
	if ok {
		ok = it.Prev()
	} else {
		ok = it.Last()
	}
	if !ok {
		return kv.InvalidBytes, nil
	}
	item := it.Item()
	return item.key, item.state
}

// icParams controls updateIterCache.
type icParams struct {
	// primeOnly only guarantees the key has a cache slot; neighbors are not
	// computed. Used by bounds to avoid reentering itself.
	primeOnly bool
	// recalculate forces the neighbor search even when both flags are set.
	recalculate bool
	// markDeleted is the tombstone flag written when overwrite is set.
	markDeleted bool
	overwrite   bool
}

// updateIterCache inserts or refreshes the iterator-cache slot for k,
// locating its logical neighbors across the merged view and cross-linking
// the neighbor flags.
func (s *Session) updateIterCache(k kv.Bytes, p icParams) {
	st := s.icache.ensure(k)

	if p.primeOnly {
		return
	}

	if p.overwrite {
		st.deleted = p.markDeleted
	}

	if !p.recalculate && st.nextInCache && st.prevInCache {
		// Both neighbors already memoized; mutation paths force a
		// recalculation, so trusting the flags here is safe.
		return
	}

	lo, hi := s.bounds(k)

	if lo.Valid() {
		s.icache.ensure(lo).nextInCache = true
		st.prevInCache = true
	}
	if hi.Valid() {
		s.icache.ensure(hi).prevInCache = true
		st.nextInCache = true
	}
}

// bounds finds the greatest logical key strictly less than k and the least
// logical key strictly greater than k, across every layer plus the store.
// The merged iterators run prime-only so they cannot reenter the neighbor
// search.
func (s *Session) bounds(k kv.Bytes) (lo, hi kv.Bytes) {
	lower := s.makeIterator(
		func(ds kv.Ordered) kv.Cursor { return predecessor(ds, k) },
		preferGreater, retreat, true)
	upper := s.makeIterator(
		func(ds kv.Ordered) kv.Cursor { return ds.UpperBound(k) },
		preferLess, advance, true)
	return lower.key, upper.key
}

// predecessor positions a cursor on the greatest key strictly less than k
// in ds, or returns an invalid cursor.
func predecessor(ds kv.Ordered, k kv.Bytes) kv.Cursor {
	c := ds.LowerBound(k)
	if c.Valid() {
		c.Prev()
		return c
	}
	c.Close()
	return ds.Last()
}
