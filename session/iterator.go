package session

import "github.com/CPNiemand/eos/kv"

// Iterator is a key-ordered, bidirectional, cyclic iterator over a
// session's logical merged view: every layer of the chain plus the
// persistent store, with tombstones and overwrites in deeper layers
// shadowing ancestors.
//
// Stepping past the last key wraps to the first, and stepping before the
// first wraps to the last. An iterator is not stable under mutation of its
// session (including mutations triggered by Read, which populate caches).
type Iterator struct {
	s *Session
	// key is the current position; invalid means past-the-end.
	key kv.Bytes
}

// AtEnd reports whether the iterator is past the end.
func (it *Iterator) AtEnd() bool {
	return !it.key.Valid()
}

// Key returns the current key, invalid at end.
func (it *Iterator) Key() kv.Bytes {
	return it.key
}

// Entry re-reads the current key through the session, so the value always
// reflects the live view. At end it returns the invalid Entry.
func (it *Iterator) Entry() kv.Entry {
	if it.AtEnd() {
		return kv.InvalidEntry
	}
	return it.s.Read(it.key)
}

// Equal reports whether two iterators are at the same position: both at
// end, or holding the same key.
func (it *Iterator) Equal(other *Iterator) bool {
	if it.AtEnd() || other.AtEnd() {
		return it.AtEnd() && other.AtEnd()
	}
	return it.key.Equal(other.key)
}

func preferLess(candidate, best kv.Bytes) bool {
	return candidate.Less(best)
}

func preferGreater(candidate, best kv.Bytes) bool {
	return best.Less(candidate)
}

// preferAny adopts any valid candidate; with it, the deepest layer holding
// the key wins, which is what Find wants.
func preferAny(candidate, best kv.Bytes) bool {
	return true
}

func advance(c kv.Cursor) bool {
	c.Next()
	return c.Valid()
}

func retreat(c kv.Cursor) bool {
	c.Prev()
	return c.Valid()
}

// stay refuses to move; used by Find, where a shadowed candidate simply
// means the source has no usable hit.
func stay(c kv.Cursor) bool {
	return false
}

// Begin positions at the smallest logical key, or at end if the view is
// empty.
func (s *Session) Begin() *Iterator {
	return s.makeIterator(func(ds kv.Ordered) kv.Cursor { return ds.First() }, preferLess, advance, false)
}

// End returns the past-the-end iterator.
func (s *Session) End() *Iterator {
	return &Iterator{s: s, key: kv.InvalidBytes}
}

// Find positions at k if it is logically present, else at end.
func (s *Session) Find(k kv.Bytes) *Iterator {
	return s.makeIterator(func(ds kv.Ordered) kv.Cursor { return ds.Find(k) }, preferAny, stay, false)
}

// LowerBound positions at the smallest logical key >= k.
func (s *Session) LowerBound(k kv.Bytes) *Iterator {
	return s.makeIterator(func(ds kv.Ordered) kv.Cursor { return ds.LowerBound(k) }, preferLess, advance, false)
}

// UpperBound positions at the smallest logical key > k.
func (s *Session) UpperBound(k kv.Bytes) *Iterator {
	return s.makeIterator(func(ds kv.Ordered) kv.Cursor { return ds.UpperBound(k) }, preferLess, advance, false)
}

// last positions at the greatest logical key; backward wrap-around target.
func (s *Session) last() *Iterator {
	return s.makeIterator(func(ds kv.Ordered) kv.Cursor { return ds.Last() }, preferGreater, retreat, false)
}

// makeIterator is the workhorse behind every iterator constructor. It seeds
// a cursor in the store and in each layer's cache from the root down to s,
// skips candidates shadow-deleted by descendant layers, picks the best
// surviving key under prefer, then records that key in s's iterator cache
// and binds the iterator to it.
func (s *Session) makeIterator(seed func(kv.Ordered) kv.Cursor, prefer func(candidate, best kv.Bytes) bool, move func(kv.Cursor) bool, primeOnly bool) *Iterator {
	it := &Iterator{s: s, key: kv.InvalidBytes}

	root := s
	for root.parent != nil {
		root = root.parent
	}

	best := kv.InvalidBytes
	if s.store != nil {
		c := seed(s.store)
		best = s.skipShadowed(root, c, move)
		c.Close()
	}

	for cur := root; cur != nil; {
		c := seed(cur.cache)
		k := s.skipShadowed(root, c, move)
		c.Close()
		if k.Valid() && (!best.Valid() || prefer(k, best)) {
			best = k
		}
		if cur == s {
			break
		}
		cur = cur.child
	}

	if best.Valid() {
		s.updateIterCache(best, icParams{primeOnly: primeOnly, recalculate: true})
		if st := s.icache.get(best); st != nil && st.deleted {
			return it
		}
		it.key = best
	}
	return it
}

// shadowDeleted reports whether key is deleted in this session's view of
// the chain: walking from the root's child down to s, the nearest layer
// mentioning the key decides (a tombstone hides it, a later write revives
// it).
func (s *Session) shadowDeleted(root *Session, key kv.Bytes) bool {
	if s == root {
		return false
	}
	deleted := false
	for cur := root.child; cur != nil; cur = cur.child {
		if cur.deleted.Has(key) {
			deleted = true
		} else if cur.updated.Has(key) {
			deleted = false
		}
		if cur == s {
			break
		}
	}
	return deleted
}

// skipShadowed moves c with move until its key is not shadow-deleted,
// returning that key, or invalid once the cursor is exhausted.
func (s *Session) skipShadowed(root *Session, c kv.Cursor, move func(kv.Cursor) bool) kv.Bytes {
	if !c.Valid() {
		return kv.InvalidBytes
	}
	for {
		k := c.Key()
		if !s.shadowDeleted(root, k) {
			return k
		}
		if !move(c) {
			return kv.InvalidBytes
		}
	}
}

// Next moves to the next logical key, skipping tombstones; past the last
// key it wraps around to the first. Stepping an end iterator also lands on
// the first key.
func (it *Iterator) Next() {
	if it.AtEnd() {
		*it = *it.s.Begin()
		return
	}
	cur := it.key
	for {
		st := it.s.icache.get(cur)
		if st == nil || !st.nextInCache {
			// The memo doesn't know the successor yet; force a refresh.
			it.s.updateIterCache(cur, icParams{recalculate: true})
			st = it.s.icache.get(cur)
			if st == nil || !st.nextInCache {
				*it = *it.s.Begin()
				return
			}
		}
		nk, nst := it.s.icache.next(cur)
		if !nk.Valid() {
			*it = *it.s.Begin()
			return
		}
		if !nst.deleted {
			it.key = nk
			return
		}
		cur = nk
	}
}

// Prev moves to the previous logical key, skipping tombstones; before the
// first key it wraps around to the last. Stepping an end iterator backward
// lands on the last key.
func (it *Iterator) Prev() {
	if it.AtEnd() {
		*it = *it.s.last()
		return
	}
	cur := it.key
	for {
		st := it.s.icache.get(cur)
		if st == nil || !st.prevInCache {
			it.s.updateIterCache(cur, icParams{recalculate: true})
			st = it.s.icache.get(cur)
			if st == nil || !st.prevInCache {
				*it = *it.s.last()
				return
			}
		}
		pk, pst := it.s.icache.prev(cur)
		if !pk.Valid() {
			*it = *it.s.last()
			return
		}
		if !pst.deleted {
			it.key = pk
			return
		}
		cur = pk
	}
}
