package kv

import "sort"

// Contracts between the session and its two collaborator stores: a
// persistent ordered store shared by a whole session chain, and the
// per-layer in-memory cache. The session only ever talks to these
// interfaces; concrete implementations live in kv/memstore, kv/cache,
// kv/diskstore, and leveldb.

// Cursor is a position within an ordered key space. A cursor starts out
// either valid (on an item) or invalid (past the end); moving off either
// edge makes it invalid and it stays invalid.
//
// Close must be called once the cursor is no longer needed; for in-memory
// implementations it is a no-op.
type Cursor interface {
	Valid() bool
	Key() Bytes
	Entry() Entry
	Next()
	Prev()
	Close()
}

// Ordered gives positioned access to a key-ordered data source.
//
// Find positions on exactly k or returns an invalid cursor. LowerBound
// positions on the smallest key >= k, UpperBound on the smallest key > k.
type Ordered interface {
	Find(k Bytes) Cursor
	LowerBound(k Bytes) Cursor
	UpperBound(k Bytes) Cursor
	First() Cursor
	Last() Cursor
}

// Reader is the point-lookup half of a store.
type Reader interface {
	// Read returns the entry for k, or the invalid Entry.
	Read(k Bytes) Entry
	Contains(k Bytes) bool
}

// Writer is the mutation half of a store.
type Writer interface {
	Write(e Entry)
	Erase(k Bytes)
}

// Store is the persistent ordered store underneath a session chain.
type Store interface {
	Reader
	Writer
	Ordered

	// ReadBatch returns the entries found plus the set of keys missing.
	ReadBatch(keys []Bytes) ([]Entry, KeySet)
	WriteBatch(entries []Entry)
	EraseBatch(keys KeySet)

	// WriteTo copies the given keys' entries into another store; keys the
	// receiver does not hold are skipped.
	WriteTo(dst Writer, keys []Bytes)
}

// Cache is the in-memory store owned by a single session layer. It is
// ordered so the merged iterator can seed cursors in it directly.
type Cache interface {
	Reader
	Writer
	Ordered

	WriteBatch(entries []Entry)
	EraseBatch(keys KeySet)
	WriteTo(dst Writer, keys []Bytes)

	Clear()
	Len() int

	// Fresh returns a new empty cache sharing the receiver's backing
	// resources, for a nested layer.
	Fresh() Cache
}

// KeySet is an unordered set of keys.
type KeySet map[Bytes]struct{}

// NewKeySet builds a set from the given keys.
func NewKeySet(keys ...Bytes) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

func (s KeySet) Add(k Bytes) {
	s[k] = struct{}{}
}

func (s KeySet) Remove(k Bytes) {
	delete(s, k)
}

func (s KeySet) Has(k Bytes) bool {
	_, ok := s[k]
	return ok
}

func (s KeySet) Len() int {
	return len(s)
}

// Keys returns the members in sorted order.
func (s KeySet) Keys() []Bytes {
	keys := make([]Bytes, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
