// Package memstore is an in-memory ordered kv.Store, used as the default
// backing store for empty session roots and as the reference store in tests
// and benchmarks.
package memstore

import (
	"github.com/tidwall/btree"

	"github.com/CPNiemand/eos/kv"
)

// The approximate number of items per B-tree node. We use tidwall/btree
// because it provides the step iterator (Seek/Next/Prev) the cursors need.
const bTreeDegree = 32

type Store struct {
	tree *btree.BTreeG[kv.Entry]
}

var _ kv.Store = (*Store)(nil)

func byKey(a, b kv.Entry) bool {
	return a.Key().Less(b.Key())
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tree: btree.NewBTreeGOptions(byKey, btree.Options{
			Degree:  bTreeDegree,
			NoLocks: true,
		}),
	}
}

// probe is a key-only entry used for tree lookups.
func probe(k kv.Bytes) kv.Entry {
	return kv.NewEntry(k, kv.InvalidBytes)
}

func (s *Store) Read(k kv.Bytes) kv.Entry {
	e, ok := s.tree.Get(probe(k))
	if !ok {
		return kv.InvalidEntry
	}
	return e
}

func (s *Store) Contains(k kv.Bytes) bool {
	_, ok := s.tree.Get(probe(k))
	return ok
}

func (s *Store) Write(e kv.Entry) {
	if !e.Valid() {
		return
	}
	s.tree.Set(e)
}

func (s *Store) Erase(k kv.Bytes) {
	s.tree.Delete(probe(k))
}

func (s *Store) ReadBatch(keys []kv.Bytes) ([]kv.Entry, kv.KeySet) {
	found := make([]kv.Entry, 0, len(keys))
	missing := make(kv.KeySet)
	for _, k := range keys {
		if e, ok := s.tree.Get(probe(k)); ok {
			found = append(found, e)
		} else {
			missing.Add(k)
		}
	}
	return found, missing
}

func (s *Store) WriteBatch(entries []kv.Entry) {
	for _, e := range entries {
		s.Write(e)
	}
}

func (s *Store) EraseBatch(keys kv.KeySet) {
	for k := range keys {
		s.Erase(k)
	}
}

func (s *Store) WriteTo(dst kv.Writer, keys []kv.Bytes) {
	for _, k := range keys {
		if e, ok := s.tree.Get(probe(k)); ok {
			dst.Write(e)
		}
	}
}

// Len returns the number of entries stored.
func (s *Store) Len() int {
	return s.tree.Len()
}

type cursor struct {
	it btree.IterG[kv.Entry]
	ok bool
}

func (c *cursor) Valid() bool {
	return c.ok
}

func (c *cursor) Key() kv.Bytes {
	return c.it.Item().Key()
}

func (c *cursor) Entry() kv.Entry {
	return c.it.Item()
}

func (c *cursor) Next() {
	c.ok = c.it.Next()
}

func (c *cursor) Prev() {
	c.ok = c.it.Prev()
}

func (c *cursor) Close() {
	c.it.Release()
}

func (s *Store) Find(k kv.Bytes) kv.Cursor {
	it := s.tree.Iter()
	ok := it.Seek(probe(k)) && it.Item().Key().Equal(k)
	return &cursor{it, ok}
}

func (s *Store) LowerBound(k kv.Bytes) kv.Cursor {
	it := s.tree.Iter()
	return &cursor{it, it.Seek(probe(k))}
}

func (s *Store) UpperBound(k kv.Bytes) kv.Cursor {
	it := s.tree.Iter()
	ok := it.Seek(probe(k))
	if ok && it.Item().Key().Equal(k) {
		ok = it.Next()
	}
	return &cursor{it, ok}
}

func (s *Store) First() kv.Cursor {
	it := s.tree.Iter()
	return &cursor{it, it.First()}
}

func (s *Store) Last() kv.Cursor {
	it := s.tree.Iter()
	return &cursor{it, it.Last()}
}
