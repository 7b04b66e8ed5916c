// Package cache is the in-memory map a session layer stores its entries in.
//
// The cache is ordered (a btree rather than a hash map) because the merged
// iterator seeds lower_bound/upper_bound cursors directly in each layer's
// cache while computing the next logical key.
package cache

import (
	"github.com/tidwall/btree"

	"github.com/CPNiemand/eos/kv"
)

const bTreeDegree = 32

type Cache struct {
	tree *btree.BTreeG[kv.Entry]
}

var _ kv.Cache = (*Cache)(nil)

func byKey(a, b kv.Entry) bool {
	return a.Key().Less(b.Key())
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		tree: btree.NewBTreeGOptions(byKey, btree.Options{
			Degree:  bTreeDegree,
			NoLocks: true,
		}),
	}
}

// Fresh returns a new empty cache for a nested layer.
func (c *Cache) Fresh() kv.Cache {
	return New()
}

func probe(k kv.Bytes) kv.Entry {
	return kv.NewEntry(k, kv.InvalidBytes)
}

func (c *Cache) Read(k kv.Bytes) kv.Entry {
	e, ok := c.tree.Get(probe(k))
	if !ok {
		return kv.InvalidEntry
	}
	return e
}

func (c *Cache) Contains(k kv.Bytes) bool {
	_, ok := c.tree.Get(probe(k))
	return ok
}

func (c *Cache) Write(e kv.Entry) {
	if !e.Valid() {
		return
	}
	c.tree.Set(e)
}

func (c *Cache) Erase(k kv.Bytes) {
	c.tree.Delete(probe(k))
}

func (c *Cache) WriteBatch(entries []kv.Entry) {
	for _, e := range entries {
		c.Write(e)
	}
}

func (c *Cache) EraseBatch(keys kv.KeySet) {
	for k := range keys {
		c.Erase(k)
	}
}

func (c *Cache) WriteTo(dst kv.Writer, keys []kv.Bytes) {
	for _, k := range keys {
		if e, ok := c.tree.Get(probe(k)); ok {
			dst.Write(e)
		}
	}
}

func (c *Cache) Clear() {
	c.tree.Clear()
}

func (c *Cache) Len() int {
	return c.tree.Len()
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

func (c *Cache) Find(k kv.Bytes) kv.Cursor {
	it := c.tree.Iter()
	ok := it.Seek(probe(k)) && it.Item().Key().Equal(k)
	return &cursor{it, ok}
}

func (c *Cache) LowerBound(k kv.Bytes) kv.Cursor {
	it := c.tree.Iter()
	return &cursor{it, it.Seek(probe(k))}
}

func (c *Cache) UpperBound(k kv.Bytes) kv.Cursor {
	it := c.tree.Iter()
	ok := it.Seek(probe(k))
	if ok && it.Item().Key().Equal(k) {
		ok = it.Next()
	}
	return &cursor{it, ok}
}

func (c *Cache) First() kv.Cursor {
	it := c.tree.Iter()
	return &cursor{it, it.First()}
}

func (c *Cache) Last() kv.Cursor {
	it := c.tree.Iter()
	return &cursor{it, it.Last()}
}
