// Package leveldb adapts LevelDB (via levigo) to the kv.Store contract, as
// an alternative persistent store underneath a session chain.
package leveldb

import (
	"github.com/jmhodges/levigo"

	"github.com/CPNiemand/eos/kv"
)

// Database is a wrapper around a LevelDB database.
type Database struct {
	db *levigo.DB
	wo *levigo.WriteOptions
	ro *levigo.ReadOptions
}

var _ kv.Store = (*Database)(nil)

func levelDbOpts() *levigo.Options {
	opts := levigo.NewOptions()
	opts.SetCreateIfMissing(true)
	opts.SetCompression(levigo.NoCompression)

	// performance-related configuration
	cache := levigo.NewLRUCache(0)
	opts.SetCache(cache)
	// 4MB is the default
	opts.SetWriteBufferSize(4 * 1024 * 1024)

	return opts
}

// New creates a LevelDB instance at path.
//
// Creates the path if it does not exist.
func New(path string) *Database {
	db, err := levigo.Open(path, levelDbOpts())
	if err != nil {
		panic(err)
	}
	return &Database{db, levigo.NewWriteOptions(), levigo.NewReadOptions()}
}

// Read retrieves a key from the database.
func (d *Database) Read(k kv.Bytes) kv.Entry {
	data, err := d.db.Get(d.ro, k.Data())
	if err != nil {
		panic(err)
	}
	if data == nil {
		return kv.InvalidEntry
	}
	return kv.NewEntry(k, kv.NewBytes(data))
}

func (d *Database) Contains(k kv.Bytes) bool {
	data, err := d.db.Get(d.ro, k.Data())
	if err != nil {
		panic(err)
	}
	return data != nil
}

// Write inserts an entry into the database.
func (d *Database) Write(e kv.Entry) {
	if !e.Valid() {
		return
	}
	err := d.db.Put(d.wo, e.Key().Data(), e.Value().Data())
	if err != nil {
		panic(err)
	}
}

// Erase deletes a key from the database.
func (d *Database) Erase(k kv.Bytes) {
	err := d.db.Delete(d.wo, k.Data())
	if err != nil {
		panic(err)
	}
}

func (d *Database) ReadBatch(keys []kv.Bytes) ([]kv.Entry, kv.KeySet) {
	found := make([]kv.Entry, 0, len(keys))
	missing := make(kv.KeySet)
	for _, k := range keys {
		if e := d.Read(k); e.Valid() {
			found = append(found, e)
		} else {
			missing.Add(k)
		}
	}
	return found, missing
}

// WriteBatch applies all writes in one atomic LevelDB batch.
func (d *Database) WriteBatch(entries []kv.Entry) {
	wb := levigo.NewWriteBatch()
	defer wb.Close()
	for _, e := range entries {
		if e.Valid() {
			wb.Put(e.Key().Data(), e.Value().Data())
		}
	}
	err := d.db.Write(d.wo, wb)
	if err != nil {
		panic(err)
	}
}

// EraseBatch applies all deletions in one atomic LevelDB batch.
func (d *Database) EraseBatch(keys kv.KeySet) {
	wb := levigo.NewWriteBatch()
	defer wb.Close()
	for k := range keys {
		wb.Delete(k.Data())
	}
	err := d.db.Write(d.wo, wb)
	if err != nil {
		panic(err)
	}
}

func (d *Database) WriteTo(dst kv.Writer, keys []kv.Bytes) {
	for _, k := range keys {
		if e := d.Read(k); e.Valid() {
			dst.Write(e)
		}
	}
}

// Close shuts down the database.
func (d *Database) Close() {
	d.wo.Close()
	d.ro.Close()
	d.db.Close()
}

// Compact runs log and sstable compaction.
func (d *Database) Compact() {
	d.db.CompactRange(levigo.Range{})
}

type cursor struct {
	it *levigo.Iterator
	// dead marks a cursor forced past the end (a failed Find)
	dead bool
}

func (c *cursor) Valid() bool {
	return !c.dead && c.it.Valid()
}

func (c *cursor) Key() kv.Bytes {
	return kv.NewBytes(c.it.Key())
}

func (c *cursor) Entry() kv.Entry {
	return kv.NewEntry(kv.NewBytes(c.it.Key()), kv.NewBytes(c.it.Value()))
}

func (c *cursor) Next() {
	c.it.Next()
}

func (c *cursor) Prev() {
	c.it.Prev()
}

func (c *cursor) Close() {
	c.it.Close()
}

func (d *Database) iter() *levigo.Iterator {
	return d.db.NewIterator(d.ro)
}

func (d *Database) Find(k kv.Bytes) kv.Cursor {
	it := d.iter()
	it.Seek(k.Data())
	dead := it.Valid() && !kv.NewBytes(it.Key()).Equal(k)
	return &cursor{it: it, dead: dead}
}

func (d *Database) LowerBound(k kv.Bytes) kv.Cursor {
	it := d.iter()
	it.Seek(k.Data())
	return &cursor{it: it}
}

func (d *Database) UpperBound(k kv.Bytes) kv.Cursor {
	it := d.iter()
	it.Seek(k.Data())
	if it.Valid() && kv.NewBytes(it.Key()).Equal(k) {
		it.Next()
	}
	return &cursor{it: it}
}

func (d *Database) First() kv.Cursor {
	it := d.iter()
	it.SeekToFirst()
	return &cursor{it: it}
}

func (d *Database) Last() kv.Cursor {
	it := d.iter()
	it.SeekToLast()
	return &cursor{it: it}
}
