// Package diskstore is a durable kv.Store: an in-memory ordered state made
// crash-safe by an update journal and a periodic snapshot.
//
// on-disk layout:
// "snapshot": entries at the time of the last Compact, in key order
// "log": journal of update batches since the snapshot
//
// Open loads the snapshot and replays the journal over it. Compact writes
// a fresh snapshot atomically and truncates the journal; Close compacts.
package diskstore

import (
	"bytes"
	"io"

	"github.com/tidwall/btree"

	"github.com/CPNiemand/eos/bin"
	"github.com/CPNiemand/eos/fs"
	"github.com/CPNiemand/eos/kv"
	"github.com/CPNiemand/eos/log"
)

const bTreeDegree = 32

type Store struct {
	fs    fs.Filesys
	log   log.Writer
	state *btree.BTreeG[kv.Entry]
}

var _ kv.Store = (*Store)(nil)

func byKey(a, b kv.Entry) bool {
	return a.Key().Less(b.Key())
}

func newState() *btree.BTreeG[kv.Entry] {
	return btree.NewBTreeGOptions(byKey, btree.Options{
		Degree:  bTreeDegree,
		NoLocks: true,
	})
}

func initLog(filesys fs.Filesys) log.Writer {
	f := filesys.Create("log")
	return log.New(f)
}

// Init creates a fresh, empty store, deleting any existing files.
func Init(filesys fs.Filesys) *Store {
	fs.DeleteAll(filesys)
	writeSnapshot(filesys, newState())
	return &Store{filesys, initLog(filesys), newState()}
}

// Open recovers a store from its snapshot and journal.
func Open(filesys fs.Filesys) *Store {
	state := readSnapshot(filesys)
	for _, rec := range recoverUpdates(filesys) {
		r := bin.NewDecoder(rec)
		for r.RemainingBytes() > 0 {
			applyUpdate(state, decodeUpdate(r))
		}
	}
	// the recovered updates are folded into a fresh snapshot so the journal
	// can restart empty
	writeSnapshot(filesys, state)
	filesys.Truncate("log")
	return &Store{filesys, initLog(filesys), state}
}

func recoverUpdates(filesys fs.Filesys) [][]byte {
	f := filesys.Open("log")
	data, err := io.ReadAll(f)
	if err != nil {
		panic(err)
	}
	f.Close()
	return log.Recover(bytes.NewReader(data))
}

// Compact folds the journal into a fresh snapshot and truncates it.
func (s *Store) Compact() {
	s.log.Close()
	writeSnapshot(s.fs, s.state)
	s.fs.Truncate("log")
	s.log = initLog(s.fs)
}

// Close makes all updates durable in the snapshot and shuts the store
// down.
func (s *Store) Close() {
	s.Compact()
	s.log.Close()
}

func (s *Store) logUpdates(ups []update) {
	var b bytes.Buffer
	w := bin.NewEncoder(&b)
	for _, u := range ups {
		encodeUpdate(w, u)
	}
	s.log.Add(b.Bytes())
}

func probe(k kv.Bytes) kv.Entry {
	return kv.NewEntry(k, kv.InvalidBytes)
}

func (s *Store) Read(k kv.Bytes) kv.Entry {
	e, ok := s.state.Get(probe(k))
	if !ok {
		return kv.InvalidEntry
	}
	return e
}

func (s *Store) Contains(k kv.Bytes) bool {
	_, ok := s.state.Get(probe(k))
	return ok
}

func (s *Store) Write(e kv.Entry) {
	if !e.Valid() {
		return
	}
	s.logUpdates([]update{putUpdate(e)})
	s.state.Set(e)
}

func (s *Store) Erase(k kv.Bytes) {
	s.logUpdates([]update{eraseUpdate(k)})
	s.state.Delete(probe(k))
}

func (s *Store) ReadBatch(keys []kv.Bytes) ([]kv.Entry, kv.KeySet) {
	found := make([]kv.Entry, 0, len(keys))
	missing := make(kv.KeySet)
	for _, k := range keys {
		if e, ok := s.state.Get(probe(k)); ok {
			found = append(found, e)
		} else {
			missing.Add(k)
		}
	}
	return found, missing
}

// WriteBatch journals all entries as one atomic record.
func (s *Store) WriteBatch(entries []kv.Entry) {
	if len(entries) == 0 {
		return
	}
	ups := make([]update, 0, len(entries))
	for _, e := range entries {
		if e.Valid() {
			ups = append(ups, putUpdate(e))
		}
	}
	s.logUpdates(ups)
	for _, e := range entries {
		if e.Valid() {
			s.state.Set(e)
		}
	}
}

// EraseBatch journals all deletions as one atomic record.
func (s *Store) EraseBatch(keys kv.KeySet) {
	if len(keys) == 0 {
		return
	}
	ups := make([]update, 0, len(keys))
	for k := range keys {
		ups = append(ups, eraseUpdate(k))
	}
	s.logUpdates(ups)
	for k := range keys {
		s.state.Delete(probe(k))
	}
}

func (s *Store) WriteTo(dst kv.Writer, keys []kv.Bytes) {
	for _, k := range keys {
		if e, ok := s.state.Get(probe(k)); ok {
			dst.Write(e)
		}
	}
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return s.state.Len()
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
	it := s.state.Iter()
	ok := it.Seek(probe(k)) && it.Item().Key().Equal(k)
	return &cursor{it, ok}
}

func (s *Store) LowerBound(k kv.Bytes) kv.Cursor {
	it := s.state.Iter()
	return &cursor{it, it.Seek(probe(k))}
}

func (s *Store) UpperBound(k kv.Bytes) kv.Cursor {
	it := s.state.Iter()
	ok := it.Seek(probe(k))
	if ok && it.Item().Key().Equal(k) {
		ok = it.Next()
	}
	return &cursor{it, ok}
}

func (s *Store) First() kv.Cursor {
	it := s.state.Iter()
	return &cursor{it, it.First()}
}

func (s *Store) Last() kv.Cursor {
	it := s.state.Iter()
	return &cursor{it, it.Last()}
}
