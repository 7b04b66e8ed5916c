// Package session implements a layered, nested transactional key-value
// session on top of a persistent ordered store.
//
// A session is one layer in a chain. The bottom layer (the root) owns the
// persistent store; each nested layer stacks tentative mutations in memory
// on top of its parent. Mutations can be abandoned (Undo), folded into the
// parent layer (Commit on a nested layer, a squash), or written through to
// the persistent store (Commit on the root). Reads walk the chain upward
// and fall through to the store, caching hits at the reading layer.
//
// Only the leaf of a chain may be mutated; a chain is owned by a single
// goroutine and nothing here is thread-safe.
package session

import (
	"github.com/CPNiemand/eos/kv"
	"github.com/CPNiemand/eos/kv/cache"
	"github.com/CPNiemand/eos/kv/memstore"
)

// Session is one layer of the chain.
//
// A Session that still holds pending mutations must be Closed (or
// committed) before being dropped: Close commits into the parent layer, or
// into the store when the session is a root.
type Session struct {
	// parent is the owning link upward; child is a non-owning link
	// downward, nil when no live child exists.
	parent *Session
	child  *Session

	// store is shared by every layer of one chain; nil once the layer has
	// been undone or detached.
	store kv.Store

	cache   kv.Cache
	updated kv.KeySet
	deleted kv.KeySet
	icache  iterCache
}

// New creates a root session over store. A nil cache means a fresh default
// cache.
func New(store kv.Store, c kv.Cache) *Session {
	if c == nil {
		c = cache.New()
	}
	return &Session{
		store:   store,
		cache:   c,
		updated: make(kv.KeySet),
		deleted: make(kv.KeySet),
		icache:  newIterCache(),
	}
}

// NewEmpty creates a root session with a fresh in-memory store.
func NewEmpty() *Session {
	return New(memstore.New(), nil)
}

// Branch creates a nested session over s. If s already had a live child,
// that child is orphaned: its parent and store links are severed, its data
// left in place.
func (s *Session) Branch() *Session {
	child := &Session{
		parent:  s,
		store:   s.store,
		cache:   s.cache.Fresh(),
		updated: make(kv.KeySet),
		deleted: make(kv.KeySet),
		icache:  newIterCache(),
	}
	if s.child != nil {
		s.child.parent = nil
		s.child.store = nil
	}
	s.child = child
	return child
}

// Attach adopts child as s's nested layer, detaching any current child
// (which is returned, orphaned). The child keeps its own mutations but its
// speculative read cache is dropped, since those reads were taken against a
// different chain.
func (s *Session) Attach(child *Session) *Session {
	prior := s.Detach()
	if child == nil {
		return prior
	}
	// a child adopted away from another chain leaves that chain intact
	if child.parent != nil && child.parent.child == child {
		child.parent.child = nil
	}
	child.parent = s
	child.store = s.store
	s.child = child
	child.primeCache()
	return prior
}

// Detach severs the link to s's child, if any, and returns it. The
// detached child keeps its data but loses its parent and store links.
func (s *Session) Detach() *Session {
	prior := s.child
	if prior != nil {
		prior.parent = nil
		prior.store = nil
	}
	s.child = nil
	return prior
}

// Undo discards every pending mutation of this layer and splices it out of
// the chain: its parent and child are connected to each other and the layer
// becomes inert.
func (s *Session) Undo() {
	if s.parent != nil {
		s.parent.child = s.child
	}
	if s.child != nil {
		s.child.parent = s.parent
	}
	s.parent = nil
	s.child = nil
	s.store = nil
	s.Clear()
}

// Commit writes this layer's pending mutations through to its parent (a
// squash) or, on a root, to the persistent store, then clears the layer.
//
// Committing a layer with nothing pending, or a layer that has been undone
// or detached, is a no-op.
func (s *Session) Commit() {
	if s.parent == nil && s.store == nil {
		// undone or detached; there is no target to write into
		return
	}
	if len(s.updated) == 0 && len(s.deleted) == 0 {
		return
	}

	if s.parent != nil {
		// squash: the parent's own write/erase semantics apply, so the
		// parent records these as its own pending mutations
		for _, k := range s.deleted.Keys() {
			s.parent.Erase(k)
		}
		s.cache.WriteTo(s.parent, s.updated.Keys())
		s.Clear()
		return
	}

	s.store.EraseBatch(s.deleted)
	s.cache.WriteTo(s.store, s.updated.Keys())
	s.Clear()
}

// Close commits any pending mutations. A session going out of scope must be
// Closed; this is the explicit form of commit-on-drop.
func (s *Session) Close() {
	s.Commit()
}

// Clear empties the layer's pending mutations, cache, and iterator cache.
func (s *Session) Clear() {
	s.updated = make(kv.KeySet)
	s.deleted = make(kv.KeySet)
	s.cache.Clear()
	s.icache.clear()
}

// primeCache drops every cache entry this layer did not itself write, and
// clears the iterator cache, then recurses into the child. Reads cached
// against the old ancestor chain may be stale after reparenting; the
// layer's own writes remain valid.
func (s *Session) primeCache() {
	s.icache.clear()

	var stale []kv.Bytes
	c := s.cache.First()
	for ; c.Valid(); c.Next() {
		if !s.updated.Has(c.Key()) {
			stale = append(stale, c.Key())
		}
	}
	c.Close()
	for _, k := range stale {
		s.cache.Erase(k)
	}

	if s.child != nil {
		s.child.primeCache()
	}
}

// Read returns the entry for k in this layer's logical view, or the invalid
// Entry. The search checks this layer, then each ancestor, then the store;
// a tombstone at any layer stops the search. Hits above this layer are
// copied down into this layer's cache.
func (s *Session) Read(k kv.Bytes) kv.Entry {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.deleted.Has(k) {
			return kv.InvalidEntry
		}
		if e := cur.cache.Read(k); e.Valid() {
			if cur != s {
				s.cache.Write(e)
				s.updateIterCache(k, icParams{recalculate: true})
			}
			return e
		}
	}

	if s.store != nil {
		if e := s.store.Read(k); e.Valid() {
			s.cache.Write(e)
			s.updateIterCache(k, icParams{recalculate: true})
			return e
		}
	}
	return kv.InvalidEntry
}

// Contains reports whether k is logically present in this layer's view.
func (s *Session) Contains(k kv.Bytes) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.deleted.Has(k) {
			return false
		}
		if cur.cache.Contains(k) {
			s.updateIterCache(k, icParams{recalculate: true})
			return true
		}
	}
	return s.store != nil && s.store.Contains(k)
}

// Write stores e at this layer, shadowing any ancestor or store value.
func (s *Session) Write(e kv.Entry) {
	if !e.Valid() {
		return
	}
	k := e.Key()
	s.updated.Add(k)
	s.deleted.Remove(k)
	s.cache.Write(e)
	s.updateIterCache(k, icParams{recalculate: true, overwrite: true})
}

// Erase tombstones k at this layer, hiding it from reads and iteration
// regardless of ancestor or store contents.
func (s *Session) Erase(k kv.Bytes) {
	if !k.Valid() {
		return
	}
	s.deleted.Add(k)
	s.updated.Remove(k)
	s.cache.Erase(k)
	s.updateIterCache(k, icParams{recalculate: true, markDeleted: true, overwrite: true})
}

// ReadBatch reads many keys, returning the entries found and the set of
// keys missing from the whole view. Keys not cached anywhere in the chain
// are fetched from the store with one batch read; tombstoned keys never
// reach the store.
func (s *Session) ReadBatch(keys []kv.Bytes) ([]kv.Entry, kv.KeySet) {
	found := make([]kv.Entry, 0, len(keys))
	missing := make(kv.KeySet)
	var storeKeys []kv.Bytes

	for _, k := range keys {
		hit, tombstoned := false, false
		for cur := s; cur != nil; cur = cur.parent {
			if cur.deleted.Has(k) {
				tombstoned = true
				break
			}
			if e := cur.cache.Read(k); e.Valid() {
				if cur != s {
					s.cache.Write(e)
					s.updateIterCache(k, icParams{recalculate: true})
				}
				found = append(found, e)
				hit = true
				break
			}
		}
		switch {
		case hit:
		case tombstoned:
			missing.Add(k)
		default:
			storeKeys = append(storeKeys, k)
		}
	}

	if s.store != nil && len(storeKeys) > 0 {
		entries, still := s.store.ReadBatch(storeKeys)
		if len(entries) > 0 {
			s.cache.WriteBatch(entries)
		}
		found = append(found, entries...)
		for k := range still {
			missing.Add(k)
		}
	} else {
		for _, k := range storeKeys {
			missing.Add(k)
		}
	}
	return found, missing
}

// WriteBatch writes each entry in turn.
func (s *Session) WriteBatch(entries []kv.Entry) {
	for _, e := range entries {
		s.Write(e)
	}
}

// EraseBatch tombstones each key in turn.
func (s *Session) EraseBatch(keys []kv.Bytes) {
	for _, k := range keys {
		s.Erase(k)
	}
}

// WriteTo copies this session's cached view of the given keys into ds.
// Tombstoned keys are skipped; keys cached nowhere in the chain are not
// fetched from the store.
func (s *Session) WriteTo(ds kv.Writer, keys []kv.Bytes) {
	for _, k := range keys {
		for cur := s; cur != nil; cur = cur.parent {
			if cur.deleted.Has(k) {
				break
			}
			if e := cur.cache.Read(k); e.Valid() {
				ds.Write(e)
				break
			}
		}
	}
}

// ReadFrom pulls the given keys from another store into this session.
func (s *Session) ReadFrom(ds kv.Store, keys []kv.Bytes) {
	ds.WriteTo(s, keys)
}

// Store returns the persistent store shared by this session's chain, nil
// once the layer has been undone or detached.
func (s *Session) Store() kv.Store {
	return s.store
}

// Cache returns this layer's cache.
func (s *Session) Cache() kv.Cache {
	return s.cache
}

// Parent returns the layer above, nil on a root.
func (s *Session) Parent() *Session {
	return s.parent
}
