package diskstore

// Serialization of updates and snapshots.
//
// update: kind uint8 (1 = put, 2 = erase); key Array; value Array (put only)
// snapshot: a sequence of put updates in key order

import (
	"bytes"

	"github.com/CPNiemand/eos/bin"
	"github.com/CPNiemand/eos/fs"
	"github.com/CPNiemand/eos/kv"
	"github.com/tidwall/btree"
)

type updateKind uint8

const (
	putKind   updateKind = 1
	eraseKind updateKind = 2
)

type update struct {
	kind  updateKind
	key   kv.Bytes
	value kv.Bytes
}

func putUpdate(e kv.Entry) update {
	return update{putKind, e.Key(), e.Value()}
}

func eraseUpdate(k kv.Bytes) update {
	return update{eraseKind, k, kv.InvalidBytes}
}

func encodeUpdate(w *bin.Encoder, u update) {
	w.Uint8(uint8(u.kind))
	w.Array(u.key.Data())
	if u.kind == putKind {
		w.Array(u.value.Data())
	}
}

func decodeUpdate(r *bin.Decoder) update {
	kind := updateKind(r.Uint8())
	key := kv.NewBytes(r.Array())
	if kind == eraseKind {
		return update{kind, key, kv.InvalidBytes}
	}
	if kind != putKind {
		panic("corrupt update record")
	}
	return update{kind, key, kv.NewBytes(r.Array())}
}

func applyUpdate(state *btree.BTreeG[kv.Entry], u update) {
	if u.kind == putKind {
		state.Set(kv.NewEntry(u.key, u.value))
	} else {
		state.Delete(probe(u.key))
	}
}

func writeSnapshot(filesys fs.Filesys, state *btree.BTreeG[kv.Entry]) {
	var b bytes.Buffer
	w := bin.NewEncoder(&b)
	state.Scan(func(e kv.Entry) bool {
		encodeUpdate(w, putUpdate(e))
		return true
	})
	filesys.AtomicCreateWith("snapshot", b.Bytes())
}

func readSnapshot(filesys fs.Filesys) *btree.BTreeG[kv.Entry] {
	state := newState()
	f := filesys.Open("snapshot")
	data := f.ReadAt(0, f.Size())
	f.Close()
	r := bin.NewDecoder(data)
	for r.RemainingBytes() > 0 {
		u := decodeUpdate(r)
		if u.kind != putKind {
			panic("snapshot should only contain puts")
		}
		state.Set(kv.NewEntry(u.key, u.value))
	}
	return state
}
