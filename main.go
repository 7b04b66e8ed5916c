package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/CPNiemand/eos/fs"
	"github.com/CPNiemand/eos/kv"
	"github.com/CPNiemand/eos/kv/diskstore"
	"github.com/CPNiemand/eos/kv/memstore"
	"github.com/CPNiemand/eos/leveldb"
	"github.com/CPNiemand/eos/session"
)

// Benchmark driver: exercises a session stack (root / block / transaction)
// over a choice of persistent stores.

const dbPath = "benchmark.db"

type store interface {
	kv.Store
	Close()
}

type nopClose struct {
	kv.Store
}

func (nopClose) Close() {}

var storeType = flag.String("store", "mem", "persistent store to use (mem|disk|leveldb)")
var numEntries = flag.Int("entries", 100000, "number of entries to write")
var batchSize = flag.Int("batch", 100, "writes per transaction layer")

func initStore() store {
	switch *storeType {
	case "mem":
		return nopClose{memstore.New()}
	case "disk":
		return diskstore.Init(fs.DirFs(dbPath))
	case "leveldb":
		os.RemoveAll(dbPath)
		return leveldb.New(dbPath)
	}
	panic(fmt.Errorf("unknown store type %s", *storeType))
}

func main() {
	flag.Parse()
	ds := initStore()
	root := session.New(ds, nil)
	block := root.Branch()

	s := NewBench()
	written := 0
	for written < *numEntries {
		txn := block.Branch()
		for i := 0; i < *batchSize && written < *numEntries; i++ {
			e := s.Entry()
			txn.Write(e)
			written++
			s.FinishedSingleOp(e.Key().Len() + e.Value().Len())
		}
		txn.Commit()
	}
	block.Commit()
	root.Commit()
	s.Done()
	fmt.Printf("%s store, fill %d entries\n", *storeType, *numEntries)
	s.Report()

	s = NewBench()
	// the iterator is cyclic, so count steps rather than waiting for end
	it := root.Begin()
	for n := 0; n < *numEntries && !it.AtEnd(); n++ {
		e := it.Entry()
		s.FinishedSingleOp(e.Key().Len() + e.Value().Len())
		it.Next()
	}
	s.Done()
	fmt.Printf("%s store, iterate\n", *storeType)
	s.Report()

	root.Close()
	ds.Close()
}
