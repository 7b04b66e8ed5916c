package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/CPNiemand/eos/kv"
)

type generator struct {
	*rand.Rand
	key uint64
}

func newGenerator() *generator {
	r := rand.New(rand.NewSource(0))
	return &generator{r, 0}
}

func (g *generator) NextKey() kv.Bytes {
	k := g.key
	g.key++
	return kv.BytesOf(fmt.Sprintf("%016d", k))
}

func (g *generator) RandomKey() kv.Bytes {
	return kv.BytesOf(fmt.Sprintf("%016d", g.Rand.Uint64()))
}

func (g *generator) Value() kv.Bytes {
	b := make([]byte, 100)
	g.Read(b)
	return kv.NewBytes(b)
}

// Entry generates an entry under a fresh random key.
func (g *generator) Entry() kv.Entry {
	return kv.NewEntry(g.RandomKey(), g.Value())
}

type stats struct {
	Ops   int
	Bytes int
	Start time.Time
	End   *time.Time
}

func newStats() *stats {
	return &stats{Ops: 0, Bytes: 0, Start: time.Now()}
}

// FinishedSingleOp records finishing an operation that processed some
// number of bytes.
func (s *stats) FinishedSingleOp(bytes int) {
	s.Ops++
	s.Bytes += bytes
}

// Done marks the benchmark finished.
func (s *stats) Done() {
	now := time.Now()
	s.End = &now
}

func (s stats) seconds() float64 {
	end := s.End
	if end == nil {
		now := time.Now()
		end = &now
	}
	return end.Sub(s.Start).Seconds()
}

func (s stats) Report() {
	micros := s.seconds() * 1e6
	fmt.Printf("%6.3f micros/op; %6.1f MB/s\n",
		micros/float64(s.Ops),
		float64(s.Bytes)/(1024*1024)/(micros/1e6))
}

// BenchState tracks information for a single benchmark.
type BenchState struct {
	*generator
	*stats
}

// NewBench initializes a BenchState.
func NewBench() BenchState {
	return BenchState{newGenerator(), newStats()}
}
