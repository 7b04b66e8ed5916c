package session

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/CPNiemand/eos/kv"
	"github.com/CPNiemand/eos/kv/memstore"
)

type CommitSuite struct {
	*SessionSuite
}

func TestCommitSuite(t *testing.T) {
	suite.Run(t, &CommitSuite{new(SessionSuite)})
}

func (suite CommitSuite) TestSquashIntoParent() {
	b := suite.root.Branch()
	t := b.Branch()
	suite.put(t, "k", "v1")
	t.Commit()

	suite.Equal("v1", suite.get(b, "k"))
	suite.True(b.updated.Has(key("k")), "squash makes the write pending on the parent")
	suite.Empty(t.updated)
	suite.Equal(0, t.Cache().Len())
	suite.False(suite.store.Contains(key("k")), "nothing reaches the store yet")

	b.Commit()
	suite.Equal(ent("k", "v1"), suite.store.Read(key("k")))
}

func (suite CommitSuite) TestCommitTombstones() {
	suite.preload([2]string{"a", "A"}, [2]string{"b", "B"})
	b := suite.root.Branch()
	b.Erase(key("a"))
	suite.put(b, "b", "B2")
	b.Commit()

	suite.Equal(missing, suite.get(suite.root, "a"))
	suite.Equal("B2", suite.get(suite.root, "b"))
	suite.True(suite.root.deleted.Has(key("a")))

	suite.root.Commit()
	suite.False(suite.store.Contains(key("a")))
	suite.Equal(ent("b", "B2"), suite.store.Read(key("b")))
}

func (suite CommitSuite) TestRootCommitWritesStore() {
	suite.put(suite.root, "a", "1")
	suite.root.Commit()
	suite.Equal(ent("a", "1"), suite.store.Read(key("a")))
	suite.Empty(suite.root.updated)
	suite.Equal(0, suite.root.Cache().Len())
}

func (suite CommitSuite) TestCommitNothingIsNoOp() {
	suite.preload([2]string{"a", "A"})
	b := suite.root.Branch()
	suite.Equal("A", suite.get(b, "a"), "a read is not a mutation")
	b.Commit()
	suite.Empty(suite.root.updated)
	suite.Equal(1, suite.store.Len())
	suite.True(b.Cache().Contains(key("a")),
		"a no-op commit leaves the layer untouched")
}

func (suite CommitSuite) TestDoubleCommit() {
	b := suite.root.Branch()
	suite.put(b, "a", "1")
	b.Commit()
	b.Commit()
	suite.Equal("1", suite.get(suite.root, "a"))
	suite.Equal([]kv.Bytes{key("a")}, suite.root.updated.Keys(),
		"the second commit should change nothing")
}

func (suite CommitSuite) TestCloseCommits() {
	b := suite.root.Branch()
	suite.put(b, "a", "1")
	b.Close()
	suite.Equal("1", suite.get(suite.root, "a"))
}

func (suite CommitSuite) TestCommitAfterUndoIsNoOp() {
	b := suite.root.Branch()
	suite.put(b, "a", "1")
	b.Undo()
	b.Commit()
	suite.Equal(missing, suite.get(suite.root, "a"))
	suite.Equal(0, suite.store.Len())
}

func (suite CommitSuite) TestUndoDiscards() {
	suite.preload([2]string{"a", "A"})
	b := suite.root.Branch()
	suite.put(b, "a", "A2")
	suite.put(b, "b", "B")
	b.Undo()

	suite.Equal("A", suite.get(suite.root, "a"))
	suite.Equal(missing, suite.get(suite.root, "b"))
	suite.Nil(suite.root.child)
	suite.Nil(b.Store())
	suite.Equal(missing, suite.get(b, "a"), "an undone layer reads as empty")
}

func (suite CommitSuite) TestUndoMiddleLayerSplicesChain() {
	b := suite.root.Branch()
	t := b.Branch()
	suite.put(b, "x", "fromB")
	suite.put(t, "y", "fromT")
	b.Undo()

	suite.Same(suite.root, t.Parent(), "the leaf is reattached to the root")
	suite.Same(t, suite.root.child)
	suite.Equal(missing, suite.get(t, "x"), "the undone layer's data is gone")
	suite.Equal("fromT", suite.get(t, "y"))

	t.Commit()
	suite.Equal("fromT", suite.get(suite.root, "y"))
}

func (suite CommitSuite) TestBranchOrphansPriorChild() {
	b1 := suite.root.Branch()
	suite.put(b1, "a", "1")
	b2 := suite.root.Branch()

	suite.Nil(b1.Parent())
	suite.Nil(b1.Store())
	suite.Same(b2, suite.root.child)
	suite.Equal("1", suite.get(b1, "a"),
		"an orphaned layer keeps its own data")
	suite.Equal(missing, suite.get(b2, "a"))
}

func (suite CommitSuite) TestDetach() {
	suite.preload([2]string{"s", "S"})
	b := suite.root.Branch()
	suite.put(b, "a", "1")
	d := suite.root.Detach()

	suite.Same(b, d)
	suite.Nil(suite.root.child)
	suite.Nil(d.Store())
	suite.Equal("1", suite.get(d, "a"), "detach preserves the child's data")
	suite.Equal(missing, suite.get(d, "s"), "the store is no longer reachable")
}

func (suite CommitSuite) TestAttachTransfers() {
	store2 := memstore.New()
	store2.Write(ent("r2", "R2"))
	root2 := New(store2, nil)
	suite.preload([2]string{"r1", "R1"})

	l := suite.root.Branch()
	suite.put(l, "x", "X")
	suite.Equal("R1", suite.get(l, "r1"), "cache a speculative read before moving")

	root2.Attach(l)
	suite.Same(root2, l.Parent())
	suite.Same(store2, l.Store().(*memstore.Store))
	suite.Nil(suite.root.child, "the old parent lost its child")

	suite.Equal("X", suite.get(l, "x"), "own writes survive reparenting")
	suite.Equal(missing, suite.get(l, "r1"), "keys of the old chain are gone")
	suite.Equal("R2", suite.get(l, "r2"), "keys of the new chain are visible")
}

func (suite CommitSuite) TestAttachReturnsPriorChild() {
	b1 := suite.root.Branch()
	b2 := New(nil, nil)
	prior := suite.root.Attach(b2)
	suite.Same(b1, prior)
	suite.Nil(prior.Store(), "the replaced child is orphaned")
	suite.Same(suite.store, b2.Store().(*memstore.Store))
}

func (suite CommitSuite) TestDetachWithoutChild() {
	suite.Nil(suite.root.Detach())
}

func (suite CommitSuite) TestPrimeCacheDropsReadsKeepsWrites() {
	suite.preload([2]string{"a", "A"})
	l := suite.root.Branch()
	suite.Equal("A", suite.get(l, "a")) // cached read
	suite.put(l, "w", "W")

	root2 := New(memstore.New(), nil)
	root2.Attach(l)
	suite.False(l.Cache().Contains(key("a")), "read-only cache entries are dropped")
	suite.True(l.Cache().Contains(key("w")), "own writes are kept")
}

func (suite CommitSuite) TestCommitPropagatesThroughChain() {
	b := suite.root.Branch()
	t := b.Branch()
	suite.put(t, "k", "v")
	t.Commit()
	b.Commit()
	suite.root.Commit()
	suite.Equal(ent("k", "v"), suite.store.Read(key("k")),
		"a write eventually reaches the root's store")
}
