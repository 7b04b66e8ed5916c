package memstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CPNiemand/eos/kv"
)

func ent(key, value string) kv.Entry {
	return kv.NewEntry(kv.BytesOf(key), kv.BytesOf(value))
}

func key(k string) kv.Bytes {
	return kv.BytesOf(k)
}

func TestReadWriteErase(t *testing.T) {
	assert := assert.New(t)
	s := New()
	assert.False(s.Read(key("a")).Valid())
	s.Write(ent("a", "1"))
	assert.Equal(ent("a", "1"), s.Read(key("a")))
	assert.True(s.Contains(key("a")))
	s.Write(ent("a", "2"))
	assert.Equal("2", s.Read(key("a")).Value().String())
	s.Erase(key("a"))
	assert.False(s.Read(key("a")).Valid())
	assert.False(s.Contains(key("a")))
}

func TestBatches(t *testing.T) {
	assert := assert.New(t)
	s := New()
	s.WriteBatch([]kv.Entry{ent("a", "1"), ent("b", "2"), ent("c", "3")})
	found, missing := s.ReadBatch([]kv.Bytes{key("a"), key("x"), key("c")})
	assert.Equal([]kv.Entry{ent("a", "1"), ent("c", "3")}, found)
	assert.True(missing.Has(key("x")))
	assert.Equal(1, missing.Len())

	s.EraseBatch(kv.NewKeySet(key("a"), key("b")))
	assert.Equal(1, s.Len())
}

func TestWriteTo(t *testing.T) {
	assert := assert.New(t)
	src, dst := New(), New()
	src.WriteBatch([]kv.Entry{ent("a", "1"), ent("b", "2")})
	src.WriteTo(dst, []kv.Bytes{key("a"), key("x")})
	assert.Equal(ent("a", "1"), dst.Read(key("a")))
	assert.Equal(1, dst.Len(), "missing keys should be skipped")
}

func collect(c kv.Cursor) (keys []string) {
	defer c.Close()
	for ; c.Valid(); c.Next() {
		keys = append(keys, c.Key().String())
	}
	return
}

func TestCursorPositions(t *testing.T) {
	assert := assert.New(t)
	s := New()
	s.WriteBatch([]kv.Entry{ent("a", "1"), ent("c", "3"), ent("e", "5")})

	assert.Equal([]string{"a", "c", "e"}, collect(s.First()))
	assert.Equal([]string{"c", "e"}, collect(s.LowerBound(key("b"))))
	assert.Equal([]string{"c", "e"}, collect(s.LowerBound(key("c"))))
	assert.Equal([]string{"e"}, collect(s.UpperBound(key("c"))))
	assert.Equal([]string{"c", "e"}, collect(s.Find(key("c"))))
	assert.Empty(collect(s.Find(key("b"))))

	last := s.Last()
	assert.True(last.Valid())
	assert.Equal("e", last.Key().String())
	last.Close()
}

func TestCursorPrev(t *testing.T) {
	assert := assert.New(t)
	s := New()
	s.WriteBatch([]kv.Entry{ent("a", "1"), ent("c", "3")})

	c := s.LowerBound(key("c"))
	assert.Equal("c", c.Key().String())
	c.Prev()
	assert.True(c.Valid())
	assert.Equal("a", c.Key().String())
	c.Prev()
	assert.False(c.Valid(), "prev before first should invalidate")
	c.Close()
}

func TestCursorEmptyStore(t *testing.T) {
	assert := assert.New(t)
	s := New()
	c := s.First()
	assert.False(c.Valid())
	c.Close()
	c = s.Last()
	assert.False(c.Valid())
	c.Close()
}
