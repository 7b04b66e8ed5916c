package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytesInvalidDistinctFromEmpty(t *testing.T) {
	assert := assert.New(t)
	empty := NewBytes([]byte{})
	assert.True(empty.Valid(), "empty bytes are valid data")
	assert.False(InvalidBytes.Valid())
	assert.False(empty.Equal(InvalidBytes))
	assert.Equal(0, empty.Len())
	assert.Equal(0, InvalidBytes.Len())
}

func TestBytesOrdering(t *testing.T) {
	assert := assert.New(t)
	a, b, ab := BytesOf("a"), BytesOf("b"), BytesOf("ab")
	assert.True(a.Less(b))
	assert.True(a.Less(ab))
	assert.True(ab.Less(b))
	assert.False(b.Less(a))
	assert.False(a.Less(a))
	assert.Equal(0, a.Compare(a))
	assert.True(InvalidBytes.Less(NewBytes([]byte{})),
		"invalid sorts before the empty bytes")
}

func TestBytesAsMapKey(t *testing.T) {
	assert := assert.New(t)
	m := map[Bytes]int{}
	m[BytesOf("x")] = 1
	m[NewBytes([]byte("x"))] = 2
	assert.Equal(1, len(m), "equal bytes should be one map key")
	assert.Equal(2, m[BytesOf("x")])
}

func TestBytesData(t *testing.T) {
	assert := assert.New(t)
	raw := []byte{1, 2, 3}
	b := NewBytes(raw)
	raw[0] = 9
	assert.Equal([]byte{1, 2, 3}, b.Data(), "NewBytes should copy")
	assert.Nil(InvalidBytes.Data())
}

func TestEntryValidity(t *testing.T) {
	assert := assert.New(t)
	assert.False(InvalidEntry.Valid())
	e := Ent([]byte("k"), []byte("v"))
	assert.True(e.Valid())
	assert.Equal("k", e.Key().String())
	assert.Equal("v", e.Value().String())
	assert.True(NewEntry(BytesOf("k"), InvalidBytes).Valid(),
		"an entry is valid when its key is")
}

func TestKeySet(t *testing.T) {
	assert := assert.New(t)
	s := NewKeySet(BytesOf("b"), BytesOf("a"))
	assert.True(s.Has(BytesOf("a")))
	assert.False(s.Has(BytesOf("c")))
	s.Add(BytesOf("c"))
	s.Remove(BytesOf("b"))
	assert.Equal(2, s.Len())
	assert.Equal([]Bytes{BytesOf("a"), BytesOf("c")}, s.Keys(),
		"Keys should be sorted")
}
