package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertAndGet(t *testing.T) {
	idx := New()

	_, displaced := idx.Insert("key", LogPointer{Offset: 10, Size: 20})
	assert.False(t, displaced)

	ptr, ok := idx.Get("key")
	assert.True(t, ok)
	assert.Equal(t, LogPointer{Offset: 10, Size: 20}, ptr)
}

func TestInsert_ReturnsDisplacedPointer(t *testing.T) {
	idx := New()
	idx.Insert("key", LogPointer{Offset: 0, Size: 10})

	prev, displaced := idx.Insert("key", LogPointer{Offset: 10, Size: 15})
	assert.True(t, displaced)
	assert.Equal(t, LogPointer{Offset: 0, Size: 10}, prev)

	ptr, _ := idx.Get("key")
	assert.Equal(t, LogPointer{Offset: 10, Size: 15}, ptr)
}

func TestGet_MissingKey(t *testing.T) {
	idx := New()
	_, ok := idx.Get("missing")
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	idx := New()
	idx.Insert("key", LogPointer{Offset: 0, Size: 10})

	prev, ok := idx.Remove("key")
	assert.True(t, ok)
	assert.Equal(t, LogPointer{Offset: 0, Size: 10}, prev)

	_, ok = idx.Get("key")
	assert.False(t, ok)
}

func TestRemove_MissingKey(t *testing.T) {
	idx := New()
	_, ok := idx.Remove("missing")
	assert.False(t, ok)
}

func TestLen(t *testing.T) {
	idx := New()
	assert.Equal(t, 0, idx.Len())

	idx.Insert("a", LogPointer{})
	idx.Insert("b", LogPointer{})
	assert.Equal(t, 2, idx.Len())

	idx.Remove("a")
	assert.Equal(t, 1, idx.Len())
}

func TestEach(t *testing.T) {
	idx := New()
	idx.Insert("a", LogPointer{Offset: 1})
	idx.Insert("b", LogPointer{Offset: 2})
	idx.Insert("c", LogPointer{Offset: 3})

	seen := map[string]LogPointer{}
	idx.Each(func(key string, ptr LogPointer) bool {
		seen[key] = ptr
		return true
	})
	assert.Len(t, seen, 3)
}

func TestEach_StopsEarly(t *testing.T) {
	idx := New()
	idx.Insert("a", LogPointer{})
	idx.Insert("b", LogPointer{})
	idx.Insert("c", LogPointer{})

	visited := 0
	idx.Each(func(key string, ptr LogPointer) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)
}
