package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coalton-labs/memvault/internal/model"
	"github.com/coalton-labs/memvault/internal/search"
)

func someResults() []search.Result {
	return []search.Result{{
		Record:    model.New("cached result content goes here", "notes", 1, ""),
		Score:     2.5,
		Relevance: 1.0,
	}}
}

func TestKey_Deterministic(t *testing.T) {
	a := Key("Patent Filing ", 20, "legal", []string{"b", "a"}, 0, true)
	b := Key("patent filing", 20, "legal", []string{"a", "b"}, 0, true)
	require.Equal(t, a, b)

	require.NotEqual(t, a, Key("patent filing", 10, "legal", []string{"a", "b"}, 0, true))
	require.NotEqual(t, a, Key("patent filing", 20, "", []string{"a", "b"}, 0, true))
	require.NotEqual(t, a, Key("patent filing", 20, "legal", []string{"a", "b"}, 0.5, true))
	require.NotEqual(t, a, Key("patent filing", 20, "legal", []string{"a", "b"}, 0, false))
}

func TestGetPut(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)

	key := Key("patent", 20, "", nil, 0, true)
	_, ok := c.Get(key)
	require.False(t, ok)

	c.Put(key, someResults())
	got, ok := c.Get(key)
	require.True(t, ok)
	require.Len(t, got, 1)
	require.InDelta(t, 0.5, c.HitRate(), 1e-9)
}

func TestEviction(t *testing.T) {
	c, err := New(3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("key-%d", i), someResults())
	}
	// Touch key-0 so key-1 becomes the LRU victim.
	_, ok := c.Get("key-0")
	require.True(t, ok)

	c.Put("key-3", someResults())
	require.Equal(t, 3, c.Len())
	_, ok = c.Get("key-1")
	require.False(t, ok)
	_, ok = c.Get("key-0")
	require.True(t, ok)
}

func TestInvalidate(t *testing.T) {
	c, err := New(10)
	require.NoError(t, err)
	c.Put("a", someResults())
	c.Put("b", someResults())

	c.Invalidate()
	require.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	require.False(t, ok)
}
