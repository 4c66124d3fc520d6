package form

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry()

	s1 := r.GetOrCreate(1)
	s2 := r.GetOrCreate(1)
	assert.Same(t, s1, s2)

	s3 := r.GetOrCreate(2)
	assert.NotSame(t, s1, s3)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate(1)

	r.Remove(1)
	_, ok := r.Get(1)
	assert.False(t, ok)
	assert.Zero(t, r.Len())

	// удаление несуществующей сессии безвредно
	r.Remove(42)
}

func TestRegistryEvictIdle(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate(1)
	r.GetOrCreate(2)

	// свежие сессии не выселяются
	assert.Zero(t, r.EvictIdle(time.Hour))
	assert.Equal(t, 2, r.Len())

	time.Sleep(20 * time.Millisecond)
	evicted := r.EvictIdle(10 * time.Millisecond)
	assert.Equal(t, 2, evicted)
	assert.Zero(t, r.Len())
}

func TestRegistryDoesNotEvictFinalizing(t *testing.T) {
	m := NewMachine()
	r := NewRegistry()

	s := r.GetOrCreate(1)
	fillBuyer(t, m, s, nil)
	addItem(t, m, s, "Цемент", 1, 1000)

	_, err := m.BeginFinalize(s)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, r.EvictIdle(10*time.Millisecond))
	_, ok := r.Get(1)
	assert.True(t, ok)

	m.CompleteFinalize(s, false)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, r.EvictIdle(10*time.Millisecond))
}
