package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestMemory(capacity int, ttl time.Duration) (*Memory, *clock) {
	clk := &clock{t: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)}
	m := NewMemory(capacity, ttl)
	m.now = clk.now
	return m, clk
}

func TestMemory_SeenAfterMark(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(10, time.Minute)

	seen, err := m.Seen(ctx, "alpha")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, m.Mark(ctx, "alpha"))

	seen, err = m.Seen(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	m, clk := newTestMemory(10, time.Hour)

	require.NoError(t, m.Mark(ctx, "beta"))
	clk.t = clk.t.Add(61 * time.Minute)

	seen, _ := m.Seen(ctx, "beta")
	assert.False(t, seen)

	require.NoError(t, m.Mark(ctx, "gamma"))
	assert.Equal(t, 1, m.Len())
}

func TestMemory_CapacityEvictsOldest(t *testing.T) {
	ctx := context.Background()
	m, clk := newTestMemory(1, time.Hour)

	require.NoError(t, m.Mark(ctx, "first"))
	clk.t = clk.t.Add(time.Second)
	require.NoError(t, m.Mark(ctx, "second"))

	first, _ := m.Seen(ctx, "first")
	second, _ := m.Seen(ctx, "second")
	assert.False(t, first)
	assert.True(t, second)
}

func TestMemory_RemarkKeepsKey(t *testing.T) {
	ctx := context.Background()
	m, clk := newTestMemory(2, time.Hour)

	require.NoError(t, m.Mark(ctx, "a"))
	clk.t = clk.t.Add(time.Second)
	require.NoError(t, m.Mark(ctx, "b"))
	clk.t = clk.t.Add(time.Second)
	require.NoError(t, m.Mark(ctx, "a"))

	a, _ := m.Seen(ctx, "a")
	b, _ := m.Seen(ctx, "b")
	assert.True(t, a)
	assert.True(t, b)
}

func TestMemory_Clear(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(10, time.Hour)

	require.NoError(t, m.Mark(ctx, "a"))
	require.NoError(t, m.Clear(ctx))

	seen, _ := m.Seen(ctx, "a")
	assert.False(t, seen)
	assert.Zero(t, m.Len())
}

func TestNew_Drivers(t *testing.T) {
	store, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, store)

	_, err = New(context.Background(), Config{Driver: "memcached"})
	assert.Error(t, err)
}
